package models

import "testing"

func TestIsValidChallengeTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		{ChallengeStatusActive, ChallengeStatusCompleted, true},
		{ChallengeStatusActive, ChallengeStatusFailed, true},
		{ChallengeStatusActive, ChallengeStatusCancelled, true},

		// Terminal statuses never move again
		{ChallengeStatusCompleted, ChallengeStatusActive, false},
		{ChallengeStatusCompleted, ChallengeStatusFailed, false},
		{ChallengeStatusFailed, ChallengeStatusActive, false},
		{ChallengeStatusFailed, ChallengeStatusCompleted, false},
		{ChallengeStatusCancelled, ChallengeStatusActive, false},

		{"nonexistent", ChallengeStatusCompleted, false},
		{ChallengeStatusActive, "nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			result := IsValidChallengeTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("IsValidChallengeTransition(%q, %q) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestTerminalChallengeStatusesHaveNoTransitions(t *testing.T) {
	terminal := []string{ChallengeStatusCompleted, ChallengeStatusFailed, ChallengeStatusCancelled}
	for _, status := range terminal {
		transitions := ValidChallengeTransitions[status]
		if len(transitions) != 0 {
			t.Errorf("terminal status %q should have no transitions, got %v", status, transitions)
		}
	}
}

func TestFormatINR(t *testing.T) {
	tests := []struct {
		paise    int64
		expected string
	}{
		{0, "₹0"},
		{100, "₹1"},
		{12550, "₹125.50"},
		{50000, "₹500"},
		{99, "₹0.99"},
		{-2500, "-₹25"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := FormatINR(tt.paise); got != tt.expected {
				t.Errorf("FormatINR(%d) = %q, want %q", tt.paise, got, tt.expected)
			}
		})
	}
}
