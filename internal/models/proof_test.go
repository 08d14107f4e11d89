package models

import "testing"

func TestIsValidProofTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		// Happy path
		{ProofStageAwaitingMedia, ProofStageTimestampCheck, true},
		{ProofStageTimestampCheck, ProofStageContentCheck, true},
		{ProofStageContentCheck, ProofStagePassed, true},

		// Retry loops stay on the same stage
		{ProofStageTimestampCheck, ProofStageTimestampCheck, true},
		{ProofStageContentCheck, ProofStageContentCheck, true},

		// Exhausted attempts
		{ProofStageTimestampCheck, ProofStageFailed, true},
		{ProofStageContentCheck, ProofStageFailed, true},

		// Content check is gated behind a timestamp pass
		{ProofStageAwaitingMedia, ProofStageContentCheck, false},
		{ProofStageAwaitingMedia, ProofStagePassed, false},

		// No resurrection
		{ProofStageFailed, ProofStageTimestampCheck, false},
		{ProofStagePassed, ProofStageContentCheck, false},
		{ProofStagePassed, ProofStageFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			result := IsValidProofTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("IsValidProofTransition(%q, %q) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestIsValidPaymentTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		{PaymentStatusPending, PaymentStatusApproved, true},
		{PaymentStatusPending, PaymentStatusRejected, true},
		{PaymentStatusPending, PaymentStatusManualReview, true},
		{PaymentStatusPending, PaymentStatusExpired, true},
		{PaymentStatusManualReview, PaymentStatusApproved, true},
		{PaymentStatusManualReview, PaymentStatusRejected, true},

		{PaymentStatusApproved, PaymentStatusRejected, false},
		{PaymentStatusRejected, PaymentStatusApproved, false},
		{PaymentStatusExpired, PaymentStatusApproved, false},
		{PaymentStatusManualReview, PaymentStatusExpired, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			result := IsValidPaymentTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("IsValidPaymentTransition(%q, %q) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}
