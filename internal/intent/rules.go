package intent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/bettask/backend/internal/models"
)

var (
	amountRe    = regexp.MustCompile(`(?i)(?:₹|rs\.?|inr)?\s*([0-9]+(?:\.[0-9]{1,2})?)\s*(?:₹|rs\.?|inr|rupees?)?`)
	selectionRe = regexp.MustCompile(`^\s*#?([0-9]{1,2})\s*$`)
	emailRe     = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	createWithAmountRe = regexp.MustCompile(`(?i)(?:₹|rs\.?|inr)\s*[0-9]+|[0-9]+\s*(?:₹|rs\.?|inr|rupees?)`)
)

// ParseAmount extracts a rupee amount as paise. "all" and "everything"
// set allBalance instead; the actual figure is resolved later against the
// live wallet balance.
func ParseAmount(text string) (paise int64, allBalance, ok bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "all" || t == "everything" || t == "all of it" {
		return 0, true, true
	}
	m := amountRe.FindStringSubmatch(t)
	if m == nil {
		return 0, false, false
	}
	whole, frac, _ := strings.Cut(m[1], ".")
	rupees, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, false, false
	}
	paise = rupees * 100
	if frac != "" {
		if len(frac) == 1 {
			frac += "0"
		}
		p, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, false, false
		}
		paise += p
	}
	if paise <= 0 {
		return 0, false, false
	}
	return paise, false, true
}

func parseSelection(text string) (int, bool) {
	m := selectionRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func parseYesNo(text string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "yes", "y", "yeah", "yep", "ok", "okay", "confirm", "sure", "haan":
		return IntentAffirm, true
	case "no", "n", "nope", "nah", "nahi":
		return IntentDeny, true
	}
	return "", false
}

func parseFrequency(text string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "daily", "every day", "everyday", "1":
		return models.FrequencyDaily, true
	case "weekly", "once a week", "2":
		return models.FrequencyWeekly, true
	case "twice a week", "twice weekly", "3":
		return models.FrequencyTwiceWeekly, true
	case "thrice a week", "three times a week", "thrice weekly", "4":
		return models.FrequencyThriceWeekly, true
	case "no", "none", "one-time", "one time", "once", "skip":
		return "", true
	}
	return "", false
}

func asksRecurrence(text string) bool {
	t := strings.ToLower(text)
	return strings.Contains(t, "recur") || strings.Contains(t, "repeat")
}

// parseExpected tries the narrow shape the active stage is waiting for.
// Returning ok=false hands the message to the generic rules.
func parseExpected(state *models.ConversationState, text string) (Result, bool) {
	if !state.Active() {
		return Result{}, false
	}
	switch state.Stage {
	case models.StageCollectingAmount:
		if paise, all, ok := ParseAmount(text); ok {
			return Result{Intent: IntentAmount, Confidence: 1, Fields: Fields{AmountPaise: paise, HasAmount: !all, AllBalance: all}}, true
		}
	case models.StageConfirming:
		if tag, ok := parseYesNo(text); ok {
			return Result{Intent: tag, Confidence: 1}, true
		}
		// Recurrence is opt-in at the confirmation step: a frequency word
		// sets it directly, a vaguer ask opens the frequency sub-stage.
		if freq, ok := parseFrequency(text); ok && freq != "" {
			return Result{Intent: IntentFreeText, Confidence: 1, Fields: Fields{Frequency: freq, HasFrequency: true, Text: text}}, true
		}
		if asksRecurrence(text) {
			return Result{Intent: IntentFreeText, Confidence: 1, Fields: Fields{WantsRecurrence: true, Text: text}}, true
		}
	case models.StageCollectingFrequency:
		if freq, ok := parseFrequency(text); ok {
			return Result{Intent: IntentFreeText, Confidence: 1, Fields: Fields{Frequency: freq, HasFrequency: true, Text: text}}, true
		}
	case models.StageSelectingChallenge:
		if n, ok := parseSelection(text); ok {
			return Result{Intent: IntentSelection, Confidence: 1, Fields: Fields{Selection: n, HasSelection: true}}, true
		}
	case models.StageCollectingEmail:
		if emailRe.MatchString(strings.TrimSpace(text)) {
			return Result{Intent: IntentEmail, Confidence: 1, Fields: Fields{Email: strings.TrimSpace(text)}}, true
		}
	case models.StageCollectingName, models.StageCollectingGoal, models.StageCollectingUPI:
		// Free text stages accept anything that is not an escape keyword.
		if r, ok := classifyEscape(text); ok {
			return r, true
		}
		return Result{Intent: IntentFreeText, Confidence: 1, Fields: Fields{Text: strings.TrimSpace(text)}}, true
	}
	return Result{}, false
}

func classifyEscape(text string) (Result, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	switch t {
	case "cancel", "stop", "quit", "exit", "nevermind", "never mind":
		return Result{Intent: IntentCancel, Confidence: 1}, true
	case "help", "menu", "commands", "?":
		return Result{Intent: IntentHelp, Confidence: 1}, true
	case "balance", "wallet", "my balance", "check balance":
		return Result{Intent: IntentBalance, Confidence: 1}, true
	case "challenges", "my challenges", "list challenges", "list", "status":
		return Result{Intent: IntentListChallenges, Confidence: 1}, true
	}
	return Result{}, false
}

// classifyRules is the deterministic keyword layer. The confidence values
// separate exact keyword hits from looser phrase matches so the AI
// fallback threshold can sit between them.
func classifyRules(text string) Result {
	t := strings.ToLower(strings.TrimSpace(text))

	if r, ok := classifyEscape(t); ok {
		return r
	}

	switch t {
	case "hi", "hello", "hey", "start", "namaste":
		return Result{Intent: IntentGreeting, Confidence: 1}
	}

	if n, ok := parseSelection(t); ok {
		return Result{Intent: IntentSelection, Confidence: 0.9, Fields: Fields{Selection: n, HasSelection: true}}
	}

	if containsAny(t, "i did it", "done", "completed", "finished", "i completed", "proof") {
		return Result{Intent: IntentCompletionClaim, Confidence: 0.85}
	}
	if containsAny(t, "add money", "add funds", "deposit", "top up", "topup", "recharge") {
		r := Result{Intent: IntentFundRequest, Confidence: 0.85}
		if paise, all, ok := ParseAmount(t); ok && !all {
			r.Fields = Fields{AmountPaise: paise, HasAmount: true}
		}
		return r
	}
	if containsAny(t, "withdraw", "cash out", "cashout", "payout") {
		r := Result{Intent: IntentWithdrawRequest, Confidence: 0.85}
		if paise, all, ok := ParseAmount(t); ok {
			r.Fields = Fields{AmountPaise: paise, HasAmount: !all, AllBalance: all}
		}
		return r
	}
	if containsAny(t, "challenge", "bet", "i will", "i'll", "stake") {
		r := Result{Intent: IntentCreateChallenge, Confidence: 0.8, Fields: Fields{Goal: strings.TrimSpace(text)}}
		if createWithAmountRe.MatchString(t) {
			if paise, _, ok := ParseAmount(t); ok {
				r.Fields.AmountPaise = paise
				r.Fields.HasAmount = true
			}
		}
		return r
	}

	return Result{Intent: IntentUnknown, Confidence: 0}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
