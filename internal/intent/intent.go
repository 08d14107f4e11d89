// Package intent turns raw message text into a routed intent. Mid-flow
// answers are parsed against the stage's expected shape before anything
// else, so "100" inside an amount prompt never reads as a selection.
package intent

// Intent tags.
const (
	IntentUnknown         = "unknown"
	IntentGreeting        = "greeting"
	IntentHelp            = "help"
	IntentCancel          = "cancel"
	IntentBalance         = "balance"
	IntentListChallenges  = "list_challenges"
	IntentCreateChallenge = "create_challenge"
	IntentCompletionClaim = "completion_claim"
	IntentFundRequest     = "fund_request"
	IntentWithdrawRequest = "withdraw_request"
	IntentSelection       = "selection"
	IntentAffirm          = "affirm"
	IntentDeny            = "deny"
	IntentAmount          = "amount"
	IntentEmail           = "email"
	IntentFreeText        = "free_text"
)

// Escape intents interrupt any active flow.
var escapeIntents = map[string]bool{
	IntentCancel:         true,
	IntentHelp:           true,
	IntentBalance:        true,
	IntentListChallenges: true,
}

func IsEscape(intent string) bool {
	return escapeIntents[intent]
}

// Fields carries structured data extracted alongside the intent.
type Fields struct {
	AmountPaise     int64
	HasAmount       bool
	AllBalance      bool
	Goal            string
	Selection       int
	HasSelection    bool
	Frequency       string
	HasFrequency    bool
	WantsRecurrence bool
	Email           string
	Text            string
}

type Result struct {
	Intent     string
	Confidence float64
	Fields     Fields
}
