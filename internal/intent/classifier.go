package intent

import (
	"context"

	"github.com/bettask/backend/internal/models"
	"go.uber.org/zap"
)

// aiLabels is the closed label set offered to the inference service.
var aiLabels = []string{
	IntentCreateChallenge,
	IntentCompletionClaim,
	IntentFundRequest,
	IntentWithdrawRequest,
	IntentBalance,
	IntentListChallenges,
	IntentHelp,
	IntentCancel,
	IntentGreeting,
	IntentUnknown,
}

// TextClassifier is the slice of the AI client the classifier needs.
type TextClassifier interface {
	ClassifyText(ctx context.Context, message string, labels []string) (label string, confidence float64, err error)
}

type Classifier struct {
	ai TextClassifier
	// minConfidence gates both the rule layer's looser matches and the AI
	// label before either is trusted.
	minConfidence float64
	log           *zap.Logger
}

func NewClassifier(ai TextClassifier, minConfidence float64, log *zap.Logger) *Classifier {
	return &Classifier{ai: ai, minConfidence: minConfidence, log: log}
}

// Classify routes a text message. Evaluation order: the active stage's
// expected shape, then deterministic rules (including escapes), then the
// AI fallback. An AI failure or a low-confidence AI label falls back to
// the deterministic result rather than surfacing an error.
func (c *Classifier) Classify(ctx context.Context, text string, state *models.ConversationState) Result {
	if r, ok := parseExpected(state, text); ok {
		return r
	}

	det := classifyRules(text)
	if det.Intent != IntentUnknown && det.Confidence >= c.minConfidence {
		return det
	}

	if c.ai != nil {
		label, conf, err := c.ai.ClassifyText(ctx, text, aiLabels)
		if err != nil {
			c.log.Warn("ai classification failed, using deterministic result", zap.Error(err))
			return det
		}
		if conf >= c.minConfidence && validLabel(label) {
			return Result{Intent: label, Confidence: conf, Fields: Fields{Text: text, Goal: text}}
		}
	}

	return det
}

func validLabel(label string) bool {
	for _, l := range aiLabels {
		if l == label {
			return true
		}
	}
	return false
}
