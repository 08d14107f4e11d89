package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/bettask/backend/internal/models"
	"go.uber.org/zap"
)

type fakeAI struct {
	label      string
	confidence float64
	err        error
	called     bool
}

func (f *fakeAI) ClassifyText(_ context.Context, _ string, _ []string) (string, float64, error) {
	f.called = true
	return f.label, f.confidence, f.err
}

func TestClassifierSkipsAIOnRuleHit(t *testing.T) {
	ai := &fakeAI{}
	c := NewClassifier(ai, 0.7, zap.NewNop())

	r := c.Classify(context.Background(), "balance", nil)
	if r.Intent != IntentBalance {
		t.Errorf("intent = %q", r.Intent)
	}
	if ai.called {
		t.Error("ai consulted for a deterministic match")
	}
}

func TestClassifierAIFallback(t *testing.T) {
	ai := &fakeAI{label: IntentFundRequest, confidence: 0.9}
	c := NewClassifier(ai, 0.7, zap.NewNop())

	r := c.Classify(context.Background(), "i want to put some cash in", nil)
	if r.Intent != IntentFundRequest {
		t.Errorf("intent = %q, want ai label", r.Intent)
	}
	if !ai.called {
		t.Error("ai never consulted")
	}
}

func TestClassifierLowConfidenceAIIsUnknown(t *testing.T) {
	ai := &fakeAI{label: IntentFundRequest, confidence: 0.3}
	c := NewClassifier(ai, 0.7, zap.NewNop())

	r := c.Classify(context.Background(), "hmmm so about the thing", nil)
	if r.Intent != IntentUnknown {
		t.Errorf("intent = %q, want unknown", r.Intent)
	}
}

func TestClassifierAIErrorFallsBackToDeterministic(t *testing.T) {
	ai := &fakeAI{err: errors.New("timeout")}
	c := NewClassifier(ai, 0.7, zap.NewNop())

	r := c.Classify(context.Background(), "blah blah", nil)
	if r.Intent != IntentUnknown {
		t.Errorf("intent = %q, want deterministic fallback", r.Intent)
	}
}

func TestClassifierRejectsLabelOutsideClosedSet(t *testing.T) {
	ai := &fakeAI{label: "order_pizza", confidence: 0.99}
	c := NewClassifier(ai, 0.7, zap.NewNop())

	r := c.Classify(context.Background(), "something ambiguous", nil)
	if r.Intent != IntentUnknown {
		t.Errorf("intent = %q, want unknown for off-label reply", r.Intent)
	}
}

func TestClassifierShapeParseBeatsAI(t *testing.T) {
	ai := &fakeAI{label: IntentCreateChallenge, confidence: 0.95}
	c := NewClassifier(ai, 0.7, zap.NewNop())
	state := &models.ConversationState{Flow: models.FlowFunding, Stage: models.StageCollectingAmount}

	r := c.Classify(context.Background(), "₹500", state)
	if r.Intent != IntentAmount || r.Fields.AmountPaise != 50000 {
		t.Errorf("mid-flow amount misrouted: %+v", r)
	}
	if ai.called {
		t.Error("ai consulted for a shape-parsed answer")
	}
}
