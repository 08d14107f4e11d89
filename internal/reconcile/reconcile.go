// Package reconcile decides what to do with payment evidence. The policy
// is a pure function of the amounts and flags so it can be tested without
// the inference service.
package reconcile

// Decision values.
const (
	DecisionReject        = "reject"
	DecisionCreditFull    = "credit_full"
	DecisionCreditPartial = "credit_partial"
	DecisionManualReview  = "manual_review"
)

// Policy holds the tunable thresholds, both in whole percent.
type Policy struct {
	// TolerancePct is the band around the expected amount treated as an
	// exact payment.
	TolerancePct int64
	// PartialFloorPct is the minimum share of the expected amount that
	// still earns an automatic partial credit.
	PartialFloorPct int64
}

// Input is everything the decision depends on. The flags come from the
// evidence reader (or manual entry); the explanation text never does.
type Input struct {
	ExpectedPaise     int64
	ObservedPaise     int64
	Fresh             bool
	RecipientMismatch bool
	TxFailed          bool
}

// Outcome carries the decision and the amount to credit, zero unless the
// decision is a credit.
type Outcome struct {
	Decision    string
	CreditPaise int64
}

// Reconcile applies the settlement policy in order: staleness, explicit
// mismatch signals, then the amount bands. A full credit pays the
// expected amount; a partial credit pays exactly what the evidence shows.
func Reconcile(p Policy, in Input) Outcome {
	if !in.Fresh {
		return Outcome{Decision: DecisionReject}
	}
	if in.RecipientMismatch || in.TxFailed {
		return Outcome{Decision: DecisionReject}
	}
	if in.ExpectedPaise <= 0 || in.ObservedPaise <= 0 {
		return Outcome{Decision: DecisionManualReview}
	}

	diff := in.ObservedPaise - in.ExpectedPaise
	if diff < 0 {
		diff = -diff
	}
	// Integer comparison of diff/expected against the percent thresholds.
	if diff*100 <= in.ExpectedPaise*p.TolerancePct {
		return Outcome{Decision: DecisionCreditFull, CreditPaise: in.ExpectedPaise}
	}
	if in.ObservedPaise*100 >= in.ExpectedPaise*p.PartialFloorPct {
		return Outcome{Decision: DecisionCreditPartial, CreditPaise: in.ObservedPaise}
	}
	return Outcome{Decision: DecisionManualReview}
}
