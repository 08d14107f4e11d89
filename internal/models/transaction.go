package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction kinds
const (
	TransactionDeduction = "deduction" // stake reserved for a challenge
	TransactionReward    = "reward"    // payout for a completed challenge
	TransactionCredit    = "credit"    // wallet funding
	TransactionRefund    = "refund"    // returned stake or rejected withdrawal
)

func IsValidTransactionKind(kind string) bool {
	switch kind {
	case TransactionDeduction, TransactionReward, TransactionCredit, TransactionRefund:
		return true
	}
	return false
}

// Transaction is an append-only ledger entry. Amounts are signed:
// negative for deductions, positive for credits/rewards/refunds.
type Transaction struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	AmountPaise int64      `json:"amount_paise"`
	Kind        string     `json:"kind"`
	Description string     `json:"description"`
	ChallengeID *uuid.UUID `json:"challenge_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
