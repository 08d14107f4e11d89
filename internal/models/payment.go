package models

import (
	"time"

	"github.com/google/uuid"
)

// Payment request statuses
const (
	PaymentStatusPending      = "pending"
	PaymentStatusApproved     = "approved"
	PaymentStatusRejected     = "rejected"
	PaymentStatusManualReview = "manual_review"
	PaymentStatusExpired      = "expired"
)

// Valid payment request transitions: from -> []to.
// approved/rejected/expired are terminal; manual_review is resolved by a human.
var ValidPaymentTransitions = map[string][]string{
	PaymentStatusPending:      {PaymentStatusApproved, PaymentStatusRejected, PaymentStatusManualReview, PaymentStatusExpired},
	PaymentStatusManualReview: {PaymentStatusApproved, PaymentStatusRejected},
	PaymentStatusApproved:     {},
	PaymentStatusRejected:     {},
	PaymentStatusExpired:      {},
}

func IsValidPaymentTransition(from, to string) bool {
	allowed, ok := ValidPaymentTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// PaymentRequest records an expected deposit and, once evidence arrives,
// the amount actually observed in it.
type PaymentRequest struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	ExpectedPaise int64      `json:"expected_paise"`
	ObservedPaise *int64     `json:"observed_paise,omitempty"` // nil until evidence received
	Status        string     `json:"status"`
	PayeeHandle   string     `json:"payee_handle"` // UPI handle the user is asked to pay
	CreatedAt     time.Time  `json:"created_at"`
	DecidedAt     *time.Time `json:"decided_at,omitempty"`
}

// Withdrawal request statuses
const (
	WithdrawalStatusPending  = "pending"
	WithdrawalStatusPaid     = "paid"
	WithdrawalStatusRejected = "rejected"
)

// WithdrawalRequest holds funds debited from the wallet until a payout
// is made (or the request is rejected and refunded).
type WithdrawalRequest struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	AmountPaise int64     `json:"amount_paise"`
	PayoutUPI   string    `json:"payout_upi"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}
