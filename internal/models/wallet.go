package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Wallet holds a user's balance in paise (1 INR = 100 paise).
// Balance is never mutated directly; all changes go through the ledger.
type Wallet struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	BalancePaise int64     `json:"balance_paise"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FormatINR renders a paise amount as a rupee string, e.g. 12550 -> "₹125.50".
func FormatINR(paise int64) string {
	sign := ""
	if paise < 0 {
		sign = "-"
		paise = -paise
	}
	if paise%100 == 0 {
		return fmt.Sprintf("%s₹%d", sign, paise/100)
	}
	return fmt.Sprintf("%s₹%d.%02d", sign, paise/100, paise%100)
}
