package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account holds the current credit state of one user.
// user_id is the messaging platform's identifier; the ledger never
// interprets it beyond uniqueness.
type Account struct {
	UserID         int64
	Balance        int64
	TotalPurchased int64
	TotalSpent     decimal.Decimal
	LastPurchaseAt *time.Time
	CreatedAt      time.Time
}
