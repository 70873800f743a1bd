package models

import (
	"github.com/shopspring/decimal"
)

// CreditPackage is an administered purchasable bundle of credits.
type CreditPackage struct {
	ID       int64
	Name     string
	Credits  int64
	Price    decimal.Decimal
	IsActive bool
}
