package models

import (
	"time"
)

// DepletionForecast is a linear run-rate projection of days until the
// balance reaches zero. DaysLeft is nil when there is no measurable usage.
type DepletionForecast struct {
	CurrentBalance int64
	AvgDailyUsage  float64
	DaysLeft       *int
	DepletionDate  *time.Time
}

// CategoryUsage is the total spent in one category within a window.
type CategoryUsage struct {
	Category string
	Label    string
	Amount   int64
}

// BalancePoint is one sample of the balance-over-time series, taken from a
// transaction's balance_after at its commit time.
type BalancePoint struct {
	At      time.Time
	Balance int64
}

// CreditStats is the account summary shown to the user: current state plus
// the most recent transactions.
type CreditStats struct {
	Account Account
	History []Transaction
}
