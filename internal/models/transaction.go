package models

import (
	"time"
)

// Transaction kinds. Sign is implied by the kind: KindDeduct decreases the
// balance, everything else increases it.
const (
	KindAdd                 = "add"
	KindDeduct              = "deduct"
	KindPurchase            = "purchase"
	KindActivation          = "activation"
	KindSubscription        = "subscription"
	KindSubscriptionRenewal = "subscription_renewal"
)

// Spend categories, set by the caller at debit time. The description stays
// free text for display only.
const (
	CategoryMessage  = "message"
	CategoryImage    = "image"
	CategoryDocument = "document"
	CategoryPhoto    = "photo"
	CategoryOther    = "other"
)

// CategoryLabel maps a category to its display name. Unknown values fall
// back to the "other" bucket.
func CategoryLabel(category string) string {
	switch category {
	case CategoryMessage:
		return "Messages"
	case CategoryImage:
		return "Images"
	case CategoryDocument:
		return "Document analysis"
	case CategoryPhoto:
		return "Photo analysis"
	default:
		return "Other"
	}
}

// IsCreditKind reports whether the kind increases the balance.
func IsCreditKind(kind string) bool {
	return kind != KindDeduct
}

// Transaction is one immutable row of the balance mutation log.
type Transaction struct {
	ID             int64
	UserID         int64
	Kind           string
	Category       string
	Amount         int64
	BalanceBefore  int64
	BalanceAfter   int64
	Description    string
	IdempotencyKey string
	CreatedAt      time.Time
}
