package models

import (
	"time"
)

// ActivationCode is a single-use code redeemable for a fixed credit grant.
// Once used, UsedBy and UsedAt are set and never change again.
type ActivationCode struct {
	Code      string
	Credits   int64
	IsUsed    bool
	UsedBy    *int64
	UsedAt    *time.Time
	CreatedAt time.Time
}
