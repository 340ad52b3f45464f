package domain

import "time"

type HoldStatus string

const (
	HoldStatusActive    HoldStatus = "active"
	HoldStatusUsed      HoldStatus = "used"
	HoldStatusExpired   HoldStatus = "expired"
	HoldStatusCancelled HoldStatus = "cancelled"
)

// Hold is a time-bounded reservation of Product stock.
//
// Permitted transitions: active->used->cancelled, active->expired,
// active->cancelled. No reverse edges.
type Hold struct {
	ID        string
	ProductID string
	Qty       int
	Status    HoldStatus
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Usable reports whether the hold can still be converted into an
// order at instant now.
func (h Hold) Usable(now time.Time) bool {
	return h.Status == HoldStatusActive && h.ExpiresAt.After(now)
}
