package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ClickStatusPending   = "pending"
	ClickStatusClicked   = "clicked"
	ClickStatusInstalled = "installed"
	ClickStatusCompleted = "completed"
	ClickStatusRejected  = "rejected"
)

// CompletionStatus reports whether a postback status confirms the offer
// action and therefore triggers settlement.
func CompletionStatus(status string) bool {
	return status == ClickStatusInstalled || status == ClickStatusCompleted
}

type Click struct {
	TrackingID        string
	UserUID           string
	OfferID           uuid.UUID
	PayoutDestination string
	RewardCoins       int64
	Status            string
	IsRewarded        bool
	RewardedAt        *time.Time
	IPAddress         *string
	UserAgent         *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ClickMeta carries request audit fields recorded on the click.
type ClickMeta struct {
	IPAddress string
	UserAgent string
}
