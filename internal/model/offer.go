package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	OfferTypeDaily   = "daily"
	OfferTypeVideo   = "video"
	OfferTypeInstall = "install"
	OfferTypeShare   = "share"
	OfferTypePrime   = "prime"
)

const (
	OfferStatusCompleted = "completed"
	OfferStatusPending   = "pending"
	OfferStatusRejected  = "rejected"
)

// TrackingURLPlaceholder is substituted with the click's tracking id when a
// click is created against the offer.
const TrackingURLPlaceholder = "{click_id}"

type Offer struct {
	ID            uuid.UUID
	Title         string
	Description   string
	Coins         int64
	Type          string
	Requirements  string
	ImageURL      string
	Developer     string
	Rating        float64
	Downloads     string
	Category      string
	AppLink       string
	TrackingURL   string
	Deadline      string
	OfferCategory string
	IsActive      bool
	ExpiryDate    *time.Time
	CreatedAt     time.Time
}

func ValidOfferType(t string) bool {
	switch t {
	case OfferTypeDaily, OfferTypeVideo, OfferTypeInstall, OfferTypeShare, OfferTypePrime:
		return true
	}
	return false
}
