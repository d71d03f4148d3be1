package model

import "time"

type User struct {
	UID              string
	Email            string
	Name             string
	AdvertisingID    *string
	Phone            *string
	DateOfBirth      *time.Time
	Gender           *string
	ProfileImageURL  *string
	ReferralCode     string
	UsedReferralCode *string
	ReferredBy       *string
	ReferralCount    int
	Coins            int64
	PaymentMethod    *PaymentMethod
	LastCheckIn      *time.Time
	CreatedAt        time.Time
}

// PaymentMethod holds either UPI or bank details, never both.
type PaymentMethod struct {
	Type          string `json:"type"`
	UPIID         string `json:"upi_id,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	IFSCCode      string `json:"ifsc_code,omitempty"`
	AccountHolder string `json:"account_holder,omitempty"`
}

type ReferralEntry struct {
	ReferredUID   string
	ReferredEmail string
	ReferredName  string
	CoinsEarned   int64
	CreatedAt     time.Time
}

type ReferralHistory struct {
	ReferralCode     string
	ReferralCount    int
	ReferredBy       *User
	Entries          []ReferralEntry
	TotalCoinsEarned int64
}
