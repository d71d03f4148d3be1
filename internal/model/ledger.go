package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	TransactionTypeEarn            = "earn"
	TransactionTypeWithdraw        = "withdraw"
	TransactionTypeReferralBonus   = "referral_bonus"
	TransactionTypeReferralApplied = "referral_applied"
)

const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
)

// Transaction is one immutable ledger line. Only the status field of a
// withdrawal-linked transaction changes after insert, when the withdrawal
// is verified.
type Transaction struct {
	ID           uuid.UUID
	UserUID      string
	Type         string
	Amount       int64
	Description  string
	Status       *string
	OfferID      *uuid.UUID
	WithdrawalID *uuid.UUID
	CreatedAt    time.Time
}

const (
	WithdrawalStatusPending  = "pending"
	WithdrawalStatusVerified = "verified"
)

type Withdrawal struct {
	ID            uuid.UUID
	UserUID       string
	Amount        float64
	Coins         int64
	PaymentMethod PaymentMethod
	Status        string
	VerifiedBy    *string
	VerifiedAt    *time.Time
	CreatedAt     time.Time
}

type Notification struct {
	ID        uuid.UUID
	UserUID   string
	Type      string
	Title     string
	Message   string
	Read      bool
	CreatedAt time.Time
}
