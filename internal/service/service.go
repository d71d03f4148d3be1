package service

import (
	"context"
	"errors"

	"rewards_backend/internal/model"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrOfferNotFound      = errors.New("offer not found")
	ErrClickNotFound      = errors.New("click not found")
	ErrWithdrawalNotFound = errors.New("pending withdrawal not found")

	ErrOfferInactive   = errors.New("offer is not active")
	ErrOfferMismatch   = errors.New("offer id mismatch")
	ErrAlreadyRewarded = errors.New("click already rewarded")

	ErrInvalidAmount     = errors.New("valid amount is required")
	ErrNoPaymentMethod   = errors.New("no payment method configured")
	ErrInsufficientCoins = errors.New("insufficient coins for this withdrawal")

	ErrSelfReferral         = errors.New("cannot use your own referral code")
	ErrReferralAlreadyUsed  = errors.New("referral code already used")
	ErrReferralCodeNotFound = errors.New("invalid referral code")

	ErrAlreadyCheckedIn      = errors.New("already checked in today")
	ErrOfferAlreadyCompleted = errors.New("offer already completed")
	ErrOfferAlreadyPending   = errors.New("offer is already pending")
	ErrOfferAlreadyRejected  = errors.New("offer is already rejected")

	ErrNoFieldsToUpdate     = errors.New("no valid fields to update")
	ErrInvalidOfferType     = errors.New("invalid offer type")
	ErrNotificationNotFound = errors.New("notification not found")
)

type Service struct {
	*UserService
	*OfferService
	*ClickService
	*WithdrawalService
}

func NewService(users *UserService, offers *OfferService, clicks *ClickService, withdrawals *WithdrawalService) *Service {
	return &Service{
		UserService:       users,
		OfferService:      offers,
		ClickService:      clicks,
		WithdrawalService: withdrawals,
	}
}

// EventPublisher pushes an event to a user's realtime channel. Delivery is
// best effort; callers never depend on it for correctness.
type EventPublisher interface {
	Publish(userUID, event string, payload interface{})
}

// ImageUploader stores a base64 payload externally and returns a durable URL.
type ImageUploader interface {
	Upload(ctx context.Context, base64Data, keyPrefix string) (string, error)
}

type UserServiceI interface {
	Sync(ctx context.Context, in *SyncInput) (*model.User, bool, error)
	GetByUID(ctx context.Context, uid string) (*model.User, error)
	UpdateProfile(ctx context.Context, uid string, fields map[string]interface{}) (*model.User, error)
	SetPaymentMethod(ctx context.Context, uid string, pm *model.PaymentMethod) error
	UploadProfileImage(ctx context.Context, uid, imageData string) (string, error)
	CheckIn(ctx context.Context, uid string) (*CheckInResult, error)
	ResetCheckIns(ctx context.Context) (int64, error)
	ApplyReferral(ctx context.Context, uid, code string) (int64, error)
	GetReferralHistory(ctx context.Context, uid string) (*model.ReferralHistory, error)
	ListTransactions(ctx context.Context, uid string) ([]*model.Transaction, error)
	ListNotifications(ctx context.Context, uid string) ([]*model.Notification, error)
	AddNotification(ctx context.Context, uid, nType, title, message string) (*model.Notification, error)
	MarkNotificationRead(ctx context.Context, uid string, id uuid.UUID) error
	MarkAllNotificationsRead(ctx context.Context, uid string) error
	ClearNotifications(ctx context.Context, uid string) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByUID(ctx context.Context, uid string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByReferralCode(ctx context.Context, code string) (*model.User, error)
	UpdateUserFields(ctx context.Context, uid string, fields map[string]interface{}) error
	RebindUID(ctx context.Context, email, newUID string) error
	SetPaymentMethod(ctx context.Context, uid string, pm *model.PaymentMethod) error
	CheckIn(ctx context.Context, uid string, reward int64) (int64, *model.Notification, error)
	ResetCheckIns(ctx context.Context) (int64, error)
	ApplyReferral(ctx context.Context, applier, referrer *model.User, bonus int64) (*model.Notification, error)
	GetReferralHistory(ctx context.Context, uid string) (*model.ReferralHistory, error)
	ListTransactions(ctx context.Context, uid string) ([]*model.Transaction, error)
	ListNotifications(ctx context.Context, uid string) ([]*model.Notification, error)
	AddNotification(ctx context.Context, n *model.Notification) error
	MarkNotificationRead(ctx context.Context, uid string, id uuid.UUID) error
	MarkAllNotificationsRead(ctx context.Context, uid string) error
	ClearNotifications(ctx context.Context, uid string) error
}

type ClickServiceI interface {
	Create(ctx context.Context, userUID string, offerID uuid.UUID, payoutDestination string, meta model.ClickMeta) (*ClickTracking, error)
	ProcessPostback(ctx context.Context, trackingID, status string, offerID *uuid.UUID) (*PostbackResult, error)
	GetByTrackingID(ctx context.Context, trackingID string) (*model.Click, error)
	ListForUser(ctx context.Context, userUID, statusFilter string) ([]*model.Click, error)
}

type ClickRepository interface {
	GetUserByUID(ctx context.Context, uid string) (*model.User, error)
	GetOfferByID(ctx context.Context, id uuid.UUID) (*model.Offer, error)
	CreateClick(ctx context.Context, click *model.Click) error
	FindActiveClick(ctx context.Context, userUID string, offerID uuid.UUID) (*model.Click, error)
	GetClickByTrackingID(ctx context.Context, trackingID string) (*model.Click, error)
	ListClicksForUser(ctx context.Context, userUID, statusFilter string) ([]*model.Click, error)
	UpdateClickStatus(ctx context.Context, trackingID, status string) error
	SettleClick(ctx context.Context, click *model.Click, newStatus, description string) (int64, *model.Notification, error)
}

type OfferServiceI interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Offer, error)
	ListActive(ctx context.Context) ([]*model.Offer, error)
	ListByType(ctx context.Context, offerType string) ([]*model.Offer, error)
	Create(ctx context.Context, offer *model.Offer, imageData string) (*model.Offer, error)
	Update(ctx context.Context, offer *model.Offer, imageData string) (*model.Offer, error)
	Complete(ctx context.Context, offerID uuid.UUID, uid string) (*CompleteResult, error)
	MarkPending(ctx context.Context, offerID uuid.UUID, uid string) (*model.Notification, error)
	MarkRejected(ctx context.Context, offerID uuid.UUID, uid, reason string) (*model.Notification, error)
	ListForUserByStatus(ctx context.Context, uid, status string) ([]*model.Offer, error)
}

type OfferRepository interface {
	CreateOffer(ctx context.Context, offer *model.Offer) error
	UpdateOffer(ctx context.Context, offer *model.Offer) error
	GetOfferByID(ctx context.Context, id uuid.UUID) (*model.Offer, error)
	ListActiveOffers(ctx context.Context) ([]*model.Offer, error)
	ListOffersByType(ctx context.Context, offerType string) ([]*model.Offer, error)
	ListUserOffersByStatus(ctx context.Context, uid, status string) ([]*model.Offer, error)
	GetUserByUID(ctx context.Context, uid string) (*model.User, error)
	CompleteOffer(ctx context.Context, user *model.User, offer *model.Offer) (int64, *model.Notification, error)
	MarkOfferPending(ctx context.Context, uid string, offer *model.Offer) (*model.Notification, error)
	MarkOfferRejected(ctx context.Context, uid string, offer *model.Offer, reason string) (*model.Notification, error)
}

type WithdrawalServiceI interface {
	Request(ctx context.Context, uid string, amount float64) (*WithdrawalResult, error)
	Verify(ctx context.Context, uid string, withdrawalID uuid.UUID, adminUID string) (*model.Withdrawal, error)
	History(ctx context.Context, uid string) (*WithdrawalHistory, error)
}

type WithdrawalRepository interface {
	GetUserByUID(ctx context.Context, uid string) (*model.User, error)
	RequestWithdrawal(ctx context.Context, user *model.User, amount float64, coinsRequired int64) (*model.Withdrawal, int64, *model.Notification, error)
	VerifyWithdrawal(ctx context.Context, uid string, withdrawalID uuid.UUID, adminUID string) (*model.Withdrawal, *model.Notification, error)
	ListWithdrawals(ctx context.Context, uid string) ([]*model.Withdrawal, error)
}
