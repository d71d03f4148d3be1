package mocks

import (
	"context"

	"rewards_backend/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateUser(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetUserByUID(ctx context.Context, uid string) (*model.User, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) GetUserByReferralCode(ctx context.Context, code string) (*model.User, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) UpdateUserFields(ctx context.Context, uid string, fields map[string]interface{}) error {
	args := m.Called(ctx, uid, fields)
	return args.Error(0)
}

func (m *MockUserRepository) RebindUID(ctx context.Context, email, newUID string) error {
	args := m.Called(ctx, email, newUID)
	return args.Error(0)
}

func (m *MockUserRepository) SetPaymentMethod(ctx context.Context, uid string, pm *model.PaymentMethod) error {
	args := m.Called(ctx, uid, pm)
	return args.Error(0)
}

func (m *MockUserRepository) CheckIn(ctx context.Context, uid string, reward int64) (int64, *model.Notification, error) {
	args := m.Called(ctx, uid, reward)
	var n *model.Notification
	if args.Get(1) != nil {
		n = args.Get(1).(*model.Notification)
	}
	return args.Get(0).(int64), n, args.Error(2)
}

func (m *MockUserRepository) ResetCheckIns(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) ApplyReferral(ctx context.Context, applier, referrer *model.User, bonus int64) (*model.Notification, error) {
	args := m.Called(ctx, applier, referrer, bonus)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Notification), args.Error(1)
}

func (m *MockUserRepository) GetReferralHistory(ctx context.Context, uid string) (*model.ReferralHistory, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReferralHistory), args.Error(1)
}

func (m *MockUserRepository) ListTransactions(ctx context.Context, uid string) ([]*model.Transaction, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Transaction), args.Error(1)
}

func (m *MockUserRepository) ListNotifications(ctx context.Context, uid string) ([]*model.Notification, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Notification), args.Error(1)
}

func (m *MockUserRepository) AddNotification(ctx context.Context, n *model.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockUserRepository) MarkNotificationRead(ctx context.Context, uid string, id uuid.UUID) error {
	args := m.Called(ctx, uid, id)
	return args.Error(0)
}

func (m *MockUserRepository) MarkAllNotificationsRead(ctx context.Context, uid string) error {
	args := m.Called(ctx, uid)
	return args.Error(0)
}

func (m *MockUserRepository) ClearNotifications(ctx context.Context, uid string) error {
	args := m.Called(ctx, uid)
	return args.Error(0)
}

type MockClickRepository struct {
	mock.Mock
}

func (m *MockClickRepository) GetUserByUID(ctx context.Context, uid string) (*model.User, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockClickRepository) GetOfferByID(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Offer), args.Error(1)
}

func (m *MockClickRepository) CreateClick(ctx context.Context, click *model.Click) error {
	args := m.Called(ctx, click)
	return args.Error(0)
}

func (m *MockClickRepository) FindActiveClick(ctx context.Context, userUID string, offerID uuid.UUID) (*model.Click, error) {
	args := m.Called(ctx, userUID, offerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Click), args.Error(1)
}

func (m *MockClickRepository) GetClickByTrackingID(ctx context.Context, trackingID string) (*model.Click, error) {
	args := m.Called(ctx, trackingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Click), args.Error(1)
}

func (m *MockClickRepository) ListClicksForUser(ctx context.Context, userUID, statusFilter string) ([]*model.Click, error) {
	args := m.Called(ctx, userUID, statusFilter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Click), args.Error(1)
}

func (m *MockClickRepository) UpdateClickStatus(ctx context.Context, trackingID, status string) error {
	args := m.Called(ctx, trackingID, status)
	return args.Error(0)
}

func (m *MockClickRepository) SettleClick(ctx context.Context, click *model.Click, newStatus, description string) (int64, *model.Notification, error) {
	args := m.Called(ctx, click, newStatus, description)
	var n *model.Notification
	if args.Get(1) != nil {
		n = args.Get(1).(*model.Notification)
	}
	return args.Get(0).(int64), n, args.Error(2)
}

type MockOfferRepository struct {
	mock.Mock
}

func (m *MockOfferRepository) CreateOffer(ctx context.Context, offer *model.Offer) error {
	args := m.Called(ctx, offer)
	return args.Error(0)
}

func (m *MockOfferRepository) UpdateOffer(ctx context.Context, offer *model.Offer) error {
	args := m.Called(ctx, offer)
	return args.Error(0)
}

func (m *MockOfferRepository) GetOfferByID(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Offer), args.Error(1)
}

func (m *MockOfferRepository) ListActiveOffers(ctx context.Context) ([]*model.Offer, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Offer), args.Error(1)
}

func (m *MockOfferRepository) ListOffersByType(ctx context.Context, offerType string) ([]*model.Offer, error) {
	args := m.Called(ctx, offerType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Offer), args.Error(1)
}

func (m *MockOfferRepository) ListUserOffersByStatus(ctx context.Context, uid, status string) ([]*model.Offer, error) {
	args := m.Called(ctx, uid, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Offer), args.Error(1)
}

func (m *MockOfferRepository) GetUserByUID(ctx context.Context, uid string) (*model.User, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockOfferRepository) CompleteOffer(ctx context.Context, user *model.User, offer *model.Offer) (int64, *model.Notification, error) {
	args := m.Called(ctx, user, offer)
	var n *model.Notification
	if args.Get(1) != nil {
		n = args.Get(1).(*model.Notification)
	}
	return args.Get(0).(int64), n, args.Error(2)
}

func (m *MockOfferRepository) MarkOfferPending(ctx context.Context, uid string, offer *model.Offer) (*model.Notification, error) {
	args := m.Called(ctx, uid, offer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Notification), args.Error(1)
}

func (m *MockOfferRepository) MarkOfferRejected(ctx context.Context, uid string, offer *model.Offer, reason string) (*model.Notification, error) {
	args := m.Called(ctx, uid, offer, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Notification), args.Error(1)
}

type MockWithdrawalRepository struct {
	mock.Mock
}

func (m *MockWithdrawalRepository) GetUserByUID(ctx context.Context, uid string) (*model.User, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockWithdrawalRepository) RequestWithdrawal(ctx context.Context, user *model.User, amount float64, coinsRequired int64) (*model.Withdrawal, int64, *model.Notification, error) {
	args := m.Called(ctx, user, amount, coinsRequired)
	var w *model.Withdrawal
	if args.Get(0) != nil {
		w = args.Get(0).(*model.Withdrawal)
	}
	var n *model.Notification
	if args.Get(2) != nil {
		n = args.Get(2).(*model.Notification)
	}
	return w, args.Get(1).(int64), n, args.Error(3)
}

func (m *MockWithdrawalRepository) VerifyWithdrawal(ctx context.Context, uid string, withdrawalID uuid.UUID, adminUID string) (*model.Withdrawal, *model.Notification, error) {
	args := m.Called(ctx, uid, withdrawalID, adminUID)
	var w *model.Withdrawal
	if args.Get(0) != nil {
		w = args.Get(0).(*model.Withdrawal)
	}
	var n *model.Notification
	if args.Get(1) != nil {
		n = args.Get(1).(*model.Notification)
	}
	return w, n, args.Error(2)
}

func (m *MockWithdrawalRepository) ListWithdrawals(ctx context.Context, uid string) ([]*model.Withdrawal, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Withdrawal), args.Error(1)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(userUID, event string, payload interface{}) {
	m.Called(userUID, event, payload)
}

type MockImageUploader struct {
	mock.Mock
}

func (m *MockImageUploader) Upload(ctx context.Context, base64Data, keyPrefix string) (string, error) {
	args := m.Called(ctx, base64Data, keyPrefix)
	return args.String(0), args.Error(1)
}
