package service

import (
	"context"
	"math"
	"testing"

	"rewards_backend/internal/model"
	"rewards_backend/internal/repository"
	"rewards_backend/internal/service/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestWithdrawalService_CoinsRequired(t *testing.T) {
	service := NewWithdrawalService(&mocks.MockWithdrawalRepository{}, &mocks.MockEventPublisher{}, 0.1)

	tests := []struct {
		amount   float64
		expected int64
	}{
		{amount: 50, expected: 500},
		{amount: 0.1, expected: 1},
		{amount: 0.05, expected: 1},
		{amount: 10.01, expected: 101},
		{amount: 100, expected: 1000},
		{amount: 1e30, expected: math.MaxInt64},
		{amount: math.MaxFloat64, expected: math.MaxInt64},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, service.CoinsRequired(tt.amount), "amount %v", tt.amount)
	}
}

func TestWithdrawalService_Request(t *testing.T) {
	paymentMethod := &model.PaymentMethod{Type: "upi", UPIID: "alice@upi"}

	tests := []struct {
		name          string
		uid           string
		amount        float64
		mockSetup     func(*mocks.MockWithdrawalRepository, *mocks.MockEventPublisher)
		expectedError error
		check         func(*testing.T, *WithdrawalResult)
	}{
		{
			name:          "Zero amount",
			uid:           "user-1",
			amount:        0,
			mockSetup:     func(repo *mocks.MockWithdrawalRepository, events *mocks.MockEventPublisher) {},
			expectedError: ErrInvalidAmount,
		},
		{
			name:          "Negative amount",
			uid:           "user-1",
			amount:        -20,
			mockSetup:     func(repo *mocks.MockWithdrawalRepository, events *mocks.MockEventPublisher) {},
			expectedError: ErrInvalidAmount,
		},
		{
			name:          "NaN amount",
			uid:           "user-1",
			amount:        math.NaN(),
			mockSetup:     func(repo *mocks.MockWithdrawalRepository, events *mocks.MockEventPublisher) {},
			expectedError: ErrInvalidAmount,
		},
		{
			name:   "User not found",
			uid:    "missing",
			amount: 10,
			mockSetup: func(repo *mocks.MockWithdrawalRepository, events *mocks.MockEventPublisher) {
				repo.On("GetUserByUID", mock.Anything, "missing").
					Return(nil, repository.ErrUserNotFound)
			},
			expectedError: ErrUserNotFound,
		},
		{
			name:   "Insufficient coins",
			uid:    "user-2",
			amount: 50,
			mockSetup: func(repo *mocks.MockWithdrawalRepository, events *mocks.MockEventPublisher) {
				repo.On("GetUserByUID", mock.Anything, "user-2").
					Return(&model.User{UID: "user-2", Coins: 499, PaymentMethod: paymentMethod}, nil)
			},
			expectedError: ErrInsufficientCoins,
		},
		{
			name:   "No payment method",
			uid:    "user-3",
			amount: 50,
			mockSetup: func(repo *mocks.MockWithdrawalRepository, events *mocks.MockEventPublisher) {
				repo.On("GetUserByUID", mock.Anything, "user-3").
					Return(&model.User{UID: "user-3", Coins: 1000}, nil)
			},
			expectedError: ErrNoPaymentMethod,
		},
		{
			name:   "Successful request deducts ceil cost",
			uid:    "user-4",
			amount: 50,
			mockSetup: func(repo *mocks.MockWithdrawalRepository, events *mocks.MockEventPublisher) {
				user := &model.User{UID: "user-4", Coins: 800, PaymentMethod: paymentMethod}
				withdrawal := &model.Withdrawal{
					ID:      uuid.New(),
					UserUID: "user-4",
					Amount:  50,
					Coins:   500,
					Status:  model.WithdrawalStatusPending,
				}
				notification := &model.Notification{Title: "Withdrawal requested"}
				repo.On("GetUserByUID", mock.Anything, "user-4").
					Return(user, nil)
				repo.On("RequestWithdrawal", mock.Anything, user, float64(50), int64(500)).
					Return(withdrawal, int64(300), notification, nil)
				events.On("Publish", "user-4", "notification", notification).Return()
			},
			check: func(t *testing.T, res *WithdrawalResult) {
				assert.Equal(t, int64(500), res.Coins)
				assert.Equal(t, int64(300), res.Balance)
				assert.Equal(t, model.WithdrawalStatusPending, res.Withdrawal.Status)
			},
		},
		{
			name:   "Concurrent spend loses at the database",
			uid:    "user-5",
			amount: 10,
			mockSetup: func(repo *mocks.MockWithdrawalRepository, events *mocks.MockEventPublisher) {
				user := &model.User{UID: "user-5", Coins: 100, PaymentMethod: paymentMethod}
				repo.On("GetUserByUID", mock.Anything, "user-5").
					Return(user, nil)
				repo.On("RequestWithdrawal", mock.Anything, user, float64(10), int64(100)).
					Return(nil, int64(0), nil, repository.ErrInsufficientCoins)
			},
			expectedError: ErrInsufficientCoins,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &mocks.MockWithdrawalRepository{}
			mockEvents := &mocks.MockEventPublisher{}
			service := NewWithdrawalService(mockRepo, mockEvents, 0.1)

			tt.mockSetup(mockRepo, mockEvents)

			res, err := service.Request(context.Background(), tt.uid, tt.amount)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}

			assert.NoError(t, err)
			assert.NotNil(t, res)

			if tt.check != nil {
				tt.check(t, res)
			}

			mockRepo.AssertExpectations(t)
			mockEvents.AssertExpectations(t)
		})
	}
}

func TestWithdrawalService_Request_OversizedAmount(t *testing.T) {
	mockRepo := &mocks.MockWithdrawalRepository{}
	mockEvents := &mocks.MockEventPublisher{}
	service := NewWithdrawalService(mockRepo, mockEvents, 0.1)

	mockRepo.On("GetUserByUID", mock.Anything, "user-1").
		Return(&model.User{
			UID:           "user-1",
			Coins:         1000,
			PaymentMethod: &model.PaymentMethod{Type: "upi", UPIID: "alice@upi"},
		}, nil)

	// A coin cost past the int64 range must fail the balance check, never
	// wrap negative and reach the repository as a credit.
	_, err := service.Request(context.Background(), "user-1", 1e30)

	assert.ErrorIs(t, err, ErrInsufficientCoins)
	mockRepo.AssertNotCalled(t, "RequestWithdrawal", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWithdrawalService_Verify(t *testing.T) {
	withdrawalID := uuid.New()

	t.Run("Not pending reports not found", func(t *testing.T) {
		mockRepo := &mocks.MockWithdrawalRepository{}
		mockEvents := &mocks.MockEventPublisher{}
		service := NewWithdrawalService(mockRepo, mockEvents, 0.1)

		mockRepo.On("GetUserByUID", mock.Anything, "user-1").
			Return(&model.User{UID: "user-1"}, nil)
		mockRepo.On("VerifyWithdrawal", mock.Anything, "user-1", withdrawalID, "admin-1").
			Return(nil, nil, repository.ErrWithdrawalNotFound)

		_, err := service.Verify(context.Background(), "user-1", withdrawalID, "admin-1")
		assert.ErrorIs(t, err, ErrWithdrawalNotFound)
	})

	t.Run("Successful verification publishes", func(t *testing.T) {
		mockRepo := &mocks.MockWithdrawalRepository{}
		mockEvents := &mocks.MockEventPublisher{}
		service := NewWithdrawalService(mockRepo, mockEvents, 0.1)

		verified := &model.Withdrawal{
			ID:      withdrawalID,
			UserUID: "user-1",
			Status:  model.WithdrawalStatusVerified,
		}
		notification := &model.Notification{Title: "Withdrawal verified"}

		mockRepo.On("GetUserByUID", mock.Anything, "user-1").
			Return(&model.User{UID: "user-1"}, nil)
		mockRepo.On("VerifyWithdrawal", mock.Anything, "user-1", withdrawalID, "admin-1").
			Return(verified, notification, nil)
		mockEvents.On("Publish", "user-1", "notification", notification).Return()

		w, err := service.Verify(context.Background(), "user-1", withdrawalID, "admin-1")
		assert.NoError(t, err)
		assert.Equal(t, model.WithdrawalStatusVerified, w.Status)

		mockRepo.AssertExpectations(t)
		mockEvents.AssertExpectations(t)
	})
}

func TestWithdrawalService_History(t *testing.T) {
	mockRepo := &mocks.MockWithdrawalRepository{}
	service := NewWithdrawalService(mockRepo, &mocks.MockEventPublisher{}, 0.1)

	withdrawals := []*model.Withdrawal{
		{ID: uuid.New(), Status: model.WithdrawalStatusPending},
		{ID: uuid.New(), Status: model.WithdrawalStatusVerified},
		{ID: uuid.New(), Status: model.WithdrawalStatusPending},
	}

	mockRepo.On("ListWithdrawals", mock.Anything, "user-1").
		Return(withdrawals, nil)

	history, err := service.History(context.Background(), "user-1")
	assert.NoError(t, err)
	assert.Len(t, history.All, 3)
	assert.Len(t, history.Pending, 2)
	assert.Len(t, history.Verified, 1)

	mockRepo.AssertExpectations(t)
}
