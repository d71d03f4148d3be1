package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"rewards_backend/internal/model"
	"rewards_backend/internal/repository"

	"github.com/google/uuid"
)

// DefaultExchangeRate is the currency value of one coin.
const DefaultExchangeRate = 0.1

type WithdrawalService struct {
	repo         WithdrawalRepository
	events       EventPublisher
	exchangeRate float64
}

func NewWithdrawalService(repo WithdrawalRepository, events EventPublisher, exchangeRate float64) *WithdrawalService {
	if exchangeRate <= 0 {
		exchangeRate = DefaultExchangeRate
	}
	return &WithdrawalService{
		repo:         repo,
		events:       events,
		exchangeRate: exchangeRate,
	}
}

type WithdrawalResult struct {
	Withdrawal   *model.Withdrawal
	Balance      int64
	Coins        int64
	Notification *model.Notification
}

type WithdrawalHistory struct {
	All      []*model.Withdrawal
	Pending  []*model.Withdrawal
	Verified []*model.Withdrawal
}

// CoinsRequired converts a currency amount to its coin cost, rounded up.
// Costs beyond the int64 range saturate at math.MaxInt64 instead of going
// through the out-of-range float conversion, which would wrap negative and
// turn the debit into a credit.
func (s *WithdrawalService) CoinsRequired(amount float64) int64 {
	cost := math.Ceil(amount / s.exchangeRate)
	if cost >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(cost)
}

// Request records a withdrawal, deducting its coin cost atomically with the
// record itself. The cost is computed once here; later rate changes never
// touch recorded withdrawals.
func (s *WithdrawalService) Request(ctx context.Context, uid string, amount float64) (*WithdrawalResult, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, ErrInvalidAmount
	}

	user, err := s.repo.GetUserByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	coinsRequired := s.CoinsRequired(amount)
	if coinsRequired <= 0 {
		return nil, ErrInvalidAmount
	}

	if user.Coins < coinsRequired {
		return nil, ErrInsufficientCoins
	}
	if user.PaymentMethod == nil {
		return nil, ErrNoPaymentMethod
	}

	withdrawal, balance, notification, err := s.repo.RequestWithdrawal(ctx, user, amount, coinsRequired)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientCoins):
			return nil, ErrInsufficientCoins
		case errors.Is(err, repository.ErrNoPaymentMethod):
			return nil, ErrNoPaymentMethod
		}
		return nil, fmt.Errorf("failed to request withdrawal: %w", err)
	}

	s.events.Publish(uid, "notification", notification)

	return &WithdrawalResult{
		Withdrawal:   withdrawal,
		Balance:      balance,
		Coins:        coinsRequired,
		Notification: notification,
	}, nil
}

// Verify is the admin's one-way pending→verified transition. Verifying an
// id that is no longer pending reports not-found, which also makes repeated
// verification calls safe.
func (s *WithdrawalService) Verify(ctx context.Context, uid string, withdrawalID uuid.UUID, adminUID string) (*model.Withdrawal, error) {
	if _, err := s.repo.GetUserByUID(ctx, uid); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	withdrawal, notification, err := s.repo.VerifyWithdrawal(ctx, uid, withdrawalID, adminUID)
	if err != nil {
		if errors.Is(err, repository.ErrWithdrawalNotFound) {
			return nil, ErrWithdrawalNotFound
		}
		return nil, fmt.Errorf("failed to verify withdrawal: %w", err)
	}

	s.events.Publish(uid, "notification", notification)

	return withdrawal, nil
}

func (s *WithdrawalService) History(ctx context.Context, uid string) (*WithdrawalHistory, error) {
	withdrawals, err := s.repo.ListWithdrawals(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}

	history := &WithdrawalHistory{All: withdrawals}
	for _, w := range withdrawals {
		switch w.Status {
		case model.WithdrawalStatusPending:
			history.Pending = append(history.Pending, w)
		case model.WithdrawalStatusVerified:
			history.Verified = append(history.Verified, w)
		}
	}
	return history, nil
}
