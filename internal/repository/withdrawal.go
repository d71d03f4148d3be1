package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rewards_backend/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Withdrawal struct {
	ID            uuid.UUID  `db:"id"`
	UserUID       string     `db:"user_uid"`
	Amount        float64    `db:"amount"`
	Coins         int64      `db:"coins"`
	PaymentMethod []byte     `db:"payment_method"`
	Status        string     `db:"status"`
	VerifiedBy    *string    `db:"verified_by"`
	VerifiedAt    *time.Time `db:"verified_at"`
	CreatedAt     time.Time  `db:"created_at"`
}

func (w *Withdrawal) toModel() (*model.Withdrawal, error) {
	out := &model.Withdrawal{
		ID:         w.ID,
		UserUID:    w.UserUID,
		Amount:     w.Amount,
		Coins:      w.Coins,
		Status:     w.Status,
		VerifiedBy: w.VerifiedBy,
		VerifiedAt: w.VerifiedAt,
		CreatedAt:  w.CreatedAt,
	}
	if len(w.PaymentMethod) > 0 {
		if err := json.Unmarshal(w.PaymentMethod, &out.PaymentMethod); err != nil {
			return nil, fmt.Errorf("failed to decode payment method: %w", err)
		}
	}
	return out, nil
}

// RequestWithdrawal records a withdrawal and deducts its coin cost as one
// unit. The decrement is conditional on sufficient balance, so a racing
// request can never drive the balance negative, and no withdrawal row is
// ever written without its deduction.
func (r *Repository) RequestWithdrawal(ctx context.Context, user *model.User, amount float64, coinsRequired int64) (*model.Withdrawal, int64, *model.Notification, error) {
	if user.PaymentMethod == nil {
		return nil, 0, nil, ErrNoPaymentMethod
	}

	pmRaw, err := json.Marshal(user.PaymentMethod)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("failed to encode payment method: %w", err)
	}

	withdrawal := &model.Withdrawal{
		ID:            uuid.New(),
		UserUID:       user.UID,
		Amount:        amount,
		Coins:         coinsRequired,
		PaymentMethod: *user.PaymentMethod,
		Status:        model.WithdrawalStatusPending,
		CreatedAt:     time.Now().UTC(),
	}

	var balance int64
	var notification *model.Notification

	err = r.Transaction(ctx, func(tx *sqlx.Tx) error {
		debitQuery, debitArgs, err := squirrel.
			Update("users").
			Set("coins", squirrel.Expr("coins - ?", coinsRequired)).
			Where(squirrel.Eq{"uid": user.UID}).
			Where(squirrel.Expr("coins >= ?", coinsRequired)).
			Suffix("RETURNING coins").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}
		if err := tx.GetContext(ctx, &balance, debitQuery, debitArgs...); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrInsufficientCoins
			}
			return fmt.Errorf("failed to deduct coins: %w", err)
		}

		insertQuery, insertArgs, err := squirrel.
			Insert("withdrawals").
			SetMap(map[string]interface{}{
				"id":             withdrawal.ID,
				"user_uid":       withdrawal.UserUID,
				"amount":         withdrawal.Amount,
				"coins":          withdrawal.Coins,
				"payment_method": pmRaw,
				"status":         withdrawal.Status,
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, insertQuery, insertArgs...); err != nil {
			return fmt.Errorf("failed to insert withdrawal: %w", err)
		}

		withdrawalID := withdrawal.ID
		status := model.TransactionStatusPending
		err = insertTransactionTx(ctx, tx, &model.Transaction{
			ID:           uuid.New(),
			UserUID:      user.UID,
			Type:         model.TransactionTypeWithdraw,
			Amount:       -coinsRequired,
			Description:  fmt.Sprintf("Withdrawal request for ₹%.2f", amount),
			Status:       &status,
			WithdrawalID: &withdrawalID,
		})
		if err != nil {
			return err
		}

		notification = &model.Notification{
			ID:      uuid.New(),
			UserUID: user.UID,
			Type:    "withdrawal",
			Title:   "Withdrawal Requested",
			Message: fmt.Sprintf("Your withdrawal request for ₹%.2f has been received and is pending approval.", amount),
		}
		return insertNotificationTx(ctx, tx, notification)
	})
	if err != nil {
		return nil, 0, nil, err
	}
	return withdrawal, balance, notification, nil
}

// VerifyWithdrawal moves a pending withdrawal to verified and completes the
// linked ledger line. Re-invocation on an already verified id reports
// ErrWithdrawalNotFound.
func (r *Repository) VerifyWithdrawal(ctx context.Context, uid string, withdrawalID uuid.UUID, adminUID string) (*model.Withdrawal, *model.Notification, error) {
	var verified *model.Withdrawal
	var notification *model.Notification

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := squirrel.
			Update("withdrawals").
			Set("status", model.WithdrawalStatusVerified).
			Set("verified_at", squirrel.Expr("now()")).
			Set("verified_by", adminUID).
			Where(squirrel.Eq{
				"id":       withdrawalID,
				"user_uid": uid,
				"status":   model.WithdrawalStatusPending,
			}).
			Suffix("RETURNING *").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		var row Withdrawal
		err = tx.GetContext(ctx, &row, query, args...)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrWithdrawalNotFound
			}
			return fmt.Errorf("failed to verify withdrawal: %w", err)
		}
		verified, err = row.toModel()
		if err != nil {
			return err
		}

		txQuery, txArgs, err := squirrel.
			Update("transactions").
			Set("status", model.TransactionStatusCompleted).
			Where(squirrel.Eq{"withdrawal_id": withdrawalID}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, txQuery, txArgs...); err != nil {
			return fmt.Errorf("failed to complete withdrawal transaction: %w", err)
		}

		notification = &model.Notification{
			ID:      uuid.New(),
			UserUID: uid,
			Type:    "withdrawal_verified",
			Title:   "Withdrawal Verified",
			Message: fmt.Sprintf("Your withdrawal request for ₹%.2f has been verified and processed.", verified.Amount),
		}
		return insertNotificationTx(ctx, tx, notification)
	})
	if err != nil {
		return nil, nil, err
	}
	return verified, notification, nil
}

// ListWithdrawals returns a user's withdrawals, newest first.
func (r *Repository) ListWithdrawals(ctx context.Context, uid string) ([]*model.Withdrawal, error) {
	if _, err := r.GetUserByUID(ctx, uid); err != nil {
		return nil, err
	}

	query, args, err := squirrel.
		Select("*").
		From("withdrawals").
		Where(squirrel.Eq{"user_uid": uid}).
		OrderBy("created_at DESC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []Withdrawal
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}

	out := make([]*model.Withdrawal, len(rows))
	for i := range rows {
		w, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		out[i] = w
	}
	return out, nil
}
