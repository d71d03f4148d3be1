package repository

import (
	"context"
	"fmt"
	"time"

	"rewards_backend/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Transaction struct {
	ID           uuid.UUID  `db:"id"`
	UserUID      string     `db:"user_uid"`
	Type         string     `db:"type"`
	Amount       int64      `db:"amount"`
	Description  string     `db:"description"`
	Status       *string    `db:"status"`
	OfferID      *uuid.UUID `db:"offer_id"`
	WithdrawalID *uuid.UUID `db:"withdrawal_id"`
	CreatedAt    time.Time  `db:"created_at"`
}

func insertTransactionTx(ctx context.Context, tx *sqlx.Tx, t *model.Transaction) error {
	query, args, err := squirrel.
		Insert("transactions").
		SetMap(map[string]interface{}{
			"id":            t.ID,
			"user_uid":      t.UserUID,
			"type":          t.Type,
			"amount":        t.Amount,
			"description":   t.Description,
			"status":        t.Status,
			"offer_id":      t.OfferID,
			"withdrawal_id": t.WithdrawalID,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build transaction insert query: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func insertNotificationTx(ctx context.Context, tx *sqlx.Tx, n *model.Notification) error {
	query, args, err := squirrel.
		Insert("notifications").
		SetMap(map[string]interface{}{
			"id":       n.ID,
			"user_uid": n.UserUID,
			"type":     n.Type,
			"title":    n.Title,
			"message":  n.Message,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build notification insert query: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// ListTransactions returns a user's ledger, newest first.
func (r *Repository) ListTransactions(ctx context.Context, uid string) ([]*model.Transaction, error) {
	if _, err := r.GetUserByUID(ctx, uid); err != nil {
		return nil, err
	}

	query, args, err := squirrel.
		Select("*").
		From("transactions").
		Where(squirrel.Eq{"user_uid": uid}).
		OrderBy("created_at DESC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []Transaction
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	out := make([]*model.Transaction, len(rows))
	for i, row := range rows {
		out[i] = &model.Transaction{
			ID:           row.ID,
			UserUID:      row.UserUID,
			Type:         row.Type,
			Amount:       row.Amount,
			Description:  row.Description,
			Status:       row.Status,
			OfferID:      row.OfferID,
			WithdrawalID: row.WithdrawalID,
			CreatedAt:    row.CreatedAt,
		}
	}
	return out, nil
}
