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

type Notification struct {
	ID        uuid.UUID `db:"id"`
	UserUID   string    `db:"user_uid"`
	Type      string    `db:"type"`
	Title     string    `db:"title"`
	Message   string    `db:"message"`
	Read      bool      `db:"read"`
	CreatedAt time.Time `db:"created_at"`
}

func (n *Notification) toModel() *model.Notification {
	return &model.Notification{
		ID:        n.ID,
		UserUID:   n.UserUID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}

func (r *Repository) ListNotifications(ctx context.Context, uid string) ([]*model.Notification, error) {
	if _, err := r.GetUserByUID(ctx, uid); err != nil {
		return nil, err
	}

	query, args, err := squirrel.
		Select("*").
		From("notifications").
		Where(squirrel.Eq{"user_uid": uid}).
		OrderBy("created_at DESC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []Notification
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	out := make([]*model.Notification, len(rows))
	for i := range rows {
		out[i] = rows[i].toModel()
	}
	return out, nil
}

func (r *Repository) AddNotification(ctx context.Context, n *model.Notification) error {
	if _, err := r.GetUserByUID(ctx, n.UserUID); err != nil {
		return err
	}
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		return insertNotificationTx(ctx, tx, n)
	})
}

func (r *Repository) MarkNotificationRead(ctx context.Context, uid string, id uuid.UUID) error {
	query, args, err := squirrel.
		Update("notifications").
		Set("read", true).
		Where(squirrel.Eq{"user_uid": uid, "id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) MarkAllNotificationsRead(ctx context.Context, uid string) error {
	if _, err := r.GetUserByUID(ctx, uid); err != nil {
		return err
	}

	query, args, err := squirrel.
		Update("notifications").
		Set("read", true).
		Where(squirrel.Eq{"user_uid": uid, "read": false}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

func (r *Repository) ClearNotifications(ctx context.Context, uid string) error {
	if _, err := r.GetUserByUID(ctx, uid); err != nil {
		return err
	}

	query, args, err := squirrel.
		Delete("notifications").
		Where(squirrel.Eq{"user_uid": uid}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to clear notifications: %w", err)
	}
	return nil
}
