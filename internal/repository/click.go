package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rewards_backend/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

// ErrDuplicateActiveClick reports that another request won the race for the
// one-active-click-per-(user, offer) slot.
var ErrDuplicateActiveClick = errors.New("active click already exists for this offer")

const pgUniqueViolation = "23505"

type Click struct {
	TrackingID        string     `db:"tracking_id"`
	UserUID           string     `db:"user_uid"`
	OfferID           uuid.UUID  `db:"offer_id"`
	PayoutDestination string     `db:"payout_destination"`
	RewardCoins       int64      `db:"reward_coins"`
	Status            string     `db:"status"`
	IsRewarded        bool       `db:"is_rewarded"`
	RewardedAt        *time.Time `db:"rewarded_at"`
	IPAddress         *string    `db:"ip_address"`
	UserAgent         *string    `db:"user_agent"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
}

func (c *Click) toModel() *model.Click {
	return &model.Click{
		TrackingID:        c.TrackingID,
		UserUID:           c.UserUID,
		OfferID:           c.OfferID,
		PayoutDestination: c.PayoutDestination,
		RewardCoins:       c.RewardCoins,
		Status:            c.Status,
		IsRewarded:        c.IsRewarded,
		RewardedAt:        c.RewardedAt,
		IPAddress:         c.IPAddress,
		UserAgent:         c.UserAgent,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

func (r *Repository) CreateClick(ctx context.Context, click *model.Click) error {
	query, args, err := squirrel.
		Insert("clicks").
		SetMap(map[string]interface{}{
			"tracking_id":        click.TrackingID,
			"user_uid":           click.UserUID,
			"offer_id":           click.OfferID,
			"payout_destination": click.PayoutDestination,
			"reward_coins":       click.RewardCoins,
			"status":             click.Status,
			"ip_address":         click.IPAddress,
			"user_agent":         click.UserAgent,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build click insert query: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicateActiveClick
		}
		return fmt.Errorf("failed to insert click: %w", err)
	}
	return nil
}

// FindActiveClick returns the user's live (pending or clicked) click for an
// offer, if one exists.
func (r *Repository) FindActiveClick(ctx context.Context, userUID string, offerID uuid.UUID) (*model.Click, error) {
	query, args, err := squirrel.
		Select("*").
		From("clicks").
		Where(squirrel.Eq{
			"user_uid": userUID,
			"offer_id": offerID,
			"status":   []string{model.ClickStatusPending, model.ClickStatusClicked},
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var click Click
	err = r.db.GetContext(ctx, &click, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClickNotFound
		}
		return nil, err
	}
	return click.toModel(), nil
}

func (r *Repository) GetClickByTrackingID(ctx context.Context, trackingID string) (*model.Click, error) {
	query, args, err := squirrel.
		Select("*").
		From("clicks").
		Where(squirrel.Eq{"tracking_id": trackingID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var click Click
	err = r.db.GetContext(ctx, &click, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClickNotFound
		}
		return nil, err
	}
	return click.toModel(), nil
}

func (r *Repository) ListClicksForUser(ctx context.Context, userUID, statusFilter string) ([]*model.Click, error) {
	builder := squirrel.
		Select("*").
		From("clicks").
		Where(squirrel.Eq{"user_uid": userUID}).
		OrderBy("created_at DESC").
		PlaceholderFormat(squirrel.Dollar)
	if statusFilter != "" {
		builder = builder.Where(squirrel.Eq{"status": statusFilter})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	var clicks []Click
	if err := r.db.SelectContext(ctx, &clicks, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list clicks: %w", err)
	}

	out := make([]*model.Click, len(clicks))
	for i := range clicks {
		out[i] = clicks[i].toModel()
	}
	return out, nil
}

// UpdateClickStatus records a non-completing postback status.
func (r *Repository) UpdateClickStatus(ctx context.Context, trackingID, status string) error {
	query, args, err := squirrel.
		Update("clicks").
		Set("status", status).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"tracking_id": trackingID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update click status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrClickNotFound
	}
	return nil
}

// SettleClick pays out a confirmed click. The reward flip, the balance
// credit, the ledger line and the notification commit together or not at
// all. The conditional update on is_rewarded keys the whole settlement:
// a retried or duplicated postback finds zero rows and nothing else runs.
func (r *Repository) SettleClick(ctx context.Context, click *model.Click, newStatus, description string) (int64, *model.Notification, error) {
	var balance int64
	var notification *model.Notification

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		flipQuery, flipArgs, err := squirrel.
			Update("clicks").
			Set("is_rewarded", true).
			Set("rewarded_at", squirrel.Expr("now()")).
			Set("status", newStatus).
			Set("updated_at", squirrel.Expr("now()")).
			Where(squirrel.Eq{"tracking_id": click.TrackingID, "is_rewarded": false}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, flipQuery, flipArgs...)
		if err != nil {
			return fmt.Errorf("failed to mark click rewarded: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrAlreadyRewarded
		}

		creditQuery, creditArgs, err := squirrel.
			Update("users").
			Set("coins", squirrel.Expr("coins + ?", click.RewardCoins)).
			Where(squirrel.Eq{"uid": click.UserUID}).
			Suffix("RETURNING coins").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}
		if err := tx.GetContext(ctx, &balance, creditQuery, creditArgs...); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to credit user: %w", err)
		}

		offerID := click.OfferID
		err = insertTransactionTx(ctx, tx, &model.Transaction{
			ID:          uuid.New(),
			UserUID:     click.UserUID,
			Type:        model.TransactionTypeEarn,
			Amount:      click.RewardCoins,
			Description: description,
			OfferID:     &offerID,
		})
		if err != nil {
			return err
		}

		notification = &model.Notification{
			ID:      uuid.New(),
			UserUID: click.UserUID,
			Type:    "reward",
			Title:   "Offer Completed Successfully!",
			Message: fmt.Sprintf("%s You earned %d coins!", description, click.RewardCoins),
		}
		return insertNotificationTx(ctx, tx, notification)
	})
	if err != nil {
		return 0, nil, err
	}
	return balance, notification, nil
}
