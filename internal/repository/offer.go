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
	"github.com/jmoiron/sqlx"
)

type Offer struct {
	ID            uuid.UUID  `db:"id"`
	Title         string     `db:"title"`
	Description   string     `db:"description"`
	Coins         int64      `db:"coins"`
	Type          string     `db:"type"`
	Requirements  string     `db:"requirements"`
	ImageURL      string     `db:"image_url"`
	Developer     string     `db:"developer"`
	Rating        float64    `db:"rating"`
	Downloads     string     `db:"downloads"`
	Category      string     `db:"category"`
	AppLink       string     `db:"app_link"`
	TrackingURL   string     `db:"tracking_url"`
	Deadline      string     `db:"deadline"`
	OfferCategory string     `db:"offer_category"`
	IsActive      bool       `db:"is_active"`
	ExpiryDate    *time.Time `db:"expiry_date"`
	CreatedAt     time.Time  `db:"created_at"`
}

func (o *Offer) toModel() *model.Offer {
	return &model.Offer{
		ID:            o.ID,
		Title:         o.Title,
		Description:   o.Description,
		Coins:         o.Coins,
		Type:          o.Type,
		Requirements:  o.Requirements,
		ImageURL:      o.ImageURL,
		Developer:     o.Developer,
		Rating:        o.Rating,
		Downloads:     o.Downloads,
		Category:      o.Category,
		AppLink:       o.AppLink,
		TrackingURL:   o.TrackingURL,
		Deadline:      o.Deadline,
		OfferCategory: o.OfferCategory,
		IsActive:      o.IsActive,
		ExpiryDate:    o.ExpiryDate,
		CreatedAt:     o.CreatedAt,
	}
}

func offerColumns(o *model.Offer) map[string]interface{} {
	return map[string]interface{}{
		"title":          o.Title,
		"description":    o.Description,
		"coins":          o.Coins,
		"type":           o.Type,
		"requirements":   o.Requirements,
		"image_url":      o.ImageURL,
		"developer":      o.Developer,
		"rating":         o.Rating,
		"downloads":      o.Downloads,
		"category":       o.Category,
		"app_link":       o.AppLink,
		"tracking_url":   o.TrackingURL,
		"deadline":       o.Deadline,
		"offer_category": o.OfferCategory,
		"is_active":      o.IsActive,
		"expiry_date":    o.ExpiryDate,
	}
}

func (r *Repository) CreateOffer(ctx context.Context, offer *model.Offer) error {
	cols := offerColumns(offer)
	cols["id"] = offer.ID

	query, args, err := squirrel.
		Insert("offers").
		SetMap(cols).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build offer insert query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert offer: %w", err)
	}
	return nil
}

func (r *Repository) UpdateOffer(ctx context.Context, offer *model.Offer) error {
	query, args, err := squirrel.
		Update("offers").
		SetMap(offerColumns(offer)).
		Where(squirrel.Eq{"id": offer.ID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update offer: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrOfferNotFound
	}
	return nil
}

func (r *Repository) GetOfferByID(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	query, args, err := squirrel.
		Select("*").
		From("offers").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var offer Offer
	err = r.db.GetContext(ctx, &offer, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOfferNotFound
		}
		return nil, err
	}
	return offer.toModel(), nil
}

func (r *Repository) listOffers(ctx context.Context, pred interface{}, args ...interface{}) ([]*model.Offer, error) {
	query, qargs, err := squirrel.
		Select("*").
		From("offers").
		Where(pred, args...).
		OrderBy("created_at DESC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var offers []Offer
	if err := r.db.SelectContext(ctx, &offers, query, qargs...); err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}

	out := make([]*model.Offer, len(offers))
	for i := range offers {
		out[i] = offers[i].toModel()
	}
	return out, nil
}

func (r *Repository) ListActiveOffers(ctx context.Context) ([]*model.Offer, error) {
	return r.listOffers(ctx, squirrel.Eq{"is_active": true})
}

func (r *Repository) ListOffersByType(ctx context.Context, offerType string) ([]*model.Offer, error) {
	return r.listOffers(ctx, squirrel.Eq{"is_active": true, "type": offerType})
}

// ListUserOffersByStatus returns the offers a user has in one of the
// completed/pending/rejected states.
func (r *Repository) ListUserOffersByStatus(ctx context.Context, uid, status string) ([]*model.Offer, error) {
	if _, err := r.GetUserByUID(ctx, uid); err != nil {
		return nil, err
	}

	query, args, err := squirrel.
		Select("o.*").
		From("offers o").
		Join("user_offers uo ON uo.offer_id = o.id").
		Where(squirrel.Eq{"uo.user_uid": uid, "uo.status": status}).
		OrderBy("uo.updated_at DESC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var offers []Offer
	if err := r.db.SelectContext(ctx, &offers, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list user offers: %w", err)
	}

	out := make([]*model.Offer, len(offers))
	for i := range offers {
		out[i] = offers[i].toModel()
	}
	return out, nil
}

func (r *Repository) getUserOfferStatusTx(ctx context.Context, tx *sqlx.Tx, uid string, offerID uuid.UUID) (string, error) {
	query, args, err := squirrel.
		Select("status").
		From("user_offers").
		Where(squirrel.Eq{"user_uid": uid, "offer_id": offerID}).
		Suffix("FOR UPDATE").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return "", err
	}

	var status string
	err = tx.GetContext(ctx, &status, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return status, nil
}

func setUserOfferStatusTx(ctx context.Context, tx *sqlx.Tx, uid string, offerID uuid.UUID, status string, insert bool) error {
	var query string
	var args []interface{}
	var err error

	if insert {
		query, args, err = squirrel.
			Insert("user_offers").
			SetMap(map[string]interface{}{
				"user_uid": uid,
				"offer_id": offerID,
				"status":   status,
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
	} else {
		query, args, err = squirrel.
			Update("user_offers").
			Set("status", status).
			Set("updated_at", squirrel.Expr("now()")).
			Where(squirrel.Eq{"user_uid": uid, "offer_id": offerID}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to set user offer status: %w", err)
	}
	return nil
}

// CompleteOffer settles a direct offer completion: completed-set membership,
// balance credit, ledger line and notification commit as one unit, keyed by
// the (user, offer) completed state so a repeat call aborts before any
// mutation.
func (r *Repository) CompleteOffer(ctx context.Context, user *model.User, offer *model.Offer) (int64, *model.Notification, error) {
	var balance int64
	var notification *model.Notification

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		status, err := r.getUserOfferStatusTx(ctx, tx, user.UID, offer.ID)
		if err != nil {
			return err
		}
		if status == model.OfferStatusCompleted {
			return ErrOfferAlreadyCompleted
		}

		if err := setUserOfferStatusTx(ctx, tx, user.UID, offer.ID, model.OfferStatusCompleted, status == ""); err != nil {
			return err
		}

		creditQuery, creditArgs, err := squirrel.
			Update("users").
			Set("coins", squirrel.Expr("coins + ?", offer.Coins)).
			Where(squirrel.Eq{"uid": user.UID}).
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

		offerID := offer.ID
		err = insertTransactionTx(ctx, tx, &model.Transaction{
			ID:          uuid.New(),
			UserUID:     user.UID,
			Type:        model.TransactionTypeEarn,
			Amount:      offer.Coins,
			Description: fmt.Sprintf("Completed offer: %s", offer.Title),
			OfferID:     &offerID,
		})
		if err != nil {
			return err
		}

		notification = &model.Notification{
			ID:      uuid.New(),
			UserUID: user.UID,
			Type:    "reward",
			Title:   "Offer Completed Successfully!",
			Message: fmt.Sprintf("Congratulations! Your offer %q has been verified and completed. You earned %d coins!", offer.Title, offer.Coins),
		}
		return insertNotificationTx(ctx, tx, notification)
	})
	if err != nil {
		return 0, nil, err
	}
	return balance, notification, nil
}

// MarkOfferPending records that a user submitted an offer for verification.
// A rejected offer may be resubmitted; a completed one may not.
func (r *Repository) MarkOfferPending(ctx context.Context, uid string, offer *model.Offer) (*model.Notification, error) {
	var notification *model.Notification

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		status, err := r.getUserOfferStatusTx(ctx, tx, uid, offer.ID)
		if err != nil {
			return err
		}
		switch status {
		case model.OfferStatusCompleted:
			return ErrOfferAlreadyCompleted
		case model.OfferStatusPending:
			return ErrOfferAlreadyPending
		}

		if err := setUserOfferStatusTx(ctx, tx, uid, offer.ID, model.OfferStatusPending, status == ""); err != nil {
			return err
		}

		notification = &model.Notification{
			ID:      uuid.New(),
			UserUID: uid,
			Type:    "offer",
			Title:   "Offer Submitted for Verification",
			Message: fmt.Sprintf("Your offer %q has been submitted for verification. We'll notify you once it's reviewed.", offer.Title),
		}
		return insertNotificationTx(ctx, tx, notification)
	})
	if err != nil {
		return nil, err
	}
	return notification, nil
}

// MarkOfferRejected moves a user's offer to the rejected state.
func (r *Repository) MarkOfferRejected(ctx context.Context, uid string, offer *model.Offer, reason string) (*model.Notification, error) {
	var notification *model.Notification

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		status, err := r.getUserOfferStatusTx(ctx, tx, uid, offer.ID)
		if err != nil {
			return err
		}
		switch status {
		case model.OfferStatusCompleted:
			return ErrOfferAlreadyCompleted
		case model.OfferStatusRejected:
			return ErrOfferAlreadyRejected
		}

		if err := setUserOfferStatusTx(ctx, tx, uid, offer.ID, model.OfferStatusRejected, status == ""); err != nil {
			return err
		}

		notification = &model.Notification{
			ID:      uuid.New(),
			UserUID: uid,
			Type:    "offer",
			Title:   "Offer Verification Unsuccessful",
			Message: fmt.Sprintf("Your offer %q was not approved. Reason: %s", offer.Title, reason),
		}
		return insertNotificationTx(ctx, tx, notification)
	})
	if err != nil {
		return nil, err
	}
	return notification, nil
}
