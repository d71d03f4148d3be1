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

type User struct {
	UID              string     `db:"uid"`
	Email            string     `db:"email"`
	Name             string     `db:"name"`
	AdvertisingID    *string    `db:"advertising_id"`
	Phone            *string    `db:"phone"`
	DateOfBirth      *time.Time `db:"date_of_birth"`
	Gender           *string    `db:"gender"`
	ProfileImageURL  *string    `db:"profile_image_url"`
	ReferralCode     string     `db:"referral_code"`
	UsedReferralCode *string    `db:"used_referral_code"`
	ReferredBy       *string    `db:"referred_by"`
	ReferralCount    int        `db:"referral_count"`
	Coins            int64      `db:"coins"`
	PaymentMethod    []byte     `db:"payment_method"`
	LastCheckIn      *time.Time `db:"last_check_in"`
	CreatedAt        time.Time  `db:"created_at"`
}

func (u *User) toModel() (*model.User, error) {
	out := &model.User{
		UID:              u.UID,
		Email:            u.Email,
		Name:             u.Name,
		AdvertisingID:    u.AdvertisingID,
		Phone:            u.Phone,
		DateOfBirth:      u.DateOfBirth,
		Gender:           u.Gender,
		ProfileImageURL:  u.ProfileImageURL,
		ReferralCode:     u.ReferralCode,
		UsedReferralCode: u.UsedReferralCode,
		ReferredBy:       u.ReferredBy,
		ReferralCount:    u.ReferralCount,
		Coins:            u.Coins,
		LastCheckIn:      u.LastCheckIn,
		CreatedAt:        u.CreatedAt,
	}
	if len(u.PaymentMethod) > 0 {
		var pm model.PaymentMethod
		if err := json.Unmarshal(u.PaymentMethod, &pm); err != nil {
			return nil, fmt.Errorf("failed to decode payment method: %w", err)
		}
		out.PaymentMethod = &pm
	}
	return out, nil
}

func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	query, args, err := squirrel.
		Insert("users").
		SetMap(map[string]interface{}{
			"uid":               user.UID,
			"email":             user.Email,
			"name":              user.Name,
			"advertising_id":    user.AdvertisingID,
			"phone":             user.Phone,
			"date_of_birth":     user.DateOfBirth,
			"gender":            user.Gender,
			"profile_image_url": user.ProfileImageURL,
			"referral_code":     user.ReferralCode,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build user insert query: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *Repository) getUser(ctx context.Context, q sqlx.QueryerContext, pred squirrel.Eq) (*model.User, error) {
	query, args, err := squirrel.
		Select("*").
		From("users").
		Where(pred).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var user User
	err = sqlx.GetContext(ctx, q, &user, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user.toModel()
}

func (r *Repository) GetUserByUID(ctx context.Context, uid string) (*model.User, error) {
	return r.getUser(ctx, r.db, squirrel.Eq{"uid": uid})
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getUser(ctx, r.db, squirrel.Eq{"email": email})
}

func (r *Repository) GetUserByReferralCode(ctx context.Context, code string) (*model.User, error) {
	return r.getUser(ctx, r.db, squirrel.Eq{"referral_code": code})
}

// UpdateUserFields applies an already allow-listed column set to one user.
func (r *Repository) UpdateUserFields(ctx context.Context, uid string, fields map[string]interface{}) error {
	query, args, err := squirrel.
		Update("users").
		SetMap(fields).
		Where(squirrel.Eq{"uid": uid}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// RebindUID re-attaches an existing email-matched account to a new external
// subject id, for the identity-provider sync flow.
func (r *Repository) RebindUID(ctx context.Context, email, newUID string) error {
	query, args, err := squirrel.
		Update("users").
		Set("uid", newUID).
		Where(squirrel.Eq{"email": email}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to rebind uid: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *Repository) SetPaymentMethod(ctx context.Context, uid string, pm *model.PaymentMethod) error {
	raw, err := json.Marshal(pm)
	if err != nil {
		return fmt.Errorf("failed to encode payment method: %w", err)
	}
	return r.UpdateUserFields(ctx, uid, map[string]interface{}{"payment_method": raw})
}

// CheckIn credits the daily check-in reward at most once per calendar day.
// The eligibility check and the credit are one conditional update, so two
// racing requests cannot both pass.
func (r *Repository) CheckIn(ctx context.Context, uid string, reward int64) (int64, *model.Notification, error) {
	var balance int64
	var notification *model.Notification

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := r.getUser(ctx, tx, squirrel.Eq{"uid": uid}); err != nil {
			return err
		}

		query, args, err := squirrel.
			Update("users").
			Set("coins", squirrel.Expr("coins + ?", reward)).
			Set("last_check_in", squirrel.Expr("now()")).
			Where(squirrel.Eq{"uid": uid}).
			Where(squirrel.Expr("(last_check_in IS NULL OR last_check_in < date_trunc('day', now()))")).
			Suffix("RETURNING coins").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		err = tx.GetContext(ctx, &balance, query, args...)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrAlreadyCheckedIn
			}
			return err
		}

		err = insertTransactionTx(ctx, tx, &model.Transaction{
			ID:          uuid.New(),
			UserUID:     uid,
			Type:        model.TransactionTypeEarn,
			Amount:      reward,
			Description: "Daily check-in reward",
		})
		if err != nil {
			return err
		}

		notification = &model.Notification{
			ID:      uuid.New(),
			UserUID: uid,
			Type:    "reward",
			Title:   "Daily Check-in Reward!",
			Message: fmt.Sprintf("You earned %d coins for checking in today.", reward),
		}
		return insertNotificationTx(ctx, tx, notification)
	})
	if err != nil {
		return 0, nil, err
	}
	return balance, notification, nil
}

// ResetCheckIns clears every user's check-in marker. Run by the daily
// scheduler; racing a live check-in only shifts that user's eligibility.
func (r *Repository) ResetCheckIns(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET last_check_in = NULL WHERE last_check_in IS NOT NULL`)
	if err != nil {
		return 0, fmt.Errorf("failed to reset check-ins: %w", err)
	}
	return result.RowsAffected()
}

// ApplyReferral marks the code as used on the applier and credits the
// referrer, in one transaction. The conditional update on the applier is
// the used-once guard; the referrer credit comes last so a retried partial
// failure can never duplicate it.
func (r *Repository) ApplyReferral(ctx context.Context, applier, referrer *model.User, bonus int64) (*model.Notification, error) {
	var referrerNotification *model.Notification

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := squirrel.
			Update("users").
			Set("used_referral_code", referrer.ReferralCode).
			Set("referred_by", referrer.UID).
			Where(squirrel.Eq{"uid": applier.UID}).
			Where("used_referral_code IS NULL").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to mark referral code used: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrReferralAlreadyUsed
		}

		err = insertTransactionTx(ctx, tx, &model.Transaction{
			ID:          uuid.New(),
			UserUID:     applier.UID,
			Type:        model.TransactionTypeReferralApplied,
			Amount:      0,
			Description: fmt.Sprintf("Applied referral code: %s", referrer.ReferralCode),
		})
		if err != nil {
			return err
		}

		err = insertNotificationTx(ctx, tx, &model.Notification{
			ID:      uuid.New(),
			UserUID: applier.UID,
			Type:    "referral",
			Title:   "Referral Applied!",
			Message: "You've successfully applied the referral code!",
		})
		if err != nil {
			return err
		}

		historyQuery, historyArgs, err := squirrel.
			Insert("referral_history").
			SetMap(map[string]interface{}{
				"id":             uuid.New(),
				"referrer_uid":   referrer.UID,
				"referred_uid":   applier.UID,
				"referred_email": applier.Email,
				"referred_name":  applier.Name,
				"coins_earned":   bonus,
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, historyQuery, historyArgs...); err != nil {
			return fmt.Errorf("failed to insert referral history: %w", err)
		}

		err = insertTransactionTx(ctx, tx, &model.Transaction{
			ID:          uuid.New(),
			UserUID:     referrer.UID,
			Type:        model.TransactionTypeReferralBonus,
			Amount:      bonus,
			Description: fmt.Sprintf("Received %d coins for referring a new user", bonus),
		})
		if err != nil {
			return err
		}

		referrerNotification = &model.Notification{
			ID:      uuid.New(),
			UserUID: referrer.UID,
			Type:    "bonus",
			Title:   "Referral Bonus!",
			Message: fmt.Sprintf("You received %d coins because someone used your referral code!", bonus),
		}
		if err := insertNotificationTx(ctx, tx, referrerNotification); err != nil {
			return err
		}

		creditQuery, creditArgs, err := squirrel.
			Update("users").
			Set("coins", squirrel.Expr("coins + ?", bonus)).
			Set("referral_count", squirrel.Expr("referral_count + 1")).
			Where(squirrel.Eq{"uid": referrer.UID}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, creditQuery, creditArgs...); err != nil {
			return fmt.Errorf("failed to credit referrer: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return referrerNotification, nil
}

type referralEntry struct {
	ReferredUID   string    `db:"referred_uid"`
	ReferredEmail string    `db:"referred_email"`
	ReferredName  string    `db:"referred_name"`
	CoinsEarned   int64     `db:"coins_earned"`
	CreatedAt     time.Time `db:"created_at"`
}

func (r *Repository) GetReferralHistory(ctx context.Context, uid string) (*model.ReferralHistory, error) {
	user, err := r.GetUserByUID(ctx, uid)
	if err != nil {
		return nil, err
	}

	query, args, err := squirrel.
		Select("referred_uid", "referred_email", "referred_name", "coins_earned", "created_at").
		From("referral_history").
		Where(squirrel.Eq{"referrer_uid": uid}).
		OrderBy("created_at DESC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var entries []referralEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get referral history: %w", err)
	}

	history := &model.ReferralHistory{
		ReferralCode:  user.ReferralCode,
		ReferralCount: user.ReferralCount,
		Entries:       make([]model.ReferralEntry, len(entries)),
	}
	for i, e := range entries {
		history.Entries[i] = model.ReferralEntry{
			ReferredUID:   e.ReferredUID,
			ReferredEmail: e.ReferredEmail,
			ReferredName:  e.ReferredName,
			CoinsEarned:   e.CoinsEarned,
			CreatedAt:     e.CreatedAt,
		}
		history.TotalCoinsEarned += e.CoinsEarned
	}

	if user.ReferredBy != nil {
		referrer, err := r.GetUserByUID(ctx, *user.ReferredBy)
		if err == nil {
			history.ReferredBy = referrer
		} else if !errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
	}

	return history, nil
}
