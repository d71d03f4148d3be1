package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"rewards_backend/internal/model"
	"rewards_backend/internal/repository"

	"github.com/google/uuid"
)

const (
	CheckInReward = 50
	ReferralBonus = 500
)

// profileColumns is the allow list for profile updates.
var profileColumns = map[string]bool{
	"name":              true,
	"email":             true,
	"phone":             true,
	"date_of_birth":     true,
	"gender":            true,
	"profile_image_url": true,
	"advertising_id":    true,
}

type UserService struct {
	repo     UserRepository
	uploader ImageUploader
	events   EventPublisher
}

func NewUserService(repo UserRepository, uploader ImageUploader, events EventPublisher) *UserService {
	return &UserService{
		repo:     repo,
		uploader: uploader,
		events:   events,
	}
}

// SyncInput carries the identity provider's view of a user.
type SyncInput struct {
	Subject         string
	Email           string
	Name            string
	Phone           string
	ProfileImageURL string
	AdvertisingID   string
}

type CheckInResult struct {
	Balance      int64
	Notification *model.Notification
}

// Sync creates the user on first sight of a subject id, re-binds an
// email-matched account to a new subject, or refreshes profile fields.
// Reports whether a new account was created.
func (s *UserService) Sync(ctx context.Context, in *SyncInput) (*model.User, bool, error) {
	user, err := s.repo.GetUserByUID(ctx, in.Subject)
	if err == nil {
		fields := map[string]interface{}{}
		if in.Name != "" && in.Name != user.Name {
			fields["name"] = in.Name
		}
		if in.ProfileImageURL != "" && (user.ProfileImageURL == nil || *user.ProfileImageURL != in.ProfileImageURL) {
			fields["profile_image_url"] = in.ProfileImageURL
		}
		if in.AdvertisingID != "" && (user.AdvertisingID == nil || *user.AdvertisingID != in.AdvertisingID) {
			fields["advertising_id"] = in.AdvertisingID
		}
		if len(fields) > 0 {
			if err := s.repo.UpdateUserFields(ctx, user.UID, fields); err != nil {
				return nil, false, err
			}
			user, err = s.repo.GetUserByUID(ctx, in.Subject)
			if err != nil {
				return nil, false, err
			}
		}
		return user, false, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, false, err
	}

	_, err = s.repo.GetUserByEmail(ctx, in.Email)
	if err == nil {
		// Same account, new identity subject.
		if err := s.repo.RebindUID(ctx, in.Email, in.Subject); err != nil {
			return nil, false, err
		}
		user, err := s.repo.GetUserByUID(ctx, in.Subject)
		if err != nil {
			return nil, false, err
		}
		return user, false, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, false, err
	}

	name := in.Name
	if name == "" {
		name = strings.Split(in.Email, "@")[0]
	}

	code, err := s.uniqueReferralCode(ctx, name)
	if err != nil {
		return nil, false, err
	}

	user = &model.User{
		UID:          in.Subject,
		Email:        in.Email,
		Name:         name,
		ReferralCode: code,
	}
	if in.Phone != "" {
		user.Phone = &in.Phone
	}
	if in.ProfileImageURL != "" {
		user.ProfileImageURL = &in.ProfileImageURL
	}
	if in.AdvertisingID != "" {
		user.AdvertisingID = &in.AdvertisingID
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}

	created, err := s.repo.GetUserByUID(ctx, in.Subject)
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

const referralAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// generateReferralCode builds a name prefix plus random and timestamp
// components, the shape users share with each other.
func generateReferralCode(name string) string {
	var prefix strings.Builder
	for _, r := range strings.ToUpper(name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			prefix.WriteRune(r)
			if prefix.Len() == 3 {
				break
			}
		}
	}

	random := make([]byte, 4)
	for i := range random {
		random[i] = referralAlphabet[rand.Intn(len(referralAlphabet))]
	}

	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	return prefix.String() + string(random) + ts[len(ts)-3:]
}

func (s *UserService) uniqueReferralCode(ctx context.Context, name string) (string, error) {
	for {
		code := generateReferralCode(name)
		_, err := s.repo.GetUserByReferralCode(ctx, code)
		if errors.Is(err, repository.ErrUserNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
}

func (s *UserService) GetByUID(ctx context.Context, uid string) (*model.User, error) {
	user, err := s.repo.GetUserByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, uid string, fields map[string]interface{}) (*model.User, error) {
	filtered := map[string]interface{}{}
	for col, v := range fields {
		if profileColumns[col] {
			filtered[col] = v
		}
	}
	if len(filtered) == 0 {
		return nil, ErrNoFieldsToUpdate
	}

	if err := s.repo.UpdateUserFields(ctx, uid, filtered); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.GetByUID(ctx, uid)
}

func (s *UserService) SetPaymentMethod(ctx context.Context, uid string, pm *model.PaymentMethod) error {
	err := s.repo.SetPaymentMethod(ctx, uid, pm)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to set payment method: %w", err)
	}
	return nil
}

func (s *UserService) UploadProfileImage(ctx context.Context, uid, imageData string) (string, error) {
	if _, err := s.GetByUID(ctx, uid); err != nil {
		return "", err
	}

	url, err := s.uploader.Upload(ctx, imageData, "user_"+uid)
	if err != nil {
		return "", fmt.Errorf("image upload failed: %w", err)
	}

	if err := s.repo.UpdateUserFields(ctx, uid, map[string]interface{}{"profile_image_url": url}); err != nil {
		return "", err
	}
	return url, nil
}

func (s *UserService) CheckIn(ctx context.Context, uid string) (*CheckInResult, error) {
	balance, notification, err := s.repo.CheckIn(ctx, uid, CheckInReward)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, repository.ErrAlreadyCheckedIn):
			return nil, ErrAlreadyCheckedIn
		}
		return nil, err
	}

	s.events.Publish(uid, "notification", notification)

	return &CheckInResult{Balance: balance, Notification: notification}, nil
}

func (s *UserService) ResetCheckIns(ctx context.Context) (int64, error) {
	return s.repo.ResetCheckIns(ctx)
}

// ApplyReferral lets a user apply someone else's code, once ever. Only the
// referrer is credited. Returns the referrer's bonus.
func (s *UserService) ApplyReferral(ctx context.Context, uid, code string) (int64, error) {
	applier, err := s.repo.GetUserByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}

	referrer, err := s.repo.GetUserByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return 0, ErrReferralCodeNotFound
		}
		return 0, err
	}

	if applier.UID == referrer.UID {
		return 0, ErrSelfReferral
	}
	if applier.UsedReferralCode != nil {
		return 0, ErrReferralAlreadyUsed
	}

	notification, err := s.repo.ApplyReferral(ctx, applier, referrer, ReferralBonus)
	if err != nil {
		if errors.Is(err, repository.ErrReferralAlreadyUsed) {
			return 0, ErrReferralAlreadyUsed
		}
		return 0, fmt.Errorf("failed to apply referral: %w", err)
	}

	s.events.Publish(referrer.UID, "notification", notification)

	return ReferralBonus, nil
}

func (s *UserService) GetReferralHistory(ctx context.Context, uid string) (*model.ReferralHistory, error) {
	history, err := s.repo.GetReferralHistory(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get referral history: %w", err)
	}
	return history, nil
}

func (s *UserService) ListTransactions(ctx context.Context, uid string) ([]*model.Transaction, error) {
	transactions, err := s.repo.ListTransactions(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return transactions, nil
}

func (s *UserService) ListNotifications(ctx context.Context, uid string) ([]*model.Notification, error) {
	notifications, err := s.repo.ListNotifications(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

func (s *UserService) AddNotification(ctx context.Context, uid, nType, title, message string) (*model.Notification, error) {
	notification := &model.Notification{
		ID:      uuid.New(),
		UserUID: uid,
		Type:    nType,
		Title:   title,
		Message: message,
	}

	err := s.repo.AddNotification(ctx, notification)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to add notification: %w", err)
	}

	s.events.Publish(uid, "notification", notification)

	return notification, nil
}

func (s *UserService) MarkNotificationRead(ctx context.Context, uid string, id uuid.UUID) error {
	err := s.repo.MarkNotificationRead(ctx, uid, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotificationNotFound
		}
		return err
	}
	return nil
}

func (s *UserService) MarkAllNotificationsRead(ctx context.Context, uid string) error {
	err := s.repo.MarkAllNotificationsRead(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

func (s *UserService) ClearNotifications(ctx context.Context, uid string) error {
	err := s.repo.ClearNotifications(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}
