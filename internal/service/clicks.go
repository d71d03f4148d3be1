package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"rewards_backend/internal/model"
	"rewards_backend/internal/repository"

	"github.com/google/uuid"
)

// trackingIDLength keeps 48 bits of the hash, enough that two distinct
// (user, offer, timestamp) triples essentially never collide.
const trackingIDLength = 12

type ClickService struct {
	repo   ClickRepository
	events EventPublisher
}

func NewClickService(repo ClickRepository, events EventPublisher) *ClickService {
	return &ClickService{
		repo:   repo,
		events: events,
	}
}

// ClickTracking is what a caller needs to send the user to the advertiser.
type ClickTracking struct {
	TrackingID  string
	TrackingURL string
	Existing    bool
}

type PostbackResult struct {
	TrackingID string
	Status     string
	Rewarded   bool
	Balance    int64
}

func newTrackingID(userUID string, offerID uuid.UUID, at time.Time) string {
	data := fmt.Sprintf("%s_%s_%d", userUID, offerID, at.UnixMilli())
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])[:trackingIDLength]
}

func trackingURL(offer *model.Offer, trackingID string) string {
	return strings.Replace(offer.TrackingURL, model.TrackingURLPlaceholder, trackingID, 1)
}

// Create issues a tracking id for one (user, offer) attribution attempt.
// Repeated calls while a click is still live return the first click's id,
// so callers may retry freely.
func (s *ClickService) Create(ctx context.Context, userUID string, offerID uuid.UUID, payoutDestination string, meta model.ClickMeta) (*ClickTracking, error) {
	if _, err := s.repo.GetUserByUID(ctx, userUID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	offer, err := s.repo.GetOfferByID(ctx, offerID)
	if err != nil {
		if errors.Is(err, repository.ErrOfferNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, err
	}
	if !offer.IsActive {
		return nil, ErrOfferInactive
	}

	existing, err := s.repo.FindActiveClick(ctx, userUID, offerID)
	if err == nil {
		return &ClickTracking{
			TrackingID:  existing.TrackingID,
			TrackingURL: trackingURL(offer, existing.TrackingID),
			Existing:    true,
		}, nil
	}
	if !errors.Is(err, repository.ErrClickNotFound) {
		return nil, err
	}

	click := &model.Click{
		TrackingID:        newTrackingID(userUID, offerID, time.Now()),
		UserUID:           userUID,
		OfferID:           offerID,
		PayoutDestination: payoutDestination,
		RewardCoins:       offer.Coins,
		Status:            model.ClickStatusPending,
	}
	if meta.IPAddress != "" {
		click.IPAddress = &meta.IPAddress
	}
	if meta.UserAgent != "" {
		click.UserAgent = &meta.UserAgent
	}

	err = s.repo.CreateClick(ctx, click)
	if err != nil {
		// Lost the dedup race; the winner's click is the answer.
		if errors.Is(err, repository.ErrDuplicateActiveClick) {
			winner, ferr := s.repo.FindActiveClick(ctx, userUID, offerID)
			if ferr != nil {
				return nil, ferr
			}
			return &ClickTracking{
				TrackingID:  winner.TrackingID,
				TrackingURL: trackingURL(offer, winner.TrackingID),
				Existing:    true,
			}, nil
		}
		return nil, fmt.Errorf("failed to create click: %w", err)
	}

	return &ClickTracking{
		TrackingID:  click.TrackingID,
		TrackingURL: trackingURL(offer, click.TrackingID),
	}, nil
}

// ProcessPostback applies a tracking-platform callback to a click. Postbacks
// may arrive duplicated or out of order; the already-rewarded check is the
// single guard against double crediting.
func (s *ClickService) ProcessPostback(ctx context.Context, trackingID, status string, offerID *uuid.UUID) (*PostbackResult, error) {
	click, err := s.repo.GetClickByTrackingID(ctx, trackingID)
	if err != nil {
		if errors.Is(err, repository.ErrClickNotFound) {
			return nil, ErrClickNotFound
		}
		return nil, err
	}

	if offerID != nil && *offerID != click.OfferID {
		return nil, ErrOfferMismatch
	}

	if click.IsRewarded {
		return nil, ErrAlreadyRewarded
	}

	newStatus := status
	if newStatus == "" {
		newStatus = model.ClickStatusInstalled
	}

	if !model.CompletionStatus(newStatus) {
		if err := s.repo.UpdateClickStatus(ctx, trackingID, newStatus); err != nil {
			return nil, err
		}
		return &PostbackResult{TrackingID: trackingID, Status: newStatus}, nil
	}

	description := "Offer completed"
	if offer, err := s.repo.GetOfferByID(ctx, click.OfferID); err == nil {
		description = fmt.Sprintf("Completed offer: %s", offer.Title)
	}

	balance, notification, err := s.repo.SettleClick(ctx, click, newStatus, description)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyRewarded) {
			return nil, ErrAlreadyRewarded
		}
		return nil, err
	}

	s.events.Publish(click.UserUID, "offerCompleted", map[string]interface{}{
		"click_id":     click.TrackingID,
		"reward_coins": click.RewardCoins,
	})
	s.events.Publish(click.UserUID, "notification", notification)

	return &PostbackResult{
		TrackingID: trackingID,
		Status:     newStatus,
		Rewarded:   true,
		Balance:    balance,
	}, nil
}

func (s *ClickService) GetByTrackingID(ctx context.Context, trackingID string) (*model.Click, error) {
	click, err := s.repo.GetClickByTrackingID(ctx, trackingID)
	if err != nil {
		if errors.Is(err, repository.ErrClickNotFound) {
			return nil, ErrClickNotFound
		}
		return nil, fmt.Errorf("failed to get click: %w", err)
	}
	return click, nil
}

func (s *ClickService) ListForUser(ctx context.Context, userUID, statusFilter string) ([]*model.Click, error) {
	clicks, err := s.repo.ListClicksForUser(ctx, userUID, statusFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to list clicks: %w", err)
	}
	return clicks, nil
}
