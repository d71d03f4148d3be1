package service

import (
	"context"
	"errors"
	"fmt"

	"rewards_backend/internal/model"
	"rewards_backend/internal/repository"

	"github.com/google/uuid"
)

type OfferService struct {
	repo     OfferRepository
	uploader ImageUploader
	events   EventPublisher
}

func NewOfferService(repo OfferRepository, uploader ImageUploader, events EventPublisher) *OfferService {
	return &OfferService{
		repo:     repo,
		uploader: uploader,
		events:   events,
	}
}

type CompleteResult struct {
	Balance      int64
	Coins        int64
	Notification *model.Notification
}

func (s *OfferService) Get(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	offer, err := s.repo.GetOfferByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrOfferNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, fmt.Errorf("failed to get offer: %w", err)
	}
	return offer, nil
}

func (s *OfferService) ListActive(ctx context.Context) ([]*model.Offer, error) {
	offers, err := s.repo.ListActiveOffers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}
	return offers, nil
}

func (s *OfferService) ListByType(ctx context.Context, offerType string) ([]*model.Offer, error) {
	if !model.ValidOfferType(offerType) {
		return nil, ErrInvalidOfferType
	}
	offers, err := s.repo.ListOffersByType(ctx, offerType)
	if err != nil {
		return nil, fmt.Errorf("failed to list offers by type: %w", err)
	}
	return offers, nil
}

func (s *OfferService) Create(ctx context.Context, offer *model.Offer, imageData string) (*model.Offer, error) {
	if !model.ValidOfferType(offer.Type) {
		return nil, ErrInvalidOfferType
	}

	if imageData != "" {
		url, err := s.uploader.Upload(ctx, imageData, "offer")
		if err != nil {
			return nil, fmt.Errorf("image upload failed: %w", err)
		}
		offer.ImageURL = url
	}

	offer.ID = uuid.New()
	if offer.Rating == 0 {
		offer.Rating = 4.0
	}
	if offer.Deadline == "" {
		offer.Deadline = "7 days"
	}
	if offer.OfferCategory == "" {
		offer.OfferCategory = "regular"
	}

	if err := s.repo.CreateOffer(ctx, offer); err != nil {
		return nil, fmt.Errorf("failed to create offer: %w", err)
	}
	return s.repo.GetOfferByID(ctx, offer.ID)
}

func (s *OfferService) Update(ctx context.Context, offer *model.Offer, imageData string) (*model.Offer, error) {
	if !model.ValidOfferType(offer.Type) {
		return nil, ErrInvalidOfferType
	}

	if imageData != "" {
		url, err := s.uploader.Upload(ctx, imageData, "offer")
		if err != nil {
			return nil, fmt.Errorf("image upload failed: %w", err)
		}
		offer.ImageURL = url
	}

	if err := s.repo.UpdateOffer(ctx, offer); err != nil {
		if errors.Is(err, repository.ErrOfferNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, fmt.Errorf("failed to update offer: %w", err)
	}
	return s.repo.GetOfferByID(ctx, offer.ID)
}

func (s *OfferService) getActiveOfferAndUser(ctx context.Context, offerID uuid.UUID, uid string, requireActive bool) (*model.Offer, *model.User, error) {
	offer, err := s.repo.GetOfferByID(ctx, offerID)
	if err != nil {
		if errors.Is(err, repository.ErrOfferNotFound) {
			return nil, nil, ErrOfferNotFound
		}
		return nil, nil, err
	}
	if requireActive && !offer.IsActive {
		return nil, nil, ErrOfferInactive
	}

	user, err := s.repo.GetUserByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, err
	}
	return offer, user, nil
}

// Complete settles a direct offer completion, crediting the offer's coin
// value exactly once per (user, offer).
func (s *OfferService) Complete(ctx context.Context, offerID uuid.UUID, uid string) (*CompleteResult, error) {
	offer, user, err := s.getActiveOfferAndUser(ctx, offerID, uid, true)
	if err != nil {
		return nil, err
	}

	balance, notification, err := s.repo.CompleteOffer(ctx, user, offer)
	if err != nil {
		if errors.Is(err, repository.ErrOfferAlreadyCompleted) {
			return nil, ErrOfferAlreadyCompleted
		}
		return nil, fmt.Errorf("failed to complete offer: %w", err)
	}

	s.events.Publish(uid, "offerCompleted", map[string]interface{}{
		"offer_id":     offer.ID,
		"reward_coins": offer.Coins,
	})
	s.events.Publish(uid, "notification", notification)

	return &CompleteResult{
		Balance:      balance,
		Coins:        offer.Coins,
		Notification: notification,
	}, nil
}

func (s *OfferService) MarkPending(ctx context.Context, offerID uuid.UUID, uid string) (*model.Notification, error) {
	offer, _, err := s.getActiveOfferAndUser(ctx, offerID, uid, true)
	if err != nil {
		return nil, err
	}

	notification, err := s.repo.MarkOfferPending(ctx, uid, offer)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOfferAlreadyCompleted):
			return nil, ErrOfferAlreadyCompleted
		case errors.Is(err, repository.ErrOfferAlreadyPending):
			return nil, ErrOfferAlreadyPending
		}
		return nil, fmt.Errorf("failed to mark offer pending: %w", err)
	}
	return notification, nil
}

func (s *OfferService) MarkRejected(ctx context.Context, offerID uuid.UUID, uid, reason string) (*model.Notification, error) {
	offer, _, err := s.getActiveOfferAndUser(ctx, offerID, uid, false)
	if err != nil {
		return nil, err
	}

	if reason == "" {
		reason = "The verification requirements were not met."
	}

	notification, err := s.repo.MarkOfferRejected(ctx, uid, offer, reason)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOfferAlreadyCompleted):
			return nil, ErrOfferAlreadyCompleted
		case errors.Is(err, repository.ErrOfferAlreadyRejected):
			return nil, ErrOfferAlreadyRejected
		}
		return nil, fmt.Errorf("failed to mark offer rejected: %w", err)
	}
	return notification, nil
}

func (s *OfferService) ListForUserByStatus(ctx context.Context, uid, status string) ([]*model.Offer, error) {
	offers, err := s.repo.ListUserOffersByStatus(ctx, uid, status)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to list user offers: %w", err)
	}
	return offers, nil
}
