package service

import (
	"context"
	"testing"
	"time"

	"rewards_backend/internal/model"
	"rewards_backend/internal/repository"
	"rewards_backend/internal/service/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestClickService_Create(t *testing.T) {
	mockRepo := &mocks.MockClickRepository{}
	mockEvents := &mocks.MockEventPublisher{}
	service := NewClickService(mockRepo, mockEvents)

	activeOfferID := uuid.New()
	inactiveOfferID := uuid.New()
	missingOfferID := uuid.New()
	dedupOfferID := uuid.New()

	offer := &model.Offer{
		ID:          activeOfferID,
		Title:       "Install the app",
		Coins:       120,
		TrackingURL: "https://track.example.com/c?cid={click_id}",
		IsActive:    true,
	}

	tests := []struct {
		name          string
		userUID       string
		offerID       uuid.UUID
		mockSetup     func()
		expectedError error
		check         func(*testing.T, *ClickTracking)
	}{
		{
			name:    "User not found",
			userUID: "missing-user",
			offerID: activeOfferID,
			mockSetup: func() {
				mockRepo.On("GetUserByUID", mock.Anything, "missing-user").
					Return(nil, repository.ErrUserNotFound)
			},
			expectedError: ErrUserNotFound,
		},
		{
			name:    "Offer not found",
			userUID: "user-1",
			offerID: missingOfferID,
			mockSetup: func() {
				mockRepo.On("GetUserByUID", mock.Anything, "user-1").
					Return(&model.User{UID: "user-1"}, nil)
				mockRepo.On("GetOfferByID", mock.Anything, missingOfferID).
					Return(nil, repository.ErrOfferNotFound)
			},
			expectedError: ErrOfferNotFound,
		},
		{
			name:    "Inactive offer",
			userUID: "user-2",
			offerID: inactiveOfferID,
			mockSetup: func() {
				mockRepo.On("GetUserByUID", mock.Anything, "user-2").
					Return(&model.User{UID: "user-2"}, nil)
				mockRepo.On("GetOfferByID", mock.Anything, inactiveOfferID).
					Return(&model.Offer{ID: inactiveOfferID, IsActive: false}, nil)
			},
			expectedError: ErrOfferInactive,
		},
		{
			name:    "Active click already exists",
			userUID: "user-3",
			offerID: dedupOfferID,
			mockSetup: func() {
				dedupOffer := &model.Offer{
					ID:          dedupOfferID,
					Coins:       80,
					TrackingURL: "https://track.example.com/c?cid={click_id}",
					IsActive:    true,
				}
				mockRepo.On("GetUserByUID", mock.Anything, "user-3").
					Return(&model.User{UID: "user-3"}, nil)
				mockRepo.On("GetOfferByID", mock.Anything, dedupOfferID).
					Return(dedupOffer, nil)
				mockRepo.On("FindActiveClick", mock.Anything, "user-3", dedupOfferID).
					Return(&model.Click{
						TrackingID: "abc123def456",
						UserUID:    "user-3",
						OfferID:    dedupOfferID,
						Status:     model.ClickStatusPending,
					}, nil)
			},
			check: func(t *testing.T, tracking *ClickTracking) {
				assert.True(t, tracking.Existing)
				assert.Equal(t, "abc123def456", tracking.TrackingID)
				assert.Equal(t, "https://track.example.com/c?cid=abc123def456", tracking.TrackingURL)
			},
		},
		{
			name:    "New click created",
			userUID: "user-4",
			offerID: activeOfferID,
			mockSetup: func() {
				mockRepo.On("GetUserByUID", mock.Anything, "user-4").
					Return(&model.User{UID: "user-4"}, nil)
				mockRepo.On("GetOfferByID", mock.Anything, activeOfferID).
					Return(offer, nil)
				mockRepo.On("FindActiveClick", mock.Anything, "user-4", activeOfferID).
					Return(nil, repository.ErrClickNotFound)
				mockRepo.On("CreateClick", mock.Anything, mock.MatchedBy(func(c *model.Click) bool {
					return c.UserUID == "user-4" &&
						c.OfferID == activeOfferID &&
						c.RewardCoins == 120 &&
						c.Status == model.ClickStatusPending &&
						len(c.TrackingID) == trackingIDLength
				})).Return(nil)
			},
			check: func(t *testing.T, tracking *ClickTracking) {
				assert.False(t, tracking.Existing)
				assert.Len(t, tracking.TrackingID, trackingIDLength)
				assert.Contains(t, tracking.TrackingURL, tracking.TrackingID)
				assert.NotContains(t, tracking.TrackingURL, model.TrackingURLPlaceholder)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()

			tracking, err := service.Create(context.Background(), tt.userUID, tt.offerID, "wallet", model.ClickMeta{})

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}

			assert.NoError(t, err)
			assert.NotNil(t, tracking)

			if tt.check != nil {
				tt.check(t, tracking)
			}
		})
	}

	mockRepo.AssertExpectations(t)
}

func TestClickService_Create_DedupRace(t *testing.T) {
	mockRepo := &mocks.MockClickRepository{}
	mockEvents := &mocks.MockEventPublisher{}
	service := NewClickService(mockRepo, mockEvents)

	offerID := uuid.New()
	offer := &model.Offer{
		ID:          offerID,
		Coins:       60,
		TrackingURL: "https://track.example.com/c?cid={click_id}",
		IsActive:    true,
	}

	mockRepo.On("GetUserByUID", mock.Anything, "user-5").
		Return(&model.User{UID: "user-5"}, nil)
	mockRepo.On("GetOfferByID", mock.Anything, offerID).
		Return(offer, nil)
	mockRepo.On("FindActiveClick", mock.Anything, "user-5", offerID).
		Return(nil, repository.ErrClickNotFound).Once()
	mockRepo.On("CreateClick", mock.Anything, mock.Anything).
		Return(repository.ErrDuplicateActiveClick)
	mockRepo.On("FindActiveClick", mock.Anything, "user-5", offerID).
		Return(&model.Click{TrackingID: "feedc0ffee12"}, nil).Once()

	tracking, err := service.Create(context.Background(), "user-5", offerID, "", model.ClickMeta{})

	assert.NoError(t, err)
	assert.True(t, tracking.Existing)
	assert.Equal(t, "feedc0ffee12", tracking.TrackingID)

	mockRepo.AssertExpectations(t)
}

func TestClickService_ProcessPostback(t *testing.T) {
	offerID := uuid.New()
	otherOfferID := uuid.New()

	tests := []struct {
		name          string
		trackingID    string
		status        string
		offerID       *uuid.UUID
		mockSetup     func(*mocks.MockClickRepository, *mocks.MockEventPublisher)
		expectedError error
		check         func(*testing.T, *PostbackResult)
	}{
		{
			name:       "Click not found",
			trackingID: "missing000000",
			mockSetup: func(repo *mocks.MockClickRepository, events *mocks.MockEventPublisher) {
				repo.On("GetClickByTrackingID", mock.Anything, "missing000000").
					Return(nil, repository.ErrClickNotFound)
			},
			expectedError: ErrClickNotFound,
		},
		{
			name:       "Offer mismatch leaves click untouched",
			trackingID: "click1111111",
			offerID:    &otherOfferID,
			mockSetup: func(repo *mocks.MockClickRepository, events *mocks.MockEventPublisher) {
				repo.On("GetClickByTrackingID", mock.Anything, "click1111111").
					Return(&model.Click{
						TrackingID: "click1111111",
						UserUID:    "user-1",
						OfferID:    offerID,
						Status:     model.ClickStatusPending,
					}, nil)
			},
			expectedError: ErrOfferMismatch,
		},
		{
			name:       "Already rewarded",
			trackingID: "click2222222",
			status:     model.ClickStatusCompleted,
			mockSetup: func(repo *mocks.MockClickRepository, events *mocks.MockEventPublisher) {
				repo.On("GetClickByTrackingID", mock.Anything, "click2222222").
					Return(&model.Click{
						TrackingID: "click2222222",
						UserUID:    "user-1",
						OfferID:    offerID,
						Status:     model.ClickStatusCompleted,
						IsRewarded: true,
					}, nil)
			},
			expectedError: ErrAlreadyRewarded,
		},
		{
			name:       "Intermediate status updates without reward",
			trackingID: "click3333333",
			status:     model.ClickStatusClicked,
			mockSetup: func(repo *mocks.MockClickRepository, events *mocks.MockEventPublisher) {
				repo.On("GetClickByTrackingID", mock.Anything, "click3333333").
					Return(&model.Click{
						TrackingID: "click3333333",
						UserUID:    "user-1",
						OfferID:    offerID,
						Status:     model.ClickStatusPending,
					}, nil)
				repo.On("UpdateClickStatus", mock.Anything, "click3333333", model.ClickStatusClicked).
					Return(nil)
			},
			check: func(t *testing.T, res *PostbackResult) {
				assert.False(t, res.Rewarded)
				assert.Equal(t, model.ClickStatusClicked, res.Status)
			},
		},
		{
			name:       "Completion settles and publishes",
			trackingID: "click4444444",
			status:     model.ClickStatusCompleted,
			mockSetup: func(repo *mocks.MockClickRepository, events *mocks.MockEventPublisher) {
				click := &model.Click{
					TrackingID:  "click4444444",
					UserUID:     "user-2",
					OfferID:     offerID,
					RewardCoins: 75,
					Status:      model.ClickStatusClicked,
				}
				notification := &model.Notification{Title: "Reward earned"}
				repo.On("GetClickByTrackingID", mock.Anything, "click4444444").
					Return(click, nil)
				repo.On("GetOfferByID", mock.Anything, offerID).
					Return(&model.Offer{ID: offerID, Title: "Survey"}, nil)
				repo.On("SettleClick", mock.Anything, click, model.ClickStatusCompleted, "Completed offer: Survey").
					Return(int64(575), notification, nil)
				events.On("Publish", "user-2", "offerCompleted", mock.Anything).Return()
				events.On("Publish", "user-2", "notification", notification).Return()
			},
			check: func(t *testing.T, res *PostbackResult) {
				assert.True(t, res.Rewarded)
				assert.Equal(t, int64(575), res.Balance)
				assert.Equal(t, model.ClickStatusCompleted, res.Status)
			},
		},
		{
			name:       "Empty status defaults to installed",
			trackingID: "click5555555",
			status:     "",
			mockSetup: func(repo *mocks.MockClickRepository, events *mocks.MockEventPublisher) {
				click := &model.Click{
					TrackingID:  "click5555555",
					UserUID:     "user-3",
					OfferID:     offerID,
					RewardCoins: 30,
					Status:      model.ClickStatusPending,
				}
				repo.On("GetClickByTrackingID", mock.Anything, "click5555555").
					Return(click, nil)
				repo.On("GetOfferByID", mock.Anything, offerID).
					Return(nil, repository.ErrOfferNotFound)
				repo.On("SettleClick", mock.Anything, click, model.ClickStatusInstalled, "Offer completed").
					Return(int64(30), &model.Notification{}, nil)
				events.On("Publish", "user-3", mock.Anything, mock.Anything).Return()
			},
			check: func(t *testing.T, res *PostbackResult) {
				assert.True(t, res.Rewarded)
				assert.Equal(t, model.ClickStatusInstalled, res.Status)
			},
		},
		{
			name:       "Settle race reports already rewarded",
			trackingID: "click6666666",
			status:     model.ClickStatusCompleted,
			mockSetup: func(repo *mocks.MockClickRepository, events *mocks.MockEventPublisher) {
				click := &model.Click{
					TrackingID: "click6666666",
					UserUID:    "user-4",
					OfferID:    offerID,
					Status:     model.ClickStatusClicked,
				}
				repo.On("GetClickByTrackingID", mock.Anything, "click6666666").
					Return(click, nil)
				repo.On("GetOfferByID", mock.Anything, offerID).
					Return(nil, repository.ErrOfferNotFound)
				repo.On("SettleClick", mock.Anything, click, model.ClickStatusCompleted, "Offer completed").
					Return(int64(0), nil, repository.ErrAlreadyRewarded)
			},
			expectedError: ErrAlreadyRewarded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &mocks.MockClickRepository{}
			mockEvents := &mocks.MockEventPublisher{}
			service := NewClickService(mockRepo, mockEvents)

			tt.mockSetup(mockRepo, mockEvents)

			res, err := service.ProcessPostback(context.Background(), tt.trackingID, tt.status, tt.offerID)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}

			assert.NoError(t, err)
			assert.NotNil(t, res)

			if tt.check != nil {
				tt.check(t, res)
			}

			mockRepo.AssertExpectations(t)
			mockEvents.AssertExpectations(t)
		})
	}
}

func TestNewTrackingID(t *testing.T) {
	offerID := uuid.New()

	id := newTrackingID("user-1", offerID, mustParseTime(t, "2025-03-01T10:00:00Z"))
	assert.Len(t, id, trackingIDLength)

	same := newTrackingID("user-1", offerID, mustParseTime(t, "2025-03-01T10:00:00Z"))
	assert.Equal(t, id, same)

	other := newTrackingID("user-2", offerID, mustParseTime(t, "2025-03-01T10:00:00Z"))
	assert.NotEqual(t, id, other)
}

func mustParseTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	assert.NoError(t, err)
	return parsed
}
