package service

import (
	"context"
	"testing"

	"rewards_backend/internal/model"
	"rewards_backend/internal/repository"
	"rewards_backend/internal/service/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestUserService_Sync(t *testing.T) {
	t.Run("Existing subject with no changes", func(t *testing.T) {
		mockRepo := &mocks.MockUserRepository{}
		service := NewUserService(mockRepo, &mocks.MockImageUploader{}, &mocks.MockEventPublisher{})

		existing := &model.User{UID: "sub-1", Email: "alice@example.com", Name: "Alice"}
		mockRepo.On("GetUserByUID", mock.Anything, "sub-1").
			Return(existing, nil)

		user, created, err := service.Sync(context.Background(), &SyncInput{
			Subject: "sub-1",
			Email:   "alice@example.com",
			Name:    "Alice",
		})

		assert.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "sub-1", user.UID)

		mockRepo.AssertExpectations(t)
	})

	t.Run("Email match rebinds subject", func(t *testing.T) {
		mockRepo := &mocks.MockUserRepository{}
		service := NewUserService(mockRepo, &mocks.MockImageUploader{}, &mocks.MockEventPublisher{})

		mockRepo.On("GetUserByUID", mock.Anything, "sub-new").
			Return(nil, repository.ErrUserNotFound).Once()
		mockRepo.On("GetUserByEmail", mock.Anything, "bob@example.com").
			Return(&model.User{UID: "sub-old", Email: "bob@example.com"}, nil)
		mockRepo.On("RebindUID", mock.Anything, "bob@example.com", "sub-new").
			Return(nil)
		mockRepo.On("GetUserByUID", mock.Anything, "sub-new").
			Return(&model.User{UID: "sub-new", Email: "bob@example.com"}, nil).Once()

		user, created, err := service.Sync(context.Background(), &SyncInput{
			Subject: "sub-new",
			Email:   "bob@example.com",
		})

		assert.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "sub-new", user.UID)

		mockRepo.AssertExpectations(t)
	})

	t.Run("Unknown subject and email creates account", func(t *testing.T) {
		mockRepo := &mocks.MockUserRepository{}
		service := NewUserService(mockRepo, &mocks.MockImageUploader{}, &mocks.MockEventPublisher{})

		mockRepo.On("GetUserByUID", mock.Anything, "sub-2").
			Return(nil, repository.ErrUserNotFound).Once()
		mockRepo.On("GetUserByEmail", mock.Anything, "carol@example.com").
			Return(nil, repository.ErrUserNotFound)
		mockRepo.On("GetUserByReferralCode", mock.Anything, mock.Anything).
			Return(nil, repository.ErrUserNotFound)
		mockRepo.On("CreateUser", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
			return u.UID == "sub-2" &&
				u.Email == "carol@example.com" &&
				u.Name == "carol" &&
				u.ReferralCode != ""
		})).Return(nil)
		mockRepo.On("GetUserByUID", mock.Anything, "sub-2").
			Return(&model.User{UID: "sub-2", Email: "carol@example.com", Name: "carol"}, nil).Once()

		user, created, err := service.Sync(context.Background(), &SyncInput{
			Subject: "sub-2",
			Email:   "carol@example.com",
		})

		assert.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "sub-2", user.UID)

		mockRepo.AssertExpectations(t)
	})
}

func TestGenerateReferralCode(t *testing.T) {
	code := generateReferralCode("alice")

	assert.Len(t, code, 10)
	assert.Equal(t, "ALI", code[:3])
	for _, r := range code {
		assert.True(t, (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'), "unexpected rune %q", r)
	}

	// Short names just shorten the prefix.
	short := generateReferralCode("xy")
	assert.Equal(t, "XY", short[:2])
	assert.Len(t, short, 9)
}

func TestUserService_CheckIn(t *testing.T) {
	t.Run("First check-in of the day", func(t *testing.T) {
		mockRepo := &mocks.MockUserRepository{}
		mockEvents := &mocks.MockEventPublisher{}
		service := NewUserService(mockRepo, &mocks.MockImageUploader{}, mockEvents)

		notification := &model.Notification{Title: "Daily check-in"}
		mockRepo.On("CheckIn", mock.Anything, "user-1", int64(CheckInReward)).
			Return(int64(150), notification, nil)
		mockEvents.On("Publish", "user-1", "notification", notification).Return()

		res, err := service.CheckIn(context.Background(), "user-1")

		assert.NoError(t, err)
		assert.Equal(t, int64(150), res.Balance)

		mockRepo.AssertExpectations(t)
		mockEvents.AssertExpectations(t)
	})

	t.Run("Second check-in is rejected", func(t *testing.T) {
		mockRepo := &mocks.MockUserRepository{}
		service := NewUserService(mockRepo, &mocks.MockImageUploader{}, &mocks.MockEventPublisher{})

		mockRepo.On("CheckIn", mock.Anything, "user-1", int64(CheckInReward)).
			Return(int64(0), nil, repository.ErrAlreadyCheckedIn)

		_, err := service.CheckIn(context.Background(), "user-1")
		assert.ErrorIs(t, err, ErrAlreadyCheckedIn)
	})
}

func TestUserService_ApplyReferral(t *testing.T) {
	usedCode := "REF1234XY9"

	tests := []struct {
		name          string
		uid           string
		code          string
		mockSetup     func(*mocks.MockUserRepository, *mocks.MockEventPublisher)
		expectedError error
	}{
		{
			name: "Referral code not found",
			uid:  "user-1",
			code: "NOPE000000",
			mockSetup: func(repo *mocks.MockUserRepository, events *mocks.MockEventPublisher) {
				repo.On("GetUserByUID", mock.Anything, "user-1").
					Return(&model.User{UID: "user-1"}, nil)
				repo.On("GetUserByReferralCode", mock.Anything, "NOPE000000").
					Return(nil, repository.ErrUserNotFound)
			},
			expectedError: ErrReferralCodeNotFound,
		},
		{
			name: "Own code is rejected",
			uid:  "user-1",
			code: "MINE123456",
			mockSetup: func(repo *mocks.MockUserRepository, events *mocks.MockEventPublisher) {
				self := &model.User{UID: "user-1", ReferralCode: "MINE123456"}
				repo.On("GetUserByUID", mock.Anything, "user-1").
					Return(self, nil)
				repo.On("GetUserByReferralCode", mock.Anything, "MINE123456").
					Return(self, nil)
			},
			expectedError: ErrSelfReferral,
		},
		{
			name: "Code already used once",
			uid:  "user-2",
			code: "REF9876AB1",
			mockSetup: func(repo *mocks.MockUserRepository, events *mocks.MockEventPublisher) {
				repo.On("GetUserByUID", mock.Anything, "user-2").
					Return(&model.User{UID: "user-2", UsedReferralCode: &usedCode}, nil)
				repo.On("GetUserByReferralCode", mock.Anything, "REF9876AB1").
					Return(&model.User{UID: "referrer-1"}, nil)
			},
			expectedError: ErrReferralAlreadyUsed,
		},
		{
			name: "Successful referral credits the referrer",
			uid:  "user-3",
			code: "REF5555CD2",
			mockSetup: func(repo *mocks.MockUserRepository, events *mocks.MockEventPublisher) {
				applier := &model.User{UID: "user-3"}
				referrer := &model.User{UID: "referrer-2", ReferralCode: "REF5555CD2"}
				notification := &model.Notification{Title: "Referral bonus"}
				repo.On("GetUserByUID", mock.Anything, "user-3").
					Return(applier, nil)
				repo.On("GetUserByReferralCode", mock.Anything, "REF5555CD2").
					Return(referrer, nil)
				repo.On("ApplyReferral", mock.Anything, applier, referrer, int64(ReferralBonus)).
					Return(notification, nil)
				events.On("Publish", "referrer-2", "notification", notification).Return()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &mocks.MockUserRepository{}
			mockEvents := &mocks.MockEventPublisher{}
			service := NewUserService(mockRepo, &mocks.MockImageUploader{}, mockEvents)

			tt.mockSetup(mockRepo, mockEvents)

			bonus, err := service.ApplyReferral(context.Background(), tt.uid, tt.code)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, int64(ReferralBonus), bonus)

			mockRepo.AssertExpectations(t)
			mockEvents.AssertExpectations(t)
		})
	}
}

func TestUserService_UpdateProfile(t *testing.T) {
	t.Run("Unknown columns are filtered out", func(t *testing.T) {
		mockRepo := &mocks.MockUserRepository{}
		service := NewUserService(mockRepo, &mocks.MockImageUploader{}, &mocks.MockEventPublisher{})

		_, err := service.UpdateProfile(context.Background(), "user-1", map[string]interface{}{
			"coins":         9999,
			"referral_code": "HACK000000",
		})

		assert.ErrorIs(t, err, ErrNoFieldsToUpdate)
	})

	t.Run("Allowed columns pass through", func(t *testing.T) {
		mockRepo := &mocks.MockUserRepository{}
		service := NewUserService(mockRepo, &mocks.MockImageUploader{}, &mocks.MockEventPublisher{})

		mockRepo.On("UpdateUserFields", mock.Anything, "user-1", map[string]interface{}{
			"name":  "Alice B",
			"phone": "+911234567890",
		}).Return(nil)
		mockRepo.On("GetUserByUID", mock.Anything, "user-1").
			Return(&model.User{UID: "user-1", Name: "Alice B"}, nil)

		user, err := service.UpdateProfile(context.Background(), "user-1", map[string]interface{}{
			"name":  "Alice B",
			"phone": "+911234567890",
			"coins": 9999,
		})

		assert.NoError(t, err)
		assert.Equal(t, "Alice B", user.Name)

		mockRepo.AssertExpectations(t)
	})
}

func TestUserService_UploadProfileImage(t *testing.T) {
	mockRepo := &mocks.MockUserRepository{}
	mockUploader := &mocks.MockImageUploader{}
	service := NewUserService(mockRepo, mockUploader, &mocks.MockEventPublisher{})

	mockRepo.On("GetUserByUID", mock.Anything, "user-1").
		Return(&model.User{UID: "user-1"}, nil)
	mockUploader.On("Upload", mock.Anything, "data:image/png;base64,aGk=", "user_user-1").
		Return("https://cdn.example.com/user_user-1/img.png", nil)
	mockRepo.On("UpdateUserFields", mock.Anything, "user-1", map[string]interface{}{
		"profile_image_url": "https://cdn.example.com/user_user-1/img.png",
	}).Return(nil)

	url, err := service.UploadProfileImage(context.Background(), "user-1", "data:image/png;base64,aGk=")

	assert.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/user_user-1/img.png", url)

	mockRepo.AssertExpectations(t)
	mockUploader.AssertExpectations(t)
}
