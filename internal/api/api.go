package api

import (
	"errors"
	"net/http"

	"rewards_backend/internal/service"
	"rewards_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type errorMapping struct {
	status int
	code   string
}

var errorMappings = map[error]errorMapping{
	service.ErrUserNotFound:          {http.StatusNotFound, "user_not_found"},
	service.ErrOfferNotFound:         {http.StatusNotFound, "offer_not_found"},
	service.ErrClickNotFound:         {http.StatusNotFound, "click_not_found"},
	service.ErrWithdrawalNotFound:    {http.StatusNotFound, "withdrawal_not_found"},
	service.ErrNotificationNotFound:  {http.StatusNotFound, "notification_not_found"},
	service.ErrReferralCodeNotFound:  {http.StatusNotFound, "referral_code_not_found"},
	service.ErrOfferInactive:         {http.StatusBadRequest, "offer_inactive"},
	service.ErrOfferMismatch:         {http.StatusConflict, "offer_mismatch"},
	service.ErrAlreadyRewarded:       {http.StatusBadRequest, "already_rewarded"},
	service.ErrInvalidAmount:         {http.StatusBadRequest, "invalid_amount"},
	service.ErrNoPaymentMethod:       {http.StatusBadRequest, "no_payment_method"},
	service.ErrInsufficientCoins:     {http.StatusBadRequest, "insufficient_coins"},
	service.ErrSelfReferral:          {http.StatusBadRequest, "self_referral"},
	service.ErrReferralAlreadyUsed:   {http.StatusBadRequest, "referral_already_used"},
	service.ErrAlreadyCheckedIn:      {http.StatusBadRequest, "already_checked_in"},
	service.ErrOfferAlreadyCompleted: {http.StatusBadRequest, "offer_already_completed"},
	service.ErrOfferAlreadyPending:   {http.StatusBadRequest, "offer_already_pending"},
	service.ErrOfferAlreadyRejected:  {http.StatusBadRequest, "offer_already_rejected"},
	service.ErrNoFieldsToUpdate:      {http.StatusBadRequest, "no_fields_to_update"},
	service.ErrInvalidOfferType:      {http.StatusBadRequest, "invalid_offer_type"},
}

// respondError maps service errors to a 4xx with a stable code, and
// anything unexpected to a 500 with the detail kept out of the response.
func respondError(c *gin.Context, err error) {
	for sentinel, m := range errorMappings {
		if errors.Is(err, sentinel) {
			c.JSON(m.status, gin.H{"error": sentinel.Error(), "code": m.code})
			return
		}
	}

	logger.Logger().Error("internal error",
		zap.String("path", c.FullPath()),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "code": "internal"})
}

func respondBadRequest(c *gin.Context, message, code string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message, "code": code})
}
