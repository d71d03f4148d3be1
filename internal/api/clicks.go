package api

import (
	"net/http"

	"rewards_backend/internal/model"
	"rewards_backend/internal/service"
	"rewards_backend/pkg/auth"
	"rewards_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type clickRoutes struct {
	cs service.ClickServiceI
	a  *auth.IdentityAuth
}

func NewClickRoutes(handler *gin.RouterGroup, cs service.ClickServiceI, a *auth.IdentityAuth) {
	r := &clickRoutes{cs: cs, a: a}
	h := handler.Group("/clicks")
	{
		// Postback is called by ad networks and carries no user identity.
		h.POST("/postback", r.Postback)
		h.GET("/postback", r.Postback)

		authed := h.Group("")
		authed.Use(a.Middleware())
		{
			authed.POST("/create", r.CreateClick)
			authed.GET("/user/:uid", r.ListUserClicks)
			authed.GET("/:trackingId", r.GetClick)
		}
	}
}

func clickResponse(click *model.Click) gin.H {
	return gin.H{
		"tracking_id":        click.TrackingID,
		"user_uid":           click.UserUID,
		"offer_id":           click.OfferID,
		"payout_destination": click.PayoutDestination,
		"reward_coins":       click.RewardCoins,
		"status":             click.Status,
		"is_rewarded":        click.IsRewarded,
		"rewarded_at":        click.RewardedAt,
		"created_at":         click.CreatedAt,
		"updated_at":         click.UpdatedAt,
	}
}

type CreateClickRequest struct {
	UserUID           string `json:"user_uid" binding:"required"`
	OfferID           string `json:"offer_id" binding:"required"`
	PayoutDestination string `json:"payout_destination"`
}

func (r *clickRoutes) CreateClick(c *gin.Context) {
	log := logger.Logger()

	var req CreateClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		respondBadRequest(c, "user_uid and offer_id are required", "invalid_request")
		return
	}

	offerID, err := uuid.Parse(req.OfferID)
	if err != nil {
		respondBadRequest(c, "invalid offer_id", "invalid_request")
		return
	}

	meta := model.ClickMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}

	tracking, err := r.cs.Create(c.Request.Context(), req.UserUID, offerID, req.PayoutDestination, meta)
	if err != nil {
		log.Error("failed to create click", zap.Error(err))
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if tracking.Existing {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{
		"click_id":     tracking.TrackingID,
		"tracking_url": tracking.TrackingURL,
		"existing":     tracking.Existing,
	})
}

type PostbackRequest struct {
	ClickID string `form:"click_id" json:"click_id"`
	PCID    string `form:"pcid" json:"pcid"`
	Status  string `form:"status" json:"status"`
	OfferID string `form:"offer_id" json:"offer_id"`

	// Network payout is bound for logging only; rewards always come
	// from the offer's configured coin value.
	Payout string `form:"payout" json:"payout"`
}

func (r *clickRoutes) Postback(c *gin.Context) {
	log := logger.Logger()

	var req PostbackRequest
	if err := c.ShouldBind(&req); err != nil {
		log.Error("failed to bind postback", zap.Error(err))
		respondBadRequest(c, "invalid postback", "invalid_request")
		return
	}

	trackingID := req.ClickID
	if trackingID == "" {
		trackingID = req.PCID
	}
	if trackingID == "" {
		respondBadRequest(c, "click_id is required", "missing_click_id")
		return
	}

	var offerID *uuid.UUID
	if req.OfferID != "" {
		id, err := uuid.Parse(req.OfferID)
		if err != nil {
			respondBadRequest(c, "invalid offer_id", "invalid_request")
			return
		}
		offerID = &id
	}

	log.Info("postback received",
		zap.String("click_id", trackingID),
		zap.String("status", req.Status),
		zap.String("payout", req.Payout))

	res, err := r.cs.ProcessPostback(c.Request.Context(), trackingID, req.Status, offerID)
	if err != nil {
		log.Error("failed to process postback",
			zap.String("click_id", trackingID),
			zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"click_id": res.TrackingID,
		"status":   res.Status,
		"rewarded": res.Rewarded,
		"coins":    res.Balance,
	})
}

func (r *clickRoutes) GetClick(c *gin.Context) {
	log := logger.Logger()

	click, err := r.cs.GetByTrackingID(c.Request.Context(), c.Param("trackingId"))
	if err != nil {
		log.Error("failed to get click", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, clickResponse(click))
}

func (r *clickRoutes) ListUserClicks(c *gin.Context) {
	log := logger.Logger()

	clicks, err := r.cs.ListForUser(c.Request.Context(), c.Param("uid"), c.Query("status"))
	if err != nil {
		log.Error("failed to list clicks", zap.Error(err))
		respondError(c, err)
		return
	}

	out := make([]gin.H, len(clicks))
	for i, click := range clicks {
		out[i] = clickResponse(click)
	}

	c.JSON(http.StatusOK, out)
}
