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

type offerRoutes struct {
	os service.OfferServiceI
	a  *auth.IdentityAuth
}

func NewOfferRoutes(handler *gin.RouterGroup, os service.OfferServiceI, a *auth.IdentityAuth) {
	r := &offerRoutes{os: os, a: a}
	h := handler.Group("/offers")
	h.Use(a.Middleware())
	{
		h.GET("", r.ListActive)
		h.GET("/type/:type", r.ListByType)
		h.GET("/:id", r.GetOffer)
		h.POST("", r.CreateOffer)
		h.PUT("/:id", r.UpdateOffer)

		h.POST("/:id/complete/:uid", r.CompleteOffer)
		h.POST("/:id/pending/:uid", r.MarkPending)
		h.POST("/:id/reject/:uid", r.MarkRejected)

		h.GET("/completed/:uid", r.ListCompleted)
		h.GET("/pending/:uid", r.ListPending)
		h.GET("/rejected/:uid", r.ListRejected)
	}
}

func offerResponse(o *model.Offer) gin.H {
	return gin.H{
		"id":             o.ID,
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
		"created_at":     o.CreatedAt,
	}
}

func offerListResponse(offers []*model.Offer) []gin.H {
	out := make([]gin.H, len(offers))
	for i, o := range offers {
		out[i] = offerResponse(o)
	}
	return out
}

func (r *offerRoutes) ListActive(c *gin.Context) {
	log := logger.Logger()

	offers, err := r.os.ListActive(c.Request.Context())
	if err != nil {
		log.Error("failed to list offers", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, offerListResponse(offers))
}

func (r *offerRoutes) ListByType(c *gin.Context) {
	log := logger.Logger()

	offers, err := r.os.ListByType(c.Request.Context(), c.Param("type"))
	if err != nil {
		log.Error("failed to list offers by type", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, offerListResponse(offers))
}

func (r *offerRoutes) GetOffer(c *gin.Context) {
	log := logger.Logger()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "invalid offer id", "invalid_request")
		return
	}

	offer, err := r.os.Get(c.Request.Context(), id)
	if err != nil {
		log.Error("failed to get offer", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, offerResponse(offer))
}

type OfferRequest struct {
	Title         string  `json:"title" binding:"required"`
	Description   string  `json:"description"`
	Coins         int64   `json:"coins" binding:"required"`
	Type          string  `json:"type" binding:"required"`
	Requirements  string  `json:"requirements"`
	Image         string  `json:"image"`
	Developer     string  `json:"developer"`
	Rating        float64 `json:"rating"`
	Downloads     string  `json:"downloads"`
	Category      string  `json:"category"`
	AppLink       string  `json:"app_link"`
	TrackingURL   string  `json:"tracking_url"`
	Deadline      string  `json:"deadline"`
	OfferCategory string  `json:"offer_category"`
	IsActive      *bool   `json:"is_active"`
}

func (req *OfferRequest) toModel() *model.Offer {
	o := &model.Offer{
		Title:         req.Title,
		Description:   req.Description,
		Coins:         req.Coins,
		Type:          req.Type,
		Requirements:  req.Requirements,
		Developer:     req.Developer,
		Rating:        req.Rating,
		Downloads:     req.Downloads,
		Category:      req.Category,
		AppLink:       req.AppLink,
		TrackingURL:   req.TrackingURL,
		Deadline:      req.Deadline,
		OfferCategory: req.OfferCategory,
		IsActive:      true,
	}
	if req.IsActive != nil {
		o.IsActive = *req.IsActive
	}
	return o
}

func (r *offerRoutes) CreateOffer(c *gin.Context) {
	log := logger.Logger()

	var req OfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		respondBadRequest(c, "title, coins and type are required", "invalid_request")
		return
	}

	offer, err := r.os.Create(c.Request.Context(), req.toModel(), req.Image)
	if err != nil {
		log.Error("failed to create offer", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, offerResponse(offer))
}

func (r *offerRoutes) UpdateOffer(c *gin.Context) {
	log := logger.Logger()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "invalid offer id", "invalid_request")
		return
	}

	var req OfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		respondBadRequest(c, "title, coins and type are required", "invalid_request")
		return
	}

	offer := req.toModel()
	offer.ID = id

	updated, err := r.os.Update(c.Request.Context(), offer, req.Image)
	if err != nil {
		log.Error("failed to update offer", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, offerResponse(updated))
}

func (r *offerRoutes) CompleteOffer(c *gin.Context) {
	log := logger.Logger()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "invalid offer id", "invalid_request")
		return
	}

	res, err := r.os.Complete(c.Request.Context(), id, c.Param("uid"))
	if err != nil {
		log.Error("failed to complete offer", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reward_coins": res.Coins,
		"coins":        res.Balance,
		"notification": notificationResponse(res.Notification),
	})
}

func (r *offerRoutes) MarkPending(c *gin.Context) {
	log := logger.Logger()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "invalid offer id", "invalid_request")
		return
	}

	n, err := r.os.MarkPending(c.Request.Context(), id, c.Param("uid"))
	if err != nil {
		log.Error("failed to mark offer pending", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       model.OfferStatusPending,
		"notification": notificationResponse(n),
	})
}

type RejectOfferRequest struct {
	Reason string `json:"reason"`
}

func (r *offerRoutes) MarkRejected(c *gin.Context) {
	log := logger.Logger()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "invalid offer id", "invalid_request")
		return
	}

	// Reason is optional; the service substitutes a default.
	var req RejectOfferRequest
	_ = c.ShouldBindJSON(&req)

	n, err := r.os.MarkRejected(c.Request.Context(), id, c.Param("uid"), req.Reason)
	if err != nil {
		log.Error("failed to mark offer rejected", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       model.OfferStatusRejected,
		"notification": notificationResponse(n),
	})
}

func (r *offerRoutes) ListCompleted(c *gin.Context) {
	r.listByUserStatus(c, model.OfferStatusCompleted)
}

func (r *offerRoutes) ListPending(c *gin.Context) {
	r.listByUserStatus(c, model.OfferStatusPending)
}

func (r *offerRoutes) ListRejected(c *gin.Context) {
	r.listByUserStatus(c, model.OfferStatusRejected)
}

func (r *offerRoutes) listByUserStatus(c *gin.Context, status string) {
	log := logger.Logger()

	offers, err := r.os.ListForUserByStatus(c.Request.Context(), c.Param("uid"), status)
	if err != nil {
		log.Error("failed to list user offers",
			zap.String("status", status),
			zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, offerListResponse(offers))
}
