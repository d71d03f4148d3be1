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

type userRoutes struct {
	us service.UserServiceI
	ws service.WithdrawalServiceI
	a  *auth.IdentityAuth
}

func NewUserRoutes(handler *gin.RouterGroup, us service.UserServiceI, ws service.WithdrawalServiceI, a *auth.IdentityAuth) {
	r := &userRoutes{us: us, ws: ws, a: a}
	h := handler.Group("/users")
	h.Use(a.Middleware())
	{
		h.POST("/sync", r.SyncUser)
		h.GET("/:uid", r.GetUser)
		h.PATCH("/:uid", r.UpdateProfile)
		h.POST("/:uid/payment-method", r.SetPaymentMethod)
		h.POST("/:uid/profile-image", r.UploadProfileImage)
		h.POST("/:uid/check-in", r.CheckIn)

		h.POST("/:uid/apply-referral", r.ApplyReferral)
		h.GET("/:uid/referral-history", r.GetReferralHistory)
		h.GET("/:uid/transactions", r.GetTransactions)

		h.GET("/:uid/notifications", r.GetNotifications)
		h.POST("/:uid/notifications", r.AddNotification)
		h.PATCH("/:uid/notifications/read-all", r.MarkAllNotificationsRead)
		h.PATCH("/:uid/notifications/:id/read", r.MarkNotificationRead)
		h.DELETE("/:uid/notifications/clear", r.ClearNotifications)

		h.POST("/:uid/withdraw", r.RequestWithdrawal)
		h.GET("/:uid/withdrawals", r.GetWithdrawals)
		h.PATCH("/:uid/withdrawals/:id/verify", r.VerifyWithdrawal)
	}
}

func userResponse(u *model.User) gin.H {
	return gin.H{
		"uid":                u.UID,
		"email":              u.Email,
		"name":               u.Name,
		"phone":              u.Phone,
		"date_of_birth":      u.DateOfBirth,
		"gender":             u.Gender,
		"profile_image_url":  u.ProfileImageURL,
		"advertising_id":     u.AdvertisingID,
		"referral_code":      u.ReferralCode,
		"used_referral_code": u.UsedReferralCode,
		"referral_count":     u.ReferralCount,
		"coins":              u.Coins,
		"payment_method":     u.PaymentMethod,
		"last_check_in":      u.LastCheckIn,
		"created_at":         u.CreatedAt,
	}
}

func notificationResponse(n *model.Notification) gin.H {
	return gin.H{
		"id":         n.ID,
		"type":       n.Type,
		"title":      n.Title,
		"message":    n.Message,
		"read":       n.Read,
		"created_at": n.CreatedAt,
	}
}

func withdrawalResponse(w *model.Withdrawal) gin.H {
	return gin.H{
		"id":             w.ID,
		"amount":         w.Amount,
		"coins":          w.Coins,
		"payment_method": w.PaymentMethod,
		"status":         w.Status,
		"verified_by":    w.VerifiedBy,
		"verified_at":    w.VerifiedAt,
		"created_at":     w.CreatedAt,
	}
}

type SyncUserRequest struct {
	Email           string `json:"email"`
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	ProfileImageURL string `json:"profile_image_url"`
	AdvertisingID   string `json:"advertising_id"`
}

func (r *userRoutes) SyncUser(c *gin.Context) {
	log := logger.Logger()

	var req SyncUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		respondBadRequest(c, "invalid request", "invalid_request")
		return
	}

	subject, ok := auth.Subject(c)
	if !ok {
		log.Error("auth subject not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "code": "internal"})
		return
	}

	user, created, err := r.us.Sync(c.Request.Context(), &service.SyncInput{
		Subject:         subject,
		Email:           req.Email,
		Name:            req.Name,
		Phone:           req.Phone,
		ProfileImageURL: req.ProfileImageURL,
		AdvertisingID:   req.AdvertisingID,
	})
	if err != nil {
		log.Error("failed to sync user", zap.Error(err))
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"user":    userResponse(user),
		"created": created,
	})
}

func (r *userRoutes) GetUser(c *gin.Context) {
	log := logger.Logger()

	user, err := r.us.GetByUID(c.Request.Context(), c.Param("uid"))
	if err != nil {
		log.Error("failed to get user", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, userResponse(user))
}

func (r *userRoutes) UpdateProfile(c *gin.Context) {
	log := logger.Logger()

	var fields map[string]interface{}
	if err := c.ShouldBindJSON(&fields); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		respondBadRequest(c, "invalid request", "invalid_request")
		return
	}

	user, err := r.us.UpdateProfile(c.Request.Context(), c.Param("uid"), fields)
	if err != nil {
		log.Error("failed to update profile", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, userResponse(user))
}

func (r *userRoutes) SetPaymentMethod(c *gin.Context) {
	log := logger.Logger()

	var pm model.PaymentMethod
	if err := c.ShouldBindJSON(&pm); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		respondBadRequest(c, "invalid request", "invalid_request")
		return
	}

	if pm.Type == "" {
		respondBadRequest(c, "payment method type is required", "invalid_request")
		return
	}

	if err := r.us.SetPaymentMethod(c.Request.Context(), c.Param("uid"), &pm); err != nil {
		log.Error("failed to set payment method", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payment_method": pm})
}

type UploadImageRequest struct {
	Image string `json:"image" binding:"required"`
}

func (r *userRoutes) UploadProfileImage(c *gin.Context) {
	log := logger.Logger()

	var req UploadImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		respondBadRequest(c, "image is required", "invalid_request")
		return
	}

	url, err := r.us.UploadProfileImage(c.Request.Context(), c.Param("uid"), req.Image)
	if err != nil {
		log.Error("failed to upload profile image", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile_image_url": url})
}

func (r *userRoutes) CheckIn(c *gin.Context) {
	log := logger.Logger()

	res, err := r.us.CheckIn(c.Request.Context(), c.Param("uid"))
	if err != nil {
		log.Error("failed to check in", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reward_coins": service.CheckInReward,
		"coins":        res.Balance,
		"notification": notificationResponse(res.Notification),
	})
}

type ApplyReferralRequest struct {
	ReferralCode string `json:"referral_code" binding:"required"`
}

func (r *userRoutes) ApplyReferral(c *gin.Context) {
	log := logger.Logger()

	var req ApplyReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		respondBadRequest(c, "referral_code is required", "invalid_request")
		return
	}

	bonus, err := r.us.ApplyReferral(c.Request.Context(), c.Param("uid"), req.ReferralCode)
	if err != nil {
		log.Error("failed to apply referral", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"referral_bonus": bonus,
	})
}

func (r *userRoutes) GetReferralHistory(c *gin.Context) {
	log := logger.Logger()

	history, err := r.us.GetReferralHistory(c.Request.Context(), c.Param("uid"))
	if err != nil {
		log.Error("failed to get referral history", zap.Error(err))
		respondError(c, err)
		return
	}

	entries := make([]gin.H, len(history.Entries))
	for i, e := range history.Entries {
		entries[i] = gin.H{
			"referred_uid":   e.ReferredUID,
			"referred_email": e.ReferredEmail,
			"referred_name":  e.ReferredName,
			"coins_earned":   e.CoinsEarned,
			"created_at":     e.CreatedAt,
		}
	}

	out := gin.H{
		"referral_code":      history.ReferralCode,
		"referral_count":     history.ReferralCount,
		"entries":            entries,
		"total_coins_earned": history.TotalCoinsEarned,
	}
	if history.ReferredBy != nil {
		out["referred_by"] = gin.H{
			"uid":  history.ReferredBy.UID,
			"name": history.ReferredBy.Name,
		}
	}

	c.JSON(http.StatusOK, out)
}

func (r *userRoutes) GetTransactions(c *gin.Context) {
	log := logger.Logger()

	transactions, err := r.us.ListTransactions(c.Request.Context(), c.Param("uid"))
	if err != nil {
		log.Error("failed to get transactions", zap.Error(err))
		respondError(c, err)
		return
	}

	out := make([]gin.H, len(transactions))
	for i, t := range transactions {
		out[i] = gin.H{
			"id":            t.ID,
			"type":          t.Type,
			"amount":        t.Amount,
			"description":   t.Description,
			"status":        t.Status,
			"offer_id":      t.OfferID,
			"withdrawal_id": t.WithdrawalID,
			"created_at":    t.CreatedAt,
		}
	}

	c.JSON(http.StatusOK, out)
}

func (r *userRoutes) GetNotifications(c *gin.Context) {
	log := logger.Logger()

	notifications, err := r.us.ListNotifications(c.Request.Context(), c.Param("uid"))
	if err != nil {
		log.Error("failed to get notifications", zap.Error(err))
		respondError(c, err)
		return
	}

	out := make([]gin.H, len(notifications))
	for i, n := range notifications {
		out[i] = notificationResponse(n)
	}

	c.JSON(http.StatusOK, out)
}

type AddNotificationRequest struct {
	Type    string `json:"type" binding:"required"`
	Title   string `json:"title" binding:"required"`
	Message string `json:"message" binding:"required"`
}

func (r *userRoutes) AddNotification(c *gin.Context) {
	log := logger.Logger()

	var req AddNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		respondBadRequest(c, "type, title and message are required", "invalid_request")
		return
	}

	n, err := r.us.AddNotification(c.Request.Context(), c.Param("uid"), req.Type, req.Title, req.Message)
	if err != nil {
		log.Error("failed to add notification", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, notificationResponse(n))
}

func (r *userRoutes) MarkNotificationRead(c *gin.Context) {
	log := logger.Logger()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "invalid notification id", "invalid_request")
		return
	}

	if err := r.us.MarkNotificationRead(c.Request.Context(), c.Param("uid"), id); err != nil {
		log.Error("failed to mark notification read", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"read": true})
}

func (r *userRoutes) MarkAllNotificationsRead(c *gin.Context) {
	log := logger.Logger()

	if err := r.us.MarkAllNotificationsRead(c.Request.Context(), c.Param("uid")); err != nil {
		log.Error("failed to mark notifications read", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"read": true})
}

func (r *userRoutes) ClearNotifications(c *gin.Context) {
	log := logger.Logger()

	if err := r.us.ClearNotifications(c.Request.Context(), c.Param("uid")); err != nil {
		log.Error("failed to clear notifications", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

type WithdrawRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

func (r *userRoutes) RequestWithdrawal(c *gin.Context) {
	log := logger.Logger()

	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		respondBadRequest(c, "amount is required", "invalid_request")
		return
	}

	res, err := r.ws.Request(c.Request.Context(), c.Param("uid"), req.Amount)
	if err != nil {
		log.Error("failed to request withdrawal", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"withdrawal":   withdrawalResponse(res.Withdrawal),
		"coins":        res.Balance,
		"coins_spent":  res.Coins,
		"notification": notificationResponse(res.Notification),
	})
}

func (r *userRoutes) GetWithdrawals(c *gin.Context) {
	log := logger.Logger()

	history, err := r.ws.History(c.Request.Context(), c.Param("uid"))
	if err != nil {
		log.Error("failed to get withdrawals", zap.Error(err))
		respondError(c, err)
		return
	}

	toList := func(ws []*model.Withdrawal) []gin.H {
		out := make([]gin.H, len(ws))
		for i, w := range ws {
			out[i] = withdrawalResponse(w)
		}
		return out
	}

	c.JSON(http.StatusOK, gin.H{
		"all":      toList(history.All),
		"pending":  toList(history.Pending),
		"verified": toList(history.Verified),
	})
}

type VerifyWithdrawalRequest struct {
	AdminUID string `json:"admin_uid"`
}

func (r *userRoutes) VerifyWithdrawal(c *gin.Context) {
	log := logger.Logger()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "invalid withdrawal id", "invalid_request")
		return
	}

	// Body is optional; without it the verification is recorded unattributed.
	var req VerifyWithdrawalRequest
	_ = c.ShouldBindJSON(&req)

	w, err := r.ws.Verify(c.Request.Context(), c.Param("uid"), id, req.AdminUID)
	if err != nil {
		log.Error("failed to verify withdrawal", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, withdrawalResponse(w))
}
