package billing

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/webhook"
	"go.uber.org/zap"

	"github.com/publimicro/marketplace-api/internal/app/middleware"
	"github.com/publimicro/marketplace-api/internal/app/models"
)

// Stripe recommends capping webhook payload reads.
const maxWebhookBodyBytes = 65536

type Handler struct {
	service       Service
	webhookSecret string
	logger        *zap.Logger
}

func NewHandler(service Service, webhookSecret string, logger *zap.Logger) *Handler {
	return &Handler{
		service:       service,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

type subscribeRequest struct {
	Email string `json:"email" binding:"required,email"`
	Tier  string `json:"tier" binding:"required"`
}

// Subscribe handles POST /api/v1/billing/subscribe.
func (h *Handler) Subscribe(c *gin.Context) {
	userID, err := uuid.Parse(middleware.GetUserIDFromContext(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.service.Subscribe(c.Request.Context(), userID, req.Email, models.SubscriptionTier(req.Tier))
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tier is not purchasable"})
			return
		}
		h.logger.Error("Subscribe failed", zap.String("userID", userID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create subscription"})
		return
	}

	c.JSON(http.StatusCreated, result)
}

// Cancel handles POST /api/v1/billing/cancel.
func (h *Handler) Cancel(c *gin.Context) {
	userID, err := uuid.Parse(middleware.GetUserIDFromContext(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	if err := h.service.CancelCurrent(c.Request.Context(), userID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no active subscription"})
			return
		}
		h.logger.Error("Cancel failed", zap.String("userID", userID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel subscription"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancellation scheduled"})
}

// Webhook handles POST /api/v1/billing/webhook. Signature verification uses
// the endpoint secret from configuration; unsigned payloads are rejected.
func (h *Handler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read payload"})
		return
	}

	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), h.webhookSecret)
	if err != nil {
		h.logger.Warn("Webhook signature verification failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			h.logger.Error("Failed to decode subscription event", zap.String("eventID", event.ID), zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event payload"})
			return
		}
		if err := h.service.ApplySubscriptionEvent(c.Request.Context(), sub.ID, string(sub.Status)); err != nil {
			h.logger.Error("Failed to apply subscription event",
				zap.String("eventID", event.ID), zap.Error(err))
			// Non-2xx makes Stripe retry the delivery later.
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to apply event"})
			return
		}
	default:
		h.logger.Debug("Ignoring webhook event", zap.String("type", string(event.Type)))
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
