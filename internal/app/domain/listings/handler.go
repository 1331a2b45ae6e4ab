package listings

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/publimicro/marketplace-api/internal/app/middleware"
	"github.com/publimicro/marketplace-api/internal/app/models"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Create handles POST /api/v1/listings.
func (h *Handler) Create(c *gin.Context) {
	userID, err := uuid.Parse(middleware.GetUserIDFromContext(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var input CreateListingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	listing, decision, err := h.service.CreateListing(c.Request.Context(), userID, input)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, models.ErrModeration):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "listing content was rejected"})
		case errors.Is(err, models.ErrNoSubscription):
			c.JSON(http.StatusPaymentRequired, gin.H{
				"error":    "an active subscription is required to post",
				"decision": decision,
			})
		case errors.Is(err, models.ErrQuotaExceeded):
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":    "monthly posting limit reached",
				"decision": decision,
			})
		default:
			h.logger.Error("Create listing failed", zap.String("userID", userID.String()), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create listing"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"listing": listing, "decision": decision})
}

// Get handles GET /api/v1/listings/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid listing id"})
		return
	}

	listing, err := h.service.GetListing(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
			return
		}
		h.logger.Error("Get listing failed", zap.String("listingID", id.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load listing"})
		return
	}

	c.JSON(http.StatusOK, listing)
}

// Search handles GET /api/v1/listings.
func (h *Handler) Search(c *gin.Context) {
	filter := models.ListingFilter{
		Category: models.ListingCategory(c.Query("category")),
		City:     c.Query("city"),
		State:    c.Query("state"),
		Status:   models.ListingStatus(c.Query("status")),
	}
	filter.MinPriceCents, _ = strconv.ParseInt(c.Query("min_price_cents"), 10, 64)
	filter.MaxPriceCents, _ = strconv.ParseInt(c.Query("max_price_cents"), 10, 64)
	filter.Limit, _ = strconv.Atoi(c.Query("limit"))
	filter.Offset, _ = strconv.Atoi(c.Query("offset"))

	results, err := h.service.SearchListings(c.Request.Context(), filter)
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Search listings failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to search listings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"listings": results, "count": len(results)})
}

// Reenrich handles POST /api/v1/listings/reenrich. Operator endpoint that
// recomputes proximity snapshots after POI catalog changes.
func (h *Handler) Reenrich(c *gin.Context) {
	report, err := h.service.ReenrichProperties(c.Request.Context())
	if err != nil {
		h.logger.Error("Re-enrichment failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "re-enrichment failed"})
		return
	}

	c.JSON(http.StatusOK, report)
}
