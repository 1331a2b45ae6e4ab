package quota

import (
	"errors"
	"net/http"

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

// Check handles GET /api/v1/quota?category=<listing category>. It reports
// whether the authenticated user may post in that category right now.
func (h *Handler) Check(c *gin.Context) {
	userID, err := uuid.Parse(middleware.GetUserIDFromContext(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	category := models.ListingCategory(c.Query("category"))
	if !models.ValidListingCategory(category) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown listing category"})
		return
	}

	decision, err := h.service.CanUserPost(c.Request.Context(), userID, category)
	if err != nil && !errors.Is(err, models.ErrValidation) {
		// The decision already carries the generic denial; log the cause.
		h.logger.Error("Quota check failed", zap.String("userID", userID.String()), zap.Error(err))
	}

	status := http.StatusOK
	if decision.Reason == ReasonInternalError {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, decision)
}
