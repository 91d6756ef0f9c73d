package handlers

import (
	"net/http"

	"github.com/devvault/backend/internal/middleware"
	"github.com/devvault/backend/internal/models"
	"github.com/devvault/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// ModerationHandler lets admins announce moderation decisions to content owners
type ModerationHandler struct {
	notificationService *services.NotificationService
}

// NewModerationHandler creates a new ModerationHandler
func NewModerationHandler(notificationService *services.NotificationService) *ModerationHandler {
	return &ModerationHandler{notificationService: notificationService}
}

// RegisterModerationRoutes registers admin moderation routes
func (h *ModerationHandler) RegisterModerationRoutes(g *echo.Group) {
	g.POST("/moderation/decisions", h.RecordDecision)
}

// RecordDecision notifies the content owner about an approval or rejection.
// The decision is accepted even when the notification cannot be created.
func (h *ModerationHandler) RecordDecision(c echo.Context) error {
	var req models.ModerationDecisionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	notification := h.notificationService.NotifyModeration(c.Request().Context(), services.ModerationDecision{
		Recipient:    req.Recipient,
		Admin:        middleware.GetUserID(c),
		ContentType:  req.ContentType,
		ContentTitle: req.ContentTitle,
		ContentID:    req.ContentID,
		Approved:     req.Approved,
	})

	return c.JSON(http.StatusAccepted, echo.Map{"success": true, "notified": notification != nil})
}
