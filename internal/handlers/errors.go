package handlers

import (
	"net/http"

	"github.com/devvault/backend/internal/apperrors"
	"github.com/labstack/echo/v4"
)

// httpError maps domain errors to HTTP errors; anything unrecognised is a 500 carrying the message
func httpError(err error) *echo.HTTPError {
	switch {
	case apperrors.IsNotFound(err):
		return echo.NewHTTPError(http.StatusNotFound, "Notification not found")
	case apperrors.IsForbidden(err):
		return echo.NewHTTPError(http.StatusForbidden, "Not authorized to access this notification")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
