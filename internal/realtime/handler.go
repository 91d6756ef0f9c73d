package realtime

import (
	"net/http"
	"strings"

	"github.com/devvault/backend/internal/metrics"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Authenticator resolves a bearer token to the user id it was issued for
type Authenticator func(token string) (string, error)

// WSHandler upgrades HTTP requests to WebSocket connections registered with a Hub
type WSHandler struct {
	hub          *Hub
	authenticate Authenticator
	upgrader     websocket.Upgrader
	sendBuffer   int
	log          *logrus.Entry
}

// NewWSHandler creates a new WSHandler. allowedOrigins of "*" accepts any origin.
func NewWSHandler(hub *Hub, authenticate Authenticator, allowedOrigins []string, sendBuffer int, log *logrus.Entry) *WSHandler {
	if sendBuffer < 1 {
		sendBuffer = 16
	}
	return &WSHandler{
		hub:          hub,
		authenticate: authenticate,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		sendBuffer: sendBuffer,
		log:        log,
	}
}

// Serve authenticates the caller and runs the connection until it closes
func (h *WSHandler) Serve(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		token = strings.TrimPrefix(c.Request().Header.Get("Authorization"), "Bearer ")
	}
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Missing token")
	}
	userID, err := h.authenticate(token)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written an HTTP error
		h.log.WithError(err).Warn("WebSocket upgrade failed")
		return nil
	}

	client := newClient(h.hub, conn, userID, h.sendBuffer, h.log)
	metrics.LiveConnections.Inc()
	client.log.Info("WebSocket connected")

	go client.writePump()
	client.readPump()

	metrics.LiveConnections.Dec()
	client.log.Info("WebSocket disconnected")
	return nil
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
