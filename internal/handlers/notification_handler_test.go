package handlers

import (
	"net/http"
	"testing"

	"github.com/devvault/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(s *testServer, recipient string, read bool) string {
	return s.notifications.Insert(models.Notification{
		Recipient: recipient,
		Type:      models.NotificationLike,
		Title:     "New like",
		Message:   "Someone liked your resource",
		IsRead:    read,
	})
}

func TestNotificationHandler_RequiresAuth(t *testing.T) {
	t.Parallel()
	s := setupTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
	}{
		{name: "list without token", method: http.MethodGet, path: "/api/v1/notifications"},
		{name: "count without token", method: http.MethodGet, path: "/api/v1/notifications/unread-count"},
		{name: "read-all with bad token", method: http.MethodPut, path: "/api/v1/notifications/read-all", token: "garbage"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := s.doRequest(t, tt.method, tt.path, tt.token, nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestNotificationHandler_ReadAllFlow(t *testing.T) {
	t.Parallel()
	s := setupTestServer(t)
	token := tokenFor(t, "u1", models.RoleUser)
	seed(s, "u1", true)
	seed(s, "u1", false)
	seed(s, "u1", false)
	seed(s, "u2", false)

	rec := s.doRequest(t, http.MethodGet, "/api/v1/notifications/unread-count", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := parseJSON(t, rec)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 2, body["unreadCount"])

	rec = s.doRequest(t, http.MethodPut, "/api/v1/notifications/read-all", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "All notifications marked as read", parseJSON(t, rec)["message"])

	rec = s.doRequest(t, http.MethodPut, "/api/v1/notifications/read-all", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.doRequest(t, http.MethodGet, "/api/v1/notifications/unread-count", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, parseJSON(t, rec)["unreadCount"])

	rec = s.doRequest(t, http.MethodGet, "/api/v1/notifications?unreadOnly=true", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := parseJSON(t, rec)["data"].(map[string]any)
	assert.Empty(t, data["notifications"])

	rec = s.doRequest(t, http.MethodGet, "/api/v1/notifications/unread-count", tokenFor(t, "u2", models.RoleUser), nil)
	assert.EqualValues(t, 1, parseJSON(t, rec)["unreadCount"])
}

func TestNotificationHandler_List(t *testing.T) {
	t.Parallel()
	s := setupTestServer(t)
	token := tokenFor(t, "u1", models.RoleUser)
	for i := 0; i < 3; i++ {
		seed(s, "u1", false)
	}
	seed(s, "u2", false)

	rec := s.doRequest(t, http.MethodGet, "/api/v1/notifications?page=1&limit=2", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := parseJSON(t, rec)

	items := body["data"].(map[string]any)["notifications"].([]any)
	require.Len(t, items, 2)
	for _, item := range items {
		n := item.(map[string]any)
		assert.Equal(t, "u1", n["recipient"])
		assert.Contains(t, n, "sender")
		assert.Contains(t, n, "isRead")
	}

	meta := body["meta"].(map[string]any)
	assert.EqualValues(t, 1, meta["currentPage"])
	assert.EqualValues(t, 2, meta["totalPages"])
	assert.EqualValues(t, 3, meta["totalItems"])
	assert.EqualValues(t, 2, meta["itemsPerPage"])
	assert.Equal(t, true, meta["hasNextPage"])
	assert.Equal(t, false, meta["hasPreviousPage"])

	rec = s.doRequest(t, http.MethodGet, "/api/v1/notifications?page=abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotificationHandler_Grouped(t *testing.T) {
	t.Parallel()
	s := setupTestServer(t)
	token := tokenFor(t, "u1", models.RoleUser)
	seed(s, "u1", false)

	rec := s.doRequest(t, http.MethodGet, "/api/v1/notifications/grouped", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := parseJSON(t, rec)["data"].(map[string]any)
	assert.EqualValues(t, 1, data["unreadCount"])
	groups := data["notifications"].(map[string]any)
	assert.Len(t, groups["today"], 1)
	assert.Contains(t, groups, "yesterday")
	assert.Contains(t, groups, "thisWeek")
	assert.Contains(t, groups, "older")
}

func TestNotificationHandler_MarkAsRead(t *testing.T) {
	t.Parallel()
	s := setupTestServer(t)
	owner := tokenFor(t, "owner", models.RoleUser)
	stranger := tokenFor(t, "stranger", models.RoleUser)
	id := seed(s, "owner", false)

	t.Run("stranger is forbidden", func(t *testing.T) {
		rec := s.doRequest(t, http.MethodPut, "/api/v1/notifications/"+id+"/read", stranger, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = s.doRequest(t, http.MethodGet, "/api/v1/notifications/unread-count", owner, nil)
		assert.EqualValues(t, 1, parseJSON(t, rec)["unreadCount"])
	})

	t.Run("unknown and malformed ids", func(t *testing.T) {
		for _, badID := range []string{"000000000000000000000000", "nope"} {
			rec := s.doRequest(t, http.MethodPut, "/api/v1/notifications/"+badID+"/read", owner, nil)
			assert.Equal(t, http.StatusNotFound, rec.Code, badID)
		}
	})

	t.Run("owner marks read", func(t *testing.T) {
		rec := s.doRequest(t, http.MethodPut, "/api/v1/notifications/"+id+"/read", owner, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		data := parseJSON(t, rec)["data"].(map[string]any)
		assert.Equal(t, id, data["id"])
		assert.Equal(t, true, data["isRead"])
	})
}

func TestNotificationHandler_Delete(t *testing.T) {
	t.Parallel()
	s := setupTestServer(t)
	owner := tokenFor(t, "owner", models.RoleUser)
	id := seed(s, "owner", false)

	rec := s.doRequest(t, http.MethodDelete, "/api/v1/notifications/"+id, tokenFor(t, "stranger", models.RoleUser), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.doRequest(t, http.MethodDelete, "/api/v1/notifications/"+id, owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Notification deleted", parseJSON(t, rec)["message"])

	rec = s.doRequest(t, http.MethodPut, "/api/v1/notifications/"+id+"/read", owner, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.doRequest(t, http.MethodDelete, "/api/v1/notifications/"+id, owner, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotificationHandler_SenderResolved(t *testing.T) {
	t.Parallel()
	s := setupTestServer(t, models.User{ID: "alice", Name: "Alice", Email: "alice@example.com"})
	s.notifications.Insert(models.Notification{
		Recipient: "u1",
		Sender:    "alice",
		Type:      models.NotificationLike,
		Title:     "New like",
		Message:   "Alice liked your resource",
	})

	rec := s.doRequest(t, http.MethodGet, "/api/v1/notifications", tokenFor(t, "u1", models.RoleUser), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := parseJSON(t, rec)["data"].(map[string]any)["notifications"].([]any)
	require.Len(t, items, 1)
	sender := items[0].(map[string]any)["sender"].(map[string]any)
	assert.Equal(t, "Alice", sender["name"])
	assert.Equal(t, "alice@example.com", sender["email"])
}
