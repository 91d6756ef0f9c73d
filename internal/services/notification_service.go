package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/devvault/backend/internal/apperrors"
	"github.com/devvault/backend/internal/metrics"
	"github.com/devvault/backend/internal/models"
	"github.com/devvault/backend/internal/repositories"
	"github.com/sirupsen/logrus"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 50

	pushTimeout = 2 * time.Second
	olderLimit  = 50
)

// Pusher delivers a freshly created notification to the recipient's live connections
type Pusher interface {
	Push(ctx context.Context, recipient string, payload any) error
}

// NotificationService owns every read and write of notifications.
// Create is the only way a notification comes into existence.
type NotificationService struct {
	notifications repositories.NotificationRepository
	users         repositories.UserRepository
	pusher        Pusher
	log           *logrus.Entry
	now           func() time.Time
}

// NewNotificationService creates a new NotificationService. pusher may be nil,
// in which case notifications are only persisted.
func NewNotificationService(notifRepo repositories.NotificationRepository, userRepo repositories.UserRepository, pusher Pusher, log *logrus.Entry) *NotificationService {
	return &NotificationService{
		notifications: notifRepo,
		users:         userRepo,
		pusher:        pusher,
		log:           log,
		now:           time.Now,
	}
}

// List returns one page of the recipient's notifications, newest first
func (s *NotificationService) List(ctx context.Context, recipient string, page, limit int, unreadOnly bool) (models.NotificationPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > MaxPageLimit {
		limit = DefaultPageLimit
	}

	notifications, total, err := s.notifications.GetByRecipient(ctx, recipient, page, limit, unreadOnly)
	if err != nil {
		return models.NotificationPage{}, fmt.Errorf("list notifications: %w", err)
	}

	return models.NotificationPage{
		Items: s.enrich(ctx, notifications),
		Page:  page,
		Limit: limit,
		Total: total,
	}, nil
}

// Grouped buckets the recipient's notifications into today, yesterday, the rest of the week and older
func (s *NotificationService) Grouped(ctx context.Context, recipient string) (models.GroupedNotifications, error) {
	now := s.now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	yesterdayStart := todayStart.AddDate(0, 0, -1)
	weekStart := todayStart.AddDate(0, 0, -7)

	buckets := []struct {
		from, to time.Time
		limit    int
	}{
		{from: todayStart},
		{from: yesterdayStart, to: todayStart},
		{from: weekStart, to: yesterdayStart},
		{to: weekStart, limit: olderLimit},
	}

	results := make([][]models.NotificationView, len(buckets))
	for i, b := range buckets {
		notifications, err := s.notifications.GetCreatedBetween(ctx, recipient, b.from, b.to, b.limit)
		if err != nil {
			return models.GroupedNotifications{}, fmt.Errorf("group notifications: %w", err)
		}
		results[i] = s.enrich(ctx, notifications)
	}

	return models.GroupedNotifications{
		Today:     results[0],
		Yesterday: results[1],
		ThisWeek:  results[2],
		Older:     results[3],
	}, nil
}

// UnreadCount counts the recipient's unread notifications
func (s *NotificationService) UnreadCount(ctx context.Context, recipient string) (int64, error) {
	count, err := s.notifications.GetUnreadCount(ctx, recipient)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// MarkAsRead flags one of the recipient's notifications as read.
// It fails with ErrNotFound when the id does not exist and ErrForbidden when
// the notification belongs to someone else.
func (s *NotificationService) MarkAsRead(ctx context.Context, id, recipient string) (*models.NotificationView, error) {
	if _, err := s.owned(ctx, id, recipient); err != nil {
		return nil, err
	}

	updated, err := s.notifications.MarkAsRead(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	views := s.enrich(ctx, []models.Notification{*updated})
	return &views[0], nil
}

// MarkAllAsRead flags every unread notification of the recipient as read and
// returns how many changed. Calling it again changes nothing.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, recipient string) (int64, error) {
	n, err := s.notifications.MarkAllAsRead(ctx, recipient)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return n, nil
}

// Delete removes one of the recipient's notifications, with the same checks as MarkAsRead
func (s *NotificationService) Delete(ctx context.Context, id, recipient string) error {
	if _, err := s.owned(ctx, id, recipient); err != nil {
		return err
	}
	if err := s.notifications.DeleteNotification(ctx, id); err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}

func (s *NotificationService) owned(ctx context.Context, id, recipient string) (*models.Notification, error) {
	notification, err := s.notifications.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if notification.Recipient != recipient {
		return nil, fmt.Errorf("notification %s: %w", id, apperrors.ErrForbidden)
	}
	return notification, nil
}

// Create persists a notification and then pushes it to the recipient's live
// connections. It never returns an error: failures are logged and reported as
// a nil result so the triggering action is unaffected. Push failures do not
// undo the persisted record.
func (s *NotificationService) Create(ctx context.Context, in models.NotificationInput) *models.NotificationView {
	log := s.log.WithFields(logrus.Fields{"recipient": in.Recipient, "type": in.Type})

	if err := validateInput(in); err != nil {
		metrics.NotificationCreateFailures.Inc()
		log.WithError(err).Error("Rejected notification")
		return nil
	}

	notification := &models.Notification{
		Recipient: in.Recipient,
		Sender:    in.Sender,
		Type:      in.Type,
		Title:     in.Title,
		Message:   in.Message,
		Related:   in.Related,
		Metadata:  in.Metadata,
	}
	if err := s.notifications.CreateNotification(ctx, notification); err != nil {
		metrics.NotificationCreateFailures.Inc()
		log.WithError(err).Error("Failed to create notification")
		return nil
	}
	metrics.NotificationsCreated.WithLabelValues(string(in.Type)).Inc()

	view := s.enrich(ctx, []models.Notification{*notification})[0]
	s.push(ctx, &view, log)
	return &view
}

func (s *NotificationService) push(ctx context.Context, view *models.NotificationView, log *logrus.Entry) {
	if s.pusher == nil {
		return
	}
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
	defer cancel()
	if err := s.pusher.Push(pushCtx, view.Recipient, view); err != nil {
		log.WithError(err).WithField("notification_id", view.ID.Hex()).Warn("Failed to push notification")
	}
}

func validateInput(in models.NotificationInput) error {
	switch {
	case in.Recipient == "":
		return errors.New("notification has no recipient")
	case !in.Type.Valid():
		return fmt.Errorf("unknown notification type %q", in.Type)
	case in.Title == "" || in.Message == "":
		return errors.New("notification needs a title and a message")
	}
	return nil
}

// enrich resolves the senders' public fields. Unknown senders are left nil.
func (s *NotificationService) enrich(ctx context.Context, notifications []models.Notification) []models.NotificationView {
	views := make([]models.NotificationView, len(notifications))

	ids := make([]string, 0, len(notifications))
	seen := make(map[string]struct{})
	for i, n := range notifications {
		views[i] = models.NotificationView{Notification: n}
		if n.Sender == "" {
			continue
		}
		if _, ok := seen[n.Sender]; !ok {
			seen[n.Sender] = struct{}{}
			ids = append(ids, n.Sender)
		}
	}
	if len(ids) == 0 || s.users == nil {
		return views
	}

	users, err := s.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		s.log.WithError(err).Warn("Failed to resolve notification senders")
		return views
	}
	senders := make(map[string]models.UserCompact, len(users))
	for i := range users {
		senders[users[i].ID] = users[i].ToCompact()
	}
	for i := range views {
		if sender, ok := senders[views[i].Notification.Sender]; ok {
			views[i].Sender = &sender
		}
	}
	return views
}
