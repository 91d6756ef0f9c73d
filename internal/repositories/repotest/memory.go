// Package repotest provides in-memory repositories for tests.
package repotest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/devvault/backend/internal/apperrors"
	"github.com/devvault/backend/internal/models"
	"github.com/devvault/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrInjected is returned by repositories configured to fail
var ErrInjected = errors.New("injected failure")

var (
	_ repositories.NotificationRepository = (*NotificationRepository)(nil)
	_ repositories.UserRepository         = (*UserRepository)(nil)
)

// NotificationRepository is an in-memory repositories.NotificationRepository
type NotificationRepository struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]models.Notification
	// Now stamps created notifications; defaults to time.Now
	Now func() time.Time
	// Fail makes every call return ErrInjected
	Fail bool
}

func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{
		items: make(map[primitive.ObjectID]models.Notification),
		Now:   time.Now,
	}
}

func (r *NotificationRepository) CreateNotification(_ context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return ErrInjected
	}
	now := r.Now().UTC()
	n.ID = primitive.NewObjectID()
	n.IsRead = false
	n.IsEmailSent = false
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now
	r.items[n.ID] = *n
	return nil
}

// Insert stores n as-is, keeping its read flag and timestamps, and returns its id
func (r *NotificationRepository) Insert(n models.Notification) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.Now().UTC()
	}
	r.items[n.ID] = n
	return n.ID.Hex()
}

func (r *NotificationRepository) GetByID(_ context.Context, id string) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return nil, ErrInjected
	}
	n, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepository) GetByRecipient(_ context.Context, recipient string, page, limit int, unreadOnly bool) ([]models.Notification, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return nil, 0, ErrInjected
	}
	all := r.filter(func(n models.Notification) bool {
		return n.Recipient == recipient && (!unreadOnly || !n.IsRead)
	})
	total := int64(len(all))

	start := (page - 1) * limit
	if start >= len(all) {
		return []models.Notification{}, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *NotificationRepository) GetCreatedBetween(_ context.Context, recipient string, from, to time.Time, limit int) ([]models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return nil, ErrInjected
	}
	out := r.filter(func(n models.Notification) bool {
		if n.Recipient != recipient {
			return false
		}
		if !from.IsZero() && n.CreatedAt.Before(from) {
			return false
		}
		if !to.IsZero() && !n.CreatedAt.Before(to) {
			return false
		}
		return true
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *NotificationRepository) GetUnreadCount(_ context.Context, recipient string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return 0, ErrInjected
	}
	return int64(len(r.filter(func(n models.Notification) bool {
		return n.Recipient == recipient && !n.IsRead
	}))), nil
}

func (r *NotificationRepository) MarkAsRead(_ context.Context, id string) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return nil, ErrInjected
	}
	n, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	n.IsRead = true
	n.UpdatedAt = r.Now().UTC()
	r.items[n.ID] = n
	return &n, nil
}

func (r *NotificationRepository) MarkAllAsRead(_ context.Context, recipient string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return 0, ErrInjected
	}
	var changed int64
	for id, n := range r.items {
		if n.Recipient == recipient && !n.IsRead {
			n.IsRead = true
			r.items[id] = n
			changed++
		}
	}
	return changed, nil
}

func (r *NotificationRepository) DeleteNotification(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail {
		return ErrInjected
	}
	n, err := r.lookup(id)
	if err != nil {
		return err
	}
	delete(r.items, n.ID)
	return nil
}

// All returns every stored notification, newest first
func (r *NotificationRepository) All() []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filter(func(models.Notification) bool { return true })
}

func (r *NotificationRepository) lookup(id string) (models.Notification, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Notification{}, fmt.Errorf("invalid notification ID %q: %w", id, apperrors.ErrNotFound)
	}
	n, ok := r.items[objID]
	if !ok {
		return models.Notification{}, fmt.Errorf("notification %s: %w", id, apperrors.ErrNotFound)
	}
	return n, nil
}

func (r *NotificationRepository) filter(keep func(models.Notification) bool) []models.Notification {
	out := []models.Notification{}
	for _, n := range r.items {
		if keep(n) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.Hex() > out[j].ID.Hex()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// UserRepository is an in-memory repositories.UserRepository
type UserRepository struct {
	mu    sync.Mutex
	users map[string]models.User
	seq   int
}

func NewUserRepository(users ...models.User) *UserRepository {
	r := &UserRepository{users: make(map[string]models.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *UserRepository) CreateUser(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == "" {
		r.seq++
		user.ID = fmt.Sprintf("user-%d", r.seq)
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	r.users[user.ID] = *user
	return nil
}

func (r *UserRepository) GetUserByID(_ context.Context, id string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.ID == id })
}

func (r *UserRepository) GetUsersByIDs(_ context.Context, ids []string) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.User
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *UserRepository) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.Email == email })
}

func (r *UserRepository) GetUserByFirebaseUID(_ context.Context, firebaseUID string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.FirebaseUID != nil && *u.FirebaseUID == firebaseUID })
}

func (r *UserRepository) UpdateUser(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return fmt.Errorf("user: %w", apperrors.ErrNotFound)
	}
	r.users[user.ID] = *user
	return nil
}

func (r *UserRepository) find(match func(models.User) bool) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user: %w", apperrors.ErrNotFound)
}
