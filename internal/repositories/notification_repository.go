package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/devvault/backend/internal/apperrors"
	"github.com/devvault/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	GetByRecipient(ctx context.Context, recipient string, page, limit int, unreadOnly bool) ([]models.Notification, int64, error)
	GetCreatedBetween(ctx context.Context, recipient string, from, to time.Time, limit int) ([]models.Notification, error)
	GetUnreadCount(ctx context.Context, recipient string) (int64, error)
	MarkAsRead(ctx context.Context, id string) (*models.Notification, error)
	MarkAllAsRead(ctx context.Context, recipient string) (int64, error)
	DeleteNotification(ctx context.Context, id string) error
}

// MongoNotificationRepository implements NotificationRepository for MongoDB
type MongoNotificationRepository struct {
	collection *mongo.Collection
}

// NewMongoNotificationRepository creates a new MongoNotificationRepository
func NewMongoNotificationRepository(db *mongo.Database) *MongoNotificationRepository {
	return &MongoNotificationRepository{collection: db.Collection("notifications")}
}

// EnsureIndexes creates the indexes used by the recipient scoped queries
func (r *MongoNotificationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "isRead", Value: 1}}},
	})
	return err
}

// CreateNotification inserts a new notification and assigns its ID and timestamps
func (r *MongoNotificationRepository) CreateNotification(ctx context.Context, notification *models.Notification) error {
	now := time.Now().UTC()
	notification.ID = primitive.NewObjectID()
	notification.IsRead = false
	notification.IsEmailSent = false
	notification.CreatedAt = now
	notification.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, notification)
	return err
}

// GetByID retrieves a notification by ID
func (r *MongoNotificationRepository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	objID, err := parseNotificationID(id)
	if err != nil {
		return nil, err
	}

	var notification models.Notification
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&notification)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("notification %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &notification, nil
}

// GetByRecipient returns one page of the recipient's notifications, newest first, and the total
func (r *MongoNotificationRepository) GetByRecipient(ctx context.Context, recipient string, page, limit int, unreadOnly bool) ([]models.Notification, int64, error) {
	filter := bson.M{"recipient": recipient}
	if unreadOnly {
		filter["isRead"] = false
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	skip := int64((page - 1) * limit)
	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(skip).
		SetLimit(int64(limit))
	notifications, err := r.find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

// GetCreatedBetween returns the recipient's notifications created in [from, to), newest first.
// A zero from or to leaves that side open; a limit of 0 means no limit.
func (r *MongoNotificationRepository) GetCreatedBetween(ctx context.Context, recipient string, from, to time.Time, limit int) ([]models.Notification, error) {
	created := bson.M{}
	if !from.IsZero() {
		created["$gte"] = from
	}
	if !to.IsZero() {
		created["$lt"] = to
	}
	filter := bson.M{"recipient": recipient}
	if len(created) > 0 {
		filter["createdAt"] = created
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		findOptions.SetLimit(int64(limit))
	}
	return r.find(ctx, filter, findOptions)
}

// GetUnreadCount counts the recipient's unread notifications
func (r *MongoNotificationRepository) GetUnreadCount(ctx context.Context, recipient string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"recipient": recipient, "isRead": false})
}

// MarkAsRead flags a notification as read and returns the updated document
func (r *MongoNotificationRepository) MarkAsRead(ctx context.Context, id string) (*models.Notification, error) {
	objID, err := parseNotificationID(id)
	if err != nil {
		return nil, err
	}

	update := bson.M{"$set": bson.M{"isRead": true, "updatedAt": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var notification models.Notification
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objID}, update, opts).Decode(&notification)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("notification %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, err
	}
	return &notification, nil
}

// MarkAllAsRead flags every unread notification of the recipient and returns how many changed
func (r *MongoNotificationRepository) MarkAllAsRead(ctx context.Context, recipient string) (int64, error) {
	res, err := r.collection.UpdateMany(ctx,
		bson.M{"recipient": recipient, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// DeleteNotification removes a notification permanently
func (r *MongoNotificationRepository) DeleteNotification(ctx context.Context, id string) error {
	objID, err := parseNotificationID(id)
	if err != nil {
		return err
	}

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("notification %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

func (r *MongoNotificationRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Notification, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	notifications := []models.Notification{}
	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// parseNotificationID maps malformed ids to not found, since they cannot resolve to a record
func parseNotificationID(id string) (primitive.ObjectID, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid notification ID %q: %w", id, apperrors.ErrNotFound)
	}
	return objID, nil
}
