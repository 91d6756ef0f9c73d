package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/devvault/backend/internal/apperrors"
	"github.com/devvault/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func notificationDoc(id primitive.ObjectID, recipient string, read bool) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "recipient", Value: recipient},
		{Key: "type", Value: "like"},
		{Key: "title", Value: "New like"},
		{Key: "message", Value: "Someone liked your resource"},
		{Key: "isRead", Value: read},
		{Key: "isEmailSent", Value: false},
		{Key: "createdAt", Value: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
	}
}

func TestMongoNotificationRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("create assigns id and unread state", func(mt *mtest.T) {
		repo := NewMongoNotificationRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		n := &models.Notification{Recipient: "u1", Type: models.NotificationLike, Title: "t", Message: "m", IsRead: true}
		require.NoError(mt, repo.CreateNotification(ctx, n))
		assert.False(mt, n.ID.IsZero())
		assert.False(mt, n.IsRead)
		assert.False(mt, n.CreatedAt.IsZero())
	})

	mt.Run("get by id", func(mt *mtest.T) {
		repo := NewMongoNotificationRepository(mt.DB)
		id := primitive.NewObjectID()
		ns := mt.DB.Name() + ".notifications"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, notificationDoc(id, "u1", false)))

		n, err := repo.GetByID(ctx, id.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, id, n.ID)
		assert.Equal(mt, "u1", n.Recipient)
		assert.Equal(mt, models.NotificationLike, n.Type)
	})

	mt.Run("get by id not found", func(mt *mtest.T) {
		repo := NewMongoNotificationRepository(mt.DB)
		ns := mt.DB.Name() + ".notifications"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := repo.GetByID(ctx, primitive.NewObjectID().Hex())
		assert.True(mt, apperrors.IsNotFound(err))
	})

	mt.Run("malformed id is not found without a round trip", func(mt *mtest.T) {
		repo := NewMongoNotificationRepository(mt.DB)

		_, err := repo.GetByID(ctx, "not-an-id")
		assert.True(mt, apperrors.IsNotFound(err))
		_, err = repo.MarkAsRead(ctx, "not-an-id")
		assert.True(mt, apperrors.IsNotFound(err))
		assert.True(mt, apperrors.IsNotFound(repo.DeleteNotification(ctx, "not-an-id")))
	})

	mt.Run("get by recipient returns page and total", func(mt *mtest.T) {
		repo := NewMongoNotificationRepository(mt.DB)
		ns := mt.DB.Name() + ".notifications"
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(3)}}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
				notificationDoc(primitive.NewObjectID(), "u1", false),
				notificationDoc(primitive.NewObjectID(), "u1", true),
			),
		)

		items, total, err := repo.GetByRecipient(ctx, "u1", 1, 2, false)
		require.NoError(mt, err)
		assert.EqualValues(mt, 3, total)
		assert.Len(mt, items, 2)
	})

	mt.Run("empty result is an empty slice", func(mt *mtest.T) {
		repo := NewMongoNotificationRepository(mt.DB)
		ns := mt.DB.Name() + ".notifications"
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		items, err := repo.GetCreatedBetween(ctx, "u1", time.Time{}, time.Now(), 0)
		require.NoError(mt, err)
		assert.NotNil(mt, items)
		assert.Empty(mt, items)
	})

	mt.Run("mark as read returns the updated document", func(mt *mtest.T) {
		repo := NewMongoNotificationRepository(mt.DB)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "value", Value: notificationDoc(id, "u1", true)},
		))

		n, err := repo.MarkAsRead(ctx, id.Hex())
		require.NoError(mt, err)
		assert.True(mt, n.IsRead)
	})

	mt.Run("mark all as read reports modified count", func(mt *mtest.T) {
		repo := NewMongoNotificationRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: int32(2)},
			bson.E{Key: "nModified", Value: int32(2)},
		))

		changed, err := repo.MarkAllAsRead(ctx, "u1")
		require.NoError(mt, err)
		assert.EqualValues(mt, 2, changed)
	})

	mt.Run("delete missing is not found", func(mt *mtest.T) {
		repo := NewMongoNotificationRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(0)}))

		err := repo.DeleteNotification(ctx, primitive.NewObjectID().Hex())
		assert.True(mt, apperrors.IsNotFound(err))
	})

	mt.Run("delete existing", func(mt *mtest.T) {
		repo := NewMongoNotificationRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(1)}))

		assert.NoError(mt, repo.DeleteNotification(ctx, primitive.NewObjectID().Hex()))
	})

	mt.Run("server error is passed through", func(mt *mtest.T) {
		repo := NewMongoNotificationRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    11000,
			Message: "duplicate key",
			Name:    "DuplicateKey",
		}))

		err := repo.CreateNotification(ctx, &models.Notification{Recipient: "u1", Type: models.NotificationLike, Title: "t", Message: "m"})
		require.Error(mt, err)
		assert.False(mt, apperrors.IsNotFound(err))
	})
}
