package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType tags what kind of event produced a notification
type NotificationType string

const (
	NotificationLike                      NotificationType = "like"
	NotificationReply                     NotificationType = "reply"
	NotificationMention                   NotificationType = "mention"
	NotificationAdminApproval             NotificationType = "admin_approval"
	NotificationAdminRejection            NotificationType = "admin_rejection"
	NotificationNewFollower               NotificationType = "new_follower"
	NotificationComment                   NotificationType = "comment"
	NotificationResourceApproved          NotificationType = "resource_approved"
	NotificationTutorialPublished         NotificationType = "tutorial_published"
	NotificationFeatureSuggestionApproved NotificationType = "feature_suggestion_approved"
	NotificationDiscussion                NotificationType = "discussion"
	NotificationDiscussionReply           NotificationType = "discussion_reply"
)

var notificationTypes = map[NotificationType]struct{}{
	NotificationLike:                      {},
	NotificationReply:                     {},
	NotificationMention:                   {},
	NotificationAdminApproval:             {},
	NotificationAdminRejection:            {},
	NotificationNewFollower:               {},
	NotificationComment:                   {},
	NotificationResourceApproved:          {},
	NotificationTutorialPublished:         {},
	NotificationFeatureSuggestionApproved: {},
	NotificationDiscussion:                {},
	NotificationDiscussionReply:           {},
}

// Valid reports whether t is one of the known notification types
func (t NotificationType) Valid() bool {
	_, ok := notificationTypes[t]
	return ok
}

// RelatedModel names the kind of entity a notification points at
type RelatedModel string

const (
	RelatedResource          RelatedModel = "Resource"
	RelatedTutorial          RelatedModel = "Tutorial"
	RelatedDiscussion        RelatedModel = "Discussion"
	RelatedFeatureSuggestion RelatedModel = "FeatureSuggestion"
	RelatedDoc               RelatedModel = "Doc"
)

// RelatedRef is a weak lookup hint to the object a notification concerns.
// It never implies ownership.
type RelatedRef struct {
	Model RelatedModel `json:"model" bson:"model"`
	ID    string       `json:"id,omitempty" bson:"id,omitempty"`
}

// NewRelatedRef builds a RelatedRef, rejecting unknown models. The id may be
// empty when only the kind of entity is known.
func NewRelatedRef(model RelatedModel, id string) (*RelatedRef, error) {
	switch model {
	case RelatedResource, RelatedTutorial, RelatedDiscussion, RelatedFeatureSuggestion, RelatedDoc:
	default:
		return nil, fmt.Errorf("unknown related model %q", model)
	}
	return &RelatedRef{Model: model, ID: id}, nil
}

// Notification is a message addressed to exactly one recipient (MongoDB)
type Notification struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Recipient string             `json:"recipient" bson:"recipient"`
	// Sender is empty for system generated notifications
	Sender  string           `json:"-" bson:"sender,omitempty"`
	Type    NotificationType `json:"type" bson:"type"`
	Title   string           `json:"title" bson:"title"`
	Message string           `json:"message" bson:"message"`
	Related *RelatedRef      `json:"related,omitempty" bson:"related,omitempty"`
	IsRead  bool             `json:"isRead" bson:"isRead"`
	// IsEmailSent is persisted for compatibility; nothing sends email yet
	IsEmailSent bool           `json:"isEmailSent" bson:"isEmailSent"`
	Metadata    map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt" bson:"updatedAt"`
}

// NotificationView is a notification with the sender's public fields resolved
type NotificationView struct {
	Notification
	Sender *UserCompact `json:"sender"`
}

// NotificationInput carries everything the producer needs to create a notification
type NotificationInput struct {
	Recipient string
	Sender    string
	Type      NotificationType
	Title     string
	Message   string
	Related   *RelatedRef
	Metadata  map[string]any
}

// ListNotificationsQuery defines the query parameters for listing notifications
type ListNotificationsQuery struct {
	Page       int  `query:"page"`
	Limit      int  `query:"limit"`
	UnreadOnly bool `query:"unreadOnly"`
}

// NotificationPage is one page of a recipient's notifications
type NotificationPage struct {
	Items []NotificationView
	Page  int
	Limit int
	Total int64
}

// TotalPages returns the number of pages available at the current limit
func (p NotificationPage) TotalPages() int {
	if p.Limit <= 0 {
		return 0
	}
	return int((p.Total + int64(p.Limit) - 1) / int64(p.Limit))
}

// HasNextPage reports whether another page follows this one
func (p NotificationPage) HasNextPage() bool {
	return p.Page < p.TotalPages()
}

// GroupedNotifications buckets notifications by age
type GroupedNotifications struct {
	Today     []NotificationView `json:"today"`
	Yesterday []NotificationView `json:"yesterday"`
	ThisWeek  []NotificationView `json:"thisWeek"`
	Older     []NotificationView `json:"older"`
}

// ModerationDecisionRequest defines the request body for the moderation hook
type ModerationDecisionRequest struct {
	Recipient    string `json:"recipient" validate:"required"`
	ContentType  string `json:"contentType" validate:"required,oneof=resource tutorial discussion feature doc"`
	ContentTitle string `json:"contentTitle" validate:"required,max=200"`
	ContentID    string `json:"contentId,omitempty"`
	Approved     bool   `json:"approved"`
}
