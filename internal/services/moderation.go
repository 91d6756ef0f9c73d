package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/devvault/backend/internal/models"
)

// Content kinds an admin can moderate
const (
	ContentResource   = "resource"
	ContentTutorial   = "tutorial"
	ContentDiscussion = "discussion"
	ContentFeature    = "feature"
	ContentDoc        = "doc"
)

type moderationTemplate struct {
	label   string
	related models.RelatedModel
}

var moderationTemplates = map[string]moderationTemplate{
	ContentResource:   {label: "Resource", related: models.RelatedResource},
	ContentTutorial:   {label: "Tutorial", related: models.RelatedTutorial},
	ContentDiscussion: {label: "Discussion", related: models.RelatedDiscussion},
	ContentFeature:    {label: "Feature Suggestion", related: models.RelatedFeatureSuggestion},
	ContentDoc:        {label: "Documentation", related: models.RelatedDoc},
}

// ModerationDecision describes an admin's verdict on submitted content
type ModerationDecision struct {
	Recipient    string
	Admin        string
	ContentType  string
	ContentTitle string
	ContentID    string
	Approved     bool
}

// ModerationInput renders the canned notification for a moderation decision
func ModerationInput(d ModerationDecision) (models.NotificationInput, error) {
	tmpl, ok := moderationTemplates[d.ContentType]
	if !ok {
		return models.NotificationInput{}, fmt.Errorf("unknown content type %q", d.ContentType)
	}
	related, err := models.NewRelatedRef(tmpl.related, d.ContentID)
	if err != nil {
		return models.NotificationInput{}, err
	}

	noun := strings.ToLower(tmpl.label)
	in := models.NotificationInput{
		Recipient: d.Recipient,
		Sender:    d.Admin,
		Related:   related,
		Metadata:  map[string]any{"contentType": d.ContentType, "contentTitle": d.ContentTitle},
	}
	if d.Approved {
		in.Type = models.NotificationAdminApproval
		in.Title = tmpl.label + " Approved"
		in.Message = fmt.Sprintf("Your %s %q has been approved and is now live.", noun, d.ContentTitle)
	} else {
		in.Type = models.NotificationAdminRejection
		in.Title = tmpl.label + " Rejected"
		in.Message = fmt.Sprintf("Your %s %q was not approved. Please review the guidelines and resubmit.", noun, d.ContentTitle)
	}
	return in, nil
}

// NotifyModeration sends the canned approval or rejection notification.
// Like Create, it returns nil instead of failing.
func (s *NotificationService) NotifyModeration(ctx context.Context, d ModerationDecision) *models.NotificationView {
	in, err := ModerationInput(d)
	if err != nil {
		s.log.WithError(err).WithField("recipient", d.Recipient).Error("Cannot render moderation notification")
		return nil
	}
	return s.Create(ctx, in)
}

// NotifyApproval is the approval shorthand used by content workflows
func (s *NotificationService) NotifyApproval(ctx context.Context, recipient, contentType, contentTitle string) *models.NotificationView {
	return s.NotifyModeration(ctx, ModerationDecision{
		Recipient:    recipient,
		ContentType:  contentType,
		ContentTitle: contentTitle,
		Approved:     true,
	})
}
