package domain

import (
	"context"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// NotificationType identifies what triggered a notification.
type NotificationType string

const (
	NotificationContactRequest  NotificationType = "contact_request"
	NotificationContactAccepted NotificationType = "contact_accepted"
	NotificationGiftOffered     NotificationType = "gift_offered"
	NotificationImageReady      NotificationType = "image_ready"
)

// Notification is an in-app message addressed to a single user.
type Notification struct {
	ID        *surrealmodels.RecordID       `json:"id,omitempty"`
	Recipient *surrealmodels.RecordID       `json:"recipient"`
	Type      NotificationType              `json:"type"`
	Title     string                        `json:"title"`
	Body      string                        `json:"body"`
	Data      map[string]string             `json:"data,omitempty"`
	ReadAt    *surrealmodels.CustomDateTime `json:"read_at,omitempty"`
	CreatedAt *surrealmodels.CustomDateTime `json:"created_at,omitempty"`
}

// IsRead reports whether the notification has been marked as read.
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil && !n.ReadAt.Time.IsZero()
}

// NotificationRepository defines storage operations for notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) (*Notification, error)
	FindByID(ctx context.Context, id *surrealmodels.RecordID) (*Notification, error)
	// ListByRecipient returns notifications newest first.
	ListByRecipient(ctx context.Context, recipient *surrealmodels.RecordID, unreadOnly bool, limit, offset int) ([]*Notification, error)
	CountUnread(ctx context.Context, recipient *surrealmodels.RecordID) (int, error)
	MarkRead(ctx context.Context, id *surrealmodels.RecordID) error
	MarkAllRead(ctx context.Context, recipient *surrealmodels.RecordID) (int, error)
	Delete(ctx context.Context, id *surrealmodels.RecordID) error
	// PruneRead deletes read notifications created before the cutoff.
	PruneRead(ctx context.Context, before time.Time) (int, error)
}

// PushDevice is a push-notification target registered by a client.
type PushDevice struct {
	ID        *surrealmodels.RecordID       `json:"id,omitempty"`
	Owner     *surrealmodels.RecordID       `json:"owner"`
	Token     string                        `json:"token" validate:"required,min=8,max=512"`
	Platform  string                        `json:"platform" validate:"required,oneof=web ios android"`
	CreatedAt *surrealmodels.CustomDateTime `json:"created_at,omitempty"`
}

// PushDeviceRepository defines storage operations for push devices.
type PushDeviceRepository interface {
	// Upsert registers the token for the user, moving it if another user
	// previously held it.
	Upsert(ctx context.Context, d *PushDevice) (*PushDevice, error)
	ListByUser(ctx context.Context, user *surrealmodels.RecordID) ([]*PushDevice, error)
	Delete(ctx context.Context, user *surrealmodels.RecordID, token string) error
}
