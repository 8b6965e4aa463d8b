// Package notifications turns domain events into in-app notifications and
// delivers them by push and websocket.
package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/pliiiz/pliiiz/internal/events"
	"github.com/pliiiz/pliiiz/internal/pubsub"
	"github.com/pliiiz/pliiiz/internal/push"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

const (
	// Retention is how long read notifications are kept.
	Retention = 90 * 24 * time.Hour

	defaultPageSize = 20
	maxPageSize     = 100
)

// Page selects a window of the notification list. Page numbers start at 1.
type Page struct {
	UnreadOnly bool `query:"unread"`
	Page       int  `query:"page" validate:"gte=0"`
	Limit      int  `query:"limit" validate:"gte=0,lte=100"`
}

func (p Page) window() (limit, offset int) {
	limit = p.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	page := p.Page
	if page < 1 {
		page = 1
	}
	return limit, (page - 1) * limit
}

// DeviceInput is the body of POST /app/push/devices.
type DeviceInput struct {
	Token    string `json:"token" validate:"required,min=8,max=512"`
	Platform string `json:"platform" validate:"required,oneof=web ios android"`
}

// DispatchInput is the body of POST /functions/push/dispatch.
type DispatchInput struct {
	UserID string            `json:"user_id" validate:"required"`
	Title  string            `json:"title" validate:"required,max=120"`
	Body   string            `json:"body" validate:"max=500"`
	Data   map[string]string `json:"data,omitempty"`
}

// DispatchResult summarises a push dispatch.
type DispatchResult struct {
	Devices int    `json:"devices"`
	Removed int    `json:"removed"`
	ID      string `json:"id,omitempty"`
}

// Service implements notification operations.
type Service struct {
	repo      domain.NotificationRepository
	devices   domain.PushDeviceRepository
	push      push.Sender
	publisher pubsub.Publisher
	now       func() time.Time
}

// NewService creates a Service.
func NewService(repo domain.NotificationRepository, devices domain.PushDeviceRepository, sender push.Sender, pub pubsub.Publisher) *Service {
	return &Service{repo: repo, devices: devices, push: sender, publisher: pub, now: time.Now}
}

// Notify stores n and announces it on the bus for push and realtime
// delivery.
func (s *Service) Notify(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	created, err := s.repo.Create(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("store notification: %w", err)
	}
	at := s.now().UTC()
	if created.CreatedAt != nil {
		at = created.CreatedAt.Time
	}
	recipient := domain.IDString(created.Recipient)
	err = pubsub.Publish(ctx, s.publisher, events.NotificationPublished, recipient, events.NotificationCreated{
		ID:        domain.IDString(created.ID),
		Recipient: recipient,
		Type:      string(created.Type),
		Title:     created.Title,
		Body:      created.Body,
		Data:      created.Data,
		CreatedAt: at,
	})
	if err != nil {
		slog.WarnContext(ctx, "Failed to publish notification", "id", domain.IDString(created.ID), "error", err)
	}
	return created, nil
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, user *surrealmodels.RecordID, p Page) ([]*domain.Notification, error) {
	limit, offset := p.window()
	out, err := s.repo.ListByRecipient(ctx, user, p.UnreadOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*domain.Notification{}
	}
	return out, nil
}

// UnreadCount returns the number of unread notifications.
func (s *Service) UnreadCount(ctx context.Context, user *surrealmodels.RecordID) (int, error) {
	return s.repo.CountUnread(ctx, user)
}

func (s *Service) owned(ctx context.Context, user *surrealmodels.RecordID, rawID string) (*domain.Notification, error) {
	id, err := domain.ParseID(domain.TableNotification, rawID)
	if err != nil {
		return nil, err
	}
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.SameID(n.Recipient, user) {
		// Other users' notifications do not exist as far as the caller knows.
		return nil, fmt.Errorf("%w: notification", domain.ErrNotFound)
	}
	return n, nil
}

// MarkRead marks one notification as read.
func (s *Service) MarkRead(ctx context.Context, user *surrealmodels.RecordID, rawID string) error {
	n, err := s.owned(ctx, user, rawID)
	if err != nil {
		return err
	}
	return s.repo.MarkRead(ctx, n.ID)
}

// MarkAllRead marks every unread notification of user as read.
func (s *Service) MarkAllRead(ctx context.Context, user *surrealmodels.RecordID) (int, error) {
	return s.repo.MarkAllRead(ctx, user)
}

// Delete removes one notification.
func (s *Service) Delete(ctx context.Context, user *surrealmodels.RecordID, rawID string) error {
	n, err := s.owned(ctx, user, rawID)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, n.ID)
}

// Prune deletes read notifications older than Retention.
func (s *Service) Prune(ctx context.Context) (int, error) {
	n, err := s.repo.PruneRead(ctx, s.now().Add(-Retention))
	if err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "Pruned read notifications", "event", "notifications_prune", "count", n)
	return n, nil
}

// RegisterDevice stores a push token for user.
func (s *Service) RegisterDevice(ctx context.Context, user *surrealmodels.RecordID, in DeviceInput) (*domain.PushDevice, error) {
	return s.devices.Upsert(ctx, &domain.PushDevice{Owner: user, Token: in.Token, Platform: in.Platform})
}

// RemoveDevice forgets a push token of user.
func (s *Service) RemoveDevice(ctx context.Context, user *surrealmodels.RecordID, token string) error {
	return s.devices.Delete(ctx, user, token)
}

// Dispatch pushes msg to every device of user. Tokens the provider rejects
// as invalid are removed.
func (s *Service) Dispatch(ctx context.Context, user *surrealmodels.RecordID, msg push.Message) (*DispatchResult, error) {
	devices, err := s.devices.ListByUser(ctx, user)
	if err != nil {
		return nil, err
	}
	res := &DispatchResult{Devices: len(devices)}
	if len(devices) == 0 {
		return res, nil
	}
	tokens := make([]string, 0, len(devices))
	for _, d := range devices {
		tokens = append(tokens, d.Token)
	}

	sent, err := s.push.Send(ctx, tokens, msg)
	if err != nil {
		return nil, err
	}
	res.ID = sent.ID
	for _, t := range sent.InvalidTokens {
		if err := s.devices.Delete(ctx, user, t); err != nil {
			slog.WarnContext(ctx, "Failed to drop invalid push token", "error", err)
			continue
		}
		res.Removed++
	}
	return res, nil
}

// DispatchTo is the admin dispatch function.
func (s *Service) DispatchTo(ctx context.Context, in DispatchInput) (*DispatchResult, error) {
	if err := domain.Validate(&in); err != nil {
		return nil, err
	}
	id, err := domain.ParseID(domain.TableUser, in.UserID)
	if err != nil {
		return nil, err
	}
	return s.Dispatch(ctx, id, push.Message{Title: in.Title, Body: in.Body, Data: in.Data})
}
