package database

import (
	"context"
	"fmt"
	"time"

	"github.com/pliiiz/pliiiz/internal/config"
	"github.com/pliiiz/pliiiz/internal/domain"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

var _ domain.NotificationRepository = (*NotificationStore)(nil)

// NotificationStore implements domain.NotificationRepository.
type NotificationStore struct {
	client Client[domain.Notification]
	counts Client[countRow]
}

// NewNotificationStore creates a notification repository.
func NewNotificationStore(conn DBConnection, cfg config.Provider) (*NotificationStore, error) {
	c, err := NewClient[domain.Notification](conn, cfg)
	if err != nil {
		return nil, err
	}
	counts, err := NewClient[countRow](conn, cfg)
	if err != nil {
		return nil, err
	}
	return &NotificationStore{client: c, counts: counts}, nil
}

func (s *NotificationStore) Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	if n.Recipient == nil {
		return nil, fmt.Errorf("%w: notification recipient is required", domain.ErrInvalidInput)
	}
	created, err := s.client.Create(ctx, domain.TableNotification, map[string]any{
		"recipient":  n.Recipient,
		"type":       string(n.Type),
		"title":      n.Title,
		"body":       n.Body,
		"data":       n.Data,
		"read_at":    nil,
		"created_at": now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	return created, nil
}

func (s *NotificationStore) FindByID(ctx context.Context, id *surrealmodels.RecordID) (*domain.Notification, error) {
	n, err := s.client.QueryOne(ctx, "SELECT * FROM $id", map[string]any{"id": id})
	if err != nil {
		return nil, toDomainErr(err)
	}
	return notFoundIfNil(n, "notification")
}

func (s *NotificationStore) ListByRecipient(ctx context.Context, recipient *surrealmodels.RecordID, unreadOnly bool, limit, offset int) ([]*domain.Notification, error) {
	if limit <= 0 || limit > domain.MaxPageSize {
		limit = domain.DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	query := "SELECT * FROM notification WHERE recipient = $recipient"
	if unreadOnly {
		query += " AND read_at = NONE"
	}
	query += " ORDER BY created_at DESC LIMIT $limit START $offset"

	rows, err := s.client.Query(ctx, query, map[string]any{"recipient": recipient, "limit": limit, "offset": offset})
	if err != nil {
		return nil, toDomainErr(err)
	}
	out := make([]*domain.Notification, 0, len(rows))
	for i := range rows {
		out = append(out, &rows[i])
	}
	return out, nil
}

func (s *NotificationStore) CountUnread(ctx context.Context, recipient *surrealmodels.RecordID) (int, error) {
	row, err := s.counts.QueryOne(ctx,
		"SELECT count() AS count FROM notification WHERE recipient = $recipient AND read_at = NONE GROUP ALL",
		map[string]any{"recipient": recipient})
	if err != nil {
		return 0, toDomainErr(err)
	}
	if row == nil {
		return 0, nil
	}
	return row.Count, nil
}

func (s *NotificationStore) MarkRead(ctx context.Context, id *surrealmodels.RecordID) error {
	n, err := s.client.QueryOne(ctx,
		"UPDATE $id SET read_at = time::now() WHERE read_at = NONE RETURN AFTER",
		map[string]any{"id": id})
	if err != nil {
		return toDomainErr(err)
	}
	if n == nil {
		// Already read or missing; only the latter is an error.
		_, err := s.FindByID(ctx, id)
		return err
	}
	return nil
}

func (s *NotificationStore) MarkAllRead(ctx context.Context, recipient *surrealmodels.RecordID) (int, error) {
	rows, err := s.client.Query(ctx,
		"UPDATE notification SET read_at = time::now() WHERE recipient = $recipient AND read_at = NONE RETURN id",
		map[string]any{"recipient": recipient})
	if err != nil {
		return 0, toDomainErr(err)
	}
	return len(rows), nil
}

func (s *NotificationStore) Delete(ctx context.Context, id *surrealmodels.RecordID) error {
	return toDomainErr(s.client.Execute(ctx, "DELETE $id", map[string]any{"id": id}))
}

func (s *NotificationStore) PruneRead(ctx context.Context, before time.Time) (int, error) {
	rows, err := s.client.Query(ctx,
		"DELETE notification WHERE read_at != NONE AND created_at < $before RETURN BEFORE",
		map[string]any{"before": datetime(before)})
	if err != nil {
		return 0, toDomainErr(err)
	}
	return len(rows), nil
}
