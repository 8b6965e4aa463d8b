package database

import (
	"context"
	"fmt"

	"github.com/pliiiz/pliiiz/internal/config"
	"github.com/pliiiz/pliiiz/internal/domain"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

var _ domain.PushDeviceRepository = (*PushDeviceStore)(nil)

// PushDeviceStore implements domain.PushDeviceRepository.
type PushDeviceStore struct {
	client Client[domain.PushDevice]
}

// NewPushDeviceStore creates a push device repository.
func NewPushDeviceStore(conn DBConnection, cfg config.Provider) (*PushDeviceStore, error) {
	c, err := NewClient[domain.PushDevice](conn, cfg)
	if err != nil {
		return nil, err
	}
	return &PushDeviceStore{client: c}, nil
}

// Upsert keeps one row per token. A token re-registered by another user
// moves to that user.
func (s *PushDeviceStore) Upsert(ctx context.Context, d *domain.PushDevice) (*domain.PushDevice, error) {
	if err := domain.Validate(d); err != nil {
		return nil, err
	}
	existing, err := s.client.QueryOne(ctx, "SELECT * FROM push_device WHERE token = $token", map[string]any{"token": d.Token})
	if err != nil {
		return nil, toDomainErr(err)
	}
	if existing != nil {
		updated, err := s.client.QueryOne(ctx,
			"UPDATE $id SET owner = $owner, platform = $platform RETURN AFTER",
			map[string]any{"id": existing.ID, "owner": d.Owner, "platform": d.Platform})
		if err != nil {
			return nil, toDomainErr(err)
		}
		return notFoundIfNil(updated, "push device")
	}

	created, err := s.client.Create(ctx, domain.TablePushDevice, map[string]any{
		"owner":      d.Owner,
		"token":      d.Token,
		"platform":   d.Platform,
		"created_at": now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register push device: %w", err)
	}
	return created, nil
}

func (s *PushDeviceStore) ListByUser(ctx context.Context, user *surrealmodels.RecordID) ([]*domain.PushDevice, error) {
	rows, err := s.client.Query(ctx, "SELECT * FROM push_device WHERE owner = $owner", map[string]any{"owner": user})
	if err != nil {
		return nil, toDomainErr(err)
	}
	out := make([]*domain.PushDevice, 0, len(rows))
	for i := range rows {
		out = append(out, &rows[i])
	}
	return out, nil
}

func (s *PushDeviceStore) Delete(ctx context.Context, user *surrealmodels.RecordID, token string) error {
	return toDomainErr(s.client.Execute(ctx,
		"DELETE push_device WHERE owner = $owner AND token = $token",
		map[string]any{"owner": user, "token": token}))
}
