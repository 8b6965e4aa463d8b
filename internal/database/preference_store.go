package database

import (
	"context"
	"fmt"

	"github.com/pliiiz/pliiiz/internal/config"
	"github.com/pliiiz/pliiiz/internal/domain"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

var _ domain.PreferenceRepository = (*PreferenceStore)(nil)

// PreferenceStore implements domain.PreferenceRepository.
type PreferenceStore struct {
	client Client[domain.PreferenceItem]
}

// NewPreferenceStore creates a preference repository.
func NewPreferenceStore(conn DBConnection, cfg config.Provider) (*PreferenceStore, error) {
	c, err := NewClient[domain.PreferenceItem](conn, cfg)
	if err != nil {
		return nil, err
	}
	return &PreferenceStore{client: c}, nil
}

func (s *PreferenceStore) Create(ctx context.Context, item *domain.PreferenceItem) (*domain.PreferenceItem, error) {
	if err := item.Validate(); err != nil {
		return nil, err
	}
	ts := now()
	created, err := s.client.Create(ctx, domain.TablePreference, map[string]any{
		"owner":      item.Owner,
		"section":    string(item.Section),
		"label":      item.Label,
		"value":      item.Value,
		"visibility": string(item.Visibility),
		"position":   item.Position,
		"created_at": ts,
		"updated_at": ts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create preference: %w", err)
	}
	return created, nil
}

func (s *PreferenceStore) FindByID(ctx context.Context, id *surrealmodels.RecordID) (*domain.PreferenceItem, error) {
	item, err := s.client.QueryOne(ctx, "SELECT * FROM $id", map[string]any{"id": id})
	if err != nil {
		return nil, toDomainErr(err)
	}
	return notFoundIfNil(item, "preference")
}

func (s *PreferenceStore) ListByOwner(ctx context.Context, owner *surrealmodels.RecordID) ([]*domain.PreferenceItem, error) {
	rows, err := s.client.Query(ctx,
		"SELECT * FROM preference WHERE owner = $owner ORDER BY section ASC, position ASC, created_at ASC",
		map[string]any{"owner": owner})
	if err != nil {
		return nil, toDomainErr(err)
	}
	out := make([]*domain.PreferenceItem, 0, len(rows))
	for i := range rows {
		out = append(out, &rows[i])
	}
	return out, nil
}

func (s *PreferenceStore) Update(ctx context.Context, id *surrealmodels.RecordID, fields map[string]any) (*domain.PreferenceItem, error) {
	data := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		data[k] = v
	}
	data["updated_at"] = now()
	item, err := s.client.Update(ctx, id.String(), data)
	if err != nil {
		return nil, toDomainErr(err)
	}
	return item, nil
}

func (s *PreferenceStore) Delete(ctx context.Context, id *surrealmodels.RecordID) error {
	return toDomainErr(s.client.Delete(ctx, id.String()))
}

func (s *PreferenceStore) SetPosition(ctx context.Context, id *surrealmodels.RecordID, position int) error {
	return toDomainErr(s.client.Execute(ctx, "UPDATE $id SET position = $position, updated_at = time::now()",
		map[string]any{"id": id, "position": position}))
}
