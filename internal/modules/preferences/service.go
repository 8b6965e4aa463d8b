// Package preferences manages the sized, liked and disliked things a user
// shares with their contacts.
package preferences

import (
	"context"
	"fmt"

	"github.com/pliiiz/pliiiz/internal/domain"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// CreateInput is the body of POST /app/preferences.
type CreateInput struct {
	Section    domain.Section    `json:"section" validate:"required,section"`
	Label      string            `json:"label" validate:"required,min=1,max=120"`
	Value      string            `json:"value" validate:"max=500"`
	Visibility domain.Visibility `json:"visibility" validate:"omitempty,visibility"`
}

// UpdateInput is the body of PATCH /app/preferences/:id.
type UpdateInput struct {
	Section    *domain.Section    `json:"section,omitempty" validate:"omitempty,section"`
	Label      *string            `json:"label,omitempty" validate:"omitempty,min=1,max=120"`
	Value      *string            `json:"value,omitempty" validate:"omitempty,max=500"`
	Visibility *domain.Visibility `json:"visibility,omitempty" validate:"omitempty,visibility"`
}

func (u UpdateInput) fields() map[string]any {
	fields := map[string]any{}
	if u.Section != nil {
		fields["section"] = string(*u.Section)
	}
	if u.Label != nil {
		fields["label"] = *u.Label
	}
	if u.Value != nil {
		fields["value"] = *u.Value
	}
	if u.Visibility != nil {
		fields["visibility"] = string(*u.Visibility)
	}
	return fields
}

// ReorderInput is the body of PUT /app/preferences/order. IDs lists every
// item of the section in its new order.
type ReorderInput struct {
	Section domain.Section `json:"section" validate:"required,section"`
	IDs     []string       `json:"ids" validate:"required,min=1,max=200,dive,required"`
}

// Service implements preference operations.
type Service struct {
	repo domain.PreferenceRepository
}

// NewService creates a Service.
func NewService(repo domain.PreferenceRepository) *Service {
	return &Service{repo: repo}
}

// List returns the owner's items ordered by section and position.
func (s *Service) List(ctx context.Context, owner *surrealmodels.RecordID) ([]*domain.PreferenceItem, error) {
	return s.repo.ListByOwner(ctx, owner)
}

// Create appends an item at the end of its section. Visibility defaults to
// contacts.
func (s *Service) Create(ctx context.Context, owner *surrealmodels.RecordID, in CreateInput) (*domain.PreferenceItem, error) {
	if in.Visibility == "" {
		in.Visibility = domain.VisibilityContacts
	}
	position, err := s.nextPosition(ctx, owner, in.Section)
	if err != nil {
		return nil, err
	}
	item := &domain.PreferenceItem{
		Owner:      owner,
		Section:    in.Section,
		Label:      in.Label,
		Value:      in.Value,
		Visibility: in.Visibility,
		Position:   position,
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, item)
}

func (s *Service) nextPosition(ctx context.Context, owner *surrealmodels.RecordID, section domain.Section) (int, error) {
	items, err := s.repo.ListByOwner(ctx, owner)
	if err != nil {
		return 0, err
	}
	position := 0
	for _, it := range items {
		if it.Section == section && it.Position >= position {
			position = it.Position + 1
		}
	}
	return position, nil
}

// owned loads an item and checks that owner owns it.
func (s *Service) owned(ctx context.Context, owner *surrealmodels.RecordID, rawID string) (*domain.PreferenceItem, error) {
	id, err := domain.ParseID(domain.TablePreference, rawID)
	if err != nil {
		return nil, err
	}
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.SameID(item.Owner, owner) {
		return nil, fmt.Errorf("%w: not your preference", domain.ErrForbidden)
	}
	return item, nil
}

// Update edits an item.
func (s *Service) Update(ctx context.Context, owner *surrealmodels.RecordID, rawID string, in UpdateInput) (*domain.PreferenceItem, error) {
	if err := domain.Validate(&in); err != nil {
		return nil, err
	}
	item, err := s.owned(ctx, owner, rawID)
	if err != nil {
		return nil, err
	}
	fields := in.fields()
	if len(fields) == 0 {
		return item, nil
	}
	if in.Section != nil && *in.Section != item.Section {
		end, err := s.nextPosition(ctx, owner, *in.Section)
		if err != nil {
			return nil, err
		}
		fields["position"] = end
	}
	return s.repo.Update(ctx, item.ID, fields)
}

// Delete removes an item.
func (s *Service) Delete(ctx context.Context, owner *surrealmodels.RecordID, rawID string) error {
	item, err := s.owned(ctx, owner, rawID)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, item.ID)
}

// Reorder sets positions 0..n-1 in the order given. The ids must name
// every item owner has in the section, each exactly once.
func (s *Service) Reorder(ctx context.Context, owner *surrealmodels.RecordID, in ReorderInput) ([]*domain.PreferenceItem, error) {
	if err := domain.Validate(&in); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(in.IDs))
	ordered := make([]*domain.PreferenceItem, 0, len(in.IDs))
	for _, raw := range in.IDs {
		item, err := s.owned(ctx, owner, raw)
		if err != nil {
			return nil, err
		}
		if item.Section != in.Section {
			return nil, fmt.Errorf("%w: %s is not in section %s", domain.ErrInvalidInput, raw, in.Section)
		}
		key := domain.IDString(item.ID)
		if seen[key] {
			return nil, fmt.Errorf("%w: duplicate id %s", domain.ErrInvalidInput, raw)
		}
		seen[key] = true
		ordered = append(ordered, item)
	}

	all, err := s.repo.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	for _, it := range all {
		if it.Section == in.Section && !seen[domain.IDString(it.ID)] {
			return nil, fmt.Errorf("%w: reorder must list every item of section %s", domain.ErrInvalidInput, in.Section)
		}
	}

	section := make([]*domain.PreferenceItem, len(ordered))
	for i, item := range ordered {
		if item.Position != i {
			if err := s.repo.SetPosition(ctx, item.ID, i); err != nil {
				return nil, err
			}
			item.Position = i
		}
		section[i] = item
	}
	return section, nil
}
