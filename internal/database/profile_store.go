package database

import (
	"context"
	"fmt"

	"github.com/pliiiz/pliiiz/internal/config"
	"github.com/pliiiz/pliiiz/internal/domain"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

var _ domain.ProfileRepository = (*ProfileStore)(nil)

// ProfileStore implements domain.ProfileRepository.
type ProfileStore struct {
	client Client[domain.Profile]
}

// NewProfileStore creates a profile repository.
func NewProfileStore(conn DBConnection, cfg config.Provider) (*ProfileStore, error) {
	c, err := NewClient[domain.Profile](conn, cfg)
	if err != nil {
		return nil, err
	}
	return &ProfileStore{client: c}, nil
}

// Create inserts a profile. The slug must be unique.
func (s *ProfileStore) Create(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	ts := now()
	data := map[string]any{
		"owner":        p.Owner,
		"display_name": p.DisplayName,
		"slug":         p.Slug,
		"bio":          p.Bio,
		"avatar_url":   p.AvatarURL,
		"avatar_path":  p.AvatarPath,
		"birthday":     p.Birthday,
		"city":         p.City,
		"visibility":   string(p.Visibility),
		"created_at":   ts,
		"updated_at":   ts,
	}
	created, err := s.client.Create(ctx, domain.TableProfile, data)
	if err != nil {
		if isDuplicateError(err) {
			return nil, domain.ErrSlugTaken
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return created, nil
}

// FindByUser returns the profile owned by user.
func (s *ProfileStore) FindByUser(ctx context.Context, user *surrealmodels.RecordID) (*domain.Profile, error) {
	p, err := s.client.QueryOne(ctx, "SELECT * FROM profile WHERE owner = $owner", map[string]any{"owner": user})
	if err != nil {
		return nil, toDomainErr(err)
	}
	return notFoundIfNil(p, "profile")
}

// FindBySlug returns the profile with the given slug.
func (s *ProfileStore) FindBySlug(ctx context.Context, slug string) (*domain.Profile, error) {
	p, err := s.client.QueryOne(ctx, "SELECT * FROM profile WHERE slug = $slug", map[string]any{"slug": slug})
	if err != nil {
		return nil, toDomainErr(err)
	}
	return notFoundIfNil(p, "profile")
}

// FindByUsers returns the profiles of the given users in no particular order.
func (s *ProfileStore) FindByUsers(ctx context.Context, users []*surrealmodels.RecordID) ([]*domain.Profile, error) {
	if len(users) == 0 {
		return nil, nil
	}
	rows, err := s.client.Query(ctx, "SELECT * FROM profile WHERE owner IN $owners", map[string]any{"owners": users})
	if err != nil {
		return nil, toDomainErr(err)
	}
	out := make([]*domain.Profile, 0, len(rows))
	for i := range rows {
		out = append(out, &rows[i])
	}
	return out, nil
}

// Update merges fields into the user's profile.
func (s *ProfileStore) Update(ctx context.Context, user *surrealmodels.RecordID, fields map[string]any) (*domain.Profile, error) {
	if slug, ok := fields["slug"].(string); ok {
		clash, err := s.client.QueryOne(ctx, "SELECT id FROM profile WHERE slug = $slug AND owner != $owner",
			map[string]any{"slug": slug, "owner": user})
		if err != nil {
			return nil, toDomainErr(err)
		}
		if clash != nil {
			return nil, domain.ErrSlugTaken
		}
	}

	data := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		data[k] = v
	}
	data["updated_at"] = now()

	p, err := s.client.QueryOne(ctx, "UPDATE profile MERGE $data WHERE owner = $owner RETURN AFTER",
		map[string]any{"data": data, "owner": user})
	if err != nil {
		if isDuplicateError(err) {
			return nil, domain.ErrSlugTaken
		}
		return nil, toDomainErr(err)
	}
	return notFoundIfNil(p, "profile")
}

// SlugExists reports whether any profile uses slug.
func (s *ProfileStore) SlugExists(ctx context.Context, slug string) (bool, error) {
	p, err := s.client.QueryOne(ctx, "SELECT id FROM profile WHERE slug = $slug", map[string]any{"slug": slug})
	if err != nil {
		return false, toDomainErr(err)
	}
	return p != nil, nil
}
