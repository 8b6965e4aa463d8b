// Package profile owns user profiles: the private editing surface, the
// public view other users get, and avatar images.
package profile

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pliiiz/pliiiz/internal/aigateway"
	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/pliiiz/pliiiz/internal/quota"
	"github.com/pliiiz/pliiiz/internal/registry"
	"github.com/pliiiz/pliiiz/internal/storage"
	"github.com/pliiiz/pliiiz/internal/textnorm"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// ServiceKey is the registry key of the profile Service.
const ServiceKey registry.Key[*Service] = "profile.service"

const (
	// MaxAvatarBytes caps avatar uploads.
	MaxAvatarBytes = 5 << 20

	slugAttempts   = 20
	slugBaseMaxLen = 30
	fallbackSlug   = "ami"
)

// Deps are the collaborators of a Service.
type Deps struct {
	Profiles    domain.ProfileRepository
	Preferences domain.PreferenceRepository
	Contacts    domain.ContactRepository
	Gifts       domain.GiftRepository
	Bucket      *storage.Bucket
	Generator   aigateway.Generator
	Quota       *quota.Limiter
}

// Service implements profile operations.
type Service struct {
	profiles    domain.ProfileRepository
	preferences domain.PreferenceRepository
	contacts    domain.ContactRepository
	gifts       domain.GiftRepository
	bucket      *storage.Bucket
	generator   aigateway.Generator
	quota       *quota.Limiter
}

// NewService creates a Service.
func NewService(d Deps) *Service {
	return &Service{
		profiles:    d.Profiles,
		preferences: d.Preferences,
		contacts:    d.Contacts,
		gifts:       d.Gifts,
		bucket:      d.Bucket,
		generator:   d.Generator,
		quota:       d.Quota,
	}
}

// Provision creates the profile of a new user with a unique slug derived
// from the display name. An existing profile is returned unchanged.
func (s *Service) Provision(ctx context.Context, user *domain.User, displayName string) (*domain.Profile, error) {
	existing, err := s.profiles.FindByUser(ctx, user.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = localPart(user.Email)
	}
	base := textnorm.Slugify(displayName, slugBaseMaxLen)
	if len(base) < 3 {
		base = textnorm.Slugify(localPart(user.Email), slugBaseMaxLen)
	}
	if len(base) < 3 {
		base = fallbackSlug
	}

	for attempt := 0; attempt < slugAttempts; attempt++ {
		p, err := s.profiles.Create(ctx, &domain.Profile{
			Owner:       user.ID,
			DisplayName: displayName,
			Slug:        slugCandidate(base, attempt),
			Visibility:  domain.VisibilityContacts,
		})
		if errors.Is(err, domain.ErrSlugTaken) {
			continue
		}
		return p, err
	}
	return nil, fmt.Errorf("%w: no free slug for %q", domain.ErrConflict, base)
}

// slugCandidate returns base, then base-2 to base-5, then base with a
// random suffix.
func slugCandidate(base string, attempt int) string {
	switch {
	case attempt == 0:
		return base
	case attempt < 5:
		return fmt.Sprintf("%s-%d", base, attempt+1)
	default:
		return base + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	}
}

func localPart(email string) string {
	name, _, _ := strings.Cut(email, "@")
	return name
}

// Get returns the caller's profile, provisioning it when the account
// predates it.
func (s *Service) Get(ctx context.Context, user *domain.User) (*domain.Profile, error) {
	p, err := s.profiles.FindByUser(ctx, user.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return s.Provision(ctx, user, "")
	}
	return p, err
}

// Update applies a partial update. A taken slug is domain.ErrSlugTaken.
func (s *Service) Update(ctx context.Context, user *domain.User, upd domain.ProfileUpdate) (*domain.Profile, error) {
	if err := domain.Validate(&upd); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, user); err != nil {
		return nil, err
	}
	fields := upd.Fields()
	if len(fields) == 0 {
		return s.profiles.FindByUser(ctx, user.ID)
	}
	return s.profiles.Update(ctx, user.ID, fields)
}

// UserIDBySlug resolves a slug to the owning user id.
func (s *Service) UserIDBySlug(ctx context.Context, slug string) (string, error) {
	p, err := s.profiles.FindBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		return "", err
	}
	return domain.IDString(p.Owner), nil
}

// SetAvatar stores an image as the user's avatar and deletes the previous
// one.
func (s *Service) SetAvatar(ctx context.Context, user *domain.User, data []byte, mimeType string) (*domain.Profile, error) {
	ext, ok := storage.ImageTypes[mimeType]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported image type %s", domain.ErrInvalidInput, mimeType)
	}
	current, err := s.Get(ctx, user)
	if err != nil {
		return nil, err
	}

	name := uuid.NewString() + ext
	path := fmt.Sprintf("avatars/%v/%s", user.ID.ID, name)
	if _, err := s.bucket.PutBytes(ctx, storage.Object{
		Owner:    user.ID,
		Kind:     domain.FileKindAvatar,
		Path:     path,
		Filename: name,
		MIMEType: mimeType,
	}, data); err != nil {
		return nil, err
	}

	updated, err := s.profiles.Update(ctx, user.ID, map[string]any{
		"avatar_url":  storage.URL(path),
		"avatar_path": path,
	})
	if err != nil {
		_ = s.bucket.Remove(ctx, path)
		return nil, err
	}
	if current.AvatarPath != "" && current.AvatarPath != path {
		if err := s.bucket.Remove(ctx, current.AvatarPath); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return updated, fmt.Errorf("remove previous avatar: %w", err)
		}
	}
	return updated, nil
}

// RegenerateAvatar asks the AI gateway for an illustrated avatar. It
// draws from the same per-user budget as gift image generation.
func (s *Service) RegenerateAvatar(ctx context.Context, user *domain.User, style string) (*domain.Profile, error) {
	p, err := s.Get(ctx, user)
	if err != nil {
		return nil, err
	}
	if s.quota != nil && !s.quota.Allow(domain.IDString(user.ID)) {
		return nil, domain.ErrQuotaExceeded
	}

	img, err := s.generator.GenerateImage(ctx, avatarPrompt(p.DisplayName, style))
	if err != nil {
		return nil, err
	}
	mimeType := http.DetectContentType(img.Data)
	if _, ok := storage.ImageTypes[mimeType]; !ok {
		return nil, fmt.Errorf("%w: gateway returned %s", domain.ErrProviderUnavailable, mimeType)
	}
	return s.SetAvatar(ctx, user, img.Data, mimeType)
}

func avatarPrompt(displayName, style string) string {
	style = strings.TrimSpace(style)
	if style == "" {
		style = "flat pastel illustration"
	}
	return fmt.Sprintf("Friendly square avatar for a person named %q, %s, centered face, plain background, no text.", displayName, style)
}

func idOf(user *domain.User) *surrealmodels.RecordID {
	if user == nil {
		return nil
	}
	return user.ID
}
