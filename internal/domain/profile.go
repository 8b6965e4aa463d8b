package domain

import (
	"context"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Visibility decides who may see a profile, a preference or a gift idea.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityContacts Visibility = "contacts"
	VisibilityPrivate  Visibility = "private"
)

// Valid reports whether v is a known visibility level.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityContacts, VisibilityPrivate:
		return true
	}
	return false
}

// VisibleTo reports whether an item with visibility v may be shown to a
// viewer standing in relation r to its owner.
func (v Visibility) VisibleTo(r Relation) bool {
	switch r {
	case RelationSelf:
		return true
	case RelationContact:
		return v == VisibilityPublic || v == VisibilityContacts
	default:
		return v == VisibilityPublic
	}
}

// Relation describes how a viewer relates to the owner of a profile.
type Relation string

const (
	RelationSelf            Relation = "self"
	RelationContact         Relation = "contact"
	RelationPendingOutgoing Relation = "pending_outgoing"
	RelationPendingIncoming Relation = "pending_incoming"
	RelationNone            Relation = "none"
)

// Profile is the public-facing part of a user account.
type Profile struct {
	ID          *surrealmodels.RecordID       `json:"id,omitempty"`
	Owner       *surrealmodels.RecordID       `json:"owner"`
	DisplayName string                        `json:"display_name" validate:"required,min=1,max=80"`
	Slug        string                        `json:"slug" validate:"required,slug"`
	Bio         string                        `json:"bio" validate:"max=500"`
	AvatarURL   string                        `json:"avatar_url"`
	AvatarPath  string                        `json:"avatar_path"`
	Birthday    string                        `json:"birthday" validate:"omitempty,datetime=2006-01-02"`
	City        string                        `json:"city" validate:"max=80"`
	Visibility  Visibility                    `json:"visibility" validate:"required,visibility"`
	CreatedAt   *surrealmodels.CustomDateTime `json:"created_at,omitempty"`
	UpdatedAt   *surrealmodels.CustomDateTime `json:"updated_at,omitempty"`
}

// Validate runs validation checks on the Profile struct using the defined tags.
func (p *Profile) Validate() error {
	return Validate(p)
}

// ProfileUpdate carries a partial profile edit. Nil fields are left unchanged.
type ProfileUpdate struct {
	DisplayName *string     `json:"display_name,omitempty" validate:"omitempty,min=1,max=80"`
	Slug        *string     `json:"slug,omitempty" validate:"omitempty,slug"`
	Bio         *string     `json:"bio,omitempty" validate:"omitempty,max=500"`
	Birthday    *string     `json:"birthday,omitempty" validate:"omitempty,datetime=2006-01-02"`
	City        *string     `json:"city,omitempty" validate:"omitempty,max=80"`
	Visibility  *Visibility `json:"visibility,omitempty" validate:"omitempty,visibility"`
}

// Fields returns the non-nil fields as a merge document.
func (u ProfileUpdate) Fields() map[string]any {
	fields := map[string]any{}
	if u.DisplayName != nil {
		fields["display_name"] = *u.DisplayName
	}
	if u.Slug != nil {
		fields["slug"] = *u.Slug
	}
	if u.Bio != nil {
		fields["bio"] = *u.Bio
	}
	if u.Birthday != nil {
		fields["birthday"] = *u.Birthday
	}
	if u.City != nil {
		fields["city"] = *u.City
	}
	if u.Visibility != nil {
		fields["visibility"] = string(*u.Visibility)
	}
	return fields
}

// ProfileRepository defines storage operations for profiles.
type ProfileRepository interface {
	Create(ctx context.Context, p *Profile) (*Profile, error)
	FindByUser(ctx context.Context, user *surrealmodels.RecordID) (*Profile, error)
	FindBySlug(ctx context.Context, slug string) (*Profile, error)
	FindByUsers(ctx context.Context, users []*surrealmodels.RecordID) ([]*Profile, error)
	// Update merges the given fields. Returns ErrSlugTaken when the new slug
	// belongs to another profile.
	Update(ctx context.Context, user *surrealmodels.RecordID, fields map[string]any) (*Profile, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
}
