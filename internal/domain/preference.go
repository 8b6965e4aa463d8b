package domain

import (
	"context"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Section groups preference items on a profile.
type Section string

const (
	SectionSizes     Section = "sizes"
	SectionLikes     Section = "likes"
	SectionDislikes  Section = "dislikes"
	SectionAllergies Section = "allergies"
	SectionBrands    Section = "brands"
	SectionStyles    Section = "styles"
	SectionWishes    Section = "wishes"
)

// Sections lists every section in display order.
var Sections = []Section{
	SectionSizes, SectionLikes, SectionDislikes, SectionAllergies,
	SectionBrands, SectionStyles, SectionWishes,
}

// Valid reports whether s is a known section.
func (s Section) Valid() bool {
	for _, known := range Sections {
		if s == known {
			return true
		}
	}
	return false
}

// PreferenceItem is a single entry in one of a user's preference lists,
// e.g. a shoe size, a favourite brand or an allergy.
type PreferenceItem struct {
	ID         *surrealmodels.RecordID       `json:"id,omitempty"`
	Owner      *surrealmodels.RecordID       `json:"owner"`
	Section    Section                       `json:"section" validate:"required,section"`
	Label      string                        `json:"label" validate:"required,min=1,max=120"`
	Value      string                        `json:"value" validate:"max=500"`
	Visibility Visibility                    `json:"visibility" validate:"required,visibility"`
	Position   int                           `json:"position" validate:"gte=0"`
	CreatedAt  *surrealmodels.CustomDateTime `json:"created_at,omitempty"`
	UpdatedAt  *surrealmodels.CustomDateTime `json:"updated_at,omitempty"`
}

// Validate runs validation checks on the PreferenceItem struct.
func (p *PreferenceItem) Validate() error {
	return Validate(p)
}

// PreferenceRepository defines storage operations for preference items.
type PreferenceRepository interface {
	Create(ctx context.Context, item *PreferenceItem) (*PreferenceItem, error)
	FindByID(ctx context.Context, id *surrealmodels.RecordID) (*PreferenceItem, error)
	// ListByOwner returns items ordered by section then position.
	ListByOwner(ctx context.Context, owner *surrealmodels.RecordID) ([]*PreferenceItem, error)
	Update(ctx context.Context, id *surrealmodels.RecordID, fields map[string]any) (*PreferenceItem, error)
	Delete(ctx context.Context, id *surrealmodels.RecordID) error
	SetPosition(ctx context.Context, id *surrealmodels.RecordID, position int) error
}
