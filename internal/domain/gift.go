package domain

import (
	"context"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// ImageSource records which step of the resolution chain produced an image.
type ImageSource string

const (
	ImageSourceExisting     ImageSource = "existing"
	ImageSourceLibraryExact ImageSource = "library_exact"
	ImageSourceLibraryMatch ImageSource = "library_match"
	ImageSourceAI           ImageSource = "ai"
	ImageSourceUnsplash     ImageSource = "unsplash"
	ImageSourcePlaceholder  ImageSource = "placeholder"
)

// GiftIdea is an entry on a user's wish list. A gift marked as Regift is
// something the owner received and is willing to pass on.
type GiftIdea struct {
	ID          *surrealmodels.RecordID       `json:"id,omitempty"`
	Owner       *surrealmodels.RecordID       `json:"owner"`
	Label       string                        `json:"label" validate:"required,min=1,max=160"`
	Category    string                        `json:"category" validate:"max=60"`
	Attributes  map[string]string             `json:"attributes,omitempty" validate:"max=12"`
	Link        string                        `json:"link" validate:"omitempty,url,max=2048"`
	PriceCents  int                           `json:"price_cents" validate:"gte=0"`
	Notes       string                        `json:"notes" validate:"max=1000"`
	Visibility  Visibility                    `json:"visibility" validate:"required,visibility"`
	Regift      bool                          `json:"regift"`
	ImageURL    string                        `json:"image_url"`
	ImageSource ImageSource                   `json:"image_source"`
	IdeaHash    string                        `json:"idea_hash"`
	CreatedAt   *surrealmodels.CustomDateTime `json:"created_at,omitempty"`
	UpdatedAt   *surrealmodels.CustomDateTime `json:"updated_at,omitempty"`
}

// Validate runs validation checks on the GiftIdea struct.
func (g *GiftIdea) Validate() error {
	return Validate(g)
}

// GiftOffer marks that a contact intends to offer a gift idea. It is never
// shown to the idea's owner.
type GiftOffer struct {
	ID        *surrealmodels.RecordID       `json:"id,omitempty"`
	Idea      *surrealmodels.RecordID       `json:"idea"`
	Giver     *surrealmodels.RecordID       `json:"giver"`
	CreatedAt *surrealmodels.CustomDateTime `json:"created_at,omitempty"`
}

// GiftRepository defines storage operations for gift ideas and offers.
type GiftRepository interface {
	Create(ctx context.Context, g *GiftIdea) (*GiftIdea, error)
	FindByID(ctx context.Context, id *surrealmodels.RecordID) (*GiftIdea, error)
	ListByOwner(ctx context.Context, owner *surrealmodels.RecordID) ([]*GiftIdea, error)
	ListByImageSource(ctx context.Context, source ImageSource) ([]*GiftIdea, error)
	Update(ctx context.Context, id *surrealmodels.RecordID, fields map[string]any) (*GiftIdea, error)
	Delete(ctx context.Context, id *surrealmodels.RecordID) error
	// SetImageByHash applies an image to every idea carrying the hash and
	// returns the updated ideas. Ideas whose image the owner picked
	// (existing or unsplash) are left alone.
	SetImageByHash(ctx context.Context, hash, url string, source ImageSource) ([]*GiftIdea, error)

	FindOffer(ctx context.Context, idea *surrealmodels.RecordID) (*GiftOffer, error)
	// CreateOffer returns ErrOfferTaken when the idea already has an offer.
	CreateOffer(ctx context.Context, o *GiftOffer) (*GiftOffer, error)
	DeleteOffer(ctx context.Context, idea *surrealmodels.RecordID) error
	ListOffers(ctx context.Context, ideas []*surrealmodels.RecordID) ([]*GiftOffer, error)
}
