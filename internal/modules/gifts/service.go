// Package gifts manages gift ideas, regifts and the offers contacts make on
// them.
package gifts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/pliiiz/pliiiz/internal/events"
	"github.com/pliiiz/pliiiz/internal/giftimage"
	"github.com/pliiiz/pliiiz/internal/pubsub"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// ImageResolver picks an image for an idea.
type ImageResolver interface {
	Resolve(ctx context.Context, user *surrealmodels.RecordID, idea giftimage.Idea) *giftimage.Resolution
}

// CreateInput is the body of POST /app/gifts. ImageURL, when usable, is
// kept as is.
type CreateInput struct {
	Label      string            `json:"label" validate:"required,min=1,max=160"`
	Category   string            `json:"category" validate:"max=60"`
	Attributes map[string]string `json:"attributes,omitempty" validate:"max=12,dive,keys,min=1,max=40,endkeys,max=120"`
	Link       string            `json:"link" validate:"omitempty,url,max=2048"`
	PriceCents int               `json:"price_cents" validate:"gte=0"`
	Notes      string            `json:"notes" validate:"max=1000"`
	Visibility domain.Visibility `json:"visibility" validate:"omitempty,visibility"`
	Regift     bool              `json:"regift"`
	ImageURL   string            `json:"image_url" validate:"max=2048"`
}

// UpdateInput is the body of PATCH /app/gifts/:id. Nil fields are left
// unchanged.
type UpdateInput struct {
	Label      *string            `json:"label,omitempty" validate:"omitempty,min=1,max=160"`
	Category   *string            `json:"category,omitempty" validate:"omitempty,max=60"`
	Attributes *map[string]string `json:"attributes,omitempty" validate:"omitempty,max=12,dive,keys,min=1,max=40,endkeys,max=120"`
	Link       *string            `json:"link,omitempty" validate:"omitempty,max=2048"`
	PriceCents *int               `json:"price_cents,omitempty" validate:"omitempty,gte=0"`
	Notes      *string            `json:"notes,omitempty" validate:"omitempty,max=1000"`
	Visibility *domain.Visibility `json:"visibility,omitempty" validate:"omitempty,visibility"`
	// ImageURL set to "" drops the current image and resolves a new one.
	ImageURL *string `json:"image_url,omitempty" validate:"omitempty,max=2048"`
}

// ImageInput is the body of PUT /app/gifts/:id/image.
type ImageInput struct {
	URL    string             `json:"url" validate:"required,max=2048"`
	Source domain.ImageSource `json:"source" validate:"omitempty,oneof=unsplash existing"`
}

// Deps are the collaborators of a Service.
type Deps struct {
	Gifts     domain.GiftRepository
	Contacts  domain.ContactRepository
	Resolver  ImageResolver
	Publisher pubsub.Publisher
}

// Service implements gift operations.
type Service struct {
	gifts     domain.GiftRepository
	contacts  domain.ContactRepository
	resolver  ImageResolver
	publisher pubsub.Publisher
}

// NewService creates a Service.
func NewService(d Deps) *Service {
	return &Service{gifts: d.Gifts, contacts: d.Contacts, resolver: d.Resolver, publisher: d.Publisher}
}

// List returns the owner's ideas.
func (s *Service) List(ctx context.Context, owner *surrealmodels.RecordID) ([]*domain.GiftIdea, error) {
	out, err := s.gifts.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*domain.GiftIdea{}
	}
	return out, nil
}

// Create stores an idea with a resolved image.
func (s *Service) Create(ctx context.Context, owner *surrealmodels.RecordID, in CreateInput) (*domain.GiftIdea, error) {
	if err := domain.Validate(&in); err != nil {
		return nil, err
	}
	if in.ImageURL != "" && !giftimage.IsUsableURL(in.ImageURL) {
		return nil, fmt.Errorf("%w: image_url must be an http(s) or media URL", domain.ErrInvalidInput)
	}
	if in.Visibility == "" {
		in.Visibility = domain.VisibilityContacts
	}
	idea := &domain.GiftIdea{
		Owner:      owner,
		Label:      strings.TrimSpace(in.Label),
		Category:   strings.TrimSpace(in.Category),
		Attributes: cloneAttrs(in.Attributes),
		Link:       in.Link,
		PriceCents: in.PriceCents,
		Notes:      in.Notes,
		Visibility: in.Visibility,
		Regift:     in.Regift,
	}
	res := s.resolver.Resolve(ctx, owner, giftimage.Idea{
		Label:       idea.Label,
		Category:    idea.Category,
		Attributes:  idea.Attributes,
		ExistingURL: in.ImageURL,
	})
	idea.ImageURL, idea.ImageSource, idea.IdeaHash = res.URL, res.Source, res.Hash
	return s.gifts.Create(ctx, idea)
}

func (s *Service) owned(ctx context.Context, owner *surrealmodels.RecordID, rawID string) (*domain.GiftIdea, error) {
	idea, err := s.find(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if !domain.SameID(idea.Owner, owner) {
		return nil, fmt.Errorf("%w: not your gift idea", domain.ErrForbidden)
	}
	return idea, nil
}

func (s *Service) find(ctx context.Context, rawID string) (*domain.GiftIdea, error) {
	id, err := domain.ParseID(domain.TableGiftIdea, rawID)
	if err != nil {
		return nil, err
	}
	return s.gifts.FindByID(ctx, id)
}

// userChosen reports whether the image was picked by the owner rather than
// by the resolution chain.
func userChosen(src domain.ImageSource) bool {
	return src == domain.ImageSourceExisting || src == domain.ImageSourceUnsplash
}

// Update edits an idea. A new image is resolved when the label, category
// or attributes change, unless the owner picked the current image or sets
// one in the same request.
func (s *Service) Update(ctx context.Context, owner *surrealmodels.RecordID, rawID string, in UpdateInput) (*domain.GiftIdea, error) {
	if err := domain.Validate(&in); err != nil {
		return nil, err
	}
	idea, err := s.owned(ctx, owner, rawID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	next := giftimage.Idea{Label: idea.Label, Category: idea.Category, Attributes: idea.Attributes}
	if in.Label != nil {
		next.Label = strings.TrimSpace(*in.Label)
		fields["label"] = next.Label
	}
	if in.Category != nil {
		next.Category = strings.TrimSpace(*in.Category)
		fields["category"] = next.Category
	}
	if in.Attributes != nil {
		next.Attributes = cloneAttrs(*in.Attributes)
		fields["attributes"] = next.Attributes
	}
	if in.Link != nil {
		if *in.Link != "" && domain.Validator().Var(*in.Link, "url") != nil {
			return nil, fmt.Errorf("%w: link must be a URL", domain.ErrInvalidInput)
		}
		fields["link"] = *in.Link
	}
	if in.PriceCents != nil {
		fields["price_cents"] = *in.PriceCents
	}
	if in.Notes != nil {
		fields["notes"] = *in.Notes
	}
	if in.Visibility != nil {
		fields["visibility"] = string(*in.Visibility)
	}

	hash := next.Hash()
	changed := hash != idea.IdeaHash
	if changed {
		fields["idea_hash"] = hash
	}

	switch {
	case in.ImageURL != nil && *in.ImageURL != "":
		if !giftimage.IsUsableURL(*in.ImageURL) {
			return nil, fmt.Errorf("%w: image_url must be an http(s) or media URL", domain.ErrInvalidInput)
		}
		fields["image_url"] = *in.ImageURL
		fields["image_source"] = string(domain.ImageSourceExisting)
	case in.ImageURL != nil, changed && !userChosen(idea.ImageSource):
		res := s.resolver.Resolve(ctx, owner, next)
		fields["image_url"] = res.URL
		fields["image_source"] = string(res.Source)
	}

	if len(fields) == 0 {
		return idea, nil
	}
	return s.gifts.Update(ctx, idea.ID, fields)
}

// Delete removes an idea and its offer.
func (s *Service) Delete(ctx context.Context, owner *surrealmodels.RecordID, rawID string) error {
	idea, err := s.owned(ctx, owner, rawID)
	if err != nil {
		return err
	}
	return s.gifts.Delete(ctx, idea.ID)
}

// SetRegift flags an idea as a received gift the owner would pass on.
func (s *Service) SetRegift(ctx context.Context, owner *surrealmodels.RecordID, rawID string, regift bool) (*domain.GiftIdea, error) {
	idea, err := s.owned(ctx, owner, rawID)
	if err != nil {
		return nil, err
	}
	if idea.Regift == regift {
		return idea, nil
	}
	return s.gifts.Update(ctx, idea.ID, map[string]any{"regift": regift})
}

// SetImage applies an image picked by the owner, usually from Unsplash.
func (s *Service) SetImage(ctx context.Context, owner *surrealmodels.RecordID, rawID string, in ImageInput) (*domain.GiftIdea, error) {
	if err := domain.Validate(&in); err != nil {
		return nil, err
	}
	if !giftimage.IsUsableURL(in.URL) {
		return nil, fmt.Errorf("%w: url must be an http(s) or media URL", domain.ErrInvalidInput)
	}
	if in.Source == "" {
		in.Source = domain.ImageSourceUnsplash
	}
	idea, err := s.owned(ctx, owner, rawID)
	if err != nil {
		return nil, err
	}
	return s.gifts.Update(ctx, idea.ID, map[string]any{
		"image_url":    in.URL,
		"image_source": string(in.Source),
	})
}

// Offer reserves an idea for giver, who must be a contact of the owner and
// allowed to see the idea. Offering twice is a no-op for the same giver and
// a conflict for anyone else.
func (s *Service) Offer(ctx context.Context, giver *surrealmodels.RecordID, rawID string) (*domain.GiftOffer, error) {
	idea, err := s.find(ctx, rawID)
	if err != nil {
		return nil, err
	}
	if domain.SameID(idea.Owner, giver) {
		return nil, fmt.Errorf("%w: you cannot offer your own gift idea", domain.ErrForbidden)
	}
	contact, err := s.contacts.IsContact(ctx, idea.Owner, giver)
	if err != nil {
		return nil, err
	}
	if !contact {
		return nil, fmt.Errorf("%w: only contacts can offer a gift", domain.ErrForbidden)
	}
	if !idea.Visibility.VisibleTo(domain.RelationContact) {
		return nil, fmt.Errorf("%w: gift idea", domain.ErrNotFound)
	}

	if existing, err := s.gifts.FindOffer(ctx, idea.ID); err == nil {
		if domain.SameID(existing.Giver, giver) {
			return existing, nil
		}
		return nil, domain.ErrOfferTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	offer, err := s.gifts.CreateOffer(ctx, &domain.GiftOffer{Idea: idea.ID, Giver: giver})
	if err != nil {
		return nil, err
	}
	err = pubsub.Publish(ctx, s.publisher, events.GiftOfferMade, domain.IDString(giver), events.GiftOffered{
		IdeaID: domain.IDString(idea.ID),
		Label:  idea.Label,
		Owner:  domain.IDString(idea.Owner),
		Giver:  domain.IDString(giver),
	})
	if err != nil {
		slog.WarnContext(ctx, "Failed to publish gift offer", "idea", domain.IDString(idea.ID), "error", err)
	}
	return offer, nil
}

// Unoffer withdraws giver's offer.
func (s *Service) Unoffer(ctx context.Context, giver *surrealmodels.RecordID, rawID string) error {
	idea, err := s.find(ctx, rawID)
	if err != nil {
		return err
	}
	offer, err := s.gifts.FindOffer(ctx, idea.ID)
	if err != nil {
		return err
	}
	if !domain.SameID(offer.Giver, giver) {
		return fmt.Errorf("%w: only the giver can withdraw an offer", domain.ErrForbidden)
	}
	return s.gifts.DeleteOffer(ctx, idea.ID)
}

// cloneAttrs keeps callers from sharing the input map with stored ideas.
func cloneAttrs(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}
