package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/pliiiz/pliiiz/internal/domain"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Card is the profile header shown to other users. Birthday and city are
// only filled in for the owner and their contacts.
type Card struct {
	UserID      string            `json:"user_id"`
	DisplayName string            `json:"display_name"`
	Slug        string            `json:"slug"`
	Bio         string            `json:"bio"`
	AvatarURL   string            `json:"avatar_url"`
	Birthday    string            `json:"birthday,omitempty"`
	City        string            `json:"city,omitempty"`
	Visibility  domain.Visibility `json:"visibility"`
}

// PublicGift is a gift idea as seen by a viewer. Offer flags are never
// set for the owner.
type PublicGift struct {
	*domain.GiftIdea
	Offered     bool `json:"offered"`
	OfferedByMe bool `json:"offered_by_me"`
}

// PublicProfile is the result of get_public_profile_secure.
type PublicProfile struct {
	Profile     Card                     `json:"profile"`
	Relation    domain.Relation          `json:"relation"`
	Preferences []*domain.PreferenceItem `json:"preferences"`
	Gifts       []PublicGift             `json:"gifts"`
}

// Target selects the profile to view.
type Target struct {
	Slug   string `json:"slug"`
	UserID string `json:"user_id"`
}

// Relation reports how viewer relates to owner.
func (s *Service) Relation(ctx context.Context, viewer, owner *surrealmodels.RecordID) (domain.Relation, error) {
	if viewer == nil {
		return domain.RelationNone, nil
	}
	if domain.SameID(viewer, owner) {
		return domain.RelationSelf, nil
	}
	ok, err := s.contacts.IsContact(ctx, viewer, owner)
	if err != nil {
		return "", err
	}
	if ok {
		return domain.RelationContact, nil
	}
	for _, pending := range []struct {
		from, to *surrealmodels.RecordID
		rel      domain.Relation
	}{
		{viewer, owner, domain.RelationPendingOutgoing},
		{owner, viewer, domain.RelationPendingIncoming},
	} {
		_, err := s.contacts.FindPending(ctx, pending.from, pending.to)
		if err == nil {
			return pending.rel, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return "", err
		}
	}
	return domain.RelationNone, nil
}

func (s *Service) findTarget(ctx context.Context, t Target) (*domain.Profile, error) {
	switch {
	case t.Slug != "":
		return s.profiles.FindBySlug(ctx, t.Slug)
	case t.UserID != "":
		id, err := domain.ParseID(domain.TableUser, t.UserID)
		if err != nil {
			return nil, err
		}
		return s.profiles.FindByUser(ctx, id)
	default:
		return nil, fmt.Errorf("%w: slug or user_id is required", domain.ErrInvalidInput)
	}
}

// PublicProfile builds the view viewer is allowed to see. viewer may be
// nil for anonymous access. Private profiles are domain.ErrNotFound to
// everyone but the owner and their contacts, and a contacts-only profile
// shows strangers its card and nothing else.
func (s *Service) PublicProfile(ctx context.Context, viewer *domain.User, t Target) (*PublicProfile, error) {
	p, err := s.findTarget(ctx, t)
	if err != nil {
		return nil, err
	}
	rel, err := s.Relation(ctx, idOf(viewer), p.Owner)
	if err != nil {
		return nil, err
	}
	trusted := rel == domain.RelationSelf || rel == domain.RelationContact
	if p.Visibility == domain.VisibilityPrivate && !trusted {
		return nil, fmt.Errorf("%w: profile", domain.ErrNotFound)
	}

	view := &PublicProfile{
		Profile: Card{
			UserID:      domain.IDString(p.Owner),
			DisplayName: p.DisplayName,
			Slug:        p.Slug,
			Bio:         p.Bio,
			AvatarURL:   p.AvatarURL,
			Visibility:  p.Visibility,
		},
		Relation:    rel,
		Preferences: []*domain.PreferenceItem{},
		Gifts:       []PublicGift{},
	}
	if trusted {
		view.Profile.Birthday = p.Birthday
		view.Profile.City = p.City
	}
	if p.Visibility == domain.VisibilityContacts && !trusted {
		return view, nil
	}

	prefs, err := s.preferences.ListByOwner(ctx, p.Owner)
	if err != nil {
		return nil, err
	}
	for _, item := range prefs {
		if item.Visibility.VisibleTo(rel) {
			view.Preferences = append(view.Preferences, item)
		}
	}

	ideas, err := s.gifts.ListByOwner(ctx, p.Owner)
	if err != nil {
		return nil, err
	}
	var visible []*domain.GiftIdea
	for _, idea := range ideas {
		if idea.Visibility.VisibleTo(rel) {
			visible = append(visible, idea)
		}
	}
	offers, err := s.offersFor(ctx, rel, visible)
	if err != nil {
		return nil, err
	}
	for _, idea := range visible {
		g := PublicGift{GiftIdea: idea}
		if o, ok := offers[domain.IDString(idea.ID)]; ok {
			g.Offered = true
			g.OfferedByMe = domain.SameID(o.Giver, idOf(viewer))
		}
		view.Gifts = append(view.Gifts, g)
	}
	return view, nil
}

func (s *Service) offersFor(ctx context.Context, rel domain.Relation, ideas []*domain.GiftIdea) (map[string]*domain.GiftOffer, error) {
	out := map[string]*domain.GiftOffer{}
	if rel == domain.RelationSelf || len(ideas) == 0 {
		return out, nil
	}
	ids := make([]*surrealmodels.RecordID, 0, len(ideas))
	for _, idea := range ideas {
		ids = append(ids, idea.ID)
	}
	offers, err := s.gifts.ListOffers(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, o := range offers {
		out[domain.IDString(o.Idea)] = o
	}
	return out, nil
}
