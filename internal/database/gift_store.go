package database

import (
	"context"
	"fmt"

	"github.com/pliiiz/pliiiz/internal/config"
	"github.com/pliiiz/pliiiz/internal/domain"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

var _ domain.GiftRepository = (*GiftStore)(nil)

// GiftStore implements domain.GiftRepository. Offers are keyed by the
// idea's record key so an idea can carry at most one offer.
type GiftStore struct {
	ideas  Client[domain.GiftIdea]
	offers Client[domain.GiftOffer]
}

// NewGiftStore creates a gift repository.
func NewGiftStore(conn DBConnection, cfg config.Provider) (*GiftStore, error) {
	ideas, err := NewClient[domain.GiftIdea](conn, cfg)
	if err != nil {
		return nil, err
	}
	offers, err := NewClient[domain.GiftOffer](conn, cfg)
	if err != nil {
		return nil, err
	}
	return &GiftStore{ideas: ideas, offers: offers}, nil
}

func (s *GiftStore) Create(ctx context.Context, g *domain.GiftIdea) (*domain.GiftIdea, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	ts := now()
	created, err := s.ideas.Create(ctx, domain.TableGiftIdea, map[string]any{
		"owner":        g.Owner,
		"label":        g.Label,
		"category":     g.Category,
		"attributes":   g.Attributes,
		"link":         g.Link,
		"price_cents":  g.PriceCents,
		"notes":        g.Notes,
		"visibility":   string(g.Visibility),
		"regift":       g.Regift,
		"image_url":    g.ImageURL,
		"image_source": string(g.ImageSource),
		"idea_hash":    g.IdeaHash,
		"created_at":   ts,
		"updated_at":   ts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gift idea: %w", err)
	}
	return created, nil
}

func (s *GiftStore) FindByID(ctx context.Context, id *surrealmodels.RecordID) (*domain.GiftIdea, error) {
	g, err := s.ideas.QueryOne(ctx, "SELECT * FROM $id", map[string]any{"id": id})
	if err != nil {
		return nil, toDomainErr(err)
	}
	return notFoundIfNil(g, "gift idea")
}

func (s *GiftStore) ListByOwner(ctx context.Context, owner *surrealmodels.RecordID) ([]*domain.GiftIdea, error) {
	return s.listIdeas(ctx, "SELECT * FROM gift_idea WHERE owner = $owner ORDER BY created_at DESC", map[string]any{"owner": owner})
}

func (s *GiftStore) ListByImageSource(ctx context.Context, source domain.ImageSource) ([]*domain.GiftIdea, error) {
	return s.listIdeas(ctx, "SELECT * FROM gift_idea WHERE image_source = $source", map[string]any{"source": string(source)})
}

func (s *GiftStore) listIdeas(ctx context.Context, query string, params map[string]any) ([]*domain.GiftIdea, error) {
	rows, err := s.ideas.Query(ctx, query, params)
	if err != nil {
		return nil, toDomainErr(err)
	}
	out := make([]*domain.GiftIdea, 0, len(rows))
	for i := range rows {
		out = append(out, &rows[i])
	}
	return out, nil
}

func (s *GiftStore) Update(ctx context.Context, id *surrealmodels.RecordID, fields map[string]any) (*domain.GiftIdea, error) {
	data := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		data[k] = v
	}
	data["updated_at"] = now()
	// MERGE combines nested objects, so attributes are replaced with SET in
	// the same transaction.
	if attrs, ok := data["attributes"]; ok {
		delete(data, "attributes")
		err := s.ideas.Execute(ctx,
			"BEGIN TRANSACTION; UPDATE $id SET attributes = $attrs; UPDATE $id MERGE $data; COMMIT TRANSACTION;",
			map[string]any{"id": id, "attrs": attrs, "data": data})
		if err != nil {
			return nil, toDomainErr(err)
		}
		return s.FindByID(ctx, id)
	}
	g, err := s.ideas.QueryOne(ctx, "UPDATE $id MERGE $data RETURN AFTER", map[string]any{"id": id, "data": data})
	if err != nil {
		return nil, toDomainErr(err)
	}
	return notFoundIfNil(g, "gift idea")
}

// Delete removes the idea together with its offer.
func (s *GiftStore) Delete(ctx context.Context, id *surrealmodels.RecordID) error {
	return toDomainErr(s.ideas.Execute(ctx,
		"DELETE $id; DELETE type::thing('gift_offer', $key);",
		map[string]any{"id": id, "key": recordKey(id)}))
}

func (s *GiftStore) SetImageByHash(ctx context.Context, hash, url string, source domain.ImageSource) ([]*domain.GiftIdea, error) {
	return s.listIdeas(ctx,
		"UPDATE gift_idea SET image_url = $url, image_source = $source, updated_at = time::now() WHERE idea_hash = $hash AND image_source NOT IN ['existing', 'unsplash'] RETURN AFTER",
		map[string]any{"hash": hash, "url": url, "source": string(source)})
}

func (s *GiftStore) FindOffer(ctx context.Context, idea *surrealmodels.RecordID) (*domain.GiftOffer, error) {
	o, err := s.offers.QueryOne(ctx, "SELECT * FROM type::thing('gift_offer', $key)", map[string]any{"key": recordKey(idea)})
	if err != nil {
		return nil, toDomainErr(err)
	}
	return notFoundIfNil(o, "gift offer")
}

func (s *GiftStore) CreateOffer(ctx context.Context, o *domain.GiftOffer) (*domain.GiftOffer, error) {
	created, err := s.offers.QueryOne(ctx,
		"CREATE type::thing('gift_offer', $key) CONTENT $data",
		map[string]any{
			"key": recordKey(o.Idea),
			"data": map[string]any{
				"idea":       o.Idea,
				"giver":      o.Giver,
				"created_at": now(),
			},
		})
	if err != nil {
		if isDuplicateError(err) {
			return nil, domain.ErrOfferTaken
		}
		return nil, fmt.Errorf("failed to create gift offer: %w", err)
	}
	return notFoundIfNil(created, "created gift offer not returned")
}

func (s *GiftStore) DeleteOffer(ctx context.Context, idea *surrealmodels.RecordID) error {
	return toDomainErr(s.offers.Execute(ctx, "DELETE type::thing('gift_offer', $key)", map[string]any{"key": recordKey(idea)}))
}

func (s *GiftStore) ListOffers(ctx context.Context, ideas []*surrealmodels.RecordID) ([]*domain.GiftOffer, error) {
	if len(ideas) == 0 {
		return nil, nil
	}
	rows, err := s.offers.Query(ctx, "SELECT * FROM gift_offer WHERE idea IN $ideas", map[string]any{"ideas": ideas})
	if err != nil {
		return nil, toDomainErr(err)
	}
	out := make([]*domain.GiftOffer, 0, len(rows))
	for i := range rows {
		out = append(out, &rows[i])
	}
	return out, nil
}

// recordKey returns the key part of a record ID.
func recordKey(id *surrealmodels.RecordID) string {
	if id == nil {
		return ""
	}
	return fmt.Sprint(id.ID)
}
