package giftimage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pliiiz/pliiiz/internal/domain"
)

// Rescore re-runs the library match for every gift idea still showing a
// placeholder and returns how many were updated. A threshold of zero uses
// the resolver's default.
func (g *Regenerator) Rescore(ctx context.Context, threshold float64) (int, error) {
	if threshold < 0 || threshold > 1 {
		return 0, fmt.Errorf("%w: threshold must be between 0 and 1", domain.ErrInvalidInput)
	}
	if threshold == 0 {
		threshold = g.resolver.Threshold()
	}

	ideas, err := g.gifts.ListByImageSource(ctx, domain.ImageSourcePlaceholder)
	if err != nil {
		return 0, fmt.Errorf("list placeholder ideas: %w", err)
	}

	updated := 0
	for _, gi := range ideas {
		res, ok := g.resolver.MatchLibrary(ctx, Idea{
			Label:      gi.Label,
			Category:   gi.Category,
			Attributes: gi.Attributes,
		}, threshold)
		if !ok {
			continue
		}
		if _, err := g.gifts.Update(ctx, gi.ID, map[string]any{
			"image_url":    res.URL,
			"image_source": string(res.Source),
		}); err != nil {
			return updated, fmt.Errorf("update %s: %w", domain.IDString(gi.ID), err)
		}
		updated++
	}

	slog.InfoContext(ctx, "Rescored placeholder images", "event", "giftimage.rescore",
		"candidates", len(ideas), "updated", updated, "threshold", threshold)
	return updated, nil
}
