package testutils

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/pliiiz/pliiiz/internal/aigateway"
	"github.com/pliiiz/pliiiz/internal/domain"
)

// PNGPixel is a valid 1x1 transparent PNG.
var PNGPixel = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// Generator returns PNGPixel for every prompt, or fails while Failing is set.
type Generator struct {
	Calls   atomic.Int32
	Failing atomic.Bool
	last    atomic.Value
}

func (g *Generator) GenerateImage(ctx context.Context, prompt string) (*aigateway.Image, error) {
	g.Calls.Add(1)
	g.last.Store(prompt)
	if g.Failing.Load() {
		return nil, fmt.Errorf("%w: generator down", domain.ErrProviderUnavailable)
	}
	return &aigateway.Image{Data: PNGPixel, MIMEType: "image/png"}, nil
}

// LastPrompt returns the most recent prompt.
func (g *Generator) LastPrompt() string {
	s, _ := g.last.Load().(string)
	return s
}

var _ aigateway.Generator = (*Generator)(nil)
