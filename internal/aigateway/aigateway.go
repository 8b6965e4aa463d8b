// Package aigateway calls an OpenAI-compatible gateway to generate images.
package aigateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pliiiz/pliiiz/internal/config"
	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/tidwall/gjson"
)

// Generator produces an image from a text prompt.
type Generator interface {
	GenerateImage(ctx context.Context, prompt string) (*Image, error)
}

// Image is a generated image held in memory.
type Image struct {
	Data     []byte
	MIMEType string
}

// New returns a gateway client, or a disabled generator when no gateway is
// configured.
func New(cfg config.Provider) Generator {
	if cfg.GetAIGatewayURL() == "" || cfg.GetAIGatewayKey() == "" {
		slog.Warn("AI gateway not configured, image generation disabled")
		return Disabled{}
	}
	return NewClient(cfg.GetAIGatewayURL(), cfg.GetAIGatewayKey(), cfg.GetAIGatewayModel())
}

// Disabled always reports the provider as unavailable.
type Disabled struct{}

func (Disabled) GenerateImage(ctx context.Context, prompt string) (*Image, error) {
	return nil, fmt.Errorf("%w: ai gateway not configured", domain.ErrProviderUnavailable)
}

// Client talks to the gateway's chat completions endpoint with image
// output enabled.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

// NewClient creates a gateway client.
func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model      string        `json:"model"`
	Messages   []chatMessage `json:"messages"`
	Modalities []string      `json:"modalities"`
}

// GenerateImage asks the model for a single image.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (*Image, error) {
	body, err := json.Marshal(chatRequest{
		Model:      c.model,
		Messages:   []chatMessage{{Role: "user", Content: prompt}},
		Modalities: []string{"image", "text"},
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: ai gateway: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read ai gateway response: %v", domain.ErrProviderUnavailable, err)
	}
	if resp.StatusCode >= 300 {
		msg := gjson.GetBytes(raw, "error.message").String()
		return nil, fmt.Errorf("%w: ai gateway status %d: %s", domain.ErrProviderUnavailable, resp.StatusCode, msg)
	}

	url := gjson.GetBytes(raw, "choices.0.message.images.0.image_url.url").String()
	if url == "" {
		// Plain images API responses.
		if b64 := gjson.GetBytes(raw, "data.0.b64_json").String(); b64 != "" {
			url = "data:image/png;base64," + b64
		}
	}
	if url == "" {
		return nil, fmt.Errorf("%w: ai gateway returned no image", domain.ErrProviderUnavailable)
	}
	return decodeDataURL(url)
}

// decodeDataURL parses "data:<mime>;base64,<payload>".
func decodeDataURL(u string) (*Image, error) {
	rest, ok := strings.CutPrefix(u, "data:")
	if !ok {
		return nil, fmt.Errorf("%w: expected a data url", domain.ErrProviderUnavailable)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("%w: malformed data url", domain.ErrProviderUnavailable)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: decode image: %v", domain.ErrProviderUnavailable, err)
	}
	mimeType := strings.TrimSuffix(meta, ";base64")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return &Image{Data: data, MIMEType: mimeType}, nil
}
