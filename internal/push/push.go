// Package push delivers notifications to mobile devices.
package push

import (
	"bytes"
	"context"
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

// Message is the payload shown on the device.
type Message struct {
	Title string
	Body  string
	Data  map[string]string
}

// Result reports what the provider did with a send.
type Result struct {
	ID string
	// InvalidTokens lists device tokens the provider no longer recognises.
	InvalidTokens []string
}

// Sender sends a message to a set of device tokens.
type Sender interface {
	Send(ctx context.Context, tokens []string, msg Message) (*Result, error)
}

// New returns the sender selected by PUSH_PROVIDER.
func New(cfg config.Provider) Sender {
	switch cfg.GetPushProvider() {
	case "onesignal":
		if cfg.GetPushAppID() == "" || cfg.GetPushAPIKey() == "" {
			slog.Warn("OneSignal selected without PUSH_APP_ID/PUSH_API_KEY, logging pushes instead")
			return &LogSender{}
		}
		return NewOneSignal("", cfg.GetPushAppID(), cfg.GetPushAPIKey())
	default:
		return &LogSender{}
	}
}

// LogSender logs pushes instead of sending them.
type LogSender struct{}

func (s *LogSender) Send(ctx context.Context, tokens []string, msg Message) (*Result, error) {
	slog.InfoContext(ctx, "Push notification (log only)",
		"devices", len(tokens),
		"title", msg.Title,
		"body", msg.Body,
	)
	return &Result{ID: "log"}, nil
}

// OneSignal sends through the OneSignal REST API.
type OneSignal struct {
	baseURL string
	appID   string
	apiKey  string
	http    *http.Client
}

// NewOneSignal creates a OneSignal sender. An empty base URL selects the
// public API.
func NewOneSignal(baseURL, appID, apiKey string) *OneSignal {
	if baseURL == "" {
		baseURL = "https://api.onesignal.com"
	}
	return &OneSignal{
		baseURL: strings.TrimRight(baseURL, "/"),
		appID:   appID,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type oneSignalRequest struct {
	AppID                  string            `json:"app_id"`
	IncludeSubscriptionIDs []string          `json:"include_subscription_ids"`
	Headings               map[string]string `json:"headings"`
	Contents               map[string]string `json:"contents"`
	Data                   map[string]string `json:"data,omitempty"`
}

func (s *OneSignal) Send(ctx context.Context, tokens []string, msg Message) (*Result, error) {
	if len(tokens) == 0 {
		return &Result{}, nil
	}
	body, err := json.Marshal(oneSignalRequest{
		AppID:                  s.appID,
		IncludeSubscriptionIDs: tokens,
		Headings:               map[string]string{"en": msg.Title, "fr": msg.Title},
		Contents:               map[string]string{"en": msg.Body, "fr": msg.Body},
		Data:                   msg.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("encode push: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/notifications", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Key "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: onesignal: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read onesignal response: %v", domain.ErrProviderUnavailable, err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: onesignal status %d: %s", domain.ErrProviderUnavailable,
			resp.StatusCode, gjson.GetBytes(raw, "errors.0").String())
	}

	res := &Result{ID: gjson.GetBytes(raw, "id").String()}
	for _, t := range gjson.GetBytes(raw, "errors.invalid_player_ids").Array() {
		res.InvalidTokens = append(res.InvalidTokens, t.String())
	}
	return res, nil
}
