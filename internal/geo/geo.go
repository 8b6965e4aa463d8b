// Package geo searches places through Google Places or OpenStreetMap
// Nominatim.
package geo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pliiiz/pliiiz/internal/config"
	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/tidwall/gjson"
)

// Place is a search hit.
type Place struct {
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Provider searches places by free text.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]Place, error)
}

// New picks Google when PLACES_PROVIDER is "google", or when it is "auto"
// and a key is configured. Nominatim is used otherwise.
func New(cfg config.Provider) Provider {
	key := cfg.GetGoogleMapsKey()
	switch cfg.GetPlacesProvider() {
	case "nominatim":
		return NewNominatim(cfg.GetNominatimURL())
	case "google":
		if key == "" {
			slog.Warn("PLACES_PROVIDER=google without GOOGLE_MAPS_KEY, using Nominatim")
			return NewNominatim(cfg.GetNominatimURL())
		}
		return NewGoogle("", key)
	default:
		if key != "" {
			return NewGoogle("", key)
		}
		return NewNominatim(cfg.GetNominatimURL())
	}
}

type httpClient struct {
	http *http.Client
}

func newHTTPClient() httpClient {
	return httpClient{http: &http.Client{Timeout: 10 * time.Second}}
}

func (c httpClient) get(ctx context.Context, provider, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	// Nominatim's usage policy requires an identifying agent.
	req.Header.Set("User-Agent", "pliiiz/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrProviderUnavailable, provider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s response: %v", domain.ErrProviderUnavailable, provider, err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s status %d", domain.ErrProviderUnavailable, provider, resp.StatusCode)
	}
	return raw, nil
}

// Nominatim queries an OpenStreetMap Nominatim instance.
type Nominatim struct {
	httpClient
	baseURL string
}

func NewNominatim(baseURL string) *Nominatim {
	return &Nominatim{httpClient: newHTTPClient(), baseURL: strings.TrimRight(baseURL, "/")}
}

func (n *Nominatim) Name() string { return "nominatim" }

func (n *Nominatim) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "jsonv2")
	q.Set("limit", strconv.Itoa(limit))

	raw, err := n.get(ctx, n.Name(), n.baseURL+"/search?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var places []Place
	gjson.ParseBytes(raw).ForEach(func(_, r gjson.Result) bool {
		display := r.Get("display_name").String()
		name := r.Get("name").String()
		if name == "" {
			name, _, _ = strings.Cut(display, ",")
		}
		places = append(places, Place{
			Name:    name,
			Address: display,
			Lat:     r.Get("lat").Float(),
			Lon:     r.Get("lon").Float(),
		})
		return len(places) < limit
	})
	return places, nil
}

// Google queries the Places Text Search API.
type Google struct {
	httpClient
	baseURL string
	key     string
}

// NewGoogle creates a Google provider. An empty base URL selects the public
// endpoint.
func NewGoogle(baseURL, key string) *Google {
	if baseURL == "" {
		baseURL = "https://maps.googleapis.com"
	}
	return &Google{httpClient: newHTTPClient(), baseURL: strings.TrimRight(baseURL, "/"), key: key}
}

func (g *Google) Name() string { return "google" }

func (g *Google) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("key", g.key)

	raw, err := g.get(ctx, g.Name(), g.baseURL+"/maps/api/place/textsearch/json?"+q.Encode())
	if err != nil {
		return nil, err
	}

	switch status := gjson.GetBytes(raw, "status").String(); status {
	case "OK":
	case "ZERO_RESULTS":
		return []Place{}, nil
	default:
		return nil, fmt.Errorf("%w: google places status %s: %s", domain.ErrProviderUnavailable,
			status, gjson.GetBytes(raw, "error_message").String())
	}

	var places []Place
	gjson.GetBytes(raw, "results").ForEach(func(_, r gjson.Result) bool {
		places = append(places, Place{
			Name:    r.Get("name").String(),
			Address: r.Get("formatted_address").String(),
			Lat:     r.Get("geometry.location.lat").Float(),
			Lon:     r.Get("geometry.location.lng").Float(),
		})
		return len(places) < limit
	})
	return places, nil
}
