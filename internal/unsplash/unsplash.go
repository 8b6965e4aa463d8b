// Package unsplash wraps the Unsplash search and download tracking API.
package unsplash

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/tidwall/gjson"
)

// DefaultBaseURL is the public Unsplash API.
const DefaultBaseURL = "https://api.unsplash.com"

const perPage = 20

// Photo is the subset of an Unsplash photo the app displays.
type Photo struct {
	ID               string `json:"id"`
	Description      string `json:"description"`
	ThumbURL         string `json:"thumb_url"`
	RegularURL       string `json:"regular_url"`
	Author           string `json:"author"`
	AuthorURL        string `json:"author_url"`
	DownloadLocation string `json:"download_location"`
}

// Client calls the Unsplash API with an access key.
type Client struct {
	baseURL   string
	accessKey string
	http      *http.Client
}

// New creates a client. An empty base URL selects the public API.
func New(baseURL, accessKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		accessKey: accessKey,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
}

// Search finds photos matching query.
func (c *Client) Search(ctx context.Context, query string, page int) ([]Photo, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}
	if page < 1 {
		page = 1
	}
	q := url.Values{}
	q.Set("query", query)
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	raw, err := c.get(ctx, c.baseURL+"/search/photos?"+q.Encode())
	if err != nil {
		return nil, err
	}

	results := gjson.GetBytes(raw, "results").Array()
	photos := make([]Photo, 0, len(results))
	for _, r := range results {
		desc := r.Get("description").String()
		if desc == "" {
			desc = r.Get("alt_description").String()
		}
		photos = append(photos, Photo{
			ID:               r.Get("id").String(),
			Description:      desc,
			ThumbURL:         r.Get("urls.thumb").String(),
			RegularURL:       r.Get("urls.regular").String(),
			Author:           r.Get("user.name").String(),
			AuthorURL:        r.Get("user.links.html").String(),
			DownloadLocation: r.Get("links.download_location").String(),
		})
	}
	return photos, nil
}

// Track notifies Unsplash that a photo was used. Only download locations on
// the API host are accepted.
func (c *Client) Track(ctx context.Context, downloadLocation string) error {
	if !strings.HasPrefix(downloadLocation, c.baseURL+"/") {
		return fmt.Errorf("%w: download location must be an Unsplash API url", domain.ErrInvalidInput)
	}
	_, err := c.get(ctx, downloadLocation)
	return err
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	if c.accessKey == "" {
		return nil, fmt.Errorf("%w: unsplash access key not configured", domain.ErrProviderUnavailable)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+c.accessKey)
	req.Header.Set("Accept-Version", "v1")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: unsplash: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read unsplash response: %v", domain.ErrProviderUnavailable, err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unsplash status %d: %s", domain.ErrProviderUnavailable,
			resp.StatusCode, gjson.GetBytes(raw, "errors.0").String())
	}
	return raw, nil
}
