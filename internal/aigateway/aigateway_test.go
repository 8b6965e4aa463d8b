package aigateway

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pliiiz/pliiiz/internal/config"
	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestGenerateImage(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\nfake")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "test-model", gjson.GetBytes(body, "model").String())
		assert.Equal(t, "a red scarf", gjson.GetBytes(body, "messages.0.content").String())

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"images":[{"image_url":{"url":"data:image/png;base64,` +
			base64.StdEncoding.EncodeToString(png) + `"}}]}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/v1/", "key", "test-model")
	img, err := c.GenerateImage(context.Background(), "a red scarf")
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, png, img.Data)
}

func TestGenerateImageFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":{"message":"boom"}}`},
		{"no image", http.StatusOK, `{"choices":[{"message":{"content":"sorry"}}]}`},
		{"bad data url", http.StatusOK, `{"choices":[{"message":{"images":[{"image_url":{"url":"https://x/y.png"}}]}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, "key", "m").GenerateImage(context.Background(), "x")
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrProviderUnavailable))
		})
	}
}

func TestImagesAPIFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"b64_json":"` + base64.StdEncoding.EncodeToString([]byte("img")) + `"}]}`))
	}))
	defer srv.Close()

	img, err := NewClient(srv.URL, "key", "m").GenerateImage(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []byte("img"), img.Data)
}

func TestNewWithoutConfigIsDisabled(t *testing.T) {
	g := New(&config.Config{})
	_, err := g.GenerateImage(context.Background(), "x")
	assert.True(t, errors.Is(err, domain.ErrProviderUnavailable))
}
