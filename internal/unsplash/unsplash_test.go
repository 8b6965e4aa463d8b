package unsplash

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchBody = `{"total":1,"results":[{
	"id":"abc","description":null,"alt_description":"blue mug",
	"urls":{"thumb":"https://img/thumb","regular":"https://img/regular"},
	"user":{"name":"Ana","links":{"html":"https://unsplash.com/@ana"}},
	"links":{"download_location":"%s/photos/abc/download"}}]}`

func TestSearch(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/photos", r.URL.Path)
		assert.Equal(t, "mug", r.URL.Query().Get("query"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "Client-ID key", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(replace(searchBody, srv.URL)))
	}))
	defer srv.Close()

	photos, err := New(srv.URL, "key").Search(context.Background(), "mug", 2)
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Equal(t, Photo{
		ID:               "abc",
		Description:      "blue mug",
		ThumbURL:         "https://img/thumb",
		RegularURL:       "https://img/regular",
		Author:           "Ana",
		AuthorURL:        "https://unsplash.com/@ana",
		DownloadLocation: srv.URL + "/photos/abc/download",
	}, photos[0])
}

func TestTrack(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/photos/abc/download", r.URL.Path)
		_, _ = w.Write([]byte(`{"url":"https://img/full"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "key")
	require.NoError(t, c.Track(context.Background(), srv.URL+"/photos/abc/download"))
	assert.Equal(t, int32(1), hits.Load())

	err := c.Track(context.Background(), "https://evil.example/steal")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	assert.Equal(t, int32(1), hits.Load())
}

func TestErrors(t *testing.T) {
	_, err := New("", "").Search(context.Background(), "mug", 1)
	assert.True(t, errors.Is(err, domain.ErrProviderUnavailable))

	_, err = New("", "key").Search(context.Background(), " ", 1)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"errors":["Rate Limit Exceeded"]}`))
	}))
	defer srv.Close()
	_, err = New(srv.URL, "key").Search(context.Background(), "mug", 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrProviderUnavailable))
	assert.Contains(t, err.Error(), "Rate Limit Exceeded")
}

func replace(body, base string) string {
	return fmt.Sprintf(body, base)
}
