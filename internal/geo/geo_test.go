package geo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pliiiz/pliiiz/internal/config"
	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNominatimSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "lyon", r.URL.Query().Get("q"))
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`[
			{"name":"Lyon","display_name":"Lyon, Rhône, France","lat":"45.7578","lon":"4.8320"},
			{"name":"","display_name":"Lyon Street, Boston, USA","lat":"42.3","lon":"-71.0"},
			{"name":"Third","display_name":"Third, X","lat":"1","lon":"1"}
		]`))
	}))
	defer srv.Close()

	places, err := NewNominatim(srv.URL).Search(context.Background(), "lyon", 2)
	require.NoError(t, err)
	require.Len(t, places, 2)
	assert.Equal(t, "Lyon", places[0].Name)
	assert.InDelta(t, 45.7578, places[0].Lat, 1e-6)
	assert.InDelta(t, 4.8320, places[0].Lon, 1e-6)
	assert.Equal(t, "Lyon Street", places[1].Name)
	assert.Equal(t, "Lyon Street, Boston, USA", places[1].Address)
}

func TestGoogleSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/place/textsearch/json", r.URL.Path)
		assert.Equal(t, "k", r.URL.Query().Get("key"))
		switch r.URL.Query().Get("query") {
		case "none":
			_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
		case "denied":
			_, _ = w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"bad key"}`))
		default:
			_, _ = w.Write([]byte(`{"status":"OK","results":[{"name":"Café","formatted_address":"1 rue X, Paris",
				"geometry":{"location":{"lat":48.85,"lng":2.35}}}]}`))
		}
	}))
	defer srv.Close()

	g := NewGoogle(srv.URL, "k")
	places, err := g.Search(context.Background(), "cafe", 5)
	require.NoError(t, err)
	assert.Equal(t, []Place{{Name: "Café", Address: "1 rue X, Paris", Lat: 48.85, Lon: 2.35}}, places)

	places, err = g.Search(context.Background(), "none", 5)
	require.NoError(t, err)
	assert.Empty(t, places)

	_, err = g.Search(context.Background(), "denied", 5)
	assert.True(t, errors.Is(err, domain.ErrProviderUnavailable))
	assert.Contains(t, err.Error(), "bad key")
}

func TestProviderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewNominatim(srv.URL).Search(context.Background(), "x", 5)
	assert.True(t, errors.Is(err, domain.ErrProviderUnavailable))
}

func TestNewSelectsProvider(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.Config
		want string
	}{
		{"auto without key", &config.Config{PlacesProvider: "auto"}, "nominatim"},
		{"auto with key", &config.Config{PlacesProvider: "auto", GoogleMapsKey: "k"}, "google"},
		{"forced nominatim", &config.Config{PlacesProvider: "nominatim", GoogleMapsKey: "k"}, "nominatim"},
		{"google without key", &config.Config{PlacesProvider: "google"}, "nominatim"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.cfg).Name())
		})
	}
}
