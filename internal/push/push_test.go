package push

import (
	"context"
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

func TestOneSignalSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/notifications", r.URL.Path)
		assert.Equal(t, "Key secret", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "app", gjson.GetBytes(body, "app_id").String())
		assert.Equal(t, "t1", gjson.GetBytes(body, "include_subscription_ids.0").String())
		assert.Equal(t, "Bonjour", gjson.GetBytes(body, "headings.fr").String())
		assert.Equal(t, "n1", gjson.GetBytes(body, "data.notification_id").String())
		_, _ = w.Write([]byte(`{"id":"msg-1","errors":{"invalid_player_ids":["t2"]}}`))
	}))
	defer srv.Close()

	s := NewOneSignal(srv.URL, "app", "secret")
	res, err := s.Send(context.Background(), []string{"t1", "t2"}, Message{
		Title: "Bonjour",
		Body:  "Salut",
		Data:  map[string]string{"notification_id": "n1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", res.ID)
	assert.Equal(t, []string{"t2"}, res.InvalidTokens)
}

func TestOneSignalFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":["app_id not found"]}`))
	}))
	defer srv.Close()

	_, err := NewOneSignal(srv.URL, "app", "secret").Send(context.Background(), []string{"t"}, Message{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrProviderUnavailable))
	assert.Contains(t, err.Error(), "app_id not found")
}

func TestNoTokensSkipsRequest(t *testing.T) {
	s := NewOneSignal("http://127.0.0.1:1", "app", "secret")
	res, err := s.Send(context.Background(), nil, Message{Title: "x"})
	require.NoError(t, err)
	assert.Empty(t, res.ID)
}

func TestNewSelectsSender(t *testing.T) {
	assert.IsType(t, &LogSender{}, New(&config.Config{PushProvider: "log"}))
	assert.IsType(t, &LogSender{}, New(&config.Config{PushProvider: "onesignal"}))
	assert.IsType(t, &OneSignal{}, New(&config.Config{PushProvider: "onesignal", PushAppID: "a", PushAPIKey: "k"}))
}
