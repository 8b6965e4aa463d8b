package email

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pliiiz/pliiiz/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmailService(t *testing.T) {
	s, err := NewEmailService(&config.Config{EmailProvider: "log"})
	require.NoError(t, err)
	assert.IsType(t, &LogSender{}, s)

	_, err = NewEmailService(&config.Config{EmailProvider: "resend"})
	assert.Error(t, err)

	_, err = NewEmailService(&config.Config{EmailProvider: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestResendSender(t *testing.T) {
	var got resendPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		if got.To == "bad@example.com" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"message":"invalid recipient"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"em_1"}`))
	}))
	defer srv.Close()

	s := newResendSender("key", "", srv.URL)
	require.NoError(t, s.Send("a@example.com", "Hi", "<p>x</p>"))
	assert.Equal(t, "Pliiiz <onboarding@resend.dev>", got.From)

	err := s.Send("bad@example.com", "Hi", "<p>x</p>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid recipient")
}

func TestInvite(t *testing.T) {
	subject, html, err := Invite("Léa", "Coucou <3", "https://pliiiz.app/signup")
	require.NoError(t, err)
	assert.Equal(t, "Léa vous invite sur Pliiiz", subject)
	assert.Contains(t, html, `href="https://pliiiz.app/signup"`)
	assert.Contains(t, html, "Coucou &lt;3")
}
