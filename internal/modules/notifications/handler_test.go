package notifications_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/pliiiz/pliiiz/internal/events"
	"github.com/pliiiz/pliiiz/internal/modules/notifications"
	"github.com/pliiiz/pliiiz/internal/pubsub"
	"github.com/pliiiz/pliiiz/internal/push"
	"github.com/pliiiz/pliiiz/internal/testutils"
	"github.com/pliiiz/pliiiz/internal/testutils/apitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boot(t *testing.T) (*apitest.Server, *testutils.Repos, *testutils.MemoryBus) {
	t.Helper()
	repos := testutils.NewRepos()
	bus := testutils.NewMemoryBus()
	mod := notifications.New(notifications.Deps{
		Notifications: repos.Notifications,
		Devices:       repos.Devices,
		Profiles:      repos.Profiles,
		Contacts:      repos.Contacts,
		Push:          &push.LogSender{},
		Publisher:     bus,
		Subscriber:    bus,
	})
	return apitest.Boot(t, repos.Users, mod), repos, bus
}

func requestEvent(from, to *domain.User) events.ContactRequest {
	return events.ContactRequest{RequestID: "contact_request:r1", From: domain.IDString(from.ID), To: domain.IDString(to.ID)}
}

func TestNotificationEndpoints(t *testing.T) {
	srv, repos, bus := boot(t)
	alice := apitest.NewUser(t, repos.Users, "alice@example.com")
	bruno := apitest.NewUser(t, repos.Users, "bruno@example.com")
	ctx := context.Background()

	require.NoError(t, pubsub.Publish(ctx, bus, events.ContactRequestCreated, "", requestEvent(alice, bruno)))
	require.NoError(t, pubsub.Publish(ctx, bus, events.ContactRequestCreated, "", requestEvent(alice, bruno)))
	assert.Len(t, bus.Topic(events.NotificationPublished.Name()), 2)

	rec := srv.Do(t, http.MethodGet, "/app/notifications/unread-count", nil, bruno)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, apitest.Decode[map[string]int](t, rec)["count"])

	rec = srv.Do(t, http.MethodGet, "/app/notifications?unread=true&limit=1", nil, bruno)
	require.Equal(t, http.StatusOK, rec.Code)
	list := apitest.Decode[[]domain.Notification](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "Quelqu'un souhaite vous ajouter à ses contacts.", list[0].Body)

	path := "/app/notifications/" + domain.IDString(list[0].ID)
	assert.Equal(t, http.StatusNotFound, srv.Do(t, http.MethodPost, path+"/read", nil, alice).Code)
	assert.Equal(t, http.StatusNoContent, srv.Do(t, http.MethodPost, path+"/read", nil, bruno).Code)

	rec = srv.Do(t, http.MethodPost, "/app/notifications/read-all", nil, bruno)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, apitest.Decode[map[string]int](t, rec)["updated"])

	assert.Equal(t, http.StatusNoContent, srv.Do(t, http.MethodDelete, path, nil, bruno).Code)
	rec = srv.Do(t, http.MethodGet, "/app/notifications", nil, bruno)
	assert.Len(t, apitest.Decode[[]domain.Notification](t, rec), 1)

	assert.Equal(t, http.StatusBadRequest, srv.Do(t, http.MethodGet, "/app/notifications?limit=500", nil, bruno).Code)
}

func TestPushDevicesAndDispatch(t *testing.T) {
	srv, repos, _ := boot(t)
	alice := apitest.NewUser(t, repos.Users, "alice@example.com")
	admin := apitest.NewUser(t, repos.Users, "admin@example.com")
	repos.Users.MakeAdmin(admin.ID)

	rec := srv.Do(t, http.MethodPost, "/app/push/devices", map[string]any{"token": "device-token-1", "platform": "ios"}, alice)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = srv.Do(t, http.MethodPost, "/app/push/devices", map[string]any{"token": "short", "platform": "ios"}, alice)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := map[string]any{"user_id": domain.IDString(alice.ID), "title": "Test"}
	assert.Equal(t, http.StatusForbidden, srv.Do(t, http.MethodPost, "/functions/push/dispatch", body, alice).Code)

	rec = srv.Do(t, http.MethodPost, "/functions/push/dispatch", body, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, apitest.Decode[notifications.DispatchResult](t, rec).Devices)

	assert.Equal(t, http.StatusNoContent, srv.Do(t, http.MethodDelete, "/app/push/devices/device-token-1", nil, alice).Code)
	rec = srv.Do(t, http.MethodPost, "/functions/push/dispatch", body, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, apitest.Decode[notifications.DispatchResult](t, rec).Devices)
}

func TestRealtimeStream(t *testing.T) {
	srv, repos, bus := boot(t)
	alice := apitest.NewUser(t, repos.Users, "alice@example.com")
	bruno := apitest.NewUser(t, repos.Users, "bruno@example.com")

	server := httptest.NewServer(srv.E)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/app/notifications/ws"
	conn, _, err := websocket.Dial(context.Background(), url, &websocket.DialOptions{
		HTTPHeader: http.Header{apitest.UserHeader: []string{domain.IDString(bruno.ID)}},
	})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })

	// the connection registers asynchronously; republish until a frame lands
	received := make(chan []byte, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if _, data, err := conn.Read(ctx); err == nil {
			received <- data
		}
	}()

	require.Eventually(t, func() bool {
		require.NoError(t, pubsub.Publish(context.Background(), bus, events.ContactRequestCreated, "", requestEvent(alice, bruno)))
		select {
		case data := <-received:
			var frame notifications.Frame
			require.NoError(t, json.Unmarshal(data, &frame))
			assert.Equal(t, "notifications.created", frame.Event)
			assert.Equal(t, domain.IDString(bruno.ID), frame.Data.Recipient)
			assert.Equal(t, "contact_request", frame.Data.Type)
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 3*time.Second, 10*time.Millisecond)
}
