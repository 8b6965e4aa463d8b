// Package websocket streams per-user events to connected clients.
package websocket

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/pliiiz/pliiiz/internal/middleware"
)

const (
	sendBuffer   = 64
	writeTimeout = 10 * time.Second
)

// client is one open connection. A user may hold several, e.g. a phone and
// a browser tab.
type client struct {
	userID string
	conn   *websocket.Conn
	send   chan []byte
}

type directMessage struct {
	userID  string
	payload []byte
}

// Bridge fans messages out to the connections of a user.
type Bridge struct {
	clients map[string][]*client
	mu      sync.RWMutex

	register   chan *client
	unregister chan *client
	direct     chan directMessage
	done       chan struct{}

	// AcceptOptions is passed to websocket.Accept.
	AcceptOptions *websocket.AcceptOptions
}

// NewBridge creates a Bridge. Run must be started before connections are
// accepted.
func NewBridge() *Bridge {
	return &Bridge{
		clients:    make(map[string][]*client),
		register:   make(chan *client),
		unregister: make(chan *client),
		direct:     make(chan directMessage, 256),
		done:       make(chan struct{}),
	}
}

// Run manages the client set until ctx is cancelled, then closes every
// connection.
func (b *Bridge) Run(ctx context.Context) {
	slog.Info("Websocket bridge started")
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			for id, clients := range b.clients {
				for _, c := range clients {
					close(c.send)
				}
				delete(b.clients, id)
			}
			b.mu.Unlock()
			slog.Info("Websocket bridge stopped")
			return

		case c := <-b.register:
			b.mu.Lock()
			b.clients[c.userID] = append(b.clients[c.userID], c)
			b.mu.Unlock()
			slog.Debug("Websocket client registered", "user", c.userID)

		case c := <-b.unregister:
			b.mu.Lock()
			clients := b.clients[c.userID]
			for i, existing := range clients {
				if existing == c {
					b.clients[c.userID] = append(clients[:i], clients[i+1:]...)
					close(c.send)
					break
				}
			}
			if len(b.clients[c.userID]) == 0 {
				delete(b.clients, c.userID)
			}
			b.mu.Unlock()
			slog.Debug("Websocket client unregistered", "user", c.userID)

		case msg := <-b.direct:
			b.mu.RLock()
			for _, c := range b.clients[msg.userID] {
				select {
				case c.send <- msg.payload:
				default:
					slog.Warn("Websocket send buffer full, dropping message", "user", c.userID)
				}
			}
			b.mu.RUnlock()
		}
	}
}

// SendDirect queues payload for every connection of userID. Messages for
// users without a connection are dropped.
func (b *Bridge) SendDirect(userID string, payload []byte) {
	select {
	case b.direct <- directMessage{userID: userID, payload: payload}:
	case <-b.done:
	}
}

// Connections returns the number of open connections of userID.
func (b *Bridge) Connections(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients[userID])
}

// Handler upgrades an authenticated request. Messages sent by the client
// are read and discarded; the stream is server to client only.
func (b *Bridge) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		user := middleware.CurrentUser(c)
		if user == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}

		conn, err := websocket.Accept(c.Response(), c.Request(), b.AcceptOptions)
		if err != nil {
			slog.Warn("Websocket upgrade failed", "error", err)
			return nil
		}

		cl := &client{userID: domain.IDString(user.ID), conn: conn, send: make(chan []byte, sendBuffer)}
		select {
		case b.register <- cl:
		case <-b.done:
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return nil
		}

		go b.writePump(cl)
		b.readPump(c.Request().Context(), cl)
		return nil
	}
}

func (b *Bridge) readPump(ctx context.Context, c *client) {
	defer func() {
		select {
		case b.unregister <- c:
		case <-b.done:
		}
	}()
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway &&
				!errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
				slog.Debug("Websocket read ended", "user", c.userID, "error", err)
			}
			return
		}
	}
}

func (b *Bridge) writePump(c *client) {
	defer c.conn.Close(websocket.StatusNormalClosure, "closing")
	for payload := range c.send {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := c.conn.Write(ctx, websocket.MessageText, payload)
		cancel()
		if err != nil {
			slog.Debug("Websocket write failed", "user", c.userID, "error", err)
			return
		}
	}
}
