package notifications

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/pliiiz/pliiiz/internal/events"
	"github.com/pliiiz/pliiiz/internal/middleware"
	"github.com/pliiiz/pliiiz/internal/module"
	"github.com/pliiiz/pliiiz/internal/pubsub"
	"github.com/pliiiz/pliiiz/internal/push"
	"github.com/pliiiz/pliiiz/internal/registry"
	"github.com/pliiiz/pliiiz/internal/websocket"
)

// PruneSchedule runs the retention sweep once a night.
const PruneSchedule = "30 3 * * *"

// Deps are the collaborators of the notifications module. Publisher and
// Subscriber default to the ones in the registry.
type Deps struct {
	Notifications domain.NotificationRepository
	Devices       domain.PushDeviceRepository
	Profiles      domain.ProfileRepository
	Contacts      domain.ContactRepository
	Push          push.Sender
	Publisher     pubsub.Publisher
	Subscriber    pubsub.Subscriber
}

// Frame is what websocket clients receive.
type Frame struct {
	Event string                     `json:"event"`
	Data  events.NotificationCreated `json:"data"`
}

// Module wires notifications, push delivery and the realtime stream.
type Module struct {
	module.BaseModule
	deps     Deps
	service  *Service
	notifier *Notifier
	bridge   *websocket.Bridge
	cancel   context.CancelFunc
}

// New creates the notifications module.
func New(deps Deps) *Module {
	return &Module{deps: deps, bridge: websocket.NewBridge()}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "notifications"
}

func (m *Module) Register(reg *registry.Registry) error {
	if m.deps.Publisher == nil {
		m.deps.Publisher = registry.MustGet(reg, registry.PublisherKey)
	}
	if m.deps.Subscriber == nil {
		m.deps.Subscriber = registry.MustGet(reg, registry.SubscriberKey)
	}
	if m.deps.Push == nil {
		m.deps.Push = &push.LogSender{}
	}
	m.service = NewService(m.deps.Notifications, m.deps.Devices, m.deps.Push, m.deps.Publisher)
	m.notifier = NewNotifier(m.service, m.deps.Profiles, m.deps.Contacts)
	return nil
}

// Boot subscribes to domain events, starts the websocket bridge, schedules
// pruning and mounts the routes.
func (m *Module) Boot(ctx context.Context, g *echo.Group, reg *registry.Registry) error {
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	go m.bridge.Run(runCtx)

	sub := m.deps.Subscriber
	if err := pubsub.Subscribe(runCtx, sub, events.ContactRequestCreated, m.notifier.OnContactRequest); err != nil {
		return err
	}
	if err := pubsub.Subscribe(runCtx, sub, events.ContactRequestAccepted, m.notifier.OnContactAccepted); err != nil {
		return err
	}
	if err := pubsub.Subscribe(runCtx, sub, events.GiftOfferMade, m.notifier.OnGiftOffered); err != nil {
		return err
	}
	if err := pubsub.Subscribe(runCtx, sub, events.GiftImageReady, m.notifier.OnImageReady); err != nil {
		return err
	}
	if err := pubsub.Subscribe(runCtx, sub, events.NotificationPublished, m.deliver); err != nil {
		return err
	}

	cron := registry.MustGet(reg, registry.SchedulerKey)
	if _, err := cron.AddFunc(PruneSchedule, func() {
		if _, err := m.service.Prune(runCtx); err != nil {
			slog.Error("Notification pruning failed", "event", "notifications_prune", "error", err)
		}
	}); err != nil {
		return err
	}

	auth := registry.MustGet(reg, registry.AuthKey)
	h := NewHandler(m.service)

	app := g.Group("/app/notifications", auth)
	app.GET("", h.List)
	app.GET("/unread-count", h.UnreadCount)
	app.GET("/ws", m.bridge.Handler())
	app.POST("/read-all", h.MarkAllRead)
	app.POST("/:id/read", h.MarkRead)
	app.DELETE("/:id", h.Delete)

	devices := g.Group("/app/push/devices", auth)
	devices.POST("", h.RegisterDevice)
	devices.DELETE("/:token", h.RemoveDevice)

	g.POST("/functions/push/dispatch", h.Dispatch, auth, middleware.RequireAdmin)
	return nil
}

// deliver pushes a stored notification to the recipient's devices and open
// websocket connections.
func (m *Module) deliver(ctx context.Context, e events.NotificationCreated) error {
	if frame := encode(Frame{Event: events.NotificationPublished.Name(), Data: e}); frame != nil {
		m.bridge.SendDirect(e.Recipient, frame)
	}

	recipient, err := parseUser(e.Recipient)
	if err != nil {
		return err
	}
	data := map[string]string{"notification_id": e.ID, "type": e.Type}
	for k, v := range e.Data {
		data[k] = v
	}
	res, err := m.service.Dispatch(ctx, recipient, push.Message{Title: e.Title, Body: e.Body, Data: data})
	if err != nil {
		return err
	}
	slog.DebugContext(ctx, "Notification pushed", "event", "push_dispatch", "devices", res.Devices, "removed", res.Removed)
	return nil
}

// Shutdown stops the subscriptions and closes websocket connections.
func (m *Module) Shutdown(ctx context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}
	return nil
}
