package registry

import (
	"github.com/labstack/echo/v4"
	"github.com/pliiiz/pliiiz/internal/pubsub"
	"github.com/robfig/cron/v3"
)

// Core service keys, set by the server before any module registers.
// Modules declare keys for their own services next to the service type.
const (
	PublisherKey  Key[pubsub.Publisher]    = "core.publisher"
	SubscriberKey Key[pubsub.Subscriber]   = "core.subscriber"
	SchedulerKey  Key[*cron.Cron]          = "core.scheduler"
	AuthKey       Key[echo.MiddlewareFunc] = "core.auth"
)
