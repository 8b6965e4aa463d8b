package app

import (
	"strings"

	"github.com/pliiiz/pliiiz/internal/module"
	"github.com/pliiiz/pliiiz/internal/modules/contacts"
	"github.com/pliiiz/pliiiz/internal/modules/gifts"
	"github.com/pliiiz/pliiiz/internal/modules/images"
	"github.com/pliiiz/pliiiz/internal/modules/notifications"
	"github.com/pliiiz/pliiiz/internal/modules/places"
	"github.com/pliiiz/pliiiz/internal/modules/preferences"
	"github.com/pliiiz/pliiiz/internal/modules/profile"
	"github.com/pliiiz/pliiiz/internal/modules/rpc"
	"github.com/pliiiz/pliiiz/internal/modules/share"
	"github.com/pliiiz/pliiiz/internal/modules/uistate"
)

// NewModules creates and returns the list of all active modules for the application.
// This is the single source of truth for which features are enabled. Order
// matters: rpc and profile publish services the later modules look up.
func NewModules(d *Dependencies) []module.Module {
	cfg := d.Config
	repos := d.Repos
	secureCookies := strings.HasPrefix(cfg.GetAppBaseURL(), "https://")

	return []module.Module{
		rpc.New(),
		profile.New(profile.Deps{
			Profiles:    repos.Profiles,
			Preferences: repos.Preferences,
			Contacts:    repos.Contacts,
			Gifts:       repos.Gifts,
			Bucket:      d.Bucket,
			Generator:   d.Generator,
			Quota:       d.Quota,
		}),
		preferences.New(repos.Preferences),
		contacts.New(contacts.Deps{
			Users:      repos.Users,
			Profiles:   repos.Profiles,
			Contacts:   repos.Contacts,
			Email:      d.Email,
			AppBaseURL: cfg.GetAppBaseURL(),
		}),
		notifications.New(notifications.Deps{
			Notifications: repos.Notifications,
			Devices:       repos.Devices,
			Profiles:      repos.Profiles,
			Contacts:      repos.Contacts,
			Push:          d.Push,
		}),
		gifts.New(gifts.Deps{
			Gifts:    repos.Gifts,
			Contacts: repos.Contacts,
			Resolver: d.Resolver,
		}),
		images.New(images.Deps{
			Resolver:    d.Resolver,
			Regenerator: d.Regenerator,
			Unsplash:    d.Unsplash,
			Gifts:       repos.Gifts,
			BatchSize:   cfg.GetRegenBatchSize(),
		}, cfg.GetRegenSchedule()),
		places.New(d.Places, d.Cache),
		uistate.New(uistate.NewCookieStore(cfg.GetSessionSecret(), secureCookies)),
		share.New(cfg.GetAppBaseURL()),
	}
}
