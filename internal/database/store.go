package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/pliiiz/pliiiz/internal/config"
	"github.com/pliiiz/pliiiz/internal/domain"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Stores bundles every repository implementation over one connection.
type Stores struct {
	Users         *UserStore
	Profiles      *ProfileStore
	Preferences   *PreferenceStore
	Contacts      *ContactStore
	Notifications *NotificationStore
	Devices       *PushDeviceStore
	Gifts         *GiftStore
	Images        *ImageLibraryStore
	Jobs          *RegenJobStore
	Files         *FileStore
}

// NewStores builds all stores. It fails fast when the configured timeouts
// are invalid.
func NewStores(conn DBConnection, cfg config.Provider) (*Stores, error) {
	var (
		s   Stores
		err error
	)
	if s.Users, err = NewUserStore(conn, cfg); err != nil {
		return nil, err
	}
	if s.Profiles, err = NewProfileStore(conn, cfg); err != nil {
		return nil, err
	}
	if s.Preferences, err = NewPreferenceStore(conn, cfg); err != nil {
		return nil, err
	}
	if s.Contacts, err = NewContactStore(conn, cfg); err != nil {
		return nil, err
	}
	if s.Notifications, err = NewNotificationStore(conn, cfg); err != nil {
		return nil, err
	}
	if s.Devices, err = NewPushDeviceStore(conn, cfg); err != nil {
		return nil, err
	}
	if s.Gifts, err = NewGiftStore(conn, cfg); err != nil {
		return nil, err
	}
	if s.Images, err = NewImageLibraryStore(conn, cfg); err != nil {
		return nil, err
	}
	if s.Jobs, err = NewRegenJobStore(conn, cfg); err != nil {
		return nil, err
	}
	if s.Files, err = NewFileStore(conn, cfg); err != nil {
		return nil, err
	}
	return &s, nil
}

// countRow decodes `SELECT count() AS count ... GROUP ALL`.
type countRow struct {
	Count int `json:"count"`
}

func now() *surrealmodels.CustomDateTime {
	return &surrealmodels.CustomDateTime{Time: time.Now().UTC()}
}

func datetime(t time.Time) *surrealmodels.CustomDateTime {
	return &surrealmodels.CustomDateTime{Time: t.UTC()}
}

// toDomainErr maps database sentinels onto their domain counterparts so
// handlers only need to know about the domain package.
func toDomainErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	case errors.Is(err, ErrAlreadyExists):
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	case errors.Is(err, ErrInvalidInput):
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return err
}

func notFoundIfNil[T any](v *T, what string) (*T, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, what)
	}
	return v, nil
}
