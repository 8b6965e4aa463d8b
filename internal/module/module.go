package module

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/pliiiz/pliiiz/internal/registry"
)

// Module is one feature of the API: a set of routes, RPC procedures and
// event subscribers sharing a service.
type Module interface {
	// Name returns a unique identifier for the module.
	Name() string

	// Register publishes the module's services in the registry. It runs for
	// every module before any Boot.
	Register(reg *registry.Registry) error

	// Boot mounts routes on router and starts subscribers. Services of other
	// modules can be looked up here.
	Boot(ctx context.Context, router *echo.Group, reg *registry.Registry) error

	// Shutdown releases whatever Boot started.
	Shutdown(ctx context.Context) error
}

// BaseModule provides no-op lifecycle methods for embedding.
type BaseModule struct{}

func (m *BaseModule) Register(reg *registry.Registry) error { return nil }
func (m *BaseModule) Boot(ctx context.Context, router *echo.Group, reg *registry.Registry) error {
	return nil
}
func (m *BaseModule) Shutdown(ctx context.Context) error {
	return nil
}

// Set is an ordered list of modules.
type Set []Module

// Register runs Register on every module in order. Names must be unique.
func (s Set) Register(reg *registry.Registry) error {
	seen := make(map[string]bool, len(s))
	for _, m := range s {
		if seen[m.Name()] {
			return fmt.Errorf("module %s listed twice", m.Name())
		}
		seen[m.Name()] = true
		if err := m.Register(reg); err != nil {
			return fmt.Errorf("register module %s: %w", m.Name(), err)
		}
	}
	return nil
}

// Boot boots the modules in order and returns those that booted, so the
// caller can shut them down even when a later one fails.
func (s Set) Boot(ctx context.Context, router *echo.Group, reg *registry.Registry) (Set, error) {
	booted := make(Set, 0, len(s))
	for _, m := range s {
		if err := m.Boot(ctx, router, reg); err != nil {
			return booted, fmt.Errorf("boot module %s: %w", m.Name(), err)
		}
		booted = append(booted, m)
		slog.Debug("Module booted", "module", m.Name())
	}
	return booted, nil
}

// Shutdown shuts the modules down in reverse order and joins the errors.
func (s Set) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(s) - 1; i >= 0; i-- {
		m := s[i]
		if err := m.Shutdown(ctx); err != nil {
			slog.Error("Module shutdown failed", "module", m.Name(), "error", err)
			errs = append(errs, fmt.Errorf("shutdown module %s: %w", m.Name(), err))
		}
	}
	return errors.Join(errs...)
}
