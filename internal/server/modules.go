package server

import (
	"context"
	"log/slog"

	"github.com/pliiiz/pliiiz/internal/module"
	"github.com/pliiiz/pliiiz/internal/registry"
)

// InitModules registers every module, then boots them in order on the root
// group. Modules that booted are kept for Shutdown even when a later one
// fails.
func (s *Server) InitModules(ctx context.Context, modules []module.Module, reg *registry.Registry) error {
	s.reg = reg
	set := module.Set(modules)
	if err := set.Register(reg); err != nil {
		return err
	}
	booted, err := set.Boot(ctx, s.E.Group(""), reg)
	s.modules = booted
	if err != nil {
		return err
	}
	slog.Info("Modules ready", "count", len(booted), "services", len(reg.Keys()))
	return nil
}
