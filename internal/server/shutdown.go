package server

import (
	"context"
	"errors"
	"fmt"
)

// Shutdown stops accepting requests, then shuts the modules down in reverse
// boot order.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.E.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("echo shutdown: %w", err))
	}
	if err := s.modules.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
