package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Start runs the HTTP server until ctx is cancelled or the listener fails.
// It does not shut anything down; call Shutdown afterwards.
func (s *Server) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		logStart(addr)
		if err := s.E.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}
