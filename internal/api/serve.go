package api

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"
)

const shutdownGrace = 10 * time.Second

// Serve runs h on addr until ctx is done, then shuts down gracefully. There is no
// write timeout so /events can stay open; open streams end when shutdown starts.
func Serve(ctx context.Context, addr string, h http.Handler, logger *log.Logger) error {
	base, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	server := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return base },
	}
	server.RegisterOnShutdown(cancelBase)

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("server listening on %s", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Println("shutdown signal received")
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
