package app

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Start launches the HTTP server and returns a channel closed on a
// termination signal or when the listener fails.
func (a *App) Start() <-chan struct{} {
	terminateChan := make(chan struct{})
	var once sync.Once
	terminate := func() {
		once.Do(func() {
			a.cancel()
			close(terminateChan)
		})
	}

	go func() {
		slog.Info("http server listening", "address", a.httpServer.Addr)

		if err := a.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to listen and serve http server", "error", err)
			terminate()
		}
	}()

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
		defer signal.Stop(sigint)

		select {
		case <-sigint:
			slog.Info("application gracefully shutdown")
			terminate()
		case <-terminateChan:
		}
	}()

	return terminateChan
}

// Serve runs the HTTP server on l instead of the configured address.
func (a *App) Serve(l net.Listener) <-chan error {
	errChan := make(chan error, 1)

	go func() {
		errChan <- a.httpServer.Serve(l)
		close(errChan)
	}()

	return errChan
}

// Stop shuts the server down, drains background jobs and then releases
// resources in reverse order of creation.
func (a *App) Stop(ctx context.Context) {
	a.cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to close resources", "name", "http server", "error", err)
	}

	slog.InfoContext(ctx, "waiting for background jobs to finish", "operations_in_flight", a.pool.InFlight())
	if err := a.goroutine.Wait(); err != nil {
		slog.ErrorContext(ctx, "background job failed", "error", err)
	}
	slog.InfoContext(ctx, "background jobs finished")

	a.release(ctx)
}
