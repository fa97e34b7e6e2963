package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/MrWong99/scribe/internal/health"
	"github.com/MrWong99/scribe/internal/observe"
)

// startStatusServer serves the probes, the live batch status and the
// Prometheus metrics on addr. The returned function stops the server.
func startStatusServer(addr string, h *health.Handler, tel *observe.Telemetry) (stop func(), err error) {
	mux := http.NewServeMux()
	h.Register(mux)
	mux.Handle("GET /metrics", tel.Handler())

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{
		Handler:           observe.Middleware(tel.Metrics)(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("status server stopped", "err", err)
		}
	}()
	slog.Info("status server listening", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Warn("status server shutdown", "err", err)
		}
	}, nil
}
