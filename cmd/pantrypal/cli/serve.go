package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"pantrypal/app"
	"pantrypal/inventory"
	"pantrypal/session"
	"pantrypal/suggest"
)

func serveCmd(e *env) *cobra.Command {
	var (
		addr     string
		poolSize int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve actions over HTTP with Prometheus metrics on /metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := app.NewPool(e.deps, poolSize)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, addr, newMux(pool, e.registry))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	cmd.Flags().IntVar(&poolSize, "pool-size", app.DefaultPoolSize, "Users kept in memory between requests")
	return cmd
}

// actionRunner runs one action request. *app.Pool serves one App per user.
type actionRunner interface {
	Handle(ctx context.Context, req app.Request) (app.Response, error)
}

func newMux(a actionRunner, reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("POST /v1/actions", actionHandler(a))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

type errorBody struct {
	Error    string       `json:"error"`
	Response app.Response `json:"response"`
}

func actionHandler(a actionRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req app.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		resp, err := a.Handle(r.Context(), req)
		if err != nil {
			slog.Warn("APP: Action failed", "action", req.Action, "error", err)
			writeJSON(w, statusFor(err), errorBody{Error: err.Error(), Response: resp})
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, inventory.ErrNoSession), errors.Is(err, session.ErrInvalidIdentity):
		return http.StatusUnauthorized
	case errors.Is(err, inventory.ErrInvalidItem), errors.Is(err, app.ErrUnknownAction),
		errors.Is(err, app.ErrMissingItem), errors.Is(err, suggest.ErrUnknownKind),
		errors.Is(err, inventory.ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrNotifyDisabled):
		return http.StatusNotImplemented
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("APP: Failed to write response", "error", err)
	}
}

func serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("SETUP: Listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
