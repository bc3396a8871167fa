package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/specialistvlad/mjlaunch/internal/ctxlog"
)

// healthHandler reports that the launcher is alive.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.FromContext(a.ctx)
	logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// statusHandler reports the launch state and the state of every worker.
func (a *App) statusHandler(w http.ResponseWriter, r *http.Request) {
	ctxlog.FromContext(a.ctx).Debug("Status endpoint hit.", "remote_addr", r.RemoteAddr)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(a.Status()); err != nil {
		ctxlog.FromContext(a.ctx).Error("Failed to encode status.", "error", err)
	}
}

func (a *App) healthMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.healthHandler)
	mux.HandleFunc("/status", a.statusHandler)
	return mux
}

// healthCheckServer initializes and runs the health check HTTP server.
func (a *App) healthCheckServer() {
	logger := ctxlog.FromContext(a.ctx)
	logger.Debug("Configuring health check server.")
	if a.config.HealthcheckPort <= 0 {
		logger.Warn("Health check server not started: disabled")
		return
	}

	addr := fmt.Sprintf(":%d", a.config.HealthcheckPort)
	a.httpServer = &http.Server{
		Addr:              addr,
		Handler:           a.healthMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("🩺 Health check server starting", "address", fmt.Sprintf("http://localhost%s/health", addr))
		// ListenAndServe returns ErrServerClosed on graceful shutdown.
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health check server failed unexpectedly", "error", err)
		}
	}()
}

func (a *App) closeHealthCheckServer() error {
	logger := ctxlog.FromContext(a.ctx)
	logger.Debug("Closing health check server...")

	if a.httpServer == nil {
		logger.Debug("Health check server was not running.")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("🩺 Shutting down health check server...")
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logger.Error("Health check server shutdown failed", "error", err)
		return err
	}

	logger.Debug("Health check server shut down gracefully.")
	return nil
}
