package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/azure/last30days/internal/cache"
	"github.com/azure/last30days/internal/config"
	"github.com/azure/last30days/internal/notifications"
	"github.com/azure/last30days/internal/render"
	"github.com/azure/last30days/internal/research"
	"github.com/azure/last30days/internal/scheduler"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const maxRequestBody = 1 << 20

func serveCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the watched-topic scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "server port (default: $PORT or 8080)")
	return cmd
}

func runServe(ctx context.Context, port string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if port != "" {
		cfg.Port = port
	}

	setupLogging(os.Stderr, cfg.Debug, &logrus.JSONFormatter{})
	if !cfg.Debug {
		logrus.SetLevel(logrus.InfoLevel)
	}

	logrus.Info("Starting last30days server")

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	writer, err := render.NewWriter(cfg.OutputDir)
	if err != nil {
		return err
	}

	notificationService := notifications.NewService(cfg)
	researchService := research.NewService(cfg, store, notificationService, research.WithWriter(writer))

	schedulerService, err := scheduler.NewService(cfg, researchService)
	if err != nil {
		return err
	}
	if err := schedulerService.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer schedulerService.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      newRouter(researchService),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logrus.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
	return nil
}

func newRouter(svc *research.Service) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	router.HandleFunc("/metrics", metricsHandler(svc)).Methods("GET")
	router.HandleFunc("/research", researchHandler(svc)).Methods("POST")
	router.HandleFunc("/reports/{key:[0-9a-f]{16}}", reportHandler(svc)).Methods("GET")

	return router
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func metricsHandler(svc *research.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(svc.GetMetrics()))
	}
}

func researchHandler(svc *research.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req research.Request
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}

		plan, err := svc.Plan(req)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		report, err := svc.Execute(r.Context(), plan)
		if err != nil {
			logrus.Errorf("Research for %q failed: %v", plan.Topic, err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		w.Header().Set("X-Report-Key", plan.Key)
		writeJSON(w, http.StatusOK, report)
	}
}

func reportHandler(svc *research.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := mux.Vars(r)["key"]

		report, err := svc.Cached(key)
		if errors.Is(err, cache.ErrMiss) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("no report for key %s", key))
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, report)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorf("Failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
