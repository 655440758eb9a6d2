package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/eek-site/eek-sub001/internal/config"
	"github.com/eek-site/eek-sub001/internal/metrics"
	"github.com/eek-site/eek-sub001/internal/models"
	"github.com/eek-site/eek-sub001/internal/repository"
	"github.com/eek-site/eek-sub001/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Server exposes the dispatch HTTP API.
type Server struct {
	cfg       config.ServerConfig
	booking   *service.BookingService
	portal    *service.PortalService
	suppliers *repository.SupplierDirectory
	redis     *redis.Client
	server    *http.Server
	auth      *AdminAuth
	logger    *zerolog.Logger
}

func NewServer(cfg config.ServerConfig, adminCfg config.AdminConfig, booking *service.BookingService, portal *service.PortalService, suppliers *repository.SupplierDirectory, redisClient *redis.Client, logger *zerolog.Logger) *Server {
	srv := &Server{
		cfg:       cfg,
		booking:   booking,
		portal:    portal,
		suppliers: suppliers,
		redis:     redisClient,
		auth:      NewAdminAuth(adminCfg),
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/bookings", srv.handleCreateBooking)
	mux.HandleFunc("/api/confirm-booking", srv.handleConfirmBooking)
	mux.HandleFunc("/api/dispatch-job", srv.auth.Require("", srv.handleDispatchJob))
	mux.HandleFunc("/api/jobs/purge", srv.auth.Require(PermissionPurge, srv.handlePurgeJob))
	mux.HandleFunc("/api/jobs/", srv.handleGetJob)
	mux.HandleFunc("/api/admin/approve-payment", srv.auth.Require("", srv.handleApprovePayment))
	mux.HandleFunc("/api/admin/export-jobs", srv.auth.Require("", srv.handleExportJobs))
	mux.HandleFunc("/api/supplier-portal/", srv.handleSupplierPortal)
	mux.HandleFunc("/api/suppliers", srv.auth.Require("", srv.handleListSuppliers))
	mux.HandleFunc("/api/suppliers/", srv.auth.Require("", srv.handleSupplier))
	mux.HandleFunc("/healthz", srv.handleHealthz)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.loggingMiddleware(mux),
		ReadHeaderTimeout: time.Duration(cfg.ReadHeaderTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.WriteTimeoutSec) * time.Second,
	}

	return srv
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		endpoint := endpointLabel(r.URL.Path)
		metrics.IncHTTP(endpoint, strconv.Itoa(recorder.status))
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// endpointLabel collapses per-resource path segments so metric cardinality
// stays bounded.
func endpointLabel(path string) string {
	for _, prefix := range []string{"/api/jobs/", "/api/supplier-portal/", "/api/suppliers/"} {
		if strings.HasPrefix(path, prefix) && path != prefix {
			return prefix + ":ref"
		}
	}
	return path
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// writeJSON writes the success envelope around the payload.
func writeJSON(w http.ResponseWriter, statusCode int, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["success"] = true
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": message})
}

// writeServiceError maps service and store errors to HTTP statuses.
// Unexpected errors return a generic message with the office phone line;
// detail stays in the logs.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	var transition *models.ErrInvalidTransition
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, repository.ErrConfirmRequired),
		errors.Is(err, repository.ErrDenylisted),
		errors.Is(err, service.ErrPickupRequired),
		errors.Is(err, service.ErrContactRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &transition):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError,
			fmt.Sprintf("something went wrong, please call %s", models.FallbackPhone))
	}
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}
