// Package api exposes the staff-facing JSON API of the booking console.
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

	"github.com/rs/zerolog"

	"github.com/studio-torajirou/kanrigamen/internal/backend"
	"github.com/studio-torajirou/kanrigamen/internal/config"
	"github.com/studio-torajirou/kanrigamen/internal/domain"
	"github.com/studio-torajirou/kanrigamen/internal/metrics"
	"github.com/studio-torajirou/kanrigamen/internal/models"
	"github.com/studio-torajirou/kanrigamen/internal/schedule"
	"github.com/studio-torajirou/kanrigamen/internal/service"
)

// HTTPServer is the console's HTTP surface over the admin service.
type HTTPServer struct {
	cfg    config.APIConfig
	svc    domain.AdminService
	server *http.Server
	auth   *HTTPAuth
	logger *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, svc domain.AdminService, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{cfg: cfg, svc: svc, logger: logger}
	srv.auth = NewHTTPAuth(cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/calendar/", srv.handleCalendar)
	mux.HandleFunc("/api/v1/days/", srv.handleDay)
	mux.HandleFunc("/api/v1/slots", srv.handleSlots)
	mux.HandleFunc("/api/v1/slots/", srv.handleSlotByID)
	mux.HandleFunc("/api/v1/packages", srv.handlePackages)
	mux.HandleFunc("/api/v1/packages/", srv.handlePackageByID)
	mux.HandleFunc("/api/v1/reservations/", srv.handleReservationCancel)
	mux.HandleFunc("/api/v1/customers", srv.handleCustomers)
	mux.HandleFunc("/api/v1/customers/history", srv.handleCustomerHistory)
	mux.HandleFunc("/api/v1/customers/", srv.handleCustomerByID)
	mux.HandleFunc("/api/v1/settings", srv.handleSettings)
	mux.HandleFunc("/api/v1/export/", srv.handleExport)
	mux.HandleFunc("/api/v1/audit", srv.handleAudit)
	mux.HandleFunc("/api/v1/reload", srv.handleReload)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

// Handler exposes the full middleware chain for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// handleCalendar serves GET /api/v1/calendar/{year}/{month}.
func (s *HTTPServer) handleCalendar(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("calendar")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	year, month, ok := parseYearMonth(strings.TrimPrefix(r.URL.Path, "/api/v1/calendar/"))
	if !ok {
		writeError(w, http.StatusBadRequest, "expected /api/v1/calendar/{year}/{month}")
		return
	}

	grid, err := s.svc.MonthView(year, month)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grid)
}

// handleDay serves GET /api/v1/days/{date}.
func (s *HTTPServer) handleDay(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("day")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	date := strings.TrimPrefix(r.URL.Path, "/api/v1/days/")
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	views, err := s.svc.DayView(date)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "slots": views})
}

// handleSlots serves POST /api/v1/slots (create or update).
func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("slots")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var input models.SlotInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.svc.SaveSlot(r.Context(), input); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// handleSlotByID serves GET and DELETE /api/v1/slots/{id}.
func (s *HTTPServer) handleSlotByID(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("slot")
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/slots/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "slot id is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		view, err := s.svc.SlotDetail(id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	case http.MethodDelete:
		if err := s.svc.DeleteSlot(r.Context(), id); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handlePackages serves GET (list) and POST (save) /api/v1/packages.
func (s *HTTPServer) handlePackages(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("packages")
	switch r.Method {
	case http.MethodGet:
		templates, err := s.svc.Templates()
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"packages": templates})
	case http.MethodPost:
		var input models.TemplateInput
		if err := decodeJSON(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := s.svc.SaveTemplate(r.Context(), input); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handlePackageByID serves DELETE /api/v1/packages/{id}.
func (s *HTTPServer) handlePackageByID(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("package")
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/packages/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "package id is required")
		return
	}

	if err := s.svc.DeleteTemplate(r.Context(), id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleReservationCancel serves POST /api/v1/reservations/{id}/cancel.
func (s *HTTPServer) handleReservationCancel(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reservation_cancel")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/reservations/")
	id, ok := strings.CutSuffix(rest, "/cancel")
	if !ok || id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "expected /api/v1/reservations/{id}/cancel")
		return
	}

	if err := s.svc.ForceCancel(r.Context(), id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// handleCustomers serves GET /api/v1/customers[?q=].
func (s *HTTPServer) handleCustomers(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("customers")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	customers, err := s.svc.Customers(r.URL.Query().Get("q"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customers": customers})
}

// handleCustomerHistory serves GET /api/v1/customers/history?email=.
func (s *HTTPServer) handleCustomerHistory(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("customer_history")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	history, err := s.svc.CustomerHistory(email)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"email": email, "history": history})
}

// handleCustomerByID serves GET /api/v1/customers/{id}.
func (s *HTTPServer) handleCustomerByID(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("customer")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/customers/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "customer id is required")
		return
	}

	customer, err := s.svc.CustomerDetail(id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

// handleSettings serves GET and PUT /api/v1/settings.
func (s *HTTPServer) handleSettings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("settings")
	switch r.Method {
	case http.MethodGet:
		settings, err := s.svc.Settings()
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	case http.MethodPut, http.MethodPost:
		var settings models.Settings
		if err := decodeJSON(r, &settings); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := s.svc.SaveSettings(r.Context(), settings); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleExport serves POST /api/v1/export/{year}/{month}.
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("export")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	year, month, ok := parseYearMonth(strings.TrimPrefix(r.URL.Path, "/api/v1/export/"))
	if !ok {
		writeError(w, http.StatusBadRequest, "expected /api/v1/export/{year}/{month}")
		return
	}

	path, err := s.svc.ExportMonth(r.Context(), year, month)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"file": path})
}

// handleAudit serves GET /api/v1/audit[?limit=|?target=].
func (s *HTTPServer) handleAudit(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("audit")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if target := r.URL.Query().Get("target"); target != "" {
		entries, err := s.svc.AuditForTarget(r.Context(), target)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	entries, err := s.svc.RecentAudit(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// handleReload serves POST /api/v1/reload.
func (s *HTTPServer) handleReload(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reload")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err := s.svc.Reload(r.Context()); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

// writeServiceError maps service failures onto HTTP statuses: missing
// state is 404, gating refusals are 409, validation is 400, backend
// trouble is 502/503.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	var bErr *backend.BackendError

	switch {
	case errors.Is(err, service.ErrNoSnapshot):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, service.ErrSlotNotFound),
		errors.Is(err, service.ErrTemplateNotFound),
		errors.Is(err, service.ErrCustomerNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, schedule.ErrPastDate),
		errors.Is(err, schedule.ErrHasReservations):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrNameRequired),
		errors.Is(err, service.ErrTimeRequired),
		errors.Is(err, service.ErrDateRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, backend.ErrAuthRejected):
		writeError(w, http.StatusBadGateway, "backend rejected credentials")
	case errors.As(err, &bErr):
		writeError(w, http.StatusBadGateway, bErr.Message)
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseYearMonth(rest string) (int, time.Month, bool) {
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 {
		return 0, 0, false
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil || year < 2000 || year > 2200 {
		return 0, 0, false
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, false
	}
	return year, time.Month(month), true
}

func decodeJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
