package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"github.com/tablerock/resto-secure/pkg/backup"
	"github.com/tablerock/resto-secure/pkg/client"
	"github.com/tablerock/resto-secure/pkg/secerrors"
)

// Handler handles HTTP requests for backup administration
type Handler struct {
	service *backup.Service
}

// NewHandler creates a new backup handler
func NewHandler(service *backup.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// ErrorResponse is the error body shape shared by the security endpoints
type ErrorResponse struct {
	Error string `json:"error"`
}

// RunResponse wraps the per-restaurant results of one pass
type RunResponse struct {
	Results []backup.Result `json:"results"`
}

// SavePolicyRequest is the body for PUT /settings
type SavePolicyRequest struct {
	RestaurantID      uuid.UUID           `json:"restaurant_id"`
	AutoBackupEnabled bool                `json:"auto_backup_enabled"`
	FrequencyHours    int                 `json:"frequency_hours"`
	Types             []backup.BackupType `json:"types"`
	RetentionDays     int                 `json:"retention_days"`
}

// RegisterRoutes registers the backup admin routes. The whole group needs
// the service role; individual staff tokens get 403.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Use(client.RequireRole("service", "admin"))
	r.Post("/run", h.RunBackups)
	r.Post("/schedule", h.ScheduleBackups)
	r.Put("/settings", h.SavePolicy)
}

// RunBackups handles POST /run - execute one backup pass now. Partial
// failure still answers 200 with mixed-status results; only a failure to
// enumerate policies is a 500.
func (h *Handler) RunBackups(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.RunPass(r.Context())
	if err != nil {
		renderError(w, r, err, "Failed to run backup pass")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, RunResponse{Results: results})
}

// ScheduleBackups handles POST /schedule - identical to /run; kept as a
// separate route for external cron triggers
func (h *Handler) ScheduleBackups(w http.ResponseWriter, r *http.Request) {
	h.RunBackups(w, r)
}

// SavePolicy handles PUT /settings - create or replace a restaurant's
// backup policy
func (h *Handler) SavePolicy(w http.ResponseWriter, r *http.Request) {
	var req SavePolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}

	var setting backup.Setting
	if err := copier.Copy(&setting, &req); err != nil {
		slog.Error("Failed to map policy request", "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "Failed to save backup policy"})
		return
	}

	saved, err := h.service.SavePolicy(r.Context(), setting)
	if err != nil {
		renderError(w, r, err, "Failed to save backup policy")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, saved)
}

func renderError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var secErr *secerrors.Error
	if errors.As(err, &secErr) {
		if secErr.HTTPStatusCode() >= http.StatusInternalServerError {
			slog.Error(fallback, "error", err)
		}
		render.Status(r, secErr.HTTPStatusCode())
		render.JSON(w, r, ErrorResponse{Error: secErr.Message})
		return
	}
	slog.Error(fallback, "error", err)
	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, ErrorResponse{Error: fallback})
}
