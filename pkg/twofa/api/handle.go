package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/jinzhu/copier"

	"github.com/tablerock/resto-secure/pkg/client"
	"github.com/tablerock/resto-secure/pkg/secerrors"
	"github.com/tablerock/resto-secure/pkg/twofa"
)

// Handler handles HTTP requests for the two-factor lifecycle
type Handler struct {
	service *twofa.Service
}

// NewHandler creates a new two-factor handler
func NewHandler(service *twofa.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// ErrorResponse is the error body shape shared by the security endpoints
type ErrorResponse struct {
	Error string `json:"error"`
}

// SetupRequest is the body for POST /setup
type SetupRequest struct {
	Email string `json:"email"`
}

// VerifyRequest is the body for POST /verify
type VerifyRequest struct {
	Token string `json:"token"`
}

// DisableRequest is the body for POST /disable
type DisableRequest struct {
	Password string `json:"password"`
}

// StatusResponse is the body for GET /status
type StatusResponse struct {
	IsEnabled     bool       `json:"is_enabled"`
	RecoveryEmail string     `json:"recovery_email,omitempty"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
	LockedUntil   *time.Time `json:"locked_until,omitempty"`
}

// RegisterRoutes registers the two-factor routes. These routes should be
// mounted under an authenticated route group.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/setup", h.Setup)
	r.Post("/verify", h.Verify)
	r.Post("/disable", h.Disable)
	r.Get("/status", h.Status)
}

// Setup handles POST /setup - begin (or restart) enrollment
func (h *Handler) Setup(w http.ResponseWriter, r *http.Request) {
	authUser, ok := client.AuthUserFromContext(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req SetupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		email = authUser.ExtraClaims.Email
	}
	if email == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Email is required"})
		return
	}

	result, err := h.service.Setup(r.Context(), authUser.UserUuid, email, requestMeta(r))
	if err != nil {
		renderError(w, r, err, "Failed to start two-factor setup")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, result)
}

// Verify handles POST /verify - confirm a TOTP or backup code
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	authUser, ok := client.AuthUserFromContext(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.Token == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Token is required"})
		return
	}

	if err := h.service.Verify(r.Context(), authUser.UserUuid, req.Token, requestMeta(r)); err != nil {
		renderError(w, r, err, "Failed to verify two-factor code")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{
		"message": "Two-factor code verified",
	})
}

// Disable handles POST /disable - turn off 2FA after password re-auth
func (h *Handler) Disable(w http.ResponseWriter, r *http.Request) {
	authUser, ok := client.AuthUserFromContext(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req DisableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}

	if err := h.service.Disable(r.Context(), authUser.UserUuid, req.Password, requestMeta(r)); err != nil {
		renderError(w, r, err, "Failed to disable two-factor authentication")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{
		"message": "Two-factor authentication disabled",
	})
}

// Status handles GET /status - report whether 2FA is enabled
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	authUser, ok := client.AuthUserFromContext(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "Unauthorized"})
		return
	}

	settings, err := h.service.Status(r.Context(), authUser.UserUuid)
	if err != nil {
		// never configured reads as disabled rather than an error
		if secerrors.IsCode(err, secerrors.ErrCodeNotConfigured) {
			render.Status(r, http.StatusOK)
			render.JSON(w, r, StatusResponse{IsEnabled: false})
			return
		}
		renderError(w, r, err, "Failed to load two-factor status")
		return
	}

	var resp StatusResponse
	if err := copier.Copy(&resp, &settings); err != nil {
		slog.Error("Failed to map status response", "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "Failed to load two-factor status"})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, resp)
}

func requestMeta(r *http.Request) twofa.RequestMeta {
	return twofa.RequestMeta{
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	}
}

// clientIP prefers proxy-forwarded headers over the socket address
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if idx := strings.Index(forwarded, ","); idx > 0 {
			return strings.TrimSpace(forwarded[:idx])
		}
		return strings.TrimSpace(forwarded)
	}
	if realIP := r.Header.Get("X-Real-Ip"); realIP != "" {
		return realIP
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
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
