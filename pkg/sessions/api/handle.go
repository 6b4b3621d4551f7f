package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tablerock/resto-secure/pkg/client"
	"github.com/tablerock/resto-secure/pkg/secerrors"
	"github.com/tablerock/resto-secure/pkg/sessions"
)

// Handler handles HTTP requests for session tracking and checks
type Handler struct {
	service *sessions.Service
}

// NewHandler creates a new session handler
func NewHandler(service *sessions.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// ErrorResponse is the error body shape shared by the security endpoints
type ErrorResponse struct {
	Error string `json:"error"`
}

// RegisterRoutes registers the session routes. These routes should be
// mounted under an authenticated route group.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/check", h.CheckSession)
	r.Get("/", h.ListSessions)
}

// CheckSession handles GET /check - classify the device, score the request,
// and refresh the caller's session
func (h *Handler) CheckSession(w http.ResponseWriter, r *http.Request) {
	authUser, ok := client.AuthUserFromContext(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "Unauthorized"})
		return
	}

	result, err := h.service.CheckSession(r.Context(), sessions.CheckRequest{
		UserID:       authUser.UserUuid,
		SessionToken: sessionToken(r),
		IPAddress:    clientIP(r),
		UserAgent:    r.UserAgent(),
	})
	if err != nil {
		renderError(w, r, err, "Failed to check session")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, result)
}

// ListSessions handles GET / - list the caller's active sessions
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	authUser, ok := client.AuthUserFromContext(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "Unauthorized"})
		return
	}

	active, err := h.service.ListActive(r.Context(), authUser.UserUuid)
	if err != nil {
		renderError(w, r, err, "Failed to list sessions")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]interface{}{
		"sessions": active,
		"total":    len(active),
	})
}

// sessionToken identifies the caller's session. The raw bearer token is the
// natural key: one token, one device session.
func sessionToken(r *http.Request) string {
	bearer := r.Header.Get("Authorization")
	if len(bearer) > 7 && strings.EqualFold(bearer[0:6], "bearer") {
		return strings.TrimSpace(bearer[7:])
	}
	if cookie, err := r.Cookie(client.ACCESS_TOKEN_NAME); err == nil {
		return cookie.Value
	}
	return ""
}

// clientIP prefers proxy-forwarded headers over the socket address
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		// first hop is the original client
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
