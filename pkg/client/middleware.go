package client

import (
	"log/slog"
	"net/http"
)

// RequireRole returns a middleware that checks if the authenticated user has
// any of the specified roles. Returns 401 if not authenticated, 403 if
// authenticated but missing the role. Must be used after AuthUserMiddleware.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authUser, ok := AuthUserFromContext(r.Context())
			if !ok {
				slog.Debug("Unauthenticated request to role-protected resource", "requiredRoles", roles)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !authUser.HasRole(roles...) {
				slog.Warn("User lacks required role",
					"userId", authUser.UserId,
					"userRoles", authUser.ExtraClaims.Roles,
					"requiredRoles", roles)
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
