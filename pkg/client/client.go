package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
)

type ExtraClaims struct {
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// AuthUser is the bearer identity extracted from a verified token
type AuthUser struct {
	UserId string `json:"user_id,omitempty"`
	// UserUuid is UserId parsed as a uuid.UUID for direct use
	UserUuid    uuid.UUID
	ExtraClaims ExtraClaims `json:"extra_claims,omitempty"`
}

func (u AuthUser) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("user", u.UserId),
		slog.Any("roles", u.ExtraClaims.Roles),
	)
}

// HasRole reports whether the user carries any of the given roles
func (u *AuthUser) HasRole(roles ...string) bool {
	for _, userRole := range u.ExtraClaims.Roles {
		for _, role := range roles {
			if userRole == role {
				return true
			}
		}
	}
	return false
}

// contextKey is a value for use with context.WithValue. It's used as
// a pointer so it fits in an interface{} without allocation.
type contextKey struct {
	name string
}

func (k *contextKey) String() string {
	return "resto-secure context value " + k.name
}

const (
	ACCESS_TOKEN_NAME = "access_token"
)

var (
	AuthUserKey = &contextKey{"AuthUser"}
)

// LoadFromMap decodes a claims map into a typed struct via JSON round-trip
func LoadFromMap[T any](m map[string]interface{}, c *T) error {
	data, err := json.Marshal(m)
	if err == nil {
		err = json.Unmarshal(data, c)
	}
	return err
}

// AuthUserMiddleware extracts the AuthUser from verified JWT claims and
// stores it on the request context. Must run after a Verifier.
func AuthUserMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			http.Error(w, fmt.Sprintf("missing or invalid JWT: %v", err), http.StatusUnauthorized)
			return
		}
		if claims == nil {
			http.Error(w, "missing JWT claims", http.StatusUnauthorized)
			return
		}

		authUser := new(AuthUser)

		if extraClaimsRaw, exists := claims["extra_claims"]; exists {
			extraClaims, ok := extraClaimsRaw.(map[string]interface{})
			if !ok {
				http.Error(w, "invalid extra claims format", http.StatusUnauthorized)
				return
			}
			if err := LoadFromMap(extraClaims, &authUser.ExtraClaims); err != nil {
				slog.Error("failed to parse extra claims", "error", err)
				http.Error(w, "invalid extra claims data", http.StatusUnauthorized)
				return
			}
		}

		if err := LoadFromMap(claims, authUser); err != nil {
			slog.Error("failed to parse standard claims", "error", err)
			http.Error(w, "invalid token claims", http.StatusUnauthorized)
			return
		}

		if authUser.UserId == "" {
			http.Error(w, "missing user ID in token", http.StatusUnauthorized)
			return
		}

		userUUID, err := uuid.Parse(authUser.UserId)
		if err != nil {
			slog.Warn("failed to parse user ID as UUID", "userId", authUser.UserId, "error", err)
			http.Error(w, "invalid user ID in token", http.StatusUnauthorized)
			return
		}
		authUser.UserUuid = userUUID

		slog.Debug("authenticated user", "userId", authUser.UserId, "roles", authUser.ExtraClaims.Roles)

		ctx := context.WithValue(r.Context(), AuthUserKey, authUser)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Verifier wraps jwtauth.Verify with header and cookie token extractors
func Verifier(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return jwtauth.Verify(ja, jwtauth.TokenFromHeader, TokenFromCookie)(next)
	}
}

func TokenFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(ACCESS_TOKEN_NAME)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// AuthUserFromContext returns the AuthUser placed by AuthUserMiddleware
func AuthUserFromContext(ctx context.Context) (*AuthUser, bool) {
	authUser, ok := ctx.Value(AuthUserKey).(*AuthUser)
	return authUser, ok
}
