package client

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuth() *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte("test-secret"), nil)
}

func signedRequest(t *testing.T, ja *jwtauth.JWTAuth, claims map[string]interface{}) *http.Request {
	t.Helper()
	_, tokenString, err := ja.Encode(claims)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "BEARER "+tokenString)
	return req
}

func protectedHandler(t *testing.T, captured **AuthUser) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authUser, ok := AuthUserFromContext(r.Context())
		require.True(t, ok)
		*captured = authUser
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthUserMiddleware(t *testing.T) {
	ja := newTestAuth()
	userID := uuid.New()

	var captured *AuthUser
	handler := Verifier(ja)(AuthUserMiddleware(protectedHandler(t, &captured)))

	req := signedRequest(t, ja, map[string]interface{}{
		"user_id": userID.String(),
		"extra_claims": map[string]interface{}{
			"roles": []string{"manager"},
		},
	})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	assert.Equal(t, userID, captured.UserUuid)
	assert.Equal(t, []string{"manager"}, captured.ExtraClaims.Roles)
}

func TestAuthUserMiddlewareMissingToken(t *testing.T) {
	ja := newTestAuth()

	var captured *AuthUser
	handler := Verifier(ja)(AuthUserMiddleware(protectedHandler(t, &captured)))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, captured)
}

func TestAuthUserMiddlewareRejectsNonUUIDUser(t *testing.T) {
	ja := newTestAuth()

	var captured *AuthUser
	handler := Verifier(ja)(AuthUserMiddleware(protectedHandler(t, &captured)))

	req := signedRequest(t, ja, map[string]interface{}{"user_id": "not-a-uuid"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	ja := newTestAuth()

	var captured *AuthUser
	handler := Verifier(ja)(AuthUserMiddleware(RequireRole("service")(protectedHandler(t, &captured))))

	req := signedRequest(t, ja, map[string]interface{}{
		"user_id": uuid.New().String(),
		"extra_claims": map[string]interface{}{
			"roles": []string{"staff"},
		},
	})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = signedRequest(t, ja, map[string]interface{}{
		"user_id": uuid.New().String(),
		"extra_claims": map[string]interface{}{
			"roles": []string{"service"},
		},
	})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
