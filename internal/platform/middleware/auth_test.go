package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "carelink/pkg/domain"
	"carelink/pkg/requestcontext"
)

const testSigningKey = "test-signing-key"

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validToken(t *testing.T, userID id.UserID, role string) string {
	t.Helper()
	return signToken(t, jwt.SigningMethodHS256, []byte(testSigningKey), jwt.MapClaims{
		"sub":  userID.String(),
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
}

func TestHMACValidator(t *testing.T) {
	v := NewHMACValidator(testSigningKey)
	userID := id.NewUserID()

	t.Run("accepts a valid token", func(t *testing.T) {
		claims, err := v.ValidateToken(validToken(t, userID, "sitter"))
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
		assert.Equal(t, id.RoleSitter, claims.Role)
	})

	t.Run("normalizes the legacy babysitter role claim", func(t *testing.T) {
		claims, err := v.ValidateToken(validToken(t, userID, "babysitter"))
		require.NoError(t, err)
		assert.Equal(t, id.RoleSitter, claims.Role)
	})

	t.Run("rejects a token signed with another key", func(t *testing.T) {
		token := signToken(t, jwt.SigningMethodHS256, []byte("wrong-key"), jwt.MapClaims{
			"sub":  userID.String(),
			"role": "parent",
			"exp":  time.Now().Add(time.Hour).Unix(),
		})
		_, err := v.ValidateToken(token)
		require.Error(t, err)
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		token := signToken(t, jwt.SigningMethodHS256, []byte(testSigningKey), jwt.MapClaims{
			"sub":  userID.String(),
			"role": "parent",
			"exp":  time.Now().Add(-time.Hour).Unix(),
		})
		_, err := v.ValidateToken(token)
		require.Error(t, err)
	})

	t.Run("rejects a subject that is not a user ID", func(t *testing.T) {
		token := signToken(t, jwt.SigningMethodHS256, []byte(testSigningKey), jwt.MapClaims{
			"sub":  "not-a-uuid",
			"role": "parent",
			"exp":  time.Now().Add(time.Hour).Unix(),
		})
		_, err := v.ValidateToken(token)
		require.Error(t, err)
	})

	t.Run("rejects an unknown role claim", func(t *testing.T) {
		_, err := v.ValidateToken(validToken(t, userID, "janitor"))
		require.Error(t, err)
	})
}

func TestRequireAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	v := NewHMACValidator(testSigningKey)
	userID := id.NewUserID()

	var gotUserID id.UserID
	var gotRole id.Role
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = requestcontext.UserID(r.Context())
		gotRole = requestcontext.Role(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireAuth(v, logger)(next)

	t.Run("passes claims through the context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
		req.Header.Set("Authorization", "Bearer "+validToken(t, userID, "parent"))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, userID, gotUserID)
		assert.Equal(t, id.RoleParent, gotRole)
	})

	t.Run("rejects a missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("rejects a garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
		req.Header.Set("Authorization", "Bearer not.a.token")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestRequireRole(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireRole(id.RoleAdmin, logger)(next)

	t.Run("admits the required role", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
		req = req.WithContext(requestcontext.WithRole(req.Context(), id.RoleAdmin))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("rejects other roles", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
		req = req.WithContext(requestcontext.WithRole(req.Context(), id.RoleParent))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}
