package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBlacklist struct {
	revoked map[string]bool
}

func (f *fakeBlacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	return f.revoked[token], nil
}

func okHandler(t *testing.T, wantUserID int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := FromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, wantUserID, claims.UserID)

		raw, ok := RawTokenFromContext(r.Context())
		require.True(t, ok)
		assert.NotEmpty(t, raw)

		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddlewareAcceptsValidToken(t *testing.T) {
	secret := []byte("test-secret")
	raw, err := IssueToken(secret, time.Hour, 42, "Alice", "alice", RolePatient)
	require.NoError(t, err)

	handler := Middleware(secret, &fakeBlacklist{})(okHandler(t, 42))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewareRejectsMissingHeader(t *testing.T) {
	handler := Middleware([]byte("test-secret"), &fakeBlacklist{})(okHandler(t, 0))

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareRejectsBadToken(t *testing.T) {
	handler := Middleware([]byte("test-secret"), &fakeBlacklist{})(okHandler(t, 0))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareRejectsRevokedToken(t *testing.T) {
	secret := []byte("test-secret")
	raw, err := IssueToken(secret, time.Hour, 42, "Alice", "alice", RolePatient)
	require.NoError(t, err)

	blacklist := &fakeBlacklist{revoked: map[string]bool{raw: true}}
	handler := Middleware(secret, blacklist)(okHandler(t, 42))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	secret := []byte("test-secret")
	raw, err := IssueToken(secret, time.Hour, 42, "Alice", "alice", RolePatient)
	require.NoError(t, err)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := Middleware(secret, &fakeBlacklist{})(RequireRole(RoleDoctor)(inner))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Same chain accepts a doctor token.
	raw, err = IssueToken(secret, time.Hour, 43, "Dr. Bob", "bob", RoleDoctor)
	require.NoError(t, err)

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec = httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
