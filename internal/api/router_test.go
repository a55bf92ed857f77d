package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medbridge/hospital-api/internal/auth"
)

type noopBlacklist struct{}

func (noopBlacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	return false, nil
}

var testSecret = []byte("router-test-secret")

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	return NewRouter(RouterConfig{
		Blacklist:   noopBlacklist{},
		JWTSecret:   testSecret,
		CORSOrigins: []string{"*"},
		Log:         zerolog.Nop(),
	})
}

func bearerFor(t *testing.T, role string) string {
	t.Helper()
	raw, err := auth.IssueToken(testSecret, time.Hour, 42, "Alice", "alice", role)
	require.NoError(t, err)
	return "Bearer " + raw
}

func TestLabTestListingRequiresAuth(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest("GET", "/lab-tests", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLabTestListingRefusesPatients(t *testing.T) {
	router := newTestRouter(t)

	// A patient must not be able to browse other patients' lab history,
	// with or without the patient filter.
	for _, target := range []string{"/lab-tests", "/lab-tests?patient=999"} {
		req := httptest.NewRequest("GET", target, nil)
		req.Header.Set("Authorization", bearerFor(t, auth.RolePatient))
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code, target)
	}
}

func TestInternalErrorsStayGeneric(t *testing.T) {
	cause := errors.New(`connect to "postgres://app:hunter2@db/health": broken pipe`)

	for name, handle := range map[string]func(http.ResponseWriter, error){
		"scheduling":   handleSchedulingError,
		"prescription": handlePrescriptionError,
		"pharmacy":     handlePharmacyError,
		"auth":         handleAuthError,
	} {
		rec := httptest.NewRecorder()
		handle(rec, cause)

		assert.Equal(t, http.StatusInternalServerError, rec.Code, name)

		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), name)
		assert.Equal(t, "internal_error", body.Error, name)
		assert.NotContains(t, body.Details, "hunter2", name)
		assert.NotContains(t, body.Details, "postgres://", name)
	}
}
