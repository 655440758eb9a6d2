package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eek-site/eek-sub001/internal/config"

	"github.com/stretchr/testify/assert"
)

func testAuth(rps float64, burst int) *AdminAuth {
	return NewAdminAuth(config.AdminConfig{
		HeaderAPIKey: "x-api-key",
		APIKeys: []config.AdminAPIKey{
			{Key: "full", Name: "ops", Permissions: []string{PermissionPurge}},
			{Key: "readonly", Name: "reporting", Permissions: []string{"admin:read"}},
			{Key: "open", Name: "legacy"},
		},
		RateLimit: config.RateLimitConfig{RPS: rps, Burst: burst},
	})
}

func doAuth(auth *AdminAuth, permission, apiKey string) int {
	handler := auth.Require(permission, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	if apiKey != "" {
		req.Header.Set("x-api-key", apiKey)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec.Code
}

func TestAdminAuthMissingKey(t *testing.T) {
	auth := testAuth(100, 50)
	assert.Equal(t, http.StatusUnauthorized, doAuth(auth, "", ""))
}

func TestAdminAuthInvalidKey(t *testing.T) {
	auth := testAuth(100, 50)
	assert.Equal(t, http.StatusUnauthorized, doAuth(auth, "", "bogus"))
}

func TestAdminAuthPermissionCheck(t *testing.T) {
	auth := testAuth(100, 50)

	assert.Equal(t, http.StatusOK, doAuth(auth, PermissionPurge, "full"))
	assert.Equal(t, http.StatusForbidden, doAuth(auth, PermissionPurge, "readonly"))
	// Keys without a permission list hold every permission.
	assert.Equal(t, http.StatusOK, doAuth(auth, PermissionPurge, "open"))
}

func TestAdminAuthNoPermissionRequired(t *testing.T) {
	auth := testAuth(100, 50)
	assert.Equal(t, http.StatusOK, doAuth(auth, "", "readonly"))
}

func TestAdminAuthRateLimit(t *testing.T) {
	auth := testAuth(0.001, 1)

	assert.Equal(t, http.StatusOK, doAuth(auth, "", "full"))
	assert.Equal(t, http.StatusTooManyRequests, doAuth(auth, "", "full"))
	// Limits are per key.
	assert.Equal(t, http.StatusOK, doAuth(auth, "", "readonly"))
}
