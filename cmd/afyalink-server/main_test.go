package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afyalink/referral/internal/config"
	"github.com/afyalink/referral/internal/domain/admin"
	"github.com/afyalink/referral/internal/platform/metrics"
)

var _ admin.StaffDirectory = staffDirectory{}

func testConfig() *config.Config {
	return &config.Config{
		Env:           "development",
		DBSchema:      "afyalink",
		JWTTTL:        time.Hour,
		StatsCacheTTL: time.Second,
		CORSOrigins:   []string{"http://localhost:5173"},
	}
}

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := testConfig()
	m := metrics.New("afyalink_test")
	svc := newServices(cfg, nil, m, nil, zerolog.Nop())
	return newRouter(cfg, svc, nil, m, nil, zerolog.Nop())
}

func TestParseExpiry(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	got, err := parseExpiry("", now)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseExpiry("720h", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(720*time.Hour), *got)

	got, err = parseExpiry("2025-12-31T23:59:59Z", now)
	require.NoError(t, err)
	assert.Equal(t, 2025, got.Year())

	_, err = parseExpiry("next week", now)
	assert.Error(t, err)
}

func TestResolveSigningKey(t *testing.T) {
	key, generated, err := resolveSigningKey("configured-secret", false)
	require.NoError(t, err)
	assert.False(t, generated)
	assert.Equal(t, []byte("configured-secret"), key)

	key, generated, err = resolveSigningKey("", true)
	require.NoError(t, err)
	assert.True(t, generated)
	assert.Len(t, key, 32)

	key, _, err = resolveSigningKey("", false)
	require.NoError(t, err)
	assert.Nil(t, key, "no key outside development")
}

func TestNewServices_TokenIssuer(t *testing.T) {
	cfg := testConfig()
	svc := newServices(cfg, nil, nil, nil, zerolog.Nop())
	assert.NotNil(t, svc.tokens, "development gets a generated key")

	cfg.Env = "production"
	cfg.AuthIssuer = "https://idp.example"
	svc = newServices(cfg, nil, nil, nil, zerolog.Nop())
	assert.Nil(t, svc.tokens, "external mode does not sign tokens")
}

func TestRouter_Health(t *testing.T) {
	h := testRouter(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRouter_Metrics(t *testing.T) {
	h := testRouter(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_AnonymousCallersRejected(t *testing.T) {
	h := testRouter(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/me"},
		{http.MethodGet, "/api/v1/referrals"},
		{http.MethodPost, "/api/v1/referrals"},
		{http.MethodGet, "/api/v1/users/pending"},
		{http.MethodGet, "/api/v1/admin/stats"},
		{http.MethodPost, "/api/v1/admin/stats/refresh"},
		{http.MethodGet, "/api/v1/account"},
		{http.MethodGet, "/api/v1/reports/referrals"},
		{http.MethodPost, "/api/v1/registration-codes/redeem"},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader("{}"))
			req.Header.Set("Content-Type", "application/json")
			h.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRouter_InvalidBearerToken(t *testing.T) {
	h := testRouter(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/referrals", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
