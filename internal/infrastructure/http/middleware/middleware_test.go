package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/recipesimplifier/api/internal/infrastructure/config"
	"github.com/recipesimplifier/api/internal/infrastructure/security"
	"github.com/recipesimplifier/api/internal/ports/inbound"
	apperrors "github.com/recipesimplifier/api/pkg/errors"
)

type fakeVerifier struct {
	identity inbound.Identity
	err      error
}

func (f fakeVerifier) Verify(string) (inbound.Identity, error) {
	return f.identity, f.err
}

type fakeAdmins struct {
	isAdmin bool
	err     error
}

func (f fakeAdmins) CheckStatus(_ context.Context, caller inbound.Identity) (*inbound.AdminStatus, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &inbound.AdminStatus{IsAdmin: f.isAdmin, User: inbound.AdminBrief{ID: caller.UserID}}, nil
}

type recordingMetrics struct {
	route    string
	status   int
	inFlight float64
}

func (m *recordingMetrics) RecordRequest(_ string, route string, status int, _ time.Duration) {
	m.route = route
	m.status = status
}

func (m *recordingMetrics) InFlight(delta float64) { m.inFlight += delta }

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apperrors.ErrorResponse {
	t.Helper()
	var body apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAuthenticate(t *testing.T) {
	caller := inbound.Identity{UserID: uuid.New(), Email: "cook@example.com"}

	t.Run("ValidToken_ShouldStoreIdentity", func(t *testing.T) {
		var seen inbound.Identity
		handler := Authenticate(fakeVerifier{identity: caller}, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = IdentityFrom(r.Context())
			w.WriteHeader(http.StatusOK)
		}))
		req := httptest.NewRequest(http.MethodGet, "/api/account", nil)
		req.Header.Set("Authorization", "Bearer token")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, caller, seen)
	})

	t.Run("MissingHeader_ShouldBeUnauthorized", func(t *testing.T) {
		handler := Authenticate(fakeVerifier{identity: caller}, zap.NewNop())(http.HandlerFunc(okHandler))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/account", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		body := decodeError(t, rec)
		assert.Equal(t, "Unauthorized", body.Error)
		assert.Equal(t, apperrors.CodeUnauthorized, body.Code)
	})

	t.Run("RejectedToken_ShouldBeUnauthorized", func(t *testing.T) {
		handler := Authenticate(fakeVerifier{err: errors.New("expired")}, zap.NewNop())(http.HandlerFunc(okHandler))
		req := httptest.NewRequest(http.MethodGet, "/api/account", nil)
		req.Header.Set("Authorization", "Bearer stale")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireAdmin(t *testing.T) {
	caller := inbound.Identity{UserID: uuid.New()}
	serve := func(admins AdminChecker) *httptest.ResponseRecorder {
		handler := RequireAdmin(admins, zap.NewNop())(http.HandlerFunc(okHandler))
		req := httptest.NewRequest(http.MethodGet, "/api/admin/manage-admin", nil)
		req = req.WithContext(WithIdentity(req.Context(), caller))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("Admin_ShouldPass", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, serve(fakeAdmins{isAdmin: true}).Code)
	})

	t.Run("NonAdmin_ShouldBeForbidden", func(t *testing.T) {
		rec := serve(fakeAdmins{})

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "Admin access required", decodeError(t, rec).Error)
	})

	t.Run("LookupFailure_ShouldBeServerError", func(t *testing.T) {
		rec := serve(fakeAdmins{err: apperrors.NewDatabaseError("check admin status", errors.New("down"))})

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestRateLimit(t *testing.T) {
	limiter := security.NewRateLimiter(config.RateLimitConfig{RequestsPerMin: 1, BurstSize: 1}, zap.NewNop())
	handler := RateLimit(limiter, zap.NewNop())(http.HandlerFunc(okHandler))

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/recipes", nil)
	req.RemoteAddr = "192.0.2.1:5000"
	handler.ServeHTTP(first, req)

	second := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/recipes", nil)
	req.RemoteAddr = "192.0.2.1:5001"
	handler.ServeHTTP(second, req)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))
}

func TestCORS(t *testing.T) {
	cfg := config.ServerConfig{EnableCORS: true, AllowedOrigins: []string{"https://app.example.com/"}}

	t.Run("AllowedOrigin_ShouldBeReflected", func(t *testing.T) {
		handler := CORS(cfg, false)(http.HandlerFunc(okHandler))
		req := httptest.NewRequest(http.MethodOptions, "/api/parse-recipe", nil)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", "POST")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("UnknownOrigin_ShouldGetNoHeaders", func(t *testing.T) {
		handler := CORS(cfg, false)(http.HandlerFunc(okHandler))
		req := httptest.NewRequest(http.MethodGet, "/api/recipes", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestJSONOnly(t *testing.T) {
	handler := JSONOnly()(http.HandlerFunc(okHandler))

	t.Run("FormBody_ShouldBeRejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/parse-recipe", strings.NewReader("url=x"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})

	t.Run("EmptyPost_ShouldPass", func(t *testing.T) {
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/cancel-subscription", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestMetrics(t *testing.T) {
	metrics := &recordingMetrics{}
	handler := Metrics(metrics)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, "unmatched", metrics.route)
	assert.Equal(t, http.StatusTeapot, metrics.status)
	assert.Zero(t, metrics.inFlight)
}
