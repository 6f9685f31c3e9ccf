// Package healthcheck unit tests
package healthcheck

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubChecker struct {
	status Status
	calls  atomic.Int32
}

func (s *stubChecker) Check(context.Context) Check {
	s.calls.Add(1)
	return Check{Status: s.status, LastChecked: time.Now()}
}

func TestHealthCheck_Check_NoCheckers(t *testing.T) {
	hc := New("1.0.0", zap.NewNop())

	response := hc.Check(context.Background())

	assert.Equal(t, StatusHealthy, response.Status)
	assert.Equal(t, "1.0.0", response.Version)
	assert.Empty(t, response.Checks)
}

func TestHealthCheck_Check_Aggregation(t *testing.T) {
	tests := []struct {
		name     string
		statuses map[string]Status
		want     Status
	}{
		{"all healthy", map[string]Status{"database": StatusHealthy, "redis": StatusHealthy}, StatusHealthy},
		{"one degraded", map[string]Status{"database": StatusHealthy, "redis": StatusDegraded}, StatusDegraded},
		{"unhealthy wins", map[string]Status{"database": StatusUnhealthy, "redis": StatusDegraded}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := New("1.0.0", zap.NewNop())
			for name, status := range tt.statuses {
				hc.Register(name, &stubChecker{status: status})
			}

			response := hc.Check(context.Background())

			assert.Equal(t, tt.want, response.Status)
			require.Len(t, response.Checks, len(tt.statuses))
			assert.Equal(t, "database", response.Checks[0].Name, "checks are sorted by name")
		})
	}
}

func TestHealthCheck_Check_Cache(t *testing.T) {
	hc := New("1.0.0", zap.NewNop())
	checker := &stubChecker{status: StatusHealthy}
	hc.Register("database", checker)

	hc.Check(context.Background())
	hc.Check(context.Background())
	assert.Equal(t, int32(1), checker.calls.Load())

	hc.SetCacheTTL(0)
	hc.Check(context.Background())
	assert.Equal(t, int32(2), checker.calls.Load())
}

type recordingObserver struct {
	mu      sync.Mutex
	results map[string]string
}

func (r *recordingObserver) ObserveCheck(name, status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[name] = status
}

func TestHealthCheck_Observer(t *testing.T) {
	hc := New("1.0.0", zap.NewNop())
	observer := &recordingObserver{results: map[string]string{}}
	hc.SetObserver(observer)
	hc.Register("database", &stubChecker{status: StatusHealthy})
	hc.Register("redis", &stubChecker{status: StatusDegraded})

	hc.Check(context.Background())

	assert.Equal(t, map[string]string{"database": "healthy", "redis": "degraded"}, observer.results)
}

func TestHealthCheck_ReadinessHandler(t *testing.T) {
	t.Run("Unhealthy_ShouldReturn503", func(t *testing.T) {
		hc := New("1.0.0", zap.NewNop())
		hc.Register("database", &stubChecker{status: StatusUnhealthy})
		rec := httptest.NewRecorder()

		hc.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "unhealthy", body["status"])
	})

	t.Run("Degraded_ShouldStillBeReady", func(t *testing.T) {
		hc := New("1.0.0", zap.NewNop())
		hc.Register("redis", &stubChecker{status: StatusDegraded})
		rec := httptest.NewRecorder()

		hc.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestHealthCheck_LivenessHandler(t *testing.T) {
	hc := New("2.1.0", zap.NewNop())
	hc.Register("database", &stubChecker{status: StatusUnhealthy})
	rec := httptest.NewRecorder()

	hc.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version":"2.1.0"`)
}

func TestDatabaseChecker(t *testing.T) {
	t.Run("PingSucceeds_ShouldBeHealthy", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectPing()

		check := NewDatabaseChecker(db).Check(context.Background())

		assert.Equal(t, StatusHealthy, check.Status)
		assert.NotNil(t, check.Metadata)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("PingFails_ShouldBeUnhealthy", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		check := NewDatabaseChecker(db).Check(context.Background())

		assert.Equal(t, StatusUnhealthy, check.Status)
		assert.Equal(t, "connection refused", check.Message)
	})
}

func TestRedisChecker(t *testing.T) {
	t.Run("Reachable_ShouldBeHealthy", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()

		check := NewRedisChecker(client).Check(context.Background())

		assert.Equal(t, StatusHealthy, check.Status)
	})

	t.Run("Down_ShouldBeDegraded", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
		defer client.Close()
		mr.Close()

		check := NewRedisChecker(client).Check(context.Background())

		assert.Equal(t, StatusDegraded, check.Status)
		assert.NotEmpty(t, check.Message)
	})
}

func TestConfiguredChecker(t *testing.T) {
	missing := ConfiguredChecker("billing", false, "billing.secret_key is not set").Check(context.Background())
	present := ConfiguredChecker("billing", true, "").Check(context.Background())

	assert.Equal(t, StatusDegraded, missing.Status)
	assert.Equal(t, "billing.secret_key is not set", missing.Message)
	assert.Equal(t, StatusHealthy, present.Status)
}

func TestCheck_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Check{Name: "database", Status: StatusHealthy, Duration: 1500 * time.Millisecond})

	require.NoError(t, err)
	assert.Contains(t, string(data), `"duration_ms":1500`)
}
