package router

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"staffhub-api/internal/cache"
	"staffhub-api/internal/cache/cachetest"
	"staffhub-api/internal/handler"
	"staffhub-api/internal/model"
	"staffhub-api/internal/repository"
	"staffhub-api/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type testServer struct {
	srv   *httptest.Server
	mr    *miniredis.Miniredis
	cache *cache.Accessor
}

func newTestServer(t *testing.T, store cache.Store, mr *miniredis.Miniredis) *testServer {
	t.Helper()
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	repo, err := repository.NewSQLiteHRRepository(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	require.NoError(t, repo.CreateTenant(ctx, model.Tenant{ID: "T1", Name: "Acme", IsActive: true}))
	for _, e := range []model.Employee{
		{ID: "e1", TenantID: "T1", DepartmentID: "eng", FirstName: "Ada", LastName: "Lovelace", Email: "ada@acme.test", Status: model.EmployeeActive},
		{ID: "e2", TenantID: "T1", DepartmentID: "eng", FirstName: "Alan", LastName: "Turing", Email: "alan@acme.test", Status: model.EmployeeActive},
		{ID: "e3", TenantID: "T1", DepartmentID: "ops", FirstName: "Grace", LastName: "Hopper", Email: "grace@acme.test", Status: model.EmployeeActive},
	} {
		require.NoError(t, repo.CreateEmployee(ctx, e))
	}

	accessor := cache.NewAccessor(store, logger)
	invalidator := service.NewInvalidator(accessor, logger)
	hr := service.NewHRService(repo, accessor, invalidator, logger)
	warmer := service.NewWarmer(repo, accessor, service.WarmingConfig{}, logger)

	srv := httptest.NewServer(New(Config{
		Handler:      handler.New(accessor, repo, "staffhub-api", "test"),
		HRHandler:    handler.NewHRHandler(hr, logger),
		AdminHandler: handler.NewAdminHandler(warmer, invalidator, accessor, "redis", "sqlite", logger),
		Logger:       logger,
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(accessor.Wait)

	return &testServer{srv: srv, mr: mr, cache: accessor}
}

func newRedisServer(t *testing.T) *testServer {
	store, mr := cachetest.NewRedis(t)
	return newTestServer(t, store, mr)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, body string) (int, envelope) {
	t.Helper()

	req, err := http.NewRequest(method, s.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestHealthEndpoints(t *testing.T) {
	s := newRedisServer(t)

	code, env := s.do(t, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)

	code, env = s.do(t, http.MethodGet, "/api/v1/ready", "")
	assert.Equal(t, http.StatusOK, code)
	var ready handler.ReadyResponse
	require.NoError(t, json.Unmarshal(env.Data, &ready))
	assert.True(t, ready.Ready)

	code, env = s.do(t, http.MethodGet, "/api/status", "")
	assert.Equal(t, http.StatusOK, code)
	var status handler.StatusResponse
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "ok", status.Checks.Cache)
}

func TestReadyWithStoreDown(t *testing.T) {
	s := newTestServer(t, cachetest.DownStore{}, nil)

	code, env := s.do(t, http.MethodGet, "/api/v1/ready", "")
	assert.Equal(t, http.StatusOK, code, "a missing cache degrades, it does not take the service down")

	var ready handler.ReadyResponse
	require.NoError(t, json.Unmarshal(env.Data, &ready))
	assert.Contains(t, ready.Checks, handler.Check{Name: "cache", Status: "degraded"})

	code, env = s.do(t, http.MethodGet, "/api/v1/tenants/T1/employees", "")
	assert.Equal(t, http.StatusOK, code)
	var employees []model.Employee
	require.NoError(t, json.Unmarshal(env.Data, &employees))
	assert.Len(t, employees, 3)
}

func TestEmployeeStatusFlow(t *testing.T) {
	s := newRedisServer(t)

	code, env := s.do(t, http.MethodGet, "/api/v1/tenants/T1/employees", "")
	require.Equal(t, http.StatusOK, code)
	var employees []model.Employee
	require.NoError(t, json.Unmarshal(env.Data, &employees))
	assert.Len(t, employees, 3)

	s.cache.Wait()
	assert.True(t, s.mr.Exists(cache.EmployeesKey("T1")))
	assert.Equal(t, 15*time.Minute, s.mr.TTL(cache.EmployeesKey("T1")))

	code, env = s.do(t, http.MethodPut, "/api/v1/tenants/T1/employees/e2/status", `{"status":"inactive"}`)
	require.Equal(t, http.StatusOK, code)
	var update handler.StatusUpdateResponse
	require.NoError(t, json.Unmarshal(env.Data, &update))
	assert.Equal(t, "inactive", update.Status)
	assert.Zero(t, update.Invalidation.Failed)
	assert.False(t, s.mr.Exists(cache.EmployeesKey("T1")))

	_, env = s.do(t, http.MethodGet, "/api/v1/tenants/T1/employees", "")
	require.NoError(t, json.Unmarshal(env.Data, &employees))
	assert.Len(t, employees, 2)

	_, env = s.do(t, http.MethodGet, "/api/v1/tenants/T1/employees?status=all", "")
	require.NoError(t, json.Unmarshal(env.Data, &employees))
	assert.Len(t, employees, 3)
}

func TestStatusUpdateErrors(t *testing.T) {
	s := newRedisServer(t)

	code, env := s.do(t, http.MethodPut, "/api/v1/tenants/T1/employees/e1/status", `{"status":"retired"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	code, _ = s.do(t, http.MethodPut, "/api/v1/tenants/T1/employees/e1/status", `{`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPut, "/api/v1/tenants/T2/employees/e1/status", `{"status":"inactive"}`)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestReads(t *testing.T) {
	s := newRedisServer(t)

	code, env := s.do(t, http.MethodGet, "/api/v1/employees/e3", "")
	require.Equal(t, http.StatusOK, code)
	var e model.Employee
	require.NoError(t, json.Unmarshal(env.Data, &e))
	assert.Equal(t, "Grace", e.FirstName)

	code, _ = s.do(t, http.MethodGet, "/api/v1/employees/nobody", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, env = s.do(t, http.MethodGet, "/api/v1/tenants/T1/analytics/headcount", "")
	require.Equal(t, http.StatusOK, code)
	var metric model.MetricValue
	require.NoError(t, json.Unmarshal(env.Data, &metric))
	assert.EqualValues(t, 3, metric.Value)

	code, _ = s.do(t, http.MethodGet, "/api/v1/tenants/T1/analytics/turnover", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, env = s.do(t, http.MethodGet, "/api/v1/tenants/T1/settings", "")
	require.Equal(t, http.StatusOK, code)
	var settings model.TenantSettings
	require.NoError(t, json.Unmarshal(env.Data, &settings))
	assert.Equal(t, "UTC", settings.Timezone)

	code, _ = s.do(t, http.MethodGet, "/api/v1/tenants/T1/employees?status=retired", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestMalformedTenantIsRejected(t *testing.T) {
	s := newRedisServer(t)

	code, env := s.do(t, http.MethodGet, "/api/v1/tenants/T1:x/settings", "")
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestAdminCacheOperations(t *testing.T) {
	s := newRedisServer(t)

	code, env := s.do(t, http.MethodPost, "/api/v1/admin/cache/warm", "")
	require.Equal(t, http.StatusOK, code)
	var report service.WarmReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, 1, report.Warmed)
	assert.True(t, s.mr.Exists(cache.AnalyticsKey("T1", cache.MetricHeadcount)))

	code, _ = s.do(t, http.MethodDelete, "/api/v1/admin/cache/tenants/T1", "")
	require.Equal(t, http.StatusOK, code)
	assert.False(t, s.mr.Exists(cache.AnalyticsKey("T1", cache.MetricHeadcount)))
	assert.False(t, s.mr.Exists(cache.SettingsKey("T1")))

	code, _ = s.do(t, http.MethodPost, "/api/v1/admin/cache/warm/T1", "")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, s.mr.Exists(cache.EmployeesKey("T1")))

	code, env = s.do(t, http.MethodGet, "/api/v1/admin/stats", "")
	require.Equal(t, http.StatusOK, code)
	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, "sqlite", stats["db_type"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newRedisServer(t)

	// one lookup so the cache counters have a sample
	s.do(t, http.MethodGet, "/api/v1/tenants/T1/settings", "")

	resp, err := s.srv.Client().Get(s.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body strings.Builder
	_, err = io.Copy(&body, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), "staffhub_cache_lookups_total")
}
