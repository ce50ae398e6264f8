package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"staffhub-api/internal/cache"
	"staffhub-api/internal/cache/cachetest"
	"staffhub-api/internal/model"
	"staffhub-api/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fixture struct {
	repo        *repository.SQLHRRepository
	mr          *miniredis.Miniredis
	cache       *cache.Accessor
	invalidator *Invalidator
	hr          *HRService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, mr := cachetest.NewRedis(t)
	return newFixtureWithStore(t, store, mr)
}

func newFixtureWithStore(t *testing.T, store cache.Store, mr *miniredis.Miniredis) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)

	repo, err := repository.NewSQLiteHRRepository(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	seedTenants(t, repo)

	accessor := cache.NewAccessor(store, logger)
	// write-backs must land before the test logger goes away
	t.Cleanup(accessor.Wait)

	invalidator := NewInvalidator(accessor, logger)
	return &fixture{
		repo:        repo,
		mr:          mr,
		cache:       accessor,
		invalidator: invalidator,
		hr:          NewHRService(repo, accessor, invalidator, logger),
	}
}

// seedTenants creates T1 with three active employees and one pending leave
// request, T2 with one active employee, and an inactive T9.
func seedTenants(t *testing.T, repo *repository.SQLHRRepository) {
	t.Helper()
	ctx := context.Background()
	hired := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

	for _, tn := range []model.Tenant{
		{ID: "T1", Name: "Acme", IsActive: true},
		{ID: "T2", Name: "Globex", IsActive: true},
		{ID: "T9", Name: "Dormant", IsActive: false},
	} {
		require.NoError(t, repo.CreateTenant(ctx, tn))
	}

	for _, e := range []model.Employee{
		{ID: "e1", TenantID: "T1", DepartmentID: "eng", FirstName: "Ada", LastName: "Lovelace", Email: "ada@acme.test", Status: model.EmployeeActive, HiredAt: hired},
		{ID: "e2", TenantID: "T1", DepartmentID: "eng", FirstName: "Alan", LastName: "Turing", Email: "alan@acme.test", Status: model.EmployeeActive, HiredAt: hired},
		{ID: "e3", TenantID: "T1", DepartmentID: "ops", FirstName: "Grace", LastName: "Hopper", Email: "grace@acme.test", Status: model.EmployeeActive, HiredAt: hired},
		{ID: "e5", TenantID: "T2", FirstName: "Hedy", LastName: "Lamarr", Email: "hedy@globex.test", Status: model.EmployeeActive, HiredAt: hired},
	} {
		require.NoError(t, repo.CreateEmployee(ctx, e))
	}

	require.NoError(t, repo.CreateLeaveRequest(ctx, "l1", "T1", "e1", model.LeavePending))
}

// failingReader fails one read for one tenant and passes everything else through.
type failingReader struct {
	repository.HRReader
	tenantID string
}

var errSourceDown = errors.New("source of truth unreachable")

func (f failingReader) CountPendingLeave(ctx context.Context, tenantID string) (int64, error) {
	if tenantID == f.tenantID {
		return 0, errSourceDown
	}
	return f.HRReader.CountPendingLeave(ctx, tenantID)
}

// slowReader stalls each tenant's first read and records when every tenant's
// reads started and finished.
type slowReader struct {
	repository.HRReader
	stall time.Duration

	mu       sync.Mutex
	order    []string
	started  map[string]time.Time
	finished map[string]time.Time
}

func newSlowReader(r repository.HRReader, stall time.Duration) *slowReader {
	return &slowReader{
		HRReader: r,
		stall:    stall,
		started:  make(map[string]time.Time),
		finished: make(map[string]time.Time),
	}
}

func (s *slowReader) ListActiveEmployees(ctx context.Context, tenantID string) ([]model.Employee, error) {
	s.mu.Lock()
	s.order = append(s.order, tenantID)
	s.started[tenantID] = time.Now()
	s.mu.Unlock()

	select {
	case <-time.After(s.stall):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.HRReader.ListActiveEmployees(ctx, tenantID)
}

// GetSettings is the last read of a tenant.
func (s *slowReader) GetSettings(ctx context.Context, tenantID string) (*model.TenantSettings, error) {
	settings, err := s.HRReader.GetSettings(ctx, tenantID)
	s.mu.Lock()
	s.finished[tenantID] = time.Now()
	s.mu.Unlock()
	return settings, err
}

func (s *slowReader) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}
