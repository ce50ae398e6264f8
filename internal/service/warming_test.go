package service

import (
	"context"
	"testing"
	"time"

	"staffhub-api/internal/cache"
	"staffhub-api/internal/cache/cachetest"
	"staffhub-api/internal/model"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func newTestWarmer(t *testing.T, f *fixture, delay time.Duration) *Warmer {
	t.Helper()
	return NewWarmer(f.repo, f.cache, WarmingConfig{TenantDelay: delay}, zaptest.NewLogger(t))
}

func TestWarmTenantWritesViews(t *testing.T) {
	f := newFixture(t)
	w := newTestWarmer(t, f, 0)
	ctx := context.Background()

	require.NoError(t, w.WarmTenant(ctx, "T1"))

	raw, err := f.mr.Get(cache.EmployeesKey("T1"))
	require.NoError(t, err)
	var employees []model.Employee
	require.NoError(t, json.Unmarshal([]byte(raw), &employees))
	assert.Len(t, employees, 3)
	assert.Equal(t, 15*time.Minute, f.mr.TTL(cache.EmployeesKey("T1")))

	headcount, err := f.mr.Get(cache.AnalyticsKey("T1", cache.MetricHeadcount))
	require.NoError(t, err)
	assert.Equal(t, "3", headcount)
	assert.Equal(t, time.Hour, f.mr.TTL(cache.AnalyticsKey("T1", cache.MetricHeadcount)))

	pending, err := f.mr.Get(cache.AnalyticsKey("T1", cache.MetricPendingLeave))
	require.NoError(t, err)
	assert.Equal(t, "1", pending)
	assert.Equal(t, 5*time.Minute, f.mr.TTL(cache.AnalyticsKey("T1", cache.MetricPendingLeave)))

	assert.True(t, f.cache.Exists(ctx, cache.SettingsKey("T1")))
	assert.Equal(t, 24*time.Hour, f.mr.TTL(cache.SettingsKey("T1")))

	members, err := f.mr.Members(cache.Pattern(cache.PrefixAnalytics, "T1"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		cache.AnalyticsKey("T1", cache.MetricHeadcount),
		cache.AnalyticsKey("T1", cache.MetricPendingLeave),
	}, members)
}

func TestWarmedListIsServedThenRecomputedAfterStatusChange(t *testing.T) {
	f := newFixture(t)
	w := newTestWarmer(t, f, 0)
	ctx := context.Background()

	require.NoError(t, w.WarmTenant(ctx, "T1"))

	employees, err := f.hr.ListActiveEmployees(ctx, "T1")
	require.NoError(t, err)
	assert.Len(t, employees, 3)

	result, err := f.hr.UpdateEmployeeStatus(ctx, "T1", "e2", model.EmployeeInactive)
	require.NoError(t, err)
	assert.Zero(t, result.Failed)
	assert.GreaterOrEqual(t, result.Removed, int64(3))
	assert.False(t, f.cache.Exists(ctx, cache.EmployeesKey("T1")))
	assert.False(t, f.cache.Exists(ctx, cache.AnalyticsKey("T1", cache.MetricHeadcount)))

	employees, err = f.hr.ListActiveEmployees(ctx, "T1")
	require.NoError(t, err)
	assert.Len(t, employees, 2)

	headcount, err := f.hr.Metric(ctx, "T1", cache.MetricHeadcount)
	require.NoError(t, err)
	assert.EqualValues(t, 2, headcount.Value)
}

func TestWarmAllSkipsInactiveTenants(t *testing.T) {
	f := newFixture(t)
	w := newTestWarmer(t, f, 0)

	report, err := w.WarmAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Tenants)
	assert.Equal(t, 2, report.Warmed)
	assert.Empty(t, report.Failed)

	assert.True(t, f.mr.Exists(cache.EmployeesKey("T2")))
	assert.False(t, f.mr.Exists(cache.EmployeesKey("T9")))
}

func TestWarmAllIsolatesTenantFailures(t *testing.T) {
	f := newFixture(t)
	w := NewWarmer(failingReader{HRReader: f.repo, tenantID: "T1"}, f.cache, WarmingConfig{}, zaptest.NewLogger(t))

	report, err := w.WarmAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Tenants)
	assert.Equal(t, 1, report.Warmed)
	assert.Equal(t, []string{"T1"}, report.Failed)

	assert.False(t, f.mr.Exists(cache.EmployeesKey("T1")), "a failed tenant writes nothing")
	assert.True(t, f.mr.Exists(cache.EmployeesKey("T2")))
}

func TestWarmAllWaitsBetweenTenants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repo.CreateTenant(ctx, model.Tenant{ID: "T3", Name: "Initech", IsActive: true}))

	delay := 60 * time.Millisecond
	w := newTestWarmer(t, f, delay)

	report, err := w.WarmAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Warmed)
	assert.GreaterOrEqual(t, report.Duration, 2*delay)
}

func TestWarmAllPausesAfterSlowTenant(t *testing.T) {
	f := newFixture(t)
	reader := newSlowReader(f.repo, 150*time.Millisecond)
	delay := 100 * time.Millisecond
	w := NewWarmer(reader, f.cache, WarmingConfig{TenantDelay: delay}, zaptest.NewLogger(t))

	report, err := w.WarmAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, report.Warmed)

	require.Len(t, reader.order, 2)
	first, second := reader.order[0], reader.order[1]
	gap := reader.started[second].Sub(reader.finished[first])
	assert.GreaterOrEqual(t, gap, delay, "the delay runs from the end of one tenant to the start of the next")
}

func TestWarmAllStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	w := newTestWarmer(t, f, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	report, err := w.WarmAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Warmed, "only the first tenant runs before the delay")
}

func TestWarmAllWithUnavailableStore(t *testing.T) {
	f := newFixtureWithStore(t, cachetest.DownStore{}, nil)
	reader := newSlowReader(f.repo, 0)
	w := NewWarmer(reader, f.cache, WarmingConfig{}, zaptest.NewLogger(t))
	ctx := context.Background()

	report, err := w.WarmAll(ctx)
	require.ErrorIs(t, err, cache.ErrStoreUnavailable)
	assert.Equal(t, 2, report.Tenants)
	assert.Equal(t, 2, report.Skipped)
	assert.Zero(t, report.Warmed, "nothing was written, so nothing counts as warmed")
	assert.Empty(t, report.Failed)

	assert.ErrorIs(t, w.WarmTenant(ctx, "T1"), cache.ErrStoreUnavailable)
	assert.Zero(t, reader.calls(), "the source of truth is not read for a cache that cannot take the result")
}

func TestWarmerStartRunsImmediately(t *testing.T) {
	f := newFixture(t)
	w := NewWarmer(f.repo, f.cache, WarmingConfig{Interval: time.Hour}, zap.NewNop())

	w.Start()
	w.Start()
	defer w.Stop()

	require.Eventually(t, func() bool {
		// settings are the last write of a tenant
		return f.mr.Exists(cache.SettingsKey("T1")) && f.mr.Exists(cache.SettingsKey("T2"))
	}, 2*time.Second, 10*time.Millisecond)

	w.Stop()
	w.Stop()
}

func TestRunNow(t *testing.T) {
	f := newFixture(t)
	w := newTestWarmer(t, f, 0)

	report, err := w.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Warmed)
	assert.True(t, f.mr.Exists(cache.SettingsKey("T2")))
}

func TestWarmerStopWaitsForPass(t *testing.T) {
	f := newFixture(t)
	// the first tenant's read blocks until the pass is cancelled
	reader := newSlowReader(f.repo, time.Hour)
	w := NewWarmer(reader, f.cache, WarmingConfig{Interval: time.Hour}, zap.NewNop())

	w.Start()
	require.Eventually(t, func() bool { return reader.calls() == 1 }, 2*time.Second, 5*time.Millisecond)

	w.Stop()
	select {
	case <-w.done:
	default:
		t.Fatal("Stop returned while the scheduling loop was still running")
	}
	assert.Equal(t, 1, reader.calls(), "no tenant starts after Stop")
}

func TestWarmerStopWithoutStart(t *testing.T) {
	f := newFixture(t)
	w := newTestWarmer(t, f, 0)

	w.Stop()
	w.Start()
	w.Stop()

	assert.False(t, f.mr.Exists(cache.SettingsKey("T1")), "a stopped scheduler does not restart")
}
