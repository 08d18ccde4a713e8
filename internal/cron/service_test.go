package cron

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neline/marketplace-backend/pkg/logger"
	"github.com/neline/marketplace-backend/pkg/metrics"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

type fakeLock struct {
	held     bool
	releases int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.releases++
	return nil
}

type countingJob struct {
	name string
	err  error
	runs int
}

func (c *countingJob) Name() string { return c.name }

func (c *countingJob) Run(context.Context) error {
	c.runs++
	return c.err
}

func newTestService(t *testing.T, lock Lock, reg prometheus.Registerer, jobs ...Job) *Service {
	t.Helper()
	registry, err := NewRegistry(jobs...)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
	})
	require.NoError(t, err)
	return svc
}

func TestRunOnceRunsEveryJobAndCombinesFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	lock := &fakeLock{}
	sweep := &countingJob{name: "reservation-sweep", err: errors.New("deadlock detected")}
	other := &countingJob{name: "report"}
	svc := newTestService(t, lock, reg, sweep, other)

	err := svc.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reservation-sweep")
	assert.Equal(t, 1, sweep.runs)
	assert.Equal(t, 1, other.runs)
	assert.Equal(t, 1, lock.releases)

	count, err := testutil.GatherAndCount(reg, "cron_job_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	reg := prometheus.NewRegistry()
	job := &countingJob{name: "reservation-sweep"}
	svc := newTestService(t, &fakeLock{held: true}, reg, job)

	err := svc.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrLockHeld)
	assert.Zero(t, job.runs)
	expected := `
# HELP cron_cycles_skipped_total Cycles skipped because another worker held the lock.
# TYPE cron_cycles_skipped_total counter
cron_cycles_skipped_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "cron_cycles_skipped_total"))
}

func TestRunJobByName(t *testing.T) {
	sweep := &countingJob{name: "reservation-sweep"}
	other := &countingJob{name: "report"}
	svc := newTestService(t, &fakeLock{}, nil, sweep, other)

	require.NoError(t, svc.RunJob(context.Background(), "reservation-sweep"))
	assert.Equal(t, 1, sweep.runs)
	assert.Zero(t, other.runs)

	require.Error(t, svc.RunJob(context.Background(), "missing"))
}

func TestRunStopsOnCancel(t *testing.T) {
	job := &countingJob{name: "reservation-sweep"}
	svc := newTestService(t, &fakeLock{}, nil, job)
	svc.interval = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := svc.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, job.runs, 1)
}

func TestNewServiceRequiresRegistry(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: testLogger(), Lock: &fakeLock{}})
	require.Error(t, err)
}

type memoryLockStore struct {
	data map[string]string
}

func (m *memoryLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	return true, nil
}

func (m *memoryLockStore) ReleaseIfOwner(_ context.Context, key, owner string) (bool, error) {
	if m.data[key] != owner {
		return false, nil
	}
	delete(m.data, key)
	return true, nil
}

func TestRedisLockOnlyOwnerReleases(t *testing.T) {
	ctx := context.Background()
	store := &memoryLockStore{data: map[string]string{}}
	first, err := NewRedisLock(store, "neline:lock:reservation-sweeper", time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "neline:lock:reservation-sweeper", time.Minute)
	require.NoError(t, err)

	won, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, won)

	won, err = second.Acquire(ctx)
	require.NoError(t, err)
	require.False(t, won)

	require.NoError(t, second.Release(ctx))
	assert.Contains(t, store.data, "neline:lock:reservation-sweeper")

	require.NoError(t, first.Release(ctx))
	assert.NotContains(t, store.data, "neline:lock:reservation-sweeper")
}
