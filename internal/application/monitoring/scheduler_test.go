package monitoring_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KYB-Sentinel/internal/application/monitoring"
	"github.com/turtacn/KYB-Sentinel/internal/domain/counterparty"
	"github.com/turtacn/KYB-Sentinel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KYB-Sentinel/internal/testutil"
	"github.com/turtacn/KYB-Sentinel/pkg/errors"
	"github.com/turtacn/KYB-Sentinel/pkg/types/common"
)

// recordingRunner captures dispatched cycles and signals on each one.
type recordingRunner struct {
	mu     sync.Mutex
	ran    []common.ID
	signal chan struct{}
	err    error
}

func newRecordingRunner(buffer int) *recordingRunner {
	return &recordingRunner{signal: make(chan struct{}, buffer)}
}

func (r *recordingRunner) RunCycle(_ context.Context, id common.ID) error {
	r.mu.Lock()
	r.ran = append(r.ran, id)
	r.mu.Unlock()
	r.signal <- struct{}{}
	return r.err
}

func (r *recordingRunner) runs() []common.ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]common.ID, len(r.ran))
	copy(out, r.ran)
	return out
}

func seedCounterparty(t *testing.T, repo *testutil.MemCounterpartyRepo, id common.ID, lastChecked *time.Time) {
	t.Helper()
	require.NoError(t, repo.Save(context.Background(), &counterparty.Counterparty{
		ID:            id,
		TenantID:      "TNT-1",
		Name:          "Due Co",
		LastCheckedAt: lastChecked,
	}))
}

func TestSchedulerDispatchesDueCounterparties(t *testing.T) {
	repo := testutil.NewMemCounterpartyRepo()
	// Never checked: due immediately.  Checked recently: not due.
	seedCounterparty(t, repo, "CPY-due", nil)
	recent := testTime.Add(-time.Minute)
	seedCounterparty(t, repo, "CPY-fresh", &recent)

	runner := newRecordingRunner(4)
	s := monitoring.NewScheduler(monitoring.SchedulerConfig{
		TickInterval:          time.Hour, // only the immediate first tick fires
		PoolSize:              2,
		DefaultFrequency:      counterparty.FrequencyDaily,
		FailedCycleRetryAfter: 15 * time.Minute,
	}, repo, runner, common.FixedClock{T: testTime}, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-runner.signal:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler never dispatched the due counterparty")
	}
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	runs := runner.runs()
	assert.Equal(t, []common.ID{"CPY-due"}, runs)
}

func TestSchedulerRetriesFailedCyclesSooner(t *testing.T) {
	repo := testutil.NewMemCounterpartyRepo()
	checked := testTime.Add(-time.Hour)
	require.NoError(t, repo.Save(context.Background(), &counterparty.Counterparty{
		ID:              "CPY-failed",
		TenantID:        "TNT-1",
		Name:            "Flaky Co",
		LastCheckedAt:   &checked,
		LastCycleFailed: true,
	}))

	// One hour since the failed cycle beats the 15m retry window even though
	// the daily interval has not elapsed.
	due, err := repo.FindDue(context.Background(), testTime, counterparty.FrequencyDaily, 15*time.Minute)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, common.ID("CPY-failed"), due[0].ID)
}

func TestSchedulerTreatsCycleInProgressAsSkip(t *testing.T) {
	repo := testutil.NewMemCounterpartyRepo()
	seedCounterparty(t, repo, "CPY-busy", nil)

	runner := newRecordingRunner(4)
	runner.err = errors.New(errors.ErrCodeCycleInProgress, "in flight")

	s := monitoring.NewScheduler(monitoring.SchedulerConfig{
		TickInterval:     time.Hour,
		PoolSize:         1,
		DefaultFrequency: counterparty.FrequencyDaily,
	}, repo, runner, common.FixedClock{T: testTime}, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-runner.signal:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler never dispatched")
	}
	cancel()
	// A skip is not an error; Run still drains and returns the ctx error.
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestSchedulerDrainsInFlightOnShutdown(t *testing.T) {
	repo := testutil.NewMemCounterpartyRepo()
	for _, id := range []common.ID{"CPY-a", "CPY-b", "CPY-c"} {
		seedCounterparty(t, repo, id, nil)
	}

	runner := newRecordingRunner(8)
	s := monitoring.NewScheduler(monitoring.SchedulerConfig{
		TickInterval:     time.Hour,
		PoolSize:         3,
		DefaultFrequency: counterparty.FrequencyDaily,
	}, repo, runner, common.FixedClock{T: testTime}, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	for i := 0; i < 3; i++ {
		select {
		case <-runner.signal:
		case <-time.After(2 * time.Second):
			t.Fatalf("dispatch %d never happened", i)
		}
	}
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	assert.Len(t, runner.runs(), 3)
}
