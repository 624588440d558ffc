package worker

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/leadfunnel/internal/domain"
	"github.com/ignite/leadfunnel/internal/service/relay"
)

type fakeReclaimer struct {
	mu     sync.Mutex
	leases []time.Duration
	n      int64
	err    error
}

func (f *fakeReclaimer) ReclaimStale(_ context.Context, lease time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leases = append(f.leases, lease)
	return f.n, f.err
}

func TestLeaseReclaimer_Defaults(t *testing.T) {
	lr := NewLeaseReclaimer(&fakeReclaimer{}, 0, 0)
	assert.Equal(t, DefaultRecoveryInterval, lr.interval)
	assert.Equal(t, DefaultLease, lr.lease)
}

func TestLeaseReclaimer_Reclaim(t *testing.T) {
	fr := &fakeReclaimer{n: 3}
	lr := NewLeaseReclaimer(fr, time.Minute, 7*time.Minute)

	assert.Equal(t, int64(3), lr.reclaim(context.Background()))
	assert.Equal(t, []time.Duration{7 * time.Minute}, fr.leases)

	fr.err = errors.New("db down")
	assert.Equal(t, int64(0), lr.reclaim(context.Background()))
}

func TestLeaseReclaimer_StartTicks(t *testing.T) {
	fr := &fakeReclaimer{}
	lr := NewLeaseReclaimer(fr, 5*time.Millisecond, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		lr.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		fr.mu.Lock()
		defer fr.mu.Unlock()
		return len(fr.leases) >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestDataCleanup_BatchesUntilEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	dc := NewDataCleanupWorker(db, time.Hour, 24*time.Hour, 90*24*time.Hour)
	dc.now = func() time.Time { return now }
	dc.batchSize = 2
	dc.pause = 0

	rl := regexp.QuoteMeta(`SELECT id FROM rate_limiting WHERE timestamp < $2 LIMIT $1`)
	ev := regexp.QuoteMeta(`SELECT id FROM lead_events WHERE occurred_at < $2 LIMIT $1`)
	rlCutoff := now.Add(-24 * time.Hour).Unix()
	evCutoff := now.Add(-90 * 24 * time.Hour)

	mock.ExpectExec(rl).WithArgs(2, rlCutoff).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(rl).WithArgs(2, rlCutoff).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(rl).WithArgs(2, rlCutoff).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(ev).WithArgs(2, evCutoff).WillReturnResult(sqlmock.NewResult(0, 0))

	dc.cleanup(context.Background())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDataCleanup_MissingTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	dc := NewDataCleanupWorker(db, 0, 0, 0)
	dc.pause = 0

	mock.ExpectExec(`DELETE FROM rate_limiting`).
		WillReturnError(errors.New(`pq: relation "rate_limiting" does not exist`))
	mock.ExpectExec(`DELETE FROM lead_events`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	dc.cleanup(context.Background())
	assert.NoError(t, mock.ExpectationsWereMet())
}

type scriptedRunner struct {
	mu    sync.Mutex
	calls int
	steps []func() (*domain.RelayReport, error)
}

func (r *scriptedRunner) Run(context.Context) (*domain.RelayReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.calls
	r.calls++
	if i < len(r.steps) {
		return r.steps[i]()
	}
	return &domain.RelayReport{}, nil
}

func TestRelayScheduler_RunOnceCounts(t *testing.T) {
	runner := &scriptedRunner{steps: []func() (*domain.RelayReport, error){
		func() (*domain.RelayReport, error) { return &domain.RelayReport{Sent: 4, Failed: 1}, nil },
		func() (*domain.RelayReport, error) { return nil, relay.ErrRunInProgress },
		func() (*domain.RelayReport, error) { return &domain.RelayReport{Sent: 1}, errors.New("list pending leads: boom") },
	}}
	s := NewRelayScheduler(runner, time.Hour)

	for i := 0; i < 3; i++ {
		s.runOnce(context.Background())
	}

	assert.Equal(t, RelayStats{Runs: 2, Skipped: 1, Sent: 5, Failed: 1, Errors: 1}, s.Stats())
}

func TestRelayScheduler_StartStop(t *testing.T) {
	runner := &scriptedRunner{}
	s := NewRelayScheduler(runner, 5*time.Millisecond)

	s.Start(context.Background())
	s.Start(context.Background())

	assert.Eventually(t, func() bool { return s.Stats().Runs >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop()

	runs := s.Stats().Runs
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, runs, s.Stats().Runs, "no runs after Stop")
}
