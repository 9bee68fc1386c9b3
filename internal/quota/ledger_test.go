package quota_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"soulcast/internal/quota"
)

type memoryPersister struct {
	mu      sync.Mutex
	state   quota.State
	present bool
	loadErr error
	saveErr error
	saves   int
}

func (m *memoryPersister) LoadLedger(context.Context) (quota.State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.present, m.loadErr
}

func (m *memoryPersister) SaveLedger(_ context.Context, state quota.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.state = state
	m.present = true
	return nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func TestRemainingInvariant(t *testing.T) {
	now := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		used, limit, remaining, minutes int
	}{
		{0, 45000, 45000, 60},
		{10000, 45000, 35000, 46},
		{44999, 45000, 1, 0},
		{45000, 45000, 0, 0},
		{60000, 45000, 0, 0},
	}
	for _, tc := range cases {
		ledger := quota.New(quota.State{TotalUsed: tc.used, Limit: tc.limit, PeriodStart: now}, nil, quota.Options{Now: func() time.Time { return now }})
		ctx := context.Background()
		if got := ledger.Remaining(ctx); got != tc.remaining {
			t.Fatalf("used=%d: remaining %d want %d", tc.used, got, tc.remaining)
		}
		if got := ledger.RemainingMinutes(ctx); got != tc.minutes {
			t.Fatalf("used=%d: remaining minutes %d want %d", tc.used, got, tc.minutes)
		}
	}
}

func TestHasCapacity(t *testing.T) {
	now := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	ctx := context.Background()

	ledger := quota.New(quota.State{TotalUsed: 10000, Limit: 45000, PeriodStart: now}, nil, quota.Options{Now: clock})
	if !ledger.HasCapacity(ctx, 15) {
		t.Fatal("expected capacity for 15 minutes with 35000 remaining")
	}

	ledger = quota.New(quota.State{TotalUsed: 40000, Limit: 45000, PeriodStart: now}, nil, quota.Options{Now: clock})
	if ledger.HasCapacity(ctx, 15) {
		t.Fatal("expected no capacity: 11250 > 5000")
	}
	if !ledger.HasCapacity(ctx, 6) {
		t.Fatal("expected capacity for exactly 4500 characters")
	}
}

func TestRecordUsageZeroIsIdempotent(t *testing.T) {
	now := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	persister := &memoryPersister{}
	ledger := quota.New(quota.State{TotalUsed: 1234, Limit: 45000, PeriodStart: now}, persister, quota.Options{Now: func() time.Time { return now }})
	ctx := context.Background()

	ledger.RecordUsage(ctx, 0)
	ledger.RecordUsage(ctx, -50)
	if got := ledger.Snapshot(ctx).TotalUsed; got != 1234 {
		t.Fatalf("expected total unchanged, got %d", got)
	}
	if persister.saves != 0 {
		t.Fatalf("expected no persistence for no-op usage, got %d saves", persister.saves)
	}
}

func TestRecordUsageHasNoUpperClamp(t *testing.T) {
	now := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	persister := &memoryPersister{}
	ledger := quota.New(quota.State{TotalUsed: 40000, Limit: 45000, PeriodStart: now}, persister, quota.Options{Now: func() time.Time { return now }})
	ctx := context.Background()

	ledger.RecordUsage(ctx, 11250)
	snap := ledger.Snapshot(ctx)
	if snap.TotalUsed != 51250 {
		t.Fatalf("expected 51250, got %d", snap.TotalUsed)
	}
	if snap.Remaining() != 0 {
		t.Fatalf("expected remaining floored at 0, got %d", snap.Remaining())
	}
	if persister.state.TotalUsed != 51250 {
		t.Fatalf("expected persisted usage, got %+v", persister.state)
	}
}

func TestLazyMonthlyResetOnCheck(t *testing.T) {
	start := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: start.AddDate(0, 1, 1)}
	persister := &memoryPersister{}
	ledger := quota.New(quota.State{TotalUsed: 30000, Limit: 45000, PeriodStart: start}, persister, quota.Options{Now: clock.Now})
	ctx := context.Background()

	if !ledger.HasCapacity(ctx, 60) {
		t.Fatal("expected full capacity after reset")
	}
	snap := ledger.Snapshot(ctx)
	if snap.TotalUsed != 0 {
		t.Fatalf("expected usage reset, got %d", snap.TotalUsed)
	}
	if !snap.PeriodStart.Equal(clock.now) {
		t.Fatalf("expected period start advanced to now, got %v", snap.PeriodStart)
	}
	if persister.saves != 1 {
		t.Fatalf("expected reset to persist once, got %d", persister.saves)
	}
}

func TestLazyMonthlyResetBeforeRecording(t *testing.T) {
	start := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: start.AddDate(0, 2, 0)}
	ledger := quota.New(quota.State{TotalUsed: 30000, Limit: 45000, PeriodStart: start}, nil, quota.Options{Now: clock.Now})
	ctx := context.Background()

	ledger.RecordUsage(ctx, 7500)
	if got := ledger.Snapshot(ctx).TotalUsed; got != 7500 {
		t.Fatalf("expected reset before recording, got %d", got)
	}
}

func TestNoResetWithinPeriod(t *testing.T) {
	start := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: time.Date(2026, 2, 15, 8, 59, 59, 0, time.UTC)}
	ledger := quota.New(quota.State{TotalUsed: 30000, Limit: 45000, PeriodStart: start}, nil, quota.Options{Now: clock.Now})
	ctx := context.Background()

	if got := ledger.Snapshot(ctx).TotalUsed; got != 30000 {
		t.Fatalf("expected no reset one second before boundary, got %d", got)
	}
	clock.now = clock.now.Add(time.Second)
	if got := ledger.Snapshot(ctx).TotalUsed; got != 0 {
		t.Fatalf("expected reset exactly at boundary, got %d", got)
	}
}

func TestResetFromMonthEndClampsToShortMonth(t *testing.T) {
	start := time.Date(2026, 1, 31, 9, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: time.Date(2026, 2, 28, 23, 59, 59, 0, time.UTC)}
	ledger := quota.New(quota.State{TotalUsed: 30000, Limit: 45000, PeriodStart: start}, nil, quota.Options{Now: clock.Now})
	ctx := context.Background()

	if got := ledger.Snapshot(ctx).TotalUsed; got != 30000 {
		t.Fatalf("expected no reset on Feb 28, got %d", got)
	}
	clock.now = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if got := ledger.Snapshot(ctx).TotalUsed; got != 0 {
		t.Fatalf("expected reset on Mar 1, got %d", got)
	}
}

func TestPeriodEndMatchesResetBoundary(t *testing.T) {
	cases := []struct {
		start, end time.Time
	}{
		{time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC), time.Date(2026, 2, 15, 9, 0, 0, 0, time.UTC)},
		{time.Date(2026, 1, 31, 9, 0, 0, 0, time.UTC), time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 1, 30, 9, 0, 0, 0, time.UTC), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 1, 29, 9, 0, 0, 0, time.UTC), time.Date(2024, 2, 29, 9, 0, 0, 0, time.UTC)},
		{time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC), time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, 12, 31, 12, 0, 0, 0, time.UTC), time.Date(2027, 1, 31, 12, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		state := quota.State{Limit: 45000, PeriodStart: tc.start}
		if got := state.PeriodEnd(); !got.Equal(tc.end) {
			t.Fatalf("PeriodEnd(%v) = %v, want %v", tc.start, got, tc.end)
		}
		if state.ResetDue(tc.end.Add(-time.Nanosecond)) {
			t.Fatalf("start %v: reset due before %v", tc.start, tc.end)
		}
		if !state.ResetDue(tc.end) {
			t.Fatalf("start %v: reset not due at %v", tc.start, tc.end)
		}
	}
}

func TestPersistOutlivesCancelledRequest(t *testing.T) {
	now := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	persister := &contextPersister{}
	ledger := quota.New(quota.State{Limit: 45000, PeriodStart: now}, persister, quota.Options{Now: func() time.Time { return now }})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ledger.RecordUsage(ctx, 3750)

	if persister.saved.TotalUsed != 3750 {
		t.Fatalf("expected usage persisted after cancellation, got %+v", persister.saved)
	}
}

// contextPersister refuses saves whose context is already done, like the sqlite store.
type contextPersister struct {
	saved quota.State
}

func (c *contextPersister) LoadLedger(context.Context) (quota.State, bool, error) {
	return quota.State{}, false, nil
}

func (c *contextPersister) SaveLedger(ctx context.Context, state quota.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.saved = state
	return nil
}

func TestLoadDefaultsWhenAbsentOrBroken(t *testing.T) {
	now := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	ctx := context.Background()

	ledger := quota.Load(ctx, &memoryPersister{}, quota.Options{Now: clock})
	snap := ledger.Snapshot(ctx)
	if snap.TotalUsed != 0 || snap.Limit != quota.DefaultMonthlyLimit || !snap.PeriodStart.Equal(now) {
		t.Fatalf("unexpected defaults: %+v", snap)
	}

	broken := &memoryPersister{loadErr: errors.New("corrupt record")}
	ledger = quota.Load(ctx, broken, quota.Options{Now: clock, Limit: 9000})
	if snap := ledger.Snapshot(ctx); snap.Limit != 9000 || snap.TotalUsed != 0 {
		t.Fatalf("unexpected fallback state: %+v", snap)
	}
}

func TestLoadRestoresPersistedState(t *testing.T) {
	now := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	stored := quota.State{TotalUsed: 12000, Limit: 45000, PeriodStart: now.AddDate(0, 0, -3)}
	ledger := quota.Load(context.Background(), &memoryPersister{state: stored, present: true}, quota.Options{Now: func() time.Time { return now }})
	if snap := ledger.Snapshot(context.Background()); snap != stored {
		t.Fatalf("expected %+v, got %+v", stored, snap)
	}
}

func TestPersistFailureIsNonFatal(t *testing.T) {
	now := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	persister := &memoryPersister{saveErr: errors.New("disk full")}
	ledger := quota.New(quota.State{Limit: 45000, PeriodStart: now}, persister, quota.Options{Now: func() time.Time { return now }})
	ctx := context.Background()

	ledger.RecordUsage(ctx, 750)
	if got := ledger.Snapshot(ctx).TotalUsed; got != 750 {
		t.Fatalf("expected in-memory usage despite save failure, got %d", got)
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: start.AddDate(0, 0, 9)}
	persister := &memoryPersister{}
	var observed []quota.State
	ledger := quota.New(quota.State{TotalUsed: 44000, Limit: 45000, PeriodStart: start}, persister, quota.Options{
		Now:      clock.Now,
		Observer: func(s quota.State) { observed = append(observed, s) },
	})

	state := ledger.Reset(context.Background())
	if state.TotalUsed != 0 || !state.PeriodStart.Equal(clock.now) {
		t.Fatalf("unexpected reset state: %+v", state)
	}
	if persister.state.TotalUsed != 0 || !persister.present {
		t.Fatalf("expected reset persisted, got %+v", persister.state)
	}
	if len(observed) != 1 {
		t.Fatalf("expected observer call, got %d", len(observed))
	}
}

func TestCharacterConversions(t *testing.T) {
	if got := quota.CharactersRequired(15); got != 11250 {
		t.Fatalf("CharactersRequired(15) = %d", got)
	}
	if got := quota.DurationForCharacters(11249); got != 14 {
		t.Fatalf("DurationForCharacters(11249) = %d", got)
	}
}

func TestConcurrentRecordUsage(t *testing.T) {
	now := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	ledger := quota.New(quota.State{Limit: 45000, PeriodStart: now}, &memoryPersister{}, quota.Options{Now: func() time.Time { return now }})
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ledger.RecordUsage(ctx, 750)
		}()
	}
	wg.Wait()
	if got := ledger.Snapshot(ctx).TotalUsed; got != 15000 {
		t.Fatalf("expected 15000, got %d", got)
	}
}
