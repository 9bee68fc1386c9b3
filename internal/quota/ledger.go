package quota

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"soulcast/internal/logging"
)

// Persister stores the ledger record.
type Persister interface {
	LoadLedger(ctx context.Context) (State, bool, error)
	SaveLedger(ctx context.Context, state State) error
}

// Observer receives the ledger state after each change. Metrics use it.
type Observer func(State)

// Options configures ledger construction.
type Options struct {
	Limit    int
	Now      func() time.Time
	Logger   *slog.Logger
	Observer Observer
}

// Ledger is the concurrency-safe quota ledger.
type Ledger struct {
	mu        sync.Mutex
	state     State
	persister Persister
	now       func() time.Time
	logger    *slog.Logger
	observer  Observer
}

// Load reads the ledger from storage, falling back to defaults when the record
// is absent or unreadable. It never fails.
func Load(ctx context.Context, persister Persister, opts Options) *Ledger {
	l := newLedger(persister, opts)
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultMonthlyLimit
	}
	l.state = State{Limit: limit, PeriodStart: l.now()}

	if persister == nil {
		return l
	}
	stored, ok, err := persister.LoadLedger(ctx)
	switch {
	case err != nil:
		logging.WarnWithContext(l.logger, "quota ledger unreadable, using defaults", "quota_load_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete the quota record or run soulcast quota reset"),
			logging.String(logging.FieldImpact, "monthly usage restarts from zero"),
		)
	case ok:
		if stored.Limit <= 0 {
			stored.Limit = limit
		}
		if stored.PeriodStart.IsZero() {
			stored.PeriodStart = l.now()
		}
		if stored.TotalUsed < 0 {
			stored.TotalUsed = 0
		}
		l.state = stored
	}
	return l
}

// New creates a ledger from an explicit state. Tests and the store round trip use it.
func New(state State, persister Persister, opts Options) *Ledger {
	l := newLedger(persister, opts)
	if state.Limit <= 0 {
		state.Limit = DefaultMonthlyLimit
	}
	if state.PeriodStart.IsZero() {
		state.PeriodStart = l.now()
	}
	l.state = state
	return l
}

func newLedger(persister Persister, opts Options) *Ledger {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Ledger{
		persister: persister,
		now:       now,
		logger:    logging.NewComponentLogger(opts.Logger, "quota"),
		observer:  opts.Observer,
	}
}

// HasCapacity reports whether the remaining allowance covers the requested duration.
func (l *Ledger) HasCapacity(ctx context.Context, minutes int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.applyResetLocked(ctx)
	return l.state.Remaining() >= CharactersRequired(minutes)
}

// RecordUsage adds consumed characters. Usage may exceed the limit; negative
// values are ignored and zero is a no-op.
func (l *Ledger) RecordUsage(ctx context.Context, characters int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.applyResetLocked(ctx)
	if characters <= 0 {
		if characters < 0 {
			l.logger.Debug("ignoring negative usage", logging.Int("characters", characters))
		}
		return
	}
	l.state.TotalUsed += characters
	l.logger.Debug("usage recorded",
		logging.Int("characters", characters),
		logging.Int("total_used", l.state.TotalUsed),
		logging.Int("remaining", l.state.Remaining()),
	)
	l.persistLocked(ctx)
}

// Remaining returns the remaining character allowance.
func (l *Ledger) Remaining(ctx context.Context) int {
	return l.Snapshot(ctx).Remaining()
}

// RemainingMinutes returns floor(remaining / 750).
func (l *Ledger) RemainingMinutes(ctx context.Context) int {
	return l.Snapshot(ctx).RemainingMinutes()
}

// Snapshot returns the current state after applying any due reset.
func (l *Ledger) Snapshot(ctx context.Context) State {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.applyResetLocked(ctx)
	return l.state
}

// Reset clears usage back to defaults. This is the explicit user data-clear path.
func (l *Ledger) Reset(ctx context.Context) State {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.TotalUsed = 0
	l.state.PeriodStart = l.now()
	l.logger.Info("quota ledger reset", logging.String(logging.FieldEventType, "quota_reset"))
	l.persistLocked(ctx)
	return l.state
}

func (l *Ledger) applyResetLocked(ctx context.Context) {
	now := l.now()
	if !l.state.ResetDue(now) {
		return
	}
	previous := l.state.TotalUsed
	l.state.TotalUsed = 0
	l.state.PeriodStart = now
	l.logger.Info("monthly quota period rolled over",
		logging.String(logging.FieldEventType, "quota_period_reset"),
		logging.Int("previous_used", previous),
		logging.Time("period_start", now),
	)
	l.persistLocked(ctx)
}

func (l *Ledger) persistLocked(ctx context.Context) {
	if l.observer != nil {
		l.observer(l.state)
	}
	if l.persister == nil {
		return
	}
	// Usage is already committed in memory, so the save outlives the caller.
	if err := l.persister.SaveLedger(context.WithoutCancel(ctx), l.state); err != nil {
		logging.WarnWithContext(l.logger, "failed to persist quota ledger", "quota_persist_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check state_dir permissions and disk space"),
			logging.String(logging.FieldImpact, "usage since last save may be lost on restart"),
		)
	}
}
