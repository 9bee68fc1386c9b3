package tracking

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"soulcast/internal/content"
	"soulcast/internal/logging"
	"soulcast/internal/metrics"
	"soulcast/internal/services"
)

// DefaultInterval is the fixed poll interval.
const DefaultInterval = 5 * time.Second

// ErrPollInProgress is returned by Poll when another poll has not finished.
var ErrPollInProgress = errors.New("poll already in progress")

// Lister fetches the current backend content list.
type Lister interface {
	ListContent(ctx context.Context) ([]content.Item, error)
}

// Listener receives each tracked item once it reaches a terminal status.
type Listener func(content.Item)

// Options configures a Registry.
type Options struct {
	Interval   time.Duration
	BackoffMax time.Duration
	Listener   Listener
	Logger     *slog.Logger
	Metrics    metrics.Recorder
}

// Registry tracks generating items and polls the backend until they resolve.
type Registry struct {
	lister     Lister
	listener   Listener
	interval   time.Duration
	backoffMax time.Duration
	logger     *slog.Logger
	metrics    metrics.Recorder

	polling atomic.Bool

	mu         sync.Mutex
	ids        map[string]struct{}
	cancel     context.CancelFunc
	generation uint64
	failures   int
	drained    chan struct{}
	wg         sync.WaitGroup
}

// New creates a Registry. The poll loop does not start until Track is called.
func New(lister Lister, opts Options) *Registry {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	drained := make(chan struct{})
	close(drained)
	return &Registry{
		lister:     lister,
		listener:   opts.Listener,
		interval:   interval,
		backoffMax: opts.BackoffMax,
		logger:     logging.NewComponentLogger(opts.Logger, "tracking"),
		metrics:    metrics.OrNop(opts.Metrics),
		ids:        make(map[string]struct{}),
		drained:    drained,
	}
}

// SetListener replaces the terminal-update listener.
func (r *Registry) SetListener(listener Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listener = listener
}

// Track adds ids to the in-flight set and starts the poll loop if needed.
func (r *Registry) Track(ids ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wasEmpty := len(r.ids) == 0
	added := 0
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := r.ids[id]; ok {
			continue
		}
		r.ids[id] = struct{}{}
		added++
	}
	if len(r.ids) == 0 {
		return
	}
	if wasEmpty && added > 0 {
		r.drained = make(chan struct{})
	}
	if added > 0 {
		r.logger.Debug("tracking jobs", logging.Int("added", added), logging.Int("in_flight", len(r.ids)))
	}
	r.metrics.SetInFlight(len(r.ids))
	r.startLocked()
}

// Resume restarts the poll loop after Stop when ids remain.
func (r *Registry) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ids) > 0 {
		r.startLocked()
	}
}

// Stop cancels the poll loop immediately. Tracked ids are kept.
func (r *Registry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

// Shutdown stops the loop and waits for it to exit.
func (r *Registry) Shutdown() {
	r.Stop()
	r.wg.Wait()
}

// Running reports whether the poll loop is active.
func (r *Registry) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

// InFlight returns the tracked ids in sorted order.
func (r *Registry) InFlight() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.ids))
	for id := range r.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Tracked reports whether id is still in flight.
func (r *Registry) Tracked(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ids[id]
	return ok
}

// Wait blocks until the in-flight set is empty or ctx is done.
func (r *Registry) Wait(ctx context.Context) error {
	r.mu.Lock()
	drained := r.drained
	r.mu.Unlock()
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Poll runs one poll cycle. It returns ErrPollInProgress without doing any
// work when another cycle is still running.
func (r *Registry) Poll(ctx context.Context) error {
	if !r.polling.CompareAndSwap(false, true) {
		r.metrics.RecordPoll("skipped")
		return ErrPollInProgress
	}
	defer r.polling.Store(false)

	snapshot := r.InFlight()
	if len(snapshot) == 0 {
		r.mu.Lock()
		r.finishIfDrainedLocked()
		r.mu.Unlock()
		return nil
	}

	ctx = services.WithOperation(ctx, "poll")
	logger := logging.WithContext(ctx, r.logger)

	items, err := r.lister.ListContent(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("poll cancelled")
			return err
		}
		r.mu.Lock()
		r.failures++
		failures := r.failures
		r.mu.Unlock()
		r.metrics.RecordPoll("error")
		logging.WarnWithContext(logger, "poll failed, keeping tracked jobs", "poll_failed",
			logging.Error(err),
			logging.Int("consecutive_failures", failures),
			logging.Int("in_flight", len(snapshot)),
			logging.String(logging.FieldErrorHint, "check backend connectivity"),
			logging.String(logging.FieldImpact, "job status updates delayed until the next poll"),
		)
		return err
	}

	byID := make(map[string]content.Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	var updates []content.Item
	r.mu.Lock()
	r.failures = 0
	for _, id := range snapshot {
		if _, ok := r.ids[id]; !ok {
			continue
		}
		item, present := byID[id]
		switch {
		case !present:
			delete(r.ids, id)
			logger.Debug("tracked job no longer listed, dropping", logging.String(logging.FieldItemID, id))
		case item.Status.IsTerminal():
			updates = append(updates, item)
		}
	}
	listener := r.listener
	r.mu.Unlock()

	// Resolved ids leave the set only after their listener has run.
	for _, item := range updates {
		r.metrics.RecordResolved(item.Status.String())
		logger.Info("job resolved",
			logging.String(logging.FieldItemID, item.ID),
			logging.String("status", item.Status.String()),
		)
		if listener != nil {
			listener(item)
		}
	}

	r.mu.Lock()
	for _, item := range updates {
		delete(r.ids, item.ID)
	}
	remaining := len(r.ids)
	r.finishIfDrainedLocked()
	r.mu.Unlock()

	r.metrics.RecordPoll("ok")
	r.metrics.SetInFlight(remaining)
	return nil
}

func (r *Registry) startLocked() {
	if r.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.generation++
	r.failures = 0
	gen := r.generation
	r.wg.Add(1)
	go r.run(ctx, gen)
}

func (r *Registry) stopLocked() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	r.cancel = nil
}

// finishIfDrainedLocked stops the loop and wakes waiters when the set is empty.
func (r *Registry) finishIfDrainedLocked() {
	if len(r.ids) != 0 {
		return
	}
	r.stopLocked()
	select {
	case <-r.drained:
	default:
		close(r.drained)
	}
}

func (r *Registry) nextDelay(gen uint64) (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.generation || r.cancel == nil {
		return 0, false
	}
	return pollDelay(r.interval, r.backoffMax, r.failures), true
}

func (r *Registry) run(ctx context.Context, gen uint64) {
	defer r.wg.Done()

	timer := time.NewTimer(r.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if err := r.Poll(ctx); errors.Is(err, ErrPollInProgress) {
			r.logger.Debug("previous poll still running, skipping tick")
		}

		delay, ok := r.nextDelay(gen)
		if !ok {
			return
		}
		timer.Reset(delay)
	}
}
