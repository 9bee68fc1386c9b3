package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"soulcast/internal/api"
	"soulcast/internal/app"
	"soulcast/internal/logging"
)

// Daemon owns the long-running soulcast components and enforces single-instance execution.
type Daemon struct {
	app    *app.App
	logger *slog.Logger

	lockPath string
	lock     *flock.Flock
	server   *apiServer

	running   atomic.Bool
	cancel    context.CancelFunc
	startedAt time.Time

	mu        sync.Mutex
	lastError string
}

// New constructs a daemon around an assembled App.
func New(a *app.App) (*Daemon, error) {
	if a == nil || a.Config == nil {
		return nil, errors.New("daemon requires an assembled app")
	}
	logger := logging.NewComponentLogger(a.Logger, "daemon")
	d := &Daemon{
		app:      a,
		logger:   logger,
		lockPath: a.Config.LockPath(),
		lock:     flock.New(a.Config.LockPath()),
	}
	d.server = newAPIServer(a.Config.Paths.APIBind, a.Config.Paths.APIToken, d, logger)
	return d, nil
}

// Start acquires the daemon lock, loads the content list, resumes tracking of
// generating items and starts the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another soulcast daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.server.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	d.cancel = cancel
	d.startedAt = time.Now()
	d.running.Store(true)

	if _, err := d.app.Orchestrator.Refresh(runCtx); err != nil {
		d.setLastError(err)
		logging.WarnWithContext(d.logger, "initial content load failed", "initial_refresh_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check backend.base_url and backend.api_key"),
			logging.String(logging.FieldImpact, "content list stays empty until the next refresh"),
		)
	}

	d.logger.Info("soulcast daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.server.address()),
		logging.Int("tracked", len(d.app.Registry.InFlight())),
	)
	return nil
}

// Stop halts polling and playback, shuts the API server down and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.stop()
	d.app.Registry.Shutdown()
	if err := d.app.Playback.Stop(); err != nil {
		d.logger.Warn("failed to stop playback", logging.Error(err))
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("soulcast daemon stopped")
}

// Close stops the daemon and releases the components it owns.
func (d *Daemon) Close() error {
	d.Stop()
	return d.app.Close()
}

// Running reports whether Start succeeded and Stop has not been called.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Address returns the API listener address, or "" before Start.
func (d *Daemon) Address() string {
	return d.server.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	d.mu.Lock()
	lastError := d.lastError
	d.mu.Unlock()

	status := api.DaemonStatus{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		StateDBPath:  d.app.Store.Path(),
		LockFilePath: d.lockPath,
		BackendURL:   d.app.Config.Backend.BaseURL,
		Items:        len(d.app.Orchestrator.Items()),
		LastError:    lastError,
		Quota:        api.FromQuotaState(d.app.Ledger.Snapshot(ctx)),
		Tracking: api.TrackingStatus{
			Running:  d.app.Registry.Running(),
			InFlight: d.app.Registry.InFlight(),
		},
		Playback: api.FromPlaybackState(d.app.Playback.State()),
	}
	if status.Running {
		status.StartedAt = api.FormatTime(d.startedAt)
	}
	return status
}

func (d *Daemon) setLastError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		d.lastError = ""
		return
	}
	d.lastError = err.Error()
}
