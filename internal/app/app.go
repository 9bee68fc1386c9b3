package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"soulcast/internal/config"
	"soulcast/internal/content"
	"soulcast/internal/generation"
	"soulcast/internal/logging"
	"soulcast/internal/metrics"
	"soulcast/internal/playback"
	"soulcast/internal/quota"
	"soulcast/internal/services/backend"
	"soulcast/internal/store"
	"soulcast/internal/tracking"
)

// App holds the wired components shared by the daemon and CLI commands.
type App struct {
	Config       *config.Config
	Logger       *slog.Logger
	Store        *store.Store
	Ledger       *quota.Ledger
	Client       *backend.Client
	Registry     *tracking.Registry
	Orchestrator *generation.Orchestrator
	Playback     *playback.Coordinator
	Metrics      *metrics.Collector
	Gatherer     prometheus.Gatherer
}

// Options customizes component construction.
type Options struct {
	Logger *slog.Logger
	// Player replaces the configured external player command.
	Player playback.Player
	// HTTPClient replaces the backend client's default transport.
	HTTPClient *http.Client
	// OnChange is invoked for every item the orchestrator inserts or replaces.
	OnChange func(content.Item)
}

// New opens the state store and assembles every component for cfg.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	st, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	player := opts.Player
	if player == nil {
		commandPlayer, err := playback.NewCommandPlayer(cfg.Playback.PlayerCommand, logger)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("playback: %w", err)
		}
		player = commandPlayer
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	ledger := quota.Load(ctx, store.NewLedgerStore(st), quota.Options{
		Limit:  cfg.Quota.MonthlyLimit,
		Logger: logger,
		Observer: func(state quota.State) {
			collector.SetQuota(state.TotalUsed, state.Remaining())
		},
	})
	snapshot := ledger.Snapshot(ctx)
	collector.SetQuota(snapshot.TotalUsed, snapshot.Remaining())

	clientOpts := []backend.Option{backend.WithLogger(logger), backend.WithMetrics(collector)}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, backend.WithHTTPClient(opts.HTTPClient))
	}
	client := backend.NewFromConfig(cfg, clientOpts...)

	tracker := tracking.New(client, tracking.Options{
		Interval:   cfg.PollInterval(),
		BackoffMax: cfg.BackoffMax(),
		Logger:     logger,
		Metrics:    collector,
	})
	orchestrator := generation.New(ledger, client, tracker, generation.Options{
		Logger:   logger,
		Metrics:  collector,
		OnChange: opts.OnChange,
	})
	tracker.SetListener(orchestrator.ApplyUpdate)

	return &App{
		Config:       cfg,
		Logger:       logger,
		Store:        st,
		Ledger:       ledger,
		Client:       client,
		Registry:     tracker,
		Orchestrator: orchestrator,
		Playback:     playback.NewCoordinator(player, logger),
		Metrics:      collector,
		Gatherer:     registry,
	}, nil
}

// Close stops polling and playback, then closes the store.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	a.Registry.Shutdown()
	if err := a.Playback.Stop(); err != nil {
		a.Logger.Warn("stop playback on close", logging.Error(err))
	}
	return a.Store.Close()
}
