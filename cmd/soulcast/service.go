package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"soulcast/internal/api"
	"soulcast/internal/app"
	"soulcast/internal/content"
	"soulcast/internal/generation"
)

// playbackPollInterval is how often in-process playback checks for completion.
const playbackPollInterval = 200 * time.Millisecond

// service is the operation surface shared by the daemon client and the
// in-process components.
type service interface {
	Mode() string
	List(ctx context.Context, refresh bool) ([]content.Item, error)
	Generate(ctx context.Context, req generation.Request) (content.Item, error)
	BibleStudy(ctx context.Context, book string, chapter int) (content.Item, error)
	Await(ctx context.Context, id string) (content.Item, error)
	Quota(ctx context.Context) (api.QuotaStatus, error)
	ResetQuota(ctx context.Context) (api.QuotaStatus, error)
	Play(ctx context.Context, id string) (api.PlaybackStatus, error)
	AwaitPlayback(ctx context.Context, id string) error
	StopPlayback(ctx context.Context) (api.PlaybackStatus, error)
	Close() error
}

// errJobRemoved reports a job that left the backend's list before finishing.
var errJobRemoved = errors.New("job is no longer listed by the backend")

// removedJob reports item as failed once nothing is polling for it anymore.
func removedJob(item content.Item) (content.Item, error) {
	item.Status = content.StatusFailed
	return item, fmt.Errorf("%s: %w", item.ID, errJobRemoved)
}

type remoteService struct {
	client   *api.Client
	interval time.Duration
}

func (s *remoteService) Mode() string { return "daemon" }

func (s *remoteService) List(ctx context.Context, refresh bool) ([]content.Item, error) {
	if refresh {
		return s.client.Refresh(ctx)
	}
	return s.client.ListContent(ctx)
}

func (s *remoteService) Generate(ctx context.Context, req generation.Request) (content.Item, error) {
	return s.client.Generate(ctx, api.GenerateRequest{
		Topic:           req.Topic,
		DurationMinutes: req.DurationMinutes,
		Voices:          req.Voices,
	})
}

func (s *remoteService) BibleStudy(ctx context.Context, book string, chapter int) (content.Item, error) {
	return s.client.BibleStudy(ctx, api.BibleStudyRequest{Book: book, Chapter: chapter})
}

// Await polls the daemon's list until id leaves the generating state. The
// daemon's own tracking loop does the backend polling.
func (s *remoteService) Await(ctx context.Context, id string) (content.Item, error) {
	for {
		item, tracked, err := s.client.Item(ctx, id)
		if err != nil {
			return content.Item{}, err
		}
		if !item.IsGenerating() {
			return item, nil
		}
		if !tracked {
			return removedJob(item)
		}
		select {
		case <-ctx.Done():
			return item, ctx.Err()
		case <-time.After(s.interval):
		}
	}
}

func (s *remoteService) Quota(ctx context.Context) (api.QuotaStatus, error) {
	return s.client.Quota(ctx)
}

func (s *remoteService) ResetQuota(ctx context.Context) (api.QuotaStatus, error) {
	return s.client.ResetQuota(ctx)
}

func (s *remoteService) Play(ctx context.Context, id string) (api.PlaybackStatus, error) {
	return s.client.Play(ctx, id)
}

// AwaitPlayback returns immediately: the daemon owns the player process.
func (s *remoteService) AwaitPlayback(context.Context, string) error { return nil }

func (s *remoteService) StopPlayback(ctx context.Context) (api.PlaybackStatus, error) {
	return s.client.StopPlayback(ctx)
}

func (s *remoteService) Close() error { return nil }

type localService struct {
	app *app.App
}

func (s *localService) Mode() string { return "local" }

// List always reloads from the backend because a fresh process has no cached list.
func (s *localService) List(ctx context.Context, _ bool) ([]content.Item, error) {
	return s.app.Orchestrator.Refresh(ctx)
}

func (s *localService) Generate(ctx context.Context, req generation.Request) (content.Item, error) {
	return s.app.Orchestrator.RequestGeneration(ctx, req)
}

func (s *localService) BibleStudy(ctx context.Context, book string, chapter int) (content.Item, error) {
	return s.app.Orchestrator.RequestBibleStudy(ctx, book, chapter)
}

func (s *localService) Await(ctx context.Context, id string) (content.Item, error) {
	item, ok := s.app.Orchestrator.Item(id)
	if !ok {
		return content.Item{}, fmt.Errorf("content item %s not found", id)
	}
	if !item.IsGenerating() {
		return item, nil
	}
	if err := s.app.Registry.Wait(ctx); err != nil {
		return item, err
	}
	item, _ = s.app.Orchestrator.Item(id)
	if item.IsGenerating() {
		return removedJob(item)
	}
	return item, nil
}

func (s *localService) Quota(ctx context.Context) (api.QuotaStatus, error) {
	return api.FromQuotaState(s.app.Ledger.Snapshot(ctx)), nil
}

func (s *localService) ResetQuota(ctx context.Context) (api.QuotaStatus, error) {
	return api.FromQuotaState(s.app.Ledger.Reset(ctx)), nil
}

func (s *localService) Play(ctx context.Context, id string) (api.PlaybackStatus, error) {
	item, ok := s.app.Orchestrator.Item(id)
	if !ok {
		if _, err := s.app.Orchestrator.Refresh(ctx); err != nil {
			return api.PlaybackStatus{}, err
		}
		item, ok = s.app.Orchestrator.Item(id)
	}
	if !ok {
		return api.PlaybackStatus{}, fmt.Errorf("content item %s not found", id)
	}
	state, err := s.app.Playback.Play(ctx, item)
	return api.FromPlaybackState(state), err
}

// AwaitPlayback blocks until id stops playing or ctx ends.
func (s *localService) AwaitPlayback(ctx context.Context, id string) error {
	ticker := time.NewTicker(playbackPollInterval)
	defer ticker.Stop()
	for s.app.Playback.State().CurrentID == id {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func (s *localService) StopPlayback(context.Context) (api.PlaybackStatus, error) {
	err := s.app.Playback.Stop()
	return api.FromPlaybackState(s.app.Playback.State()), err
}

func (s *localService) Close() error {
	return s.app.Close()
}
