package playback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"soulcast/internal/content"
	"soulcast/internal/logging"
)

// Player is an audio output that plays one URL at a time.
type Player interface {
	Start(ctx context.Context, url string) error
	Pause() error
	Resume() error
	Stop() error
}

// completionNotifier is implemented by players that report when audio ends on its own.
type completionNotifier interface {
	Done() <-chan struct{}
}

// State describes the playback slot.
type State struct {
	CurrentID string `json:"current_id,omitempty"`
	Paused    bool   `json:"paused"`
}

// Coordinator owns the single playback slot.
type Coordinator struct {
	player Player
	logger *slog.Logger

	mu        sync.Mutex
	currentID string
	paused    bool
	// session counts successful starts; completions from older starts are ignored.
	session uint64
}

// NewCoordinator wraps player.
func NewCoordinator(player Player, logger *slog.Logger) *Coordinator {
	return &Coordinator{player: player, logger: logging.NewComponentLogger(logger, "playback")}
}

// Play starts item, or toggles pause when item is already current. Items
// without audio are ignored.
func (c *Coordinator) Play(ctx context.Context, item content.Item) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !item.HasAudio() {
		c.logger.Debug("item has no audio, ignoring play", logging.String(logging.FieldItemID, item.ID))
		return c.stateLocked(), nil
	}

	if c.currentID == item.ID {
		if c.paused {
			if err := c.player.Resume(); err != nil {
				return c.stateLocked(), fmt.Errorf("resume playback: %w", err)
			}
			c.paused = false
		} else {
			if err := c.player.Pause(); err != nil {
				return c.stateLocked(), fmt.Errorf("pause playback: %w", err)
			}
			c.paused = true
		}
		return c.stateLocked(), nil
	}

	if c.currentID != "" {
		if err := c.player.Stop(); err != nil {
			c.logger.Warn("failed to stop previous playback",
				logging.String(logging.FieldItemID, c.currentID),
				logging.Error(err),
			)
		}
		c.currentID = ""
		c.paused = false
	}

	url := content.NormalizeAudioURL(item.AudioURL)
	if err := c.player.Start(ctx, url); err != nil {
		return c.stateLocked(), fmt.Errorf("start playback: %w", err)
	}
	c.currentID = item.ID
	c.paused = false
	c.session++
	if notifier, ok := c.player.(completionNotifier); ok {
		if done := notifier.Done(); done != nil {
			go func(session uint64) {
				<-done
				c.finished(session)
			}(c.session)
		}
	}
	c.logger.Info("playback started", logging.String(logging.FieldItemID, item.ID), logging.String("url", url))
	return c.stateLocked(), nil
}

// Stop halts playback and clears the slot.
func (c *Coordinator) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.currentID == "" {
		return nil
	}
	err := c.player.Stop()
	c.currentID = ""
	c.paused = false
	if err != nil {
		return fmt.Errorf("stop playback: %w", err)
	}
	return nil
}

// finished clears the slot when the start identified by session ends on its own.
func (c *Coordinator) finished(session uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != session || c.currentID == "" {
		return
	}
	c.logger.Debug("playback finished", logging.String(logging.FieldItemID, c.currentID))
	c.currentID = ""
	c.paused = false
}

// State returns the current slot.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Coordinator) stateLocked() State {
	return State{CurrentID: c.currentID, Paused: c.paused}
}
