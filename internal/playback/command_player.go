package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"

	"golang.org/x/sys/unix"

	"soulcast/internal/logging"
)

// ErrNotPlaying is returned when pausing or resuming with no active process.
var ErrNotPlaying = errors.New("no active playback")

// CommandPlayer plays audio through an external command such as ffplay. The
// URL is appended as the final argument.
type CommandPlayer struct {
	command []string
	logger  *slog.Logger

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

// NewCommandPlayer creates a player for command, which must name an executable.
func NewCommandPlayer(command []string, logger *slog.Logger) (*CommandPlayer, error) {
	if len(command) == 0 || command[0] == "" {
		return nil, errors.New("player command is empty")
	}
	return &CommandPlayer{
		command: append([]string(nil), command...),
		logger:  logging.NewComponentLogger(logger, "player"),
	}, nil
}

// Start launches the player for url, stopping any previous process.
func (p *CommandPlayer) Start(ctx context.Context, url string) error {
	if err := p.Stop(); err != nil {
		p.logger.Debug("stop before start failed", logging.Error(err))
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	// The process outlives the request that started it; Stop ends it.
	args := append(append([]string(nil), p.command[1:]...), url)
	cmd := exec.Command(p.command[0], args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch %s: %w", p.command[0], err)
	}
	done := make(chan struct{})

	p.mu.Lock()
	p.cmd = cmd
	p.done = done
	p.mu.Unlock()

	go func() {
		err := cmd.Wait()
		p.mu.Lock()
		if p.cmd == cmd {
			p.cmd = nil
		}
		p.mu.Unlock()
		close(done)
		if err != nil {
			p.logger.Debug("player exited", logging.Error(err))
		}
	}()
	return nil
}

// Pause suspends the player process.
func (p *CommandPlayer) Pause() error {
	return p.signal(unix.SIGSTOP)
}

// Resume continues a suspended player process.
func (p *CommandPlayer) Resume() error {
	return p.signal(unix.SIGCONT)
}

// Stop terminates the player process and waits for it to exit.
func (p *CommandPlayer) Stop() error {
	p.mu.Lock()
	cmd, done := p.cmd, p.done
	p.cmd = nil
	p.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	pid := cmd.Process.Pid
	// A stopped process does not act on SIGTERM until continued.
	_ = unix.Kill(pid, unix.SIGCONT)
	if err := unix.Kill(pid, unix.SIGTERM); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("terminate player: %w", err)
	}
	if done != nil {
		<-done
	}
	return nil
}

// Done returns a channel closed when the current process exits, or nil when idle.
func (p *CommandPlayer) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil {
		return nil
	}
	return p.done
}

func (p *CommandPlayer) signal(sig unix.Signal) error {
	p.mu.Lock()
	cmd := p.cmd
	p.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return ErrNotPlaying
	}
	if err := unix.Kill(cmd.Process.Pid, sig); err != nil {
		return fmt.Errorf("signal player: %w", err)
	}
	return nil
}
