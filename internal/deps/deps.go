// Package deps reports whether the external programs soulcast shells out to
// are installed.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"soulcast/internal/config"
)

// Requirement names an external binary and what it is used for.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a requirement.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the binaries the configuration refers to.
func Requirements(cfg *config.Config) []Requirement {
	player := ""
	if cfg != nil && len(cfg.Playback.PlayerCommand) > 0 {
		player = cfg.Playback.PlayerCommand[0]
	}
	return []Requirement{
		{
			Name:        "Audio player",
			Command:     player,
			Description: "Streams episode audio for playback",
			Optional:    true,
		},
	}
}

// Check resolves the configured requirements.
func Check(cfg *config.Config) []Status {
	return CheckBinaries(Requirements(cfg))
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch path, err := exec.LookPath(cmd); {
		case cmd == "":
			status.Detail = "command not configured"
		case err != nil:
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
		default:
			status.Available = true
			status.Command = path
		}
		results = append(results, status)
	}
	return results
}
