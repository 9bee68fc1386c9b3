package content

import (
	"encoding/json"
	"strings"
)

// Status is the lifecycle state of a content item.
type Status string

const (
	StatusGenerating Status = "generating"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
)

// ParseStatus maps a wire value onto the closed status set. Intermediate
// backend stages collapse to generating; anything unrecognized is failed.
func ParseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "generating", "generating_script", "generating_audio", "uploading":
		return StatusGenerating
	case "ready":
		return StatusReady
	case "failed":
		return StatusFailed
	default:
		return StatusFailed
	}
}

// IsTerminal reports whether the status will not change again.
func (s Status) IsTerminal() bool {
	return s == StatusReady || s == StatusFailed
}

func (s Status) String() string {
	return string(s)
}

// UnmarshalJSON never fails: null, non-string, and unknown values decode to failed.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		*s = StatusFailed
		return nil
	}
	*s = ParseStatus(raw)
	return nil
}
