package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Kind distinguishes generated podcasts from Bible study episodes.
type Kind string

const (
	KindPodcast    Kind = "podcast"
	KindBibleStudy Kind = "bible_study"
)

// Item is a single generated content entry as returned by the backend.
type Item struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Topic            string     `json:"topic,omitempty"`
	ChapterReference string     `json:"chapter,omitempty"`
	AudioURL         string     `json:"audio_url,omitempty"`
	Status           Status     `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
	DurationMinutes  int        `json:"duration"`
	CharacterCount   int        `json:"character_count"`
	Voices           []string   `json:"voices,omitempty"`
	Kind             Kind       `json:"kind,omitempty"`
}

// HasAudio reports whether the item carries a playable audio URL.
func (i Item) HasAudio() bool {
	return i.AudioURL != ""
}

// IsGenerating reports whether the backend is still producing the item.
func (i Item) IsGenerating() bool {
	return i.Status == StatusGenerating
}

type wireItem struct {
	ID               *string     `json:"id"`
	Title            string      `json:"title"`
	Description      *string     `json:"description"`
	Topic            string      `json:"topic"`
	ChapterReference string      `json:"chapter"`
	AudioURL         *string     `json:"audio_url"`
	Status           Status      `json:"status"`
	CreatedAt        *string     `json:"created_at"`
	UpdatedAt        *string     `json:"updated_at"`
	DurationMinutes  json.Number `json:"duration"`
	CharacterCount   json.Number `json:"character_count"`
	Voices           []string    `json:"voices"`
	Kind             Kind        `json:"kind"`
}

// ErrMissingID is returned when a payload has no item identifier.
var ErrMissingID = errors.New("content item missing id")

// UnmarshalJSON decodes the backend wire shape. Status is lenient and a missing
// description becomes empty, but a missing id or unparseable created_at fails.
func (i *Item) UnmarshalJSON(data []byte) error {
	wire := wireItem{Status: StatusFailed}
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("decode content item: %w", err)
	}
	if wire.ID == nil || *wire.ID == "" {
		return ErrMissingID
	}
	if wire.CreatedAt == nil {
		return fmt.Errorf("decode content item %s: missing created_at", *wire.ID)
	}
	created, err := ParseTimestamp(*wire.CreatedAt)
	if err != nil {
		return fmt.Errorf("decode content item %s: %w", *wire.ID, err)
	}

	out := Item{
		ID:               *wire.ID,
		Title:            wire.Title,
		Topic:            wire.Topic,
		ChapterReference: wire.ChapterReference,
		Status:           wire.Status,
		CreatedAt:        created,
		Voices:           wire.Voices,
		Kind:             wire.Kind,
	}
	if wire.Description != nil {
		out.Description = *wire.Description
	}
	if wire.AudioURL != nil {
		out.AudioURL = *wire.AudioURL
	}
	if wire.UpdatedAt != nil {
		if updated, err := ParseTimestamp(*wire.UpdatedAt); err == nil {
			out.UpdatedAt = &updated
		}
	}
	out.DurationMinutes = numberToInt(wire.DurationMinutes)
	out.CharacterCount = numberToInt(wire.CharacterCount)
	if out.Kind == "" {
		if out.ChapterReference != "" {
			out.Kind = KindBibleStudy
		} else {
			out.Kind = KindPodcast
		}
	}
	*i = out
	return nil
}

func numberToInt(n json.Number) int {
	if n == "" {
		return 0
	}
	if v, err := n.Int64(); err == nil {
		return int(v)
	}
	if f, err := n.Float64(); err == nil {
		return int(f)
	}
	return 0
}
