package content_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"soulcast/internal/content"
)

func TestStatusDecodingIsLenient(t *testing.T) {
	cases := map[string]content.Status{
		`"ready"`:             content.StatusReady,
		`"generating"`:        content.StatusGenerating,
		`"generating_script"`: content.StatusGenerating,
		`"generating_audio"`:  content.StatusGenerating,
		`"uploading"`:         content.StatusGenerating,
		`"failed"`:            content.StatusFailed,
		`"queued_forever"`:    content.StatusFailed,
		`null`:                content.StatusFailed,
		`42`:                  content.StatusFailed,
	}
	for raw, want := range cases {
		var got content.Status
		if err := json.Unmarshal([]byte(raw), &got); err != nil {
			t.Fatalf("unmarshal %s: unexpected error %v", raw, err)
		}
		if got != want {
			t.Fatalf("unmarshal %s: got %q want %q", raw, got, want)
		}
	}
}

func TestStatusIsTerminal(t *testing.T) {
	if content.StatusGenerating.IsTerminal() {
		t.Fatal("generating must not be terminal")
	}
	if !content.StatusReady.IsTerminal() || !content.StatusFailed.IsTerminal() {
		t.Fatal("ready and failed must be terminal")
	}
}

func TestItemDecodingDefaults(t *testing.T) {
	payload := `{"id":"p1","title":"Grace","created_at":"2024-03-01T10:00:00Z","status":"mystery","duration":10,"character_count":7500}`
	var item content.Item
	if err := json.Unmarshal([]byte(payload), &item); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if item.Description != "" {
		t.Fatalf("expected empty description, got %q", item.Description)
	}
	if item.Status != content.StatusFailed {
		t.Fatalf("expected unknown status to decode as failed, got %q", item.Status)
	}
	if item.HasAudio() {
		t.Fatal("expected no audio")
	}
	if item.DurationMinutes != 10 || item.CharacterCount != 7500 {
		t.Fatalf("unexpected numbers: %+v", item)
	}
	if item.Kind != content.KindPodcast {
		t.Fatalf("expected podcast kind, got %q", item.Kind)
	}
}

func TestItemMissingStatusIsFailed(t *testing.T) {
	var item content.Item
	if err := json.Unmarshal([]byte(`{"id":"p2","created_at":"2024-03-01T10:00:00Z"}`), &item); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if item.Status != content.StatusFailed {
		t.Fatalf("expected failed, got %q", item.Status)
	}
}

func TestItemBibleStudyKindInferred(t *testing.T) {
	var item content.Item
	payload := `{"id":"b1","chapter":"John 3","created_at":"2024-03-01T10:00:00Z","status":"ready","audio_url":"https://x/a.mp3"}`
	if err := json.Unmarshal([]byte(payload), &item); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if item.Kind != content.KindBibleStudy {
		t.Fatalf("expected bible study kind, got %q", item.Kind)
	}
	if !item.HasAudio() {
		t.Fatal("expected audio")
	}
}

func TestItemDecodingFailures(t *testing.T) {
	var item content.Item
	err := json.Unmarshal([]byte(`{"title":"no id","created_at":"2024-03-01T10:00:00Z"}`), &item)
	if !errors.Is(err, content.ErrMissingID) {
		t.Fatalf("expected ErrMissingID, got %v", err)
	}
	if err := json.Unmarshal([]byte(`{"id":"x","created_at":"yesterday"}`), &item); err == nil {
		t.Fatal("expected error for unparseable created_at")
	}
	if err := json.Unmarshal([]byte(`{"id":"x"}`), &item); err == nil {
		t.Fatal("expected error for missing created_at")
	}
}

func TestItemRoundTripThroughEncoding(t *testing.T) {
	updated := time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC)
	original := content.Item{
		ID:              "p3",
		Title:           "Hope",
		Status:          content.StatusReady,
		CreatedAt:       time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
		UpdatedAt:       &updated,
		DurationMinutes: 5,
		CharacterCount:  3750,
		Voices:          []string{"alloy", "nova"},
		Kind:            content.KindPodcast,
	}
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded content.Item
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.ID != original.ID || !decoded.CreatedAt.Equal(original.CreatedAt) || decoded.UpdatedAt == nil || !decoded.UpdatedAt.Equal(updated) {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
}
