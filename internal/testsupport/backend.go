package testsupport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// FakeBackend is an in-memory content backend served over httptest.
type FakeBackend struct {
	*httptest.Server

	t           testing.TB
	mu          sync.Mutex
	rows        []map[string]any
	nextID      int
	failStatus  int
	submissions int
	lists       int
}

// NewFakeBackend starts a backend serving the REST list and generation
// function endpoints. The server is closed when the test ends.
func NewFakeBackend(t testing.TB) *FakeBackend {
	t.Helper()

	f := &FakeBackend{t: t}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /rest/v1/content", f.handleList)
	mux.HandleFunc("POST /functions/v1/generate", f.handleGenerate)
	mux.HandleFunc("POST /functions/v1/generate-bible-study", f.handleBibleStudy)
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

// SetRows replaces the stored content rows, newest first.
func (f *FakeBackend) SetRows(rows ...map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = rows
}

// Complete marks id ready with an audio URL, or failed when audioURL is empty.
func (f *FakeBackend) Complete(id, audioURL string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row["id"] != id {
			continue
		}
		if audioURL == "" {
			row["status"] = "failed"
			return
		}
		row["status"] = "ready"
		row["audio_url"] = audioURL
		return
	}
	f.t.Errorf("fake backend: unknown id %q", id)
}

// FailSubmissions makes generation endpoints answer with status. Zero restores success.
func (f *FakeBackend) FailSubmissions(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failStatus = status
}

// Submissions reports how many generation requests were accepted or rejected.
func (f *FakeBackend) Submissions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submissions
}

// Lists reports how many list requests were served.
func (f *FakeBackend) Lists() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

func (f *FakeBackend) handleList(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	f.lists++
	rows := make([]map[string]any, 0, len(f.rows))
	for _, row := range f.rows {
		rows = append(rows, cloneRow(row))
	}
	f.mu.Unlock()
	WriteJSON(f.t, w, http.StatusOK, rows)
}

func (f *FakeBackend) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Topic    string   `json:"topic"`
		Duration int      `json:"duration"`
		Voices   []string `json:"voices"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteJSON(f.t, w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	row, status := f.submit(func(id string) map[string]any {
		row := WireItem(id, "generating")
		row["topic"] = body.Topic
		row["title"] = body.Topic
		row["duration"] = body.Duration
		row["voices"] = body.Voices
		row["character_count"] = body.Duration * 750
		return row
	})
	f.respond(w, row, status)
}

func (f *FakeBackend) handleBibleStudy(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Chapter string `json:"bibleChapter"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteJSON(f.t, w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	row, status := f.submit(func(id string) map[string]any {
		row := WireItem(id, "generating")
		row["title"] = body.Chapter
		row["chapter"] = body.Chapter
		delete(row, "topic")
		return row
	})
	f.respond(w, row, status)
}

func (f *FakeBackend) submit(build func(id string) map[string]any) (map[string]any, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submissions++
	if f.failStatus != 0 {
		return nil, f.failStatus
	}
	f.nextID++
	row := build(fmt.Sprintf("job-%d", f.nextID))
	f.rows = append([]map[string]any{row}, f.rows...)
	return cloneRow(row), http.StatusOK
}

func cloneRow(row map[string]any) map[string]any {
	clone := make(map[string]any, len(row))
	for k, v := range row {
		clone[k] = v
	}
	return clone
}

func (f *FakeBackend) respond(w http.ResponseWriter, row map[string]any, status int) {
	if status != http.StatusOK {
		WriteJSON(f.t, w, status, map[string]string{"error": "generation unavailable"})
		return
	}
	WriteJSON(f.t, w, http.StatusOK, row)
}
