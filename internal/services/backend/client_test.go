package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"soulcast/internal/content"
	"soulcast/internal/services"
	"soulcast/internal/services/backend"
	"soulcast/internal/testsupport"
)

func newClient(url string, opts ...backend.Option) *backend.Client {
	opts = append([]backend.Option{backend.WithSleeper(func(time.Duration) {})}, opts...)
	return backend.NewClient(backend.Config{BaseURL: url + "/", APIKey: "secret"}, opts...)
}

func TestListContentSendsHeadersAndQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/rest/v1/content" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("order"); got != "created_at.desc" {
			t.Errorf("unexpected order %q", got)
		}
		if got := r.URL.Query().Get("select"); got != "*" {
			t.Errorf("unexpected select %q", got)
		}
		if r.Header.Get("apikey") != "secret" || r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing auth headers: %v", r.Header)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("missing content type")
		}
		if r.Header.Get("X-Request-ID") != "req-fixed" {
			t.Errorf("unexpected request id %q", r.Header.Get("X-Request-ID"))
		}
		testsupport.WriteJSON(t, w, http.StatusOK, []any{
			testsupport.WireItem("a", "ready"),
			testsupport.WireItem("b", "generating_audio"),
		})
	}))
	defer server.Close()

	client := newClient(server.URL, backend.WithRequestIDGenerator(func() string { return "req-fixed" }))
	items, err := client.ListContent(context.Background())
	if err != nil {
		t.Fatalf("ListContent returned error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ID != "a" || items[0].Status != content.StatusReady {
		t.Fatalf("unexpected first item: %+v", items[0])
	}
	if items[1].Status != content.StatusGenerating {
		t.Fatalf("expected intermediate stage to map to generating, got %q", items[1].Status)
	}
}

func TestListContentFailsOpenOnMalformedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"unexpected": "object"`))
	}))
	defer server.Close()

	items, err := newClient(server.URL).ListContent(context.Background())
	if err != nil {
		t.Fatalf("expected nil error for malformed payload, got %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", items)
	}
}

func TestListContentSkipsUndecodableRows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		broken := testsupport.WireItem("broken", "ready")
		broken["created_at"] = "not a date"
		missingID := testsupport.WireItem("", "ready")
		delete(missingID, "id")
		testsupport.WriteJSON(t, w, http.StatusOK, []any{
			testsupport.WireItem("good", "ready"),
			broken,
			missingID,
		})
	}))
	defer server.Close()

	items, err := newClient(server.URL).ListContent(context.Background())
	if err != nil {
		t.Fatalf("ListContent returned error: %v", err)
	}
	if len(items) != 1 || items[0].ID != "good" {
		t.Fatalf("expected only the decodable row, got %+v", items)
	}
}

func TestListContentRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			testsupport.WriteJSON(t, w, http.StatusServiceUnavailable, map[string]string{"error": "warming up"})
			return
		}
		testsupport.WriteJSON(t, w, http.StatusOK, []any{testsupport.WireItem("a", "ready")})
	}))
	defer server.Close()

	items, err := newClient(server.URL).ListContent(context.Background())
	if err != nil {
		t.Fatalf("ListContent returned error: %v", err)
	}
	if len(items) != 1 || calls.Load() != 2 {
		t.Fatalf("expected success after retry, items=%d calls=%d", len(items), calls.Load())
	}
}

func TestListContentWithoutRetryFailsOnce(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		testsupport.WriteJSON(t, w, http.StatusServiceUnavailable, map[string]string{"error": "warming up"})
	}))
	defer server.Close()

	_, err := newClient(server.URL).ListContent(backend.WithoutRetry(context.Background()))
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestErrorBodyMapping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		testsupport.WriteJSON(t, w, http.StatusBadRequest, map[string]string{"error": "topic too long"})
	}))
	defer server.Close()

	_, err := newClient(server.URL).SubmitGeneration(context.Background(), backend.GenerationParams{Topic: "x", DurationMinutes: 5, Voices: []string{"alloy", "nova"}})
	var statusErr *backend.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusBadRequest || statusErr.Error() != "topic too long" {
		t.Fatalf("unexpected status error: %+v", statusErr)
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker, got %v", err)
	}
	if backend.Message(err) != "topic too long" {
		t.Fatalf("unexpected message %q", backend.Message(err))
	}
}

func TestErrorWithoutBodyUsesStatusCode(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newClient(server.URL).SubmitGeneration(context.Background(), backend.GenerationParams{Topic: "x", DurationMinutes: 5})
	if backend.StatusCode(err) != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %v", err)
	}
	if backend.Message(err) != "HTTP 500" {
		t.Fatalf("unexpected message %q", backend.Message(err))
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("submissions must not be retried, got %d calls", calls.Load())
	}
}

func TestSubmitGenerationBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/functions/v1/generate" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["topic"] != "Grace" || body["duration"] != float64(15) || body["initialRequest"] != true {
			t.Errorf("unexpected body: %v", body)
		}
		if voices, ok := body["voices"].([]any); !ok || len(voices) != 2 {
			t.Errorf("unexpected voices: %v", body["voices"])
		}
		row := testsupport.WireItem("new", "generating")
		row["character_count"] = 11250
		testsupport.WriteJSON(t, w, http.StatusOK, row)
	}))
	defer server.Close()

	item, err := newClient(server.URL).SubmitGeneration(context.Background(), backend.GenerationParams{
		Topic:           "Grace",
		DurationMinutes: 15,
		Voices:          []string{"alloy", "nova"},
	})
	if err != nil {
		t.Fatalf("SubmitGeneration returned error: %v", err)
	}
	if item.ID != "new" || item.Status != content.StatusGenerating || item.CharacterCount != 11250 {
		t.Fatalf("unexpected item: %+v", item)
	}
	if item.Kind != content.KindPodcast || len(item.Voices) != 2 {
		t.Fatalf("expected request details filled in, got %+v", item)
	}
}

func TestSubmitBibleStudy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/functions/v1/generate-bible-study" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["bibleChapter"] != "John 3" {
			t.Errorf("unexpected chapter %q", body["bibleChapter"])
		}
		testsupport.WriteJSON(t, w, http.StatusOK, map[string]any{"data": testsupport.WireItem("study", "generating")})
	}))
	defer server.Close()

	item, err := newClient(server.URL).SubmitBibleStudy(context.Background(), "John 3")
	if err != nil {
		t.Fatalf("SubmitBibleStudy returned error: %v", err)
	}
	if item.ID != "study" || item.ChapterReference != "John 3" || item.Kind != content.KindBibleStudy {
		t.Fatalf("unexpected item: %+v", item)
	}
}

func TestMissingAPIKeyIsConfigurationError(t *testing.T) {
	client := backend.NewClient(backend.Config{BaseURL: "http://127.0.0.1:1"})
	_, err := client.ListContent(context.Background())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != "secret" {
			testsupport.WriteJSON(t, w, http.StatusUnauthorized, map[string]string{"error": "invalid api key"})
			return
		}
		testsupport.WriteJSON(t, w, http.StatusOK, []any{})
	}))
	defer server.Close()

	if err := newClient(server.URL).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
	bad := backend.NewClient(backend.Config{BaseURL: server.URL, APIKey: "wrong"})
	err := bad.HealthCheck(context.Background())
	if !errors.Is(err, services.ErrConfiguration) || backend.Message(err) != "invalid api key" {
		t.Fatalf("expected configuration error with message, got %v", err)
	}
}

func TestNewFromConfigAppliesRetryAttempts(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 5 {
			testsupport.WriteJSON(t, w, http.StatusServiceUnavailable, map[string]string{"error": "warming up"})
			return
		}
		testsupport.WriteJSON(t, w, http.StatusOK, []any{})
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL(server.URL))
	cfg.Backend.RetryAttempts = 5
	noSleep := backend.WithSleeper(func(time.Duration) {})
	if _, err := backend.NewFromConfig(cfg, noSleep).ListContent(context.Background()); err != nil {
		t.Fatalf("ListContent returned error: %v", err)
	}
	if calls.Load() != 5 {
		t.Fatalf("expected five attempts, got %d", calls.Load())
	}

	calls.Store(0)
	cfg.Backend.RetryAttempts = 1
	if _, err := backend.NewFromConfig(cfg, noSleep).ListContent(context.Background()); err == nil {
		t.Fatal("expected error with a single attempt")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one attempt, got %d", calls.Load())
	}
}

func TestNewFromConfigUsesBackendSection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != "test" {
			t.Errorf("expected config api key, got %q", r.Header.Get("apikey"))
		}
		testsupport.WriteJSON(t, w, http.StatusOK, []any{})
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL(server.URL))
	if _, err := backend.NewFromConfig(cfg).ListContent(context.Background()); err != nil {
		t.Fatalf("ListContent returned error: %v", err)
	}
}
