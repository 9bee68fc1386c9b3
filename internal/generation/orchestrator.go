package generation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"soulcast/internal/content"
	"soulcast/internal/logging"
	"soulcast/internal/metrics"
	"soulcast/internal/quota"
	"soulcast/internal/services"
	"soulcast/internal/services/backend"
)

// Backend is the subset of the content backend the orchestrator needs.
type Backend interface {
	ListContent(ctx context.Context) ([]content.Item, error)
	SubmitGeneration(ctx context.Context, params backend.GenerationParams) (content.Item, error)
	SubmitBibleStudy(ctx context.Context, chapter string) (content.Item, error)
}

// Tracker receives ids of items that are still generating.
type Tracker interface {
	Track(ids ...string)
}

// Request describes a podcast generation request.
type Request struct {
	Topic           string
	DurationMinutes int
	Voices          []string
}

// Options configures an Orchestrator.
type Options struct {
	Logger   *slog.Logger
	Metrics  metrics.Recorder
	OnChange func(content.Item)
	Now      func() time.Time
}

// Orchestrator validates and submits generation requests and owns the visible list.
type Orchestrator struct {
	ledger   *quota.Ledger
	client   Backend
	tracker  Tracker
	logger   *slog.Logger
	metrics  metrics.Recorder
	onChange func(content.Item)
	now      func() time.Time

	mu    sync.RWMutex
	items []content.Item
}

// New creates an Orchestrator.
func New(ledger *quota.Ledger, client Backend, tracker Tracker, opts Options) *Orchestrator {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		ledger:   ledger,
		client:   client,
		tracker:  tracker,
		logger:   logging.NewComponentLogger(opts.Logger, "generation"),
		metrics:  metrics.OrNop(opts.Metrics),
		onChange: opts.OnChange,
		now:      now,
	}
}

// RequestGeneration validates req, submits it, and records quota usage.
// Validation runs in a fixed order: topic, voices, then quota.
func (o *Orchestrator) RequestGeneration(ctx context.Context, req Request) (content.Item, error) {
	ctx = services.WithOperation(ctx, "generate")
	logger := logging.WithContext(ctx, o.logger)

	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return o.reject(logger, ErrEmptyTopic)
	}
	voices := distinctVoices(req.Voices)
	if len(voices) < MinVoices {
		return o.reject(logger, ErrInsufficientVoices)
	}
	if !o.ledger.HasCapacity(ctx, req.DurationMinutes) {
		return o.reject(logger, ErrExceedsCharacterLimit)
	}

	item, err := o.client.SubmitGeneration(ctx, backend.GenerationParams{
		Topic:           topic,
		DurationMinutes: req.DurationMinutes,
		Voices:          voices,
	})
	if err != nil {
		o.metrics.RecordSubmission("error")
		logging.ErrorWithContext(logger, "generation submission failed", "submit_failed",
			logging.Error(err),
			logging.String("topic", topic),
			logging.String(logging.FieldErrorHint, submitHint(err)),
		)
		return content.Item{}, serverError(err)
	}

	o.insertHead(item)
	if item.IsGenerating() {
		o.tracker.Track(item.ID)
	}
	o.ledger.RecordUsage(ctx, item.CharacterCount)
	o.metrics.RecordSubmission("accepted")

	logger.Info("generation submitted",
		logging.String(logging.FieldItemID, item.ID),
		logging.String("status", item.Status.String()),
		logging.Int("duration_minutes", req.DurationMinutes),
		logging.Int("characters", item.CharacterCount),
	)
	return item, nil
}

// RequestBibleStudy submits a Bible study for book and chapter. A placeholder
// is shown while the request is in flight and becomes a failed item if the
// backend rejects it. Bible studies do not consume quota.
func (o *Orchestrator) RequestBibleStudy(ctx context.Context, book string, chapter int) (content.Item, error) {
	ctx = services.WithOperation(ctx, "bible_study")
	logger := logging.WithContext(ctx, o.logger)

	reference, err := content.FormatChapterReference(book, chapter)
	if err != nil {
		return o.reject(logger, &Error{Kind: KindEmptyTopic, Message: ErrEmptyTopic.Message, Err: err})
	}

	placeholder := content.Item{
		ID:               "pending-" + uuid.NewString(),
		Title:            "Bible Study: " + reference,
		Description:      "Generating study...",
		ChapterReference: reference,
		Status:           content.StatusGenerating,
		CreatedAt:        o.now(),
		Kind:             content.KindBibleStudy,
	}
	o.insertHead(placeholder)

	item, err := o.client.SubmitBibleStudy(ctx, reference)
	if err != nil {
		o.metrics.RecordSubmission("error")
		failed := placeholder
		failed.Status = content.StatusFailed
		failed.Description = "Failed to generate study: " + failureMessage(err)
		o.replace(placeholder.ID, failed)
		logging.ErrorWithContext(logger, "bible study submission failed", "submit_failed",
			logging.Error(err),
			logging.String("chapter", reference),
			logging.String(logging.FieldErrorHint, submitHint(err)),
		)
		return failed, serverError(err)
	}

	o.replace(placeholder.ID, item)
	if item.IsGenerating() {
		o.tracker.Track(item.ID)
	}
	o.metrics.RecordSubmission("accepted")
	logger.Info("bible study submitted",
		logging.String(logging.FieldItemID, item.ID),
		logging.String("chapter", reference),
	)
	return item, nil
}

// Refresh reloads the visible list from the backend and tracks every item
// that is still generating. Failures surface once as ServerError.
func (o *Orchestrator) Refresh(ctx context.Context) ([]content.Item, error) {
	ctx = services.WithOperation(ctx, "refresh")
	items, err := o.client.ListContent(backend.WithoutRetry(ctx))
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, o.logger), "content refresh failed", "refresh_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, submitHint(err)),
			logging.String(logging.FieldImpact, "showing previously loaded content"),
		)
		return nil, serverError(err)
	}

	o.mu.Lock()
	o.items = append([]content.Item(nil), items...)
	o.mu.Unlock()

	var generating []string
	for _, item := range items {
		if item.IsGenerating() {
			generating = append(generating, item.ID)
		}
	}
	if len(generating) > 0 {
		o.tracker.Track(generating...)
	}
	o.logger.Debug("content refreshed", logging.Int("items", len(items)), logging.Int("generating", len(generating)))
	return append([]content.Item(nil), items...), nil
}

// ApplyUpdate replaces the listed item with the same id. It is the tracking
// registry's listener.
func (o *Orchestrator) ApplyUpdate(item content.Item) {
	o.replace(item.ID, item)
}

// Items returns a snapshot of the visible list, newest first.
func (o *Orchestrator) Items() []content.Item {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]content.Item(nil), o.items...)
}

// Item looks up a listed item by id.
func (o *Orchestrator) Item(id string) (content.Item, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, item := range o.items {
		if item.ID == id {
			return item, true
		}
	}
	return content.Item{}, false
}

func (o *Orchestrator) reject(logger *slog.Logger, err *Error) (content.Item, error) {
	o.metrics.RecordSubmission("rejected")
	logger.Info("generation request rejected",
		logging.String(logging.FieldEventType, "request_rejected"),
		logging.String("reason", err.Kind.String()),
	)
	return content.Item{}, err
}

func (o *Orchestrator) insertHead(item content.Item) {
	o.mu.Lock()
	filtered := make([]content.Item, 0, len(o.items)+1)
	filtered = append(filtered, item)
	for _, existing := range o.items {
		if existing.ID != item.ID {
			filtered = append(filtered, existing)
		}
	}
	o.items = filtered
	onChange := o.onChange
	o.mu.Unlock()

	if onChange != nil {
		onChange(item)
	}
}

func (o *Orchestrator) replace(id string, item content.Item) {
	o.mu.Lock()
	replaced := false
	for i := range o.items {
		if o.items[i].ID == id {
			o.items[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		o.items = append([]content.Item{item}, o.items...)
	}
	onChange := o.onChange
	o.mu.Unlock()

	if onChange != nil {
		onChange(item)
	}
}

func distinctVoices(voices []string) []string {
	seen := make(map[string]struct{}, len(voices))
	out := make([]string, 0, len(voices))
	for _, voice := range voices {
		name := strings.ToLower(strings.TrimSpace(voice))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func failureMessage(err error) string {
	if msg := backend.Message(err); msg != "" {
		return msg
	}
	return err.Error()
}

func submitHint(err error) string {
	switch code := backend.StatusCode(err); {
	case code == 401 || code == 403:
		return "verify backend.api_key"
	case code >= 500:
		return "backend reported a server error; retry later"
	case code > 0:
		return fmt.Sprintf("backend rejected the request with HTTP %d", code)
	default:
		return "check backend.base_url and network connectivity"
	}
}
