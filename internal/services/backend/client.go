package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"soulcast/internal/config"
	"soulcast/internal/content"
	"soulcast/internal/logging"
	"soulcast/internal/metrics"
	"soulcast/internal/services"
)

const (
	defaultHTTPTimeout    = 30 * time.Second
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 500 * time.Millisecond
	defaultRetryMaxDelay  = 5 * time.Second

	listPath       = "/rest/v1/content"
	generatePath   = "/functions/v1/generate"
	bibleStudyPath = "/functions/v1/generate-bible-study"
)

// Config captures the settings required to talk to the backend.
type Config struct {
	BaseURL           string
	APIKey            string
	TimeoutSeconds    int
	RequestsPerSecond float64
	Burst             int
}

// GenerationParams is the podcast generation request payload.
type GenerationParams struct {
	Topic           string
	DurationMinutes int
	Voices          []string
}

type generateRequest struct {
	Topic          string   `json:"topic"`
	Duration       int      `json:"duration"`
	Voices         []string `json:"voices"`
	InitialRequest bool     `json:"initialRequest"`
}

type bibleStudyRequest struct {
	BibleChapter string `json:"bibleChapter"`
}

// Client talks to the content backend over HTTP.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	metrics    metrics.Recorder
	requestID  func() string

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "backend")
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(recorder metrics.Recorder) Option {
	return func(c *Client) {
		c.metrics = metrics.OrNop(recorder)
	}
}

// WithRetryMaxAttempts overrides the list retry count (defaults to 3).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// WithRequestIDGenerator overrides X-Request-ID generation.
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) {
		if gen != nil {
			c.requestID = gen
		}
	}
}

// NewClient constructs a backend client. A RequestsPerSecond of zero disables throttling.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		burst := max(cfg.Burst, 1)
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	client := &Client{
		cfg: Config{
			BaseURL:           strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			APIKey:            strings.TrimSpace(cfg.APIKey),
			TimeoutSeconds:    cfg.TimeoutSeconds,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Burst:             cfg.Burst,
		},
		httpClient:       &http.Client{Timeout: timeout},
		limiter:          limiter,
		logger:           logging.NewComponentLogger(nil, "backend"),
		metrics:          metrics.Nop{},
		requestID:        uuid.NewString,
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// NewFromConfig builds a client from application config.
func NewFromConfig(cfg *config.Config, opts ...Option) *Client {
	if cfg.Backend.RetryAttempts > 0 {
		opts = append([]Option{WithRetryMaxAttempts(cfg.Backend.RetryAttempts)}, opts...)
	}
	return NewClient(Config{
		BaseURL:           cfg.Backend.BaseURL,
		APIKey:            cfg.Backend.APIKey,
		TimeoutSeconds:    cfg.Backend.TimeoutSeconds,
		RequestsPerSecond: cfg.Backend.RequestsPerSecond,
		Burst:             cfg.Backend.Burst,
	}, opts...)
}

// ListContent returns all stored content rows, newest first. A malformed
// payload yields an empty list with no error.
func (c *Client) ListContent(ctx context.Context) ([]content.Item, error) {
	ctx = services.WithOperation(ctx, "list")
	body, err := c.doWithRetry(ctx, http.MethodGet, listPath+"?select=*&order=created_at.desc", nil)
	if err != nil {
		return nil, err
	}
	return c.decodeList(ctx, body), nil
}

// HealthCheck verifies the backend is reachable and the API key is accepted.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx = services.WithOperation(ctx, "health")
	_, err := c.do(ctx, http.MethodGet, listPath+"?select=id&limit=1", nil)
	return err
}

// SubmitGeneration asks the backend to start generating a podcast and returns
// the placeholder item it creates.
func (c *Client) SubmitGeneration(ctx context.Context, params GenerationParams) (content.Item, error) {
	ctx = services.WithOperation(ctx, "submit")
	body, err := c.do(ctx, http.MethodPost, generatePath, generateRequest{
		Topic:          params.Topic,
		Duration:       params.DurationMinutes,
		Voices:         params.Voices,
		InitialRequest: true,
	})
	if err != nil {
		return content.Item{}, err
	}
	item, err := decodeItem(body)
	if err != nil {
		return content.Item{}, services.Wrap(services.ErrTransient, "backend", "submit", "decode response", err)
	}
	if item.Topic == "" {
		item.Topic = params.Topic
	}
	if len(item.Voices) == 0 {
		item.Voices = append([]string(nil), params.Voices...)
	}
	if item.DurationMinutes == 0 {
		item.DurationMinutes = params.DurationMinutes
	}
	item.Kind = content.KindPodcast
	return item, nil
}

// SubmitBibleStudy asks the backend to generate a study for a chapter reference like "John 3".
func (c *Client) SubmitBibleStudy(ctx context.Context, chapter string) (content.Item, error) {
	ctx = services.WithOperation(ctx, "bible_study")
	body, err := c.do(ctx, http.MethodPost, bibleStudyPath, bibleStudyRequest{BibleChapter: chapter})
	if err != nil {
		return content.Item{}, err
	}
	item, err := decodeItem(body)
	if err != nil {
		return content.Item{}, services.Wrap(services.ErrTransient, "backend", "bible_study", "decode response", err)
	}
	if item.ChapterReference == "" {
		item.ChapterReference = chapter
	}
	item.Kind = content.KindBibleStudy
	return item, nil
}

func decodeItem(body []byte) (content.Item, error) {
	var item content.Item
	if err := json.Unmarshal(body, &item); err == nil {
		return item, nil
	}
	// Edge functions sometimes wrap the row as {"data": {...}} or return a one-element array.
	var wrapped struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && len(wrapped.Data) > 0 {
		if err := json.Unmarshal(wrapped.Data, &item); err == nil {
			return item, nil
		}
	}
	var rows []content.Item
	if err := json.Unmarshal(body, &rows); err == nil && len(rows) > 0 {
		return rows[0], nil
	}
	return content.Item{}, json.Unmarshal(body, &item)
}

func (c *Client) decodeList(ctx context.Context, body []byte) []content.Item {
	logger := logging.WithContext(ctx, c.logger)
	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		logging.WarnWithContext(logger, "content list payload malformed", "list_decode_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check backend content schema"),
			logging.String(logging.FieldImpact, "content list shown as empty"),
		)
		return []content.Item{}
	}
	items := make([]content.Item, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		var item content.Item
		if err := json.Unmarshal(row, &item); err != nil {
			skipped++
			logger.Debug("skipping undecodable content row", logging.Error(err))
			continue
		}
		items = append(items, item)
	}
	if skipped > 0 {
		logger.Debug("content rows skipped", logging.Int("skipped", skipped), logging.Int("decoded", len(items)))
	}
	return items
}

func (c *Client) doWithRetry(ctx context.Context, method, path string, payload any) ([]byte, error) {
	attempts := c.retryAttempts(ctx)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		body, err := c.do(ctx, method, path, payload)
		if err == nil {
			return body, nil
		}
		lastErr = err
		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			return nil, err
		}
		logging.WithContext(ctx, c.logger).Debug("retrying backend request",
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(err),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	op, _ := services.OperationFromContext(ctx)
	if c.cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "backend", op, "api key required", nil)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, services.Wrap(services.ErrTimeout, "backend", op, "rate limiter wait", err)
	}

	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "backend", op, "encode body", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "backend", op, "build request", err)
	}
	requestID, ok := services.RequestIDFromContext(ctx)
	if !ok {
		requestID = c.requestID()
	}
	req.Header.Set("apikey", c.cfg.APIKey)
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	if !ok {
		ctx = services.WithRequestID(ctx, requestID)
	}
	logger := logging.WithContext(ctx, c.logger)
	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(op, 0, time.Since(started))
		logger.Debug("backend request failed", logging.String("method", method), logging.Error(err))
		return nil, services.Wrap(services.ErrTransient, "backend", op,
			fmt.Sprintf("http error (timeout=%s)", c.httpClient.Timeout), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	c.metrics.ObserveRequest(op, resp.StatusCode, time.Since(started))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "backend", op, "read body", err)
	}
	logger.Debug("backend request completed",
		logging.String("method", method),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", time.Since(started)),
	)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		statusErr := newStatusError(resp, body)
		return nil, services.Wrap(markerFor(resp.StatusCode), "backend", op, "request rejected", statusErr)
	}
	return body, nil
}

// StatusCode returns the HTTP status code carried by err, or zero.
func StatusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

// Message returns the backend-supplied failure message carried by err, if any.
func Message(err error) string {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Error()
	}
	return ""
}
