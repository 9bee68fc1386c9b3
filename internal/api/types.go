package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// ContentItem describes a generated episode in a transport-friendly format.
type ContentItem struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Topic           string   `json:"topic,omitempty"`
	Chapter         string   `json:"chapter,omitempty"`
	Kind            string   `json:"kind,omitempty"`
	Status          string   `json:"status"`
	AudioURL        string   `json:"audioUrl,omitempty"`
	DurationMinutes int      `json:"durationMinutes"`
	CharacterCount  int      `json:"characterCount"`
	Voices          []string `json:"voices,omitempty"`
	CreatedAt       string   `json:"createdAt"`
	UpdatedAt       string   `json:"updatedAt,omitempty"`
}

// ContentListResponse wraps the visible content list, newest first.
type ContentListResponse struct {
	Items []ContentItem `json:"items"`
}

// ItemResponse wraps a single content item.
type ItemResponse struct {
	Item ContentItem `json:"item"`
	// Tracked is set on item lookups while the daemon still polls for the job.
	Tracked bool `json:"tracked,omitempty"`
}

// GenerateRequest asks the daemon to generate a podcast episode.
type GenerateRequest struct {
	Topic           string   `json:"topic"`
	DurationMinutes int      `json:"durationMinutes"`
	Voices          []string `json:"voices"`
}

// BibleStudyRequest asks the daemon to generate a study for one chapter.
type BibleStudyRequest struct {
	Book    string `json:"book"`
	Chapter int    `json:"chapter"`
}

// QuotaStatus reports the monthly character budget.
type QuotaStatus struct {
	Used             int    `json:"used"`
	Limit            int    `json:"limit"`
	Remaining        int    `json:"remaining"`
	RemainingMinutes int    `json:"remainingMinutes"`
	PeriodStart      string `json:"periodStart"`
	PeriodEnd        string `json:"periodEnd"`
}

// TrackingStatus reports the job tracking registry.
type TrackingStatus struct {
	Running  bool     `json:"running"`
	InFlight []string `json:"inFlight"`
}

// PlaybackStatus reports the playback slot.
type PlaybackStatus struct {
	CurrentID string `json:"currentId,omitempty"`
	Paused    bool   `json:"paused"`
}

// DaemonStatus aggregates runtime information.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	StartedAt    string         `json:"startedAt,omitempty"`
	StateDBPath  string         `json:"stateDbPath"`
	LockFilePath string         `json:"lockFilePath"`
	BackendURL   string         `json:"backendUrl"`
	Items        int            `json:"items"`
	LastError    string         `json:"lastError,omitempty"`
	Quota        QuotaStatus    `json:"quota"`
	Tracking     TrackingStatus `json:"tracking"`
	Playback     PlaybackStatus `json:"playback"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
