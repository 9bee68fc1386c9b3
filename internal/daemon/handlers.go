package daemon

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"soulcast/internal/api"
	"soulcast/internal/generation"
	"soulcast/internal/logging"
)

// maxRequestBody caps JSON request bodies.
const maxRequestBody = 64 << 10

type handlers struct {
	daemon *Daemon
	logger *slog.Logger
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.daemon.Status(r.Context()))
}

func (h *handlers) listContent(w http.ResponseWriter, _ *http.Request) {
	items := h.daemon.app.Orchestrator.Items()
	writeJSON(w, http.StatusOK, api.ContentListResponse{Items: api.FromItems(items)})
}

func (h *handlers) refreshContent(w http.ResponseWriter, r *http.Request) {
	items, err := h.daemon.app.Orchestrator.Refresh(r.Context())
	h.daemon.setLastError(err)
	if err != nil {
		h.writeGenerationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.ContentListResponse{Items: api.FromItems(items)})
}

func (h *handlers) getContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	// Read tracking first: an id leaves the set only after its final status is applied.
	tracked := h.daemon.app.Registry.Tracked(id)
	item, ok := h.daemon.app.Orchestrator.Item(id)
	if !ok {
		writeError(w, http.StatusNotFound, "content item not found", "")
		return
	}
	writeJSON(w, http.StatusOK, api.ItemResponse{Item: api.FromItem(item), Tracked: tracked})
}

func (h *handlers) generate(w http.ResponseWriter, r *http.Request) {
	var req api.GenerateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	item, err := h.daemon.app.Orchestrator.RequestGeneration(r.Context(), generation.Request{
		Topic:           req.Topic,
		DurationMinutes: req.DurationMinutes,
		Voices:          req.Voices,
	})
	if err != nil {
		h.writeGenerationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, api.ItemResponse{Item: api.FromItem(item)})
}

func (h *handlers) bibleStudy(w http.ResponseWriter, r *http.Request) {
	var req api.BibleStudyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	item, err := h.daemon.app.Orchestrator.RequestBibleStudy(r.Context(), req.Book, req.Chapter)
	if err != nil {
		status, kind := generationErrorStatus(err)
		resp := struct {
			api.ErrorResponse
			Item *api.ContentItem `json:"item,omitempty"`
		}{ErrorResponse: api.ErrorResponse{Error: err.Error(), Kind: kind}}
		if item.ID != "" {
			dto := api.FromItem(item)
			resp.Item = &dto
		}
		writeJSON(w, status, resp)
		return
	}
	writeJSON(w, http.StatusCreated, api.ItemResponse{Item: api.FromItem(item)})
}

func (h *handlers) quota(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.FromQuotaState(h.daemon.app.Ledger.Snapshot(r.Context())))
}

func (h *handlers) resetQuota(w http.ResponseWriter, r *http.Request) {
	state := h.daemon.app.Ledger.Reset(r.Context())
	h.logger.Info("quota reset via api", logging.String(logging.FieldEventType, "quota_reset"))
	writeJSON(w, http.StatusOK, api.FromQuotaState(state))
}

func (h *handlers) tracking(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, api.TrackingStatus{
		Running:  h.daemon.app.Registry.Running(),
		InFlight: h.daemon.app.Registry.InFlight(),
	})
}

func (h *handlers) play(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	item, ok := h.daemon.app.Orchestrator.Item(id)
	if !ok {
		writeError(w, http.StatusNotFound, "content item not found", "")
		return
	}
	state, err := h.daemon.app.Playback.Play(r.Context(), item)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(r.Context(), h.logger), "playback failed", "playback_failed",
			logging.String(logging.FieldItemID, id),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check playback.player_command"),
		)
		writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	writeJSON(w, http.StatusOK, api.FromPlaybackState(state))
}

func (h *handlers) stopPlayback(w http.ResponseWriter, _ *http.Request) {
	if err := h.daemon.app.Playback.Stop(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	writeJSON(w, http.StatusOK, api.FromPlaybackState(h.daemon.app.Playback.State()))
}

func (h *handlers) writeGenerationError(w http.ResponseWriter, err error) {
	status, kind := generationErrorStatus(err)
	writeError(w, status, err.Error(), kind)
}

// generationErrorStatus maps orchestrator failures to HTTP status codes.
func generationErrorStatus(err error) (int, string) {
	kind := generation.KindOf(err)
	switch kind {
	case generation.KindEmptyTopic, generation.KindInsufficientVoices:
		return http.StatusUnprocessableEntity, kind.String()
	case generation.KindExceedsCharacterLimit:
		return http.StatusPaymentRequired, kind.String()
	case generation.KindServerError:
		return http.StatusBadGateway, kind.String()
	default:
		return http.StatusInternalServerError, ""
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		writeError(w, http.StatusUnsupportedMediaType, "expected application/json", "")
		return false
	}
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large", "")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "")
		return false
	}
	return true
}
