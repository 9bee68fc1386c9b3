package api

import (
	"time"

	"soulcast/internal/content"
	"soulcast/internal/playback"
	"soulcast/internal/quota"
)

// FromItem converts a content item to its API representation.
func FromItem(item content.Item) ContentItem {
	dto := ContentItem{
		ID:              item.ID,
		Title:           item.Title,
		Description:     item.Description,
		Topic:           item.Topic,
		Chapter:         item.ChapterReference,
		Kind:            string(item.Kind),
		Status:          string(item.Status),
		AudioURL:        item.AudioURL,
		DurationMinutes: item.DurationMinutes,
		CharacterCount:  item.CharacterCount,
		Voices:          item.Voices,
	}
	if !item.CreatedAt.IsZero() {
		dto.CreatedAt = item.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if item.UpdatedAt != nil && !item.UpdatedAt.IsZero() {
		dto.UpdatedAt = item.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromItems converts a list, preserving order. An empty list stays non-nil so
// it encodes as [].
func FromItems(items []content.Item) []ContentItem {
	out := make([]ContentItem, 0, len(items))
	for _, item := range items {
		out = append(out, FromItem(item))
	}
	return out
}

// ToItem converts an API item back to the domain type. Unparseable timestamps
// are left zero.
func ToItem(dto ContentItem) content.Item {
	item := content.Item{
		ID:               dto.ID,
		Title:            dto.Title,
		Description:      dto.Description,
		Topic:            dto.Topic,
		ChapterReference: dto.Chapter,
		Kind:             content.Kind(dto.Kind),
		Status:           content.ParseStatus(dto.Status),
		AudioURL:         dto.AudioURL,
		DurationMinutes:  dto.DurationMinutes,
		CharacterCount:   dto.CharacterCount,
		Voices:           dto.Voices,
	}
	if ts, err := time.Parse(dateTimeFormat, dto.CreatedAt); err == nil {
		item.CreatedAt = ts
	}
	if ts, err := time.Parse(dateTimeFormat, dto.UpdatedAt); err == nil {
		item.UpdatedAt = &ts
	}
	return item
}

// ToItems converts a list of API items back to domain items.
func ToItems(dtos []ContentItem) []content.Item {
	out := make([]content.Item, 0, len(dtos))
	for _, dto := range dtos {
		out = append(out, ToItem(dto))
	}
	return out
}

// FromQuotaState converts a ledger snapshot.
func FromQuotaState(state quota.State) QuotaStatus {
	return QuotaStatus{
		Used:             state.TotalUsed,
		Limit:            state.Limit,
		Remaining:        state.Remaining(),
		RemainingMinutes: state.RemainingMinutes(),
		PeriodStart:      state.PeriodStart.UTC().Format(dateTimeFormat),
		PeriodEnd:        state.PeriodEnd().UTC().Format(dateTimeFormat),
	}
}

// FromPlaybackState converts the playback slot.
func FromPlaybackState(state playback.State) PlaybackStatus {
	return PlaybackStatus{CurrentID: state.CurrentID, Paused: state.Paused}
}

// FormatTime renders t in the API timestamp format.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
