package generation_test

import (
	"errors"
	"fmt"
	"testing"

	"soulcast/internal/generation"
)

func TestKindRoundTripsThroughString(t *testing.T) {
	for _, kind := range []generation.Kind{
		generation.KindEmptyTopic,
		generation.KindInsufficientVoices,
		generation.KindExceedsCharacterLimit,
		generation.KindServerError,
	} {
		if got := generation.ParseKind(kind.String()); got != kind {
			t.Fatalf("ParseKind(%q) = %v, want %v", kind.String(), got, kind)
		}
	}
	if got := generation.ParseKind("bogus"); got != 0 {
		t.Fatalf("expected zero kind for unknown name, got %v", got)
	}
}

func TestErrorMatchesByKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &generation.Error{Kind: generation.KindServerError, Message: "boom"})
	if !errors.Is(err, generation.ErrServerError) {
		t.Fatal("expected wrapped server error to match sentinel")
	}
	if errors.Is(err, generation.ErrEmptyTopic) {
		t.Fatal("kinds must not cross-match")
	}
	if generation.KindOf(err) != generation.KindServerError {
		t.Fatalf("unexpected kind %v", generation.KindOf(err))
	}
	if generation.KindOf(errors.New("plain")) != 0 {
		t.Fatal("expected zero kind for foreign error")
	}
}
