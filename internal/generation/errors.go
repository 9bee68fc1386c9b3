package generation

import (
	"errors"
	"fmt"
)

// Kind classifies orchestrator failures.
type Kind int

const (
	KindEmptyTopic Kind = iota + 1
	KindInsufficientVoices
	KindExceedsCharacterLimit
	KindServerError
)

func (k Kind) String() string {
	switch k {
	case KindEmptyTopic:
		return "empty_topic"
	case KindInsufficientVoices:
		return "insufficient_voices"
	case KindExceedsCharacterLimit:
		return "exceeds_character_limit"
	case KindServerError:
		return "server_error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps the String form of a Kind back to its value. Unknown names
// return zero.
func ParseKind(name string) Kind {
	for _, k := range []Kind{KindEmptyTopic, KindInsufficientVoices, KindExceedsCharacterLimit, KindServerError} {
		if k.String() == name {
			return k
		}
	}
	return 0
}

// Error is returned by every orchestrator operation that fails.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

var (
	ErrEmptyTopic            = &Error{Kind: KindEmptyTopic, Message: "please enter a topic"}
	ErrInsufficientVoices    = &Error{Kind: KindInsufficientVoices, Message: "select at least two voices"}
	ErrExceedsCharacterLimit = &Error{Kind: KindExceedsCharacterLimit, Message: "request exceeds the remaining monthly character allowance"}
	ErrServerError           = &Error{Kind: KindServerError, Message: "the content service could not complete the request"}
)

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same Kind, so errors.Is(err, ErrServerError) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func serverError(err error) *Error {
	return &Error{Kind: KindServerError, Message: ErrServerError.Message, Err: err}
}

// KindOf returns the Kind carried by err, or zero when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
