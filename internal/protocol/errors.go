package protocol

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Sentinel decode failures, checkable with errors.Is.
var (
	// ErrMalformed is returned when a frame is not a JSON object of the expected shape.
	ErrMalformed = errors.New("malformed frame")

	// ErrUnknownEvent is returned when the event tag is outside the known set.
	ErrUnknownEvent = errors.New("unknown event tag")

	// ErrInvalidPayload is returned when a known event carries invalid fields.
	ErrInvalidPayload = errors.New("invalid event payload")
)

const previewLimit = 64

// DecodeError describes a frame that could not be turned into an Event.
type DecodeError struct {
	// Tag is the event tag if it could be read.
	Tag EventTag

	// Preview is a truncated copy of the raw frame for logging.
	Preview string

	err error
}

func newDecodeError(err error, tag EventTag, raw []byte) *DecodeError {
	return &DecodeError{Tag: tag, Preview: truncate(raw, previewLimit), err: err}
}

// truncate cuts raw to at most limit bytes without splitting a rune.
func truncate(raw []byte, limit int) string {
	if len(raw) <= limit {
		return string(raw)
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(raw[cut]) {
		cut--
	}
	return string(raw[:cut]) + "..."
}

// Error returns the error message.
func (e *DecodeError) Error() string {
	if e.Tag != "" {
		return fmt.Sprintf("decode %q frame: %v", e.Tag, e.err)
	}
	return fmt.Sprintf("decode frame: %v", e.err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.err
}

// Is reports whether the target is one of the decode sentinels this error wraps.
func (e *DecodeError) Is(target error) bool {
	switch target {
	case ErrMalformed, ErrUnknownEvent, ErrInvalidPayload:
		return errors.Is(e.err, target)
	}
	return false
}
