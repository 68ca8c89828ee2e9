package digest

import (
	"errors"
	"fmt"
)

// Error kinds. Components wrap these with context; callers match them with errors.Is.
var (
	ErrUnauthorized              = errors.New("unauthorized")
	ErrFeedUnavailable           = errors.New("feed unavailable")
	ErrSummaryBackendUnavailable = errors.New("summary backend unavailable")
	ErrPublishConfigMissing      = errors.New("publish config missing")
	ErrPublishWriteFailed        = errors.New("publish write failed")
	ErrAudioBackendFailure       = errors.New("audio backend failure")
	ErrAudioResponseMalformed    = errors.New("audio response malformed")
)

// Error carries a user-facing message and the kind it belongs to. Error returns only the
// message so it can be surfaced verbatim.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

// Errorf builds an *Error of the given kind.
func Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
