package domain

import "errors"

// Sentinel errors for the realtime channel. Every failure returned by the
// resolver, relay and broadcaster wraps exactly one of these.
var (
	ErrNotInGym            = errors.New("user is not affiliated with a gym")
	ErrInvalidParticipants = errors.New("invalid message participants")
	ErrEmptyMessage        = errors.New("message body is empty")
	ErrForbidden           = errors.New("operation not permitted")
	ErrNotFound            = errors.New("requested resource not found")
)

// ErrorKind is the stable, client-facing name of a failure.
type ErrorKind string

const (
	KindNotInGym            ErrorKind = "NotInGym"
	KindInvalidParticipants ErrorKind = "InvalidParticipants"
	KindEmptyMessage        ErrorKind = "EmptyMessage"
	KindForbidden           ErrorKind = "Forbidden"
	KindNotFound            ErrorKind = "NotFound"
	KindBadRequest          ErrorKind = "BadRequest"
	KindInternal            ErrorKind = "Internal"
)

// ErrBadRequest marks malformed input that never reached domain validation.
var ErrBadRequest = errors.New("malformed request")

var kinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrNotInGym, KindNotInGym},
	{ErrInvalidParticipants, KindInvalidParticipants},
	{ErrEmptyMessage, KindEmptyMessage},
	{ErrForbidden, KindForbidden},
	{ErrNotFound, KindNotFound},
	{ErrBadRequest, KindBadRequest},
}

// KindOf maps err to its ErrorKind. Unknown errors are Internal; nil has no kind.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
