package server

import "errors"

var (
	ErrInvalidFrame     = errors.New("invalid frame")
	ErrMissingField     = errors.New("missing required field")
	ErrUnknownEventType = errors.New("unknown event type")
	ErrHubStopped       = errors.New("hub stopped")
)

// invalidReason is the metrics label for a rejected frame.
func invalidReason(err error) string {
	switch {
	case errors.Is(err, ErrMissingField):
		return "missing_field"
	case errors.Is(err, ErrUnknownEventType):
		return "unknown_type"
	default:
		return "malformed"
	}
}
