// Package server defines the JSON events exchanged over a connection and the
// helpers that decode and validate inbound frames.
package server

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Event types carried in the "type" field of every frame.
const (
	EventRegister    = "register"
	EventSend        = "send"
	EventPresence    = "presence"
	EventReceive     = "receive"
	EventUndelivered = "undelivered"
	EventError       = "error"
)

// eventAliases maps the event names used by older clients onto the current ones.
var eventAliases = map[string]string{
	"addUser":     EventRegister,
	"sendMessage": EventSend,
}

var validate = validator.New()

// Envelope is the minimal frame shape used to dispatch on the event type.
type Envelope struct {
	Type string `json:"type"`
}

// RegisterEvent binds the sending connection to a user identity.
type RegisterEvent struct {
	UserID string `json:"userId" validate:"required"`
}

// MessageEvent is a point-to-point message routed by the Relay. It is never stored.
type MessageEvent struct {
	SenderID   string `json:"senderId" validate:"required"`
	ReceiverID string `json:"receiverId" validate:"required"`
	Text       string `json:"text"`
}

// PresenceMessage is pushed to every open connection after a registry change.
type PresenceMessage struct {
	Type  string            `json:"type"`
	Users []ConnectionEntry `json:"users"`
}

// ReceiveMessage is pushed to the receiver of a routed MessageEvent.
type ReceiveMessage struct {
	Type     string `json:"type"`
	SenderID string `json:"senderId"`
	Text     string `json:"text"`
}

// UndeliveredMessage tells a sender its message had no live recipient.
type UndeliveredMessage struct {
	Type       string `json:"type"`
	ReceiverID string `json:"receiverId"`
}

// ErrorMessage reports a rejected frame back to the connection that sent it.
type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// inboundEvent is a decoded client frame queued for the hub loop.
type inboundEvent struct {
	client   *Client
	kind     string
	register RegisterEvent
	message  MessageEvent
	err      error
}

// eventInvalid marks a frame that failed decoding; it never appears on the wire.
const eventInvalid = "invalid"

// decodeEvent parses and validates a raw client frame.
func decodeEvent(raw []byte) (inboundEvent, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return inboundEvent{}, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}

	kind := env.Type
	if alias, ok := eventAliases[kind]; ok {
		kind = alias
	}

	evt := inboundEvent{kind: kind}
	var payload any
	switch kind {
	case EventRegister:
		payload = &evt.register
	case EventSend:
		payload = &evt.message
	case "":
		return inboundEvent{}, fmt.Errorf("%w: type", ErrMissingField)
	default:
		return inboundEvent{}, fmt.Errorf("%w: %q", ErrUnknownEventType, env.Type)
	}

	if err := json.Unmarshal(raw, payload); err != nil {
		return inboundEvent{}, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	if err := validate.Struct(payload); err != nil {
		return inboundEvent{}, fmt.Errorf("%w: %s", ErrMissingField, missingFields(err))
	}
	return evt, nil
}

func missingFields(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		names = append(names, fe.Field())
	}
	return strings.Join(names, ", ")
}

func encodePresence(entries []ConnectionEntry) ([]byte, error) {
	return json.Marshal(PresenceMessage{Type: EventPresence, Users: entries})
}

func encodeReceive(evt MessageEvent) ([]byte, error) {
	return json.Marshal(ReceiveMessage{Type: EventReceive, SenderID: evt.SenderID, Text: evt.Text})
}

func encodeUndelivered(receiverID string) ([]byte, error) {
	return json.Marshal(UndeliveredMessage{Type: EventUndelivered, ReceiverID: receiverID})
}

func encodeError(err error) ([]byte, error) {
	return json.Marshal(ErrorMessage{Type: EventError, Error: err.Error()})
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
