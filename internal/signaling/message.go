package signaling

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Message defines the structure for all C2S (Client to Server)
// and S2C (Server to Client) websocket messages. Payloads are opaque to
// the hub except for the handful of events it routes on.
type Message struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`

	// client is the client that sent the message.
	// It's used internally by the Hub and not sent over JSON.
	client *Client `json:"-"`
}

// newMessage builds an outbound message with a marshaled payload.
// payload may be nil for events that carry none.
func newMessage(event string, payload any) *Message {
	msg := &Message{Event: event}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			log.Error().Err(err).Str("event", event).Msg("marshal payload")
			return msg
		}
		msg.Payload = raw
	}
	return msg
}

// decode unmarshals the message payload into v.
func (m *Message) decode(v any) error {
	if m.Payload == nil {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}
