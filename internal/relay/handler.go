package relay

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/vishwas-11/nodecall/internal/protocol"
)

// Event is one decoded relay message: a pointer to the protocol payload
// struct for its event, or TypingEvent. Events preserve the relay's
// delivery order, which the session coordinator depends on.
type Event any

// TypingEvent is the decoded form of the typing / stop-typing pair.
type TypingEvent struct {
	Typing bool
}

// Handler decodes incoming relay messages into a single ordered event
// stream. Done is closed when the connection is gone and no further
// events will arrive.
type Handler struct {
	client *Client

	Events chan Event
	Done   chan struct{}
}

// NewHandler creates a handler bound to a connected client.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client: client,
		Events: make(chan Event, 64),
		Done:   make(chan struct{}),
	}
}

// Start listens to incoming messages and routes them until the connection
// closes. Run it in its own goroutine.
func (h *Handler) Start() {
	defer close(h.Done)

	for msg := range h.client.Incoming() {
		ev, ok := decodeEvent(msg)
		if !ok {
			continue
		}

		select {
		case h.Events <- ev:
		case <-h.client.done:
			return
		}
	}
}

func decodeEvent(msg *Message) (Event, bool) {
	switch msg.Event {
	case protocol.EventRoomJoined:
		return decode[protocol.RoomJoined](msg)
	case protocol.EventRoomFull:
		return decode[protocol.RoomFull](msg)
	case protocol.EventUserJoined:
		return decode[protocol.UserJoined](msg)
	case protocol.EventUserLeft:
		return decode[protocol.UserLeft](msg)
	case protocol.EventCurrentSharer:
		return decode[protocol.CurrentSharer](msg)
	case protocol.EventReceiveSignal:
		return decode[protocol.ReceiveSignal](msg)
	case protocol.EventReturnedSignal:
		return decode[protocol.ReturnedSignal](msg)
	case protocol.EventScreenShareStarted:
		return decode[protocol.ScreenShareStarted](msg)
	case protocol.EventScreenShareStopped:
		return decode[protocol.ScreenShareStopped](msg)
	case protocol.EventScreenShareError:
		return decode[protocol.ScreenShareError](msg)
	case protocol.EventScreenShareSignalResponse:
		return decode[protocol.ScreenShareSignal](msg)
	case protocol.EventReceiveMessage:
		return decode[protocol.ReceiveMessage](msg)
	case protocol.EventTyping:
		return TypingEvent{Typing: true}, true
	case protocol.EventStopTyping:
		return TypingEvent{Typing: false}, true
	default:
		log.Debug().Str("event", msg.Event).Msg("unhandled relay event")
		return nil, false
	}
}

func decode[T any](msg *Message) (Event, bool) {
	v := new(T)
	if msg.Payload != nil {
		if err := json.Unmarshal(msg.Payload, v); err != nil {
			log.Warn().Err(err).Str("event", msg.Event).Msg("bad payload")
			return nil, false
		}
	}
	return v, true
}
