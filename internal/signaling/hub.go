package signaling

import (
	"github.com/rs/zerolog/log"

	"github.com/vishwas-11/nodecall/internal/protocol"
)

// Hub is the central brain of the relay. It manages all active rooms and
// clients. All room state is owned by the single goroutine running Run,
// so events from one connection are processed in arrival order and no
// locking is needed.
type Hub struct {
	// Rooms maps room ids to Room instances.
	Rooms map[string]*Room

	// Register is a channel for registering new clients.
	Register chan *Client

	// Unregister is a channel for unregistering clients.
	Unregister chan *Client

	// Broadcast is a channel carrying inbound client messages for the
	// hub to process.
	Broadcast chan *Message

	quit    chan struct{}
	metrics *Metrics
}

// NewHub creates a new Hub instance. metrics may be nil.
func NewHub(metrics *Metrics) *Hub {
	return &Hub{
		Rooms:      make(map[string]*Room),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Broadcast:  make(chan *Message),
		quit:       make(chan struct{}),
		metrics:    metrics,
	}
}

// Stop terminates the Run loop and disconnects every client.
func (h *Hub) Stop() {
	close(h.quit)
}

// Run starts the hub's main processing loop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			log.Info().Msg("stopping hub, disconnecting all clients")
			for _, room := range h.Rooms {
				for _, c := range room.Members {
					close(c.Send)
				}
			}
			h.Rooms = make(map[string]*Room)
			return

		case client := <-h.Register:
			// The client is not in a room yet; it must send join-room
			// first.
			h.metrics.addConnections(1)
			client.Log.Debug().Msg("client registered")

		case client := <-h.Unregister:
			h.metrics.addConnections(-1)
			h.handleLeave(client)
			close(client.Send)

		case msg := <-h.Broadcast:
			h.metrics.countMessage(msg.Event)
			h.dispatch(msg)
		}
	}
}

func (h *Hub) dispatch(msg *Message) {
	c := msg.client

	switch msg.Event {
	case protocol.EventJoinRoom:
		h.handleJoin(msg)

	case protocol.EventSendSignal:
		h.handleSendSignal(msg)

	case protocol.EventReturnSignal:
		h.handleReturnSignal(msg)

	case protocol.EventStartScreenShare:
		h.handleStartShare(c)

	case protocol.EventStopScreenShare:
		h.handleStopShare(c, "")

	case protocol.EventScreenShareSignal:
		h.handleShareSignal(msg)

	case protocol.EventSendMessage:
		h.handleChat(msg)

	case protocol.EventTyping, protocol.EventStopTyping:
		h.fanOut(c, newMessage(msg.Event, nil))

	default:
		c.Log.Warn().Str("event", msg.Event).Msg("unknown event")
	}
}

// roomOf returns the sender's room. A nil result means the client has not
// joined yet (or the room is already gone) and the event is dropped.
func (h *Hub) roomOf(c *Client) *Room {
	if c.RoomID == "" {
		c.Log.Warn().Msg("event before join, dropping")
		return nil
	}
	room, ok := h.Rooms[c.RoomID]
	if !ok {
		c.Log.Warn().Str("room_id", c.RoomID).Msg("room gone, dropping")
		return nil
	}
	return room
}

// fanOut delivers msg to every room member except the sender.
func (h *Hub) fanOut(c *Client, msg *Message) {
	room := h.roomOf(c)
	if room == nil {
		return
	}
	for _, other := range room.others(c.ID) {
		other.enqueue(msg)
	}
}

func (h *Hub) handleJoin(msg *Message) {
	c := msg.client

	var join protocol.JoinRoom
	if err := msg.decode(&join); err != nil {
		c.Log.Warn().Err(err).Msg("bad join-room payload")
		return
	}
	if c.RoomID != "" {
		c.Log.Warn().Msg("already in a room, ignoring join")
		return
	}

	room, ok := h.Rooms[join.RoomID]
	if !ok {
		room = newRoom(join.RoomID)
		h.Rooms[join.RoomID] = room
		h.metrics.setRooms(len(h.Rooms))
		log.Info().Str("room_id", join.RoomID).Msg("room created")
	}

	if room.full() {
		c.Log.Info().Str("room_id", join.RoomID).Msg("join rejected, room full")
		h.metrics.countRoomFull()
		c.enqueue(newMessage(protocol.EventRoomFull, protocol.RoomFull{RoomID: join.RoomID}))
		return
	}

	c.RoomID = room.ID
	c.Username = join.Username
	c.Avatar = join.Avatar
	room.Members[c.ID] = c
	c.Log.Info().Str("room_id", room.ID).Str("username", c.Username).Msg("joined room")

	// Peers are told about the new participant before the participant's
	// own ack, so nobody acts on a confirmation its peer has not seen.
	for _, other := range room.others(c.ID) {
		other.enqueue(newMessage(protocol.EventUserJoined, protocol.UserJoined{
			UserID:   c.ID,
			Username: c.Username,
			Avatar:   c.Avatar,
		}))
	}

	c.enqueue(newMessage(protocol.EventRoomJoined, protocol.RoomJoined{UserID: c.ID}))

	// Late joiners need the sharer state to render correctly.
	if room.SharerID != "" {
		if sharer, ok := room.member(room.SharerID); ok {
			c.enqueue(newMessage(protocol.EventCurrentSharer, protocol.CurrentSharer{
				SharerID:       sharer.ID,
				SharerUsername: sharer.Username,
			}))
		}
	}
}

func (h *Hub) handleSendSignal(msg *Message) {
	c := msg.client
	room := h.roomOf(c)
	if room == nil {
		return
	}

	var sig protocol.SendSignal
	if err := msg.decode(&sig); err != nil {
		c.Log.Warn().Err(err).Msg("bad send-signal payload")
		return
	}

	target, ok := room.member(sig.UserToSignal)
	if !ok {
		// Not queued or retried: a renegotiation restarts from scratch
		// if the peer is gone.
		c.Log.Info().Str("target", sig.UserToSignal).Msg("signal target left, dropping")
		return
	}

	target.enqueue(newMessage(protocol.EventReceiveSignal, protocol.ReceiveSignal{
		Signal:         sig.Signal,
		CallerID:       c.ID,
		CallerUsername: c.Username,
		CallerAvatar:   c.Avatar,
	}))
}

func (h *Hub) handleReturnSignal(msg *Message) {
	c := msg.client
	room := h.roomOf(c)
	if room == nil {
		return
	}

	var sig protocol.ReturnSignal
	if err := msg.decode(&sig); err != nil {
		c.Log.Warn().Err(err).Msg("bad return-signal payload")
		return
	}

	target, ok := room.member(sig.CallerID)
	if !ok {
		c.Log.Info().Str("target", sig.CallerID).Msg("signal target left, dropping")
		return
	}

	target.enqueue(newMessage(protocol.EventReturnedSignal, protocol.ReturnedSignal{
		Signal: sig.Signal,
	}))
}

func (h *Hub) handleStartShare(c *Client) {
	room := h.roomOf(c)
	if room == nil {
		return
	}

	// First request wins, no preemption.
	if room.SharerID != "" {
		c.Log.Info().Str("sharer_id", room.SharerID).Msg("share rejected, slot taken")
		h.metrics.countShareConflict()
		c.enqueue(newMessage(protocol.EventScreenShareError, protocol.ScreenShareError{
			Error: "another participant is already sharing",
		}))
		return
	}

	room.SharerID = c.ID
	c.Log.Info().Str("room_id", room.ID).Msg("screen share started")

	started := newMessage(protocol.EventScreenShareStarted, protocol.ScreenShareStarted{
		SharerID:       c.ID,
		SharerUsername: c.Username,
	})
	// Requester last: its confirmation never precedes the peers'
	// notification.
	for _, other := range room.others(c.ID) {
		other.enqueue(started)
	}
	c.enqueue(started)
}

// handleStopShare clears the sharer slot, self-service only. A stop from
// a non-sharer emits nothing.
func (h *Hub) handleStopShare(c *Client, reason string) {
	room := h.roomOf(c)
	if room == nil {
		return
	}
	if room.SharerID != c.ID {
		c.Log.Debug().Msg("stop-screen-share from non-sharer, ignoring")
		return
	}

	room.SharerID = ""
	c.Log.Info().Str("room_id", room.ID).Str("reason", reason).Msg("screen share stopped")

	stopped := newMessage(protocol.EventScreenShareStopped, protocol.ScreenShareStopped{
		StoppedBy:         c.ID,
		StoppedByUsername: c.Username,
		Reason:            reason,
	})
	for _, member := range room.Members {
		member.enqueue(stopped)
	}
}

func (h *Hub) handleShareSignal(msg *Message) {
	c := msg.client
	room := h.roomOf(c)
	if room == nil {
		return
	}

	var sig protocol.ScreenShareSignal
	if err := msg.decode(&sig); err != nil {
		c.Log.Warn().Err(err).Msg("bad screen-share-signal payload")
		return
	}

	target, ok := room.member(sig.To)
	if !ok {
		c.Log.Info().Str("target", sig.To).Msg("share signal target left, dropping")
		return
	}

	// From is stamped by the relay, not trusted from the sender.
	sig.From = c.ID
	target.enqueue(newMessage(protocol.EventScreenShareSignalResponse, sig))
}

func (h *Hub) handleChat(msg *Message) {
	c := msg.client

	var chat protocol.SendMessage
	if err := msg.decode(&chat); err != nil {
		c.Log.Warn().Err(err).Msg("bad send-message payload")
		return
	}

	// Pure fan-out, nothing retained.
	h.fanOut(c, newMessage(protocol.EventReceiveMessage, protocol.ReceiveMessage{
		Username: c.Username,
		Message:  chat.Message,
	}))
}

// handleLeave removes a disconnected client from its room, releasing the
// share slot and notifying the remaining occupant.
func (h *Hub) handleLeave(c *Client) {
	c.Log.Debug().Msg("client unregistered")

	if c.RoomID == "" {
		return
	}
	room, ok := h.Rooms[c.RoomID]
	if !ok {
		return
	}
	if _, ok := room.member(c.ID); !ok {
		return
	}

	// Sharer disconnect counts as a stop; the broadcast happens at most
	// once because a processed manual stop already cleared the slot.
	h.handleStopShare(c, protocol.ReasonDisconnected)

	delete(room.Members, c.ID)
	c.RoomID = ""

	if room.empty() {
		delete(h.Rooms, room.ID)
		h.metrics.setRooms(len(h.Rooms))
		log.Info().Str("room_id", room.ID).Msg("room deleted")
		return
	}

	left := newMessage(protocol.EventUserLeft, protocol.UserLeft{UserID: c.ID})
	for _, member := range room.Members {
		member.enqueue(left)
	}
}
