package protocol

// ICECandidate mirrors the JSON shape of a trickled ICE candidate. The
// relay never inspects it; both legs carry it inside SignalData.
type ICECandidate struct {
	Candidate        string  `json:"candidate"`
	SDPMid           *string `json:"sdpMid,omitempty"`
	SDPMLineIndex    *uint16 `json:"sdpMLineIndex,omitempty"`
	UsernameFragment *string `json:"usernameFragment,omitempty"`
}

// SignalData is the single signaling blob shape used on both the call leg
// and the screen-share leg. Exactly one of SDP or Candidate is set,
// depending on Type.
type SignalData struct {
	Type      string        `json:"type"` // offer | answer | ice-candidate
	SDP       string        `json:"sdp,omitempty"`
	Candidate *ICECandidate `json:"candidate,omitempty"`
}

// JoinRoom is sent by a client to enter a room.
type JoinRoom struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// RoomJoined acknowledges a join and carries the relay-assigned
// connection id.
type RoomJoined struct {
	UserID string `json:"userId"`
}

// UserJoined notifies the existing occupant that a peer arrived.
type UserJoined struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// UserLeft notifies the remaining occupant that its peer disconnected.
type UserLeft struct {
	UserID string `json:"userId"`
}

// CurrentSharer informs a late joiner about an already active sharer.
type CurrentSharer struct {
	SharerID       string `json:"sharerId"`
	SharerUsername string `json:"sharerUsername"`
}

// SendSignal carries a call-leg offer or candidate from the offering side.
type SendSignal struct {
	UserToSignal string     `json:"userToSignal"`
	Signal       SignalData `json:"signal"`
	Username     string     `json:"username"`
	Avatar       string     `json:"avatar"`
}

// ReceiveSignal is the relayed form of SendSignal.
type ReceiveSignal struct {
	Signal         SignalData `json:"signal"`
	CallerID       string     `json:"callerId"`
	CallerUsername string     `json:"callerUsername"`
	CallerAvatar   string     `json:"callerAvatar"`
}

// ReturnSignal carries the answering side's reply back to the caller.
type ReturnSignal struct {
	Signal   SignalData `json:"signal"`
	CallerID string     `json:"callerId"`
}

// ReturnedSignal is the relayed form of ReturnSignal.
type ReturnedSignal struct {
	Signal SignalData `json:"signal"`
}

// ScreenShareStarted is broadcast to the whole room, requester included,
// when a start-screen-share request wins the sharer slot.
type ScreenShareStarted struct {
	SharerID       string `json:"sharerId"`
	SharerUsername string `json:"sharerUsername"`
}

// ScreenShareStopped is broadcast when the sharer stops or disconnects.
type ScreenShareStopped struct {
	StoppedBy         string `json:"stoppedBy"`
	StoppedByUsername string `json:"stoppedByUsername"`
	Reason            string `json:"reason,omitempty"`
}

// ScreenShareError is sent to a requester that lost the sharer race.
type ScreenShareError struct {
	Error string `json:"error"`
}

// ScreenShareSignal is the screen-share leg's signaling envelope, routed
// to a single recipient. Relayed back out as
// screen-share-signal-response with the same payload.
type ScreenShareSignal struct {
	To     string     `json:"to"`
	From   string     `json:"from"`
	Signal SignalData `json:"signal"`
}

// SendMessage is a chat message on its way to the relay.
type SendMessage struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

// ReceiveMessage is the fan-out form of SendMessage.
type ReceiveMessage struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

// RoomFull tells a third joiner the room already has two participants.
type RoomFull struct {
	RoomID string `json:"roomId"`
}
