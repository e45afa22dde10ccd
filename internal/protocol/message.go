package protocol

// Event names for all relay messages. The call leg and the screen-share
// leg use disjoint event pairs so their signaling is never cross-delivered.
const (
	// Room lifecycle
	EventJoinRoom      = "join-room"
	EventRoomJoined    = "room-joined"
	EventRoomFull      = "room-full"
	EventUserJoined    = "user-joined"
	EventUserLeft      = "user-left"
	EventCurrentSharer = "current-sharer"

	// Call leg signaling
	EventSendSignal     = "send-signal"
	EventReceiveSignal  = "receive-signal"
	EventReturnSignal   = "return-signal"
	EventReturnedSignal = "returned-signal"

	// Screen share arbitration and signaling
	EventStartScreenShare          = "start-screen-share"
	EventScreenShareStarted        = "screen-share-started"
	EventStopScreenShare           = "stop-screen-share"
	EventScreenShareStopped        = "screen-share-stopped"
	EventScreenShareError          = "screen-share-error"
	EventScreenShareSignal         = "screen-share-signal"
	EventScreenShareSignalResponse = "screen-share-signal-response"

	// Chat and typing
	EventSendMessage    = "send-message"
	EventReceiveMessage = "receive-message"
	EventTyping         = "typing"
	EventStopTyping     = "stop-typing"
)

// Signal blob types.
const (
	SignalOffer        = "offer"
	SignalAnswer       = "answer"
	SignalICECandidate = "ice-candidate"
)

// Reason attached to screen-share-stopped when the sharer's connection
// dropped instead of an explicit stop.
const ReasonDisconnected = "disconnected"
