package session

import (
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/vishwas-11/nodecall/internal/rtc"
)

// ChatMessage is a received chat line. ReceivedAt is stamped locally for
// display only; messages are ordered by arrival, not by timestamp.
type ChatMessage struct {
	Username   string
	Message    string
	ReceivedAt time.Time
}

// Notifier receives user-facing session events. The rendering layer
// implements it; the coordinator never draws anything itself. All methods
// are invoked from the coordinator's event loop.
type Notifier interface {
	// PeerJoined fires when the remote participant enters the room.
	PeerJoined(username, avatar string)

	// PeerLeft fires when the remote participant disconnects.
	PeerLeft()

	// RemoteCallTrack delivers remote call-leg media as it arrives.
	RemoteCallTrack(track *webrtc.TrackRemote)

	// RemoteShareTrack delivers remote screen-share media.
	RemoteShareTrack(track *webrtc.TrackRemote)

	// CallStateChanged reports call-leg lifecycle transitions.
	CallStateChanged(state rtc.State)

	// ShareStarted fires when a share begins; local marks our own.
	ShareStarted(sharerUsername string, local bool)

	// ShareStopped fires when the active share ends.
	ShareStopped(stoppedByUsername, reason string)

	// ChatReceived delivers a chat message in arrival order.
	ChatReceived(msg ChatMessage)

	// TypingChanged reports the remote typing indicator.
	TypingChanged(typing bool)

	// Notice surfaces a transient user-visible message (errors included).
	Notice(text string)
}

// NopNotifier discards every event.
type NopNotifier struct{}

var _ Notifier = NopNotifier{}

func (NopNotifier) PeerJoined(string, string)           {}
func (NopNotifier) PeerLeft()                           {}
func (NopNotifier) RemoteCallTrack(*webrtc.TrackRemote) {}
func (NopNotifier) RemoteShareTrack(*webrtc.TrackRemote) {
}
func (NopNotifier) CallStateChanged(rtc.State)  {}
func (NopNotifier) ShareStarted(string, bool)   {}
func (NopNotifier) ShareStopped(string, string) {}
func (NopNotifier) ChatReceived(ChatMessage)    {}
func (NopNotifier) TypingChanged(bool)          {}
func (NopNotifier) Notice(string)               {}
