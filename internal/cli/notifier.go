package cli

import (
	"fmt"

	"github.com/pion/webrtc/v4"

	"github.com/vishwas-11/nodecall/internal/rtc"
	"github.com/vishwas-11/nodecall/internal/session"
)

// consoleNotifier renders session events as terminal lines. It is the
// CLI's stand-in for the web UI's video grid and toast layer.
type consoleNotifier struct{}

var _ session.Notifier = consoleNotifier{}

func (consoleNotifier) PeerJoined(username, avatar string) {
	fmt.Printf("%s %s joined\n", avatar, username)
}

func (consoleNotifier) PeerLeft() {
	fmt.Println("peer disconnected, waiting for user...")
}

func (consoleNotifier) RemoteCallTrack(track *webrtc.TrackRemote) {
	fmt.Printf("receiving %s\n", track.Kind())
}

func (consoleNotifier) RemoteShareTrack(track *webrtc.TrackRemote) {
	fmt.Println("receiving shared screen")
}

func (consoleNotifier) CallStateChanged(state rtc.State) {
	fmt.Printf("call: %s\n", state)
}

func (consoleNotifier) ShareStarted(sharerUsername string, local bool) {
	if local {
		fmt.Println("you are sharing your screen")
		return
	}
	fmt.Printf("%s started sharing their screen\n", sharerUsername)
}

func (consoleNotifier) ShareStopped(stoppedByUsername, reason string) {
	if reason != "" {
		fmt.Printf("screen share stopped (%s)\n", reason)
		return
	}
	fmt.Println("screen share stopped")
}

func (consoleNotifier) ChatReceived(msg session.ChatMessage) {
	fmt.Printf("[%s] %s: %s\n", msg.ReceivedAt.Format("15:04"), msg.Username, msg.Message)
}

func (consoleNotifier) TypingChanged(typing bool) {
	if typing {
		fmt.Println("peer is typing...")
	}
}

func (consoleNotifier) Notice(text string) {
	fmt.Println(text)
}
