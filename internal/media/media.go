// Package media models the capture side of a call as an opaque
// capability: something that can produce a live set of local tracks for
// the camera/microphone or for a captured display. Real capture hardware
// lives behind the Capturer interface; the call machinery never touches
// devices directly.
package media

import (
	"context"
	"errors"

	"github.com/pion/webrtc/v4"
)

// ErrCaptureDenied is returned when the capture device is unavailable or
// permission was refused. Callers degrade instead of failing the session.
var ErrCaptureDenied = errors.New("media capture denied")

// Stream is a live set of local tracks. Closing it stops the underlying
// capture; Close is idempotent and must never be skipped, so no hardware
// capture outlives its room.
type Stream interface {
	// Tracks returns the local tracks to attach to a peer connection.
	Tracks() []webrtc.TrackLocal

	// SetAudioEnabled and SetVideoEnabled toggle the respective tracks
	// without renegotiation, mirroring a mic mute / camera-off button.
	SetAudioEnabled(bool)
	SetVideoEnabled(bool)
	AudioEnabled() bool
	VideoEnabled() bool

	// Done is closed when the capture ends, whether through Close or
	// because the device stopped on its own (a browser's "stop sharing"
	// bar, an unplugged camera).
	Done() <-chan struct{}

	Close()
}

// Capturer acquires local media. CaptureMedia is the camera+microphone
// pair for the call leg; CaptureDisplay is the screen capture for the
// share leg.
type Capturer interface {
	CaptureMedia(ctx context.Context) (Stream, error)
	CaptureDisplay(ctx context.Context) (Stream, error)
}
