// Package rtc is the media-plane half of a call: it turns local tracks
// and relayed signaling blobs into established peer connections. One
// Session per leg; the call leg and the screen-share leg are always
// separate sessions.
package rtc

import (
	"github.com/pion/webrtc/v4"

	"github.com/vishwas-11/nodecall/internal/config"
	"github.com/vishwas-11/nodecall/internal/media"
	"github.com/vishwas-11/nodecall/internal/protocol"
)

// State is the lifecycle of a single leg.
type State int32

const (
	StateIdle State = iota
	StateNegotiating
	StateConnected
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateNegotiating:
		return "negotiating"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is one negotiated peer-connection leg.
type Session interface {
	// State reports the current lifecycle state.
	State() State

	// Signal feeds an inbound signaling blob (offer, answer, or ICE
	// candidate) into the leg. Returns ErrStaleSignal when the leg is
	// already closed; callers log and drop.
	Signal(protocol.SignalData) error

	// Close tears the leg down. Idempotent: closing a closed session is
	// a no-op, never an error.
	Close() error
}

// LegConfig describes one leg to the factory.
type LegConfig struct {
	// Initiator marks the offering side. The offer is created and
	// emitted through OnSignal as soon as the session exists.
	Initiator bool

	// Local is the stream whose tracks this side sends. Nil for a
	// receive-only leg (the viewer side of a screen share).
	Local media.Stream

	// OnSignal delivers outbound signaling blobs for the relay.
	OnSignal func(protocol.SignalData)

	// OnTrack fires when remote media arrives. May be nil for send-only
	// legs.
	OnTrack func(*webrtc.TrackRemote)

	// OnStateChange fires on lifecycle transitions, in order, from a
	// goroutine owned by the session. It is never invoked on the
	// goroutine calling NewSession or Signal, so implementations may
	// block on the caller's event loop. May be nil.
	OnStateChange func(State)
}

// Factory creates sessions. The Session Coordinator depends on this
// interface; tests substitute fakes.
type Factory interface {
	NewSession(cfg LegConfig) (Session, error)
}

// PionFactory builds sessions on pion peer connections with the
// configured ICE servers.
type PionFactory struct {
	cfg *config.Config
}

var _ Factory = (*PionFactory)(nil)

// NewPionFactory creates a factory using cfg's STUN/TURN servers.
func NewPionFactory(cfg *config.Config) *PionFactory {
	return &PionFactory{cfg: cfg}
}

func (f *PionFactory) newPeerConnection() (*webrtc.PeerConnection, error) {
	iceServers := []webrtc.ICEServer{{URLs: f.cfg.GetSTUNServers()}}

	if turnServers := f.cfg.GetTURNServers(); turnServers != nil {
		username, password := f.cfg.GetTURNCredentials()
		iceServers = append(iceServers, webrtc.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers: iceServers,
	})
	if err != nil {
		return nil, NewError("create peer connection", err)
	}
	return pc, nil
}
