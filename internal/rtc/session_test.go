package rtc

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vishwas-11/nodecall/internal/config"
	"github.com/vishwas-11/nodecall/internal/media"
	"github.com/vishwas-11/nodecall/internal/protocol"
)

func testFactory() *PionFactory {
	return NewPionFactory(&config.Config{
		STUNServer: "stun:127.0.0.1:3478",
	})
}

// discard is an OnSignal sink for sessions whose signaling is irrelevant.
func discard(protocol.SignalData) {}

func TestInitiatorEmitsOfferImmediately(t *testing.T) {
	signals := make(chan protocol.SignalData, 32)

	sess, err := testFactory().NewSession(LegConfig{
		Initiator: true,
		OnSignal:  func(d protocol.SignalData) { signals <- d },
	})
	require.NoError(t, err)
	defer sess.Close()

	select {
	case sig := <-signals:
		assert.Equal(t, protocol.SignalOffer, sig.Type)
		assert.NotEmpty(t, sig.SDP)
	default:
		t.Fatal("no offer emitted before NewSession returned")
	}
	assert.Equal(t, StateNegotiating, sess.State())
}

func TestCloseIsIdempotent(t *testing.T) {
	sess, err := testFactory().NewSession(LegConfig{OnSignal: discard})
	require.NoError(t, err)

	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close())
	assert.Equal(t, StateClosed, sess.State())
}

func TestSignalAfterCloseIsStale(t *testing.T) {
	sess, err := testFactory().NewSession(LegConfig{OnSignal: discard})
	require.NoError(t, err)
	require.NoError(t, sess.Close())

	err = sess.Signal(protocol.SignalData{Type: protocol.SignalOffer, SDP: "v=0"})
	assert.ErrorIs(t, err, ErrStaleSignal)
}

func TestOfferRejectedOnInitiatingSide(t *testing.T) {
	sess, err := testFactory().NewSession(LegConfig{
		Initiator: true,
		OnSignal:  discard,
	})
	require.NoError(t, err)
	defer sess.Close()

	err = sess.Signal(protocol.SignalData{Type: protocol.SignalOffer, SDP: "v=0"})
	assert.ErrorIs(t, err, ErrUnexpectedSignal)
}

func TestAnswerRejectedOnAnsweringSide(t *testing.T) {
	sess, err := testFactory().NewSession(LegConfig{OnSignal: discard})
	require.NoError(t, err)
	defer sess.Close()

	err = sess.Signal(protocol.SignalData{Type: protocol.SignalAnswer, SDP: "v=0"})
	assert.ErrorIs(t, err, ErrUnexpectedSignal)
}

func TestUnknownSignalTypeRejected(t *testing.T) {
	sess, err := testFactory().NewSession(LegConfig{OnSignal: discard})
	require.NoError(t, err)
	defer sess.Close()

	err = sess.Signal(protocol.SignalData{Type: "renegotiate"})
	assert.ErrorIs(t, err, ErrUnexpectedSignal)
}

func TestCandidateBeforeRemoteDescriptionIsQueued(t *testing.T) {
	sess, err := testFactory().NewSession(LegConfig{OnSignal: discard})
	require.NoError(t, err)
	defer sess.Close()

	mid := "0"
	var idx uint16
	err = sess.Signal(protocol.SignalData{
		Type: protocol.SignalICECandidate,
		Candidate: &protocol.ICECandidate{
			Candidate:     "candidate:1 1 udp 2130706431 127.0.0.1 51000 typ host",
			SDPMid:        &mid,
			SDPMLineIndex: &idx,
		},
	})
	require.NoError(t, err)

	ps := sess.(*pionSession)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	assert.Len(t, ps.pendingCandidates, 1)
}

func TestEmptyCandidateIgnored(t *testing.T) {
	sess, err := testFactory().NewSession(LegConfig{OnSignal: discard})
	require.NoError(t, err)
	defer sess.Close()

	require.NoError(t, sess.Signal(protocol.SignalData{Type: protocol.SignalICECandidate}))
}

// TestStateChangeNeverBlocksCaller pins the delivery contract: the state
// callback may block on work only its consumer can do (here, a channel
// nobody reads until NewSession has returned), and session construction
// must still complete.
func TestStateChangeNeverBlocksCaller(t *testing.T) {
	states := make(chan State) // unbuffered on purpose

	sess, err := testFactory().NewSession(LegConfig{
		Initiator:     true,
		OnSignal:      discard,
		OnStateChange: func(s State) { states <- s },
	})
	require.NoError(t, err)
	defer sess.Close()

	select {
	case s := <-states:
		assert.Equal(t, StateNegotiating, s)
	case <-time.After(2 * time.Second):
		t.Fatal("state change never delivered")
	}
}

func TestStateNotifierPreservesOrder(t *testing.T) {
	var mu sync.Mutex
	var got []State
	n := newStateNotifier(func(s State) {
		mu.Lock()
		got = append(got, s)
		mu.Unlock()
	})
	defer n.stop()

	n.notify(StateNegotiating)
	n.notify(StateConnected)
	n.notify(StateFailed)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateNegotiating, StateConnected, StateFailed}, got)
}

// TestLoopbackNegotiation wires two real sessions back to back, the way
// the relay would, and waits for both legs to connect over loopback.
func TestLoopbackNegotiation(t *testing.T) {
	if testing.Short() {
		t.Skip("loopback negotiation needs UDP sockets")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stream, err := media.SyntheticCapturer{}.CaptureMedia(ctx)
	require.NoError(t, err)
	defer stream.Close()

	factory := testFactory()

	offerSignals := make(chan protocol.SignalData, 64)
	offerStates := make(chan State, 16)
	offerer, err := factory.NewSession(LegConfig{
		Initiator:     true,
		Local:         stream,
		OnSignal:      func(d protocol.SignalData) { offerSignals <- d },
		OnStateChange: func(s State) { offerStates <- s },
	})
	require.NoError(t, err)
	defer offerer.Close()

	answerStates := make(chan State, 16)
	remoteTracks := make(chan *webrtc.TrackRemote, 4)
	answerer, err := factory.NewSession(LegConfig{
		OnSignal: func(d protocol.SignalData) {
			if err := offerer.Signal(d); err != nil {
				t.Logf("offerer rejected %s: %v", d.Type, err)
			}
		},
		OnTrack:       func(track *webrtc.TrackRemote) { remoteTracks <- track },
		OnStateChange: func(s State) { answerStates <- s },
	})
	require.NoError(t, err)
	defer answerer.Close()

	// Pump the offerer's signals (offer, then trickled candidates) into
	// the answerer for the lifetime of the test.
	go func() {
		for {
			select {
			case d := <-offerSignals:
				if err := answerer.Signal(d); err != nil {
					t.Logf("answerer rejected %s: %v", d.Type, err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	waitState := func(states <-chan State, want State, side string) {
		for {
			select {
			case s := <-states:
				if s == want {
					return
				}
				if s == StateFailed {
					t.Fatalf("%s leg failed before reaching %s", side, want)
				}
			case <-ctx.Done():
				t.Fatalf("%s leg never reached %s", side, want)
			}
		}
	}

	waitState(offerStates, StateConnected, "offering")
	waitState(answerStates, StateConnected, "answering")

	// The synthetic pumps are writing; remote media must surface.
	select {
	case track := <-remoteTracks:
		assert.NotNil(t, track)
	case <-ctx.Done():
		t.Fatal("no remote track arrived")
	}
}
