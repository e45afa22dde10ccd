// Package session implements the client-side room coordinator: it owns
// the room lifecycle, reacts to relay events, drives the call and
// screen-share legs, and arbitrates share start/stop against races.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vishwas-11/nodecall/internal/media"
	"github.com/vishwas-11/nodecall/internal/protocol"
	"github.com/vishwas-11/nodecall/internal/relay"
	"github.com/vishwas-11/nodecall/internal/rtc"
)

// State is the room lifecycle of the local client.
type State int

const (
	StateUnjoined State = iota
	StateJoining
	StateJoinedAlone
	StateJoinedPaired
	StateLeft
)

func (s State) String() string {
	switch s {
	case StateUnjoined:
		return "unjoined"
	case StateJoining:
		return "joining"
	case StateJoinedAlone:
		return "joined"
	case StateJoinedPaired:
		return "joined-with-peer"
	case StateLeft:
		return "left"
	default:
		return "unknown"
	}
}

// shareState is the local half of the screen-share machine.
type shareState int

const (
	shareNone shareState = iota
	sharePending
	shareActive
)

// RelayConn is the slice of the relay connection the coordinator uses.
// It is an owned handle: the coordinator closes it on teardown.
type RelayConn interface {
	Send(event string, payload any)
	Close()
}

// Config identifies the local participant.
type Config struct {
	RoomID   string
	Username string
	Avatar   string
}

// Deps are the coordinator's collaborators.
type Deps struct {
	Conn     RelayConn
	Events   *relay.Handler
	Capturer media.Capturer
	Factory  rtc.Factory
	Notifier Notifier
}

// Coordinator is the per-client session state machine. All fields below
// the channels are owned by the Run goroutine; external intents and
// asynchronous completions are posted into the loop as closures.
type Coordinator struct {
	cfg      Config
	conn     RelayConn
	events   *relay.Handler
	capturer media.Capturer
	factory  rtc.Factory
	notifier Notifier
	log      zerolog.Logger

	ctx   context.Context
	state State

	// connID is our relay-assigned connection id, known after room-joined.
	connID string

	peerID     string
	peerName   string
	peerAvatar string

	localStream media.Stream
	mediaFailed bool
	// peerPending marks a user-joined that arrived before local media;
	// the offer is initiated once acquisition completes.
	peerPending bool
	// pendingOffer stashes an inbound offer that arrived before local
	// media; answered once acquisition completes.
	pendingOffer *protocol.ReceiveSignal

	call rtc.Session

	share       shareState
	shareStream media.Stream
	shareSend   rtc.Session

	remoteSharerID   string
	remoteSharerName string
	shareRecv        rtc.Session

	intents  chan func()
	loopDone chan struct{}
	err      error
}

// New validates the join preconditions and builds a coordinator. An empty
// display name fails here, before any relay contact.
func New(cfg Config, deps Deps) (*Coordinator, error) {
	if strings.TrimSpace(cfg.Username) == "" {
		return nil, ErrNameRequired
	}
	if strings.TrimSpace(cfg.RoomID) == "" {
		return nil, errors.New("room id is required")
	}

	notifier := deps.Notifier
	if notifier == nil {
		notifier = NopNotifier{}
	}

	return &Coordinator{
		cfg:      cfg,
		conn:     deps.Conn,
		events:   deps.Events,
		capturer: deps.Capturer,
		factory:  deps.Factory,
		notifier: notifier,
		log:      log.With().Str("room_id", cfg.RoomID).Logger(),
		intents:  make(chan func()),
		loopDone: make(chan struct{}),
	}, nil
}

// Run joins the room and processes events until the session ends. All
// capture devices and peer connections are released before it returns.
func (c *Coordinator) Run(ctx context.Context) error {
	defer c.shutdown()
	defer close(c.loopDone)

	c.ctx = ctx
	c.state = StateJoining
	c.conn.Send(protocol.EventJoinRoom, protocol.JoinRoom{
		RoomID:   c.cfg.RoomID,
		Username: c.cfg.Username,
		Avatar:   c.cfg.Avatar,
	})

	for c.state != StateLeft {
		select {
		case <-ctx.Done():
			c.state = StateLeft
			c.err = ctx.Err()

		case fn := <-c.intents:
			fn()

		case ev := <-c.events.Events:
			c.handleEvent(ev)

		case <-c.events.Done:
			// Done can win the select over events that were already
			// decoded; deliver those before declaring the session over.
			c.drainEvents()
			if c.state != StateLeft {
				c.notifier.Notice("Connection to server lost")
				c.err = ErrConnectionLost
				c.state = StateLeft
			}
		}
	}

	return c.err
}

// drainEvents handles everything still buffered on the event stream. Only
// called once Done is closed, when no more events can arrive.
func (c *Coordinator) drainEvents() {
	for {
		select {
		case ev := <-c.events.Events:
			c.handleEvent(ev)
		default:
			return
		}
	}
}

// handleEvent dispatches one relay event. Events arrive in the relay's
// delivery order; every handler is safe under the interleavings the
// asynchronous boundaries allow.
func (c *Coordinator) handleEvent(ev relay.Event) {
	switch v := ev.(type) {
	case *protocol.RoomJoined:
		c.onRoomJoined(v)

	case *protocol.RoomFull:
		c.notifier.Notice("Room is full")
		c.err = ErrRoomFull
		c.state = StateLeft

	case *protocol.UserJoined:
		c.onUserJoined(v)

	case *protocol.UserLeft:
		c.onUserLeft()

	case *protocol.CurrentSharer:
		c.onCurrentSharer(v)

	case *protocol.ReceiveSignal:
		c.onReceiveSignal(v)

	case *protocol.ReturnedSignal:
		c.onReturnedSignal(v)

	case *protocol.ScreenShareStarted:
		c.onShareStarted(v)

	case *protocol.ScreenShareStopped:
		c.onShareStopped(v)

	case *protocol.ScreenShareError:
		c.onShareError(v)

	case *protocol.ScreenShareSignal:
		c.onShareSignal(v)

	case *protocol.ReceiveMessage:
		c.notifier.ChatReceived(ChatMessage{
			Username:   v.Username,
			Message:    v.Message,
			ReceivedAt: time.Now(),
		})

	case relay.TypingEvent:
		c.notifier.TypingChanged(v.Typing)

	default:
		c.log.Debug().Msg("unhandled session event")
	}
}

// post schedules fn on the event loop; gives up once the loop has exited.
func (c *Coordinator) post(fn func()) {
	select {
	case c.intents <- fn:
	case <-c.loopDone:
	}
}

// tryPost is post with a success report, for async completions that must
// release resources themselves when the loop is gone.
func (c *Coordinator) tryPost(fn func()) bool {
	select {
	case c.intents <- fn:
		return true
	case <-c.loopDone:
		return false
	}
}

// --- external intents ---

// Leave ends the session. Capture devices and peer connections are
// released before Run returns.
func (c *Coordinator) Leave() {
	c.post(func() { c.state = StateLeft })
}

// SendChat fires a chat message at the room. Best-effort, no ack.
func (c *Coordinator) SendChat(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	c.post(func() {
		c.conn.Send(protocol.EventSendMessage, protocol.SendMessage{
			RoomID:   c.cfg.RoomID,
			Username: c.cfg.Username,
			Message:  text,
		})
	})
}

// SetTyping publishes the local typing indicator.
func (c *Coordinator) SetTyping(typing bool) {
	c.post(func() {
		if typing {
			c.conn.Send(protocol.EventTyping, nil)
		} else {
			c.conn.Send(protocol.EventStopTyping, nil)
		}
	})
}

// ToggleMic flips the microphone track.
func (c *Coordinator) ToggleMic() {
	c.post(func() {
		if c.localStream != nil {
			c.localStream.SetAudioEnabled(!c.localStream.AudioEnabled())
		}
	})
}

// ToggleCamera flips the camera track.
func (c *Coordinator) ToggleCamera() {
	c.post(func() {
		if c.localStream != nil {
			c.localStream.SetVideoEnabled(!c.localStream.VideoEnabled())
		}
	})
}

// --- relay event handlers (loop goroutine only) ---

func (c *Coordinator) onRoomJoined(v *protocol.RoomJoined) {
	if c.state != StateJoining {
		return
	}
	c.connID = v.UserID
	c.state = StateJoinedAlone
	c.log = c.log.With().Str("conn_id", c.connID).Logger()
	c.log.Info().Msg("joined room")

	// Local media is acquired exactly once per session. Failure degrades:
	// chat stays usable, call legs are disabled.
	ctx := c.ctx
	go func() {
		stream, err := c.capturer.CaptureMedia(ctx)
		posted := c.tryPost(func() { c.onMediaReady(stream, err) })
		if !posted && stream != nil {
			stream.Close()
		}
	}()
}

func (c *Coordinator) onMediaReady(stream media.Stream, err error) {
	if err != nil {
		c.mediaFailed = true
		c.log.Warn().Err(err).Msg("media acquisition failed")
		c.notifier.Notice("Failed to access camera/mic. Please grant permissions.")
		c.pendingOffer = nil
		c.peerPending = false
		return
	}

	c.localStream = stream

	// A peer may have shown up while acquisition was in flight.
	if offer := c.pendingOffer; offer != nil {
		c.pendingOffer = nil
		c.answerOffer(offer)
		return
	}
	if c.peerPending {
		c.peerPending = false
		c.startOffer()
	}
}

func (c *Coordinator) onUserJoined(v *protocol.UserJoined) {
	c.peerID = v.UserID
	c.peerName = v.Username
	c.peerAvatar = v.Avatar
	c.state = StateJoinedPaired
	c.notifier.PeerJoined(v.Username, v.Avatar)
	c.log.Info().Str("peer", v.Username).Msg("peer joined")

	if c.localStream != nil {
		c.startOffer()
	} else if !c.mediaFailed {
		c.peerPending = true
	}

	// If we were already sharing before the peer arrived, offer the
	// share leg as well.
	if c.share == shareActive && c.shareSend == nil {
		c.startShareSend()
	}
}

func (c *Coordinator) onUserLeft() {
	c.log.Info().Str("peer", c.peerName).Msg("peer left")
	c.notifier.PeerLeft()

	c.destroyCall()
	c.closeShareSend()
	c.closeShareRecv()
	c.remoteSharerID = ""
	c.remoteSharerName = ""
	c.notifier.TypingChanged(false)

	c.peerID = ""
	c.peerName = ""
	c.peerAvatar = ""
	c.peerPending = false
	c.pendingOffer = nil
	if c.state == StateJoinedPaired {
		c.state = StateJoinedAlone
	}
}

func (c *Coordinator) onCurrentSharer(v *protocol.CurrentSharer) {
	c.remoteSharerID = v.SharerID
	c.remoteSharerName = v.SharerUsername
	c.notifier.ShareStarted(v.SharerUsername, false)
}

// onReceiveSignal handles the answering side of call negotiation: offers
// create a fresh session, candidates feed the one in flight.
func (c *Coordinator) onReceiveSignal(v *protocol.ReceiveSignal) {
	if v.Signal.Type == protocol.SignalOffer {
		c.peerID = v.CallerID
		c.peerName = v.CallerUsername
		c.peerAvatar = v.CallerAvatar
		c.state = StateJoinedPaired

		if c.localStream == nil {
			if c.mediaFailed {
				c.log.Info().Msg("offer received without local media, dropping")
				return
			}
			c.pendingOffer = v
			return
		}
		c.answerOffer(v)
		return
	}

	if c.call == nil {
		c.log.Debug().Str("type", v.Signal.Type).Msg("call signal with no session, dropping")
		return
	}
	if err := c.call.Signal(v.Signal); err != nil {
		c.log.Debug().Err(err).Msg("stale call signal dropped")
	}
}

// onReturnedSignal feeds the answer back into the offering session. No
// session is created here: a missing session means a stale message from a
// torn-down negotiation.
func (c *Coordinator) onReturnedSignal(v *protocol.ReturnedSignal) {
	if c.call == nil {
		c.log.Debug().Str("type", v.Signal.Type).Msg("returned signal with no pending session, dropping")
		return
	}
	if err := c.call.Signal(v.Signal); err != nil {
		c.log.Debug().Err(err).Msg("stale returned signal dropped")
	}
}

// --- call leg management ---

// startOffer makes us the offering side. Establishing a new call always
// destroys the prior one first.
func (c *Coordinator) startOffer() {
	c.destroyCall()

	peerID := c.peerID
	sess, err := c.factory.NewSession(rtc.LegConfig{
		Initiator: true,
		Local:     c.localStream,
		OnSignal: func(data protocol.SignalData) {
			c.conn.Send(protocol.EventSendSignal, protocol.SendSignal{
				UserToSignal: peerID,
				Signal:       data,
				Username:     c.cfg.Username,
				Avatar:       c.cfg.Avatar,
			})
		},
		OnTrack:       c.postRemoteCallTrack,
		OnStateChange: c.postCallState,
	})
	if err != nil {
		c.log.Error().Err(err).Msg("create offering session")
		c.notifier.Notice("Could not start the call")
		return
	}
	c.call = sess
}

// answerOffer makes us the answering side.
func (c *Coordinator) answerOffer(v *protocol.ReceiveSignal) {
	c.destroyCall()

	callerID := v.CallerID
	sess, err := c.factory.NewSession(rtc.LegConfig{
		Initiator: false,
		Local:     c.localStream,
		OnSignal: func(data protocol.SignalData) {
			c.conn.Send(protocol.EventReturnSignal, protocol.ReturnSignal{
				Signal:   data,
				CallerID: callerID,
			})
		},
		OnTrack:       c.postRemoteCallTrack,
		OnStateChange: c.postCallState,
	})
	if err != nil {
		c.log.Error().Err(err).Msg("create answering session")
		c.notifier.Notice("Could not answer the call")
		return
	}
	c.call = sess

	if err := sess.Signal(v.Signal); err != nil {
		c.log.Error().Err(err).Msg("feed offer")
		c.destroyCall()
	}
}

// destroyCall is idempotent: destroying an already-closed session is a
// no-op, never an error.
func (c *Coordinator) destroyCall() {
	if c.call != nil {
		c.call.Close()
		c.call = nil
	}
}

func (c *Coordinator) postRemoteCallTrack(track *webrtc.TrackRemote) {
	c.post(func() { c.notifier.RemoteCallTrack(track) })
}

func (c *Coordinator) postCallState(state rtc.State) {
	c.post(func() {
		c.notifier.CallStateChanged(state)
		if state == rtc.StateFailed {
			c.notifier.Notice("Call connection failed")
			c.destroyCall()
		}
	})
}

// --- teardown ---

// shutdown releases every held resource. Runs once, after the loop exits;
// every step is idempotent.
func (c *Coordinator) shutdown() {
	c.destroyCall()
	c.closeShareSend()
	c.closeShareRecv()
	if c.shareStream != nil {
		c.shareStream.Close()
		c.shareStream = nil
	}
	if c.localStream != nil {
		c.localStream.Close()
		c.localStream = nil
	}
	c.conn.Close()
	c.log.Info().Msg("session ended")
}
