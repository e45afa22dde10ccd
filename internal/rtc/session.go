package rtc

import (
	"sync"
	"sync/atomic"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/vishwas-11/nodecall/internal/protocol"
)

// pionSession implements Session on a pion peer connection.
type pionSession struct {
	cfg LegConfig

	mu sync.Mutex // guards pc operations and the candidate queue
	pc *webrtc.PeerConnection

	// Candidates that arrived before the remote description; flushed once
	// it is set.
	pendingCandidates []protocol.ICECandidate

	// notifier delivers OnStateChange off the producing goroutine. Nil
	// when the leg has no state callback.
	notifier *stateNotifier

	state     atomic.Int32
	closeOnce sync.Once
}

// NewSession creates one leg. The initiating side emits its offer before
// NewSession returns, so callers only need to route signals afterwards.
func (f *PionFactory) NewSession(cfg LegConfig) (Session, error) {
	pc, err := f.newPeerConnection()
	if err != nil {
		return nil, err
	}

	s := &pionSession{cfg: cfg, pc: pc}
	s.state.Store(int32(StateIdle))
	if cfg.OnStateChange != nil {
		s.notifier = newStateNotifier(cfg.OnStateChange)
	}

	if cfg.Local != nil {
		for _, track := range cfg.Local.Tracks() {
			if _, err := pc.AddTrack(track); err != nil {
				s.stopNotifier()
				pc.Close()
				return nil, NewError("add track", err)
			}
		}
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		init := c.ToJSON()
		s.emitSignal(protocol.SignalData{
			Type: protocol.SignalICECandidate,
			Candidate: &protocol.ICECandidate{
				Candidate:        init.Candidate,
				SDPMid:           init.SDPMid,
				SDPMLineIndex:    init.SDPMLineIndex,
				UsernameFragment: init.UsernameFragment,
			},
		})
	})

	if cfg.OnTrack != nil {
		pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
			cfg.OnTrack(track)
		})
	}

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		switch state {
		case webrtc.PeerConnectionStateConnected:
			s.setState(StateConnected)
		case webrtc.PeerConnectionStateFailed:
			s.setState(StateFailed)
		}
	})

	if cfg.Initiator {
		if err := s.createOffer(); err != nil {
			s.stopNotifier()
			pc.Close()
			return nil, err
		}
	}

	return s, nil
}

func (s *pionSession) State() State {
	return State(s.state.Load())
}

func (s *pionSession) setState(next State) {
	// Terminal states stick; a late pion callback must not resurrect a
	// closed leg.
	for {
		cur := s.state.Load()
		if State(cur) == StateClosed {
			return
		}
		if s.state.CompareAndSwap(cur, int32(next)) {
			break
		}
	}
	// Delivery goes through the notifier goroutine: setState runs on
	// whatever goroutine pion (or NewSession/Signal) happens to be on, and
	// callers like the session coordinator post the callback back into
	// their own event loop. Invoking it inline would deadlock that loop.
	if s.notifier != nil {
		s.notifier.notify(next)
	}
}

func (s *pionSession) stopNotifier() {
	if s.notifier != nil {
		s.notifier.stop()
	}
}

func (s *pionSession) emitSignal(data protocol.SignalData) {
	if s.State() == StateClosed {
		return
	}
	s.cfg.OnSignal(data)
}

func (s *pionSession) createOffer() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	offer, err := s.pc.CreateOffer(nil)
	if err != nil {
		return NewError("create offer", err)
	}
	if err := s.pc.SetLocalDescription(offer); err != nil {
		return NewError("set local description", err)
	}

	s.setState(StateNegotiating)
	s.emitSignal(protocol.SignalData{
		Type: protocol.SignalOffer,
		SDP:  s.pc.LocalDescription().SDP,
	})
	return nil
}

// Signal feeds an inbound blob into the leg.
func (s *pionSession) Signal(data protocol.SignalData) error {
	if s.State() == StateClosed {
		return ErrStaleSignal
	}

	switch data.Type {
	case protocol.SignalOffer:
		return s.handleOffer(data)
	case protocol.SignalAnswer:
		return s.handleAnswer(data)
	case protocol.SignalICECandidate:
		return s.handleCandidate(data)
	default:
		return WrapError("signal", ErrUnexpectedSignal, data.Type)
	}
}

func (s *pionSession) handleOffer(data protocol.SignalData) error {
	if s.cfg.Initiator {
		return WrapError("signal", ErrUnexpectedSignal, "offer on initiating side")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: data.SDP}
	if err := s.pc.SetRemoteDescription(offer); err != nil {
		return NewError("set remote description", err)
	}

	answer, err := s.pc.CreateAnswer(nil)
	if err != nil {
		return NewError("create answer", err)
	}
	if err := s.pc.SetLocalDescription(answer); err != nil {
		return NewError("set local description", err)
	}

	s.setState(StateNegotiating)
	s.flushCandidatesLocked()
	s.emitSignal(protocol.SignalData{
		Type: protocol.SignalAnswer,
		SDP:  s.pc.LocalDescription().SDP,
	})
	return nil
}

func (s *pionSession) handleAnswer(data protocol.SignalData) error {
	if !s.cfg.Initiator {
		return WrapError("signal", ErrUnexpectedSignal, "answer on answering side")
	}
	if s.State() != StateNegotiating {
		return ErrStaleSignal
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	answer := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: data.SDP}
	if err := s.pc.SetRemoteDescription(answer); err != nil {
		return NewError("set remote description", err)
	}
	s.flushCandidatesLocked()
	return nil
}

func (s *pionSession) handleCandidate(data protocol.SignalData) error {
	if data.Candidate == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Trickled candidates can outrun the SDP exchange; hold them until
	// the remote description lands.
	if s.pc.RemoteDescription() == nil {
		s.pendingCandidates = append(s.pendingCandidates, *data.Candidate)
		return nil
	}
	return s.addCandidateLocked(*data.Candidate)
}

func (s *pionSession) flushCandidatesLocked() {
	for _, c := range s.pendingCandidates {
		if err := s.addCandidateLocked(c); err != nil {
			log.Warn().Err(err).Msg("flush queued candidate")
		}
	}
	s.pendingCandidates = nil
}

func (s *pionSession) addCandidateLocked(c protocol.ICECandidate) error {
	init := webrtc.ICECandidateInit{
		Candidate:        c.Candidate,
		SDPMid:           c.SDPMid,
		SDPMLineIndex:    c.SDPMLineIndex,
		UsernameFragment: c.UsernameFragment,
	}
	if err := s.pc.AddICECandidate(init); err != nil {
		return NewError("add ICE candidate", err)
	}
	return nil
}

// Close tears down the peer connection. Safe to call repeatedly.
func (s *pionSession) Close() error {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosed))
		s.stopNotifier()
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.pc.Close(); err != nil {
			log.Warn().Err(err).Msg("close peer connection")
		}
	})
	return nil
}

// stateNotifier serializes OnStateChange callbacks onto a dedicated
// goroutine, preserving transition order. notify never blocks, so a state
// change produced while the consumer is busy (the coordinator's loop
// creating this very session, for instance) cannot stall its producer.
type stateNotifier struct {
	fn func(State)

	mu    sync.Mutex
	queue []State

	kick chan struct{}
	done chan struct{}
}

func newStateNotifier(fn func(State)) *stateNotifier {
	n := &stateNotifier{
		fn:   fn,
		kick: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go n.run()
	return n
}

func (n *stateNotifier) notify(s State) {
	n.mu.Lock()
	n.queue = append(n.queue, s)
	n.mu.Unlock()

	select {
	case n.kick <- struct{}{}:
	default:
	}
}

func (n *stateNotifier) run() {
	for {
		select {
		case <-n.kick:
		case <-n.done:
			return
		}

		for {
			n.mu.Lock()
			if len(n.queue) == 0 {
				n.mu.Unlock()
				break
			}
			next := n.queue[0]
			n.queue = n.queue[1:]
			n.mu.Unlock()

			n.fn(next)
		}
	}
}

// stop ends delivery; queued transitions for a closed leg are dropped.
func (n *stateNotifier) stop() {
	close(n.done)
}
