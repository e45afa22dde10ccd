package session

import (
	"github.com/pion/webrtc/v4"

	"github.com/vishwas-11/nodecall/internal/media"
	"github.com/vishwas-11/nodecall/internal/protocol"
	"github.com/vishwas-11/nodecall/internal/rtc"
)

// StartShare requests the room's exclusive share slot. The display
// capture permission is resolved before the relay is contacted, so a
// denied prompt never leaves room-level sharer state inconsistent.
func (c *Coordinator) StartShare() {
	c.post(c.startShare)
}

// StopShare releases the share slot if we hold it.
func (c *Coordinator) StopShare() {
	c.post(func() { c.stopShareLocal(true) })
}

func (c *Coordinator) startShare() {
	if c.share != shareNone {
		return
	}
	if c.remoteSharerID != "" {
		// The relay is the enforcement point; this just saves a doomed
		// capture prompt.
		c.notifier.Notice("Another participant is already sharing")
		return
	}

	c.share = sharePending
	ctx := c.ctx
	go func() {
		stream, err := c.capturer.CaptureDisplay(ctx)
		posted := c.tryPost(func() { c.onDisplayReady(stream, err) })
		if !posted && stream != nil {
			stream.Close()
		}
	}()
}

func (c *Coordinator) onDisplayReady(stream media.Stream, err error) {
	if c.share != sharePending {
		// Stopped or rolled back while the prompt was open.
		if stream != nil {
			stream.Close()
		}
		return
	}

	if err != nil {
		c.share = shareNone
		c.log.Warn().Err(err).Msg("display capture failed")
		c.notifier.Notice("Could not start screen share.")
		return
	}

	c.shareStream = stream
	c.conn.Send(protocol.EventStartScreenShare, nil)

	// A capture that dies on its own (the OS "stop sharing" control)
	// counts as an immediate stop.
	go func() {
		select {
		case <-stream.Done():
			c.post(func() { c.onShareCaptureEnded(stream) })
		case <-c.loopDone:
		}
	}()
}

func (c *Coordinator) onShareCaptureEnded(stream media.Stream) {
	if c.shareStream != stream || c.share == shareNone {
		return
	}
	c.stopShareLocal(true)
}

func (c *Coordinator) onShareStarted(v *protocol.ScreenShareStarted) {
	if v.SharerID == c.connID {
		if c.share != sharePending {
			// Confirmed as sharer but the local capture is already gone
			// (rolled back while the confirmation was in flight). Release
			// the slot instead of leaving it stale.
			c.conn.Send(protocol.EventStopScreenShare, nil)
			return
		}
		c.share = shareActive
		c.notifier.ShareStarted(c.cfg.Username, true)
		c.log.Info().Msg("screen share confirmed")
		if c.peerID != "" {
			c.startShareSend()
		}
		return
	}

	c.remoteSharerID = v.SharerID
	c.remoteSharerName = v.SharerUsername
	c.notifier.ShareStarted(v.SharerUsername, false)
}

// onShareError is the lost-race path: roll back and release the capture
// device immediately.
func (c *Coordinator) onShareError(v *protocol.ScreenShareError) {
	if c.share == shareNone {
		return
	}
	c.share = shareNone
	c.closeShareSend()
	if c.shareStream != nil {
		c.shareStream.Close()
		c.shareStream = nil
	}
	c.notifier.Notice("Screen share failed: " + v.Error)
}

// onShareStopped must be safe to run from any state, including after an
// error-driven local reset.
func (c *Coordinator) onShareStopped(v *protocol.ScreenShareStopped) {
	c.stopShareLocal(false)
	c.closeShareRecv()
	c.remoteSharerID = ""
	c.remoteSharerName = ""
	c.notifier.ShareStopped(v.StoppedByUsername, v.Reason)
}

// stopShareLocal releases the local capture and send leg. With announce,
// the relay is told as well; the resulting broadcast re-enters
// onShareStopped, where everything is already a no-op.
func (c *Coordinator) stopShareLocal(announce bool) {
	if c.share == shareNone {
		return
	}
	stillPending := c.share == sharePending
	c.share = shareNone
	c.closeShareSend()
	if c.shareStream != nil {
		c.shareStream.Close()
		c.shareStream = nil
	}
	if announce && !stillPending {
		c.conn.Send(protocol.EventStopScreenShare, nil)
	}
}

// startShareSend opens the dedicated send leg towards the current peer.
func (c *Coordinator) startShareSend() {
	c.closeShareSend()

	peerID := c.peerID
	sess, err := c.factory.NewSession(rtc.LegConfig{
		Initiator: true,
		Local:     c.shareStream,
		OnSignal: func(data protocol.SignalData) {
			c.conn.Send(protocol.EventScreenShareSignal, protocol.ScreenShareSignal{
				To:     peerID,
				From:   c.connID,
				Signal: data,
			})
		},
		OnStateChange: func(state rtc.State) {
			if state == rtc.StateFailed {
				c.post(func() { c.stopShareLocal(true) })
			}
		},
	})
	if err != nil {
		c.log.Error().Err(err).Msg("create share send leg")
		c.stopShareLocal(true)
		return
	}
	c.shareSend = sess
}

// onShareSignal routes screen-share leg signaling. Our own send leg gets
// answers and candidates; a foreign sharer's offer opens the receive leg.
func (c *Coordinator) onShareSignal(v *protocol.ScreenShareSignal) {
	if c.share != shareNone && c.shareSend != nil {
		if err := c.shareSend.Signal(v.Signal); err != nil {
			c.log.Debug().Err(err).Msg("stale share signal dropped")
		}
		return
	}

	if v.From != c.remoteSharerID || c.remoteSharerID == "" {
		c.log.Debug().Str("from", v.From).Msg("share signal from unknown sharer, dropping")
		return
	}

	if v.Signal.Type == protocol.SignalOffer {
		c.openShareRecv(v.From)
	}
	if c.shareRecv == nil {
		c.log.Debug().Msg("share signal with no receive leg, dropping")
		return
	}
	if err := c.shareRecv.Signal(v.Signal); err != nil {
		c.log.Debug().Err(err).Msg("stale share signal dropped")
	}
}

// openShareRecv creates the receive-only leg for a foreign share.
func (c *Coordinator) openShareRecv(sharerID string) {
	c.closeShareRecv()

	sess, err := c.factory.NewSession(rtc.LegConfig{
		Initiator: false,
		OnSignal: func(data protocol.SignalData) {
			c.conn.Send(protocol.EventScreenShareSignal, protocol.ScreenShareSignal{
				To:     sharerID,
				From:   c.connID,
				Signal: data,
			})
		},
		OnTrack: func(track *webrtc.TrackRemote) {
			c.post(func() { c.notifier.RemoteShareTrack(track) })
		},
	})
	if err != nil {
		c.log.Error().Err(err).Msg("create share receive leg")
		return
	}
	c.shareRecv = sess
}

func (c *Coordinator) closeShareSend() {
	if c.shareSend != nil {
		c.shareSend.Close()
		c.shareSend = nil
	}
}

func (c *Coordinator) closeShareRecv() {
	if c.shareRecv != nil {
		c.shareRecv.Close()
		c.shareRecv = nil
	}
}
