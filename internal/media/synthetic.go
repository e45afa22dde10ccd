package media

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
)

const (
	audioFrameInterval = 20 * time.Millisecond
	videoFrameInterval = 100 * time.Millisecond
)

// SyntheticCapturer produces streams of generated frames: silent Opus
// audio and placeholder VP8 video. It stands in for real capture hardware
// on headless hosts and in tests.
type SyntheticCapturer struct{}

var _ Capturer = (*SyntheticCapturer)(nil)

// CaptureMedia returns a synthetic camera+microphone stream.
func (SyntheticCapturer) CaptureMedia(ctx context.Context) (Stream, error) {
	return newSyntheticStream(ctx, "camera", true)
}

// CaptureDisplay returns a synthetic screen capture stream (video only).
func (SyntheticCapturer) CaptureDisplay(ctx context.Context) (Stream, error) {
	return newSyntheticStream(ctx, "screen", false)
}

type syntheticStream struct {
	audio *webrtc.TrackLocalStaticSample // nil for display capture
	video *webrtc.TrackLocalStaticSample

	audioOn atomic.Bool
	videoOn atomic.Bool

	stop      chan struct{}
	closeOnce sync.Once
}

func newSyntheticStream(ctx context.Context, label string, withAudio bool) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	streamID := uuid.NewString()
	s := &syntheticStream{stop: make(chan struct{})}
	s.audioOn.Store(true)
	s.videoOn.Store(true)

	video, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
		label+"-video", streamID,
	)
	if err != nil {
		return nil, err
	}
	s.video = video
	go s.pump(video, &s.videoOn, videoFrameInterval, blankVideoFrame)

	if withAudio {
		audio, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
			label+"-audio", streamID,
		)
		if err != nil {
			close(s.stop)
			return nil, err
		}
		s.audio = audio
		go s.pump(audio, &s.audioOn, audioFrameInterval, silentAudioFrame)
	}

	return s, nil
}

// pump writes generated samples until the stream is closed. A disabled
// track simply stops producing frames, like a muted device.
func (s *syntheticStream) pump(track *webrtc.TrackLocalStaticSample, enabled *atomic.Bool, interval time.Duration, frame []byte) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if !enabled.Load() {
				continue
			}
			if err := track.WriteSample(pionmedia.Sample{Data: frame, Duration: interval}); err != nil {
				s.Close()
				return
			}
		}
	}
}

func (s *syntheticStream) Tracks() []webrtc.TrackLocal {
	tracks := make([]webrtc.TrackLocal, 0, 2)
	if s.audio != nil {
		tracks = append(tracks, s.audio)
	}
	tracks = append(tracks, s.video)
	return tracks
}

func (s *syntheticStream) SetAudioEnabled(v bool) { s.audioOn.Store(v) }
func (s *syntheticStream) SetVideoEnabled(v bool) { s.videoOn.Store(v) }
func (s *syntheticStream) AudioEnabled() bool     { return s.audioOn.Load() }
func (s *syntheticStream) VideoEnabled() bool     { return s.videoOn.Load() }
func (s *syntheticStream) Done() <-chan struct{}  { return s.stop }

func (s *syntheticStream) Close() {
	s.closeOnce.Do(func() {
		close(s.stop)
	})
}

// silentAudioFrame is a minimal Opus frame representing silence.
var silentAudioFrame = []byte{0xf8, 0xff, 0xfe}

// blankVideoFrame is a placeholder VP8 payload; receivers that only route
// packets never decode it.
var blankVideoFrame = []byte{0x10, 0x02, 0x00, 0x9d, 0x01, 0x2a}
