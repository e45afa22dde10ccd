package server_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vishwas-11/nodecall/internal/protocol"
	"github.com/vishwas-11/nodecall/internal/relay"
	"github.com/vishwas-11/nodecall/internal/server"
	"github.com/vishwas-11/nodecall/internal/signaling"
)

func startTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	registry := prometheus.NewRegistry()
	hub := signaling.NewHub(signaling.NewMetrics(registry))
	go hub.Run()
	t.Cleanup(hub.Stop)

	ts := httptest.NewServer(server.NewRouter(hub, registry, ""))
	t.Cleanup(ts.Close)
	return ts
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

// connect dials the test server and starts a handler for its events.
func connect(t *testing.T, ts *httptest.Server) (*relay.Client, *relay.Handler) {
	t.Helper()

	client := relay.NewClient(wsURL(ts))
	require.NoError(t, client.Connect())
	t.Cleanup(client.Close)

	handler := relay.NewHandler(client)
	go handler.Start()
	return client, handler
}

// waitEvent reads events until one of type T arrives.
func waitEvent[T any](t *testing.T, h *relay.Handler) T {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-h.Events:
			if v, ok := ev.(T); ok {
				return v
			}
		case <-deadline:
			var zero T
			t.Fatalf("timed out waiting for %T", zero)
			return zero
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts := startTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "healthy")
}

func TestMetricsEndpoint(t *testing.T) {
	ts := startTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "nodecall_rooms_active")
}

func TestTwoPartyCallSetupOverWebSocket(t *testing.T) {
	ts := startTestServer(t)

	aliceConn, alice := connect(t, ts)
	bobConn, bob := connect(t, ts)

	aliceConn.Send(protocol.EventJoinRoom, protocol.JoinRoom{
		RoomID: "e2e-room", Username: "Alice", Avatar: "🦊",
	})
	aliceJoined := waitEvent[*protocol.RoomJoined](t, alice)
	require.NotEmpty(t, aliceJoined.UserID)

	bobConn.Send(protocol.EventJoinRoom, protocol.JoinRoom{
		RoomID: "e2e-room", Username: "Bob", Avatar: "🐻",
	})
	bobJoined := waitEvent[*protocol.RoomJoined](t, bob)

	peer := waitEvent[*protocol.UserJoined](t, alice)
	assert.Equal(t, bobJoined.UserID, peer.UserID)
	assert.Equal(t, "Bob", peer.Username)

	// Alice, the resident, offers; Bob answers.
	aliceConn.Send(protocol.EventSendSignal, protocol.SendSignal{
		UserToSignal: peer.UserID,
		Signal:       protocol.SignalData{Type: protocol.SignalOffer, SDP: "alice-offer"},
		Username:     "Alice",
		Avatar:       "🦊",
	})
	offer := waitEvent[*protocol.ReceiveSignal](t, bob)
	assert.Equal(t, aliceJoined.UserID, offer.CallerID)
	assert.Equal(t, "alice-offer", offer.Signal.SDP)

	bobConn.Send(protocol.EventReturnSignal, protocol.ReturnSignal{
		Signal:   protocol.SignalData{Type: protocol.SignalAnswer, SDP: "bob-answer"},
		CallerID: offer.CallerID,
	})
	answer := waitEvent[*protocol.ReturnedSignal](t, alice)
	assert.Equal(t, "bob-answer", answer.Signal.SDP)

	// Chat rides the same connection.
	bobConn.Send(protocol.EventSendMessage, protocol.SendMessage{
		RoomID: "e2e-room", Username: "Bob", Message: "can you hear me?",
	})
	chat := waitEvent[*protocol.ReceiveMessage](t, alice)
	assert.Equal(t, "Bob", chat.Username)
	assert.Equal(t, "can you hear me?", chat.Message)
}

func TestThirdConnectionTurnedAway(t *testing.T) {
	ts := startTestServer(t)

	aliceConn, alice := connect(t, ts)
	bobConn, bob := connect(t, ts)
	carolConn, carol := connect(t, ts)

	aliceConn.Send(protocol.EventJoinRoom, protocol.JoinRoom{RoomID: "busy", Username: "Alice"})
	waitEvent[*protocol.RoomJoined](t, alice)
	bobConn.Send(protocol.EventJoinRoom, protocol.JoinRoom{RoomID: "busy", Username: "Bob"})
	waitEvent[*protocol.RoomJoined](t, bob)

	carolConn.Send(protocol.EventJoinRoom, protocol.JoinRoom{RoomID: "busy", Username: "Carol"})
	full := waitEvent[*protocol.RoomFull](t, carol)
	assert.Equal(t, "busy", full.RoomID)
}

func TestPeerDisconnectNotifiesRemaining(t *testing.T) {
	ts := startTestServer(t)

	aliceConn, alice := connect(t, ts)
	bobConn, bob := connect(t, ts)

	aliceConn.Send(protocol.EventJoinRoom, protocol.JoinRoom{RoomID: "drop", Username: "Alice"})
	waitEvent[*protocol.RoomJoined](t, alice)
	bobConn.Send(protocol.EventJoinRoom, protocol.JoinRoom{RoomID: "drop", Username: "Bob"})
	bobJoined := waitEvent[*protocol.RoomJoined](t, bob)
	waitEvent[*protocol.UserJoined](t, alice)

	bobConn.Close()

	left := waitEvent[*protocol.UserLeft](t, alice)
	assert.Equal(t, bobJoined.UserID, left.UserID)
}

func TestShareLifecycleOverWebSocket(t *testing.T) {
	ts := startTestServer(t)

	aliceConn, alice := connect(t, ts)
	bobConn, bob := connect(t, ts)

	aliceConn.Send(protocol.EventJoinRoom, protocol.JoinRoom{RoomID: "share", Username: "Alice"})
	aliceJoined := waitEvent[*protocol.RoomJoined](t, alice)
	bobConn.Send(protocol.EventJoinRoom, protocol.JoinRoom{RoomID: "share", Username: "Bob"})
	bobJoined := waitEvent[*protocol.RoomJoined](t, bob)
	waitEvent[*protocol.UserJoined](t, alice)

	aliceConn.Send(protocol.EventStartScreenShare, nil)
	started := waitEvent[*protocol.ScreenShareStarted](t, bob)
	assert.Equal(t, aliceJoined.UserID, started.SharerID)
	waitEvent[*protocol.ScreenShareStarted](t, alice)

	aliceConn.Send(protocol.EventScreenShareSignal, protocol.ScreenShareSignal{
		To:     bobJoined.UserID,
		From:   aliceJoined.UserID,
		Signal: protocol.SignalData{Type: protocol.SignalOffer, SDP: "share-offer"},
	})
	sig := waitEvent[*protocol.ScreenShareSignal](t, bob)
	assert.Equal(t, aliceJoined.UserID, sig.From)
	assert.Equal(t, "share-offer", sig.Signal.SDP)

	aliceConn.Send(protocol.EventStopScreenShare, nil)
	stopped := waitEvent[*protocol.ScreenShareStopped](t, bob)
	assert.Equal(t, aliceJoined.UserID, stopped.StoppedBy)
	assert.Empty(t, stopped.Reason)
}
