package signaling

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024 // 64 KB - enough for SDP payloads
)

// Client is a wrapper for a single websocket connection (a participant).
type Client struct {
	// Hub is the hub that manages this client.
	Hub *Hub

	// Conn is the websocket connection. Nil in hub-level tests that feed
	// messages directly.
	Conn *websocket.Conn

	// ID is the relay-assigned connection id, unique per connection.
	ID string

	// RoomID is the room the client is in, "" until join-room succeeds.
	RoomID string

	// Username and Avatar are fixed at join time.
	Username string
	Avatar   string

	// Send is a buffered channel for all outbound messages. The hub
	// writes to it; WritePump drains it onto the websocket.
	Send chan *Message

	// Log carries the per-connection context.
	Log zerolog.Logger
}

// ReadPump pumps messages from the websocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine. The
// application ensures that there is at most one reader on a connection by
// executing all reads from this goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.unregister()
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := c.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.Log.Warn().Err(err).Msg("unexpected close")
			}
			break
		}

		msg.client = c
		c.Hub.Broadcast <- &msg
	}
}

// WritePump pumps messages from the hub to the websocket connection.
//
// A goroutine running WritePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteJSON(message); err != nil {
				c.Log.Error().Err(err).Msg("write message")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// unregister hands the connection back to the hub. When the hub has
// already stopped nobody receives on Unregister, so the quit channel
// unblocks the pump goroutine instead.
func (c *Client) unregister() {
	select {
	case c.Hub.Unregister <- c:
	case <-c.Hub.quit:
	}
}

// enqueue places a message on the client's send channel without blocking
// the hub. A participant that cannot keep up loses messages rather than
// stalling the room.
func (c *Client) enqueue(msg *Message) {
	select {
	case c.Send <- msg:
	default:
		c.Log.Warn().Str("event", msg.Event).Msg("send buffer full, dropping")
	}
}
