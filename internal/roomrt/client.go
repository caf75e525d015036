// Package roomrt is the Room Runtime (component D): hosts rooms, dispatches
// inbound client messages to a room's single-writer actor, broadcasts
// outbound messages, and tracks presence/session identity. Generalizes the
// connect/register/unregister/shutdown pattern used for the text client.
package roomrt

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	sendBufferSize = 256
)

// inbound is the envelope every client message is parsed into; rooms
// re-unmarshal the Raw payload into their own typed structs.
type inbound struct {
	Type string `json:"type"`
}

// Client wraps one websocket connection. A slow client's send buffer fills
// and further frames are dropped rather than blocking the room's actor
// goroutine.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	log  *zap.Logger

	mu        sync.Mutex
	PlayerID  string
	SessionID string
	RoomID    string
	closed    bool
}

// NewClient wraps an upgraded websocket connection.
func NewClient(conn *websocket.Conn, log *zap.Logger) *Client {
	return &Client{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		log:  log,
	}
}

// Send enqueues a JSON frame, dropping it if the client's buffer is full.
func (c *Client) Send(v interface{}) {
	buf, err := json.Marshal(v)
	if err != nil {
		c.log.Error("marshal outbound message", zap.Error(err))
		return
	}
	select {
	case c.send <- buf:
	default:
		c.log.Warn("dropping frame for slow client", zap.String("playerId", c.PlayerID))
	}
}

// Close closes the connection and the send channel exactly once.
func (c *Client) Close(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	deadline := time.Now().Add(writeWait)
	msg := websocket.FormatCloseMessage(code, reason)
	c.conn.WriteControl(websocket.CloseMessage, msg, deadline)
	close(c.send)
}

// ReadPump reads frames and dispatches them to dispatch until the
// connection errors or closes. It owns unregistering the client.
func (c *Client) ReadPump(dispatch func(msgType string, raw []byte), onClose func()) {
	defer func() {
		onClose()
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		var env inbound
		if err := json.Unmarshal(raw, &env); err != nil {
			c.log.Warn("dropping unparseable frame", zap.Error(err))
			continue
		}
		dispatch(env.Type, raw)
	}
}

// WritePump drains the send channel to the socket and keeps the connection
// alive with periodic pings, mirroring the teacher's ticker-based pattern.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
