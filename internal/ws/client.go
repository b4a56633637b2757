package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

// ConnInfo is captured at handshake time and travels with every lifecycle event.
type ConnInfo struct {
	ConnID      string
	Kind        string
	ChatID      int
	UserID      int
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

// Fields renders the connection for structured logs.
func (i ConnInfo) Fields() []zap.Field {
	return []zap.Field{
		zap.String("conn_id", i.ConnID),
		zap.String("kind", i.Kind),
		zap.Int("chat_id", i.ChatID),
		zap.Int("user_id", i.UserID),
		zap.String("request_id", i.RequestID),
	}
}

// Client wraps one websocket connection. gorilla connections allow a single
// concurrent writer, so every write goes through mu.
type Client struct {
	conn *websocket.Conn
	info ConnInfo

	mu sync.Mutex
}

// NewClient wraps conn.
func NewClient(conn *websocket.Conn, info ConnInfo) *Client {
	return &Client{conn: conn, info: info}
}

// Info returns the connection metadata.
func (c *Client) Info() ConnInfo {
	return c.info
}

// WriteText sends a text frame.
func (c *Client) WriteText(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return websocket.ErrCloseSent
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// WriteJSON encodes v and sends it as a text frame.
func (c *Client) WriteJSON(v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.WriteText(payload)
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
