package remote

import (
	"encoding/json"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sipeed/picoshell/pkg/logger"
	"github.com/sipeed/picoshell/pkg/ratelimit"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// Message types sent to the client.
const (
	TypeSystem = "system"
	TypePrompt = "prompt"
	TypeOutput = "output"
)

// Message is the JSON frame sent to clients.
type Message struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	SessionID string `json:"session_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// inbound is accepted in addition to plain text frames.
type inbound struct {
	Content string `json:"content"`
}

// consoleConn adapts one WebSocket connection to shell.LineReader and
// io.Writer. ReadLine is only ever called from one goroutine at a time.
type consoleConn struct {
	conn    *websocket.Conn
	id      string
	limiter *ratelimit.Limiter

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

func newConsoleConn(conn *websocket.Conn, id string, limiter *ratelimit.Limiter) *consoleConn {
	c := &consoleConn{
		conn:    conn,
		id:      id,
		limiter: limiter,
		closed:  make(chan struct{}),
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	go c.keepalive()
	return c
}

func (c *consoleConn) keepalive() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.writeMu.Unlock()
			if err != nil {
				logger.WarnCF("remote", "Failed to send ping", map[string]any{
					"session_id": c.id,
					"error":      err.Error(),
				})
				c.Close()
				return
			}
		}
	}
}

func (c *consoleConn) send(msgType, content string) error {
	data, err := json.Marshal(Message{
		Type:      msgType,
		Content:   content,
		SessionID: c.id,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// ReadLine sends the prompt and waits for the next line within the
// session's rate budget. Lines over budget are answered and dropped.
func (c *consoleConn) ReadLine(prompt string) (string, error) {
	if err := c.send(TypePrompt, prompt); err != nil {
		return "", c.readErr(err)
	}

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			return "", c.readErr(err)
		}
		if msgType != websocket.TextMessage {
			continue
		}

		if !c.limiter.Allow(c.id) {
			logger.WarnCF("remote", "Rate limit exceeded", map[string]any{"session_id": c.id})
			if err := c.send(TypeOutput, "Rate limit exceeded\n"); err != nil {
				return "", c.readErr(err)
			}
			if err := c.send(TypePrompt, prompt); err != nil {
				return "", c.readErr(err)
			}
			continue
		}
		return decodeLine(data), nil
	}
}

// readErr maps any read or write failure to io.EOF so the session ends
// gracefully; the connection is unusable either way.
func (c *consoleConn) readErr(err error) error {
	if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
		logger.DebugCF("remote", "Connection dropped", map[string]any{
			"session_id": c.id,
			"error":      err.Error(),
		})
	}
	return io.EOF
}

// Write sends one output frame per call.
func (c *consoleConn) Write(p []byte) (int, error) {
	if err := c.send(TypeOutput, string(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close sends a normal close frame and releases the connection. Safe to
// call more than once.
func (c *consoleConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)

		c.writeMu.Lock()
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"),
			time.Now().Add(writeWait),
		)
		c.writeMu.Unlock()

		err = c.conn.Close()
	})
	return err
}

func decodeLine(data []byte) string {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var in inbound
		if err := json.Unmarshal(data, &in); err == nil {
			return strings.TrimRight(in.Content, "\r\n")
		}
	}
	return strings.TrimRight(string(data), "\r\n")
}
