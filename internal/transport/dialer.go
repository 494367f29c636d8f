package transport

import (
	"context"
	"net/http"
	"sync"
	"time"

	"main/internal/session"
	"main/pkg/exception"

	"github.com/gorilla/websocket"
	"github.com/yanun0323/errors"
)

// CloseNormal is the close code for an application-initiated closure.
const CloseNormal = websocket.CloseNormalClosure

const defaultHandshakeTimeout = 10 * time.Second

// Conn is a live websocket connection.
// Read blocks until a data frame arrives or a terminal error ends the
// connection; control frames are handled underneath.
type Conn interface {
	Read() ([]byte, error)
	Write(payload []byte) error
	Close(code int, reason string) error
}

// Dialer establishes new connections for an account.
type Dialer interface {
	Dial(ctx context.Context, creds session.Credentials) (Conn, error)
}

// WebSocketDialer dials the trading event endpoint over websocket.
type WebSocketDialer struct {
	Endpoint         Endpoint
	HandshakeTimeout time.Duration
}

func (d *WebSocketDialer) Dial(ctx context.Context, creds session.Credentials) (Conn, error) {
	if d == nil {
		return nil, exception.ErrNilInstance
	}

	timeout := d.HandshakeTimeout
	if timeout <= 0 {
		timeout = defaultHandshakeTimeout
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
	}

	conn, resp, err := dialer.DialContext(ctx, d.Endpoint.URL(creds), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, errors.Wrap(err, "dial websocket")
	}
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsConn) Read() ([]byte, error) {
	for {
		msgType, payload, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		return payload, nil
	}
}

func (c *wsConn) Write(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *wsConn) Close(code int, reason string) error {
	c.writeMu.Lock()
	deadline := time.Now().Add(time.Second)
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	c.writeMu.Unlock()
	return c.conn.Close()
}

// IsNormalClosure reports whether err represents a clean close initiated by
// either side, as opposed to an abnormal drop that should trigger a retry.
func IsNormalClosure(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
