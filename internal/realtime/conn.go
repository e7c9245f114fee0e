package realtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// Conn is one established push connection.
type Conn interface {
	// Read blocks until the next data frame arrives.
	Read() ([]byte, error)
	// Write sends one text frame.
	Write(data []byte) error
	Close() error
}

// Dialer opens push connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// WSDialer dials websocket connections with gobwas/ws.
type WSDialer struct {
	dialer       ws.Dialer
	writeTimeout time.Duration
}

// NewWSDialer constructs a WSDialer. A non-empty token is sent as a bearer
// Authorization header during the handshake.
func NewWSDialer(dialTimeout, writeTimeout time.Duration, token string) *WSDialer {
	d := ws.Dialer{Timeout: dialTimeout}
	if token != "" {
		h := http.Header{}
		h.Set("Authorization", "Bearer "+token)
		d.Header = ws.HandshakeHeaderHTTP(h)
	}
	return &WSDialer{dialer: d, writeTimeout: writeTimeout}
}

// Dial performs the websocket handshake against url.
func (d *WSDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, br, _, err := d.dialer.Dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	var r io.Reader = conn
	if br != nil {
		r = io.MultiReader(br, conn)
	}
	c := &wsConn{conn: conn, writeTimeout: d.writeTimeout}
	c.rw = struct {
		io.Reader
		io.Writer
	}{r, &lockedWriter{mu: &c.wmu, w: conn}}
	return c, nil
}

type wsConn struct {
	conn         net.Conn
	rw           io.ReadWriter
	wmu          sync.Mutex
	writeTimeout time.Duration
}

func (c *wsConn) Read() ([]byte, error) {
	for {
		data, op, err := wsutil.ReadServerData(c.rw)
		if err != nil {
			return nil, err
		}
		if op == ws.OpText || op == ws.OpBinary {
			return data, nil
		}
	}
}

func (c *wsConn) Write(data []byte) error {
	var buf bytes.Buffer
	if err := wsutil.WriteClientText(&buf, data); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	_, err := c.conn.Write(buf.Bytes())
	return err
}

func (c *wsConn) Close() error {
	var buf bytes.Buffer
	body := ws.NewCloseFrameBody(ws.StatusNormalClosure, "")
	if err := wsutil.WriteClientMessage(&buf, ws.OpClose, body); err == nil {
		c.wmu.Lock()
		_ = c.conn.SetWriteDeadline(time.Now().Add(time.Second))
		_, _ = c.conn.Write(buf.Bytes())
		c.wmu.Unlock()
	}
	return c.conn.Close()
}

type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// cleanClose reports whether err marks an orderly end of the stream rather
// than a failure.
func cleanClose(err error) bool {
	var closed wsutil.ClosedError
	return errors.Is(err, io.EOF) || errors.As(err, &closed)
}
