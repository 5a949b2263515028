package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WebSocket is the Stream implementation for the WebSocket chat
// endpoints (irc-ws.chat.twitch.tv and compatible servers). Each
// WebSocket message carries one or more CR-LF terminated IRC lines, so
// received messages are staged and drained through Recv exactly like
// TCP data.
//
// A gorilla connection must not be read again after a read error: even
// a deadline expiry fails the read side permanently and the next read
// call panics. Incoming messages are therefore pulled by a single
// reader goroutine started when the dial completes and delivered over
// a channel that Wait selects on against its timer, the same shape as
// the asynchronous dial.
type WebSocket struct {
	dialer *websocket.Dialer
	conn   *websocket.Conn
	dialc  chan wsDialResult
	readc  chan wsReadResult
	done   chan struct{}
	stash  []byte
	scheme string
	closed bool
	eof    bool
	failed error
}

type wsDialResult struct {
	conn *websocket.Conn
	err  error
}

type wsReadResult struct {
	data []byte
	err  error
}

// NewWebSocket creates an unconnected WebSocket stream using the
// default dialer and the ws:// scheme.
func NewWebSocket() *WebSocket {
	return &WebSocket{
		dialer: websocket.DefaultDialer,
		scheme: "ws",
		done:   make(chan struct{}),
	}
}

// Connect implements Stream.
func (w *WebSocket) Connect(ctx context.Context, host, port string) error {
	if w.closed {
		return ErrClosed
	}
	if w.dialc != nil || w.conn != nil {
		return ErrAlreadyConnected
	}

	u := url.URL{Scheme: w.scheme, Host: net.JoinHostPort(host, port)}
	logrus.WithFields(logrus.Fields{
		"function": "Connect",
		"url":      u.String(),
	}).Debug("Starting asynchronous WebSocket connect")

	w.dialc = make(chan wsDialResult, 1)
	go func() {
		conn, _, err := w.dialer.DialContext(ctx, u.String(), nil)
		w.dialc <- wsDialResult{conn: conn, err: err}
	}()
	return nil
}

// readLoop pulls messages off the connection until the first read error
// and delivers each outcome to Wait. It is the only goroutine that ever
// reads the gorilla connection.
func (w *WebSocket) readLoop(conn *websocket.Conn, readc chan<- wsReadResult, done <-chan struct{}) {
	for {
		_, data, err := conn.ReadMessage()
		select {
		case readc <- wsReadResult{data: data, err: err}:
		case <-done:
			return
		}
		if err != nil {
			return
		}
	}
}

// Wait implements Stream.
func (w *WebSocket) Wait(timeout time.Duration) (Readiness, error) {
	if w.closed {
		return 0, ErrClosed
	}

	if w.conn == nil {
		if w.dialc == nil {
			return 0, ErrNotConnected
		}
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case res := <-w.dialc:
			if res.err != nil {
				return 0, classifyDialError(res.err)
			}
			w.conn = res.conn
			w.readc = make(chan wsReadResult, 1)
			go w.readLoop(w.conn, w.readc, w.done)
			return Writable, nil
		case <-timer.C:
			return 0, nil
		}
	}

	if len(w.stash) > 0 {
		return Readable, nil
	}
	if w.eof {
		return Hangup, nil
	}
	if w.failed != nil {
		return 0, w.failed
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case res := <-w.readc:
		return w.consume(res)
	case <-timer.C:
		return 0, nil
	}
}

// consume folds one reader outcome into the stream state.
func (w *WebSocket) consume(res wsReadResult) (Readiness, error) {
	if res.err != nil {
		if isWebSocketHangup(res.err) {
			w.eof = true
			return Hangup, nil
		}
		if errors.Is(res.err, net.ErrClosed) {
			w.failed = ErrClosed
			return 0, ErrClosed
		}
		w.failed = res.err
		return 0, res.err
	}
	w.stash = append(w.stash, res.data...)
	return Readable, nil
}

// Send implements Stream. Outbound lines go out as one text message.
func (w *WebSocket) Send(p []byte) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	if w.conn == nil {
		return 0, ErrNotConnected
	}
	if err := w.conn.SetWriteDeadline(time.Now().Add(sendTimeout)); err != nil {
		return 0, err
	}
	if err := w.conn.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Recv implements Stream. Staged bytes are drained first; after that
// the reader channel is polled without blocking, so the call itself
// never touches the connection.
func (w *WebSocket) Recv(p []byte) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	if w.conn == nil {
		return 0, ErrNotConnected
	}

	if len(w.stash) > 0 {
		return w.drainStash(p), nil
	}
	if w.eof {
		return 0, io.EOF
	}
	if w.failed != nil {
		return 0, w.failed
	}

	select {
	case res := <-w.readc:
		if _, err := w.consume(res); err != nil {
			return 0, err
		}
		if w.eof {
			return 0, io.EOF
		}
		return w.drainStash(p), nil
	default:
		return 0, ErrWouldBlock
	}
}

// drainStash moves staged bytes into p.
func (w *WebSocket) drainStash(p []byte) int {
	n := copy(p, w.stash)
	w.stash = w.stash[n:]
	if len(w.stash) == 0 {
		w.stash = nil
	}
	return n
}

// Close implements Stream.
func (w *WebSocket) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	close(w.done)
	if w.conn == nil {
		return nil
	}
	// Best effort close frame; the server may already be gone.
	deadline := time.Now().Add(time.Second)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := w.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil &&
		!errors.Is(err, websocket.ErrCloseSent) {
		logrus.WithFields(logrus.Fields{
			"function": "Close",
			"error":    err,
		}).Debug("WebSocket close frame not delivered")
	}
	return w.conn.Close()
}

// isWebSocketHangup reports whether err means the peer closed the
// WebSocket, cleanly or not.
func isWebSocketHangup(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var closeErr *websocket.CloseError
	return errors.As(err, &closeErr)
}

// Ensure both implementations satisfy the interface.
var (
	_ Stream = (*TCP)(nil)
	_ Stream = (*WebSocket)(nil)
)
