package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// readChunkSize is the size of the staging buffer Wait reads into. One
// read of this size can hold the longest expected IRC message.
const readChunkSize = 2048

// sendTimeout bounds a single Send call so a stalled peer cannot block
// the engine's only goroutine indefinitely.
const sendTimeout = 5 * time.Second

// dialResult carries the outcome of the asynchronous connect.
type dialResult struct {
	conn net.Conn
	err  error
}

// TCP is the plain TCP implementation of Stream.
//
// The connect runs on a helper goroutine so that Connect returns
// immediately; its completion is delivered through Wait as a Writable
// readiness. Everything after that happens on the caller's goroutine,
// using read deadlines to implement the bounded wait and the
// non-blocking Recv.
type TCP struct {
	conn   net.Conn
	dialc  chan dialResult
	stash  []byte
	buf    [readChunkSize]byte
	closed bool
	eof    bool
}

// NewTCP creates an unconnected TCP stream.
func NewTCP() *TCP {
	return &TCP{}
}

// Connect implements Stream. The host is resolved synchronously so that
// resolution failures are terminal right away; the dial itself runs in
// the background.
func (t *TCP) Connect(ctx context.Context, host, port string) error {
	if t.closed {
		return ErrClosed
	}
	if t.dialc != nil || t.conn != nil {
		return ErrAlreadyConnected
	}

	addrs, err := net.DefaultResolver.LookupHost(ctx, host)
	if err != nil || len(addrs) == 0 {
		return fmt.Errorf("%w: %s: %v", ErrUnresolved, host, err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Connect",
		"host":     host,
		"port":     port,
	}).Debug("Starting asynchronous TCP connect")

	t.dialc = make(chan dialResult, 1)
	go func() {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
		t.dialc <- dialResult{conn: conn, err: err}
	}()
	return nil
}

// Wait implements Stream.
func (t *TCP) Wait(timeout time.Duration) (Readiness, error) {
	if t.closed {
		return 0, ErrClosed
	}

	// Connection attempt still outstanding: the only event that can
	// happen is the dial completing.
	if t.conn == nil {
		if t.dialc == nil {
			return 0, ErrNotConnected
		}
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case res := <-t.dialc:
			if res.err != nil {
				return 0, classifyDialError(res.err)
			}
			t.conn = res.conn
			return Writable, nil
		case <-timer.C:
			return 0, nil
		}
	}

	if len(t.stash) > 0 {
		return Readable, nil
	}
	if t.eof {
		return Hangup, nil
	}

	// Bounded wait for incoming data. Bytes pulled here are staged for
	// Recv so Wait never swallows data.
	if err := t.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, err
	}
	n, err := t.conn.Read(t.buf[:])
	if n > 0 {
		t.stash = append(t.stash, t.buf[:n]...)
	}
	if err != nil {
		if isTimeout(err) {
			if n > 0 {
				return Readable, nil
			}
			return 0, nil
		}
		if errors.Is(err, net.ErrClosed) {
			return 0, ErrClosed
		}
		// EOF and connection resets both mean the peer is gone. Let the
		// staged bytes drain first.
		t.eof = true
		if n > 0 {
			return Readable, nil
		}
		return Hangup, nil
	}
	return Readable, nil
}

// Send implements Stream.
func (t *TCP) Send(p []byte) (int, error) {
	if t.closed {
		return 0, ErrClosed
	}
	if t.conn == nil {
		return 0, ErrNotConnected
	}
	if err := t.conn.SetWriteDeadline(time.Now().Add(sendTimeout)); err != nil {
		return 0, err
	}
	return t.conn.Write(p)
}

// Recv implements Stream. Staged bytes from Wait are drained first;
// after that the socket is polled with an immediate deadline so the
// call never blocks.
func (t *TCP) Recv(p []byte) (int, error) {
	if t.closed {
		return 0, ErrClosed
	}
	if t.conn == nil {
		return 0, ErrNotConnected
	}

	if len(t.stash) > 0 {
		n := copy(p, t.stash)
		t.stash = t.stash[n:]
		if len(t.stash) == 0 {
			t.stash = nil
		}
		return n, nil
	}
	if t.eof {
		return 0, io.EOF
	}

	if err := t.conn.SetReadDeadline(time.Now()); err != nil {
		return 0, err
	}
	n, err := t.conn.Read(p)
	if err != nil {
		if isTimeout(err) {
			if n > 0 {
				return n, nil
			}
			return 0, ErrWouldBlock
		}
		if n > 0 {
			t.eof = true
			return n, nil
		}
		return 0, err
	}
	return n, nil
}

// Close implements Stream.
func (t *TCP) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	if t.conn != nil {
		return t.conn.Close()
	}
	return nil
}

// classifyDialError maps resolution failures to ErrUnresolved and keeps
// everything else as-is for the caller to inspect.
func classifyDialError(err error) error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Errorf("%w: %v", ErrUnresolved, err)
	}
	return err
}

// isTimeout reports whether err is a deadline expiry rather than a real
// connection fault.
func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
