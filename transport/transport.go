// Package transport implements the byte-stream transports the client
// engine reads Twitch IRC from: plain TCP and the WebSocket endpoints.
//
// A Stream hides the connection behind a readiness-driven contract: the
// caller waits for one readiness batch at a time with a bounded timeout,
// then drains available data with non-blocking reads. All processing
// stays on the caller's goroutine.
//
// Example:
//
//	s := transport.NewTCP()
//	if err := s.Connect(ctx, "irc.chat.twitch.tv", "6667"); err != nil {
//	    log.Fatal(err)
//	}
//	for {
//	    ready, err := s.Wait(time.Second)
//	    ...
//	}
package transport

import (
	"context"
	"errors"
	"time"
)

// Readiness is a bit set of conditions observed by a single Wait call.
type Readiness uint8

const (
	// Readable indicates received data is available to Recv.
	Readable Readiness = 1 << iota
	// Writable indicates the asynchronous connect completed.
	Writable
	// Hangup indicates the peer closed the connection.
	Hangup
)

var (
	// ErrWouldBlock is returned by Recv when no data is available right
	// now. It is not a failure.
	ErrWouldBlock = errors.New("transport: operation would block")

	// ErrNotConnected is returned when Send or Recv is called before the
	// connect has completed or after the stream was closed.
	ErrNotConnected = errors.New("transport: not connected")

	// ErrUnresolved wraps connect failures caused by the host or port
	// not resolving to an address. Terminal for the attempt.
	ErrUnresolved = errors.New("transport: address could not be resolved")

	// ErrAlreadyConnected is returned by Connect on a stream that is
	// connecting or connected.
	ErrAlreadyConnected = errors.New("transport: already connected")

	// ErrClosed is returned once the stream has been closed locally.
	ErrClosed = errors.New("transport: closed")
)

// Stream is a byte-stream transport driven by bounded readiness waits.
//
// Implementations are meant for a single-threaded caller: exactly one
// goroutine calls Wait, Send and Recv. Connect may complete
// asynchronously; completion is reported as a Writable readiness, once
// per connection attempt.
type Stream interface {
	// Connect starts connecting to host:port. It returns quickly; the
	// established connection is signaled by a Writable readiness from
	// Wait. Resolution failures may surface here or from Wait, wrapped
	// in ErrUnresolved.
	Connect(ctx context.Context, host, port string) error

	// Wait blocks for at most timeout for one readiness batch. A zero
	// Readiness with a nil error means the timeout elapsed quietly.
	// A non-nil error is terminal for the connection.
	Wait(timeout time.Duration) (Readiness, error)

	// Send writes p to the connection and returns the number of bytes
	// written.
	Send(p []byte) (int, error)

	// Recv fills p with received data without blocking. It returns
	// ErrWouldBlock when nothing is pending and io.EOF once the peer
	// has closed the connection.
	Recv(p []byte) (int, error)

	// Close tears the connection down. Safe to call at any time.
	Close() error
}
