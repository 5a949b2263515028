package twirc

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/twirc/irc"
	"github.com/opd-ai/twirc/transport"
)

// Default connection endpoint for the Twitch chat servers.
const (
	DefaultHost = "irc.chat.twitch.tv"
	DefaultPort = "6667"
)

// Capability identifiers requested during the handshake.
const (
	CapTags       = "twitch.tv/tags"
	CapMembership = "twitch.tv/membership"
	CapCommands   = "twitch.tv/commands"
)

var (
	// ErrNotConnected is returned by operations that need an
	// established connection.
	ErrNotConnected = errors.New("twirc: not connected")

	// ErrAlreadyConnected is returned by Connect unless the client is
	// disconnected.
	ErrAlreadyConnected = errors.New("twirc: already connected")

	// ErrConnectionLost is returned from Tick and Loop when the peer
	// hangs up or the transport fails.
	ErrConnectionLost = errors.New("twirc: connection lost")
)

// Status is the connection state as a set of flags. The zero value is
// disconnected, which excludes all other flags; Authenticating and
// Authenticated are only meaningful together with Connected.
type Status uint8

const (
	// StatusConnecting is set between Connect and the transport
	// reporting the connection as established.
	StatusConnecting Status = 1 << iota
	// StatusConnected is set once the transport connection is up.
	StatusConnected
	// StatusAuthenticating is set once the login sequence has been
	// sent.
	StatusAuthenticating
	// StatusAuthenticated is set once the server confirmed the login.
	StatusAuthenticated
)

// StatusDisconnected is the zero status: no connection, no pending
// attempt.
const StatusDisconnected Status = 0

// Options contains configuration for creating a Client.
type Options struct {
	// Host and Port of the chat server.
	Host string
	Port string

	// Nick is the login name. Pass is the OAuth token; when it lacks
	// the "oauth:" prefix the prefix is added. An empty Pass skips the
	// PASS command (anonymous login).
	Nick string
	Pass string

	// Capabilities are requested one CAP REQ per entry immediately
	// after the connection is established, before the credentials.
	Capabilities []string

	// RecvBufferSize is the size of the buffer a single transport read
	// fills. Defaults to irc.MaxMessageSize.
	RecvBufferSize int

	// MetricsRegisterer receives the client's counters. When nil a
	// private registry is used, keeping multiple clients from
	// colliding.
	MetricsRegisterer prometheus.Registerer

	// NewTransport constructs the transport for the next connection
	// attempt. Defaults to plain TCP; use transport.NewWebSocket for
	// the WebSocket chat endpoints.
	NewTransport func() transport.Stream
}

// NewOptions creates Options with the defaults for the Twitch chat
// servers: plain TCP and the tags, membership and commands
// capabilities.
func NewOptions() *Options {
	return &Options{
		Host:           DefaultHost,
		Port:           DefaultPort,
		Capabilities:   []string{CapTags, CapMembership, CapCommands},
		RecvBufferSize: irc.MaxMessageSize,
		NewTransport: func() transport.Stream {
			return transport.NewTCP()
		},
	}
}

// Client is one connection to a chat server. It is not safe for
// concurrent use: exactly one goroutine drives Tick or Loop, and all
// callbacks run inline on that goroutine. Stop is the one exception
// and may be called from any goroutine.
type Client struct {
	opts      *Options
	stream    transport.Stream
	status    Status
	running   atomic.Bool
	backlog   *irc.Buffer
	callbacks callbackTable
	metrics   *metrics
	recvBuf   []byte

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Client with the given options. A nil options value uses
// NewOptions defaults.
func New(options *Options) (*Client, error) {
	if options == nil {
		options = NewOptions()
	}
	if options.Nick == "" {
		return nil, errors.New("twirc: options require a nick")
	}
	if options.RecvBufferSize <= 0 {
		options.RecvBufferSize = irc.MaxMessageSize
	}
	if options.NewTransport == nil {
		options.NewTransport = func() transport.Stream {
			return transport.NewTCP()
		}
	}

	registerer := options.MetricsRegisterer
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		opts:      options,
		backlog:   irc.NewBuffer(),
		callbacks: newCallbackTable(),
		metrics:   newMetrics(registerer),
		recvBuf:   make([]byte, options.RecvBufferSize),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Status returns the current connection status flags.
func (c *Client) Status() Status {
	return c.status
}

// IsConnected reports whether the transport connection is established.
func (c *Client) IsConnected() bool {
	return c.status&StatusConnected != 0
}

// IsAuthenticated reports whether the server has confirmed the login.
func (c *Client) IsAuthenticated() bool {
	return c.status&StatusAuthenticated != 0
}

// IsRunning reports whether Loop is active.
func (c *Client) IsRunning() bool {
	return c.running.Load()
}

// Connect starts a connection attempt to the configured server. Valid
// only while disconnected. The connection is not usable when Connect
// returns; progress is made by Tick or Loop, and completion is signaled
// through the connect and welcome callbacks.
func (c *Client) Connect(ctx context.Context) error {
	if c.status != StatusDisconnected {
		return ErrAlreadyConnected
	}
	if ctx == nil {
		ctx = c.ctx
	}

	logrus.WithFields(logrus.Fields{
		"function": "Connect",
		"host":     c.opts.Host,
		"port":     c.opts.Port,
		"nick":     c.opts.Nick,
	}).Info("Connecting to chat server")

	stream := c.opts.NewTransport()
	if err := stream.Connect(ctx, c.opts.Host, c.opts.Port); err != nil {
		return fmt.Errorf("twirc: connect: %w", err)
	}
	c.stream = stream
	c.status = StatusConnecting
	return nil
}

// Tick waits for at most timeout for transport readiness and processes
// one readiness batch: the connect completion, all currently available
// incoming data, or the hangup. Every complete message received is
// decoded and dispatched before Tick returns. A quiet timeout is not an
// error.
func (c *Client) Tick(timeout time.Duration) error {
	if c.status == StatusDisconnected || c.stream == nil {
		return ErrNotConnected
	}

	ready, err := c.stream.Wait(timeout)
	if err != nil {
		c.teardown()
		return fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}

	if ready&transport.Writable != 0 {
		if err := c.handleConnected(); err != nil {
			c.teardown()
			return err
		}
	}
	if ready&transport.Readable != 0 {
		if err := c.drainReads(); err != nil {
			c.teardown()
			return fmt.Errorf("%w: %v", ErrConnectionLost, err)
		}
	}
	if ready&transport.Hangup != 0 {
		logrus.WithField("function", "Tick").Info("Peer closed the connection")
		c.teardown()
		return ErrConnectionLost
	}
	return nil
}

// Loop drives Tick until the connection ends or Stop is called. Each
// tick waits at most timeout. Returns nil after Stop, otherwise the
// error that ended the connection.
func (c *Client) Loop(timeout time.Duration) error {
	c.running.Store(true)
	for c.running.Load() {
		if err := c.Tick(timeout); err != nil {
			c.running.Store(false)
			return err
		}
	}
	return nil
}

// Stop requests Loop to return. It takes effect at the next tick
// boundary; a tick in progress completes normally. Unlike the rest of
// the client, Stop is safe to call from any goroutine, so a signal
// handler can end the loop.
func (c *Client) Stop() {
	c.running.Store(false)
}

// Disconnect sends QUIT (best effort), closes the transport and marks
// the client disconnected. No automatic reconnection takes place.
func (c *Client) Disconnect() error {
	if c.status == StatusDisconnected {
		return nil
	}
	// The server closing before reading the QUIT is fine.
	_ = c.Quit()

	var err error
	if c.stream != nil {
		err = c.stream.Close()
	}
	c.status = StatusDisconnected
	c.running.Store(false)

	logrus.WithField("function", "Disconnect").Info("Disconnected")
	return err
}

// Kill disconnects and releases all resources. The client must not be
// used afterwards.
func (c *Client) Kill() {
	_ = c.Disconnect()
	c.cancel()
}

// handleConnected performs the transition out of the connecting state:
// capability negotiation followed by credential submission. A writable
// edge on an already established connection is a no-op, so the
// transition happens exactly once per attempt.
func (c *Client) handleConnected() error {
	if c.status&StatusConnecting == 0 {
		return nil
	}
	// Clear only Connecting; leave unrelated flags alone.
	c.status &^= StatusConnecting
	c.status |= StatusConnected

	logrus.WithFields(logrus.Fields{
		"function": "handleConnected",
		"host":     c.opts.Host,
	}).Info("Connection established, requesting capabilities")

	for _, cap := range c.opts.Capabilities {
		if err := c.CapReq(cap); err != nil {
			return err
		}
	}
	if err := c.authenticate(); err != nil {
		return err
	}
	c.status |= StatusAuthenticating

	c.callbacks.connect(c, nil)
	return nil
}

// authenticate submits the credentials. The server's confirmation
// arrives later as 001 or GLOBALUSERSTATE.
func (c *Client) authenticate() error {
	if c.opts.Pass != "" {
		if err := c.Pass(c.opts.Pass); err != nil {
			return err
		}
	}
	return c.Nick(c.opts.Nick)
}

// drainReads pulls data off the transport until it reports would-block,
// feeding every read through the reassembly buffer and dispatching each
// complete message in arrival order.
func (c *Client) drainReads() error {
	for {
		n, err := c.stream.Recv(c.recvBuf)
		if n > 0 {
			c.backlog.Append(c.recvBuf[:n])
			if c.backlog.Len() > irc.MaxBacklog {
				c.metrics.backlogOverflowsTotal.Inc()
				logrus.WithFields(logrus.Fields{
					"function": "drainReads",
					"backlog":  c.backlog.Len(),
				}).Warn("Reassembly backlog exceeds expected bound; upstream framing may be desynchronized")
			}
			for {
				line, ok := c.backlog.Next()
				if !ok {
					break
				}
				c.dispatch(line)
			}
		}
		if err != nil {
			if errors.Is(err, transport.ErrWouldBlock) {
				return nil
			}
			return err
		}
	}
}

// teardown forces the disconnected state after a transport fault or
// hangup.
func (c *Client) teardown() {
	if c.stream != nil {
		_ = c.stream.Close()
	}
	c.status = StatusDisconnected
	c.running.Store(false)
}
