package twirc

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/twirc/irc"
	"github.com/opd-ai/twirc/transport"
)

// waitResult is one scripted answer for mockStream.Wait.
type waitResult struct {
	ready transport.Readiness
	err   error
}

// mockStream scripts transport behavior so client tests exercise the
// engine without sockets. Wait pops from waits (quiet timeout once the
// script runs out), Recv pops from reads (would-block once empty), and
// every Send is recorded.
type mockStream struct {
	waits  []waitResult
	reads  [][]byte
	sent   []string
	closed bool
}

func (m *mockStream) Connect(ctx context.Context, host, port string) error {
	return nil
}

func (m *mockStream) Wait(timeout time.Duration) (transport.Readiness, error) {
	if len(m.waits) == 0 {
		return 0, nil
	}
	w := m.waits[0]
	m.waits = m.waits[1:]
	return w.ready, w.err
}

func (m *mockStream) Send(p []byte) (int, error) {
	m.sent = append(m.sent, string(p))
	return len(p), nil
}

func (m *mockStream) Recv(p []byte) (int, error) {
	if len(m.reads) == 0 {
		return 0, transport.ErrWouldBlock
	}
	chunk := m.reads[0]
	n := copy(p, chunk)
	if n < len(chunk) {
		m.reads[0] = chunk[n:]
	} else {
		m.reads = m.reads[1:]
	}
	return n, nil
}

func (m *mockStream) Close() error {
	m.closed = true
	return nil
}

// newTestClient creates a client backed by a mock transport and starts a
// connection attempt, leaving the client in the connecting state.
func newTestClient(t *testing.T, configure func(*Options)) (*Client, *mockStream) {
	t.Helper()

	stream := &mockStream{}
	opts := NewOptions()
	opts.Nick = "botnick"
	opts.Pass = "secret"
	opts.NewTransport = func() transport.Stream { return stream }
	if configure != nil {
		configure(opts)
	}

	client, err := New(opts)
	require.NoError(t, err)
	require.NoError(t, client.Connect(context.Background()))
	return client, stream
}

// completeHandshake drives the client through the writable edge and
// clears the recorded login traffic.
func completeHandshake(t *testing.T, client *Client, stream *mockStream) {
	t.Helper()

	stream.waits = append(stream.waits, waitResult{ready: transport.Writable})
	require.NoError(t, client.Tick(10*time.Millisecond))
	require.True(t, client.IsConnected())
	stream.sent = nil
}

// deliver queues one readable edge carrying the given raw bytes and
// processes it.
func deliver(t *testing.T, client *Client, stream *mockStream, raw string) {
	t.Helper()

	stream.waits = append(stream.waits, waitResult{ready: transport.Readable})
	stream.reads = append(stream.reads, []byte(raw))
	require.NoError(t, client.Tick(10*time.Millisecond))
}

func TestNew(t *testing.T) {
	t.Run("RequiresNick", func(t *testing.T) {
		_, err := New(&Options{})
		assert.Error(t, err)
	})

	t.Run("DefaultsApplied", func(t *testing.T) {
		opts := NewOptions()
		opts.Nick = "botnick"
		client, err := New(opts)
		require.NoError(t, err)
		assert.Equal(t, StatusDisconnected, client.Status())
		assert.False(t, client.IsConnected())
		assert.False(t, client.IsAuthenticated())
	})
}

func TestConnectLifecycle(t *testing.T) {
	t.Run("ConnectSetsConnecting", func(t *testing.T) {
		client, _ := newTestClient(t, nil)
		assert.Equal(t, StatusConnecting, client.Status())
	})

	t.Run("DoubleConnectRejected", func(t *testing.T) {
		client, _ := newTestClient(t, nil)
		err := client.Connect(context.Background())
		assert.ErrorIs(t, err, ErrAlreadyConnected)
	})

	t.Run("TickRequiresConnection", func(t *testing.T) {
		opts := NewOptions()
		opts.Nick = "botnick"
		client, err := New(opts)
		require.NoError(t, err)
		assert.ErrorIs(t, client.Tick(time.Millisecond), ErrNotConnected)
	})
}

func TestHandshake(t *testing.T) {
	t.Run("OrderAndStatus", func(t *testing.T) {
		client, stream := newTestClient(t, nil)

		stream.waits = append(stream.waits, waitResult{ready: transport.Writable})
		require.NoError(t, client.Tick(10*time.Millisecond))

		assert.Equal(t, []string{
			"CAP REQ :twitch.tv/tags\r\n",
			"CAP REQ :twitch.tv/membership\r\n",
			"CAP REQ :twitch.tv/commands\r\n",
			"PASS oauth:secret\r\n",
			"NICK botnick\r\n",
		}, stream.sent)
		assert.Equal(t, StatusConnected|StatusAuthenticating, client.Status())
		assert.True(t, client.IsConnected())
		assert.False(t, client.IsAuthenticated())
	})

	t.Run("ConnectCallbackFires", func(t *testing.T) {
		client, stream := newTestClient(t, nil)

		fired := false
		client.OnConnect(func(c *Client, m *irc.Message) {
			fired = true
			assert.Nil(t, m)
			assert.True(t, c.IsConnected())
		})

		stream.waits = append(stream.waits, waitResult{ready: transport.Writable})
		require.NoError(t, client.Tick(10*time.Millisecond))
		assert.True(t, fired)
	})

	t.Run("SecondWritableEdgeIsNoop", func(t *testing.T) {
		client, stream := newTestClient(t, nil)
		completeHandshake(t, client, stream)

		stream.waits = append(stream.waits, waitResult{ready: transport.Writable})
		require.NoError(t, client.Tick(10*time.Millisecond))
		assert.Empty(t, stream.sent)
		assert.Equal(t, StatusConnected|StatusAuthenticating, client.Status())
	})

	t.Run("AnonymousLoginSkipsPass", func(t *testing.T) {
		client, stream := newTestClient(t, func(opts *Options) {
			opts.Nick = "justinfan123"
			opts.Pass = ""
			opts.Capabilities = nil
		})

		stream.waits = append(stream.waits, waitResult{ready: transport.Writable})
		require.NoError(t, client.Tick(10*time.Millisecond))
		assert.Equal(t, []string{"NICK justinfan123\r\n"}, stream.sent)
	})
}

func TestLoginConfirmation(t *testing.T) {
	t.Run("Welcome", func(t *testing.T) {
		client, stream := newTestClient(t, nil)
		completeHandshake(t, client, stream)

		var welcomed *irc.Message
		client.OnWelcome(func(c *Client, m *irc.Message) { welcomed = m })

		deliver(t, client, stream, ":tmi.example 001 botnick :Welcome, GLHF!\r\n")
		require.NotNil(t, welcomed)
		assert.Equal(t, "001", welcomed.Command)
		assert.True(t, client.IsAuthenticated())
		assert.True(t, client.IsConnected())
	})

	t.Run("GlobalUserState", func(t *testing.T) {
		client, stream := newTestClient(t, nil)
		completeHandshake(t, client, stream)

		fired := false
		client.OnGlobalUserState(func(c *Client, m *irc.Message) { fired = true })

		deliver(t, client, stream, "@badges=;color=#FF0000 :tmi.example GLOBALUSERSTATE\r\n")
		assert.True(t, fired)
		assert.True(t, client.IsAuthenticated())
	})
}

func TestPingAutoReply(t *testing.T) {
	client, stream := newTestClient(t, nil)
	completeHandshake(t, client, stream)

	var sentAtCallback []string
	client.OnPing(func(c *Client, m *irc.Message) {
		sentAtCallback = append([]string(nil), stream.sent...)
	})

	deliver(t, client, stream, "PING :tmi.example\r\n")
	// The reply must already be on the wire when the callback runs.
	assert.Equal(t, []string{"PONG :tmi.example\r\n"}, sentAtCallback)
}

func TestFragmentedDelivery(t *testing.T) {
	client, stream := newTestClient(t, nil)
	completeHandshake(t, client, stream)

	var got []string
	client.OnPrivmsg(func(c *Client, m *irc.Message) {
		got = append(got, m.Param(1))
	})

	// One message split across reads, coalesced with the start of the
	// next. A single tick drains all available data.
	stream.waits = append(stream.waits, waitResult{ready: transport.Readable})
	stream.reads = append(stream.reads,
		[]byte(":a!a@a PRIVMSG #chan :first"),
		[]byte(" half\r\n:b!b@b PRIVMSG #chan "),
		[]byte(":second\r\n"),
	)
	require.NoError(t, client.Tick(10*time.Millisecond))

	assert.Equal(t, []string{"first half", "second"}, got)
}

func TestMalformedMessageCounted(t *testing.T) {
	client, stream := newTestClient(t, nil)
	completeHandshake(t, client, stream)

	fired := false
	client.OnUnknown(func(c *Client, m *irc.Message) { fired = true })

	deliver(t, client, stream, "\r\n")
	assert.False(t, fired, "empty lines must not reach any callback")
	assert.Equal(t, float64(1), testutil.ToFloat64(client.metrics.malformedTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(client.metrics.messagesTotal))
}

func TestHangup(t *testing.T) {
	t.Run("TickReportsConnectionLost", func(t *testing.T) {
		client, stream := newTestClient(t, nil)
		completeHandshake(t, client, stream)

		stream.waits = append(stream.waits, waitResult{ready: transport.Hangup})
		err := client.Tick(10 * time.Millisecond)
		assert.ErrorIs(t, err, ErrConnectionLost)
		assert.Equal(t, StatusDisconnected, client.Status())
		assert.True(t, stream.closed)
	})

	t.Run("DataBeforeHangupDispatched", func(t *testing.T) {
		client, stream := newTestClient(t, nil)
		completeHandshake(t, client, stream)

		var got string
		client.OnPrivmsg(func(c *Client, m *irc.Message) { got = m.Param(1) })

		stream.waits = append(stream.waits, waitResult{ready: transport.Readable | transport.Hangup})
		stream.reads = append(stream.reads, []byte(":a!a@a PRIVMSG #chan :bye\r\n"))
		err := client.Tick(10 * time.Millisecond)
		assert.ErrorIs(t, err, ErrConnectionLost)
		assert.Equal(t, "bye", got)
	})
}

func TestLoop(t *testing.T) {
	t.Run("StopEndsLoop", func(t *testing.T) {
		client, stream := newTestClient(t, nil)
		completeHandshake(t, client, stream)

		client.OnPing(func(c *Client, m *irc.Message) { c.Stop() })

		stream.waits = append(stream.waits, waitResult{ready: transport.Readable})
		stream.reads = append(stream.reads, []byte("PING :tmi.example\r\n"))

		assert.NoError(t, client.Loop(10*time.Millisecond))
		assert.False(t, client.IsRunning())
	})

	t.Run("StopFromAnotherGoroutine", func(t *testing.T) {
		client, stream := newTestClient(t, nil)
		completeHandshake(t, client, stream)

		done := make(chan error, 1)
		go func() { done <- client.Loop(time.Millisecond) }()

		// The signal handler path: stop the loop from outside the
		// goroutine driving it.
		require.Eventually(t, client.IsRunning, 2*time.Second, time.Millisecond)
		client.Stop()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("Loop did not return after Stop")
		}
	})

	t.Run("HangupEndsLoop", func(t *testing.T) {
		client, stream := newTestClient(t, nil)
		completeHandshake(t, client, stream)

		stream.waits = append(stream.waits, waitResult{ready: transport.Hangup})
		assert.ErrorIs(t, client.Loop(10*time.Millisecond), ErrConnectionLost)
		assert.False(t, client.IsRunning())
	})
}

func TestDisconnect(t *testing.T) {
	client, stream := newTestClient(t, nil)
	completeHandshake(t, client, stream)

	require.NoError(t, client.Disconnect())
	assert.Equal(t, []string{"QUIT\r\n"}, stream.sent)
	assert.Equal(t, StatusDisconnected, client.Status())
	assert.True(t, stream.closed)

	// Disconnecting twice is harmless.
	assert.NoError(t, client.Disconnect())
}
