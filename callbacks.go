package twirc

import (
	"github.com/opd-ai/twirc/irc"
)

// Callback handles one dispatched event. The message is nil only for
// the connect event, which has no wire message behind it. Callbacks run
// inline on the goroutine driving Tick or Loop; a callback that blocks
// stalls the whole connection.
type Callback func(c *Client, m *irc.Message)

// noopCallback keeps every table slot non-nil so dispatch never checks
// for absence.
func noopCallback(*Client, *irc.Message) {}

// callbackTable maps event categories to handlers. Every slot holds a
// valid function at all times.
type callbackTable struct {
	connect         Callback
	welcome         Callback
	globalUserState Callback
	ping            Callback
	join            Callback
	part            Callback
	privmsg         Callback
	action          Callback
	ctcp            Callback
	whisper         Callback
	notice          Callback
	clearChat       Callback
	clearMsg        Callback
	mode            Callback
	names           Callback
	hostTarget      Callback
	roomState       Callback
	userState       Callback
	userNotice      Callback
	reconnect       Callback
	capAck          Callback
	unknown         Callback
}

func newCallbackTable() callbackTable {
	return callbackTable{
		connect:         noopCallback,
		welcome:         noopCallback,
		globalUserState: noopCallback,
		ping:            noopCallback,
		join:            noopCallback,
		part:            noopCallback,
		privmsg:         noopCallback,
		action:          noopCallback,
		ctcp:            noopCallback,
		whisper:         noopCallback,
		notice:          noopCallback,
		clearChat:       noopCallback,
		clearMsg:        noopCallback,
		mode:            noopCallback,
		names:           noopCallback,
		hostTarget:      noopCallback,
		roomState:       noopCallback,
		userState:       noopCallback,
		userNotice:      noopCallback,
		reconnect:       noopCallback,
		capAck:          noopCallback,
		unknown:         noopCallback,
	}
}

// orNoop converts a nil callback into the no-op handler, so setters can
// be used to reset a slot.
func orNoop(cb Callback) Callback {
	if cb == nil {
		return noopCallback
	}
	return cb
}

// OnConnect sets the callback invoked once the connection is
// established and the login sequence has been sent. The message
// argument is nil for this event.
func (c *Client) OnConnect(cb Callback) { c.callbacks.connect = orNoop(cb) }

// OnWelcome sets the callback for the numeric 001 welcome reply, the
// first confirmation that the login succeeded.
func (c *Client) OnWelcome(cb Callback) { c.callbacks.welcome = orNoop(cb) }

// OnGlobalUserState sets the callback for GLOBALUSERSTATE, sent on
// login when the tags capability was acknowledged.
func (c *Client) OnGlobalUserState(cb Callback) { c.callbacks.globalUserState = orNoop(cb) }

// OnPing sets the callback for server PINGs. The engine replies with
// PONG before the callback runs.
func (c *Client) OnPing(cb Callback) { c.callbacks.ping = orNoop(cb) }

// OnJoin sets the callback for users joining a channel.
func (c *Client) OnJoin(cb Callback) { c.callbacks.join = orNoop(cb) }

// OnPart sets the callback for users departing a channel.
func (c *Client) OnPart(cb Callback) { c.callbacks.part = orNoop(cb) }

// OnPrivmsg sets the callback for regular channel chat messages.
func (c *Client) OnPrivmsg(cb Callback) { c.callbacks.privmsg = orNoop(cb) }

// OnAction sets the callback for CTCP ACTION messages (/me). The
// trailing parameter carries the action text with the markers removed.
func (c *Client) OnAction(cb Callback) { c.callbacks.action = orNoop(cb) }

// OnCTCP sets the callback for CTCP messages other than ACTION.
func (c *Client) OnCTCP(cb Callback) { c.callbacks.ctcp = orNoop(cb) }

// OnWhisper sets the callback for WHISPER messages.
func (c *Client) OnWhisper(cb Callback) { c.callbacks.whisper = orNoop(cb) }

// OnNotice sets the callback for server NOTICEs.
func (c *Client) OnNotice(cb Callback) { c.callbacks.notice = orNoop(cb) }

// OnClearChat sets the callback for CLEARCHAT (timeouts and bans).
func (c *Client) OnClearChat(cb Callback) { c.callbacks.clearChat = orNoop(cb) }

// OnClearMsg sets the callback for CLEARMSG (single message removal).
func (c *Client) OnClearMsg(cb Callback) { c.callbacks.clearMsg = orNoop(cb) }

// OnMode sets the callback for MODE (operator grants and removals).
func (c *Client) OnMode(cb Callback) { c.callbacks.mode = orNoop(cb) }

// OnNames sets the callback for the NAMES list replies (353 and 366).
func (c *Client) OnNames(cb Callback) { c.callbacks.names = orNoop(cb) }

// OnHostTarget sets the callback for HOSTTARGET (host mode changes).
func (c *Client) OnHostTarget(cb Callback) { c.callbacks.hostTarget = orNoop(cb) }

// OnRoomState sets the callback for ROOMSTATE (room setting changes).
func (c *Client) OnRoomState(cb Callback) { c.callbacks.roomState = orNoop(cb) }

// OnUserState sets the callback for USERSTATE.
func (c *Client) OnUserState(cb Callback) { c.callbacks.userState = orNoop(cb) }

// OnUserNotice sets the callback for USERNOTICE (subs, raids, rituals).
func (c *Client) OnUserNotice(cb Callback) { c.callbacks.userNotice = orNoop(cb) }

// OnReconnect sets the callback for RECONNECT, the server's request to
// reconnect soon. The engine does not reconnect on its own.
func (c *Client) OnReconnect(cb Callback) { c.callbacks.reconnect = orNoop(cb) }

// OnCapAck sets the callback for CAP replies during capability
// negotiation.
func (c *Client) OnCapAck(cb Callback) { c.callbacks.capAck = orNoop(cb) }

// OnUnknown sets the callback for any command without a dedicated
// category, so no message is silently dropped.
func (c *Client) OnUnknown(cb Callback) { c.callbacks.unknown = orNoop(cb) }
