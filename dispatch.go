package twirc

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/twirc/irc"
)

// ctcpMarker delimits a CTCP payload at both ends of a PRIVMSG text.
const ctcpMarker = '\x01'

// dispatch decodes one complete message and routes it: the internal
// state action first (login confirmation, PONG reply), then exactly one
// callback. The channel field is derived here for channel-scoped
// commands, since which parameter names the channel depends on the
// command.
func (c *Client) dispatch(line string) {
	logrus.WithFields(logrus.Fields{
		"function": "dispatch",
		"raw":      line,
	}).Debug("Message received")

	m := irc.ParseMessage(line)
	c.metrics.messagesTotal.Inc()

	if m.Command == "" {
		// Degenerate decode; counted so persistent malformation is
		// visible instead of silently desynchronizing.
		c.metrics.malformedTotal.Inc()
		logrus.WithFields(logrus.Fields{
			"function": "dispatch",
			"raw":      line,
		}).Debug("Discarding malformed message")
		return
	}

	switch m.Command {
	case "001":
		c.markAuthenticated()
		c.callbacks.welcome(c, m)
	case "GLOBALUSERSTATE":
		c.markAuthenticated()
		c.callbacks.globalUserState(c, m)
	case "PING":
		if err := c.Pong(m.Param(0)); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "dispatch",
				"error":    err,
			}).Warn("PONG reply failed")
		}
		c.callbacks.ping(c, m)
	case "JOIN":
		m.Channel = m.Param(0)
		c.callbacks.join(c, m)
	case "PART":
		m.Channel = m.Param(0)
		c.callbacks.part(c, m)
	case "PRIVMSG":
		c.dispatchPrivmsg(m)
	case "WHISPER":
		c.callbacks.whisper(c, m)
	case "NOTICE":
		m.Channel = m.Param(0)
		c.callbacks.notice(c, m)
	case "CLEARCHAT":
		m.Channel = m.Param(0)
		c.callbacks.clearChat(c, m)
	case "CLEARMSG":
		m.Channel = m.Param(0)
		c.callbacks.clearMsg(c, m)
	case "MODE":
		m.Channel = m.Param(0)
		c.callbacks.mode(c, m)
	case "353":
		// :server 353 <nick> = #<channel> :<names>
		m.Channel = m.Param(2)
		c.callbacks.names(c, m)
	case "366":
		// :server 366 <nick> #<channel> :End of /NAMES list
		m.Channel = m.Param(1)
		c.callbacks.names(c, m)
	case "HOSTTARGET":
		m.Channel = m.Param(0)
		c.callbacks.hostTarget(c, m)
	case "ROOMSTATE":
		m.Channel = m.Param(0)
		c.callbacks.roomState(c, m)
	case "USERSTATE":
		m.Channel = m.Param(0)
		c.callbacks.userState(c, m)
	case "USERNOTICE":
		m.Channel = m.Param(0)
		c.callbacks.userNotice(c, m)
	case "RECONNECT":
		c.callbacks.reconnect(c, m)
	case "CAP":
		c.callbacks.capAck(c, m)
	default:
		c.metrics.unknownTotal.Inc()
		c.callbacks.unknown(c, m)
	}
}

// dispatchPrivmsg splits the channel message category further: regular
// chat, CTCP ACTION (/me) and other CTCP payloads each get their own
// slot.
func (c *Client) dispatchPrivmsg(m *irc.Message) {
	if len(m.Params) < 2 {
		c.metrics.unknownTotal.Inc()
		c.callbacks.unknown(c, m)
		return
	}
	m.Channel = m.Params[0]

	body, ok := ctcpBody(m.Params[1])
	if !ok {
		c.callbacks.privmsg(c, m)
		return
	}
	verb, rest, _ := strings.Cut(body, " ")
	if verb == "ACTION" {
		m.Params[1] = rest
		c.callbacks.action(c, m)
		return
	}
	c.callbacks.ctcp(c, m)
}

// markAuthenticated adds the authenticated flag; the set is additive so
// established flags survive.
func (c *Client) markAuthenticated() {
	if c.status&StatusAuthenticated != 0 {
		return
	}
	c.status |= StatusAuthenticated
	logrus.WithFields(logrus.Fields{
		"function": "markAuthenticated",
		"nick":     c.opts.Nick,
	}).Info("Login confirmed")
}

// ctcpBody returns the text between the CTCP markers when s is a CTCP
// payload, delimited by the marker byte at both ends.
func ctcpBody(s string) (string, bool) {
	if len(s) < 2 || s[0] != ctcpMarker || s[len(s)-1] != ctcpMarker {
		return "", false
	}
	return s[1 : len(s)-1], true
}
