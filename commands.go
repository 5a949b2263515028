package twirc

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// whisperChannel is the pseudo-channel whispers are routed through.
const whisperChannel = "#jtv"

// send writes one CR-LF terminated line to the server. Lines carrying
// credentials are kept out of the logs.
func (c *Client) send(line string) error {
	if c.status&StatusConnected == 0 {
		return ErrNotConnected
	}
	if !strings.HasPrefix(line, "PASS ") {
		logrus.WithFields(logrus.Fields{
			"function": "send",
			"line":     line,
		}).Debug("Sending line")
	}
	if _, err := c.stream.Send([]byte(line + "\r\n")); err != nil {
		return fmt.Errorf("twirc: send: %w", err)
	}
	return nil
}

// SendRaw sends a raw protocol line as-is (the terminator is appended).
// Useful for commands the engine has no wrapper for.
func (c *Client) SendRaw(line string) error {
	return c.send(line)
}

// Pass submits the login token. The "oauth:" prefix is added when
// missing.
func (c *Client) Pass(pass string) error {
	if !strings.HasPrefix(pass, "oauth:") {
		pass = "oauth:" + pass
	}
	return c.send("PASS " + pass)
}

// Nick submits the login name.
func (c *Client) Nick(nick string) error {
	return c.send("NICK " + nick)
}

// Join enters a channel. The "#" prefix is added when missing.
func (c *Client) Join(channel string) error {
	return c.send("JOIN " + ensureChannel(channel))
}

// Part leaves a channel. The "#" prefix is added when missing.
func (c *Client) Part(channel string) error {
	return c.send("PART " + ensureChannel(channel))
}

// Say sends a chat message to a channel.
func (c *Client) Say(channel, message string) error {
	return c.send("PRIVMSG " + ensureChannel(channel) + " :" + message)
}

// Whisper sends a private message to a user.
func (c *Client) Whisper(nick, message string) error {
	return c.send(fmt.Sprintf("PRIVMSG %s :/w %s %s", whisperChannel, nick, message))
}

// Pong replies to a server PING. The parameter is prefixed with a colon
// unless it already carries one, which the Twitch servers expect even
// though the IRC specification does not require it.
func (c *Client) Pong(param string) error {
	if !strings.HasPrefix(param, ":") {
		param = ":" + param
	}
	return c.send("PONG " + param)
}

// CapReq requests one or more capabilities.
func (c *Client) CapReq(caps ...string) error {
	return c.send("CAP REQ :" + strings.Join(caps, " "))
}

// Quit announces the disconnect to the server.
func (c *Client) Quit() error {
	return c.send("QUIT")
}

// ensureChannel normalizes a channel name to its "#"-prefixed form.
func ensureChannel(channel string) string {
	if strings.HasPrefix(channel, "#") {
		return channel
	}
	return "#" + channel
}
