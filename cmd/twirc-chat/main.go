// Command twirc-chat connects to a Twitch chat channel and prints the
// conversation to stdout. Without credentials it logs in anonymously
// and can read but not speak.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/opd-ai/twirc"
	"github.com/opd-ai/twirc/irc"
	"github.com/opd-ai/twirc/transport"
)

const tickTimeout = 250 * time.Millisecond

var (
	flagHost      string
	flagPort      string
	flagNick      string
	flagPass      string
	flagChannel   string
	flagWebSocket bool
	flagVerbose   bool
)

func main() {
	cmd := &cobra.Command{
		Use:   "twirc-chat",
		Short: "Read a Twitch chat channel from the terminal",
		RunE:  run,
	}

	cmd.Flags().StringVar(&flagHost, "host", twirc.DefaultHost, "chat server host")
	cmd.Flags().StringVar(&flagPort, "port", twirc.DefaultPort, "chat server port")
	cmd.Flags().StringVar(&flagNick, "nick", "", "login name (empty for anonymous)")
	cmd.Flags().StringVar(&flagPass, "pass", "", "OAuth token")
	cmd.Flags().StringVarP(&flagChannel, "channel", "c", "", "channel to join")
	cmd.Flags().BoolVar(&flagWebSocket, "websocket", false, "connect over WebSocket instead of plain TCP")
	cmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "log every protocol message")
	_ = cmd.MarkFlagRequired("channel")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if flagVerbose {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.WarnLevel)
	}

	opts := twirc.NewOptions()
	opts.Host = flagHost
	opts.Port = flagPort
	opts.Nick = flagNick
	opts.Pass = flagPass
	if opts.Nick == "" {
		// Anonymous read-only login.
		opts.Nick = fmt.Sprintf("justinfan%d", rand.Intn(100000))
	}
	if flagWebSocket {
		opts.NewTransport = func() transport.Stream {
			return transport.NewWebSocket()
		}
	}

	client, err := twirc.New(opts)
	if err != nil {
		return err
	}
	defer client.Kill()

	client.OnWelcome(func(c *twirc.Client, m *irc.Message) {
		fmt.Printf("* logged in, joining %s\n", flagChannel)
		if err := c.Join(flagChannel); err != nil {
			logrus.WithError(err).Error("Join failed")
		}
	})
	client.OnPrivmsg(func(c *twirc.Client, m *irc.Message) {
		fmt.Printf("[%s] <%s> %s\n", m.Channel, displayName(m), m.Param(1))
	})
	client.OnAction(func(c *twirc.Client, m *irc.Message) {
		fmt.Printf("[%s] * %s %s\n", m.Channel, displayName(m), m.Param(1))
	})
	client.OnUserNotice(func(c *twirc.Client, m *irc.Message) {
		if msg, ok := m.TagValue("system-msg"); ok {
			fmt.Printf("[%s] ! %s\n", m.Channel, msg)
		}
	})
	client.OnNotice(func(c *twirc.Client, m *irc.Message) {
		fmt.Printf("[%s] ! %s\n", m.Channel, m.Param(1))
	})
	client.OnReconnect(func(c *twirc.Client, m *irc.Message) {
		fmt.Println("* server requested reconnect, shutting down")
		c.Stop()
	})

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigc
		fmt.Println("\n* shutting down")
		client.Stop()
	}()

	if err := client.Connect(context.Background()); err != nil {
		return err
	}
	if err := client.Loop(tickTimeout); err != nil {
		return err
	}
	return client.Disconnect()
}

// displayName prefers the tag-supplied display name over the login
// nick.
func displayName(m *irc.Message) string {
	if name, ok := m.TagValue("display-name"); ok && name != "" {
		return name
	}
	return m.Nick
}
