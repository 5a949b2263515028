// Package twirc implements a client engine for the Twitch dialect of
// IRC: an IRC variant extended with IRCv3 message tags and capability
// negotiation, delivered over a byte-stream transport.
//
// The engine turns an arbitrarily fragmented stream of bytes into an
// ordered sequence of fully decoded events, drives the connect and
// login handshake, and hands events to caller-supplied handlers. It is
// strictly single-threaded: callbacks run inline on the goroutine that
// drives Tick or Loop, in the exact order the underlying bytes arrived.
//
// Example:
//
//	options := twirc.NewOptions()
//	options.Nick = "kaulmate"
//	options.Pass = "oauth:abcdefghij1234567890"
//
//	client, err := twirc.New(options)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client.OnWelcome(func(c *twirc.Client, m *irc.Message) {
//	    c.Join("#kaulmate")
//	})
//	client.OnPrivmsg(func(c *twirc.Client, m *irc.Message) {
//	    fmt.Printf("[%s] %s: %s\n", m.Channel, m.Nick, m.Param(1))
//	})
//
//	if err := client.Connect(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//	if err := client.Loop(time.Second); err != nil {
//	    log.Println("connection closed:", err)
//	}
package twirc
