// Package irc implements the wire format of the Twitch dialect of IRC:
// reassembly of CR-LF terminated messages from arbitrarily fragmented
// byte chunks, and decoding of complete messages into structured values
// (IRCv3 tags, prefix, command, parameters, trailing parameter).
//
// The package is pure: it performs no I/O and keeps no global state.
// Decoding threads an explicit cursor through the scanning functions, so
// independent messages may be decoded concurrently.
package irc
