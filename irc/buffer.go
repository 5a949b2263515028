package irc

import (
	"bytes"
)

// MaxMessageSize is the assumed upper bound for a single IRC message from
// the server, including tags. The visible chat part is limited to 512
// bytes, but tags are not counted against that limit, so messages can
// considerably exceed the 1024 bytes suggested by the IRCv3 spec.
const MaxMessageSize = 2048

// MaxBacklog is the amount of buffered, unresolved data the reassembly
// buffer is expected to hold at most: one complete message plus one
// partial one. Exceeding it does not drop data, but callers should treat
// it as a sign that upstream framing has desynchronized.
const MaxBacklog = 2 * MaxMessageSize

// terminator separates complete IRC messages on the wire.
var terminator = []byte("\r\n")

// Buffer reassembles complete CR-LF terminated messages from byte chunks
// that may arrive split at any boundary or coalesced with the next
// message. It is not safe for concurrent use.
type Buffer struct {
	data []byte
}

// NewBuffer creates an empty reassembly buffer with enough capacity for
// one complete and one partial message.
func NewBuffer() *Buffer {
	return &Buffer{
		data: make([]byte, 0, MaxBacklog),
	}
}

// Append adds a received byte span to the backlog. The span is split at
// every embedded NUL byte and each sub-chunk is appended independently;
// a NUL left over from upstream buffer reuse therefore never truncates
// the data that follows it.
func (b *Buffer) Append(p []byte) {
	for len(p) > 0 {
		i := bytes.IndexByte(p, 0)
		if i < 0 {
			b.data = append(b.data, p...)
			return
		}
		b.data = append(b.data, p[:i]...)
		p = p[i+1:]
	}
}

// Next removes and returns the first complete message from the backlog,
// without its CR-LF terminator. It returns false when the backlog holds
// no full terminator; the buffered bytes are left untouched so that
// later Append calls can complete the message.
func (b *Buffer) Next() (string, bool) {
	i := bytes.Index(b.data, terminator)
	if i < 0 {
		return "", false
	}
	msg := string(b.data[:i])
	// Shift the remainder to the front, keeping the allocation.
	n := copy(b.data, b.data[i+len(terminator):])
	b.data = b.data[:n]
	return msg, true
}

// Len returns the number of buffered, not yet resolved bytes.
func (b *Buffer) Len() int {
	return len(b.data)
}
