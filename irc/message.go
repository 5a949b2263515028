package irc

import (
	"strings"
)

// Typical Twitch messages carry around 13 tags and 2-3 parameters, so
// these starting capacities avoid growth in the common case.
const (
	initialTagCap   = 16
	initialParamCap = 4
)

// Tag is a single IRCv3 message tag. Value is the unescaped form; it is
// empty for bare keys and for keys with an empty value.
type Tag struct {
	Key   string
	Value string
}

// Message is one fully decoded IRC message.
//
// Tags and Params preserve their wire order. Trailing is the index into
// Params of the trailing parameter, or -1 when the message has none.
// Channel is not part of the wire format; it is derived by the event
// dispatcher for channel-scoped commands and left empty otherwise.
type Message struct {
	Tags     []Tag
	Prefix   string
	Nick     string
	Command  string
	Params   []string
	Trailing int
	Channel  string
}

// Param returns the parameter at index i, or the empty string when the
// message has fewer parameters.
func (m *Message) Param(i int) string {
	if i < 0 || i >= len(m.Params) {
		return ""
	}
	return m.Params[i]
}

// TagValue returns the unescaped value of the first tag with the given
// key, and whether such a tag exists.
func (m *Message) TagValue(key string) (string, bool) {
	for _, t := range m.Tags {
		if t.Key == key {
			return t.Value, true
		}
	}
	return "", false
}

// ParseMessage decodes one complete, terminator-stripped IRC message of
// the form
//
//	['@' tags SP] [':' prefix SP] command [SP params]
//
// Decoding never fails: malformed input degrades to empty or absent
// fields. Callers can detect the degenerate case through an empty
// Command.
func ParseMessage(line string) *Message {
	m := &Message{Trailing: -1}

	pos := parseTags(line, 0, m)
	pos = parsePrefix(line, pos, m)
	pos = parseCommand(line, pos, m)
	parseParams(line, pos, m)

	if i := strings.IndexByte(m.Prefix, '!'); i >= 0 {
		m.Nick = m.Prefix[:i]
	}
	return m
}

// parseTags scans the optional '@'-introduced tag block and returns the
// cursor position of the part after it.
func parseTags(line string, pos int, m *Message) int {
	if pos >= len(line) || line[pos] != '@' {
		return pos
	}
	end := strings.IndexByte(line[pos:], ' ')
	if end < 0 {
		// Tag block without a following command; consume everything.
		end = len(line) - pos
	}
	block := line[pos+1 : pos+end]

	m.Tags = make([]Tag, 0, initialTagCap)
	for len(block) > 0 {
		token := block
		if i := strings.IndexByte(block, ';'); i >= 0 {
			token = block[:i]
			block = block[i+1:]
		} else {
			block = ""
		}
		if token == "" {
			continue
		}
		if eq := strings.IndexByte(token, '='); eq >= 0 {
			// A bare "key=" stores an empty value; the '=' never
			// becomes part of the key.
			m.Tags = append(m.Tags, Tag{Key: token[:eq], Value: unescapeTagValue(token[eq+1:])})
		} else {
			m.Tags = append(m.Tags, Tag{Key: token})
		}
	}

	next := pos + end + 1
	if next > len(line) {
		next = len(line)
	}
	return next
}

// parsePrefix scans the optional ':'-introduced prefix and returns the
// cursor position of the part after it.
func parsePrefix(line string, pos int, m *Message) int {
	if pos >= len(line) || line[pos] != ':' {
		return pos
	}
	end := strings.IndexByte(line[pos:], ' ')
	if end < 0 {
		// Prefix without a command; consume everything.
		m.Prefix = line[pos+1:]
		return len(line)
	}
	m.Prefix = line[pos+1 : pos+end]
	return pos + end + 1
}

// parseCommand scans the command token and returns the cursor position
// of the parameter section, or len(line) when there is none.
func parseCommand(line string, pos int, m *Message) int {
	if pos >= len(line) {
		return pos
	}
	if i := strings.IndexByte(line[pos:], ' '); i >= 0 {
		m.Command = line[pos : pos+i]
		return pos + i + 1
	}
	m.Command = line[pos:]
	return len(line)
}

// parseParams scans the space-separated parameters. A parameter starting
// with ':' begins the trailing parameter, which absorbs the rest of the
// line including embedded spaces.
func parseParams(line string, pos int, m *Message) {
	if pos >= len(line) {
		return
	}
	m.Params = make([]string, 0, initialParamCap)
	for pos < len(line) {
		if line[pos] == ':' {
			m.Params = append(m.Params, line[pos+1:])
			m.Trailing = len(m.Params) - 1
			return
		}
		if i := strings.IndexByte(line[pos:], ' '); i >= 0 {
			m.Params = append(m.Params, line[pos:pos+i])
			pos += i + 1
			continue
		}
		m.Params = append(m.Params, line[pos:])
		return
	}
}

// unescapeTagValue decodes the IRCv3 tag value escapes: "\:" to ';',
// "\s" to ' ', "\\" to '\', "\r" to CR and "\n" to LF. A backslash that
// does not start a recognized escape is kept verbatim, and a lone
// backslash at the end of the value is dropped.
func unescapeTagValue(v string) string {
	if !strings.ContainsRune(v, '\\') {
		return v
	}
	var b strings.Builder
	b.Grow(len(v))
	for i := 0; i < len(v); i++ {
		if v[i] != '\\' {
			b.WriteByte(v[i])
			continue
		}
		if i+1 >= len(v) {
			break
		}
		switch v[i+1] {
		case ':':
			b.WriteByte(';')
			i++
		case 's':
			b.WriteByte(' ')
			i++
		case '\\':
			b.WriteByte('\\')
			i++
		case 'r':
			b.WriteByte('\r')
			i++
		case 'n':
			b.WriteByte('\n')
			i++
		default:
			b.WriteByte('\\')
		}
	}
	return b.String()
}
