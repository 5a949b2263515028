package irc

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTrailingParameter(t *testing.T) {
	m := ParseMessage("PRIVMSG #chan :hello world")

	assert.Equal(t, "PRIVMSG", m.Command)
	assert.Equal(t, []string{"#chan", "hello world"}, m.Params)
	assert.Equal(t, 1, m.Trailing)
	assert.Empty(t, m.Channel, "decoder must not derive the channel")
}

func TestParseNoTrailingParameter(t *testing.T) {
	m := ParseMessage("MODE #chan +o someone")

	assert.Equal(t, []string{"#chan", "+o", "someone"}, m.Params)
	assert.Equal(t, -1, m.Trailing)
}

func TestParsePrefixAndNick(t *testing.T) {
	m := ParseMessage(":alice!alice@alice.tmi.example PRIVMSG #chan :hi")

	assert.Equal(t, "alice!alice@alice.tmi.example", m.Prefix)
	assert.Equal(t, "alice", m.Nick)
	assert.Equal(t, "PRIVMSG", m.Command)
}

func TestParseServerPrefixHasNoNick(t *testing.T) {
	m := ParseMessage(":tmi.example 001 kaulmate :Welcome, GLHF!")

	assert.Equal(t, "tmi.example", m.Prefix)
	assert.Empty(t, m.Nick)
	assert.Equal(t, "001", m.Command)
	assert.Equal(t, []string{"kaulmate", "Welcome, GLHF!"}, m.Params)
	assert.Equal(t, 1, m.Trailing)
}

func TestParseCommandOnly(t *testing.T) {
	m := ParseMessage("RECONNECT")

	assert.Equal(t, "RECONNECT", m.Command)
	assert.Empty(t, m.Params)
	assert.Equal(t, -1, m.Trailing)
}

func TestParseTags(t *testing.T) {
	m := ParseMessage("@badges=broadcaster/1;color=#DAA520;mod=0 :tmi.example USERSTATE #chan")

	require.Len(t, m.Tags, 3)
	assert.Equal(t, Tag{Key: "badges", Value: "broadcaster/1"}, m.Tags[0])
	assert.Equal(t, Tag{Key: "color", Value: "#DAA520"}, m.Tags[1])
	assert.Equal(t, Tag{Key: "mod", Value: "0"}, m.Tags[2])
	assert.Equal(t, "tmi.example", m.Prefix)
	assert.Equal(t, "USERSTATE", m.Command)
}

func TestParseTagOrderPreserved(t *testing.T) {
	m := ParseMessage("@z=1;a=2;m=3 PING")

	keys := make([]string, len(m.Tags))
	for i, tag := range m.Tags {
		keys[i] = tag.Key
	}
	assert.Equal(t, []string{"z", "a", "m"}, keys)
}

func TestParseBareAndEmptyTags(t *testing.T) {
	m := ParseMessage("@only-key;empty-value= PING")

	require.Len(t, m.Tags, 2)
	assert.Equal(t, Tag{Key: "only-key"}, m.Tags[0])
	// A trailing '=' belongs to neither key nor value.
	assert.Equal(t, Tag{Key: "empty-value"}, m.Tags[1])
}

func TestUnescapeTagValue(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"recognized escapes", `a\sb\:c\\d`, `a b;c\d`},
		{"carriage return and newline", `x\ry\nz`, "x\ry\nz"},
		{"unrecognized escape kept verbatim", `a\qb`, `a\qb`},
		{"trailing lone backslash dropped", `abc\`, "abc"},
		{"double backslash then char", `\\n`, `\n`},
		{"no escapes", "plain", "plain"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, unescapeTagValue(tt.in))
		})
	}
}

func TestParseTagEscapesOnWire(t *testing.T) {
	m := ParseMessage(`@system-msg=5\sviewers\sresubscribed! USERNOTICE #chan`)

	v, ok := m.TagValue("system-msg")
	require.True(t, ok)
	assert.Equal(t, "5 viewers resubscribed!", v)
}

func TestParseManyParamsGrowth(t *testing.T) {
	// More parameters than the initial capacity; all must survive in order.
	parts := make([]string, 10)
	for i := range parts {
		parts[i] = fmt.Sprintf("p%d", i)
	}
	m := ParseMessage("CMD " + strings.Join(parts, " "))

	assert.Equal(t, "CMD", m.Command)
	assert.Equal(t, parts, m.Params)
	assert.Equal(t, -1, m.Trailing)
}

func TestParseManyTagsGrowth(t *testing.T) {
	parts := make([]string, 20)
	for i := range parts {
		parts[i] = fmt.Sprintf("k%d=v%d", i, i)
	}
	m := ParseMessage("@" + strings.Join(parts, ";") + " PING")

	require.Len(t, m.Tags, 20)
	for i, tag := range m.Tags {
		assert.Equal(t, fmt.Sprintf("k%d", i), tag.Key)
		assert.Equal(t, fmt.Sprintf("v%d", i), tag.Value)
	}
}

func TestParseColonInsideTrailingIsLiteral(t *testing.T) {
	m := ParseMessage("PRIVMSG #chan :see: this has :colons")

	require.Len(t, m.Params, 2)
	assert.Equal(t, "see: this has :colons", m.Params[1])
	assert.Equal(t, 1, m.Trailing)
}

func TestParseMalformedDegradesToEmpty(t *testing.T) {
	t.Run("empty line", func(t *testing.T) {
		m := ParseMessage("")
		assert.Empty(t, m.Command)
		assert.Empty(t, m.Params)
	})

	t.Run("tag block without command", func(t *testing.T) {
		m := ParseMessage("@key=value")
		assert.Empty(t, m.Command)
	})

	t.Run("prefix without command", func(t *testing.T) {
		m := ParseMessage(":tmi.example")
		assert.Equal(t, "tmi.example", m.Prefix)
		assert.Empty(t, m.Command)
	})
}

func TestParseFullTwitchPrivmsg(t *testing.T) {
	line := "@badges=subscriber/12;display-name=Domsson;emotes=;id=aaaa-bbbb;" +
		"mod=0;room-id=41245072;tmi-sent-ts=1507246572675;user-type= " +
		":domsson!domsson@domsson.tmi.example PRIVMSG #kaulmate :hey kaul!"
	m := ParseMessage(line)

	assert.Equal(t, "PRIVMSG", m.Command)
	assert.Equal(t, "domsson", m.Nick)
	require.Len(t, m.Params, 2)
	assert.Equal(t, "#kaulmate", m.Params[0])
	assert.Equal(t, "hey kaul!", m.Params[1])
	assert.Equal(t, 1, m.Trailing)

	name, ok := m.TagValue("display-name")
	require.True(t, ok)
	assert.Equal(t, "Domsson", name)

	// Tags with empty values decode as present-but-empty.
	emotes, ok := m.TagValue("emotes")
	require.True(t, ok)
	assert.Empty(t, emotes)
}

func TestParam(t *testing.T) {
	m := ParseMessage("JOIN #chan")

	assert.Equal(t, "#chan", m.Param(0))
	assert.Empty(t, m.Param(1))
	assert.Empty(t, m.Param(-1))
}
