package protocol

import (
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reply(body string) []byte {
	return append([]byte{1, 0, 0, 0}, body...)
}

func TestDiscoveryPayload(t *testing.T) {
	payload := NewDiscoveryPayload()
	assert.Equal(t, []byte{0, 0, 0, 0}, payload)

	payload, err := AppendConfirmation(payload, net.ParseIP("192.168.1.7"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0, 192, 168, 1, 7}, payload)

	_, err = AppendConfirmation(payload, net.ParseIP("fe80::1"))
	assert.Error(t, err)
}

func TestDiscoveryPayloadBounded(t *testing.T) {
	payload := NewDiscoveryPayload()
	var err error
	for i := 0; i < (MaxDiscoveryPacket-DiscoveryHeaderSize)/4; i++ {
		payload, err = AppendConfirmation(payload, net.IPv4(10, 0, byte(i>>8), byte(i)))
		require.NoError(t, err)
	}
	assert.Len(t, payload, MaxDiscoveryPacket)

	_, err = AppendConfirmation(payload, net.IPv4(10, 1, 1, 1))
	assert.ErrorIs(t, err, ErrPayloadFull)
}

func TestIsReply(t *testing.T) {
	assert.False(t, IsReply(nil))
	assert.False(t, IsReply([]byte{1, 2, 3}))
	assert.False(t, IsReply([]byte{0, 0, 0, 0, 10, 0, 0, 1}))
	assert.True(t, IsReply([]byte{0, 0, 0, 1}))
	assert.True(t, IsReply(reply(`{"name": "wx"}`)))
}

func TestReplyField(t *testing.T) {
	pkt := reply(`{"name": "bench-wx", "mac address": "18:fe:34:00:00:01"}`)

	name, found, err := ReplyField(pkt, NameTag)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "bench-wx", name)

	mac, found, err := ReplyField(pkt, MACAddressTag)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "18:fe:34:00:00:01", mac)

	_, found, err = ReplyField(reply(`{"other": "x"}`), NameTag)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestReplyFieldErrors(t *testing.T) {
	_, _, err := ReplyField(reply(`{"name": "unterminated`), NameTag)
	var fieldErr *FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, NameTag, fieldErr.Tag)

	long := strings.Repeat("x", MaxFieldLen+1)
	_, _, err = ReplyField(reply(`{"name": "`+long+`"}`), NameTag)
	assert.ErrorAs(t, err, &fieldErr)

	ok := strings.Repeat("x", MaxFieldLen)
	got, _, err := ReplyField(reply(`{"name": "`+ok+`"}`), NameTag)
	require.NoError(t, err)
	assert.Equal(t, ok, got)
}

func TestParseReply(t *testing.T) {
	info, err := ParseReply(reply(`{"name": "wx-1"}`), net.IPv4(10, 0, 0, 9))
	require.NoError(t, err)
	assert.Equal(t, ModuleInfo{Name: "wx-1", Address: "10.0.0.9"}, info)

	_, err = ParseReply(reply(`{"name": "wx-1", "mac address": "aa`), net.IPv4(10, 0, 0, 9))
	assert.Error(t, err)

	assert.True(t, info.SameModule(ModuleInfo{Name: "renamed", Address: "10.0.0.9"}))
}
