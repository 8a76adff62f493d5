package wifi

import (
	"errors"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaminmoo/wxload/internal/protocol"
)

type fakeReply struct {
	from net.IP
	data []byte
}

// fakePacketConn serves one scripted round of replies per WriteTo call.
type fakePacketConn struct {
	rounds  [][]fakeReply
	round   int
	pending []fakeReply
	sent    [][]byte
	dests   []net.Addr
	readErr error
}

func (f *fakePacketConn) WriteTo(p []byte, addr net.Addr) (int, error) {
	f.sent = append(f.sent, append([]byte(nil), p...))
	f.dests = append(f.dests, addr)
	if f.round < len(f.rounds) {
		f.pending = append(f.pending, f.rounds[f.round]...)
	}
	f.round++
	return len(p), nil
}

func (f *fakePacketConn) ReadFrom(p []byte) (int, net.Addr, error) {
	if f.readErr != nil {
		return 0, nil, f.readErr
	}
	if len(f.pending) == 0 {
		return 0, nil, os.ErrDeadlineExceeded
	}
	r := f.pending[0]
	f.pending = f.pending[1:]
	n := copy(p, r.data)
	return n, &net.UDPAddr{IP: r.from, Port: DiscoverPort}, nil
}

func (f *fakePacketConn) SetReadDeadline(time.Time) error { return nil }

func moduleReply(name string) []byte {
	return append([]byte{0x01, 0x02, 0x03, 0x04}, `{"name": "`+name+`", "mac address": "aa:bb"}`...)
}

var bcast = []net.IP{net.IPv4(192, 168, 1, 255)}

func TestDiscoverSingleModule(t *testing.T) {
	conn := &fakePacketConn{rounds: [][]fakeReply{
		{{net.IPv4(192, 168, 1, 20), moduleReply("wx-a")}},
	}}

	mods, err := Discover(conn, DiscoverOptions{Broadcasts: bcast})
	require.NoError(t, err)
	require.Len(t, mods, 1)
	assert.Equal(t, protocol.ModuleInfo{Name: "wx-a", Address: "192.168.1.20", MAC: "aa:bb"}, mods[0])

	// one finding round plus three empty rounds
	require.Len(t, conn.sent, 4)
	assert.Equal(t, []byte{0, 0, 0, 0}, conn.sent[0])
	assert.Equal(t, []byte{0, 0, 0, 0, 192, 168, 1, 20}, conn.sent[1])
	assert.Equal(t, "192.168.1.255:32420", conn.dests[0].String())
}

func TestDiscoverDeduplicatesAndIgnoresRequests(t *testing.T) {
	conn := &fakePacketConn{rounds: [][]fakeReply{
		{
			{net.IPv4(10, 0, 0, 5), []byte{0, 0, 0, 0}},
			{net.IPv4(10, 0, 0, 6), []byte{1, 2}},
			{net.IPv4(10, 0, 0, 7), moduleReply("first")},
			{net.IPv4(10, 0, 0, 7), moduleReply("again")},
		},
		{{net.IPv4(10, 0, 0, 7), moduleReply("late")}},
	}}

	mods, err := Discover(conn, DiscoverOptions{Broadcasts: bcast})
	require.NoError(t, err)
	require.Len(t, mods, 1)
	assert.Equal(t, "first", mods[0].Name)
}

func TestDiscoverAttemptsResetOnNewModule(t *testing.T) {
	conn := &fakePacketConn{rounds: [][]fakeReply{
		{{net.IPv4(10, 0, 0, 1), moduleReply("a")}},
		nil,
		nil,
		{{net.IPv4(10, 0, 0, 2), moduleReply("b")}},
	}}

	mods, err := Discover(conn, DiscoverOptions{Broadcasts: bcast})
	require.NoError(t, err)
	require.Len(t, mods, 2)
	assert.Equal(t, "a", mods[0].Name)
	assert.Equal(t, "b", mods[1].Name)
	// rounds: found, empty, empty, found, empty x3
	assert.Len(t, conn.sent, 7)
}

// chattyPacketConn answers every read with the same module until the read
// deadline passes.
type chattyPacketConn struct {
	deadline time.Time
	sent     int
}

func (c *chattyPacketConn) WriteTo(p []byte, _ net.Addr) (int, error) {
	c.sent++
	return len(p), nil
}

func (c *chattyPacketConn) ReadFrom(p []byte) (int, net.Addr, error) {
	time.Sleep(10 * time.Millisecond)
	if !c.deadline.IsZero() && time.Now().After(c.deadline) {
		return 0, nil, os.ErrDeadlineExceeded
	}
	n := copy(p, moduleReply("noisy"))
	return n, &net.UDPAddr{IP: net.IPv4(10, 0, 0, 1), Port: DiscoverPort}, nil
}

func (c *chattyPacketConn) SetReadDeadline(t time.Time) error {
	c.deadline = t
	return nil
}

func TestDiscoverEndsWhileKnownModuleKeepsReplying(t *testing.T) {
	conn := &chattyPacketConn{}
	type result struct {
		mods []protocol.ModuleInfo
		err  error
	}
	done := make(chan result, 1)
	go func() {
		mods, err := Discover(conn, DiscoverOptions{
			Broadcasts:   bcast,
			Attempts:     3,
			ReplyTimeout: 50 * time.Millisecond,
		})
		done <- result{mods, err}
	}()

	select {
	case r := <-done:
		require.NoError(t, r.err)
		require.Len(t, r.mods, 1)
		assert.Equal(t, "noisy", r.mods[0].Name)
		assert.Equal(t, 4, conn.sent)
	case <-time.After(3 * time.Second):
		t.Fatal("discovery kept running while a known module kept replying")
	}
}

func TestDiscoverMaxResults(t *testing.T) {
	conn := &fakePacketConn{rounds: [][]fakeReply{
		{
			{net.IPv4(10, 0, 0, 1), moduleReply("a")},
			{net.IPv4(10, 0, 0, 2), moduleReply("b")},
		},
	}}

	var seen []string
	mods, err := Discover(conn, DiscoverOptions{
		Broadcasts: bcast,
		MaxResults: 1,
		OnFound:    func(m protocol.ModuleInfo) { seen = append(seen, m.Name) },
	})
	require.NoError(t, err)
	require.Len(t, mods, 1)
	assert.Equal(t, []string{"a"}, seen)
	assert.Len(t, conn.sent, 1)
}

func TestDiscoverMalformedReplyDiscardsResults(t *testing.T) {
	conn := &fakePacketConn{rounds: [][]fakeReply{
		{
			{net.IPv4(10, 0, 0, 1), moduleReply("good")},
			{net.IPv4(10, 0, 0, 2), append([]byte{1, 1, 1, 1}, `{"name": "no-close`...)},
		},
	}}

	mods, err := Discover(conn, DiscoverOptions{Broadcasts: bcast})
	assert.Nil(t, mods)
	var fieldErr *protocol.FieldError
	assert.ErrorAs(t, err, &fieldErr)
}

func TestDiscoverNoModules(t *testing.T) {
	conn := &fakePacketConn{}
	mods, err := Discover(conn, DiscoverOptions{Broadcasts: bcast, Attempts: 2})
	require.NoError(t, err)
	assert.Empty(t, mods)
	assert.Len(t, conn.sent, 2)
}

func TestDiscoverReadError(t *testing.T) {
	conn := &fakePacketConn{readErr: errors.New("socket gone")}
	_, err := Discover(conn, DiscoverOptions{Broadcasts: bcast})
	var te *TransportError
	assert.ErrorAs(t, err, &te)
}

func TestFormatModule(t *testing.T) {
	assert.Equal(t, "Name: 'wx', IP: 10.0.0.1, MAC: aa", FormatModule(protocol.ModuleInfo{Name: "wx", Address: "10.0.0.1", MAC: "aa"}))
	assert.Equal(t, "IP: 10.0.0.1", FormatModule(protocol.ModuleInfo{Address: "10.0.0.1"}))
}

func TestBroadcastAddr(t *testing.T) {
	_, n, err := net.ParseCIDR("192.168.4.17/22")
	require.NoError(t, err)
	n.IP = net.ParseIP("192.168.4.17")
	assert.Equal(t, "192.168.7.255", broadcastAddr(n).String())

	_, n6, err := net.ParseCIDR("fe80::1/64")
	require.NoError(t, err)
	assert.Nil(t, broadcastAddr(n6))
}
