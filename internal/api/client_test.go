package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaminmoo/wxload/internal/protocol"
	"github.com/vitaminmoo/wxload/internal/wifi"
	"github.com/vitaminmoo/wxload/internal/wxsim"
)

func startModule(t *testing.T) (*wxsim.Module, *Client) {
	t.Helper()
	m := wxsim.NewModule("bench")
	srv := wxsim.NewServer(m, wxsim.Config{})
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() { srv.Stop() })

	c, err := Dial(srv.Host(),
		WithPorts(srv.ControlPort(), srv.DataPort()),
		WithTimeouts(time.Second, time.Second))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return m, c
}

func TestUnboundClient(t *testing.T) {
	c := New()
	assert.Equal(t, StateUnbound, c.State())
	assert.Equal(t, "", c.Address())

	_, err := c.FetchVersion()
	assert.ErrorIs(t, err, ErrUnbound)
	assert.ErrorIs(t, c.Connect(), ErrUnbound)
	assert.Equal(t, UnknownVersion, c.Version())
}

func TestSetAddress(t *testing.T) {
	c := New(WithPorts(8080, 2323))
	require.NoError(t, c.SetAddress("10.0.0.5"))
	assert.Equal(t, StateBound, c.State())
	assert.Equal(t, "10.0.0.5", c.Address())
	assert.Equal(t, "10.0.0.5:8080", c.bind.control)
	assert.Equal(t, "10.0.0.5:2323", c.bind.data)

	err := c.SetAddress("not-an-ip")
	var cfgErr *protocol.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "10.0.0.5", c.Address())
	assert.Equal(t, "10.0.0.5:8080", c.bind.control)

	require.NoError(t, c.SetAddress("10.0.0.6"))
	assert.Equal(t, "10.0.0.6:8080", c.bind.control)
	assert.Equal(t, "10.0.0.6:2323", c.bind.data)
}

func TestFetchVersion(t *testing.T) {
	m, c := startModule(t)

	v, err := c.FetchVersion()
	require.NoError(t, err)
	assert.Equal(t, "v1.0 (wxsim)", v)
	assert.Equal(t, v, c.Version())
	require.NoError(t, c.CheckVersion())

	m.SetVersion("v3.1")
	err = c.CheckVersion()
	var verErr *VersionError
	require.ErrorAs(t, err, &verErr)
	assert.Equal(t, "v3.1", verErr.Got)
	assert.Equal(t, "v3.1", c.Version())
}

func TestFetchVersionEmptyBody(t *testing.T) {
	m, c := startModule(t)
	m.SetVersion("")

	_, err := c.FetchVersion()
	assert.ErrorIs(t, err, protocol.ErrNoBody)
}

func TestFetchVersionStatus(t *testing.T) {
	m, c := startModule(t)
	m.FailPath(protocol.PathSetting, wxsim.Reply{Status: 500, Body: []byte("oops")})

	_, err := c.FetchVersion()
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 500, statusErr.StatusCode)
	assert.Equal(t, "oops", statusErr.Body)
}

func TestSetBaudRateCaches(t *testing.T) {
	m, c := startModule(t)

	require.NoError(t, c.SetBaudRate(921600))
	require.NoError(t, c.SetBaudRate(921600))
	assert.Equal(t, 1, m.CountRequests("POST", protocol.PathSetting, protocol.SettingBaudRate))
	assert.Equal(t, 921600, c.BaudRate())
	assert.Equal(t, 921600, m.BaudRate())

	require.NoError(t, c.SetBaudRate(115200))
	assert.Equal(t, 2, m.CountRequests("POST", protocol.PathSetting, protocol.SettingBaudRate))
}

func TestSetBaudRateFailureKeepsCache(t *testing.T) {
	m, c := startModule(t)
	require.NoError(t, c.SetBaudRate(115200))

	m.FailPath(protocol.PathSetting, wxsim.Reply{Status: 400, Body: []byte("nope")})
	assert.Error(t, c.SetBaudRate(230400))
	assert.Equal(t, 115200, c.BaudRate())

	// the failed rate is retried, not assumed
	assert.Error(t, c.SetBaudRate(230400))
	assert.Equal(t, 3, m.CountRequests("POST", protocol.PathSetting, protocol.SettingBaudRate))
}

func TestSetName(t *testing.T) {
	m, c := startModule(t)

	require.NoError(t, c.SetName("lab-bench_2"))
	assert.Equal(t, "lab-bench_2", m.ModuleName())
	assert.True(t, m.Saved())

	reqs := m.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, protocol.PathSetting, reqs[0].Path)
	assert.Equal(t, protocol.PathSaveSettings, reqs[1].Path)
}

func TestSetNameStopsOnFailure(t *testing.T) {
	m, c := startModule(t)
	m.FailPath(protocol.PathSetting, wxsim.Reply{Status: 400})

	assert.Error(t, c.SetName("x"))
	assert.Equal(t, 0, m.CountRequests("POST", protocol.PathSaveSettings, ""))
}

func TestValidateModuleName(t *testing.T) {
	assert.NoError(t, ValidateModuleName("wx-1.lab"))

	for _, bad := range []string{"", "has space", "a&b=c", "ünicode", "0123456789012345678901234567890123"} {
		var nameErr *NameError
		assert.ErrorAs(t, ValidateModuleName(bad), &nameErr, bad)
	}
}

func TestReset(t *testing.T) {
	m, c := startModule(t)

	require.NoError(t, c.SetResetMethod("rts"))
	require.NoError(t, c.Reset())
	assert.Equal(t, 1, m.Resets())

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "15", reqs[0].Query.Get("reset-pin"))
	assert.Equal(t, "35", reqs[0].Query.Get("reset-delay"))

	var cfgErr *protocol.ConfigError
	assert.ErrorAs(t, c.SetResetMethod("bogus"), &cfgErr)
	assert.Equal(t, 15, c.ResetPin())

	m.FailPath(protocol.PathReset, wxsim.Reply{Status: 503})
	var statusErr *StatusError
	assert.ErrorAs(t, c.Reset(), &statusErr)
}

func TestTransportErrorSurfaces(t *testing.T) {
	c := New(WithPorts(1, 1), WithTimeouts(200*time.Millisecond, 200*time.Millisecond))
	require.NoError(t, c.SetAddress("127.0.0.1"))

	err := c.Reset()
	var te *wifi.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "connect", te.Op)
	assert.False(t, errors.Is(err, ErrUnbound))
}
