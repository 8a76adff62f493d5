package api

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaminmoo/wxload/internal/protocol"
	"github.com/vitaminmoo/wxload/internal/wxsim"
)

func TestLoadImage(t *testing.T) {
	m, c := startModule(t)
	image := []byte{0x00, 0x10, 0x20, 0x30, 0x40}

	reply, err := c.LoadImage(image, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x55, 0x55, 0x55, 0x55}, reply)

	reqs := m.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, protocol.SettingBaudRate, reqs[0].Query.Get("name"))
	load := reqs[1]
	assert.Equal(t, protocol.PathLoad, load.Path)
	assert.Equal(t, "115200", load.Query.Get("baud-rate"))
	assert.Equal(t, "12", load.Query.Get("reset-pin"))
	assert.Equal(t, "4", load.Query.Get("response-size"))
	assert.Equal(t, "1000", load.Query.Get("response-timeout"))
	assert.Equal(t, image, load.Body)

	// a second load reuses the negotiated rate
	_, err = c.LoadImage(image, 4)
	require.NoError(t, err)
	assert.Equal(t, 1, m.CountRequests("POST", protocol.PathSetting, protocol.SettingBaudRate))
}

func TestLoadImageSizeMismatch(t *testing.T) {
	m, c := startModule(t)
	m.SetLoadReply(&wxsim.Reply{Status: 200, Body: []byte{1, 2}})

	_, err := c.LoadImage([]byte{1}, 4)
	var loadErr *protocol.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, protocol.KindCommunicationLost, loadErr.Kind)

	var sizeErr *protocol.ResponseSizeError
	require.ErrorAs(t, err, &sizeErr)
	assert.Equal(t, 4, sizeErr.Want)
	assert.Equal(t, 2, sizeErr.Got)
}

func TestLoadImageClassifiesFailures(t *testing.T) {
	tests := []struct {
		body    string
		kind    protocol.Kind
		version int
	}{
		{"RX handshake timeout", protocol.KindCommunicationLost, 0},
		{"RX handshake failed", protocol.KindTargetNotFound, 0},
		{"Wrong Propeller version: got 1", protocol.KindVersionMismatch, 1},
		{"Checksum error", protocol.KindChecksumFailed, 0},
		{"Load image failed", protocol.KindLoadFailed, 0},
		{"StartAck timeout", protocol.KindCommunicationLost, 0},
		{"Flash on fire", protocol.KindInternal, 0},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			m, c := startModule(t)
			m.SetLoadReply(&wxsim.Reply{Status: 400, Body: []byte(tt.body)})

			_, err := c.LoadImage([]byte{1, 2, 3}, 0)
			var loadErr *protocol.LoadError
			require.ErrorAs(t, err, &loadErr)
			assert.Equal(t, tt.kind, loadErr.Kind)
			assert.Equal(t, tt.version, loadErr.Version)
			assert.Equal(t, 400, loadErr.StatusCode)
		})
	}
}

func TestLoadImageStatusWithoutBody(t *testing.T) {
	m, c := startModule(t)
	m.SetLoadReply(&wxsim.Reply{Status: 500, StatusOnly: true})

	_, err := c.LoadImage([]byte{1, 2, 3}, 0)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, "load", statusErr.Op)
	assert.Equal(t, 500, statusErr.StatusCode)
	var loadErr *protocol.LoadError
	assert.False(t, errors.As(err, &loadErr))

	// an empty body after the headers is still classified
	m.SetLoadReply(&wxsim.Reply{Status: 500})
	_, err = c.LoadImage([]byte{1, 2, 3}, 0)
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, protocol.KindInternal, loadErr.Kind)
}

func TestLoadImageBaudFailure(t *testing.T) {
	m, c := startModule(t)
	m.FailPath(protocol.PathSetting, wxsim.Reply{Status: 400})

	_, err := c.LoadImage([]byte{1}, 0)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 0, m.CountRequests("POST", protocol.PathLoad, ""))
}

func TestLoadImageUsesConfiguredRateAndPin(t *testing.T) {
	m, c := startModule(t)
	WithLoaderBaudRate(921600)(c)
	WithResetPin(15)(c)

	_, err := c.LoadImage([]byte{0xaa}, 0)
	require.NoError(t, err)
	assert.Equal(t, 921600, m.BaudRate())

	reqs := m.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "921600", reqs[1].Query.Get("baud-rate"))
	assert.Equal(t, "15", reqs[1].Query.Get("reset-pin"))
}
