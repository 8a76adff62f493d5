package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T, verbose, codes bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	oldOut, oldVerbose, oldCodes := Output, Verbose, ShowCodes
	Output, Verbose, ShowCodes = &buf, verbose, codes
	t.Cleanup(func() {
		Output, Verbose, ShowCodes = oldOut, oldVerbose, oldCodes
	})
	return &buf
}

func TestDebugf(t *testing.T) {
	buf := captureOutput(t, false, false)
	Debugf("hidden %d", 1)
	assert.Empty(t, buf.String())

	buf = captureOutput(t, true, true)
	Debugf("shown %d", 2)
	assert.Equal(t, "000-[DEBUG] shown 2\n", buf.String())
}

func TestMessageCodes(t *testing.T) {
	assert.Equal(t, Code(1), InfoOpeningFile)
	assert.Equal(t, Code(10), InfoSettingModuleName)
	assert.Equal(t, Code(100), ErrorOnlyWifiName)
	assert.Equal(t, Code(118), ErrorUnableToConnectModule)
	assert.Equal(t, Code(121), ErrorInsufficientMemory)

	for c := InfoOpeningFile; c <= InfoSettingModuleName; c++ {
		assert.Contains(t, messageText, c)
		assert.False(t, c.IsError())
	}
	for c := ErrorOnlyWifiName; c <= ErrorInsufficientMemory; c++ {
		assert.Contains(t, messageText, c)
		assert.True(t, c.IsError())
	}
}

func TestMessageFormat(t *testing.T) {
	buf := captureOutput(t, false, true)
	Message(ErrorUnableToConnectModule, "10.0.0.5")
	Message(InfoDownloadSuccessful)
	assert.Equal(t, "118-ERROR: Unable to connect to module at 10.0.0.5\n005-Download successful!\n", buf.String())

	buf = captureOutput(t, false, false)
	Message(ErrorNoModulesFound)
	assert.Equal(t, "ERROR: No wifi modules found\n", buf.String())
}

func TestReport(t *testing.T) {
	buf := captureOutput(t, true, false)
	cause := errors.New("connection refused")
	err := NewError(cause, ErrorUnableToConnectModule, "10.0.0.5")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Unable to connect to module at 10.0.0.5: connection refused", err.Error())

	Report(err)
	assert.Equal(t, "ERROR: Unable to connect to module at 10.0.0.5\n[DEBUG] connection refused\n", buf.String())

	buf = captureOutput(t, false, false)
	Report(errors.New("boom"))
	assert.Equal(t, "ERROR: Internal error\n", buf.String())
}

func TestParseSettings(t *testing.T) {
	s, err := ParseSettings([]byte("loader-baud-rate: 921600\nreset-method: rts\nresponse-timeout: 5s\n"))
	require.NoError(t, err)
	assert.Equal(t, 921600, s.LoaderBaudRate)
	assert.Equal(t, "rts", s.ResetMethod)
	assert.Equal(t, 5*time.Second, s.ResponseTimeout)
	assert.Equal(t, 3*time.Second, s.ConnectTimeout)
	assert.Equal(t, 3, s.DiscoverAttempts)

	_, err = ParseSettings([]byte("discover-attempts: 0\n"))
	var fe *FileError
	assert.ErrorAs(t, err, &fe)

	_, err = ParseSettings([]byte("loader-baud-rate: [1, 2]\n"))
	assert.ErrorAs(t, err, &fe)
}

func TestLoadSettings(t *testing.T) {
	captureOutput(t, false, false)
	dir := t.TempDir()

	s, err := LoadSettings(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), s)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("control-port: 8080\n"), 0o644))
	s, err = LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, s.ControlPort)

	require.NoError(t, os.WriteFile(path, []byte("control-port: 0\n"), 0o644))
	_, err = LoadSettings(path)
	var fe *FileError
	require.ErrorAs(t, err, &fe)
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, filepath.Join("/tmp/xdg", "wxload", "config.yaml"), DefaultPath())
}
