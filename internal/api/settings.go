package api

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/vitaminmoo/wxload/internal/config"
	"github.com/vitaminmoo/wxload/internal/protocol"
)

// MaxNameLen is the longest module name accepted.
const MaxNameLen = 32

// UnknownVersion is reported before a version has been fetched.
const UnknownVersion = "(unknown)"

// FetchVersion reads the firmware version from the module and stores it.
// A 200 response without a body, or with an empty one, is an error.
func (c *Client) FetchVersion() (string, error) {
	resp, err := c.sendOK("get version", protocol.GetSettingRequest(protocol.SettingVersion))
	if err != nil {
		return "", err
	}
	if !resp.HasBody || len(resp.Body) == 0 {
		return "", fmt.Errorf("get version: %w", protocol.ErrNoBody)
	}
	c.version = string(bytes.TrimRight(resp.Body, "\r\n\x00"))
	config.Debugf("module version: %s", c.version)
	return c.version, nil
}

// Version returns the last fetched version, or UnknownVersion.
func (c *Client) Version() string {
	if c.version == "" {
		return UnknownVersion
	}
	return c.version
}

// CheckVersion fetches the version and verifies the firmware is supported.
func (c *Client) CheckVersion() error {
	v, err := c.FetchVersion()
	if err != nil {
		return err
	}
	if !protocol.VersionSupported(v) {
		return &VersionError{Got: v, Expected: protocol.ExpectedVersionPrefix}
	}
	return nil
}

// SetBaudRate sets the module's serial rate to the target. Nothing is sent
// when rate matches the last acknowledged value; the cached value only
// changes on a 200 response.
func (c *Client) SetBaudRate(rate int) error {
	if rate <= 0 {
		return &protocol.ConfigError{Setting: "baud rate", Value: strconv.Itoa(rate), Reason: "must be positive"}
	}
	if rate == c.baudRate {
		config.Debugf("baud rate already %d", rate)
		return nil
	}
	if _, err := c.sendOK("set baud-rate", protocol.SetSettingRequest(protocol.SettingBaudRate, strconv.Itoa(rate))); err != nil {
		return err
	}
	c.baudRate = rate
	return nil
}

// SetName renames the module and persists its settings.
func (c *Client) SetName(name string) error {
	if err := ValidateModuleName(name); err != nil {
		return err
	}
	if _, err := c.sendOK("set module-name", protocol.SetSettingRequest(protocol.SettingModuleName, name)); err != nil {
		return err
	}
	if _, err := c.sendOK("save-settings", protocol.SaveSettingsRequest()); err != nil {
		return err
	}
	return nil
}

// ValidateModuleName rejects names the module cannot take as a raw query
// value: empty, longer than MaxNameLen, or containing anything other than
// letters, digits, '-', '_' and '.'.
func ValidateModuleName(name string) error {
	if name == "" {
		return &NameError{Name: name, Reason: "empty"}
	}
	if len(name) > MaxNameLen {
		return &NameError{Name: name, Reason: fmt.Sprintf("longer than %d characters", MaxNameLen)}
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return &NameError{Name: name, Reason: fmt.Sprintf("character %q not allowed", r)}
		}
	}
	return nil
}
