package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings are the tunables read from the optional config file.
type Settings struct {
	LoaderBaudRate       int           `yaml:"loader-baud-rate"`
	ResetMethod          string        `yaml:"reset-method"`
	ConnectTimeout       time.Duration `yaml:"connect-timeout"`
	ResponseTimeout      time.Duration `yaml:"response-timeout"`
	DiscoverAttempts     int           `yaml:"discover-attempts"`
	DiscoverReplyTimeout time.Duration `yaml:"discover-reply-timeout"`
	DiscoverPort         int           `yaml:"discover-port"`
	ControlPort          int           `yaml:"control-port"`
	DataPort             int           `yaml:"data-port"`
}

// Default returns the settings used when no config file exists.
func Default() Settings {
	return Settings{
		LoaderBaudRate:       115200,
		ResetMethod:          "dtr",
		ConnectTimeout:       3 * time.Second,
		ResponseTimeout:      3 * time.Second,
		DiscoverAttempts:     3,
		DiscoverReplyTimeout: 250 * time.Millisecond,
		DiscoverPort:         32420,
		ControlPort:          80,
		DataPort:             23,
	}
}

// FileError reports a config file that could not be used.
type FileError struct {
	File    string
	Message string
	Cause   error
}

func (e *FileError) Error() string {
	msg := e.Message
	if e.File != "" {
		msg = e.File + ": " + msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *FileError) Unwrap() error {
	return e.Cause
}

// DefaultPath returns $XDG_CONFIG_HOME/wxload/config.yaml, falling back to
// the platform user config directory.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		var err error
		dir, err = os.UserConfigDir()
		if err != nil {
			return ""
		}
	}
	return filepath.Join(dir, "wxload", "config.yaml")
}

// ParseSettings parses YAML on top of the defaults.
func ParseSettings(data []byte) (Settings, error) {
	s := Default()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, &FileError{Message: "failed to parse YAML", Cause: err}
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// LoadSettings reads the config file at path. A missing file yields the
// defaults; an empty path means DefaultPath.
func LoadSettings(path string) (Settings, error) {
	if path == "" {
		path = DefaultPath()
	}
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		Debugf("no config file at %s, using defaults", path)
		return Default(), nil
	}
	if err != nil {
		return Settings{}, &FileError{File: path, Message: "failed to read file", Cause: err}
	}

	s, err := ParseSettings(data)
	if err != nil {
		var fe *FileError
		if errors.As(err, &fe) {
			fe.File = path
		}
		return Settings{}, err
	}
	Debugf("loaded config from %s", path)
	return s, nil
}

// Validate rejects values the protocol cannot work with.
func (s Settings) Validate() error {
	switch {
	case s.LoaderBaudRate <= 0:
		return &FileError{Message: fmt.Sprintf("loader-baud-rate must be positive, got %d", s.LoaderBaudRate)}
	case s.ConnectTimeout <= 0 || s.ResponseTimeout <= 0 || s.DiscoverReplyTimeout <= 0:
		return &FileError{Message: "timeouts must be positive"}
	case s.DiscoverAttempts < 1:
		return &FileError{Message: fmt.Sprintf("discover-attempts must be at least 1, got %d", s.DiscoverAttempts)}
	case !validPort(s.DiscoverPort) || !validPort(s.ControlPort) || !validPort(s.DataPort):
		return &FileError{Message: "ports must be between 1 and 65535"}
	}
	return nil
}

func validPort(p int) bool {
	return p > 0 && p <= 65535
}
