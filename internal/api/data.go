package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/vitaminmoo/wxload/internal/config"
	"github.com/vitaminmoo/wxload/internal/firmware"
	"github.com/vitaminmoo/wxload/internal/protocol"
	"github.com/vitaminmoo/wxload/internal/wifi"
)

const (
	// MaxDataSize is the largest single write on the data channel.
	MaxDataSize = 1024

	// ChipCheckTimeout bounds the wait for the chip-version reply.
	ChipCheckTimeout = 3 * time.Second

	chipCheckSettle = 15 * time.Millisecond
	textModeSettle  = 16 * time.Millisecond
	programPause    = 20 * time.Millisecond
)

// Connect opens the data channel.
func (c *Client) Connect() error {
	if c.bind == nil {
		return ErrUnbound
	}
	if c.data != nil {
		return ErrAlreadyConnected
	}
	dc, err := wifi.DialData(c.bind.data, c.connectTimeout)
	if err != nil {
		return err
	}
	c.data = dc
	return nil
}

// IsOpen reports whether the data channel is open.
func (c *Client) IsOpen() bool {
	return c.data != nil
}

// Disconnect closes the data channel. It fails when the channel is not open.
func (c *Client) Disconnect() error {
	if c.data == nil {
		return ErrNotConnected
	}
	err := c.data.Close()
	c.data = nil
	return err
}

// Close releases the data channel if it is open.
func (c *Client) Close() error {
	if c.data == nil {
		return nil
	}
	return c.Disconnect()
}

// DataChannel returns the open data channel.
func (c *Client) DataChannel() (*wifi.DataChannel, error) {
	if c.data == nil {
		return nil, ErrNotConnected
	}
	return c.data, nil
}

// SendData writes p to the target's serial line.
func (c *Client) SendData(p []byte) error {
	if c.data == nil {
		return ErrNotConnected
	}
	return c.data.Write(p)
}

// ReceiveData reads whatever arrives within timeout, at most len(buf) bytes.
func (c *Client) ReceiveData(buf []byte, timeout time.Duration) (int, error) {
	if c.data == nil {
		return 0, ErrNotConnected
	}
	return c.data.Read(buf, timeout)
}

// ReceiveExact fills buf or fails once timeout passes.
func (c *Client) ReceiveExact(buf []byte, timeout time.Duration) (int, error) {
	if c.data == nil {
		return 0, ErrNotConnected
	}
	return c.data.ReadFull(buf, timeout)
}

// CheckChipVersion resets the target, sends the chip check command and
// returns whatever the target answers within ChipCheckTimeout. The reply is
// only diagnostic; no answer yields an empty slice and no error.
func (c *Client) CheckChipVersion() ([]byte, error) {
	if c.data == nil {
		return nil, ErrNotConnected
	}
	if err := c.Reset(); err != nil {
		config.Debugf("chip check reset: %v", err)
	}
	time.Sleep(chipCheckSettle)

	if err := c.data.Write(protocol.ChipCheckCommand); err != nil {
		return nil, fmt.Errorf("chip check: %w", err)
	}

	buf := make([]byte, MaxDataSize)
	n, err := c.data.Read(buf, ChipCheckTimeout)
	if err != nil && !errors.Is(err, wifi.ErrTimeout) {
		return nil, fmt.Errorf("chip check: %w", err)
	}
	config.Debugf("chip check result %d [%q]", n, buf[:n])
	return buf[:n], nil
}

// SendProgramImage resets the target into text load mode and streams image
// base64 encoded, followed by the terminator. No acknowledgement is read.
// progress, if non-nil, is called after every chunk.
func (c *Client) SendProgramImage(image []byte, progress firmware.ProgressCallback) error {
	if c.data == nil {
		return ErrNotConnected
	}

	enc := protocol.EncodeImage(image)
	total := int64(len(enc))
	report := func(sent int64, phase string) {
		if progress != nil {
			progress(sent, total, phase)
		}
	}

	report(0, "resetting")
	if err := c.Reset(); err != nil {
		return fmt.Errorf("reset target: %w", err)
	}
	time.Sleep(textModeSettle)

	if err := c.data.Write(protocol.TextModeCommand); err != nil {
		return fmt.Errorf("send load header: %w", err)
	}

	var sent int64
	for off := 0; off < len(enc); off += MaxDataSize {
		end := min(off+MaxDataSize, len(enc))
		if err := c.data.Write(enc[off:end]); err != nil {
			return fmt.Errorf("send image at byte %d: %w", off, err)
		}
		sent = int64(end)
		report(sent, "sending")
	}

	if err := c.data.Write(protocol.Terminator); err != nil {
		return fmt.Errorf("send terminator: %w", err)
	}
	report(total, "done")
	config.Debugf("sent %d image bytes as %d encoded bytes", len(image), len(enc))
	return nil
}

// LoadProgram runs the full data-channel load on an open data channel: ask
// the chip for its version, pause, then send the image.
func (c *Client) LoadProgram(image []byte, progress firmware.ProgressCallback) error {
	if c.data == nil {
		return ErrNotConnected
	}

	if reply, err := c.CheckChipVersion(); err != nil {
		config.Debugf("chip check failed: %v", err)
	} else {
		config.Debugf("chip check reply: %q", reply)
	}

	// the module drops the connection if commands arrive back to back
	time.Sleep(programPause)

	return c.SendProgramImage(image, progress)
}
