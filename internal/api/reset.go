package api

import (
	"github.com/vitaminmoo/wxload/internal/protocol"
)

// SetResetMethod selects the reset pin by method name ("dtr", "cts",
// "rts") or decimal pin number.
func (c *Client) SetResetMethod(method string) error {
	pin, err := protocol.ResolveResetPin(method)
	if err != nil {
		return err
	}
	c.resetPin = pin
	return nil
}

// Reset pulses the target's reset line. It does not wait for the target to
// come back up.
func (c *Client) Reset() error {
	_, err := c.sendOK("reset", protocol.ResetRequest(c.resetPin))
	return err
}
