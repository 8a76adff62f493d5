package api

import (
	"fmt"

	"github.com/vitaminmoo/wxload/internal/config"
	"github.com/vitaminmoo/wxload/internal/protocol"
)

// LoadImage runs the control-channel load handshake: the module resets the
// target, sends image at the loader baud rate and returns exactly
// responseSize bytes of the target's reply.
//
// Failures reported by the module are returned as *protocol.LoadError. A
// non-200 answer that ends before its headers do is a *StatusError.
func (c *Client) LoadImage(image []byte, responseSize int) ([]byte, error) {
	if err := c.SetBaudRate(c.loaderBaudRate); err != nil {
		return nil, fmt.Errorf("set loader baud rate: %w", err)
	}

	req := protocol.LoadRequest(c.loaderBaudRate, c.resetPin, responseSize, image)
	resp, err := c.Send(req)
	if err != nil {
		return nil, fmt.Errorf("load request: %w", err)
	}

	if !resp.OK() {
		config.Debugf("load returned %d", resp.StatusCode)
		if !resp.HasBody {
			return nil, &StatusError{Op: "load", StatusCode: resp.StatusCode}
		}
		return nil, protocol.NewLoadError(resp.StatusCode, resp.Body)
	}

	if !resp.HasBody {
		return nil, &protocol.LoadError{Kind: protocol.KindCommunicationLost, Err: protocol.ErrNoBody}
	}
	if len(resp.Body) != responseSize {
		return nil, &protocol.LoadError{
			Kind: protocol.KindCommunicationLost,
			Err:  &protocol.ResponseSizeError{Want: responseSize, Got: len(resp.Body)},
		}
	}

	out := make([]byte, len(resp.Body))
	copy(out, resp.Body)
	return out, nil
}
