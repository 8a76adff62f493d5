package wifi

import (
	"errors"
	"fmt"
	"net"
)

// ErrTimeout is returned when a read deadline passes before any data arrived.
var ErrTimeout = errors.New("timed out")

// TransportError reports a socket failure talking to a module.
type TransportError struct {
	Op   string // "connect", "send", "receive"
	Addr string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a timeout.
func (e *TransportError) Timeout() bool {
	return isTimeout(e.Err)
}

func isTimeout(err error) bool {
	if errors.Is(err, ErrTimeout) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
