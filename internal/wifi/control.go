package wifi

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/vitaminmoo/wxload/internal/config"
	"github.com/vitaminmoo/wxload/internal/protocol"
	"github.com/vitaminmoo/wxload/internal/util"
)

// ControlChannel performs request/response exchanges with a module's control
// port. Every call uses a fresh TCP connection.
type ControlChannel struct {
	Addr            string // host:port
	ConnectTimeout  time.Duration
	ResponseTimeout time.Duration
}

// NewControlChannel returns a channel for addr using the default timeouts.
func NewControlChannel(addr string) *ControlChannel {
	return &ControlChannel{
		Addr:            addr,
		ConnectTimeout:  ConnectTimeout,
		ResponseTimeout: ResponseTimeout,
	}
}

// Do sends req and returns the parsed response. The connection is always
// closed before returning. A response whose status line cannot be parsed
// is reported as protocol.ErrMalformedStatus.
func (c *ControlChannel) Do(req []byte) (*protocol.Response, error) {
	id := protocol.NextRequestID()
	config.Debugf("%s: %s -> %s", id, protocol.RequestLine(req), c.Addr)
	if config.Verbose {
		util.DumpHeader(config.Output, id+" request", req)
	}

	conn, err := net.DialTimeout("tcp", c.Addr, c.ConnectTimeout)
	if err != nil {
		return nil, &TransportError{Op: "connect", Addr: c.Addr, Err: err}
	}
	defer conn.Close()

	if err := writeFull(conn, req); err != nil {
		return nil, &TransportError{Op: "send", Addr: c.Addr, Err: err}
	}

	raw, err := readResponse(conn, c.ResponseTimeout)
	if err != nil {
		return nil, &TransportError{Op: "receive", Addr: c.Addr, Err: err}
	}
	if config.Verbose {
		util.DumpResponse(config.Output, id+" response", raw)
	}

	return protocol.ParseResponse(raw)
}

// readResponse reads until the peer closes, the buffer is full, or a
// response with Content-Length is complete. A timeout after a full header
// has arrived ends the response; a timeout before that is an error.
func readResponse(conn net.Conn, timeout time.Duration) ([]byte, error) {
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}

	buf := make([]byte, MaxResponseSize)
	n := 0
	for n < len(buf) {
		m, err := conn.Read(buf[n:])
		n += m
		if protocol.ResponseComplete(buf[:n]) {
			break
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if isTimeout(err) {
			if _, ok := protocol.FindBody(buf[:n]); ok {
				break
			}
			if n == 0 {
				return nil, ErrTimeout
			}
		}
		return nil, err
	}
	if n == 0 {
		return nil, io.ErrUnexpectedEOF
	}
	return buf[:n], nil
}

func writeFull(conn net.Conn, p []byte) error {
	for len(p) > 0 {
		n, err := conn.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}
