package wifi

import (
	"errors"
	"net"
	"time"

	"github.com/vitaminmoo/wxload/internal/config"
)

// ErrClosed is returned by operations on a closed data channel.
var ErrClosed = errors.New("data channel closed")

// DataChannel is the long-lived telnet-style byte stream to the target's
// serial line.
type DataChannel struct {
	addr string
	conn net.Conn
}

// DialData opens a data channel to addr.
func DialData(addr string, timeout time.Duration) (*DataChannel, error) {
	config.Debugf("connecting data channel to %s", addr)
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, &TransportError{Op: "connect", Addr: addr, Err: err}
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		tcp.SetNoDelay(true)
	}
	return &DataChannel{addr: addr, conn: conn}, nil
}

// Addr returns the remote address.
func (d *DataChannel) Addr() string {
	return d.addr
}

// Write sends all of p.
func (d *DataChannel) Write(p []byte) error {
	if d.conn == nil {
		return ErrClosed
	}
	if err := writeFull(d.conn, p); err != nil {
		return &TransportError{Op: "send", Addr: d.addr, Err: err}
	}
	return nil
}

// Read returns whatever arrives within timeout, up to len(buf) bytes.
// If nothing arrives it returns ErrTimeout.
func (d *DataChannel) Read(buf []byte, timeout time.Duration) (int, error) {
	if d.conn == nil {
		return 0, ErrClosed
	}
	if err := d.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, err
	}
	n, err := d.conn.Read(buf)
	if n > 0 {
		return n, nil
	}
	if isTimeout(err) {
		return 0, ErrTimeout
	}
	return 0, &TransportError{Op: "receive", Addr: d.addr, Err: err}
}

// ReadFull fills buf or fails when timeout passes first. The bytes read
// before a timeout are returned with the error.
func (d *DataChannel) ReadFull(buf []byte, timeout time.Duration) (int, error) {
	if d.conn == nil {
		return 0, ErrClosed
	}
	if err := d.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, err
	}
	n := 0
	for n < len(buf) {
		m, err := d.conn.Read(buf[n:])
		n += m
		if err != nil {
			if isTimeout(err) {
				return n, ErrTimeout
			}
			return n, &TransportError{Op: "receive", Addr: d.addr, Err: err}
		}
	}
	return n, nil
}

// Conn exposes the underlying connection for streaming use such as the
// terminal.
func (d *DataChannel) Conn() net.Conn {
	return d.conn
}

// Close closes the channel. Closing twice returns ErrClosed.
func (d *DataChannel) Close() error {
	if d.conn == nil {
		return ErrClosed
	}
	err := d.conn.Close()
	d.conn = nil
	config.Debugf("data channel to %s closed", d.addr)
	return err
}
