package terminal

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/vitaminmoo/wxload/internal/config"
)

const (
	keyCtrlC = 0x03
	keyEsc   = 0x1b
)

var (
	errExitRequested = errors.New("exit requested")
	errSessionEnded  = errors.New("session ended")
)

// Options controls a terminal session.
type Options struct {
	// CheckForExit makes ESC or Ctrl-C end the session instead of being sent
	// to the target.
	CheckForExit bool

	// PSTMode treats a received CR as a line break, like the Parallax Serial
	// Terminal.
	PSTMode bool
}

// Passthrough connects the user's terminal to conn until the user exits or
// the target side closes. Stdin is switched to raw mode when it is a
// terminal.
func Passthrough(conn net.Conn, opts Options) error {
	// earlier timed reads leave a deadline behind
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return err
	}

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("failed to set raw mode: %w", err)
		}
		defer term.Restore(fd, oldState)
	}

	return Run(conn, os.Stdin, os.Stdout, opts)
}

// Run copies target output from conn to out and keyboard input from in to
// conn. It returns when in or conn reaches EOF, or an exit key is pressed.
//
// A read from in cannot be interrupted, so when the target closes first the
// input goroutine stays blocked until in yields data or EOF. It then drops
// what it read and exits without touching conn.
func Run(conn io.ReadWriter, in io.Reader, out io.Writer, opts Options) error {
	done := make(chan struct{})
	defer close(done)

	remote := make(chan error, 1)
	go func() {
		remote <- copyRemote(out, conn, opts.PSTMode)
	}()

	local := make(chan error, 1)
	go func() {
		local <- copyLocal(conn, in, opts.CheckForExit, done)
	}()

	select {
	case err := <-remote:
		if errors.Is(err, io.EOF) || isClosed(err) {
			config.Debugf("terminal: target side closed")
			return nil
		}
		return err
	case err := <-local:
		if errors.Is(err, errExitRequested) || errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
}

// copyRemote writes target output to out until conn fails. In PST mode
// every CR is followed by a LF so lines do not overwrite each other.
func copyRemote(out io.Writer, conn io.Reader, pst bool) error {
	buf := make([]byte, 1024)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if pst {
				chunk = expandCR(chunk)
			}
			if _, werr := out.Write(chunk); werr != nil {
				return werr
			}
		}
		if err != nil {
			return err
		}
	}
}

// copyLocal forwards keyboard input to conn until done is closed.
func copyLocal(conn io.Writer, in io.Reader, checkForExit bool, done <-chan struct{}) error {
	buf := make([]byte, 256)
	for {
		n, err := in.Read(buf)
		select {
		case <-done:
			return errSessionEnded
		default:
		}
		if n > 0 {
			chunk := buf[:n]
			if checkForExit {
				if i := exitIndex(chunk); i >= 0 {
					if i > 0 {
						if _, werr := conn.Write(chunk[:i]); werr != nil {
							return werr
						}
					}
					return errExitRequested
				}
			}
			if _, werr := conn.Write(chunk); werr != nil {
				return werr
			}
		}
		if err != nil {
			return err
		}
	}
}

func exitIndex(p []byte) int {
	for i, b := range p {
		if b == keyEsc || b == keyCtrlC {
			return i
		}
	}
	return -1
}

func expandCR(p []byte) []byte {
	out := make([]byte, 0, len(p)+8)
	for _, b := range p {
		out = append(out, b)
		if b == '\r' {
			out = append(out, '\n')
		}
	}
	return out
}

func isClosed(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
