package util

import (
	"bytes"
	"fmt"
	"io"
)

// IsTextData checks if a byte slice contains only printable ASCII text
func IsTextData(data []byte) bool {
	for _, b := range data {
		if b < 32 && b != 9 && b != 10 && b != 13 || b > 126 {
			return false
		}
	}
	return true
}

// HexDump writes data in hex dump format, 16 bytes per line
func HexDump(w io.Writer, data []byte) {
	for i := 0; i < len(data); i += 16 {
		// Offset
		fmt.Fprintf(w, "%04x  ", i)

		for j := 0; j < 16; j++ {
			if i+j < len(data) {
				fmt.Fprintf(w, "%02x ", data[i+j])
			} else {
				fmt.Fprint(w, "   ")
			}
			if j == 7 {
				fmt.Fprint(w, " ")
			}
		}

		fmt.Fprint(w, " |")
		for j := 0; j < 16 && i+j < len(data); j++ {
			b := data[i+j]
			if b >= 32 && b < 127 {
				fmt.Fprintf(w, "%c", b)
			} else {
				fmt.Fprint(w, ".")
			}
		}
		fmt.Fprintln(w, "|")
	}
}

// DumpHeader writes the header part of a control request or response
// (everything before the blank line), one line per header line.
func DumpHeader(w io.Writer, label string, raw []byte) {
	header := raw
	if i := bytes.Index(raw, []byte("\r\n\r\n")); i >= 0 {
		header = raw[:i]
	}
	fmt.Fprintf(w, "%s:\n", label)
	for _, line := range bytes.Split(header, []byte("\r\n")) {
		fmt.Fprintf(w, "  %s\n", line)
	}
}

// DumpResponse writes a response header followed by its body, as text when
// printable and as a hex dump otherwise.
func DumpResponse(w io.Writer, label string, raw []byte) {
	DumpHeader(w, label, raw)
	i := bytes.Index(raw, []byte("\r\n\r\n"))
	if i < 0 {
		fmt.Fprintln(w, "  (no body)")
		return
	}
	body := raw[i+4:]
	if len(body) == 0 {
		return
	}
	fmt.Fprintf(w, "  body (%d bytes):\n", len(body))
	if IsTextData(body) {
		fmt.Fprintf(w, "  %s\n", body)
		return
	}
	HexDump(w, body)
}
