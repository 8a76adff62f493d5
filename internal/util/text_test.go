package util

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTextData(t *testing.T) {
	assert.True(t, IsTextData([]byte("v1.0\r\n\tok")))
	assert.False(t, IsTextData([]byte{0x00, 'a'}))
	assert.False(t, IsTextData([]byte{0xff}))
}

func TestHexDump(t *testing.T) {
	var buf bytes.Buffer
	HexDump(&buf, []byte("ABC\x00"))
	assert.Equal(t, "0000  41 42 43 00 "+strings.Repeat(" ", 37)+" |ABC.|\n", buf.String())
}

func TestDumpResponse(t *testing.T) {
	var buf bytes.Buffer
	DumpResponse(&buf, "response", []byte("HTTP/1.1 200 OK\r\nX: y\r\n\r\nv1.0"))
	assert.Equal(t, "response:\n  HTTP/1.1 200 OK\n  X: y\n  body (4 bytes):\n  v1.0\n", buf.String())

	buf.Reset()
	DumpResponse(&buf, "response", []byte("HTTP/1.1 200 OK\r\n"))
	assert.Contains(t, buf.String(), "(no body)")

	buf.Reset()
	DumpResponse(&buf, "response", []byte("HTTP/1.1 200 OK\r\n\r\n\x01\x02"))
	assert.Contains(t, buf.String(), "0000  01 02")
}
