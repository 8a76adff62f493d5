package protocol

import (
	"fmt"
	"sync/atomic"
)

// requestCounter numbers control requests for debug output
var requestCounter uint64

// NextRequestID returns an incrementing tag used to pair request and
// response dumps in verbose logs.
func NextRequestID() string {
	id := atomic.AddUint64(&requestCounter, 1)
	return fmt.Sprintf("req-%04d", id)
}

// RequestLine returns the first line of a raw request, without CRLF.
func RequestLine(req []byte) string {
	for i := 0; i+1 < len(req); i++ {
		if req[i] == '\r' && req[i+1] == '\n' {
			return string(req[:i])
		}
	}
	return string(req)
}
