package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// Control endpoints understood by the WX firmware.
const (
	PathSetting      = "/wx/setting"
	PathSaveSettings = "/wx/save-settings"
	PathReset        = "/propeller/reset"
	PathLoad         = "/propeller/load"

	SettingVersion    = "version"
	SettingBaudRate   = "baud-rate"
	SettingModuleName = "module-name"

	// ResetDelayMS is the reset pulse length requested from the module.
	ResetDelayMS = 35

	// LoadResponseTimeoutMS is how long the module waits for the target's
	// response after a load.
	LoadResponseTimeoutMS = 1000
)

var headerEnd = []byte("\r\n\r\n")

var (
	// ErrMalformedStatus is returned when the status line has fewer than two
	// tokens or the second token is not an integer.
	ErrMalformedStatus = errors.New("malformed status line")

	// ErrNoBody is returned when a response has no header terminator.
	ErrNoBody = errors.New("response has no body")
)

// NewRequest builds a control request. A Content-Length header is only
// emitted when body is non-nil; body bytes are copied verbatim.
func NewRequest(method, target string, body []byte) []byte {
	var hdr bytes.Buffer
	fmt.Fprintf(&hdr, "%s %s HTTP/1.1\r\n", method, target)
	if body != nil {
		fmt.Fprintf(&hdr, "Content-Length: %d\r\n", len(body))
	}
	hdr.WriteString("\r\n")

	req := make([]byte, 0, hdr.Len()+len(body))
	req = append(req, hdr.Bytes()...)
	return append(req, body...)
}

// GetSettingRequest builds "GET /wx/setting?name=<name>".
func GetSettingRequest(name string) []byte {
	return NewRequest("GET", fmt.Sprintf("%s?name=%s", PathSetting, name), nil)
}

// SetSettingRequest builds "POST /wx/setting?name=<name>&value=<value>".
func SetSettingRequest(name, value string) []byte {
	return NewRequest("POST", fmt.Sprintf("%s?name=%s&value=%s", PathSetting, name, value), nil)
}

// SaveSettingsRequest builds "POST /wx/save-settings".
func SaveSettingsRequest() []byte {
	return NewRequest("POST", PathSaveSettings, nil)
}

// ResetRequest builds the reset pulse request for the given pin.
func ResetRequest(pin int) []byte {
	return NewRequest("POST", fmt.Sprintf("%s?reset-pin=%d&reset-delay=%d", PathReset, pin, ResetDelayMS), nil)
}

// LoadRequest builds the load handshake request carrying image as its body.
func LoadRequest(baudRate, pin, responseSize int, image []byte) []byte {
	if image == nil {
		image = []byte{}
	}
	target := fmt.Sprintf("%s?baud-rate=%d&reset-pin=%d&response-size=%d&response-timeout=%d",
		PathLoad, baudRate, pin, responseSize, LoadResponseTimeoutMS)
	return NewRequest("POST", target, image)
}

// ParseStatus returns the numeric status of a raw response. Like
// sscanf("%s %d") it skips leading whitespace and takes the second
// whitespace-delimited token.
func ParseStatus(raw []byte) (int, error) {
	line := raw
	if i := bytes.IndexAny(raw, "\r\n"); i >= 0 {
		line = raw[:i]
	}
	fields := bytes.Fields(line)
	if len(fields) < 2 {
		return 0, ErrMalformedStatus
	}
	code, err := leadingInt(fields[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedStatus, fields[1])
	}
	return code, nil
}

// FindBody returns the bytes following the first "\r\n\r\n" in raw.
// ok is false when the terminator is missing, which differs from an empty
// body (terminator present, nothing after it).
func FindBody(raw []byte) (body []byte, ok bool) {
	i := bytes.Index(raw, headerEnd)
	if i < 0 {
		return nil, false
	}
	return raw[i+len(headerEnd):], true
}

// ParseResponse parses the status and locates the body of a raw response.
func ParseResponse(raw []byte) (*Response, error) {
	code, err := ParseStatus(raw)
	if err != nil {
		return nil, err
	}
	body, ok := FindBody(raw)
	return &Response{StatusCode: code, Raw: raw, Body: body, HasBody: ok}, nil
}

// ResponseComplete reports whether raw holds a full response: the header
// terminator was seen and, if a Content-Length header is present, the whole
// body has arrived. Without Content-Length the response ends when the peer
// closes the connection, so it is never complete here.
func ResponseComplete(raw []byte) bool {
	i := bytes.Index(raw, headerEnd)
	if i < 0 {
		return false
	}
	n, ok := contentLength(raw[:i])
	if !ok {
		return false
	}
	return len(raw)-i-len(headerEnd) >= n
}

func contentLength(header []byte) (int, bool) {
	for _, line := range bytes.Split(header, []byte("\r\n")) {
		name, value, found := bytes.Cut(line, []byte(":"))
		if !found || !bytes.EqualFold(bytes.TrimSpace(name), []byte("Content-Length")) {
			continue
		}
		n, err := strconv.Atoi(string(bytes.TrimSpace(value)))
		if err != nil || n < 0 {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// leadingInt parses an optionally signed decimal prefix of b.
func leadingInt(b []byte) (int, error) {
	end := 0
	if end < len(b) && (b[end] == '-' || b[end] == '+') {
		end++
	}
	start := end
	for end < len(b) && b[end] >= '0' && b[end] <= '9' {
		end++
	}
	if end == start {
		return 0, strconv.ErrSyntax
	}
	return strconv.Atoi(string(b[:end]))
}
