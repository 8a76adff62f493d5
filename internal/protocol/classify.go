package protocol

import (
	"bytes"
	"fmt"
	"strconv"
)

// Kind is the outcome category of a failed load.
// Numeric values are reported to users and must never be repurposed;
// new kinds are appended.
type Kind int

const (
	KindInternal Kind = iota + 1
	KindCommunicationLost
	KindTargetNotFound
	KindVersionMismatch
	KindChecksumFailed
	KindLoadFailed
)

// Code returns the stable numeric code of k.
func (k Kind) Code() int { return int(k) }

func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "internal error"
	case KindCommunicationLost:
		return "communication lost"
	case KindTargetNotFound:
		return "target not found"
	case KindVersionMismatch:
		return "version mismatch"
	case KindChecksumFailed:
		return "checksum failed"
	case KindLoadFailed:
		return "load failed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// versionPrefix is matched separately because it carries a number.
const versionPrefix = "Wrong Propeller version: got "

type classifyRule struct {
	prefix string
	kind   Kind
}

// classifyRules is checked in order; the first matching prefix wins.
var classifyRules = []classifyRule{
	{"RX handshake timeout", KindCommunicationLost},
	{"RX handshake failed", KindTargetNotFound},
	{versionPrefix, KindVersionMismatch},
	{"Checksum timeout", KindCommunicationLost},
	{"Checksum error", KindChecksumFailed},
	{"Load image failed", KindLoadFailed},
	{"StartAck timeout", KindCommunicationLost},
}

// Classify maps the body of a failed load response to a Kind. For
// KindVersionMismatch the reported target version is returned as well
// (0 when the number is missing). Matching is case-insensitive and only
// considers the start of the body.
func Classify(body []byte) (Kind, int) {
	for _, rule := range classifyRules {
		if !hasPrefixFold(body, rule.prefix) {
			continue
		}
		if rule.kind == KindVersionMismatch {
			return rule.kind, atoi(body[len(versionPrefix):])
		}
		return rule.kind, 0
	}
	return KindInternal, 0
}

// LoadError reports a failed load handshake.
type LoadError struct {
	Kind       Kind
	StatusCode int    // 0 when the failure was detected on a 200 response
	Version    int    // reported target version for KindVersionMismatch
	Body       string // response body, trimmed
	Err        error
}

func (e *LoadError) Error() string {
	msg := fmt.Sprintf("load failed: %s (code %d)", e.Kind, e.Kind.Code())
	if e.Kind == KindVersionMismatch {
		msg += fmt.Sprintf(": target reports version %d", e.Version)
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(", status %d", e.StatusCode)
	}
	if e.Body != "" {
		msg += fmt.Sprintf(": %q", e.Body)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// NewLoadError classifies the body of a non-200 load response.
func NewLoadError(status int, body []byte) *LoadError {
	kind, version := Classify(body)
	return &LoadError{
		Kind:       kind,
		StatusCode: status,
		Version:    version,
		Body:       string(bytes.TrimSpace(body)),
	}
}

// ResponseSizeError is returned when a successful load reply does not carry
// exactly the number of bytes requested.
type ResponseSizeError struct {
	Want int
	Got  int
}

func (e *ResponseSizeError) Error() string {
	return fmt.Sprintf("response size mismatch: expected %d bytes, got %d", e.Want, e.Got)
}

func hasPrefixFold(b []byte, prefix string) bool {
	return len(b) >= len(prefix) && bytes.EqualFold(b[:len(prefix)], []byte(prefix))
}

// atoi parses a leading decimal like C's atoi: leading spaces are skipped and
// anything unparsable yields 0.
func atoi(b []byte) int {
	b = bytes.TrimLeft(b, " \t")
	end := 0
	if end < len(b) && (b[end] == '-' || b[end] == '+') {
		end++
	}
	for end < len(b) && b[end] >= '0' && b[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(string(b[:end]))
	if err != nil {
		return 0
	}
	return n
}
