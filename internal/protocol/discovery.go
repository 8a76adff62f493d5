package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"net"
)

const (
	// DiscoveryHeaderSize is the length of the leading word of a discovery
	// packet. Requests carry zeros there; replies never do.
	DiscoveryHeaderSize = 4

	// MaxDiscoveryPacket bounds both the request payload and reply reads.
	MaxDiscoveryPacket = 1024

	// MaxFieldLen is the longest name or MAC value accepted in a reply.
	MaxFieldLen = 127

	NameTag       = `"name": "`
	MACAddressTag = `"mac address": "`
)

// ErrPayloadFull is returned when no more addresses fit in a discovery packet.
var ErrPayloadFull = errors.New("discovery payload full")

// FieldError reports a reply field that could not be extracted.
type FieldError struct {
	Tag    string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("discovery reply field %s: %s", e.Tag, e.Reason)
}

// NewDiscoveryPayload returns the initial discovery request: one zero word.
func NewDiscoveryPayload() []byte {
	return make([]byte, DiscoveryHeaderSize, MaxDiscoveryPacket)
}

// AppendConfirmation appends the raw IPv4 address of a discovered module so
// that it stops answering subsequent rounds.
func AppendConfirmation(payload []byte, ip net.IP) ([]byte, error) {
	ip4 := ip.To4()
	if ip4 == nil {
		return payload, fmt.Errorf("not an IPv4 address: %v", ip)
	}
	if len(payload)+net.IPv4len > MaxDiscoveryPacket {
		return payload, ErrPayloadFull
	}
	return append(payload, ip4...), nil
}

// IsReply reports whether pkt is a module reply rather than an echo of a
// request (ours or another host's).
func IsReply(pkt []byte) bool {
	if len(pkt) < DiscoveryHeaderSize {
		return false
	}
	for _, b := range pkt[:DiscoveryHeaderSize] {
		if b != 0 {
			return true
		}
	}
	return false
}

// ReplyField extracts the quoted value following tag in a reply. The text
// after the header is searched up to the first NUL byte. A missing tag yields ("", false, nil). A tag without a closing quote or
// a value longer than MaxFieldLen is an error.
func ReplyField(pkt []byte, tag string) (string, bool, error) {
	if len(pkt) <= DiscoveryHeaderSize {
		return "", false, nil
	}
	pkt = pkt[DiscoveryHeaderSize:]
	if nul := bytes.IndexByte(pkt, 0); nul >= 0 {
		pkt = pkt[:nul]
	}
	i := bytes.Index(pkt, []byte(tag))
	if i < 0 {
		return "", false, nil
	}
	rest := pkt[i+len(tag):]
	end := bytes.IndexByte(rest, '"')
	if end < 0 {
		return "", true, &FieldError{Tag: tag, Reason: "missing closing quote"}
	}
	if end > MaxFieldLen {
		return "", true, &FieldError{Tag: tag, Reason: fmt.Sprintf("value too long (%d bytes)", end)}
	}
	return string(rest[:end]), true, nil
}

// ParseReply builds a ModuleInfo from a reply received from addr.
func ParseReply(pkt []byte, addr net.IP) (ModuleInfo, error) {
	info := ModuleInfo{Address: addr.String()}

	name, _, err := ReplyField(pkt, NameTag)
	if err != nil {
		return ModuleInfo{}, err
	}
	mac, _, err := ReplyField(pkt, MACAddressTag)
	if err != nil {
		return ModuleInfo{}, err
	}
	info.Name = name
	info.MAC = mac
	return info, nil
}
