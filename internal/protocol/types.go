package protocol

// ModuleInfo identifies a WX module found by discovery.
// Two values describe the same module when their addresses match; the name
// is only informational and may be empty.
type ModuleInfo struct {
	Name    string `json:"name"`
	Address string `json:"address"` // dotted-quad IPv4
	MAC     string `json:"mac,omitempty"`
}

// SameModule reports whether m and other refer to the same module.
func (m ModuleInfo) SameModule(other ModuleInfo) bool {
	return m.Address == other.Address
}

// Response is a raw control-channel response.
// Raw holds the bytes exactly as received; Body is a view into Raw.
type Response struct {
	StatusCode int
	Raw        []byte
	Body       []byte
	HasBody    bool // false when no "\r\n\r\n" terminator was received
}

// OK reports whether the module answered with status 200.
func (r *Response) OK() bool {
	return r.StatusCode == 200
}
