// Package wxsim simulates a WX module on localhost: the control port, the
// data port and the discovery responder. It backs package tests and the
// "debug simulate" command.
package wxsim

import (
	"bytes"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/vitaminmoo/wxload/internal/protocol"
)

// Request is a control request as received by the simulator.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
}

// Reply is a canned control response.
type Reply struct {
	Status int
	Body   []byte
	// StatusOnly sends the status line alone, without headers or the
	// blank line that ends them.
	StatusOnly bool
}

// Module holds the simulated module state. Exported fields may be set
// before Start; afterwards use the accessor methods.
type Module struct {
	Name    string
	MAC     string
	Version string

	// ChipReply is written to the data port after a chip check command.
	ChipReply []byte

	// Echo makes the data port echo everything else it receives.
	Echo bool

	// LoadReply overrides the default load answer (200 with response-size
	// bytes of 0x55).
	LoadReply *Reply

	mu       sync.Mutex
	baudRate int
	saved    bool
	resets   int
	requests []Request
	failures map[string]Reply
	received bytes.Buffer
}

// NewModule returns a module answering like current firmware.
func NewModule(name string) *Module {
	return &Module{
		Name:      name,
		MAC:       "18:fe:34:00:00:01",
		Version:   "v1.0 (wxsim)",
		ChipReply: []byte("\r\nProp_Ver G\r\n"),
		baudRate:  115200,
		failures:  make(map[string]Reply),
	}
}

// SetVersion changes the reported firmware version.
func (m *Module) SetVersion(v string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Version = v
}

// SetLoadReply overrides the load answer; nil restores the default.
func (m *Module) SetLoadReply(r *Reply) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LoadReply = r
}

// SetEcho turns data port echo on or off.
func (m *Module) SetEcho(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Echo = on
}

// FailPath makes every request to path answer with reply.
func (m *Module) FailPath(path string, reply Reply) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[path] = reply
}

// Requests returns the control requests received so far.
func (m *Module) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

// CountRequests returns how many requests matched method, path and, when
// name is non-empty, the "name" query parameter.
func (m *Module) CountRequests(method, path, name string) int {
	n := 0
	for _, r := range m.Requests() {
		if r.Method == method && r.Path == path && (name == "" || r.Query.Get("name") == name) {
			n++
		}
	}
	return n
}

// BaudRate returns the module's current serial rate.
func (m *Module) BaudRate() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.baudRate
}

// ModuleName returns the module name.
func (m *Module) ModuleName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Name
}

// Saved reports whether settings have been saved.
func (m *Module) Saved() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved
}

// Resets returns the number of reset pulses requested.
func (m *Module) Resets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets
}

// Received returns a copy of everything written to the data port.
func (m *Module) Received() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return bytes.Clone(m.received.Bytes())
}

// Images decodes every text-mode load found in the data port stream.
func (m *Module) Images() ([][]byte, error) {
	stream := m.Received()
	var out [][]byte
	for {
		i := bytes.Index(stream, protocol.TextModeCommand)
		if i < 0 {
			return out, nil
		}
		stream = stream[i+len(protocol.TextModeCommand):]
		end := bytes.Index(stream, protocol.Terminator)
		if end < 0 {
			return out, nil
		}
		img, err := protocol.DecodeImage(stream[:end])
		if err != nil {
			return out, err
		}
		out = append(out, img)
		stream = stream[end+len(protocol.Terminator):]
	}
}

// handle answers one control request.
func (m *Module) handle(req Request) Reply {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if r, ok := m.failures[req.Path]; ok {
		return r
	}

	switch {
	case req.Method == "GET" && req.Path == protocol.PathSetting:
		return m.getSetting(req.Query.Get("name"))

	case req.Method == "POST" && req.Path == protocol.PathSetting:
		return m.setSetting(req.Query.Get("name"), req.Query.Get("value"))

	case req.Method == "POST" && req.Path == protocol.PathSaveSettings:
		m.saved = true
		return ok(nil)

	case req.Method == "POST" && req.Path == protocol.PathReset:
		if _, err := strconv.Atoi(req.Query.Get("reset-pin")); err != nil {
			return Reply{Status: http.StatusBadRequest, Body: []byte("Invalid reset-pin")}
		}
		m.resets++
		return ok(nil)

	case req.Method == "POST" && req.Path == protocol.PathLoad:
		if m.LoadReply != nil {
			return *m.LoadReply
		}
		size, err := strconv.Atoi(req.Query.Get("response-size"))
		if err != nil || size < 0 {
			return Reply{Status: http.StatusBadRequest, Body: []byte("Invalid response-size")}
		}
		return ok(bytes.Repeat([]byte{0x55}, size))
	}

	return Reply{Status: http.StatusNotFound, Body: []byte("Not found")}
}

func (m *Module) getSetting(name string) Reply {
	switch name {
	case protocol.SettingVersion:
		return ok([]byte(m.Version))
	case protocol.SettingModuleName:
		return ok([]byte(m.Name))
	case protocol.SettingBaudRate:
		return ok([]byte(strconv.Itoa(m.baudRate)))
	}
	return Reply{Status: http.StatusBadRequest, Body: []byte("Unknown setting")}
}

func (m *Module) setSetting(name, value string) Reply {
	switch name {
	case protocol.SettingBaudRate:
		rate, err := strconv.Atoi(value)
		if err != nil || rate <= 0 {
			return Reply{Status: http.StatusBadRequest, Body: []byte("Invalid baud-rate")}
		}
		m.baudRate = rate
		return ok(nil)
	case protocol.SettingModuleName:
		if value == "" {
			return Reply{Status: http.StatusBadRequest, Body: []byte("Invalid module-name")}
		}
		m.Name = value
		return ok(nil)
	}
	return Reply{Status: http.StatusBadRequest, Body: []byte("Unknown setting")}
}

// discoveryReply returns the discovery answer, or nil when the request
// already lists addr as found.
func (m *Module) discoveryReply(req []byte, addr [4]byte) []byte {
	if len(req) < protocol.DiscoveryHeaderSize || protocol.IsReply(req) {
		return nil
	}
	for i := protocol.DiscoveryHeaderSize; i+4 <= len(req); i += 4 {
		if bytes.Equal(req[i:i+4], addr[:]) {
			return nil
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	reply := []byte{'W', 'X', 0x00, 0x01}
	reply = append(reply, `{"name": "`+m.Name+`", "mac address": "`+m.MAC+`", "version": "`+m.Version+`"}`...)
	return reply
}

func ok(body []byte) Reply {
	return Reply{Status: http.StatusOK, Body: body}
}
