package api

import (
	"bytes"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/vitaminmoo/wxload/internal/config"
	"github.com/vitaminmoo/wxload/internal/protocol"
	"github.com/vitaminmoo/wxload/internal/wifi"
)

// DefaultLoaderBaudRate is the serial rate the module uses to talk to the
// target during a load.
const DefaultLoaderBaudRate = 115200

// State is the lifecycle position of a Client.
type State int

const (
	StateUnbound State = iota
	StateBound
	StateDataChannelOpen
)

func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateBound:
		return "bound"
	case StateDataChannelOpen:
		return "data channel open"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// binding holds the endpoints of one module. It is replaced as a whole.
type binding struct {
	ip      string
	control string // host:port
	data    string // host:port
}

// Client is a session with one WX module.
// It is not safe for concurrent use.
type Client struct {
	bind *binding

	controlPort     int
	dataPort        int
	connectTimeout  time.Duration
	responseTimeout time.Duration
	loaderBaudRate  int

	version  string
	baudRate int // last acknowledged rate, 0 when unknown
	resetPin int

	data *wifi.DataChannel
}

// Option configures a Client.
type Option func(*Client)

// WithPorts overrides the control and data ports.
func WithPorts(control, data int) Option {
	return func(c *Client) {
		c.controlPort = control
		c.dataPort = data
	}
}

// WithTimeouts overrides the connect and response timeouts.
func WithTimeouts(connect, response time.Duration) Option {
	return func(c *Client) {
		c.connectTimeout = connect
		c.responseTimeout = response
	}
}

// WithLoaderBaudRate sets the rate negotiated before a load.
func WithLoaderBaudRate(rate int) Option {
	return func(c *Client) {
		c.loaderBaudRate = rate
	}
}

// WithResetPin sets the module GPIO used to reset the target.
func WithResetPin(pin int) Option {
	return func(c *Client) {
		c.resetPin = pin
	}
}

// WithSettings applies the values of a config file.
func WithSettings(s config.Settings) Option {
	return func(c *Client) {
		c.controlPort = s.ControlPort
		c.dataPort = s.DataPort
		c.connectTimeout = s.ConnectTimeout
		c.responseTimeout = s.ResponseTimeout
		c.loaderBaudRate = s.LoaderBaudRate
	}
}

// New creates an unbound client.
func New(opts ...Option) *Client {
	c := &Client{
		controlPort:     wifi.HTTPPort,
		dataPort:        wifi.TelnetPort,
		connectTimeout:  wifi.ConnectTimeout,
		responseTimeout: wifi.ResponseTimeout,
		loaderBaudRate:  DefaultLoaderBaudRate,
		resetPin:        protocol.DefaultResetPin,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dial creates a client bound to address.
func Dial(address string, opts ...Option) (*Client, error) {
	c := New(opts...)
	if err := c.SetAddress(address); err != nil {
		return nil, err
	}
	return c, nil
}

// SetAddress binds the client to the module at address (dotted-quad IPv4).
// On error the previous binding is kept. Rebinding forgets the cached
// version and baud rate, which belong to the previous module.
func (c *Client) SetAddress(address string) error {
	ip := net.ParseIP(address).To4()
	if ip == nil {
		return &protocol.ConfigError{Setting: "module address", Value: address, Reason: "not an IPv4 address"}
	}
	if c.data != nil {
		return ErrAlreadyConnected
	}
	host := ip.String()
	c.bind = &binding{
		ip:      host,
		control: net.JoinHostPort(host, strconv.Itoa(c.controlPort)),
		data:    net.JoinHostPort(host, strconv.Itoa(c.dataPort)),
	}
	c.version = ""
	c.baudRate = 0
	config.Debugf("bound to %s (control %s, data %s)", host, c.bind.control, c.bind.data)
	return nil
}

// Address returns the bound module address, or "" when unbound.
func (c *Client) Address() string {
	if c.bind == nil {
		return ""
	}
	return c.bind.ip
}

// State reports where the client is in its lifecycle.
func (c *Client) State() State {
	switch {
	case c.bind == nil:
		return StateUnbound
	case c.data != nil:
		return StateDataChannelOpen
	default:
		return StateBound
	}
}

// BaudRate returns the last acknowledged baud rate, 0 if none.
func (c *Client) BaudRate() int {
	return c.baudRate
}

// LoaderBaudRate returns the rate negotiated before a load.
func (c *Client) LoaderBaudRate() int {
	return c.loaderBaudRate
}

// ResetPin returns the module GPIO used to reset the target.
func (c *Client) ResetPin() int {
	return c.resetPin
}

// Send performs one control request and returns the parsed response.
func (c *Client) Send(req []byte) (*protocol.Response, error) {
	if c.bind == nil {
		return nil, ErrUnbound
	}
	ch := &wifi.ControlChannel{
		Addr:            c.bind.control,
		ConnectTimeout:  c.connectTimeout,
		ResponseTimeout: c.responseTimeout,
	}
	return ch.Do(req)
}

// sendOK performs a request and fails on any status other than 200.
func (c *Client) sendOK(op string, req []byte) (*protocol.Response, error) {
	resp, err := c.Send(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !resp.OK() {
		config.Debugf("%s returned %d", op, resp.StatusCode)
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(resp.Body))}
	}
	return resp, nil
}
