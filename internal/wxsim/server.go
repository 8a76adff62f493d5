package wxsim

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vitaminmoo/wxload/internal/config"
	"github.com/vitaminmoo/wxload/internal/protocol"
)

// Config selects the listen addresses. Zero ports pick free ones.
type Config struct {
	Host          string // default 127.0.0.1
	ControlPort   int
	DataPort      int
	DiscoveryPort int
	Discovery     bool // run the UDP discovery responder
}

// Server runs the simulated module's listeners.
type Server struct {
	module *Module
	config Config

	ctx     context.Context
	cancel  context.CancelFunc
	running atomic.Bool
	wg      sync.WaitGroup

	control net.Listener
	data    net.Listener
	udp     net.PacketConn

	connsMu sync.Mutex
	conns   map[net.Conn]struct{}
}

// NewServer creates a server for module.
func NewServer(module *Module, cfg Config) *Server {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	return &Server{
		module: module,
		config: cfg,
		conns:  make(map[net.Conn]struct{}),
	}
}

// Start opens the listeners and begins serving.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return fmt.Errorf("server already running")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	var err error
	if s.control, err = net.Listen("tcp", net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.ControlPort))); err != nil {
		return fmt.Errorf("failed to listen on control port: %w", err)
	}
	if s.data, err = net.Listen("tcp", net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.DataPort))); err != nil {
		s.control.Close()
		return fmt.Errorf("failed to listen on data port: %w", err)
	}
	if s.config.Discovery {
		if s.udp, err = net.ListenPacket("udp4", net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.DiscoveryPort))); err != nil {
			s.control.Close()
			s.data.Close()
			return fmt.Errorf("failed to listen on discovery port: %w", err)
		}
	}

	s.running.Store(true)

	s.wg.Add(2)
	go s.acceptLoop(s.control, s.handleControl)
	go s.acceptLoop(s.data, s.handleData)
	if s.udp != nil {
		s.wg.Add(1)
		go s.discoveryLoop()
	}
	return nil
}

// Stop closes the listeners and all open connections.
func (s *Server) Stop() error {
	if !s.running.Load() {
		return nil
	}
	s.running.Store(false)
	s.cancel()

	s.control.Close()
	s.data.Close()
	if s.udp != nil {
		s.udp.Close()
	}

	s.connsMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connsMu.Unlock()

	s.wg.Wait()
	return nil
}

// Module returns the simulated module.
func (s *Server) Module() *Module {
	return s.module
}

// Host returns the address the server listens on.
func (s *Server) Host() string {
	return s.config.Host
}

// ControlPort returns the bound control port.
func (s *Server) ControlPort() int {
	return s.control.Addr().(*net.TCPAddr).Port
}

// DataPort returns the bound data port.
func (s *Server) DataPort() int {
	return s.data.Addr().(*net.TCPAddr).Port
}

// DiscoveryPort returns the bound discovery port, 0 when disabled.
func (s *Server) DiscoveryPort() int {
	if s.udp == nil {
		return 0
	}
	return s.udp.LocalAddr().(*net.UDPAddr).Port
}

func (s *Server) acceptLoop(ln net.Listener, handle func(net.Conn)) {
	defer s.wg.Done()

	for s.running.Load() {
		conn, err := ln.Accept()
		if err != nil {
			if s.running.Load() {
				config.Debugf("wxsim: accept error: %v", err)
			}
			continue
		}

		s.connsMu.Lock()
		s.conns[conn] = struct{}{}
		s.connsMu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.forget(conn)
			handle(conn)
		}()
	}
}

func (s *Server) forget(conn net.Conn) {
	conn.Close()
	s.connsMu.Lock()
	delete(s.conns, conn)
	s.connsMu.Unlock()
}

// handleControl serves exactly one request per connection, like the module.
func (s *Server) handleControl(conn net.Conn) {
	conn.SetDeadline(time.Now().Add(10 * time.Second))

	req, err := readRequest(bufio.NewReader(conn))
	if err != nil {
		config.Debugf("wxsim: bad request: %v", err)
		writeReply(conn, Reply{Status: http.StatusBadRequest, Body: []byte("Bad request")})
		return
	}
	config.Debugf("wxsim: %s %s", req.Method, req.Path)
	writeReply(conn, s.module.handle(req))
}

func readRequest(r *bufio.Reader) (Request, error) {
	tp := textproto.NewReader(r)
	line, err := tp.ReadLine()
	if err != nil {
		return Request{}, err
	}
	parts := strings.Fields(line)
	if len(parts) != 3 {
		return Request{}, fmt.Errorf("malformed request line %q", line)
	}
	u, err := url.ParseRequestURI(parts[1])
	if err != nil {
		return Request{}, err
	}
	hdr, err := tp.ReadMIMEHeader()
	if err != nil && !errors.Is(err, io.EOF) {
		return Request{}, err
	}

	req := Request{Method: parts[0], Path: u.Path, Query: u.Query()}
	if cl := hdr.Get("Content-Length"); cl != "" {
		n, err := strconv.Atoi(cl)
		if err != nil || n < 0 {
			return Request{}, fmt.Errorf("bad Content-Length %q", cl)
		}
		req.Body = make([]byte, n)
		if _, err := io.ReadFull(r, req.Body); err != nil {
			return Request{}, err
		}
	}
	return req, nil
}

func writeReply(w io.Writer, r Reply) {
	if r.StatusOnly {
		fmt.Fprintf(w, "HTTP/1.1 %d %s\r\n", r.Status, http.StatusText(r.Status))
		return
	}
	fmt.Fprintf(w, "HTTP/1.1 %d %s\r\nContent-Length: %d\r\n\r\n", r.Status, http.StatusText(r.Status), len(r.Body))
	w.Write(r.Body)
}

// handleData records the stream and answers chip checks.
func (s *Server) handleData(conn net.Conn) {
	buf := make([]byte, 4096)
	var pending []byte
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			s.module.mu.Lock()
			s.module.received.Write(chunk)
			echo, chipReply := s.module.Echo, s.module.ChipReply
			s.module.mu.Unlock()

			pending = append(pending, chunk...)
			if i := bytes.Index(pending, protocol.ChipCheckCommand); i >= 0 {
				pending = pending[i+len(protocol.ChipCheckCommand):]
				conn.Write(chipReply)
			} else if echo {
				conn.Write(chunk)
			}
			if len(pending) > len(protocol.ChipCheckCommand) {
				pending = pending[len(pending)-len(protocol.ChipCheckCommand):]
			}
		}
		if err != nil {
			return
		}
	}
}

func (s *Server) discoveryLoop() {
	defer s.wg.Done()

	var self [4]byte
	copy(self[:], net.ParseIP(s.config.Host).To4())

	buf := make([]byte, protocol.MaxDiscoveryPacket)
	for s.running.Load() {
		n, from, err := s.udp.ReadFrom(buf)
		if err != nil {
			if s.running.Load() {
				config.Debugf("wxsim: discovery read error: %v", err)
			}
			continue
		}
		if reply := s.module.discoveryReply(buf[:n], self); reply != nil {
			s.udp.WriteTo(reply, from)
		}
	}
}
