package wifi

import (
	"fmt"
	"net"
	"time"

	"github.com/vitaminmoo/wxload/internal/config"
	"github.com/vitaminmoo/wxload/internal/protocol"
)

// PacketConn is the part of net.PacketConn discovery needs.
type PacketConn interface {
	WriteTo(p []byte, addr net.Addr) (int, error)
	ReadFrom(p []byte) (int, net.Addr, error)
	SetReadDeadline(t time.Time) error
}

// DiscoverOptions controls a discovery run.
type DiscoverOptions struct {
	Broadcasts   []net.IP      // one per local interface
	Port         int           // destination port, DiscoverPort when zero
	Attempts     int           // empty rounds before giving up, DiscoverAttempts when zero
	ReplyTimeout time.Duration // length of one round, DiscoverReplyTimeout when zero
	MaxResults   int           // stop after this many modules; <= 0 means no limit

	// OnFound is called for every new module as it is discovered.
	OnFound func(protocol.ModuleInfo)
}

func (o *DiscoverOptions) setDefaults() {
	if o.Port == 0 {
		o.Port = DiscoverPort
	}
	if o.Attempts <= 0 {
		o.Attempts = DiscoverAttempts
	}
	if o.ReplyTimeout <= 0 {
		o.ReplyTimeout = DiscoverReplyTimeout
	}
}

// Discover broadcasts discovery requests on conn and collects module replies.
// Each round sends the request to every broadcast address and reads replies
// until ReplyTimeout has passed since the send, however many keep arriving.
// A round that finds a new module restores the attempt budget; an empty round
// uses one attempt up. Every module found is appended to the request so it
// stays quiet in later rounds.
//
// A malformed reply field aborts the whole run and no modules are returned.
func Discover(conn PacketConn, opts DiscoverOptions) ([]protocol.ModuleInfo, error) {
	opts.setDefaults()

	payload := protocol.NewDiscoveryPayload()
	var found []protocol.ModuleInfo
	rx := make([]byte, protocol.MaxDiscoveryPacket)

	for tries := opts.Attempts; tries > 0; {
		for _, bcast := range opts.Broadcasts {
			dst := &net.UDPAddr{IP: bcast, Port: opts.Port}
			if _, err := conn.WriteTo(payload, dst); err != nil {
				return nil, &TransportError{Op: "send", Addr: dst.String(), Err: err}
			}
		}

		newThisRound := 0
		roundEnd := time.Now().Add(opts.ReplyTimeout)
		if err := conn.SetReadDeadline(roundEnd); err != nil {
			return nil, err
		}
		for time.Now().Before(roundEnd) {
			n, from, err := conn.ReadFrom(rx)
			if err != nil {
				if isTimeout(err) {
					break
				}
				return nil, &TransportError{Op: "receive", Addr: "discovery", Err: err}
			}

			pkt := rx[:n]
			if !protocol.IsReply(pkt) {
				continue
			}
			ip := udpIP(from)
			if ip == nil {
				continue
			}
			if known(found, ip.String()) {
				config.Debugf("skipping duplicate: %s", ip)
				continue
			}

			newThisRound++
			if payload, err = protocol.AppendConfirmation(payload, ip); err != nil {
				config.Debugf("not confirming %s: %v", ip, err)
			}
			config.Debugf("from %s got: %q", ip, pkt[protocol.DiscoveryHeaderSize:])

			info, err := protocol.ParseReply(pkt, ip)
			if err != nil {
				return nil, fmt.Errorf("reply from %s: %w", ip, err)
			}
			found = append(found, info)
			if opts.OnFound != nil {
				opts.OnFound(info)
			}
			if opts.MaxResults > 0 && len(found) >= opts.MaxResults {
				return found, nil
			}
		}

		if newThisRound > 0 {
			tries = opts.Attempts
		} else {
			tries--
		}
	}
	return found, nil
}

// FindModules opens a UDP socket on listenPort, broadcasts on every local
// interface and returns what Discover finds.
func FindModules(listenPort int, opts DiscoverOptions) ([]protocol.ModuleInfo, error) {
	if opts.Broadcasts == nil {
		bcasts, err := BroadcastAddrs()
		if err != nil {
			return nil, err
		}
		opts.Broadcasts = bcasts
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: listenPort})
	if err != nil {
		return nil, fmt.Errorf("open broadcast socket: %w", err)
	}
	defer conn.Close()

	return Discover(conn, opts)
}

// FormatModule renders a module the way discovery lists it.
func FormatModule(m protocol.ModuleInfo) string {
	s := ""
	if m.Name != "" {
		s = fmt.Sprintf("Name: '%s', ", m.Name)
	}
	s += "IP: " + m.Address
	if m.MAC != "" {
		s += ", MAC: " + m.MAC
	}
	return s
}

func udpIP(addr net.Addr) net.IP {
	switch a := addr.(type) {
	case *net.UDPAddr:
		return a.IP.To4()
	default:
		host, _, err := net.SplitHostPort(addr.String())
		if err != nil {
			return nil
		}
		return net.ParseIP(host).To4()
	}
}

func known(list []protocol.ModuleInfo, addr string) bool {
	for _, m := range list {
		if m.Address == addr {
			return true
		}
	}
	return false
}
