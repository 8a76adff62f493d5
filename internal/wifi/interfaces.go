package wifi

import (
	"fmt"
	"net"

	"github.com/vitaminmoo/wxload/internal/config"
)

// BroadcastAddrs returns the IPv4 broadcast address of every interface that
// is up and not a loopback, at most MaxInterfaces of them.
func BroadcastAddrs() ([]net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}

	var out []net.IP
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			config.Debugf("skipping %s: %v", iface.Name, err)
			continue
		}
		for _, a := range addrs {
			ipnet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			bcast := broadcastAddr(ipnet)
			if bcast == nil {
				continue
			}
			config.Debugf("interface %s: %s broadcast %s", iface.Name, ipnet, bcast)
			out = append(out, bcast)
			if len(out) == MaxInterfaces {
				return out, nil
			}
		}
	}
	return out, nil
}

// broadcastAddr computes ip | ^mask for an IPv4 network, nil otherwise.
func broadcastAddr(n *net.IPNet) net.IP {
	ip := n.IP.To4()
	if ip == nil {
		return nil
	}
	mask := n.Mask
	if len(mask) == net.IPv6len {
		mask = mask[12:]
	}
	if len(mask) != net.IPv4len {
		return nil
	}
	out := make(net.IP, net.IPv4len)
	for i := range ip {
		out[i] = ip[i] | ^mask[i]
	}
	return out
}
