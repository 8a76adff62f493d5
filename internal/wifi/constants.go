package wifi

import "time"

const (
	// HTTPPort is the module's control port
	HTTPPort = 80

	// TelnetPort is the module's data port, bridged to the target's serial line
	TelnetPort = 23

	// DiscoverPort is the UDP port modules listen on for discovery broadcasts
	DiscoverPort = 32420

	ConnectTimeout       = 3 * time.Second
	ResponseTimeout      = 3 * time.Second
	DiscoverReplyTimeout = 250 * time.Millisecond

	// DiscoverAttempts is the number of consecutive empty rounds that end
	// discovery
	DiscoverAttempts = 3

	// MaxResponseSize bounds a control response
	MaxResponseSize = 1024

	// MaxInterfaces bounds the broadcast addresses used for discovery
	MaxInterfaces = 20
)
