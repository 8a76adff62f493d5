package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/vitaminmoo/wxload/internal/api"
	"github.com/vitaminmoo/wxload/internal/config"
	"github.com/vitaminmoo/wxload/internal/protocol"
	"github.com/vitaminmoo/wxload/internal/util"
	"github.com/vitaminmoo/wxload/internal/wifi"
)

// Target selects the module a command talks to.
type Target struct {
	Address     string // empty means "first module discovery finds"
	ResetMethod string // empty means the config file value
	Settings    config.Settings
}

// Open returns a client bound to the target module, discovering one when
// no address is given.
func Open(t Target) (*api.Client, error) {
	address := t.Address
	if address == "" {
		mods, err := findModules(t.Settings, 1, nil)
		if err != nil {
			return nil, err
		}
		address = mods[0].Address
		config.Debugf("using %s", wifi.FormatModule(mods[0]))
	}

	c, err := api.Dial(address, api.WithSettings(t.Settings))
	if err != nil {
		return nil, config.NewError(err, config.ErrorInvalidAddress, address)
	}

	method := t.ResetMethod
	if method == "" {
		method = t.Settings.ResetMethod
	}
	if err := c.SetResetMethod(method); err != nil {
		return nil, err
	}
	return c, nil
}

// findModules runs discovery with the configured settings. Finding nothing
// is an error.
func findModules(s config.Settings, count int, onFound func(protocol.ModuleInfo)) ([]protocol.ModuleInfo, error) {
	mods, err := wifi.FindModules(s.DiscoverPort, wifi.DiscoverOptions{
		Port:         s.DiscoverPort,
		Attempts:     s.DiscoverAttempts,
		ReplyTimeout: s.DiscoverReplyTimeout,
		MaxResults:   count,
		OnFound:      onFound,
	})
	if err != nil {
		return nil, config.NewError(err, config.ErrorDiscoveryFailed)
	}
	if len(mods) == 0 {
		return nil, config.NewError(nil, config.ErrorNoModulesFound)
	}
	return mods, nil
}

// moduleError maps a failed module request to a numbered message.
// Transport failures become "unable to connect"; everything else keeps
// fallback.
func moduleError(c *api.Client, err error, fallback config.Code, args ...any) error {
	var te *wifi.TransportError
	if errors.As(err, &te) && te.Op == "connect" {
		return config.NewError(err, config.ErrorUnableToConnectModule, c.Address())
	}
	return config.NewError(err, fallback, args...)
}

// loadError maps a load handshake failure to a numbered message.
func loadError(c *api.Client, err error) error {
	var le *protocol.LoadError
	if !errors.As(err, &le) {
		return moduleError(c, err, config.ErrorDownloadFailed, 0)
	}
	if le.Kind == protocol.KindTargetNotFound {
		return config.NewError(err, config.ErrorPropellerNotFound, c.Address())
	}
	return config.NewError(err, config.ErrorDownloadFailed, le.Kind.Code())
}

// printBytes shows data as text when printable, otherwise as a hex dump.
func printBytes(label string, data []byte) {
	if len(data) == 0 {
		fmt.Fprintf(config.Output, "%s: (none)\n", label)
		return
	}
	if util.IsTextData(data) {
		fmt.Fprintf(config.Output, "%s: %q\n", label, data)
		return
	}
	fmt.Fprintf(config.Output, "%s (%d bytes):\n", label, len(data))
	util.HexDump(config.Output, data)
}

// progressPrinter reports transfer progress at most every interval.
func progressPrinter(interval time.Duration) func(current, total int64, phase string) {
	var last time.Time
	return func(current, total int64, phase string) {
		if phase == "sending" && time.Since(last) < interval && current < total {
			return
		}
		last = time.Now()
		switch phase {
		case "sending":
			config.Progress(config.InfoBytesSent, current)
		case "done":
			config.Message(config.InfoBytesSent, total)
		}
	}
}
