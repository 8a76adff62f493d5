package cli

import (
	"context"
	"os"
	"os/signal"

	"github.com/vitaminmoo/wxload/internal/api"
	"github.com/vitaminmoo/wxload/internal/commands"
	"github.com/vitaminmoo/wxload/internal/config"
	"github.com/vitaminmoo/wxload/internal/tui"
	"github.com/vitaminmoo/wxload/internal/wxsim"
)

// CLI is the root command structure for wxload.
type CLI struct {
	Verbose bool   `short:"v" help:"Enable verbose debug output"`
	Codes   bool   `short:"c" help:"Prefix messages with their numeric code"`
	Config  string `type:"path" placeholder:"FILE" help:"Config file (default: $XDG_CONFIG_HOME/wxload/config.yaml)"`
	IP      string `short:"i" name:"ip" placeholder:"ADDR" help:"Module IP address (default: first module discovered)"`
	Reset   string `short:"r" placeholder:"METHOD" help:"Reset method: dtr, cts, rts or a GPIO pin number"`

	// Default command - TUI
	Tui TuiCmd `cmd:"" default:"withargs" help:"Launch interactive TUI (default)"`

	Discover DiscoverCmd `cmd:"" help:"List Wi-Fi modules on the local networks"`
	Info     InfoCmd     `cmd:"" help:"Show the module's firmware version"`
	Name     NameCmd     `cmd:"" help:"Rename the module and save its settings"`
	Reboot   ResetCmd    `cmd:"" name:"reset" help:"Pulse the target's reset line"`
	Baud     BaudCmd     `cmd:"" help:"Set the module's serial baud rate"`
	Load     LoadCmd     `cmd:"" help:"Load an image into target RAM over the data channel"`
	LoadHTTP LoadHTTPCmd `cmd:"" name:"load-http" help:"Load an image through the control channel handshake"`
	Chip     ChipCmd     `cmd:"" help:"Ask the target for its chip version"`
	Terminal TerminalCmd `cmd:"" help:"Connect this terminal to the target's serial line"`
	Settings SettingsCmd `cmd:"" help:"Show the effective settings as YAML"`
	Debug    DebugCmd    `cmd:"" help:"Debug and development tools"`
}

// setup applies the global flags and loads the settings file.
func (g *CLI) setup() (config.Settings, error) {
	config.Verbose = g.Verbose
	config.ShowCodes = g.Codes
	return config.LoadSettings(g.Config)
}

// open loads settings and returns a client for the selected module.
func (g *CLI) open() (*api.Client, error) {
	s, err := g.setup()
	if err != nil {
		return nil, err
	}
	return commands.Open(commands.Target{Address: g.IP, ResetMethod: g.Reset, Settings: s})
}

// --- TUI Command ---

type TuiCmd struct{}

func (c *TuiCmd) Run(globals *CLI) error {
	s, err := globals.setup()
	if err != nil {
		return err
	}
	if globals.Reset != "" {
		s.ResetMethod = globals.Reset
	}
	return tui.Run(s, globals.IP)
}

// --- Module Commands ---

type DiscoverCmd struct {
	Count int `short:"n" help:"Stop after this many modules (0 for all)"`
}

func (c *DiscoverCmd) Run(globals *CLI) error {
	s, err := globals.setup()
	if err != nil {
		return err
	}
	return commands.Discover(s, c.Count)
}

type InfoCmd struct{}

func (c *InfoCmd) Run(globals *CLI) error {
	client, err := globals.open()
	if err != nil {
		return err
	}
	defer client.Close()
	return commands.Info(client)
}

type NameCmd struct {
	Name string `arg:"" help:"New module name (1-32 of A-Z a-z 0-9 - _ .)"`
}

func (c *NameCmd) Run(globals *CLI) error {
	client, err := globals.open()
	if err != nil {
		return err
	}
	defer client.Close()
	return commands.Name(client, c.Name)
}

type ResetCmd struct{}

func (c *ResetCmd) Run(globals *CLI) error {
	client, err := globals.open()
	if err != nil {
		return err
	}
	defer client.Close()
	return commands.Reset(client)
}

type BaudCmd struct {
	Rate int `arg:"" help:"Baud rate"`
}

func (c *BaudCmd) Run(globals *CLI) error {
	client, err := globals.open()
	if err != nil {
		return err
	}
	defer client.Close()
	return commands.Baud(client, c.Rate)
}

// --- Load Commands ---

type LoadCmd struct {
	File     string `arg:"" help:"Propeller 2 image file"`
	Terminal bool   `short:"t" help:"Enter terminal mode after loading"`
	PST      bool   `short:"T" name:"pst" help:"Enter PST-compatible terminal mode after loading"`
}

func (c *LoadCmd) Run(globals *CLI) error {
	client, err := globals.open()
	if err != nil {
		return err
	}
	defer client.Close()
	return commands.Load(client, c.File, commands.LoadOptions{
		Terminal: c.Terminal || c.PST,
		PSTMode:  c.PST,
	})
}

type LoadHTTPCmd struct {
	File         string `arg:"" help:"Image file"`
	ResponseSize int    `default:"8" help:"Bytes the target is expected to answer with"`
}

func (c *LoadHTTPCmd) Run(globals *CLI) error {
	client, err := globals.open()
	if err != nil {
		return err
	}
	defer client.Close()
	return commands.LoadHTTP(client, c.File, c.ResponseSize)
}

type ChipCmd struct{}

func (c *ChipCmd) Run(globals *CLI) error {
	client, err := globals.open()
	if err != nil {
		return err
	}
	defer client.Close()
	return commands.Chip(client)
}

type TerminalCmd struct {
	PST bool `short:"T" name:"pst" help:"PST-compatible mode (CR becomes CRLF)"`
}

func (c *TerminalCmd) Run(globals *CLI) error {
	client, err := globals.open()
	if err != nil {
		return err
	}
	defer client.Close()
	return commands.Terminal(client, c.PST)
}

// --- Settings Command ---

type SettingsCmd struct{}

func (c *SettingsCmd) Run(globals *CLI) error {
	s, err := globals.setup()
	if err != nil {
		return err
	}
	if globals.Reset != "" {
		s.ResetMethod = globals.Reset
	}
	return commands.ShowSettings(s)
}

// --- Debug Commands ---

type DebugCmd struct {
	Simulate DebugSimulateCmd `cmd:"" help:"Run a simulated Wi-Fi module"`
	Frame    DebugFrameCmd    `cmd:"" help:"Show the text-mode framing of an image"`
}

type DebugSimulateCmd struct {
	Name          string `default:"wxsim" help:"Module name to advertise"`
	Host          string `default:"127.0.0.1" help:"Address to listen on"`
	ControlPort   int    `default:"8080" help:"Control channel port"`
	DataPort      int    `default:"2323" help:"Data channel port"`
	DiscoveryPort int    `default:"32420" help:"Discovery port"`
	Discovery     bool   `default:"true" negatable:"" help:"Answer discovery requests"`
}

func (c *DebugSimulateCmd) Run(globals *CLI) error {
	config.Verbose = globals.Verbose
	config.ShowCodes = globals.Codes

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return commands.Simulate(ctx, c.Name, wxsim.Config{
		Host:          c.Host,
		ControlPort:   c.ControlPort,
		DataPort:      c.DataPort,
		DiscoveryPort: c.DiscoveryPort,
		Discovery:     c.Discovery,
	})
}

type DebugFrameCmd struct {
	File string `arg:"" help:"Image file"`
	Hex  bool   `help:"Hex dump instead of a quoted string"`
}

func (c *DebugFrameCmd) Run(globals *CLI) error {
	config.Verbose = globals.Verbose
	config.ShowCodes = globals.Codes
	return commands.Frame(c.File, c.Hex)
}
