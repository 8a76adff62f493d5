package commands

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/vitaminmoo/wxload/internal/config"
	"github.com/vitaminmoo/wxload/internal/protocol"
)

// ShowSettings prints the effective settings in config file form, followed
// by the reset pin the reset method resolves to.
func ShowSettings(s config.Settings) error {
	pin, err := protocol.ResolveResetPin(s.ResetMethod)
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if path := config.DefaultPath(); path != "" {
		fmt.Fprintf(config.Output, "# default file: %s\n", path)
	}
	config.Output.Write(out)
	fmt.Fprintf(config.Output, "# reset pin: %d\n", pin)
	return nil
}
