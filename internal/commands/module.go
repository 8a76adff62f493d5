package commands

import (
	"errors"
	"fmt"

	"github.com/vitaminmoo/wxload/internal/api"
	"github.com/vitaminmoo/wxload/internal/config"
	"github.com/vitaminmoo/wxload/internal/protocol"
	"github.com/vitaminmoo/wxload/internal/wifi"
)

// Discover lists modules on the local networks as they answer.
func Discover(s config.Settings, count int) error {
	_, err := findModules(s, count, func(m protocol.ModuleInfo) {
		fmt.Fprintln(config.Output, wifi.FormatModule(m))
	})
	return err
}

// Info shows the module's firmware version and whether it is supported.
func Info(c *api.Client) error {
	err := c.CheckVersion()
	var verErr *api.VersionError
	switch {
	case errors.As(err, &verErr):
		return config.NewError(err, config.ErrorWrongFirmware, verErr.Got, verErr.Expected)
	case err != nil:
		return moduleError(c, err, config.ErrorInternal)
	}

	fmt.Fprintf(config.Output, "Module:   %s\n", c.Address())
	fmt.Fprintf(config.Output, "Version:  %s\n", c.Version())
	fmt.Fprintf(config.Output, "Reset:    pin %d\n", c.ResetPin())
	return nil
}

// Name renames the module and saves its settings.
func Name(c *api.Client, name string) error {
	config.Message(config.InfoSettingModuleName, name)

	err := c.SetName(name)
	var nameErr *api.NameError
	switch {
	case errors.As(err, &nameErr):
		return config.NewError(err, config.ErrorInvalidModuleName)
	case err != nil:
		return moduleError(c, err, config.ErrorFailedSetName)
	}
	return nil
}

// Reset pulses the target's reset line.
func Reset(c *api.Client) error {
	if err := c.Reset(); err != nil {
		return moduleError(c, err, config.ErrorInternal)
	}
	fmt.Fprintf(config.Output, "Reset pulse sent on pin %d\n", c.ResetPin())
	return nil
}

// Baud sets the module's serial rate to the target.
func Baud(c *api.Client, rate int) error {
	if err := c.SetBaudRate(rate); err != nil {
		return moduleError(c, err, config.ErrorFailedSetBaudRate)
	}
	fmt.Fprintf(config.Output, "Baud rate set to %d\n", rate)
	return nil
}
