package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/vitaminmoo/wxload/internal/api"
	"github.com/vitaminmoo/wxload/internal/config"
	"github.com/vitaminmoo/wxload/internal/firmware"
	"github.com/vitaminmoo/wxload/internal/terminal"
)

// LoadOptions controls Load.
type LoadOptions struct {
	Terminal bool // enter terminal mode after loading
	PSTMode  bool
}

// readImage loads an image file, mapping failures to numbered messages.
func readImage(path string) (*firmware.Image, error) {
	config.Message(config.InfoOpeningFile, path)

	img, err := firmware.ReadImage(path)
	switch {
	case err == nil:
		return img, nil
	case errors.Is(err, os.ErrNotExist), errors.Is(err, os.ErrPermission):
		return nil, config.NewError(err, config.ErrorCantOpenFile, path)
	case errors.Is(err, firmware.ErrEmptyImage):
		return nil, config.NewError(err, config.ErrorFileTruncated)
	case errors.Is(err, firmware.ErrImageTooLarge):
		return nil, config.NewError(err, config.ErrorFileCorrupt)
	default:
		return nil, config.NewError(err, config.ErrorCantReadFile, path)
	}
}

// checkFirmware verifies the module speaks a supported protocol version.
func checkFirmware(c *api.Client) error {
	err := c.CheckVersion()
	var verErr *api.VersionError
	switch {
	case errors.As(err, &verErr):
		return config.NewError(err, config.ErrorWrongFirmware, verErr.Got, verErr.Expected)
	case err != nil:
		return moduleError(c, err, config.ErrorUnableToConnectModule, c.Address())
	}
	return nil
}

// Load programs the target with the image at path over the data channel.
func Load(c *api.Client, path string, opts LoadOptions) error {
	img, err := readImage(path)
	if err != nil {
		return err
	}
	if err := checkFirmware(c); err != nil {
		return err
	}

	if err := c.Connect(); err != nil {
		return moduleError(c, err, config.ErrorUnableToConnectModule, c.Address())
	}
	// enterTerminal closes the channel itself
	defer c.Close()

	config.Message(config.InfoDownloading, c.Address())
	if err := c.LoadProgram(img.Data, progressPrinter(100*time.Millisecond)); err != nil {
		return moduleError(c, err, config.ErrorDownloadFailed, -1)
	}
	config.Message(config.InfoDownloadSuccessful)

	if !opts.Terminal {
		return nil
	}
	return enterTerminal(c, opts.PSTMode)
}

// LoadHTTP runs the control-channel load handshake and prints the
// target's reply.
func LoadHTTP(c *api.Client, path string, responseSize int) error {
	img, err := readImage(path)
	if err != nil {
		return err
	}
	if err := checkFirmware(c); err != nil {
		return err
	}

	config.Message(config.InfoDownloading, c.Address())
	reply, err := c.LoadImage(img.Data, responseSize)
	if err != nil {
		return loadError(c, err)
	}
	config.Message(config.InfoDownloadSuccessful)
	printBytes("Response", reply)
	return nil
}

// Chip runs the chip check and prints the raw reply.
func Chip(c *api.Client) error {
	if err := c.Connect(); err != nil {
		return moduleError(c, err, config.ErrorUnableToConnectModule, c.Address())
	}
	defer c.Disconnect()

	reply, err := c.CheckChipVersion()
	if err != nil {
		return moduleError(c, err, config.ErrorPropellerNotFound, c.Address())
	}
	printBytes("Chip reply", reply)
	return nil
}

// Terminal connects the user's terminal to the target's serial line.
func Terminal(c *api.Client, pst bool) error {
	if err := c.Connect(); err != nil {
		return moduleError(c, err, config.ErrorUnableToConnectModule, c.Address())
	}
	return enterTerminal(c, pst)
}

func enterTerminal(c *api.Client, pst bool) error {
	dc, err := c.DataChannel()
	if err != nil {
		return config.NewError(err, config.ErrorFailedTerminal)
	}
	defer c.Disconnect()

	config.Message(config.InfoEnteringTerminal)
	if err := terminal.Passthrough(dc.Conn(), terminal.Options{CheckForExit: true, PSTMode: pst}); err != nil {
		return config.NewError(err, config.ErrorFailedTerminal)
	}
	fmt.Fprintln(config.Output)
	return nil
}
