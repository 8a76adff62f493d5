package commands

import (
	"context"
	"fmt"

	"github.com/vitaminmoo/wxload/internal/config"
	"github.com/vitaminmoo/wxload/internal/protocol"
	"github.com/vitaminmoo/wxload/internal/util"
	"github.com/vitaminmoo/wxload/internal/wxsim"
)

// Frame prints the wire form of an image as sent in text load mode.
func Frame(path string, hex bool) error {
	img, err := readImage(path)
	if err != nil {
		return err
	}

	framed := protocol.FrameImage(img.Data)
	enc := protocol.EncodeImage(img.Data)
	fmt.Fprintf(config.Output, "Image:    %s (%d bytes)\n", img.Name(), img.Size())
	fmt.Fprintf(config.Output, "Encoded:  %d bytes\n", len(enc))
	fmt.Fprintf(config.Output, "On wire:  %d bytes\n", len(framed))
	if hex {
		util.HexDump(config.Output, framed)
		return nil
	}
	fmt.Fprintf(config.Output, "%q\n", framed)
	return nil
}

// Simulate runs a simulated module until ctx is cancelled.
func Simulate(ctx context.Context, name string, cfg wxsim.Config) error {
	m := wxsim.NewModule(name)
	srv := wxsim.NewServer(m, cfg)
	if err := srv.Start(ctx); err != nil {
		return err
	}
	defer srv.Stop()

	fmt.Fprintf(config.Output, "Simulating module '%s' on %s\n", name, srv.Host())
	fmt.Fprintf(config.Output, "  control port:   %d\n", srv.ControlPort())
	fmt.Fprintf(config.Output, "  data port:      %d\n", srv.DataPort())
	if port := srv.DiscoveryPort(); port != 0 {
		fmt.Fprintf(config.Output, "  discovery port: %d\n", port)
	}
	fmt.Fprintln(config.Output, "Press Ctrl-C to stop.")

	<-ctx.Done()

	imgs, err := m.Images()
	if err != nil {
		config.Debugf("decoding received images: %v", err)
	}
	fmt.Fprintf(config.Output, "Received %d control requests, %d images\n", len(m.Requests()), len(imgs))
	for i, img := range imgs {
		fmt.Fprintf(config.Output, "  image %d: %d bytes\n", i+1, len(img))
	}
	return nil
}
