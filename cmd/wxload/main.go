package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/vitaminmoo/wxload/internal/cli"
	"github.com/vitaminmoo/wxload/internal/config"
)

func main() {
	var c cli.CLI
	ctx := kong.Parse(&c,
		kong.Name("wxload"),
		kong.Description("Discover, configure and program Propeller 2 boards through a Wi-Fi module"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)

	if err := ctx.Run(&c); err != nil {
		var msgErr *config.MessageError
		if errors.As(err, &msgErr) {
			config.Report(err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
