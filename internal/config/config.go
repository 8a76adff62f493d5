package config

import (
	"fmt"
	"io"
	"os"
)

// Verbose enables debug output when true
var Verbose bool

// ShowCodes prefixes every message with its numeric code
var ShowCodes bool

// Output receives messages and debug output
var Output io.Writer = os.Stdout

// Debugf prints debug messages when Verbose is true
func Debugf(format string, args ...any) {
	if Verbose {
		if ShowCodes {
			fmt.Fprint(Output, "000-")
		}
		fmt.Fprintf(Output, "[DEBUG] "+format+"\n", args...)
	}
}
