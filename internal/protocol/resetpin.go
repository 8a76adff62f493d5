package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultResetPin is the module GPIO wired to the target's reset line on
// standard boards (the "dtr" method).
const DefaultResetPin = 12

var resetMethods = map[string]int{
	"dtr": 12,
	"cts": 13,
	"rts": 15,
}

// ConfigError reports an invalid user-supplied setting.
type ConfigError struct {
	Setting string
	Value   string
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Setting, e.Value, e.Reason)
}

// ResolveResetPin maps a reset method name or a decimal pin number to the
// module GPIO that drives the target reset line.
func ResolveResetPin(method string) (int, error) {
	if pin, ok := resetMethods[strings.ToLower(method)]; ok {
		return pin, nil
	}
	pin, err := strconv.Atoi(method)
	if err != nil || pin < 0 {
		return 0, &ConfigError{
			Setting: "reset method",
			Value:   method,
			Reason:  "expected dtr, cts, rts or a pin number",
		}
	}
	return pin, nil
}
