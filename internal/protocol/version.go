package protocol

import "strings"

// ExpectedVersionPrefix is the firmware line this tool speaks to.
const ExpectedVersionPrefix = "v1."

// legacyVersionPrefix is accepted for early firmware builds.
const legacyVersionPrefix = "02-"

// VersionSupported reports whether a module firmware version is compatible.
func VersionSupported(version string) bool {
	return strings.HasPrefix(version, ExpectedVersionPrefix) ||
		strings.HasPrefix(version, legacyVersionPrefix)
}
