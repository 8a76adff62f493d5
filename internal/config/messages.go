package config

import (
	"errors"
	"fmt"
)

// Code identifies a user-facing message. Status messages use 1-99, errors
// 100 and up. A code is never reassigned to a different condition; new
// messages take the next free number.
type Code int

// Status messages
const (
	InfoOpeningFile Code = iota + 1
	InfoDownloading
	InfoVerifyingRAM
	InfoProgrammingEEPROM
	InfoDownloadSuccessful
	InfoEnteringTerminal
	InfoWritingSDCard
	InfoBytesRemaining
	InfoBytesSent
	InfoSettingModuleName
)

// Errors
const (
	ErrorOnlyWifiName Code = iota + 100
	ErrorInvalidAddress
	ErrorDownloadFailed
	ErrorCantOpenFile
	ErrorPropellerNotFound
	ErrorFailedTerminal
	ErrorWrongFirmware
	ErrorFailedSDCard
	ErrorInvalidModuleName
	ErrorFailedSetName
	ErrorFileTruncated
	ErrorFileCorrupt
	ErrorCantReadFile
	ErrorDiscoveryFailed
	ErrorNoModulesFound
	ErrorSerialDiscoveryFailed
	ErrorNoSerialPorts
	ErrorUnableToConnectPort
	ErrorUnableToConnectModule
	ErrorFailedSetBaudRate
	ErrorInternal
	ErrorInsufficientMemory
)

var messageText = map[Code]string{
	InfoOpeningFile:        "Opening file '%s'",
	InfoDownloading:        "Downloading file to %s",
	InfoVerifyingRAM:       "Verifying RAM",
	InfoProgrammingEEPROM:  "Programming EEPROM",
	InfoDownloadSuccessful: "Download successful!",
	InfoEnteringTerminal:   "[ Entering terminal mode. Type ESC or Control-C to exit. ]",
	InfoWritingSDCard:      "Writing '%s' to the SD card",
	InfoBytesRemaining:     "%d bytes remaining",
	InfoBytesSent:          "%d bytes sent",
	InfoSettingModuleName:  "Setting module name to '%s'",

	ErrorOnlyWifiName:          "Option -n can only be used to name wifi modules",
	ErrorInvalidAddress:        "Invalid address: %s",
	ErrorDownloadFailed:        "Download failed: %d",
	ErrorCantOpenFile:          "Can't open file '%s'",
	ErrorPropellerNotFound:     "Propeller not found on %s",
	ErrorFailedTerminal:        "Failed to enter terminal mode",
	ErrorWrongFirmware:         "Unrecognized wi-fi module firmware\n    Version is %s but expected %s.\n    Recommended action: update firmware and/or wxload to latest version(s).",
	ErrorFailedSDCard:          "Failed to write SD card file '%s'",
	ErrorInvalidModuleName:     "Invalid module name",
	ErrorFailedSetName:         "Failed to set module name",
	ErrorFileTruncated:         "File is truncated or not a Propeller application image",
	ErrorFileCorrupt:           "File is corrupt or not a Propeller application",
	ErrorCantReadFile:          "Can't read Propeller application file '%s'",
	ErrorDiscoveryFailed:       "Wifi module discovery failed",
	ErrorNoModulesFound:        "No wifi modules found",
	ErrorSerialDiscoveryFailed: "Serial port discovery failed",
	ErrorNoSerialPorts:         "No serial ports found",
	ErrorUnableToConnectPort:   "Unable to connect to port %s",
	ErrorUnableToConnectModule: "Unable to connect to module at %s",
	ErrorFailedSetBaudRate:     "Failed to set baud rate",
	ErrorInternal:              "Internal error",
	ErrorInsufficientMemory:    "Insufficient memory",
}

// IsError reports whether c is an error code.
func (c Code) IsError() bool { return c >= 100 }

// Text formats the message for c without any prefix.
func (c Code) Text(args ...any) string {
	format, ok := messageText[c]
	if !ok {
		format = messageText[ErrorInternal]
		args = nil
	}
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

// Format returns the message as displayed: optional "NNN-" code prefix and
// "ERROR: " for error codes.
func (c Code) Format(args ...any) string {
	var prefix string
	if ShowCodes {
		prefix = fmt.Sprintf("%03d-", int(c))
	}
	if c.IsError() {
		prefix += "ERROR: "
	}
	return prefix + c.Text(args...)
}

// Message prints a numbered message.
func Message(c Code, args ...any) {
	fmt.Fprintln(Output, c.Format(args...))
}

// Progress prints a numbered message ending in a carriage return so the next
// update overwrites it.
func Progress(c Code, args ...any) {
	fmt.Fprintf(Output, "%s\r", c.Format(args...))
}

// MessageError is an error carrying a user-facing message code.
type MessageError struct {
	Code Code
	Args []any
	Err  error
}

// NewError returns a MessageError wrapping err (which may be nil).
func NewError(err error, c Code, args ...any) *MessageError {
	return &MessageError{Code: c, Args: args, Err: err}
}

func (e *MessageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code.Text(e.Args...), e.Err)
	}
	return e.Code.Text(e.Args...)
}

func (e *MessageError) Unwrap() error {
	return e.Err
}

// Report prints err as a numbered message. Errors without a code are
// reported as internal errors. The underlying cause is only shown in verbose
// mode.
func Report(err error) {
	var msgErr *MessageError
	if !errors.As(err, &msgErr) {
		Message(ErrorInternal)
		Debugf("%v", err)
		return
	}
	Message(msgErr.Code, msgErr.Args...)
	if msgErr.Err != nil {
		Debugf("%v", msgErr.Err)
	}
}
