package ipwry

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAddress - the input is neither a valid IPv4 nor IPv6 address
	ErrInvalidAddress = errors.New("invalid ip address")
	// ErrFileUnavailable - database file missing or unreadable
	ErrFileUnavailable = errors.New("ip database unavailable")
	// ErrPlatformUnsupported - the IPv6 database needs 64-bit integers
	ErrPlatformUnsupported = errors.New("64-bit platform required")
	// ErrMalformedRecord - corrupt pointer, truncated read or unresolved redirect
	ErrMalformedRecord = errors.New("malformed ip database record")
)

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedRecord, fmt.Sprintf(format, args...))
}

func invalidAddress(ip string) error {
	return fmt.Errorf("%w: %q", ErrInvalidAddress, ip)
}

// ErrorKind maps an error to a stable code suitable for serialized results.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidAddress):
		return "invalid_address"
	case errors.Is(err, ErrFileUnavailable):
		return "file_unavailable"
	case errors.Is(err, ErrPlatformUnsupported):
		return "platform_unsupported"
	case errors.Is(err, ErrMalformedRecord):
		return "malformed_record"
	}
	return "unknown"
}
