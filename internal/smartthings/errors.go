package smartthings

import (
	"fmt"
	"strings"
)

// AuthError reports a rejected access token.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("smartthings rejected access token: status %d", e.StatusCode)
	}
	return fmt.Sprintf("smartthings rejected access token: status %d: %s", e.StatusCode, e.Body)
}

// DeviceNotFoundError reports that no listed device matched the selector.
type DeviceNotFoundError struct {
	Selector string
	Scanned  int
}

func (e *DeviceNotFoundError) Error() string {
	return fmt.Sprintf("no device matches %s (%d devices scanned)", e.Selector, e.Scanned)
}

// NetworkError reports a transport failure, an unexpected HTTP status or an
// undecodable response.
type NetworkError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.URL != "" {
		b.WriteString(" ")
		b.WriteString(e.URL)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": unexpected status %d", e.StatusCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
