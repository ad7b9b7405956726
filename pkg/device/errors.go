package device

import (
	"errors"
	"fmt"
)

// Command errors.
var (
	ErrCommandRejected = errors.New("command rejected by controller")
	ErrCommandTimeout  = errors.New("command timed out")
)

// Reason classifies a connectivity failure.
type Reason uint8

const (
	// ReasonNetwork means the controller could not be reached.
	ReasonNetwork Reason = iota

	// ReasonTimeout means the controller did not answer in time.
	ReasonTimeout

	// ReasonNotFound means the endpoint does not exist on the controller.
	ReasonNotFound

	// ReasonServer means the controller answered with a server error.
	ReasonServer

	// ReasonStatus means the controller answered with another non-2xx status.
	ReasonStatus

	// ReasonDecode means the state document could not be parsed.
	ReasonDecode
)

// String returns the reason name.
func (r Reason) String() string {
	switch r {
	case ReasonNetwork:
		return "NETWORK"
	case ReasonTimeout:
		return "TIMEOUT"
	case ReasonNotFound:
		return "NOT_FOUND"
	case ReasonServer:
		return "SERVER"
	case ReasonStatus:
		return "STATUS"
	case ReasonDecode:
		return "DECODE"
	default:
		return "UNKNOWN"
	}
}

// ConnectivityError reports that a request to the controller failed before a
// usable answer was received.
type ConnectivityError struct {
	Op         string
	URL        string
	Reason     Reason
	StatusCode int
	Err        error
}

// Error implements error.
func (e *ConnectivityError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s %s: %s (status %d)", e.Op, e.URL, e.Reason, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %s: %v", e.Op, e.URL, e.Reason, e.Err)
	default:
		return fmt.Sprintf("%s %s: %s", e.Op, e.URL, e.Reason)
	}
}

// Unwrap returns the underlying error.
func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// IsConnectivity reports whether err is or wraps a *ConnectivityError.
func IsConnectivity(err error) bool {
	var ce *ConnectivityError
	return errors.As(err, &ce)
}
