package client

import (
	"fmt"
	"time"
)

// ConnectionError reports that the executor could not be reached or dropped
// the connection before answering.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("no response from executor at %s", e.Addr)
	}
	return fmt.Sprintf("could not connect to executor at %s: %v (is the host running with the bridge addon enabled?)", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TimeoutError reports that the configured wait elapsed before the exchange
// completed.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// ProtocolError reports a response line that could not be parsed.
type ProtocolError struct {
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("invalid response from executor: %v", e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// RemoteError reports a command the executor accepted but answered with
// status error. Traceback is the host-side stack trace when one was sent.
type RemoteError struct {
	Message   string
	Traceback string
}

func (e *RemoteError) Error() string { return e.Message }
