// Package client performs one-shot command exchanges with the executor: a
// fresh connection per call, one JSON line out, one JSON line back. There is
// no retry logic; each call is a single best-effort attempt.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/amarbel-llc/scenemcp/internal/protocol"
)

const (
	DefaultConnectTimeout = 5 * time.Second
	DefaultRequestTimeout = 30 * time.Second
)

type Client struct {
	addr           string
	connectTimeout time.Duration
	requestTimeout time.Duration
}

type Option func(*Client)

func WithConnectTimeout(d time.Duration) Option {
	return func(c *Client) { c.connectTimeout = d }
}

func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) { c.requestTimeout = d }
}

func New(addr string, opts ...Option) *Client {
	c := &Client{
		addr:           addr,
		connectTimeout: DefaultConnectTimeout,
		requestTimeout: DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send performs one command/response exchange. The connection is closed in
// all cases before Send returns. Failures are distinguishable with
// errors.As: *ConnectionError, *TimeoutError, *ProtocolError.
func (c *Client) Send(ctx context.Context, cmd *protocol.Command) (*protocol.Response, error) {
	data, err := protocol.Encode(cmd)
	if err != nil {
		return nil, fmt.Errorf("encoding command: %w", err)
	}

	dialer := net.Dialer{Timeout: c.connectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, &TimeoutError{Op: "connect", Timeout: c.connectTimeout, Err: err}
		}
		return nil, &ConnectionError{Addr: c.addr, Err: err}
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.requestTimeout))

	if _, err := conn.Write(data); err != nil {
		return nil, &ConnectionError{Addr: c.addr, Err: err}
	}

	line, err := protocol.NewLineReader(conn, protocol.DefaultMaxLine).ReadLine()
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, &TimeoutError{Op: "request", Timeout: c.requestTimeout, Err: err}
		}
		if err == io.EOF {
			return nil, &ConnectionError{Addr: c.addr}
		}
		return nil, &ConnectionError{Addr: c.addr, Err: err}
	}
	if len(line) == 0 {
		return nil, &ConnectionError{Addr: c.addr}
	}

	var resp protocol.Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, &ProtocolError{Err: err}
	}
	return &resp, nil
}

// Ping checks that the executor is reachable and answering.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.Send(ctx, &protocol.Command{Type: protocol.TypePing})
	if err != nil {
		return err
	}
	if !resp.OK() {
		return &RemoteError{Message: resp.Message}
	}
	return nil
}

// ExecuteScript runs script text in the host and returns everything the
// script wrote to stdout. A host-side failure surfaces as *RemoteError.
func (c *Client) ExecuteScript(ctx context.Context, script string) (string, error) {
	resp, err := c.Send(ctx, &protocol.Command{
		Type: protocol.TypeExecuteCode,
		Code: script,
	})
	if err != nil {
		return "", err
	}
	if !resp.OK() {
		return "", &RemoteError{Message: resp.Message, Traceback: resp.Traceback}
	}
	return resp.Result, nil
}

// ScriptJSON runs a script whose final stdout line is a single JSON document
// and decodes that line into v. Scripts built for this helper print their
// structured result as one json.dumps line instead of a text marker.
func (c *Client) ScriptJSON(ctx context.Context, script string, v any) error {
	stdout, err := c.ExecuteScript(ctx, script)
	if err != nil {
		return err
	}

	line := lastLine(stdout)
	if line == "" {
		return &ProtocolError{Err: fmt.Errorf("script produced no output")}
	}
	if err := json.Unmarshal([]byte(line), v); err != nil {
		return &ProtocolError{Err: fmt.Errorf("decoding script output: %w", err)}
	}
	return nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
