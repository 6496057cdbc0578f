package mcp

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// StdioTransport carries MCP messages as newline-delimited JSON, the framing
// the protocol uses over stdio.
type StdioTransport struct {
	scanner *bufio.Scanner
	writer  io.Writer
	mu      sync.Mutex
}

func NewStdioTransport(r io.Reader, w io.Writer) *StdioTransport {
	scanner := bufio.NewScanner(r)
	// Tool calls can carry whole scripts.
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &StdioTransport{
		scanner: scanner,
		writer:  w,
	}
}

func (t *StdioTransport) Read() (*Message, error) {
	for t.scanner.Scan() {
		line := t.scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			return nil, fmt.Errorf("parsing message: %w", err)
		}
		return &msg, nil
	}

	if err := t.scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading message: %w", err)
	}
	return nil, io.EOF
}

func (t *StdioTransport) Write(msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := fmt.Fprintf(t.writer, "%s\n", data); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	return nil
}
