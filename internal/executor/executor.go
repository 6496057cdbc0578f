// Package executor implements the command side of the bridge: a TCP listener
// that accepts one connection at a time, reads one JSON command line,
// performs it against the script sink, and writes back one response line.
//
// The listener is normally embedded in the scene host's process; this
// implementation also backs the standalone executor command so the bridge
// can be driven without the GUI host.
package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/amarbel-llc/scenemcp/internal/protocol"
	"github.com/amarbel-llc/scenemcp/internal/runner"
)

const (
	acceptInterval     = 1 * time.Second
	defaultReadTimeout = 30 * time.Second
)

type Server struct {
	addr        string
	runner      runner.ScriptRunner
	maxLine     int
	readTimeout time.Duration

	mu     sync.Mutex
	ln     net.Listener
	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Server)

// WithMaxLine bounds the length of a single command line.
func WithMaxLine(n int) Option {
	return func(s *Server) { s.maxLine = n }
}

// WithReadTimeout bounds how long the executor waits for a client to finish
// writing its command before abandoning the connection.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Server) { s.readTimeout = d }
}

// New builds an executor serving addr. The runner is the execution sink for
// execute_code commands; it has full access to whatever state the embedding
// process exposes to it.
func New(addr string, r runner.ScriptRunner, opts ...Option) *Server {
	s := &Server{
		addr:        addr,
		runner:      r,
		maxLine:     protocol.DefaultMaxLine,
		readTimeout: defaultReadTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start binds the listener and begins accepting on a background goroutine.
// Calling Start on a running server is a no-op; it does not rebind.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ln != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.ln = ln
	s.cancel = cancel
	s.done = make(chan struct{})

	log.Info().Str("addr", ln.Addr().String()).Msg("executor: listening")
	go s.acceptLoop(ctx, ln, s.done)
	return nil
}

// Stop signals the accept loop to exit, closes the listening socket, and
// waits for the loop to finish. An in-flight request runs to completion.
// Safe to call when not running and safe to call repeatedly.
func (s *Server) Stop() {
	s.mu.Lock()
	ln, cancel, done := s.ln, s.cancel, s.done
	s.ln, s.cancel, s.done = nil, nil, nil
	s.mu.Unlock()

	if ln == nil {
		return
	}

	cancel()
	ln.Close()
	<-done
	log.Info().Msg("executor: stopped")
}

// Addr reports the bound listen address, or "" when not running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener, done chan struct{}) {
	defer close(done)
	defer ln.Close()

	tcpLn, _ := ln.(*net.TCPListener)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// Bounded accept so the stop signal is observed promptly.
		if tcpLn != nil {
			tcpLn.SetDeadline(time.Now().Add(acceptInterval))
		}

		conn, err := ln.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Msg("executor: accept failed")
			continue
		}

		// One connection serviced at a time, synchronously, matching the
		// host addon's behavior.
		s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	reqID := uuid.NewString()
	logger := log.With().Str("req_id", reqID).Str("remote", conn.RemoteAddr().String()).Logger()

	conn.SetReadDeadline(time.Now().Add(s.readTimeout))

	line, err := protocol.NewLineReader(conn, s.maxLine).ReadLine()
	if err != nil {
		if errors.Is(err, protocol.ErrLineTooLong) {
			writeResponse(conn, protocol.Errorf("Command too large"))
			// Drain whatever the client is still sending so the close
			// does not reset the connection under the response.
			conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
			io.Copy(io.Discard, conn)
			return
		}
		// Nothing arrived, or the client went away mid-write. There is no
		// frame to answer.
		logger.Debug().Err(err).Msg("executor: read failed")
		return
	}
	if len(line) == 0 {
		return
	}

	var cmd protocol.Command
	if err := json.Unmarshal(line, &cmd); err != nil {
		writeResponse(conn, protocol.Errorf("Invalid JSON"))
		return
	}

	logger.Debug().Str("type", cmd.Type).Msg("executor: command received")
	resp := s.process(ctx, &cmd)
	if !resp.OK() {
		logger.Warn().Str("type", cmd.Type).Str("message", resp.Message).Msg("executor: command failed")
	}
	writeResponse(conn, resp)
}

func (s *Server) process(ctx context.Context, cmd *protocol.Command) (resp *protocol.Response) {
	// A panicking runner must still produce exactly one response line.
	defer func() {
		if r := recover(); r != nil {
			resp = protocol.Errorf("internal error: %v", r)
		}
	}()

	switch cmd.Type {
	case protocol.TypePing:
		return protocol.Success("", "pong")
	case protocol.TypeExecuteCode:
		return s.executeCode(ctx, cmd.Code)
	default:
		return protocol.Errorf("Unknown command type: %s", cmd.Type)
	}
}

func (s *Server) executeCode(ctx context.Context, code string) *protocol.Response {
	if code == "" {
		return protocol.Errorf("No code provided")
	}

	stdout, err := s.runner.Run(ctx, code)
	if err != nil {
		var scriptErr *runner.ScriptError
		if errors.As(err, &scriptErr) {
			return &protocol.Response{
				Status:    protocol.StatusError,
				Message:   scriptErr.Message,
				Traceback: scriptErr.Traceback,
			}
		}
		return protocol.Errorf(err.Error())
	}

	return protocol.Success(stdout, "Code executed successfully")
}

func writeResponse(conn net.Conn, resp *protocol.Response) {
	data, err := protocol.Encode(resp)
	if err != nil {
		log.Error().Err(err).Msg("executor: encoding response failed")
		return
	}
	if _, err := conn.Write(data); err != nil {
		log.Error().Err(err).Msg("executor: writing response failed")
	}
}
