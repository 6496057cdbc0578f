package client

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/amarbel-llc/scenemcp/internal/executor"
	"github.com/amarbel-llc/scenemcp/internal/protocol"
	"github.com/amarbel-llc/scenemcp/internal/runner"
)

func startExecutor(t *testing.T, r runner.ScriptRunner) string {
	t.Helper()

	srv := executor.New("127.0.0.1:0", r)
	if err := srv.Start(); err != nil {
		t.Fatalf("starting executor: %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv.Addr()
}

// unusedAddr returns an address nothing is listening on.
func unusedAddr(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserving port: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func TestClient_Ping(t *testing.T) {
	addr := startExecutor(t, runner.Func(func(ctx context.Context, script string) (string, error) {
		return "", nil
	}))

	c := New(addr)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestClient_Send_Ping(t *testing.T) {
	addr := startExecutor(t, nil)

	resp, err := New(addr).Send(context.Background(), &protocol.Command{Type: protocol.TypePing})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if resp.Status != protocol.StatusSuccess || resp.Message != "pong" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestClient_ExecuteScript(t *testing.T) {
	addr := startExecutor(t, runner.Func(func(ctx context.Context, script string) (string, error) {
		return "x\n", nil
	}))

	stdout, err := New(addr).ExecuteScript(context.Background(), "print('x')")
	if err != nil {
		t.Fatalf("ExecuteScript failed: %v", err)
	}
	if stdout != "x\n" {
		t.Errorf("expected %q, got %q", "x\n", stdout)
	}
}

func TestClient_ExecuteScript_RemoteError(t *testing.T) {
	addr := startExecutor(t, runner.Func(func(ctx context.Context, script string) (string, error) {
		return "", &runner.ScriptError{
			Message:   "division by zero",
			Traceback: "ZeroDivisionError: division by zero",
		}
	}))

	_, err := New(addr).ExecuteScript(context.Background(), "1/0")
	var remoteErr *RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected *RemoteError, got %v", err)
	}
	if remoteErr.Traceback == "" {
		t.Error("expected traceback to be carried through")
	}
}

func TestClient_ConnectionRefused(t *testing.T) {
	c := New(unusedAddr(t))

	start := time.Now()
	_, err := c.Send(context.Background(), &protocol.Command{Type: protocol.TypePing})
	elapsed := time.Since(start)

	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected *ConnectionError, got %v", err)
	}
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		t.Error("refused connection must not surface as a timeout")
	}
	if elapsed > DefaultConnectTimeout {
		t.Errorf("refused connection took %s, longer than the connect timeout", elapsed)
	}
	if !strings.Contains(err.Error(), c.addr) {
		t.Errorf("error does not name the address: %v", err)
	}
}

func TestClient_ResponseTimeout(t *testing.T) {
	// Accepts and then never writes.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	defer ln.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		<-done
	}()

	timeout := 200 * time.Millisecond
	c := New(ln.Addr().String(), WithRequestTimeout(timeout))

	start := time.Now()
	_, err = c.Send(context.Background(), &protocol.Command{Type: protocol.TypePing})
	elapsed := time.Since(start)

	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected *TimeoutError, got %v", err)
	}
	if timeoutErr.Timeout != timeout {
		t.Errorf("error does not carry the configured timeout: %+v", timeoutErr)
	}
	if elapsed < timeout {
		t.Errorf("timed out after %s, before the configured %s", elapsed, timeout)
	}
}

func TestClient_EmptyResponse(t *testing.T) {
	// Accepts, reads, closes without answering.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		buf := make([]byte, 1024)
		conn.Read(buf)
		conn.Close()
	}()

	_, err = New(ln.Addr().String()).Send(context.Background(), &protocol.Command{Type: protocol.TypePing})
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected *ConnectionError, got %v", err)
	}
}

func TestClient_MalformedResponse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 1024)
		conn.Read(buf)
		conn.Write([]byte("this is not json\n"))
	}()

	_, err = New(ln.Addr().String()).Send(context.Background(), &protocol.Command{Type: protocol.TypePing})
	var protoErr *ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("expected *ProtocolError, got %v", err)
	}
}

func TestClient_ScriptJSON(t *testing.T) {
	addr := startExecutor(t, runner.Func(func(ctx context.Context, script string) (string, error) {
		// Scripts may print progress noise before the structured line.
		return "loading scene\n{\"name\": \"Scene\", \"object_count\": 3}\n", nil
	}))

	var info struct {
		Name        string `json:"name"`
		ObjectCount int    `json:"object_count"`
	}
	if err := New(addr).ScriptJSON(context.Background(), "query()", &info); err != nil {
		t.Fatalf("ScriptJSON failed: %v", err)
	}
	if info.Name != "Scene" || info.ObjectCount != 3 {
		t.Errorf("unexpected decode: %+v", info)
	}
}

func TestClient_ScriptJSON_NoOutput(t *testing.T) {
	addr := startExecutor(t, runner.Func(func(ctx context.Context, script string) (string, error) {
		return "", nil
	}))

	var v map[string]any
	err := New(addr).ScriptJSON(context.Background(), "query()", &v)
	var protoErr *ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("expected *ProtocolError, got %v", err)
	}
}
