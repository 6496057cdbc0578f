package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Subprocess runs each script by piping it to an interpreter's stdin. This is
// the stand-in execution sink used when the bridge is exercised outside the
// GUI host; inside the host the addon's own executor serves the same wire
// protocol against live scene state.
type Subprocess struct {
	argv []string
}

// NewSubprocess builds a runner around an interpreter command line, e.g.
// ["python3", "-u", "-"]. The interpreter must read the script from stdin.
func NewSubprocess(argv []string) (*Subprocess, error) {
	if len(argv) == 0 {
		return nil, errors.New("runner: empty interpreter command")
	}
	return &Subprocess{argv: argv}, nil
}

func (s *Subprocess) Run(ctx context.Context, script string) (string, error) {
	cmd := exec.CommandContext(ctx, s.argv[0], s.argv[1:]...)
	cmd.Stdin = strings.NewReader(script)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.String(), nil
	}

	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return "", &ScriptError{
			Message:   scriptMessage(stderr.String(), exitErr),
			Traceback: stderr.String(),
		}
	}

	return "", fmt.Errorf("running interpreter %s: %w", s.argv[0], err)
}

// scriptMessage picks the last non-empty stderr line as the error summary,
// which for most interpreters is the exception description.
func scriptMessage(stderr string, exitErr *exec.ExitError) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return exitErr.String()
}
