// Package runner provides the script execution sink behind the executor's
// execute_code command. Running a script is an unsandboxed eval against live
// host state; nothing here inspects what the script does.
package runner

import "context"

// ScriptRunner executes script text and returns whatever the script wrote to
// standard output. A failed run returns a *ScriptError when the failure came
// from the script itself rather than from invoking the interpreter.
type ScriptRunner interface {
	Run(ctx context.Context, script string) (stdout string, err error)
}

// ScriptError reports a script that raised. Traceback carries the
// interpreter's full stack trace text when available.
type ScriptError struct {
	Message   string
	Traceback string
}

func (e *ScriptError) Error() string {
	return e.Message
}

// Func adapts a function to the ScriptRunner interface.
type Func func(ctx context.Context, script string) (string, error)

func (f Func) Run(ctx context.Context, script string) (string, error) {
	return f(ctx, script)
}
