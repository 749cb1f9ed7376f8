package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// EventEnv is the environment variable the serialized event is delivered
// through. Handlers read it, act, and report via their exit status.
const EventEnv = "VIGIL_EVENT"

// Invoker delivers one event to an external handler and reports its exit
// status. Implementations must be synchronous: when Invoke returns, the
// handler run is over.
type Invoker interface {
	Invoke(ctx context.Context, event []byte) (exitCode int, err error)
}

// ExecInvoker runs a shell command per event with the event JSON in the
// VIGIL_EVENT environment variable. Handler stdout/stderr pass through for
// human diagnostics; the exit code is the only machine-readable signal.
type ExecInvoker struct {
	Command string
}

// NewExecInvoker builds an invoker for the given handler command line.
func NewExecInvoker(command string) (*ExecInvoker, error) {
	if command == "" {
		return nil, errors.New("handler command is required")
	}
	return &ExecInvoker{Command: command}, nil
}

// Invoke runs the handler once. A non-zero handler exit is not an error
// here; it is reported through the exit code so the tailer can log it and
// move on.
func (e *ExecInvoker) Invoke(ctx context.Context, event []byte) (int, error) {
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", e.Command)
	cmd.Env = append(os.Environ(), EventEnv+"="+string(event))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("failed to run handler: %w", err)
	}
	return 0, nil
}
