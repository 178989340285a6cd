package lifecycle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/boz/bringup/command"
)

var (
	ErrCommandFailed = errors.New("command failed")
	ErrTimeout       = errors.New("convergence timeout")
	ErrNotSupported  = errors.New("operation not supported")
)

type ErrorKind int

const (
	CommandFailed ErrorKind = iota + 1
	Timeout
	PartialReset
)

func (k ErrorKind) String() string {
	switch k {
	case CommandFailed:
		return "command-failed"
	case Timeout:
		return "timeout"
	case PartialReset:
		return "partial-reset"
	default:
		return "unknown"
	}
}

// InitError reports a failed bring-up step.  Use errors.Is with
// ErrCommandFailed or ErrTimeout to classify it.
type InitError struct {
	Kind     ErrorKind
	Command  command.Kind
	Attempts int
	Result   command.Result
	msg      string
}

func (e *InitError) Error() string {
	return e.msg
}

func (e *InitError) Is(target error) bool {
	switch target {
	case ErrCommandFailed:
		return e.Kind == CommandFailed || e.Kind == PartialReset
	case ErrTimeout:
		return e.Kind == Timeout
	}
	return false
}

func commandFailed(cmd command.Command, result command.Result) *InitError {
	return &InitError{
		Kind:    CommandFailed,
		Command: cmd.Kind(),
		Result:  result,
		msg: fmt.Sprintf("%v command failed with exit code %d: %s",
			cmd.Kind(), result.ExitCode, diagnostic(result)),
	}
}

func timedOut(cmd command.Command, attempts int, result command.Result) *InitError {
	return &InitError{
		Kind:     Timeout,
		Command:  cmd.Kind(),
		Attempts: attempts,
		Result:   result,
		msg:      fmt.Sprintf("service was not initialized in a set timeout: %d attempts", attempts),
	}
}

func partialReset(cmd command.Command, state SnapshotState, result command.Result) *InitError {
	return &InitError{
		Kind:    PartialReset,
		Command: cmd.Kind(),
		Result:  result,
		msg: fmt.Sprintf("working copy %q was dropped but not recreated from %q (exit code %d): %s",
			state.Working, state.Template, result.ExitCode, diagnostic(result)),
	}
}

func diagnostic(result command.Result) string {
	if out := strings.TrimSpace(result.Stdout); out != "" {
		return out
	}
	return strings.TrimSpace(result.Stderr)
}
