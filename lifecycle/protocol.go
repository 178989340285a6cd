package lifecycle

import (
	"errors"
	"strings"

	"github.com/boz/bringup/command"
)

// Outcome is the result of evaluating a convergence check.
type Outcome int

const (
	// Uninitialized: initiation has not happened yet.
	Uninitialized Outcome = iota
	// Converging: initiated, but not yet ready.  Polling continues.
	Converging
	Converged
	// Diverged: the service reached a state it will not recover from.
	Diverged
)

func (o Outcome) String() string {
	switch o {
	case Uninitialized:
		return "uninitialized"
	case Converging:
		return "converging"
	case Converged:
		return "converged"
	case Diverged:
		return "diverged"
	default:
		return "unknown"
	}
}

// Check is a read-only convergence predicate evaluated through an executor.
type Check struct {
	Command  command.Command
	Evaluate func(command.Result) Outcome
}

// ExitCheck treats exit code zero as converged and anything else as
// uninitialized.
func ExitCheck(cmd command.Command) Check {
	return Check{
		Command: cmd,
		Evaluate: func(r command.Result) Outcome {
			if r.OK() {
				return Converged
			}
			return Uninitialized
		},
	}
}

// Protocol names the service a controller drives.  The operations it
// supports are given by the optional interfaces below.
type Protocol interface {
	Name() string
}

// Initiator is implemented by services that need a post-start
// initiation command.
type Initiator interface {
	Initiate() command.Command
	Check() Check
}

// Awaiter is implemented by services that can wait for convergence
// inside the container in a single round trip.  A non-zero exit code
// means the bound was exceeded.
type Awaiter interface {
	Await(cfg Config) command.Command
}

// Snapshotter is implemented by services with template/working-copy
// reset support.
type Snapshotter interface {
	MarkTemplate(template string) command.Command
	Drop(working string) command.Command
	Create(working, template string) command.Command
}

// SnapshotState names the read-only template and its disposable copy.
type SnapshotState struct {
	Template string `json:"template"`
	Working  string `json:"working"`
}

func (s SnapshotState) Validate() error {
	switch {
	case s.Template == "":
		return errors.New("snapshot: template name required")
	case s.Working == "":
		return errors.New("snapshot: working name required")
	case s.Template == s.Working:
		return errors.New("snapshot: working copy cannot be the template")
	}
	return nil
}

func isMissing(r command.Result) bool {
	out := strings.ToLower(r.Stdout + r.Stderr)
	return strings.Contains(out, "does not exist")
}
