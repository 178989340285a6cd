package command

import (
	"context"
	"strings"
)

// Kind identifies the role a command plays during bring-up.
type Kind string

const (
	KindInitiate Kind = "initiate"
	KindCheck    Kind = "check"
	KindAwait    Kind = "await"
	KindSnapshot Kind = "snapshot"
	KindDrop     Kind = "drop"
	KindCreate   Kind = "create"
	KindExec     Kind = "exec"
)

// Command is a typed command that renders to the argv executed
// inside a container.
type Command interface {
	Kind() Kind
	Args() []string
}

// Result is the outcome of a single command round trip.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

func (r Result) OK() bool {
	return r.ExitCode == 0
}

// Executor runs an argv inside an already-running container.
type Executor interface {
	Exec(ctx context.Context, argv []string) (Result, error)
}

// Run renders cmd and executes it with e.
func Run(ctx context.Context, e Executor, cmd Command) (Result, error) {
	return e.Exec(ctx, cmd.Args())
}

type command struct {
	kind Kind
	argv []string
}

// New returns a command that renders to argv verbatim.
func New(kind Kind, argv ...string) Command {
	return command{kind: kind, argv: argv}
}

// Shell returns a command that runs script with `sh -c`.
func Shell(kind Kind, script string) Command {
	return command{kind: kind, argv: []string{"sh", "-c", script}}
}

func (c command) Kind() Kind {
	return c.kind
}

func (c command) Args() []string {
	argv := make([]string, len(c.argv))
	copy(argv, c.argv)
	return argv
}

func (c command) String() string {
	return string(c.kind) + ": " + strings.Join(c.argv, " ")
}

// Quote single-quotes s for inclusion in a POSIX shell script.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
