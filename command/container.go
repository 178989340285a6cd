package command

import (
	"bytes"
	"context"
	"io"

	"github.com/docker/docker/pkg/stdcopy"
	"github.com/sirupsen/logrus"
	tcexec "github.com/testcontainers/testcontainers-go/exec"
)

// Runner is the exec surface of a testcontainers-go container.
type Runner interface {
	Exec(ctx context.Context, cmd []string, options ...tcexec.ProcessOption) (int, io.Reader, error)
}

// FromContainer adapts a running container to an Executor.  Output is
// demultiplexed into stdout and stderr.
func FromContainer(c Runner, log logrus.FieldLogger) Executor {
	return &containerExecutor{c: c, log: log.WithField("component", "command.Executor")}
}

type containerExecutor struct {
	c   Runner
	log logrus.FieldLogger
}

func (e *containerExecutor) Exec(ctx context.Context, argv []string) (Result, error) {
	code, reader, err := e.c.Exec(ctx, argv)
	if err != nil {
		e.log.WithError(err).WithField("argv", argv).Debug("exec")
		return Result{}, err
	}

	var stdout, stderr bytes.Buffer
	if reader != nil {
		if _, err := stdcopy.StdCopy(&stdout, &stderr, reader); err != nil {
			return Result{}, err
		}
	}

	result := Result{
		ExitCode: code,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}

	e.log.WithField("argv", argv).
		WithField("exit-code", code).
		Debug("exec")

	return result, nil
}
