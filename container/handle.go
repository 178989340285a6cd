package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/boz/bringup/command"
	"github.com/docker/go-connections/nat"
	"github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
	tcexec "github.com/testcontainers/testcontainers-go/exec"
)

var (
	ErrNotRunning = errors.New("container should be started first")
)

// Runtime is the subset of testcontainers.Container a Handle uses.
type Runtime interface {
	GetContainerID() string
	Host(context.Context) (string, error)
	MappedPort(context.Context, nat.Port) (nat.Port, error)
	IsRunning() bool
	Exec(ctx context.Context, cmd []string, options ...tcexec.ProcessOption) (int, io.Reader, error)
	CopyToContainer(ctx context.Context, fileContent []byte, containerFilePath string, fileMode int64) error
	Logs(context.Context) (io.ReadCloser, error)
	Terminate(ctx context.Context, opts ...testcontainers.TerminateOption) error
}

type Status int

const (
	Created Status = iota
	Starting
	Running
	Reused
	Stopped
)

func (s Status) String() string {
	switch s {
	case Created:
		return "created"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Reused:
		return "reused"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Handle is a reference to a service container.  It is owned by
// whoever started it; bring-up code borrows it.
type Handle struct {
	rt     Runtime
	status Status
	reused bool
	log    logrus.FieldLogger
}

// NewHandle wraps an already-started container.
func NewHandle(log logrus.FieldLogger, rt Runtime, reused bool) *Handle {
	h := &Handle{log: log}
	h.attach(rt)
	h.markStarted(reused)
	return h
}

func (h *Handle) attach(rt Runtime) {
	h.rt = rt
	if id := rt.GetContainerID(); len(id) >= 12 {
		h.log = h.log.WithField("container", id[0:12])
	}
}

func (h *Handle) markStarted(reused bool) {
	h.reused = reused
	if reused {
		h.status = Reused
	} else {
		h.status = Running
	}
}

func (h *Handle) Status() Status {
	return h.status
}

// Reused reports whether the container was left over from a previous run.
func (h *Handle) Reused() bool {
	return h.reused
}

func (h *Handle) Running() bool {
	if h.rt == nil {
		return false
	}
	switch h.status {
	case Running, Reused:
		return h.rt.IsRunning()
	}
	return false
}

func (h *Handle) Runtime() Runtime {
	return h.rt
}

func (h *Handle) Log() logrus.FieldLogger {
	return h.log
}

func (h *Handle) ID() string {
	if h.rt == nil {
		return ""
	}
	return h.rt.GetContainerID()
}

func (h *Handle) Host(ctx context.Context) (string, error) {
	if !h.Running() {
		return "", ErrNotRunning
	}
	return h.rt.Host(ctx)
}

// MappedPort returns the host port bound to the given container port
// ("27017" or "27017/tcp").
func (h *Handle) MappedPort(ctx context.Context, port string) (string, error) {
	if !h.Running() {
		return "", ErrNotRunning
	}
	p, err := h.rt.MappedPort(ctx, tcpPort(port))
	if err != nil {
		return "", fmt.Errorf("mapped port %v: %w", port, err)
	}
	return p.Port(), nil
}

// Address returns host:port for the given container port.
func (h *Handle) Address(ctx context.Context, port string) (string, error) {
	host, err := h.Host(ctx)
	if err != nil {
		return "", err
	}
	mapped, err := h.MappedPort(ctx, port)
	if err != nil {
		return "", err
	}
	return net.JoinHostPort(host, mapped), nil
}

// Endpoint returns scheme://host:port for the given container port.
func (h *Handle) Endpoint(ctx context.Context, scheme string, port string) (string, error) {
	address, err := h.Address(ctx, port)
	if err != nil {
		return "", err
	}
	return scheme + "://" + address, nil
}

// Executor runs commands inside the container.
func (h *Handle) Executor() command.Executor {
	return command.FromContainer(h.rt, h.log)
}

func (h *Handle) CopyToContainer(ctx context.Context, content []byte, path string, mode int64) error {
	if h.rt == nil {
		return ErrNotRunning
	}
	return h.rt.CopyToContainer(ctx, content, path, mode)
}

func (h *Handle) Logs(ctx context.Context) (io.ReadCloser, error) {
	if h.rt == nil {
		return nil, ErrNotRunning
	}
	return h.rt.Logs(ctx)
}

// Terminate stops and removes the container.  Calling it on a stopped
// handle is a no-op.
func (h *Handle) Terminate(ctx context.Context) error {
	if h.rt == nil || h.status == Stopped {
		return nil
	}
	h.status = Stopped
	if err := h.rt.Terminate(ctx); err != nil {
		h.log.WithError(err).Warn("terminate")
		return err
	}
	return nil
}

func tcpPort(port string) nat.Port {
	if strings.Contains(port, "/") {
		return nat.Port(port)
	}
	return nat.Port(port + "/tcp")
}
