package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"strings"

	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	tcexec "github.com/testcontainers/testcontainers-go/exec"
)

// Runtime is an in-memory stand-in for a started container.
type Runtime struct {
	ID         string
	HostName   string
	Ports      map[string]string
	Running    bool
	Terminated int
	LogText    string

	// Exec answers commands; when nil every command exits zero.
	OnExec func(argv []string) (code int, stdout string, stderr string, err error)
	Execs [][]string
	Files map[string][]byte
}

func NewRuntime(host string, ports map[string]string) *Runtime {
	if ports == nil {
		ports = map[string]string{}
	}
	return &Runtime{
		ID:       "0123456789abcdef0123456789abcdef",
		HostName: host,
		Ports:    ports,
		Running:  true,
		Files:    make(map[string][]byte),
	}
}

func (r *Runtime) GetContainerID() string {
	return r.ID
}

func (r *Runtime) Host(context.Context) (string, error) {
	return r.HostName, nil
}

func (r *Runtime) MappedPort(_ context.Context, port nat.Port) (nat.Port, error) {
	mapped, ok := r.Ports[string(port)]
	if !ok {
		return "", fmt.Errorf("port %v not found", port)
	}
	return nat.NewPort(port.Proto(), mapped)
}

func (r *Runtime) IsRunning() bool {
	return r.Running
}

func (r *Runtime) Exec(_ context.Context, cmd []string, _ ...tcexec.ProcessOption) (int, io.Reader, error) {
	r.Execs = append(r.Execs, cmd)
	if r.OnExec == nil {
		return 0, new(bytes.Buffer), nil
	}
	code, stdout, stderr, err := r.OnExec(cmd)
	if err != nil {
		return 0, nil, err
	}
	buf := new(bytes.Buffer)
	if stdout != "" {
		_, _ = stdcopy.NewStdWriter(buf, stdcopy.Stdout).Write([]byte(stdout))
	}
	if stderr != "" {
		_, _ = stdcopy.NewStdWriter(buf, stdcopy.Stderr).Write([]byte(stderr))
	}
	return code, buf, nil
}

func (r *Runtime) CopyToContainer(_ context.Context, content []byte, path string, _ int64) error {
	r.Files[path] = content
	return nil
}

func (r *Runtime) Logs(context.Context) (io.ReadCloser, error) {
	return ioutil.NopCloser(strings.NewReader(r.LogText)), nil
}

func (r *Runtime) Terminate(context.Context, ...testcontainers.TerminateOption) error {
	r.Terminated++
	r.Running = false
	return nil
}
