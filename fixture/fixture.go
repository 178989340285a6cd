// Package fixture acquires service containers for a single test and
// releases them when the test finishes.
package fixture

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/boz/bringup/cloudflared"
	"github.com/boz/bringup/log"
	"github.com/boz/bringup/mongodb"
	"github.com/boz/bringup/ollama"
	"github.com/boz/bringup/postgres"
	"github.com/boz/bringup/redis"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
)

const terminateTimeout = 30 * time.Second

// SkipIfNoDocker skips the test unless a docker daemon answers.
func SkipIfNoDocker(t *testing.T) {
	t.Helper()
	if !IsDockerAvailable() {
		t.Skip("docker not available")
	}
}

func IsDockerAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cli, err := testcontainers.NewDockerClientWithOpts(ctx)
	if err != nil {
		return false
	}
	defer cli.Close()

	_, err = cli.Ping(ctx)
	return err == nil
}

// Log returns a logger that writes through t.Log.
func Log(t *testing.T) logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.DebugLevel)
	l.Out = writer{t}
	return l.WithField("test", t.Name())
}

// Context returns a context carrying the test logger.
func Context(t *testing.T) context.Context {
	return log.NewContext(context.Background(), Log(t))
}

type writer struct {
	t *testing.T
}

func (w writer) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

type terminator interface {
	Terminate(context.Context) error
}

// Release terminates c when the test ends.
func Release(t *testing.T, c terminator) {
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), terminateTimeout)
		defer cancel()
		if err := c.Terminate(ctx); err != nil {
			t.Logf("terminate: %v", err)
		}
	})
}

func MongoDB(t *testing.T, opts ...mongodb.Option) *mongodb.Container {
	t.Helper()
	SkipIfNoDocker(t)

	c, err := mongodb.Run(Context(t), opts...)
	require.NoError(t, err)
	Release(t, c)
	return c
}

func Postgres(t *testing.T, opts ...postgres.Option) *postgres.Container {
	t.Helper()
	SkipIfNoDocker(t)

	c, err := postgres.Run(Context(t), opts...)
	require.NoError(t, err)
	Release(t, c)
	return c
}

func Redis(t *testing.T, opts ...redis.Option) *redis.Container {
	t.Helper()
	SkipIfNoDocker(t)

	c, err := redis.Run(Context(t), opts...)
	require.NoError(t, err)
	Release(t, c)
	return c
}

func Ollama(t *testing.T, opts ...ollama.Option) *ollama.Container {
	t.Helper()
	SkipIfNoDocker(t)

	c, err := ollama.Run(Context(t), opts...)
	require.NoError(t, err)
	Release(t, c)
	return c
}

func Cloudflared(t *testing.T, port int, opts ...cloudflared.Option) *cloudflared.Container {
	t.Helper()
	SkipIfNoDocker(t)

	c, err := cloudflared.Run(Context(t), port, opts...)
	require.NoError(t, err)
	Release(t, c)
	return c
}
