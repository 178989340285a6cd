package container

import (
	"context"
	"errors"
	"fmt"

	dcontainer "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
)

// Hooks run while a container is brought up.  Starting runs after the
// container is created but before it is started.  Started runs once the
// wait strategy is satisfied, or immediately for a reused container
// that was already running.
type Hooks struct {
	Starting func(context.Context, *Handle) error
	Started  func(context.Context, *Handle) error
}

// Start creates (or reuses) and starts a container.  The container is
// terminated if any step fails, unless it was reused.
func Start(ctx context.Context, log logrus.FieldLogger, req testcontainers.GenericContainerRequest, hooks Hooks) (*Handle, error) {
	log = log.WithField("component", "container.Start").
		WithField("image", req.Image)

	h := &Handle{log: log, status: Created}

	reused := false
	if req.Reuse {
		if req.Name == "" {
			return nil, errors.New("container: reuse requires a name")
		}
		exists, err := Exists(ctx, req.Name)
		if err != nil {
			return nil, err
		}
		reused = exists
	}

	started := false

	req.LifecycleHooks = append(req.LifecycleHooks, testcontainers.ContainerLifecycleHooks{
		PreStarts: []testcontainers.ContainerHook{
			func(ctx context.Context, c testcontainers.Container) error {
				h.attach(c)
				h.status = Starting
				if hooks.Starting == nil {
					return nil
				}
				return hooks.Starting(ctx, h)
			},
		},
		PostReadies: []testcontainers.ContainerHook{
			func(ctx context.Context, c testcontainers.Container) error {
				started = true
				h.attach(c)
				h.markStarted(reused)
				if hooks.Started == nil {
					return nil
				}
				return hooks.Started(ctx, h)
			},
		},
	})

	if req.Logger == nil {
		req.Logger = log
	}

	c, err := testcontainers.GenericContainer(ctx, req)
	if err != nil {
		if !reused {
			_ = testcontainers.TerminateContainer(c)
		}
		return nil, fmt.Errorf("start %v container: %w", req.Image, err)
	}

	if !started {
		h.attach(c)
		h.markStarted(reused)
		if hooks.Started != nil {
			if err := hooks.Started(ctx, h); err != nil {
				return nil, err
			}
		}
	}

	log.WithField("reused", reused).Debug("started")

	return h, nil
}

// Exists reports whether a container with the given name exists.
func Exists(ctx context.Context, name string) (bool, error) {
	cli, err := testcontainers.NewDockerClientWithOpts(ctx)
	if err != nil {
		return false, err
	}
	defer cli.Close()

	list, err := cli.ContainerList(ctx, dcontainer.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("name", "^/"+name+"$")),
	})
	if err != nil {
		return false, err
	}
	return len(list) > 0, nil
}

// AutoRemove configures the docker host to remove the container once it
// stops.
func AutoRemove() testcontainers.CustomizeRequestOption {
	return testcontainers.WithHostConfigModifier(func(hc *dcontainer.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = dcontainer.RestartPolicy{Name: "no"}
	})
}
