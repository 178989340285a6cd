package ollama

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/boz/bringup/command"
	"github.com/boz/bringup/container"
	"github.com/boz/bringup/log"
	dcontainer "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	DefaultImage = "ollama/ollama:0.1.26"
	Port         = "11434/tcp"

	compatibleImage = "ollama/ollama"
)

type Option func(*config)

type config struct {
	image       string
	substitutes []string
	reuse       string
	log         logrus.FieldLogger
}

func WithImage(image string) Option {
	return func(c *config) {
		c.image = image
	}
}

// WithSubstitute runs image in place of ollama/ollama, typically one
// produced by Commit.
func WithSubstitute(image string) Option {
	return func(c *config) {
		c.image = image
		c.substitutes = append(c.substitutes, image)
	}
}

func WithReuse(name string) Option {
	return func(c *config) {
		c.reuse = name
	}
}

func WithLog(l logrus.FieldLogger) Option {
	return func(c *config) {
		c.log = l
	}
}

type Container struct {
	*container.Handle
	chttp *http.Client
}

func Run(ctx context.Context, opts ...Option) (*Container, error) {
	cfg := &config{
		image: DefaultImage,
		log:   log.FromContext(ctx),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	compatible := append([]string{compatibleImage}, cfg.substitutes...)
	if err := container.CheckImage(cfg.image, compatible...); err != nil {
		return nil, err
	}

	l := cfg.log.WithField("service", "ollama")

	handle, err := container.Start(ctx, l, request(cfg), container.Hooks{})
	if err != nil {
		return nil, err
	}
	return newContainer(handle), nil
}

func newContainer(h *container.Handle) *Container {
	return &Container{Handle: h, chttp: &http.Client{}}
}

func request(cfg *config) testcontainers.GenericContainerRequest {
	gcr := testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        cfg.image,
			ExposedPorts: []string{Port},
			WaitingFor: wait.ForHTTP("/").
				WithPort(Port).
				WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	}
	if cfg.reuse != "" {
		gcr.Name = cfg.reuse
		gcr.Reuse = true
	}
	return gcr
}

// Endpoint returns the base url of the ollama API.
func (c *Container) Endpoint(ctx context.Context) (string, error) {
	return c.Handle.Endpoint(ctx, "http", Port)
}

// Pull downloads a model into the container.
func (c *Container) Pull(ctx context.Context, model string) error {
	if !c.Running() {
		return container.ErrNotRunning
	}

	c.Log().WithField("model", model).Info("pulling")

	result, err := command.Run(ctx, c.Executor(), command.New(command.KindExec, "ollama", "pull", model))
	if err != nil {
		return err
	}
	if !result.OK() {
		return fmt.Errorf("ollama pull %v: exit code %d: %s", model, result.ExitCode, result.Stderr)
	}
	return nil
}

// Commit snapshots the container, including pulled models, to a new
// image.
func (c *Container) Commit(ctx context.Context, name string) error {
	if !c.Running() {
		return container.ErrNotRunning
	}

	cli, err := testcontainers.NewDockerClientWithOpts(ctx)
	if err != nil {
		return err
	}
	defer cli.Close()

	c.Log().WithField("image", name).Info("committing")

	_, err = cli.ContainerCommit(ctx, c.ID(), dcontainer.CommitOptions{
		Reference: name,
		Pause:     true,
	})
	if err != nil {
		return fmt.Errorf("commit %v: %w", name, err)
	}
	return nil
}

// ImageExists reports whether a local image matches the given reference.
func ImageExists(ctx context.Context, name string) (bool, error) {
	cli, err := testcontainers.NewDockerClientWithOpts(ctx)
	if err != nil {
		return false, err
	}
	defer cli.Close()

	list, err := cli.ImageList(ctx, image.ListOptions{
		Filters: filters.NewArgs(filters.Arg("reference", name)),
	})
	if err != nil {
		return false, err
	}
	return len(list) > 0, nil
}

func (c *Container) URL(ctx context.Context) (string, error) {
	return c.Endpoint(ctx)
}
