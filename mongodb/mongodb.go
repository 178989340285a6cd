package mongodb

import (
	"context"
	_ "embed"

	"github.com/boz/bringup/container"
	"github.com/boz/bringup/lifecycle"
	"github.com/boz/bringup/log"
	"github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	DefaultImage    = "mongo:7.0.9"
	DefaultDatabase = "test"
	ReplicaSet      = "docker-rs"
	Port            = "27017/tcp"

	compatibleImage = "mongo"
	starterScript   = "/testcontainers_start.sh"
)

//go:embed sharding.sh
var shardingScript []byte

type Option func(*config)

type config struct {
	image     string
	sharding  bool
	reuse     string
	lifecycle lifecycle.Config
	log       logrus.FieldLogger
}

func WithImage(image string) Option {
	return func(c *config) {
		c.image = image
	}
}

// WithSharding runs a single-node sharded cluster behind mongos instead
// of a replica set.
func WithSharding() Option {
	return func(c *config) {
		c.sharding = true
	}
}

// WithReuse reuses the named container across runs.
func WithReuse(name string) Option {
	return func(c *config) {
		c.reuse = name
	}
}

func WithLifecycle(cfg lifecycle.Config) Option {
	return func(c *config) {
		c.lifecycle = cfg
	}
}

func WithLog(l logrus.FieldLogger) Option {
	return func(c *config) {
		c.log = l
	}
}

// Container is a MongoDB container initialized as a single node replica
// set (or a sharded cluster).
type Container struct {
	*container.Handle
	controller *lifecycle.Controller
	sharding   bool
}

func Run(ctx context.Context, opts ...Option) (*Container, error) {
	cfg := &config{
		image:     DefaultImage,
		lifecycle: lifecycle.DefaultConfig(),
		log:       log.FromContext(ctx),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if err := container.CheckImage(cfg.image, compatibleImage); err != nil {
		return nil, err
	}

	l := cfg.log.WithField("service", "mongodb")

	c := &Container{
		controller: lifecycle.NewController(l, protocol{}, cfg.lifecycle),
		sharding:   cfg.sharding,
	}

	handle, err := container.Start(ctx, l, c.request(cfg), container.Hooks{
		Starting: c.starting,
		Started:  c.started,
	})
	if err != nil {
		return nil, err
	}
	c.Handle = handle
	return c, nil
}

func (c *Container) request(cfg *config) testcontainers.GenericContainerRequest {
	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		ExposedPorts: []string{Port},
		Cmd:          []string{"--replSet", ReplicaSet},
		WaitingFor:   wait.ForLog("(?i).*waiting for connections.*").AsRegexp(),
	}

	if cfg.sharding {
		req.Entrypoint = []string{"sh"}
		req.Cmd = []string{"-c", "while [ ! -f " + starterScript + " ]; do sleep 0.1; done; " + starterScript}
		req.WaitingFor = wait.ForLog("(?i).*mongos ready.*").AsRegexp()
	}

	gcr := testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	}
	if cfg.reuse != "" {
		gcr.Name = cfg.reuse
		gcr.Reuse = true
	}
	return gcr
}

func (c *Container) starting(ctx context.Context, h *container.Handle) error {
	if !c.sharding {
		return nil
	}
	return h.CopyToContainer(ctx, shardingScript, starterScript, 0o777)
}

func (c *Container) started(ctx context.Context, h *container.Handle) error {
	if c.sharding {
		return nil
	}
	return c.controller.Initialize(ctx, h.Executor(), h.Reused())
}

// Controller returns the replica set bring-up controller.
func (c *Container) Controller() *lifecycle.Controller {
	return c.controller
}

// ConnectionString returns a mongodb:// url without a database.
func (c *Container) ConnectionString(ctx context.Context) (string, error) {
	return connectionString(ctx, c.Handle)
}

// ReplicaSetURL returns a url for the given database, or the default
// database when name is empty.
func (c *Container) ReplicaSetURL(ctx context.Context, name string) (string, error) {
	return databaseURL(ctx, c.Handle, name)
}

func connectionString(ctx context.Context, h *container.Handle) (string, error) {
	if h == nil {
		return "", container.ErrNotRunning
	}
	return h.Endpoint(ctx, "mongodb", Port)
}

func databaseURL(ctx context.Context, h *container.Handle, name string) (string, error) {
	if name == "" {
		name = DefaultDatabase
	}
	cs, err := connectionString(ctx, h)
	if err != nil {
		return "", err
	}
	return cs + "/" + name, nil
}

// URL returns a url for the default database.
func (c *Container) URL(ctx context.Context) (string, error) {
	return c.ReplicaSetURL(ctx, "")
}
