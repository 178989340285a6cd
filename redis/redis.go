package redis

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/boz/bringup/command"
	"github.com/boz/bringup/container"
	"github.com/boz/bringup/lifecycle"
	"github.com/boz/bringup/log"
	rredis "github.com/garyburd/redigo/redis"
	"github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	DefaultImage    = "redis:7-alpine"
	DefaultDatabase = "0"
	Port            = "6379/tcp"

	dialTimeout = 5 * time.Second
)

type Option func(*config)

type config struct {
	image     string
	database  string
	reuse     string
	lifecycle lifecycle.Config
	log       logrus.FieldLogger
}

func WithImage(image string) Option {
	return func(c *config) {
		c.image = image
	}
}

func WithDatabase(database string) Option {
	return func(c *config) {
		c.database = database
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

// protocol disables persistence and waits for PING to succeed.
type protocol struct{}

func (protocol) Name() string {
	return "redis"
}

func (protocol) Initiate() command.Command {
	return command.New(command.KindInitiate, "redis-cli", "CONFIG", "SET", "save", "")
}

func (protocol) Check() lifecycle.Check {
	return lifecycle.ExitCheck(command.New(command.KindCheck, "redis-cli", "PING"))
}

type Container struct {
	*container.Handle
	controller *lifecycle.Controller
	database   string
}

func Run(ctx context.Context, opts ...Option) (*Container, error) {
	cfg := &config{
		image:     DefaultImage,
		database:  DefaultDatabase,
		lifecycle: lifecycle.DefaultConfig(),
		log:       log.FromContext(ctx),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if err := container.CheckImage(cfg.image, "redis"); err != nil {
		return nil, err
	}

	l := cfg.log.WithField("service", "redis")

	c := &Container{
		controller: lifecycle.NewController(l, protocol{}, cfg.lifecycle),
		database:   cfg.database,
	}

	handle, err := container.Start(ctx, l, request(cfg), container.Hooks{
		Started: c.started,
	})
	if err != nil {
		return nil, err
	}
	c.Handle = handle
	return c, nil
}

func request(cfg *config) testcontainers.GenericContainerRequest {
	gcr := testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        cfg.image,
			ExposedPorts: []string{Port},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	}
	if cfg.reuse != "" {
		gcr.Name = cfg.reuse
		gcr.Reuse = true
	}
	return gcr
}

func (c *Container) started(ctx context.Context, h *container.Handle) error {
	return c.controller.Initialize(ctx, h.Executor(), h.Reused())
}

func (c *Container) Controller() *lifecycle.Controller {
	return c.controller
}

// ConnectionString returns a redis:// url without a database.
func (c *Container) ConnectionString(ctx context.Context) (string, error) {
	return c.Endpoint(ctx, "redis", Port)
}

// DatabaseURL returns a url for the numbered database.
func (c *Container) DatabaseURL(ctx context.Context, database string) (string, error) {
	cs, err := c.ConnectionString(ctx)
	if err != nil {
		return "", err
	}
	return cs + "/" + url.PathEscape(database), nil
}

func (c *Container) URL(ctx context.Context) (string, error) {
	return c.DatabaseURL(ctx, c.database)
}

// Dial connects to the configured database.
func (c *Container) Dial(ctx context.Context) (rredis.Conn, error) {
	u, err := c.URL(ctx)
	if err != nil {
		return nil, err
	}

	c.Log().WithField("url", u).Debug("dialing")

	conn, err := rredis.DialURL(u,
		rredis.DialConnectTimeout(dialTimeout),
		rredis.DialReadTimeout(dialTimeout),
		rredis.DialWriteTimeout(dialTimeout))
	if err != nil {
		return nil, fmt.Errorf("dial redis: %w", err)
	}
	return conn, nil
}

func (c *Container) do(ctx context.Context, cmd string) error {
	conn, err := c.Dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	c.Log().WithField("command", cmd).Debug("executing")

	if _, err := conn.Do(cmd); err != nil {
		return fmt.Errorf("redis %v: %w", cmd, err)
	}
	return nil
}

func (c *Container) Ping(ctx context.Context) error {
	return c.do(ctx, "PING")
}

// Reset removes every key from every database.
func (c *Container) Reset(ctx context.Context) error {
	if !c.Running() {
		return container.ErrNotRunning
	}
	return c.do(ctx, "FLUSHALL")
}
