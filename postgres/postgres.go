package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/boz/bringup/container"
	"github.com/boz/bringup/lifecycle"
	"github.com/boz/bringup/log"
	"github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	DefaultImage    = "postgres:16-alpine"
	DefaultTemplate = "test"
	DefaultWorking  = "testforrealz"
	DefaultUsername = "test"
	DefaultPassword = "test"
	Port            = "5432/tcp"

	maintenanceDatabase = "postgres"
	initScriptDir       = "/docker-entrypoint-initdb.d"
)

type Option func(*config)

type config struct {
	image      string
	username   string
	password   string
	state      lifecycle.SnapshotState
	scripts    []string
	schema     string
	autoRemove bool
	snapshot   bool
	lifecycle  lifecycle.Config
	log        logrus.FieldLogger
}

func WithImage(image string) Option {
	return func(c *config) {
		c.image = image
	}
}

func WithCredentials(username, password string) Option {
	return func(c *config) {
		c.username = username
		c.password = password
	}
}

// WithTemplate names the template database (created by the image) and
// the disposable working copy.
func WithTemplate(template, working string) Option {
	return func(c *config) {
		c.state = lifecycle.SnapshotState{Template: template, Working: working}
	}
}

// WithInitScripts copies host files into the image's init directory.
func WithInitScripts(paths ...string) Option {
	return func(c *config) {
		c.scripts = append(c.scripts, paths...)
	}
}

// WithSchema runs the given SQL when the template database is created.
func WithSchema(sql string) Option {
	return func(c *config) {
		c.schema = sql
	}
}

// WithoutSnapshot leaves the template untouched after start.
func WithoutSnapshot() Option {
	return func(c *config) {
		c.snapshot = false
	}
}

func WithAutoRemove() Option {
	return func(c *config) {
		c.autoRemove = true
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

// Container is a postgres container whose initial database is kept as a
// template.  Clients use a working copy that Reset recreates.
type Container struct {
	*container.Handle
	controller *lifecycle.Controller
	state      lifecycle.SnapshotState
	username   string
	password   string
}

func Run(ctx context.Context, opts ...Option) (*Container, error) {
	cfg := &config{
		image:     DefaultImage,
		username:  DefaultUsername,
		password:  DefaultPassword,
		state:     lifecycle.SnapshotState{Template: DefaultTemplate, Working: DefaultWorking},
		snapshot:  true,
		lifecycle: lifecycle.DefaultConfig(),
		log:       log.FromContext(ctx),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.state.Validate(); err != nil {
		return nil, err
	}
	if err := container.CheckImage(cfg.image, "postgres"); err != nil {
		return nil, err
	}

	l := cfg.log.WithField("service", "postgres")

	pgc, err := tcpostgres.Run(ctx, cfg.image, customizers(cfg, l)...)
	if err != nil {
		_ = testcontainers.TerminateContainer(pgc)
		return nil, fmt.Errorf("start postgres container: %w", err)
	}

	c := &Container{
		Handle:     container.NewHandle(l, pgc, false),
		controller: lifecycle.NewController(l, protocol{user: cfg.username}, cfg.lifecycle),
		state:      cfg.state,
		username:   cfg.username,
		password:   cfg.password,
	}

	if cfg.snapshot {
		if err := c.Snapshot(ctx); err != nil {
			_ = c.Terminate(ctx)
			return nil, err
		}
	}

	return c, nil
}

func customizers(cfg *config, l logrus.FieldLogger) []testcontainers.ContainerCustomizer {
	opts := []testcontainers.ContainerCustomizer{
		tcpostgres.WithDatabase(cfg.state.Template),
		tcpostgres.WithUsername(cfg.username),
		tcpostgres.WithPassword(cfg.password),
		testcontainers.WithLogger(l),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithPollInterval(500 * time.Millisecond).
				WithStartupTimeout(time.Minute)),
	}

	if len(cfg.scripts) > 0 {
		opts = append(opts, tcpostgres.WithInitScripts(cfg.scripts...))
	}

	if cfg.schema != "" {
		opts = append(opts, testcontainers.CustomizeRequest(testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Files: []testcontainers.ContainerFile{{
					Reader:            strings.NewReader(cfg.schema),
					ContainerFilePath: path.Join(initScriptDir, "schema.sql"),
					FileMode:          0o644,
				}},
			},
		}))
	}

	if cfg.autoRemove {
		opts = append(opts, container.AutoRemove())
	}

	return opts
}

func (c *Container) Controller() *lifecycle.Controller {
	return c.controller
}

func (c *Container) State() lifecycle.SnapshotState {
	return c.state
}

// Snapshot marks the template database read-only and creates the
// working copy.
func (c *Container) Snapshot(ctx context.Context) error {
	if !c.Running() {
		return container.ErrNotRunning
	}
	return c.controller.Snapshot(ctx, c.Executor(), c.state)
}

// Reset recreates the working copy from the template.
func (c *Container) Reset(ctx context.Context) error {
	if !c.Running() {
		return container.ErrNotRunning
	}
	return c.controller.Reset(ctx, c.Executor(), c.state)
}

// ConnectionString returns a postgres:// url without a database.
func (c *Container) ConnectionString(ctx context.Context) (string, error) {
	address, err := c.Address(ctx, Port)
	if err != nil {
		return "", err
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.username, c.password),
		Host:   address,
	}
	return u.String(), nil
}

// DatabaseURL returns a url for the named database.
func (c *Container) DatabaseURL(ctx context.Context, name string) (string, error) {
	cs, err := c.ConnectionString(ctx)
	if err != nil {
		return "", err
	}
	return cs + "/" + url.PathEscape(name) + "?sslmode=disable", nil
}

// URL returns a url for the working copy.
func (c *Container) URL(ctx context.Context) (string, error) {
	return c.DatabaseURL(ctx, c.state.Working)
}

// Open connects to the working copy.
func (c *Container) Open(ctx context.Context) (*sql.DB, error) {
	u, err := c.URL(ctx)
	if err != nil {
		return nil, err
	}
	return sql.Open("postgres", u)
}
