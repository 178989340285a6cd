package cloudflared

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"regexp"
	"strconv"
	"time"

	"github.com/boz/bringup/container"
	"github.com/boz/bringup/log"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	DefaultImage = "cloudflare/cloudflared:2024.5.0"

	compatibleImage = "cloudflare/cloudflared"
	hostInternal    = "host.testcontainers.internal"
)

var (
	ErrNoPublicURL = errors.New("cloudflared: public url not found in logs")

	publicURLPattern = regexp.MustCompile(`https://[a-z0-9-]+\.trycloudflare\.com`)
)

type Option func(*config)

type config struct {
	image   string
	timeout time.Duration
	log     logrus.FieldLogger
}

func WithImage(image string) Option {
	return func(c *config) {
		c.image = image
	}
}

// WithURLTimeout bounds how long PublicURL waits for the tunnel.
func WithURLTimeout(timeout time.Duration) Option {
	return func(c *config) {
		c.timeout = timeout
	}
}

func WithLog(l logrus.FieldLogger) Option {
	return func(c *config) {
		c.log = l
	}
}

// Container runs a quick tunnel exposing a host port on a public
// trycloudflare.com url.
type Container struct {
	*container.Handle
	timeout time.Duration
}

func Run(ctx context.Context, port int, opts ...Option) (*Container, error) {
	cfg := &config{
		image:   DefaultImage,
		timeout: 30 * time.Second,
		log:     log.FromContext(ctx),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if port <= 0 {
		return nil, fmt.Errorf("cloudflared: invalid port %d", port)
	}
	if err := container.CheckImage(cfg.image, compatibleImage); err != nil {
		return nil, err
	}

	l := cfg.log.WithField("service", "cloudflared").
		WithField("port", port)

	handle, err := container.Start(ctx, l, request(cfg, port), container.Hooks{})
	if err != nil {
		return nil, err
	}
	return &Container{Handle: handle, timeout: cfg.timeout}, nil
}

func request(cfg *config, port int) testcontainers.GenericContainerRequest {
	return testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:           cfg.image,
			HostAccessPorts: []int{port},
			Cmd: []string{
				"tunnel",
				"--no-autoupdate",
				"--protocol", "http2",
				"--url", "http://" + hostInternal + ":" + strconv.Itoa(port),
			},
			WaitingFor: wait.ForLog("Registered tunnel connection").
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	}
}

// PublicURL returns the tunnel url announced in the container logs.
func (c *Container) PublicURL(ctx context.Context) (string, error) {
	if !c.Running() {
		return "", container.ErrNotRunning
	}

	var found string
	backoff := retry.WithMaxDuration(c.timeout, retry.NewConstant(time.Second))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		rc, err := c.Logs(ctx)
		if err != nil {
			return err
		}
		defer rc.Close()

		buf, err := ioutil.ReadAll(rc)
		if err != nil {
			return err
		}

		url, err := parsePublicURL(buf)
		if err != nil {
			return retry.RetryableError(err)
		}
		found = url
		return nil
	})
	if err != nil {
		return "", err
	}

	c.Log().WithField("url", found).Debug("public url")
	return found, nil
}

func parsePublicURL(logs []byte) (string, error) {
	match := publicURLPattern.Find(logs)
	if match == nil {
		return "", ErrNoPublicURL
	}
	return string(match), nil
}

func (c *Container) URL(ctx context.Context) (string, error) {
	return c.PublicURL(ctx)
}
