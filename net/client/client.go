package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/boz/bringup/log"
	enet "github.com/boz/bringup/net"
	"github.com/boz/bringup/params"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
)

type Interface interface {
	Service() ServiceInterface
	WaitReady(context.Context, time.Duration) error
}

type ServiceInterface interface {
	List(context.Context) (params.Set, error)
	Get(context.Context, string) (*params.Params, error)
	Reset(context.Context, string) error
	Snapshot(context.Context, string) error
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d %v: %v", e.Code, http.StatusText(e.Code), e.Message)
}

type Opt func(*client) error

func WithHost(host string) Opt {
	return func(c *client) error {
		c.host = strings.TrimRight(host, "/")
		return nil
	}
}

func WithLog(l logrus.FieldLogger) Opt {
	return func(c *client) error {
		c.l = l
		return nil
	}
}

type client struct {
	host  string
	chttp *http.Client
	l     logrus.FieldLogger
}

func New(opts ...Opt) (Interface, error) {
	c := &client{
		host:  enet.DefaultConnectAddress,
		l:     log.Default(),
		chttp: &http.Client{},
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	c.l = c.l.WithField("component", "client")
	return c, nil
}

func (c *client) Service() ServiceInterface {
	return c
}

// WaitReady polls the server until it answers or timeout elapses.
func (c *client) WaitReady(ctx context.Context, timeout time.Duration) error {
	backoff := retry.WithMaxDuration(timeout, retry.NewConstant(250*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if _, err := c.List(ctx); err != nil {
			c.l.WithError(err).Debug("not ready")
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (c *client) List(ctx context.Context) (params.Set, error) {
	buf, err := c.doRequest(ctx, "GET", enet.ServicesPath, nil)
	if err != nil {
		return nil, err
	}

	set := params.Set{}
	if err := json.Unmarshal(buf, &set); err != nil {
		return nil, err
	}
	return set, nil
}

func (c *client) Get(ctx context.Context, name string) (*params.Params, error) {
	buf, err := c.doRequest(ctx, "GET", path.Join(enet.ServicesPath, name), nil)
	if err != nil {
		return nil, err
	}

	var p params.Params
	if err := json.Unmarshal(buf, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *client) Reset(ctx context.Context, name string) error {
	_, err := c.doRequest(ctx, "POST", path.Join(enet.ServicesPath, name, "reset"), nil)
	return err
}

func (c *client) Snapshot(ctx context.Context, name string) error {
	_, err := c.doRequest(ctx, "POST", path.Join(enet.ServicesPath, name, "snapshot"), nil)
	return err
}

func (c *client) doRequest(ctx context.Context, method string, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequest(method, c.host+path, body)
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)
	req.Header.Add("Content-Type", enet.RPCContentType)

	resp, err := c.chttp.Do(req)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}

	buf, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode/100 != 2 {
		return nil, &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(buf))}
	}
	return buf, nil
}
