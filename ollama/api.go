package ollama

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/buger/jsonparser"
	"github.com/sethvargo/go-retry"
)

const (
	versionPath = "/api/version"
	tagsPath    = "/api/tags"
)

// Version returns the server version reported by the API.
func (c *Container) Version(ctx context.Context) (string, error) {
	buf, err := c.get(ctx, versionPath)
	if err != nil {
		return "", err
	}
	return parseVersion(buf)
}

// Models returns the names of the models available to the server.
func (c *Container) Models(ctx context.Context) ([]string, error) {
	buf, err := c.get(ctx, tagsPath)
	if err != nil {
		return nil, err
	}
	return parseModels(buf)
}

// WaitReady polls the version endpoint until it answers.
func (c *Container) WaitReady(ctx context.Context, timeout time.Duration) error {
	backoff := retry.WithMaxDuration(timeout, retry.NewConstant(500*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if _, err := c.Version(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (c *Container) get(ctx context.Context, path string) ([]byte, error) {
	endpoint, err := c.Endpoint(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest("GET", endpoint+path, nil)
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)

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

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %v: %v", path, resp.Status)
	}
	return buf, nil
}

func parseVersion(buf []byte) (string, error) {
	version, err := jsonparser.GetString(buf, "version")
	if err != nil {
		return "", fmt.Errorf("parse version: %w", err)
	}
	return version, nil
}

func parseModels(buf []byte) ([]string, error) {
	var names []string
	var perr error

	_, err := jsonparser.ArrayEach(buf, func(value []byte, _ jsonparser.ValueType, _ int, _ error) {
		if perr != nil {
			return
		}
		name, err := jsonparser.GetString(value, "name")
		if err != nil {
			perr = err
			return
		}
		names = append(names, name)
	}, "models")

	switch {
	case err == jsonparser.KeyPathNotFoundError:
		return names, nil
	case err != nil:
		return nil, fmt.Errorf("parse models: %w", err)
	case perr != nil:
		return nil, fmt.Errorf("parse models: %w", perr)
	}
	return names, nil
}
