//go:build integration

package cloudflared_test

import (
	"context"
	"fmt"
	"io/ioutil"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/boz/bringup/fixture"
	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTunnel(t *testing.T) {
	fixture.SkipIfNoDocker(t)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "Hello world")
	})}
	go srv.Serve(l)
	t.Cleanup(func() { srv.Close() })

	c := fixture.Cloudflared(t, l.Addr().(*net.TCPAddr).Port)
	ctx := context.Background()

	url, err := c.PublicURL(ctx)
	require.NoError(t, err)
	assert.Contains(t, url, "cloudflare")

	backoff := retry.WithMaxDuration(30*time.Second, retry.NewConstant(2*time.Second))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := http.Get(url)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()
		body, err := ioutil.ReadAll(resp.Body)
		if err != nil || !strings.Contains(string(body), "Hello world") {
			return retry.RetryableError(fmt.Errorf("unexpected body: %s", body))
		}
		return nil
	})
	require.NoError(t, err)
}
