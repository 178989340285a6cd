package container_test

import (
	"context"
	"errors"
	"testing"

	"github.com/boz/bringup/container"
	"github.com/boz/bringup/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandle_running(t *testing.T) {
	rt := testutil.NewRuntime("localhost", map[string]string{"27017/tcp": "32768"})
	h := container.NewHandle(testutil.Log(), rt, false)

	assert.True(t, h.Running())
	assert.False(t, h.Reused())
	assert.Equal(t, container.Running, h.Status())

	host, err := h.Host(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "localhost", host)

	port, err := h.MappedPort(context.Background(), "27017")
	require.NoError(t, err)
	assert.Equal(t, "32768", port)

	port, err = h.MappedPort(context.Background(), "27017/tcp")
	require.NoError(t, err)
	assert.Equal(t, "32768", port)

	endpoint, err := h.Endpoint(context.Background(), "http", "27017")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:32768", endpoint)
}

func TestHandle_reused(t *testing.T) {
	rt := testutil.NewRuntime("localhost", nil)
	h := container.NewHandle(testutil.Log(), rt, true)
	assert.True(t, h.Reused())
	assert.True(t, h.Running())
	assert.Equal(t, container.Reused, h.Status())
}

func TestHandle_unmappedPort(t *testing.T) {
	rt := testutil.NewRuntime("localhost", nil)
	h := container.NewHandle(testutil.Log(), rt, false)

	_, err := h.MappedPort(context.Background(), "5432")
	assert.Error(t, err)
}

func TestHandle_notRunning(t *testing.T) {
	rt := testutil.NewRuntime("localhost", map[string]string{"27017/tcp": "32768"})
	h := container.NewHandle(testutil.Log(), rt, false)
	rt.Running = false

	_, err := h.Host(context.Background())
	assert.True(t, errors.Is(err, container.ErrNotRunning))

	_, err = h.Address(context.Background(), "27017")
	assert.True(t, errors.Is(err, container.ErrNotRunning))
}

func TestHandle_terminate(t *testing.T) {
	rt := testutil.NewRuntime("localhost", map[string]string{"27017/tcp": "32768"})
	h := container.NewHandle(testutil.Log(), rt, false)

	require.NoError(t, h.Terminate(context.Background()))
	require.NoError(t, h.Terminate(context.Background()))

	assert.Equal(t, 1, rt.Terminated)
	assert.Equal(t, container.Stopped, h.Status())
	assert.False(t, h.Running())

	_, err := h.Endpoint(context.Background(), "mongodb", "27017")
	assert.True(t, errors.Is(err, container.ErrNotRunning))
}

func TestCheckImage(t *testing.T) {
	assert.NoError(t, container.CheckImage("mongo:7.0.9", "mongo"))
	assert.NoError(t, container.CheckImage("docker.io/library/mongo", "mongo"))
	assert.NoError(t, container.CheckImage("tc-ollama-allminilm", "ollama/ollama", "tc-ollama-allminilm"))
	assert.Error(t, container.CheckImage("postgres:16-alpine", "mongo"))
	assert.Error(t, container.CheckImage("Not A Valid Image", "mongo"))
}
