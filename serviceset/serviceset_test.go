package serviceset_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/boz/bringup/container"
	"github.com/boz/bringup/lifecycle"
	"github.com/boz/bringup/params"
	"github.com/boz/bringup/service"
	"github.com/boz/bringup/serviceset"
	"github.com/boz/bringup/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type plainService struct {
	*container.Handle
	rt *testutil.Runtime
}

func (s *plainService) URL(context.Context) (string, error) {
	return "plain://" + s.rt.HostName, nil
}

type resettableService struct {
	plainService
	resets    int
	snapshots int
}

func (s *resettableService) Reset(context.Context) error {
	s.resets++
	return nil
}

func (s *resettableService) Snapshot(context.Context) error {
	s.snapshots++
	return nil
}

type definition struct {
	err     error
	reset   bool
	mtx     sync.Mutex
	started []*testutil.Runtime
	last    service.Service
}

func (d *definition) Start(context.Context, string, lifecycle.Config) (service.Service, error) {
	if d.err != nil {
		return nil, d.err
	}
	d.mtx.Lock()
	defer d.mtx.Unlock()

	rt := testutil.NewRuntime("h", nil)
	d.started = append(d.started, rt)
	plain := plainService{container.NewHandle(testutil.Log(), rt, false), rt}
	if d.reset {
		d.last = &resettableService{plainService: plain}
	} else {
		d.last = &plain
	}
	return d.last, nil
}

func configs(defs map[string]*definition) []*service.Config {
	var cfgs []*service.Config
	for name, def := range defs {
		cfgs = append(cfgs, &service.Config{
			Name:       name,
			Kind:       "test",
			Lifecycle:  lifecycle.DefaultConfig(),
			Definition: def,
		})
	}
	return cfgs
}

func TestServiceSet(t *testing.T) {
	ctx := testutil.Context()
	db := &definition{reset: true}
	web := &definition{}

	set, err := serviceset.New(ctx, testutil.Log(), configs(map[string]*definition{"db": db, "web": web}))
	require.NoError(t, err)

	list, err := set.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"db", "web"}, list.Names())
	assert.Equal(t, "plain://h", list["web"].URL)
	assert.True(t, list["db"].Supports(params.ActionReset))
	assert.False(t, list["web"].Supports(params.ActionReset))

	p, err := set.Get(ctx, "db")
	require.NoError(t, err)
	assert.Equal(t, "running", p.Status)

	_, err = set.Get(ctx, "nope")
	assert.True(t, errors.Is(err, serviceset.ErrNotFound))

	require.NoError(t, set.Reset(ctx, "db"))
	require.NoError(t, set.Snapshot(ctx, "db"))
	svc := db.last.(*resettableService)
	assert.Equal(t, 1, svc.resets)
	assert.Equal(t, 1, svc.snapshots)

	assert.True(t, errors.Is(set.Reset(ctx, "web"), serviceset.ErrNotSupported))
	assert.True(t, errors.Is(set.Snapshot(ctx, "web"), serviceset.ErrNotSupported))

	require.NoError(t, set.Shutdown(ctx))
	require.NoError(t, set.Shutdown(ctx))
	assert.Equal(t, 1, db.started[0].Terminated)
	assert.Equal(t, 1, web.started[0].Terminated)

	_, err = set.List(ctx)
	assert.Equal(t, serviceset.ErrShutdown, err)
	assert.Equal(t, serviceset.ErrShutdown, set.Reset(ctx, "db"))
}

func TestServiceSet_startFailure(t *testing.T) {
	ctx := testutil.Context()
	ok := &definition{}
	bad := &definition{err: errors.New("boom")}

	_, err := serviceset.New(ctx, testutil.Log(), configs(map[string]*definition{"ok": ok, "bad": bad}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	for _, rt := range ok.started {
		assert.Equal(t, 1, rt.Terminated)
	}
}

func TestServiceSet_duplicate(t *testing.T) {
	def := &definition{}
	cfgs := []*service.Config{
		{Name: "a", Definition: def},
		{Name: "a", Definition: def},
	}
	_, err := serviceset.New(testutil.Context(), testutil.Log(), cfgs)
	assert.Error(t, err)
	assert.Empty(t, def.started)
}
