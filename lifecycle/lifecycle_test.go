package lifecycle_test

import (
	"context"
	"encoding/json"
	"errors"
	"io/ioutil"
	"path"
	"testing"
	"time"

	"github.com/boz/bringup/command"
	"github.com/boz/bringup/lifecycle"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExecutor answers by argv[0] and counts invocations.
type fakeExecutor struct {
	results map[string][]command.Result
	errs    map[string]error
	calls   map[string]int
	order   []string
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		results: make(map[string][]command.Result),
		errs:    make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (f *fakeExecutor) on(name string, results ...command.Result) *fakeExecutor {
	f.results[name] = results
	return f
}

func (f *fakeExecutor) Exec(_ context.Context, argv []string) (command.Result, error) {
	name := argv[0]
	f.calls[name]++
	f.order = append(f.order, name)
	if err := f.errs[name]; err != nil {
		return command.Result{}, err
	}
	results := f.results[name]
	if len(results) == 0 {
		return command.Result{}, nil
	}
	idx := f.calls[name] - 1
	if idx >= len(results) {
		idx = len(results) - 1
	}
	return results[idx], nil
}

type fakeProtocol struct {
	await bool
}

func (p fakeProtocol) Name() string { return "fake" }

func (p fakeProtocol) Initiate() command.Command {
	return command.New(command.KindInitiate, "initiate")
}

func (p fakeProtocol) Check() lifecycle.Check {
	return lifecycle.Check{
		Command: command.New(command.KindCheck, "check"),
		Evaluate: func(r command.Result) lifecycle.Outcome {
			switch r.ExitCode {
			case 0:
				return lifecycle.Converged
			case 2:
				return lifecycle.Converging
			case 3:
				return lifecycle.Diverged
			default:
				return lifecycle.Uninitialized
			}
		},
	}
}

func (p fakeProtocol) MarkTemplate(template string) command.Command {
	return command.New(command.KindSnapshot, "mark", template)
}

func (p fakeProtocol) Drop(working string) command.Command {
	return command.New(command.KindDrop, "drop", working)
}

func (p fakeProtocol) Create(working, template string) command.Command {
	return command.New(command.KindCreate, "create", working, template)
}

type awaitingProtocol struct {
	fakeProtocol
}

func (p awaitingProtocol) Await(cfg lifecycle.Config) command.Command {
	return command.New(command.KindAwait, "await")
}

type initOnlyProtocol struct{}

func (initOnlyProtocol) Name() string { return "init-only" }

func testConfig(attempts int) lifecycle.Config {
	return lifecycle.Config{Attempts: attempts, Delay: time.Millisecond}
}

func newController(p lifecycle.Protocol, attempts int) *lifecycle.Controller {
	log := logrus.New()
	log.Level = logrus.DebugLevel
	return lifecycle.NewController(log, p, testConfig(attempts))
}

var (
	ok          = command.Result{ExitCode: 0}
	converging  = command.Result{ExitCode: 2}
	diverged    = command.Result{ExitCode: 3, Stdout: "state: REMOVED"}
	notInitated = command.Result{ExitCode: 1}
)

func TestInitialize_fresh(t *testing.T) {
	e := newFakeExecutor().
		on("check", notInitated, converging, ok)
	c := newController(fakeProtocol{}, 60)

	require.NoError(t, c.Initialize(context.Background(), e, false))

	assert.Equal(t, lifecycle.Ready, c.State())
	assert.Equal(t, 1, e.calls["initiate"])
	assert.Equal(t, 3, e.calls["check"])
	assert.Equal(t, []string{"initiate", "check", "check", "check"}, e.order)
	assert.Equal(t, 3, c.LastAttempt().Count)
	assert.Equal(t, lifecycle.Converged, c.LastAttempt().Last)
}

func TestInitialize_reusedConverged(t *testing.T) {
	e := newFakeExecutor().on("check", ok)
	c := newController(fakeProtocol{}, 60)

	require.NoError(t, c.Initialize(context.Background(), e, true))

	assert.Equal(t, lifecycle.Ready, c.State())
	assert.Equal(t, 0, e.calls["initiate"])
	assert.Equal(t, 1, e.calls["check"])
}

func TestInitialize_reusedConverging(t *testing.T) {
	e := newFakeExecutor().on("check", converging, converging, ok)
	c := newController(fakeProtocol{}, 60)

	require.NoError(t, c.Initialize(context.Background(), e, true))

	assert.Equal(t, 0, e.calls["initiate"])
	assert.Equal(t, 3, e.calls["check"])
}

func TestInitialize_reusedUninitialized(t *testing.T) {
	e := newFakeExecutor().on("check", notInitated, ok)
	c := newController(fakeProtocol{}, 60)

	require.NoError(t, c.Initialize(context.Background(), e, true))

	assert.Equal(t, 1, e.calls["initiate"])
	assert.Equal(t, []string{"check", "initiate", "check"}, e.order)
}

func TestInitialize_reusedDiverged(t *testing.T) {
	e := newFakeExecutor().on("check", diverged)
	c := newController(fakeProtocol{}, 60)

	err := c.Initialize(context.Background(), e, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, lifecycle.ErrCommandFailed))
	assert.Equal(t, 0, e.calls["initiate"])
	assert.Equal(t, lifecycle.Failed, c.State())
}

func TestInitialize_boundedRetry(t *testing.T) {
	e := newFakeExecutor().on("check", converging)
	c := newController(fakeProtocol{}, 60)

	err := c.Initialize(context.Background(), e, false)
	require.Error(t, err)

	assert.True(t, errors.Is(err, lifecycle.ErrTimeout))
	assert.False(t, errors.Is(err, lifecycle.ErrCommandFailed))
	assert.Contains(t, err.Error(), "60")
	assert.Equal(t, 60, e.calls["check"])
	assert.Equal(t, lifecycle.Failed, c.State())

	var ierr *lifecycle.InitError
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, lifecycle.Timeout, ierr.Kind)
	assert.Equal(t, 60, ierr.Attempts)
}

func TestInitialize_failFast(t *testing.T) {
	e := newFakeExecutor().
		on("initiate", command.Result{ExitCode: 1, Stdout: "already initialized"})
	c := newController(fakeProtocol{}, 60)

	err := c.Initialize(context.Background(), e, false)
	require.Error(t, err)

	assert.True(t, errors.Is(err, lifecycle.ErrCommandFailed))
	assert.Contains(t, err.Error(), "already initialized")
	assert.Equal(t, 0, e.calls["check"])
	assert.Equal(t, lifecycle.Failed, c.State())
}

func TestInitialize_divergedWhilePolling(t *testing.T) {
	e := newFakeExecutor().on("check", converging, diverged)
	c := newController(fakeProtocol{}, 60)

	err := c.Initialize(context.Background(), e, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, lifecycle.ErrCommandFailed))
	assert.Equal(t, 2, e.calls["check"])
}

func TestInitialize_infrastructureError(t *testing.T) {
	cause := errors.New("docker: connection refused")
	e := newFakeExecutor()
	e.errs["initiate"] = cause
	c := newController(fakeProtocol{}, 60)

	err := c.Initialize(context.Background(), e, false)
	assert.Equal(t, cause, err)
	assert.Equal(t, 0, e.calls["check"])
}

func TestInitialize_canceled(t *testing.T) {
	e := newFakeExecutor().on("check", converging)
	c := lifecycle.NewController(logrus.New(), fakeProtocol{},
		lifecycle.Config{Attempts: 1000, Delay: time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := c.Initialize(ctx, e, false)
	assert.Equal(t, context.DeadlineExceeded, err)
	assert.Equal(t, 1, e.calls["check"])
}

func TestInitialize_await(t *testing.T) {
	e := newFakeExecutor()
	c := newController(awaitingProtocol{}, 60)

	require.NoError(t, c.Initialize(context.Background(), e, false))
	assert.Equal(t, []string{"initiate", "await"}, e.order)
	assert.Equal(t, lifecycle.Ready, c.State())
}

func TestInitialize_awaitTimeout(t *testing.T) {
	e := newFakeExecutor().on("await", command.Result{ExitCode: 1})
	c := newController(awaitingProtocol{}, 60)

	err := c.Initialize(context.Background(), e, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, lifecycle.ErrTimeout))
	assert.Contains(t, err.Error(), "60 attempts")
	assert.Equal(t, 1, e.calls["await"])
	assert.Equal(t, 0, e.calls["check"])
}

func TestInitialize_notSupported(t *testing.T) {
	c := newController(initOnlyProtocol{}, 60)
	assert.False(t, c.CanInitialize())
	assert.False(t, c.CanReset())
	assert.Equal(t, lifecycle.ErrNotSupported,
		c.Initialize(context.Background(), newFakeExecutor(), false))
	assert.Equal(t, lifecycle.ErrNotSupported,
		c.Reset(context.Background(), newFakeExecutor(), lifecycle.SnapshotState{Template: "a", Working: "b"}))
}

var state = lifecycle.SnapshotState{Template: "test", Working: "testforrealz"}

func TestSnapshot(t *testing.T) {
	e := newFakeExecutor()
	c := newController(fakeProtocol{}, 60)
	require.True(t, c.CanReset())

	require.NoError(t, c.Snapshot(context.Background(), e, state))
	assert.Equal(t, []string{"mark", "drop", "create"}, e.order)
	assert.Equal(t, lifecycle.Ready, c.State())
}

func TestSnapshot_markFails(t *testing.T) {
	e := newFakeExecutor().on("mark", command.Result{ExitCode: 1, Stderr: "permission denied"})
	c := newController(fakeProtocol{}, 60)

	err := c.Snapshot(context.Background(), e, state)
	assert.True(t, errors.Is(err, lifecycle.ErrCommandFailed))
	assert.Contains(t, err.Error(), "permission denied")
	assert.Equal(t, 0, e.calls["drop"])
}

func TestReset_idempotent(t *testing.T) {
	e := newFakeExecutor()
	c := newController(fakeProtocol{}, 60)

	require.NoError(t, c.Reset(context.Background(), e, state))
	require.NoError(t, c.Reset(context.Background(), e, state))
	assert.Equal(t, []string{"drop", "create", "drop", "create"}, e.order)
	assert.Equal(t, lifecycle.Ready, c.State())
}

func TestReset_missingWorkingCopy(t *testing.T) {
	e := newFakeExecutor().
		on("drop", command.Result{ExitCode: 1, Stderr: `ERROR:  database "testforrealz" does not exist`})
	c := newController(fakeProtocol{}, 60)

	require.NoError(t, c.Reset(context.Background(), e, state))
	assert.Equal(t, 1, e.calls["create"])
}

func TestReset_dropFails(t *testing.T) {
	e := newFakeExecutor().
		on("drop", command.Result{ExitCode: 1, Stderr: "ERROR:  permission denied"})
	c := newController(fakeProtocol{}, 60)

	err := c.Reset(context.Background(), e, state)
	assert.True(t, errors.Is(err, lifecycle.ErrCommandFailed))
	assert.Equal(t, 0, e.calls["create"])
}

func TestReset_partial(t *testing.T) {
	e := newFakeExecutor().
		on("create", command.Result{ExitCode: 1, Stderr: "source database \"test\" is being accessed by other users"})
	c := newController(fakeProtocol{}, 60)

	err := c.Reset(context.Background(), e, state)
	require.Error(t, err)
	assert.True(t, errors.Is(err, lifecycle.ErrCommandFailed))

	var ierr *lifecycle.InitError
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, lifecycle.PartialReset, ierr.Kind)
	assert.Contains(t, err.Error(), "testforrealz")
	assert.Equal(t, lifecycle.Failed, c.State())
}

func TestSnapshotState_validate(t *testing.T) {
	assert.NoError(t, state.Validate())
	assert.Error(t, lifecycle.SnapshotState{Working: "w"}.Validate())
	assert.Error(t, lifecycle.SnapshotState{Template: "t"}.Validate())
	assert.Error(t, lifecycle.SnapshotState{Template: "t", Working: "t"}.Validate())
}

func TestParseConfig_full(t *testing.T) {
	cfg := readConfig(t, "config.full.json")
	assert.Equal(t, 10, cfg.Attempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Delay)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestParseConfig_partial(t *testing.T) {
	cfg := readConfig(t, "config.partial.json")
	assert.Equal(t, lifecycle.DefaultAttempts, cfg.Attempts)
	assert.Equal(t, time.Second, cfg.Delay)
	assert.Equal(t, lifecycle.DefaultTimeout, cfg.Timeout)
}

func TestConfig_maxDelay(t *testing.T) {
	cfg := lifecycle.Config{Attempts: 3, Delay: time.Second, Timeout: time.Second}
	assert.Equal(t, 6*time.Second, cfg.MaxDelay())
}

func readConfig(t *testing.T, name string) lifecycle.Config {
	buf, err := ioutil.ReadFile(path.Join("_testdata", name))
	require.NoError(t, err)
	cfg := lifecycle.DefaultConfig()
	require.NoError(t, json.Unmarshal(buf, &cfg))
	return cfg
}
