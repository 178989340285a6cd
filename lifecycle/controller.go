package lifecycle

import (
	"context"
	"time"

	"github.com/boz/bringup/command"
	"github.com/sirupsen/logrus"
)

// Controller brings a started (or reused) service container into a
// query-ready state and resets its working copy on demand.
//
// A Controller performs no locking.  Callers must not share one across
// goroutines without serializing access.
type Controller struct {
	protocol Protocol
	config   Config
	state    State
	attempt  Attempt
	log      logrus.FieldLogger
}

func NewController(log logrus.FieldLogger, protocol Protocol, config Config) *Controller {
	return &Controller{
		protocol: protocol,
		config:   config,
		log: log.WithField("component", "lifecycle.Controller").
			WithField("service", protocol.Name()),
	}
}

func (c *Controller) State() State {
	return c.state
}

// LastAttempt returns the state of the most recent Go-side poll.
func (c *Controller) LastAttempt() Attempt {
	return c.attempt
}

func (c *Controller) CanInitialize() bool {
	_, ok := c.protocol.(Initiator)
	return ok
}

func (c *Controller) CanReset() bool {
	_, ok := c.protocol.(Snapshotter)
	return ok
}

// Initialize runs the initiation protocol.  When reused is true and the
// service has already converged no initiation command is issued.
func (c *Controller) Initialize(ctx context.Context, e command.Executor, reused bool) error {
	init, ok := c.protocol.(Initiator)
	if !ok {
		return ErrNotSupported
	}

	log := c.log.WithField("reused", reused)

	if reused {
		check := init.Check()
		outcome, _, err := c.evaluate(ctx, e, check)
		if err != nil {
			return err
		}
		log.WithField("outcome", outcome).Debug("reuse check")

		switch outcome {
		case Converged:
			c.state = Ready
			return nil
		case Converging:
			c.state = Polling
			return c.converge(ctx, e, init)
		case Diverged:
			c.state = Failed
			return &InitError{
				Kind:    CommandFailed,
				Command: check.Command.Kind(),
				msg:     "reused " + c.protocol.Name() + " service diverged",
			}
		}
	}

	c.state = Initiating

	cmd := init.Initiate()
	result, err := c.run(ctx, e, cmd)
	if err != nil {
		c.state = Failed
		return err
	}
	if !result.OK() {
		c.state = Failed
		log.WithField("exit-code", result.ExitCode).Warn("initiate failed")
		return commandFailed(cmd, result)
	}

	c.state = Polling
	return c.converge(ctx, e, init)
}

func (c *Controller) converge(ctx context.Context, e command.Executor, init Initiator) error {
	var err error
	if awaiter, ok := c.protocol.(Awaiter); ok {
		err = c.await(ctx, e, awaiter)
	} else {
		err = newPoller(c, e, init.Check()).run(ctx)
	}
	if err != nil {
		c.state = Failed
		return err
	}
	c.state = Ready
	c.log.Debug("ready")
	return nil
}

func (c *Controller) await(ctx context.Context, e command.Executor, awaiter Awaiter) error {
	cmd := awaiter.Await(c.config)
	result, err := c.runTimeout(ctx, e, cmd, c.config.MaxDelay())
	if err != nil {
		return err
	}
	if !result.OK() {
		c.log.WithField("attempts", c.config.Attempts).Warn("await failed")
		return timedOut(cmd, c.config.Attempts, result)
	}
	return nil
}

// Snapshot marks the current state as an immutable template, then
// produces the first working copy.
func (c *Controller) Snapshot(ctx context.Context, e command.Executor, state SnapshotState) error {
	snap, ok := c.protocol.(Snapshotter)
	if !ok {
		return ErrNotSupported
	}
	if err := state.Validate(); err != nil {
		return err
	}

	cmd := snap.MarkTemplate(state.Template)
	result, err := c.run(ctx, e, cmd)
	if err != nil {
		return err
	}
	if !result.OK() {
		c.state = Failed
		return commandFailed(cmd, result)
	}

	return c.Reset(ctx, e, state)
}

// Reset drops the working copy, if any, and recreates it from the
// template.  It is safe to call before a working copy exists.
func (c *Controller) Reset(ctx context.Context, e command.Executor, state SnapshotState) error {
	snap, ok := c.protocol.(Snapshotter)
	if !ok {
		return ErrNotSupported
	}
	if err := state.Validate(); err != nil {
		return err
	}

	log := c.log.WithField("template", state.Template).
		WithField("working", state.Working)

	drop := snap.Drop(state.Working)
	result, err := c.run(ctx, e, drop)
	if err != nil {
		return err
	}
	if !result.OK() && !isMissing(result) {
		c.state = Failed
		return commandFailed(drop, result)
	}

	create := snap.Create(state.Working, state.Template)
	result, err = c.run(ctx, e, create)
	if err != nil {
		return err
	}
	if !result.OK() {
		c.state = Failed
		log.WithField("exit-code", result.ExitCode).Warn("create failed after drop")
		return partialReset(create, state, result)
	}

	c.state = Ready
	log.Debug("reset")
	return nil
}

func (c *Controller) evaluate(ctx context.Context, e command.Executor, check Check) (Outcome, command.Result, error) {
	result, err := c.run(ctx, e, check.Command)
	if err != nil {
		return Uninitialized, result, err
	}
	return check.Evaluate(result), result, nil
}

func (c *Controller) run(ctx context.Context, e command.Executor, cmd command.Command) (command.Result, error) {
	return c.runTimeout(ctx, e, cmd, c.config.Timeout)
}

func (c *Controller) runTimeout(ctx context.Context, e command.Executor, cmd command.Command, timeout time.Duration) (command.Result, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	c.log.WithField("command", cmd.Kind()).Debug("exec")
	return command.Run(ctx, e, cmd)
}
