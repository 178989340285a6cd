package lifecycle

import (
	"context"
	"time"

	"github.com/boz/bringup/command"
	"github.com/sirupsen/logrus"
)

type poller struct {
	c     *Controller
	e     command.Executor
	check Check
	log   logrus.FieldLogger
}

func newPoller(c *Controller, e command.Executor, check Check) *poller {
	return &poller{
		c:     c,
		e:     e,
		check: check,
		log:   c.log.WithField("action", "poll"),
	}
}

func (p *poller) run(ctx context.Context) error {
	attempt := Attempt{
		Max:   p.c.config.Attempts,
		Delay: p.c.config.Delay,
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		attempt.Count++

		outcome, result, err := p.c.evaluate(ctx, p.e, p.check)
		if err != nil {
			return err
		}

		attempt.Last = outcome
		p.c.attempt = attempt

		p.log.WithField("attempt", attempt.Count).
			WithField("outcome", outcome).
			Debug("check")

		switch outcome {
		case Converged:
			return nil
		case Diverged:
			return commandFailed(p.check.Command, result)
		}

		if attempt.Count >= attempt.Max {
			p.log.WithField("attempts", attempt.Count).Warn("attempt bound exceeded")
			return timedOut(p.check.Command, attempt.Max, result)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(attempt.Delay):
		}
	}
}
