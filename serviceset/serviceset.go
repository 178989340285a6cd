package serviceset

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/boz/bringup/params"
	"github.com/boz/bringup/service"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNotFound     = errors.New("service not found")
	ErrNotSupported = errors.New("operation not supported by service")
	ErrShutdown     = errors.New("service set shut down")
)

type ServiceSet interface {
	Get(context.Context, string) (params.Params, error)
	List(context.Context) (params.Set, error)
	Reset(context.Context, string) error
	Snapshot(context.Context, string) error
}

type Set interface {
	ServiceSet
	Shutdown(context.Context) error
}

type entry struct {
	cfg     *service.Config
	service service.Service

	// serializes operations on one service
	mtx sync.Mutex
}

type serviceset struct {
	entries  map[string]*entry
	shutdown bool
	mtx      sync.RWMutex
	l        logrus.FieldLogger
}

// New starts every configured service concurrently.  If any fails to
// start the ones that did are terminated.
func New(ctx context.Context, log logrus.FieldLogger, configs []*service.Config) (Set, error) {
	s := &serviceset{
		entries: make(map[string]*entry),
		l:       log.WithField("component", "serviceset"),
	}

	for _, cfg := range configs {
		if _, ok := s.entries[cfg.Name]; ok {
			return nil, fmt.Errorf("duplicate service %v", cfg.Name)
		}
		s.entries[cfg.Name] = &entry{cfg: cfg}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, e := range s.entries {
		e := e
		g.Go(func() error {
			l := s.l.WithField("service", e.cfg.Name).WithField("kind", e.cfg.Kind)
			l.Info("starting")

			svc, err := e.cfg.Definition.Start(gctx, e.cfg.Name, e.cfg.Lifecycle)
			if err != nil {
				l.WithError(err).Error("start failed")
				return fmt.Errorf("start %v: %w", e.cfg.Name, err)
			}

			e.service = svc
			l.Info("started")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, multierr.Append(err, s.terminate(context.Background()))
	}

	return s, nil
}

func (s *serviceset) lookup(name string) (*entry, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	if s.shutdown {
		return nil, ErrShutdown
	}
	e, ok := s.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, name)
	}
	return e, nil
}

func (s *serviceset) Get(ctx context.Context, name string) (params.Params, error) {
	e, err := s.lookup(name)
	if err != nil {
		return params.Params{}, err
	}

	e.mtx.Lock()
	defer e.mtx.Unlock()

	return service.ParamsFor(ctx, e.cfg.Name, e.cfg.Kind, e.service)
}

func (s *serviceset) List(ctx context.Context) (params.Set, error) {
	s.mtx.RLock()
	if s.shutdown {
		s.mtx.RUnlock()
		return nil, ErrShutdown
	}
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	s.mtx.RUnlock()

	sort.Strings(names)

	set := params.Set{}
	for _, name := range names {
		p, err := s.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		set[name] = p
	}
	return set, nil
}

func (s *serviceset) Reset(ctx context.Context, name string) error {
	e, err := s.lookup(name)
	if err != nil {
		return err
	}

	r, ok := e.service.(service.Resetter)
	if !ok {
		return fmt.Errorf("%w: reset %v", ErrNotSupported, name)
	}

	e.mtx.Lock()
	defer e.mtx.Unlock()

	s.l.WithField("service", name).Info("reset")
	return r.Reset(ctx)
}

func (s *serviceset) Snapshot(ctx context.Context, name string) error {
	e, err := s.lookup(name)
	if err != nil {
		return err
	}

	snap, ok := e.service.(service.Snapshotter)
	if !ok {
		return fmt.Errorf("%w: snapshot %v", ErrNotSupported, name)
	}

	e.mtx.Lock()
	defer e.mtx.Unlock()

	s.l.WithField("service", name).Info("snapshot")
	return snap.Snapshot(ctx)
}

// Shutdown terminates every service.  Subsequent calls are no-ops.
func (s *serviceset) Shutdown(ctx context.Context) error {
	s.mtx.Lock()
	if s.shutdown {
		s.mtx.Unlock()
		return nil
	}
	s.shutdown = true
	s.mtx.Unlock()

	return s.terminate(ctx)
}

func (s *serviceset) terminate(ctx context.Context) error {
	var (
		err error
		mtx sync.Mutex
		wg  sync.WaitGroup
	)

	for _, e := range s.entries {
		if e.service == nil {
			continue
		}
		wg.Add(1)
		go func(e *entry) {
			defer wg.Done()

			e.mtx.Lock()
			defer e.mtx.Unlock()

			l := s.l.WithField("service", e.cfg.Name)
			if terr := e.service.Terminate(ctx); terr != nil {
				l.WithError(terr).Warn("terminate")
				mtx.Lock()
				err = multierr.Append(err, fmt.Errorf("terminate %v: %w", e.cfg.Name, terr))
				mtx.Unlock()
				return
			}
			l.Info("terminated")
		}(e)
	}

	wg.Wait()
	return err
}
