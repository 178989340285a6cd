package service

import (
	"context"

	"github.com/boz/bringup/container"
	"github.com/boz/bringup/lifecycle"
	"github.com/boz/bringup/params"
)

// Service is a started service container.
type Service interface {
	ID() string
	Status() container.Status
	Reused() bool
	URL(context.Context) (string, error)
	Terminate(context.Context) error
}

// Resetter is implemented by services whose state can be discarded.
type Resetter interface {
	Reset(context.Context) error
}

// Snapshotter is implemented by services that can mark their current
// state as the reset target.
type Snapshotter interface {
	Snapshot(context.Context) error
}

type controlled interface {
	Controller() *lifecycle.Controller
}

// Definition starts a configured service.
type Definition interface {
	Start(ctx context.Context, name string, lc lifecycle.Config) (Service, error)
}

// Config is a parsed service block.
type Config struct {
	Name       string
	Kind       string
	Lifecycle  lifecycle.Config
	Definition Definition
}

// ParamsFor describes a running service.
func ParamsFor(ctx context.Context, name, kind string, s Service) (params.Params, error) {
	p := params.Params{
		Name:   name,
		Kind:   kind,
		ID:     s.ID(),
		Status: s.Status().String(),
		Reused: s.Reused(),
	}

	if c, ok := s.(controlled); ok {
		p.State = c.Controller().State().String()
	}
	if _, ok := s.(Resetter); ok {
		p.Actions = append(p.Actions, params.ActionReset)
	}
	if _, ok := s.(Snapshotter); ok {
		p.Actions = append(p.Actions, params.ActionSnapshot)
	}

	if s.Status() == container.Stopped {
		return p, nil
	}

	url, err := s.URL(ctx)
	if err != nil {
		return p, err
	}
	p.URL = url
	return p, nil
}
