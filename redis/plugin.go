package redis

import (
	"context"
	"encoding/json"

	"github.com/boz/bringup/lifecycle"
	"github.com/boz/bringup/log"
	"github.com/boz/bringup/service"
)

func init() {
	service.MakePlugin("redis", parseDefinition)
}

type definition struct {
	Image    string `json:"image"`
	Database string `json:"database"`
	Reuse    string `json:"reuse"`
}

func parseDefinition(buf []byte) (service.Definition, error) {
	d := &definition{}
	if err := json.Unmarshal(buf, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *definition) options(ctx context.Context, name string, lc lifecycle.Config) []Option {
	opts := []Option{
		WithLifecycle(lc),
		WithLog(log.FromContext(ctx).WithField("name", name)),
	}
	if d.Image != "" {
		opts = append(opts, WithImage(d.Image))
	}
	if d.Database != "" {
		opts = append(opts, WithDatabase(d.Database))
	}
	if d.Reuse != "" {
		opts = append(opts, WithReuse(d.Reuse))
	}
	return opts
}

func (d *definition) Start(ctx context.Context, name string, lc lifecycle.Config) (service.Service, error) {
	c, err := Run(ctx, d.options(ctx, name, lc)...)
	if err != nil {
		return nil, err
	}
	return c, nil
}
