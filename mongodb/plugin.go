package mongodb

import (
	"context"
	"encoding/json"

	"github.com/boz/bringup/lifecycle"
	"github.com/boz/bringup/log"
	"github.com/boz/bringup/service"
)

func init() {
	service.MakePlugin("mongodb", parseDefinition)
}

type definition struct {
	Image    string `json:"image"`
	Sharding bool   `json:"sharding"`
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
	if d.Sharding {
		opts = append(opts, WithSharding())
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
