package cloudflared

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/boz/bringup/lifecycle"
	"github.com/boz/bringup/log"
	"github.com/boz/bringup/service"
)

func init() {
	service.MakePlugin("cloudflared", parseDefinition)
}

type definition struct {
	Image string `json:"image"`
	Port  int    `json:"port"`
}

func parseDefinition(buf []byte) (service.Definition, error) {
	d := &definition{}
	if err := json.Unmarshal(buf, d); err != nil {
		return nil, err
	}
	if d.Port <= 0 {
		return nil, errors.New("cloudflared: port required")
	}
	return d, nil
}

func (d *definition) Start(ctx context.Context, name string, _ lifecycle.Config) (service.Service, error) {
	opts := []Option{
		WithLog(log.FromContext(ctx).WithField("name", name)),
	}
	if d.Image != "" {
		opts = append(opts, WithImage(d.Image))
	}
	c, err := Run(ctx, d.Port, opts...)
	if err != nil {
		return nil, err
	}
	return c, nil
}
