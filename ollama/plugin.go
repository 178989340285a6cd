package ollama

import (
	"context"
	"encoding/json"

	"github.com/boz/bringup/lifecycle"
	"github.com/boz/bringup/log"
	"github.com/boz/bringup/service"
)

func init() {
	service.MakePlugin("ollama", parseDefinition)
}

type definition struct {
	Image      string   `json:"image"`
	Substitute string   `json:"substitute"`
	Reuse      string   `json:"reuse"`
	Models     []string `json:"models"`
}

func parseDefinition(buf []byte) (service.Definition, error) {
	d := &definition{}
	if err := json.Unmarshal(buf, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *definition) options(ctx context.Context, name string) []Option {
	opts := []Option{
		WithLog(log.FromContext(ctx).WithField("name", name)),
	}
	if d.Image != "" {
		opts = append(opts, WithImage(d.Image))
	}
	if d.Substitute != "" {
		opts = append(opts, WithSubstitute(d.Substitute))
	}
	if d.Reuse != "" {
		opts = append(opts, WithReuse(d.Reuse))
	}
	return opts
}

// Start runs the container and pulls any configured models.
func (d *definition) Start(ctx context.Context, name string, lc lifecycle.Config) (service.Service, error) {
	c, err := Run(ctx, d.options(ctx, name)...)
	if err != nil {
		return nil, err
	}
	for _, model := range d.Models {
		if err := c.Pull(ctx, model); err != nil {
			_ = c.Terminate(ctx)
			return nil, err
		}
	}
	return c, nil
}
