package postgres

import (
	"context"
	"encoding/json"

	"github.com/boz/bringup/lifecycle"
	"github.com/boz/bringup/log"
	"github.com/boz/bringup/service"
)

func init() {
	service.MakePlugin("postgres", parseDefinition)
}

type definition struct {
	Image       string   `json:"image"`
	Username    string   `json:"username"`
	Password    string   `json:"password"`
	Template    string   `json:"template"`
	Working     string   `json:"working"`
	InitScripts []string `json:"init-scripts"`
	Schema      string   `json:"schema"`
	Snapshot    *bool    `json:"snapshot"`
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
	if d.Username != "" {
		opts = append(opts, WithCredentials(d.Username, d.Password))
	}
	if d.Template != "" || d.Working != "" {
		template, working := DefaultTemplate, DefaultWorking
		if d.Template != "" {
			template = d.Template
		}
		if d.Working != "" {
			working = d.Working
		}
		opts = append(opts, WithTemplate(template, working))
	}
	if len(d.InitScripts) > 0 {
		opts = append(opts, WithInitScripts(d.InitScripts...))
	}
	if d.Schema != "" {
		opts = append(opts, WithSchema(d.Schema))
	}
	if d.Snapshot != nil && !*d.Snapshot {
		opts = append(opts, WithoutSnapshot())
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
