package service

import (
	"errors"

	"github.com/boz/bringup/lifecycle"
	"github.com/buger/jsonparser"
	"github.com/sirupsen/logrus"
)

// ParseAll parses every block under "services".
func ParseAll(log logrus.FieldLogger, buf []byte) ([]*Config, error) {
	var configs []*Config
	err := jsonparser.ObjectEach(buf, func(key []byte, buf []byte, _ jsonparser.ValueType, _ int) error {
		cfg, err := Parse(log, string(key), buf)
		if err != nil {
			return err
		}
		configs = append(configs, cfg)
		return nil
	}, "services")
	return configs, err
}

// Parse parses a single service block.  The "kind" field selects the
// plugin; "lifecycle" overrides the bring-up bounds.
func Parse(log logrus.FieldLogger, name string, buf []byte) (*Config, error) {
	log = log.WithField("service", name).WithField("component", "service.Parse")

	if name == "" {
		return nil, errors.New("service name required")
	}

	kind, err := jsonparser.GetString(buf, "kind")
	if err != nil {
		log.WithError(err).Error("parsing kind")
		return nil, err
	}

	plugin, err := Lookup(kind)
	if err != nil {
		log.WithError(err).Error("plugin")
		return nil, err
	}

	lc := lifecycle.DefaultConfig()
	lcbuf, vt, _, err := jsonparser.Get(buf, "lifecycle")
	switch {
	case vt == jsonparser.NotExist && err == jsonparser.KeyPathNotFoundError:
	case err != nil:
		log.WithError(err).Error("invalid lifecycle type")
		return nil, err
	default:
		if err := lc.UnmarshalJSON(lcbuf); err != nil {
			log.WithError(err).Error("parsing lifecycle")
			return nil, err
		}
	}

	def, err := plugin.ParseConfig(buf)
	if err != nil {
		log.WithError(err).Error("parsing definition")
		return nil, err
	}

	return &Config{
		Name:       name,
		Kind:       kind,
		Lifecycle:  lc,
		Definition: def,
	}, nil
}
