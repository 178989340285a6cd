package config

import (
	"fmt"

	"github.com/boz/bringup/service"
	"github.com/sirupsen/logrus"
)

// ReadServices parses the services defined in a service file.
func ReadServices(log logrus.FieldLogger, fpath string) ([]*service.Config, error) {
	log = log.WithField("service-file", fpath)

	buf, err := ReadFile(fpath)
	if err != nil {
		log.WithError(err).Error("reading")
		return nil, err
	}
	return service.ParseAll(log, buf)
}

// ReadServiceFiles parses every file in order.  Service names must be
// unique across files.
func ReadServiceFiles(log logrus.FieldLogger, fpaths ...string) ([]*service.Config, error) {
	var configs []*service.Config
	seen := make(map[string]string)

	for _, fpath := range fpaths {
		cfgs, err := ReadServices(log, fpath)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", fpath, err)
		}
		for _, cfg := range cfgs {
			if prev, ok := seen[cfg.Name]; ok {
				return nil, fmt.Errorf("%v: service %v already defined in %v", fpath, cfg.Name, prev)
			}
			seen[cfg.Name] = fpath
		}
		configs = append(configs, cfgs...)
	}
	return configs, nil
}
