package config

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path"

	"github.com/ghodss/yaml"
)

// ReadFile returns the contents of a JSON or YAML file as JSON.
func ReadFile(fpath string) ([]byte, error) {
	file, err := os.Open(fpath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	switch path.Ext(fpath) {
	case ".yml", ".yaml":
		return ReadYAML(file)
	case ".json":
		return ioutil.ReadAll(file)
	default:
		return nil, fmt.Errorf("Unknown extension %v", path.Ext(fpath))
	}
}

func ReadYAML(r io.Reader) ([]byte, error) {
	buf, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return yaml.YAMLToJSON(buf)
}
