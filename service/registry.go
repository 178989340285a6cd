package service

import (
	"fmt"
	"sort"
	"sync"
)

var (
	plugins = map[string]Plugin{}
	mtx     sync.RWMutex
)

// Plugin parses the configuration of one kind of service.
type Plugin interface {
	Kind() string
	ParseConfig([]byte) (Definition, error)
}

func MakePlugin(kind string, fn func(buf []byte) (Definition, error)) {
	Register(&plugin{kind, fn})
}

func Register(p Plugin) {
	mtx.Lock()
	defer mtx.Unlock()
	plugins[p.Kind()] = p
}

func Lookup(kind string) (Plugin, error) {
	mtx.RLock()
	defer mtx.RUnlock()
	p, ok := plugins[kind]
	if !ok {
		return nil, fmt.Errorf("service kind '%v' not found", kind)
	}
	return p, nil
}

// Kinds returns the registered service kinds.
func Kinds() []string {
	mtx.RLock()
	defer mtx.RUnlock()
	kinds := make([]string, 0, len(plugins))
	for kind := range plugins {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

type plugin struct {
	kind        string
	parseConfig func([]byte) (Definition, error)
}

func (p *plugin) Kind() string {
	return p.kind
}

func (p *plugin) ParseConfig(buf []byte) (Definition, error) {
	return p.parseConfig(buf)
}
