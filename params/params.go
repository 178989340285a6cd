package params

import (
	"bytes"
	"sort"
	"text/template"
)

const (
	ActionReset    = "reset"
	ActionSnapshot = "snapshot"
)

// Params describes a running service to its clients.
type Params struct {
	Name    string   `json:"name"`
	Kind    string   `json:"kind"`
	ID      string   `json:"id"`
	URL     string   `json:"url,omitempty"`
	Status  string   `json:"status"`
	State   string   `json:"state,omitempty"`
	Reused  bool     `json:"reused"`
	Actions []string `json:"actions,omitempty"`
}

type Set map[string]Params

func (p Params) Supports(action string) bool {
	for _, a := range p.Actions {
		if a == action {
			return true
		}
	}
	return false
}

func (p Params) ExecuteTemplate(tmpl *template.Template) (string, error) {
	buf := new(bytes.Buffer)
	err := tmpl.Execute(buf, p)
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (p Params) Interpolate(text string) (string, error) {
	tmpl, err := template.New("params-interpolate").Parse(text)
	if err != nil {
		return "", err
	}
	return p.ExecuteTemplate(tmpl)
}

// Names returns the service names in s, sorted.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Interpolate renders text once per service, in name order.
func (s Set) Interpolate(text string) ([]string, error) {
	tmpl, err := template.New("params-interpolate").Parse(text)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, name := range s.Names() {
		line, err := s[name].ExecuteTemplate(tmpl)
		if err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, nil
}
