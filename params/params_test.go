package params_test

import (
	"testing"

	"github.com/boz/bringup/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpolate(t *testing.T) {
	p := params.Params{Name: "pg", Kind: "postgres", URL: "postgres://h:1/db"}

	out, err := p.Interpolate("{{.Name}}={{.URL}}")
	require.NoError(t, err)
	assert.Equal(t, "pg=postgres://h:1/db", out)

	_, err = p.Interpolate("{{.Name")
	assert.Error(t, err)
}

func TestSet_Interpolate(t *testing.T) {
	set := params.Set{
		"mongo": {Name: "mongo", URL: "mongodb://h:2"},
		"cache": {Name: "cache", URL: "redis://h:3"},
	}
	assert.Equal(t, []string{"cache", "mongo"}, set.Names())

	out, err := set.Interpolate("{{.Name}} {{.URL}}")
	require.NoError(t, err)
	assert.Equal(t, []string{"cache redis://h:3", "mongo mongodb://h:2"}, out)
}

func TestSupports(t *testing.T) {
	p := params.Params{Actions: []string{params.ActionReset}}
	assert.True(t, p.Supports(params.ActionReset))
	assert.False(t, p.Supports(params.ActionSnapshot))
}
