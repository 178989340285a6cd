package builtin_test

import (
	"testing"

	_ "github.com/boz/bringup/builtin"
	"github.com/boz/bringup/service"
	"github.com/stretchr/testify/assert"
)

func TestKinds(t *testing.T) {
	assert.Equal(t, []string{"cloudflared", "mongodb", "ollama", "postgres", "redis"}, service.Kinds())
}
