// Package builtin registers every service kind shipped with bringup.
package builtin

import (
	_ "github.com/boz/bringup/cloudflared"
	_ "github.com/boz/bringup/mongodb"
	_ "github.com/boz/bringup/ollama"
	_ "github.com/boz/bringup/postgres"
	_ "github.com/boz/bringup/redis"
)
