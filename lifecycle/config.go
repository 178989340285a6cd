package lifecycle

import (
	"encoding/json"
	"time"
)

const (
	DefaultAttempts = 60
	DefaultDelay    = 100 * time.Millisecond
	DefaultTimeout  = 30 * time.Second
)

// Config bounds the convergence poll.  Timeout applies to each command
// round trip, not to the whole bring-up.
type Config struct {
	Attempts int
	Delay    time.Duration
	Timeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Attempts: DefaultAttempts,
		Delay:    DefaultDelay,
		Timeout:  DefaultTimeout,
	}
}

// MaxDelay is the longest a poll can take before it times out.
func (c Config) MaxDelay() time.Duration {
	return (c.Delay + c.Timeout) * time.Duration(c.Attempts)
}

func (c *Config) UnmarshalJSON(buf []byte) error {
	other := struct {
		Attempts int
		Delay    string
		Timeout  string
	}{Attempts: c.Attempts}

	if err := json.Unmarshal(buf, &other); err != nil {
		return err
	}

	if other.Attempts > 0 {
		c.Attempts = other.Attempts
	}

	if other.Delay != "" {
		val, err := time.ParseDuration(other.Delay)
		if err != nil {
			return err
		}
		c.Delay = val
	}

	if other.Timeout != "" {
		val, err := time.ParseDuration(other.Timeout)
		if err != nil {
			return err
		}
		c.Timeout = val
	}

	return nil
}
