package rediscache

import (
	"fmt"
	"time"
)

// redisURLEnv is consulted when no url is configured.
const redisURLEnv = "REDIS_URL"

const (
	defaultTTL    = 5 * time.Minute
	defaultWindow = 10
)

// Config holds the Redis cache module configuration.
type Config struct {
	// URL is the connection string (redis://host:port/db).
	// Falls back to the REDIS_URL environment variable when empty.
	URL string `yaml:"url"`

	// TTL bounds how stale a cached history slice can get. Defaults to 5m.
	TTL time.Duration `yaml:"ttl"`

	// Window is how many recent turns each cached slice holds. Reads
	// asking for more than this bypass the cache. Defaults to 10.
	Window int `yaml:"window"`
}

func (c *Config) defaults() {
	if c.TTL == 0 {
		c.TTL = defaultTTL
	}
	if c.Window == 0 {
		c.Window = defaultWindow
	}
}

func (c *Config) validate() error {
	if c.TTL < 0 {
		return fmt.Errorf("redis_cache: ttl must be non-negative, got %v", c.TTL)
	}
	if c.Window < 0 {
		return fmt.Errorf("redis_cache: window must be non-negative, got %d", c.Window)
	}
	return nil
}
