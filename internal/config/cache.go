package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache middleware.
// When Enabled is false or no Redis client is configured, caching is
// disabled.  KeyStrategy determines which parts of the request contribute
// to the cache key.
type CacheConfig struct {
	Enabled      bool          `env:"CACHE_ENABLED" env-default:"true"`
	MethodList   string        `env:"CACHE_METHODS" env-default:"GET"`
	TTL          time.Duration `env:"CACHE_TTL" env-default:"30s"`
	KeyStrategy  string        `env:"CACHE_KEY_STRATEGY" env-default:"route_query"`
	Prefix       string        `env:"CACHE_PREFIX" env-default:"cache"`
	MaxBodyBytes int           `env:"CACHE_MAX_BODY_BYTES" env-default:"1048576"`

	// Methods is MethodList parsed into an upper-cased set.
	Methods map[string]bool
}

func (c *CacheConfig) normalize() {
	c.Methods = parseMethods(c.MethodList)
	if c.TTL <= 0 {
		c.TTL = 30 * time.Second
	}
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
