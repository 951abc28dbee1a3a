// internal/workers/quotes/compare-vendor-quotes/config.go
package comparevendorquotes

import (
	"time"

	"quote-engine/internal/engine"
)

type Config struct {
	Timeout        time.Duration
	CacheEnabled   bool
	CacheTTL       time.Duration
	CacheKeyPrefix string
	Engine         engine.Config
}

func LoadConfig() *Config {
	return &Config{
		Timeout:        30 * time.Second,
		CacheTTL:       time.Hour,
		CacheKeyPrefix: "quote-analysis:",
		Engine:         engine.DefaultConfig(),
	}
}
