// internal/workers/quotes/map-quote-template/config.go
package mapquotetemplate

import (
	"time"

	"quote-engine/internal/engine/templates"
)

type Config struct {
	TemplateRegistry string
	CacheTTL         time.Duration
	Timeout          time.Duration
	Mapper           templates.Config
}

func LoadConfig() *Config {
	return &Config{
		TemplateRegistry: "configs/templates/registry.json",
		CacheTTL:         5 * time.Minute,
		Timeout:          10 * time.Second,
		Mapper:           templates.DefaultConfig(),
	}
}
