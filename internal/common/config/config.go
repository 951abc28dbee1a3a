// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig               `mapstructure:"app"`
	Camunda   CamundaConfig           `mapstructure:"camunda"`
	Database  DatabaseConfig          `mapstructure:"database"`
	Templates TemplateConfig          `mapstructure:"templates"`
	Cache     CacheConfig             `mapstructure:"cache"`
	Engine    EngineConfig            `mapstructure:"engine"`
	Workers   map[string]WorkerConfig `mapstructure:"workers"`
	Logging   LoggingConfig           `mapstructure:"logging"`
	Metrics   MetricsConfig           `mapstructure:"metrics"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Domain Sections ---

// TemplateConfig drives the map-quote-template worker.
type TemplateConfig struct {
	RegistryPath    string  `mapstructure:"registry_path"`
	CacheTTL        int     `mapstructure:"cache_ttl"` // milliseconds
	ReviewThreshold float64 `mapstructure:"review_threshold"`
	MinConfidence   float64 `mapstructure:"min_confidence"`
}

// CacheConfig controls the analysis result cache in Redis.
type CacheConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	KeyPrefix string `mapstructure:"key_prefix"`
	TTL       int    `mapstructure:"ttl"` // milliseconds
}

// EngineConfig holds every comparison threshold. Ratios and tolerances
// are fractions (0.01 == 1%); fee percentages are percents.
type EngineConfig struct {
	MathTolerance         float64   `mapstructure:"math_tolerance"`
	MajorCorrection       float64   `mapstructure:"major_correction"`
	RoundingTolerance     float64   `mapstructure:"rounding_tolerance"`
	MatchThreshold        float64   `mapstructure:"match_threshold"`
	PriceOutlierRatio     float64   `mapstructure:"price_outlier_ratio"`
	PriceOutlierHighRatio float64   `mapstructure:"price_outlier_high_ratio"`
	QuantityOutlierRatio  float64   `mapstructure:"quantity_outlier_ratio"`
	FeePercentages        []float64 `mapstructure:"fee_percentages"`
	FeeMatchTolerance     float64   `mapstructure:"fee_match_tolerance"`
	JustificationKeywords []string  `mapstructure:"justification_keywords"`
	InternalPriceRatio    float64   `mapstructure:"internal_price_ratio"`
	BulkDiscountRatio     float64   `mapstructure:"bulk_discount_ratio"`
	LongDeliveryDays      int       `mapstructure:"long_delivery_days"`
	DeliverySpreadDays    int       `mapstructure:"delivery_spread_days"`
	MaxParallel           int       `mapstructure:"max_parallel"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type MetricsConfig struct {
	Address string `mapstructure:"address"`
}
