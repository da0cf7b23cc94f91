package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/dig"

	"github.com/davidbz/venicedesk/internal/advisory"
	"github.com/davidbz/venicedesk/internal/catalog"
	"github.com/davidbz/venicedesk/internal/observability"
	"github.com/davidbz/venicedesk/internal/provider/venice"
)

// Config represents the workspace configuration.
type Config struct {
	Server   ServerConfig
	CORS     CORSConfig
	Log      observability.LogConfig
	Venice   venice.Config
	Stats    StatsConfig
	Redis    RedisConfig
	Advisory advisory.Config
	Catalog  catalog.Config
}

// ServerConfig contains HTTP server settings. WriteTimeout is 0 by default so
// long chat streams are not cut off.
type ServerConfig struct {
	Port         int `env:"SERVER_PORT"          envDefault:"8080"`
	ReadTimeout  int `env:"SERVER_READ_TIMEOUT"  envDefault:"30"`
	WriteTimeout int `env:"SERVER_WRITE_TIMEOUT" envDefault:"0"`
}

// CORSConfig contains CORS policy settings.
type CORSConfig struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS"   envSeparator:"," envDefault:"*"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS"   envSeparator:"," envDefault:"GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS"   envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS"                  envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE"                            envDefault:"86400"`
}

// StatsConfig contains usage accumulator settings.
type StatsConfig struct {
	Capacity int `env:"STATS_CAPACITY" envDefault:"50"`
}

// RedisConfig configures the optional stats history mirror. An empty Addr
// disables it.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB"        envDefault:"0"`
	StatsKey string `env:"REDIS_STATS_KEY" envDefault:"venice:stats"`
}

// Enabled reports whether a Redis address was configured.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// DepConfig is used for dependency injection with dig.
type DepConfig struct {
	dig.Out
	Server   *ServerConfig
	CORS     *CORSConfig
	Log      *observability.LogConfig
	Venice   *venice.Config
	Stats    *StatsConfig
	Redis    *RedisConfig
	Advisory *advisory.Config
	Catalog  *catalog.Config
}

// Load loads environment files and parses configuration.
func Load() *Config {
	for _, file := range []string{".env"} {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		panic(err)
	}

	return &cfg
}

// ParseDependenciesConfig returns pointers to sub-configs for dependency injection.
func ParseDependenciesConfig(cfg *Config) DepConfig {
	return DepConfig{
		dig.Out{},
		&cfg.Server,
		&cfg.CORS,
		&cfg.Log,
		&cfg.Venice,
		&cfg.Stats,
		&cfg.Redis,
		&cfg.Advisory,
		&cfg.Catalog,
	}
}
