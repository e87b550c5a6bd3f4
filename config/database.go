package config

import "strings"

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"                    envDefault:"localhost"`
	Port     int    `env:"PORT"                    envDefault:"5432"`
	User     string `env:"USER"                    envDefault:"mmk"`
	Password string `env:"PASSWORD"                envDefault:"mmk"`
	Name     string `env:"NAME"                    envDefault:"mmk_bulkval"`
	SSLMode  string `env:"SSL_MODE"                envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the service applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
	MaxOpenConns         int  `env:"MAX_OPEN_CONNS"          envDefault:"25"`
}

// RedisConfig contains Redis configuration. Redis backs the global validate rate
// limit and the job progress cache; with it disabled the limiter is process-local
// and progress is always read from Postgres.
type RedisConfig struct {
	Enabled            bool     `env:"ENABLED"              envDefault:"true"`
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:""`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
}

// Sanitize trims addresses and disables sentinel mode without nodes.
func (r *RedisConfig) Sanitize() {
	r.URI = strings.TrimSpace(r.URI)
	nodes := r.SentinelNodes[:0]
	for _, n := range r.SentinelNodes {
		if n = strings.TrimSpace(n); n != "" {
			nodes = append(nodes, n)
		}
	}
	r.SentinelNodes = nodes
	if r.UseSentinel && len(r.SentinelNodes) == 0 {
		r.UseSentinel = false
	}
	if r.URI == "" && !r.UseSentinel {
		r.Enabled = false
	}
	if r.DB < 0 {
		r.DB = 0
	}
}
