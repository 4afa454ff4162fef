// Package config loads server settings from flags and AUCTION_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// unsetNodeID is the node-id default. A standalone in-memory server resolves
// it to node 0; any instance sharing a database or Redis must be given its
// own ID, because equal node IDs issue equal invoice numbers.
const unsetNodeID = -1

// Config is the server configuration.
type Config struct {
	Port             string
	DatabaseURL      string
	RedisURL         string
	NATSURL          string
	JWTSecret        string
	CacheTTL         time.Duration
	NodeID           int64
	BatchConcurrency int
	Migrate          bool
	ShutdownTimeout  time.Duration
}

// Load parses args (without the program name) and overlays the environment.
// Flags win over environment variables, which win over defaults.
func Load(args []string) (Config, error) {
	fs := pflag.NewFlagSet("auction-settlement", pflag.ContinueOnError)
	fs.String("port", "8080", "HTTP listen port")
	fs.String("database-url", "", "PostgreSQL URL; empty uses the in-memory store")
	fs.String("redis-url", "", "Redis URL for the read cache and distributed locks")
	fs.String("nats-url", "", "NATS URL for domain events")
	fs.String("jwt-secret", "", "HS256 secret shared with the session service")
	fs.Duration("cache-ttl", 30*time.Second, "TTL of cached auction and item reads")
	fs.Int64("node-id", unsetNodeID, "snowflake node ID of this instance (0-1023), unique per instance; required with database-url or redis-url")
	fs.Int("batch-concurrency", 4, "parallel sellers in batch settlement")
	fs.Bool("migrate", true, "apply schema migrations on startup")
	fs.Duration("shutdown-timeout", 10*time.Second, "graceful shutdown deadline")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return Config{}, err
	}
	v.SetEnvPrefix("AUCTION")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cfg := Config{
		Port:             v.GetString("port"),
		DatabaseURL:      v.GetString("database-url"),
		RedisURL:         v.GetString("redis-url"),
		NATSURL:          v.GetString("nats-url"),
		JWTSecret:        v.GetString("jwt-secret"),
		CacheTTL:         v.GetDuration("cache-ttl"),
		NodeID:           v.GetInt64("node-id"),
		BatchConcurrency: v.GetInt("batch-concurrency"),
		Migrate:          v.GetBool("migrate"),
		ShutdownTimeout:  v.GetDuration("shutdown-timeout"),
	}
	if cfg.NodeID == unsetNodeID && !cfg.shared() {
		cfg.NodeID = 0
	}
	return cfg, cfg.Validate()
}

// shared reports whether this instance shares state with other instances.
func (c Config) shared() bool {
	return c.DatabaseURL != "" || c.RedisURL != ""
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt-secret is required"))
	}
	if c.NodeID == unsetNodeID && c.shared() {
		errs = append(errs, errors.New("node-id is required when database-url or redis-url is set"))
	} else if c.NodeID < 0 || c.NodeID > 1023 {
		errs = append(errs, fmt.Errorf("node-id %d outside 0-1023", c.NodeID))
	}
	if c.BatchConcurrency < 1 {
		errs = append(errs, fmt.Errorf("batch-concurrency must be positive, got %d", c.BatchConcurrency))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("cache-ttl must be positive, got %s", c.CacheTTL))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
