// Package config loads process configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"mystore/internal/domain/sales"
)

// Config is shared by every binary; each one reads what it needs.
type Config struct {
	AppEnv   string
	LogLevel string
	Port     string

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// DBStatsInterval is how often the server logs pool stats; 0 disables it.
	DBStatsInterval time.Duration

	JWTSecret          string
	CORSAllowedOrigins []string

	IdempotencyEnabled bool
	IdempotencyTTL     time.Duration

	Sales sales.Options

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
}

// Development reports whether APP_ENV is development.
func (c Config) Development() bool { return c.AppEnv == "development" }

// Load reads .env (if present) and then the environment. Variables already
// set in the environment take precedence over .env.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an environment lookup function.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	e := env{lookup: lookup}

	cfg := Config{
		AppEnv:   e.str("APP_ENV", "development"),
		LogLevel: e.str("LOG_LEVEL", "info"),
		Port:     e.str("APP_PORT", "8080"),

		DatabaseURL: e.str("DATABASE_URL", ""),
		DBMaxConns:  int32(e.integer("DB_MAX_CONNS", 20)),
		DBMinConns:  int32(e.integer("DB_MIN_CONNS", 2)),

		DBStatsInterval: e.duration("DB_STATS_INTERVAL", 5*time.Minute),

		JWTSecret:          e.str("JWT_SECRET", ""),
		CORSAllowedOrigins: e.list("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		IdempotencyEnabled: e.boolean("IDEMPOTENCY_ENABLED", true),
		IdempotencyTTL:     e.duration("IDEMPOTENCY_TTL", 24*time.Hour),

		OutboxPollInterval: e.duration("OUTBOX_POLL_INTERVAL", 5*time.Second),
		OutboxBatchSize:    e.integer("OUTBOX_BATCH_SIZE", 100),
	}

	policy, err := sales.ParseReversalPolicy(e.str("SALES_REVERSAL_POLICY", ""))
	if err != nil {
		e.fail("SALES_REVERSAL_POLICY", err)
	}
	cfg.Sales = sales.Options{
		Reversal:              policy,
		LenientItems:          e.boolean("SALES_LENIENT_ITEMS", false),
		PurgeKeepsDisclosures: e.boolean("SALES_PURGE_KEEP_DISCLOSURES", false),
	}

	if e.err != nil {
		return Config{}, e.err
	}
	return cfg, nil
}

// Validate checks the settings a server process cannot run without.
func (c Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.JWTSecret == "" && !c.Development() {
		errs = append(errs, errors.New("JWT_SECRET is required outside development"))
	}
	if c.DBMinConns > c.DBMaxConns {
		errs = append(errs, fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns))
	}
	if c.OutboxBatchSize <= 0 {
		errs = append(errs, errors.New("OUTBOX_BATCH_SIZE must be positive"))
	}
	if _, err := sales.ParseReversalPolicy(string(c.Sales.Reversal)); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

type env struct {
	lookup func(string) (string, bool)
	err    error
}

func (e *env) fail(key string, err error) {
	e.err = errors.Join(e.err, fmt.Errorf("%s: %w", key, err))
}

func (e *env) str(key, def string) string {
	if v, ok := e.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (e *env) integer(key string, def int) int {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return n
}

func (e *env) boolean(key string, def bool) bool {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return b
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return d
}

func (e *env) list(key string, def []string) []string {
	v := e.str(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
