package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/wordvault/internal/logger"
)

const (
	defaultListenAddr   = "localhost:8000"
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction
	defaultClientID     = "wordvault-app"

	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
	defaultTokenCacheTTL   = 20 * time.Minute
	defaultSessionCacheTTL = 10 * time.Minute
	defaultSweepInterval   = 3 * time.Minute
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the wordvault service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Redis address for the token accelerator caches
	RedisAddr string

	// Secret key
	// Some internal parts (like signing JWT tokens) uses symmetric encryption, so this key is used for that purpose
	SecretKey string

	// Client identifier stamped into minted tokens
	ClientID string

	// Client identifiers the request gate accepts
	// If not set the ClientID itself is the whole allow list
	AllowedClients []string

	// Token lifetimes
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Accelerator cache TTLs, kept shorter than the refresh token lifetime
	TokenCacheTTL   time.Duration
	SessionCacheTTL time.Duration

	// How often stale refresh token rows are purged
	SweepInterval time.Duration

	// Environment
	Environment string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:        defaultLoggingLevel,
		ListenAddr:      defaultListenAddr,
		ClientID:        defaultClientID,
		AccessTokenTTL:  defaultAccessTokenTTL,
		RefreshTokenTTL: defaultRefreshTokenTTL,
		TokenCacheTTL:   defaultTokenCacheTTL,
		SessionCacheTTL: defaultSessionCacheTTL,
		SweepInterval:   defaultSweepInterval,
		Environment:     defaultEnvironment,
	}
}

// Clients the request gate should accept
func (c *Config) Clients() []string {
	if len(c.AllowedClients) != 0 {
		return c.AllowedClients
	}
	return []string{c.ClientID}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}

	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			parsed, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration %q: %w", value, err)
			}
			*o = parsed
			return nil
		}
	}

	setStrings := func(o *[]string) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			*o = parts
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":       setString(&c.ListenAddr),
		"DATABASE_URI":      setString(&c.DatabaseDSN),
		"REDIS_ADDRESS":     setString(&c.RedisAddr),
		"SECRET_KEY":        setString(&c.SecretKey),
		"LOG_LEVEL":         setString(&c.LogLevel),
		"CLIENT_ID":         setString(&c.ClientID),
		"ALLOWED_CLIENTS":   setStrings(&c.AllowedClients),
		"ACCESS_TOKEN_TTL":  setDuration(&c.AccessTokenTTL),
		"REFRESH_TOKEN_TTL": setDuration(&c.RefreshTokenTTL),
		"TOKEN_CACHE_TTL":   setDuration(&c.TokenCacheTTL),
		"SESSION_CACHE_TTL": setDuration(&c.SessionCacheTTL),
		"SWEEP_INTERVAL":    setDuration(&c.SweepInterval),
		"ENVIRONMENT":       setString(&c.Environment),
	}

	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			return fmt.Errorf("env %s: %w", key, err)
		}
	}

	return nil
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("wordvault", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.RedisAddr, "redis", "r", c.RedisAddr, "Redis address for token caches")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.ClientID, "client-id", "c", c.ClientID, "Client identifier minted into tokens")
	fs.StringSliceVar(&c.AllowedClients, "allowed-clients", c.AllowedClients, "Client identifiers the request gate accepts")
	fs.DurationVar(&c.AccessTokenTTL, "access-ttl", c.AccessTokenTTL, "Access token lifetime")
	fs.DurationVar(&c.RefreshTokenTTL, "refresh-ttl", c.RefreshTokenTTL, "Refresh token lifetime")
	fs.DurationVar(&c.TokenCacheTTL, "token-cache-ttl", c.TokenCacheTTL, "Token cache entry lifetime")
	fs.DurationVar(&c.SessionCacheTTL, "session-cache-ttl", c.SessionCacheTTL, "Session validity cache entry lifetime")
	fs.DurationVar(&c.SweepInterval, "sweep-interval", c.SweepInterval, "Interval between stale token sweeps")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")

	return fs.Parse(args)
}
