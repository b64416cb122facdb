// Package config loads client settings from the environment and an optional
// .env file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	DefaultAPIURL   = "http://localhost:8080/api/v1"
	DefaultDocsURL  = "https://github.com/naveenspark/gatehouse#readme"
	DefaultTimeout  = 10 * time.Second
	DefaultLogLevel = "warn"
)

// Config is the resolved client configuration.
type Config struct {
	APIURL     string
	APITimeout time.Duration
	DataDir    string
	LogLevel   zerolog.Level
	DocsURL    string
	// Password is only read by headless login/register.
	Password string
}

// Load reads .env files (if present) and then the process environment.
// Variables already set in the environment win over .env entries.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		_ = godotenv.Load()
	} else if err := godotenv.Load(files...); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dataDir := EnvString("GATEHOUSE_DATA_DIR", "")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("config.Load: get home dir: %w", err)
		}
		dataDir = filepath.Join(home, ".gatehouse")
	}

	level, err := zerolog.ParseLevel(strings.ToLower(EnvString("GATEHOUSE_LOG_LEVEL", DefaultLogLevel)))
	if err != nil {
		return nil, fmt.Errorf("config.Load: GATEHOUSE_LOG_LEVEL: %w", err)
	}

	return &Config{
		APIURL:     strings.TrimRight(EnvString("GATEHOUSE_API_URL", DefaultAPIURL), "/"),
		APITimeout: EnvDuration("GATEHOUSE_API_TIMEOUT", DefaultTimeout),
		DataDir:    dataDir,
		LogLevel:   level,
		DocsURL:    EnvString("GATEHOUSE_DOCS_URL", DefaultDocsURL),
		Password:   os.Getenv("GATEHOUSE_PASSWORD"),
	}, nil
}

// LogFile is where the TUI writes its log.
func (c *Config) LogFile() string {
	return filepath.Join(c.DataDir, "gatehouse.log")
}

// EnvString reads a string env var with a default.
func EnvString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

// EnvBool reads a bool env var with a default.
func EnvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// EnvDuration reads a positive duration env var with a default.
func EnvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
