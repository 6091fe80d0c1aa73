// Package config loads settings for the Cookie CLI and reference backend from
// the environment. A .env file in the working directory (or the file named by
// COOKIE_ENV_FILE) is loaded first; variables already set win.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults.
const (
	DefaultAPIURL      = "http://127.0.0.1:8000"
	DefaultHTTPTimeout = 30 * time.Second
	DefaultAddr        = ":8000"
	DefaultDBPath      = "./data/cookie.db"
	DefaultTokenTTL    = 7 * 24 * time.Hour
)

// Client configures the CLI.
type Client struct {
	APIURL      string
	SessionPath string
	HTTPTimeout time.Duration
}

// Server configures the reference backend.
type Server struct {
	Addr      string
	DBPath    string
	JWTSecret string
	TokenTTL  time.Duration
	PublicURL string
	LogJSON   bool
}

// LoadEnv reads the .env file if there is one. A missing file is not an error.
func LoadEnv() error {
	path := getEnv("COOKIE_ENV_FILE", ".env")
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// LoadClient returns the CLI settings.
func LoadClient() (Client, error) {
	timeout, err := getDuration("COOKIE_HTTP_TIMEOUT", DefaultHTTPTimeout)
	if err != nil {
		return Client{}, err
	}
	sessionPath, err := defaultSessionPath()
	if err != nil {
		return Client{}, err
	}
	return Client{
		APIURL:      getEnv("COOKIE_API_URL", DefaultAPIURL),
		SessionPath: getEnv("COOKIE_SESSION_PATH", sessionPath),
		HTTPTimeout: timeout,
	}, nil
}

// LoadServer returns the backend settings. JWT_SECRET is required.
func LoadServer() (Server, error) {
	ttl, err := getDuration("TOKEN_TTL", DefaultTokenTTL)
	if err != nil {
		return Server{}, err
	}
	cfg := Server{
		Addr:      getEnv("COOKIE_ADDR", DefaultAddr),
		DBPath:    getEnv("DB_PATH", DefaultDBPath),
		JWTSecret: os.Getenv("JWT_SECRET"),
		TokenTTL:  ttl,
		LogJSON:   strings.EqualFold(os.Getenv("LOG_FORMAT"), "json"),
	}
	cfg.PublicURL = getEnv("COOKIE_PUBLIC_URL", "http://localhost"+cfg.Addr)
	if cfg.JWTSecret == "" {
		return Server{}, errors.New("JWT_SECRET is not set in environment")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, value)
	}
	return d, nil
}

func defaultSessionPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to find home directory: %w", err)
	}
	return filepath.Join(home, ".cookie", "session.db"), nil
}
