// Package config содержит логику чтения конфигурации административной панели.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
)

// Config содержит параметры конфигурации сервиса.
type Config struct {
	RunAddress             string        `env:"RUN_ADDRESS"`
	DatabaseURI            string        `env:"DATABASE_URI"`
	MarketplaceAPIURL      string        `env:"MARKETPLACE_API_URL"`
	JWTSecret              string        `env:"JWT_SECRET"`
	DocumentAllowedHosts   []string      `env:"DOCUMENT_ALLOWED_HOSTS" envSeparator:","`
	RateLimit              string        `env:"RATE_LIMIT"`
	DisputeDismissDelay    time.Duration `env:"DISPUTE_DISMISS_DELAY" envDefault:"500ms"`
	ReferralBannerDuration time.Duration `env:"REFERRAL_BANNER_DURATION" envDefault:"2s"`
	LogLevel               zapcore.Level `env:"LOG_LEVEL" envDefault:"info"`
}

// Parse считывает конфигурацию из файла .env, флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envMarketplaceURL := cfg.MarketplaceAPIURL
	envJWTSecret := cfg.JWTSecret
	envAllowedHosts := cfg.DocumentAllowedHosts
	envRateLimit := cfg.RateLimit

	var allowedHosts string

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI for the admin audit trail")
	flag.StringVar(&cfg.MarketplaceAPIURL, "m", "", "marketplace backend API URL")
	flag.StringVar(&cfg.JWTSecret, "s", "", "secret for admin token verification")
	flag.StringVar(&allowedHosts, "h", "", "comma-separated hosts allowed for document downloads")
	flag.StringVar(&cfg.RateLimit, "l", "60-M", "rate limit for mutating requests")

	flag.Parse()

	cfg.DocumentAllowedHosts = splitHosts(allowedHosts)

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envMarketplaceURL != "" {
		cfg.MarketplaceAPIURL = envMarketplaceURL
	}
	if envJWTSecret != "" {
		cfg.JWTSecret = envJWTSecret
	}
	if len(envAllowedHosts) > 0 {
		cfg.DocumentAllowedHosts = splitHosts(strings.Join(envAllowedHosts, ","))
	}
	if envRateLimit != "" {
		cfg.RateLimit = envRateLimit
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.RateLimit == "" {
		cfg.RateLimit = "60-M"
	}

	return cfg, nil
}

func splitHosts(raw string) []string {
	var hosts []string
	for _, h := range strings.Split(raw, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

var (
	// ErrNoMarketplaceURL возвращается, если не задан адрес бэкенда маркетплейса.
	ErrNoMarketplaceURL = errors.New("marketplace API URL is required")
	// ErrNoJWTSecret возвращается, если не задан секрет для проверки токенов администраторов.
	ErrNoJWTSecret = errors.New("JWT secret is required")
)

// Validate проверяет обязательные параметры.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.MarketplaceAPIURL) == "" {
		return ErrNoMarketplaceURL
	}
	if c.JWTSecret == "" {
		return ErrNoJWTSecret
	}
	return nil
}
