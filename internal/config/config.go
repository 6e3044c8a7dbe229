package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName         = "WagerBank"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultMetricsPort     = "9095"
	defaultLogLevel        = "info"
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
	defaultBankLockTTL     = 5 * time.Second
	defaultRoundsTopic     = "wager_rounds"
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName         string
	Env             string
	Port            string
	MetricsPort     string
	LogLevel        string
	DatabaseURL     string
	RedisURL        string
	KafkaBrokers    string
	RoundsTopic     string
	JWTSecret       string
	RefreshSecret   string
	ShutdownPeriod  time.Duration
	IdempotencyTTL  time.Duration
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	BankLockTTL     time.Duration
	FaucetEnabled   bool
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:         getEnv("APP_NAME", defaultAppName),
		Env:             getEnv("APP_ENV", defaultAppEnv),
		Port:            getEnv("PORT", defaultPort),
		MetricsPort:     getEnv("METRICS_PORT", defaultMetricsPort),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		KafkaBrokers:    os.Getenv("KAFKA_BROKERS"),
		RoundsTopic:     getEnv("KAFKA_TOPIC_ROUNDS", defaultRoundsTopic),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		RefreshSecret:   os.Getenv("REFRESH_SECRET"),
		ShutdownPeriod:  defaultShutdownDelay,
		IdempotencyTTL:  defaultIdempotencyTTL,
		AccessTokenTTL:  defaultAccessTokenTTL,
		RefreshTokenTTL: defaultRefreshTokenTTL,
		BankLockTTL:     defaultBankLockTTL,
	}

	var err error
	if cfg.ShutdownPeriod, err = durationFromEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationFromEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.AccessTokenTTL, err = durationFromEnv("", "ACCESS_TOKEN_TTL", cfg.AccessTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTokenTTL, err = durationFromEnv("", "REFRESH_TOKEN_TTL", cfg.RefreshTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.BankLockTTL, err = durationFromEnv("", "BANK_LOCK_TTL", cfg.BankLockTTL); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("FAUCET_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid FAUCET_ENABLED: %w", err)
		}
		cfg.FaucetEnabled = enabled
	} else {
		cfg.FaucetEnabled = cfg.IsDev()
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set")
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set")
		}
		if cfg.JWTSecret == "" || cfg.RefreshSecret == "" {
			return Config{}, fmt.Errorf("JWT_SECRET and REFRESH_SECRET must be set")
		}
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-access-secret"
	}
	if cfg.RefreshSecret == "" {
		cfg.RefreshSecret = "dev-refresh-secret"
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the environment allows in-memory backends.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.Env) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func durationFromEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if secondsKey != "" {
		if v := os.Getenv(secondsKey); v != "" {
			seconds, err := strconv.Atoi(v)
			if err != nil {
				return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
			}
			return time.Duration(seconds) * time.Second, nil
		}
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
