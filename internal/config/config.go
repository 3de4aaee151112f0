package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	HTTPTimeout     time.Duration
	LogLevel        slog.Level
	DatabaseURL     string
	RedisURL        string
	DataAPIURL      string
	BrainConfigPath string
	RefreshOrgs     []string
	RefreshInterval time.Duration
}

// FromEnv reads process settings. A .env file in the working directory is loaded
// first when present; real environment variables win over it.
func FromEnv() Config {
	_ = godotenv.Load()

	to := 15 * time.Second
	if v := os.Getenv("HTTP_TIMEOUT_SECONDS"); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil {
			to = d
		}
	}
	lvl := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		lvl = slog.LevelDebug
	}
	return Config{
		Port:            envOr("PORT", "8080"),
		HTTPTimeout:     to,
		LogLevel:        lvl,
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		DataAPIURL:      os.Getenv("DATA_API_URL"),
		BrainConfigPath: os.Getenv("BRAIN_CONFIG"),
		RefreshOrgs:     csv(os.Getenv("REFRESH_ORGS")),
		RefreshInterval: time.Duration(atoiOr(os.Getenv("REFRESH_INTERVAL_SECONDS"), 900)) * time.Second,
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func atoiOr(s string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func csv(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
