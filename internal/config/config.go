// Package config reads the service configuration from the environment
// through small getEnv* helpers with per-variable defaults.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServerPort            int
	DatabaseURL           string
	CoingeckoURL          string
	DBPoolSize            int
	RemoteWeb3URL         string
	WatchTimeInterval     time.Duration
	TickPriceTimeInterval time.Duration
	WorkersNumber         int
	ContractAddress       string // factory
	LaunchpadAddress      string
	SyncStartBlock        uint64
	StatStartDate         string // Y-M-D
}

func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:            getEnvInt("SERVER_PORT", 8088),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		CoingeckoURL:          getEnvDefault("COINGECKO_URL", "https://api.coingecko.com"),
		DBPoolSize:            getEnvInt("DB_POOL_SIZE", 1),
		RemoteWeb3URL:         os.Getenv("REMOTE_WEB3_URL"),
		WatchTimeInterval:     time.Duration(getEnvInt("WATCH_TIME_INTERVAL", 60)) * time.Second,
		TickPriceTimeInterval: time.Duration(getEnvInt("TICK_PRICE_TIME_INTERVAL", 600)) * time.Second,
		WorkersNumber:         getEnvInt("WORKERS_NUMBER", 1),
		ContractAddress:       os.Getenv("CONTRACT_ADDRESS"),
		LaunchpadAddress:      os.Getenv("LAUNCHPAD_ADDRESS"),
		SyncStartBlock:        getEnvUint("SYNC_START_BLOCK", 0),
		StatStartDate:         getEnvDefault("STAT_START_DATE", time.Now().UTC().Format("2006-01-02")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RemoteWeb3URL == "" {
		return nil, fmt.Errorf("REMOTE_WEB3_URL is required")
	}
	if cfg.ContractAddress == "" {
		return nil, fmt.Errorf("CONTRACT_ADDRESS is required")
	}

	return cfg, nil
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvUint(key string, def uint64) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

// RedactDatabaseURL strips credentials from a postgres URL before it is
// logged at startup.
func RedactDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable>"
	}
	if u.User != nil {
		u.User = url.User(u.User.Username())
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), "****")
		}
	}
	return u.String()
}

// EnsureHexAddress lower-cases and 0x-prefixes an address for consistent
// comparisons and storage.
func EnsureHexAddress(addr string) string {
	a := strings.ToLower(strings.TrimSpace(addr))
	if !strings.HasPrefix(a, "0x") {
		a = "0x" + a
	}
	return a
}
