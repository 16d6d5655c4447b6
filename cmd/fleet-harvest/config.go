package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the fleet-harvest CLI.
type Config struct {
	// Database
	DBPath string

	// Web API login shared by all devices
	Username string
	Password string

	// Harvesting
	HarvestInterval time.Duration
	Concurrency     int
	Timeout         time.Duration

	// Network (comma-separated CIDRs supported via NETWORK_CIDR env var)
	NetworkCIDRs []string
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		DBPath:          "rigpulse.db",
		Username:        "root",
		Password:        "root",
		HarvestInterval: 60 * time.Second,
		Concurrency:     25,
		Timeout:         10 * time.Second,
	}
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() *Config {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if v := os.Getenv("RIGPULSE_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("MINER_USERNAME"); v != "" {
		cfg.Username = v
	}
	if v := os.Getenv("MINER_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("HARVEST_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HarvestInterval = d
		}
	}
	if v := os.Getenv("HARVEST_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Concurrency = n
		}
	}
	if v := os.Getenv("HARVEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = d
		}
	}
	if v := os.Getenv("NETWORK_CIDR"); v != "" {
		for _, cidr := range strings.Split(v, ",") {
			cidr = strings.TrimSpace(cidr)
			if cidr != "" {
				cfg.NetworkCIDRs = append(cfg.NetworkCIDRs, cidr)
			}
		}
	}

	return cfg
}
