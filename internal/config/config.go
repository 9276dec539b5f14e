package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Port      string
	JWTSecret string
	Database  DatabaseConfig
	Master    MasterConfig
	Station   StationConfig
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// MasterConfig holds the product master bridge (XML-RPC) settings
type MasterConfig struct {
	URL             string
	Database        string
	Username        string
	Password        string
	RefreshInterval int // minutes between name cache refreshes
}

// StationConfig identifies this station within the warehouse
type StationConfig struct {
	Name            string
	Hub             bool // the hub station receives StationRequests
	PollInterval    time.Duration
	DeliveryWeekday time.Weekday // upstream delivery day, gets the 24h intake grace
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	pollSeconds := getEnvInt("POLL_INTERVAL_SECONDS", 5)

	return &Config{
		Port:      getEnv("PORT", "3210"),
		JWTSecret: jwtSecret,
		Database: DatabaseConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "gravistock"),
		},
		Master: MasterConfig{
			URL:             os.Getenv("MASTER_URL"),
			Database:        getEnv("MASTER_DATABASE", "xpertpharm"),
			Username:        getEnv("MASTER_USERNAME", "stock"),
			Password:        os.Getenv("MASTER_PASSWORD"),
			RefreshInterval: getEnvInt("MASTER_REFRESH_MINUTES", 15),
		},
		Station: StationConfig{
			Name:            getEnv("STATION_NAME", hostname()),
			Hub:             getEnv("STATION_HUB", "false") == "true",
			PollInterval:    time.Duration(pollSeconds) * time.Second,
			DeliveryWeekday: parseWeekday(getEnv("DELIVERY_WEEKDAY", "thursday")),
		},
	}, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func hostname() string {
	if name, err := os.Hostname(); err == nil {
		return name
	}
	return "station"
}

func parseWeekday(name string) time.Weekday {
	switch strings.ToLower(name) {
	case "sunday":
		return time.Sunday
	case "monday":
		return time.Monday
	case "tuesday":
		return time.Tuesday
	case "wednesday":
		return time.Wednesday
	case "friday":
		return time.Friday
	case "saturday":
		return time.Saturday
	default:
		return time.Thursday
	}
}
