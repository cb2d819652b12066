package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	LogMode    string
	LogFile    string
	ServerPort string

	APIBaseURL string
	APIKey     string
	WebappID   string
	NodeID     string

	StorageType string
	DataDir     string
	RedisAddr   string
	RedisDB     int

	PollInterval time.Duration
	PollTimeout  time.Duration
}

func checkEnv(envVars []string) error {
	var missingVars []string

	for _, envVar := range envVars {
		if value, exists := os.LookupEnv(envVar); !exists || value == "" {
			missingVars = append(missingVars, envVar)
		}
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("error: this env vars are missing: %v", missingVars)
	}

	return nil
}

func validateEnv() error {
	return checkEnv([]string{
		"LOG_MODE",
		"SERVER_PORT",
		"RUNNINGHUB_API_KEY",
	})
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func LoadConfig(envFile string) (*Config, error) {
	if err := godotenv.Load(envFile); err != nil {
		return nil, fmt.Errorf("load configuration file: %w", err)
	}

	if err := validateEnv(); err != nil {
		return nil, fmt.Errorf("LoadConfig: %w", err)
	}

	return &Config{
		LogMode:      os.Getenv("LOG_MODE"),
		LogFile:      os.Getenv("LOG_FILE"),
		ServerPort:   os.Getenv("SERVER_PORT"),
		APIBaseURL:   getEnv("API_BASE_URL", "https://www.runninghub.cn"),
		APIKey:       os.Getenv("RUNNINGHUB_API_KEY"),
		WebappID:     getEnv("RUNNINGHUB_WEBAPP_ID", "1912088541617422337"),
		NodeID:       getEnv("RUNNINGHUB_NODE_ID", "226"),
		StorageType:  getEnv("STORAGE_TYPE", "file"),
		DataDir:      getEnv("DATA_DIR", "./data"),
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:      getEnvInt("REDIS_DB", 0),
		PollInterval: time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 3)) * time.Second,
		PollTimeout:  time.Duration(getEnvInt("POLL_TIMEOUT_SECONDS", 300)) * time.Second,
	}, nil
}
