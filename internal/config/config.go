package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port string

	// Relational store configuration
	DBType            string // mysql, postgres, sqlite, sqlserver, etc.
	DBHost            string
	DBPort            string
	DBDatabase        string
	DBUser            string
	DBPassword        string
	DBConnectionLimit int

	// Document store configuration (may point at the same server, but is
	// always a separate pool)
	DocDBDatabase        string
	DocDBUser            string
	DocDBPassword        string
	DocDBConnectionLimit int

	// Authorizer configuration
	AuthzURL      string
	AuthzClientID string

	// Upstream scholarly-paper API configuration
	ScholarAPIURL  string
	ScholarAPIKey  string
	ScholarRPS     float64
	ScholarTimeout int // seconds
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:                 getEnv("PORT", "3000"),
		DBType:               getEnv("DB_TYPE", "postgres"),
		DBHost:               getEnv("DB_HOST", "localhost"),
		DBPort:               getEnv("DB_PORT", "5432"),
		DBDatabase:           getEnv("DB_DATABASE", ""),
		DBUser:               getEnv("DB_USER", ""),
		DBPassword:           getEnv("DB_PASSWORD", ""),
		DBConnectionLimit:    getEnvAsInt("DB_CONNECTION_LIMIT", 5),
		DocDBDatabase:        getEnv("DOCDB_DATABASE", ""),
		DocDBUser:            getEnv("DOCDB_USER", ""),
		DocDBPassword:        getEnv("DOCDB_PASSWORD", ""),
		DocDBConnectionLimit: getEnvAsInt("DOCDB_CONNECTION_LIMIT", 5),
		AuthzURL:             getEnv("AUTHZ_URL", ""),
		AuthzClientID:        getEnv("AUTHZ_CLIENT_ID", ""),
		ScholarAPIURL:        getEnv("SCHOLAR_API_URL", "https://api.semanticscholar.org/graph/v1"),
		ScholarAPIKey:        getEnv("SCHOLAR_API_KEY", ""),
		ScholarRPS:           getEnvAsFloat("SCHOLAR_RPS", 1),
		ScholarTimeout:       getEnvAsInt("SCHOLAR_TIMEOUT", 10),
	}

	// The document store defaults to the relational settings so a single
	// server deployment needs only one set of variables.
	if cfg.DocDBDatabase == "" {
		cfg.DocDBDatabase = cfg.DBDatabase
	}
	if cfg.DocDBUser == "" {
		cfg.DocDBUser = cfg.DBUser
	}
	if cfg.DocDBPassword == "" {
		cfg.DocDBPassword = cfg.DBPassword
	}

	// Validate required fields
	if cfg.DBDatabase == "" {
		return nil, fmt.Errorf("DB_DATABASE is required")
	}
	if cfg.DBUser == "" && cfg.DBType != "sqlite" {
		return nil, fmt.Errorf("DB_USER is required")
	}
	if cfg.AuthzURL == "" {
		return nil, fmt.Errorf("AUTHZ_URL is required")
	}
	if cfg.AuthzClientID == "" {
		return nil, fmt.Errorf("AUTHZ_CLIENT_ID is required")
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat gets an environment variable as a float or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
