package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds runtime configuration resolved from environment variables.
// The deployment pipeline injects these into every function; a local .env
// file substitutes for them during development.
type Config struct {
	Environment string // DEV, TEST, PROD or LOCAL
	AWSRegion   string
	LogLevel    string

	// Logical secret names. Each maps to an environment override or to a
	// <NAME>_ARN resource identifier for the managed secret store.
	AppSecretName    string
	MasterSecretName string

	// Application database name, used when the connection secret does not
	// carry its own dbname entry.
	AppDBName string
}

// Load reads configuration from the environment, loading a .env file first
// when one is present.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Printf("[INFO] .env file loaded")
	}

	return &Config{
		Environment:      strings.ToUpper(getEnv("ENVIRONMENT", "DEV")),
		AWSRegion:        os.Getenv("AWS_REGION"),
		LogLevel:         getEnv("LOG_LEVEL", "INFO"),
		AppSecretName:    getEnv("APP_SECRET_NAME", "db-app-secret"),
		MasterSecretName: getEnv("MASTER_SECRET_NAME", "db-master-secret"),
		AppDBName:        getEnv("APP_DB_NAME", "example"),
	}
}

// IsDev reports whether the process runs against a development deployment.
func (c *Config) IsDev() bool {
	return c.Environment == "DEV" || c.IsLocal()
}

// IsLocal reports whether the process runs outside any deployment, e.g. on a
// developer machine.
func (c *Config) IsLocal() bool {
	return c.Environment == "LOCAL"
}

// GroupPrefix returns the environment-specific prefix carried by
// identity-provider group names, including the trailing underscore.
func (c *Config) GroupPrefix() string {
	if c.Environment == "" {
		return ""
	}
	return c.Environment + "_"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
