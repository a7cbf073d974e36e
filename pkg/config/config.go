package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/natserract/sfmapper/pkg/salesforce"
	"github.com/natserract/sfmapper/pkg/schema/postgres"
)

type Config struct {
	Salesforce    *salesforce.Config
	Database      *postgres.Config
	ExportWorkers int
}

func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	sf := &salesforce.Config{
		BaseURI:      os.Getenv("SF_BASE_URI"),
		ClientID:     os.Getenv("SF_CLIENT_ID"),
		ClientSecret: os.Getenv("SF_CLIENT_SECRET"),
		APIVersion:   os.Getenv("SF_API_VERSION"),
	}
	if v := os.Getenv("SF_TOKEN_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("SF_TOKEN_TTL must be a duration: %w", err)
		}
		sf.TokenTTL = ttl
	}
	if err := sf.Validate(); err != nil {
		return nil, err
	}

	db, err := postgres.NewConfig()
	if err != nil {
		return nil, err
	}

	workers := 10
	if v := os.Getenv("EXPORT_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("EXPORT_WORKERS must be a positive number")
		}
		workers = n
	}

	return &Config{
		Salesforce:    sf,
		Database:      db,
		ExportWorkers: workers,
	}, nil
}
