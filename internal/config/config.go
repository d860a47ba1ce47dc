package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port        int           `envconfig:"PORT" default:"8080"`
	LogLevel    string        `envconfig:"LOG_LEVEL" default:"info"`
	DatabaseURL string        `envconfig:"DATABASE_URL" required:"true"`
	Version     string        `envconfig:"VERSION" default:"dev"`
	BcryptCost  int           `envconfig:"BCRYPT_COST" default:"12"`
	SessionTTL  time.Duration `envconfig:"SESSION_TTL" default:"720h"`

	MinioEndpoint  string `envconfig:"MINIO_ENDPOINT" default:""`
	MinioAccessKey string `envconfig:"MINIO_ACCESS_KEY" default:""`
	MinioSecretKey string `envconfig:"MINIO_SECRET_KEY" default:""`
	MinioBucket    string `envconfig:"MINIO_BUCKET" default:"yourvoice-avatars"`
	MinioUseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`
	MinioPublicURL string `envconfig:"MINIO_PUBLIC_URL" default:""`
}

// Load reads configuration from environment variables into a Config struct.
// A .env file in the working directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive, got %s", cfg.SessionTTL)
	}

	return &cfg, nil
}

// StorageConfigured reports whether the blob store settings are complete
// enough to construct a client. Avatar routes are disabled otherwise.
func (c *Config) StorageConfigured() bool {
	return c.MinioEndpoint != "" && c.MinioAccessKey != "" && c.MinioSecretKey != ""
}
