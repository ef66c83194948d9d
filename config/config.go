package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `env:",prefix=SERVER_"`
	Database  DatabaseConfig  `env:",prefix=DB_"`
	Authority AuthorityConfig `env:",prefix=AUTHORITY_"`
	Worker    WorkerConfig    `env:",prefix=WORKER_"`
	R2        R2Config        `env:",prefix=R2_"`
	Gateway   GatewayConfig   `env:",prefix=GATEWAY_"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        string `env:"PORT,default=8080"`
	MetricsPort string `env:"METRICS_PORT,default=9090"`
	CORSOrigins string `env:"CORS_ORIGINS,default=*"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=5432"`
	User     string `env:"USER,default=postgres"`
	Password string `env:"PASSWORD,default=postgres"`
	Name     string `env:"NAME,default=nft_campaigns"`
	SSLMode  string `env:"SSL_MODE,default=disable"`
}

// AuthorityConfig points at the external minting authority
type AuthorityConfig struct {
	BaseURL string `env:"BASE_URL,required"`
	APIKey  string `env:"API_KEY,required"`
}

// WorkerConfig tunes the background reconciliation loop
type WorkerConfig struct {
	SyncEnabled  bool          `env:"SYNC_ENABLED,default=true"`
	SyncInterval time.Duration `env:"SYNC_INTERVAL,default=5m"`
}

// R2Config holds Cloudflare R2 credentials for image mirroring. Empty
// AccountID disables mirroring.
type R2Config struct {
	AccountID       string `env:"ACCOUNT_ID"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
	Bucket          string `env:"BUCKET,default=campaign-assets"`
	PublicBaseURL   string `env:"PUBLIC_BASE_URL"`
}

// GatewayConfig holds the shared token expected from the API gateway
type GatewayConfig struct {
	ServiceToken string `env:"SERVICE_TOKEN,required"`
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	return &cfg, nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}
