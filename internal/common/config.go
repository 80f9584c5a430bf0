// Package common provides shared utilities for indexnode
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for the job-processing platform.
type Config struct {
	Environment string         `toml:"environment"`
	Server      ServerConfig   `toml:"server"`
	Database    DatabaseConfig `toml:"database"`
	Cache       CacheConfig    `toml:"cache"`
	Chain       ChainConfig    `toml:"chain"`
	Clients     ClientsConfig  `toml:"clients"`
	Worker      WorkerConfig   `toml:"worker"`
	Logging     LoggingConfig  `toml:"logging"`
	Auth        AuthConfig     `toml:"auth"`
}

// ServerConfig holds the thin HTTP adapter's listen configuration.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// DatabaseConfig holds the durable (SQL) job queue connection configuration.
type DatabaseConfig struct {
	URL             string `toml:"url"` // DATABASE_URL
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	AcquireTimeout  string `toml:"acquire_timeout"`
	ConnMaxLifetime string `toml:"conn_max_lifetime"`
}

// GetAcquireTimeout parses the pool-acquire deadline (spec: 3s).
func (c *DatabaseConfig) GetAcquireTimeout() time.Duration {
	d, err := time.ParseDuration(c.AcquireTimeout)
	if err != nil {
		return 3 * time.Second
	}
	return d
}

// GetConnMaxLifetime parses the connection max lifetime.
func (c *DatabaseConfig) GetConnMaxLifetime() time.Duration {
	d, err := time.ParseDuration(c.ConnMaxLifetime)
	if err != nil {
		return 30 * time.Minute
	}
	return d
}

// CacheConfig holds the distributed (Redis) queue connection configuration.
type CacheConfig struct {
	URL string `toml:"url"` // REDIS_URL
}

// ChainConfig holds EVM chain RPC and contract configuration.
type ChainConfig struct {
	RPCURL                string `toml:"rpc_url"` // ETHEREUM_RPC_URL
	CreditContractAddress string `toml:"credit_contract_address"`
	CreditPrivateKey      string `toml:"-"` // CREDIT_PRIVATE_KEY (env only)
	MarketplaceAddress    string `toml:"marketplace_contract_address"`
	TimestampRegistryAddr string `toml:"timestamp_registry_address"`
	ChainID               int64  `toml:"chain_id"`
	TxConfirmationTimeout string `toml:"tx_confirmation_timeout"`
}

// GetTxConfirmationTimeout parses the receipt-wait deadline.
func (c *ChainConfig) GetTxConfirmationTimeout() time.Duration {
	d, err := time.ParseDuration(c.TxConfirmationTimeout)
	if err != nil {
		return 2 * time.Minute
	}
	return d
}

// ClientsConfig holds leaf-client configuration.
type ClientsConfig struct {
	CAS         CASConfig         `toml:"cas"`
	LLM         LLMConfig         `toml:"llm"`
	HTTPCrawler HTTPCrawlerConfig `toml:"http_crawler"`
}

// CASConfig configures the content-addressed store client.
type CASConfig struct {
	APIURL    string `toml:"api_url"` // IPFS_API_URL
	PinataJWT string `toml:"-"`       // PINATA_JWT (env only, optional)
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses the CAS HTTP timeout.
func (c *CASConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// LLMConfig configures the LLM extractor client.
type LLMConfig struct {
	APIURL    string `toml:"api_url"`
	APIKey    string `toml:"-"` // ANTHROPIC_API_KEY (env only)
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses the LLM call deadline (spec: 60s).
func (c *LLMConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// HTTPCrawlerConfig configures the HttpCrawl leaf client.
type HTTPCrawlerConfig struct {
	UserAgent    string `toml:"user_agent"`
	Timeout      string `toml:"timeout"`
	MaxRedirects int    `toml:"max_redirects"`
}

// GetTimeout parses the crawl fetch deadline (spec: 15s).
func (c *HTTPCrawlerConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// WorkerConfig holds worker-runtime configuration.
type WorkerConfig struct {
	WorkerID          string `toml:"worker_id"`
	QueueBackend      string `toml:"queue_backend"` // "sql" | "cache"
	PollInterval      string `toml:"poll_interval"`
	MaxConcurrentJobs int    `toml:"max_concurrent_jobs"`
	MaxRetries        int    `toml:"max_retries"`
	HeartbeatInterval string `toml:"heartbeat_interval"`
}

// GetPollInterval parses the dequeue poll cadence.
func (c *WorkerConfig) GetPollInterval() time.Duration {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// GetHeartbeatInterval parses the heartbeat cadence (spec: <=30s).
func (c *WorkerConfig) GetHeartbeatInterval() time.Duration {
	d, err := time.ParseDuration(c.HeartbeatInterval)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetMaxConcurrentJobs returns the configured concurrency bound (reference: 10).
func (c *WorkerConfig) GetMaxConcurrentJobs() int {
	if c.MaxConcurrentJobs <= 0 {
		return 10
	}
	return c.MaxConcurrentJobs
}

// GetMaxRetries returns the configured max-retries (reference: 3).
func (c *WorkerConfig) GetMaxRetries() int {
	if c.MaxRetries <= 0 {
		return 3
	}
	return c.MaxRetries
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string   `toml:"level" mapstructure:"level"`
	Format     string   `toml:"format" mapstructure:"format"`
	Outputs    []string `toml:"outputs" mapstructure:"outputs"`
	FilePath   string   `toml:"file_path" mapstructure:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int      `toml:"max_backups" mapstructure:"max_backups"`
}

// AuthConfig holds bearer-JWT verification configuration for the thin HTTP
// adapter. Token issuance is out of scope here; only verification lives here.
type AuthConfig struct {
	JWTSecret   string `toml:"jwt_secret"`
	TokenExpiry string `toml:"token_expiry"` // duration string, default "24h"
}

// GetTokenExpiry parses and returns the token expiry duration.
func (c *AuthConfig) GetTokenExpiry() time.Duration {
	d, err := time.ParseDuration(c.TokenExpiry)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			AcquireTimeout:  "3s",
			ConnMaxLifetime: "30m",
		},
		Chain: ChainConfig{
			ChainID:               1,
			TxConfirmationTimeout: "2m",
		},
		Clients: ClientsConfig{
			CAS: CASConfig{Timeout: "30s"},
			LLM: LLMConfig{
				Model:     "claude-sonnet",
				MaxTokens: 1024,
				Timeout:   "60s",
			},
			HTTPCrawler: HTTPCrawlerConfig{
				UserAgent:    "indexnode-crawler/1.0",
				Timeout:      "15s",
				MaxRedirects: 5,
			},
		},
		Worker: WorkerConfig{
			QueueBackend:      "sql",
			PollInterval:      "5s",
			MaxConcurrentJobs: 10,
			MaxRetries:        3,
			HeartbeatInterval: "30s",
		},
		Auth: AuthConfig{
			JWTSecret:   "dev-jwt-secret-change-in-production",
			TokenExpiry: "24h",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Outputs:    []string{"console", "file"},
			FilePath:   "./logs/indexnode.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config, per
// the env-var names the core configuration specifies.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("INDEXNODE_ENV"); env != "" {
		config.Environment = env
	}
	if host := os.Getenv("INDEXNODE_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if level := os.Getenv("RUST_LOG"); level != "" {
		config.Logging.Level = level
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		config.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		config.Cache.URL = v
	}
	if v := os.Getenv("ETHEREUM_RPC_URL"); v != "" {
		config.Chain.RPCURL = v
	}
	if v := os.Getenv("CREDIT_CONTRACT_ADDRESS"); v != "" {
		config.Chain.CreditContractAddress = v
	}
	if v := os.Getenv("CREDIT_PRIVATE_KEY"); v != "" {
		config.Chain.CreditPrivateKey = v
	}
	if v := os.Getenv("MARKETPLACE_CONTRACT_ADDRESS"); v != "" {
		config.Chain.MarketplaceAddress = v
	}
	if v := os.Getenv("TIMESTAMP_REGISTRY_ADDRESS"); v != "" {
		config.Chain.TimestampRegistryAddr = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		config.Clients.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_API_URL"); v != "" {
		config.Clients.LLM.APIURL = v
	}
	if v := os.Getenv("IPFS_API_URL"); v != "" {
		config.Clients.CAS.APIURL = v
	}
	if v := os.Getenv("PINATA_JWT"); v != "" {
		config.Clients.CAS.PinataJWT = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}
	if v := os.Getenv("INDEXNODE_TOKEN_EXPIRY"); v != "" {
		config.Auth.TokenExpiry = v
	}
	if v := os.Getenv("WORKER_ID"); v != "" {
		config.Worker.WorkerID = v
	}
	if v := os.Getenv("WORKER_QUEUE_BACKEND"); v != "" {
		config.Worker.QueueBackend = v
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
