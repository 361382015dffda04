package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	DAS         DASConfig         `yaml:"das"`
	Chain       ChainConfig       `yaml:"chain"`
	Cache       CacheConfig       `yaml:"cache"`
	Redis       RedisConfig       `yaml:"redis"`
	Postgres    PostgresConfig    `yaml:"postgres"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Leaderboard LeaderboardConfig `yaml:"leaderboard"`
	Refresh     RefreshConfig     `yaml:"refresh"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// DASConfig holds the indexing-service connection. An empty APIKey means
// the service is unconfigured: lookups degrade to empty results rather
// than failing hard.
type DASConfig struct {
	BaseURL    string        `yaml:"base_url"`
	DevnetURL  string        `yaml:"devnet_url"`
	APIKey     string        `yaml:"api_key"`
	Network    string        `yaml:"network"`
	Timeout    time.Duration `yaml:"timeout"`
	UseFixture bool          `yaml:"use_fixture"`
}

// Configured reports whether the indexing service can be called at all.
func (c *DASConfig) Configured() bool {
	return c.APIKey != ""
}

// Endpoint returns the network-appropriate base URL.
func (c *DASConfig) Endpoint() string {
	if c.Network == "devnet" && c.DevnetURL != "" {
		return c.DevnetURL
	}
	return c.BaseURL
}

// ChainConfig holds the node RPC endpoint and the XP token identity. An
// empty XPMint degrades the balance reader and leaderboard to zero/empty.
type ChainConfig struct {
	RPCURL      string        `yaml:"rpc_url"`
	XPMint      string        `yaml:"xp_mint"`
	Decimals    int           `yaml:"decimals"`
	ExplorerURL string        `yaml:"explorer_url"`
	Timeout     time.Duration `yaml:"timeout"`
}

// CacheConfig holds the read-through cache TTLs per call site.
type CacheConfig struct {
	Backend       string        `yaml:"backend"` // "memory" or "redis"
	CredentialTTL time.Duration `yaml:"credential_ttl"`
	SnapshotTTL   time.Duration `yaml:"snapshot_ttl"`
	WeeklyTTL     time.Duration `yaml:"weekly_ttl"`
	MonthlyTTL    time.Duration `yaml:"monthly_ttl"`
	AllTimeTTL    time.Duration `yaml:"all_time_ttl"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxConnections  int           `yaml:"max_connections"`
	MinConnections  int           `yaml:"min_connections"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
}

// ConnectionString returns the PostgreSQL connection string
func (c *PostgresConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslMode,
	)
}

// KafkaConfig holds the invalidation-feed consumer configuration.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
	Enabled bool     `yaml:"enabled"`
}

// LeaderboardConfig holds scan and paging behavior. MaxAccounts caps the
// holder scan; PageSize is the per-request limit; FollowCursor enables
// cursor-following past the first page (off by default to keep the
// legacy single-page behavior).
type LeaderboardConfig struct {
	PageSize     int  `yaml:"page_size"`
	MaxAccounts  int  `yaml:"max_accounts"`
	FollowCursor bool `yaml:"follow_cursor"`
}

// RefreshConfig holds the background leaderboard refresh worker settings.
// Retention bounds how long persisted ranking snapshots are kept.
type RefreshConfig struct {
	Interval  time.Duration `yaml:"interval"`
	Retention time.Duration `yaml:"retention"`
	Enabled   bool          `yaml:"enabled"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply defaults
	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 5 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 120 * time.Second
	}

	// DAS defaults
	if c.DAS.BaseURL == "" {
		c.DAS.BaseURL = "https://mainnet.helius-rpc.com"
	}
	if c.DAS.DevnetURL == "" {
		c.DAS.DevnetURL = "https://devnet.helius-rpc.com"
	}
	if c.DAS.Network == "" {
		c.DAS.Network = "mainnet"
	}
	if c.DAS.Timeout == 0 {
		c.DAS.Timeout = 10 * time.Second
	}

	// Chain defaults
	if c.Chain.RPCURL == "" {
		c.Chain.RPCURL = "https://api.mainnet-beta.solana.com"
	}
	if c.Chain.Decimals == 0 {
		c.Chain.Decimals = 9
	}
	if c.Chain.ExplorerURL == "" {
		c.Chain.ExplorerURL = "https://explorer.solana.com"
	}
	if c.Chain.Timeout == 0 {
		c.Chain.Timeout = 10 * time.Second
	}

	// Cache defaults: per-call-site TTLs the frontend was tuned against.
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.CredentialTTL == 0 {
		c.Cache.CredentialTTL = 45 * time.Second
	}
	if c.Cache.SnapshotTTL == 0 {
		c.Cache.SnapshotTTL = 60 * time.Second
	}
	if c.Cache.WeeklyTTL == 0 {
		c.Cache.WeeklyTTL = 60 * time.Second
	}
	if c.Cache.MonthlyTTL == 0 {
		c.Cache.MonthlyTTL = 120 * time.Second
	}
	if c.Cache.AllTimeTTL == 0 {
		c.Cache.AllTimeTTL = 300 * time.Second
	}

	// Redis defaults
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 100
	}
	if c.Redis.MinIdleConns == 0 {
		c.Redis.MinIdleConns = 10
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = 5 * time.Second
	}
	if c.Redis.ReadTimeout == 0 {
		c.Redis.ReadTimeout = 3 * time.Second
	}
	if c.Redis.WriteTimeout == 0 {
		c.Redis.WriteTimeout = 3 * time.Second
	}

	// PostgreSQL defaults
	if c.Postgres.Host == "" {
		c.Postgres.Host = "localhost"
	}
	if c.Postgres.Port == 0 {
		c.Postgres.Port = 5432
	}
	if c.Postgres.MaxConnections == 0 {
		c.Postgres.MaxConnections = 50
	}
	if c.Postgres.MinConnections == 0 {
		c.Postgres.MinConnections = 5
	}
	if c.Postgres.MaxConnLifetime == 0 {
		c.Postgres.MaxConnLifetime = 1 * time.Hour
	}
	if c.Postgres.MaxConnIdleTime == 0 {
		c.Postgres.MaxConnIdleTime = 30 * time.Minute
	}

	// Kafka defaults
	if len(c.Kafka.Brokers) == 0 {
		c.Kafka.Brokers = []string{"localhost:9092"}
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "indexer-events"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "xpboard-consumer"
	}

	// Leaderboard defaults keep the legacy 1000-account single page.
	if c.Leaderboard.PageSize == 0 {
		c.Leaderboard.PageSize = 1000
	}
	if c.Leaderboard.MaxAccounts == 0 {
		c.Leaderboard.MaxAccounts = 1000
	}

	// Refresh defaults
	if c.Refresh.Interval == 0 {
		c.Refresh.Interval = 60 * time.Second
	}
	if c.Refresh.Retention == 0 {
		c.Refresh.Retention = 7 * 24 * time.Hour
	}
}

// DefaultConfig returns a configuration with all defaults
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}
