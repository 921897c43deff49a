package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Custody  CustodyConfig  `mapstructure:"custody"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Escrow   EscrowConfig   `mapstructure:"escrow"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	PoolSize    int           `mapstructure:"pool_size"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	// ReadTimeout bounds idempotency and rate-limit lookups; both fail open.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

// CustodyConfig configures sealing of escrow signing keys at rest.
type CustodyConfig struct {
	MasterKey string `mapstructure:"master_key"` // 32-byte hex-encoded key
}

// LedgerConfig points at the EVM node and the settlement token.
type LedgerConfig struct {
	RPCURL                string        `mapstructure:"rpc_url"`
	ChainID               int64         `mapstructure:"chain_id"`
	TokenContract         string        `mapstructure:"token_contract"`
	Currency              string        `mapstructure:"currency"`
	ConfirmationAttempts  int           `mapstructure:"confirmation_attempts"`
	ConfirmationBaseDelay time.Duration `mapstructure:"confirmation_base_delay"`
	RequestTimeout        time.Duration `mapstructure:"request_timeout"`
	// OperatorKey signs transferFrom pulls for participant funding. Optional.
	OperatorKey string `mapstructure:"operator_key"`
}

// EscrowConfig holds the orchestration knobs.
type EscrowConfig struct {
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	CacheMaxEntries   int           `mapstructure:"cache_max_entries"`
	RetryAttempts     int           `mapstructure:"retry_attempts"`
	RetryBaseDelay    time.Duration `mapstructure:"retry_base_delay"`
	RetryMultiplier   float64       `mapstructure:"retry_multiplier"`
	OwedTolerance     string        `mapstructure:"owed_tolerance"`
	SyncTolerance     string        `mapstructure:"sync_tolerance"`
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval"`
	ReconcileBatch    int           `mapstructure:"reconcile_batch"`
	FundRefTTL        time.Duration `mapstructure:"fund_ref_ttl"`
	ReservationTTL    time.Duration `mapstructure:"reservation_ttl"`
}

type TracingConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from an optional .env file, a config file and
// environment variables, in increasing order of precedence. Prefix: SPLIT_.
// Nested keys use underscore: SPLIT_DATABASE_HOST, SPLIT_LEDGER_RPC_URL, etc.
func Load(path string) (*Config, error) {
	// .env is a convenience for local runs; a missing file is fine.
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "split_escrow")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "500ms")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "split-escrow")
	v.SetDefault("custody.master_key", "")
	v.SetDefault("ledger.rpc_url", "")
	v.SetDefault("ledger.chain_id", 8453)
	v.SetDefault("ledger.token_contract", "")
	v.SetDefault("ledger.currency", "USDC")
	v.SetDefault("ledger.confirmation_attempts", 5)
	v.SetDefault("ledger.confirmation_base_delay", "1s")
	v.SetDefault("ledger.request_timeout", "15s")
	v.SetDefault("ledger.operator_key", "")
	v.SetDefault("escrow.cache_ttl", "30s")
	v.SetDefault("escrow.cache_max_entries", 1000)
	v.SetDefault("escrow.retry_attempts", 3)
	v.SetDefault("escrow.retry_base_delay", "200ms")
	v.SetDefault("escrow.retry_multiplier", 2.0)
	v.SetDefault("escrow.owed_tolerance", "0.01")
	v.SetDefault("escrow.sync_tolerance", "0.001")
	v.SetDefault("escrow.reconcile_interval", "1m")
	v.SetDefault("escrow.reconcile_batch", 50)
	v.SetDefault("escrow.fund_ref_ttl", "24h")
	v.SetDefault("escrow.reservation_ttl", "10m")
	v.SetDefault("tracing.otlp_endpoint", "")
	v.SetDefault("tracing.service_name", "split-escrow")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("SPLIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error

	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if key, err := hex.DecodeString(c.Custody.MasterKey); err != nil || len(key) != 32 {
		errs = append(errs, errors.New("custody.master_key must be 32 hex-encoded bytes"))
	}
	if c.Ledger.RPCURL == "" {
		errs = append(errs, errors.New("ledger.rpc_url is required"))
	}
	if c.Ledger.TokenContract == "" {
		errs = append(errs, errors.New("ledger.token_contract is required"))
	}
	if c.Ledger.ConfirmationAttempts < 1 {
		errs = append(errs, errors.New("ledger.confirmation_attempts must be at least 1"))
	}
	if c.Escrow.RetryAttempts < 1 {
		errs = append(errs, errors.New("escrow.retry_attempts must be at least 1"))
	}

	return errors.Join(errs...)
}
