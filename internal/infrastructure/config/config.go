package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Log        LogConfig
	HTTP       HTTPConfig
	Credit     CreditConfig
	CashLedger CashLedgerConfig
	Scheduler  SchedulerConfig
	Store      StoreConfig
	Telemetry  TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings. Redis is optional: with Enabled
// false the payment lock and idempotency store stay in process.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// Lock drivers for the per-sale payment lock
const (
	LockDriverMemory = "memory"
	LockDriverRedis  = "redis"
)

// CreditConfig holds credit sale ledger settings
type CreditConfig struct {
	DefaultIntervalDays        int           // charge interval when history gives no estimate
	AllowEarlierPostpone       bool          // whether postpone may move the charge date backwards
	LockDriver                 string        // memory or redis
	LockTTL                    time.Duration // per-sale payment lock lifetime
	IdempotencyTTL             time.Duration // how long payment idempotency keys are remembered
	RecordPaymentsInCashLedger bool          // default for payments that do not say
	PhoneRegion                string        // ISO region used to parse local phone numbers
}

// Cash ledger drivers
const (
	CashLedgerDriverGorm     = "gorm"
	CashLedgerDriverDynamoDB = "dynamodb"
)

// CashLedgerConfig selects the cash ledger adapter
type CashLedgerConfig struct {
	Driver   string
	DynamoDB DynamoDBConfig
}

// DynamoDBConfig holds the DynamoDB cash ledger settings
type DynamoDBConfig struct {
	Region          string
	Endpoint        string // optional, e.g. http://localhost:8000 for DynamoDB Local
	Table           string
	AccessKeyID     string
	SecretAccessKey string
}

// SchedulerConfig holds background job configuration
type SchedulerConfig struct {
	ReminderEnabled       bool
	ReminderCheckInterval time.Duration
	ReminderTimeout       time.Duration
}

// StoreConfig identifies the store on printed receipts
type StoreConfig struct {
	Name     string
	Document string
	Phone    string
	Address  string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsEnabled    bool
	MetricsInterval   time.Duration
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          // Log full SQL statements (dev only)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings
}

// ConfigFileEnv names an explicit config file, overriding the search path
const ConfigFileEnv = "POS_CONFIG_FILE"

// Load reads configuration. Later sources win:
//  1. built-in defaults
//  2. config.toml in the working directory or /app, or the file named by POS_CONFIG_FILE
//  3. POS_ environment variables (POS_DATABASE_PASSWORD for database.password)
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path := os.Getenv(ConfigFileEnv); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("/app")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	for key, value := range map[string]any{
		"app.name":                          "retailpos-backend",
		"app.env":                           "development",
		"app.port":                          "8080",
		"database.host":                     "localhost",
		"database.port":                     5432,
		"database.user":                     "postgres",
		"database.dbname":                   "retailpos",
		"database.sslmode":                  "disable",
		"database.max_open_conns":           25,
		"database.max_idle_conns":           5,
		"database.conn_max_lifetime":        60,
		"database.conn_max_idle_time":       30,
		"redis.host":                        "localhost",
		"redis.port":                        6379,
		"log.level":                         "info",
		"log.format":                        "console",
		"log.output":                        "stdout",
		"http.read_timeout":                 15 * time.Second,
		"http.write_timeout":                15 * time.Second,
		"http.idle_timeout":                 60 * time.Second,
		"http.max_header_bytes":             1 << 20,
		"http.max_body_size":                1 << 20,
		"http.cors_allow_methods":           []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		"http.cors_allow_headers":           []string{"Content-Type", "X-Request-ID", "Idempotency-Key"},
		"credit.default_interval_days":      30,
		"credit.lock_driver":                LockDriverMemory,
		"credit.lock_ttl":                   10 * time.Second,
		"credit.idempotency_ttl":            24 * time.Hour,
		"credit.phone_region":               "BR",
		"cash_ledger.driver":                CashLedgerDriverGorm,
		"cash_ledger.dynamodb.table":        "pos_cash_transactions",
		"cash_ledger.dynamodb.region":       "sa-east-1",
		"scheduler.reminder_check_interval": 15 * time.Minute,
		"scheduler.reminder_timeout":        time.Minute,
		"telemetry.collector_endpoint":      "localhost:4317",
		"telemetry.sampling_ratio":          1.0,
		"telemetry.service_name":            "retailpos-backend",
		"telemetry.metrics_interval":        60 * time.Second,
		"telemetry.db_slow_query_threshold": 200 * time.Millisecond,
	} {
		v.SetDefault(key, value)
	}
}

func fromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("POS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Credit: CreditConfig{
			DefaultIntervalDays:        v.GetInt("credit.default_interval_days"),
			AllowEarlierPostpone:       v.GetBool("credit.allow_earlier_postpone"),
			LockDriver:                 v.GetString("credit.lock_driver"),
			LockTTL:                    v.GetDuration("credit.lock_ttl"),
			IdempotencyTTL:             v.GetDuration("credit.idempotency_ttl"),
			RecordPaymentsInCashLedger: v.GetBool("credit.record_payments_in_cash_ledger"),
			PhoneRegion:                v.GetString("credit.phone_region"),
		},
		CashLedger: CashLedgerConfig{
			Driver: v.GetString("cash_ledger.driver"),
			DynamoDB: DynamoDBConfig{
				Region:          v.GetString("cash_ledger.dynamodb.region"),
				Endpoint:        v.GetString("cash_ledger.dynamodb.endpoint"),
				Table:           v.GetString("cash_ledger.dynamodb.table"),
				AccessKeyID:     v.GetString("cash_ledger.dynamodb.access_key_id"),
				SecretAccessKey: v.GetString("cash_ledger.dynamodb.secret_access_key"),
			},
		},
		Scheduler: SchedulerConfig{
			ReminderEnabled:       v.GetBool("scheduler.reminder_enabled"),
			ReminderCheckInterval: v.GetDuration("scheduler.reminder_check_interval"),
			ReminderTimeout:       v.GetDuration("scheduler.reminder_timeout"),
		},
		Store: StoreConfig{
			Name:     v.GetString("store.name"),
			Document: v.GetString("store.document"),
			Phone:    v.GetString("store.phone"),
			Address:  v.GetString("store.address"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate reports every problem found, joined into one error
func (c *Config) validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Database.MaxOpenConns <= 0 {
		fail("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		fail("database.max_idle_conns cannot be negative")
	} else if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		fail("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Credit.DefaultIntervalDays < 1 {
		fail("credit.default_interval_days must be at least 1, got %d", c.Credit.DefaultIntervalDays)
	}
	switch c.Credit.LockDriver {
	case LockDriverMemory:
	case LockDriverRedis:
		if !c.Redis.Enabled {
			fail("credit.lock_driver=redis requires redis.enabled=true")
		}
	default:
		fail("credit.lock_driver must be %q or %q, got %q", LockDriverMemory, LockDriverRedis, c.Credit.LockDriver)
	}
	if c.Credit.LockTTL <= 0 {
		fail("credit.lock_ttl must be positive")
	}

	switch c.CashLedger.Driver {
	case CashLedgerDriverGorm:
	case CashLedgerDriverDynamoDB:
		if c.CashLedger.DynamoDB.Table == "" {
			fail("cash_ledger.dynamodb.table is required for the dynamodb driver")
		}
	default:
		fail("cash_ledger.driver must be %q or %q, got %q",
			CashLedgerDriverGorm, CashLedgerDriverDynamoDB, c.CashLedger.Driver)
	}

	if r := c.Telemetry.SamplingRatio; r < 0 || r > 1 {
		fail("telemetry.sampling_ratio must be between 0.0 and 1.0, got %g", r)
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			fail("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			fail("database.sslmode cannot be 'disable' in production")
		}
		if slices.Contains(c.HTTP.CORSAllowOrigins, "*") {
			fail("http.cors_allow_origins cannot be '*' in production")
		}
		if c.Telemetry.DBLogFullSQL {
			fail("telemetry.db_log_full_sql must be false in production")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the Redis host:port address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
