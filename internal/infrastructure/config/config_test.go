package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// envKeys are blanked before every case so the host environment cannot leak in.
// Viper ignores empty environment values.
var envKeys = []string{
	ConfigFileEnv,
	"POS_APP_NAME",
	"POS_APP_ENV",
	"POS_DATABASE_HOST",
	"POS_DATABASE_PORT",
	"POS_DATABASE_PASSWORD",
	"POS_DATABASE_SSLMODE",
	"POS_DATABASE_MAX_OPEN_CONNS",
	"POS_DATABASE_MAX_IDLE_CONNS",
	"POS_REDIS_ENABLED",
	"POS_CREDIT_DEFAULT_INTERVAL_DAYS",
	"POS_CREDIT_ALLOW_EARLIER_POSTPONE",
	"POS_CREDIT_LOCK_DRIVER",
	"POS_CREDIT_LOCK_TTL",
	"POS_CREDIT_PHONE_REGION",
	"POS_CASH_LEDGER_DRIVER",
	"POS_CASH_LEDGER_DYNAMODB_TABLE",
	"POS_SCHEDULER_REMINDER_CHECK_INTERVAL",
	"POS_TELEMETRY_SAMPLING_RATIO",
	"POS_TELEMETRY_DB_LOG_FULL_SQL",
	"POS_HTTP_CORS_ALLOW_ORIGINS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "retailpos-backend", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "retailpos", cfg.Database.DBName)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5, cfg.Database.MaxIdleConns)
	assert.False(t, cfg.Redis.Enabled)

	assert.Equal(t, 30, cfg.Credit.DefaultIntervalDays)
	assert.False(t, cfg.Credit.AllowEarlierPostpone)
	assert.Equal(t, LockDriverMemory, cfg.Credit.LockDriver)
	assert.Equal(t, 10*time.Second, cfg.Credit.LockTTL)
	assert.Equal(t, 24*time.Hour, cfg.Credit.IdempotencyTTL)
	assert.Equal(t, "BR", cfg.Credit.PhoneRegion)
	assert.Equal(t, CashLedgerDriverGorm, cfg.CashLedger.Driver)
	assert.Equal(t, 15*time.Minute, cfg.Scheduler.ReminderCheckInterval)
	assert.Equal(t, 1.0, cfg.Telemetry.SamplingRatio)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("POS_APP_NAME", "loja-centro")
	t.Setenv("POS_DATABASE_HOST", "db.local")
	t.Setenv("POS_DATABASE_PORT", "5433")
	t.Setenv("POS_CREDIT_DEFAULT_INTERVAL_DAYS", "15")
	t.Setenv("POS_CREDIT_ALLOW_EARLIER_POSTPONE", "true")
	t.Setenv("POS_CREDIT_LOCK_TTL", "3s")
	t.Setenv("POS_CREDIT_PHONE_REGION", "PT")
	t.Setenv("POS_CASH_LEDGER_DRIVER", "dynamodb")
	t.Setenv("POS_CASH_LEDGER_DYNAMODB_TABLE", "caixa")
	t.Setenv("POS_SCHEDULER_REMINDER_CHECK_INTERVAL", "1m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "loja-centro", cfg.App.Name)
	assert.Equal(t, "db.local", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, 15, cfg.Credit.DefaultIntervalDays)
	assert.True(t, cfg.Credit.AllowEarlierPostpone)
	assert.Equal(t, 3*time.Second, cfg.Credit.LockTTL)
	assert.Equal(t, "PT", cfg.Credit.PhoneRegion)
	assert.Equal(t, CashLedgerDriverDynamoDB, cfg.CashLedger.Driver)
	assert.Equal(t, "caixa", cfg.CashLedger.DynamoDB.Table)
	assert.Equal(t, time.Minute, cfg.Scheduler.ReminderCheckInterval)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "idle conns above open conns",
			env:     map[string]string{"POS_DATABASE_MAX_OPEN_CONNS": "10", "POS_DATABASE_MAX_IDLE_CONNS": "20"},
			wantErr: "cannot exceed",
		},
		{
			name:    "negative idle conns",
			env:     map[string]string{"POS_DATABASE_MAX_IDLE_CONNS": "-1"},
			wantErr: "max_idle_conns cannot be negative",
		},
		{
			name:    "negative interval",
			env:     map[string]string{"POS_CREDIT_DEFAULT_INTERVAL_DAYS": "-3"},
			wantErr: "credit.default_interval_days",
		},
		{
			name:    "unknown lock driver",
			env:     map[string]string{"POS_CREDIT_LOCK_DRIVER": "etcd"},
			wantErr: "credit.lock_driver",
		},
		{
			name:    "redis lock without redis",
			env:     map[string]string{"POS_CREDIT_LOCK_DRIVER": "redis"},
			wantErr: "requires redis.enabled",
		},
		{
			name:    "unknown cash ledger driver",
			env:     map[string]string{"POS_CASH_LEDGER_DRIVER": "csv"},
			wantErr: "cash_ledger.driver",
		},
		{
			name:    "sampling ratio out of range",
			env:     map[string]string{"POS_TELEMETRY_SAMPLING_RATIO": "1.5"},
			wantErr: "sampling_ratio",
		},
		{
			name:    "production requires password",
			env:     map[string]string{"POS_APP_ENV": "production", "POS_DATABASE_SSLMODE": "require"},
			wantErr: "database.password is required in production",
		},
		{
			name: "production rejects plain connections",
			env: map[string]string{
				"POS_APP_ENV":           "production",
				"POS_DATABASE_PASSWORD": "secret",
			},
			wantErr: "sslmode",
		},
		{
			name: "production rejects full sql logging",
			env: map[string]string{
				"POS_APP_ENV":                   "production",
				"POS_DATABASE_PASSWORD":         "secret",
				"POS_DATABASE_SSLMODE":          "require",
				"POS_TELEMETRY_DB_LOG_FULL_SQL": "true",
			},
			wantErr: "db_log_full_sql",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "loja.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[app]
name = "loja-norte"

[credit]
default_interval_days = 7
lock_ttl = "2s"
record_payments_in_cash_ledger = true

[cash_ledger]
driver = "dynamodb"

[cash_ledger.dynamodb]
table = "caixa-norte"
`), 0o600))
	t.Setenv(ConfigFileEnv, path)
	t.Setenv("POS_CREDIT_DEFAULT_INTERVAL_DAYS", "10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "loja-norte", cfg.App.Name)
	assert.Equal(t, 10, cfg.Credit.DefaultIntervalDays, "environment wins over the file")
	assert.Equal(t, 2*time.Second, cfg.Credit.LockTTL)
	assert.True(t, cfg.Credit.RecordPaymentsInCashLedger)
	assert.Equal(t, "caixa-norte", cfg.CashLedger.DynamoDB.Table)
	assert.Equal(t, "sa-east-1", cfg.CashLedger.DynamoDB.Region, "unset keys keep their defaults")
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestLoad_MissingExplicitConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(ConfigFileEnv, filepath.Join(t.TempDir(), "absent.toml"))

	_, err := Load()
	assert.ErrorContains(t, err, "error reading config file")
}

func TestLoad_ReportsEveryProblem(t *testing.T) {
	clearEnv(t)
	t.Setenv("POS_CREDIT_DEFAULT_INTERVAL_DAYS", "0")
	t.Setenv("POS_CASH_LEDGER_DRIVER", "csv")
	t.Setenv("POS_TELEMETRY_SAMPLING_RATIO", "-1")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credit.default_interval_days")
	assert.Contains(t, err.Error(), "cash_ledger.driver")
	assert.Contains(t, err.Error(), "telemetry.sampling_ratio")
}

func TestLoad_RedisLockDriver(t *testing.T) {
	clearEnv(t)
	t.Setenv("POS_REDIS_ENABLED", "true")
	t.Setenv("POS_CREDIT_LOCK_DRIVER", "redis")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, LockDriverRedis, cfg.Credit.LockDriver)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db",
		Port:     5432,
		User:     "pos",
		Password: "secret",
		DBName:   "retailpos",
		SSLMode:  "disable",
	}
	assert.Equal(t, "postgres://pos:secret@db:5432/retailpos?sslmode=disable", d.DSN())
}
