package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})

	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, StoreMemory, cfg.EffectiveDeviceStore())
	assert.False(t, cfg.UsesSQL())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 100, cfg.Worker.BatchSize)
	assert.Equal(t, 15*time.Second, cfg.Worker.Interval)
	assert.Equal(t, 5, cfg.Worker.MaxAttempts)
	assert.True(t, cfg.Worker.EnableNotifications)
	assert.Equal(t, "civicpush_", cfg.Database.Prefix)
	assert.True(t, cfg.Database.AutoMigrate)
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"STORE":                "sql",
		"DEVICE_STORE":         "redis",
		"DB_DRIVER":            "postgres",
		"DB_HOST":              "db.internal",
		"DB_PORT":              "5432",
		"DB_PASSWORD":          "secret",
		"DB_NAME":              "civicpush",
		"REDIS_ADDR":           "cache:6379",
		"WORKER_INTERVAL":      "1m",
		"CORS_ALLOWED_ORIGINS": "https://vis.hr,https://komiza.hr",
		"LOG_LEVEL":            "debug",
	})

	require.NoError(t, err)
	assert.Equal(t, StoreRedis, cfg.EffectiveDeviceStore())
	assert.True(t, cfg.UsesSQL())
	assert.Equal(t, time.Minute, cfg.Worker.Interval)
	assert.Equal(t, []string{"https://vis.hr", "https://komiza.hr"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "host=db.internal port=5432 user=civicpush password=secret dbname=civicpush sslmode=disable", cfg.Database.GetDSN())
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		environ map[string]string
		want    string
	}{
		{name: "unknown store", environ: map[string]string{"STORE": "mongo"}, want: "Store"},
		{name: "redis cannot hold messages", environ: map[string]string{"STORE": "redis"}, want: "Store"},
		{name: "unknown device store", environ: map[string]string{"DEVICE_STORE": "etcd"}, want: "DeviceStore"},
		{name: "unknown log level", environ: map[string]string{"LOG_LEVEL": "trace"}, want: "LogLevel"},
		{name: "port out of range", environ: map[string]string{"SERVER_PORT": "70000"}, want: "server"},
		{name: "zero batch size", environ: map[string]string{"WORKER_BATCH_SIZE": "-1"}, want: "worker"},
		{name: "interval too short", environ: map[string]string{"WORKER_INTERVAL": "10ms"}, want: "worker"},
		{name: "unknown driver", environ: map[string]string{"STORE": "sql", "DB_DRIVER": "oracle"}, want: "database"},
		{name: "mysql without password", environ: map[string]string{"STORE": "sql", "DB_DRIVER": "mysql"}, want: "database"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(tt.environ)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFrom_SQLiteNeedsNoCredentials(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"STORE": "sql", "DB_NAME": "/tmp/civicpush.db"})

	require.NoError(t, err)
	assert.Equal(t, "/tmp/civicpush.db", cfg.Database.GetDSN())
}

func TestParseError(t *testing.T) {
	_, err := LoadFrom(map[string]string{"SERVER_PORT": "eighty"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env")
}
