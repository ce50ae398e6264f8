package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresStoreCredentials(t *testing.T) {
	t.Setenv("CACHE_TYPE", "redis")
	t.Setenv("CACHE_STORE_URL", "")
	t.Setenv("CACHE_STORE_TOKEN", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CACHE_STORE_URL")

	t.Setenv("CACHE_STORE_URL", "rediss://cache.example.com:6379")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CACHE_STORE_TOKEN")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CACHE_TYPE", "redis")
	t.Setenv("CACHE_STORE_URL", "rediss://cache.example.com:6379")
	t.Setenv("CACHE_STORE_TOKEN", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
	assert.True(t, cfg.Warming.Enabled)
	assert.Equal(t, 30*time.Minute, cfg.Warming.Interval)
	assert.Equal(t, time.Second, cfg.Warming.TenantDelay)
	assert.Equal(t, "sqlite", cfg.Database.Type)
}

func TestMemoryStoreNeedsNoCredentials(t *testing.T) {
	t.Setenv("CACHE_TYPE", "memory")
	t.Setenv("CACHE_STORE_URL", "")
	t.Setenv("CACHE_STORE_TOKEN", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Cache.Type)
}

func TestValidateRejectsBadWarming(t *testing.T) {
	cfg := Config{
		Cache:   CacheConfig{Type: "memory"},
		Warming: WarmingConfig{Enabled: true},
	}
	assert.Error(t, cfg.Validate())

	cfg.Warming.Interval = time.Minute
	cfg.Warming.TenantDelay = -time.Second
	assert.Error(t, cfg.Validate())

	cfg.Warming.TenantDelay = 0
	assert.NoError(t, cfg.Validate())

	cfg.Cache.Type = "memcached"
	assert.Error(t, cfg.Validate())
}

func TestDSNs(t *testing.T) {
	d := DatabaseConfig{User: "hr", Password: "pw", Host: "db", Port: 5432, Name: "staffhub", SSLMode: "require"}
	assert.Equal(t, "postgres://hr:pw@db:5432/staffhub?sslmode=require", d.PostgresDSN())
	assert.Equal(t, "hr:pw@tcp(db:5432)/staffhub?parseTime=true", d.MySQLDSN())
}

func TestSource(t *testing.T) {
	d := DatabaseConfig{Type: "sqlite", Path: "/tmp/hr.db", Host: "db", Port: 5432, Name: "hr", User: "u", Password: "p", SSLMode: "disable"}
	assert.Equal(t, "/tmp/hr.db", d.Source())

	d.Type = "postgres"
	assert.Equal(t, "postgres://u:p@db:5432/hr?sslmode=disable", d.Source())

	d.Type = "mysql"
	assert.Equal(t, "u:p@tcp(db:5432)/hr?parseTime=true", d.Source())
}
