package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "^NSEI", cfg.Market.DefaultSymbol)
	assert.Equal(t, "2018-01-08", cfg.Range.Anchor)
	assert.Equal(t, DefaultBodies, cfg.Planetary.Bodies)
	assert.Equal(t, DefaultCatalog, cfg.Catalog())
	assert.Equal(t, 15*time.Minute, cfg.Cache.TTL)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
environment: production
server:
  port: 9090
  read_timeout: 3s
metrics:
  enabled: false
market:
  default_symbol: "^GSPC"
  catalog:
    - name: S&P 500
      symbol: "^GSPC"
planetary:
  bodies: [venus, mars]
  duplicates: keep_last
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, []Index{{Name: "S&P 500", Symbol: "^GSPC"}}, cfg.Catalog())
	assert.Equal(t, []string{"venus", "mars"}, cfg.Planetary.Bodies)
	assert.Equal(t, "keep_last", cfg.Planetary.Duplicates)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
}

func TestLoadWithEnv(t *testing.T) {
	t.Setenv("PORT", "7000")
	t.Setenv("REDIS_ADDR", "cache.internal:6380")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("PLANETARY_FILE", "/data/planets.xlsx")

	cfg, err := LoadWithEnv(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "cache.internal", cfg.Redis.Host)
	assert.Equal(t, 6380, cfg.Redis.Port)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "/data/planets.xlsx", cfg.Planetary.DefaultFile)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"bad anchor", func(c *Config) { c.Range.Anchor = "08-01-2018" }, "range.anchor"},
		{"bad duplicates", func(c *Config) { c.Planetary.Duplicates = "merge" }, "planetary.duplicates"},
		{"bad cache backend", func(c *Config) { c.Cache.Backend = "layered" }, "cache.backend"},
		{"bad dataset backend", func(c *Config) { c.Datasets.Backend = "disk" }, "datasets.backend"},
		{"kafka without brokers", func(c *Config) { c.Kafka.Enabled = true }, "kafka.brokers"},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
