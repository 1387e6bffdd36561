package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "auto"},
		Server: ServerConfig{
			Host:    "localhost",
			Port:    10051,
			Timeout: "60s",
		},
		Cache: CacheConfig{
			History: HistoryCacheConfig{
				MaxValuesPerItem: 1024,
				TrendInterval:    "1h",
				FlushInterval:    "30s",
			},
			Value: ValueCacheConfig{MaxValuesPerItem: 16},
		},
		Storage: StorageConfig{Path: ".zabbix/data/history.db"},
	}
}

func TestValidator_ValidConfig(t *testing.T) {
	if err := NewValidator().Validate(validConfig()); err != nil {
		t.Fatalf("Validate() error = %v, want nil", err)
	}
}

func TestValidator_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, "log.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"empty host", func(c *Config) { c.Server.Host = "" }, "server.host"},
		{"port too low", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"bad timeout", func(c *Config) { c.Server.Timeout = "soon" }, "server.timeout"},
		{"negative timeout", func(c *Config) { c.Server.Timeout = "-1s" }, "server.timeout"},
		{"zero history cap", func(c *Config) { c.Cache.History.MaxValuesPerItem = 0 }, "cache.history.max_values_per_item"},
		{"empty trend interval", func(c *Config) { c.Cache.History.TrendInterval = "" }, "cache.history.trend_interval"},
		{"bad flush interval", func(c *Config) { c.Cache.History.FlushInterval = "often" }, "cache.history.flush_interval"},
		{"zero value cap", func(c *Config) { c.Cache.Value.MaxValuesPerItem = 0 }, "cache.value.max_values_per_item"},
		{"empty storage path", func(c *Config) { c.Storage.Path = "" }, "storage.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := NewValidator().Validate(cfg)
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q does not mention field %q", err.Error(), tt.field)
			}
		})
	}
}

func TestValidator_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Log.Level = "loud"
	cfg.Server.Port = -1
	cfg.Storage.Path = ""

	v := NewValidator()
	if err := v.Validate(cfg); err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	if got := len(v.Errors()); got != 3 {
		t.Errorf("collected %d errors, want 3", got)
	}
}
