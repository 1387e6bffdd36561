// Package config loads, validates, and watches the server configuration.
package config

import "time"

// Config holds all application configuration.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Server  ServerConfig  `mapstructure:"server"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Storage StorageConfig `mapstructure:"storage"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig configures the admin HTTP server.
type ServerConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	EnableCORS bool   `mapstructure:"enable_cors"`
	Timeout    string `mapstructure:"timeout"`
}

// CacheConfig configures the in-memory caches.
type CacheConfig struct {
	History HistoryCacheConfig `mapstructure:"history"`
	Value   ValueCacheConfig   `mapstructure:"value"`
}

// HistoryCacheConfig configures the history cache.
type HistoryCacheConfig struct {
	MaxValuesPerItem int    `mapstructure:"max_values_per_item"`
	TrendInterval    string `mapstructure:"trend_interval"`
	FlushInterval    string `mapstructure:"flush_interval"`
}

// ValueCacheConfig configures the value cache.
type ValueCacheConfig struct {
	MaxValuesPerItem int `mapstructure:"max_values_per_item"`
}

// StorageConfig configures durable history storage.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// ServerTimeout returns the parsed request timeout.
func (c *ServerConfig) ServerTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// TrendIntervalDuration returns the parsed trend aggregation window.
func (c *HistoryCacheConfig) TrendIntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.TrendInterval)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// FlushIntervalDuration returns the parsed flush period.
func (c *HistoryCacheConfig) FlushIntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.FlushInterval)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}
