// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// StoreDriver selects the SQL backend for the corpus store.
type StoreDriver string

const (
	DriverSQLite   StoreDriver = "sqlite3"
	DriverPostgres StoreDriver = "pgx"
)

// StoreConfig holds settings for the corpus store.
type StoreConfig struct {
	// Driver is sqlite3 (default) or pgx.
	Driver StoreDriver `json:"driver" yaml:"driver" mapstructure:"driver"`

	// Path is the SQLite database file. Ignored for pgx.
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// DSN is the Postgres connection string. Ignored for sqlite3.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty" mapstructure:"dsn"`

	// BusyRetries is how often a write is retried when SQLite reports the
	// database as locked (default 5).
	BusyRetries int `json:"busy_retries" yaml:"busy_retries" mapstructure:"busy_retries"`
}

// ServerConfig holds settings for the HTTP API.
type ServerConfig struct {
	Host         string        `json:"host" yaml:"host" mapstructure:"host"`
	Port         int           `json:"port" yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`
}

// SessionBackend selects where per-session filter state lives.
type SessionBackend string

const (
	SessionMemory SessionBackend = "memory"
	SessionRedis  SessionBackend = "redis"
)

// SessionConfig holds settings for filter-state persistence.
type SessionConfig struct {
	Backend       SessionBackend `json:"backend" yaml:"backend" mapstructure:"backend"`
	RedisAddr     string         `json:"redis_addr" yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string         `json:"redis_password,omitempty" yaml:"redis_password,omitempty" mapstructure:"redis_password"`
	RedisDB       int            `json:"redis_db" yaml:"redis_db" mapstructure:"redis_db"`

	// TTL is how long an idle session's filters are kept (default 24h).
	TTL time.Duration `json:"ttl" yaml:"ttl" mapstructure:"ttl"`
}

// LoggingConfig holds settings for the zap logger.
type LoggingConfig struct {
	// Level is a zap level name: debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is json or console.
	Format string `json:"format" yaml:"format" mapstructure:"format"`

	// Output is stderr, stdout, or a file path.
	Output string `json:"output" yaml:"output" mapstructure:"output"`
}

// TaxonomyConfig points at optional display metadata for tasks.
type TaxonomyConfig struct {
	// File is a YAML file mapping task name to display_name and description.
	File string `json:"file,omitempty" yaml:"file,omitempty" mapstructure:"file"`
}

// ExportConfig holds settings for the flat export.
type ExportConfig struct {
	// LabelSeparator joins multiple labels in one task column (default ", ").
	LabelSeparator string `json:"label_separator" yaml:"label_separator" mapstructure:"label_separator"`
}

// Config groups all settings for the dashboard backend.
type Config struct {
	Store    StoreConfig    `json:"store" yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `json:"server" yaml:"server" mapstructure:"server"`
	Session  SessionConfig  `json:"session" yaml:"session" mapstructure:"session"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging" mapstructure:"logging"`
	Taxonomy TaxonomyConfig `json:"taxonomy" yaml:"taxonomy" mapstructure:"taxonomy"`
	Export   ExportConfig   `json:"export" yaml:"export" mapstructure:"export"`
}
