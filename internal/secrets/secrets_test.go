// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/litcurate/pkg/types"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(t *testing.T) string
		want     Bundle
		warnings int
	}{
		{
			name: "reads recognized keys and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, DatabaseDSN, "  postgres://app@db/litcurate  \n", 0o600)
				writeFile(t, dir, RedisPassword, "hunter2", 0o600)
				return dir
			},
			want: Bundle{DatabaseDSN: "postgres://app@db/litcurate", RedisPassword: "hunter2"},
		},
		{
			name: "ignores unrecognized files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "openai-api-key", "sk-test", 0o600)
				writeFile(t, dir, ".gitkeep", "", 0o600)
				writeFile(t, dir, RedisPassword, "hunter2", 0o600)
				return dir
			},
			want: Bundle{RedisPassword: "hunter2"},
		},
		{
			name: "missing directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: Bundle{},
		},
		{
			name: "skips empty values",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, DatabaseDSN, "   \n\t  ", 0o600)
				return dir
			},
			want: Bundle{},
		},
		{
			name: "refuses files other users can read",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, DatabaseDSN, "postgres://leaky", 0o644)
				writeFile(t, dir, RedisPassword, "hunter2", 0o600)
				return dir
			},
			want:     Bundle{RedisPassword: "hunter2"},
			warnings: 1,
		},
		{
			name: "key name used by a directory",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				require.NoError(t, os.Mkdir(filepath.Join(dir, DatabaseDSN), 0o700))
				return dir
			},
			want:     Bundle{},
			warnings: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.WarnLevel)
			got, err := Load(tt.setup(t), zap.New(core))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.warnings, logs.Len())
		})
	}
}

func TestNamesHidesValues(t *testing.T) {
	b := Bundle{RedisPassword: "hunter2", DatabaseDSN: "postgres://secret"}
	assert.Equal(t, []string{DatabaseDSN, RedisPassword}, b.Names())
	assert.Empty(t, Bundle{}.Names())
}

func TestApply(t *testing.T) {
	b := Bundle{DatabaseDSN: "postgres://secret", RedisPassword: "hunter2"}

	var cfg types.Config
	b.Apply(&cfg)
	assert.Equal(t, "postgres://secret", cfg.Store.DSN)
	assert.Equal(t, "hunter2", cfg.Session.RedisPassword)

	cfg = types.Config{Store: types.StoreConfig{DSN: "postgres://configured"}}
	b.Apply(&cfg)
	assert.Equal(t, "postgres://configured", cfg.Store.DSN, "configured values win")

	var empty Bundle
	cfg = types.Config{}
	empty.Apply(&cfg)
	assert.Empty(t, cfg.Store.DSN)
}

func writeFile(t *testing.T, dir, name, content string, mode os.FileMode) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
	// WriteFile honours the umask; set the mode explicitly.
	require.NoError(t, os.Chmod(path, mode))
}
