// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/litcurate/pkg/types"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     types.LoggingConfig
		wantErr bool
	}{
		{name: "defaults", cfg: types.LoggingConfig{}},
		{name: "json to stdout", cfg: types.LoggingConfig{Level: "debug", Format: "json", Output: "stdout"}},
		{name: "bad level", cfg: types.LoggingConfig{Level: "loud"}, wantErr: true},
		{name: "bad format", cfg: types.LoggingConfig{Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, log)
		})
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "litcurate.log")
	log, err := New(types.LoggingConfig{Format: "json", Output: path})
	require.NoError(t, err)

	log.Info("hello")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"hello"`)
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
}
