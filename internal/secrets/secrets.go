// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets reads credentials that stay out of the config file. Each
// credential is a plain-text file in the secrets directory named after its
// key; the trimmed file contents are the value.
//
// Only the keys in Keys are read: database-dsn (Postgres connection string)
// and redis-password (session store).
package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/litcurate/pkg/types"
)

// Recognized key names.
const (
	DatabaseDSN   = "database-dsn"
	RedisPassword = "redis-password"
)

// Keys lists every key Load looks for.
var Keys = []string{DatabaseDSN, RedisPassword}

// Bundle maps key names to credential values.
type Bundle map[string]string

// Load reads the recognized key files from dir. A missing directory or key
// file is not an error. Unreadable files are logged and skipped, and so are
// files other users can read, since a leaked DSN carries a password.
func Load(dir string, log *zap.Logger) (Bundle, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return Bundle{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	b := make(Bundle, len(Keys))
	for _, key := range Keys {
		path := filepath.Join(dir, key)
		info, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil || info.IsDir() {
			log.Warn("secret not readable, ignored", zap.String("key", key), zap.Error(err))
			continue
		}
		if info.Mode().Perm()&0o077 != 0 {
			log.Warn("secret file is accessible to other users, ignored",
				zap.String("key", key), zap.Stringer("mode", info.Mode().Perm()))
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn("secret not readable, ignored", zap.String("key", key), zap.Error(err))
			continue
		}
		if v := strings.TrimSpace(string(data)); v != "" {
			b[key] = v
		}
	}
	return b, nil
}

// Names returns the loaded key names in order, never the values.
func (b Bundle) Names() []string {
	names := make([]string, 0, len(b))
	for k := range b {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Apply fills credentials in cfg that the configuration left empty.
func (b Bundle) Apply(cfg *types.Config) {
	if cfg.Store.DSN == "" {
		cfg.Store.DSN = b[DatabaseDSN]
	}
	if cfg.Session.RedisPassword == "" {
		cfg.Session.RedisPassword = b[RedisPassword]
	}
}
