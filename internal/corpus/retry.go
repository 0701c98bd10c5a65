// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// RetryBaseDelay is the first backoff after SQLite reports the database as
// busy. Tests override this to avoid real sleeps.
var RetryBaseDelay = 50 * time.Millisecond

const defaultBusyRetries = 5

// retryBusy runs fn and retries it with exponential backoff while it fails
// with SQLITE_BUSY or SQLITE_LOCKED. The delay doubles each attempt. Any
// other error, or exhausting the retries, returns the last error.
func (s *Store) retryBusy(ctx context.Context, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil || !isBusy(err) || attempt >= s.retries {
			return err
		}

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		s.log.Debug("database busy, retrying",
			zap.Duration("backoff", backoff), zap.Int("attempt", attempt+1))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

func isBusy(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
}
