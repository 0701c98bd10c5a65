// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index is the read side of the corpus: task and label enumeration,
// label frequencies, two-task joins and paper id lookups over the
// prediction table.
//
// The index holds no per-session state. The only shared state is the task
// Registry, which is refreshed from the store and guarded by a lock.
package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/litcurate/internal/logging"
	"github.com/pdiddy/litcurate/internal/metrics"
)

// ErrUnsupportedTask is returned when a request names a task that no
// annotation carries.
var ErrUnsupportedTask = errors.New("unsupported task")

// Other is the catch-all bucket for labels outside a requested subset.
const Other = "Other"

// Querier is the part of the corpus store the index reads through.
// Queries are written with ? placeholders.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	InList(column string, ids []int64) (string, any)
	HasIndex(ctx context.Context, name string) (bool, error)
}

// Index answers aggregation queries over annotations.
type Index struct {
	q        Querier
	log      *zap.Logger
	registry *Registry
}

// New creates an Index. display may be nil.
func New(q Querier, log *zap.Logger, display map[string]Display) *Index {
	log = logging.OrNop(log)
	return &Index{
		q:        q,
		log:      log,
		registry: newRegistry(display),
	}
}

// observe logs and records the duration of one query.
func (ix *Index) observe(operation string, start time.Time) {
	d := metrics.ObserveSince(operation, start)
	ix.log.Debug("query finished", zap.String("operation", operation), zap.Duration("duration", d))
}

// requireTask returns ErrUnsupportedTask unless task is in the registry,
// refreshing it once on a miss so newly ingested tasks are picked up.
func (ix *Index) requireTask(ctx context.Context, task string) error {
	if ix.registry.has(task) {
		return nil
	}
	if err := ix.Refresh(ctx); err != nil {
		return err
	}
	if !ix.registry.has(task) {
		return fmt.Errorf("%w: %q", ErrUnsupportedTask, task)
	}
	return nil
}

// Tasks returns every task name in alphabetical order.
func (ix *Index) Tasks(ctx context.Context) ([]string, error) {
	defer ix.observe("tasks", time.Now())
	return ix.queryStrings(ctx, `SELECT DISTINCT task FROM prediction ORDER BY task`)
}

// Labels returns the labels of task in alphabetical order.
func (ix *Index) Labels(ctx context.Context, task string) ([]string, error) {
	defer ix.observe("labels", time.Now())
	labels, err := ix.queryStrings(ctx, `SELECT DISTINCT label FROM prediction WHERE task = ? ORDER BY label`, task)
	if err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTask, task)
	}
	return labels, nil
}

func (ix *Index) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := ix.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scanning: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// labelIn returns "column IN (?, ?, ...)" and the matching arguments.
func labelIn(column string, labels []string) (string, []any) {
	args := make([]any, len(labels))
	for i, l := range labels {
		args[i] = l
	}
	return column + " IN (" + strings.TrimSuffix(strings.Repeat("?, ", len(labels)), ", ") + ")", args
}

// WithoutOther returns labels minus the Other bucket and whether it was
// present.
func WithoutOther(labels []string) ([]string, bool) {
	out := make([]string, 0, len(labels))
	found := false
	for _, l := range labels {
		if l == Other {
			found = true
			continue
		}
		out = append(out, l)
	}
	return out, found
}
