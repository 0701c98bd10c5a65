// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/litcurate/internal/corpus"
	"github.com/pdiddy/litcurate/internal/metrics"
)

// LabelCount is one row of a frequency table.
type LabelCount struct {
	Label string `json:"label" yaml:"label"`
	Count int    `json:"count" yaml:"count"`
}

// Frequency is a frequency table ordered by count descending, then label.
type Frequency []LabelCount

// Map returns the table as label -> count.
func (f Frequency) Map() map[string]int {
	m := make(map[string]int, len(f))
	for _, lc := range f {
		m[lc.Label] = lc.Count
	}
	return m
}

// Labels returns the labels in table order.
func (f Frequency) Labels() []string {
	out := make([]string, len(f))
	for i, lc := range f {
		out[i] = lc.Label
	}
	return out
}

func (f Frequency) sort() {
	sort.Slice(f, func(i, j int) bool {
		if f[i].Count != f[j].Count {
			return f[i].Count > f[j].Count
		}
		return f[i].Label < f[j].Label
	})
}

// LabelFrequency counts annotation rows per label of task. A nil or empty
// labels means every label of the task.
func (ix *Index) LabelFrequency(ctx context.Context, task string, labels []string) (Frequency, error) {
	defer ix.observe("label_frequency", time.Now())
	if err := ix.requireTask(ctx, task); err != nil {
		return nil, err
	}

	query := `SELECT label, count(*) FROM prediction WHERE task = ?`
	args := []any{task}
	if len(labels) > 0 {
		pred, largs := labelIn("label", labels)
		query += ` AND ` + pred
		args = append(args, largs...)
	}
	query += ` GROUP BY label`
	return ix.frequency(ctx, query, args...)
}

// FilteredLabelFrequency counts labels of task over the papers that also
// carry (filterTask, filterLabel).
func (ix *Index) FilteredLabelFrequency(ctx context.Context, task, filterTask, filterLabel string) (Frequency, error) {
	defer ix.observe("filtered_label_frequency", time.Now())
	if err := ix.requireTask(ctx, task); err != nil {
		return nil, err
	}
	if err := ix.requireTask(ctx, filterTask); err != nil {
		return nil, err
	}

	fast, err := ix.fastPath(ctx, "filtered_label_frequency")
	if err != nil {
		return nil, err
	}
	if fast {
		return ix.frequency(ctx,
			`SELECT label, count(*) FROM prediction
			 WHERE task = ? AND paper_id IN (SELECT paper_id FROM prediction WHERE task = ? AND label = ?)
			 GROUP BY label`,
			task, filterTask, filterLabel)
	}

	anchor, err := ix.PaperIDs(ctx, filterTask, filterLabel)
	if err != nil {
		return nil, err
	}
	rows, err := ix.q.QueryContext(ctx, `SELECT paper_id, label FROM prediction WHERE task = ?`, task)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", task, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			id    int64
			label string
		)
		if err := rows.Scan(&id, &label); err != nil {
			return nil, fmt.Errorf("scanning prediction: %w", err)
		}
		if anchor.Contains(id) {
			counts[label]++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	f := make(Frequency, 0, len(counts))
	for l, c := range counts {
		f = append(f, LabelCount{Label: l, Count: c})
	}
	f.sort()
	return f, nil
}

func (ix *Index) frequency(ctx context.Context, query string, args ...any) (Frequency, error) {
	rows, err := ix.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying frequency: %w", err)
	}
	defer rows.Close()

	var f Frequency
	for rows.Next() {
		var lc LabelCount
		if err := rows.Scan(&lc.Label, &lc.Count); err != nil {
			return nil, fmt.Errorf("scanning frequency: %w", err)
		}
		f = append(f, lc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	f.sort()
	return f, nil
}

// fastPath reports whether the task/label lookup index is present. When it
// is not, the caller falls back to a full-scan join and the fallback is
// logged and counted.
func (ix *Index) fastPath(ctx context.Context, operation string) (bool, error) {
	ok, err := ix.q.HasIndex(ctx, corpus.LookupIndex)
	if err != nil {
		return false, err
	}
	if !ok {
		ix.log.Warn("lookup index unavailable, using full-scan join",
			zap.String("operation", operation), zap.String("index", corpus.LookupIndex))
		metrics.DegradedAggregations.WithLabelValues(operation).Inc()
	}
	return ok, nil
}
