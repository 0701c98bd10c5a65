// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"fmt"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/pdiddy/litcurate/pkg/types"
)

// PaperIDs returns the papers carrying (task, label). An empty label means
// any label of task.
func (ix *Index) PaperIDs(ctx context.Context, task, label string) (mapset.Set[int64], error) {
	if label == "" {
		return ix.PaperIDsForLabels(ctx, task, nil)
	}
	return ix.PaperIDsForLabels(ctx, task, []string{label})
}

// PaperIDsForLabels returns the papers carrying any of labels on task.
// An empty labels means any label of task.
func (ix *Index) PaperIDsForLabels(ctx context.Context, task string, labels []string) (mapset.Set[int64], error) {
	defer ix.observe("paper_ids", time.Now())
	if err := ix.requireTask(ctx, task); err != nil {
		return nil, err
	}

	query := `SELECT DISTINCT paper_id FROM prediction WHERE task = ?`
	args := []any{task}
	if len(labels) > 0 {
		pred, largs := labelIn("label", labels)
		query += ` AND ` + pred
		args = append(args, largs...)
	}
	return ix.idSet(ctx, query, args...)
}

// AllPaperIDs returns every paper in the corpus.
func (ix *Index) AllPaperIDs(ctx context.Context) (mapset.Set[int64], error) {
	defer ix.observe("all_paper_ids", time.Now())
	return ix.idSet(ctx, `SELECT id FROM paper`)
}

// CountPapers returns the corpus size.
func (ix *Index) CountPapers(ctx context.Context) (int, error) {
	var n int
	if err := ix.q.QueryRowContext(ctx, `SELECT count(*) FROM paper`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting papers: %w", err)
	}
	return n, nil
}

func (ix *Index) idSet(ctx context.Context, query string, args ...any) (mapset.Set[int64], error) {
	rows, err := ix.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying paper ids: %w", err)
	}
	defer rows.Close()

	ids := mapset.NewThreadUnsafeSet[int64]()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning paper id: %w", err)
		}
		ids.Add(id)
	}
	return ids, rows.Err()
}

// TagsFor returns the (task, label) tags of each paper in ids, restricted
// to tasks when tasks is non-empty. Tags of one paper are ordered by task
// and label; callers reorder them for display.
func (ix *Index) TagsFor(ctx context.Context, ids []int64, tasks []string) (map[int64][]types.Tag, error) {
	defer ix.observe("tags_for", time.Now())
	out := make(map[int64][]types.Tag)
	if len(ids) == 0 {
		return out, nil
	}

	pred, idArg := ix.q.InList("paper_id", ids)
	query := `SELECT DISTINCT paper_id, task, label FROM prediction WHERE ` + pred
	args := []any{idArg}
	if len(tasks) > 0 {
		tpred, targs := labelIn("task", tasks)
		query += ` AND ` + tpred
		args = append(args, targs...)
	}
	query += ` ORDER BY paper_id, task, label`

	rows, err := ix.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id  int64
			tag types.Tag
		)
		if err := rows.Scan(&id, &tag.Task, &tag.Label); err != nil {
			return nil, fmt.Errorf("scanning tag: %w", err)
		}
		out[id] = append(out[id], tag)
	}
	return out, rows.Err()
}

// YearCount is the number of papers published in one year.
type YearCount struct {
	Year  int `json:"year" yaml:"year"`
	Count int `json:"count" yaml:"count"`
}

// YearFrequency counts papers per publication year within [from, to],
// ordered by year. A zero bound is open.
func (ix *Index) YearFrequency(ctx context.Context, from, to int) ([]YearCount, error) {
	defer ix.observe("year_frequency", time.Now())
	where, args := yearRange(from, to)
	rows, err := ix.q.QueryContext(ctx,
		`SELECT year, count(*) FROM paper`+where+` GROUP BY year ORDER BY year`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying timeline: %w", err)
	}
	defer rows.Close()

	var out []YearCount
	for rows.Next() {
		var yc YearCount
		if err := rows.Scan(&yc.Year, &yc.Count); err != nil {
			return nil, fmt.Errorf("scanning timeline: %w", err)
		}
		out = append(out, yc)
	}
	return out, rows.Err()
}

// YearPaperIDs returns the papers published within [from, to].
func (ix *Index) YearPaperIDs(ctx context.Context, from, to int) (mapset.Set[int64], error) {
	defer ix.observe("year_paper_ids", time.Now())
	where, args := yearRange(from, to)
	return ix.idSet(ctx, `SELECT id FROM paper`+where, args...)
}

func yearRange(from, to int) (string, []any) {
	switch {
	case from > 0 && to > 0:
		return ` WHERE year >= ? AND year <= ?`, []any{from, to}
	case from > 0:
		return ` WHERE year >= ?`, []any{from}
	case to > 0:
		return ` WHERE year <= ?`, []any{to}
	}
	return "", nil
}
