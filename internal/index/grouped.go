// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// GroupedRow is one (group label, task label, paper) triple of a two-task
// join.
type GroupedRow struct {
	Group   string `json:"group" yaml:"group"`
	Label   string `json:"label" yaml:"label"`
	PaperID int64  `json:"paper_id" yaml:"paper_id"`
}

// GroupCount is a GroupedRow aggregate: the number of distinct papers per
// (group, label).
type GroupCount struct {
	Group string `json:"group" yaml:"group"`
	Label string `json:"label" yaml:"label"`
	Count int    `json:"count" yaml:"count"`
}

type groupKey struct {
	group, label string
	paper        int64
}

// GroupedLabels joins task with groupTask through shared papers.
//
// With no labels every label of task is returned. With labels and no Other
// entry only those labels are joined; the remaining labels are left out of
// the result rather than reported under their own names, which keeps the
// join bounded by the listed labels. When labels includes Other, every
// label of task outside the list is reported as Other, so no paper is
// dropped. Rows are ordered by paper, group and label, without duplicates.
func (ix *Index) GroupedLabels(ctx context.Context, task, groupTask string, labels []string) ([]GroupedRow, error) {
	defer ix.observe("grouped_labels", time.Now())
	if err := ix.requireTask(ctx, task); err != nil {
		return nil, err
	}
	if err := ix.requireTask(ctx, groupTask); err != nil {
		return nil, err
	}

	keep, collapse := WithoutOther(labels)
	restrict := len(keep) > 0 && !collapse
	kept := make(map[string]bool, len(keep))
	for _, l := range keep {
		kept[l] = true
	}

	fast, err := ix.fastPath(ctx, "grouped_labels")
	if err != nil {
		return nil, err
	}

	var raw []GroupedRow
	if fast {
		raw, err = ix.groupedJoin(ctx, task, groupTask, keep, restrict)
	} else {
		raw, err = ix.groupedHashJoin(ctx, task, groupTask, kept, restrict)
	}
	if err != nil {
		return nil, err
	}

	seen := make(map[groupKey]bool, len(raw))
	out := make([]GroupedRow, 0, len(raw))
	for _, r := range raw {
		if collapse && !kept[r.Label] {
			r.Label = Other
		}
		k := groupKey{r.Group, r.Label, r.PaperID}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.PaperID != b.PaperID {
			return a.PaperID < b.PaperID
		}
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		return a.Label < b.Label
	})
	return out, nil
}

func (ix *Index) groupedJoin(ctx context.Context, task, groupTask string, keep []string, restrict bool) ([]GroupedRow, error) {
	query := `SELECT DISTINCT g.label, t.label, t.paper_id
		FROM prediction t
		JOIN prediction g ON g.paper_id = t.paper_id AND g.task = ?
		WHERE t.task = ?`
	args := []any{groupTask, task}
	if restrict {
		pred, largs := labelIn("t.label", keep)
		query += ` AND ` + pred
		args = append(args, largs...)
	}

	rows, err := ix.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("joining %s with %s: %w", task, groupTask, err)
	}
	defer rows.Close()

	var out []GroupedRow
	for rows.Next() {
		var r GroupedRow
		if err := rows.Scan(&r.Group, &r.Label, &r.PaperID); err != nil {
			return nil, fmt.Errorf("scanning grouped row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// groupedHashJoin loads both tasks and joins them in memory.
func (ix *Index) groupedHashJoin(ctx context.Context, task, groupTask string, kept map[string]bool, restrict bool) ([]GroupedRow, error) {
	groups, err := ix.labelsByPaper(ctx, groupTask)
	if err != nil {
		return nil, err
	}

	rows, err := ix.q.QueryContext(ctx, `SELECT paper_id, label FROM prediction WHERE task = ?`, task)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", task, err)
	}
	defer rows.Close()

	var out []GroupedRow
	for rows.Next() {
		var (
			id    int64
			label string
		)
		if err := rows.Scan(&id, &label); err != nil {
			return nil, fmt.Errorf("scanning prediction: %w", err)
		}
		if restrict && !kept[label] {
			continue
		}
		for _, g := range groups[id] {
			out = append(out, GroupedRow{Group: g, Label: label, PaperID: id})
		}
	}
	return out, rows.Err()
}

func (ix *Index) labelsByPaper(ctx context.Context, task string) (map[int64][]string, error) {
	rows, err := ix.q.QueryContext(ctx, `SELECT paper_id, label FROM prediction WHERE task = ?`, task)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", task, err)
	}
	defer rows.Close()

	out := make(map[int64][]string)
	for rows.Next() {
		var (
			id    int64
			label string
		)
		if err := rows.Scan(&id, &label); err != nil {
			return nil, fmt.Errorf("scanning prediction: %w", err)
		}
		out[id] = append(out[id], label)
	}
	return out, rows.Err()
}

// Aggregate counts distinct papers per (group, label). The result is
// ordered by group, then count descending, then label.
func Aggregate(rows []GroupedRow) []GroupCount {
	type key struct{ group, label string }
	papers := make(map[key]map[int64]struct{})
	for _, r := range rows {
		k := key{r.Group, r.Label}
		if papers[k] == nil {
			papers[k] = make(map[int64]struct{})
		}
		papers[k][r.PaperID] = struct{}{}
	}

	out := make([]GroupCount, 0, len(papers))
	for k, ids := range papers {
		out = append(out, GroupCount{Group: k.group, Label: k.label, Count: len(ids)})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Label < b.Label
	})
	return out
}
