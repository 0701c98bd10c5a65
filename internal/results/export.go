// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package results

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/litcurate/internal/filter"
)

// paperColumns lead every export row.
var paperColumns = []string{"id", "title", "year", "doi", "authors"}

// Table is a flat export: one row per paper, one column per task.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Export flattens the candidates into a table. Each task becomes a column
// holding the paper's labels joined by the configured separator. With a
// non-empty set only the set's tasks and labels are exported, in set
// order; otherwise every task is exported in alphabetical order.
func (p *Provider) Export(ctx context.Context, cands filter.Candidates, set *filter.Set) (*Table, error) {
	start := time.Now()
	table := &Table{}
	if !cands.Unrestricted() && cands.Len() == 0 {
		table.Columns = append([]string(nil), paperColumns...)
		return table, nil
	}

	query := `SELECT p.id, p.title, p.year, COALESCE(p.doi, ''), p.authors FROM paper p`
	var args []any
	if !cands.Unrestricted() {
		pred, arg := p.corpus.InList("p.id", cands.List())
		query += ` WHERE ` + pred
		args = append(args, arg)
	}
	query += ` ORDER BY p.year DESC, p.id ASC`

	rows, err := p.corpus.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying export rows: %w", err)
	}
	defer rows.Close()

	var (
		ids  []int64
		base [][]string
	)
	for rows.Next() {
		var (
			id                  int64
			title, doi, authors string
			year                int
		)
		if err := rows.Scan(&id, &title, &year, &doi, &authors); err != nil {
			return nil, fmt.Errorf("scanning export row: %w", err)
		}
		ids = append(ids, id)
		base = append(base, []string{strconv.FormatInt(id, 10), title, strconv.Itoa(year), doi, authors})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tags, err := p.tags.TagsFor(ctx, ids, set.Tasks())
	if err != nil {
		return nil, err
	}

	var tasks []string
	if set.Empty() {
		seen := make(map[string]bool)
		for _, ts := range tags {
			for _, t := range ts {
				if !seen[t.Task] {
					seen[t.Task] = true
					tasks = append(tasks, t.Task)
				}
			}
		}
		sort.Strings(tasks)
	} else {
		tasks = set.Tasks()
	}

	table.Columns = append(append([]string(nil), paperColumns...), tasks...)
	table.Rows = make([][]string, len(ids))
	for i, id := range ids {
		paperTags := tags[id]
		if !set.Empty() {
			paperTags = filter.OrderTags(set, paperTags)
		}
		byTask := make(map[string][]string)
		for _, t := range paperTags {
			byTask[t.Task] = append(byTask[t.Task], t.Label)
		}
		row := base[i]
		for _, task := range tasks {
			row = append(row, strings.Join(byTask[task], p.sep))
		}
		table.Rows[i] = row
	}

	p.log.Debug("export built", zap.Int("rows", len(table.Rows)), zap.Int("tasks", len(tasks)),
		zap.Duration("duration", time.Since(start)))
	return table, nil
}

// WriteCSV writes the table with a header row.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("writing rows: %w", err)
	}
	return nil
}
