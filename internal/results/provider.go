// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package results serves sorted, paginated and tagged paper rows, single
// paper details and the flat export of a candidate set.
package results

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/litcurate/internal/filter"
	"github.com/pdiddy/litcurate/internal/logging"
	"github.com/pdiddy/litcurate/internal/metrics"
	"github.com/pdiddy/litcurate/pkg/types"
)

const defaultLabelSeparator = ", "

// Corpus is the part of the corpus store the provider reads.
type Corpus interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	InList(column string, ids []int64) (string, any)
	GetPaper(ctx context.Context, id int64) (*types.Paper, error)
	Spans(ctx context.Context, paperID int64) ([]types.EntitySpan, error)
}

// Tagger returns the (task, label) tags of papers.
type Tagger interface {
	TagsFor(ctx context.Context, ids []int64, tasks []string) (map[int64][]types.Tag, error)
}

// Provider serves result pages.
type Provider struct {
	corpus Corpus
	tags   Tagger
	log    *zap.Logger
	sep    string
}

// NewProvider creates a Provider.
func NewProvider(c Corpus, t Tagger, log *zap.Logger, cfg types.ExportConfig) *Provider {
	sep := cfg.LabelSeparator
	if sep == "" {
		sep = defaultLabelSeparator
	}
	return &Provider{corpus: c, tags: t, log: logging.OrNop(log), sep: sep}
}

// Row is one grid row.
type Row struct {
	ID             int64       `json:"id"`
	Title          string      `json:"title"`
	Abstract       string      `json:"abstract"`
	KeyTerms       string      `json:"key_terms"`
	DOI            string      `json:"doi"`
	Year           int         `json:"year"`
	Authors        string      `json:"authors"`
	LinkToFullText string      `json:"link_to_fulltext"`
	LinkToSource   string      `json:"link_to_source"`
	Tags           []types.Tag `json:"tags"`
}

// Page is one window of rows plus the size of the whole candidate set.
type Page struct {
	Rows          []Row `json:"rows"`
	TotalRowCount int   `json:"total_row_count"`
}

// Page returns rows [StartRow, EndRow) of the candidates, filtered by the
// column filters and sorted by the sort model. TotalRowCount counts every
// row that matches before the window is applied. Rows are tagged with the
// labels of set, in set order.
func (p *Provider) Page(ctx context.Context, cands filter.Candidates, set *filter.Set, req PageRequest) (*Page, error) {
	defer func(start time.Time) {
		d := metrics.ObserveSince("page", start)
		p.log.Debug("query finished", zap.String("operation", "page"), zap.Duration("duration", d))
	}(time.Now())

	if req.StartRow < 0 || req.EndRow < req.StartRow {
		return nil, fmt.Errorf("%w: window [%d, %d)", ErrInvalidRequest, req.StartRow, req.EndRow)
	}
	if req.EndRow-req.StartRow > MaxPageSize {
		return nil, fmt.Errorf("%w: window larger than %d rows", ErrInvalidRequest, MaxPageSize)
	}
	order, err := orderBy(req.SortModel)
	if err != nil {
		return nil, err
	}

	if !cands.Unrestricted() && cands.Len() == 0 {
		return &Page{Rows: []Row{}}, nil
	}

	where, args, err := p.where(cands, req.FilterModel)
	if err != nil {
		return nil, err
	}

	page := &Page{Rows: []Row{}}
	if err := p.corpus.QueryRowContext(ctx, `SELECT count(*) FROM paper p`+where, args...).Scan(&page.TotalRowCount); err != nil {
		return nil, fmt.Errorf("counting rows: %w", err)
	}
	if req.EndRow == req.StartRow || req.StartRow >= page.TotalRowCount {
		return page, nil
	}

	rows, err := p.corpus.QueryContext(ctx,
		`SELECT p.id, p.title, p.abstract, COALESCE(p.key_terms, ''), COALESCE(p.doi, ''), p.year, p.authors,
			COALESCE(p.link_to_fulltext, ''), COALESCE(p.link_to_source, '')
		 FROM paper p`+where+order+` LIMIT ? OFFSET ?`,
		append(args, req.EndRow-req.StartRow, req.StartRow)...)
	if err != nil {
		return nil, fmt.Errorf("querying rows: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ID, &r.Title, &r.Abstract, &r.KeyTerms, &r.DOI, &r.Year, &r.Authors,
			&r.LinkToFullText, &r.LinkToSource); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		r.Tags = []types.Tag{}
		page.Rows = append(page.Rows, r)
		ids = append(ids, r.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if set.Empty() || len(ids) == 0 {
		return page, nil
	}
	tags, err := p.tags.TagsFor(ctx, ids, set.Tasks())
	if err != nil {
		return nil, err
	}
	for i := range page.Rows {
		page.Rows[i].Tags = filter.OrderTags(set, tags[page.Rows[i].ID])
	}
	return page, nil
}

func (p *Provider) where(cands filter.Candidates, filters []ColumnFilter) (string, []any, error) {
	var (
		preds []string
		args  []any
	)
	if !cands.Unrestricted() {
		pred, arg := p.corpus.InList("p.id", cands.List())
		preds = append(preds, pred)
		args = append(args, arg)
	}
	for _, f := range filters {
		pred, fargs, err := f.clause()
		if err != nil {
			return "", nil, err
		}
		preds = append(preds, "("+pred+")")
		args = append(args, fargs...)
	}
	if len(preds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(preds, " AND "), args, nil
}

// Detail is a full paper record for the single-paper view.
type Detail struct {
	types.Paper
	Tags  []types.Tag        `json:"tags"`
	Spans []types.EntitySpan `json:"spans"`

	// Highlighted is the HTML-escaped prediction input with entity spans
	// wrapped in <mark> elements.
	Highlighted string `json:"highlighted"`
}

// Detail returns one paper with all of its tags, the tags selected by set
// first and in set order, and its highlighted text.
func (p *Provider) Detail(ctx context.Context, id int64, set *filter.Set) (*Detail, error) {
	paper, err := p.corpus.GetPaper(ctx, id)
	if err != nil {
		return nil, err
	}
	spans, err := p.corpus.Spans(ctx, id)
	if err != nil {
		return nil, err
	}
	tags, err := p.tags.TagsFor(ctx, []int64{id}, nil)
	if err != nil {
		return nil, err
	}

	all := tags[id]
	ordered := filter.OrderTags(set, all)
	selected := make(map[types.Tag]bool, len(ordered))
	for _, t := range ordered {
		selected[t] = true
	}
	var rest []types.Tag
	for _, t := range all {
		if !selected[t] {
			rest = append(rest, t)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool {
		if rest[i].Task != rest[j].Task {
			return rest[i].Task < rest[j].Task
		}
		return rest[i].Label < rest[j].Label
	})

	if spans == nil {
		spans = []types.EntitySpan{}
	}
	return &Detail{
		Paper:       *paper,
		Tags:        append(ordered, rest...),
		Spans:       spans,
		Highlighted: Highlight(paper.PredictionInput, spans),
	}, nil
}
