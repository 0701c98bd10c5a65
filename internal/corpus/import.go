// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/litcurate/pkg/types"
)

// Provenance is the metadata sidecar that accompanies a retrieval feed.
type Provenance struct {
	RetrievedAt time.Time     `yaml:"retrieved_at"`
	Duration    time.Duration `yaml:"duration"`
}

// LoadProvenance reads a provenance YAML file. A missing file yields a
// zero Provenance, which records the batch at import time.
func LoadProvenance(path string) (Provenance, error) {
	var p Provenance
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("reading provenance %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parsing provenance %s: %w", path, err)
	}
	return p, nil
}

// Progress receives one tick per processed row.
type Progress interface {
	Add(n int) error
}

// ImportSummary holds counts from one feed import.
type ImportSummary struct {
	BatchID    int64
	Inserted   int
	Duplicates int
	Skipped    int
	Failed     int
}

// Total returns the number of rows processed.
func (s ImportSummary) Total() int {
	return s.Inserted + s.Duplicates + s.Skipped + s.Failed
}

func (s ImportSummary) String() string {
	return fmt.Sprintf("inserted: %d, duplicates: %d, skipped: %d, failed: %d",
		s.Inserted, s.Duplicates, s.Skipped, s.Failed)
}

// csvFeed maps header names to column positions.
type csvFeed struct {
	r   *csv.Reader
	col map[string]int
}

func newCSVFeed(r io.Reader) (*csvFeed, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return &csvFeed{r: cr, col: col}, nil
}

// get returns the first non-empty value among the named columns.
func (f *csvFeed) get(rec []string, names ...string) string {
	for _, n := range names {
		if i, ok := f.col[n]; ok && i < len(rec) {
			if v := strings.TrimSpace(rec[i]); v != "" {
				return v
			}
		}
	}
	return ""
}

// getRaw returns the named column untrimmed, for text that offsets index into.
func (f *csvFeed) getRaw(rec []string, name string) string {
	if i, ok := f.col[name]; ok && i < len(rec) {
		return rec[i]
	}
	return ""
}

func (f *csvFeed) require(names ...string) error {
	for _, n := range names {
		if _, ok := f.col[n]; !ok {
			return fmt.Errorf("feed is missing column %q", n)
		}
	}
	return nil
}

// ImportPapers reads a papers CSV feed (id, title, abstract, year, doi,
// keywords, authors, ...), records one retrieval batch for it, and inserts
// every paper that is not a duplicate. Bad rows are reported on w and
// skipped; they never abort the feed.
//
// Numeric feed ids are stored unchanged, since the predictions and spans
// feeds reference papers by them. A row whose id belongs to a different
// stored paper fails with ErrIDConflict instead of being renumbered, so a
// later prediction for that id can only reach the paper that owns it.
func (s *Store) ImportPapers(ctx context.Context, r io.Reader, prov Provenance, w io.Writer, progress Progress) (ImportSummary, error) {
	feed, err := newCSVFeed(r)
	if err != nil {
		return ImportSummary{}, err
	}
	if err := feed.require("title"); err != nil {
		return ImportSummary{}, err
	}

	batchID, err := s.InsertBatch(ctx, types.RetrievalBatch{
		RetrievedAt: prov.RetrievedAt,
		Duration:    prov.Duration,
	})
	if err != nil {
		return ImportSummary{}, err
	}
	summary := ImportSummary{BatchID: batchID}

	for line := 2; ; line++ {
		rec, err := feed.r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if progress != nil {
			progress.Add(1)
		}
		if err != nil {
			fmt.Fprintf(w, "failed  line %d: %v\n", line, err)
			summary.Failed++
			continue
		}

		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		p, err := paperFromRecord(feed, rec)
		if err != nil {
			fmt.Fprintf(w, "skipped line %d: %v\n", line, err)
			summary.Skipped++
			continue
		}
		p.RetrievalID = batchID

		_, _, err = s.InsertPaper(ctx, p)
		switch {
		case errors.Is(err, ErrDuplicate):
			fmt.Fprintf(w, "dup     line %d: %v\n", line, err)
			summary.Duplicates++
		case err != nil:
			fmt.Fprintf(w, "failed  line %d: %v\n", line, err)
			summary.Failed++
		default:
			summary.Inserted++
		}
	}

	if err := s.SetBatchPaperCount(ctx, batchID, summary.Inserted); err != nil {
		return summary, err
	}

	s.log.Info("paper feed imported",
		zap.Int64("batch_id", batchID), zap.Int("inserted", summary.Inserted),
		zap.Int("duplicates", summary.Duplicates), zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed))
	fmt.Fprintf(w, "\n%s\n", summary)
	return summary, nil
}

func paperFromRecord(feed *csvFeed, rec []string) (types.Paper, error) {
	p := types.Paper{
		Title:          feed.get(rec, "title"),
		Abstract:       feed.get(rec, "abstract"),
		KeyTerms:       feed.get(rec, "keywords", "key_terms"),
		DOI:            feed.get(rec, "doi"),
		Authors:        feed.get(rec, "authors"),
		ExternalID:     feed.get(rec, "external_id", "pmid", "pubmed_id"),
		LinkToFullText: feed.get(rec, "link_to_fulltext", "fulltext_url"),
		LinkToSource:   feed.get(rec, "link_to_source", "source_url"),
	}
	if p.Title == "" {
		return p, fmt.Errorf("empty title")
	}

	yearStr := feed.get(rec, "year", "publication_year")
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return p, fmt.Errorf("invalid year %q", yearStr)
	}
	p.Year = year

	if idStr := feed.get(rec, "id"); idStr != "" {
		if id, err := strconv.ParseInt(idStr, 10, 64); err == nil {
			p.ID = id
		} else if p.ExternalID == "" {
			// Non-numeric source ids (e.g. OpenAlex URLs) become the external id.
			p.ExternalID = idStr
		}
	}
	// Span offsets index into the text the classifier saw, so a feed that
	// ships it wins over the rebuilt one.
	p.PredictionInput = feed.getRaw(rec, "prediction_input")
	if p.PredictionInput == "" {
		p.PredictionInput = types.BuildPredictionInput(p.Title, p.Abstract)
	}
	return p, nil
}

// ImportAnnotations reads an inference output CSV (paper_id, task, label,
// probability, model, is_multilabel). Paper references are checked in
// bulk; rows for unknown papers and invalid rows are skipped.
func (s *Store) ImportAnnotations(ctx context.Context, r io.Reader, w io.Writer, progress Progress) (ImportSummary, error) {
	feed, err := newCSVFeed(r)
	if err != nil {
		return ImportSummary{}, err
	}
	if err := feed.require("task", "label", "probability"); err != nil {
		return ImportSummary{}, err
	}

	var summary ImportSummary
	byPaper := make(map[int64][]types.Annotation)
	var order []int64

	for line := 2; ; line++ {
		rec, err := feed.r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if progress != nil {
			progress.Add(1)
		}
		if err != nil {
			fmt.Fprintf(w, "failed  line %d: %v\n", line, err)
			summary.Failed++
			continue
		}
		a, err := annotationFromRecord(feed, rec)
		if err == nil {
			err = ValidateAnnotation(a)
		}
		if err != nil {
			fmt.Fprintf(w, "skipped line %d: %v\n", line, err)
			summary.Skipped++
			continue
		}
		if _, seen := byPaper[a.PaperID]; !seen {
			order = append(order, a.PaperID)
		}
		byPaper[a.PaperID] = append(byPaper[a.PaperID], a)
	}

	existing, err := s.ExistingPaperIDs(ctx, order)
	if err != nil {
		return summary, err
	}

	for _, paperID := range order {
		anns := byPaper[paperID]
		if !existing.Contains(paperID) {
			s.log.Warn("annotations reference unknown paper, skipped",
				zap.Int64("paper_id", paperID), zap.Int("annotations", len(anns)))
			fmt.Fprintf(w, "skipped paper %d: %v\n", paperID, ErrMissingReference)
			summary.Skipped += len(anns)
			continue
		}
		n, err := s.InsertAnnotations(ctx, paperID, anns)
		if err != nil {
			fmt.Fprintf(w, "failed  paper %d: %v\n", paperID, err)
			summary.Failed += len(anns)
			continue
		}
		summary.Inserted += n
		summary.Duplicates += len(anns) - n
	}

	fmt.Fprintf(w, "\n%s\n", summary)
	return summary, nil
}

func annotationFromRecord(feed *csvFeed, rec []string) (types.Annotation, error) {
	var a types.Annotation
	idStr := feed.get(rec, "paper_id", "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return a, fmt.Errorf("invalid paper id %q", idStr)
	}
	prob, err := strconv.ParseFloat(feed.get(rec, "probability"), 64)
	if err != nil {
		return a, fmt.Errorf("invalid probability: %w", err)
	}
	multi := false
	if v := feed.get(rec, "is_multilabel", "multilabel"); v != "" {
		multi, err = strconv.ParseBool(v)
		if err != nil {
			return a, fmt.Errorf("invalid is_multilabel %q", v)
		}
	}
	a = types.Annotation{
		PaperID:     id,
		Task:        feed.get(rec, "task"),
		Label:       feed.get(rec, "label"),
		Probability: prob,
		Model:       feed.get(rec, "model"),
		Multilabel:  multi,
	}
	return a, nil
}

// ImportSpans reads an entity span CSV (paper_id, tag, start, end, text,
// probability, model).
func (s *Store) ImportSpans(ctx context.Context, r io.Reader, w io.Writer, progress Progress) (ImportSummary, error) {
	feed, err := newCSVFeed(r)
	if err != nil {
		return ImportSummary{}, err
	}
	if err := feed.require("tag", "start", "end"); err != nil {
		return ImportSummary{}, err
	}

	var summary ImportSummary
	byPaper := make(map[int64][]types.EntitySpan)
	var order []int64

	for line := 2; ; line++ {
		rec, err := feed.r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if progress != nil {
			progress.Add(1)
		}
		if err != nil {
			fmt.Fprintf(w, "failed  line %d: %v\n", line, err)
			summary.Failed++
			continue
		}
		sp, err := spanFromRecord(feed, rec)
		if err != nil {
			fmt.Fprintf(w, "skipped line %d: %v\n", line, err)
			summary.Skipped++
			continue
		}
		if _, seen := byPaper[sp.PaperID]; !seen {
			order = append(order, sp.PaperID)
		}
		byPaper[sp.PaperID] = append(byPaper[sp.PaperID], sp)
	}

	for _, paperID := range order {
		spans := byPaper[paperID]
		n, err := s.InsertSpans(ctx, paperID, spans)
		if errors.Is(err, ErrMissingReference) {
			fmt.Fprintf(w, "skipped paper %d: %v\n", paperID, err)
			summary.Skipped += len(spans)
			continue
		}
		if err != nil {
			fmt.Fprintf(w, "failed  paper %d: %v\n", paperID, err)
			summary.Failed += len(spans)
			continue
		}
		summary.Inserted += n
		summary.Skipped += len(spans) - n
	}

	fmt.Fprintf(w, "\n%s\n", summary)
	return summary, nil
}

func spanFromRecord(feed *csvFeed, rec []string) (types.EntitySpan, error) {
	var sp types.EntitySpan
	id, err := strconv.ParseInt(feed.get(rec, "paper_id", "id"), 10, 64)
	if err != nil {
		return sp, fmt.Errorf("invalid paper id: %w", err)
	}
	start, err := strconv.Atoi(feed.get(rec, "start", "start_id"))
	if err != nil {
		return sp, fmt.Errorf("invalid start: %w", err)
	}
	end, err := strconv.Atoi(feed.get(rec, "end", "end_id"))
	if err != nil {
		return sp, fmt.Errorf("invalid end: %w", err)
	}
	prob := 0.0
	if v := feed.get(rec, "probability"); v != "" {
		if prob, err = strconv.ParseFloat(v, 64); err != nil {
			return sp, fmt.Errorf("invalid probability: %w", err)
		}
	}
	return types.EntitySpan{
		PaperID:     id,
		Tag:         feed.get(rec, "tag"),
		Start:       start,
		End:         end,
		Text:        feed.get(rec, "text"),
		Probability: prob,
		Model:       feed.get(rec, "model"),
	}, nil
}
