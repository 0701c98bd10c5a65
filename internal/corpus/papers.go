// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"

	"github.com/pdiddy/litcurate/internal/metrics"
	"github.com/pdiddy/litcurate/pkg/types"
)

// paperKeys is an in-memory copy of the natural keys already stored, so
// duplicate detection during an import costs a map lookup per row.
// Rows written by another process are still caught by the indexed store
// lookups that follow a cache miss.
type paperKeys struct {
	byExternal  map[string]int64
	byTitleYear map[string]int64
	ids         map[int64]struct{}
}

func (k *paperKeys) add(id int64, externalID, titleYear string) {
	if externalID != "" {
		k.byExternal[externalID] = id
	}
	k.byTitleYear[titleYear] = id
	k.ids[id] = struct{}{}
}

// loadKeys fills s.keys on first use. Callers hold s.mu.
func (s *Store) loadKeys(ctx context.Context) error {
	if s.keys != nil {
		return nil
	}
	rows, err := s.QueryContext(ctx, `SELECT id, COALESCE(external_id, ''), title_key FROM paper`)
	if err != nil {
		return fmt.Errorf("loading paper keys: %w", err)
	}
	defer rows.Close()

	keys := &paperKeys{
		byExternal:  make(map[string]int64),
		byTitleYear: make(map[string]int64),
		ids:         make(map[int64]struct{}),
	}
	for rows.Next() {
		var (
			id                  int64
			externalID, titleYr string
		)
		if err := rows.Scan(&id, &externalID, &titleYr); err != nil {
			return fmt.Errorf("scanning paper key: %w", err)
		}
		keys.add(id, externalID, titleYr)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	s.keys = keys
	return nil
}

// InsertBatch records a retrieval run and returns its id.
func (s *Store) InsertBatch(ctx context.Context, batch types.RetrievalBatch) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	retrievedAt := batch.RetrievedAt
	if retrievedAt.IsZero() {
		retrievedAt = time.Now()
	}

	var id int64
	err := s.retryBusy(ctx, func() error {
		return s.QueryRowContext(ctx,
			`INSERT INTO batch_retrieval (date, number_new_papers, retrieval_time_ms)
			 VALUES (?, ?, ?) RETURNING id`,
			retrievedAt.UTC().Format(time.RFC3339Nano), batch.NewPaperCount, batch.Duration.Milliseconds(),
		).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("inserting batch: %w", err)
	}
	return id, nil
}

// SetBatchPaperCount records how many papers a batch actually contributed.
func (s *Store) SetBatchPaperCount(ctx context.Context, batchID int64, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := s.exec(ctx, tx, `UPDATE batch_retrieval SET number_new_papers = ? WHERE id = ?`, n, batchID)
		if err != nil {
			return fmt.Errorf("updating batch %d: %w", batchID, err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return fmt.Errorf("batch %d: %w", batchID, ErrNotFound)
		}
		return nil
	})
}

// GetBatch returns the retrieval batch with the given id.
func (s *Store) GetBatch(ctx context.Context, id int64) (*types.RetrievalBatch, error) {
	var (
		b        types.RetrievalBatch
		date     string
		duration int64
	)
	err := s.QueryRowContext(ctx,
		`SELECT id, date, number_new_papers, retrieval_time_ms FROM batch_retrieval WHERE id = ?`, id,
	).Scan(&b.ID, &date, &b.NewPaperCount, &duration)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("batch %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("looking up batch: %w", err)
	}
	b.RetrievedAt, _ = time.Parse(time.RFC3339Nano, date)
	b.Duration = time.Duration(duration) * time.Millisecond
	return &b, nil
}

// InsertPaper stores p and returns its id. Duplicates are detected by
// external id first, then by normalized title plus year; for a duplicate
// nothing is written and the existing id is returned with a
// *DuplicateError, so errors.Is(err, ErrDuplicate) holds.
//
// A non-zero p.ID is the source's id and is stored as given, because
// annotation and span feeds reference papers by it. When a different paper
// already holds that id the row is refused with ErrIDConflict. A zero p.ID
// takes the next free id.
func (s *Store) InsertPaper(ctx context.Context, p types.Paper) (id int64, inserted bool, err error) {
	if strings.TrimSpace(p.Title) == "" {
		return 0, false, fmt.Errorf("paper title is required")
	}
	if p.RetrievalID == 0 {
		return 0, false, fmt.Errorf("paper %q: retrieval batch is required", p.Title)
	}
	if p.PredictionInput == "" {
		p.PredictionInput = types.BuildPredictionInput(p.Title, p.Abstract)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadKeys(ctx); err != nil {
		return 0, false, err
	}

	titleKey := p.TitleYearKey()
	if existing, ok, err := s.findDuplicate(ctx, p.ExternalID, titleKey); err != nil {
		return 0, false, err
	} else if ok {
		dup := &DuplicateError{Kind: "paper", ExistingID: existing}
		s.log.Warn("duplicate paper skipped",
			zap.Int64("existing_id", existing),
			zap.Int64("source_id", p.ID),
			zap.String("external_id", p.ExternalID),
			zap.String("title", p.Title),
			zap.Int("year", p.Year),
			zap.Error(dup))
		metrics.Ingested("paper", "duplicate")
		return existing, false, dup
	}

	if _, taken := s.keys.ids[p.ID]; p.ID > 0 && taken {
		metrics.Ingested("paper", "id_conflict")
		return 0, false, fmt.Errorf("paper %d %q: %w", p.ID, p.Title, ErrIDConflict)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		id = p.ID
		if id <= 0 {
			// Read inside the transaction so ids written by another process count.
			if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM paper`).Scan(&id); err != nil {
				return fmt.Errorf("allocating paper id: %w", err)
			}
		} else {
			var holder int64
			err := tx.QueryRowContext(ctx, s.dialect.rebind(`SELECT id FROM paper WHERE id = ?`), id).Scan(&holder)
			if err == nil {
				return fmt.Errorf("paper %d %q: %w", id, p.Title, ErrIDConflict)
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("checking paper id %d: %w", id, err)
			}
		}
		_, err := s.exec(ctx, tx,
			`INSERT INTO paper (id, external_id, title, title_key, abstract, prediction_input,
				key_terms, doi, year, authors, link_to_fulltext, link_to_source, retrieval_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, nullString(p.ExternalID), p.Title, titleKey, p.Abstract, p.PredictionInput,
			nullString(p.KeyTerms), nullString(p.DOI), p.Year, p.Authors,
			nullString(p.LinkToFullText), nullString(p.LinkToSource), p.RetrievalID,
		)
		return err
	})
	if errors.Is(err, ErrIDConflict) {
		metrics.Ingested("paper", "id_conflict")
		return 0, false, err
	}
	if err != nil {
		metrics.Ingested("paper", "failed")
		return 0, false, fmt.Errorf("inserting paper %q: %w", p.Title, err)
	}

	s.keys.add(id, p.ExternalID, titleKey)
	metrics.Ingested("paper", "inserted")
	return id, true, nil
}

// findDuplicate checks the key cache, then the store. Callers hold s.mu.
func (s *Store) findDuplicate(ctx context.Context, externalID, titleKey string) (int64, bool, error) {
	if externalID != "" {
		if id, ok := s.keys.byExternal[externalID]; ok {
			return id, true, nil
		}
		if id, ok, err := s.lookupID(ctx, `SELECT id FROM paper WHERE external_id = ? LIMIT 1`, externalID); err != nil || ok {
			return id, ok, err
		}
	}
	if id, ok := s.keys.byTitleYear[titleKey]; ok {
		return id, true, nil
	}
	return s.lookupID(ctx, `SELECT id FROM paper WHERE title_key = ? LIMIT 1`, titleKey)
}

func (s *Store) lookupID(ctx context.Context, query string, arg any) (int64, bool, error) {
	var id int64
	err := s.QueryRowContext(ctx, query, arg).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("checking for duplicate paper: %w", err)
	}
	return id, true, nil
}

// GetPaper returns the paper with the given id or ErrNotFound.
func (s *Store) GetPaper(ctx context.Context, id int64) (*types.Paper, error) {
	var (
		p                                              types.Paper
		externalID, keyTerms, doi, fullText, sourceURL sql.NullString
	)
	err := s.QueryRowContext(ctx,
		`SELECT id, external_id, title, abstract, prediction_input, key_terms, doi, year,
			authors, link_to_fulltext, link_to_source, retrieval_id
		 FROM paper WHERE id = ?`, id,
	).Scan(&p.ID, &externalID, &p.Title, &p.Abstract, &p.PredictionInput, &keyTerms, &doi,
		&p.Year, &p.Authors, &fullText, &sourceURL, &p.RetrievalID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("paper %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("looking up paper %d: %w", id, err)
	}
	p.ExternalID = externalID.String
	p.KeyTerms = keyTerms.String
	p.DOI = doi.String
	p.LinkToFullText = fullText.String
	p.LinkToSource = sourceURL.String
	return &p, nil
}

// CountPapers returns the corpus size.
func (s *Store) CountPapers(ctx context.Context) (int, error) {
	var n int
	if err := s.QueryRowContext(ctx, `SELECT count(*) FROM paper`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting papers: %w", err)
	}
	return n, nil
}

// ExistingPaperIDs returns the subset of ids present in the store, using one
// query for the whole list.
func (s *Store) ExistingPaperIDs(ctx context.Context, ids []int64) (mapset.Set[int64], error) {
	found := mapset.NewThreadUnsafeSet[int64]()
	if len(ids) == 0 {
		return found, nil
	}
	pred, arg := s.InList("id", ids)
	rows, err := s.QueryContext(ctx, `SELECT id FROM paper WHERE `+pred, arg)
	if err != nil {
		return nil, fmt.Errorf("checking paper ids: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning paper id: %w", err)
		}
		found.Add(id)
	}
	return found, rows.Err()
}

// paperExists consults the key cache when loaded. Callers hold s.mu.
func (s *Store) paperExists(ctx context.Context, id int64) (bool, error) {
	if s.keys != nil {
		if _, ok := s.keys.ids[id]; ok {
			return true, nil
		}
	}
	_, ok, err := s.lookupID(ctx, `SELECT id FROM paper WHERE id = ?`, id)
	return ok, err
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
