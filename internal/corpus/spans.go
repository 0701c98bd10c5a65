// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/pdiddy/litcurate/internal/metrics"
	"github.com/pdiddy/litcurate/pkg/types"
)

// InsertSpans stores entity spans for one paper and returns how many were
// written. Spans whose offsets fall outside the paper's prediction input
// are logged and skipped.
func (s *Store) InsertSpans(ctx context.Context, paperID int64, spans []types.EntitySpan) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var input string
	err := s.QueryRowContext(ctx, `SELECT prediction_input FROM paper WHERE id = ?`, paperID).Scan(&input)
	if errors.Is(err, sql.ErrNoRows) {
		s.log.Warn("entity spans reference unknown paper, skipped", zap.Int64("paper_id", paperID))
		return 0, fmt.Errorf("paper %d: %w", paperID, ErrMissingReference)
	}
	if err != nil {
		return 0, fmt.Errorf("looking up paper %d: %w", paperID, err)
	}
	length := utf8.RuneCountInString(input)

	var inserted int
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		inserted = 0
		for _, sp := range spans {
			if err := validateSpan(sp, length); err != nil {
				s.log.Warn("entity span skipped", zap.Int64("paper_id", paperID), zap.Error(err))
				metrics.Ingested("span", "invalid")
				continue
			}
			_, err := s.exec(ctx, tx,
				`INSERT INTO ner_tag (paper_id, tag, start_id, end_id, text, probability, model)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				paperID, sp.Tag, sp.Start, sp.End, sp.Text, sp.Probability, sp.Model)
			if err != nil {
				return fmt.Errorf("inserting span %s [%d,%d): %w", sp.Tag, sp.Start, sp.End, err)
			}
			inserted++
			metrics.Ingested("span", "inserted")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func validateSpan(sp types.EntitySpan, length int) error {
	if sp.Tag == "" {
		return fmt.Errorf("%w: empty tag", ErrInvalidSpan)
	}
	if sp.Start < 0 || sp.Start >= sp.End || sp.End > length {
		return fmt.Errorf("%w: [%d,%d) outside input of length %d", ErrInvalidSpan, sp.Start, sp.End, length)
	}
	return nil
}

// Spans returns a paper's entity spans ordered by start offset.
func (s *Store) Spans(ctx context.Context, paperID int64) ([]types.EntitySpan, error) {
	rows, err := s.QueryContext(ctx,
		`SELECT id, paper_id, tag, start_id, end_id, text, probability, model
		 FROM ner_tag WHERE paper_id = ? ORDER BY start_id, end_id`, paperID)
	if err != nil {
		return nil, fmt.Errorf("querying spans: %w", err)
	}
	defer rows.Close()

	var out []types.EntitySpan
	for rows.Next() {
		var sp types.EntitySpan
		if err := rows.Scan(&sp.ID, &sp.PaperID, &sp.Tag, &sp.Start, &sp.End, &sp.Text, &sp.Probability, &sp.Model); err != nil {
			return nil, fmt.Errorf("scanning span: %w", err)
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}
