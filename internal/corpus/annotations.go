// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/litcurate/internal/metrics"
	"github.com/pdiddy/litcurate/pkg/types"
)

// InsertAnnotations appends annotations for one paper and returns how many
// rows were written. Tuples that collide on (paper, task, label, model) and
// tuples that fail validation are logged and skipped. A paper id absent from
// the store yields ErrMissingReference and writes nothing.
//
// The PaperID field of each annotation is ignored in favor of paperID.
//
// Single-label tasks are not enforced here: when a task flagged as not
// multilabel ends up with more than one label on a paper, a warning is
// logged and the rows are kept.
func (s *Store) InsertAnnotations(ctx context.Context, paperID int64, anns []types.Annotation) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.paperExists(ctx, paperID)
	if err != nil {
		return 0, err
	}
	if !ok {
		s.log.Warn("annotations reference unknown paper, skipped",
			zap.Int64("paper_id", paperID), zap.Int("annotations", len(anns)))
		metrics.IngestTotal.WithLabelValues("annotation", "missing_reference").Add(float64(len(anns)))
		return 0, fmt.Errorf("paper %d: %w", paperID, ErrMissingReference)
	}

	var inserted int
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		inserted = 0
		stmt, err := tx.PrepareContext(ctx, s.dialect.rebind(
			`INSERT INTO prediction (paper_id, task, label, probability, model, is_multilabel)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT (paper_id, task, label, model) DO NOTHING`))
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()

		singleLabel := make(map[string]bool)
		for _, a := range anns {
			if err := ValidateAnnotation(a); err != nil {
				s.log.Warn("invalid annotation skipped",
					zap.Int64("paper_id", paperID), zap.String("task", a.Task), zap.Error(err))
				metrics.Ingested("annotation", "invalid")
				continue
			}
			res, err := stmt.ExecContext(ctx, paperID, a.Task, a.Label, a.Probability, a.Model, a.Multilabel)
			if err != nil {
				return fmt.Errorf("inserting annotation %s=%s: %w", a.Task, a.Label, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				s.log.Warn("duplicate annotation skipped",
					zap.Int64("paper_id", paperID), zap.String("task", a.Task),
					zap.String("label", a.Label), zap.String("model", a.Model),
					zap.Error(&DuplicateError{Kind: "annotation", ExistingID: paperID}))
				metrics.Ingested("annotation", "duplicate")
				continue
			}
			inserted++
			metrics.Ingested("annotation", "inserted")
			if !a.Multilabel {
				singleLabel[a.Task] = true
			}
		}

		for task := range singleLabel {
			var labels int
			err := tx.QueryRowContext(ctx, s.dialect.rebind(
				`SELECT count(DISTINCT label) FROM prediction WHERE paper_id = ? AND task = ?`),
				paperID, task,
			).Scan(&labels)
			if err != nil {
				return fmt.Errorf("checking labels of %s: %w", task, err)
			}
			if labels > 1 {
				s.log.Warn("single-label task carries several labels",
					zap.Int64("paper_id", paperID), zap.String("task", task), zap.Int("labels", labels))
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// AnnotationsFor returns every annotation of the given papers ordered by
// paper, task and label.
func (s *Store) AnnotationsFor(ctx context.Context, paperIDs []int64) ([]types.Annotation, error) {
	if len(paperIDs) == 0 {
		return nil, nil
	}
	pred, arg := s.InList("paper_id", paperIDs)
	rows, err := s.QueryContext(ctx,
		`SELECT paper_id, task, label, probability, model, is_multilabel
		 FROM prediction WHERE `+pred+` ORDER BY paper_id, task, label`, arg)
	if err != nil {
		return nil, fmt.Errorf("querying annotations: %w", err)
	}
	defer rows.Close()

	var out []types.Annotation
	for rows.Next() {
		var a types.Annotation
		if err := rows.Scan(&a.PaperID, &a.Task, &a.Label, &a.Probability, &a.Model, &a.Multilabel); err != nil {
			return nil, fmt.Errorf("scanning annotation: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
