// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package corpustest builds small SQLite corpora for tests of the packages
// that read from the corpus store.
package corpustest

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pdiddy/litcurate/internal/corpus"
	"github.com/pdiddy/litcurate/pkg/types"
)

// Paper describes one seeded paper and its labels, keyed by task.
type Paper struct {
	ID       int64
	Title    string
	Abstract string
	Year     int
	Labels   map[string][]string
	Spans    []types.EntitySpan
}

// Open returns an empty store in a temporary directory and the path of its
// database file.
func Open(t *testing.T) (*corpus.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.db")
	store, err := corpus.Open(types.StoreConfig{Driver: types.DriverSQLite, Path: path}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

// Seed inserts papers under one retrieval batch. Every label gets
// probability 0.9 from model "test".
func Seed(t *testing.T, store *corpus.Store, papers ...Paper) {
	t.Helper()
	ctx := context.Background()

	batchID, err := store.InsertBatch(ctx, types.RetrievalBatch{})
	require.NoError(t, err)

	for _, p := range papers {
		title := p.Title
		if title == "" {
			title = fmt.Sprintf("Paper %d", p.ID)
		}
		year := p.Year
		if year == 0 {
			year = 2020
		}
		id, inserted, err := store.InsertPaper(ctx, types.Paper{
			ID:          p.ID,
			Title:       title,
			Abstract:    p.Abstract,
			Year:        year,
			Authors:     "Doe, J.",
			RetrievalID: batchID,
		})
		require.NoError(t, err)
		require.True(t, inserted, "paper %d was a duplicate", p.ID)
		require.Equal(t, p.ID, id)

		var anns []types.Annotation
		for task, labels := range p.Labels {
			for _, l := range labels {
				anns = append(anns, types.Annotation{
					Task: task, Label: l, Probability: 0.9, Model: "test", Multilabel: true,
				})
			}
		}
		if len(anns) > 0 {
			_, err := store.InsertAnnotations(ctx, id, anns)
			require.NoError(t, err)
		}
		if len(p.Spans) > 0 {
			_, err := store.InsertSpans(ctx, id, p.Spans)
			require.NoError(t, err)
		}
	}
}
