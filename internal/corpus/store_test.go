// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/litcurate/pkg/types"
)

func init() {
	RetryBaseDelay = time.Millisecond
}

// --- test helpers ---

func testStore(t *testing.T) (*Store, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	store, err := Open(types.StoreConfig{
		Driver: types.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "data", "corpus.db"),
	}, zap.New(core))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, logs
}

func testBatch(t *testing.T, s *Store) int64 {
	t.Helper()
	id, err := s.InsertBatch(context.Background(), types.RetrievalBatch{
		RetrievedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Duration:    90 * time.Second,
	})
	require.NoError(t, err)
	return id
}

func samplePaper(id, batch int64) types.Paper {
	return types.Paper{
		ID:          id,
		ExternalID:  fmt.Sprintf("PMID%d", id),
		Title:       fmt.Sprintf("Semaglutide outcomes in cohort %d", id),
		Abstract:    "We studied weight loss.",
		Year:        2021,
		Authors:     "Smith, J.; Doe, A.",
		RetrievalID: batch,
	}
}

// loggedError returns the error attached to a log entry with zap.Error.
func loggedError(e observer.LoggedEntry) error {
	for _, f := range e.Context {
		if f.Key == "error" {
			if err, ok := f.Interface.(error); ok {
				return err
			}
		}
	}
	return nil
}

// --- schema tests ---

func TestOpenCreatesSchema(t *testing.T) {
	s, _ := testStore(t)
	for _, table := range []string{"batch_retrieval", "paper", "prediction", "ner_tag"} {
		var n int
		err := s.db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "table %s", table)
	}

	ok, err := s.HasIndex(context.Background(), LookupIndex)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(types.StoreConfig{Driver: "oracle"}, nil)
	assert.Error(t, err)

	_, err = Open(types.StoreConfig{Driver: types.DriverPostgres}, nil)
	assert.Error(t, err, "pgx without a DSN")
}

// --- batch tests ---

func TestBatchRoundTrip(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	id := testBatch(t, s)

	require.NoError(t, s.SetBatchPaperCount(ctx, id, 7))

	b, err := s.GetBatch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 7, b.NewPaperCount)
	assert.Equal(t, 90*time.Second, b.Duration)
	assert.True(t, b.RetrievedAt.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))

	_, err = s.GetBatch(ctx, id+100)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.SetBatchPaperCount(ctx, id+100, 1), ErrNotFound)
}

// --- paper tests ---

func TestInsertPaperIsIdempotent(t *testing.T) {
	s, logs := testStore(t)
	ctx := context.Background()
	batch := testBatch(t, s)

	id, inserted, err := s.InsertPaper(ctx, samplePaper(42, batch))
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, int64(42), id)

	id, inserted, err = s.InsertPaper(ctx, samplePaper(42, batch))
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.False(t, inserted)
	assert.Equal(t, int64(42), id)

	var dup *DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, int64(42), dup.ExistingID)

	n, err := s.CountPapers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, logs.FilterMessage("duplicate paper skipped").Len())
}

func TestInsertPaperDetectsTitleYearDuplicate(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	batch := testBatch(t, s)

	first := samplePaper(1, batch)
	first.ExternalID = ""
	_, _, err := s.InsertPaper(ctx, first)
	require.NoError(t, err)

	second := samplePaper(2, batch)
	second.ExternalID = ""
	second.Title = "  SEMAGLUTIDE outcomes in   cohort 1 "
	id, inserted, err := s.InsertPaper(ctx, second)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.False(t, inserted)
	assert.Equal(t, int64(1), id)

	// Same title, different year is a different paper.
	third := first
	third.ID = 3
	third.Year = 2022
	_, inserted, err = s.InsertPaper(ctx, third)
	require.NoError(t, err)
	assert.True(t, inserted)
}

func TestInsertPaperRefusesTakenID(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	batch := testBatch(t, s)

	_, _, err := s.InsertPaper(ctx, samplePaper(5, batch))
	require.NoError(t, err)

	other := samplePaper(5, batch)
	other.ExternalID = "PMID999"
	other.Title = "An unrelated trial"
	_, inserted, err := s.InsertPaper(ctx, other)
	assert.ErrorIs(t, err, ErrIDConflict)
	assert.False(t, inserted)

	got, err := s.GetPaper(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "PMID5", got.ExternalID)
	n, err := s.CountPapers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestInsertPaperSeesIDsFromAnotherWriter(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	batch := testBatch(t, s)

	_, _, err := s.InsertPaper(ctx, samplePaper(1, batch))
	require.NoError(t, err)

	// A row written behind the key cache's back, as a second importer would.
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO paper (id, title, title_key, abstract, prediction_input, year, authors, retrieval_id)
		 VALUES (7, 'Other writer', 'other writer|2021', '', 'Other writer', 2021, '', ?)`, batch)
	require.NoError(t, err)

	p := samplePaper(0, batch)
	p.ExternalID = ""
	p.Title = "Needs an id"
	id, inserted, err := s.InsertPaper(ctx, p)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, int64(8), id)

	clash := samplePaper(7, batch)
	clash.Title = "Clashing source id"
	_, _, err = s.InsertPaper(ctx, clash)
	assert.ErrorIs(t, err, ErrIDConflict)
}

func TestInsertPaperAssignsIDWhenZero(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	batch := testBatch(t, s)

	_, _, err := s.InsertPaper(ctx, samplePaper(10, batch))
	require.NoError(t, err)

	p := samplePaper(0, batch)
	p.ExternalID = ""
	p.Title = "Zero id"
	id, inserted, err := s.InsertPaper(ctx, p)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, int64(11), id)
}

func TestInsertPaperValidation(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	batch := testBatch(t, s)

	p := samplePaper(1, batch)
	p.Title = " "
	_, _, err := s.InsertPaper(ctx, p)
	assert.Error(t, err)

	p = samplePaper(1, 0)
	_, _, err = s.InsertPaper(ctx, p)
	assert.Error(t, err)
}

func TestGetPaperBuildsPredictionInput(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	batch := testBatch(t, s)

	_, _, err := s.InsertPaper(ctx, samplePaper(3, batch))
	require.NoError(t, err)

	p, err := s.GetPaper(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "Semaglutide outcomes in cohort 3^\nWe studied weight loss.", p.PredictionInput)
	assert.Equal(t, batch, p.RetrievalID)

	_, err = s.GetPaper(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExistingPaperIDs(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	batch := testBatch(t, s)
	for _, id := range []int64{1, 2, 3} {
		_, _, err := s.InsertPaper(ctx, samplePaper(id, batch))
		require.NoError(t, err)
	}

	found, err := s.ExistingPaperIDs(ctx, []int64{2, 3, 4, 5})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{2, 3}, found.ToSlice())

	found, err = s.ExistingPaperIDs(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, found.Cardinality())
}

// --- annotation tests ---

func TestValidateAnnotation(t *testing.T) {
	tests := []struct {
		name string
		a    types.Annotation
		ok   bool
	}{
		{name: "valid", a: types.Annotation{Task: "T", Label: "L", Probability: 0.5}, ok: true},
		{name: "probability above one", a: types.Annotation{Task: "T", Label: "L", Probability: 1.5}},
		{name: "negative probability", a: types.Annotation{Task: "T", Label: "L", Probability: -0.1}},
		{name: "missing label", a: types.Annotation{Task: "T", Probability: 0.5}},
		{name: "missing task", a: types.Annotation{Label: "L", Probability: 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAnnotation(tt.a)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidAnnotation)
		})
	}
}

func TestInsertAnnotations(t *testing.T) {
	s, logs := testStore(t)
	ctx := context.Background()
	batch := testBatch(t, s)
	_, _, err := s.InsertPaper(ctx, samplePaper(1, batch))
	require.NoError(t, err)

	anns := []types.Annotation{
		{Task: "study_type", Label: "RCT", Probability: 0.93, Model: "m1"},
		{Task: "outcome", Label: "Efficacy", Probability: 0.8, Model: "m1", Multilabel: true},
		{Task: "outcome", Label: "Safety", Probability: 0.7, Model: "m1", Multilabel: true},
		{Task: "outcome", Label: "Safety", Probability: 0.7, Model: "m1", Multilabel: true},
		{Task: "outcome", Label: "Bad", Probability: 1.5, Model: "m1", Multilabel: true},
	}
	n, err := s.InsertAnnotations(ctx, 1, anns)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	dupLogs := logs.FilterMessage("duplicate annotation skipped").All()
	require.Len(t, dupLogs, 1)
	assert.ErrorIs(t, loggedError(dupLogs[0]), ErrDuplicate)
	invalid := logs.FilterMessage("invalid annotation skipped").All()
	require.Len(t, invalid, 1)
	assert.ErrorIs(t, loggedError(invalid[0]), ErrInvalidAnnotation)

	// Re-ingesting the same tuples writes nothing.
	n, err = s.InsertAnnotations(ctx, 1, anns[:3])
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	got, err := s.AnnotationsFor(ctx, []int64{1})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "outcome", got[0].Task)
	assert.Equal(t, "Efficacy", got[0].Label)
	assert.True(t, got[0].Multilabel)
	assert.Equal(t, "study_type", got[2].Task)
}

func TestInsertAnnotationsMissingPaper(t *testing.T) {
	s, logs := testStore(t)
	n, err := s.InsertAnnotations(context.Background(), 77, []types.Annotation{
		{Task: "study_type", Label: "RCT", Probability: 0.9, Model: "m1"},
	})
	assert.ErrorIs(t, err, ErrMissingReference)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, logs.FilterMessage("annotations reference unknown paper, skipped").Len())
}

func TestInsertAnnotationsWarnsOnSingleLabelConflict(t *testing.T) {
	s, logs := testStore(t)
	ctx := context.Background()
	batch := testBatch(t, s)
	_, _, err := s.InsertPaper(ctx, samplePaper(1, batch))
	require.NoError(t, err)

	_, err = s.InsertAnnotations(ctx, 1, []types.Annotation{
		{Task: "study_type", Label: "RCT", Probability: 0.6, Model: "m1"},
		{Task: "study_type", Label: "Review", Probability: 0.4, Model: "m1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("single-label task carries several labels").Len())
}

// --- span tests ---

func TestInsertSpans(t *testing.T) {
	s, logs := testStore(t)
	ctx := context.Background()
	batch := testBatch(t, s)
	_, _, err := s.InsertPaper(ctx, samplePaper(1, batch))
	require.NoError(t, err)

	p, err := s.GetPaper(ctx, 1)
	require.NoError(t, err)
	length := len([]rune(p.PredictionInput))

	n, err := s.InsertSpans(ctx, 1, []types.EntitySpan{
		{Tag: "intervention", Start: 0, End: 11, Text: "Semaglutide", Probability: 0.99, Model: "ner"},
		{Tag: "outcome", Start: length - 12, End: length - 1, Text: "weight loss", Probability: 0.9, Model: "ner"},
		{Tag: "outcome", Start: 10, End: length + 5, Text: "overflow", Model: "ner"},
		{Tag: "outcome", Start: 4, End: 4, Text: "", Model: "ner"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, logs.FilterMessage("entity span skipped").Len())

	spans, err := s.Spans(ctx, 1)
	require.NoError(t, err)
	require.Len(t, spans, 2)
	assert.Equal(t, "intervention", spans[0].Tag)
	assert.Equal(t, 0, spans[0].Start)

	_, err = s.InsertSpans(ctx, 50, []types.EntitySpan{{Tag: "x", Start: 0, End: 1}})
	assert.ErrorIs(t, err, ErrMissingReference)
}

func TestValidateSpan(t *testing.T) {
	tests := []struct {
		name string
		span types.EntitySpan
		ok   bool
	}{
		{name: "inside", span: types.EntitySpan{Tag: "t", Start: 0, End: 5}, ok: true},
		{name: "full length", span: types.EntitySpan{Tag: "t", Start: 0, End: 10}, ok: true},
		{name: "negative start", span: types.EntitySpan{Tag: "t", Start: -1, End: 5}},
		{name: "empty range", span: types.EntitySpan{Tag: "t", Start: 3, End: 3}},
		{name: "past end", span: types.EntitySpan{Tag: "t", Start: 3, End: 11}},
		{name: "no tag", span: types.EntitySpan{Start: 0, End: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSpan(tt.span, 10)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidSpan)
		})
	}
}

// --- dialect and retry tests ---

func TestRebind(t *testing.T) {
	q := `SELECT id FROM paper WHERE year = ? AND title_key = ?`
	assert.Equal(t, q, sqliteDialect.rebind(q))
	assert.Equal(t, `SELECT id FROM paper WHERE year = $1 AND title_key = $2`, postgresDialect.rebind(q))
}

func TestInList(t *testing.T) {
	pred, arg := sqliteDialect.inList("paper_id", []int64{3, 1, 2})
	assert.Equal(t, "paper_id IN (SELECT value FROM json_each(?))", pred)
	assert.Equal(t, "[3,1,2]", arg)

	pred, arg = postgresDialect.inList("paper_id", []int64{3})
	assert.Equal(t, "paper_id = ANY(?)", pred)
	assert.Equal(t, []int64{3}, arg)
}

func TestIsBusy(t *testing.T) {
	assert.True(t, isBusy(sqlite3.Error{Code: sqlite3.ErrBusy}))
	assert.True(t, isBusy(fmt.Errorf("wrapped: %w", sqlite3.Error{Code: sqlite3.ErrLocked})))
	assert.False(t, isBusy(sqlite3.Error{Code: sqlite3.ErrConstraint}))
	assert.False(t, isBusy(errors.New("other")))
}

func TestRetryBusy(t *testing.T) {
	s := &Store{log: zap.NewNop(), retries: 3}

	calls := 0
	err := s.retryBusy(context.Background(), func() error {
		calls++
		if calls < 3 {
			return sqlite3.Error{Code: sqlite3.ErrBusy}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = s.retryBusy(context.Background(), func() error {
		calls++
		return sqlite3.Error{Code: sqlite3.ErrBusy}
	})
	assert.True(t, isBusy(err))
	assert.Equal(t, 4, calls, "first attempt plus three retries")

	calls = 0
	err = s.retryBusy(context.Background(), func() error {
		calls++
		return errors.New("constraint")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

// --- import tests ---

func TestImportPapers(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	feed := strings.Join([]string{
		"id,title,abstract,keywords,doi,year",
		"101,Trial of drug A,Abstract A,diabetes,10.1/a,2020",
		"102,Trial of drug B,Abstract B,,,2021",
		"103,Trial of drug A,Abstract A again,,,2020",
		"104,,No title,,,2020",
		"105,Bad year,Abstract,,,soon",
	}, "\n")

	var out strings.Builder
	summary, err := s.ImportPapers(ctx, strings.NewReader(feed),
		Provenance{RetrievedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Duration: time.Minute}, &out, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Inserted)
	assert.Equal(t, 1, summary.Duplicates)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 5, summary.Total())
	assert.Contains(t, out.String(), "inserted: 2, duplicates: 1, skipped: 2, failed: 0")

	b, err := s.GetBatch(ctx, summary.BatchID)
	require.NoError(t, err)
	assert.Equal(t, 2, b.NewPaperCount)
	assert.Equal(t, time.Minute, b.Duration)

	p, err := s.GetPaper(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, "diabetes", p.KeyTerms)
	assert.Equal(t, "10.1/a", p.DOI)
}

func TestImportPapersRefusesTakenSourceID(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	_, err := s.ImportPapers(ctx, strings.NewReader("id,title,year\n1,Old paper,2019\n"), Provenance{}, &strings.Builder{}, nil)
	require.NoError(t, err)

	var out strings.Builder
	summary, err := s.ImportPapers(ctx, strings.NewReader("id,title,year\n1,New psilocybin trial,2024\n"), Provenance{}, &out, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Inserted)
	assert.Equal(t, 1, summary.Failed)
	assert.Contains(t, out.String(), ErrIDConflict.Error())

	_, err = s.ImportAnnotations(ctx, strings.NewReader(
		"paper_id,task,label,probability\n1,Substances,Psilocybin,0.9\n"), &strings.Builder{}, nil)
	require.NoError(t, err)

	n, err := s.CountPapers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "the conflicting paper must not be stored under another id")

	p, err := s.GetPaper(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Old paper", p.Title)
}

func TestImportPapersReportsDuplicates(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	feed := "id,title,year\n1,Psilocybin for depression,2021\n2,Psilocybin  for DEPRESSION,2021\n"
	var out strings.Builder
	summary, err := s.ImportPapers(ctx, strings.NewReader(feed), Provenance{}, &out, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Inserted)
	assert.Equal(t, 1, summary.Duplicates)
	assert.Contains(t, out.String(), "duplicate paper of paper 1")

	_, err = s.GetPaper(ctx, 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestImportPapersKeepsPredictionInput(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	feed := "id,title,abstract,year,prediction_input\n" +
		"1,LSD and anxiety,An abstract.,2020,\"  LSD and anxiety. An abstract.\"\n" +
		"2,MDMA therapy,Another.,2021,\n"
	_, err := s.ImportPapers(ctx, strings.NewReader(feed), Provenance{}, &strings.Builder{}, nil)
	require.NoError(t, err)

	p, err := s.GetPaper(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "  LSD and anxiety. An abstract.", p.PredictionInput)

	p, err = s.GetPaper(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, types.BuildPredictionInput("MDMA therapy", "Another."), p.PredictionInput)
}

func TestImportPapersRequiresTitleColumn(t *testing.T) {
	s, _ := testStore(t)
	_, err := s.ImportPapers(context.Background(), strings.NewReader("id,year\n1,2020\n"), Provenance{}, &strings.Builder{}, nil)
	assert.Error(t, err)
}

func TestImportAnnotations(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	batch := testBatch(t, s)
	_, _, err := s.InsertPaper(ctx, samplePaper(1, batch))
	require.NoError(t, err)

	feed := strings.Join([]string{
		"paper_id,task,label,probability,model,is_multilabel",
		"1,study_type,RCT,0.9,m1,False",
		"1,outcome,Efficacy,0.8,m1,True",
		"1,outcome,Efficacy,0.8,m1,True",
		"2,study_type,RCT,0.9,m1,False",
		"1,outcome,,0.5,m1,True",
		"x,outcome,Safety,0.5,m1,True",
	}, "\n")

	summary, err := s.ImportAnnotations(ctx, strings.NewReader(feed), &strings.Builder{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Inserted)
	assert.Equal(t, 1, summary.Duplicates)
	assert.Equal(t, 3, summary.Skipped)
}

func TestImportSpans(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	batch := testBatch(t, s)
	_, _, err := s.InsertPaper(ctx, samplePaper(1, batch))
	require.NoError(t, err)

	feed := strings.Join([]string{
		"paper_id,tag,start,end,text,probability,model",
		"1,intervention,0,11,Semaglutide,0.99,ner",
		"1,outcome,0,9999,overflow,0.5,ner",
		"8,outcome,0,1,S,0.5,ner",
	}, "\n")

	summary, err := s.ImportSpans(ctx, strings.NewReader(feed), &strings.Builder{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Inserted)
	assert.Equal(t, 2, summary.Skipped)
}

func TestLoadProvenance(t *testing.T) {
	dir := t.TempDir()

	p, err := LoadProvenance(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.True(t, p.RetrievedAt.IsZero())

	path := filepath.Join(dir, "feed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retrieved_at: 2024-05-01T10:00:00Z\nduration: 2m30s\n"), 0o644))
	p, err = LoadProvenance(path)
	require.NoError(t, err)
	assert.Equal(t, 150*time.Second, p.Duration)
	assert.Equal(t, 2024, p.RetrievedAt.Year())
}
