// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package corpus

import (
	"strconv"
	"strings"

	"github.com/pdiddy/litcurate/pkg/types"
)

// LookupIndex is the index that backs task/label lookups and the
// two-task join. Without it the annotation index degrades to a full scan.
const LookupIndex = "idx_prediction_task_label"

// dialect captures the handful of differences between SQLite and Postgres.
// Queries are written once with ? placeholders.
type dialect struct {
	driver           types.StoreDriver
	schema           []string
	indexExistsQuery string
	numbered         bool
}

var sqliteDialect = dialect{
	driver: types.DriverSQLite,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS batch_retrieval (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			date TEXT NOT NULL,
			number_new_papers INTEGER NOT NULL,
			retrieval_time_ms INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS paper (
			id INTEGER PRIMARY KEY,
			external_id TEXT,
			title TEXT NOT NULL,
			title_key TEXT NOT NULL,
			abstract TEXT NOT NULL,
			prediction_input TEXT NOT NULL,
			key_terms TEXT,
			doi TEXT,
			year INTEGER NOT NULL,
			authors TEXT NOT NULL,
			link_to_fulltext TEXT,
			link_to_source TEXT,
			retrieval_id INTEGER NOT NULL REFERENCES batch_retrieval(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_paper_external_id ON paper(external_id)`,
		`CREATE INDEX IF NOT EXISTS idx_paper_title_key ON paper(title_key)`,
		`CREATE INDEX IF NOT EXISTS idx_paper_year ON paper(year)`,
		`CREATE TABLE IF NOT EXISTS prediction (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			paper_id INTEGER NOT NULL REFERENCES paper(id),
			task TEXT NOT NULL,
			label TEXT NOT NULL,
			probability REAL NOT NULL,
			model TEXT NOT NULL,
			is_multilabel BOOLEAN NOT NULL DEFAULT 0
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_prediction_key ON prediction(paper_id, task, label, model)`,
		`CREATE INDEX IF NOT EXISTS ` + LookupIndex + ` ON prediction(task, label, paper_id)`,
		`CREATE TABLE IF NOT EXISTS ner_tag (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			paper_id INTEGER NOT NULL REFERENCES paper(id),
			tag TEXT NOT NULL,
			start_id INTEGER NOT NULL,
			end_id INTEGER NOT NULL,
			text TEXT NOT NULL,
			probability REAL NOT NULL,
			model TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ner_tag_paper ON ner_tag(paper_id)`,
	},
	indexExistsQuery: `SELECT count(*) FROM sqlite_master WHERE type = 'index' AND name = ?`,
}

var postgresDialect = dialect{
	driver: types.DriverPostgres,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS batch_retrieval (
			id BIGSERIAL PRIMARY KEY,
			date TEXT NOT NULL,
			number_new_papers INTEGER NOT NULL,
			retrieval_time_ms BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS paper (
			id BIGINT PRIMARY KEY,
			external_id TEXT,
			title TEXT NOT NULL,
			title_key TEXT NOT NULL,
			abstract TEXT NOT NULL,
			prediction_input TEXT NOT NULL,
			key_terms TEXT,
			doi TEXT,
			year INTEGER NOT NULL,
			authors TEXT NOT NULL,
			link_to_fulltext TEXT,
			link_to_source TEXT,
			retrieval_id BIGINT NOT NULL REFERENCES batch_retrieval(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_paper_external_id ON paper(external_id)`,
		`CREATE INDEX IF NOT EXISTS idx_paper_title_key ON paper(title_key)`,
		`CREATE INDEX IF NOT EXISTS idx_paper_year ON paper(year)`,
		`CREATE TABLE IF NOT EXISTS prediction (
			id BIGSERIAL PRIMARY KEY,
			paper_id BIGINT NOT NULL REFERENCES paper(id),
			task TEXT NOT NULL,
			label TEXT NOT NULL,
			probability DOUBLE PRECISION NOT NULL,
			model TEXT NOT NULL,
			is_multilabel BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_prediction_key ON prediction(paper_id, task, label, model)`,
		`CREATE INDEX IF NOT EXISTS ` + LookupIndex + ` ON prediction(task, label, paper_id)`,
		`CREATE TABLE IF NOT EXISTS ner_tag (
			id BIGSERIAL PRIMARY KEY,
			paper_id BIGINT NOT NULL REFERENCES paper(id),
			tag TEXT NOT NULL,
			start_id INTEGER NOT NULL,
			end_id INTEGER NOT NULL,
			text TEXT NOT NULL,
			probability DOUBLE PRECISION NOT NULL,
			model TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ner_tag_paper ON ner_tag(paper_id)`,
	},
	indexExistsQuery: `SELECT count(*) FROM pg_indexes WHERE indexname = ?`,
	numbered:         true,
}

// rebind rewrites ? placeholders to $1, $2, ... for Postgres. Queries in
// this module never contain a literal question mark.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var (
		b strings.Builder
		n int
	)
	b.Grow(len(query) + 8)
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (d dialect) inList(column string, ids []int64) (string, any) {
	if d.numbered {
		return column + ` = ANY(?)`, ids
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(id, 10))
	}
	b.WriteByte(']')
	return column + ` IN (SELECT value FROM json_each(?))`, b.String()
}
