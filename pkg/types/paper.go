// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the records shared across the corpus, the index and
// the API, and the configuration structs.
package types

import (
	"fmt"
	"strings"
	"time"
)

// PredictionInputSeparator joins title and abstract into the text the
// classifiers were run on.
const PredictionInputSeparator = "^\n"

// Paper is one ingested publication. Papers are never mutated after
// ingestion except by attaching annotations.
type Paper struct {
	// ID is the primary key. It may carry an external literature ID
	// (e.g. a PubMed ID) or be assigned by the store when zero.
	ID int64 `json:"id" yaml:"id"`

	// ExternalID is the source-repository identifier, when known. It is the
	// strongest duplicate key.
	ExternalID string `json:"external_id,omitempty" yaml:"external_id,omitempty"`

	Title    string `json:"title" yaml:"title"`
	Abstract string `json:"abstract" yaml:"abstract"`

	// PredictionInput is Title and Abstract joined with PredictionInputSeparator.
	// Entity span offsets index into this string.
	PredictionInput string `json:"prediction_input" yaml:"prediction_input"`

	KeyTerms string `json:"key_terms,omitempty" yaml:"key_terms,omitempty"`
	DOI      string `json:"doi,omitempty" yaml:"doi,omitempty"`
	Year     int    `json:"year" yaml:"year"`
	Authors  string `json:"authors" yaml:"authors"`

	LinkToFullText string `json:"link_to_fulltext,omitempty" yaml:"link_to_fulltext,omitempty"`
	LinkToSource   string `json:"link_to_source,omitempty" yaml:"link_to_source,omitempty"`

	// RetrievalID references the RetrievalBatch that introduced the paper.
	RetrievalID int64 `json:"retrieval_id" yaml:"retrieval_id"`
}

// BuildPredictionInput returns the classifier input text for a title and abstract.
func BuildPredictionInput(title, abstract string) string {
	return title + PredictionInputSeparator + abstract
}

// TitleYearKey is the soft duplicate key: normalized title plus year.
func (p Paper) TitleYearKey() string {
	return fmt.Sprintf("%s|%d", strings.ToLower(strings.Join(strings.Fields(p.Title), " ")), p.Year)
}

// RetrievalBatch records one ingestion run.
type RetrievalBatch struct {
	ID            int64         `json:"id" yaml:"id"`
	RetrievedAt   time.Time     `json:"retrieved_at" yaml:"retrieved_at"`
	NewPaperCount int           `json:"new_paper_count" yaml:"new_paper_count"`
	Duration      time.Duration `json:"duration" yaml:"duration"`
}

// Annotation is one classifier output for a paper. The natural key is
// (PaperID, Task, Label, Model).
type Annotation struct {
	PaperID     int64   `json:"paper_id" yaml:"paper_id"`
	Task        string  `json:"task" yaml:"task"`
	Label       string  `json:"label" yaml:"label"`
	Probability float64 `json:"probability" yaml:"probability"`
	Model       string  `json:"model" yaml:"model"`
	Multilabel  bool    `json:"is_multilabel" yaml:"is_multilabel"`
}

// Validate checks the probability range and that the key fields are set.
func (a Annotation) Validate() error {
	if a.Task == "" || a.Label == "" {
		return fmt.Errorf("task and label are required")
	}
	if a.Probability < 0 || a.Probability > 1 {
		return fmt.Errorf("probability %v outside [0,1]", a.Probability)
	}
	return nil
}

// EntitySpan marks a character range of a paper's PredictionInput.
// Offsets count runes, 0 <= Start < End <= len(PredictionInput).
type EntitySpan struct {
	ID          int64   `json:"id" yaml:"id"`
	PaperID     int64   `json:"paper_id" yaml:"paper_id"`
	Tag         string  `json:"tag" yaml:"tag"`
	Start       int     `json:"start" yaml:"start"`
	End         int     `json:"end" yaml:"end"`
	Text        string  `json:"text" yaml:"text"`
	Probability float64 `json:"probability" yaml:"probability"`
	Model       string  `json:"model" yaml:"model"`
}

// Tag is a (task, label) pair attached to a paper for display.
type Tag struct {
	Task  string `json:"task" yaml:"task"`
	Label string `json:"label" yaml:"label"`
}
