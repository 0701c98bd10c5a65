// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package insight runs the fixed (task, group task) aggregations behind the
// dashboard's insight views, the dual-task drill-down and the publication
// timeline. Every view is a parameterization of the annotation index and
// the filter resolver; no view carries its own aggregation logic.
package insight

import (
	"errors"
	"fmt"
)

// ErrUnknownInsight is returned by Run for a name not in the catalog.
var ErrUnknownInsight = errors.New("unknown insight")

// ErrInvalidRange is returned by Timeline when from is after to.
var ErrInvalidRange = errors.New("invalid year range")

// Definition parameterizes one insight view.
type Definition struct {
	Name     string   `json:"name" yaml:"name"`
	Question string   `json:"question" yaml:"question"`
	Task     string   `json:"task" yaml:"task"`
	Labels   []string `json:"labels" yaml:"labels"`

	// GroupTask is the task the chart is grouped by. Empty means the view
	// only counts papers carrying Labels.
	GroupTask string `json:"group_task,omitempty" yaml:"group_task,omitempty"`

	// JoinAllLabels joins every label of Task rather than only Labels.
	// Labels still seed the filter.
	JoinAllLabels bool `json:"join_all_labels,omitempty" yaml:"join_all_labels,omitempty"`
}

var catalog = []Definition{
	{
		Name:      "rct",
		Question:  "How many randomized controlled trials and systematic reviews are there per substance?",
		Task:      "Study Type",
		Labels:    []string{"Randomized-controlled trial (RCT)", "Systematic review/meta-analysis", "Other"},
		GroupTask: "Substances",
	},
	{
		Name:      "efficacy-safety",
		Question:  "How many studies measure efficacy and safety endpoints per substance?",
		Task:      "Study Purpose",
		Labels:    []string{"Efficacy endpoints", "Safety endpoints"},
		GroupTask: "Substances",
	},
	{
		Name:      "longitudinal",
		Question:  "Are there enough longitudinal and cross-sectional studies for each substance?",
		Task:      "Data Type",
		Labels:    []string{"Longitudinal short", "Longitudinal long", "Cross-sectional"},
		GroupTask: "Substances",
	},
	{
		Name:      "sex-bias",
		Question:  "Is there sex bias per substance?",
		Task:      "Sex of Participants",
		Labels:    []string{"Male", "Female", "Both sexes", "Unknown"},
		GroupTask: "Substances",
	},
	{
		Name:     "participants",
		Question: "How many participants are included per study?",
		Task:     "Number of Participants",
		Labels: []string{"1-20", "21-40", "41-60", "61-80", "81-100",
			"100-199", "200-499", "500-999", "≥1000", "Unknown"},
		GroupTask:     "Substances",
		JoinAllLabels: true,
	},
	{
		Name:     "study-protocol",
		Question: "How many study protocols are available?",
		Task:     "Study Type",
		Labels:   []string{"Study protocol"},
	},
}

// Catalog returns the built-in insight definitions.
func Catalog() []Definition {
	out := make([]Definition, len(catalog))
	for i, d := range catalog {
		d.Labels = append([]string(nil), d.Labels...)
		out[i] = d
	}
	return out
}

// Lookup returns the definition named name.
func Lookup(name string) (Definition, error) {
	for _, d := range Catalog() {
		if d.Name == name {
			return d, nil
		}
	}
	return Definition{}, fmt.Errorf("%w: %q", ErrUnknownInsight, name)
}
