// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package insight

import (
	"context"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"

	"github.com/pdiddy/litcurate/internal/filter"
	"github.com/pdiddy/litcurate/internal/index"
	"github.com/pdiddy/litcurate/internal/logging"
)

// Aggregator is the part of the annotation index the views need.
type Aggregator interface {
	Labels(ctx context.Context, task string) ([]string, error)
	LabelFrequency(ctx context.Context, task string, labels []string) (index.Frequency, error)
	FilteredLabelFrequency(ctx context.Context, task, filterTask, filterLabel string) (index.Frequency, error)
	GroupedLabels(ctx context.Context, task, groupTask string, labels []string) ([]index.GroupedRow, error)
	PaperIDsForLabels(ctx context.Context, task string, labels []string) (mapset.Set[int64], error)
	YearFrequency(ctx context.Context, from, to int) ([]index.YearCount, error)
	YearPaperIDs(ctx context.Context, from, to int) (mapset.Set[int64], error)
}

// Service runs insight views.
type Service struct {
	agg      Aggregator
	resolver *filter.Resolver
	log      *zap.Logger
}

// NewService creates a Service.
func NewService(agg Aggregator, log *zap.Logger) *Service {
	log = logging.OrNop(log)
	return &Service{agg: agg, resolver: filter.NewResolver(agg, log), log: log}
}

// Result is the data behind one insight view.
type Result struct {
	Definition Definition `json:"definition" yaml:"definition"`

	// Counts holds distinct papers per (group label, task label). Empty
	// for views without a group task.
	Counts []index.GroupCount `json:"counts" yaml:"counts"`

	// Filters is the filter set the view seeds: the task with its labels,
	// minus the Other bucket.
	Filters *filter.Set `json:"filters" yaml:"-"`

	// TagSet orders the per-paper tags of the view: the seeded filters
	// followed by every label of the group task.
	TagSet *filter.Set `json:"tag_set" yaml:"-"`

	Candidates filter.Candidates `json:"candidates" yaml:"-"`
	Total      int               `json:"total" yaml:"total"`
}

// Run computes the view named name.
func (s *Service) Run(ctx context.Context, name string) (*Result, error) {
	def, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return s.RunDefinition(ctx, def)
}

// RunDefinition computes the view described by def.
func (s *Service) RunDefinition(ctx context.Context, def Definition) (*Result, error) {
	seedLabels, _ := index.WithoutOther(def.Labels)
	seed, err := filter.NewSet(filter.Entry{Task: def.Task, Labels: seedLabels})
	if err != nil {
		return nil, fmt.Errorf("insight %s: %w", def.Name, err)
	}

	res := &Result{Definition: def, Counts: []index.GroupCount{}, Filters: seed, TagSet: seed.Clone()}

	if def.GroupTask != "" {
		joinLabels := def.Labels
		if def.JoinAllLabels {
			joinLabels = nil
		}
		rows, err := s.agg.GroupedLabels(ctx, def.Task, def.GroupTask, joinLabels)
		if err != nil {
			return nil, fmt.Errorf("insight %s: %w", def.Name, err)
		}
		res.Counts = index.Aggregate(rows)

		groupLabels, err := s.agg.Labels(ctx, def.GroupTask)
		if err != nil {
			return nil, fmt.Errorf("insight %s: %w", def.Name, err)
		}
		if err := res.TagSet.Add(def.GroupTask, groupLabels); err != nil {
			return nil, fmt.Errorf("insight %s: %w", def.Name, err)
		}
	}

	res.Candidates, err = s.resolver.Resolve(ctx, seed)
	if err != nil {
		return nil, fmt.Errorf("insight %s: %w", def.Name, err)
	}
	res.Total = res.Candidates.Len()

	s.log.Debug("insight computed", zap.String("insight", def.Name),
		zap.Int("groups", len(res.Counts)), zap.Int("papers", res.Total))
	return res, nil
}

// DualTaskView is the two-chart drill-down: the distribution of Task1 and
// the distribution of Task2, conditional on a clicked Task1 label when one
// is given.
type DualTaskView struct {
	Task1       string            `json:"task1"`
	Task2       string            `json:"task2"`
	Label       string            `json:"label,omitempty"`
	Frequency1  index.Frequency   `json:"frequency1"`
	Frequency2  index.Frequency   `json:"frequency2"`
	Candidates  filter.Candidates `json:"candidates"`
	TagSet      *filter.Set       `json:"tag_set"`
	TotalPapers int               `json:"total_papers"`
}

// DualTask builds the drill-down view. task1 and task2 must differ.
func (s *Service) DualTask(ctx context.Context, task1, task2, label string) (*DualTaskView, error) {
	if err := filter.ValidateDualTask(task1, task2); err != nil {
		return nil, err
	}

	v := &DualTaskView{Task1: task1, Task2: task2, Label: label}
	var err error
	if v.Frequency1, err = s.agg.LabelFrequency(ctx, task1, nil); err != nil {
		return nil, err
	}

	var ids mapset.Set[int64]
	task1Labels := v.Frequency1.Labels()
	if label != "" {
		if v.Frequency2, err = s.agg.FilteredLabelFrequency(ctx, task2, task1, label); err != nil {
			return nil, err
		}
		ids, err = s.agg.PaperIDsForLabels(ctx, task1, []string{label})
		task1Labels = []string{label}
	} else {
		if v.Frequency2, err = s.agg.LabelFrequency(ctx, task2, nil); err != nil {
			return nil, err
		}
		ids, err = s.agg.PaperIDsForLabels(ctx, task1, nil)
	}
	if err != nil {
		return nil, err
	}

	v.TagSet = &filter.Set{}
	if len(task1Labels) > 0 {
		if err := v.TagSet.Add(task1, task1Labels); err != nil {
			return nil, err
		}
	}
	if labels := v.Frequency2.Labels(); len(labels) > 0 {
		if err := v.TagSet.Add(task2, labels); err != nil {
			return nil, err
		}
	}
	v.Candidates = filter.FromSet(ids)
	v.TotalPapers = v.Candidates.Len()
	return v, nil
}

// TimelineView is the publications-per-year chart and its papers.
type TimelineView struct {
	From       int               `json:"from,omitempty"`
	To         int               `json:"to,omitempty"`
	Counts     []index.YearCount `json:"counts"`
	Candidates filter.Candidates `json:"candidates"`
}

// Timeline counts papers per year within [from, to]; zero bounds are open.
func (s *Service) Timeline(ctx context.Context, from, to int) (*TimelineView, error) {
	if from > 0 && to > 0 && from > to {
		return nil, fmt.Errorf("%w: %d > %d", ErrInvalidRange, from, to)
	}
	counts, err := s.agg.YearFrequency(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if counts == nil {
		counts = []index.YearCount{}
	}
	ids, err := s.agg.YearPaperIDs(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return &TimelineView{From: from, To: to, Counts: counts, Candidates: filter.FromSet(ids)}, nil
}
