// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package filter

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"

	"github.com/pdiddy/litcurate/internal/logging"
	"github.com/pdiddy/litcurate/pkg/types"
)

// Candidates is the outcome of resolving a filter set: either no
// restriction at all, or an explicit (possibly empty) id set.
type Candidates struct {
	restricted bool
	ids        mapset.Set[int64]
}

// All returns the unrestricted candidate set.
func All() Candidates { return Candidates{} }

// IDs returns a candidate set restricted to ids. With no ids it matches
// nothing.
func IDs(ids ...int64) Candidates {
	return Candidates{restricted: true, ids: mapset.NewThreadUnsafeSet(ids...)}
}

// FromSet wraps an id set.
func FromSet(ids mapset.Set[int64]) Candidates {
	if ids == nil {
		ids = mapset.NewThreadUnsafeSet[int64]()
	}
	return Candidates{restricted: true, ids: ids}
}

// Unrestricted reports whether every paper is a candidate.
func (c Candidates) Unrestricted() bool { return !c.restricted }

// Len returns the number of candidate ids, or -1 when unrestricted.
func (c Candidates) Len() int {
	if !c.restricted {
		return -1
	}
	return c.ids.Cardinality()
}

// Contains reports whether id is a candidate.
func (c Candidates) Contains(id int64) bool {
	return !c.restricted || c.ids.Contains(id)
}

// List returns the candidate ids in ascending order, or nil when
// unrestricted.
func (c Candidates) List() []int64 {
	if !c.restricted {
		return nil
	}
	out := c.ids.ToSlice()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Set returns the underlying id set, or nil when unrestricted.
func (c Candidates) Set() mapset.Set[int64] {
	if !c.restricted {
		return nil
	}
	return c.ids
}

type candidatesJSON struct {
	Unrestricted bool    `json:"unrestricted"`
	IDs          []int64 `json:"ids,omitempty"`
}

// MarshalJSON encodes {"unrestricted": true} or {"ids": [...]}.
func (c Candidates) MarshalJSON() ([]byte, error) {
	if !c.restricted {
		return json.Marshal(candidatesJSON{Unrestricted: true})
	}
	ids := c.List()
	if ids == nil {
		ids = []int64{}
	}
	return json.Marshal(struct {
		Unrestricted bool    `json:"unrestricted"`
		IDs          []int64 `json:"ids"`
	}{false, ids})
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (c *Candidates) UnmarshalJSON(data []byte) error {
	var v candidatesJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v.Unrestricted {
		*c = All()
		return nil
	}
	*c = IDs(v.IDs...)
	return nil
}

// Lookup returns the papers carrying any of labels on task.
type Lookup interface {
	PaperIDsForLabels(ctx context.Context, task string, labels []string) (mapset.Set[int64], error)
}

// Resolver turns filter sets into candidate id sets.
type Resolver struct {
	lookup Lookup
	log    *zap.Logger
}

// NewResolver creates a Resolver reading label membership from lookup.
func NewResolver(lookup Lookup, log *zap.Logger) *Resolver {
	return &Resolver{lookup: lookup, log: logging.OrNop(log)}
}

// Resolve intersects, across the tasks of set, the union of papers carrying
// each selected label of that task. An empty set resolves to All. Once the
// running intersection is empty the remaining tasks are not queried.
func (r *Resolver) Resolve(ctx context.Context, set *Set) (Candidates, error) {
	if set.Empty() {
		return All(), nil
	}

	var acc mapset.Set[int64]
	for _, e := range set.Entries() {
		ids, err := r.lookup.PaperIDsForLabels(ctx, e.Task, e.Labels)
		if err != nil {
			return Candidates{}, fmt.Errorf("resolving %s: %w", e.Task, err)
		}
		if acc == nil {
			acc = ids
		} else {
			acc = acc.Intersect(ids)
		}
		if acc.Cardinality() == 0 {
			r.log.Debug("filter resolved to no papers", zap.String("at_task", e.Task))
			break
		}
	}
	return FromSet(acc), nil
}

// OrderTags keeps the tags selected by set and orders them by the task's
// position in set, then by the label's position within the task.
// Duplicates are dropped.
func OrderTags(set *Set, tags []types.Tag) []types.Tag {
	type pos struct{ task, label int }
	rank := make(map[types.Tag]pos)
	for ti, e := range set.Entries() {
		for li, l := range e.Labels {
			rank[types.Tag{Task: e.Task, Label: l}] = pos{ti, li}
		}
	}

	seen := make(map[types.Tag]bool, len(tags))
	out := make([]types.Tag, 0, len(tags))
	for _, t := range tags {
		if _, ok := rank[t]; !ok || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := rank[out[i]], rank[out[j]]
		if a.task != b.task {
			return a.task < b.task
		}
		return a.label < b.label
	})
	return out
}

// ValidateDualTask checks the task pair of a dual-task comparison.
func ValidateDualTask(task1, task2 string) error {
	if task1 == "" || task2 == "" {
		return fmt.Errorf("%w: two tasks are required", ErrInvalidFilterState)
	}
	if task1 == task2 {
		return fmt.Errorf("%w: %q selected for both tasks, choose two different tasks", ErrInvalidFilterState, task1)
	}
	return nil
}
