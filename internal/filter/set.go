// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package filter holds the ordered multi-task filter state and resolves it
// to candidate paper ids and ordered display tags.
package filter

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/litcurate/pkg/types"
)

var (
	// ErrInvalidFilterState is returned for selections that cannot be
	// resolved, such as a dual-task view naming the same task twice.
	ErrInvalidFilterState = errors.New("invalid filter state")

	// ErrEmptySelection is returned when Add is called without a task or
	// without labels.
	ErrEmptySelection = errors.New("empty filter selection")
)

// Entry is one task of a filter set with its selected labels, in the
// order they were selected.
type Entry struct {
	Task   string   `json:"task" yaml:"task"`
	Labels []string `json:"labels" yaml:"labels"`
}

// Set is an insertion-ordered mapping from task to selected labels.
// The zero value is an empty set. A Set is not safe for concurrent use;
// each session owns its own.
type Set struct {
	entries []Entry
}

// NewSet builds a set by adding entries in order.
func NewSet(entries ...Entry) (*Set, error) {
	s := &Set{}
	for _, e := range entries {
		if err := s.Add(e.Task, e.Labels); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Set) position(task string) int {
	for i, e := range s.entries {
		if e.Task == task {
			return i
		}
	}
	return -1
}

// Add sets the selection of task to labels. A task already in the set
// keeps its position; a new task is appended. Duplicate labels are
// dropped, keeping the first occurrence.
func (s *Set) Add(task string, labels []string) error {
	task = strings.TrimSpace(task)
	if task == "" {
		return fmt.Errorf("%w: task is required", ErrEmptySelection)
	}
	var uniq []string
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		uniq = append(uniq, l)
	}
	if len(uniq) == 0 {
		return fmt.Errorf("%w: no labels selected for %q", ErrEmptySelection, task)
	}

	if i := s.position(task); i >= 0 {
		s.entries[i].Labels = uniq
		return nil
	}
	s.entries = append(s.entries, Entry{Task: task, Labels: uniq})
	return nil
}

// RemoveLabel removes label from task's selection. A task left with no
// labels is removed. It reports whether anything changed.
func (s *Set) RemoveLabel(task, label string) bool {
	i := s.position(task)
	if i < 0 {
		return false
	}
	labels := s.entries[i].Labels
	for j, l := range labels {
		if l != label {
			continue
		}
		rest := make([]string, 0, len(labels)-1)
		rest = append(rest, labels[:j]...)
		rest = append(rest, labels[j+1:]...)
		if len(rest) == 0 {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
		} else {
			s.entries[i].Labels = rest
		}
		return true
	}
	return false
}

// RemoveTask drops task and its labels.
func (s *Set) RemoveTask(task string) bool {
	i := s.position(task)
	if i < 0 {
		return false
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	return true
}

// Clear empties the set.
func (s *Set) Clear() { s.entries = nil }

// Len returns the number of tasks in the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Empty reports whether the set has no tasks. An empty set means no
// restriction.
func (s *Set) Empty() bool { return s.Len() == 0 }

// Entries returns a copy of the entries in insertion order.
func (s *Set) Entries() []Entry {
	if s == nil {
		return nil
	}
	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = Entry{Task: e.Task, Labels: append([]string(nil), e.Labels...)}
	}
	return out
}

// Tasks returns the task names in insertion order.
func (s *Set) Tasks() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Task
	}
	return out
}

// Labels returns the selected labels of task.
func (s *Set) Labels(task string) []string {
	if s == nil {
		return nil
	}
	if i := s.position(task); i >= 0 {
		return append([]string(nil), s.entries[i].Labels...)
	}
	return nil
}

// Tags returns the selected (task, label) pairs in display order.
func (s *Set) Tags() []types.Tag {
	var out []types.Tag
	for _, e := range s.Entries() {
		for _, l := range e.Labels {
			out = append(out, types.Tag{Task: e.Task, Label: l})
		}
	}
	return out
}

// Clone returns an independent copy.
func (s *Set) Clone() *Set {
	return &Set{entries: s.Entries()}
}

// MarshalJSON encodes the set as an ordered array of entries.
func (s *Set) MarshalJSON() ([]byte, error) {
	entries := s.Entries()
	if entries == nil {
		entries = []Entry{}
	}
	return json.Marshal(entries)
}

// UnmarshalJSON decodes an array of entries, applying Add to each.
func (s *Set) UnmarshalJSON(data []byte) error {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	decoded, err := NewSet(entries...)
	if err != nil {
		return err
	}
	s.entries = decoded.entries
	return nil
}
