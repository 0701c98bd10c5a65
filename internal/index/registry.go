// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"
)

// Display is optional presentation metadata for a task.
type Display struct {
	DisplayName string `yaml:"display_name" json:"display_name,omitempty"`
	Description string `yaml:"description" json:"description,omitempty"`
}

// taxonomyFile is the on-disk layout of the display metadata file.
type taxonomyFile struct {
	Tasks map[string]Display `yaml:"tasks"`
}

// LoadDisplay reads task display metadata from a YAML file of the form
//
//	tasks:
//	  Study Type:
//	    display_name: Study type
//	    description: Design of the study
//
// An empty path or a missing file yields no metadata.
func LoadDisplay(path string) (map[string]Display, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading taxonomy %s: %w", path, err)
	}
	var f taxonomyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing taxonomy %s: %w", path, err)
	}
	return f.Tasks, nil
}

// TaskInfo describes one task of the taxonomy.
type TaskInfo struct {
	Name       string   `json:"name"`
	Multilabel bool     `json:"multilabel"`
	Labels     []string `json:"labels"`
	Display
}

// Registry maps task names to their metadata. It is populated from the
// prediction table, never hard-coded, so a task added by a new model shows
// up on the next refresh.
type Registry struct {
	mu        sync.RWMutex
	tasks     map[string]TaskInfo
	display   map[string]Display
	refreshed time.Time
}

func newRegistry(display map[string]Display) *Registry {
	return &Registry{
		tasks:   make(map[string]TaskInfo),
		display: display,
	}
}

func (r *Registry) has(task string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tasks[task]
	return ok
}

// Lookup returns the metadata of task.
func (r *Registry) Lookup(task string) (TaskInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[task]
	return t, ok
}

// All returns every task ordered by name.
func (r *Registry) All() []TaskInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]TaskInfo, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Refreshed returns when the registry was last loaded.
func (r *Registry) Refreshed() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.refreshed
}

func (r *Registry) replace(tasks map[string]TaskInfo) {
	for name, t := range tasks {
		if d, ok := r.display[name]; ok {
			t.Display = d
		}
		if t.DisplayName == "" {
			t.DisplayName = name
		}
		tasks[name] = t
	}
	r.mu.Lock()
	r.tasks = tasks
	r.refreshed = time.Now()
	r.mu.Unlock()
}

// Registry returns the task registry, loading it on first use.
func (ix *Index) Registry(ctx context.Context) (*Registry, error) {
	if ix.registry.Refreshed().IsZero() {
		if err := ix.Refresh(ctx); err != nil {
			return nil, err
		}
	}
	return ix.registry, nil
}

// Refresh reloads the task registry from the prediction table. A task is
// multilabel when any of its annotations carries the multilabel flag.
func (ix *Index) Refresh(ctx context.Context) error {
	defer ix.observe("refresh", time.Now())

	rows, err := ix.q.QueryContext(ctx,
		`SELECT task, label, MAX(CASE WHEN is_multilabel THEN 1 ELSE 0 END)
		 FROM prediction GROUP BY task, label ORDER BY task, label`)
	if err != nil {
		return fmt.Errorf("loading taxonomy: %w", err)
	}
	defer rows.Close()

	tasks := make(map[string]TaskInfo)
	for rows.Next() {
		var (
			task, label string
			multi       int
		)
		if err := rows.Scan(&task, &label, &multi); err != nil {
			return fmt.Errorf("scanning taxonomy: %w", err)
		}
		t := tasks[task]
		t.Name = task
		t.Labels = append(t.Labels, label)
		t.Multilabel = t.Multilabel || multi == 1
		tasks[task] = t
	}
	if err := rows.Err(); err != nil {
		return err
	}

	ix.registry.replace(tasks)
	ix.log.Debug("task registry refreshed", zap.Int("tasks", len(tasks)))
	return nil
}
