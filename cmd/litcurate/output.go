// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/litcurate/internal/filter"
)

// printTable writes rows under a bold header, padding each column to its
// widest cell. Cells wider than 60 runes are truncated.
func printTable(w io.Writer, header []string, rows [][]string) {
	const maxWidth = 60
	width := make([]int, len(header))
	clip := func(s string) string {
		if utf8.RuneCountInString(s) <= maxWidth {
			return s
		}
		return string([]rune(s)[:maxWidth-3]) + "..."
	}
	for i, h := range header {
		width[i] = utf8.RuneCountInString(h)
	}
	for _, r := range rows {
		for i := range r {
			if n := utf8.RuneCountInString(clip(r[i])); i < len(width) && n > width[i] {
				width[i] = n
			}
		}
	}

	line := func(cells []string) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			c = clip(c)
			parts[i] = c + strings.Repeat(" ", width[i]-utf8.RuneCountInString(c))
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	bold := color.New(color.Bold)
	bold.Fprintln(w, line(header))
	for _, r := range rows {
		fmt.Fprintln(w, line(r))
	}
}

func printJSON(v any) error { return writeJSON(os.Stdout, v) }

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printYAML(v any) error {
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func jsonFlag(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

// parseFilters builds a filter set from repeated TASK=LABEL flags. A task
// named more than once accumulates its labels; tasks keep the order in
// which they first appear.
func parseFilters(specs []string) (*filter.Set, error) {
	set := &filter.Set{}
	for _, spec := range specs {
		task, label, ok := strings.Cut(spec, "=")
		task, label = strings.TrimSpace(task), strings.TrimSpace(label)
		if !ok || task == "" || label == "" {
			return nil, fmt.Errorf("invalid filter %q: use TASK=LABEL", spec)
		}
		if err := set.Add(task, append(set.Labels(task), label)); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func filterFlags(cmd *cobra.Command) (*filter.Set, error) {
	specs, _ := cmd.Flags().GetStringArray("filter")
	return parseFilters(specs)
}

func addFilterFlag(cmd *cobra.Command) {
	cmd.Flags().StringArray("filter", nil, "filter as TASK=LABEL; repeat for more labels or tasks")
}
