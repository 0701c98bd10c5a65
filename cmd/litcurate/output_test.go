// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/litcurate/internal/filter"
)

func TestParseFilters(t *testing.T) {
	tests := []struct {
		name    string
		specs   []string
		want    []filter.Entry
		wantErr bool
	}{
		{name: "none", specs: nil, want: []filter.Entry{}},
		{
			name:  "labels accumulate per task in first-seen order",
			specs: []string{"Substances=LSD", "Study Type=RCT", "Substances=MDMA"},
			want: []filter.Entry{
				{Task: "Substances", Labels: []string{"LSD", "MDMA"}},
				{Task: "Study Type", Labels: []string{"RCT"}},
			},
		},
		{
			name:  "labels may contain separators",
			specs: []string{"Study Type=Systematic review/meta-analysis", "Age=18-65, adults"},
			want: []filter.Entry{
				{Task: "Study Type", Labels: []string{"Systematic review/meta-analysis"}},
				{Task: "Age", Labels: []string{"18-65, adults"}},
			},
		},
		{name: "missing label", specs: []string{"Substances="}, wantErr: true},
		{name: "missing separator", specs: []string{"Substances"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := parseFilters(tt.specs)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			got := set.Entries()
			if got == nil {
				got = []filter.Entry{}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrintTable(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	printTable(&buf, []string{"Label", "Count"}, [][]string{
		{"LSD", "12"},
		{"Psilocybin", "3"},
		{strings.Repeat("x", 80), "1"},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Label", strings.Fields(lines[0])[0])
	assert.Equal(t, strings.Index(lines[0], "Count"), strings.Index(lines[1], "12"))
	assert.Contains(t, lines[3], strings.Repeat("x", 57)+"...")
}
