// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package results

import (
	"html"
	"sort"
	"strings"

	"github.com/pdiddy/litcurate/pkg/types"
)

// Highlight returns text HTML-escaped with each span wrapped in
// <mark data-entity="TAG">. Offsets count runes. Where spans overlap the
// one starting first wins; spans outside text are ignored.
func Highlight(text string, spans []types.EntitySpan) string {
	runes := []rune(text)
	sorted := append([]types.EntitySpan(nil), spans...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End > sorted[j].End
	})

	var b strings.Builder
	pos := 0
	for _, sp := range sorted {
		if sp.Start < pos || sp.Start >= sp.End || sp.End > len(runes) {
			continue
		}
		b.WriteString(html.EscapeString(string(runes[pos:sp.Start])))
		b.WriteString(`<mark data-entity="`)
		b.WriteString(html.EscapeString(sp.Tag))
		b.WriteString(`">`)
		b.WriteString(html.EscapeString(string(runes[sp.Start:sp.End])))
		b.WriteString(`</mark>`)
		pos = sp.End
	}
	b.WriteString(html.EscapeString(string(runes[pos:])))
	return b.String()
}
