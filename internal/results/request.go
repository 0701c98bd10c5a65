// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package results

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrInvalidRequest is returned for page windows, sort fields or column
// filters the provider cannot serve.
var ErrInvalidRequest = errors.New("invalid page request")

// MaxPageSize bounds EndRow - StartRow.
const MaxPageSize = 1000

// SortModel is one entry of the grid's sort model.
type SortModel struct {
	ColID string `json:"colId"`
	Sort  string `json:"sort"`
}

// ColumnFilter is one condition of the grid's filter model.
type ColumnFilter struct {
	Column   string `json:"column"`
	Type     string `json:"type"`
	Filter   string `json:"filter"`
	FilterTo string `json:"filterTo,omitempty"`
}

// PageRequest is the grid's server-side row model request.
type PageRequest struct {
	StartRow    int            `json:"startRow"`
	EndRow      int            `json:"endRow"`
	SortModel   []SortModel    `json:"sortModel"`
	FilterModel []ColumnFilter `json:"-"`
}

// ParseFilterModel reads a grid filter model such as
//
//	{"title": {"filterType": "text", "type": "contains", "filter": "lsd"},
//	 "year":  {"filterType": "number", "type": "inRange", "filter": 2019, "filterTo": 2021}}
//
// A condition without a type means equals. Combined conditions are
// accepted when joined with AND. An empty model yields no filters.
func ParseFilterModel(raw string) ([]ColumnFilter, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil, nil
	}
	if !gjson.Valid(raw) {
		return nil, fmt.Errorf("%w: filter model is not valid JSON", ErrInvalidRequest)
	}
	model := gjson.Parse(raw)
	if !model.IsObject() {
		return nil, fmt.Errorf("%w: filter model must be an object", ErrInvalidRequest)
	}

	var (
		out []ColumnFilter
		err error
	)
	model.ForEach(func(key, value gjson.Result) bool {
		column := key.String()
		if conds := value.Get("conditions"); conds.Exists() {
			if op := value.Get("operator").String(); op != "" && !strings.EqualFold(op, "AND") {
				err = fmt.Errorf("%w: %s: only AND combined filters are supported", ErrInvalidRequest, column)
				return false
			}
			for _, c := range conds.Array() {
				out = append(out, conditionFrom(column, c))
			}
			return true
		}
		out = append(out, conditionFrom(column, value))
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func conditionFrom(column string, v gjson.Result) ColumnFilter {
	typ := v.Get("type").String()
	if typ == "" {
		typ = "equals"
	}
	return ColumnFilter{
		Column:   column,
		Type:     typ,
		Filter:   v.Get("filter").String(),
		FilterTo: v.Get("filterTo").String(),
	}
}

type columnKind int

const (
	textColumn columnKind = iota
	numberColumn
)

type column struct {
	expr string
	kind columnKind
}

// columns lists the paper fields the grid may sort and filter on.
var columns = map[string]column{
	"id":        {"p.id", numberColumn},
	"year":      {"p.year", numberColumn},
	"title":     {"p.title", textColumn},
	"abstract":  {"p.abstract", textColumn},
	"authors":   {"p.authors", textColumn},
	"key_terms": {"COALESCE(p.key_terms, '')", textColumn},
	"doi":       {"COALESCE(p.doi, '')", textColumn},
}

// orderBy builds the ORDER BY clause. Without a sort model rows are
// ordered by year descending. The paper id is always the final tie-break.
func orderBy(model []SortModel) (string, error) {
	if len(model) == 0 {
		return ` ORDER BY p.year DESC, p.id ASC`, nil
	}
	parts := make([]string, 0, len(model)+1)
	hasID := false
	for _, m := range model {
		col, ok := columns[m.ColID]
		if !ok {
			return "", fmt.Errorf("%w: cannot sort on %q", ErrInvalidRequest, m.ColID)
		}
		dir := "ASC"
		switch strings.ToLower(m.Sort) {
		case "", "asc":
		case "desc":
			dir = "DESC"
		default:
			return "", fmt.Errorf("%w: sort direction %q", ErrInvalidRequest, m.Sort)
		}
		parts = append(parts, col.expr+" "+dir)
		hasID = hasID || m.ColID == "id"
	}
	if !hasID {
		parts = append(parts, "p.id ASC")
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

// clause returns the SQL predicate for f and its arguments.
func (f ColumnFilter) clause() (string, []any, error) {
	col, ok := columns[f.Column]
	if !ok {
		return "", nil, fmt.Errorf("%w: cannot filter on %q", ErrInvalidRequest, f.Column)
	}
	if col.kind == numberColumn {
		return f.numberClause(col.expr)
	}

	v := strings.ToLower(f.Filter)
	lower := "lower(" + col.expr + ")"
	switch f.Type {
	case "equals":
		return col.expr + " = ?", []any{f.Filter}, nil
	case "notEqual":
		return col.expr + " <> ?", []any{f.Filter}, nil
	case "contains":
		return lower + ` LIKE ? ESCAPE '\'`, []any{"%" + likeEscape(v) + "%"}, nil
	case "notContains":
		return lower + ` NOT LIKE ? ESCAPE '\'`, []any{"%" + likeEscape(v) + "%"}, nil
	case "startsWith":
		return lower + ` LIKE ? ESCAPE '\'`, []any{likeEscape(v) + "%"}, nil
	case "endsWith":
		return lower + ` LIKE ? ESCAPE '\'`, []any{"%" + likeEscape(v)}, nil
	}
	return "", nil, fmt.Errorf("%w: text filter type %q", ErrInvalidRequest, f.Type)
}

func (f ColumnFilter) numberClause(expr string) (string, []any, error) {
	n, err := strconv.ParseInt(f.Filter, 10, 64)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %s filter %q is not a number", ErrInvalidRequest, f.Column, f.Filter)
	}
	ops := map[string]string{
		"equals":             "=",
		"notEqual":           "<>",
		"greaterThan":        ">",
		"greaterThanOrEqual": ">=",
		"lessThan":           "<",
		"lessThanOrEqual":    "<=",
	}
	if op, ok := ops[f.Type]; ok {
		return expr + " " + op + " ?", []any{n}, nil
	}
	if f.Type == "inRange" {
		to, err := strconv.ParseInt(f.FilterTo, 10, 64)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %s filterTo %q is not a number", ErrInvalidRequest, f.Column, f.FilterTo)
		}
		return expr + " >= ? AND " + expr + " <= ?", []any{n, to}, nil
	}
	return "", nil, fmt.Errorf("%w: number filter type %q", ErrInvalidRequest, f.Type)
}

func likeEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
