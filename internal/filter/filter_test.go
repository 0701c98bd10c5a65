// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package filter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/litcurate/pkg/types"
)

// fakeLookup maps task -> label -> paper ids and records calls.
type fakeLookup struct {
	data  map[string]map[string][]int64
	calls []string
	err   error
}

func (f *fakeLookup) PaperIDsForLabels(_ context.Context, task string, labels []string) (mapset.Set[int64], error) {
	f.calls = append(f.calls, task)
	if f.err != nil {
		return nil, f.err
	}
	out := mapset.NewThreadUnsafeSet[int64]()
	for _, l := range labels {
		out.Append(f.data[task][l]...)
	}
	return out, nil
}

func testLookup() *fakeLookup {
	return &fakeLookup{data: map[string]map[string][]int64{
		"T1":          {"a": {1, 2}, "b": {3}, "c": {4}},
		"T2":          {"c": {2, 3, 5}},
		"Study Type":  {"RCT": {1, 2}},
		"Substances":  {"LSD": {1}},
		"Nothing":     {"none": {}},
		"Sex":         {"Male": {7}},
		"Unreachable": {"x": {1}},
	}}
}

// --- set tests ---

func TestSetAddKeepsPosition(t *testing.T) {
	s := &Set{}
	require.NoError(t, s.Add("T1", []string{"a"}))
	require.NoError(t, s.Add("T2", []string{"c"}))
	require.NoError(t, s.Add("T1", []string{"b", "a", "b"}))

	assert.Equal(t, []Entry{
		{Task: "T1", Labels: []string{"b", "a"}},
		{Task: "T2", Labels: []string{"c"}},
	}, s.Entries())
}

func TestSetAddRejectsEmpty(t *testing.T) {
	s := &Set{}
	assert.ErrorIs(t, s.Add("T1", nil), ErrEmptySelection)
	assert.ErrorIs(t, s.Add("T1", []string{""}), ErrEmptySelection)
	assert.ErrorIs(t, s.Add(" ", []string{"a"}), ErrEmptySelection)
	assert.True(t, s.Empty())
}

func TestSetRemoveLabel(t *testing.T) {
	s, err := NewSet(Entry{"T1", []string{"a", "b"}}, Entry{"T2", []string{"c"}}, Entry{"T3", []string{"d"}})
	require.NoError(t, err)

	assert.True(t, s.RemoveLabel("T1", "a"))
	assert.Equal(t, []string{"b"}, s.Labels("T1"))

	assert.True(t, s.RemoveLabel("T2", "c"))
	assert.Equal(t, []string{"T1", "T3"}, s.Tasks(), "emptied task is removed")

	// A re-added task goes to the end.
	require.NoError(t, s.Add("T2", []string{"c"}))
	assert.Equal(t, []string{"T1", "T3", "T2"}, s.Tasks())

	assert.False(t, s.RemoveLabel("T1", "zzz"))
	assert.False(t, s.RemoveLabel("T9", "a"))
}

func TestSetRemoveTaskAndClear(t *testing.T) {
	s, err := NewSet(Entry{"T1", []string{"a"}}, Entry{"T2", []string{"c"}})
	require.NoError(t, err)
	assert.True(t, s.RemoveTask("T1"))
	assert.False(t, s.RemoveTask("T1"))
	assert.Equal(t, 1, s.Len())
	s.Clear()
	assert.True(t, s.Empty())
}

func TestSetCloneIsIndependent(t *testing.T) {
	s, err := NewSet(Entry{"T1", []string{"a", "b"}})
	require.NoError(t, err)
	c := s.Clone()
	s.RemoveLabel("T1", "a")
	assert.Equal(t, []string{"a", "b"}, c.Labels("T1"))
}

func TestSetJSON(t *testing.T) {
	s, err := NewSet(Entry{"T2", []string{"c"}}, Entry{"T1", []string{"x", "y"}})
	require.NoError(t, err)

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"task":"T2","labels":["c"]},{"task":"T1","labels":["x","y"]}]`, string(data))

	var back Set
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, s.Entries(), back.Entries())

	data, err = json.Marshal(&Set{})
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))

	assert.ErrorIs(t, json.Unmarshal([]byte(`[{"task":"T1","labels":[]}]`), &back), ErrEmptySelection)
}

func TestSetTags(t *testing.T) {
	s, err := NewSet(Entry{"T2", []string{"c"}}, Entry{"T1", []string{"x", "y"}})
	require.NoError(t, err)
	assert.Equal(t, []types.Tag{{Task: "T2", Label: "c"}, {Task: "T1", Label: "x"}, {Task: "T1", Label: "y"}}, s.Tags())
}

// --- resolve tests ---

func TestResolveIntersectionOfUnions(t *testing.T) {
	r := NewResolver(testLookup(), nil)
	s, err := NewSet(Entry{"T1", []string{"a", "b"}}, Entry{"T2", []string{"c"}})
	require.NoError(t, err)

	got, err := r.Resolve(context.Background(), s)
	require.NoError(t, err)
	// (T1=a OR T1=b) = {1,2,3}; T2=c = {2,3,5}
	assert.Equal(t, []int64{2, 3}, got.List())
	assert.False(t, got.Unrestricted())
}

func TestResolveScenario(t *testing.T) {
	r := NewResolver(testLookup(), nil)
	s, err := NewSet(Entry{"Study Type", []string{"RCT"}}, Entry{"Substances", []string{"LSD"}})
	require.NoError(t, err)

	got, err := r.Resolve(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, got.List())
}

func TestResolveEmptySetIsUnrestricted(t *testing.T) {
	lookup := testLookup()
	r := NewResolver(lookup, nil)

	got, err := r.Resolve(context.Background(), &Set{})
	require.NoError(t, err)
	assert.True(t, got.Unrestricted())
	assert.Equal(t, -1, got.Len())
	assert.True(t, got.Contains(12345))
	assert.Empty(t, lookup.calls)

	got, err = r.Resolve(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, got.Unrestricted())
}

func TestResolveShortCircuits(t *testing.T) {
	lookup := testLookup()
	r := NewResolver(lookup, nil)
	s, err := NewSet(Entry{"Nothing", []string{"none"}}, Entry{"Unreachable", []string{"x"}})
	require.NoError(t, err)

	got, err := r.Resolve(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
	assert.False(t, got.Unrestricted(), "an empty result is not unrestricted")
	assert.Equal(t, []string{"Nothing"}, lookup.calls)
}

func TestResolvePropagatesErrors(t *testing.T) {
	sentinel := errors.New("boom")
	r := NewResolver(&fakeLookup{err: sentinel}, nil)
	s, err := NewSet(Entry{"T1", []string{"a"}})
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), s)
	assert.ErrorIs(t, err, sentinel)
}

func TestCandidatesJSON(t *testing.T) {
	data, err := json.Marshal(All())
	require.NoError(t, err)
	assert.JSONEq(t, `{"unrestricted":true}`, string(data))

	data, err = json.Marshal(IDs(3, 1))
	require.NoError(t, err)
	assert.JSONEq(t, `{"unrestricted":false,"ids":[1,3]}`, string(data))

	data, err = json.Marshal(IDs())
	require.NoError(t, err)
	assert.JSONEq(t, `{"unrestricted":false,"ids":[]}`, string(data))

	var c Candidates
	require.NoError(t, json.Unmarshal([]byte(`{"ids":[5]}`), &c))
	assert.Equal(t, []int64{5}, c.List())
	require.NoError(t, json.Unmarshal([]byte(`{"unrestricted":true}`), &c))
	assert.True(t, c.Unrestricted())
}

// --- tag ordering tests ---

func TestOrderTags(t *testing.T) {
	// Filters added T2 first, then T1 with labels [x, y].
	s, err := NewSet(Entry{"T2", []string{"c"}}, Entry{"T1", []string{"x", "y"}})
	require.NoError(t, err)

	tags := []types.Tag{
		{Task: "T1", Label: "y"}, {Task: "T3", Label: "z"}, {Task: "T1", Label: "x"}, {Task: "T2", Label: "c"}, {Task: "T1", Label: "y"}, {Task: "T1", Label: "w"},
	}
	assert.Equal(t, []types.Tag{{Task: "T2", Label: "c"}, {Task: "T1", Label: "x"}, {Task: "T1", Label: "y"}}, OrderTags(s, tags))
	assert.Empty(t, OrderTags(&Set{}, tags))
}

func TestValidateDualTask(t *testing.T) {
	assert.NoError(t, ValidateDualTask("Study Type", "Substances"))
	assert.ErrorIs(t, ValidateDualTask("Study Type", "Study Type"), ErrInvalidFilterState)
	assert.ErrorIs(t, ValidateDualTask("", "Substances"), ErrInvalidFilterState)
}
