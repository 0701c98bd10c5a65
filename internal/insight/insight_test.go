// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package insight

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/litcurate/internal/corpus/corpustest"
	"github.com/pdiddy/litcurate/internal/filter"
	"github.com/pdiddy/litcurate/internal/index"
)

const (
	rct    = "Randomized-controlled trial (RCT)"
	review = "Systematic review/meta-analysis"
)

func testService(t *testing.T) *Service {
	t.Helper()
	store, _ := corpustest.Open(t)
	corpustest.Seed(t, store,
		corpustest.Paper{ID: 1, Year: 2019, Labels: map[string][]string{
			"Study Type": {rct}, "Substances": {"LSD"},
			"Sex of Participants": {"Male"}, "Number of Participants": {"21-40"},
		}},
		corpustest.Paper{ID: 2, Year: 2020, Labels: map[string][]string{
			"Study Type": {review}, "Substances": {"LSD", "MDMA"},
		}},
		corpustest.Paper{ID: 3, Year: 2021, Labels: map[string][]string{
			"Study Type": {"Study protocol"}, "Substances": {"Psilocybin"},
		}},
		corpustest.Paper{ID: 4, Year: 2021, Labels: map[string][]string{
			"Study Type": {"Case report"}, "Substances": {"MDMA"},
		}},
	)
	return NewService(index.New(store, nil, nil), nil)
}

func TestCatalog(t *testing.T) {
	names := map[string]bool{}
	for _, d := range Catalog() {
		names[d.Name] = true
		assert.NotEmpty(t, d.Task, d.Name)
		assert.NotEmpty(t, d.Labels, d.Name)
	}
	for _, n := range []string{"rct", "efficacy-safety", "longitudinal", "sex-bias", "participants", "study-protocol"} {
		assert.True(t, names[n], n)
	}

	c := Catalog()
	c[0].Labels[0] = "mutated"
	d, err := Lookup(c[0].Name)
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", d.Labels[0])

	_, err = Lookup("nope")
	assert.ErrorIs(t, err, ErrUnknownInsight)
}

func TestRunRCT(t *testing.T) {
	s := testService(t)

	res, err := s.Run(context.Background(), "rct")
	require.NoError(t, err)
	assert.Equal(t, []index.GroupCount{
		{Group: "LSD", Label: rct, Count: 1},
		{Group: "LSD", Label: review, Count: 1},
		{Group: "MDMA", Label: index.Other, Count: 1},
		{Group: "MDMA", Label: review, Count: 1},
		{Group: "Psilocybin", Label: index.Other, Count: 1},
	}, res.Counts)

	assert.Equal(t, []filter.Entry{{Task: "Study Type", Labels: []string{rct, review}}}, res.Filters.Entries())
	assert.Equal(t, []string{"Study Type", "Substances"}, res.TagSet.Tasks())
	assert.Equal(t, []string{"LSD", "MDMA", "Psilocybin"}, res.TagSet.Labels("Substances"))
	assert.Equal(t, []int64{1, 2}, res.Candidates.List())
	assert.Equal(t, 2, res.Total)
}

func TestRunRestrictedAndJoinAll(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	res, err := s.Run(ctx, "sex-bias")
	require.NoError(t, err)
	assert.Equal(t, []index.GroupCount{{Group: "LSD", Label: "Male", Count: 1}}, res.Counts)
	assert.Equal(t, []int64{1}, res.Candidates.List())

	res, err = s.Run(ctx, "participants")
	require.NoError(t, err)
	assert.Equal(t, []index.GroupCount{{Group: "LSD", Label: "21-40", Count: 1}}, res.Counts)
}

func TestRunWithoutGroupTask(t *testing.T) {
	s := testService(t)

	res, err := s.Run(context.Background(), "study-protocol")
	require.NoError(t, err)
	assert.Empty(t, res.Counts)
	assert.Equal(t, []int64{3}, res.Candidates.List())
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, []string{"Study Type"}, res.TagSet.Tasks())
}

func TestRunErrors(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	_, err := s.Run(ctx, "efficacy-safety")
	assert.ErrorIs(t, err, index.ErrUnsupportedTask)

	_, err = s.Run(ctx, "nope")
	assert.ErrorIs(t, err, ErrUnknownInsight)
}

func TestDualTask(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	v, err := s.DualTask(ctx, "Study Type", "Substances", "")
	require.NoError(t, err)
	assert.Len(t, v.Frequency1, 4)
	assert.Equal(t, index.Frequency{
		{Label: "LSD", Count: 2}, {Label: "MDMA", Count: 2}, {Label: "Psilocybin", Count: 1},
	}, v.Frequency2)
	assert.Equal(t, []int64{1, 2, 3, 4}, v.Candidates.List())
	assert.Equal(t, 4, v.TotalPapers)
	assert.Equal(t, []string{"Study Type", "Substances"}, v.TagSet.Tasks())

	v, err = s.DualTask(ctx, "Study Type", "Substances", review)
	require.NoError(t, err)
	assert.Equal(t, index.Frequency{{Label: "LSD", Count: 1}, {Label: "MDMA", Count: 1}}, v.Frequency2)
	assert.Equal(t, []int64{2}, v.Candidates.List())
	assert.Equal(t, []filter.Entry{
		{Task: "Study Type", Labels: []string{review}},
		{Task: "Substances", Labels: []string{"LSD", "MDMA"}},
	}, v.TagSet.Entries())

	_, err = s.DualTask(ctx, "Substances", "Substances", "")
	assert.ErrorIs(t, err, filter.ErrInvalidFilterState)

	_, err = s.DualTask(ctx, "Substances", "Nope", "")
	assert.ErrorIs(t, err, index.ErrUnsupportedTask)
}

func TestTimeline(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	v, err := s.Timeline(ctx, 2020, 0)
	require.NoError(t, err)
	assert.Equal(t, []index.YearCount{{Year: 2020, Count: 1}, {Year: 2021, Count: 2}}, v.Counts)
	assert.Equal(t, []int64{2, 3, 4}, v.Candidates.List())

	v, err = s.Timeline(ctx, 1990, 1995)
	require.NoError(t, err)
	assert.Empty(t, v.Counts)
	assert.Equal(t, 0, v.Candidates.Len())

	_, err = s.Timeline(ctx, 2021, 2019)
	assert.ErrorIs(t, err, ErrInvalidRange)
}
