package aggregate_test

import (
	"testing"

	"github.com/paveg/unicorns/internal/aggregate"
	"github.com/paveg/unicorns/internal/errors"
	"github.com/paveg/unicorns/internal/series"
	"github.com/paveg/unicorns/internal/table"
	"github.com/paveg/unicorns/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const null = testutil.Null

func newRanked(mem *testutil.TestMemoryContext) *table.Table {
	return table.New(
		series.New("company", []string{"A", "B", "C", "D", "E"}, mem.Allocator),
		testutil.NullableStrings(mem.Allocator, "country", "USA", "USA", "FRA", null, "FRA"),
		series.NewNullable("valuation", []float64{10, 40, 15, 99, 15}, []bool{true, true, true, true, true}, mem.Allocator),
		testutil.NullableStrings(mem.Allocator, "industry", "Fintech", "AI", "AI", null, "Fintech"),
	)
}

func TestTopN(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	tbl := newRanked(mem)
	defer tbl.Release()

	tests := []struct {
		name      string
		n         int
		ascending bool
		want      []string
	}{
		{"descending", 3, false, []string{"D", "B", "C"}},
		{"ascending with stable ties", 3, true, []string{"A", "C", "E"}},
		{"n beyond length", 10, false, []string{"D", "B", "C", "E", "A"}},
		{"zero", 0, false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			top, err := aggregate.TopN(tbl, tt.n, tt.ascending)
			require.NoError(t, err)
			defer top.Release()

			assert.Equal(t, tbl.Columns(), top.Columns())
			assert.Len(t, testutil.ColumnStrings(t, top, "company"), len(tt.want))
			if len(tt.want) > 0 {
				assert.Equal(t, tt.want, testutil.ColumnStrings(t, top, "company"))
			}
		})
	}

	t.Run("negative n is invalid input", func(t *testing.T) {
		_, err := aggregate.TopN(tbl, -1, false)
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})

	t.Run("missing valuation column", func(t *testing.T) {
		partial := tbl.Select("company")
		defer partial.Release()
		_, err := aggregate.TopN(partial, 1, false)
		assert.ErrorIs(t, err, errors.ErrSchema)
	})

	t.Run("unusable valuations sort last both ways", func(t *testing.T) {
		raw := table.New(
			series.New("company", []string{"X", "Y", "Z"}, mem.Allocator),
			testutil.NullableStrings(mem.Allocator, "valuation", "N/A", "$5", null),
		)
		defer raw.Release()

		for _, ascending := range []bool{true, false} {
			top, err := aggregate.TopN(raw, 3, ascending)
			require.NoError(t, err)
			assert.Equal(t, []string{"Y", "X", "Z"}, testutil.ColumnStrings(t, top, "company"))
			top.Release()
		}
	})
}

func TestTopPerCountry(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	t.Run("example", func(t *testing.T) {
		tbl := table.New(
			series.New("company", []string{"A", "B", "C"}, mem.Allocator),
			series.New("country", []string{"USA", "USA", "FRA"}, mem.Allocator),
			series.New("valuation", []float64{10, 40, 15}, mem.Allocator),
		)
		defer tbl.Release()

		top, err := aggregate.TopPerCountry(tbl)
		require.NoError(t, err)
		defer top.Release()

		assert.Equal(t, []string{"B", "USA", "40"}, top.Record(0))
		assert.Equal(t, []string{"C", "FRA", "15"}, top.Record(1))
	})

	t.Run("ties and missing countries", func(t *testing.T) {
		tbl := newRanked(mem)
		defer tbl.Release()

		top, err := aggregate.TopPerCountry(tbl)
		require.NoError(t, err)
		defer top.Release()

		// D has no country; C and E tie on 15 and C comes first.
		assert.Equal(t, []string{"B", "C"}, testutil.ColumnStrings(t, top, "company"))
	})

	t.Run("one row per country holding its maximum", func(t *testing.T) {
		rows := testutil.SampleRows(8)
		tbl := testutil.NewUnicornTable(mem.Allocator, rows...)
		defer tbl.Release()

		top, err := aggregate.TopPerCountry(tbl)
		require.NoError(t, err)
		defer top.Release()

		assert.Equal(t,
			[]string{"China", "United States", "Sweden", "Australia", "United Kingdom"},
			testutil.ColumnStrings(t, top, "country"))
		assert.Equal(t, "SpaceX", testutil.ColumnStrings(t, top, "company")[1])
	})

	t.Run("missing country column", func(t *testing.T) {
		tbl := table.New(series.New("valuation", []float64{1}, mem.Allocator))
		defer tbl.Release()
		_, err := aggregate.TopPerCountry(tbl)
		assert.ErrorIs(t, err, errors.ErrSchema)
	})
}

func TestIndustryFrequency(t *testing.T) {
	mem := testutil.SetupMemoryTest(t)
	defer mem.Release()

	tbl := testutil.CreateTestTable(mem.Allocator)
	defer tbl.Release()

	counts, err := aggregate.IndustryFrequency(tbl)
	require.NoError(t, err)

	require.NotEmpty(t, counts)
	assert.Equal(t, aggregate.IndustryCount{Industry: "Fintech", Count: 3}, counts[0])
	// Ties keep first-seen order.
	assert.Equal(t, "Artificial intelligence", counts[1].Industry)
	assert.Equal(t, "Other", counts[2].Industry)

	total := 0
	for _, c := range counts {
		total += c.Count
	}
	assert.Equal(t, tbl.Len(), total)

	t.Run("missing industries are not counted", func(t *testing.T) {
		tbl := newRanked(mem)
		defer tbl.Release()

		counts, err := aggregate.IndustryFrequency(tbl)
		require.NoError(t, err)
		assert.Equal(t, []aggregate.IndustryCount{{"Fintech", 2}, {"AI", 2}}, counts)
	})

	t.Run("most frequent", func(t *testing.T) {
		top, ok, err := aggregate.MostFrequentIndustry(tbl)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "Fintech", top.Industry)

		empty := tbl.Head(0)
		defer empty.Release()
		_, ok, err = aggregate.MostFrequentIndustry(empty)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("missing industry column", func(t *testing.T) {
		partial := tbl.Select("company")
		defer partial.Release()
		_, _, err := aggregate.MostFrequentIndustry(partial)
		assert.ErrorIs(t, err, errors.ErrSchema)
	})
}
