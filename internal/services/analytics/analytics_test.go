package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChartCrime/internal/domain/models"
)

var day0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func days(n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = day0.AddDate(0, 0, i)
	}
	return out
}

func series(dates []time.Time, f func(i int) float64) []models.Observation {
	obs := make([]models.Observation, len(dates))
	for i, d := range dates {
		obs[i] = models.Observation{Date: d, Value: f(i)}
	}
	return obs
}

func without(obs []models.Observation, idx ...int) []models.Observation {
	drop := make(map[int]bool, len(idx))
	for _, i := range idx {
		drop[i] = true
	}
	out := make([]models.Observation, 0, len(obs))
	for i, o := range obs {
		if !drop[i] {
			out = append(out, o)
		}
	}
	return out
}

func TestExclusionFilter(t *testing.T) {
	f := NewExclusionFilter([]string{"SP500X"}, []string{"Gold Price", " crypto "})

	assert.True(t, f.IsExcluded(models.Series{ID: "GOLDLONDON", Title: "Gold Price, London"}))
	assert.True(t, f.IsExcluded(models.Series{ID: "SP500X", Title: "Anything"}))
	assert.True(t, f.IsExcluded(models.Series{ID: "X", Title: "Some CRYPTO index"}))
	assert.False(t, f.IsExcluded(models.Series{ID: "ICSA", Title: "Initial Claims, Unemployment Insurance"}))
}

func TestExclusionFilter_Defaults(t *testing.T) {
	f := NewExclusionFilter(DefaultExcludedIDs(), DefaultExcludedKeywords())

	assert.True(t, f.IsExcluded(models.Series{ID: "GOLDPRICE", Title: "Gold Price, London"}))
	assert.True(t, f.IsExcluded(models.Series{ID: "VIXCLS", Title: "CBOE Volatility"}))
	assert.True(t, f.IsExcluded(models.Series{ID: "DCOILWTICO", Title: "Crude Oil Prices: West Texas Intermediate"}))
	assert.False(t, f.IsExcluded(models.Series{ID: "ICSA", Title: "Initial Claims, Unemployment Insurance"}))
}

func TestExclusionFilter_WithIDs(t *testing.T) {
	base := NewExclusionFilter(nil, nil)
	aug := base.WithIDs("NASDAQ100", "DJIA")

	s := models.Series{ID: "DJIA", Title: "Industrial Average"}
	assert.False(t, base.IsExcluded(s))
	assert.True(t, aug.IsExcluded(s))
	assert.Equal(t, 0, base.Size())
	assert.Equal(t, 2, aug.Size())
}

func TestExclusionFilter_Partition(t *testing.T) {
	f := NewExclusionFilter([]string{"B"}, nil)
	kept, excluded := f.Partition([]models.Series{{ID: "A"}, {ID: "B"}, {ID: "C"}})

	require.Len(t, kept, 2)
	assert.Equal(t, "A", kept[0].ID)
	assert.Equal(t, "C", kept[1].ID)
	require.Len(t, excluded, 1)
	assert.Equal(t, "B", excluded[0].ID)
}

func TestAligner_MaxMissing(t *testing.T) {
	a := Aligner{MinOverlapRatio: 0.95}
	assert.Equal(t, 3, a.MaxMissing(60))
	assert.Equal(t, 2, a.MaxMissing(59))
	assert.Equal(t, 0, a.MaxMissing(10))
	assert.Equal(t, 1, Aligner{MinOverlapRatio: 0.9}.MaxMissing(10))
	assert.Equal(t, 0, Aligner{MinOverlapRatio: 1}.MaxMissing(60))
}

func TestAligner_NoMissing(t *testing.T) {
	dates := days(20)
	obs := series(dates, func(i int) float64 { return float64(i) })

	res := Aligner{MinOverlapRatio: 0.95}.Align(dates, obs)
	require.True(t, res.Accepted())
	assert.Empty(t, res.Filled)
	assert.Equal(t, dates, res.Dates)
	assert.Equal(t, float64(19), res.Values[19])
}

func TestAligner_FillsBackward(t *testing.T) {
	dates := days(60)
	obs := without(series(dates, func(i int) float64 { return float64(i) }), 10, 11)

	res := Aligner{MinOverlapRatio: 0.95}.Align(dates, obs)
	require.True(t, res.Accepted())
	require.Len(t, res.Filled, 2)
	assert.Equal(t, dates[10], res.Filled[0])
	assert.Equal(t, dates[11], res.Filled[1])
	// both gaps carry day 9 forward, never day 12
	assert.Equal(t, float64(9), res.Values[10])
	assert.Equal(t, float64(9), res.Values[11])
	assert.Len(t, res.Values, 60)
}

func TestAligner_UsesObservationsOutsideCalendar(t *testing.T) {
	bench := []time.Time{day0.AddDate(0, 0, 1), day0.AddDate(0, 0, 2)}
	obs := []models.Observation{
		{Date: day0, Value: 7},
		{Date: day0.AddDate(0, 0, 2), Value: 8},
	}

	res := Aligner{MinOverlapRatio: 0.5}.Align(bench, obs)
	require.True(t, res.Accepted())
	assert.Equal(t, []float64{7, 8}, res.Values)
}

func TestAligner_RejectsFillBeforeHistory(t *testing.T) {
	dates := days(60)
	obs := without(series(dates, func(i int) float64 { return float64(i) }), 0)

	res := Aligner{MinOverlapRatio: 0.95}.Align(dates, obs)
	assert.Equal(t, models.RejectInsufficientOverlap, res.Reason)
	assert.Empty(t, res.Filled)
	assert.Empty(t, res.Values)
}

func TestAligner_RejectsTooManyMissing(t *testing.T) {
	dates := days(60)
	obs := without(series(dates, func(i int) float64 { return float64(i) }), 5, 6, 7, 8)

	res := Aligner{MinOverlapRatio: 0.95}.Align(dates, obs)
	assert.Equal(t, models.RejectInsufficientOverlap, res.Reason)
	assert.Nil(t, res.Filled)
	assert.Nil(t, res.Dates)
}

func TestAligner_UnsortedInput(t *testing.T) {
	dates := days(12)
	obs := series(dates, func(i int) float64 { return float64(i) })
	obs = without(obs, 4)
	// reverse
	for i, j := 0, len(obs)-1; i < j; i, j = i+1, j-1 {
		obs[i], obs[j] = obs[j], obs[i]
	}

	res := Aligner{MinOverlapRatio: 0.9}.Align(dates, obs)
	require.True(t, res.Accepted())
	assert.Equal(t, float64(3), res.Values[4])
}

func TestScorer(t *testing.T) {
	s := NewScorer(10)
	x := make([]float64, 30)
	neg := make([]float64, 30)
	flat := make([]float64, 30)
	for i := range x {
		x[i] = math.Sin(float64(i)) + float64(i)/10
		neg[i] = -x[i]
		flat[i] = 4.2
	}

	r, ok := s.Score(x, x)
	require.True(t, ok)
	assert.InDelta(t, 1.0, r, 1e-9)

	r, ok = s.Score(x, neg)
	require.True(t, ok)
	assert.InDelta(t, -1.0, r, 1e-9)

	_, ok = s.Score(x, flat)
	assert.False(t, ok)
	_, ok = s.Score(flat, x)
	assert.False(t, ok)

	tenth := make([]float64, 30)
	for i := range tenth {
		tenth[i] = 0.1
	}
	_, ok = s.Score(x, tenth)
	assert.False(t, ok, "repeated fractional value has no variance")
}

func TestScorer_Guards(t *testing.T) {
	s := NewScorer(10)

	_, ok := s.Score([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9}, []float64{2, 1, 4, 3, 6, 5, 8, 7, 9})
	assert.False(t, ok, "nine samples is below the floor")

	_, ok = s.Score([]float64{1, 2}, []float64{1})
	assert.False(t, ok)

	r, ok := s.Score(
		[]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		[]float64{2, 1, 4, 3, 6, 5, 8, 7, 10, 9},
	)
	require.True(t, ok)
	assert.GreaterOrEqual(t, r, -1.0)
	assert.LessOrEqual(t, r, 1.0)
	assert.Equal(t, r, math.Round(r*1e6)/1e6)
}

func TestNewBenchmark(t *testing.T) {
	b := NewBenchmark([]models.Observation{
		{Date: day0.AddDate(0, 0, 2), Value: 3},
		{Date: day0, Value: 1},
		{Date: day0.Add(5 * time.Hour), Value: 2},
	})

	require.Equal(t, 2, b.Len())
	assert.Equal(t, day0, b.Dates[0])
	assert.Equal(t, []float64{2, 3}, b.Values)
}

func TestEvaluator(t *testing.T) {
	dates := days(60)
	bench := NewBenchmark(series(dates, func(i int) float64 { return 100 + float64(i) + 5*math.Sin(float64(i)) }))
	e := NewEvaluator(0.95, 10)

	t.Run("identical", func(t *testing.T) {
		res := e.Evaluate(bench, series(dates, func(i int) float64 { return bench.Values[i] }))
		require.True(t, res.Accepted())
		assert.InDelta(t, 1.0, res.R, 1e-9)
	})

	t.Run("filled", func(t *testing.T) {
		obs := without(series(dates, func(i int) float64 { return bench.Values[i] + 10*math.Cos(float64(i)) }), 10, 30)
		res := e.Evaluate(bench, obs)
		require.True(t, res.Accepted())
		assert.Len(t, res.Filled, 2)

		out := ToResult(models.Series{ID: "B", Title: "b", Units: "u", Popularity: 3}, res)
		assert.Equal(t, 60, out.NDates)
		assert.Equal(t, []string{"2026-01-11", "2026-01-31"}, out.FilledDates)
		assert.Equal(t, math.Abs(out.R), out.AbsR)
	})

	t.Run("sparse", func(t *testing.T) {
		idx := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
		res := e.Evaluate(bench, without(series(dates, func(i int) float64 { return float64(i) }), idx...))
		assert.Equal(t, models.RejectInsufficientOverlap, res.Reason)
	})

	t.Run("constant", func(t *testing.T) {
		res := e.Evaluate(bench, series(dates, func(int) float64 { return 1 }))
		assert.Equal(t, models.RejectNoVariance, res.Reason)
	})

	t.Run("short window", func(t *testing.T) {
		short := NewBenchmark(series(dates[:9], func(i int) float64 { return float64(i) }))
		res := e.Evaluate(short, series(dates[:9], func(i int) float64 { return float64(i * 2) }))
		assert.Equal(t, models.RejectNoVariance, res.Reason)
	})
}
