package analytics

import (
	"time"

	"ChartCrime/internal/domain/models"
	"ChartCrime/pkg/util"
)

// Benchmark is the reference series on its own calendar: Dates ascending,
// Values[i] observed on Dates[i].
type Benchmark struct {
	Dates  []time.Time
	Values []float64
}

// NewBenchmark builds a benchmark from raw observations. Dates are truncated
// to calendar days; on duplicates the later observation wins.
func NewBenchmark(obs []models.Observation) Benchmark {
	byDay := make(map[string]float64, len(obs))
	dates := make([]time.Time, 0, len(obs))
	for _, o := range obs {
		byDay[util.FormatDate(o.Date)] = o.Value
		dates = append(dates, o.Date)
	}
	dates = util.SortedUniqueDays(dates)

	values := make([]float64, len(dates))
	for i, d := range dates {
		values[i] = byDay[util.FormatDate(d)]
	}
	return Benchmark{Dates: dates, Values: values}
}

// Len returns the benchmark calendar length.
func (b Benchmark) Len() int { return len(b.Dates) }

// Evaluator runs alignment then scoring for one candidate.
type Evaluator struct {
	Aligner Aligner
	Scorer  Scorer
}

// NewEvaluator wires an aligner and scorer from the analysis settings.
func NewEvaluator(minOverlapRatio float64, minSamples int) Evaluator {
	return Evaluator{
		Aligner: Aligner{MinOverlapRatio: minOverlapRatio},
		Scorer:  NewScorer(minSamples),
	}
}

// Evaluate aligns obs to the benchmark calendar and correlates the result.
// An undefined coefficient is reported as no-variance.
func (e Evaluator) Evaluate(bench Benchmark, obs []models.Observation) models.AlignmentResult {
	res := e.Aligner.Align(bench.Dates, obs)
	if !res.Accepted() {
		return res
	}
	r, ok := e.Scorer.Score(bench.Values, res.Values)
	if !ok {
		return models.AlignmentResult{Reason: models.RejectNoVariance}
	}
	res.R = r
	return res
}

// ToResult converts an accepted alignment into a ranked record.
func ToResult(s models.Series, res models.AlignmentResult) models.CorrelationResult {
	filled := make([]string, 0, len(res.Filled))
	for _, d := range res.Filled {
		filled = append(filled, util.FormatDate(d))
	}
	abs := res.R
	if abs < 0 {
		abs = -abs
	}
	return models.CorrelationResult{
		ID:          s.ID,
		Title:       s.Title,
		R:           res.R,
		AbsR:        abs,
		NDates:      len(res.Dates),
		FilledDates: filled,
		Units:       s.Units,
		Popularity:  s.Popularity,
	}
}
