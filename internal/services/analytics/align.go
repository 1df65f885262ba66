package analytics

import (
	"math"
	"sort"
	"time"

	"ChartCrime/internal/domain/models"
	"ChartCrime/pkg/util"
)

// Aligner fits a candidate series onto the benchmark calendar.
type Aligner struct {
	// MinOverlapRatio is the fraction of benchmark dates the candidate must
	// cover with real observations; the rest may be carried forward.
	MinOverlapRatio float64
}

// MaxMissing returns how many of n benchmark dates may be filled.
func (a Aligner) MaxMissing(n int) int {
	allowed := (1.0 - a.MinOverlapRatio) * float64(n)
	// absorb representation error so (1-0.9)*10 floors to 1, not 0
	m := int(math.Floor(allowed + 1e-9))
	if m < 0 {
		return 0
	}
	return m
}

// Align maps obs onto benchDates. Missing benchmark dates are filled with the
// most recent observation on or before them. The candidate is rejected with
// insufficient-overlap when too many dates are missing, and no fill is
// attempted in that case, or when a missing date precedes all observations.
func (a Aligner) Align(benchDates []time.Time, obs []models.Observation) models.AlignmentResult {
	dates := util.SortedUniqueDays(benchDates)
	sorted := sortObservations(obs)

	byDay := make(map[string]float64, len(sorted))
	for _, o := range sorted {
		byDay[util.FormatDate(o.Date)] = o.Value
	}

	var missing []time.Time
	for _, d := range dates {
		if _, ok := byDay[util.FormatDate(d)]; !ok {
			missing = append(missing, d)
		}
	}
	if len(missing) > a.MaxMissing(len(dates)) {
		return models.AlignmentResult{Reason: models.RejectInsufficientOverlap}
	}

	for _, d := range missing {
		v, ok := carryForward(sorted, d)
		if !ok {
			return models.AlignmentResult{Reason: models.RejectInsufficientOverlap}
		}
		byDay[util.FormatDate(d)] = v
	}

	values := make([]float64, len(dates))
	for i, d := range dates {
		values[i] = byDay[util.FormatDate(d)]
	}
	return models.AlignmentResult{
		Dates:  dates,
		Values: values,
		Filled: missing,
	}
}

// carryForward returns the value of the last observation dated on or before d.
// sorted must be in ascending date order.
func carryForward(sorted []models.Observation, d time.Time) (float64, bool) {
	i := sort.Search(len(sorted), func(i int) bool {
		return util.Day(sorted[i].Date).After(d)
	})
	if i == 0 {
		return 0, false
	}
	return sorted[i-1].Value, true
}

func sortObservations(obs []models.Observation) []models.Observation {
	out := make([]models.Observation, len(obs))
	copy(out, obs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
