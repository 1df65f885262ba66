package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"ChartCrime/internal/domain/models"
	domrepo "ChartCrime/internal/domain/repository"
	"ChartCrime/internal/services/analytics"
	applogger "ChartCrime/pkg/logger"
	"ChartCrime/pkg/util"
)

var (
	ErrEmptyCatalog   = errors.New("discovery catalog is empty")
	ErrEmptyBenchmark = errors.New("no benchmark observations in window")
)

// SeriesError aborts a run on the first candidate that could not be processed.
type SeriesError struct {
	SeriesID string
	Err      error
}

func (e *SeriesError) Error() string {
	return fmt.Sprintf("failed while processing series %s: %v", e.SeriesID, e.Err)
}

func (e *SeriesError) Unwrap() error { return e.Err }

type CorrelateOptions struct {
	BenchmarkID string
	WindowDays  int
	// ExcludeCategoryID adds every member of this category to the exclusion
	// ids. Zero disables the lookup.
	ExcludeCategoryID int
	MinOverlapRatio   float64
	MinSamples        int
}

// Correlator ranks catalog series by their correlation with the benchmark.
type Correlator struct {
	source  domrepo.SeriesSource
	filter  *analytics.ExclusionFilter
	eval    analytics.Evaluator
	opts    CorrelateOptions
	metrics domrepo.Metrics
	l       *applogger.Logger
	now     func() time.Time
}

func NewCorrelator(source domrepo.SeriesSource, filter *analytics.ExclusionFilter, opts CorrelateOptions, m domrepo.Metrics, l *applogger.Logger) *Correlator {
	m, l = orNop(m, l)
	return &Correlator{
		source:  source,
		filter:  filter,
		eval:    analytics.NewEvaluator(opts.MinOverlapRatio, opts.MinSamples),
		opts:    opts,
		metrics: m,
		l:       l.With("component", "correlate"),
		now:     time.Now,
	}
}

// Run filters the catalog, aligns each remaining series to the benchmark
// calendar and scores it. Rejections are counted, never returned as errors;
// a fetch failure for any series aborts the run.
func (c *Correlator) Run(ctx context.Context, catalog []models.Series) (*models.CorrelationReport, error) {
	if len(catalog) == 0 {
		return nil, ErrEmptyCatalog
	}
	started := time.Now()
	now := c.now().UTC()

	filter := c.filter
	if c.opts.ExcludeCategoryID > 0 {
		ids, err := c.source.CategorySeriesIDs(ctx, c.opts.ExcludeCategoryID)
		if err != nil {
			return nil, fmt.Errorf("exclusion category %d: %w", c.opts.ExcludeCategoryID, err)
		}
		filter = filter.WithIDs(ids...)
		c.l.Info("exclusion set built",
			applogger.Int("size", filter.Size()),
			applogger.Int("from_category", len(ids)),
		)
	}
	kept, excluded := filter.Partition(catalog)
	for range excluded {
		c.metrics.RecordCandidate("excluded")
	}

	windowStart := util.WindowStart(now, c.opts.WindowDays)
	benchObs, err := c.source.Observations(ctx, c.opts.BenchmarkID, windowStart, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("benchmark %s: %w", c.opts.BenchmarkID, err)
	}
	if len(benchObs) == 0 {
		return nil, fmt.Errorf("%w: %s since %s", ErrEmptyBenchmark, c.opts.BenchmarkID, util.FormatDate(windowStart))
	}
	bench := analytics.NewBenchmark(benchObs)

	report := &models.CorrelationReport{
		GeneratedAt:    now,
		BenchmarkID:    c.opts.BenchmarkID,
		WindowStart:    windowStart,
		BenchmarkDates: bench.Len(),
		MaxMissing:     c.eval.Aligner.MaxMissing(bench.Len()),
		Total:          len(catalog),
		Excluded:       len(excluded),
		Results:        make([]models.CorrelationResult, 0, len(kept)),
	}
	c.l.Info("correlation window",
		applogger.String("benchmark", c.opts.BenchmarkID),
		applogger.String("window_start", util.FormatDate(windowStart)),
		applogger.Int("benchmark_dates", report.BenchmarkDates),
		applogger.Int("max_missing", report.MaxMissing),
		applogger.Int("candidates", len(kept)),
		applogger.Int("excluded", len(excluded)),
	)

	for i, s := range kept {
		obs, err := c.source.Observations(ctx, s.ID, windowStart, time.Time{})
		if err != nil {
			c.metrics.RecordError("series_fetch")
			return nil, &SeriesError{SeriesID: s.ID, Err: err}
		}

		res := c.eval.Evaluate(bench, obs)
		switch res.Reason {
		case models.RejectNone:
			report.Accepted++
			report.Results = append(report.Results, analytics.ToResult(s, res))
			c.metrics.RecordCandidate("accepted")
		case models.RejectInsufficientOverlap:
			report.InsufficientOverlap++
			c.metrics.RecordCandidate("insufficient_overlap")
		default:
			report.NoVariance++
			c.metrics.RecordCandidate("no_variance")
		}

		if (i+1)%50 == 0 {
			c.l.Debug("correlation progress",
				applogger.Int("done", i+1),
				applogger.Int("of", len(kept)),
				applogger.Int("accepted", report.Accepted),
			)
		}
	}

	sort.SliceStable(report.Results, func(i, j int) bool {
		return report.Results[i].AbsR > report.Results[j].AbsR
	})

	c.metrics.RecordLatency("correlate", time.Since(started).Seconds())
	c.l.Info("correlation complete",
		applogger.Int("accepted", report.Accepted),
		applogger.Int("insufficient_overlap", report.InsufficientOverlap),
		applogger.Int("no_variance", report.NoVariance),
		applogger.Duration("duration_ms", time.Since(started)),
	)
	return report, nil
}
