package models

import "time"

// RejectReason explains why a candidate did not produce a correlation.
type RejectReason string

const (
	RejectNone                RejectReason = ""
	RejectInsufficientOverlap RejectReason = "insufficient-overlap"
	RejectNoVariance          RejectReason = "no-variance"
)

// AlignmentResult is the per-candidate outcome of aligning against the benchmark
// calendar and scoring. When Reason is set, Dates, Filled and R are meaningless.
type AlignmentResult struct {
	Reason RejectReason
	Dates  []time.Time
	Values []float64
	Filled []time.Time
	R      float64
}

// Accepted reports whether the candidate produced a correlation.
func (r AlignmentResult) Accepted() bool { return r.Reason == RejectNone }

// CorrelationResult is one ranked record of the full result set.
type CorrelationResult struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	R           float64  `json:"r"`
	AbsR        float64  `json:"abs_r"`
	NDates      int      `json:"n_dates"`
	NAligned    int      `json:"n_aligned,omitempty"`
	FilledDates []string `json:"filled_dates"`
	Units       string   `json:"units"`
	Popularity  int      `json:"popularity"`
}

// AlignedCount returns the aligned sample size, accepting the legacy n_aligned field.
func (c CorrelationResult) AlignedCount() int {
	if c.NDates > 0 {
		return c.NDates
	}
	return c.NAligned
}

// CorrelationReport is the outcome of one correlation run.
type CorrelationReport struct {
	GeneratedAt         time.Time           `json:"generated_at"`
	BenchmarkID         string              `json:"benchmark_id"`
	WindowStart         time.Time           `json:"window_start"`
	BenchmarkDates      int                 `json:"benchmark_dates"`
	MaxMissing          int                 `json:"max_missing"`
	Total               int                 `json:"total"`
	Excluded            int                 `json:"excluded"`
	Accepted            int                 `json:"accepted"`
	InsufficientOverlap int                 `json:"insufficient_overlap"`
	NoVariance          int                 `json:"no_variance"`
	Results             []CorrelationResult `json:"results"`
}

// Category buckets a curated entry.
type Category string

const (
	CategoryFunny     Category = "funny"
	CategoryFinancial Category = "financial"
	CategoryOther     Category = "other"
)

// CuratedEntry is a ranked result plus the category it was admitted under.
type CuratedEntry struct {
	CorrelationResult
	Category Category `json:"category,omitempty"`
}

// RotationItem is the minimal record the display application consumes.
type RotationItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Rotation strips curated entries down to the consumer-facing list, preserving order.
func Rotation(entries []CuratedEntry) []RotationItem {
	out := make([]RotationItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RotationItem{ID: e.ID, Title: e.Title})
	}
	return out
}

// RotationEvent announces a newly curated rotation.
type RotationEvent struct {
	GeneratedAt time.Time      `json:"generated_at"`
	BenchmarkID string         `json:"benchmark_id"`
	Items       []RotationItem `json:"items"`
}
