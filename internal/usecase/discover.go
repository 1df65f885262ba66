package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"ChartCrime/internal/domain/models"
	domrepo "ChartCrime/internal/domain/repository"
	applogger "ChartCrime/pkg/logger"
	"ChartCrime/pkg/util"
)

// DiscoveryMode selects how the candidate catalog is built.
type DiscoveryMode string

const (
	// ModeFast scans the recently-updated feed.
	ModeFast DiscoveryMode = "fast"
	// ModeFullTree walks the whole category tree.
	ModeFullTree DiscoveryMode = "full-tree"

	dailyFrequency = "D"
)

var ErrNoRecentSeries = errors.New("fast discovery produced zero qualifying series")

type DiscoverOptions struct {
	RecentWindowDays int
	RootCategoryID   int
	SkipCategoryIDs  []int
}

// Discoverer builds the catalog of daily candidate series and saves it.
type Discoverer struct {
	source  domrepo.CatalogSource
	store   domrepo.CatalogStore
	opts    DiscoverOptions
	metrics domrepo.Metrics
	l       *applogger.Logger
	now     func() time.Time
}

func NewDiscoverer(source domrepo.CatalogSource, store domrepo.CatalogStore, opts DiscoverOptions, m domrepo.Metrics, l *applogger.Logger) *Discoverer {
	if opts.RecentWindowDays < 1 {
		opts.RecentWindowDays = 1
	}
	m, l = orNop(m, l)
	return &Discoverer{
		source:  source,
		store:   store,
		opts:    opts,
		metrics: m,
		l:       l.With("component", "discover"),
		now:     time.Now,
	}
}

// Run discovers with the given mode and saves the catalog. A failing or empty
// fast scan falls back to the full tree walk.
func (d *Discoverer) Run(ctx context.Context, mode DiscoveryMode) ([]models.Series, error) {
	start := time.Now()
	defer func() { d.metrics.RecordLatency("discover", time.Since(start).Seconds()) }()

	var (
		series []models.Series
		err    error
	)
	switch mode {
	case ModeFullTree:
		series, err = d.FullTree(ctx)
	case ModeFast, "":
		series, err = d.Recent(ctx)
		if err != nil && ctx.Err() == nil {
			d.metrics.RecordError("discover_fast")
			d.l.Warn("fast discovery failed, falling back to full tree", applogger.Error(err))
			series, err = d.FullTree(ctx)
		}
	default:
		return nil, fmt.Errorf("unknown discovery mode %q", mode)
	}
	if err != nil {
		return nil, err
	}

	if err := d.store.SaveCatalog(ctx, series); err != nil {
		return nil, fmt.Errorf("save catalog: %w", err)
	}
	d.l.Info("discovery complete",
		applogger.String("mode", string(mode)),
		applogger.Int("series", len(series)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return series, nil
}

// Recent returns daily series updated in the recent window whose data
// reaches at least yesterday, most popular first.
func (d *Discoverer) Recent(ctx context.Context) ([]models.Series, error) {
	now := d.now().UTC()
	today := util.Day(now)
	from := today.AddDate(0, 0, -(d.opts.RecentWindowDays - 1))
	to := today.Add(24*time.Hour - time.Second)
	yesterday := util.FormatDate(today.AddDate(0, 0, -1))

	updates, err := d.source.SeriesUpdates(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("series updates: %w", err)
	}

	seen := make(map[string]struct{}, len(updates))
	out := make([]models.Series, 0, len(updates))
	for _, s := range updates {
		if s.Frequency != dailyFrequency || s.ObservationEnd < yesterday {
			continue
		}
		if _, ok := seen[s.ID]; ok {
			continue
		}
		seen[s.ID] = struct{}{}
		out = append(out, s)
	}
	d.l.Info("recent updates scanned",
		applogger.Int("records", len(updates)),
		applogger.Int("qualifying", len(out)),
		applogger.String("since", util.FormatDate(from)),
	)
	if len(out) == 0 {
		return nil, ErrNoRecentSeries
	}
	sortByPopularity(out)
	return out, nil
}

// FullTree walks the category tree from the root and merges every daily
// series found into the existing catalog.
func (d *Discoverer) FullTree(ctx context.Context) ([]models.Series, error) {
	existing, err := d.store.LoadCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	w := &treeWalk{
		source:  d.source,
		byID:    make(map[string]struct{}, len(existing)),
		visited: make(map[int]struct{}),
		skip:    make(map[int]struct{}, len(d.opts.SkipCategoryIDs)),
		l:       d.l,
	}
	for _, id := range d.opts.SkipCategoryIDs {
		w.skip[id] = struct{}{}
	}
	for _, s := range existing {
		w.add(s)
	}
	d.l.Info("walking category tree",
		applogger.Int("root", d.opts.RootCategoryID),
		applogger.Int("existing", len(existing)),
	)

	if err := w.walk(ctx, d.opts.RootCategoryID, 0); err != nil {
		return nil, err
	}
	d.l.Info("category tree walked",
		applogger.Int("categories", len(w.visited)),
		applogger.Int("series", len(w.series)),
	)
	sortByPopularity(w.series)
	return w.series, nil
}

type treeWalk struct {
	source  domrepo.CatalogSource
	series  []models.Series
	byID    map[string]struct{}
	visited map[int]struct{}
	skip    map[int]struct{}
	l       *applogger.Logger
}

func (w *treeWalk) add(s models.Series) bool {
	if _, ok := w.byID[s.ID]; ok {
		return false
	}
	w.byID[s.ID] = struct{}{}
	w.series = append(w.series, s)
	return true
}

// walk recurses into branch categories and collects series at leaves.
func (w *treeWalk) walk(ctx context.Context, id, depth int) error {
	if _, ok := w.visited[id]; ok {
		return nil
	}
	if _, ok := w.skip[id]; ok {
		return nil
	}
	w.visited[id] = struct{}{}

	children, err := w.source.CategoryChildren(ctx, id)
	if err != nil {
		return fmt.Errorf("category %d children: %w", id, err)
	}
	if len(children) > 0 {
		for _, child := range children {
			if err := w.walk(ctx, child.ID, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	series, err := w.source.CategorySeries(ctx, id)
	if err != nil {
		return fmt.Errorf("category %d series: %w", id, err)
	}
	added := 0
	for _, s := range series {
		if w.add(s) {
			added++
		}
	}
	if added > 0 {
		w.l.Debug("category leaf collected",
			applogger.Int("category", id),
			applogger.Int("depth", depth),
			applogger.Int("new", added),
			applogger.Int("total", len(w.series)),
		)
	}
	return nil
}

func sortByPopularity(s []models.Series) {
	sort.SliceStable(s, func(i, j int) bool { return s[i].Popularity > s[j].Popularity })
}
