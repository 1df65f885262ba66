package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChartCrime/internal/domain/models"
	"ChartCrime/internal/repository"
	"ChartCrime/internal/services/analytics"
	"ChartCrime/internal/services/curation"
	"ChartCrime/pkg/cache"
)

var (
	testNow   = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	firstDate = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
)

// fakeAPI serves canned observations, category members and a category tree.
type fakeAPI struct {
	obs       map[string][]models.Observation
	obsErr    map[string]error
	category  []string
	updates   []models.Series
	updateErr error
	children  map[int][]models.CategoryNode
	leaves    map[int][]models.Series
	calls     map[int]int
	starts    []time.Time
}

func (f *fakeAPI) Observations(_ context.Context, id string, start, _ time.Time) ([]models.Observation, error) {
	f.starts = append(f.starts, start)
	if err := f.obsErr[id]; err != nil {
		return nil, err
	}
	return f.obs[id], nil
}

func (f *fakeAPI) CategorySeriesIDs(context.Context, int) ([]string, error) {
	return f.category, nil
}

func (f *fakeAPI) SeriesUpdates(context.Context, time.Time, time.Time) ([]models.Series, error) {
	return f.updates, f.updateErr
}

func (f *fakeAPI) CategoryChildren(_ context.Context, id int) ([]models.CategoryNode, error) {
	if f.calls == nil {
		f.calls = map[int]int{}
	}
	f.calls[id]++
	return f.children[id], nil
}

func (f *fakeAPI) CategorySeries(_ context.Context, id int) ([]models.Series, error) {
	return f.leaves[id], nil
}

type memStore struct {
	catalog  []models.Series
	results  []models.CorrelationResult
	rotation []models.RotationItem
	detail   []models.CuratedEntry
	saves    int
}

func (m *memStore) LoadCatalog(context.Context) ([]models.Series, error) { return m.catalog, nil }
func (m *memStore) SaveCatalog(_ context.Context, s []models.Series) error {
	m.catalog = s
	m.saves++
	return nil
}
func (m *memStore) LoadResults(context.Context) ([]models.CorrelationResult, error) {
	return m.results, nil
}
func (m *memStore) SaveResults(_ context.Context, r []models.CorrelationResult) error {
	m.results = r
	return nil
}
func (m *memStore) LoadRotation(context.Context) ([]models.RotationItem, error) {
	return m.rotation, nil
}
func (m *memStore) SaveRotation(_ context.Context, r []models.RotationItem) error {
	m.rotation = r
	return nil
}
func (m *memStore) LoadDetail(context.Context) ([]models.CuratedEntry, error) { return m.detail, nil }
func (m *memStore) SaveDetail(_ context.Context, d []models.CuratedEntry) error {
	m.detail = d
	return nil
}

func series(n int, f func(i int) float64, skip ...int) []models.Observation {
	drop := map[int]bool{}
	for _, i := range skip {
		drop[i] = true
	}
	out := make([]models.Observation, 0, n)
	for i := 0; i < n; i++ {
		if drop[i] {
			continue
		}
		out = append(out, models.Observation{Date: firstDate.AddDate(0, 0, i), Value: f(i)})
	}
	return out
}

func benchValue(i int) float64 { return 100 + float64(i) + float64(i%3)*2 }

func newFixture() *fakeAPI {
	return &fakeAPI{
		obs: map[string][]models.Observation{
			"SP500": series(30, benchValue),
			"A":     series(30, func(i int) float64 { return 2 * benchValue(i) }),
			"B":     series(30, func(i int) float64 { return -benchValue(i) }, 10),
			"C":     series(30, benchValue, 5, 6),
			"D":     series(30, func(int) float64 { return 5 }),
		},
		category: []string{"DJIA"},
	}
}

func catalog() []models.Series {
	return []models.Series{
		{ID: "A", Title: "Coffee Shop Employment in Oregon", Popularity: 3},
		{ID: "B", Title: "10-Year Treasury Constant Maturity", Popularity: 80},
		{ID: "C", Title: "Gappy", Popularity: 1},
		{ID: "D", Title: "Flat", Popularity: 1},
		{ID: "E", Title: "Gold Price, London", Popularity: 50},
		{ID: "DJIA", Title: "Dow Jones Industrial Average", Popularity: 90},
	}
}

func newTestCorrelator(api *fakeAPI) *Correlator {
	c := NewCorrelator(api,
		analytics.NewExclusionFilter([]string{"SP500"}, []string{"gold price"}),
		CorrelateOptions{
			BenchmarkID:       "SP500",
			WindowDays:        60,
			ExcludeCategoryID: 32255,
			MinOverlapRatio:   0.95,
			MinSamples:        analytics.DefaultMinSamples,
		}, nil, nil)
	c.now = func() time.Time { return testNow }
	return c
}

func TestCorrelator_Run(t *testing.T) {
	api := newFixture()
	report, err := newTestCorrelator(api).Run(context.Background(), catalog())
	require.NoError(t, err)

	assert.Equal(t, "SP500", report.BenchmarkID)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), report.WindowStart)
	assert.Equal(t, 30, report.BenchmarkDates)
	assert.Equal(t, 1, report.MaxMissing)
	assert.Equal(t, 6, report.Total)
	assert.Equal(t, 2, report.Excluded)
	assert.Equal(t, 2, report.Accepted)
	assert.Equal(t, 1, report.InsufficientOverlap)
	assert.Equal(t, 1, report.NoVariance)

	require.Len(t, report.Results, 2)
	a, b := report.Results[0], report.Results[1]
	assert.Equal(t, "A", a.ID)
	assert.InDelta(t, 1.0, a.R, 1e-6)
	assert.Equal(t, 30, a.NDates)
	assert.Empty(t, a.FilledDates)

	assert.Equal(t, "B", b.ID)
	assert.Less(t, b.R, -0.9)
	assert.Equal(t, b.AbsR, -b.R)
	assert.Equal(t, []string{"2026-01-15"}, b.FilledDates)
	assert.Equal(t, 80, b.Popularity)

	for _, s := range api.starts {
		assert.Equal(t, report.WindowStart, s)
	}
}

func TestCorrelator_CachedSourceFetchesFreshEachRun(t *testing.T) {
	api := newFixture()
	mc := cache.NewMemoryCache()
	defer mc.Close()

	c := NewCorrelator(repository.NewCachedSeriesSource(api, mc, 6*time.Hour, nil),
		analytics.NewExclusionFilter([]string{"SP500"}, nil),
		CorrelateOptions{
			BenchmarkID:     "SP500",
			WindowDays:      60,
			MinOverlapRatio: 0.95,
			MinSamples:      analytics.DefaultMinSamples,
		}, nil, nil)
	c.now = func() time.Time { return testNow }
	ctx := context.Background()
	cat := []models.Series{{ID: "A", Title: "Coffee Shop Employment in Oregon"}}

	first, err := c.Run(ctx, cat)
	require.NoError(t, err)
	assert.Equal(t, 30, first.BenchmarkDates)

	api.obs["SP500"] = series(31, benchValue)
	api.obs["A"] = series(31, func(i int) float64 { return 2 * benchValue(i) })

	second, err := c.Run(ctx, cat)
	require.NoError(t, err)
	assert.Equal(t, 31, second.BenchmarkDates)
	require.Len(t, second.Results, 1)
	assert.Equal(t, 31, second.Results[0].NDates)
	assert.Empty(t, second.Results[0].FilledDates)
}

func TestCorrelator_EmptyInputs(t *testing.T) {
	api := newFixture()
	_, err := newTestCorrelator(api).Run(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrEmptyCatalog))

	api.obs["SP500"] = nil
	_, err = newTestCorrelator(api).Run(context.Background(), catalog())
	assert.True(t, errors.Is(err, ErrEmptyBenchmark))
}

func TestCorrelator_SeriesFailureAborts(t *testing.T) {
	api := newFixture()
	api.obsErr = map[string]error{"C": errors.New("api error 400: bad series")}

	_, err := newTestCorrelator(api).Run(context.Background(), catalog())
	require.Error(t, err)
	var se *SeriesError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "C", se.SeriesID)
	assert.Contains(t, err.Error(), "failed while processing series C")
}

func newTestDiscoverer(api *fakeAPI, store *memStore) *Discoverer {
	d := NewDiscoverer(api, store, DiscoverOptions{
		RecentWindowDays: 2,
		SkipCategoryIDs:  []int{32255, 32356, 33913},
	}, nil, nil)
	d.now = func() time.Time { return testNow }
	return d
}

func TestDiscoverer_Recent(t *testing.T) {
	api := &fakeAPI{updates: []models.Series{
		{ID: "X", Frequency: "D", ObservationEnd: "2026-03-02", Popularity: 10},
		{ID: "Y", Frequency: "D", ObservationEnd: "2026-02-27", Popularity: 90},
		{ID: "Z", Frequency: "W", ObservationEnd: "2026-03-02", Popularity: 70},
		{ID: "X", Frequency: "D", ObservationEnd: "2026-03-02", Popularity: 10},
		{ID: "W", Frequency: "D", ObservationEnd: "2026-03-01", Popularity: 50},
	}}
	store := &memStore{}

	out, err := newTestDiscoverer(api, store).Run(context.Background(), ModeFast)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "W", out[0].ID)
	assert.Equal(t, "X", out[1].ID)
	assert.Equal(t, out, store.catalog)
}

func treeAPI() *fakeAPI {
	return &fakeAPI{
		children: map[int][]models.CategoryNode{
			0: {{ID: 1}, {ID: 32255}, {ID: 2}},
			1: {{ID: 3, ParentID: 1}},
			2: {{ID: 3, ParentID: 2}},
		},
		leaves: map[int][]models.Series{
			3: {{ID: "S1", Popularity: 5}, {ID: "S2", Popularity: 20}},
			2: {{ID: "S3", Popularity: 1}},
		},
	}
}

func TestDiscoverer_FullTree(t *testing.T) {
	api := treeAPI()
	store := &memStore{catalog: []models.Series{{ID: "E", Popularity: 7}, {ID: "S1", Popularity: 5}}}

	out, err := newTestDiscoverer(api, store).Run(context.Background(), ModeFullTree)
	require.NoError(t, err)

	ids := make([]string, 0, len(out))
	for _, s := range out {
		ids = append(ids, s.ID)
	}
	// category 2 is a branch, so its own series are never listed
	assert.Equal(t, []string{"S2", "E", "S1"}, ids)
	assert.Zero(t, api.calls[32255])
	assert.Equal(t, 1, api.calls[3])
}

func TestDiscoverer_FastFallsBack(t *testing.T) {
	for name, api := range map[string]*fakeAPI{
		"error": func() *fakeAPI { a := treeAPI(); a.updateErr = errors.New("boom"); return a }(),
		"empty": treeAPI(),
	} {
		t.Run(name, func(t *testing.T) {
			store := &memStore{}
			out, err := newTestDiscoverer(api, store).Run(context.Background(), ModeFast)
			require.NoError(t, err)
			assert.Len(t, out, 2)
			assert.Equal(t, 1, store.saves)
		})
	}
}

func TestDiscoverer_UnknownMode(t *testing.T) {
	_, err := newTestDiscoverer(&fakeAPI{}, &memStore{}).Run(context.Background(), "bogus")
	require.Error(t, err)
}

type fakeArchive struct {
	reports   int
	rotations [][]models.CuratedEntry
	err       error
}

func (f *fakeArchive) Init(context.Context) error { return nil }
func (f *fakeArchive) ArchiveReport(context.Context, *models.CorrelationReport) error {
	f.reports++
	return f.err
}
func (f *fakeArchive) ArchiveRotation(_ context.Context, _ time.Time, e []models.CuratedEntry) error {
	f.rotations = append(f.rotations, e)
	return f.err
}
func (f *fakeArchive) Close() error { return nil }

type fakePublisher struct{ events []*models.RotationEvent }

func (f *fakePublisher) PublishRotation(_ context.Context, ev *models.RotationEvent) error {
	f.events = append(f.events, ev)
	return nil
}
func (f *fakePublisher) Close() error { return nil }

func newTestPipeline(store *memStore, arch *fakeArchive, pub *fakePublisher) *Pipeline {
	cur := NewCurationUseCase(curation.NewCurator(curation.DefaultPolicy(curation.DefaultThresholds())), nil, nil)
	p := NewPipeline(store, store, newTestCorrelator(newFixture()), cur, nil, nil,
		WithArchive(arch), WithPublisher(pub))
	p.now = func() time.Time { return testNow }
	return p
}

func TestPipeline_Run(t *testing.T) {
	store := &memStore{catalog: catalog()}
	arch := &fakeArchive{}
	pub := &fakePublisher{}

	sum, err := newTestPipeline(store, arch, pub).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, sum.Curated, 2)
	assert.Equal(t, models.CategoryFunny, sum.Curated[0].Category)
	assert.Equal(t, models.CategoryFinancial, sum.Curated[1].Category)

	assert.Len(t, store.results, 2)
	assert.Equal(t, []models.RotationItem{
		{ID: "A", Title: "Coffee Shop Employment in Oregon"},
		{ID: "B", Title: "10-Year Treasury Constant Maturity"},
	}, store.rotation)
	assert.Len(t, store.detail, 2)

	assert.Equal(t, 1, arch.reports)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "SP500", pub.events[0].BenchmarkID)
	assert.Equal(t, testNow, pub.events[0].GeneratedAt)
}

func TestPipeline_ArchiveFailureIsNotFatal(t *testing.T) {
	store := &memStore{catalog: catalog()}
	arch := &fakeArchive{err: errors.New("clickhouse down")}

	_, err := newTestPipeline(store, arch, &fakePublisher{}).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, store.detail, 2)
}

func TestPipeline_CurateFromStore(t *testing.T) {
	store := &memStore{results: []models.CorrelationResult{
		{ID: "L", Title: "Lonely", R: 0.9, AbsR: 0.9, NAligned: 25},
		{ID: "S", Title: "Short", R: 0.9, AbsR: 0.9, NDates: 12},
	}}
	entries, err := newTestPipeline(store, &fakeArchive{}, &fakePublisher{}).Curate(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "L", entries[0].ID)
	assert.Equal(t, []models.RotationItem{{ID: "L", Title: "Lonely"}}, store.rotation)
}

func TestPipeline_EmptyCatalog(t *testing.T) {
	_, err := newTestPipeline(&memStore{}, &fakeArchive{}, &fakePublisher{}).Run(context.Background())
	assert.True(t, errors.Is(err, ErrEmptyCatalog))
}
