package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ChartCrime/internal/domain/models"
	domrepo "ChartCrime/internal/domain/repository"
	applogger "ChartCrime/pkg/logger"
)

var ErrRunInProgress = errors.New("pipeline run already in progress")

// RunSummary is the outcome of one full pipeline run.
type RunSummary struct {
	Report  *models.CorrelationReport
	Curated []models.CuratedEntry
}

// Pipeline chains correlate and curate over the stores. Archive and publish
// sinks are optional and their failures are logged, not returned.
type Pipeline struct {
	catalog    domrepo.CatalogStore
	results    domrepo.ResultStore
	correlator *Correlator
	curation   *CurationUseCase
	archive    domrepo.ResultArchive
	publisher  domrepo.RotationPublisher
	metrics    domrepo.Metrics
	l          *applogger.Logger
	now        func() time.Time

	mu sync.Mutex
}

// PipelineOption configures Pipeline.
type PipelineOption func(*Pipeline)

func WithArchive(a domrepo.ResultArchive) PipelineOption {
	return func(p *Pipeline) { p.archive = a }
}

func WithPublisher(pub domrepo.RotationPublisher) PipelineOption {
	return func(p *Pipeline) { p.publisher = pub }
}

func NewPipeline(
	catalog domrepo.CatalogStore,
	results domrepo.ResultStore,
	correlator *Correlator,
	curation *CurationUseCase,
	m domrepo.Metrics,
	l *applogger.Logger,
	opts ...PipelineOption,
) *Pipeline {
	m, l = orNop(m, l)
	p := &Pipeline{
		catalog:    catalog,
		results:    results,
		correlator: correlator,
		curation:   curation,
		metrics:    m,
		l:          l.With("component", "pipeline"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Correlate ranks the saved catalog and saves the full result set. The
// rotation file is rewritten with every ranked series until curation runs.
func (p *Pipeline) Correlate(ctx context.Context) (*models.CorrelationReport, error) {
	if !p.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer p.mu.Unlock()
	return p.correlate(ctx)
}

// Curate curates the saved result set.
func (p *Pipeline) Curate(ctx context.Context) ([]models.CuratedEntry, error) {
	if !p.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer p.mu.Unlock()

	results, err := p.results.LoadResults(ctx)
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}
	return p.curate(ctx, results, "")
}

// Run correlates then curates in one pass.
func (p *Pipeline) Run(ctx context.Context) (*RunSummary, error) {
	if !p.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer p.mu.Unlock()

	start := time.Now()
	report, err := p.correlate(ctx)
	if err != nil {
		p.metrics.RecordError("pipeline")
		return nil, err
	}
	curated, err := p.curate(ctx, report.Results, report.BenchmarkID)
	if err != nil {
		p.metrics.RecordError("pipeline")
		return nil, err
	}
	p.metrics.RecordLatency("pipeline", time.Since(start).Seconds())
	return &RunSummary{Report: report, Curated: curated}, nil
}

func (p *Pipeline) correlate(ctx context.Context) (*models.CorrelationReport, error) {
	catalog, err := p.catalog.LoadCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	report, err := p.correlator.Run(ctx, catalog)
	if err != nil {
		return nil, err
	}

	if err := p.results.SaveResults(ctx, report.Results); err != nil {
		return nil, fmt.Errorf("save results: %w", err)
	}
	all := make([]models.RotationItem, 0, len(report.Results))
	for _, r := range report.Results {
		all = append(all, models.RotationItem{ID: r.ID, Title: r.Title})
	}
	if err := p.results.SaveRotation(ctx, all); err != nil {
		return nil, fmt.Errorf("save rotation: %w", err)
	}

	if p.archive != nil {
		if err := p.archive.ArchiveReport(ctx, report); err != nil {
			p.metrics.RecordError("archive")
			p.l.Error("archive report failed", applogger.Error(err))
		}
	}
	return report, nil
}

func (p *Pipeline) curate(ctx context.Context, results []models.CorrelationResult, benchmarkID string) ([]models.CuratedEntry, error) {
	entries, rotation := p.curation.Run(results)
	runAt := p.now().UTC()

	if err := p.results.SaveRotation(ctx, rotation); err != nil {
		return nil, fmt.Errorf("save rotation: %w", err)
	}
	if err := p.results.SaveDetail(ctx, entries); err != nil {
		return nil, fmt.Errorf("save detail: %w", err)
	}

	if p.archive != nil {
		if err := p.archive.ArchiveRotation(ctx, runAt, entries); err != nil {
			p.metrics.RecordError("archive")
			p.l.Error("archive rotation failed", applogger.Error(err))
		}
	}
	if p.publisher != nil {
		if benchmarkID == "" {
			benchmarkID = p.correlator.opts.BenchmarkID
		}
		ev := &models.RotationEvent{GeneratedAt: runAt, BenchmarkID: benchmarkID, Items: rotation}
		if err := p.publisher.PublishRotation(ctx, ev); err != nil {
			p.metrics.RecordError("publish")
			p.l.Error("publish rotation failed", applogger.Error(err))
		}
	}
	return entries, nil
}
