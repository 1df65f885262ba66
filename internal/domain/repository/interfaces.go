package repository

import (
	"context"
	"time"

	"ChartCrime/internal/domain/models"
)

// SeriesSource serves observations and category membership from the data API.
type SeriesSource interface {
	Observations(ctx context.Context, seriesID string, start, end time.Time) ([]models.Observation, error)
	CategorySeriesIDs(ctx context.Context, categoryID int) ([]string, error)
}

// CatalogSource serves the endpoints discovery crawls.
type CatalogSource interface {
	SeriesUpdates(ctx context.Context, start, end time.Time) ([]models.Series, error)
	CategoryChildren(ctx context.Context, categoryID int) ([]models.CategoryNode, error)
	CategorySeries(ctx context.Context, categoryID int) ([]models.Series, error)
}

type CatalogStore interface {
	LoadCatalog(ctx context.Context) ([]models.Series, error)
	SaveCatalog(ctx context.Context, series []models.Series) error
}

type ResultStore interface {
	LoadResults(ctx context.Context) ([]models.CorrelationResult, error)
	SaveResults(ctx context.Context, results []models.CorrelationResult) error
	LoadRotation(ctx context.Context) ([]models.RotationItem, error)
	SaveRotation(ctx context.Context, items []models.RotationItem) error
	LoadDetail(ctx context.Context) ([]models.CuratedEntry, error)
	SaveDetail(ctx context.Context, entries []models.CuratedEntry) error
}

// ResultArchive keeps the history of runs for later analysis.
type ResultArchive interface {
	Init(ctx context.Context) error
	ArchiveReport(ctx context.Context, report *models.CorrelationReport) error
	ArchiveRotation(ctx context.Context, runAt time.Time, entries []models.CuratedEntry) error
	Close() error
}

// RotationPublisher pushes a freshly curated rotation to consumers.
type RotationPublisher interface {
	PublishRotation(ctx context.Context, rot *models.RotationEvent) error
	Close() error
}

type Metrics interface {
	RecordRequest(endpoint, outcome string)
	RecordRetry(endpoint, reason string)
	RecordCandidate(outcome string)
	RecordCurated(category string, n int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
