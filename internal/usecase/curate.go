package usecase

import (
	"ChartCrime/internal/domain/models"
	domrepo "ChartCrime/internal/domain/repository"
	"ChartCrime/internal/services/curation"
	applogger "ChartCrime/pkg/logger"
)

// CurationUseCase turns a ranked result set into the display rotation.
type CurationUseCase struct {
	curator *curation.Curator
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func NewCurationUseCase(curator *curation.Curator, m domrepo.Metrics, l *applogger.Logger) *CurationUseCase {
	m, l = orNop(m, l)
	return &CurationUseCase{curator: curator, metrics: m, l: l.With("component", "curate")}
}

// Run curates results and returns the entries with their rotation list.
// An empty outcome is valid.
func (u *CurationUseCase) Run(results []models.CorrelationResult) ([]models.CuratedEntry, []models.RotationItem) {
	entries := u.curator.Curate(results)

	counts := map[models.Category]int{
		models.CategoryFunny:     0,
		models.CategoryFinancial: 0,
		models.CategoryOther:     0,
	}
	for _, e := range entries {
		counts[e.Category]++
	}
	for cat, n := range counts {
		u.metrics.RecordCurated(string(cat), n)
	}

	u.l.Info("curation complete",
		applogger.Int("input", len(results)),
		applogger.Int("funny", counts[models.CategoryFunny]),
		applogger.Int("financial", counts[models.CategoryFinancial]),
		applogger.Int("other", counts[models.CategoryOther]),
		applogger.Int("total", len(entries)),
	)
	return entries, models.Rotation(entries)
}
