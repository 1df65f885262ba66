// Package usecase runs the discovery, correlation and curation steps against
// the data API and the stores.
package usecase

import (
	domrepo "ChartCrime/internal/domain/repository"
	applogger "ChartCrime/pkg/logger"
	"ChartCrime/pkg/metrics"
)

func orNop(m domrepo.Metrics, l *applogger.Logger) (domrepo.Metrics, *applogger.Logger) {
	if m == nil {
		m = metrics.Nop{}
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return m, l
}
