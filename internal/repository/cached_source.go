package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"ChartCrime/internal/domain/models"
	domrepo "ChartCrime/internal/domain/repository"
	"ChartCrime/pkg/cache"
	applogger "ChartCrime/pkg/logger"
)

// CachedSeriesSource caches category membership lookups. Observations always
// go upstream so every run aligns against the data as it stands.
type CachedSeriesSource struct {
	next  domrepo.SeriesSource
	cache cache.Service
	ttl   time.Duration
	l     *applogger.Logger
}

func NewCachedSeriesSource(next domrepo.SeriesSource, c cache.Service, ttl time.Duration, l *applogger.Logger) *CachedSeriesSource {
	if l == nil {
		l = applogger.NewNop()
	}
	return &CachedSeriesSource{next: next, cache: c, ttl: ttl, l: l.With("component", "series_cache")}
}

func (s *CachedSeriesSource) Observations(ctx context.Context, seriesID string, start, end time.Time) ([]models.Observation, error) {
	return s.next.Observations(ctx, seriesID, start, end)
}

// CategorySeriesIDs serves a category's member ids from the cache, falling
// back to the upstream listing on a miss or cache failure.
func (s *CachedSeriesSource) CategorySeriesIDs(ctx context.Context, categoryID int) ([]string, error) {
	key := cache.GenerateKey("category", strconv.Itoa(categoryID))

	var ids []string
	err := s.cache.Get(ctx, key, &ids)
	if err == nil {
		return ids, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.l.Warn("cache get failed", applogger.String("key", key), applogger.Error(err))
	}

	ids, err = s.next.CategorySeriesIDs(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, ids, s.ttl); err != nil {
		s.l.Warn("cache set failed", applogger.String("key", key), applogger.Error(err))
	}
	return ids, nil
}

var _ domrepo.SeriesSource = (*CachedSeriesSource)(nil)
