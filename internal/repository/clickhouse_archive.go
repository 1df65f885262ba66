package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ChartCrime/internal/domain/models"
	domrepo "ChartCrime/internal/domain/repository"
	pkgch "ChartCrime/pkg/clickhouse"
	applogger "ChartCrime/pkg/logger"
)

const (
	runsTable        = "correlation_runs"
	resultsTable     = "correlation_results"
	rotationTable    = "rotation_entries"
	archiveChunkSize = 2000
)

// ArchiveSchema returns the idempotent DDL for the archive tables.
func ArchiveSchema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS ` + runsTable + ` (
            run_id UUID,
            generated_at DateTime,
            benchmark_id LowCardinality(String),
            window_start Date,
            benchmark_dates UInt32,
            max_missing UInt32,
            total UInt32,
            excluded UInt32,
            accepted UInt32,
            insufficient_overlap UInt32,
            no_variance UInt32
        ) ENGINE = MergeTree ORDER BY generated_at`,
		`CREATE TABLE IF NOT EXISTS ` + resultsTable + ` (
            run_id UUID,
            generated_at DateTime,
            rank UInt32,
            series_id String,
            title String,
            r Float64,
            abs_r Float64,
            n_dates UInt32,
            filled_dates Array(String),
            units String,
            popularity Int32
        ) ENGINE = MergeTree ORDER BY (generated_at, rank)`,
		`CREATE TABLE IF NOT EXISTS ` + rotationTable + ` (
            run_at DateTime,
            position UInt32,
            series_id String,
            title String,
            category LowCardinality(String),
            abs_r Float64
        ) ENGINE = MergeTree ORDER BY (run_at, position)`,
	}
}

// ClickHouseArchive keeps every correlation run and rotation in ClickHouse.
type ClickHouseArchive struct {
	db     *sql.DB
	schema func(ctx context.Context, stmts []string) error
	close  func() error
	newID  func() string
	l      *applogger.Logger
}

func NewClickHouseArchive(ch *pkgch.Client, l *applogger.Logger) *ClickHouseArchive {
	a := newArchive(ch.DB(), l)
	a.schema = ch.InitSchema
	a.close = ch.Close
	return a
}

func newArchive(db *sql.DB, l *applogger.Logger) *ClickHouseArchive {
	if l == nil {
		l = applogger.NewNop()
	}
	a := &ClickHouseArchive{
		db:    db,
		close: db.Close,
		newID: func() string { return uuid.NewString() },
		l:     l.With("component", "clickhouse_archive"),
	}
	a.schema = a.exec
	return a
}

func (a *ClickHouseArchive) exec(ctx context.Context, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (a *ClickHouseArchive) Init(ctx context.Context) error {
	return a.schema(ctx, ArchiveSchema())
}

// ArchiveReport stores the run summary and its ranked results.
func (a *ClickHouseArchive) ArchiveReport(ctx context.Context, report *models.CorrelationReport) error {
	start := time.Now()
	runID := a.newID()
	at := report.GeneratedAt.UTC()

	_, err := a.db.ExecContext(ctx,
		`INSERT INTO `+runsTable+` (run_id, generated_at, benchmark_id, window_start, benchmark_dates, max_missing, total, excluded, accepted, insufficient_overlap, no_variance) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, at, report.BenchmarkID, report.WindowStart,
		report.BenchmarkDates, report.MaxMissing, report.Total, report.Excluded,
		report.Accepted, report.InsufficientOverlap, report.NoVariance,
	)
	if err != nil {
		a.l.Error("clickhouse archive run insert error", applogger.String("run_id", runID), applogger.Error(err))
		return fmt.Errorf("archive run: %w", err)
	}

	const cols = 11
	for lo := 0; lo < len(report.Results); lo += archiveChunkSize {
		hi := lo + archiveChunkSize
		if hi > len(report.Results) {
			hi = len(report.Results)
		}
		values := make([]string, 0, hi-lo)
		args := make([]interface{}, 0, (hi-lo)*cols)
		for i, r := range report.Results[lo:hi] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				runID, at, lo+i+1, r.ID, r.Title, r.R, r.AbsR,
				r.AlignedCount(), nonNil(r.FilledDates), r.Units, r.Popularity,
			)
		}
		q := `INSERT INTO ` + resultsTable + ` (run_id, generated_at, rank, series_id, title, r, abs_r, n_dates, filled_dates, units, popularity) VALUES ` + strings.Join(values, ",")
		if _, err := a.db.ExecContext(ctx, q, args...); err != nil {
			a.l.Error("clickhouse archive results insert error",
				applogger.String("run_id", runID),
				applogger.Int("offset", lo),
				applogger.Error(err),
			)
			return fmt.Errorf("archive results: %w", err)
		}
	}

	a.l.Info("clickhouse archive report ok",
		applogger.String("run_id", runID),
		applogger.Int("rows", len(report.Results)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

// ArchiveRotation stores the curated list in display order.
func (a *ClickHouseArchive) ArchiveRotation(ctx context.Context, runAt time.Time, entries []models.CuratedEntry) error {
	if len(entries) == 0 {
		return nil
	}
	values := make([]string, 0, len(entries))
	args := make([]interface{}, 0, len(entries)*6)
	for i, e := range entries {
		values = append(values, "(?, ?, ?, ?, ?, ?)")
		args = append(args, runAt.UTC(), i+1, e.ID, e.Title, string(e.Category), e.AbsR)
	}
	q := `INSERT INTO ` + rotationTable + ` (run_at, position, series_id, title, category, abs_r) VALUES ` + strings.Join(values, ",")
	if _, err := a.db.ExecContext(ctx, q, args...); err != nil {
		a.l.Error("clickhouse archive rotation insert error", applogger.Error(err))
		return fmt.Errorf("archive rotation: %w", err)
	}
	return nil
}

func (a *ClickHouseArchive) Close() error {
	if a.close != nil {
		return a.close()
	}
	return nil
}

var _ domrepo.ResultArchive = (*ClickHouseArchive)(nil)
