package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"ChartCrime/internal/domain/models"
	domrepo "ChartCrime/internal/domain/repository"
)

// FileNames names the JSON documents a FileStore keeps under its directory.
type FileNames struct {
	Catalog  string
	Results  string
	Rotation string
	Detail   string
}

// DefaultFileNames are the file names the display application reads.
func DefaultFileNames() FileNames {
	return FileNames{
		Catalog:  "all_daily_series.json",
		Results:  "strict_correlations.json",
		Rotation: "strict_curated.json",
		Detail:   "curated_detail.json",
	}
}

// FileStore persists the catalog and run outputs as indented JSON files.
// A missing file loads as an empty list.
type FileStore struct {
	dir   string
	names FileNames
}

func NewFileStore(dir string, names FileNames) *FileStore {
	return &FileStore{dir: dir, names: names}
}

func (s *FileStore) Path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *FileStore) LoadCatalog(ctx context.Context) ([]models.Series, error) {
	var out []models.Series
	return out, s.read(ctx, s.names.Catalog, &out)
}

func (s *FileStore) SaveCatalog(ctx context.Context, series []models.Series) error {
	return s.write(ctx, s.names.Catalog, nonNil(series))
}

// LoadResults reads the full ranked result set. Records written by older
// runs carry n_aligned instead of n_dates; AlignedCount covers both.
func (s *FileStore) LoadResults(ctx context.Context) ([]models.CorrelationResult, error) {
	var out []models.CorrelationResult
	return out, s.read(ctx, s.names.Results, &out)
}

func (s *FileStore) SaveResults(ctx context.Context, results []models.CorrelationResult) error {
	return s.write(ctx, s.names.Results, nonNil(results))
}

func (s *FileStore) LoadRotation(ctx context.Context) ([]models.RotationItem, error) {
	var out []models.RotationItem
	return out, s.read(ctx, s.names.Rotation, &out)
}

func (s *FileStore) SaveRotation(ctx context.Context, items []models.RotationItem) error {
	return s.write(ctx, s.names.Rotation, nonNil(items))
}

func (s *FileStore) LoadDetail(ctx context.Context) ([]models.CuratedEntry, error) {
	var out []models.CuratedEntry
	return out, s.read(ctx, s.names.Detail, &out)
}

func (s *FileStore) SaveDetail(ctx context.Context, entries []models.CuratedEntry) error {
	return s.write(ctx, s.names.Detail, nonNil(entries))
}

func (s *FileStore) read(ctx context.Context, name string, dest interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := os.ReadFile(s.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// write replaces the file atomically so readers never see a partial document.
func (s *FileStore) write(ctx context.Context, name string, v interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", s.dir, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(b, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), s.Path(name)); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// nonNil keeps empty outputs as [] rather than null.
func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

var (
	_ domrepo.CatalogStore = (*FileStore)(nil)
	_ domrepo.ResultStore  = (*FileStore)(nil)
)
