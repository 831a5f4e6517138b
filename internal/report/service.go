// Package report chains the pipeline stages: fetch the daily archive, extract
// and parse the CSV table, resolve columns, reduce to extremes. The pipeline
// itself is a pure function of the date; caching and coalescing live here at
// the orchestration edge.
package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gkiss/odp-extremes-service/internal/archive"
	"github.com/gkiss/odp-extremes-service/internal/cache"
	"github.com/gkiss/odp-extremes-service/internal/extremes"
	"github.com/gkiss/odp-extremes-service/internal/models"
	"github.com/gkiss/odp-extremes-service/internal/observability"
	"github.com/gkiss/odp-extremes-service/internal/schema"
)

// Fetcher is the archive layer dependency. ArchiveName is needed so the zip
// member preference can match the archive's base name.
type Fetcher interface {
	FetchDailyArchive(ctx context.Context, date time.Time) ([]byte, error)
	ArchiveName(date time.Time) string
}

// Service orchestrates report retrieval using cache-aside with per-date
// request coalescing: a second request for a date already being built waits
// for the first instead of fetching the feed again.
type Service struct {
	fetcher   Fetcher
	resolver  *schema.Resolver
	cache     cache.Cache
	ttl       time.Duration
	coalescer *dateCoalescer
}

// NewService creates a Service. ttl bounds how long a built report is held;
// coalesceTimeout bounds how long a waiter blocks on another request's build
// (0 disables coalescing).
func NewService(fetcher Fetcher, resolver *schema.Resolver, reportCache cache.Cache, ttl, coalesceTimeout time.Duration) *Service {
	var coalescer *dateCoalescer
	if coalesceTimeout > 0 {
		coalescer = newDateCoalescer(coalesceTimeout)
	}
	return &Service{
		fetcher:   fetcher,
		resolver:  resolver,
		cache:     reportCache,
		ttl:       ttl,
		coalescer: coalescer,
	}
}

// loggerFromContext extracts the request-scoped zap.Logger if present.
func loggerFromContext(ctx context.Context) *zap.Logger {
	if v := ctx.Value("logger"); v != nil {
		if l, ok := v.(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return nil
}

// GetExtremes returns the extremes bundle for date, building it from the
// feed on a cache miss.
func (s *Service) GetExtremes(ctx context.Context, date time.Time) (models.DailyExtremes, error) {
	key := date.Format("2006-01-02")
	logger := loggerFromContext(ctx)
	observability.ReportQueriesTotal.Inc()

	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues("get").Inc()
	} else if ok {
		observability.CacheHitsTotal.WithLabelValues("extremes").Inc()
		if logger != nil {
			logger.Debug("report cache hit", zap.String("date", key))
		}
		return cached, nil
	}

	if logger != nil {
		logger.Debug("report cache miss, building from feed", zap.String("date", key))
	}

	var bundle models.DailyExtremes
	var buildErr error
	if s.coalescer != nil {
		bundle, buildErr = s.coalescer.GetOrDo(ctx, key, func(buildCtx context.Context) (models.DailyExtremes, error) {
			return s.build(buildCtx, date)
		})
	} else {
		bundle, buildErr = s.build(ctx, date)
	}
	if buildErr != nil {
		return models.DailyExtremes{}, fmt.Errorf("extremes for %s: %w", key, buildErr)
	}

	if setErr := s.cache.Set(ctx, key, bundle, s.ttl); setErr != nil {
		observability.CacheErrorsTotal.WithLabelValues("set").Inc()
		if logger != nil {
			logger.Warn("report cache set failed", zap.String("date", key), zap.Error(setErr))
		}
	}
	return bundle, nil
}

// GetArchive returns the raw archive bytes and filename for date. Pure
// passthrough for the "download original file" affordance; not cached.
func (s *Service) GetArchive(ctx context.Context, date time.Time) ([]byte, string, error) {
	raw, err := s.fetcher.FetchDailyArchive(ctx, date)
	if err != nil {
		return nil, "", err
	}
	return raw, s.fetcher.ArchiveName(date), nil
}

// build runs the pipeline stages once, uncached.
func (s *Service) build(ctx context.Context, date time.Time) (models.DailyExtremes, error) {
	raw, err := s.fetcher.FetchDailyArchive(ctx, date)
	if err != nil {
		return models.DailyExtremes{}, err
	}

	csvBytes, err := archive.ExtractCSV(raw, s.fetcher.ArchiveName(date))
	if err != nil {
		return models.DailyExtremes{}, err
	}

	header, records, err := parseTable(csvBytes)
	if err != nil {
		return models.DailyExtremes{}, err
	}

	columns, err := s.resolver.Resolve(header, tableWidth(header, records))
	if err != nil {
		return models.DailyExtremes{}, err
	}

	report := models.DailyReport{
		Date:    date,
		Columns: columns,
		Rows:    extremes.BuildReadings(records, columns),
	}
	min, max := extremes.Find(report.Rows)

	observability.ReportBuildsTotal.Inc()
	observability.ReportRowsParsed.Observe(float64(len(report.Rows)))

	return models.DailyExtremes{
		Date:     date.Format("2006-01-02"),
		Min:      min,
		Max:      max,
		Stations: report.Rows,
	}, nil
}

// parseTable splits the semicolon-separated table into header and data rows.
// All cells stay text; no type inference. Fully blank lines are skipped, the
// first surviving row is the header.
func parseTable(data []byte) ([]string, [][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	all, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: parse table: %v", schema.ErrSchema, err)
	}

	rows := make([][]string, 0, len(all))
	for _, rec := range all {
		if isBlankRow(rec) {
			continue
		}
		rows = append(rows, rec)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%w: empty table", schema.ErrSchema)
	}
	return rows[0], rows[1:], nil
}

func isBlankRow(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// tableWidth is the column count positional fallbacks index into: the wider
// of the header and the first data row, since either may carry stray cells.
func tableWidth(header []string, records [][]string) int {
	width := len(header)
	if len(records) > 0 && len(records[0]) > width {
		width = len(records[0])
	}
	return width
}
