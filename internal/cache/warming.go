package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/gkiss/odp-extremes-service/internal/archive"
	"github.com/gkiss/odp-extremes-service/internal/clock"
	"github.com/gkiss/odp-extremes-service/internal/models"
	"github.com/gkiss/odp-extremes-service/internal/observability"
)

// ReportFetcher is implemented by the report service. Declared here to avoid
// a circular dependency on the report package.
type ReportFetcher interface {
	GetExtremes(ctx context.Context, date time.Time) (models.DailyExtremes, error)
}

// Warmer prefetches the default report date so the first user request after
// startup (and after the feed's daily publish) hits a warm cache.
type Warmer struct {
	fetcher ReportFetcher
	clk     clockwork.Clock
	zone    *time.Location
	logger  *zap.Logger
}

// NewWarmer creates a Warmer using the given fetcher, clock and logger.
func NewWarmer(fetcher ReportFetcher, clk clockwork.Clock, zone *time.Location, logger *zap.Logger) *Warmer {
	return &Warmer{fetcher: fetcher, clk: clk, zone: zone, logger: logger}
}

// Warm fetches the default date's report, populating the cache through the
// fetcher. A date the feed has not published yet is expected and not an
// error; anything else is.
func (w *Warmer) Warm(ctx context.Context) error {
	date := clock.DefaultReportDate(w.clk, w.zone)
	start := w.clk.Now()
	observability.CacheWarmingTotal.Inc()
	if w.logger != nil {
		w.logger.Info("warming report cache", zap.String("date", date.Format("2006-01-02")))
	}

	_, err := w.fetcher.GetExtremes(ctx, date)
	observability.CacheWarmingDurationSeconds.Observe(w.clk.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			if w.logger != nil {
				w.logger.Info("report not yet published", zap.String("date", date.Format("2006-01-02")))
			}
			return nil
		}
		observability.CacheWarmingErrorsTotal.Inc()
		return fmt.Errorf("warm %s: %w", date.Format("2006-01-02"), err)
	}
	if w.logger != nil {
		w.logger.Info("report cache warmed", zap.String("date", date.Format("2006-01-02")))
	}
	return nil
}
