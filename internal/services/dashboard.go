package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"budget/internal/analytics"
	"budget/internal/cache"
	"budget/internal/core"
	"budget/internal/log"
)

// SnapshotSource is the read side of the transaction store.
type SnapshotSource interface {
	Snapshot() Snapshot
}

// DashboardService computes dashboard summaries, caching them per
// (snapshot version, month) so repeated reads between writes are free.
type DashboardService struct {
	source SnapshotSource
	cache  cache.Cache[analytics.Summary]
	group  singleflight.Group
	now    func() time.Time
	logger *log.Logger
}

type DashboardOption func(*DashboardService)

// WithClock overrides the reference time used for month-scoped figures.
func WithClock(now func() time.Time) DashboardOption {
	return func(d *DashboardService) {
		if now != nil {
			d.now = now
		}
	}
}

func WithDashboardLogger(l *log.Logger) DashboardOption {
	return func(d *DashboardService) {
		if l != nil {
			d.logger = l.WithComponent(log.ComponentDashboard)
		}
	}
}

// NewDashboardService builds the service. A nil cache disables caching.
func NewDashboardService(source SnapshotSource, c cache.Cache[analytics.Summary], opts ...DashboardOption) *DashboardService {
	d := &DashboardService{
		source: source,
		cache:  c,
		now:    time.Now,
		logger: log.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Summary returns the figures for the current month.
func (d *DashboardService) Summary(ctx context.Context) analytics.Summary {
	return d.SummaryAt(ctx, d.now())
}

// SummaryAt returns the figures for the month containing ref. The result is
// the caller's own copy.
func (d *DashboardService) SummaryAt(ctx context.Context, ref time.Time) analytics.Summary {
	snap := d.source.Snapshot()
	key := summaryKey(snap.Version, core.MonthKey{Year: ref.Year(), Month: ref.Month()})

	if d.cache != nil {
		if s, ok := d.cache.Get(key); ok {
			return s.Clone()
		}
	}

	v, _, shared := d.group.Do(key, func() (any, error) {
		s := analytics.Summarize(snap.Transactions, ref)
		if d.cache != nil {
			d.cache.Set(key, s)
		}
		return s, nil
	})
	d.logger.DebugContext(ctx, "Summary computed",
		log.FieldOperation, log.OpSummary,
		log.FieldKey, key,
		log.FieldVersion, snap.Version,
		"shared", shared)
	return v.(analytics.Summary).Clone()
}

// Now returns the service's reference time.
func (d *DashboardService) Now() time.Time {
	return d.now()
}

func summaryKey(version uint64, month core.MonthKey) string {
	return fmt.Sprintf("%d:%s", version, month)
}
