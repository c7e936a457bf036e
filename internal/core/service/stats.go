package service

import (
	"sort"
	"time"

	"github.com/chargesteer/chargesteer/internal/core/domain"
)

const statsRetention = 30 * 24 * time.Hour

// StatsAggregator accumulates delivered-energy samples into rolling 7-day
// and 30-day windows, per point and across all points. Aggregation is
// idempotent by sample id, so late or duplicated deliveries within the
// window never double-count.
type StatsAggregator struct {
	seen    map[string]struct{}
	samples []domain.EnergySample
}

func NewStatsAggregator() *StatsAggregator {
	return &StatsAggregator{
		seen: make(map[string]struct{}),
	}
}

// Add records one sample. It returns false when the sample id was already
// seen.
func (a *StatsAggregator) Add(s domain.EnergySample) bool {
	if _, dup := a.seen[s.ID]; dup {
		return false
	}
	a.seen[s.ID] = struct{}{}
	a.samples = append(a.samples, s)
	return true
}

// Totals recomputes the rolling windows relative to now.
func (a *StatsAggregator) Totals(now time.Time) (domain.WindowTotals, map[string]domain.WindowTotals) {
	cut7d := now.Add(-7 * 24 * time.Hour)
	cut30d := now.Add(-statsRetention)

	var total domain.WindowTotals
	perPoint := make(map[string]domain.WindowTotals)
	for _, s := range a.samples {
		if s.At.Before(cut30d) || s.At.After(now) {
			continue
		}
		pt := perPoint[s.PointID]
		total.Last30dKWh += s.KWh
		pt.Last30dKWh += s.KWh
		if !s.At.Before(cut7d) {
			total.Last7dKWh += s.KWh
			pt.Last7dKWh += s.KWh
		}
		perPoint[s.PointID] = pt
	}
	return total, perPoint
}

// Prune drops samples older than the 30-day retention and forgets their ids.
// A replay of pruned samples would re-count them, so callers prune with the
// same clock they aggregate with.
func (a *StatsAggregator) Prune(now time.Time) {
	cut := now.Add(-statsRetention)
	kept := a.samples[:0]
	for _, s := range a.samples {
		if s.At.Before(cut) {
			delete(a.seen, s.ID)
			continue
		}
		kept = append(kept, s)
	}
	a.samples = kept
	sort.Slice(a.samples, func(i, j int) bool {
		return a.samples[i].At.Before(a.samples[j].At)
	})
}
