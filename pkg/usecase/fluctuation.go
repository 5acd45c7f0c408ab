package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/schedops/ediscope/pkg/domain/model"
	"github.com/schedops/ediscope/pkg/domain/types"
)

// Fluctuation diffs classified snapshots taken at different times
type Fluctuation struct{}

// NewFluctuation creates a new Fluctuation use case
func NewFluctuation() *Fluctuation {
	return &Fluctuation{}
}

type transitionKey struct {
	part   types.PartID
	month  types.MonthKey
	change types.Transition
}

// Aggregate compares each consecutive snapshot pair and buckets status
// transitions by the calendar month of the changed bucket. Parts present
// in only one snapshot of a pair are reported as transitions from or to
// the synthetic absent status. Multiple changes within the same part and
// month are all counted.
func (uc *Fluctuation) Aggregate(ctx context.Context, snaps []*model.Snapshot) ([]model.FluctuationEntry, error) {
	if len(snaps) < 2 {
		return nil, goerr.Wrap(model.ErrBadConfig, "fluctuation needs at least two snapshots",
			goerr.V("snapshots", len(snaps)))
	}

	counts := make(map[transitionKey]int)
	for i := 1; i < len(snaps); i++ {
		prev, curr := snaps[i-1], snaps[i]
		if !prev.TakenAt.IsZero() && !curr.TakenAt.IsZero() && curr.TakenAt.Before(prev.TakenAt) {
			ctxlog.From(ctx).Warn("snapshots out of chronological order",
				"previous", prev.Label,
				"previousTakenAt", prev.TakenAt,
				"current", curr.Label,
				"currentTakenAt", curr.TakenAt,
			)
		}

		for _, pc := range curr.Parts {
			old := prev.Part(pc.Part)
			if old == nil {
				for _, r := range pc.Results {
					counts[transitionKey{
						part:   pc.Part,
						month:  r.Bucket.Month(),
						change: types.Transition{From: types.StatusAbsent, To: r.Status},
					}]++
				}
				continue
			}
			for _, r := range pc.Results {
				prevStatus, ok := old.StatusAt(r.Bucket)
				if !ok || prevStatus == r.Status {
					continue
				}
				counts[transitionKey{
					part:   pc.Part,
					month:  r.Bucket.Month(),
					change: types.Transition{From: prevStatus, To: r.Status},
				}]++
			}
		}

		for _, old := range prev.Parts {
			if curr.Part(old.Part) != nil {
				continue
			}
			for _, r := range old.Results {
				counts[transitionKey{
					part:   old.Part,
					month:  r.Bucket.Month(),
					change: types.Transition{From: r.Status, To: types.StatusAbsent},
				}]++
			}
		}
	}

	entries := make([]model.FluctuationEntry, 0, len(counts))
	for key, n := range counts {
		entries = append(entries, model.FluctuationEntry{
			Part:   key.part,
			Month:  key.month,
			Change: key.change,
			Count:  n,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Month != entries[j].Month {
			return entries[i].Month < entries[j].Month
		}
		if entries[i].Part != entries[j].Part {
			return entries[i].Part < entries[j].Part
		}
		return entries[i].Change.String() < entries[j].Change.String()
	})
	return entries, nil
}

// DemandShifts computes the quantity view of fluctuation: per part, demand
// summed into the next three calendar months after now for every snapshot,
// plus the relative change from the oldest to the newest snapshot.
func (uc *Fluctuation) DemandShifts(ctx context.Context, snaps []*model.Snapshot, now time.Time) ([]model.DemandShift, []types.MonthKey, error) {
	if len(snaps) < 2 {
		return nil, nil, goerr.Wrap(model.ErrBadConfig, "fluctuation needs at least two snapshots",
			goerr.V("snapshots", len(snaps)))
	}

	months := nextMonths(now, 3)
	inScope := make(map[types.MonthKey]bool, len(months))
	for _, m := range months {
		inScope[m] = true
	}

	// Union of parts across all snapshots, keyed for stable output
	partSet := make(map[types.PartID]types.PlantID)
	for _, snap := range snaps {
		for _, pc := range snap.Parts {
			if _, ok := partSet[pc.Part]; !ok {
				partSet[pc.Part] = pc.Plant
			}
		}
	}
	ids := make([]types.PartID, 0, len(partSet))
	for id := range partSet {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	shifts := make([]model.DemandShift, 0, len(ids))
	for _, id := range ids {
		shift := model.DemandShift{Part: id, Plant: partSet[id]}
		for _, snap := range snaps {
			monthly := make(model.MonthlyDemand, len(months))
			var total float64
			if pc := snap.Part(id); pc != nil {
				for _, r := range pc.Results {
					m := r.Bucket.Month()
					if !inScope[m] {
						continue
					}
					monthly[m] += r.Demand
					total += r.Demand
				}
			}
			shift.Monthly = append(shift.Monthly, monthly)
			shift.Totals = append(shift.Totals, total)
		}
		if pc := snaps[len(snaps)-1].Part(id); pc != nil {
			shift.FirstChange = pc.FirstChange
		}
		shift.PercentChange = percentChange(shift.Totals[0], shift.Totals[len(shift.Totals)-1])
		shifts = append(shifts, shift)
	}
	return shifts, months, nil
}

// nextMonths returns the n calendar months following the month of t
func nextMonths(t time.Time, n int) []types.MonthKey {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	months := make([]types.MonthKey, 0, n)
	for i := 1; i <= n; i++ {
		months = append(months, types.NewMonthKey(first.AddDate(0, i, 0)))
	}
	return months
}

// percentChange keeps the legacy report's convention: zero to zero is no
// change, growth from zero is capped at 100%
func percentChange(oldest, newest float64) float64 {
	if oldest == 0 {
		if newest == 0 {
			return 0
		}
		return 100
	}
	return (newest - oldest) / oldest * 100
}
