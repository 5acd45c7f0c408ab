package model

import (
	"sort"

	"github.com/schedops/ediscope/pkg/domain/types"
)

// ForecastRow is one part's weekly demand extracted from an EDI HTML
// export, keyed by the Monday of each week
type ForecastRow struct {
	Plant   types.PlantID
	Part    types.PartID
	Route   string
	Project string
	Weekly  map[types.BucketKey]float64
}

// GrandTotal sums all weekly quantities
func (f *ForecastRow) GrandTotal() float64 {
	var total float64
	for _, qty := range f.Weekly {
		total += qty
	}
	return total
}

// ScheduleFromForecasts folds forecast rows into a demand-only schedule.
// Rows sharing a part number are summed per week, and records are emitted
// in chronological order.
func ScheduleFromForecasts(rows []ForecastRow) *Schedule {
	type partDemand struct {
		plant  types.PlantID
		weekly map[types.BucketKey]float64
	}
	byPart := make(map[types.PartID]*partDemand)
	var order []types.PartID

	for _, row := range rows {
		pd, ok := byPart[row.Part]
		if !ok {
			pd = &partDemand{plant: row.Plant, weekly: make(map[types.BucketKey]float64)}
			byPart[row.Part] = pd
			order = append(order, row.Part)
		}
		for bucket, qty := range row.Weekly {
			pd.weekly[bucket] += qty
		}
	}

	sched := &Schedule{}
	for _, part := range order {
		pd := byPart[part]
		buckets := make([]types.BucketKey, 0, len(pd.weekly))
		for bucket := range pd.weekly {
			buckets = append(buckets, bucket)
		}
		sort.Slice(buckets, func(i, j int) bool { return buckets[i].Before(buckets[j]) })

		ps := &PartSchedule{Part: part, Plant: pd.plant}
		for _, bucket := range buckets {
			ps.Records = append(ps.Records, ScheduleRecord{
				Part:   part,
				Plant:  pd.plant,
				Bucket: bucket,
				Demand: pd.weekly[bucket],
			})
		}
		sched.Parts = append(sched.Parts, ps)
	}
	return sched
}
