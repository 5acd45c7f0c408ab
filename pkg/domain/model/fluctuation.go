package model

import "github.com/schedops/ediscope/pkg/domain/types"

// FluctuationEntry aggregates status transitions between two consecutive
// snapshots for one part and calendar month. Derived data, never mutated
// after creation.
type FluctuationEntry struct {
	Part   types.PartID
	Month  types.MonthKey
	Change types.Transition
	Count  int
}

// MonthlyDemand maps calendar months to summed demand quantities
type MonthlyDemand map[types.MonthKey]float64

// DemandShift is the per-part quantity view of fluctuation: monthly demand
// totals per snapshot (oldest first) and the relative change between the
// oldest and newest snapshot
type DemandShift struct {
	Part    types.PartID
	Plant   types.PlantID
	Monthly []MonthlyDemand
	Totals  []float64

	// FirstChange is the earliest bucket whose status differs from the
	// previous snapshot, taken from the newest snapshot. Empty when the
	// part's coverage is unchanged.
	FirstChange types.BucketKey

	// PercentChange is (newest-oldest)/oldest*100. Zero when both totals
	// are zero, capped at 100 when growing from zero.
	PercentChange float64
}
