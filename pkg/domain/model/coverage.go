package model

import (
	"time"

	"github.com/schedops/ediscope/pkg/domain/types"
)

// CoverageResult is the verdict for one (part, bucket) demand cell.
// Immutable once computed for a snapshot.
type CoverageResult struct {
	Part      types.PartID
	Bucket    types.BucketKey
	Status    types.CoverageStatus
	Demand    float64
	Shortfall float64 // uncoverable quantity, non-zero only for StatusUnmet
}

// PartCoverage holds one part's classified buckets plus the report metrics
// derived from them
type PartCoverage struct {
	Part    types.PartID
	Plant   types.PlantID
	Results []CoverageResult

	// FirstChange is the first bucket whose status differs from the
	// previous snapshot. Empty when no previous snapshot was supplied or
	// nothing changed.
	FirstChange types.BucketKey

	// FirstIncoming and FirstUnmet are the first buckets classified as
	// incoming-covered and unmet. Empty when the status never occurs.
	FirstIncoming types.BucketKey
	FirstUnmet    types.BucketKey

	// CoverageWH counts leading demand buckets satisfiable by warehouse
	// stock alone; CoverageAll by warehouse plus all incoming transfers.
	CoverageWH  int
	CoverageAll int
}

// StatusAt returns the status of the given bucket
func (pc *PartCoverage) StatusAt(bucket types.BucketKey) (types.CoverageStatus, bool) {
	for _, r := range pc.Results {
		if r.Bucket == bucket {
			return r.Status, true
		}
	}
	return "", false
}

// Snapshot is one classified schedule, tagged with when its source export
// was taken so fluctuation inputs can be ordered
type Snapshot struct {
	Label   string
	TakenAt time.Time
	Parts   []*PartCoverage
}

// Part returns the coverage of the given part, or nil
func (s *Snapshot) Part(id types.PartID) *PartCoverage {
	for _, p := range s.Parts {
		if p.Part == id {
			return p
		}
	}
	return nil
}

// PartIDs returns all part IDs in snapshot order
func (s *Snapshot) PartIDs() []types.PartID {
	ids := make([]types.PartID, 0, len(s.Parts))
	for _, p := range s.Parts {
		ids = append(ids, p.Part)
	}
	return ids
}
