package model

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/schedops/ediscope/pkg/domain/types"
)

// ScheduleRecord is one (part, bucket) cell of the normalized schedule.
// StockAvailable and Incoming are replenishment quantities that become
// available at this bucket, not running totals.
type ScheduleRecord struct {
	Part           types.PartID
	Plant          types.PlantID
	Bucket         types.BucketKey
	Demand         float64
	StockAvailable float64
	Incoming       float64
}

// PartSchedule holds one part's records in strictly increasing bucket order
type PartSchedule struct {
	Part    types.PartID
	Plant   types.PlantID
	Records []ScheduleRecord
}

// Validate checks the part schedule invariants
func (p *PartSchedule) Validate() error {
	if p.Part == "" {
		return goerr.New("part ID is required")
	}
	if len(p.Records) == 0 {
		return goerr.Wrap(ErrNoBuckets, "empty bucket sequence",
			goerr.V("part", p.Part))
	}
	for i, rec := range p.Records {
		if rec.Part != p.Part {
			return goerr.New("record belongs to another part",
				goerr.V("part", p.Part),
				goerr.V("record", rec.Part))
		}
		if rec.Demand < 0 || rec.StockAvailable < 0 || rec.Incoming < 0 {
			return goerr.New("negative quantity",
				goerr.V("part", p.Part),
				goerr.V("bucket", rec.Bucket))
		}
		if i > 0 && !p.Records[i-1].Bucket.Before(rec.Bucket) {
			return goerr.New("buckets must be strictly increasing",
				goerr.V("part", p.Part),
				goerr.V("bucket", rec.Bucket),
				goerr.V("previous", p.Records[i-1].Bucket))
		}
	}
	return nil
}

// Buckets returns the part's bucket keys in order
func (p *PartSchedule) Buckets() []types.BucketKey {
	keys := make([]types.BucketKey, 0, len(p.Records))
	for _, rec := range p.Records {
		keys = append(keys, rec.Bucket)
	}
	return keys
}

// ParseWarnings counts anomalies recovered during parsing
type ParseWarnings struct {
	DroppedRows    int // rows with a blank part identifier
	DefaultedCells int // cells that failed numeric parsing, read as zero
	ReorderedCols  int // bucket columns that were not in chronological order
}

// Total returns the overall warning count
func (w ParseWarnings) Total() int {
	return w.DroppedRows + w.DefaultedCells + w.ReorderedCols
}

// Schedule is the normalized table produced by the parser
type Schedule struct {
	Parts    []*PartSchedule
	Warnings ParseWarnings
}

// Part returns the schedule of the given part, or nil
func (s *Schedule) Part(id types.PartID) *PartSchedule {
	for _, p := range s.Parts {
		if p.Part == id {
			return p
		}
	}
	return nil
}

// Validate checks all part schedules and part uniqueness
func (s *Schedule) Validate() error {
	seen := make(map[types.PartID]bool, len(s.Parts))
	for _, p := range s.Parts {
		if seen[p.Part] {
			return goerr.New("duplicate part", goerr.V("part", p.Part))
		}
		seen[p.Part] = true
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}
