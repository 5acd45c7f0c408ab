package interfaces

import (
	"context"
	"time"

	"github.com/schedops/ediscope/pkg/domain/model"
	"github.com/schedops/ediscope/pkg/domain/types"
)

// Classifier converts a normalized schedule into a classified snapshot
type Classifier interface {
	Classify(ctx context.Context, sched *model.Schedule) (*model.Snapshot, error)
	AnnotateChanges(prev, curr *model.Snapshot)
}

// Aggregator diffs an ordered sequence of classified snapshots
type Aggregator interface {
	Aggregate(ctx context.Context, snaps []*model.Snapshot) ([]model.FluctuationEntry, error)
	DemandShifts(ctx context.Context, snaps []*model.Snapshot, now time.Time) ([]model.DemandShift, []types.MonthKey, error)
}

// Selector filters a classified snapshot to critical parts
type Selector interface {
	Select(ctx context.Context, snap *model.Snapshot, windowWeeks int) ([]model.CriticalPart, error)
}

// ScheduleReader turns a workbook file into a normalized schedule
type ScheduleReader interface {
	ReadSchedule(ctx context.Context, path string) (*model.Schedule, error)
}
