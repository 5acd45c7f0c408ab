package usecase_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gt"
	"github.com/schedops/ediscope/pkg/domain/model"
	"github.com/schedops/ediscope/pkg/domain/types"
	"github.com/schedops/ediscope/pkg/usecase"
)

func classify(t *testing.T, parts ...*model.PartSchedule) *model.Snapshot {
	t.Helper()
	snap, err := usecase.NewCoverage(model.DefaultPolicy()).Classify(
		context.Background(), &model.Schedule{Parts: parts})
	gt.NoError(t, err)
	return snap
}

func TestAggregate(t *testing.T) {
	ctx := context.Background()
	uc := usecase.NewFluctuation()

	covered := buildPart("P1", []float64{3, 3}, []float64{10, 0}, []float64{0, 0})
	starved := buildPart("P1", []float64{3, 3}, []float64{0, 0}, []float64{0, 0})

	t.Run("error with fewer than two snapshots", func(t *testing.T) {
		_, err := uc.Aggregate(ctx, []*model.Snapshot{classify(t, covered)})
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrBadConfig))
	})

	t.Run("status changes are bucketed by month", func(t *testing.T) {
		entries, err := uc.Aggregate(ctx, []*model.Snapshot{
			classify(t, covered),
			classify(t, starved),
		})
		gt.NoError(t, err)
		// both weekly buckets fall in July 2025 and both flipped
		gt.A(t, entries).Length(1)
		gt.V(t, entries[0].Part).Equal(types.PartID("P1"))
		gt.V(t, entries[0].Month).Equal(types.MonthKey("2025-07"))
		gt.V(t, entries[0].Change).Equal(types.Transition{
			From: types.StatusWarehouse,
			To:   types.StatusUnmet,
		})
		gt.V(t, entries[0].Count).Equal(2)
	})

	t.Run("unchanged buckets contribute nothing", func(t *testing.T) {
		entries, err := uc.Aggregate(ctx, []*model.Snapshot{
			classify(t, covered),
			classify(t, covered),
		})
		gt.NoError(t, err)
		gt.A(t, entries).Length(0)
	})

	t.Run("appeared and disappeared parts use the absent status", func(t *testing.T) {
		withExtra := classify(t,
			buildPart("P1", []float64{3}, []float64{10}, []float64{0}),
			buildPart("P2", []float64{1}, []float64{1}, []float64{0}),
		)
		withoutExtra := classify(t,
			buildPart("P1", []float64{3}, []float64{10}, []float64{0}),
		)

		entries, err := uc.Aggregate(ctx, []*model.Snapshot{withoutExtra, withExtra})
		gt.NoError(t, err)
		gt.A(t, entries).Length(1)
		gt.V(t, entries[0].Change.From).Equal(types.StatusAbsent)
		gt.V(t, entries[0].Change.To).Equal(types.StatusWarehouse)

		entries, err = uc.Aggregate(ctx, []*model.Snapshot{withExtra, withoutExtra})
		gt.NoError(t, err)
		gt.A(t, entries).Length(1)
		gt.V(t, entries[0].Change.To).Equal(types.StatusAbsent)
	})

	t.Run("warns when timestamps run backwards", func(t *testing.T) {
		var buf bytes.Buffer
		lctx := ctxlog.With(ctx, slog.New(slog.NewTextHandler(&buf, nil)))

		newer := classify(t, covered)
		newer.TakenAt = time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC)
		older := classify(t, starved)
		older.TakenAt = time.Date(2025, 7, 7, 0, 0, 0, 0, time.UTC)

		_, err := uc.Aggregate(lctx, []*model.Snapshot{newer, older})
		gt.NoError(t, err)
		gt.True(t, strings.Contains(buf.String(), "chronological"))
	})

	t.Run("reversing the snapshot order reverses every transition", func(t *testing.T) {
		a := classify(t,
			buildPart("P1", []float64{3, 3}, []float64{10, 0}, []float64{0, 0}),
			buildPart("P2", []float64{5}, []float64{0}, []float64{5}),
		)
		b := classify(t,
			buildPart("P1", []float64{3, 3}, []float64{0, 0}, []float64{0, 0}),
			buildPart("P3", []float64{2}, []float64{2}, []float64{0}),
		)

		forward, err := uc.Aggregate(ctx, []*model.Snapshot{a, b})
		gt.NoError(t, err)
		backward, err := uc.Aggregate(ctx, []*model.Snapshot{b, a})
		gt.NoError(t, err)

		gt.V(t, len(forward)).Equal(len(backward))
		counts := make(map[string]int)
		for _, e := range backward {
			counts[string(e.Part)+"|"+e.Month.String()+"|"+e.Change.String()] = e.Count
		}
		for _, e := range forward {
			key := string(e.Part) + "|" + e.Month.String() + "|" + e.Change.Reversed().String()
			gt.V(t, counts[key]).Equal(e.Count)
		}
	})
}

func TestDemandShifts(t *testing.T) {
	ctx := context.Background()
	uc := usecase.NewFluctuation()
	// buckets start 2025-07-07; analysis months are Aug, Sep, Oct 2025
	now := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)

	longPart := func(id string, demands []float64) *model.PartSchedule {
		stock := make([]float64, len(demands))
		incoming := make([]float64, len(demands))
		stock[0] = 1000
		return buildPart(id, demands, stock, incoming)
	}

	t.Run("months are the three after now", func(t *testing.T) {
		_, months, err := uc.DemandShifts(ctx, []*model.Snapshot{
			classify(t, longPart("P1", []float64{1, 1})),
			classify(t, longPart("P1", []float64{1, 1})),
		}, now)
		gt.NoError(t, err)
		gt.V(t, months).Equal([]types.MonthKey{"2025-08", "2025-09", "2025-10"})
	})

	t.Run("demand sums per month and snapshot", func(t *testing.T) {
		// eight weekly buckets from 2025-07-07, four of them in August
		old := classify(t, longPart("P1", []float64{1, 1, 1, 1, 1, 1, 1, 1}))
		latest := classify(t, longPart("P1", []float64{2, 2, 2, 2, 2, 2, 2, 2}))

		shifts, _, err := uc.DemandShifts(ctx, []*model.Snapshot{old, latest}, now)
		gt.NoError(t, err)
		gt.A(t, shifts).Length(1)
		// July buckets (07-07, 07-14, 07-21, 07-28) are outside the window
		gt.V(t, shifts[0].Totals[0]).Equal(4.0)
		gt.V(t, shifts[0].Totals[1]).Equal(8.0)
		gt.V(t, shifts[0].PercentChange).Equal(100.0)
	})

	t.Run("percent change conventions", func(t *testing.T) {
		empty := classify(t, longPart("P1", []float64{0, 0, 0, 0, 0, 0}))
		shifts, _, err := uc.DemandShifts(ctx, []*model.Snapshot{empty, empty}, now)
		gt.NoError(t, err)
		gt.V(t, shifts[0].PercentChange).Equal(0.0)
	})

	t.Run("annotated first change dates carry into the shifts", func(t *testing.T) {
		old := classify(t, longPart("P1", []float64{1, 1}))
		latest := classify(t, buildPart("P1", []float64{5, 5}, []float64{0, 0}, []float64{0, 0}))

		usecase.NewCoverage(model.DefaultPolicy()).AnnotateChanges(old, latest)
		shifts, _, err := uc.DemandShifts(ctx, []*model.Snapshot{old, latest}, now)
		gt.NoError(t, err)
		gt.A(t, shifts).Length(1)
		gt.V(t, shifts[0].FirstChange).Equal(types.BucketKey("2025-07-07"))
	})

	t.Run("parts missing from a snapshot count as zero", func(t *testing.T) {
		with := classify(t,
			longPart("P1", []float64{1, 1, 1, 1, 1, 1}),
			longPart("P2", []float64{1, 1, 1, 1, 1, 1}),
		)
		without := classify(t, longPart("P1", []float64{1, 1, 1, 1, 1, 1}))

		shifts, _, err := uc.DemandShifts(ctx, []*model.Snapshot{with, without}, now)
		gt.NoError(t, err)
		gt.A(t, shifts).Length(2)
		gt.V(t, shifts[1].Part).Equal(types.PartID("P2"))
		gt.V(t, shifts[1].Totals[1]).Equal(0.0)
	})
}
