package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/schedops/ediscope/pkg/domain/model"
	"github.com/schedops/ediscope/pkg/domain/types"
	"github.com/schedops/ediscope/pkg/usecase"
)

func TestSelect(t *testing.T) {
	ctx := context.Background()
	uc := usecase.NewCritical()

	t.Run("rejects a non-positive window", func(t *testing.T) {
		snap := classify(t, buildPart("P1", []float64{1}, []float64{0}, []float64{0}))
		_, err := uc.Select(ctx, snap, 0)
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrBadConfig))
	})

	t.Run("covered parts are not critical", func(t *testing.T) {
		snap := classify(t, buildPart("P1", []float64{3, 3}, []float64{10, 0}, []float64{0, 0}))
		critical, err := uc.Select(ctx, snap, 8)
		gt.NoError(t, err)
		gt.A(t, critical).Length(0)
	})

	t.Run("unmet demand inside the window is summed", func(t *testing.T) {
		snap := classify(t, buildPart("P1",
			[]float64{2, 7, 5},
			[]float64{2, 0, 0},
			[]float64{0, 0, 0},
		))
		critical, err := uc.Select(ctx, snap, 8)
		gt.NoError(t, err)
		gt.A(t, critical).Length(1)
		gt.V(t, critical[0].TotalUnmet).Equal(12.0)
		gt.A(t, critical[0].Buckets).Length(2)
		gt.V(t, critical[0].WindowStart).Equal(week(0))
		gt.V(t, critical[0].WindowEnd).Equal(week(2))
	})

	t.Run("window is the tail of the part's own buckets", func(t *testing.T) {
		// unmet only in the first of four buckets, window of two
		snap := classify(t, buildPart("P1",
			[]float64{9, 1, 1, 1},
			[]float64{0, 5, 0, 0},
			[]float64{0, 0, 0, 0},
		))
		critical, err := uc.Select(ctx, snap, 2)
		gt.NoError(t, err)
		gt.A(t, critical).Length(0)
	})

	t.Run("oversized window uses the entire history", func(t *testing.T) {
		snap := classify(t, buildPart("P1",
			[]float64{9, 1},
			[]float64{0, 0},
			[]float64{0, 0},
		))
		critical, err := uc.Select(ctx, snap, 50)
		gt.NoError(t, err)
		gt.A(t, critical).Length(1)
		gt.V(t, critical[0].WindowStart).Equal(week(0))
		gt.V(t, critical[0].TotalUnmet).Equal(10.0)
	})

	t.Run("ordered by unmet total, part ID on ties", func(t *testing.T) {
		snap := classify(t,
			buildPart("B", []float64{5}, []float64{0}, []float64{0}),
			buildPart("C", []float64{9}, []float64{0}, []float64{0}),
			buildPart("A", []float64{5}, []float64{0}, []float64{0}),
		)
		critical, err := uc.Select(ctx, snap, 8)
		gt.NoError(t, err)
		gt.A(t, critical).Length(3)
		gt.V(t, critical[0].Part).Equal(types.PartID("C"))
		gt.V(t, critical[1].Part).Equal(types.PartID("A"))
		gt.V(t, critical[2].Part).Equal(types.PartID("B"))
	})
}
