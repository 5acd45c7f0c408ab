package types_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/schedops/ediscope/pkg/domain/types"
)

func TestBucketKey(t *testing.T) {
	t.Run("lexical order matches chronology", func(t *testing.T) {
		a := types.NewBucketKey(time.Date(2025, 9, 29, 0, 0, 0, 0, time.UTC))
		b := types.NewBucketKey(time.Date(2025, 10, 6, 0, 0, 0, 0, time.UTC))
		gt.True(t, a.Before(b))
		gt.False(t, b.Before(a))
	})

	t.Run("round-trips through time", func(t *testing.T) {
		d := time.Date(2025, 7, 7, 0, 0, 0, 0, time.UTC)
		key := types.NewBucketKey(d)
		gt.V(t, key.String()).Equal("2025-07-07")
		gt.True(t, key.Time().Equal(d))
	})

	t.Run("month of bucket", func(t *testing.T) {
		key := types.BucketKey("2025-07-28")
		gt.V(t, key.Month()).Equal(types.MonthKey("2025-07"))
	})

	t.Run("malformed key yields zero time and empty month", func(t *testing.T) {
		key := types.BucketKey("not-a-date")
		gt.True(t, key.Time().IsZero())
		gt.V(t, key.Month()).Equal(types.MonthKey(""))
	})
}

func TestCoverageStatus(t *testing.T) {
	t.Run("real statuses are valid", func(t *testing.T) {
		gt.True(t, types.StatusWarehouse.IsValid())
		gt.True(t, types.StatusIncoming.IsValid())
		gt.True(t, types.StatusUnmet.IsValid())
	})

	t.Run("absent is synthetic", func(t *testing.T) {
		gt.False(t, types.StatusAbsent.IsValid())
	})

	t.Run("transition formatting and reversal", func(t *testing.T) {
		tr := types.Transition{From: types.StatusWarehouse, To: types.StatusUnmet}
		gt.V(t, tr.String()).Equal("warehouse->unmet")
		gt.V(t, tr.Reversed()).Equal(types.Transition{
			From: types.StatusUnmet,
			To:   types.StatusWarehouse,
		})
	})
}
