package usecase

import (
	"context"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/schedops/ediscope/pkg/domain/model"
	"github.com/schedops/ediscope/pkg/domain/types"
)

// Critical selects parts with unmet demand inside a trailing window
type Critical struct{}

// NewCritical creates a new Critical use case
func NewCritical() *Critical {
	return &Critical{}
}

// Select returns the parts whose trailing windowWeeks buckets contain at
// least one unmet bucket. The window is the tail of the part's own bucket
// sequence; parts with fewer buckets use their entire history. Output is
// ordered by total unmet demand descending, part ID ascending on ties.
func (uc *Critical) Select(ctx context.Context, snap *model.Snapshot, windowWeeks int) ([]model.CriticalPart, error) {
	if windowWeeks < 1 {
		return nil, goerr.Wrap(model.ErrBadConfig, "analysis window must be at least one week",
			goerr.V("windowWeeks", windowWeeks))
	}
	if snap == nil {
		return nil, goerr.Wrap(model.ErrBadConfig, "snapshot is required")
	}

	var critical []model.CriticalPart
	for _, pc := range snap.Parts {
		if len(pc.Results) == 0 {
			continue
		}
		window := pc.Results
		if len(window) > windowWeeks {
			window = window[len(window)-windowWeeks:]
		}

		cp := model.CriticalPart{
			Part:        pc.Part,
			Plant:       pc.Plant,
			WindowStart: window[0].Bucket,
			WindowEnd:   window[len(window)-1].Bucket,
		}
		for _, r := range window {
			if r.Status != types.StatusUnmet {
				continue
			}
			cp.TotalUnmet += r.Demand
			cp.Buckets = append(cp.Buckets, model.UnmetBucket{
				Bucket: r.Bucket,
				Qty:    r.Demand,
			})
		}
		if len(cp.Buckets) > 0 {
			critical = append(critical, cp)
		}
	}

	sort.Slice(critical, func(i, j int) bool {
		if critical[i].TotalUnmet != critical[j].TotalUnmet {
			return critical[i].TotalUnmet > critical[j].TotalUnmet
		}
		return critical[i].Part < critical[j].Part
	})
	return critical, nil
}
