package usecase

import (
	"context"
	"errors"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/schedops/ediscope/pkg/domain/model"
	"github.com/schedops/ediscope/pkg/domain/types"
)

// Coverage classifies demand buckets against warehouse stock and incoming
// transfers. Stateless: every call allocates its own working data.
type Coverage struct {
	policy model.Policy
}

// NewCoverage creates a new Coverage use case
func NewCoverage(policy model.Policy) *Coverage {
	return &Coverage{policy: policy}
}

// Classify classifies every part of the schedule. Parts with an empty
// bucket sequence are skipped, not fatal.
func (uc *Coverage) Classify(ctx context.Context, sched *model.Schedule) (*model.Snapshot, error) {
	if sched == nil || len(sched.Parts) == 0 {
		return nil, goerr.Wrap(model.ErrParse, "schedule has no parts")
	}

	snap := &model.Snapshot{}
	for _, part := range sched.Parts {
		pc, err := uc.ClassifyPart(part)
		if err != nil {
			if errors.Is(err, model.ErrNoBuckets) {
				ctxlog.From(ctx).Warn("Skipping part without buckets",
					"part", part.Part)
				continue
			}
			return nil, err
		}
		snap.Parts = append(snap.Parts, pc)
	}
	if len(snap.Parts) == 0 {
		return nil, goerr.Wrap(model.ErrNoBuckets, "no classifiable parts in schedule")
	}
	return snap, nil
}

// ClassifyPart walks one part's buckets in order, accruing the bucket's own
// stock and incoming quantities into running balances and consuming demand
// stock-first. Unmet demand zeroes both balances; the shortfall carries to
// the next bucket only when the policy enables backlog modeling.
func (uc *Coverage) ClassifyPart(part *model.PartSchedule) (*model.PartCoverage, error) {
	if part == nil || len(part.Records) == 0 {
		return nil, goerr.Wrap(model.ErrNoBuckets, "cannot classify part",
			goerr.V("part", partID(part)))
	}

	pc := &model.PartCoverage{Part: part.Part, Plant: part.Plant}
	var stock, incoming, carried float64
	for _, rec := range part.Records {
		stock += rec.StockAvailable
		incoming += rec.Incoming

		demand := rec.Demand + carried
		carried = 0

		res := model.CoverageResult{
			Part:   part.Part,
			Bucket: rec.Bucket,
			Demand: rec.Demand,
		}
		switch {
		case demand <= stock:
			res.Status = types.StatusWarehouse
			stock -= demand
		case demand <= stock+incoming:
			res.Status = types.StatusIncoming
			incoming -= demand - stock
			stock = 0
			if pc.FirstIncoming == "" {
				pc.FirstIncoming = rec.Bucket
			}
		default:
			res.Status = types.StatusUnmet
			res.Shortfall = demand - stock - incoming
			stock, incoming = 0, 0
			if uc.policy.CarryShortfall {
				carried = res.Shortfall
			}
			if pc.FirstUnmet == "" {
				pc.FirstUnmet = rec.Bucket
			}
		}
		pc.Results = append(pc.Results, res)
	}

	pc.CoverageWH, pc.CoverageAll = coverageHorizons(part)
	return pc, nil
}

// coverageHorizons counts how many leading non-zero demand buckets the
// warehouse stock alone, and the total supply, can satisfy in sequence
func coverageHorizons(part *model.PartSchedule) (wh int, all int) {
	var stockTotal, incomingTotal float64
	demands := make([]float64, 0, len(part.Records))
	for _, rec := range part.Records {
		stockTotal += rec.StockAvailable
		incomingTotal += rec.Incoming
		demands = append(demands, rec.Demand)
	}

	horizon := func(supply float64) int {
		n := 0
		for _, d := range demands {
			if d == 0 {
				continue
			}
			if supply < d {
				break
			}
			supply -= d
			n++
		}
		return n
	}
	return horizon(stockTotal), horizon(stockTotal + incomingTotal)
}

// AnnotateChanges sets FirstChange on every part of curr to the first
// bucket whose status differs from prev. Buckets or parts missing from
// prev contribute no change; appeared/disappeared parts are the
// aggregator's concern.
func (uc *Coverage) AnnotateChanges(prev, curr *model.Snapshot) {
	if prev == nil || curr == nil {
		return
	}
	for _, pc := range curr.Parts {
		old := prev.Part(pc.Part)
		if old == nil {
			continue
		}
		for _, r := range pc.Results {
			prevStatus, ok := old.StatusAt(r.Bucket)
			if !ok {
				continue
			}
			if prevStatus != r.Status {
				pc.FirstChange = r.Bucket
				break
			}
		}
	}
}

func partID(p *model.PartSchedule) types.PartID {
	if p == nil {
		return ""
	}
	return p.Part
}
