package model

import "github.com/schedops/ediscope/pkg/domain/types"

// UnmetBucket is one unmet demand cell inside the analysis window
type UnmetBucket struct {
	Bucket types.BucketKey
	Qty    float64
}

// CriticalPart is a part with unmet demand inside the trailing analysis
// window of its own bucket sequence
type CriticalPart struct {
	Part        types.PartID
	Plant       types.PlantID
	WindowStart types.BucketKey
	WindowEnd   types.BucketKey
	TotalUnmet  float64
	Buckets     []UnmetBucket
}
