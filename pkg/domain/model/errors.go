package model

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for schedule processing
var (
	// ErrParse indicates the uploaded workbook is structurally unusable
	// (missing header row, part column or bucket columns). It aborts the
	// whole request.
	ErrParse = goerr.New("schedule parse failed")

	// ErrNoBuckets indicates a part with an empty bucket sequence. Callers
	// skip the part rather than failing the request.
	ErrNoBuckets = goerr.New("part has no buckets")

	// ErrBadConfig indicates an out-of-range configuration value such as a
	// non-positive analysis window.
	ErrBadConfig = goerr.New("invalid configuration")
)
