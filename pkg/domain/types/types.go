package types

import "time"

// PartID represents a buyer's part number
type PartID string

// String returns the string representation
func (id PartID) String() string {
	return string(id)
}

// PlantID represents the plant a schedule row belongs to
type PlantID string

// String returns the string representation
func (id PlantID) String() string {
	return string(id)
}

// bucketLayout is the canonical wire format of a bucket key
const bucketLayout = "2006-01-02"

// BucketKey represents a discrete time slot of the schedule, keyed by its
// date in ISO format so that lexical order equals chronological order
type BucketKey string

// NewBucketKey creates a BucketKey from a date
func NewBucketKey(t time.Time) BucketKey {
	return BucketKey(t.Format(bucketLayout))
}

// String returns the string representation
func (b BucketKey) String() string {
	return string(b)
}

// Time parses the bucket key back to a date. The zero time is returned for
// malformed keys
func (b BucketKey) Time() time.Time {
	t, err := time.Parse(bucketLayout, string(b))
	if err != nil {
		return time.Time{}
	}
	return t
}

// Before reports whether b is chronologically before other
func (b BucketKey) Before(other BucketKey) bool {
	return string(b) < string(other)
}

// Month returns the calendar month the bucket falls in
func (b BucketKey) Month() MonthKey {
	t := b.Time()
	if t.IsZero() {
		return ""
	}
	return NewMonthKey(t)
}

// MonthKey represents a calendar month in "2006-01" form
type MonthKey string

// NewMonthKey creates a MonthKey from a date
func NewMonthKey(t time.Time) MonthKey {
	return MonthKey(t.Format("2006-01"))
}

// String returns the string representation
func (m MonthKey) String() string {
	return string(m)
}
