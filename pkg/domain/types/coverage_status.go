package types

// CoverageStatus represents the coverage verdict for one demand bucket
type CoverageStatus string

const (
	// StatusWarehouse means the bucket's demand is covered by warehouse stock
	StatusWarehouse CoverageStatus = "warehouse"
	// StatusIncoming means the bucket's demand needs incoming transfers
	StatusIncoming CoverageStatus = "incoming"
	// StatusUnmet means the bucket's demand cannot be covered
	StatusUnmet CoverageStatus = "unmet"
	// StatusAbsent is a synthetic status for parts missing from a snapshot,
	// used only in fluctuation transitions
	StatusAbsent CoverageStatus = "absent"
)

// String returns the string representation of the status
func (s CoverageStatus) String() string {
	return string(s)
}

// IsValid checks if the status is a real classification result. StatusAbsent
// is excluded: it never appears in a classified snapshot
func (s CoverageStatus) IsValid() bool {
	switch s {
	case StatusWarehouse, StatusIncoming, StatusUnmet:
		return true
	default:
		return false
	}
}

// Transition represents a status change between two snapshots
type Transition struct {
	From CoverageStatus
	To   CoverageStatus
}

// String returns the "from->to" representation used as a report key
func (t Transition) String() string {
	return t.From.String() + "->" + t.To.String()
}

// Reversed returns the opposite transition
func (t Transition) Reversed() Transition {
	return Transition{From: t.To, To: t.From}
}
