package model

import (
	"github.com/m-mizutani/goerr/v2"
)

// Default parsing and analysis settings, matching the EDI exports this
// service was built around
const (
	DefaultSheetName   = "Schedule"
	DefaultPartHeader  = "PART"
	DefaultWindowWeeks = 8
)

// DefaultDateLayouts are the header date formats recognized by the parser,
// tried in order
var DefaultDateLayouts = []string{
	"02-01-2006",
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"060102",
	"20060102",
}

// Policy holds the schedule parsing and reconciliation settings of one
// request. Loadable from a YAML file, overridable per request.
type Policy struct {
	SheetName   string   `yaml:"sheet_name"`
	PartHeader  string   `yaml:"part_header"`
	WindowWeeks int      `yaml:"window_weeks"`
	DateLayouts []string `yaml:"date_layouts"`

	// CarryShortfall enables backlog modeling: unmet demand in one bucket
	// is added to the next bucket's demand. Off matches the observed
	// behavior of the legacy reports.
	CarryShortfall bool `yaml:"carry_shortfall"`
}

// DefaultPolicy returns the policy used when no configuration is supplied
func DefaultPolicy() Policy {
	return Policy{
		SheetName:   DefaultSheetName,
		PartHeader:  DefaultPartHeader,
		WindowWeeks: DefaultWindowWeeks,
		DateLayouts: DefaultDateLayouts,
	}
}

// Validate validates the policy
func (p *Policy) Validate() error {
	if p.SheetName == "" {
		return goerr.Wrap(ErrBadConfig, "sheet name is required")
	}
	if p.PartHeader == "" {
		return goerr.Wrap(ErrBadConfig, "part column header is required")
	}
	if p.WindowWeeks < 1 {
		return goerr.Wrap(ErrBadConfig, "analysis window must be at least one week",
			goerr.V("windowWeeks", p.WindowWeeks))
	}
	if len(p.DateLayouts) == 0 {
		return goerr.Wrap(ErrBadConfig, "at least one date layout is required")
	}
	return nil
}
