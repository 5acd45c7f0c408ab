package config

import (
	"log/slog"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/schedops/ediscope/pkg/domain/model"
)

// Schedule holds schedule parsing policy configuration. A YAML policy
// file provides the base, individual flags override it.
type Schedule struct {
	PolicyPath     string
	SheetName      string
	PartHeader     string
	WindowWeeks    int
	CarryShortfall bool
}

// Flags returns CLI flags for Schedule configuration
func (s *Schedule) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "policy",
			Usage:       "Path to YAML policy file",
			Category:    "Schedule",
			Sources:     cli.EnvVars("EDISCOPE_POLICY"),
			Destination: &s.PolicyPath,
		},
		&cli.StringFlag{
			Name:        "sheet-name",
			Usage:       "Name of the schedule sheet in the workbook",
			Category:    "Schedule",
			Sources:     cli.EnvVars("EDISCOPE_SHEET_NAME"),
			Destination: &s.SheetName,
		},
		&cli.StringFlag{
			Name:        "part-header",
			Usage:       "Header of the part number column",
			Category:    "Schedule",
			Sources:     cli.EnvVars("EDISCOPE_PART_HEADER"),
			Destination: &s.PartHeader,
		},
		&cli.IntFlag{
			Name:        "window-weeks",
			Usage:       "Trailing window for critical part selection",
			Category:    "Schedule",
			Sources:     cli.EnvVars("EDISCOPE_WINDOW_WEEKS"),
			Destination: &s.WindowWeeks,
		},
		&cli.BoolFlag{
			Name:        "carry-shortfall",
			Usage:       "Carry unmet demand into following buckets",
			Category:    "Schedule",
			Sources:     cli.EnvVars("EDISCOPE_CARRY_SHORTFALL"),
			Destination: &s.CarryShortfall,
		},
	}
}

// Configure builds the effective policy from defaults, the optional
// policy file and flag overrides
func (s *Schedule) Configure() (model.Policy, error) {
	policy := model.DefaultPolicy()

	if s.PolicyPath != "" {
		data, err := os.ReadFile(s.PolicyPath)
		if err != nil {
			return policy, goerr.Wrap(err, "failed to read policy file",
				goerr.V("path", s.PolicyPath))
		}
		if err := yaml.Unmarshal(data, &policy); err != nil {
			return policy, goerr.Wrap(model.ErrBadConfig, "failed to parse policy file",
				goerr.V("path", s.PolicyPath), goerr.V("cause", err.Error()))
		}
	}

	if s.SheetName != "" {
		policy.SheetName = s.SheetName
	}
	if s.PartHeader != "" {
		policy.PartHeader = s.PartHeader
	}
	if s.WindowWeeks > 0 {
		policy.WindowWeeks = s.WindowWeeks
	}
	if s.CarryShortfall {
		policy.CarryShortfall = true
	}

	if err := policy.Validate(); err != nil {
		return policy, err
	}
	return policy, nil
}

// LogValue returns structured log value
func (s Schedule) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("policyPath", s.PolicyPath),
		slog.String("sheetName", s.SheetName),
		slog.String("partHeader", s.PartHeader),
		slog.Int("windowWeeks", s.WindowWeeks),
		slog.Bool("carryShortfall", s.CarryShortfall),
	)
}
