package cli

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/schedops/ediscope/pkg/cli/config"
	"github.com/schedops/ediscope/pkg/domain/model"
	"github.com/schedops/ediscope/pkg/service/edi"
	"github.com/schedops/ediscope/pkg/service/sheet"
	"github.com/schedops/ediscope/pkg/usecase"
)

func outputFlag(dst *string, defaultName string) cli.Flag {
	return &cli.StringFlag{
		Name:        "output",
		Aliases:     []string{"o"},
		Usage:       "Path of the generated workbook",
		Value:       defaultName,
		Destination: dst,
	}
}

func cmdCoverage() *cli.Command {
	var (
		scheduleCfg config.Schedule
		output      string
	)

	return &cli.Command{
		Name:      "coverage",
		Usage:     "Annotate a schedule workbook with coverage classification",
		ArgsUsage: "<schedule.xlsx>",
		Flags:     joinFlags(scheduleCfg.Flags(), []cli.Flag{outputFlag(&output, "Coverage_Report.xlsx")}),
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() != 1 {
				return goerr.Wrap(model.ErrBadConfig, "exactly one schedule workbook is required")
			}
			srcPath := c.Args().First()

			policy, err := scheduleCfg.Configure()
			if err != nil {
				return err
			}

			sched, err := sheet.NewReader(policy).ReadSchedule(ctx, srcPath)
			if err != nil {
				return err
			}
			snap, err := usecase.NewCoverage(policy).Classify(ctx, sched)
			if err != nil {
				return err
			}
			if err := sheet.NewWriter(policy).WriteCoverage(ctx, srcPath, output, snap); err != nil {
				return err
			}

			ctxlog.From(ctx).Info("Coverage report written",
				slog.String("output", output),
				slog.Int("parts", len(snap.Parts)),
			)
			return nil
		},
	}
}

func cmdCritical() *cli.Command {
	var (
		scheduleCfg config.Schedule
		output      string
	)

	return &cli.Command{
		Name:      "critical",
		Usage:     "List parts with unmet demand inside the trailing window",
		ArgsUsage: "<schedule.xlsx>",
		Flags:     joinFlags(scheduleCfg.Flags(), []cli.Flag{outputFlag(&output, "Critical_Parts_Report.xlsx")}),
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() != 1 {
				return goerr.Wrap(model.ErrBadConfig, "exactly one schedule workbook is required")
			}
			srcPath := c.Args().First()

			policy, err := scheduleCfg.Configure()
			if err != nil {
				return err
			}

			sched, err := sheet.NewReader(policy).ReadSchedule(ctx, srcPath)
			if err != nil {
				return err
			}
			snap, err := usecase.NewCoverage(policy).Classify(ctx, sched)
			if err != nil {
				return err
			}
			critical, err := usecase.NewCritical().Select(ctx, snap, policy.WindowWeeks)
			if err != nil {
				return err
			}
			if err := sheet.NewWriter(policy).WriteCritical(ctx, output, critical); err != nil {
				return err
			}

			ctxlog.From(ctx).Info("Critical parts report written",
				slog.String("output", output),
				slog.Int("parts", len(critical)),
			)
			return nil
		},
	}
}

func cmdConvert() *cli.Command {
	var (
		scheduleCfg config.Schedule
		output      string
	)

	return &cli.Command{
		Name:      "convert",
		Usage:     "Merge EDI HTML exports into one weekly demand workbook",
		ArgsUsage: "<export.html> [...]",
		Flags:     joinFlags(scheduleCfg.Flags(), []cli.Flag{outputFlag(&output, "EDI_Schedule.xlsx")}),
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() == 0 {
				return goerr.Wrap(model.ErrBadConfig, "at least one EDI HTML export is required")
			}

			policy, err := scheduleCfg.Configure()
			if err != nil {
				return err
			}

			now := time.Now()
			converter := edi.NewConverter()
			var forecasts []model.ForecastRow
			for _, path := range c.Args().Slice() {
				rows, err := parseEDIFile(ctx, converter, path, now)
				if err != nil {
					ctxlog.From(ctx).Warn("Skipping unreadable EDI export",
						"file", path, "error", err)
					continue
				}
				forecasts = append(forecasts, rows...)
			}
			if len(forecasts) == 0 {
				return goerr.Wrap(model.ErrParse, "no forecast rows found in inputs")
			}

			if err := sheet.NewWriter(policy).WriteMerged(ctx, output, forecasts, converter.Weeks(now)); err != nil {
				return err
			}

			ctxlog.From(ctx).Info("Merged schedule written",
				slog.String("output", output),
				slog.Int("rows", len(forecasts)),
			)
			return nil
		},
	}
}

func cmdFluctuation() *cli.Command {
	var (
		scheduleCfg config.Schedule
		output      string
	)

	return &cli.Command{
		Name:      "fluctuation",
		Usage:     "Diff EDI HTML exports, oldest first, into a fluctuation report",
		ArgsUsage: "<old.html> <new.html> [...]",
		Flags:     joinFlags(scheduleCfg.Flags(), []cli.Flag{outputFlag(&output, "EDI_Fluctuation_Report.xlsx")}),
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() < 2 {
				return goerr.Wrap(model.ErrBadConfig, "at least two EDI HTML exports are required",
					goerr.V("count", c.Args().Len()))
			}

			policy, err := scheduleCfg.Configure()
			if err != nil {
				return err
			}

			now := time.Now()
			converter := edi.NewConverter()
			classifier := usecase.NewCoverage(policy)
			var snaps []*model.Snapshot
			for _, path := range c.Args().Slice() {
				rows, err := parseEDIFile(ctx, converter, path, now)
				if err != nil {
					return goerr.Wrap(err, "failed to read EDI export", goerr.V("file", path))
				}
				snap, err := classifier.Classify(ctx, model.ScheduleFromForecasts(rows))
				if err != nil {
					return err
				}
				snap.Label = path
				if st, err := os.Stat(path); err == nil {
					snap.TakenAt = st.ModTime()
				}
				snaps = append(snaps, snap)
			}
			for i := 1; i < len(snaps); i++ {
				classifier.AnnotateChanges(snaps[i-1], snaps[i])
			}

			aggregator := usecase.NewFluctuation()
			entries, err := aggregator.Aggregate(ctx, snaps)
			if err != nil {
				return err
			}
			shifts, months, err := aggregator.DemandShifts(ctx, snaps, now)
			if err != nil {
				return err
			}

			if err := sheet.NewWriter(policy).WriteFluctuation(ctx, output, shifts, entries, months, len(snaps)); err != nil {
				return err
			}

			ctxlog.From(ctx).Info("Fluctuation report written",
				slog.String("output", output),
				slog.Int("snapshots", len(snaps)),
				slog.Int("transitions", len(entries)),
			)
			return nil
		},
	}
}

func parseEDIFile(ctx context.Context, converter *edi.Converter, path string, now time.Time) ([]model.ForecastRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, goerr.Wrap(err, "cannot open EDI export", goerr.V("path", path))
	}
	defer f.Close()
	return converter.Parse(ctx, f, now)
}
