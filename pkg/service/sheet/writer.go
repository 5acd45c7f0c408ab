package sheet

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/schedops/ediscope/pkg/domain/model"
	"github.com/schedops/ediscope/pkg/domain/types"
	"github.com/xuri/excelize/v2"
)

// Status fill colors of the coverage report
const (
	fillWarehouse = "C6EFCE" // green
	fillIncoming  = "FFEB9C" // yellow
	fillUnmet     = "FFC7CE" // red
)

// insertedCols is the number of metric columns added before the first
// demand column of the coverage report
const insertedCols = 4

var insertedTitles = [insertedCols]string{
	"First Yellow Date", "First Red Date", "Cov (WH)", "Cov (WH+IT)",
}

// Writer renders reconciliation results as styled workbooks
type Writer struct {
	policy model.Policy
}

// NewWriter creates a new Writer
func NewWriter(policy model.Policy) *Writer {
	return &Writer{policy: policy}
}

// WriteCoverage rewrites the workbook at srcPath into dstPath: demand
// cells filled by coverage status, metric columns inserted before the
// first demand column, column widths fitted.
func (w *Writer) WriteCoverage(ctx context.Context, srcPath, dstPath string, snap *model.Snapshot) error {
	f, err := excelize.OpenFile(srcPath)
	if err != nil {
		return goerr.Wrap(model.ErrParse, "cannot open workbook",
			goerr.V("path", srcPath), goerr.V("cause", err.Error()))
	}
	defer f.Close()

	sheetName := pickSheet(f, w.policy.SheetName)
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return goerr.Wrap(model.ErrParse, "cannot read sheet", goerr.V("sheet", sheetName))
	}
	lay, err := locate(rows, w.policy)
	if err != nil {
		return err
	}

	fills := map[types.CoverageStatus]int{}
	for status, color := range map[types.CoverageStatus]string{
		types.StatusWarehouse: fillWarehouse,
		types.StatusIncoming:  fillIncoming,
		types.StatusUnmet:     fillUnmet,
	} {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err != nil {
			return goerr.Wrap(err, "cannot create fill style")
		}
		fills[status] = id
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return goerr.Wrap(err, "cannot create header style")
	}

	// Insert the metric columns before the leftmost demand column
	insertAt := lay.buckets[0].col
	for _, bc := range lay.buckets {
		if bc.col < insertAt {
			insertAt = bc.col
		}
	}
	colName, err := excelize.ColumnNumberToName(insertAt)
	if err != nil {
		return goerr.Wrap(err, "bad column number", goerr.V("col", insertAt))
	}
	if err := f.InsertCols(sheetName, colName, insertedCols); err != nil {
		return goerr.Wrap(err, "cannot insert metric columns")
	}
	shift := func(col int) int {
		if col >= insertAt {
			return col + insertedCols
		}
		return col
	}

	headerRow := lay.headerRow + 1 // 1-based sheet row
	for i, title := range insertedTitles {
		cell, err := excelize.CoordinatesToCellName(insertAt+i, headerRow)
		if err != nil {
			return goerr.Wrap(err, "bad coordinates")
		}
		if err := f.SetCellValue(sheetName, cell, title); err != nil {
			return goerr.Wrap(err, "cannot write metric header")
		}
		if err := f.SetCellStyle(sheetName, cell, cell, bold); err != nil {
			return goerr.Wrap(err, "cannot style metric header")
		}
	}

	for rowIdx := lay.headerRow + 1; rowIdx < len(rows); rowIdx++ {
		part := snap.Part(types.PartID(strings.TrimSpace(cellAt(rows, rowIdx, lay.partCol))))
		if part == nil {
			continue
		}
		sheetRow := rowIdx + 1

		metrics := []any{
			orDash(part.FirstIncoming),
			orDash(part.FirstUnmet),
			part.CoverageWH,
			part.CoverageAll,
		}
		for i, v := range metrics {
			cell, err := excelize.CoordinatesToCellName(insertAt+i, sheetRow)
			if err != nil {
				return goerr.Wrap(err, "bad coordinates")
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return goerr.Wrap(err, "cannot write metrics", goerr.V("part", part.Part))
			}
		}

		// Zero-demand cells keep the row's previous color so covered
		// stretches read as contiguous bands
		last := fills[types.StatusWarehouse]
		for _, bc := range lay.buckets {
			status, ok := part.StatusAt(types.NewBucketKey(bc.date))
			if !ok {
				continue
			}
			fill := last
			if v, _ := parseNumber(cellAt(rows, rowIdx, bc.col)); v > 0 {
				fill = fills[status]
				last = fill
			}
			cell, err := excelize.CoordinatesToCellName(shift(bc.col), sheetRow)
			if err != nil {
				return goerr.Wrap(err, "bad coordinates")
			}
			if err := f.SetCellStyle(sheetName, cell, cell, fill); err != nil {
				return goerr.Wrap(err, "cannot fill demand cell", goerr.V("cell", cell))
			}
		}
	}

	if err := fitColumns(f, sheetName); err != nil {
		return err
	}
	if err := f.SaveAs(dstPath); err != nil {
		return goerr.Wrap(err, "cannot save coverage report", goerr.V("path", dstPath))
	}
	return nil
}

// WriteCritical writes the critical parts workbook
func (w *Writer) WriteCritical(ctx context.Context, dstPath string, parts []model.CriticalPart) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheetName = "Critical_Parts"
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return goerr.Wrap(err, "cannot name sheet")
	}

	headers := []string{"Part Number", "Plant", "Requirement Date", "Unmet Qty"}
	if err := writeHeaderRow(f, sheetName, headers); err != nil {
		return err
	}

	row := 2
	for _, part := range parts {
		for _, b := range part.Buckets {
			values := []any{part.Part.String(), part.Plant.String(), b.Bucket.String(), b.Qty}
			if err := writeRow(f, sheetName, row, values); err != nil {
				return err
			}
			row++
		}
	}

	if err := fitColumns(f, sheetName); err != nil {
		return err
	}
	if err := f.SaveAs(dstPath); err != nil {
		return goerr.Wrap(err, "cannot save critical parts report", goerr.V("path", dstPath))
	}
	return nil
}

// WriteFluctuation writes the fluctuation workbook: per-part monthly
// demand per snapshot with totals and percent change, plus the status
// transition counts on a second sheet
func (w *Writer) WriteFluctuation(ctx context.Context, dstPath string, shifts []model.DemandShift, entries []model.FluctuationEntry, months []types.MonthKey, snapshots int) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheetName = "Fluctuation"
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return goerr.Wrap(err, "cannot name sheet")
	}

	headers := []string{"PLANT", "PART"}
	for i := 0; i < snapshots; i++ {
		for _, m := range months {
			headers = append(headers, fmt.Sprintf("%s_%s", m, snapshotTag(i, snapshots)))
		}
	}
	for i := 0; i < snapshots; i++ {
		headers = append(headers, "Total_"+snapshotTag(i, snapshots))
	}
	headers = append(headers, "Fluctuation_%", "First_Change")
	if err := writeHeaderRow(f, sheetName, headers); err != nil {
		return err
	}

	for i, shift := range shifts {
		values := []any{shift.Plant.String(), shift.Part.String()}
		for _, monthly := range shift.Monthly {
			for _, m := range months {
				values = append(values, monthly[m])
			}
		}
		for _, total := range shift.Totals {
			values = append(values, total)
		}
		values = append(values, shift.PercentChange, orDash(shift.FirstChange))
		if err := writeRow(f, sheetName, i+2, values); err != nil {
			return err
		}
	}

	const transSheet = "Transitions"
	if _, err := f.NewSheet(transSheet); err != nil {
		return goerr.Wrap(err, "cannot create transitions sheet")
	}
	if err := writeHeaderRow(f, transSheet, []string{"Month", "PART", "Change", "Count"}); err != nil {
		return err
	}
	for i, e := range entries {
		values := []any{e.Month.String(), e.Part.String(), e.Change.String(), e.Count}
		if err := writeRow(f, transSheet, i+2, values); err != nil {
			return err
		}
	}

	for _, s := range []string{sheetName, transSheet} {
		if err := fitColumns(f, s); err != nil {
			return err
		}
	}
	if err := f.SaveAs(dstPath); err != nil {
		return goerr.Wrap(err, "cannot save fluctuation report", goerr.V("path", dstPath))
	}
	return nil
}

// WriteMerged writes converted EDI forecasts as a schedule workbook with
// one column per week plus a grand total, frozen header row
func (w *Writer) WriteMerged(ctx context.Context, dstPath string, forecasts []model.ForecastRow, weeks []types.BucketKey) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheetName = "Merged"
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return goerr.Wrap(err, "cannot name sheet")
	}

	headers := []string{"PLANT", "PART", "Route", "Project"}
	for _, wk := range weeks {
		headers = append(headers, wk.String())
	}
	headers = append(headers, "Grand Total")
	if err := writeHeaderRow(f, sheetName, headers); err != nil {
		return err
	}

	for i, fc := range forecasts {
		values := []any{fc.Plant.String(), fc.Part.String(), fc.Route, fc.Project}
		for _, wk := range weeks {
			values = append(values, fc.Weekly[wk])
		}
		values = append(values, fc.GrandTotal())
		if err := writeRow(f, sheetName, i+2, values); err != nil {
			return err
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return goerr.Wrap(err, "cannot freeze header row")
	}
	if err := fitColumns(f, sheetName); err != nil {
		return err
	}
	if err := f.SaveAs(dstPath); err != nil {
		return goerr.Wrap(err, "cannot save merged schedule", goerr.V("path", dstPath))
	}
	return nil
}

// snapshotTag labels snapshots the way the legacy reports did
func snapshotTag(i, n int) string {
	switch {
	case i == 0:
		return "old"
	case i == n-1:
		return "latest"
	case n == 3:
		return "mid"
	default:
		return fmt.Sprintf("mid%d", i)
	}
}

func orDash(b types.BucketKey) string {
	if b == "" {
		return "-"
	}
	return b.String()
}

func writeHeaderRow(f *excelize.File, sheetName string, headers []string) error {
	bold, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return goerr.Wrap(err, "cannot create header style")
	}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return goerr.Wrap(err, "bad coordinates")
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return goerr.Wrap(err, "cannot write header", goerr.V("header", h))
		}
		if err := f.SetCellStyle(sheetName, cell, cell, bold); err != nil {
			return goerr.Wrap(err, "cannot style header", goerr.V("header", h))
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheetName string, row int, values []any) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return goerr.Wrap(err, "bad coordinates")
		}
		if err := f.SetCellValue(sheetName, cell, v); err != nil {
			return goerr.Wrap(err, "cannot write cell", goerr.V("cell", cell))
		}
	}
	return nil
}

// fitColumns sizes every column to its longest visible value, sampling at
// most the first 100 rows, with a minimum width of 8
func fitColumns(f *excelize.File, sheetName string) error {
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return goerr.Wrap(err, "cannot read sheet for sizing", goerr.V("sheet", sheetName))
	}
	limit := len(rows)
	if limit > 100 {
		limit = 100
	}

	widths := make(map[int]int)
	for r := 0; r < limit; r++ {
		for c, v := range rows[r] {
			if n := len(v); n > widths[c+1] {
				widths[c+1] = n
			}
		}
	}

	cols := make([]int, 0, len(widths))
	for c := range widths {
		cols = append(cols, c)
	}
	sort.Ints(cols)
	for _, c := range cols {
		name, err := excelize.ColumnNumberToName(c)
		if err != nil {
			return goerr.Wrap(err, "bad column number", goerr.V("col", c))
		}
		width := float64(widths[c]+2) * 1.1
		if width < 8 {
			width = 8
		}
		if err := f.SetColWidth(sheetName, name, name, width); err != nil {
			return goerr.Wrap(err, "cannot set column width", goerr.V("col", name))
		}
	}
	return nil
}
