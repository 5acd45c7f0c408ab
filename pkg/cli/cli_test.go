package cli_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/xuri/excelize/v2"

	"github.com/schedops/ediscope/pkg/cli"
)

// nextMonday returns the Monday of next week in the compact EDI header
// format, so the forecast lands inside the converter's horizon
func nextMonday() string {
	t := time.Now().AddDate(0, 0, 7)
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset).Format("060102")
}

func writeSchedule(t *testing.T, dir string) string {
	t.Helper()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"Plant", "PART", "Stock", "07-07-2025", "14-07-2025"},
		{"Plant A", "P100", 5.0, 10.0, 3.0},
		{"Plant A", "P200", 20.0, 4.0, 4.0},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		gt.NoError(t, err)
		gt.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	path := filepath.Join(dir, "schedule.xlsx")
	gt.NoError(t, f.SaveAs(path))
	gt.NoError(t, f.Close())
	return path
}

func TestCoverageCommand(t *testing.T) {
	dir := t.TempDir()
	src := writeSchedule(t, dir)
	out := filepath.Join(dir, "coverage.xlsx")

	err := cli.Run(context.Background(), []string{
		"ediscope", "coverage", "-o", out, src,
	})
	gt.NoError(t, err)

	f, err := excelize.OpenFile(out)
	gt.NoError(t, err).Required()
	defer f.Close()
	title, err := f.GetCellValue(f.GetSheetName(0), "D1")
	gt.NoError(t, err)
	gt.Equal(t, title, "First Yellow Date")
}

func TestCriticalCommand(t *testing.T) {
	dir := t.TempDir()
	src := writeSchedule(t, dir)
	out := filepath.Join(dir, "critical.xlsx")

	err := cli.Run(context.Background(), []string{
		"ediscope", "critical", "-o", out, "--window-weeks", "4", src,
	})
	gt.NoError(t, err)

	f, err := excelize.OpenFile(out)
	gt.NoError(t, err).Required()
	defer f.Close()
	part, err := f.GetCellValue("Critical_Parts", "A2")
	gt.NoError(t, err)
	gt.Equal(t, part, "P100")
}

func TestCriticalCommandRejectsMissingArgs(t *testing.T) {
	err := cli.Run(context.Background(), []string{"ediscope", "critical"})
	gt.Error(t, err)
}

func TestFluctuationCommand(t *testing.T) {
	dir := t.TempDir()
	week := nextMonday()
	writeExport := func(name, qty string) string {
		html := `<html><body>
<b>From:</b> Plant Alpha
<table><tr><td>Buyer's Part Number:</td><td>P100</td></tr></table>
<table>
<tr><td>Qty</td><td>Type</td><td>Week</td></tr>
<tr><td>` + qty + `</td><td>FORECAST</td><td><div date="` + week + `">wk</div></td></tr>
</table>
</body></html>`
		path := filepath.Join(dir, name)
		gt.NoError(t, os.WriteFile(path, []byte(html), 0o600))
		return path
	}
	oldPath := writeExport("old.html", "0")
	newPath := writeExport("new.html", "25")

	out := filepath.Join(dir, "fluctuation.xlsx")
	err := cli.Run(context.Background(), []string{
		"ediscope", "fluctuation", "-o", out, oldPath, newPath,
	})
	gt.NoError(t, err)

	f, err := excelize.OpenFile(out)
	gt.NoError(t, err).Required()
	defer f.Close()

	rows, err := f.GetRows("Fluctuation")
	gt.NoError(t, err)
	gt.A(t, rows).Length(2)
	gt.Equal(t, rows[0][len(rows[0])-1], "First_Change")

	// going from zero to real demand flips the week's status, so the
	// report carries the date the plan first diverged
	wk, err := time.Parse("060102", week)
	gt.NoError(t, err)
	gt.Equal(t, rows[1][len(rows[1])-1], wk.Format("2006-01-02"))
}

func TestConvertCommand(t *testing.T) {
	dir := t.TempDir()
	htmlPath := filepath.Join(dir, "export.html")
	html := `<html><body>
<b>From:</b> Plant Alpha
<table><tr><td>Buyer's Part Number:</td><td>P100</td></tr></table>
<table>
<tr><td>Qty</td><td>Type</td><td>Week</td></tr>
<tr><td>25</td><td>FORECAST</td><td><div date="` + nextMonday() + `">wk</div></td></tr>
</table>
</body></html>`
	gt.NoError(t, os.WriteFile(htmlPath, []byte(html), 0o600))

	out := filepath.Join(dir, "merged.xlsx")
	err := cli.Run(context.Background(), []string{
		"ediscope", "convert", "-o", out, htmlPath,
	})
	gt.NoError(t, err)

	f, err := excelize.OpenFile(out)
	gt.NoError(t, err).Required()
	defer f.Close()
	part, err := f.GetCellValue("Merged", "B2")
	gt.NoError(t, err)
	gt.Equal(t, part, "P100")
}
