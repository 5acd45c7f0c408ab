package sheet

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/schedops/ediscope/pkg/domain/model"
	"github.com/schedops/ediscope/pkg/domain/types"
	"github.com/xuri/excelize/v2"
)

// headerScanRows is how deep the header row search goes
const headerScanRows = 20

var (
	stockRe = regexp.MustCompile(`(?i)\bstock\b`)
	plantRe = regexp.MustCompile(`(?i)\bplant\b`)
	itRe    = regexp.MustCompile(`(?i)^IT\d+$`)
)

// Reader parses schedule workbooks into normalized schedules
type Reader struct {
	policy model.Policy
}

// NewReader creates a new Reader
func NewReader(policy model.Policy) *Reader {
	return &Reader{policy: policy}
}

// ReadSchedule opens the workbook at path and parses its schedule sheet
func (r *Reader) ReadSchedule(ctx context.Context, path string) (*model.Schedule, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, goerr.Wrap(model.ErrParse, "cannot open workbook",
			goerr.V("path", path), goerr.V("cause", err.Error()))
	}
	defer func() {
		if err := f.Close(); err != nil {
			ctxlog.From(ctx).Warn("Failed to close workbook", "error", err)
		}
	}()

	return r.ReadFile(ctx, f)
}

// ReadFile parses an already opened workbook
func (r *Reader) ReadFile(ctx context.Context, f *excelize.File) (*model.Schedule, error) {
	sheetName := pickSheet(f, r.policy.SheetName)
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, goerr.Wrap(model.ErrParse, "cannot read sheet",
			goerr.V("sheet", sheetName))
	}

	lay, err := locate(rows, r.policy)
	if err != nil {
		return nil, goerr.Wrap(err, "unusable schedule sheet",
			goerr.V("sheet", sheetName))
	}

	sched := &model.Schedule{}
	sched.Warnings.ReorderedCols = lay.reordered

	// Group data rows by part, preserving first appearance order
	type partRows struct {
		plant types.PlantID
		rows  []int
	}
	var order []types.PartID
	groups := make(map[types.PartID]*partRows)
	for i := lay.headerRow + 1; i < len(rows); i++ {
		id := types.PartID(strings.TrimSpace(cellAt(rows, i, lay.partCol)))
		if id == "" {
			sched.Warnings.DroppedRows++
			continue
		}
		g, ok := groups[id]
		if !ok {
			g = &partRows{}
			if lay.plantCol > 0 {
				g.plant = types.PlantID(strings.TrimSpace(cellAt(rows, i, lay.plantCol)))
			}
			groups[id] = g
			order = append(order, id)
		}
		g.rows = append(g.rows, i)
	}

	numAt := func(row, col int) float64 {
		v, bad := parseNumber(cellAt(rows, row, col))
		if bad {
			sched.Warnings.DefaultedCells++
		}
		return v
	}

	for _, id := range order {
		g := groups[id]
		part := &model.PartSchedule{Part: id, Plant: g.plant}

		// The stock column is a single snapshot replicated per row; take
		// the maximum and attach it to the first bucket so the running
		// balance does not multi-count it
		var stock float64
		for _, row := range g.rows {
			if v := numAt(row, lay.stockCol); v > stock {
				stock = v
			}
		}

		for i, bc := range lay.buckets {
			rec := model.ScheduleRecord{
				Part:   id,
				Plant:  g.plant,
				Bucket: types.NewBucketKey(bc.date),
			}
			if i == 0 {
				rec.StockAvailable = stock
			}
			for _, row := range g.rows {
				rec.Demand += numAt(row, bc.col)
			}
			part.Records = append(part.Records, rec)
		}

		for _, it := range lay.itCols {
			var qty float64
			for _, row := range g.rows {
				if v := numAt(row, it.col); v > qty {
					qty = v
				}
			}
			if qty <= 0 {
				continue
			}
			if i := arrivalBucket(lay.buckets, it.date); i >= 0 {
				part.Records[i].Incoming += qty
			}
		}

		sched.Parts = append(sched.Parts, part)
	}

	if len(sched.Parts) == 0 {
		return nil, goerr.Wrap(model.ErrParse, "no part rows in sheet",
			goerr.V("droppedRows", sched.Warnings.DroppedRows))
	}
	if w := sched.Warnings; w.Total() > 0 {
		ctxlog.From(ctx).Warn("Schedule parsed with warnings",
			"droppedRows", w.DroppedRows,
			"defaultedCells", w.DefaultedCells,
			"reorderedCols", w.ReorderedCols,
		)
	}
	return sched, nil
}

// bucketCol is a demand column and its parsed date
type bucketCol struct {
	col  int // 1-based sheet column
	date time.Time
}

// itCol is an incoming-transfer column and its arrival date
type itCol struct {
	col  int
	date time.Time
}

// layout describes where the schedule's columns live on the sheet. All
// column numbers are 1-based, headerRow is a 0-based row index.
type layout struct {
	headerRow int
	partCol   int
	plantCol  int
	stockCol  int
	itCols    []itCol
	buckets   []bucketCol // chronological order
	reordered int
}

// locate finds the header row by its Stock column and classifies every
// header: part, plant, incoming-transfer (ITnn) and date-keyed demand
// columns. Bucket columns are sorted by parsed date rather than trusting
// the source column order.
func locate(rows [][]string, policy model.Policy) (*layout, error) {
	partRe, err := regexp.Compile("(?i)" + policy.PartHeader)
	if err != nil {
		return nil, goerr.Wrap(model.ErrBadConfig, "invalid part column header pattern",
			goerr.V("pattern", policy.PartHeader))
	}

	lay := &layout{headerRow: -1}
	limit := len(rows)
	if limit > headerScanRows {
		limit = headerScanRows
	}
	for i := 0; i < limit; i++ {
		for _, cell := range rows[i] {
			if stockRe.MatchString(cell) {
				lay.headerRow = i
				break
			}
		}
		if lay.headerRow >= 0 {
			break
		}
	}
	if lay.headerRow < 0 {
		return nil, goerr.Wrap(model.ErrParse, "header row with Stock column not found")
	}

	headers := rows[lay.headerRow]
	for i, h := range headers {
		col := i + 1
		text := strings.TrimSpace(h)
		switch {
		case text == "":
		case stockRe.MatchString(text) && lay.stockCol == 0:
			lay.stockCol = col
		case itRe.MatchString(text):
			date, ok := parseDate(text, policy.DateLayouts)
			if !ok && lay.headerRow > 0 {
				date, _ = parseDate(cellAt(rows, lay.headerRow-1, col), policy.DateLayouts)
			}
			lay.itCols = append(lay.itCols, itCol{col: col, date: date})
		case partRe.MatchString(text) && lay.partCol == 0:
			lay.partCol = col
		case plantRe.MatchString(text) && lay.plantCol == 0:
			lay.plantCol = col
		default:
			if date, ok := parseDate(text, policy.DateLayouts); ok {
				lay.buckets = append(lay.buckets, bucketCol{col: col, date: date})
			}
		}
	}

	if lay.partCol == 0 {
		return nil, goerr.Wrap(model.ErrParse, "part column not found",
			goerr.V("header", policy.PartHeader))
	}
	if len(lay.buckets) == 0 {
		return nil, goerr.Wrap(model.ErrParse, "no date-keyed demand columns found")
	}

	sorted := make([]bucketCol, len(lay.buckets))
	copy(sorted, lay.buckets)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].date.Before(sorted[j].date) })
	for i := range sorted {
		if sorted[i].col != lay.buckets[i].col {
			lay.reordered++
		}
	}
	lay.buckets = sorted
	return lay, nil
}

// pickSheet prefers the exact configured name, then a case-insensitive
// substring match, then the first sheet
func pickSheet(f *excelize.File, name string) string {
	list := f.GetSheetList()
	if len(list) == 0 {
		return name
	}
	for _, s := range list {
		if s == name {
			return s
		}
	}
	lower := strings.ToLower(name)
	for _, s := range list {
		if strings.Contains(strings.ToLower(s), lower) {
			return s
		}
	}
	return list[0]
}

// arrivalBucket returns the index of the first bucket at or after the
// arrival date, or -1 when the arrival is past the horizon. A zero arrival
// date means the quantity is already available.
func arrivalBucket(buckets []bucketCol, arrival time.Time) int {
	for i, b := range buckets {
		if !b.date.Before(arrival) {
			return i
		}
	}
	return -1
}

// cellAt reads a cell by 1-based column, tolerating ragged rows
func cellAt(rows [][]string, row, col int) string {
	if row < 0 || row >= len(rows) {
		return ""
	}
	if col < 1 || col > len(rows[row]) {
		return ""
	}
	return rows[row][col-1]
}

// parseNumber reads a quantity cell. Blank cells are zero; non-numeric
// content and negative quantities also read as zero but are flagged so
// the caller can count them. Quantities must stay non-negative, otherwise
// a negative demand cell would inflate the classifier's running balances.
// Comma thousands separators are tolerated.
func parseNumber(s string) (v float64, defaulted bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	cleaned := strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, true
	}
	if f < 0 {
		return 0, true
	}
	return f, false
}

// parseDate tries the configured layouts, then an Excel serial number
func parseDate(s string, layouts []string) (time.Time, bool) {
	s = strings.Trim(strings.TrimSpace(s), `"'`)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 59 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
