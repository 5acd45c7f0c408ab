package edi

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/schedops/ediscope/pkg/domain/model"
	"github.com/schedops/ediscope/pkg/domain/types"
	"golang.org/x/net/html"
)

// horizonWeeks is how many weekly columns a converted schedule carries
const horizonWeeks = 52

// dateAttrLayouts are the formats of the date markers in EDI exports
var dateAttrLayouts = []string{"060102", "20060102"}

// Converter extracts weekly part forecasts from EDI schedule HTML exports
type Converter struct{}

// NewConverter creates a new Converter
func NewConverter() *Converter {
	return &Converter{}
}

// Weeks returns the schedule's week buckets: 52 Mondays starting with the
// week of now
func (c *Converter) Weeks(now time.Time) []types.BucketKey {
	monday := mondayOf(now)
	weeks := make([]types.BucketKey, 0, horizonWeeks)
	for i := 0; i < horizonWeeks; i++ {
		weeks = append(weeks, types.NewBucketKey(monday.AddDate(0, 0, 7*i)))
	}
	return weeks
}

// Parse extracts one export's forecasts. The plant is read from the
// "From:" header; each "Buyer's Part Number:" cell starts a part whose
// forecast table is the next table carrying date markers.
func (c *Converter) Parse(ctx context.Context, r io.Reader, now time.Time) ([]model.ForecastRow, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, goerr.Wrap(model.ErrParse, "cannot parse HTML",
			goerr.V("cause", err.Error()))
	}

	plant := extractPlant(doc)

	weekSet := make(map[types.BucketKey]bool, horizonWeeks)
	for _, wk := range c.Weeks(now) {
		weekSet[wk] = true
	}

	// Document-order index lets each part cell claim the first forecast
	// table that follows it
	position := make(map[*html.Node]int)
	doc.Find("*").Each(func(i int, s *goquery.Selection) {
		position[s.Get(0)] = i
	})

	type table struct {
		pos int
		sel *goquery.Selection
	}
	var tables []table
	doc.Find("table").Each(func(_ int, s *goquery.Selection) {
		if s.Find("div[date]").Length() == 0 {
			return
		}
		tables = append(tables, table{pos: position[s.Get(0)], sel: s})
	})

	var rows []model.ForecastRow
	doc.Find("td").Each(func(_ int, s *goquery.Selection) {
		if !strings.Contains(s.Text(), "Buyer's Part Number:") {
			return
		}
		part := strings.TrimSpace(s.Next().Text())
		if part == "" {
			return
		}

		row := model.ForecastRow{
			Plant:  plant,
			Part:   types.PartID(part),
			Weekly: make(map[types.BucketKey]float64),
		}

		pos := position[s.Get(0)]
		for _, tbl := range tables {
			if tbl.pos <= pos {
				continue
			}
			collectForecast(tbl.sel, weekSet, row.Weekly)
			break
		}
		rows = append(rows, row)
	})

	if len(rows) == 0 {
		return nil, goerr.Wrap(model.ErrParse, "no part forecasts in HTML export")
	}
	ctxlog.From(ctx).Debug("Parsed EDI export",
		"plant", plant, "parts", len(rows))
	return rows, nil
}

// collectForecast sums a forecast table's quantities into weekly buckets.
// Rows without a quantity or date marker are skipped.
func collectForecast(tbl *goquery.Selection, weekSet map[types.BucketKey]bool, weekly map[types.BucketKey]float64) {
	tbl.Find("tr").Each(func(i int, tr *goquery.Selection) {
		if i == 0 {
			return // header row
		}
		cells := tr.Find("td")
		if cells.Length() < 3 {
			return
		}
		qty, err := strconv.ParseFloat(strings.TrimSpace(cells.Eq(0).Text()), 64)
		if err != nil {
			return
		}
		dateAttr, ok := cells.Eq(2).Find("div[date]").First().Attr("date")
		if !ok {
			return
		}
		var day time.Time
		for _, layout := range dateAttrLayouts {
			if t, err := time.Parse(layout, dateAttr); err == nil {
				day = t
				break
			}
		}
		if day.IsZero() {
			return
		}
		wk := types.NewBucketKey(mondayOf(day))
		if weekSet[wk] {
			weekly[wk] += qty
		}
	})
}

// extractPlant reads the plant name following the bold "From:" label
func extractPlant(doc *goquery.Document) types.PlantID {
	var plant string
	doc.Find("b").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.TrimSpace(s.Text()) != "From:" {
			return true
		}
		if node := s.Get(0); node.NextSibling != nil && node.NextSibling.Type == html.TextNode {
			plant = strings.TrimSpace(node.NextSibling.Data)
		}
		if plant == "" {
			plant = strings.TrimSpace(strings.Replace(s.Parent().Text(), "From:", "", 1))
		}
		return false
	})
	return types.PlantID(plant)
}

// mondayOf truncates to the Monday of t's week
func mondayOf(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
