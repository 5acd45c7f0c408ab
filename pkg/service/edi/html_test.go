package edi_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/schedops/ediscope/pkg/domain/types"
	"github.com/schedops/ediscope/pkg/service/edi"
)

// now is a Wednesday; the schedule week starts Monday 2025-07-07
var now = time.Date(2025, 7, 9, 10, 0, 0, 0, time.UTC)

const sampleExport = `<html><body>
<p><b>From:</b> Plant Alpha</p>
<table><tr><td>Buyer's Part Number:</td><td>AB-1001</td></tr></table>
<table>
  <tr><td>Qty</td><td>Type</td><td>Date</td></tr>
  <tr><td>120</td><td>Firm</td><td><div date="250708">07/08</div></td></tr>
  <tr><td>30</td><td>Firm</td><td><div date="250710">07/10</div></td></tr>
  <tr><td>55</td><td>Plan</td><td><div date="20250721">07/21</div></td></tr>
  <tr><td>bad</td><td>Plan</td><td><div date="250728">07/28</div></td></tr>
  <tr><td>10</td><td>Plan</td><td>no marker</td></tr>
</table>
<table><tr><td>Buyer's Part Number:</td><td>CD-2002</td></tr></table>
<table>
  <tr><td>Qty</td><td>Type</td><td>Date</td></tr>
  <tr><td>7</td><td>Firm</td><td><div date="250715">07/15</div></td></tr>
</table>
</body></html>`

func TestParse(t *testing.T) {
	ctx := context.Background()
	conv := edi.NewConverter()

	t.Run("extracts parts with weekly quantities", func(t *testing.T) {
		rows, err := conv.Parse(ctx, strings.NewReader(sampleExport), now)
		gt.NoError(t, err)
		gt.A(t, rows).Length(2)

		first := rows[0]
		gt.V(t, first.Plant).Equal(types.PlantID("Plant Alpha"))
		gt.V(t, first.Part).Equal(types.PartID("AB-1001"))
		// both 07-08 and 07-10 fall into the week of Monday 07-07
		gt.V(t, first.Weekly[types.BucketKey("2025-07-07")]).Equal(150.0)
		gt.V(t, first.Weekly[types.BucketKey("2025-07-21")]).Equal(55.0)
		gt.V(t, first.GrandTotal()).Equal(205.0)

		second := rows[1]
		gt.V(t, second.Part).Equal(types.PartID("CD-2002"))
		gt.V(t, second.Weekly[types.BucketKey("2025-07-14")]).Equal(7.0)
	})

	t.Run("unparseable rows are skipped", func(t *testing.T) {
		rows, err := conv.Parse(ctx, strings.NewReader(sampleExport), now)
		gt.NoError(t, err)
		// the "bad" quantity and the row without a date marker are gone
		gt.V(t, rows[0].Weekly[types.BucketKey("2025-07-28")]).Equal(0.0)
	})

	t.Run("error when no parts found", func(t *testing.T) {
		_, err := conv.Parse(ctx, strings.NewReader("<html><body><p>empty</p></body></html>"), now)
		gt.Error(t, err)
	})
}

func TestWeeks(t *testing.T) {
	conv := edi.NewConverter()
	weeks := conv.Weeks(now)
	gt.A(t, weeks).Length(52)
	gt.V(t, weeks[0]).Equal(types.BucketKey("2025-07-07"))
	gt.V(t, weeks[1]).Equal(types.BucketKey("2025-07-14"))
	gt.V(t, weeks[51]).Equal(types.BucketKey("2026-06-29"))
}
