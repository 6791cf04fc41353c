// Package export renders forecast results as downloadable workbooks.
package export

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/revenue-intel/internal/forecast"
)

// ForecastXLSX writes a two-sheet workbook: a Summary sheet with the
// aggregate metrics and stage breakdown, and a Deals sheet with one row per
// scored deal.
func ForecastXLSX(w io.Writer, res *forecast.Result) error {
	f := xlsx.NewFile()

	if err := summarySheet(f, res); err != nil {
		return err
	}
	if err := dealsSheet(f, res); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write workbook")
	}
	return nil
}

func summarySheet(f *xlsx.File, res *forecast.Result) error {
	sheet, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "export: add summary sheet")
	}

	kv := func(key string, value any) {
		row := sheet.AddRow()
		row.AddCell().SetString(key)
		switch v := value.(type) {
		case string:
			row.AddCell().SetString(v)
		case int:
			row.AddCell().SetInt(v)
		case float64:
			row.AddCell().SetFloat(v)
		}
	}

	s := res.Summary
	kv("Period", res.Period)
	kv("Start", res.StartDate.Format("2006-01-02"))
	kv("End", res.EndDate.Format("2006-01-02"))
	kv("Total Deals", s.TotalDeals)
	kv("Total Pipeline", s.TotalPipeline)
	kv("Weighted Pipeline", s.WeightedPipeline)
	kv("Closed Won", s.ClosedWon)
	kv("Forecast (Pessimistic)", s.Forecast.Pessimistic)
	kv("Forecast (Likely)", s.Forecast.Likely)
	kv("Forecast (Optimistic)", s.Forecast.Optimistic)
	kv("High Confidence Deals", s.Confidence.High)
	kv("Medium Confidence Deals", s.Confidence.Medium)
	kv("Low Confidence Deals", s.Confidence.Low)

	sheet.AddRow()
	header := sheet.AddRow()
	for _, h := range []string{"Stage", "Count", "Value", "Weighted Value"} {
		header.AddCell().SetString(h)
	}

	stages := make([]string, 0, len(res.ByStage))
	for stage := range res.ByStage {
		stages = append(stages, stage)
	}
	sort.Strings(stages)
	for _, stage := range stages {
		b := res.ByStage[stage]
		row := sheet.AddRow()
		row.AddCell().SetString(stage)
		row.AddCell().SetInt(b.Count)
		row.AddCell().SetFloat(b.Value)
		row.AddCell().SetFloat(b.WeightedValue)
	}
	return nil
}

func dealsSheet(f *xlsx.File, res *forecast.Result) error {
	sheet, err := f.AddSheet("Deals")
	if err != nil {
		return eris.Wrap(err, "export: add deals sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"Name", "Stage", "Amount", "Owner", "Close Date", "Score", "Confidence", "Factors"} {
		header.AddCell().SetString(h)
	}

	for _, d := range res.Deals {
		row := sheet.AddRow()
		row.AddCell().SetString(d.Name)
		row.AddCell().SetString(d.StageOrUnknown())
		row.AddCell().SetFloat(d.Amount)
		row.AddCell().SetString(ownerLabel(d))
		row.AddCell().SetString(closeDateLabel(d))
		row.AddCell().SetInt(d.Score)
		row.AddCell().SetString(string(d.Confidence))
		row.AddCell().SetString(factorsLabel(d))
	}
	return nil
}

func ownerLabel(d forecast.ScoredDeal) string {
	if d.OwnerID == nil || *d.OwnerID == "" {
		return forecast.OwnerUnassigned
	}
	return *d.OwnerID
}

func closeDateLabel(d forecast.ScoredDeal) string {
	if eff := d.EffectiveCloseDate(); eff != nil {
		return eff.In(time.UTC).Format("2006-01-02")
	}
	return ""
}

func factorsLabel(d forecast.ScoredDeal) string {
	out := ""
	for i, f := range d.Factors {
		if i > 0 {
			out += "; "
		}
		out += fmt.Sprintf("%s %+d", f.Factor, f.Impact)
	}
	return out
}
