// Package report exports validation summaries.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/kosarica/receipt-service/internal/receipt"
	"github.com/kosarica/receipt-service/internal/validation"
)

const (
	ResultsSheet = "Results"
	SummarySheet = "Summary"
)

var resultHeaders = []interface{}{
	"Item", "Code", "Receipt Price", "Online Price", "Difference", "Percent",
	"Status", "Confidence", "Method", "Notes", "URL",
}

// WriteXLSX writes a workbook with one row per validated item and a summary sheet
func WriteXLSX(w io.Writer, summary *validation.ValidationSummary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ResultsSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeResults(f, summary, header); err != nil {
		return err
	}
	if err := writeSummary(f, summary, header); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeResults(f *excelize.File, summary *validation.ValidationSummary, header int) error {
	if err := f.SetSheetRow(ResultsSheet, "A1", &resultHeaders); err != nil {
		return fmt.Errorf("failed to write results header: %w", err)
	}
	if err := f.SetCellStyle(ResultsSheet, "A1", "K1", header); err != nil {
		return err
	}

	for i, r := range summary.Results {
		online := ""
		if r.OnlinePrice != nil {
			online = receipt.FormatCents(*r.OnlinePrice)
		}
		url := ""
		if r.ProductURL != nil {
			url = *r.ProductURL
		}
		diff, percent := "", ""
		if r.Status.IsResolved() {
			diff = receipt.FormatCents(r.PriceDifference)
			percent = fmt.Sprintf("%.1f%%", r.PercentDifference)
		}

		row := []interface{}{
			r.Item.Name,
			r.Item.Code,
			receipt.FormatCents(r.Item.Price),
			online,
			diff,
			percent,
			r.Status.DisplayName(),
			r.Confidence.DisplayName(),
			r.Method.DisplayName(),
			r.Notes,
			url,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ResultsSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write result row %d: %w", i+1, err)
		}
	}

	if err := f.SetColWidth(ResultsSheet, "A", "A", 36); err != nil {
		return err
	}
	return f.SetColWidth(ResultsSheet, "J", "J", 60)
}

func writeSummary(f *excelize.File, summary *validation.ValidationSummary, header int) error {
	rows := [][]interface{}{
		{"Field", "Value"},
		{"Run ID", summary.RunID},
		{"Retailer", summary.Retailer.DisplayName()},
		{"Overall Status", summary.OverallStatus.DisplayName()},
		{"Items", len(summary.Results)},
		{"Validated", summary.ValidatedCount()},
		{"Flagged", len(summary.FlaggedItems)},
		{"Potential Overcharge", receipt.FormatCents(summary.TotalPotentialOvercharge)},
		{"Tolerance", fmt.Sprintf("%.0f%%", summary.Tolerance*100)},
	}
	for _, status := range validation.Statuses {
		rows = append(rows, []interface{}{status.DisplayName(), summary.Count(status)})
	}
	if !summary.CompletedAt.IsZero() {
		rows = append(rows, []interface{}{"Completed At", summary.CompletedAt.UTC().Format("2006-01-02 15:04:05")})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row %d: %w", i+1, err)
		}
	}
	if err := f.SetCellStyle(SummarySheet, "A1", "B1", header); err != nil {
		return err
	}
	return f.SetColWidth(SummarySheet, "A", "A", 24)
}
