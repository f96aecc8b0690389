// Package render produces the formatted Excel deliverables attached to
// completed work orders.
package render

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"treasury-backend/internal/forecast"
)

// ErrInvalidResult is returned when the forecast passed in is not renderable.
var ErrInvalidResult = errors.New("forecast result is not renderable")

const sheetName = "Cash Ladder"

// Metadata is rendered into the workbook header rows.
type Metadata struct {
	TenantName  string
	Objective   string
	GeneratedAt time.Time
}

// CashLadder renders the weekly forecast into a formatted xlsx workbook and
// returns the file bytes. The output is a function of the inputs only, so the
// same forecast renders to the same workbook. The result must carry exactly
// expectedWeeks weeks, numbered 1..n.
func CashLadder(result forecast.Result, meta Metadata, minBalance decimal.Decimal, expectedWeeks int) ([]byte, error) {
	if expectedWeeks <= 0 {
		expectedWeeks = forecast.DefaultWeeks
	}
	if len(result.Weeks) != expectedWeeks {
		return nil, fmt.Errorf("%w: got %d weeks, want %d", ErrInvalidResult, len(result.Weeks), expectedWeeks)
	}
	for i, w := range result.Weeks {
		if w.WeekNumber != i+1 {
			return nil, fmt.Errorf("%w: week %d out of order at position %d", ErrInvalidResult, w.WeekNumber, i)
		}
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, err
	}

	styles, err := buildStyles(f)
	if err != nil {
		return nil, err
	}

	if err := f.SetColWidth(sheetName, "A", "A", 10); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheetName, "B", "F", 20); err != nil {
		return nil, err
	}

	// Title and metadata.
	if err := f.MergeCell(sheetName, "A1", "F1"); err != nil {
		return nil, err
	}
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%d-Week Cash Flow Forecast", len(result.Weeks)))
	f.SetCellStyle(sheetName, "A1", "F1", styles.title)

	f.SetCellValue(sheetName, "A2", fmt.Sprintf("%s | Generated %s | %s",
		meta.TenantName, meta.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"), meta.Objective))

	f.SetCellValue(sheetName, "A4", "Current Cash Position:")
	f.SetCellValue(sheetName, "B4", decimalCell(result.CurrentCash))
	f.SetCellStyle(sheetName, "B4", "B4", styles.currencyBold)

	// Ladder header.
	headers := []string{"Week #", "Week Ending", "Beginning Balance", "Cash Receipts", "Cash Disbursements", "Ending Balance"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 6)
		f.SetCellValue(sheetName, cell, h)
	}
	f.SetCellStyle(sheetName, "A6", "F6", styles.header)

	// Ladder rows.
	const dataStart = 7
	dataEnd := dataStart + len(result.Weeks) - 1
	for i, w := range result.Weeks {
		row := dataStart + i
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), w.WeekNumber)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), w.WeekEnding.Format("2006-01-02"))
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), decimalCell(w.BeginningBalance))
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), decimalCell(w.CashReceipts))
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), decimalCell(w.CashDisbursements))
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), decimalCell(w.EndingBalance))
		f.SetCellStyle(sheetName, fmt.Sprintf("C%d", row), fmt.Sprintf("F%d", row), styles.currency)
	}

	// Totals over the receipts and disbursements columns.
	totalsRow := dataEnd + 2
	f.SetCellValue(sheetName, fmt.Sprintf("B%d", totalsRow), "Total")
	if err := f.SetCellFormula(sheetName, fmt.Sprintf("D%d", totalsRow),
		fmt.Sprintf("SUM(D%d:D%d)", dataStart, dataEnd)); err != nil {
		return nil, err
	}
	if err := f.SetCellFormula(sheetName, fmt.Sprintf("E%d", totalsRow),
		fmt.Sprintf("SUM(E%d:E%d)", dataStart, dataEnd)); err != nil {
		return nil, err
	}
	f.SetCellStyle(sheetName, fmt.Sprintf("B%d", totalsRow), fmt.Sprintf("F%d", totalsRow), styles.currencyBold)

	// Highlight ending balances below the liquidity threshold.
	endingRange := fmt.Sprintf("F%d:F%d", dataStart, dataEnd)
	if err := f.SetConditionalFormat(sheetName, endingRange, []excelize.ConditionalFormatOptions{
		{
			Type:     "cell",
			Criteria: "<",
			Value:    minBalance.String(),
			Format:   &styles.breach,
		},
	}); err != nil {
		return nil, err
	}

	row := totalsRow + 2
	row = writeSection(f, row, "Liquidity Warnings", result.LiquidityWarnings, styles.warning)
	row = writeSection(f, row, "Recommendations", result.Recommendations, styles.recommendation)

	// Key metrics footer.
	minWeek := result.Weeks[0]
	for _, w := range result.Weeks[1:] {
		if w.EndingBalance.LessThan(minWeek.EndingBalance) {
			minWeek = w
		}
	}
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), "Key Metrics")
	f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), styles.metrics)
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", row+1),
		fmt.Sprintf("Lowest projected balance: %s in week %d (ending %s)",
			minWeek.EndingBalance.StringFixed(2), minWeek.WeekNumber, minWeek.WeekEnding.Format("2006-01-02")))
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", row+2),
		fmt.Sprintf("Minimum cash balance threshold: %s", minBalance.StringFixed(2)))

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeSection(f *excelize.File, row int, heading string, lines []string, style int) int {
	if len(lines) == 0 {
		return row
	}
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), heading)
	f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), style)
	row++
	for _, line := range lines {
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), line)
		row++
	}
	return row + 1
}

type workbookStyles struct {
	title          int
	header         int
	currency       int
	currencyBold   int
	breach         int
	warning        int
	recommendation int
	metrics        int
}

func buildStyles(f *excelize.File) (workbookStyles, error) {
	var s workbookStyles
	var err error

	currencyFmt := "$#,##0.00"

	s.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"1F4E78"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return s, err
	}

	s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return s, err
	}

	s.currency, err = f.NewStyle(&excelize.Style{CustomNumFmt: &currencyFmt})
	if err != nil {
		return s, err
	}

	s.currencyBold, err = f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Bold: true},
		CustomNumFmt: &currencyFmt,
	})
	if err != nil {
		return s, err
	}

	s.breach, err = f.NewConditionalStyle(&excelize.Style{
		Font: &excelize.Font{Color: "9C0006"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFC7CE"}},
	})
	if err != nil {
		return s, err
	}

	s.warning, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Color: "C00000"}})
	if err != nil {
		return s, err
	}

	s.recommendation, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Color: "375623"}})
	if err != nil {
		return s, err
	}

	s.metrics, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Color: "44546A"}})
	return s, err
}

// decimalCell converts to float64 for cell storage; display precision comes
// from the currency number format.
func decimalCell(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
