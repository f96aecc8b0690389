package datasets

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Date layouts accepted in uploads, tried in order. Excel serials are handled
// separately since excelize returns them as plain numbers for unformatted cells.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"02/01/2006",
	"2006/01/02",
	"02-Jan-2006",
	"2-Jan-2006",
	"Jan 2, 2006",
	"2006-01-02 15:04:05",
	"01/02/2006 15:04",
}

// Normalize parses an uploaded xlsx or csv file and coerces every cell into
// the typed schema of the template. It either returns a full set of typed
// records or a *ValidationError listing every defect; no partial output.
func Normalize(data []byte, fileName string, templateType TemplateType) (Records, error) {
	var records Records

	t, err := parseTable(data, fileName)
	if err != nil {
		return records, err
	}

	cols, missing := t.columnIndex(templateType.Columns())
	if len(missing) > 0 {
		return records, &ValidationError{TemplateType: templateType, MissingColumns: missing}
	}

	verr := &ValidationError{TemplateType: templateType}
	for i, row := range t.rows {
		// Data rows are 1-based after the header row.
		rowNum := i + 2
		switch templateType {
		case TemplateBankStatement:
			rec, errs := normalizeBankRow(row, cols, rowNum)
			if len(errs) == 0 {
				records.BankStatement = append(records.BankStatement, rec)
			}
			verr.RowErrors = append(verr.RowErrors, errs...)
		case TemplateTrialBalance:
			rec, errs := normalizeTrialBalanceRow(row, cols, rowNum)
			if len(errs) == 0 {
				records.TrialBalance = append(records.TrialBalance, rec)
			}
			verr.RowErrors = append(verr.RowErrors, errs...)
		case TemplateAROpenItems:
			rec, errs := normalizeARRow(row, cols, rowNum)
			if len(errs) == 0 {
				records.AROpenItems = append(records.AROpenItems, rec)
			}
			verr.RowErrors = append(verr.RowErrors, errs...)
		case TemplateAPOpenItems:
			rec, errs := normalizeAPRow(row, cols, rowNum)
			if len(errs) == 0 {
				records.APOpenItems = append(records.APOpenItems, rec)
			}
			verr.RowErrors = append(verr.RowErrors, errs...)
		}
	}

	if len(verr.RowErrors) > 0 {
		return Records{}, verr
	}
	return records, nil
}

func normalizeBankRow(row []string, cols map[string]int, rowNum int) (BankStatementRow, []RowError) {
	var rec BankStatementRow
	var errs []RowError

	rec.Date = parseDateCell(row[cols["Date"]], "Date", rowNum, true, &errs)
	rec.Description = strings.TrimSpace(row[cols["Description"]])
	rec.Debit = parseMoneyCell(row[cols["Debit"]], "Debit", rowNum, false, &errs)
	rec.Credit = parseMoneyCell(row[cols["Credit"]], "Credit", rowNum, false, &errs)
	rec.Balance = parseMoneyCell(row[cols["Balance"]], "Balance", rowNum, true, &errs)
	return rec, errs
}

func normalizeTrialBalanceRow(row []string, cols map[string]int, rowNum int) (TrialBalanceRow, []RowError) {
	var rec TrialBalanceRow
	var errs []RowError

	rec.AccountCode = strings.TrimSpace(row[cols["Account_Code"]])
	if rec.AccountCode == "" {
		errs = append(errs, RowError{Row: rowNum, Column: "Account_Code", Message: "value is required"})
	}
	rec.AccountName = strings.TrimSpace(row[cols["Account_Name"]])
	rec.Debit = parseMoneyCell(row[cols["Debit"]], "Debit", rowNum, false, &errs)
	rec.Credit = parseMoneyCell(row[cols["Credit"]], "Credit", rowNum, false, &errs)
	rec.Balance = parseMoneyCell(row[cols["Balance"]], "Balance", rowNum, true, &errs)
	return rec, errs
}

func normalizeARRow(row []string, cols map[string]int, rowNum int) (ARItem, []RowError) {
	var rec ARItem
	var errs []RowError

	rec.InvoiceNumber = strings.TrimSpace(row[cols["Invoice_Number"]])
	if rec.InvoiceNumber == "" {
		errs = append(errs, RowError{Row: rowNum, Column: "Invoice_Number", Message: "value is required"})
	}
	rec.CustomerName = strings.TrimSpace(row[cols["Customer_Name"]])
	rec.InvoiceDate = parseDateCell(row[cols["Invoice_Date"]], "Invoice_Date", rowNum, false, &errs)
	rec.DueDate = parseDateCell(row[cols["Due_Date"]], "Due_Date", rowNum, true, &errs)
	rec.Amount = parseMoneyCell(row[cols["Amount"]], "Amount", rowNum, true, &errs)
	rec.DaysOutstanding = parseIntCell(row[cols["Days_Outstanding"]], "Days_Outstanding", rowNum, &errs)
	rec.Status = strings.TrimSpace(row[cols["Status"]])
	return rec, errs
}

func normalizeAPRow(row []string, cols map[string]int, rowNum int) (APItem, []RowError) {
	var rec APItem
	var errs []RowError

	rec.InvoiceNumber = strings.TrimSpace(row[cols["Invoice_Number"]])
	if rec.InvoiceNumber == "" {
		errs = append(errs, RowError{Row: rowNum, Column: "Invoice_Number", Message: "value is required"})
	}
	rec.VendorName = strings.TrimSpace(row[cols["Vendor_Name"]])
	rec.InvoiceDate = parseDateCell(row[cols["Invoice_Date"]], "Invoice_Date", rowNum, false, &errs)
	rec.DueDate = parseDateCell(row[cols["Due_Date"]], "Due_Date", rowNum, true, &errs)
	rec.Amount = parseMoneyCell(row[cols["Amount"]], "Amount", rowNum, true, &errs)
	rec.DaysUntilDue = parseIntCell(row[cols["Days_Until_Due"]], "Days_Until_Due", rowNum, &errs)
	rec.PaymentTerms = strings.TrimSpace(row[cols["Payment_Terms"]])
	return rec, errs
}

func parseDateCell(raw, column string, rowNum int, required bool, errs *[]RowError) time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		if required {
			*errs = append(*errs, RowError{Row: rowNum, Column: column, Message: "date is required"})
		}
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d
		}
	}
	// Excel date serial (days since 1899-12-30).
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		epoch := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
		return epoch.AddDate(0, 0, int(serial))
	}
	*errs = append(*errs, RowError{Row: rowNum, Column: column, Message: fmt.Sprintf("unrecognized date %q", s)})
	return time.Time{}
}

// parseMoneyCell coerces a monetary cell. Blank optional cells become zero;
// blank required cells and unparsable values are reported as row errors.
func parseMoneyCell(raw, column string, rowNum int, required bool, errs *[]RowError) decimal.Decimal {
	s := cleanMoney(raw)
	if s == "" {
		if required {
			*errs = append(*errs, RowError{Row: rowNum, Column: column, Message: "amount is required"})
		}
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		*errs = append(*errs, RowError{Row: rowNum, Column: column, Message: fmt.Sprintf("not a number: %q", strings.TrimSpace(raw))})
		return decimal.Zero
	}
	return d
}

func parseIntCell(raw, column string, rowNum int, errs *[]RowError) int {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	// Tolerate "30.0" style cells from spreadsheets.
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	*errs = append(*errs, RowError{Row: rowNum, Column: column, Message: fmt.Sprintf("not an integer: %q", s)})
	return 0
}

// cleanMoney strips currency formatting: "$1,234.50 " -> "1234.50",
// "(500.00)" -> "-500.00".
func cleanMoney(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + s[1:len(s)-1]
	}
	return s
}
