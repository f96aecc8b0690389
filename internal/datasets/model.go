package datasets

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TemplateType identifies the fixed column schema of an uploaded file.
type TemplateType string

const (
	TemplateBankStatement TemplateType = "BankStatement"
	TemplateTrialBalance  TemplateType = "TrialBalance"
	TemplateAROpenItems   TemplateType = "AR_OpenItems"
	TemplateAPOpenItems   TemplateType = "AP_OpenItems"
)

// ParseTemplateType validates a raw template type string.
func ParseTemplateType(raw string) (TemplateType, error) {
	switch TemplateType(raw) {
	case TemplateBankStatement, TemplateTrialBalance, TemplateAROpenItems, TemplateAPOpenItems:
		return TemplateType(raw), nil
	default:
		return "", fmt.Errorf("unknown template type %q", raw)
	}
}

// Columns returns the required column headers for the template.
func (t TemplateType) Columns() []string {
	switch t {
	case TemplateBankStatement:
		return []string{"Date", "Description", "Debit", "Credit", "Balance"}
	case TemplateTrialBalance:
		return []string{"Account_Code", "Account_Name", "Debit", "Credit", "Balance"}
	case TemplateAROpenItems:
		return []string{"Invoice_Number", "Customer_Name", "Invoice_Date", "Due_Date", "Amount", "Days_Outstanding", "Status"}
	case TemplateAPOpenItems:
		return []string{"Invoice_Number", "Vendor_Name", "Invoice_Date", "Due_Date", "Amount", "Days_Until_Due", "Payment_Terms"}
	default:
		return nil
	}
}

// BankStatementRow is one bank statement transaction line.
type BankStatementRow struct {
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Balance     decimal.Decimal `json:"balance"`
}

// TrialBalanceRow is one trial balance account line.
type TrialBalanceRow struct {
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Balance     decimal.Decimal `json:"balance"`
}

// ARItem is one open accounts receivable invoice.
type ARItem struct {
	InvoiceNumber   string          `json:"invoice_number"`
	CustomerName    string          `json:"customer_name"`
	InvoiceDate     time.Time       `json:"invoice_date"`
	DueDate         time.Time       `json:"due_date"`
	Amount          decimal.Decimal `json:"amount"`
	DaysOutstanding int             `json:"days_outstanding"`
	Status          string          `json:"status"`
}

// APItem is one open accounts payable invoice.
type APItem struct {
	InvoiceNumber string          `json:"invoice_number"`
	VendorName    string          `json:"vendor_name"`
	InvoiceDate   time.Time       `json:"invoice_date"`
	DueDate       time.Time       `json:"due_date"`
	Amount        decimal.Decimal `json:"amount"`
	DaysUntilDue  int             `json:"days_until_due"`
	PaymentTerms  string          `json:"payment_terms"`
}

// Records holds the typed rows of a dataset. Exactly one slice is populated,
// selected by the dataset's template type.
type Records struct {
	BankStatement []BankStatementRow `json:"bank_statement,omitempty"`
	TrialBalance  []TrialBalanceRow  `json:"trial_balance,omitempty"`
	AROpenItems   []ARItem           `json:"ar_open_items,omitempty"`
	APOpenItems   []APItem           `json:"ap_open_items,omitempty"`
}

// Len returns the number of rows regardless of template type.
func (r Records) Len() int {
	return len(r.BankStatement) + len(r.TrialBalance) + len(r.AROpenItems) + len(r.APOpenItems)
}

// Dataset is the immutable, versioned record of one normalized upload.
type Dataset struct {
	ID             string       `json:"id"`
	TenantID       string       `json:"tenantId"`
	TemplateType   TemplateType `json:"templateType"`
	SourceFileName string       `json:"sourceFileName"`
	StorageKey     string       `json:"storageKey"`
	RowsKey        string       `json:"rowsKey"`
	DataHash       string       `json:"dataHash"`
	RowCount       int          `json:"rowCount"`
	ColumnCount    int          `json:"columnCount"`
	Version        int          `json:"version"`
	UploadedAt     time.Time    `json:"uploadedAt"`
	CreatedAt      time.Time    `json:"createdAt"`
}
