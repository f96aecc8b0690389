// Package forecast projects a 13-week cash position from normalized
// treasury datasets. The computation is a pure function of its inputs so
// identical datasets always produce an identical ladder.
package forecast

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"treasury-backend/internal/datasets"
)

// AgentName identifies this agent in work order execution logs and outputs.
const AgentName = "cash_commander"

// DefaultWeeks is the standard forecast horizon.
const DefaultWeeks = 13

// WeekForecast is one row of the cash ladder.
type WeekForecast struct {
	WeekNumber        int             `json:"week_number"`
	WeekEnding        time.Time       `json:"week_ending"`
	BeginningBalance  decimal.Decimal `json:"beginning_balance"`
	CashReceipts      decimal.Decimal `json:"cash_receipts"`
	CashDisbursements decimal.Decimal `json:"cash_disbursements"`
	EndingBalance     decimal.Decimal `json:"ending_balance"`
}

// Stats records how the open items were distributed across the horizon.
type Stats struct {
	ReceivablesBucketed    int `json:"receivables_bucketed"`
	ReceivablesBeyondRange int `json:"receivables_beyond_range"`
	PayablesBucketed       int `json:"payables_bucketed"`
	PayablesBeyondRange    int `json:"payables_beyond_range"`
}

// Result is the full forecast output.
type Result struct {
	CurrentCash       decimal.Decimal `json:"current_cash"`
	Weeks             []WeekForecast  `json:"weeks"`
	LiquidityWarnings []string        `json:"liquidity_warnings"`
	Recommendations   []string        `json:"recommendations"`
	Stats             Stats           `json:"stats"`
}

// Input is everything the agent consumes.
type Input struct {
	// CurrentCash is the closing balance of the most recent bank statement
	// row. CurrentCashKnown distinguishes a legitimate zero balance from a
	// missing statement.
	CurrentCash      decimal.Decimal
	CurrentCashKnown bool
	// AnchorDate is the bank statement close date; week 1 starts the day
	// after it.
	AnchorDate  time.Time
	Receivables []datasets.ARItem
	Payables    []datasets.APItem
}

// Options tune the projection.
type Options struct {
	Weeks          int
	MinCashBalance decimal.Decimal
}

// AgentError marks a failure the agent itself diagnosed, as opposed to an
// infrastructure error.
type AgentError struct {
	Reason string
}

func (e *AgentError) Error() string {
	return "forecast agent: " + e.Reason
}

// Compute builds the weekly cash ladder. Receivables land in the week their
// due date falls into; items already past due land in week 1; items due
// beyond the horizon are excluded and counted in Stats.
func Compute(in Input, opts Options) (Result, error) {
	weeks := opts.Weeks
	if weeks <= 0 {
		weeks = DefaultWeeks
	}

	if !in.CurrentCashKnown {
		return Result{}, &AgentError{Reason: "no closing balance available from bank statement"}
	}
	if in.CurrentCash.IsNegative() {
		return Result{}, &AgentError{Reason: fmt.Sprintf("closing balance %s is negative", formatMoney(in.CurrentCash))}
	}
	if in.AnchorDate.IsZero() {
		return Result{}, &AgentError{Reason: "bank statement has no usable close date"}
	}

	result := Result{
		CurrentCash:       in.CurrentCash,
		Weeks:             make([]WeekForecast, weeks),
		LiquidityWarnings: []string{},
		Recommendations:   []string{},
	}

	receipts := make([]decimal.Decimal, weeks+1)
	disbursements := make([]decimal.Decimal, weeks+1)

	for _, item := range in.Receivables {
		w := bucketWeek(in.AnchorDate, item.DueDate, weeks)
		if w == 0 {
			result.Stats.ReceivablesBeyondRange++
			continue
		}
		receipts[w] = receipts[w].Add(item.Amount)
		result.Stats.ReceivablesBucketed++
	}
	for _, item := range in.Payables {
		w := bucketWeek(in.AnchorDate, item.DueDate, weeks)
		if w == 0 {
			result.Stats.PayablesBeyondRange++
			continue
		}
		disbursements[w] = disbursements[w].Add(item.Amount)
		result.Stats.PayablesBucketed++
	}

	balance := in.CurrentCash
	for n := 1; n <= weeks; n++ {
		wf := WeekForecast{
			WeekNumber:        n,
			WeekEnding:        in.AnchorDate.AddDate(0, 0, 7*n),
			BeginningBalance:  balance,
			CashReceipts:      receipts[n],
			CashDisbursements: disbursements[n],
		}
		wf.EndingBalance = wf.BeginningBalance.Add(wf.CashReceipts).Sub(wf.CashDisbursements)
		balance = wf.EndingBalance
		result.Weeks[n-1] = wf

		if wf.EndingBalance.LessThan(opts.MinCashBalance) {
			result.LiquidityWarnings = append(result.LiquidityWarnings, fmt.Sprintf(
				"Week %d (ending %s): projected ending balance %s falls below minimum cash balance %s",
				n,
				wf.WeekEnding.Format("2006-01-02"),
				formatMoney(wf.EndingBalance),
				formatMoney(opts.MinCashBalance),
			))
		}
	}

	if len(result.LiquidityWarnings) > 0 {
		result.Recommendations = append(result.Recommendations,
			"Accelerate collections on the largest open receivables",
			"Review payment timing with key vendors to smooth disbursements",
			"Evaluate drawing on the revolving credit facility to cover the shortfall weeks",
		)
	}

	return result, nil
}

// bucketWeek returns which week (1-based) a due date belongs to, or 0 when
// it falls beyond the horizon or is unset. Past-due items collapse into
// week 1 since the cash movement is expected immediately.
func bucketWeek(anchor, due time.Time, weeks int) int {
	if due.IsZero() {
		return 0
	}
	days := int(due.Sub(anchor).Hours() / 24)
	if days <= 0 {
		return 1
	}
	w := (days + 6) / 7
	if w > weeks {
		return 0
	}
	return w
}

// formatMoney renders "$1,234,567.89" with thousands separators.
func formatMoney(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart := s[:len(s)-3]
	fracPart := s[len(s)-3:]

	var b strings.Builder
	for i, ch := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(ch)
	}

	out := "$" + b.String() + fracPart
	if neg {
		out = "-" + out
	}
	return out
}
