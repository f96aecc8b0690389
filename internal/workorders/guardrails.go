package workorders

import (
	"fmt"
	"strings"

	"treasury-backend/internal/datasets"
)

// runGuardrails evaluates the pre-execution checks against the work order
// and its resolved datasets. Every check is always evaluated and recorded;
// blocked reports whether any blocking check failed.
func runGuardrails(wo WorkOrder, inputs []datasets.Dataset) (checks []GuardrailCheck, blocked bool) {
	checks = append(checks, checkObjective(wo))
	checks = append(checks, checkDatasetsPresent(wo, inputs))
	checks = append(checks, checkBankStatementPresent(inputs))
	checks = append(checks, checkDatasetRows(inputs))

	for _, c := range checks {
		if c.Blocking && c.Status == "failed" {
			blocked = true
		}
	}
	return checks, blocked
}

func checkObjective(wo WorkOrder) GuardrailCheck {
	c := GuardrailCheck{CheckName: "objective_present", Severity: "error", Blocking: true, Status: "passed"}
	if strings.TrimSpace(wo.Objective) == "" {
		c.Status = "failed"
		c.Reason = "work order has no objective"
	}
	return c
}

func checkDatasetsPresent(wo WorkOrder, inputs []datasets.Dataset) GuardrailCheck {
	c := GuardrailCheck{CheckName: "input_datasets_present", Severity: "error", Blocking: true, Status: "passed"}
	if len(wo.InputDatasets) == 0 {
		c.Status = "failed"
		c.Reason = "work order references no datasets"
		return c
	}
	if len(inputs) != len(wo.InputDatasets) {
		c.Status = "failed"
		c.Reason = fmt.Sprintf("resolved %d of %d referenced datasets", len(inputs), len(wo.InputDatasets))
	}
	return c
}

func checkBankStatementPresent(inputs []datasets.Dataset) GuardrailCheck {
	c := GuardrailCheck{CheckName: "bank_statement_present", Severity: "error", Blocking: true, Status: "passed"}
	for _, ds := range inputs {
		if ds.TemplateType == datasets.TemplateBankStatement {
			return c
		}
	}
	c.Status = "failed"
	c.Reason = "a cash forecast needs a BankStatement dataset for the opening balance"
	return c
}

// checkDatasetRows warns on empty open-item datasets but does not block:
// a forecast with no receivables or payables is still a valid ladder.
func checkDatasetRows(inputs []datasets.Dataset) GuardrailCheck {
	c := GuardrailCheck{CheckName: "datasets_not_empty", Severity: "warning", Blocking: false, Status: "passed"}
	var empty []string
	for _, ds := range inputs {
		if ds.RowCount == 0 {
			empty = append(empty, string(ds.TemplateType))
		}
	}
	if len(empty) > 0 {
		c.Status = "failed"
		c.Reason = "datasets with no rows: " + strings.Join(empty, ", ")
	}
	return c
}
