package datasets

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// RowError describes one cell that failed type coercion.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Message string `json:"message"`
}

// ValidationError aggregates everything wrong with an upload. A non-empty
// MissingColumns means the header check failed before any row was inspected;
// otherwise RowErrors lists every offending row. No partial dataset is ever
// produced alongside a ValidationError.
type ValidationError struct {
	TemplateType   TemplateType `json:"templateType"`
	MissingColumns []string     `json:"missingColumns,omitempty"`
	RowErrors      []RowError   `json:"rowErrors,omitempty"`
}

func (e *ValidationError) Error() string {
	if len(e.MissingColumns) > 0 {
		return fmt.Sprintf("%s: missing required column(s): %s", e.TemplateType, strings.Join(e.MissingColumns, ", "))
	}
	return fmt.Sprintf("%s: %d row(s) failed validation", e.TemplateType, len(e.RowErrors))
}
