/*
strategy.go - Generation methods and spreadsheet import parsing

PURPOSE:
  The three interchangeable ways to resolve per-employee amounts:
  - Manual:   no overrides; every component falls back to its
              fixed-default-or-zero rule
  - CopyFrom: mirror a prior period's entries, item snapshots included
  - Import:   amounts parsed from an uploaded tabular file

METHOD DISPATCH:
  Method is a closed tagged union. The orchestrator dispatches with an
  exhaustive type switch, so adding a method is a compile-time-checked
  change instead of open-ended string matching.

IMPORT FILE CONTRACT:
  Required columns: email, component_code, amount. Arbitrary additional
  columns are ignored. Emails are lowercased and codes uppercased before
  lookup - the exact normalization applied when the records were created.
  Rows missing email or component_code are skipped silently. A
  non-numeric (or negative) amount fails the whole operation with a
  row-identifying error. If the same (email, code) key appears in
  multiple rows, the last occurrence wins.

SEE ALSO:
  - generate.go: validates referenced emails against the tenant roster
*/
package payroll

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
)

// =============================================================================
// METHOD - Tagged union of generation strategies
// =============================================================================

// Method selects how amounts are resolved during generation.
type Method interface {
	method()
}

// Manual applies the fixed-default-or-zero rule to every component.
type Manual struct{}

// CopyFrom mirrors the entries of a prior period of the same tenant.
type CopyFrom struct {
	SourcePeriodID PeriodID
}

// ImportFile resolves amounts from an uploaded spreadsheet.
type ImportFile struct {
	Source io.Reader
}

func (Manual) method()     {}
func (CopyFrom) method()   {}
func (ImportFile) method() {}

// =============================================================================
// IMPORT PARSING
// =============================================================================

// importRow maps one spreadsheet line. gocsv matches columns by header
// name and ignores columns the struct doesn't mention. Amount stays a
// string so the engine controls decimal parsing and error wording.
type importRow struct {
	Email  string `csv:"email"`
	Code   string `csv:"component_code"`
	Amount string `csv:"amount"`
}

const requiredColumnsMsg = "required columns: email, component_code, amount"

// parseImport reads the uploaded file into email -> code -> amount.
// Returns a ValidationError for an unreadable file, missing required
// columns, or an empty parse result, and a RowAmountError for the first
// unparseable amount.
func parseImport(r io.Reader) (map[string]map[string]Money, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, &ValidationError{Message: "could not read the uploaded file"}
	}

	if err := checkImportHeader(raw); err != nil {
		return nil, err
	}

	var rows []importRow
	if err := gocsv.UnmarshalBytes(raw, &rows); err != nil {
		return nil, &ValidationError{Message: "the uploaded file is not a valid spreadsheet"}
	}

	amounts := make(map[string]map[string]Money)
	for _, row := range rows {
		email := NormalizeEmail(row.Email)
		code := NormalizeCode(row.Code)
		if email == "" || code == "" {
			continue
		}
		rawAmount := strings.TrimSpace(row.Amount)
		if rawAmount == "" {
			rawAmount = "0"
		}
		amount, err := ParseMoney(rawAmount)
		if err != nil || amount.IsNegative() {
			return nil, &RowAmountError{Email: email, Code: code, Raw: rawAmount}
		}
		if amounts[email] == nil {
			amounts[email] = make(map[string]Money)
		}
		// Last occurrence wins for duplicate (email, code) keys.
		amounts[email][code] = amount
	}

	if len(amounts) == 0 {
		return nil, &ValidationError{Message: "no data found in the uploaded file"}
	}
	return amounts, nil
}

// checkImportHeader verifies the three required columns are present by
// name, before any row is decoded.
func checkImportHeader(raw []byte) error {
	header, err := csv.NewReader(bytes.NewReader(raw)).Read()
	if err != nil {
		return &ValidationError{Message: "the uploaded file is not a valid spreadsheet"}
	}
	seen := make(map[string]bool, len(header))
	for _, col := range header {
		seen[strings.TrimSpace(col)] = true
	}
	for _, col := range []string{"email", "component_code", "amount"} {
		if !seen[col] {
			return &ValidationError{Message: requiredColumnsMsg}
		}
	}
	return nil
}
