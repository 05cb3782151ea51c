/*
errors.go - Centralized error types for the payroll engine

PURPOSE:
  All error kinds in one place. Callers match on the sentinel kinds with
  errors.Is(); the structured types carry detail for user-facing messages.

ERROR CATEGORIES:
  1. Precondition errors - generation refused before any mutation
  2. Validation errors   - malformed import files, bad amounts
  3. Tenant mismatch     - cross-tenant references
  4. State errors        - lifecycle violations (editing a final period)
  5. Not found           - repository misses

PROPAGATION:
  Strategy and precondition errors propagate out of the orchestrator
  unmodified and abort the enclosing transaction. Every failure yields a
  single human-readable message; no stack traces leak to users.

SEE ALSO:
  - generate.go: raises precondition errors
  - strategy.go: raises validation errors
  - lifecycle.go: raises state errors
*/
package payroll

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrPrecondition marks failures detected before any mutation:
	// no active components, no active employees, missing strategy input.
	ErrPrecondition = errors.New("precondition failed")

	// ErrValidation marks malformed input: unreadable import files,
	// missing columns, non-numeric amounts, unknown employee emails.
	ErrValidation = errors.New("validation failed")

	// ErrTenantMismatch marks an attempt to reference a record that
	// belongs to a different tenant.
	ErrTenantMismatch = errors.New("tenant mismatch")

	// ErrState marks a mutation attempted outside the permitted
	// lifecycle state (e.g. editing items on a finalized period).
	ErrState = errors.New("state not permitted")

	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// PreconditionError is surfaced verbatim to the caller.
type PreconditionError struct {
	Message string
}

func (e *PreconditionError) Error() string { return e.Message }
func (e *PreconditionError) Unwrap() error { return ErrPrecondition }

// ValidationError is surfaced verbatim to the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Unwrap() error { return ErrValidation }

// RowAmountError identifies the import row whose amount could not be
// parsed (or was negative). Fails the whole operation.
type RowAmountError struct {
	Email string
	Code  string
	Raw   string
}

func (e *RowAmountError) Error() string {
	return fmt.Sprintf("invalid amount for %s/%s", e.Email, e.Code)
}

func (e *RowAmountError) Unwrap() error { return ErrValidation }

// UnknownEmployeesError aggregates every email referenced by an import
// file that has no matching employee record, so the user sees all of
// them at once instead of fixing one per attempt.
type UnknownEmployeesError struct {
	Emails []string // sorted
}

func (e *UnknownEmployeesError) Error() string {
	return fmt.Sprintf("employees not found: %s", strings.Join(e.Emails, ", "))
}

func (e *UnknownEmployeesError) Unwrap() error { return ErrValidation }

// TenantMismatchError reports a cross-tenant reference.
type TenantMismatchError struct {
	Kind string // "employee", "component", "period"
	ID   string
}

func (e *TenantMismatchError) Error() string {
	return fmt.Sprintf("%s %s does not belong to this tenant", e.Kind, e.ID)
}

func (e *TenantMismatchError) Unwrap() error { return ErrTenantMismatch }

// StateError reports a lifecycle violation.
type StateError struct {
	Action   string
	Requires PeriodStatus
	Current  PeriodStatus
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s requires a %s period, current status is %s",
		e.Action, e.Requires, e.Current)
}

func (e *StateError) Unwrap() error { return ErrState }

// NotFoundError reports a missing record by kind.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input
// rather than an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrPrecondition) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrTenantMismatch)
}

// IsStateError returns true for lifecycle violations.
func IsStateError(err error) bool {
	return errors.Is(err, ErrState)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
