/*
Package payroll implements the multi-tenant payroll generation engine.

PURPOSE:
  This package contains the domain types and algorithms for producing a
  school's monthly payroll: components (earnings/deductions), periods,
  per-employee entries, and the generation strategies that populate them.
  Persistence is behind the Store interfaces; HTTP and rendering live in
  other packages.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: exact-decimal amount (no floats, ever)
  - Tenant/Employee/Component: the per-school catalog
  - Period/Entry/Item: one month's payroll and its line items
  - Typed IDs: prevent mixing identifiers across record kinds

DESIGN PRINCIPLES:
  1. Precision: uses decimal.Decimal so totals are exact
  2. Snapshots: items copy component name/type at creation, so later
     catalog edits never corrupt historical entries
  3. Explicit tenancy: every store call takes the tenant, never ambient
  4. Derived totals: net pay is always recomputed from items

SEE ALSO:
  - builder.go: entry construction and total recomputation
  - strategy.go: the three generation methods
  - generate.go: the orchestrator
  - lifecycle.go: draft/final state machine
*/
package payroll

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Exact decimal amount
// =============================================================================

// Money is an exact fixed-point amount. All arithmetic goes through
// decimal.Decimal; float64 never touches a payroll amount.
type Money struct {
	Value decimal.Decimal
}

// Zero returns a zero amount.
func Zero() Money {
	return Money{Value: decimal.Zero}
}

// NewMoney builds an amount from whole units.
func NewMoney(v int64) Money {
	return Money{Value: decimal.NewFromInt(v)}
}

// ParseMoney parses a decimal string ("5000000", "125.50").
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Money{Value: d}, nil
}

// MustMoney parses a decimal string and panics on failure. Test/seed helper.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Add(o Money) Money    { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money    { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) IsNegative() bool     { return m.Value.IsNegative() }
func (m Money) IsZero() bool         { return m.Value.IsZero() }
func (m Money) Equal(o Money) bool   { return m.Value.Equal(o.Value) }
func (m Money) Cmp(o Money) int      { return m.Value.Cmp(o.Value) }
func (m Money) String() string       { return m.Value.String() }

// StringFixed renders with two fraction digits for slips and exports.
func (m Money) StringFixed() string { return m.Value.StringFixed(2) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type TenantID string
type EmployeeID string
type ComponentID string
type PeriodID string
type EntryID string
type ItemID string

// =============================================================================
// NORMALIZATION
// =============================================================================

// NormalizeEmail lowercases and trims an email address. Applied when an
// employee is created AND when an import file is parsed, so lookups match.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeCode uppercases and trims a component code. Same rule on both
// the catalog and import sides.
func NormalizeCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// =============================================================================
// TENANT - An independent school whose data is isolated from others
// =============================================================================

type Tenant struct {
	ID        TenantID
	Name      string
	Code      string
	Address   string
	IsActive  bool
	CreatedAt time.Time
}

// =============================================================================
// EMPLOYEE
// =============================================================================

type EmployeeType string

const (
	EmployeeTeacher EmployeeType = "teacher"
	EmployeeStaff   EmployeeType = "staff"
)

type Employee struct {
	ID         EmployeeID
	TenantID   TenantID
	FullName   string
	ExternalID string // registry number, unique per tenant when set
	Email      string // lowercased, unique per tenant
	Type       EmployeeType
	Position   string
	BaseSalary Money
	IsActive   bool // only active employees are eligible for generation
	CreatedAt  time.Time
}

// =============================================================================
// PAYROLL COMPONENT - A named earning or deduction
// =============================================================================

type ComponentType string

const (
	ComponentEarning   ComponentType = "earning"
	ComponentDeduction ComponentType = "deduction"
)

type Component struct {
	ID       ComponentID
	TenantID TenantID
	Name     string
	Code     string // uppercased, unique per tenant
	Type     ComponentType

	// Fixed components always use DefaultAmount unless a strategy supplies
	// an override; variable components default to zero.
	IsFixed       bool
	DefaultAmount Money

	IsActive  bool // only active components participate in generation
	CreatedAt time.Time
}

// =============================================================================
// PAYROLL PERIOD - One month/year cycle, draft or final
// =============================================================================

type PeriodStatus string

const (
	PeriodDraft PeriodStatus = "draft"
	PeriodFinal PeriodStatus = "final"
)

type Period struct {
	ID       PeriodID
	TenantID TenantID
	Month    int // 1-12
	Year     int
	Status   PeriodStatus
	Note     string

	// Generation metadata. Generation does not change Status; it only
	// stamps these fields.
	GeneratedAt *time.Time
	GeneratedBy string

	// Finalization metadata. Cleared again when the period is cancelled
	// back to draft.
	FinalizedAt *time.Time
	FinalizedBy string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Label renders the period as MM/YYYY for messages and exports.
func (p *Period) Label() string {
	return fmt.Sprintf("%02d/%d", p.Month, p.Year)
}

// =============================================================================
// PAYROLL ENTRY - One employee's record within a period
// =============================================================================

type Entry struct {
	ID         EntryID
	PeriodID   PeriodID
	EmployeeID EmployeeID

	// Mirrors the period status, stored redundantly for point-in-time
	// display on slips.
	Status PeriodStatus

	// Derived totals. Always recomputed from the item set via
	// RecomputeTotals; never written independently.
	TotalEarnings   Money
	TotalDeductions Money
	NetPay          Money

	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// PAYROLL ENTRY ITEM - One component's contribution to an entry
// =============================================================================

type Item struct {
	ID          ItemID
	EntryID     EntryID
	ComponentID ComponentID

	// Snapshot of the component at creation time. Renaming or retyping the
	// component later must not change historical entries.
	ComponentName string
	ComponentType ComponentType

	Amount Money // always >= 0
}
