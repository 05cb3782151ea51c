/*
store.go - Persistence interfaces for the payroll engine

PURPOSE:
  Defines the interface between the engine and the database. Tenant scope
  is an explicit parameter on every tenant-owned query - there is no
  ambient "current school" state anywhere in the engine.

KEY INTERFACES:
  Store:   Repositories for tenants, employees, components, periods,
           entries, and items
  TxStore: Adds WithTx for atomic multi-record writes

ATOMICITY:
  Generation runs entirely inside one WithTx call: either every eligible
  employee's entry is built and the period is stamped generated, or
  nothing persists. Item mutation and total recomputation for an entry
  are likewise always inside one transaction, so a reader never observes
  items without matching totals.

GET-OR-CREATE:
  GetOrCreateEntry resolves the (period, employee) uniqueness constraint
  up front. Duplicate-entry violations are therefore expected to be
  impossible; if one occurs anyway it aborts the transaction.

IMPLEMENTATIONS:
  - payroll/store/memory.go: in-memory, clone-and-swap transactions
  - store/sqlite/sqlite.go:  SQLite with database/sql transactions

SEE ALSO:
  - generate.go: the only caller of WithTx for generation
  - lifecycle.go: transactional item add/delete
*/
package payroll

import "context"

// =============================================================================
// STORE - Tenant-explicit repositories
// =============================================================================

type Store interface {
	// Tenants
	CreateTenant(ctx context.Context, t *Tenant) error
	GetTenant(ctx context.Context, id TenantID) (*Tenant, error)
	ListTenants(ctx context.Context) ([]Tenant, error)

	// Employees. Creation normalizes the email to lowercase and trims the
	// external ID. GetEmployee is unscoped on purpose: the engine loads
	// the record first, then rejects cross-tenant references explicitly.
	CreateEmployee(ctx context.Context, e *Employee) error
	GetEmployee(ctx context.Context, id EmployeeID) (*Employee, error)
	ListEmployees(ctx context.Context, tenantID TenantID) ([]Employee, error)
	ListActiveEmployees(ctx context.Context, tenantID TenantID) ([]Employee, error)

	// Components. Creation normalizes the code to uppercase.
	CreateComponent(ctx context.Context, c *Component) error
	GetComponent(ctx context.Context, tenantID TenantID, id ComponentID) (*Component, error)
	ListComponents(ctx context.Context, tenantID TenantID) ([]Component, error)
	ListActiveComponents(ctx context.Context, tenantID TenantID) ([]Component, error)

	// Periods. (tenant, month, year) is unique.
	CreatePeriod(ctx context.Context, p *Period) error
	GetPeriod(ctx context.Context, tenantID TenantID, id PeriodID) (*Period, error)
	ListPeriods(ctx context.Context, tenantID TenantID) ([]Period, error)
	UpdatePeriod(ctx context.Context, p *Period) error
	DeletePeriod(ctx context.Context, tenantID TenantID, id PeriodID) error

	// Entries. (period, employee) is unique; GetOrCreateEntry resolves it.
	GetOrCreateEntry(ctx context.Context, periodID PeriodID, employeeID EmployeeID) (*Entry, error)
	GetEntry(ctx context.Context, periodID PeriodID, id EntryID) (*Entry, error)
	ListEntries(ctx context.Context, periodID PeriodID) ([]Entry, error)
	UpdateEntry(ctx context.Context, e *Entry) error
	DeleteEntry(ctx context.Context, id EntryID) error

	// SetEntryStatusByPeriod cascades a period's status onto every child
	// entry (finalize and cancel).
	SetEntryStatusByPeriod(ctx context.Context, periodID PeriodID, status PeriodStatus) error

	// Items. ReplaceItems discards the entry's whole item set and writes
	// the new one; generation always goes through it.
	ReplaceItems(ctx context.Context, entryID EntryID, items []Item) error
	InsertItem(ctx context.Context, it *Item) error
	DeleteItem(ctx context.Context, entryID EntryID, id ItemID) error
	ListItems(ctx context.Context, entryID EntryID) ([]Item, error)
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// TxStore wraps Store with transaction support.
//
// WithTx executes fn within one atomic unit of work. If fn returns an
// error the transaction is rolled back and nothing persists; if fn
// returns nil it is committed. Implementations must also serialize
// concurrent WithTx calls touching the same period (row lock or
// equivalent) so two generations cannot interleave.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
