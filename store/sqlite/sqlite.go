/*
Package sqlite provides a SQLite-backed implementation of the payroll
storage interfaces.

PURPOSE:
  Implements payroll.Store and payroll.TxStore using SQLite. In
  production, the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  tenants:      Schools; code is globally unique
  employees:    Unique (tenant_id, email); external_id unique per tenant
                when set
  components:   Unique (tenant_id, code)
  periods:      Unique (tenant_id, month, year)
  entries:      Unique (period_id, employee_id)
  entry_items:  One row per component contribution, with name/type
                snapshotted at creation

MONEY:
  Amounts are stored as decimal TEXT and parsed back through
  payroll.ParseMoney, so no value ever passes through a float.

TRANSACTIONS:
  WithTx wraps the callback in one database/sql transaction; any error
  rolls everything back. A store-level mutex additionally serializes
  transactions so two generations of the same period cannot interleave.
  In production with PostgreSQL, a row lock on the period record handles
  this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency
  and crash recovery, with foreign keys enforced so deleting a period
  cascades to its entries and items.

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := payroll.NewGenerator(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - payroll/store.go: interface definitions
  - payroll/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/payroll-engine/payroll"
)

// Store implements payroll.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
	session
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// session runs every repository method against either the database or an
// open transaction.
type session struct {
	q querier
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a ":memory:" database is also per-connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, session: session{q: db}}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx executes fn within one database transaction. The store mutex
// serializes transactions; see the package comment.
func (s *Store) WithTx(ctx context.Context, fn func(payroll.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&session{q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tenants (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		code TEXT NOT NULL UNIQUE,
		address TEXT NOT NULL DEFAULT '',
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
		full_name TEXT NOT NULL,
		external_id TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL,
		employee_type TEXT NOT NULL,
		position TEXT NOT NULL DEFAULT '',
		base_salary TEXT NOT NULL DEFAULT '0',
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_employees_tenant_email
		ON employees(tenant_id, email);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_employees_tenant_external
		ON employees(tenant_id, external_id) WHERE external_id <> '';
	CREATE INDEX IF NOT EXISTS idx_employees_tenant_active
		ON employees(tenant_id, is_active);

	CREATE TABLE IF NOT EXISTS components (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		code TEXT NOT NULL,
		component_type TEXT NOT NULL,
		is_fixed INTEGER NOT NULL DEFAULT 1,
		default_amount TEXT NOT NULL DEFAULT '0',
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_components_tenant_code
		ON components(tenant_id, code);

	CREATE TABLE IF NOT EXISTS periods (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
		month INTEGER NOT NULL,
		year INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'draft',
		note TEXT NOT NULL DEFAULT '',
		generated_at TEXT,
		generated_by TEXT NOT NULL DEFAULT '',
		finalized_at TEXT,
		finalized_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_periods_tenant_month_year
		ON periods(tenant_id, month, year);

	CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		period_id TEXT NOT NULL REFERENCES periods(id) ON DELETE CASCADE,
		employee_id TEXT NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
		status TEXT NOT NULL DEFAULT 'draft',
		total_earnings TEXT NOT NULL DEFAULT '0',
		total_deductions TEXT NOT NULL DEFAULT '0',
		net_pay TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_period_employee
		ON entries(period_id, employee_id);

	CREATE TABLE IF NOT EXISTS entry_items (
		id TEXT PRIMARY KEY,
		entry_id TEXT NOT NULL REFERENCES entries(id) ON DELETE CASCADE,
		component_id TEXT NOT NULL,
		component_name TEXT NOT NULL,
		component_type TEXT NOT NULL,
		amount TEXT NOT NULL DEFAULT '0'
	);

	CREATE INDEX IF NOT EXISTS idx_entry_items_entry
		ON entry_items(entry_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TENANTS
// =============================================================================

func (s *session) CreateTenant(ctx context.Context, t *payroll.Tenant) error {
	if t.ID == "" {
		t.ID = payroll.TenantID(uuid.NewString())
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO tenants (id, name, code, address, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Code, t.Address, t.IsActive, formatTime(t.CreatedAt),
	)
	if isUniqueConstraintError(err) {
		return &payroll.ValidationError{Message: "tenant code already in use"}
	}
	return err
}

func (s *session) GetTenant(ctx context.Context, id payroll.TenantID) (*payroll.Tenant, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, name, code, address, is_active, created_at
		FROM tenants WHERE id = ?`, id)

	var t payroll.Tenant
	var createdAt string
	err := row.Scan(&t.ID, &t.Name, &t.Code, &t.Address, &t.IsActive, &createdAt)
	if err == sql.ErrNoRows {
		return nil, &payroll.NotFoundError{Kind: "tenant", ID: string(id)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	t.CreatedAt = parseTime(createdAt)
	return &t, nil
}

func (s *session) ListTenants(ctx context.Context) ([]payroll.Tenant, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, name, code, address, is_active, created_at
		FROM tenants ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var out []payroll.Tenant
	for rows.Next() {
		var t payroll.Tenant
		var createdAt string
		if err := rows.Scan(&t.ID, &t.Name, &t.Code, &t.Address, &t.IsActive, &createdAt); err != nil {
			return nil, err
		}
		t.CreatedAt = parseTime(createdAt)
		out = append(out, t)
	}
	return out, rows.Err()
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (s *session) CreateEmployee(ctx context.Context, e *payroll.Employee) error {
	if e.ID == "" {
		e.ID = payroll.EmployeeID(uuid.NewString())
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	e.Email = payroll.NormalizeEmail(e.Email)
	e.ExternalID = strings.TrimSpace(e.ExternalID)

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO employees
		(id, tenant_id, full_name, external_id, email, employee_type, position, base_salary, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.TenantID, e.FullName, e.ExternalID, e.Email, e.Type,
		e.Position, e.BaseSalary.String(), e.IsActive, formatTime(e.CreatedAt),
	)
	if isUniqueConstraintError(err) {
		return &payroll.ValidationError{Message: "email or external ID already in use for this tenant"}
	}
	return err
}

const employeeColumns = `id, tenant_id, full_name, external_id, email, employee_type, position, base_salary, is_active, created_at`

func (s *session) GetEmployee(ctx context.Context, id payroll.EmployeeID) (*payroll.Employee, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE id = ?`, id)
	e, err := scanEmployee(row)
	if err == sql.ErrNoRows {
		return nil, &payroll.NotFoundError{Kind: "employee", ID: string(id)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return e, nil
}

func (s *session) ListEmployees(ctx context.Context, tenantID payroll.TenantID) ([]payroll.Employee, error) {
	return s.queryEmployees(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE tenant_id = ? ORDER BY full_name`, tenantID)
}

func (s *session) ListActiveEmployees(ctx context.Context, tenantID payroll.TenantID) ([]payroll.Employee, error) {
	return s.queryEmployees(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE tenant_id = ? AND is_active = 1 ORDER BY full_name`, tenantID)
}

func (s *session) queryEmployees(ctx context.Context, query string, args ...any) ([]payroll.Employee, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var out []payroll.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(sc scanner) (*payroll.Employee, error) {
	var e payroll.Employee
	var salary, createdAt string
	err := sc.Scan(&e.ID, &e.TenantID, &e.FullName, &e.ExternalID, &e.Email,
		&e.Type, &e.Position, &salary, &e.IsActive, &createdAt)
	if err != nil {
		return nil, err
	}
	if e.BaseSalary, err = payroll.ParseMoney(salary); err != nil {
		return nil, err
	}
	e.CreatedAt = parseTime(createdAt)
	return &e, nil
}

// =============================================================================
// COMPONENTS
// =============================================================================

func (s *session) CreateComponent(ctx context.Context, c *payroll.Component) error {
	if c.ID == "" {
		c.ID = payroll.ComponentID(uuid.NewString())
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	c.Code = payroll.NormalizeCode(c.Code)

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO components
		(id, tenant_id, name, code, component_type, is_fixed, default_amount, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.TenantID, c.Name, c.Code, c.Type, c.IsFixed,
		c.DefaultAmount.String(), c.IsActive, formatTime(c.CreatedAt),
	)
	if isUniqueConstraintError(err) {
		return &payroll.ValidationError{Message: "component code already in use for this tenant"}
	}
	return err
}

const componentColumns = `id, tenant_id, name, code, component_type, is_fixed, default_amount, is_active, created_at`

func (s *session) GetComponent(ctx context.Context, tenantID payroll.TenantID, id payroll.ComponentID) (*payroll.Component, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+componentColumns+` FROM components WHERE id = ? AND tenant_id = ?`, id, tenantID)
	c, err := scanComponent(row)
	if err == sql.ErrNoRows {
		return nil, &payroll.NotFoundError{Kind: "component", ID: string(id)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get component: %w", err)
	}
	return c, nil
}

func (s *session) ListComponents(ctx context.Context, tenantID payroll.TenantID) ([]payroll.Component, error) {
	return s.queryComponents(ctx,
		`SELECT `+componentColumns+` FROM components WHERE tenant_id = ? ORDER BY name`, tenantID)
}

func (s *session) ListActiveComponents(ctx context.Context, tenantID payroll.TenantID) ([]payroll.Component, error) {
	return s.queryComponents(ctx,
		`SELECT `+componentColumns+` FROM components WHERE tenant_id = ? AND is_active = 1 ORDER BY name`, tenantID)
}

func (s *session) queryComponents(ctx context.Context, query string, args ...any) ([]payroll.Component, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query components: %w", err)
	}
	defer rows.Close()

	var out []payroll.Component
	for rows.Next() {
		c, err := scanComponent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func scanComponent(sc scanner) (*payroll.Component, error) {
	var c payroll.Component
	var amount, createdAt string
	err := sc.Scan(&c.ID, &c.TenantID, &c.Name, &c.Code, &c.Type,
		&c.IsFixed, &amount, &c.IsActive, &createdAt)
	if err != nil {
		return nil, err
	}
	if c.DefaultAmount, err = payroll.ParseMoney(amount); err != nil {
		return nil, err
	}
	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}

// =============================================================================
// PERIODS
// =============================================================================

func (s *session) CreatePeriod(ctx context.Context, p *payroll.Period) error {
	if p.ID == "" {
		p.ID = payroll.PeriodID(uuid.NewString())
	}
	if p.Status == "" {
		p.Status = payroll.PeriodDraft
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO periods
		(id, tenant_id, month, year, status, note, generated_at, generated_by,
		 finalized_at, finalized_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.TenantID, p.Month, p.Year, p.Status, p.Note,
		nullTime(p.GeneratedAt), p.GeneratedBy,
		nullTime(p.FinalizedAt), p.FinalizedBy,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if isUniqueConstraintError(err) {
		return &payroll.ValidationError{Message: "a period for this month already exists"}
	}
	return err
}

const periodColumns = `id, tenant_id, month, year, status, note, generated_at, generated_by, finalized_at, finalized_by, created_at, updated_at`

func (s *session) GetPeriod(ctx context.Context, tenantID payroll.TenantID, id payroll.PeriodID) (*payroll.Period, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+periodColumns+` FROM periods WHERE id = ? AND tenant_id = ?`, id, tenantID)
	p, err := scanPeriod(row)
	if err == sql.ErrNoRows {
		return nil, &payroll.NotFoundError{Kind: "period", ID: string(id)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get period: %w", err)
	}
	return p, nil
}

func (s *session) ListPeriods(ctx context.Context, tenantID payroll.TenantID) ([]payroll.Period, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+periodColumns+` FROM periods WHERE tenant_id = ? ORDER BY year DESC, month DESC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list periods: %w", err)
	}
	defer rows.Close()

	var out []payroll.Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *session) UpdatePeriod(ctx context.Context, p *payroll.Period) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE periods SET status = ?, note = ?, generated_at = ?, generated_by = ?,
			finalized_at = ?, finalized_by = ?, updated_at = ?
		WHERE id = ?`,
		p.Status, p.Note, nullTime(p.GeneratedAt), p.GeneratedBy,
		nullTime(p.FinalizedAt), p.FinalizedBy, formatTime(p.UpdatedAt), p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update period: %w", err)
	}
	return requireAffected(res, "period", string(p.ID))
}

func (s *session) DeletePeriod(ctx context.Context, tenantID payroll.TenantID, id payroll.PeriodID) error {
	res, err := s.q.ExecContext(ctx,
		`DELETE FROM periods WHERE id = ? AND tenant_id = ?`, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete period: %w", err)
	}
	return requireAffected(res, "period", string(id))
}

func scanPeriod(sc scanner) (*payroll.Period, error) {
	var p payroll.Period
	var generatedAt, finalizedAt sql.NullString
	var createdAt, updatedAt string
	err := sc.Scan(&p.ID, &p.TenantID, &p.Month, &p.Year, &p.Status, &p.Note,
		&generatedAt, &p.GeneratedBy, &finalizedAt, &p.FinalizedBy,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.GeneratedAt = parseNullTime(generatedAt)
	p.FinalizedAt = parseNullTime(finalizedAt)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

// =============================================================================
// ENTRIES
// =============================================================================

const entryColumns = `id, period_id, employee_id, status, total_earnings, total_deductions, net_pay, created_at, updated_at`

func (s *session) GetOrCreateEntry(ctx context.Context, periodID payroll.PeriodID, employeeID payroll.EmployeeID) (*payroll.Entry, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE period_id = ? AND employee_id = ?`,
		periodID, employeeID)
	e, err := scanEntry(row)
	if err == nil {
		return e, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}

	now := time.Now().UTC()
	e = &payroll.Entry{
		ID:              payroll.EntryID(uuid.NewString()),
		PeriodID:        periodID,
		EmployeeID:      employeeID,
		Status:          payroll.PeriodDraft,
		TotalEarnings:   payroll.Zero(),
		TotalDeductions: payroll.Zero(),
		NetPay:          payroll.Zero(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO entries
		(id, period_id, employee_id, status, total_earnings, total_deductions, net_pay, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.PeriodID, e.EmployeeID, e.Status,
		e.TotalEarnings.String(), e.TotalDeductions.String(), e.NetPay.String(),
		formatTime(e.CreatedAt), formatTime(e.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create entry: %w", err)
	}
	return e, nil
}

func (s *session) GetEntry(ctx context.Context, periodID payroll.PeriodID, id payroll.EntryID) (*payroll.Entry, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE id = ? AND period_id = ?`, id, periodID)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, &payroll.NotFoundError{Kind: "entry", ID: string(id)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return e, nil
}

func (s *session) ListEntries(ctx context.Context, periodID payroll.PeriodID) ([]payroll.Entry, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT e.id, e.period_id, e.employee_id, e.status,
		       e.total_earnings, e.total_deductions, e.net_pay, e.created_at, e.updated_at
		FROM entries e
		JOIN employees emp ON emp.id = e.employee_id
		WHERE e.period_id = ?
		ORDER BY emp.full_name, e.id`, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var out []payroll.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (s *session) UpdateEntry(ctx context.Context, e *payroll.Entry) error {
	e.UpdatedAt = time.Now().UTC()
	res, err := s.q.ExecContext(ctx, `
		UPDATE entries SET status = ?, total_earnings = ?, total_deductions = ?, net_pay = ?, updated_at = ?
		WHERE id = ?`,
		e.Status, e.TotalEarnings.String(), e.TotalDeductions.String(),
		e.NetPay.String(), formatTime(e.UpdatedAt), e.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	return requireAffected(res, "entry", string(e.ID))
}

func (s *session) DeleteEntry(ctx context.Context, id payroll.EntryID) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return requireAffected(res, "entry", string(id))
}

func (s *session) SetEntryStatusByPeriod(ctx context.Context, periodID payroll.PeriodID, status payroll.PeriodStatus) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE entries SET status = ?, updated_at = ? WHERE period_id = ?`,
		status, formatTime(time.Now().UTC()), periodID)
	if err != nil {
		return fmt.Errorf("failed to cascade entry status: %w", err)
	}
	return nil
}

func scanEntry(sc scanner) (*payroll.Entry, error) {
	var e payroll.Entry
	var earnings, deductions, net, createdAt, updatedAt string
	err := sc.Scan(&e.ID, &e.PeriodID, &e.EmployeeID, &e.Status,
		&earnings, &deductions, &net, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if e.TotalEarnings, err = payroll.ParseMoney(earnings); err != nil {
		return nil, err
	}
	if e.TotalDeductions, err = payroll.ParseMoney(deductions); err != nil {
		return nil, err
	}
	if e.NetPay, err = payroll.ParseMoney(net); err != nil {
		return nil, err
	}
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	return &e, nil
}

// =============================================================================
// ITEMS
// =============================================================================

func (s *session) ReplaceItems(ctx context.Context, entryID payroll.EntryID, items []payroll.Item) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM entry_items WHERE entry_id = ?`, entryID); err != nil {
		return fmt.Errorf("failed to clear items: %w", err)
	}
	for i := range items {
		items[i].EntryID = entryID
		if err := s.InsertItem(ctx, &items[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) InsertItem(ctx context.Context, it *payroll.Item) error {
	if it.ID == "" {
		it.ID = payroll.ItemID(uuid.NewString())
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO entry_items (id, entry_id, component_id, component_name, component_type, amount)
		VALUES (?, ?, ?, ?, ?, ?)`,
		it.ID, it.EntryID, it.ComponentID, it.ComponentName, it.ComponentType, it.Amount.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

func (s *session) DeleteItem(ctx context.Context, entryID payroll.EntryID, id payroll.ItemID) error {
	res, err := s.q.ExecContext(ctx,
		`DELETE FROM entry_items WHERE id = ? AND entry_id = ?`, id, entryID)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return requireAffected(res, "item", string(id))
}

func (s *session) ListItems(ctx context.Context, entryID payroll.EntryID) ([]payroll.Item, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, entry_id, component_id, component_name, component_type, amount
		FROM entry_items WHERE entry_id = ? ORDER BY component_name, id`, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var out []payroll.Item
	for rows.Next() {
		var it payroll.Item
		var amount string
		if err := rows.Scan(&it.ID, &it.EntryID, &it.ComponentID,
			&it.ComponentName, &it.ComponentType, &amount); err != nil {
			return nil, err
		}
		if it.Amount, err = payroll.ParseMoney(amount); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func requireAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &payroll.NotFoundError{Kind: kind, ID: id}
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Compile-time check.
var _ payroll.TxStore = (*Store)(nil)
