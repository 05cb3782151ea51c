// Package store provides an in-memory payroll.TxStore implementation
// (for testing/dev).
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps everything in maps guarded by one mutex. WithTx runs the
// function against a deep copy and swaps it in on success, so rollback
// is real: a failed transaction leaves the visible state untouched. The
// mutex also serializes concurrent transactions, which is the in-memory
// stand-in for per-period row locks.
type Memory struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time
}

type state struct {
	tenants    map[payroll.TenantID]payroll.Tenant
	employees  map[payroll.EmployeeID]payroll.Employee
	components map[payroll.ComponentID]payroll.Component
	periods    map[payroll.PeriodID]payroll.Period
	entries    map[payroll.EntryID]payroll.Entry
	items      map[payroll.ItemID]payroll.Item
}

func NewMemory() *Memory {
	return &Memory{
		state: &state{
			tenants:    make(map[payroll.TenantID]payroll.Tenant),
			employees:  make(map[payroll.EmployeeID]payroll.Employee),
			components: make(map[payroll.ComponentID]payroll.Component),
			periods:    make(map[payroll.PeriodID]payroll.Period),
			entries:    make(map[payroll.EntryID]payroll.Entry),
			items:      make(map[payroll.ItemID]payroll.Item),
		},
		now: time.Now,
	}
}

func (s *state) clone() *state {
	c := &state{
		tenants:    make(map[payroll.TenantID]payroll.Tenant, len(s.tenants)),
		employees:  make(map[payroll.EmployeeID]payroll.Employee, len(s.employees)),
		components: make(map[payroll.ComponentID]payroll.Component, len(s.components)),
		periods:    make(map[payroll.PeriodID]payroll.Period, len(s.periods)),
		entries:    make(map[payroll.EntryID]payroll.Entry, len(s.entries)),
		items:      make(map[payroll.ItemID]payroll.Item, len(s.items)),
	}
	for k, v := range s.tenants {
		c.tenants[k] = v
	}
	for k, v := range s.employees {
		c.employees[k] = v
	}
	for k, v := range s.components {
		c.components[k] = v
	}
	for k, v := range s.periods {
		c.periods[k] = v
	}
	for k, v := range s.entries {
		c.entries[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	return c
}

// WithTx executes fn against a copy of the state; the copy replaces the
// visible state only if fn succeeds.
func (m *Memory) WithTx(_ context.Context, fn func(payroll.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &Memory{state: m.state.clone(), now: m.now}
	if err := fn(tx); err != nil {
		return err
	}
	m.state = tx.state
	return nil
}

// =============================================================================
// TENANTS
// =============================================================================

func (m *Memory) CreateTenant(_ context.Context, t *payroll.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.state.tenants {
		if existing.Code == t.Code {
			return &payroll.ValidationError{Message: "tenant code already in use"}
		}
	}
	if t.ID == "" {
		t.ID = payroll.TenantID(uuid.NewString())
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = m.now()
	}
	m.state.tenants[t.ID] = *t
	return nil
}

func (m *Memory) GetTenant(_ context.Context, id payroll.TenantID) (*payroll.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.state.tenants[id]
	if !ok {
		return nil, &payroll.NotFoundError{Kind: "tenant", ID: string(id)}
	}
	return &t, nil
}

func (m *Memory) ListTenants(_ context.Context) ([]payroll.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]payroll.Tenant, 0, len(m.state.tenants))
	for _, t := range m.state.tenants {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (m *Memory) CreateEmployee(_ context.Context, e *payroll.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.Email = payroll.NormalizeEmail(e.Email)
	for _, existing := range m.state.employees {
		if existing.TenantID != e.TenantID {
			continue
		}
		if existing.Email == e.Email {
			return &payroll.ValidationError{Message: "email already in use for this tenant"}
		}
		if e.ExternalID != "" && existing.ExternalID == e.ExternalID {
			return &payroll.ValidationError{Message: "external ID already in use for this tenant"}
		}
	}
	if e.ID == "" {
		e.ID = payroll.EmployeeID(uuid.NewString())
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = m.now()
	}
	m.state.employees[e.ID] = *e
	return nil
}

func (m *Memory) GetEmployee(_ context.Context, id payroll.EmployeeID) (*payroll.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.state.employees[id]
	if !ok {
		return nil, &payroll.NotFoundError{Kind: "employee", ID: string(id)}
	}
	return &e, nil
}

func (m *Memory) ListEmployees(_ context.Context, tenantID payroll.TenantID) ([]payroll.Employee, error) {
	return m.listEmployees(tenantID, false), nil
}

func (m *Memory) ListActiveEmployees(_ context.Context, tenantID payroll.TenantID) ([]payroll.Employee, error) {
	return m.listEmployees(tenantID, true), nil
}

func (m *Memory) listEmployees(tenantID payroll.TenantID, activeOnly bool) []payroll.Employee {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []payroll.Employee
	for _, e := range m.state.employees {
		if e.TenantID != tenantID {
			continue
		}
		if activeOnly && !e.IsActive {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out
}

// =============================================================================
// COMPONENTS
// =============================================================================

func (m *Memory) CreateComponent(_ context.Context, c *payroll.Component) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c.Code = payroll.NormalizeCode(c.Code)
	for _, existing := range m.state.components {
		if existing.TenantID == c.TenantID && existing.Code == c.Code {
			return &payroll.ValidationError{Message: "component code already in use for this tenant"}
		}
	}
	if c.ID == "" {
		c.ID = payroll.ComponentID(uuid.NewString())
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = m.now()
	}
	m.state.components[c.ID] = *c
	return nil
}

func (m *Memory) GetComponent(_ context.Context, tenantID payroll.TenantID, id payroll.ComponentID) (*payroll.Component, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.state.components[id]
	if !ok || c.TenantID != tenantID {
		return nil, &payroll.NotFoundError{Kind: "component", ID: string(id)}
	}
	return &c, nil
}

func (m *Memory) ListComponents(_ context.Context, tenantID payroll.TenantID) ([]payroll.Component, error) {
	return m.listComponents(tenantID, false), nil
}

func (m *Memory) ListActiveComponents(_ context.Context, tenantID payroll.TenantID) ([]payroll.Component, error) {
	return m.listComponents(tenantID, true), nil
}

func (m *Memory) listComponents(tenantID payroll.TenantID, activeOnly bool) []payroll.Component {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []payroll.Component
	for _, c := range m.state.components {
		if c.TenantID != tenantID {
			continue
		}
		if activeOnly && !c.IsActive {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// =============================================================================
// PERIODS
// =============================================================================

func (m *Memory) CreatePeriod(_ context.Context, p *payroll.Period) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.state.periods {
		if existing.TenantID == p.TenantID && existing.Month == p.Month && existing.Year == p.Year {
			return &payroll.ValidationError{Message: "a period for this month already exists"}
		}
	}
	if p.ID == "" {
		p.ID = payroll.PeriodID(uuid.NewString())
	}
	if p.Status == "" {
		p.Status = payroll.PeriodDraft
	}
	now := m.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	m.state.periods[p.ID] = *p
	return nil
}

func (m *Memory) GetPeriod(_ context.Context, tenantID payroll.TenantID, id payroll.PeriodID) (*payroll.Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.state.periods[id]
	if !ok || p.TenantID != tenantID {
		return nil, &payroll.NotFoundError{Kind: "period", ID: string(id)}
	}
	return &p, nil
}

func (m *Memory) ListPeriods(_ context.Context, tenantID payroll.TenantID) ([]payroll.Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []payroll.Period
	for _, p := range m.state.periods {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return out, nil
}

func (m *Memory) UpdatePeriod(_ context.Context, p *payroll.Period) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.state.periods[p.ID]; !ok {
		return &payroll.NotFoundError{Kind: "period", ID: string(p.ID)}
	}
	m.state.periods[p.ID] = *p
	return nil
}

func (m *Memory) DeletePeriod(_ context.Context, tenantID payroll.TenantID, id payroll.PeriodID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.state.periods[id]
	if !ok || p.TenantID != tenantID {
		return &payroll.NotFoundError{Kind: "period", ID: string(id)}
	}
	for entryID, e := range m.state.entries {
		if e.PeriodID != id {
			continue
		}
		m.deleteItemsLocked(entryID)
		delete(m.state.entries, entryID)
	}
	delete(m.state.periods, id)
	return nil
}

// =============================================================================
// ENTRIES
// =============================================================================

func (m *Memory) GetOrCreateEntry(_ context.Context, periodID payroll.PeriodID, employeeID payroll.EmployeeID) (*payroll.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.state.entries {
		if e.PeriodID == periodID && e.EmployeeID == employeeID {
			return &e, nil
		}
	}
	now := m.now()
	e := payroll.Entry{
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
	m.state.entries[e.ID] = e
	return &e, nil
}

func (m *Memory) GetEntry(_ context.Context, periodID payroll.PeriodID, id payroll.EntryID) (*payroll.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.state.entries[id]
	if !ok || e.PeriodID != periodID {
		return nil, &payroll.NotFoundError{Kind: "entry", ID: string(id)}
	}
	return &e, nil
}

func (m *Memory) ListEntries(_ context.Context, periodID payroll.PeriodID) ([]payroll.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []payroll.Entry
	for _, e := range m.state.entries {
		if e.PeriodID == periodID {
			out = append(out, e)
		}
	}
	// Order by employee name, matching the slip listing.
	sort.Slice(out, func(i, j int) bool {
		ni := m.state.employees[out[i].EmployeeID].FullName
		nj := m.state.employees[out[j].EmployeeID].FullName
		if ni != nj {
			return ni < nj
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) UpdateEntry(_ context.Context, e *payroll.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.state.entries[e.ID]; !ok {
		return &payroll.NotFoundError{Kind: "entry", ID: string(e.ID)}
	}
	e.UpdatedAt = m.now()
	m.state.entries[e.ID] = *e
	return nil
}

func (m *Memory) DeleteEntry(_ context.Context, id payroll.EntryID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.state.entries[id]; !ok {
		return &payroll.NotFoundError{Kind: "entry", ID: string(id)}
	}
	m.deleteItemsLocked(id)
	delete(m.state.entries, id)
	return nil
}

func (m *Memory) SetEntryStatusByPeriod(_ context.Context, periodID payroll.PeriodID, status payroll.PeriodStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, e := range m.state.entries {
		if e.PeriodID != periodID {
			continue
		}
		e.Status = status
		e.UpdatedAt = now
		m.state.entries[id] = e
	}
	return nil
}

// =============================================================================
// ITEMS
// =============================================================================

func (m *Memory) ReplaceItems(_ context.Context, entryID payroll.EntryID, items []payroll.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.state.entries[entryID]; !ok {
		return &payroll.NotFoundError{Kind: "entry", ID: string(entryID)}
	}
	m.deleteItemsLocked(entryID)
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = payroll.ItemID(uuid.NewString())
		}
		items[i].EntryID = entryID
		m.state.items[items[i].ID] = items[i]
	}
	return nil
}

func (m *Memory) InsertItem(_ context.Context, it *payroll.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.state.entries[it.EntryID]; !ok {
		return &payroll.NotFoundError{Kind: "entry", ID: string(it.EntryID)}
	}
	if it.ID == "" {
		it.ID = payroll.ItemID(uuid.NewString())
	}
	m.state.items[it.ID] = *it
	return nil
}

func (m *Memory) DeleteItem(_ context.Context, entryID payroll.EntryID, id payroll.ItemID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.state.items[id]
	if !ok || it.EntryID != entryID {
		return &payroll.NotFoundError{Kind: "item", ID: string(id)}
	}
	delete(m.state.items, id)
	return nil
}

func (m *Memory) ListItems(_ context.Context, entryID payroll.EntryID) ([]payroll.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []payroll.Item
	for _, it := range m.state.items {
		if it.EntryID == entryID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ComponentName != out[j].ComponentName {
			return out[i].ComponentName < out[j].ComponentName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) deleteItemsLocked(entryID payroll.EntryID) {
	for id, it := range m.state.items {
		if it.EntryID == entryID {
			delete(m.state.items, id)
		}
	}
}

// Compile-time check.
var _ payroll.TxStore = (*Memory)(nil)
