package payroll_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/payroll/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type fixture struct {
	ctx    context.Context
	store  *store.Memory
	engine *payroll.Generator
	tenant *payroll.Tenant
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		ctx:   context.Background(),
		store: store.NewMemory(),
	}
	f.engine = payroll.NewGenerator(f.store)
	f.tenant = &payroll.Tenant{Name: "Sekolah Nusantara", Code: "SCH001", IsActive: true}
	require.NoError(t, f.store.CreateTenant(f.ctx, f.tenant))
	return f
}

func (f *fixture) component(t *testing.T, name, code string, ctype payroll.ComponentType, fixed bool, amount string) *payroll.Component {
	t.Helper()
	c := &payroll.Component{
		TenantID:      f.tenant.ID,
		Name:          name,
		Code:          code,
		Type:          ctype,
		IsFixed:       fixed,
		DefaultAmount: payroll.MustMoney(amount),
		IsActive:      true,
	}
	require.NoError(t, f.store.CreateComponent(f.ctx, c))
	return c
}

func (f *fixture) employee(t *testing.T, name, email string, active bool) *payroll.Employee {
	t.Helper()
	e := &payroll.Employee{
		TenantID: f.tenant.ID,
		FullName: name,
		Email:    email,
		Type:     payroll.EmployeeTeacher,
		IsActive: active,
	}
	require.NoError(t, f.store.CreateEmployee(f.ctx, e))
	return e
}

func (f *fixture) period(t *testing.T, month, year int) *payroll.Period {
	t.Helper()
	p := &payroll.Period{TenantID: f.tenant.ID, Month: month, Year: year}
	require.NoError(t, f.store.CreatePeriod(f.ctx, p))
	return p
}

func (f *fixture) entries(t *testing.T, periodID payroll.PeriodID) []payroll.Entry {
	t.Helper()
	entries, err := f.store.ListEntries(f.ctx, periodID)
	require.NoError(t, err)
	return entries
}

func (f *fixture) items(t *testing.T, entryID payroll.EntryID) []payroll.Item {
	t.Helper()
	items, err := f.store.ListItems(f.ctx, entryID)
	require.NoError(t, err)
	return items
}

// standardCatalog sets up the fixed earning/deduction pair used across
// the generation tests.
func (f *fixture) standardCatalog(t *testing.T) {
	f.component(t, "Gaji Pokok", "GPOK", payroll.ComponentEarning, true, "5000000")
	f.component(t, "Potongan BPJS", "BPJS", payroll.ComponentDeduction, true, "200000")
}

func money(s string) payroll.Money { return payroll.MustMoney(s) }

// =============================================================================
// MANUAL GENERATION
// =============================================================================

func TestGenerate_Manual_FixedDefaults(t *testing.T) {
	// GIVEN: GPOK (earning, fixed, 5000000) and BPJS (deduction, fixed, 200000)
	// WHEN: manual generation for one active employee
	// THEN: exactly two items, totals 5000000/200000, net pay 4800000

	f := newFixture(t)
	f.standardCatalog(t)
	f.employee(t, "Ani Prasetyo", "ani@sekolah.test", true)
	period := f.period(t, 1, 2025)

	err := f.engine.Generate(f.ctx, f.tenant.ID, period.ID, payroll.Manual{}, "admin")
	require.NoError(t, err)

	entries := f.entries(t, period.ID)
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.True(t, entry.TotalEarnings.Equal(money("5000000")), "earnings: %s", entry.TotalEarnings)
	assert.True(t, entry.TotalDeductions.Equal(money("200000")), "deductions: %s", entry.TotalDeductions)
	assert.True(t, entry.NetPay.Equal(money("4800000")), "net pay: %s", entry.NetPay)

	items := f.items(t, entry.ID)
	require.Len(t, items, 2)
	byCode := map[string]payroll.Item{}
	for _, it := range items {
		byCode[it.ComponentName] = it
	}
	assert.True(t, byCode["Gaji Pokok"].Amount.Equal(money("5000000")))
	assert.True(t, byCode["Potongan BPJS"].Amount.Equal(money("200000")))
}

func TestGenerate_Manual_VariableComponentDefaultsToZero(t *testing.T) {
	// GIVEN: a variable component with a non-zero default amount
	// WHEN: manual generation (no overrides)
	// THEN: the item amount is zero, not the default

	f := newFixture(t)
	f.component(t, "Tunjangan Transport", "TRANS", payroll.ComponentEarning, false, "500000")
	f.employee(t, "Ani Prasetyo", "ani@sekolah.test", true)
	period := f.period(t, 1, 2025)

	require.NoError(t, f.engine.Generate(f.ctx, f.tenant.ID, period.ID, payroll.Manual{}, "admin"))

	entries := f.entries(t, period.ID)
	require.Len(t, entries, 1)
	items := f.items(t, entries[0].ID)
	require.Len(t, items, 1)
	assert.True(t, items[0].Amount.IsZero())
	assert.True(t, entries[0].NetPay.IsZero())
}

func TestGenerate_Manual_Idempotent(t *testing.T) {
	// GIVEN: a period already generated manually
	// WHEN: generating again with an unchanged catalog
	// THEN: the item set is fully replaced, not appended; totals identical

	f := newFixture(t)
	f.standardCatalog(t)
	f.employee(t, "Ani Prasetyo", "ani@sekolah.test", true)
	period := f.period(t, 1, 2025)

	require.NoError(t, f.engine.Generate(f.ctx, f.tenant.ID, period.ID, payroll.Manual{}, "admin"))
	first := f.entries(t, period.ID)
	require.Len(t, first, 1)
	firstItems := f.items(t, first[0].ID)

	require.NoError(t, f.engine.Generate(f.ctx, f.tenant.ID, period.ID, payroll.Manual{}, "admin"))
	second := f.entries(t, period.ID)
	require.Len(t, second, 1, "re-running must not add entries")
	secondItems := f.items(t, second[0].ID)

	require.Len(t, secondItems, len(firstItems), "item set must be replaced, not appended")
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.True(t, first[0].NetPay.Equal(second[0].NetPay))
	assert.True(t, first[0].TotalEarnings.Equal(second[0].TotalEarnings))
	assert.True(t, first[0].TotalDeductions.Equal(second[0].TotalDeductions))
}

func TestGenerate_Manual_SkipsInactiveEmployees(t *testing.T) {
	// GIVEN: one active and one inactive employee
	// WHEN: manual generation
	// THEN: only the active employee gets an entry

	f := newFixture(t)
	f.standardCatalog(t)
	active := f.employee(t, "Ani Prasetyo", "ani@sekolah.test", true)
	f.employee(t, "Budi Santoso", "budi@sekolah.test", false)
	period := f.period(t, 1, 2025)

	require.NoError(t, f.engine.Generate(f.ctx, f.tenant.ID, period.ID, payroll.Manual{}, "admin"))

	entries := f.entries(t, period.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, active.ID, entries[0].EmployeeID)
}

func TestGenerate_StampsMetadataButKeepsDraft(t *testing.T) {
	// Generation stamps who/when but does not change the period status.

	f := newFixture(t)
	f.standardCatalog(t)
	f.employee(t, "Ani Prasetyo", "ani@sekolah.test", true)
	period := f.period(t, 1, 2025)

	require.NoError(t, f.engine.Generate(f.ctx, f.tenant.ID, period.ID, payroll.Manual{}, "admin"))

	got, err := f.store.GetPeriod(f.ctx, f.tenant.ID, period.ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.PeriodDraft, got.Status)
	require.NotNil(t, got.GeneratedAt)
	assert.Equal(t, "admin", got.GeneratedBy)
}

// =============================================================================
// PRECONDITIONS
// =============================================================================

func TestGenerate_NoActiveComponents_Fails(t *testing.T) {
	f := newFixture(t)
	f.employee(t, "Ani Prasetyo", "ani@sekolah.test", true)
	period := f.period(t, 1, 2025)

	err := f.engine.Generate(f.ctx, f.tenant.ID, period.ID, payroll.Manual{}, "admin")

	require.ErrorIs(t, err, payroll.ErrPrecondition)
	assert.EqualError(t, err, "no active components")
	assert.Empty(t, f.entries(t, period.ID), "nothing may persist")
}

func TestGenerate_NoActiveEmployees_Fails(t *testing.T) {
	f := newFixture(t)
	f.standardCatalog(t)
	f.employee(t, "Budi Santoso", "budi@sekolah.test", false)
	period := f.period(t, 1, 2025)

	err := f.engine.Generate(f.ctx, f.tenant.ID, period.ID, payroll.Manual{}, "admin")

	require.ErrorIs(t, err, payroll.ErrPrecondition)
	assert.EqualError(t, err, "no active employees")
	assert.Empty(t, f.entries(t, period.ID))
}

func TestGenerate_CopyWithoutSource_Fails(t *testing.T) {
	f := newFixture(t)
	f.standardCatalog(t)
	f.employee(t, "Ani Prasetyo", "ani@sekolah.test", true)
	period := f.period(t, 1, 2025)

	err := f.engine.Generate(f.ctx, f.tenant.ID, period.ID, payroll.CopyFrom{}, "admin")

	require.ErrorIs(t, err, payroll.ErrPrecondition)
}

func TestGenerate_ImportWithoutFile_Fails(t *testing.T) {
	f := newFixture(t)
	f.standardCatalog(t)
	f.employee(t, "Ani Prasetyo", "ani@sekolah.test", true)
	period := f.period(t, 1, 2025)

	err := f.engine.Generate(f.ctx, f.tenant.ID, period.ID, payroll.ImportFile{}, "admin")

	require.ErrorIs(t, err, payroll.ErrPrecondition)
}

func TestGenerate_FinalPeriod_Rejected(t *testing.T) {
	// GIVEN: a finalized period
	// WHEN: generating
	// THEN: StateError, entries unchanged

	f := newFixture(t)
	f.standardCatalog(t)
	f.employee(t, "Ani Prasetyo", "ani@sekolah.test", true)
	period := f.period(t, 1, 2025)
	require.NoError(t, f.engine.Generate(f.ctx, f.tenant.ID, period.ID, payroll.Manual{}, "admin"))
	require.NoError(t, f.engine.Finalize(f.ctx, f.tenant.ID, period.ID, "admin"))

	err := f.engine.Generate(f.ctx, f.tenant.ID, period.ID, payroll.Manual{}, "admin")

	var stateErr *payroll.StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, payroll.PeriodDraft, stateErr.Requires)
}

// =============================================================================
// COPY GENERATION
// =============================================================================

func TestGenerate_Copy_ReproducesSourceSnapshot(t *testing.T) {
	// GIVEN: a generated January period, then a catalog rename and a new
	//        component added afterwards
	// WHEN: copying January into February
	// THEN: February mirrors January's snapshot exactly - old name, old
	//        amounts, no trace of the new component

	f := newFixture(t)
	gpok := f.component(t, "Gaji Pokok", "GPOK", payroll.ComponentEarning, true, "5000000")
	f.component(t, "Potongan BPJS", "BPJS", payroll.ComponentDeduction, true, "200000")
	f.employee(t, "Ani Prasetyo", "ani@sekolah.test", true)
	january := f.period(t, 1, 2025)
	require.NoError(t, f.engine.Generate(f.ctx, f.tenant.ID, january.ID, payroll.Manual{}, "admin"))

	// Catalog changes after January was generated.
	f.component(t, "Tunjangan Makan", "MEAL", payroll.ComponentEarning, true, "300000")

	february := f.period(t, 2, 2025)
	err := f.engine.Generate(f.ctx, f.tenant.ID, february.ID,
		payroll.CopyFrom{SourcePeriodID: january.ID}, "admin")
	require.NoError(t, err)

	entries := f.entries(t, february.ID)
	require.Len(t, entries, 1)
	items := f.items(t, entries[0].ID)
	require.Len(t, items, 2, "copy must use the source item set, not the live catalog")

	names := []string{items[0].ComponentName, items[1].ComponentName}
	assert.ElementsMatch(t, []string{"Gaji Pokok", "Potongan BPJS"}, names)
	assert.True(t, entries[0].NetPay.Equal(money("4800000")))

	for _, it := range items {
		if it.ComponentID == gpok.ID {
			assert.True(t, it.Amount.Equal(money("5000000")))
		}
	}
}

func TestGenerate_Copy_IteratesSourceEntriesNotRoster(t *testing.T) {
	// GIVEN: January generated for two employees
	// WHEN: an employee is hired afterwards and January is copied into
	//        February
	// THEN: only the two source entries are mirrored; the new hire has no
	//        January entry and therefore gets none in February either

	f := newFixture(t)
	f.standardCatalog(t)
	ani := f.employee(t, "Ani Prasetyo", "ani@sekolah.test", true)
	budi := f.employee(t, "Budi Santoso", "budi@sekolah.test", true)
	january := f.period(t, 1, 2025)
	require.NoError(t, f.engine.Generate(f.ctx, f.tenant.ID, january.ID, payroll.Manual{}, "admin"))

	// Roster changes after January.
	f.employee(t, "Citra Lestari", "citra@sekolah.test", true)

	february := f.period(t, 2, 2025)
	require.NoError(t, f.engine.Generate(f.ctx, f.tenant.ID, february.ID,
		payroll.CopyFrom{SourcePeriodID: january.ID}, "admin"))

	entries := f.entries(t, february.ID)
	require.Len(t, entries, 2, "copy mirrors source entries only")
	got := map[payroll.EmployeeID]bool{}
	for _, e := range entries {
		got[e.EmployeeID] = true
	}
	assert.True(t, got[ani.ID])
	assert.True(t, got[budi.ID])
}

func TestGenerate_Copy_UnknownSourcePeriod_Fails(t *testing.T) {
	f := newFixture(t)
	f.standardCatalog(t)
	f.employee(t, "Ani Prasetyo", "ani@sekolah.test", true)
	period := f.period(t, 2, 2025)

	err := f.engine.Generate(f.ctx, f.tenant.ID, period.ID,
		payroll.CopyFrom{SourcePeriodID: "missing"}, "admin")

	require.ErrorIs(t, err, payroll.ErrPrecondition)
	assert.Empty(t, f.entries(t, period.ID))
}

func TestGenerate_Copy_ForeignTenantSource_Fails(t *testing.T) {
	// A source period belonging to another tenant is invisible and must
	// be rejected, not copied.

	f := newFixture(t)
	f.standardCatalog(t)
	f.employee(t, "Ani Prasetyo", "ani@sekolah.test", true)

	other := &payroll.Tenant{Name: "Other School", Code: "SCH002", IsActive: true}
	require.NoError(t, f.store.CreateTenant(f.ctx, other))
	foreign := &payroll.Period{TenantID: other.ID, Month: 1, Year: 2025}
	require.NoError(t, f.store.CreatePeriod(f.ctx, foreign))

	period := f.period(t, 2, 2025)
	err := f.engine.Generate(f.ctx, f.tenant.ID, period.ID,
		payroll.CopyFrom{SourcePeriodID: foreign.ID}, "admin")

	require.ErrorIs(t, err, payroll.ErrPrecondition)
	assert.Empty(t, f.entries(t, period.ID))
}

// =============================================================================
// NET PAY PROPERTY
// =============================================================================

func TestGenerate_NetPayAlwaysEarningsMinusDeductions(t *testing.T) {
	f := newFixture(t)
	f.component(t, "Gaji Pokok", "GPOK", payroll.ComponentEarning, true, "5200000")
	f.component(t, "Tunjangan Transport", "TRANS", payroll.ComponentEarning, true, "450000")
	f.component(t, "Potongan BPJS", "BPJS", payroll.ComponentDeduction, true, "200000")
	f.component(t, "Potongan Koperasi", "KOP", payroll.ComponentDeduction, true, "75000.50")
	f.employee(t, "Ani Prasetyo", "ani@sekolah.test", true)
	f.employee(t, "Budi Santoso", "budi@sekolah.test", true)
	period := f.period(t, 3, 2025)

	require.NoError(t, f.engine.Generate(f.ctx, f.tenant.ID, period.ID, payroll.Manual{}, "admin"))

	for _, entry := range f.entries(t, period.ID) {
		expected := entry.TotalEarnings.Sub(entry.TotalDeductions)
		assert.True(t, entry.NetPay.Equal(expected),
			"net %s != earnings %s - deductions %s", entry.NetPay, entry.TotalEarnings, entry.TotalDeductions)
		assert.True(t, entry.NetPay.Equal(money("5374999.50")))
	}
}
