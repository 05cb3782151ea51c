package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/payroll"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestTenant(t *testing.T, s *Store) *payroll.Tenant {
	t.Helper()
	tenant := &payroll.Tenant{Name: "Sekolah Nusantara", Code: "SCH001", IsActive: true}
	require.NoError(t, s.CreateTenant(context.Background(), tenant))
	return tenant
}

// =============================================================================
// ROUNDTRIPS
// =============================================================================

func TestEmployeeRoundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tenant := newTestTenant(t, s)

	e := &payroll.Employee{
		TenantID:   tenant.ID,
		FullName:   "Ani Prasetyo",
		ExternalID: "1987010101",
		Email:      "ANI@Sekolah.Test",
		Type:       payroll.EmployeeTeacher,
		Position:   "Guru IPA",
		BaseSalary: payroll.MustMoney("5200000.50"),
		IsActive:   true,
	}
	require.NoError(t, s.CreateEmployee(ctx, e))
	require.NotEmpty(t, e.ID)

	got, err := s.GetEmployee(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "ani@sekolah.test", got.Email, "email is normalized on create")
	assert.True(t, got.BaseSalary.Equal(payroll.MustMoney("5200000.50")), "amount survives the TEXT roundtrip exactly")
	assert.Equal(t, payroll.EmployeeTeacher, got.Type)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestPeriodRoundtrip_NullableTimestamps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tenant := newTestTenant(t, s)

	p := &payroll.Period{TenantID: tenant.ID, Month: 1, Year: 2025, Note: "first run"}
	require.NoError(t, s.CreatePeriod(ctx, p))

	got, err := s.GetPeriod(ctx, tenant.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.PeriodDraft, got.Status, "status defaults to draft")
	assert.Nil(t, got.GeneratedAt)
	assert.Nil(t, got.FinalizedAt)
	assert.Equal(t, "first run", got.Note)
}

// =============================================================================
// UNIQUENESS AND SCOPING
// =============================================================================

func TestUniqueConstraintsSurfaceAsValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tenant := newTestTenant(t, s)

	dup := &payroll.Tenant{Name: "Copy", Code: "SCH001", IsActive: true}
	assert.ErrorIs(t, s.CreateTenant(ctx, dup), payroll.ErrValidation)

	first := &payroll.Employee{TenantID: tenant.ID, FullName: "Ani", Email: "ani@sekolah.test", Type: payroll.EmployeeTeacher, IsActive: true}
	require.NoError(t, s.CreateEmployee(ctx, first))
	second := &payroll.Employee{TenantID: tenant.ID, FullName: "Impostor", Email: "Ani@Sekolah.Test", Type: payroll.EmployeeStaff, IsActive: true}
	assert.ErrorIs(t, s.CreateEmployee(ctx, second), payroll.ErrValidation,
		"normalized email collides")

	c := &payroll.Component{TenantID: tenant.ID, Name: "Gaji Pokok", Code: "gpok", Type: payroll.ComponentEarning, IsFixed: true, DefaultAmount: payroll.NewMoney(1), IsActive: true}
	require.NoError(t, s.CreateComponent(ctx, c))
	c2 := &payroll.Component{TenantID: tenant.ID, Name: "Other", Code: "GPOK", Type: payroll.ComponentEarning, DefaultAmount: payroll.Zero(), IsActive: true}
	assert.ErrorIs(t, s.CreateComponent(ctx, c2), payroll.ErrValidation)

	p := &payroll.Period{TenantID: tenant.ID, Month: 1, Year: 2025}
	require.NoError(t, s.CreatePeriod(ctx, p))
	p2 := &payroll.Period{TenantID: tenant.ID, Month: 1, Year: 2025}
	assert.ErrorIs(t, s.CreatePeriod(ctx, p2), payroll.ErrValidation)
}

func TestSameCodeAllowedAcrossTenants(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := newTestTenant(t, s)
	b := &payroll.Tenant{Name: "Other School", Code: "SCH002", IsActive: true}
	require.NoError(t, s.CreateTenant(ctx, b))

	for _, tenant := range []*payroll.Tenant{a, b} {
		c := &payroll.Component{TenantID: tenant.ID, Name: "Gaji Pokok", Code: "GPOK", Type: payroll.ComponentEarning, IsFixed: true, DefaultAmount: payroll.NewMoney(1), IsActive: true}
		require.NoError(t, s.CreateComponent(ctx, c))
	}
}

func TestTenantScopedLookups(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := newTestTenant(t, s)
	b := &payroll.Tenant{Name: "Other School", Code: "SCH002", IsActive: true}
	require.NoError(t, s.CreateTenant(ctx, b))

	p := &payroll.Period{TenantID: a.ID, Month: 1, Year: 2025}
	require.NoError(t, s.CreatePeriod(ctx, p))

	_, err := s.GetPeriod(ctx, b.ID, p.ID)
	assert.True(t, payroll.IsNotFound(err), "another tenant's period is invisible")

	got, err := s.GetPeriod(ctx, a.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestWithTx_RollsBackOnError(t *testing.T) {
	// GIVEN: a transaction that creates an entry then fails
	// WHEN: WithTx returns
	// THEN: the entry is not visible outside the transaction

	s := newTestStore(t)
	ctx := context.Background()
	tenant := newTestTenant(t, s)

	emp := &payroll.Employee{TenantID: tenant.ID, FullName: "Ani", Email: "ani@sekolah.test", Type: payroll.EmployeeTeacher, IsActive: true}
	require.NoError(t, s.CreateEmployee(ctx, emp))
	p := &payroll.Period{TenantID: tenant.ID, Month: 1, Year: 2025}
	require.NoError(t, s.CreatePeriod(ctx, p))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx payroll.Store) error {
		if _, err := tx.GetOrCreateEntry(ctx, p.ID, emp.ID); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	entries, err := s.ListEntries(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// =============================================================================
// ENGINE ON SQLITE
// =============================================================================

func TestEngineEndToEnd(t *testing.T) {
	// The full generate -> finalize -> cancel cycle against real SQL.

	s := newTestStore(t)
	ctx := context.Background()
	tenant := newTestTenant(t, s)

	components := []payroll.Component{
		{TenantID: tenant.ID, Name: "Gaji Pokok", Code: "GPOK", Type: payroll.ComponentEarning, IsFixed: true, DefaultAmount: payroll.MustMoney("5000000"), IsActive: true},
		{TenantID: tenant.ID, Name: "Potongan BPJS", Code: "BPJS", Type: payroll.ComponentDeduction, IsFixed: true, DefaultAmount: payroll.MustMoney("200000"), IsActive: true},
	}
	for i := range components {
		require.NoError(t, s.CreateComponent(ctx, &components[i]))
	}
	emp := &payroll.Employee{TenantID: tenant.ID, FullName: "Ani Prasetyo", Email: "ani@sekolah.test", Type: payroll.EmployeeTeacher, IsActive: true}
	require.NoError(t, s.CreateEmployee(ctx, emp))
	p := &payroll.Period{TenantID: tenant.ID, Month: 1, Year: 2025}
	require.NoError(t, s.CreatePeriod(ctx, p))

	engine := payroll.NewGenerator(s)
	require.NoError(t, engine.Generate(ctx, tenant.ID, p.ID, payroll.Manual{}, "admin"))

	entries, err := s.ListEntries(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].NetPay.Equal(payroll.MustMoney("4800000")))

	items, err := s.ListItems(ctx, entries[0].ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	require.NoError(t, engine.Finalize(ctx, tenant.ID, p.ID, "principal"))
	entries, err = s.ListEntries(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.PeriodFinal, entries[0].Status)

	require.NoError(t, engine.Cancel(ctx, tenant.ID, p.ID))
	got, err := s.GetPeriod(ctx, tenant.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.PeriodDraft, got.Status)
	assert.Nil(t, got.FinalizedAt)
}

func TestDeletePeriodCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tenant := newTestTenant(t, s)

	c := &payroll.Component{TenantID: tenant.ID, Name: "Gaji Pokok", Code: "GPOK", Type: payroll.ComponentEarning, IsFixed: true, DefaultAmount: payroll.NewMoney(1), IsActive: true}
	require.NoError(t, s.CreateComponent(ctx, c))
	emp := &payroll.Employee{TenantID: tenant.ID, FullName: "Ani", Email: "ani@sekolah.test", Type: payroll.EmployeeTeacher, IsActive: true}
	require.NoError(t, s.CreateEmployee(ctx, emp))
	p := &payroll.Period{TenantID: tenant.ID, Month: 1, Year: 2025}
	require.NoError(t, s.CreatePeriod(ctx, p))

	engine := payroll.NewGenerator(s)
	require.NoError(t, engine.Generate(ctx, tenant.ID, p.ID, payroll.Manual{}, "admin"))
	entries, err := s.ListEntries(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	entryID := entries[0].ID

	require.NoError(t, engine.DeletePeriod(ctx, tenant.ID, p.ID))

	_, err = s.GetPeriod(ctx, tenant.ID, p.ID)
	assert.True(t, payroll.IsNotFound(err))
	items, err := s.ListItems(ctx, entryID)
	require.NoError(t, err)
	assert.Empty(t, items, "items go with the period via FK cascade")
}
