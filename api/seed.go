/*
seed.go - Demo data loader

PURPOSE:
  Loads a small, deterministic data set so the API is explorable right
  after startup: one school, three components, two employees, and one
  generated draft period. Dev convenience only - nothing here runs in a
  normal request path.

SEE ALSO:
  - server.go: mounts POST /api/seed
*/
package api

import (
	"context"
	"net/http"

	"github.com/warp/payroll-engine/payroll"
)

// Seed loads the demo data set and responds with the created tenant.
func (h *Handler) Seed(w http.ResponseWriter, r *http.Request) {
	tenant, err := SeedDemo(r.Context(), h.Store)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tenantDTO(tenant))
}

// SeedDemo creates the demo school with a generated January 2025 period.
func SeedDemo(ctx context.Context, store payroll.TxStore) (*payroll.Tenant, error) {
	tenant := &payroll.Tenant{
		Name:     "Sekolah Nusantara",
		Code:     "SCH001",
		Address:  "Jl. Pendidikan No. 1",
		IsActive: true,
	}
	if err := store.CreateTenant(ctx, tenant); err != nil {
		return nil, err
	}

	components := []payroll.Component{
		{Name: "Gaji Pokok", Code: "GPOK", Type: payroll.ComponentEarning, IsFixed: true, DefaultAmount: payroll.MustMoney("5000000")},
		{Name: "Tunjangan Transport", Code: "TRANS", Type: payroll.ComponentEarning, IsFixed: false, DefaultAmount: payroll.MustMoney("500000")},
		{Name: "Potongan BPJS", Code: "BPJS", Type: payroll.ComponentDeduction, IsFixed: true, DefaultAmount: payroll.MustMoney("200000")},
	}
	for i := range components {
		components[i].TenantID = tenant.ID
		components[i].IsActive = true
		if err := store.CreateComponent(ctx, &components[i]); err != nil {
			return nil, err
		}
	}

	employees := []payroll.Employee{
		{FullName: "Ani Prasetyo", ExternalID: "1987010101", Email: "ani@sekolah.test", Type: payroll.EmployeeTeacher, Position: "Guru IPA", BaseSalary: payroll.MustMoney("5200000")},
		{FullName: "Budi Santoso", ExternalID: "1988020202", Email: "budi@sekolah.test", Type: payroll.EmployeeStaff, Position: "Staf TU", BaseSalary: payroll.MustMoney("4500000")},
	}
	for i := range employees {
		employees[i].TenantID = tenant.ID
		employees[i].IsActive = true
		if err := store.CreateEmployee(ctx, &employees[i]); err != nil {
			return nil, err
		}
	}

	period := &payroll.Period{
		TenantID: tenant.ID,
		Month:    1,
		Year:     2025,
		Status:   payroll.PeriodDraft,
	}
	if err := store.CreatePeriod(ctx, period); err != nil {
		return nil, err
	}

	engine := payroll.NewGenerator(store)
	if err := engine.Generate(ctx, tenant.ID, period.ID, payroll.Manual{}, "seed"); err != nil {
		return nil, err
	}
	return tenant, nil
}
