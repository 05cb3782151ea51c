/*
dto.go - Request/response data structures

PURPOSE:
  JSON shapes for the HTTP API and the CSV row shape for register
  exports. Keeps wire formats out of the engine: handlers translate
  between these and the payroll domain types.

CONVENTIONS:
  - Amounts travel as decimal strings ("5000000", "125.50"), never as
    JSON numbers, so precision survives the trip
  - Timestamps are RFC3339
  - CSV columns are bound by header name via gocsv struct tags

SEE ALSO:
  - handlers.go: the only consumer of these types
*/
package api

import (
	"time"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// REQUESTS
// =============================================================================

type CreateTenantRequest struct {
	Name    string `json:"name"`
	Code    string `json:"code"`
	Address string `json:"address"`
}

type CreateEmployeeRequest struct {
	FullName   string `json:"full_name"`
	ExternalID string `json:"external_id"`
	Email      string `json:"email"`
	Type       string `json:"type"`
	Position   string `json:"position"`
	BaseSalary string `json:"base_salary"`
	IsActive   *bool  `json:"is_active"`
}

type CreateComponentRequest struct {
	Name          string `json:"name"`
	Code          string `json:"code"`
	Type          string `json:"type"`
	IsFixed       bool   `json:"is_fixed"`
	DefaultAmount string `json:"default_amount"`
	IsActive      *bool  `json:"is_active"`
}

type CreatePeriodRequest struct {
	Month int    `json:"month"`
	Year  int    `json:"year"`
	Note  string `json:"note"`
}

// GenerateRequest selects the generation method. For "import" the file
// travels as a multipart upload instead; see HandleGenerate.
type GenerateRequest struct {
	Method         string `json:"method"` // manual | copy | import
	SourcePeriodID string `json:"source_period_id"`
}

type AddEntryRequest struct {
	EmployeeID string `json:"employee_id"`
}

type AddItemRequest struct {
	ComponentID string `json:"component_id"`
	Amount      string `json:"amount"`
}

// =============================================================================
// RESPONSES
// =============================================================================

type TenantDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Code      string `json:"code"`
	Address   string `json:"address"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

type EmployeeDTO struct {
	ID         string `json:"id"`
	FullName   string `json:"full_name"`
	ExternalID string `json:"external_id,omitempty"`
	Email      string `json:"email"`
	Type       string `json:"type"`
	Position   string `json:"position,omitempty"`
	BaseSalary string `json:"base_salary"`
	IsActive   bool   `json:"is_active"`
	CreatedAt  string `json:"created_at"`
}

type ComponentDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Code          string `json:"code"`
	Type          string `json:"type"`
	IsFixed       bool   `json:"is_fixed"`
	DefaultAmount string `json:"default_amount"`
	IsActive      bool   `json:"is_active"`
	CreatedAt     string `json:"created_at"`
}

type PeriodDTO struct {
	ID          string `json:"id"`
	Month       int    `json:"month"`
	Year        int    `json:"year"`
	Label       string `json:"label"`
	Status      string `json:"status"`
	Note        string `json:"note,omitempty"`
	GeneratedAt string `json:"generated_at,omitempty"`
	GeneratedBy string `json:"generated_by,omitempty"`
	FinalizedAt string `json:"finalized_at,omitempty"`
	FinalizedBy string `json:"finalized_by,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// EntryDTO is the slip data: totals plus per-item name/type/amount.
// PDF/HTML rendering consumes exactly these fields.
type EntryDTO struct {
	ID              string    `json:"id"`
	EmployeeID      string    `json:"employee_id"`
	EmployeeName    string    `json:"employee_name,omitempty"`
	Status          string    `json:"status"`
	TotalEarnings   string    `json:"total_earnings"`
	TotalDeductions string    `json:"total_deductions"`
	NetPay          string    `json:"net_pay"`
	Items           []ItemDTO `json:"items,omitempty"`
}

type ItemDTO struct {
	ID            string `json:"id"`
	ComponentID   string `json:"component_id"`
	ComponentName string `json:"component_name"`
	ComponentType string `json:"component_type"`
	Amount        string `json:"amount"`
}

// registerRow is one line of the payroll register CSV export.
type registerRow struct {
	Employee        string `csv:"employee"`
	Email           string `csv:"email"`
	TotalEarnings   string `csv:"total_earnings"`
	TotalDeductions string `csv:"total_deductions"`
	NetPay          string `csv:"net_pay"`
	Status          string `csv:"status"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func tenantDTO(t *payroll.Tenant) TenantDTO {
	return TenantDTO{
		ID:        string(t.ID),
		Name:      t.Name,
		Code:      t.Code,
		Address:   t.Address,
		IsActive:  t.IsActive,
		CreatedAt: t.CreatedAt.Format(time.RFC3339),
	}
}

func employeeDTO(e *payroll.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:         string(e.ID),
		FullName:   e.FullName,
		ExternalID: e.ExternalID,
		Email:      e.Email,
		Type:       string(e.Type),
		Position:   e.Position,
		BaseSalary: e.BaseSalary.String(),
		IsActive:   e.IsActive,
		CreatedAt:  e.CreatedAt.Format(time.RFC3339),
	}
}

func componentDTO(c *payroll.Component) ComponentDTO {
	return ComponentDTO{
		ID:            string(c.ID),
		Name:          c.Name,
		Code:          c.Code,
		Type:          string(c.Type),
		IsFixed:       c.IsFixed,
		DefaultAmount: c.DefaultAmount.String(),
		IsActive:      c.IsActive,
		CreatedAt:     c.CreatedAt.Format(time.RFC3339),
	}
}

func periodDTO(p *payroll.Period) PeriodDTO {
	dto := PeriodDTO{
		ID:          string(p.ID),
		Month:       p.Month,
		Year:        p.Year,
		Label:       p.Label(),
		Status:      string(p.Status),
		Note:        p.Note,
		GeneratedBy: p.GeneratedBy,
		FinalizedBy: p.FinalizedBy,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
	if p.GeneratedAt != nil {
		dto.GeneratedAt = p.GeneratedAt.Format(time.RFC3339)
	}
	if p.FinalizedAt != nil {
		dto.FinalizedAt = p.FinalizedAt.Format(time.RFC3339)
	}
	return dto
}

func entryDTO(e *payroll.Entry, employeeName string, items []payroll.Item) EntryDTO {
	dto := EntryDTO{
		ID:              string(e.ID),
		EmployeeID:      string(e.EmployeeID),
		EmployeeName:    employeeName,
		Status:          string(e.Status),
		TotalEarnings:   e.TotalEarnings.String(),
		TotalDeductions: e.TotalDeductions.String(),
		NetPay:          e.NetPay.String(),
	}
	for i := range items {
		dto.Items = append(dto.Items, ItemDTO{
			ID:            string(items[i].ID),
			ComponentID:   string(items[i].ComponentID),
			ComponentName: items[i].ComponentName,
			ComponentType: string(items[i].ComponentType),
			Amount:        items[i].Amount.String(),
		})
	}
	return dto
}
