/*
handlers.go - HTTP handlers for the payroll API

PURPOSE:
  Translates HTTP requests into engine calls and domain records into
  DTOs. Handlers stay thin: every rule (preconditions, lifecycle guards,
  tenant scoping) lives in the payroll package.

HANDLER PATTERN:
  1. Parse/validate input
  2. Call the engine or store
  3. Serialize response
  4. Map errors to status codes

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: precondition/validation errors, tenant mismatch
  - 404: record not found
  - 409: lifecycle violations (editing a final period)
  - 500: internal errors (message withheld, detail logged)

ACTOR:
  The X-Actor header names who generated/finalized a period. There is no
  authentication layer here; deployments front this API with one.

SEE ALSO:
  - dto.go: request/response shapes
  - server.go: routing and middleware
*/
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gocarina/gocsv"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  payroll.TxStore
	Engine *payroll.Generator
}

// NewHandler creates a new handler backed by the given store.
func NewHandler(store payroll.TxStore) *Handler {
	return &Handler{
		Store:  store,
		Engine: payroll.NewGenerator(store),
	}
}

// =============================================================================
// TENANT HANDLERS
// =============================================================================

func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Code == "" {
		writeError(w, http.StatusBadRequest, "name and code are required")
		return
	}

	tenant := &payroll.Tenant{
		Name:     req.Name,
		Code:     req.Code,
		Address:  req.Address,
		IsActive: true,
	}
	if err := h.Store.CreateTenant(r.Context(), tenant); err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tenantDTO(tenant))
}

func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.Store.ListTenants(r.Context())
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	dtos := make([]TenantDTO, len(tenants))
	for i := range tenants {
		dtos[i] = tenantDTO(&tenants[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.Store.GetTenant(r.Context(), tenantID(r))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tenantDTO(tenant))
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FullName == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "full_name and email are required")
		return
	}
	empType := payroll.EmployeeType(req.Type)
	if empType != payroll.EmployeeTeacher && empType != payroll.EmployeeStaff {
		writeError(w, http.StatusBadRequest, "type must be teacher or staff")
		return
	}
	salary := payroll.Zero()
	if req.BaseSalary != "" {
		var err error
		if salary, err = payroll.ParseMoney(req.BaseSalary); err != nil || salary.IsNegative() {
			writeError(w, http.StatusBadRequest, "base_salary must be a non-negative decimal")
			return
		}
	}

	employee := &payroll.Employee{
		TenantID:   tenantID(r),
		FullName:   req.FullName,
		ExternalID: req.ExternalID,
		Email:      req.Email,
		Type:       empType,
		Position:   req.Position,
		BaseSalary: salary,
		IsActive:   req.IsActive == nil || *req.IsActive,
	}
	if err := h.Store.CreateEmployee(r.Context(), employee); err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, employeeDTO(employee))
}

func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context(), tenantID(r))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	dtos := make([]EmployeeDTO, len(employees))
	for i := range employees {
		dtos[i] = employeeDTO(&employees[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// COMPONENT HANDLERS
// =============================================================================

func (h *Handler) CreateComponent(w http.ResponseWriter, r *http.Request) {
	var req CreateComponentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Code == "" {
		writeError(w, http.StatusBadRequest, "name and code are required")
		return
	}
	compType := payroll.ComponentType(req.Type)
	if compType != payroll.ComponentEarning && compType != payroll.ComponentDeduction {
		writeError(w, http.StatusBadRequest, "type must be earning or deduction")
		return
	}
	amount := payroll.Zero()
	if req.DefaultAmount != "" {
		var err error
		if amount, err = payroll.ParseMoney(req.DefaultAmount); err != nil || amount.IsNegative() {
			writeError(w, http.StatusBadRequest, "default_amount must be a non-negative decimal")
			return
		}
	}

	component := &payroll.Component{
		TenantID:      tenantID(r),
		Name:          req.Name,
		Code:          req.Code,
		Type:          compType,
		IsFixed:       req.IsFixed,
		DefaultAmount: amount,
		IsActive:      req.IsActive == nil || *req.IsActive,
	}
	if err := h.Store.CreateComponent(r.Context(), component); err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, componentDTO(component))
}

func (h *Handler) ListComponents(w http.ResponseWriter, r *http.Request) {
	components, err := h.Store.ListComponents(r.Context(), tenantID(r))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	dtos := make([]ComponentDTO, len(components))
	for i := range components {
		dtos[i] = componentDTO(&components[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// PERIOD HANDLERS
// =============================================================================

func (h *Handler) CreatePeriod(w http.ResponseWriter, r *http.Request) {
	var req CreatePeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Month < 1 || req.Month > 12 {
		writeError(w, http.StatusBadRequest, "month must be between 1 and 12")
		return
	}
	if req.Year < 1 {
		writeError(w, http.StatusBadRequest, "year is required")
		return
	}

	period := &payroll.Period{
		TenantID: tenantID(r),
		Month:    req.Month,
		Year:     req.Year,
		Note:     req.Note,
		Status:   payroll.PeriodDraft,
	}
	if err := h.Store.CreatePeriod(r.Context(), period); err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, periodDTO(period))
}

func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := h.Store.ListPeriods(r.Context(), tenantID(r))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	dtos := make([]PeriodDTO, len(periods))
	for i := range periods {
		dtos[i] = periodDTO(&periods[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetPeriod(w http.ResponseWriter, r *http.Request) {
	period, err := h.Store.GetPeriod(r.Context(), tenantID(r), periodID(r))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, periodDTO(period))
}

func (h *Handler) DeletePeriod(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.DeletePeriod(r.Context(), tenantID(r), periodID(r)); err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Generate runs payroll generation for the period.
//
// Accepts either a JSON body (manual/copy) or a multipart form with
// fields "method", "source_period_id", and file part "file" (import).
// Employees absent from an import file are not an error; they fall back
// to the fixed-default/zero rule.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var methodName, sourceID string
	var method payroll.Method

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		methodName = r.FormValue("method")
		sourceID = r.FormValue("source_period_id")
	} else {
		var req GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		methodName = req.Method
		sourceID = req.SourcePeriodID
	}

	switch methodName {
	case "manual":
		method = payroll.Manual{}
	case "copy":
		method = payroll.CopyFrom{SourcePeriodID: payroll.PeriodID(sourceID)}
	case "import":
		file, _, err := r.FormFile("file")
		if err != nil {
			// Engine reports the missing-file precondition uniformly.
			method = payroll.ImportFile{}
		} else {
			defer file.Close()
			method = payroll.ImportFile{Source: file}
		}
	default:
		writeError(w, http.StatusBadRequest, "method must be manual, copy, or import")
		return
	}

	if err := h.Engine.Generate(r.Context(), tenantID(r), periodID(r), method, actor(r)); err != nil {
		h.writeEngineError(w, err)
		return
	}

	period, err := h.Store.GetPeriod(r.Context(), tenantID(r), periodID(r))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, periodDTO(period))
}

func (h *Handler) FinalizePeriod(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.Finalize(r.Context(), tenantID(r), periodID(r), actor(r)); err != nil {
		h.writeEngineError(w, err)
		return
	}
	period, err := h.Store.GetPeriod(r.Context(), tenantID(r), periodID(r))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, periodDTO(period))
}

func (h *Handler) CancelPeriod(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.Cancel(r.Context(), tenantID(r), periodID(r)); err != nil {
		h.writeEngineError(w, err)
		return
	}
	period, err := h.Store.GetPeriod(r.Context(), tenantID(r), periodID(r))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, periodDTO(period))
}

// =============================================================================
// ENTRY HANDLERS
// =============================================================================

func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries, names, err := h.loadEntries(r)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	dtos := make([]EntryDTO, len(entries))
	for i := range entries {
		dtos[i] = entryDTO(&entries[i], names[entries[i].EmployeeID], nil)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	// Resolve through the tenant-scoped period first; a foreign period ID
	// 404s before any entry data is touched.
	period, err := h.Store.GetPeriod(r.Context(), tenantID(r), periodID(r))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	entry, err := h.Store.GetEntry(r.Context(), period.ID, entryID(r))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	items, err := h.Store.ListItems(r.Context(), entry.ID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	name := ""
	if emp, err := h.Store.GetEmployee(r.Context(), entry.EmployeeID); err == nil {
		name = emp.FullName
	}
	writeJSON(w, http.StatusOK, entryDTO(entry, name, items))
}

func (h *Handler) AddEntry(w http.ResponseWriter, r *http.Request) {
	var req AddEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	entry, err := h.Engine.AddEntry(r.Context(), tenantID(r), periodID(r), payroll.EmployeeID(req.EmployeeID))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	items, err := h.Store.ListItems(r.Context(), entry.ID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entryDTO(entry, "", items))
}

func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.DeleteEntry(r.Context(), tenantID(r), periodID(r), entryID(r)); err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	amount, err := payroll.ParseMoney(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "amount must be a decimal")
		return
	}
	item, err := h.Engine.AddItem(r.Context(), tenantID(r), periodID(r), entryID(r),
		payroll.ComponentID(req.ComponentID), amount)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ItemDTO{
		ID:            string(item.ID),
		ComponentID:   string(item.ComponentID),
		ComponentName: item.ComponentName,
		ComponentType: string(item.ComponentType),
		Amount:        item.Amount.String(),
	})
}

func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	itemID := payroll.ItemID(chi.URLParam(r, "itemID"))
	if err := h.Engine.DeleteItem(r.Context(), tenantID(r), periodID(r), entryID(r), itemID); err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// EXPORT
// =============================================================================

// ExportRegister streams the period's payroll register as CSV.
func (h *Handler) ExportRegister(w http.ResponseWriter, r *http.Request) {
	period, err := h.Store.GetPeriod(r.Context(), tenantID(r), periodID(r))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	entries, names, err := h.loadEntries(r)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	emails := make(map[payroll.EmployeeID]string)
	employees, err := h.Store.ListEmployees(r.Context(), tenantID(r))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	for i := range employees {
		emails[employees[i].ID] = employees[i].Email
	}

	rows := make([]registerRow, len(entries))
	for i := range entries {
		rows[i] = registerRow{
			Employee:        names[entries[i].EmployeeID],
			Email:           emails[entries[i].EmployeeID],
			TotalEarnings:   entries[i].TotalEarnings.StringFixed(),
			TotalDeductions: entries[i].TotalDeductions.StringFixed(),
			NetPay:          entries[i].NetPay.StringFixed(),
			Status:          string(entries[i].Status),
		}
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=payroll-register-%02d-%d.csv", period.Month, period.Year))
	if err := gocsv.Marshal(&rows, w); err != nil {
		log.Printf("register export failed: %v", err)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) loadEntries(r *http.Request) ([]payroll.Entry, map[payroll.EmployeeID]string, error) {
	period, err := h.Store.GetPeriod(r.Context(), tenantID(r), periodID(r))
	if err != nil {
		return nil, nil, err
	}
	entries, err := h.Store.ListEntries(r.Context(), period.ID)
	if err != nil {
		return nil, nil, err
	}
	employees, err := h.Store.ListEmployees(r.Context(), tenantID(r))
	if err != nil {
		return nil, nil, err
	}
	names := make(map[payroll.EmployeeID]string, len(employees))
	for i := range employees {
		names[employees[i].ID] = employees[i].FullName
	}
	return entries, names, nil
}

func tenantID(r *http.Request) payroll.TenantID {
	return payroll.TenantID(chi.URLParam(r, "tenantID"))
}

func periodID(r *http.Request) payroll.PeriodID {
	return payroll.PeriodID(chi.URLParam(r, "periodID"))
}

func entryID(r *http.Request) payroll.EntryID {
	return payroll.EntryID(chi.URLParam(r, "entryID"))
}

func actor(r *http.Request) string {
	return r.Header.Get("X-Actor")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeEngineError maps engine errors to HTTP statuses. Users always get
// a single human-readable message; internal detail goes to the log only.
func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case payroll.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case payroll.IsStateError(err):
		writeError(w, http.StatusConflict, err.Error())
	case payroll.IsClientError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
