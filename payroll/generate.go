/*
generate.go - Generation orchestrator

PURPOSE:
  Top-level entry point for populating a period. Validates preconditions
  before touching anything, dispatches on the strategy, builds every
  eligible employee's entry inside ONE transaction, and stamps the period
  with generation metadata.

EXECUTION MODEL:
  All-or-nothing. Any strategy error aborts the transaction; a partially
  generated period (some employees' entries built, others not) is never
  observable. Store implementations serialize concurrent generation of
  the same period.

ITERATION RULES:
  - manual/import: iterate the tenant's ACTIVE employee roster
  - copy:          iterate the SOURCE period's existing entries, not the
                   live roster, so the target mirrors history exactly

  An employee whose email simply doesn't appear in an import file is not
  an error - the unknown-email check covers only emails present in the
  file - so such employees fall back to the manual rule.

SEE ALSO:
  - builder.go: per-employee entry construction
  - strategy.go: the Method union and import parsing
*/
package payroll

import (
	"context"
	"errors"
	"sort"
)

// Precondition messages, surfaced verbatim to the caller.
const (
	msgNoActiveComponents = "no active components"
	msgNoActiveEmployees  = "no active employees"
	msgSourceRequired     = "a source period is required for copy generation"
	msgFileRequired       = "an upload file is required for import generation"
)

// Generate populates the period's entries using the given method, inside
// one atomic unit of work, and stamps generation metadata on success.
// The period must be in draft status and belong to the tenant.
func (g *Generator) Generate(ctx context.Context, tenantID TenantID, periodID PeriodID, m Method, actor string) error {
	period, err := g.store.GetPeriod(ctx, tenantID, periodID)
	if err != nil {
		return err
	}
	if err := requireStatus(period, "generate", PeriodDraft); err != nil {
		return err
	}

	// Preconditions, checked before any mutation.
	components, err := g.store.ListActiveComponents(ctx, tenantID)
	if err != nil {
		return err
	}
	if len(components) == 0 {
		return &PreconditionError{Message: msgNoActiveComponents}
	}
	employees, err := g.store.ListActiveEmployees(ctx, tenantID)
	if err != nil {
		return err
	}
	if len(employees) == 0 {
		return &PreconditionError{Message: msgNoActiveEmployees}
	}
	switch m := m.(type) {
	case Manual:
	case CopyFrom:
		if m.SourcePeriodID == "" {
			return &PreconditionError{Message: msgSourceRequired}
		}
	case ImportFile:
		if m.Source == nil {
			return &PreconditionError{Message: msgFileRequired}
		}
	default:
		return &PreconditionError{Message: "unknown generation method"}
	}

	return g.store.WithTx(ctx, func(s Store) error {
		switch m := m.(type) {
		case Manual:
			for _, emp := range employees {
				if _, err := buildEntry(ctx, s, period, emp.ID, components, nil); err != nil {
					return err
				}
			}
		case CopyFrom:
			if err := g.copyFromPeriod(ctx, s, tenantID, period, m.SourcePeriodID); err != nil {
				return err
			}
		case ImportFile:
			amounts, err := parseImport(m.Source)
			if err != nil {
				return err
			}
			if err := checkImportEmails(ctx, s, tenantID, amounts); err != nil {
				return err
			}
			for _, emp := range employees {
				if _, err := buildEntry(ctx, s, period, emp.ID, components, amounts[NormalizeEmail(emp.Email)]); err != nil {
					return err
				}
			}
		}

		now := g.now()
		period.GeneratedAt = &now
		period.GeneratedBy = actor
		period.UpdatedAt = now
		return s.UpdatePeriod(ctx, period)
	})
}

// copyFromPeriod mirrors every entry of the source period into the
// target, item snapshots included.
func (g *Generator) copyFromPeriod(ctx context.Context, s Store, tenantID TenantID, target *Period, sourceID PeriodID) error {
	source, err := s.GetPeriod(ctx, tenantID, sourceID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &PreconditionError{Message: "source period not found"}
		}
		return err
	}
	entries, err := s.ListEntries(ctx, source.ID)
	if err != nil {
		return err
	}
	for i := range entries {
		src := &entries[i]
		srcItems, err := s.ListItems(ctx, src.ID)
		if err != nil {
			return err
		}
		if _, err := copyEntry(ctx, s, target, src, srcItems); err != nil {
			return err
		}
	}
	return nil
}

// checkImportEmails requires every email referenced by the file to match
// an employee of the tenant (active or not), reporting ALL missing
// emails at once.
func checkImportEmails(ctx context.Context, s Store, tenantID TenantID, amounts map[string]map[string]Money) error {
	employees, err := s.ListEmployees(ctx, tenantID)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(employees))
	for _, emp := range employees {
		known[NormalizeEmail(emp.Email)] = true
	}
	var missing []string
	for email := range amounts {
		if !known[email] {
			missing = append(missing, email)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &UnknownEmployeesError{Emails: missing}
	}
	return nil
}
