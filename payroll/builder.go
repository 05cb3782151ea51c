/*
builder.go - Entry construction and total recomputation

PURPOSE:
  Builds (or rebuilds) a single employee's payroll entry from the active
  component catalog plus a resolved amount-override mapping, then derives
  the totals from the item set.

AMOUNT RESOLUTION (per component):
  1. Override for the component's code, if the strategy supplied one
  2. Else the default amount, if the component is fixed
  3. Else zero

CRITICAL INVARIANT:
  RecomputeTotals is the FINAL step of every mutation path - full
  rebuilds here and single-item add/delete in lifecycle.go. An entry is
  never left with items inconsistent with its totals.

SEE ALSO:
  - strategy.go: produces the override mappings
  - generate.go: calls buildEntry per eligible employee
*/
package payroll

import (
	"context"
	"time"
)

// =============================================================================
// GENERATOR - Engine facade over a transactional store
// =============================================================================

// Generator is the payroll engine entry point. It owns no state beyond
// the store and a clock; all operations are synchronous.
type Generator struct {
	store TxStore
	now   func() time.Time
}

// NewGenerator creates an engine backed by the given store.
func NewGenerator(store TxStore) *Generator {
	return &Generator{store: store, now: time.Now}
}

// =============================================================================
// ENTRY BUILDER
// =============================================================================

// buildEntry produces exactly one draft entry for (period, employee):
// get-or-create the entry, force its status to draft, replace the whole
// item set from the catalog + overrides, then recompute totals.
//
// Constraint violations (duplicate entry) cannot surface here - the
// get-or-create step resolves them instead of reporting them.
func buildEntry(ctx context.Context, s Store, period *Period, employeeID EmployeeID, components []Component, overrides map[string]Money) (*Entry, error) {
	entry, err := s.GetOrCreateEntry(ctx, period.ID, employeeID)
	if err != nil {
		return nil, err
	}
	entry.Status = PeriodDraft

	items := make([]Item, 0, len(components))
	for _, c := range components {
		amount, ok := overrides[c.Code]
		if !ok {
			if c.IsFixed {
				amount = c.DefaultAmount
			} else {
				amount = Zero()
			}
		}
		items = append(items, Item{
			EntryID:       entry.ID,
			ComponentID:   c.ID,
			ComponentName: c.Name,
			ComponentType: c.Type,
			Amount:        amount,
		})
	}

	if err := s.ReplaceItems(ctx, entry.ID, items); err != nil {
		return nil, err
	}
	RecomputeTotals(entry, items)
	if err := s.UpdateEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// copyEntry mirrors one source entry into the target period using the
// source's snapshotted items directly - component reference, snapshotted
// name/type, and amount - rather than re-deriving from the live catalog.
// This preserves historical correctness if components changed since.
func copyEntry(ctx context.Context, s Store, target *Period, src *Entry, srcItems []Item) (*Entry, error) {
	entry, err := s.GetOrCreateEntry(ctx, target.ID, src.EmployeeID)
	if err != nil {
		return nil, err
	}
	entry.Status = PeriodDraft

	items := make([]Item, 0, len(srcItems))
	for _, it := range srcItems {
		items = append(items, Item{
			EntryID:       entry.ID,
			ComponentID:   it.ComponentID,
			ComponentName: it.ComponentName,
			ComponentType: it.ComponentType,
			Amount:        it.Amount,
		})
	}

	if err := s.ReplaceItems(ctx, entry.ID, items); err != nil {
		return nil, err
	}
	RecomputeTotals(entry, items)
	if err := s.UpdateEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// RecomputeTotals derives the entry's totals from the given item set.
// Idempotent; net pay is earnings minus deductions, never stored
// independently of the items it was computed from.
func RecomputeTotals(entry *Entry, items []Item) {
	earnings := Zero()
	deductions := Zero()
	for _, it := range items {
		switch it.ComponentType {
		case ComponentEarning:
			earnings = earnings.Add(it.Amount)
		case ComponentDeduction:
			deductions = deductions.Add(it.Amount)
		}
	}
	entry.TotalEarnings = earnings
	entry.TotalDeductions = deductions
	entry.NetPay = earnings.Sub(deductions)
}
