/*
lifecycle.go - Period state machine and entry/item mutation

PURPOSE:
  Governs when generation, finalization, and entry mutation are allowed.

STATES:
  draft --generate--> draft   (stamps metadata only, see generate.go)
  draft --finalize--> final   (cascades entry status to final)
  final --cancel----> draft   (clears finalize metadata, cascades back)

GUARDS:
  Every entry/item mutation - add entry, add item, delete item, delete
  entry - and period deletion requires the period to be in draft status;
  otherwise the call fails with a StateError and nothing changes.

TOTALS:
  Single-item add/delete recomputes the owning entry's totals inside the
  same transaction as the item write, so items and totals never drift.

SEE ALSO:
  - builder.go: RecomputeTotals
  - generate.go: the draft-only generation path
*/
package payroll

import "context"

// requireStatus guards an action on the period's current state.
func requireStatus(p *Period, action string, want PeriodStatus) error {
	if p.Status != want {
		return &StateError{Action: action, Requires: want, Current: p.Status}
	}
	return nil
}

// =============================================================================
// FINALIZE / CANCEL
// =============================================================================

// Finalize transitions draft -> final, stamps finalize metadata, and
// cascades every child entry's status to final.
func (g *Generator) Finalize(ctx context.Context, tenantID TenantID, periodID PeriodID, actor string) error {
	period, err := g.store.GetPeriod(ctx, tenantID, periodID)
	if err != nil {
		return err
	}
	if err := requireStatus(period, "finalize", PeriodDraft); err != nil {
		return err
	}
	return g.store.WithTx(ctx, func(s Store) error {
		now := g.now()
		period.Status = PeriodFinal
		period.FinalizedAt = &now
		period.FinalizedBy = actor
		period.UpdatedAt = now
		if err := s.UpdatePeriod(ctx, period); err != nil {
			return err
		}
		return s.SetEntryStatusByPeriod(ctx, period.ID, PeriodFinal)
	})
}

// Cancel transitions final -> draft, clears finalize metadata, and
// cascades every child entry's status back to draft.
func (g *Generator) Cancel(ctx context.Context, tenantID TenantID, periodID PeriodID) error {
	period, err := g.store.GetPeriod(ctx, tenantID, periodID)
	if err != nil {
		return err
	}
	if err := requireStatus(period, "cancel", PeriodFinal); err != nil {
		return err
	}
	return g.store.WithTx(ctx, func(s Store) error {
		period.Status = PeriodDraft
		period.FinalizedAt = nil
		period.FinalizedBy = ""
		period.UpdatedAt = g.now()
		if err := s.UpdatePeriod(ctx, period); err != nil {
			return err
		}
		return s.SetEntryStatusByPeriod(ctx, period.ID, PeriodDraft)
	})
}

// DeletePeriod removes a period and (via the store) its entries and
// items. Draft only.
func (g *Generator) DeletePeriod(ctx context.Context, tenantID TenantID, periodID PeriodID) error {
	period, err := g.store.GetPeriod(ctx, tenantID, periodID)
	if err != nil {
		return err
	}
	if err := requireStatus(period, "delete period", PeriodDraft); err != nil {
		return err
	}
	return g.store.DeletePeriod(ctx, tenantID, periodID)
}

// =============================================================================
// ENTRY MUTATION (draft only)
// =============================================================================

// AddEntry builds one employee's entry in a draft period using the
// manual rule. The employee must belong to the acting tenant and be
// active.
func (g *Generator) AddEntry(ctx context.Context, tenantID TenantID, periodID PeriodID, employeeID EmployeeID) (*Entry, error) {
	period, err := g.store.GetPeriod(ctx, tenantID, periodID)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(period, "add entry", PeriodDraft); err != nil {
		return nil, err
	}
	employee, err := g.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if employee.TenantID != tenantID {
		return nil, &TenantMismatchError{Kind: "employee", ID: string(employeeID)}
	}
	if !employee.IsActive {
		return nil, &ValidationError{Message: "employee is not active"}
	}
	components, err := g.store.ListActiveComponents(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if len(components) == 0 {
		return nil, &PreconditionError{Message: msgNoActiveComponents}
	}

	var entry *Entry
	err = g.store.WithTx(ctx, func(s Store) error {
		entry, err = buildEntry(ctx, s, period, employee.ID, components, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// AddItem appends one item to a draft entry, snapshotting the
// component's name and type, and recomputes totals atomically. Only
// active components of the acting tenant may be referenced.
func (g *Generator) AddItem(ctx context.Context, tenantID TenantID, periodID PeriodID, entryID EntryID, componentID ComponentID, amount Money) (*Item, error) {
	period, err := g.store.GetPeriod(ctx, tenantID, periodID)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(period, "add item", PeriodDraft); err != nil {
		return nil, err
	}
	if amount.IsNegative() {
		return nil, &ValidationError{Message: "amount must not be negative"}
	}
	component, err := g.store.GetComponent(ctx, tenantID, componentID)
	if err != nil {
		return nil, err
	}
	if !component.IsActive {
		return nil, &ValidationError{Message: "component is not active"}
	}

	item := &Item{
		EntryID:       entryID,
		ComponentID:   component.ID,
		ComponentName: component.Name,
		ComponentType: component.Type,
		Amount:        amount,
	}
	err = g.store.WithTx(ctx, func(s Store) error {
		entry, err := s.GetEntry(ctx, period.ID, entryID)
		if err != nil {
			return err
		}
		if err := s.InsertItem(ctx, item); err != nil {
			return err
		}
		return recomputeAndSave(ctx, s, entry)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteItem removes one item from a draft entry and recomputes totals
// atomically.
func (g *Generator) DeleteItem(ctx context.Context, tenantID TenantID, periodID PeriodID, entryID EntryID, itemID ItemID) error {
	period, err := g.store.GetPeriod(ctx, tenantID, periodID)
	if err != nil {
		return err
	}
	if err := requireStatus(period, "delete item", PeriodDraft); err != nil {
		return err
	}
	return g.store.WithTx(ctx, func(s Store) error {
		entry, err := s.GetEntry(ctx, period.ID, entryID)
		if err != nil {
			return err
		}
		if err := s.DeleteItem(ctx, entryID, itemID); err != nil {
			return err
		}
		return recomputeAndSave(ctx, s, entry)
	})
}

// DeleteEntry removes one entry (and its items) from a draft period.
func (g *Generator) DeleteEntry(ctx context.Context, tenantID TenantID, periodID PeriodID, entryID EntryID) error {
	period, err := g.store.GetPeriod(ctx, tenantID, periodID)
	if err != nil {
		return err
	}
	if err := requireStatus(period, "delete entry", PeriodDraft); err != nil {
		return err
	}
	if _, err := g.store.GetEntry(ctx, period.ID, entryID); err != nil {
		return err
	}
	return g.store.DeleteEntry(ctx, entryID)
}

// recomputeAndSave reloads the entry's items, rebuilds totals, and saves.
func recomputeAndSave(ctx context.Context, s Store, entry *Entry) error {
	items, err := s.ListItems(ctx, entry.ID)
	if err != nil {
		return err
	}
	RecomputeTotals(entry, items)
	return s.UpdateEntry(ctx, entry)
}
