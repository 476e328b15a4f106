package ports

import (
	"context"

	"github.com/aretw0/crosscall/pkg/domain"
)

// SlotStore persists the outcomes of a resolved unit until its continuation has run.
// This is the only state that survives between the two halves of a plan.
type SlotStore interface {
	// Save stores the outcomes under id, in slot order, replacing any previous set.
	Save(ctx context.Context, id string, outcomes []domain.Outcome) error

	// Slot reads outcome i of set id.
	// Returns domain.ErrSlotsNotFound if the set does not exist and
	// domain.ErrSlotNotFound if i is out of range.
	Slot(ctx context.Context, id string, i int) (domain.Outcome, error)

	// Count returns the number of slots of set id.
	Count(ctx context.Context, id string) (int, error)

	// Delete removes set id. Deleting a missing set is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the ids of all pending sets.
	List(ctx context.Context) ([]string, error)
}
