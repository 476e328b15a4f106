package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/crosscall/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSlotStoreContract runs a suite of tests to verify that a SlotStore implementation
// adheres to the defined interface contract.
func RunSlotStoreContract(t *testing.T, store SlotStore) {
	ctx := context.Background()
	id := "contract-test-slots-" + time.Now().Format("20060102150405")

	t.Run("Save and Read", func(t *testing.T) {
		outcomes := []domain.Outcome{
			domain.Success(`"first"`),
			domain.Failure(),
			domain.Success(`"third"`),
		}
		require.NoError(t, store.Save(ctx, id, outcomes), "Save should not return error")

		n, err := store.Count(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		for i, want := range outcomes {
			got, err := store.Slot(ctx, id, i)
			require.NoError(t, err, "Slot %d should not return error", i)
			assert.Equal(t, want, got, "slot %d must keep its position", i)
		}
	})

	t.Run("Save Replaces", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, id, []domain.Outcome{domain.Success("x")}))
		n, err := store.Count(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("Slot Out Of Range", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, id, []domain.Outcome{domain.Success("x")}))
		_, err := store.Slot(ctx, id, 1)
		assert.ErrorIs(t, err, domain.ErrSlotNotFound)
		_, err = store.Slot(ctx, id, -1)
		assert.ErrorIs(t, err, domain.ErrSlotNotFound)
	})

	t.Run("Missing Set", func(t *testing.T) {
		_, err := store.Slot(ctx, "non-existent-"+id, 0)
		assert.ErrorIs(t, err, domain.ErrSlotsNotFound)
		_, err = store.Count(ctx, "non-existent-"+id)
		assert.ErrorIs(t, err, domain.ErrSlotsNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, id, []domain.Outcome{domain.Success("x")}))
		require.NoError(t, store.Delete(ctx, id), "Delete should not return error")

		_, err := store.Slot(ctx, id, 0)
		assert.ErrorIs(t, err, domain.ErrSlotsNotFound, "Slot after Delete should return ErrSlotsNotFound")
		assert.NoError(t, store.Delete(ctx, id), "deleting twice is allowed")
	})

	t.Run("List", func(t *testing.T) {
		id1 := id + "-1"
		id2 := id + "-2"
		_ = store.Save(ctx, id1, []domain.Outcome{domain.Success("1")})
		_ = store.Save(ctx, id2, []domain.Outcome{domain.Success("2")})

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
