package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/crosscall/pkg/adapters/memory"
	"github.com/aretw0/crosscall/pkg/domain"
	"github.com/aretw0/crosscall/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunSlotStoreContract(t, store)
}

func TestMemoryStore_Isolation(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	outcomes := []domain.Outcome{domain.Success(`"a"`)}
	require.NoError(t, store.Save(ctx, "set", outcomes))

	outcomes[0] = domain.Failure()

	got, err := store.Slot(ctx, "set", 0)
	require.NoError(t, err)
	assert.True(t, got.IsSuccess(), "store must not alias the caller's slice")
}
