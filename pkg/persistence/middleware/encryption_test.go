package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"testing"

	"github.com/aretw0/crosscall/pkg/adapters/memory"
	"github.com/aretw0/crosscall/pkg/domain"
	"github.com/aretw0/crosscall/pkg/persistence/middleware"
	"github.com/aretw0/crosscall/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, middleware.KeySize)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func secure(t *testing.T, next ports.SlotStore, cfg middleware.EncryptionConfig) ports.SlotStore {
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	require.NoError(t, err)
	return middleware.Chain(next, mw)
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	ports.RunSlotStoreContract(t, secure(t, memory.NewStore(), middleware.EncryptionConfig{ActiveKey: generateKey(t)}))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	store := secure(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)})

	ctx := context.Background()
	outcomes := []domain.Outcome{domain.Success(`"my-secret-sauce"`), domain.Failure()}
	require.NoError(t, store.Save(ctx, "set-1", outcomes))

	// The underlying store only sees ciphertext.
	raw, err := underlying.Slot(ctx, "set-1", 0)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, raw.Status)
	assert.NotContains(t, raw.Payload, "my-secret-sauce")

	for i, want := range outcomes {
		got, err := store.Slot(ctx, "set-1", i)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)
	ctx := context.Background()

	old := secure(t, underlying, middleware.EncryptionConfig{ActiveKey: oldKey})
	require.NoError(t, old.Save(ctx, "set-1", []domain.Outcome{domain.Success("old")}))

	rotated := secure(t, underlying, middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})
	got, err := rotated.Slot(ctx, "set-1", 0)
	require.NoError(t, err)
	assert.Equal(t, "old", got.Payload)

	require.NoError(t, rotated.Save(ctx, "set-2", []domain.Outcome{domain.Success("new")}))
	_, err = old.Slot(ctx, "set-2", 0)
	assert.Error(t, err, "the old key alone cannot open data sealed with the new one")
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	assert.ErrorIs(t, err, middleware.ErrInvalidKey)

	_, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    generateKey(t),
		FallbackKeys: [][]byte{[]byte("short")},
	})
	assert.ErrorIs(t, err, middleware.ErrInvalidKey)
}
