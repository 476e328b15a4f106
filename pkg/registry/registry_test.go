package registry_test

import (
	"context"
	"testing"

	"github.com/aretw0/crosscall/pkg/domain"
	"github.com/aretw0/crosscall/pkg/ports"
	"github.com/aretw0/crosscall/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echo(tag string) ports.Contract {
	return ports.ContractFunc(func(ctx context.Context, env ports.Env, method string, args string) (domain.Return, error) {
		return domain.RawValue(tag), nil
	})
}

func TestRegistry(t *testing.T) {
	r := registry.NewRegistry()

	_, err := r.Lookup("missing.test")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	r.Deploy("b.test", echo("b"))
	r.Deploy("a.test", echo("a1"))
	r.Deploy("a.test", echo("a2"))

	c, err := r.Lookup("a.test")
	require.NoError(t, err)
	ret, err := c.Invoke(context.Background(), nil, "any", "")
	require.NoError(t, err)
	assert.Equal(t, "a2", ret.Value, "redeploying replaces the contract")

	assert.Equal(t, []domain.AccountID{"a.test", "b.test"}, r.Accounts())
}
