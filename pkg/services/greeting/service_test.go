package greeting_test

import (
	"context"
	"testing"

	"github.com/aretw0/crosscall/internal/testutils"
	"github.com/aretw0/crosscall/pkg/contract"
	"github.com/aretw0/crosscall/pkg/domain"
	"github.com/aretw0/crosscall/pkg/services/greeting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const account domain.AccountID = "hello.test"

func TestService_GetSet(t *testing.T) {
	s := greeting.New()
	ctx := context.Background()
	env := testutils.NewEnv(account, "orchestrator.test")

	ret, err := s.Invoke(ctx, env, contract.MethodGetGreeting, domain.NoArgs)
	require.NoError(t, err)
	assert.Equal(t, `"Hello"`, ret.Value)

	ret, err = s.Invoke(ctx, env, contract.MethodSetGreeting, `{"greeting":"Howdy"}`)
	require.NoError(t, err)
	assert.Equal(t, "null", ret.Value)
	assert.Equal(t, "Howdy", s.Greeting())
	assert.Contains(t, env.Logs(), "saving greeting greeting=Howdy")

	ret, err = s.Invoke(ctx, env, contract.MethodGetGreeting, domain.NoArgs)
	require.NoError(t, err)
	assert.Equal(t, `"Howdy"`, ret.Value)

	assert.Equal(t, greeting.GetCost*2+greeting.SetCost, env.Burnt())
}

func TestService_Errors(t *testing.T) {
	s := greeting.New()
	ctx := context.Background()

	_, err := s.Invoke(ctx, testutils.NewEnv(account, "x.test"), "unknown", "{}")
	assert.ErrorIs(t, err, domain.ErrMethodNotFound)

	_, err = s.Invoke(ctx, testutils.NewEnv(account, "x.test"), contract.MethodSetGreeting, "[")
	assert.ErrorIs(t, err, domain.ErrInvalidArgs)

	poor := testutils.NewEnv(account, "x.test")
	poor.Budget = greeting.GetCost / 2
	_, err = s.Invoke(ctx, poor, contract.MethodGetGreeting, domain.NoArgs)
	assert.ErrorIs(t, err, domain.ErrGasExhausted)

	s.SetAvailable(false)
	_, err = s.Invoke(ctx, testutils.NewEnv(account, "x.test"), contract.MethodGetGreeting, domain.NoArgs)
	assert.ErrorIs(t, err, greeting.ErrUnavailable)

	s.SetAvailable(true)
	_, err = s.Invoke(ctx, testutils.NewEnv(account, "x.test"), contract.MethodGetGreeting, domain.NoArgs)
	assert.NoError(t, err)
}
