package contract_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/aretw0/crosscall/internal/runtime"
	"github.com/aretw0/crosscall/internal/testutils"
	"github.com/aretw0/crosscall/pkg/contract"
	"github.com/aretw0/crosscall/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	self  domain.AccountID = "orchestrator.test"
	hello domain.AccountID = "hello.test"
	alice domain.AccountID = "alice.test"
)

func initialized(t *testing.T, opts ...contract.Option) *contract.Orchestrator {
	t.Helper()
	o := contract.New(opts...)
	require.NoError(t, o.Init(testutils.NewEnv(self, alice), hello))
	return o
}

func TestInit(t *testing.T) {
	o := contract.New()
	env := testutils.NewEnv(self, alice)

	_, ok := o.HelloAccount()
	assert.False(t, ok)

	assert.ErrorIs(t, o.Init(env, ""), domain.ErrInvalidArgs)
	require.NoError(t, o.Init(env, hello))

	err := o.Init(env, "other.test")
	assert.ErrorIs(t, err, domain.ErrAlreadyInitialized)

	account, ok := o.HelloAccount()
	assert.True(t, ok)
	assert.Equal(t, hello, account, "a rejected init leaves the account unchanged")
}

func TestEntryBeforeInit(t *testing.T) {
	o := contract.New()
	env := testutils.NewEnv(self, alice)

	_, err := o.QueryGreeting(env)
	assert.ErrorIs(t, err, domain.ErrNotInitialized)
	_, err = o.ChangeGreeting(env, "x")
	assert.ErrorIs(t, err, domain.ErrNotInitialized)
	_, err = o.BatchActions(env, "x")
	assert.ErrorIs(t, err, domain.ErrNotInitialized)
	_, err = o.MultipleContracts(env)
	assert.ErrorIs(t, err, domain.ErrNotInitialized)
}

func TestQueryGreeting_Plan(t *testing.T) {
	o := initialized(t)

	plan, err := o.QueryGreeting(testutils.NewEnv(self, alice))
	require.NoError(t, err)

	want, err := domain.NewCall(hello, contract.MethodGetGreeting, domain.NoArgs, domain.NoDeposit, domain.GasLight)
	require.NoError(t, err)
	assert.Equal(t, want, plan.Unit)
	assert.Equal(t, self, plan.Continuation.Target)
	assert.Equal(t, contract.MethodQueryGreetingCallback, plan.Continuation.Method)
	assert.Equal(t, domain.GasHeavy, plan.Continuation.Gas)
	assert.Equal(t, 1, plan.Slots())
}

func TestChangeGreeting_Plan(t *testing.T) {
	o := initialized(t)

	plan, err := o.ChangeGreeting(testutils.NewEnv(self, alice), "Howdy")
	require.NoError(t, err)

	c, ok := plan.Unit.(domain.Call)
	require.True(t, ok)
	assert.Equal(t, contract.MethodSetGreeting, c.Method)
	assert.JSONEq(t, `{"greeting":"Howdy"}`, c.Args)
	assert.Equal(t, contract.MethodChangeGreetingCallback, plan.Continuation.Method)
}

func TestBatchActions_Plan(t *testing.T) {
	o := initialized(t)

	plan, err := o.BatchActions(testutils.NewEnv(self, alice), "Howdy")
	require.NoError(t, err)

	chain, ok := plan.Unit.(domain.Chain)
	require.True(t, ok)

	calls := chain.Calls()
	require.Len(t, calls, 4)
	assert.Equal(t, contract.MethodSetGreeting, calls[0].Method)
	assert.JSONEq(t, `{"greeting":"Howdy"}`, calls[0].Args)
	assert.Equal(t, contract.MethodGetGreeting, calls[1].Method)
	assert.Equal(t, contract.MethodSetGreeting, calls[2].Method)
	assert.JSONEq(t, `{"greeting":"Hi"}`, calls[2].Args)
	assert.Equal(t, contract.MethodGetGreeting, calls[3].Method)
	assert.Equal(t, calls[3], chain.Last())
	assert.Equal(t, 1, plan.Slots())
}

func TestMultipleContracts_Plan(t *testing.T) {
	o := initialized(t)

	plan, err := o.MultipleContracts(testutils.NewEnv(self, alice))
	require.NoError(t, err)

	join, ok := plan.Unit.(domain.Join)
	require.True(t, ok)
	assert.Equal(t, contract.JoinWidth, join.Slots())
	assert.JSONEq(t, `{"number_promises":3}`, plan.Continuation.Args)
}

func TestCustomBudgets(t *testing.T) {
	o := initialized(t, contract.WithBudgets(2*domain.TGas, 4*domain.TGas))

	plan, err := o.QueryGreeting(testutils.NewEnv(self, alice))
	require.NoError(t, err)
	assert.Equal(t, 2*domain.TGas, plan.Unit.Calls()[0].Gas)
	assert.Equal(t, 4*domain.TGas, plan.Continuation.Gas)
}

func TestInvalidBudgetsFallBack(t *testing.T) {
	tests := []struct {
		name         string
		light, heavy domain.Gas
	}{
		{"Heavy Below Light", 10 * domain.TGas, 5 * domain.TGas},
		{"Equal", 5 * domain.TGas, 5 * domain.TGas},
		{"Zero Light", 0, 5 * domain.TGas},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))
			o := initialized(t, contract.WithLogger(logger), contract.WithBudgets(tt.light, tt.heavy))

			plan, err := o.QueryGreeting(testutils.NewEnv(self, alice))
			require.NoError(t, err)
			assert.Equal(t, domain.GasLight, plan.Unit.Calls()[0].Gas)
			assert.Equal(t, domain.GasHeavy, plan.Continuation.Gas)
			assert.Contains(t, buf.String(), "invalid gas budgets")
		})
	}
}

func TestCallbacks_RejectExternalCallers(t *testing.T) {
	o := initialized(t)
	env := testutils.NewEnv(self, alice, domain.Success(`"Hello"`))

	_, err := o.QueryGreetingCallback(env)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = o.ChangeGreetingCallback(env)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = o.BatchActionsCallback(env)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = o.MultipleContractsCallback(env, 1)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestQueryGreetingCallback(t *testing.T) {
	o := initialized(t)

	tests := []struct {
		name    string
		outcome domain.Outcome
		want    string
	}{
		{"Quoted Greeting", domain.Success(`"Hello"`), "Hello"},
		{"Empty Quoted", domain.Success(`""`), ""},
		{"Too Short", domain.Success(`x`), "x"},
		{"Failed Read", domain.Failure(), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := o.QueryGreetingCallback(testutils.Private(self, tt.outcome))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChangeGreetingCallback(t *testing.T) {
	o := initialized(t)

	ok, err := o.ChangeGreetingCallback(testutils.Private(self, domain.Success("null")))
	require.NoError(t, err)
	assert.True(t, ok)

	env := testutils.Private(self, domain.Failure())
	ok, err = o.ChangeGreetingCallback(env)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NotEmpty(t, env.Logs())
	assert.Contains(t, env.Logs()[0], "call failed")
}

func TestBatchActionsCallback(t *testing.T) {
	o := initialized(t)

	got, err := o.BatchActionsCallback(testutils.Private(self, domain.Success(`"Hi"`)))
	require.NoError(t, err)
	assert.Equal(t, `"Hi"`, got, "batch result is not unquoted")
}

func TestMultipleContractsCallback(t *testing.T) {
	o := initialized(t)

	got, err := o.MultipleContractsCallback(testutils.Private(self,
		domain.Success(`"a"`), domain.Success(`"b"`), domain.Success(`"c"`),
	), 3)
	require.NoError(t, err)
	assert.JSONEq(t, `["\"a\"","\"b\"","\"c\""]`, got)

	got, err = o.MultipleContractsCallback(testutils.Private(self,
		domain.Success(`"a"`), domain.Failure(), domain.Success(`"c"`),
	), 3)
	require.NoError(t, err)
	assert.Empty(t, got, "strict batch discards every slot")
}

func TestMultipleContractsCallback_PerSlot(t *testing.T) {
	o := initialized(t, contract.WithPolicy(runtime.PerSlot))

	got, err := o.MultipleContractsCallback(testutils.Private(self,
		domain.Success(`"a"`), domain.Failure(), domain.Success(`"c"`),
	), 3)
	require.NoError(t, err)
	assert.Empty(t, got, "a failed slot still degrades the whole answer")
}

func TestInvoke(t *testing.T) {
	o := contract.New()
	ctx := context.Background()

	ret, err := o.Invoke(ctx, testutils.NewEnv(self, alice), contract.MethodInit, `{"hello_account":"hello.test"}`)
	require.NoError(t, err)
	assert.Equal(t, "null", ret.Value)

	ret, err = o.Invoke(ctx, testutils.NewEnv(self, alice), contract.MethodBatchActions, `{"new_greeting":"Howdy"}`)
	require.NoError(t, err)
	assert.True(t, ret.IsDeferred())

	ret, err = o.Invoke(ctx, testutils.Private(self, domain.Success(`"Hello"`)), contract.MethodQueryGreetingCallback, "{}")
	require.NoError(t, err)
	assert.Equal(t, `"Hello"`, ret.Value, "projected greeting is JSON encoded on the way out")

	ret, err = o.Invoke(ctx, testutils.Private(self, domain.Failure()), contract.MethodChangeGreetingCallback, "{}")
	require.NoError(t, err)
	assert.Equal(t, "false", ret.Value)

	ret, err = o.Invoke(ctx, testutils.Private(self, domain.Failure(), domain.Failure(), domain.Failure()),
		contract.MethodMultipleContractsCallback, `{"number_promises":3}`)
	require.NoError(t, err)
	assert.Equal(t, `""`, ret.Value)

	_, err = o.Invoke(ctx, testutils.NewEnv(self, alice), contract.MethodChangeGreeting, `not json`)
	assert.ErrorIs(t, err, domain.ErrInvalidArgs)

	_, err = o.Invoke(ctx, testutils.NewEnv(self, alice), "missing", "{}")
	assert.ErrorIs(t, err, domain.ErrMethodNotFound)
}

func TestDecodeArgs(t *testing.T) {
	var in contract.CollectArgs
	require.NoError(t, contract.DecodeArgs(`{"number_promises":"3"}`, &in))
	assert.Equal(t, 3, in.NumberPromises, "weakly typed input")

	var empty contract.GreetingArgs
	require.NoError(t, contract.DecodeArgs("", &empty))
	assert.Empty(t, empty.NewGreeting)
}
