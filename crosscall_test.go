package crosscall_test

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/crosscall"
	"github.com/aretw0/crosscall/internal/runtime"
	"github.com/aretw0/crosscall/pkg/adapters/redis"
	"github.com/aretw0/crosscall/pkg/contract"
	"github.com/aretw0/crosscall/pkg/domain"
	"github.com/aretw0/crosscall/pkg/host"
	"github.com/aretw0/crosscall/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const alice domain.AccountID = "alice.test"

func deploy(t *testing.T, opts ...crosscall.Option) *crosscall.Deployment {
	t.Helper()
	d := crosscall.New(opts...)
	require.NoError(t, d.Init(ctxT(t), alice))
	return d
}

func ctxT(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestQueryGreeting(t *testing.T) {
	d := deploy(t)

	got, r, err := d.QueryGreeting(ctxT(t), alice)
	require.NoError(t, err)
	assert.Equal(t, "Hello", got, "payload is returned without its quotes")
	assert.Contains(t, r.Logs()[len(r.Logs())-1].Message, "call succeeded")
}

func TestChangeGreeting(t *testing.T) {
	d := deploy(t)
	ctx := ctxT(t)

	ok, _, err := d.ChangeGreeting(ctx, alice, "Howdy")
	require.NoError(t, err)
	assert.True(t, ok)

	got, _, err := d.QueryGreeting(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "Howdy", got)
}

func TestBatchActions_Order(t *testing.T) {
	d := deploy(t)

	got, r, err := d.BatchActions(ctxT(t), alice, "Howdy")
	require.NoError(t, err)
	assert.Equal(t, `"Hi"`, got)
	assert.Equal(t, contract.BatchFollowUpGreeting, d.Greeting.Greeting())

	var service []string
	for _, rec := range r.Trace() {
		if rec.Call.Target == d.HelloAccount() {
			service = append(service, rec.Call.Method+" "+rec.Call.Args)
		}
	}
	assert.Equal(t, []string{
		`set_greeting {"greeting":"Howdy"}`,
		`get_greeting {}`,
		`set_greeting {"greeting":"Hi"}`,
		`get_greeting {}`,
	}, service)
}

func TestBatchActions_OnlyLastCallCounts(t *testing.T) {
	tests := []struct {
		name string
		fail int
		want string
	}{
		{"First Set Fails", 1, `"ok"`},
		{"First Get Fails", 2, `"ok"`},
		{"Second Set Fails", 3, `"ok"`},
		{"Last Get Fails", 4, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := deploy(t, crosscall.WithGreeter(&flaky{fail: tt.fail}))

			got, r, err := d.BatchActions(ctxT(t), alice, "Howdy")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			var calls int
			for _, rec := range r.Trace() {
				if rec.Call.Target == d.HelloAccount() {
					calls++
				}
			}
			assert.Equal(t, 4, calls, "a failed step does not stop the chain")
		})
	}
}

func TestMultipleContracts(t *testing.T) {
	d := deploy(t)

	got, _, err := d.MultipleContracts(ctxT(t), alice)
	require.NoError(t, err)
	assert.Equal(t, []string{`"Hello"`, `"Hello"`, `"Hello"`}, got)
}

// sequencer answers every read with the order in which it ran.
type sequencer struct {
	n atomic.Int32
}

func (s *sequencer) Invoke(ctx context.Context, env ports.Env, method string, args string) (domain.Return, error) {
	return domain.ValueOf(strconv.Itoa(int(s.n.Add(1))))
}

func TestMultipleContracts_JoinOrderIgnoresCompletionOrder(t *testing.T) {
	d := deploy(t,
		crosscall.WithGreeter(&sequencer{}),
		crosscall.WithHostOptions(host.WithJoinDelay(func(i int) time.Duration {
			return time.Duration(contract.JoinWidth-i) * 25 * time.Millisecond
		})),
	)

	got, _, err := d.MultipleContracts(ctxT(t), alice)
	require.NoError(t, err)
	// The last member ran first, yet slot 0 still belongs to the first member.
	assert.Equal(t, []string{`"3"`, `"2"`, `"1"`}, got)
}

// flaky fails the nth call it receives.
type flaky struct {
	mu    sync.Mutex
	calls int
	fail  int
}

func (f *flaky) Invoke(ctx context.Context, env ports.Env, method string, args string) (domain.Return, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	if n == f.fail {
		return domain.Return{}, fmt.Errorf("call %d refused", n)
	}
	return domain.ValueOf("ok")
}

func TestMultipleContracts_StrictBatchDiscards(t *testing.T) {
	d := deploy(t, crosscall.WithGreeter(&flaky{fail: 2}))

	got, r, err := d.MultipleContracts(ctxT(t), alice)
	require.NoError(t, err)
	assert.Nil(t, got, "one failed member discards the two good ones")

	var failed int
	for _, rec := range r.Trace() {
		if rec.Status == domain.StatusFailure {
			failed++
		}
	}
	assert.Equal(t, 1, failed)
}

func TestMultipleContracts_PerSlotStillDegrades(t *testing.T) {
	d := deploy(t, crosscall.WithGreeter(&flaky{fail: 1}), crosscall.WithPolicy(runtime.PerSlot))

	got, _, err := d.MultipleContracts(ctxT(t), alice)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFailuresDegrade(t *testing.T) {
	d := deploy(t)
	d.Greeting.SetAvailable(false)
	ctx := ctxT(t)

	q, r, err := d.QueryGreeting(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "", q)
	assert.Contains(t, r.Logs()[len(r.Logs())-1].Message, "call failed")

	ok, _, err := d.ChangeGreeting(ctx, alice, "Howdy")
	require.NoError(t, err)
	assert.False(t, ok)

	b, _, err := d.BatchActions(ctx, alice, "Howdy")
	require.NoError(t, err)
	assert.Equal(t, "", b)

	m, _, err := d.MultipleContracts(ctx, alice)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestCallbacksArePrivate(t *testing.T) {
	d := deploy(t)
	ctx := ctxT(t)

	for _, method := range []string{
		contract.MethodQueryGreetingCallback,
		contract.MethodChangeGreetingCallback,
		contract.MethodBatchActionsCallback,
		contract.MethodMultipleContractsCallback,
	} {
		t.Run(method, func(t *testing.T) {
			_, _, err := d.Call(ctx, alice, method, `{"number_promises":1}`)
			assert.ErrorIs(t, err, domain.ErrUnauthorized)
		})
	}

	// Signing as the orchestrator itself is refused before anything runs.
	_, r, err := d.Host.Call(ctx, domain.Transaction{
		Signer:   d.Self(),
		Receiver: d.Self(),
		Method:   contract.MethodQueryGreetingCallback,
	})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Nil(t, r)

	// Not even the greeting service may call back in.
	_, _, err = d.Host.Call(ctx, domain.Transaction{
		Signer:   d.HelloAccount(),
		Receiver: d.Self(),
		Method:   contract.MethodQueryGreetingCallback,
	})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestInit(t *testing.T) {
	d := crosscall.New()
	ctx := ctxT(t)

	_, _, err := d.QueryGreeting(ctx, alice)
	assert.ErrorIs(t, err, domain.ErrNotInitialized)

	require.NoError(t, d.Init(ctx, alice))
	err = d.Init(ctx, "mallory.test")
	assert.ErrorIs(t, err, domain.ErrAlreadyInitialized)

	account, _ := d.Orchestrator.HelloAccount()
	assert.Equal(t, d.HelloAccount(), account)
}

func TestRedisBackedDeployment(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := redis.NewFromClient(client)
	d := deploy(t, crosscall.WithHostOptions(
		host.WithStore(store),
		host.WithLocker(redis.NewLocker(client, "test:")),
	))
	ctx := ctxT(t)

	got, _, err := d.MultipleContracts(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, got, contract.JoinWidth)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids, "slots are released once the continuation ran")
}
