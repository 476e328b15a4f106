package contract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/aretw0/crosscall/internal/runtime"
	"github.com/aretw0/crosscall/pkg/domain"
	"github.com/aretw0/crosscall/pkg/ports"
)

// Methods of the orchestrator contract.
const (
	MethodInit                      = "init"
	MethodQueryGreeting             = "query_greeting"
	MethodQueryGreetingCallback     = "query_greeting_callback"
	MethodChangeGreeting            = "change_greeting"
	MethodChangeGreetingCallback    = "change_greeting_callback"
	MethodBatchActions              = "batch_actions"
	MethodBatchActionsCallback      = "batch_actions_callback"
	MethodMultipleContracts         = "multiple_contracts"
	MethodMultipleContractsCallback = "multiple_contracts_callback"
)

// Methods of the greeting service the orchestrator calls.
const (
	MethodGetGreeting = "get_greeting"
	MethodSetGreeting = "set_greeting"
)

// BatchFollowUpGreeting is the greeting the batch sets after the caller's one.
const BatchFollowUpGreeting = "Hi"

// JoinWidth is the number of parallel reads multiple_contracts joins.
const JoinWidth = 3

// Orchestrator is the cross-call contract. It calls a greeting service on
// another account and collects the results in private continuations.
type Orchestrator struct {
	mu           sync.RWMutex
	helloAccount domain.AccountID

	light  domain.Gas
	heavy  domain.Gas
	policy runtime.Policy
	logger *slog.Logger
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithBudgets sets the gas of service calls (light) and continuations (heavy).
// Heavy must exceed light, since a continuation pays for reading every slot;
// New falls back to GasLight and GasHeavy otherwise.
func WithBudgets(light, heavy domain.Gas) Option {
	return func(o *Orchestrator) {
		o.light = light
		o.heavy = heavy
	}
}

// WithPolicy sets how continuations classify their outcomes.
func WithPolicy(p runtime.Policy) Option {
	return func(o *Orchestrator) {
		o.policy = p
	}
}

// WithLogger sets the logger used for plan-building diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// New creates an uninitialized orchestrator.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		light:  domain.GasLight,
		heavy:  domain.GasHeavy,
		policy: runtime.StrictBatch,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.light == 0 || o.heavy <= o.light {
		o.logger.Warn("invalid gas budgets, using defaults",
			"light", o.light,
			"heavy", o.heavy,
		)
		o.light, o.heavy = domain.GasLight, domain.GasHeavy
	}
	return o
}

// Init stores the greeting service account. It succeeds exactly once.
func (o *Orchestrator) Init(env ports.Env, helloAccount domain.AccountID) error {
	if helloAccount == "" {
		return fmt.Errorf("hello_account is required: %w", domain.ErrInvalidArgs)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.helloAccount != "" {
		return fmt.Errorf("%s: %w", env.Self(), domain.ErrAlreadyInitialized)
	}
	o.helloAccount = helloAccount
	env.Log("initialized", "hello_account", helloAccount)
	return nil
}

// HelloAccount returns the configured service account.
func (o *Orchestrator) HelloAccount() (domain.AccountID, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.helloAccount, o.helloAccount != ""
}

func (o *Orchestrator) service() (domain.AccountID, error) {
	account, ok := o.HelloAccount()
	if !ok {
		return "", domain.ErrNotInitialized
	}
	return account, nil
}

func (o *Orchestrator) serviceCall(target domain.AccountID, method string, args string) (domain.Call, error) {
	return domain.NewCall(target, method, args, domain.NoDeposit, o.light)
}

func (o *Orchestrator) scheduler(env ports.Env) runtime.Scheduler {
	return runtime.NewScheduler(env.Self(), o.heavy)
}

// QueryGreeting reads the service's greeting. The continuation returns it unquoted.
func (o *Orchestrator) QueryGreeting(env ports.Env) (domain.Plan, error) {
	target, err := o.service()
	if err != nil {
		return domain.Plan{}, err
	}
	get, err := o.serviceCall(target, MethodGetGreeting, domain.NoArgs)
	if err != nil {
		return domain.Plan{}, err
	}
	return o.schedule(env, get, MethodQueryGreetingCallback, domain.NoArgs)
}

// QueryGreetingCallback projects the greeting read by QueryGreeting.
// It returns "" when the read failed.
func (o *Orchestrator) QueryGreetingCallback(env ports.Env) (string, error) {
	if err := runtime.RequirePrivate(env, MethodQueryGreetingCallback); err != nil {
		return "", err
	}

	v, ok := o.collect(env, 1)
	if !ok {
		return "", nil
	}
	greeting, ok := runtime.Unquote(v.Payload)
	if !ok {
		env.Log("payload too short to unquote, returned as is", "payload", v.Payload)
	}
	return greeting, nil
}

// ChangeGreeting sets the service's greeting. The continuation reports success.
func (o *Orchestrator) ChangeGreeting(env ports.Env, newGreeting string) (domain.Plan, error) {
	target, err := o.service()
	if err != nil {
		return domain.Plan{}, err
	}
	args, err := EncodeArgs(SetGreetingArgs{Greeting: newGreeting})
	if err != nil {
		return domain.Plan{}, err
	}
	set, err := o.serviceCall(target, MethodSetGreeting, args)
	if err != nil {
		return domain.Plan{}, err
	}
	return o.schedule(env, set, MethodChangeGreetingCallback, domain.NoArgs)
}

// ChangeGreetingCallback reports whether the greeting was changed.
func (o *Orchestrator) ChangeGreetingCallback(env ports.Env) (bool, error) {
	if err := runtime.RequirePrivate(env, MethodChangeGreetingCallback); err != nil {
		return false, err
	}

	_, ok := o.collect(env, 1)
	return ok, nil
}

// BatchActions chains set(newGreeting), get, set("Hi"), get on the service.
// The continuation returns the raw payload of the last get.
func (o *Orchestrator) BatchActions(env ports.Env, newGreeting string) (domain.Plan, error) {
	target, err := o.service()
	if err != nil {
		return domain.Plan{}, err
	}

	first, err := EncodeArgs(SetGreetingArgs{Greeting: newGreeting})
	if err != nil {
		return domain.Plan{}, err
	}
	second, err := EncodeArgs(SetGreetingArgs{Greeting: BatchFollowUpGreeting})
	if err != nil {
		return domain.Plan{}, err
	}

	steps := []struct{ method, args string }{
		{MethodSetGreeting, first},
		{MethodGetGreeting, domain.NoArgs},
		{MethodSetGreeting, second},
		{MethodGetGreeting, domain.NoArgs},
	}

	var unit domain.Unit
	for _, s := range steps {
		call, err := o.serviceCall(target, s.method, s.args)
		if err != nil {
			return domain.Plan{}, err
		}
		if unit == nil {
			unit = call
			continue
		}
		unit = domain.Then(unit, call)
	}
	return o.schedule(env, unit, MethodBatchActionsCallback, domain.NoArgs)
}

// BatchActionsCallback returns the raw payload of the batch's last call, or "".
func (o *Orchestrator) BatchActionsCallback(env ports.Env) (string, error) {
	if err := runtime.RequirePrivate(env, MethodBatchActionsCallback); err != nil {
		return "", err
	}

	v, ok := o.collect(env, 1)
	if !ok {
		return "", nil
	}
	return v.Payload, nil
}

// MultipleContracts joins JoinWidth independent reads of the greeting.
func (o *Orchestrator) MultipleContracts(env ports.Env) (domain.Plan, error) {
	target, err := o.service()
	if err != nil {
		return domain.Plan{}, err
	}

	units := make([]domain.Unit, 0, JoinWidth)
	for i := 0; i < JoinWidth; i++ {
		get, err := o.serviceCall(target, MethodGetGreeting, domain.NoArgs)
		if err != nil {
			return domain.Plan{}, err
		}
		units = append(units, get)
	}
	join, err := domain.NewJoin(units...)
	if err != nil {
		return domain.Plan{}, err
	}

	args, err := EncodeArgs(CollectArgs{NumberPromises: join.Slots()})
	if err != nil {
		return domain.Plan{}, err
	}
	return o.schedule(env, join, MethodMultipleContractsCallback, args)
}

// MultipleContractsCallback returns the JSON array of the n collected payloads
// in join order, or "" when the collection failed.
func (o *Orchestrator) MultipleContractsCallback(env ports.Env, n int) (string, error) {
	if err := runtime.RequirePrivate(env, MethodMultipleContractsCallback); err != nil {
		return "", err
	}

	v, ok := o.collect(env, n)
	if !ok {
		return "", nil
	}
	data, err := json.Marshal(v.Payloads())
	if err != nil {
		env.Log("failed to encode collected payloads", "err", err)
		return "", nil
	}
	return string(data), nil
}

func (o *Orchestrator) schedule(env ports.Env, unit domain.Unit, method string, args string) (domain.Plan, error) {
	plan, err := o.scheduler(env).Then(unit, method, args)
	if err != nil {
		return domain.Plan{}, err
	}
	o.logger.Debug("plan built",
		"account", env.Self(),
		"calls", len(unit.Calls()),
		"slots", plan.Slots(),
		"continuation", method,
	)
	return plan, nil
}

// collect runs the aggregator and leaves a diagnostic note either way.
func (o *Orchestrator) collect(env ports.Env, count int) (domain.Verdict, bool) {
	v, err := runtime.Collect(env, count, o.policy)
	if err != nil || !v.AllSucceeded {
		env.Log("call failed", "err", err, "policy", o.policy.String())
		return v, false
	}
	env.Log("call succeeded", "result", v.Payload)
	return v, true
}

// Invoke implements ports.Contract.
func (o *Orchestrator) Invoke(ctx context.Context, env ports.Env, method string, args string) (domain.Return, error) {
	switch method {
	case MethodInit:
		var in InitArgs
		if err := DecodeArgs(args, &in); err != nil {
			return domain.Return{}, err
		}
		if err := o.Init(env, in.HelloAccount); err != nil {
			return domain.Return{}, err
		}
		return domain.ValueOf(nil)

	case MethodQueryGreeting:
		return deferred(o.QueryGreeting(env))

	case MethodQueryGreetingCallback:
		return value(o.QueryGreetingCallback(env))

	case MethodChangeGreeting:
		var in GreetingArgs
		if err := DecodeArgs(args, &in); err != nil {
			return domain.Return{}, err
		}
		return deferred(o.ChangeGreeting(env, in.NewGreeting))

	case MethodChangeGreetingCallback:
		return value(o.ChangeGreetingCallback(env))

	case MethodBatchActions:
		var in GreetingArgs
		if err := DecodeArgs(args, &in); err != nil {
			return domain.Return{}, err
		}
		return deferred(o.BatchActions(env, in.NewGreeting))

	case MethodBatchActionsCallback:
		return value(o.BatchActionsCallback(env))

	case MethodMultipleContracts:
		return deferred(o.MultipleContracts(env))

	case MethodMultipleContractsCallback:
		var in CollectArgs
		if err := DecodeArgs(args, &in); err != nil {
			return domain.Return{}, err
		}
		payloads, err := o.MultipleContractsCallback(env, in.NumberPromises)
		if err != nil {
			return domain.Return{}, err
		}
		if payloads == "" {
			return domain.ValueOf("")
		}
		return domain.RawValue(payloads), nil
	}

	return domain.Return{}, fmt.Errorf("%s.%s: %w", env.Self(), method, domain.ErrMethodNotFound)
}

func deferred(plan domain.Plan, err error) (domain.Return, error) {
	if err != nil {
		return domain.Return{}, err
	}
	return domain.Deferred(plan), nil
}

func value[T any](v T, err error) (domain.Return, error) {
	if err != nil {
		return domain.Return{}, err
	}
	return domain.ValueOf(v)
}
