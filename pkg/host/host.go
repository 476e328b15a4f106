package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/crosscall/internal/idgen"
	"github.com/aretw0/crosscall/internal/logging"
	"github.com/aretw0/crosscall/pkg/adapters/memory"
	"github.com/aretw0/crosscall/pkg/domain"
	"github.com/aretw0/crosscall/pkg/ports"
	"github.com/aretw0/crosscall/pkg/slots"
	"golang.org/x/sync/errgroup"
)

// Directory resolves accounts to deployed contracts.
type Directory interface {
	Lookup(account domain.AccountID) (ports.Contract, error)
}

// Host executes transactions against the contracts of a Directory.
type Host struct {
	dir     Directory
	slots   *slots.Manager
	store   ports.SlotStore
	locker  ports.DistributedLocker
	gas     GasSchedule
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
	delay   func(member int) time.Duration
	pending sync.WaitGroup
}

// Option configures the Host.
type Option func(*Host)

// WithLogger sets the host logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) {
		h.logger = logger
	}
}

// WithHooks registers lifecycle hooks. Repeated calls merge.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(h *Host) {
		h.hooks = h.hooks.Merge(hooks)
	}
}

// WithStore sets where outcomes wait for their continuation. Defaults to memory.
func WithStore(store ports.SlotStore) Option {
	return func(h *Host) {
		h.store = store
	}
}

// WithLocker extends per-account exclusion across host replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(h *Host) {
		h.locker = locker
	}
}

// WithGasSchedule overrides DefaultGasSchedule.
func WithGasSchedule(s GasSchedule) Option {
	return func(h *Host) {
		h.gas = s
	}
}

// WithJoinDelay holds join member i back by delay(i) before it runs.
// Tests use it to make members finish out of declaration order.
func WithJoinDelay(delay func(member int) time.Duration) Option {
	return func(h *Host) {
		h.delay = delay
	}
}

// New creates a host running the contracts of dir.
func New(dir Directory, opts ...Option) *Host {
	h := &Host{
		dir:    dir,
		gas:    DefaultGasSchedule,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.store == nil {
		h.store = memory.NewStore()
	}

	mopts := []slots.Option{slots.WithLogger(h.logger)}
	if h.locker != nil {
		mopts = append(mopts, slots.WithLocker(h.locker))
	}
	h.slots = slots.NewManager(h.store, mopts...)
	return h
}

// Slots exposes the slot manager, mostly for inspection of pending sets.
func (h *Host) Slots() *slots.Manager {
	return h.slots
}

// Submit starts executing tx and returns without waiting for it.
func (h *Host) Submit(ctx context.Context, tx domain.Transaction) (*Receipt, error) {
	if tx.Gas == 0 {
		tx.Gas = DefaultTransactionGas
	}
	if tx.Signer == "" {
		return nil, fmt.Errorf("signer is required: %w", domain.ErrInvalidCall)
	}
	// Signers are not authenticated. An account only calls itself through
	// host-scheduled continuations, so a self-signed transaction would pass
	// every private-method check.
	if tx.Signer == tx.Receiver {
		return nil, fmt.Errorf("%s cannot sign a transaction to itself: %w", tx.Signer, domain.ErrUnauthorized)
	}
	call, err := domain.NewCall(tx.Receiver, tx.Method, tx.Args, tx.Deposit, tx.Gas)
	if err != nil {
		return nil, err
	}

	r := newReceipt(idgen.New(), tx)
	h.logger.Debug("transaction submitted", "receipt", r.ID(), "signer", tx.Signer, "call", call.String())

	// The receipt outlives the request that submitted it.
	runCtx := context.WithoutCancel(ctx)

	h.pending.Add(1)
	go func() {
		defer h.pending.Done()
		outcome, err := h.execute(runCtx, r, tx.Signer, tx.Signer, call, slots.Empty)
		if err != nil {
			h.logger.Debug("transaction failed", "receipt", r.ID(), "err", err)
		}
		r.resolve(outcome, err)
	}()
	return r, nil
}

// Call submits tx and waits for its final outcome.
func (h *Host) Call(ctx context.Context, tx domain.Transaction) (domain.Outcome, *Receipt, error) {
	r, err := h.Submit(ctx, tx)
	if err != nil {
		return domain.Outcome{}, nil, err
	}
	outcome, err := r.Wait(ctx)
	return outcome, r, err
}

// Drain waits for every submitted transaction to resolve.
func (h *Host) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.pending.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// execute runs one call to completion. A call that returns a plan completes
// when the plan's continuation does, and reports the continuation's outcome.
func (h *Host) execute(ctx context.Context, r *Receipt, predecessor, signer domain.AccountID, call domain.Call, reader ports.OutcomeReader) (domain.Outcome, error) {
	rec := domain.CallRecord{
		Seq:         r.nextSeq(),
		Predecessor: predecessor,
		Call:        call,
		StartedAt:   time.Now(),
	}
	h.emitCall(ctx, h.hooks.OnCallStart, r, domain.EventCallStart, rec)

	ret, burnt, err := h.invoke(ctx, r, predecessor, signer, call, reader)

	rec.GasBurnt = burnt
	rec.Duration = time.Since(rec.StartedAt)
	rec.Status = domain.StatusSuccess
	if err != nil {
		rec.Status = domain.StatusFailure
		rec.Error = err.Error()
	}
	r.record(rec)
	h.emitCall(ctx, h.hooks.OnCallResolved, r, domain.EventCallResolved, rec)

	if err != nil {
		h.logger.Debug("call failed", "receipt", r.ID(), "call", call.String(), "err", err)
		return domain.Failure(), err
	}
	if !ret.IsDeferred() {
		return domain.Success(ret.Value), nil
	}
	return h.resolvePlan(ctx, r, call.Target, signer, *ret.Plan)
}

// invoke runs the contract under the account lock and reports the gas it burnt.
func (h *Host) invoke(ctx context.Context, r *Receipt, predecessor, signer domain.AccountID, call domain.Call, reader ports.OutcomeReader) (domain.Return, domain.Gas, error) {
	contract, err := h.dir.Lookup(call.Target)
	if err != nil {
		return domain.Return{}, 0, &domain.CallError{Target: call.Target, Method: call.Method, Err: err}
	}

	m := &meter{limit: call.Gas}
	e := &env{
		self:        call.Target,
		predecessor: predecessor,
		signer:      signer,
		deposit:     call.Deposit,
		meter:       m,
		readCost:    h.gas.OutcomeRead,
		reader:      reader,
		log: func(account domain.AccountID, msg string, args ...any) {
			r.log(account, msg, args...)
			h.logger.Debug(msg, append([]any{"account", account, "receipt_id", r.ID()}, args...)...)
		},
	}

	var (
		ret       domain.Return
		invokeErr error
	)
	lockErr := h.slots.WithLock(ctx, accountKey(call.Target), func(ctx context.Context) error {
		if invokeErr = m.use(h.gas.Base + h.gas.PerByte*domain.Gas(len(call.Args))); invokeErr != nil {
			return nil
		}
		ret, invokeErr = contract.Invoke(ctx, e, call.Method, call.Args)
		return nil
	})
	if lockErr != nil {
		// Not the contract's fault; surfaces as a host fault.
		return domain.Return{}, m.used, fmt.Errorf("failed to lock %s: %w", call.Target, lockErr)
	}
	if invokeErr != nil {
		return domain.Return{}, m.used, &domain.CallError{Target: call.Target, Method: call.Method, Err: invokeErr}
	}
	return ret, m.used, nil
}

// resolvePlan runs the plan's unit, parks its outcomes and invokes the continuation.
func (h *Host) resolvePlan(ctx context.Context, r *Receipt, owner, signer domain.AccountID, plan domain.Plan) (domain.Outcome, error) {
	if plan.Unit == nil {
		return domain.Failure(), &domain.CallError{Target: owner, Method: plan.Continuation.Method, Err: domain.ErrInvalidCall}
	}
	if plan.Continuation.Target != owner {
		return domain.Failure(), &domain.CallError{Target: owner, Method: plan.Continuation.Method, Err: domain.ErrForeignContinuation}
	}

	event := domain.PlanEvent{
		EventBase:    domain.EventBase{Timestamp: time.Now(), Type: domain.EventPlanScheduled, ReceiptID: r.ID()},
		Owner:        owner,
		Slots:        plan.Slots(),
		Continuation: plan.Continuation,
		Phase:        domain.PhaseAwaitingHost,
	}
	if h.hooks.OnPlanScheduled != nil {
		h.hooks.OnPlanScheduled(ctx, &event)
	}

	outcomes, err := h.resolve(ctx, r, owner, signer, plan.Unit)
	if err != nil {
		return domain.Failure(), err
	}

	var result domain.Outcome
	var callErr error
	err = h.withSlots(ctx, outcomes, func(id string, reader ports.OutcomeReader) {
		event.SetID = id
		event.Timestamp = time.Now()
		event.Type = domain.EventContinuation
		event.Phase = domain.PhaseContinuation
		if h.hooks.OnContinuation != nil {
			h.hooks.OnContinuation(ctx, &event)
		}
		result, callErr = h.execute(ctx, r, owner, signer, plan.Continuation, reader)
	})
	if err != nil {
		return domain.Failure(), err
	}
	return result, callErr
}

// resolve executes unit on behalf of owner and returns one outcome per slot.
// Failed calls become Failure outcomes; only host faults are returned as errors.
func (h *Host) resolve(ctx context.Context, r *Receipt, owner, signer domain.AccountID, unit domain.Unit) ([]domain.Outcome, error) {
	switch u := unit.(type) {
	case domain.Call:
		o, _ := h.execute(ctx, r, owner, signer, u, slots.Empty)
		return []domain.Outcome{o}, nil

	case domain.Chain:
		if len(u.Steps) == 0 {
			return nil, fmt.Errorf("empty chain: %w", domain.ErrInvalidCall)
		}
		prev, err := h.resolve(ctx, r, owner, signer, u.Steps[0])
		if err != nil {
			return nil, err
		}
		for _, step := range u.Steps[1:] {
			call, ok := step.(domain.Call)
			if !ok {
				return nil, fmt.Errorf("chain step %T: %w", step, domain.ErrInvalidCall)
			}
			var next domain.Outcome
			err := h.withSlots(ctx, prev, func(_ string, reader ports.OutcomeReader) {
				next, _ = h.execute(ctx, r, owner, signer, call, reader)
			})
			if err != nil {
				return nil, err
			}
			prev = []domain.Outcome{next}
		}
		return prev, nil

	case domain.Join:
		out := make([]domain.Outcome, len(u.Members))
		g, gctx := errgroup.WithContext(ctx)
		for i, member := range u.Members {
			g.Go(func() error {
				if h.delay != nil {
					select {
					case <-gctx.Done():
						return gctx.Err()
					case <-time.After(h.delay(i)):
					}
				}
				res, err := h.resolve(gctx, r, owner, signer, member)
				if err != nil {
					return err
				}
				out[i] = res[len(res)-1]
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return out, nil
	}

	return nil, fmt.Errorf("unit %T: %w", unit, domain.ErrInvalidCall)
}

// withSlots parks outcomes in the store for the duration of fn.
func (h *Host) withSlots(ctx context.Context, outcomes []domain.Outcome, fn func(id string, reader ports.OutcomeReader)) error {
	id := idgen.New()
	if err := h.slots.Save(ctx, id, outcomes); err != nil {
		return fmt.Errorf("failed to park outcomes: %w", err)
	}
	defer func() {
		if err := h.slots.Delete(ctx, id); err != nil {
			h.logger.Warn("failed to release outcomes", "set", id, "err", err)
		}
	}()

	reader, err := h.slots.Reader(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to open outcomes: %w", err)
	}
	fn(id, reader)
	return nil
}

func (h *Host) emitCall(ctx context.Context, hook func(context.Context, *domain.CallEvent), r *Receipt, typ domain.EventType, rec domain.CallRecord) {
	if hook == nil {
		return
	}
	hook(ctx, &domain.CallEvent{
		EventBase:   domain.EventBase{Timestamp: time.Now(), Type: typ, ReceiptID: r.ID()},
		Predecessor: rec.Predecessor,
		Call:        rec.Call,
		Status:      rec.Status,
		GasBurnt:    rec.GasBurnt,
		Duration:    rec.Duration,
	})
}

func accountKey(account domain.AccountID) string {
	return "account:" + string(account)
}

// IsHostFault reports whether err came from the host itself rather than from a contract.
func IsHostFault(err error) bool {
	var ce *domain.CallError
	return err != nil && !errors.As(err, &ce)
}
