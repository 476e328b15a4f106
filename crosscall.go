package crosscall

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aretw0/crosscall/internal/logging"
	"github.com/aretw0/crosscall/internal/runtime"
	"github.com/aretw0/crosscall/pkg/contract"
	"github.com/aretw0/crosscall/pkg/domain"
	"github.com/aretw0/crosscall/pkg/host"
	"github.com/aretw0/crosscall/pkg/ports"
	"github.com/aretw0/crosscall/pkg/registry"
	"github.com/aretw0/crosscall/pkg/services/greeting"
)

// Default accounts of a deployment.
const (
	DefaultSelf         domain.AccountID = "orchestrator.test"
	DefaultHelloAccount domain.AccountID = "hello.test"
)

// Deployment is an orchestrator and a greeting service running on one host.
type Deployment struct {
	Host         *host.Host
	Registry     *registry.Registry
	Orchestrator *contract.Orchestrator
	Greeting     *greeting.Service

	self   domain.AccountID
	hello  domain.AccountID
	logger *slog.Logger

	hostOpts     []host.Option
	contractOpts []contract.Option
	greeter      ports.Contract
}

// Option configures a Deployment.
type Option func(*Deployment)

// WithAccounts sets the orchestrator account and the greeting service account.
func WithAccounts(self, hello domain.AccountID) Option {
	return func(d *Deployment) {
		d.self = self
		d.hello = hello
	}
}

// WithLogger sets the logger shared by the host and the orchestrator.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Deployment) {
		d.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks on the host.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(d *Deployment) {
		d.hostOpts = append(d.hostOpts, host.WithHooks(hooks))
	}
}

// WithHostOptions passes options straight to the host.
func WithHostOptions(opts ...host.Option) Option {
	return func(d *Deployment) {
		d.hostOpts = append(d.hostOpts, opts...)
	}
}

// WithBudgets sets the gas of service calls and of continuations.
func WithBudgets(light, heavy domain.Gas) Option {
	return func(d *Deployment) {
		d.contractOpts = append(d.contractOpts, contract.WithBudgets(light, heavy))
	}
}

// WithPolicy sets how continuations classify their outcomes.
func WithPolicy(p runtime.Policy) Option {
	return func(d *Deployment) {
		d.contractOpts = append(d.contractOpts, contract.WithPolicy(p))
	}
}

// WithGreeter deploys c on the greeting account instead of the in-memory service.
func WithGreeter(c ports.Contract) Option {
	return func(d *Deployment) {
		d.greeter = c
	}
}

// New deploys the contracts. The orchestrator still needs Init.
func New(opts ...Option) *Deployment {
	d := &Deployment{
		self:   DefaultSelf,
		hello:  DefaultHelloAccount,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.Registry = registry.NewRegistry()
	d.Orchestrator = contract.New(append([]contract.Option{contract.WithLogger(d.logger)}, d.contractOpts...)...)
	d.Registry.Deploy(d.self, d.Orchestrator)

	if d.greeter == nil {
		d.Greeting = greeting.New()
		d.greeter = d.Greeting
	}
	d.Registry.Deploy(d.hello, d.greeter)

	d.Host = host.New(d.Registry, append([]host.Option{host.WithLogger(d.logger)}, d.hostOpts...)...)
	return d
}

// Self is the orchestrator account.
func (d *Deployment) Self() domain.AccountID { return d.self }

// HelloAccount is the greeting service account.
func (d *Deployment) HelloAccount() domain.AccountID { return d.hello }

// Init points the orchestrator at the greeting service account.
func (d *Deployment) Init(ctx context.Context, signer domain.AccountID) error {
	args, err := contract.EncodeArgs(contract.InitArgs{HelloAccount: d.hello})
	if err != nil {
		return err
	}
	_, _, err = d.Call(ctx, signer, contract.MethodInit, args)
	return err
}

// Call submits method on the orchestrator and waits for the final outcome.
func (d *Deployment) Call(ctx context.Context, signer domain.AccountID, method, args string) (domain.Outcome, *host.Receipt, error) {
	return d.Host.Call(ctx, domain.Transaction{
		Signer:   signer,
		Receiver: d.self,
		Method:   method,
		Args:     args,
	})
}

// QueryGreeting returns the greeting unquoted, or "" if it could not be read.
func (d *Deployment) QueryGreeting(ctx context.Context, signer domain.AccountID) (string, *host.Receipt, error) {
	var out string
	r, err := d.callInto(ctx, signer, contract.MethodQueryGreeting, domain.NoArgs, &out)
	return out, r, err
}

// ChangeGreeting reports whether the greeting was changed.
func (d *Deployment) ChangeGreeting(ctx context.Context, signer domain.AccountID, greeting string) (bool, *host.Receipt, error) {
	args, err := contract.EncodeArgs(contract.GreetingArgs{NewGreeting: greeting})
	if err != nil {
		return false, nil, err
	}
	var out bool
	r, err := d.callInto(ctx, signer, contract.MethodChangeGreeting, args, &out)
	return out, r, err
}

// BatchActions returns the raw payload of the batch's last read, or "".
func (d *Deployment) BatchActions(ctx context.Context, signer domain.AccountID, greeting string) (string, *host.Receipt, error) {
	args, err := contract.EncodeArgs(contract.GreetingArgs{NewGreeting: greeting})
	if err != nil {
		return "", nil, err
	}
	var out string
	r, err := d.callInto(ctx, signer, contract.MethodBatchActions, args, &out)
	return out, r, err
}

// MultipleContracts returns the joined payloads in join order, or nil on failure.
func (d *Deployment) MultipleContracts(ctx context.Context, signer domain.AccountID) ([]string, *host.Receipt, error) {
	var raw json.RawMessage
	r, err := d.callInto(ctx, signer, contract.MethodMultipleContracts, domain.NoArgs, &raw)
	if err != nil {
		return nil, r, err
	}

	var payloads []string
	if err := json.Unmarshal(raw, &payloads); err != nil {
		// The degraded answer is the empty string, not an array.
		return nil, r, nil
	}
	return payloads, r, nil
}

func (d *Deployment) callInto(ctx context.Context, signer domain.AccountID, method, args string, out any) (*host.Receipt, error) {
	outcome, r, err := d.Call(ctx, signer, method, args)
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal([]byte(outcome.Payload), out); err != nil {
		return r, fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return r, nil
}
