package ports

import (
	"context"

	"github.com/aretw0/crosscall/pkg/domain"
)

// Contract is code deployed on an account. The host invokes it once per call,
// synchronously, and never while the same account is already running.
type Contract interface {
	// Invoke runs method with the encoded args. A deferred Return hands a plan
	// to the host; the host answers the caller with the plan's continuation result.
	Invoke(ctx context.Context, env Env, method string, args string) (domain.Return, error)
}

// ContractFunc adapts a function to the Contract interface.
type ContractFunc func(ctx context.Context, env Env, method string, args string) (domain.Return, error)

// Invoke implements Contract.
func (f ContractFunc) Invoke(ctx context.Context, env Env, method string, args string) (domain.Return, error) {
	return f(ctx, env, method, args)
}

// OutcomeReader gives indexed, read-only access to the outcomes of the unit a
// continuation was scheduled after.
type OutcomeReader interface {
	// OutcomeCount is the number of slots available to this invocation.
	OutcomeCount() int

	// Outcome reads slot i. A failed call is a Failure outcome with a nil error;
	// the error reports that the slot itself could not be retrieved.
	Outcome(i int) (domain.Outcome, error)
}

// Env is the execution environment of one invocation.
type Env interface {
	OutcomeReader

	// Self is the account the code runs on.
	Self() domain.AccountID

	// Predecessor is the account that issued this call.
	Predecessor() domain.AccountID

	// Signer is the account that signed the original transaction.
	Signer() domain.AccountID

	// Deposit is the value attached to the call.
	Deposit() uint64

	// PrepaidGas is the budget of this call.
	PrepaidGas() domain.Gas

	// UseGas charges the call. It returns domain.ErrGasExhausted once the budget is exceeded.
	UseGas(amount domain.Gas) error

	// Log records a diagnostic note on the receipt.
	Log(msg string, args ...any)
}
