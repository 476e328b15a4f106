package runtime

import (
	"fmt"

	"github.com/aretw0/crosscall/pkg/domain"
	"github.com/aretw0/crosscall/pkg/ports"
)

// Scheduler attaches continuations that call back into the scheduling account.
type Scheduler struct {
	self domain.AccountID
	gas  domain.Gas
}

// NewScheduler creates a scheduler for continuations on self, each given gas.
func NewScheduler(self domain.AccountID, gas domain.Gas) Scheduler {
	return Scheduler{self: self, gas: gas}
}

// Then schedules method on the scheduling account to run once unit resolves.
// No call is issued; the returned plan is handed to the host by the caller.
func (s Scheduler) Then(unit domain.Unit, method string, args string) (domain.Plan, error) {
	cont, err := domain.NewCall(s.self, method, args, domain.NoDeposit, s.gas)
	if err != nil {
		return domain.Plan{}, fmt.Errorf("failed to build continuation: %w", err)
	}
	return s.Attach(unit, cont)
}

// Attach binds an already built continuation to unit.
func (s Scheduler) Attach(unit domain.Unit, cont domain.Call) (domain.Plan, error) {
	if unit == nil {
		return domain.Plan{}, fmt.Errorf("nothing to continue: %w", domain.ErrInvalidCall)
	}
	if cont.Target != s.self {
		return domain.Plan{}, fmt.Errorf("continuation targets %s, scheduler runs on %s: %w",
			cont.Target, s.self, domain.ErrForeignContinuation)
	}
	return domain.WithContinuation(unit, cont), nil
}

// RequirePrivate rejects invocations that do not come from the account itself.
// Continuations are private: only the host, acting for the account, may call them.
func RequirePrivate(env ports.Env, method string) error {
	if env.Predecessor() != env.Self() {
		return fmt.Errorf("%s called by %s: %w", method, env.Predecessor(), domain.ErrUnauthorized)
	}
	return nil
}
