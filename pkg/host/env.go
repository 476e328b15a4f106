package host

import (
	"fmt"
	"sync"

	"github.com/aretw0/crosscall/pkg/domain"
	"github.com/aretw0/crosscall/pkg/ports"
)

// env is the ports.Env handed to one invocation.
type env struct {
	self        domain.AccountID
	predecessor domain.AccountID
	signer      domain.AccountID
	deposit     uint64

	meter    *meter
	readCost domain.Gas
	reader   ports.OutcomeReader
	log      func(account domain.AccountID, msg string, args ...any)

	mu   sync.Mutex
	read map[int]bool
}

func (e *env) Self() domain.AccountID        { return e.self }
func (e *env) Predecessor() domain.AccountID { return e.predecessor }
func (e *env) Signer() domain.AccountID      { return e.signer }
func (e *env) Deposit() uint64               { return e.deposit }
func (e *env) PrepaidGas() domain.Gas        { return e.meter.limit }

func (e *env) UseGas(amount domain.Gas) error {
	return e.meter.use(amount)
}

func (e *env) OutcomeCount() int {
	return e.reader.OutcomeCount()
}

// Outcome hands out each slot once. The read is charged before touching the
// slot, so an under-provisioned continuation sees a retrieval error rather
// than a payload.
func (e *env) Outcome(i int) (domain.Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.read[i] {
		return domain.Outcome{}, fmt.Errorf("slot %d: %w", i, domain.ErrSlotConsumed)
	}
	if err := e.meter.use(e.readCost); err != nil {
		return domain.Outcome{}, fmt.Errorf("reading slot %d: %w", i, err)
	}
	o, err := e.reader.Outcome(i)
	if err != nil {
		return domain.Outcome{}, err
	}
	if e.read == nil {
		e.read = make(map[int]bool)
	}
	e.read[i] = true
	return o, nil
}

func (e *env) Log(msg string, args ...any) {
	e.log(e.self, msg, args...)
}
