// Package testutils holds fakes shared by package tests.
package testutils

import (
	"fmt"
	"sync"

	"github.com/aretw0/crosscall/pkg/domain"
)

// Env is an in-memory ports.Env. The zero value runs as nobody with no slots
// and an unlimited budget.
type Env struct {
	SelfID        domain.AccountID
	PredecessorID domain.AccountID
	SignerID      domain.AccountID
	Attached      uint64
	Budget        domain.Gas
	Outcomes      []domain.Outcome

	// ReadErr makes the listed slots fail retrieval.
	ReadErr map[int]error

	mu    sync.Mutex
	burnt domain.Gas
	logs  []string
}

// NewEnv returns an Env running on self, called by predecessor.
func NewEnv(self, predecessor domain.AccountID, outcomes ...domain.Outcome) *Env {
	return &Env{
		SelfID:        self,
		PredecessorID: predecessor,
		SignerID:      predecessor,
		Outcomes:      outcomes,
	}
}

// Private returns an Env where the contract calls itself, as the host does for continuations.
func Private(self domain.AccountID, outcomes ...domain.Outcome) *Env {
	return NewEnv(self, self, outcomes...)
}

func (e *Env) Self() domain.AccountID        { return e.SelfID }
func (e *Env) Predecessor() domain.AccountID { return e.PredecessorID }
func (e *Env) Signer() domain.AccountID      { return e.SignerID }
func (e *Env) Deposit() uint64               { return e.Attached }
func (e *Env) PrepaidGas() domain.Gas        { return e.Budget }
func (e *Env) OutcomeCount() int             { return len(e.Outcomes) }

func (e *Env) Outcome(i int) (domain.Outcome, error) {
	if err, ok := e.ReadErr[i]; ok {
		return domain.Outcome{}, err
	}
	if i < 0 || i >= len(e.Outcomes) {
		return domain.Outcome{}, fmt.Errorf("slot %d: %w", i, domain.ErrSlotNotFound)
	}
	return e.Outcomes[i], nil
}

func (e *Env) UseGas(amount domain.Gas) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Budget > 0 && e.burnt+amount > e.Budget {
		e.burnt = e.Budget
		return domain.ErrGasExhausted
	}
	e.burnt += amount
	return nil
}

func (e *Env) Log(msg string, args ...any) {
	line := msg
	for i := 0; i+1 < len(args); i += 2 {
		line += fmt.Sprintf(" %v=%v", args[i], args[i+1])
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.logs = append(e.logs, line)
}

// Burnt returns the gas used so far.
func (e *Env) Burnt() domain.Gas {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.burnt
}

// Logs returns the messages logged so far.
func (e *Env) Logs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.logs...)
}
