package domain

import "fmt"

// Unit is a composed, not yet submitted piece of work: a Call, a Chain or a Join.
// The set of implementations is closed.
type Unit interface {
	// Slots is the number of outcomes the unit hands to whatever runs after it.
	Slots() int

	// Calls lists every call of the unit in scheduling order.
	Calls() []Call

	unit()
}

// Call describes one remote call. It is a comparable value: two calls built
// from the same arguments are equal with ==.
type Call struct {
	Target  AccountID `json:"target"`
	Method  string    `json:"method"`
	Args    string    `json:"args"`
	Deposit uint64    `json:"deposit"`
	Gas     Gas       `json:"gas"`
}

// NewCall builds a call descriptor.
// An empty args payload is normalized to NoArgs.
func NewCall(target AccountID, method string, args string, deposit uint64, gas Gas) (Call, error) {
	if gas == 0 {
		return Call{}, fmt.Errorf("%s.%s: %w", target, method, ErrInvalidBudget)
	}
	if target == "" || method == "" {
		return Call{}, fmt.Errorf("%q.%q: %w", target, method, ErrInvalidCall)
	}
	if args == "" {
		args = NoArgs
	}
	return Call{
		Target:  target,
		Method:  method,
		Args:    args,
		Deposit: deposit,
		Gas:     gas,
	}, nil
}

// Slots implements Unit.
func (c Call) Slots() int { return 1 }

// Calls implements Unit.
func (c Call) Calls() []Call { return []Call{c} }

func (c Call) unit() {}

func (c Call) String() string {
	return fmt.Sprintf("%s.%s", c.Target, c.Method)
}
