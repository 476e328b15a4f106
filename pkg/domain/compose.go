package domain

import "fmt"

// Chain runs its steps strictly one after another. The first step can be any
// unit; every later step is a call. A step runs whether or not the previous
// one succeeded, and it receives the previous step's outcomes.
// Only the outcome of the last call is observable past the chain.
type Chain struct {
	Steps []Unit
}

// Then appends next to unit. Chaining onto an existing chain extends a copy of it.
func Then(unit Unit, next Call) Chain {
	if c, ok := unit.(Chain); ok {
		steps := make([]Unit, 0, len(c.Steps)+1)
		steps = append(steps, c.Steps...)
		return Chain{Steps: append(steps, next)}
	}
	return Chain{Steps: []Unit{unit, next}}
}

// Then appends next to the chain.
func (c Chain) Then(next Call) Chain {
	return Then(c, next)
}

// Last returns the call whose outcome the chain reports.
func (c Chain) Last() Call {
	if len(c.Steps) == 0 {
		return Call{}
	}
	last, _ := c.Steps[len(c.Steps)-1].(Call)
	return last
}

// Slots implements Unit.
func (c Chain) Slots() int { return 1 }

// Calls implements Unit.
func (c Chain) Calls() []Call {
	var calls []Call
	for _, s := range c.Steps {
		calls = append(calls, s.Calls()...)
	}
	return calls
}

func (c Chain) unit() {}

// Join groups units that resolve independently. It resolves once every member
// has resolved and exposes one outcome slot per member, in declaration order.
type Join struct {
	Members []Unit
}

// NewJoin joins two or more units. Nested joins are flattened, so
// NewJoin(NewJoin(a, b), c) has the three slots a, b, c.
func NewJoin(units ...Unit) (Join, error) {
	members := make([]Unit, 0, len(units))
	for _, u := range units {
		if j, ok := u.(Join); ok {
			members = append(members, j.Members...)
			continue
		}
		members = append(members, u)
	}
	if len(members) < 2 {
		return Join{}, fmt.Errorf("got %d: %w", len(members), ErrInvalidJoin)
	}
	return Join{Members: members}, nil
}

// And joins one more unit to j.
func (j Join) And(u Unit) Join {
	members := make([]Unit, 0, len(j.Members)+1)
	members = append(members, j.Members...)
	if other, ok := u.(Join); ok {
		return Join{Members: append(members, other.Members...)}
	}
	return Join{Members: append(members, u)}
}

// Slots implements Unit.
func (j Join) Slots() int { return len(j.Members) }

// Calls implements Unit.
func (j Join) Calls() []Call {
	var calls []Call
	for _, m := range j.Members {
		calls = append(calls, m.Calls()...)
	}
	return calls
}

func (j Join) unit() {}
