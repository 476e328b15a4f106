package host

import (
	"fmt"

	"github.com/aretw0/crosscall/pkg/domain"
)

// GasSchedule prices the work the host does on behalf of a call.
type GasSchedule struct {
	// Base is charged once per invocation.
	Base domain.Gas `json:"base" yaml:"base"`
	// PerByte is charged for every byte of the call's arguments.
	PerByte domain.Gas `json:"per_byte" yaml:"per_byte"`
	// OutcomeRead is charged each time a continuation reads a slot.
	OutcomeRead domain.Gas `json:"outcome_read" yaml:"outcome_read"`
}

// DefaultGasSchedule leaves every budget in the 5/10 TGas range with room to spare.
var DefaultGasSchedule = GasSchedule{
	Base:        domain.TGas,
	PerByte:     1_000_000,
	OutcomeRead: domain.TGas,
}

// DefaultTransactionGas is attached to transactions that do not set a budget.
const DefaultTransactionGas = 300 * domain.TGas

// meter tracks the gas burnt by one invocation against its budget.
type meter struct {
	limit domain.Gas
	used  domain.Gas
}

func (m *meter) use(amount domain.Gas) error {
	left := m.limit - m.used
	if amount > left {
		m.used = m.limit
		return fmt.Errorf("needed %d, %d left: %w", amount, left, domain.ErrGasExhausted)
	}
	m.used += amount
	return nil
}
