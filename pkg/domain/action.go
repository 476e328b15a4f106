package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Return is what a contract method hands back to the host: either a Plan the
// host must resolve before answering, or an already encoded value.
type Return struct {
	Plan  *Plan
	Value string
}

// Deferred wraps a plan as a method return.
func Deferred(p Plan) Return {
	return Return{Plan: &p}
}

// RawValue wraps an already encoded value.
func RawValue(encoded string) Return {
	return Return{Value: encoded}
}

// ValueOf JSON-encodes v as a method return.
func ValueOf(v any) (Return, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Return{}, fmt.Errorf("failed to encode return value: %w", err)
	}
	return Return{Value: string(data)}, nil
}

// IsDeferred reports whether the return is a plan.
func (r Return) IsDeferred() bool {
	return r.Plan != nil
}

// Transaction is an external request to invoke a method on an account.
type Transaction struct {
	Signer   AccountID `json:"signer"`
	Receiver AccountID `json:"receiver"`
	Method   string    `json:"method"`
	Args     string    `json:"args,omitempty"`
	Deposit  uint64    `json:"deposit,omitempty"`
	Gas      Gas       `json:"gas,omitempty"`
}

// CallRecord is the host's trace entry for one executed call.
type CallRecord struct {
	Seq         int           `json:"seq"`
	Predecessor AccountID     `json:"predecessor"`
	Call        Call          `json:"call"`
	Status      OutcomeStatus `json:"status"`
	GasBurnt    Gas           `json:"gas_burnt"`
	Error       string        `json:"error,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
}
