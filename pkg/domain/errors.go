package domain

import (
	"errors"
	"fmt"
)

// Construction errors. They abort an entry operation before anything is scheduled.
var (
	// ErrInvalidBudget is returned when a call is built with a zero gas budget.
	ErrInvalidBudget = errors.New("invalid budget: gas must be positive")

	// ErrInvalidCall is returned when a call has no target or no method.
	ErrInvalidCall = errors.New("invalid call: target and method are required")

	// ErrInvalidJoin is returned when fewer than two units are joined.
	ErrInvalidJoin = errors.New("invalid join: at least two units are required")

	// ErrForeignContinuation is returned when a continuation does not target the scheduling account.
	ErrForeignContinuation = errors.New("continuation must target the scheduling account")
)

// Invocation errors.
var (
	// ErrUnauthorized is returned when a private method is invoked by another account.
	ErrUnauthorized = errors.New("unauthorized: method is private")

	// ErrAlreadyInitialized is returned when a contract is initialized twice.
	ErrAlreadyInitialized = errors.New("contract already initialized")

	// ErrNotInitialized is returned when an entry operation runs before initialization.
	ErrNotInitialized = errors.New("contract not initialized")

	// ErrAccountNotFound is returned when a call targets an account with nothing deployed.
	ErrAccountNotFound = errors.New("account not found")

	// ErrMethodNotFound is returned when a contract does not expose the requested method.
	ErrMethodNotFound = errors.New("method not found")

	// ErrInvalidArgs is returned when a call payload cannot be decoded.
	ErrInvalidArgs = errors.New("invalid arguments")
)

// Execution and aggregation errors.
var (
	// ErrCallFailure marks a scheduled call that did not resolve successfully.
	ErrCallFailure = errors.New("call failed")

	// ErrGasExhausted is returned when a call burns more gas than it was given.
	ErrGasExhausted = errors.New("gas exhausted")

	// ErrAggregationFailure is returned when the outcomes of a continuation cannot all be collected.
	ErrAggregationFailure = errors.New("aggregation failed")

	// ErrSlotNotFound is returned when an outcome slot index is out of range.
	ErrSlotNotFound = errors.New("outcome slot not found")

	// ErrSlotConsumed is returned when a continuation reads the same slot twice.
	ErrSlotConsumed = errors.New("outcome slot already read")

	// ErrSlotsNotFound is returned when a pending slot set does not exist in the store.
	ErrSlotsNotFound = errors.New("pending slots not found")
)

// CallError reports the failure of one remote call.
type CallError struct {
	Target AccountID
	Method string
	Err    error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("call %s.%s failed: %v", e.Target, e.Method, e.Err)
}

// Unwrap exposes both the cause and ErrCallFailure to errors.Is.
func (e *CallError) Unwrap() []error {
	return []error{ErrCallFailure, e.Err}
}
