// Package idgen hands out opaque identifiers for receipts, outcome sets and
// lock tokens. NewFunc can be replaced in tests for deterministic ids.
package idgen

import "github.com/google/uuid"

// NewFunc generates a new identifier.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new globally unique identifier.
func New() string { return NewFunc() }
