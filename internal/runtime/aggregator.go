package runtime

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/crosscall/pkg/domain"
	"github.com/aretw0/crosscall/pkg/ports"
)

// Policy decides how a continuation classifies the outcomes it collects.
type Policy int

const (
	// StrictBatch discards the whole collection as soon as one slot cannot be
	// read or holds a failure.
	StrictBatch Policy = iota

	// PerSlot classifies every slot on its own; a slot that cannot be read
	// counts as a failure of that slot only.
	PerSlot
)

func (p Policy) String() string {
	switch p {
	case PerSlot:
		return "per-slot"
	default:
		return "strict"
	}
}

// ParsePolicy maps a configuration value to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict", "strict-batch":
		return StrictBatch, nil
	case "per-slot", "perslot":
		return PerSlot, nil
	default:
		return StrictBatch, fmt.Errorf("unknown aggregation policy %q", s)
	}
}

// Collect reads count outcomes from r and reduces them to a verdict.
//
// The verdict is always usable. The error explains why AllSucceeded is false
// and wraps domain.ErrAggregationFailure; callers log it, they do not return it.
func Collect(r ports.OutcomeReader, count int, policy Policy) (domain.Verdict, error) {
	if count <= 0 {
		return domain.Verdict{}, fmt.Errorf("count must be positive, got %d: %w", count, domain.ErrAggregationFailure)
	}
	if policy == PerSlot {
		return collectPerSlot(r, count)
	}
	return collectStrict(r, count)
}

func collectStrict(r ports.OutcomeReader, count int) (domain.Verdict, error) {
	outcomes := make([]domain.Outcome, 0, count)
	for i := 0; i < count; i++ {
		o, err := r.Outcome(i)
		if err != nil {
			return domain.Verdict{}, fmt.Errorf("slot %d: %w: %w", i, domain.ErrAggregationFailure, err)
		}
		if !o.IsSuccess() {
			return domain.Verdict{}, fmt.Errorf("slot %d: %w: %w", i, domain.ErrAggregationFailure, domain.ErrCallFailure)
		}
		outcomes = append(outcomes, o)
	}
	return domain.Verdict{
		Outcomes:     outcomes,
		AllSucceeded: true,
		Payload:      outcomes[len(outcomes)-1].Payload,
	}, nil
}

func collectPerSlot(r ports.OutcomeReader, count int) (domain.Verdict, error) {
	outcomes := make([]domain.Outcome, count)
	var errs []error
	for i := 0; i < count; i++ {
		o, err := r.Outcome(i)
		switch {
		case err != nil:
			outcomes[i] = domain.Failure()
			errs = append(errs, fmt.Errorf("slot %d: %w", i, err))
		case !o.IsSuccess():
			outcomes[i] = o
			errs = append(errs, fmt.Errorf("slot %d: %w", i, domain.ErrCallFailure))
		default:
			outcomes[i] = o
		}
	}

	v := domain.Verdict{Outcomes: outcomes, AllSucceeded: len(errs) == 0}
	if !v.AllSucceeded {
		return v, fmt.Errorf("%w: %w", domain.ErrAggregationFailure, errors.Join(errs...))
	}
	v.Payload = outcomes[count-1].Payload
	return v, nil
}
