package domain

// Plan is the deferred result of an entry operation: a unit plus the
// continuation the host must run once the unit has resolved. The host delivers
// the continuation's return value to the original caller.
type Plan struct {
	Unit         Unit `json:"-"`
	Continuation Call `json:"continuation"`
}

// WithContinuation attaches cont to run after unit.
func WithContinuation(unit Unit, cont Call) Plan {
	return Plan{Unit: unit, Continuation: cont}
}

// Slots is the number of outcomes the continuation can read.
func (p Plan) Slots() int {
	if p.Unit == nil {
		return 0
	}
	return p.Unit.Slots()
}

// Phase is the lifecycle position of one externally invoked operation.
type Phase string

const (
	PhaseEntry        Phase = "entry"
	PhasePlanBuilt    Phase = "plan_built"
	PhaseAwaitingHost Phase = "awaiting_host"
	PhaseContinuation Phase = "continuation_invoked"
	PhaseProjected    Phase = "result_projected"
	PhaseReturned     Phase = "returned"
)
