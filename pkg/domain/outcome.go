package domain

// OutcomeStatus classifies how a call resolved.
type OutcomeStatus string

const (
	StatusSuccess OutcomeStatus = "success"
	StatusFailure OutcomeStatus = "failure"
)

// Outcome is the per-call result the host keeps in a pending slot.
type Outcome struct {
	Status  OutcomeStatus `json:"status"`
	Payload string        `json:"payload,omitempty"`
}

// Success builds a successful outcome carrying payload.
func Success(payload string) Outcome {
	return Outcome{Status: StatusSuccess, Payload: payload}
}

// Failure builds a failed outcome. Failures carry no payload.
func Failure() Outcome {
	return Outcome{Status: StatusFailure}
}

// IsSuccess reports whether the call resolved successfully.
func (o Outcome) IsSuccess() bool {
	return o.Status == StatusSuccess
}

// Verdict is what the aggregator reduces a continuation's outcomes to.
type Verdict struct {
	Outcomes     []Outcome `json:"outcomes"`
	AllSucceeded bool      `json:"all_succeeded"`

	// Payload is the last outcome's payload when AllSucceeded, empty otherwise.
	Payload string `json:"payload"`
}

// Payloads returns the payload of every collected outcome in slot order.
func (v Verdict) Payloads() []string {
	out := make([]string, 0, len(v.Outcomes))
	for _, o := range v.Outcomes {
		out = append(out, o.Payload)
	}
	return out
}
