package domain

// AccountID identifies a deployed contract or service on the host.
type AccountID string

func (a AccountID) String() string {
	return string(a)
}

// Gas is the unit of execution resources the host charges a call for.
type Gas uint64

// TGas is one tera-gas.
const TGas Gas = 1_000_000_000_000

// Default budgets. Calls into an external service get the light budget,
// continuations get the heavy one.
const (
	GasLight Gas = 5 * TGas
	GasHeavy Gas = 10 * TGas
)

const (
	// NoDeposit is the attached value of calls that transfer nothing.
	NoDeposit uint64 = 0

	// NoArgs is the encoded empty argument object.
	NoArgs = "{}"
)
