/*
Package host simulates the runtime that contracts are deployed on.

A Host accepts transactions, invokes the target contract and, whenever a
contract hands back a plan instead of a value, executes the plan's calls and
later invokes the plan's continuation with the collected outcomes. The value
the continuation returns becomes the answer of the original call.

	h := host.New(reg)
	receipt, err := h.Submit(ctx, domain.Transaction{
		Signer:   "alice.test",
		Receiver: "orchestrator.test",
		Method:   "query_greeting",
	})
	outcome, err := receipt.Wait(ctx)

Calls on the same account never overlap. Join members run concurrently and
chain steps run in order. Outcomes are kept in a ports.SlotStore between the
two halves of a plan and deleted once the continuation has run.
*/
package host
