/*
Package crosscall deploys a cross-call orchestrator next to a greeting service
on a simulated host, and exposes the orchestrator's operations as plain Go
calls.

The orchestrator never waits on the service. Each operation hands the host a
plan made of call descriptors plus a private continuation on the
orchestrator's own account; the host executes the calls, keeps their outcomes
in numbered slots and then runs the continuation, whose return value is what
the caller finally receives.

# Usage

	d := crosscall.New()
	if err := d.Init(ctx, "alice.test"); err != nil {
		log.Fatal(err)
	}

	greeting, _, err := d.QueryGreeting(ctx, "alice.test")

# Operations

  - QueryGreeting: one read, answered with the unquoted greeting.
  - ChangeGreeting: one write, answered with true or false.
  - BatchActions: set, get, set("Hi"), get in order, answered with the last payload.
  - MultipleContracts: three reads joined, answered with the payloads in join order.

Failures never surface as errors from these operations; they degrade to false,
"" or nil and leave a note in the receipt's logs. Errors are reserved for
calls the host refused, such as an uninitialized orchestrator.
*/
package crosscall
