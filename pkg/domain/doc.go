/*
Package domain contains the core value types of the crosscall orchestrator.

It describes remote calls and how they are composed, without executing
anything. This package is kept pure and free of I/O, persistence and host
concerns; the host and the adapters depend on it, never the other way around.

# Key Entities

  - Call: an immutable description of one remote call (target, method, args, deposit, gas).
  - Chain: an ordered sequence of calls where only the last outcome is observable.
  - Join: two or more units resolved independently, one outcome slot per member.
  - Plan: a unit with a self-targeted continuation attached; what an entry operation returns.
  - Outcome: Success(payload) or Failure, read by the continuation by slot index.
  - Verdict: the reduction of a continuation's outcomes into one success flag and payload.
*/
package domain
