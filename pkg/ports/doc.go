/*
Package ports defines the driven ports (interfaces) between the orchestrator and its host.

These interfaces decouple the call-orchestration logic from the host that
executes calls, the storage that keeps pending outcomes and the locking used
to serialize access to an account.

# Key Interfaces

  - Contract: anything deployed on an account; invoked by the host with an Env.
  - Env: the execution environment the host gives one invocation (identity, gas, outcomes, logs).
  - OutcomeReader: indexed access to the outcomes a continuation was scheduled after.
  - SlotStore: persistence of pending outcome slots between a unit resolving and its continuation running.
  - DistributedLocker: cross-replica locking of an account's execution slot.
*/
package ports
