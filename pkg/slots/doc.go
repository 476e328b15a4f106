/*
Package slots coordinates access to pending outcome sets and to the accounts
that own them.

A Manager wraps a ports.SlotStore with per-key locks. Locks are reference
counted so keys that are no longer in use do not accumulate in memory, and an
optional ports.DistributedLocker extends the exclusion across host replicas.
*/
package slots
