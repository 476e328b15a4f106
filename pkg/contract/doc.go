/*
Package contract implements the cross-call orchestrator deployed on the host.

Entry operations never wait for the greeting service. Each one builds call
descriptors, composes them (single call, chain or join), attaches a private
continuation on its own account and returns that plan to the host. The host
runs the calls and later invokes the continuation, which collects the
outcomes by slot and turns them into the value the original caller receives.

	query_greeting      get_greeting                          -> unquoted greeting or ""
	change_greeting     set_greeting                          -> true or false
	batch_actions       set(X) -> get -> set("Hi") -> get     -> raw payload of the last get or ""
	multiple_contracts  get & get & get                       -> JSON array of the 3 payloads or ""

Continuations reject any predecessor other than the contract's own account
with domain.ErrUnauthorized.
*/
package contract
