// Package runtime holds the pieces an orchestrator runs inside one invocation:
// scheduling self-targeted continuations, collecting outcomes by slot and
// projecting the collected payload.
package runtime
