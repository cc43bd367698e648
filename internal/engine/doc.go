// Package engine owns the flow state machine. Every mutation of a flow
// record passes through this package, which re-reads the record and checks
// its current status against the operation's required source states
// immediately before writing. A transition that loses a race observes the
// already-moved status and refuses, so no two terminal transitions can both
// apply to the same flow
package engine
