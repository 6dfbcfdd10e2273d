package kernel

import "fmt"

// MaxCallDepthExceededError is returned when invoking a function or
// method would push a call frame beyond the configured MaxCallDepth.
type MaxCallDepthExceededError struct {
	MaxDepth int
}

func (e *MaxCallDepthExceededError) Error() string {
	return fmt.Sprintf("kernel: max call depth %d exceeded", e.MaxDepth)
}

// InvalidCallDataError is returned when sanitizing call
// arguments/return values finds a reference to a node kind that is
// never allowed to cross a call boundary (KeyValueStore, Vault).
type InvalidCallDataError struct {
	Reason string
}

func (e *InvalidCallDataError) Error() string {
	return "kernel: invalid call data: " + e.Reason
}

// NodeNotVisibleError is returned when a call frame references a node
// it has no owned handle or node-ref entry for.
type NodeNotVisibleError struct {
	Node string
}

func (e *NodeNotVisibleError) Error() string {
	return "kernel: node not visible to this frame: " + e.Node
}

// AuthorizationError is returned when a proof-rule check on a function
// or method invocation fails.
type AuthorizationError struct {
	Rule string
}

func (e *AuthorizationError) Error() string {
	return "kernel: authorization failed for " + e.Rule
}

// DirtyFrameError is returned when a call frame returns while still
// owning heap nodes (buckets, proofs) that were neither dropped nor
// moved into the return value or a visible parent location.
type DirtyFrameError struct {
	Node string
}

func (e *DirtyFrameError) Error() string {
	return "kernel: frame left uncleaned owned node: " + e.Node
}

// OutputValidationError is returned when a native or WASM invocation
// returns a node id that may not cross a call boundary (KeyValueStore,
// Vault).
type OutputValidationError struct {
	Reason string
}

func (e *OutputValidationError) Error() string {
	return "kernel: output validation failed: " + e.Reason
}

// SubstateLockError wraps a track lock conflict with the offending
// substate for diagnostics.
type SubstateLockError struct {
	Substate string
	Cause    error
}

func (e *SubstateLockError) Error() string {
	return fmt.Sprintf("kernel: locking substate %s: %v", e.Substate, e.Cause)
}

func (e *SubstateLockError) Unwrap() error { return e.Cause }

// RENodeNotInTrackError is returned when a native operation that
// requires a store-resident (globalized) node — lock_fee's heap-vault
// guard, spec §5 — is invoked against a node still confined to a call
// frame's heap.
type RENodeNotInTrackError struct {
	Node string
}

func (e *RENodeNotInTrackError) Error() string {
	return "kernel: RENodeNotInTrack: " + e.Node
}

// ReturnedGlobalNotVisibleError is returned when a callee's return
// value references a global address the caller could not already see.
type ReturnedGlobalNotVisibleError struct {
	Address string
}

func (e *ReturnedGlobalNotVisibleError) Error() string {
	return "kernel: returned global address not visible to caller: " + e.Address
}
