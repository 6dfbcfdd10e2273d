package kernel

// Module is a cross-cutting hook invoked around every function/method
// invocation boundary (spec §4.7): cost metering, execution tracing,
// and authorization all implement this interface rather than being
// wired into the kernel's core path directly. Modules must never
// mutate node ownership; they observe and may reject, never move
// values themselves.
type Module interface {
	// PreInvoke runs before a function/method invocation is pushed as
	// a new call frame. Returning an error aborts the invocation
	// before any locks are taken or frame is pushed.
	PreInvoke(k *Kernel, actor Actor) error
	// PostInvoke runs after a call frame is popped, with the consumed
	// cost units for that invocation.
	PostInvoke(k *Kernel, actor Actor, costUnitsConsumed uint64) error
}

// TraceEvent is one entry in the kernel's execution trace, drained by
// the cmd/radixkernel debug server over a websocket connection.
type TraceEvent struct {
	Depth             int
	Kind              string
	Actor             string
	CostUnitsConsumed uint64
}
