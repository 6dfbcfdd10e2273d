package kernel

import (
	"github.com/radixdlt/radixkernel/internal/addr"
	"github.com/radixdlt/radixkernel/internal/authzone"
	"github.com/radixdlt/radixkernel/internal/node"
)

// ActorKind discriminates a call frame's actor: the package/blueprint
// function it is running, or the component method.
type ActorKind byte

const (
	ActorFunction ActorKind = iota
	ActorMethod
)

// Actor names what a call frame is executing. For a Method actor,
// DerefedFromGlobalComponent records whether the receiver was reached
// by dereferencing a Global(Component) address, which is exactly the
// condition that makes the resulting frame a barrier (spec §4.4).
type Actor struct {
	Kind ActorKind

	Package                    addr.Address
	Blueprint                  string
	Function                   string // ActorFunction
	Method                     string // ActorMethod
	Receiver                   node.NodePointer
	Native                     bool
	DerefedFromGlobalComponent bool
}

// IsBarrier reports whether this actor's call frame should be treated
// as an authorization barrier.
func (a Actor) IsBarrier() bool {
	return a.Kind == ActorMethod && a.DerefedFromGlobalComponent
}

// CallFrame is one level of the kernel's invocation stack: the nodes
// it owns on its own heap, the node pointers it may reference without
// owning, and the auth zone created for it (spec §4.1, §4.4).
type CallFrame struct {
	Depth int
	Actor Actor

	// OwnedRoots holds every root node this frame owns outright, keyed
	// by the root's RENodeId. A root's nested children live under
	// node.HeapNode.Children, not as separate OwnedRoots entries.
	OwnedRoots map[addr.RENodeId]*node.HeapNode

	// NodeRefs holds nodes this frame may read/reference but does not
	// own: the Global ids of nodes this frame globalized. No static
	// platform addresses are added at depth 0.
	NodeRefs map[addr.RENodeId]node.NodePointer

	// TemporaryLocks holds substate locks this frame took to resolve
	// its own actor (e.g. Component::Info) and must release before
	// the frame finishes invocation setup, not at frame pop time.
	TemporaryLocks []addr.SubstateId

	AuthZone *authzone.AuthZone
}

func newCallFrame(depth int, actor Actor) *CallFrame {
	return &CallFrame{
		Depth:      depth,
		Actor:      actor,
		OwnedRoots: make(map[addr.RENodeId]*node.HeapNode),
		NodeRefs:   make(map[addr.RENodeId]node.NodePointer),
	}
}

// Visible reports whether id is either owned or referenced by this
// frame.
func (f *CallFrame) Visible(id addr.RENodeId) bool {
	if _, ok := f.OwnedRoots[id]; ok {
		return true
	}
	if _, ok := f.NodeRefs[id]; ok {
		return true
	}
	for _, root := range f.OwnedRoots {
		if _, ok := root.Children[id]; ok {
			return true
		}
	}
	return false
}

// TakeOwnedRoot removes and returns a root node this frame owns, for
// moving into a call argument or return value.
func (f *CallFrame) TakeOwnedRoot(id addr.RENodeId) (*node.HeapNode, bool) {
	n, ok := f.OwnedRoots[id]
	if ok {
		delete(f.OwnedRoots, id)
	}
	return n, ok
}

// IsClean reports whether every owned root has been moved out or
// dropped, which the kernel requires before popping a frame (spec
// §4.1 step 9: clean-child-frame check).
func (f *CallFrame) IsClean() (dirty addr.RENodeId, clean bool) {
	for id := range f.OwnedRoots {
		return id, false
	}
	return addr.RENodeId{}, true
}
