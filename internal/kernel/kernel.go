// Package kernel implements the call-frame stack and the 11-step
// invocation protocol that is the heart of the execution model: depth
// checking, call-data sanitization, visibility checking, receiver
// resolution and locking, authorization, frame push, native/WASM
// dispatch, output validation, the clean-child-frame check, frame pop,
// and installation of returned values (spec §4.1).
package kernel

import (
	"fmt"

	"github.com/radixdlt/radixkernel/internal/addr"
	"github.com/radixdlt/radixkernel/internal/authzone"
	"github.com/radixdlt/radixkernel/internal/idalloc"
	"github.com/radixdlt/radixkernel/internal/node"
	"github.com/radixdlt/radixkernel/internal/resource"
	"github.com/radixdlt/radixkernel/internal/sbor"
	"github.com/radixdlt/radixkernel/internal/track"
	"github.com/radixdlt/radixkernel/internal/wasm"
)

// LogLevel mirrors the levels a blueprint's emit_log syscall may use;
// the host binary maps each one onto a zerolog level (spec §6, ambient
// logging section).
type LogLevel byte

const (
	LogError LogLevel = iota
	LogWarn
	LogInfo
	LogDebug
	LogTrace
)

// LogEntry is one emit_log call recorded for later draining by the host.
type LogEntry struct {
	Level   LogLevel
	Message string
}

// NativeFunctionKey identifies one native (non-WASM) blueprint function.
type NativeFunctionKey struct {
	Package   addr.Address
	Blueprint string
	Function  string
}

// NativeMethodKey identifies one native blueprint method, dispatched
// by blueprint name since the receiver's concrete node already
// determines which blueprint instance is being called.
type NativeMethodKey struct {
	Blueprint string
	Method    string
}

// NativeFunction is a function-actor invocation's Go implementation.
// It receives the kernel so it can recurse into further invocations,
// create/drop/globalize nodes, and read/write substates.
type NativeFunction func(k *Kernel, args sbor.Value) (sbor.Value, []addr.RENodeId, error)

// NativeMethod is a method-actor invocation's Go implementation.
type NativeMethod func(k *Kernel, receiver addr.RENodeId, args sbor.Value) (sbor.Value, []addr.RENodeId, error)

// Kernel is the root execution context for one transaction.
type Kernel struct {
	TransactionHash [32]byte
	MaxDepth        int

	Track       *track.Track
	IdAllocator *idalloc.Allocator
	WasmEngine  wasm.Engine

	AuthZones *authzone.Stack
	Frames    []*CallFrame

	Modules []Module

	CostUnitLimit     uint64
	CostUnitsConsumed uint64

	Logs []LogEntry

	NativeFunctions map[NativeFunctionKey]NativeFunction
	NativeMethods   map[NativeMethodKey]NativeMethod

	// Packages is a simplified in-memory package registry standing in
	// for the store-resident Package nodes a full engine would
	// serialize through track substates; no on-disk persistence format
	// is in scope (spec §1 Non-goals), so published code and ABIs are
	// kept kernel-side for the duration of the transaction.
	Packages map[addr.Address]*node.PackageNode

	// Globals is the simplified in-memory global-address registry a
	// globalized node is promoted into; see Packages for the same
	// persistence-format scoping note.
	Globals map[addr.Address]*node.HeapNode
}

// Option configures a Kernel at construction time.
type Option func(*Kernel)

// WithModules attaches cross-cutting hooks (cost metering, tracing,
// authorization) to the kernel.
func WithModules(mods ...Module) Option {
	return func(k *Kernel) { k.Modules = append(k.Modules, mods...) }
}

// New bootstraps a kernel for one transaction: a root call frame with
// the depth-0 actor, and a root auth zone seeded with the signers'
// virtual proof credentials (spec §4.4).
func New(txHash [32]byte, maxDepth int, tr *track.Track, wasmEngine wasm.Engine, costUnitLimit uint64, initialProofResources []string, opts ...Option) *Kernel {
	k := &Kernel{
		TransactionHash: txHash,
		MaxDepth:        maxDepth,
		Track:           tr,
		IdAllocator:     idalloc.New(txHash),
		WasmEngine:      wasmEngine,
		AuthZones:       authzone.NewStack(),
		CostUnitLimit:   costUnitLimit,
		NativeFunctions: make(map[NativeFunctionKey]NativeFunction),
		NativeMethods:   make(map[NativeMethodKey]NativeMethod),
		Packages:        make(map[addr.Address]*node.PackageNode),
		Globals:         make(map[addr.Address]*node.HeapNode),
	}
	for _, opt := range opts {
		opt(k)
	}

	rootZone := k.AuthZones.PushFrame(false)
	for _, res := range initialProofResources {
		rootZone.VirtualProofs[res] = true
	}
	root := newCallFrame(0, Actor{Kind: ActorFunction, Function: "Transaction"})
	root.AuthZone = rootZone
	k.Frames = append(k.Frames, root)
	return k
}

// CurrentFrame returns the innermost call frame.
func (k *Kernel) CurrentFrame() *CallFrame {
	return k.Frames[len(k.Frames)-1]
}

// ConsumeCostUnits debits n cost units from the transaction's budget,
// returning an error once the limit would be exceeded (spec §4.7 cost
// metering module, generalized in internal/costmodule for the host
// binary's rate-limiter wiring).
func (k *Kernel) ConsumeCostUnits(n uint64) error {
	if k.CostUnitsConsumed+n > k.CostUnitLimit {
		return fmt.Errorf("kernel: cost unit limit %d exceeded", k.CostUnitLimit)
	}
	k.CostUnitsConsumed += n
	return nil
}

// EmitLog appends a log entry for the host to drain after execution.
func (k *Kernel) EmitLog(level LogLevel, msg string) {
	k.Logs = append(k.Logs, LogEntry{Level: level, Message: msg})
}

// NewUUID returns the next transaction-scoped deterministic UUID.
func (k *Kernel) NewUUID() ([16]byte, error) {
	return k.IdAllocator.NewUUID()
}

// RegisterNativeFunction installs a native function-actor handler,
// used by the transaction processor and test fixtures to stand in for
// blueprint code without a real WASM module.
func (k *Kernel) RegisterNativeFunction(key NativeFunctionKey, fn NativeFunction) {
	k.NativeFunctions[key] = fn
}

// RegisterNativeMethod installs a native method-actor handler.
func (k *Kernel) RegisterNativeMethod(key NativeMethodKey, fn NativeMethod) {
	k.NativeMethods[key] = fn
}

// CreateNode allocates a new node id appropriate for content's kind
// and inserts it as an owned root of the current frame (spec §4.1
// SystemApi.node_create). takenChildren are child nodes being moved
// under the new root (e.g. a Vault a Component is being constructed
// with).
func (k *Kernel) CreateNode(content node.Content, takenChildren map[addr.RENodeId]*node.HeapNode) (addr.RENodeId, error) {
	id, err := k.allocateNodeId(content)
	if err != nil {
		return addr.RENodeId{}, err
	}
	hn := node.NewHeapNode(id, content)
	for cid, child := range takenChildren {
		hn.Children[cid] = child
	}
	k.CurrentFrame().OwnedRoots[id] = hn
	return id, nil
}

func (k *Kernel) allocateNodeId(content node.Content) (addr.RENodeId, error) {
	switch content.(type) {
	case node.BucketNode:
		n, err := k.IdAllocator.NewBucketId()
		return addr.RENodeId{Kind: addr.RENodeKindBucket, Bucket: n}, err
	case node.ProofNode:
		n, err := k.IdAllocator.NewProofId()
		return addr.RENodeId{Kind: addr.RENodeKindProof, Proof: n}, err
	case node.VaultNode:
		v, err := k.IdAllocator.NewVaultId()
		return addr.RENodeId{Kind: addr.RENodeKindVault, Vault: v}, err
	case node.KeyValueStoreNode:
		kv, err := k.IdAllocator.NewKeyValueStoreId()
		return addr.RENodeId{Kind: addr.RENodeKindKeyValueStore, KVStore: kv}, err
	case node.ComponentNode:
		n, err := k.IdAllocator.NewUUID()
		var c uint32
		for i := 0; i < 4; i++ {
			c = c<<8 | uint32(n[i])
		}
		return addr.RENodeId{Kind: addr.RENodeKindComponent, Component: c}, err
	case node.WorktopNode:
		return addr.RENodeId{Kind: addr.RENodeKindWorktop}, nil
	case node.AuthZoneNode:
		n, err := k.IdAllocator.NewAuthZoneId()
		return addr.RENodeId{Kind: addr.RENodeKindAuthZoneStack, AuthZone: n}, err
	case node.PackageNode:
		pkgAddr, err := k.IdAllocator.NewPackageAddress()
		return addr.RENodeId{Kind: addr.RENodeKindPackage, Package: pkgAddr}, err
	default:
		return addr.RENodeId{}, fmt.Errorf("kernel: cannot allocate id for node content type %T", content)
	}
}

// DropNode removes and returns an owned transient node (Bucket or
// Proof) from the current frame; a bucket must be empty to be dropped,
// and store-resident kinds like Vault are never droppable (spec §3
// invariant).
func (k *Kernel) DropNode(id addr.RENodeId) (*node.HeapNode, error) {
	if id.Kind == addr.RENodeKindVault {
		return nil, fmt.Errorf("kernel: vaults cannot be dropped")
	}
	if owned, ok := k.CurrentFrame().OwnedRoots[id]; ok {
		if bn, ok := owned.Content.(node.BucketNode); ok {
			if c := bn.Bucket.Container; c.Amount > 0 || len(c.Ids) > 0 {
				return nil, fmt.Errorf("kernel: non-empty buckets cannot be dropped")
			}
		}
	}
	hn, ok := k.CurrentFrame().TakeOwnedRoot(id)
	if !ok {
		return nil, &NodeNotVisibleError{Node: id.String()}
	}
	if pn, ok := hn.Content.(node.ProofNode); ok {
		pn.Proof.Drop()
	}
	return hn, nil
}

// GlobalizeNode promotes an owned root node (Component, Vault,
// ResourceManager, Package, or System) to a global address, moving it and its children
// out of the current frame's heap and into the kernel's global
// registry (spec §4.1 node_globalize; persistence-format scoping note
// on the Globals field applies).
func (k *Kernel) GlobalizeNode(id addr.RENodeId) (addr.Address, error) {
	hn, ok := k.CurrentFrame().TakeOwnedRoot(id)
	if !ok {
		return addr.Address{}, &NodeNotVisibleError{Node: id.String()}
	}
	global, err := k.newGlobalAddress(hn.Content)
	if err != nil {
		k.CurrentFrame().OwnedRoots[id] = hn
		return addr.Address{}, err
	}
	k.Globals[global] = hn
	k.CurrentFrame().NodeRefs[addr.RENodeId{Kind: addr.RENodeKindGlobal, Global: global}] = node.StorePointer(id)
	return global, nil
}

// newGlobalAddress picks the address family matching a node's content,
// mirroring the original engine's per-RENodeType global address
// derivation (spec §4.1 node_globalize). Vault is included alongside
// Component since this kernel exposes vaults through the same
// in-memory global registry as components rather than modeling the
// owning-component indirection a real account blueprint would add
// (see the Globals field doc comment); that is what lets a native
// Vault method be reached directly through InvokeMethod.
func (k *Kernel) newGlobalAddress(content node.Content) (addr.Address, error) {
	switch content.(type) {
	case node.ComponentNode, node.VaultNode:
		return k.IdAllocator.NewComponentAddress()
	case node.PackageNode:
		return k.IdAllocator.NewPackageAddress()
	case node.ResourceManagerNode:
		return k.IdAllocator.NewResourceAddress()
	case node.SystemNode:
		return k.IdAllocator.NewSystemComponentAddress()
	default:
		return addr.Address{}, fmt.Errorf("kernel: cannot globalize node content type %T", content)
	}
}

// ResolveGlobal dereferences a global address to the concrete RENodeId
// it was assigned at globalization time.
func (k *Kernel) ResolveGlobal(global addr.Address) (addr.RENodeId, bool) {
	hn, ok := k.Globals[global]
	if !ok {
		return addr.RENodeId{}, false
	}
	return hn.Id, true
}

// GlobalAddressOf searches the global registry for the address a node
// was globalized under, the inverse of ResolveGlobal. Native methods
// use this to find a receiver's own global address, e.g. lock_fee's
// RENodeNotInTrack guard (spec §5).
func (k *Kernel) GlobalAddressOf(id addr.RENodeId) (addr.Address, bool) {
	for ga, hn := range k.Globals {
		if hn.Id == id {
			return ga, true
		}
	}
	return addr.Address{}, false
}

// LookupNode resolves an RENodeId to its HeapNode wherever it
// currently lives: owned by the current call frame, or already
// globalized. Native methods use this to reach the concrete node their
// receiver id addresses without re-deriving the kernel's own frame and
// global bookkeeping.
func (k *Kernel) LookupNode(id addr.RENodeId) (*node.HeapNode, bool) {
	if hn, ok := k.CurrentFrame().OwnedRoots[id]; ok {
		return hn, true
	}
	for _, hn := range k.Globals {
		if hn.Id == id {
			return hn, true
		}
		if child, ok := hn.Children[id]; ok {
			return child, true
		}
	}
	return nil, false
}

// LockFee debits amount from a store-resident vault's balance and
// journals the write as fee-locked, so it survives a subsequent
// rollback even if the rest of the transaction fails (spec §4.2).
func (k *Kernel) LockFee(vaultGlobal addr.Address, vaultId addr.RENodeId, amount uint64) error {
	hn, ok := k.Globals[vaultGlobal]
	if !ok || hn.Id != vaultId {
		return &RENodeNotInTrackError{Node: vaultId.String()}
	}
	vn, ok := hn.Content.(node.VaultNode)
	if !ok {
		return fmt.Errorf("kernel: lock_fee target is not a vault")
	}
	if err := vn.Vault.Container.TakeAmount(amount); err != nil {
		return err
	}

	substateId := addr.SubstateId{Node: vaultId, Offset: addr.SubstateOffset{Kind: addr.OffsetVault}}
	handle, err := k.Track.AcquireLock(substateId, track.LockWrite)
	if err != nil {
		return &SubstateLockError{Substate: substateId.String(), Cause: err}
	}
	defer k.Track.ReleaseLock(handle)
	return k.Track.LockFee(substateId, sbor.Value{Kind: sbor.KindU64, Uint: vn.Vault.Container.Amount})
}

// PushNativeProof creates a heap-resident proof node wrapping an
// already-composed resource.Proof and returns its RENodeId, owned by
// the current frame. Native methods that compose evidence internally
// (a Vault's create_proof_of_amount, for instance) use this instead of
// CreateNode directly so the resulting ProofNode participates in the
// same frame-ownership and move/restrict bookkeeping as a
// processor-created proof.
func (k *Kernel) PushNativeProof(p *resource.Proof) (addr.RENodeId, error) {
	return k.CreateNode(node.ProofNode{Proof: p}, nil)
}
