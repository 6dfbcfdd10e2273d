// Package node defines the kernel's heap-resident node representation:
// the typed content held by each RENodeId, the root/children grouping
// used when a node owns other nodes, and the NodePointer tag that lets
// a call frame address a node whether it lives on its own heap or has
// already been committed to the track.
package node

import (
	"github.com/radixdlt/radixkernel/internal/addr"
	"github.com/radixdlt/radixkernel/internal/resource"
	"github.com/radixdlt/radixkernel/internal/sbor"
)

// Content is implemented by every node's typed payload. Component and
// KeyValueStore carry schema-less sbor.Value state, matching the
// original engine's ScryptoValue; every other kind has a concrete Go
// struct shape because the kernel's native dispatch needs to introspect
// it directly (vault balances, proof evidence, auth-zone stacks).
type Content interface {
	isNodeContent()
}

// ComponentNode is a Scrypto component instance: an opaque, schema-less
// state blob plus the package/blueprint it was instantiated from.
type ComponentNode struct {
	Package   addr.Address
	Blueprint string
	State     sbor.Value
}

func (ComponentNode) isNodeContent() {}

// KeyValueStoreNode holds schema-less entries keyed by raw bytes; the
// track stores each entry as its own substate (OffsetKeyValueEntry),
// so this struct only tracks metadata, not the entries themselves.
type KeyValueStoreNode struct {
	KeySchema   sbor.Kind
	ValueSchema sbor.Kind
}

func (KeyValueStoreNode) isNodeContent() {}

// BucketNode is a transient container of fungible amount or
// non-fungible ids for one resource, never directly persisted. It
// wraps package resource's own Bucket directly rather than duplicating
// its amount/id bookkeeping, so a bucket moved across a call-frame
// boundary by the kernel's node-ownership machinery and a bucket held
// by the transaction processor's worktop are the exact same object.
type BucketNode struct {
	Bucket *resource.Bucket
}

func (BucketNode) isNodeContent() {}

// VaultNode is the persistent counterpart to BucketNode; per spec
// invariant it is never droppable once created.
type VaultNode struct {
	Vault *resource.Vault
}

func (VaultNode) isNodeContent() {}

// ProofNode is evidence that some amount or id set of a resource was
// locked in one or more buckets/vaults at proof-creation time, wrapping
// package resource's Proof directly for the same reason BucketNode
// wraps Bucket: the auth zone, the transaction processor, and the
// kernel's frame-ownership machinery all need to observe the same
// Restricted flag and the same locked evidence.
type ProofNode struct {
	Proof *resource.Proof
}

func (ProofNode) isNodeContent() {}

// ResourceManagerNode is the native component governing a resource's
// mint/burn/total-supply invariants.
type ResourceManagerNode struct {
	Fungible     bool
	Divisibility uint8
	TotalSupply  uint64
	Metadata     map[string]string
}

func (ResourceManagerNode) isNodeContent() {}

// PackageNode holds published WASM code and a per-blueprint ABI table.
// The kernel stores the table but does not check call inputs or
// outputs against it.
type PackageNode struct {
	Code         []byte
	BlueprintABI map[string]BlueprintABI
}

func (PackageNode) isNodeContent() {}

// BlueprintABI names the expected input/output shapes of one
// blueprint's exported functions.
type BlueprintABI struct {
	Functions map[string]FunctionABI
}

// FunctionABI is intentionally coarse: the spec scopes out a full
// schema engine (Non-goal), so it records only the argument kinds and
// the top-level return sbor.Kind.
type FunctionABI struct {
	InputKinds []sbor.Kind
	OutputKind sbor.Kind
}

// AuthZoneNode wraps the auth-zone stack content; the concrete stack
// type lives in package authzone to avoid an import cycle (authzone
// itself does not need to know about other node kinds).
type AuthZoneNode struct {
	ProofIds []uint32
}

func (AuthZoneNode) isNodeContent() {}

// WorktopNode is the root-frame scratch bag of buckets produced by a
// transaction's instructions before they are deposited or asserted.
type WorktopNode struct {
	BucketIds []uint32
}

func (WorktopNode) isNodeContent() {}

// SystemNode is the singleton system component (clock, epoch manager
// stand-in); the spec scopes its business logic out, so only the
// address is modelled.
type SystemNode struct {
	Address addr.Address
}

func (SystemNode) isNodeContent() {}

// GlobalNode is a redirect: a Global RENodeId's content is just the
// concrete node it dereferences to.
type GlobalNode struct {
	Target addr.RENodeId
}

func (GlobalNode) isNodeContent() {}

// HeapNode is one node living on a call frame's heap: its id, its
// typed content, and any nodes it directly owns (nested kv-stores,
// vaults owned by a component, etc).
type HeapNode struct {
	Id       addr.RENodeId
	Content  Content
	Children map[addr.RENodeId]*HeapNode
}

// NewHeapNode creates a childless heap node.
func NewHeapNode(id addr.RENodeId, content Content) *HeapNode {
	return &HeapNode{Id: id, Content: content, Children: make(map[addr.RENodeId]*HeapNode)}
}

// HeapRootNode groups a node with everything it owns, mirroring the
// original engine's HeapRootRENode{root, child_nodes}: it is the unit
// node_create/node_drop/node_globalize operate on.
type HeapRootNode struct {
	Root     *HeapNode
	Children map[addr.RENodeId]*HeapNode
}

// NodePointerKind discriminates NodePointer's two forms.
type NodePointerKind byte

const (
	NodePointerHeap NodePointerKind = iota
	NodePointerStore
)

// NodePointer locates a node either on some call frame's heap (Kind
// Heap; FrameDepth identifies which frame, Root the owning root node,
// Inner non-nil when the node is an owned child rather than the root
// itself) or already committed to the track (Kind Store; the node's
// own id doubles as its store key).
type NodePointer struct {
	Kind       NodePointerKind
	FrameDepth int
	Root       addr.RENodeId
	Inner      *addr.RENodeId
	StoreId    addr.RENodeId
}

// HeapPointer builds a NodePointer addressing a node on some frame's heap.
func HeapPointer(frameDepth int, root addr.RENodeId, inner *addr.RENodeId) NodePointer {
	return NodePointer{Kind: NodePointerHeap, FrameDepth: frameDepth, Root: root, Inner: inner}
}

// StorePointer builds a NodePointer addressing a node already in the track.
func StorePointer(id addr.RENodeId) NodePointer {
	return NodePointer{Kind: NodePointerStore, StoreId: id}
}

// Target returns the RENodeId this pointer ultimately resolves to,
// which is Inner when present, otherwise Root or StoreId.
func (p NodePointer) Target() addr.RENodeId {
	if p.Kind == NodePointerHeap {
		if p.Inner != nil {
			return *p.Inner
		}
		return p.Root
	}
	return p.StoreId
}
