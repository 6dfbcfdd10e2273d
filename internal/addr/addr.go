// Package addr defines the kernel's address and node-id types: the
// fixed-width global addresses handed out by the id allocator, the
// tagged-union RENodeId identifying any node (heap-resident or global),
// and the SubstateId/SubstateOffset pair the track uses as its lock
// and storage key.
package addr

import (
	"encoding/hex"
	"fmt"
)

// AddressKind discriminates the four global address families. It is
// encoded as the first byte of every address's 27-byte wire form.
type AddressKind byte

const (
	AddressKindPackage AddressKind = iota + 1
	AddressKindResource
	AddressKindComponent
	AddressKindSystemComponent
)

// Address is a 27-byte global identifier: one discriminator byte
// followed by a 26-byte hash-derived tail. It is comparable and usable
// directly as a Go map key.
type Address struct {
	Kind AddressKind
	Tail [26]byte
}

func (a Address) String() string {
	return fmt.Sprintf("%02x%s", byte(a.Kind), hex.EncodeToString(a.Tail[:]))
}

// VaultId and KeyValueStoreId are full 32-byte hashes; unlike the four
// address kinds above they are never exposed as bech32-style global
// addresses (spec §3), only as node identifiers.
type VaultId [32]byte
type KeyValueStoreId [32]byte

func (v VaultId) String() string         { return hex.EncodeToString(v[:]) }
func (k KeyValueStoreId) String() string { return hex.EncodeToString(k[:]) }

// RENodeKind discriminates RENodeId's variants.
type RENodeKind byte

const (
	RENodeKindGlobal RENodeKind = iota
	RENodeKindComponent
	RENodeKindKeyValueStore
	RENodeKindResourceManager
	RENodeKindPackage
	RENodeKindSystem
	RENodeKindVault
	RENodeKindBucket
	RENodeKindProof
	RENodeKindAuthZoneStack
	RENodeKindWorktop
)

// RENodeId is a tagged union over every node kind the kernel can
// address. Only the field matching Kind is meaningful. All fields are
// themselves comparable, so RENodeId is a valid map key.
type RENodeId struct {
	Kind RENodeKind

	Global    Address         // RENodeKindGlobal
	Component uint32          // RENodeKindComponent: transient heap-local id
	KVStore   KeyValueStoreId // RENodeKindKeyValueStore
	Resource  Address         // RENodeKindResourceManager
	Package   Address         // RENodeKindPackage
	System    Address         // RENodeKindSystem
	Vault     VaultId         // RENodeKindVault
	Bucket    uint32          // RENodeKindBucket
	Proof     uint32          // RENodeKindProof
	AuthZone  uint32          // RENodeKindAuthZoneStack
	// RENodeKindWorktop carries no payload: one per root frame.
}

func (n RENodeId) String() string {
	switch n.Kind {
	case RENodeKindGlobal:
		return "Global(" + n.Global.String() + ")"
	case RENodeKindComponent:
		return fmt.Sprintf("Component(%d)", n.Component)
	case RENodeKindKeyValueStore:
		return "KeyValueStore(" + n.KVStore.String() + ")"
	case RENodeKindResourceManager:
		return "ResourceManager(" + n.Resource.String() + ")"
	case RENodeKindPackage:
		return "Package(" + n.Package.String() + ")"
	case RENodeKindSystem:
		return "System(" + n.System.String() + ")"
	case RENodeKindVault:
		return "Vault(" + n.Vault.String() + ")"
	case RENodeKindBucket:
		return fmt.Sprintf("Bucket(%d)", n.Bucket)
	case RENodeKindProof:
		return fmt.Sprintf("Proof(%d)", n.Proof)
	case RENodeKindAuthZoneStack:
		return fmt.Sprintf("AuthZoneStack(%d)", n.AuthZone)
	case RENodeKindWorktop:
		return "Worktop"
	default:
		return "Unknown"
	}
}

// GlobalAddressKind discriminates GlobalAddress's variants; it mirrors
// AddressKind but is kept distinct since only some RENodeId kinds can
// be globalized (Component, ResourceManager, Package, System).
type GlobalAddressKind byte

const (
	GlobalAddressKindResource GlobalAddressKind = iota
	GlobalAddressKindComponent
	GlobalAddressKindPackage
	GlobalAddressKindSystem
)

// GlobalAddress identifies the target of a Global node: the concrete
// address a Global RENodeId dereferences to.
type GlobalAddress struct {
	Kind GlobalAddressKind
	Addr Address
}

// SubstateOffsetKind discriminates SubstateOffset's variants.
type SubstateOffsetKind byte

const (
	OffsetGlobal SubstateOffsetKind = iota
	OffsetComponentInfo
	OffsetComponentState
	OffsetKeyValueEntry
	OffsetResourceManager
	OffsetPackage
	OffsetSystem
	OffsetVault
	OffsetBucket
	OffsetProof
	OffsetAuthZone
	OffsetWorktop
)

// SubstateOffset names which logical field of a node a lock/read/write
// targets. KVKey holds the (string-converted) raw key for
// OffsetKeyValueEntry only; storing it as a string rather than []byte
// keeps SubstateOffset, and hence SubstateId, comparable and usable as
// a map key.
type SubstateOffset struct {
	Kind  SubstateOffsetKind
	KVKey string
}

// SubstateId names one substate: the node it lives on plus the offset
// within that node. It is the track's lock-table and store key.
type SubstateId struct {
	Node   RENodeId
	Offset SubstateOffset
}

func (s SubstateId) String() string {
	if s.Offset.Kind == OffsetKeyValueEntry {
		return fmt.Sprintf("%s/%d/%s", s.Node.String(), s.Offset.Kind, s.Offset.KVKey)
	}
	return fmt.Sprintf("%s/%d", s.Node.String(), s.Offset.Kind)
}

// KVOffset builds a KeyValueEntry offset from a raw store key.
func KVOffset(key []byte) SubstateOffset {
	return SubstateOffset{Kind: OffsetKeyValueEntry, KVKey: string(key)}
}
