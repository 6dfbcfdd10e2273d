// Package idalloc implements the kernel's deterministic id allocator
// (spec §4.6): every address and transient id handed out during a
// transaction's execution is either a plain monotonic counter or a
// hash derived from the transaction hash, a kind tag, and that
// counter, so replaying the same transaction always yields the same
// ids (testable property 8).
package idalloc

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/radixdlt/radixkernel/internal/addr"
)

// IdSpace distinguishes ids meaningful only within the executing
// transaction (Transaction) from ids that become permanent references
// once committed (Application).
type IdSpace byte

const (
	IdSpaceApplication IdSpace = iota
	IdSpaceTransaction
)

// kind tags, one per counter, mixed into the hash preimage for
// hash-derived kinds and used only for documentation on counter-only
// kinds.
const (
	tagBucket byte = iota
	tagProof
	tagAuthZone
	tagVault
	tagKeyValueStore
	tagPackage
	tagResource
	tagComponent
	tagSystemComponent
	tagUUID
)

// IdAllocationError is returned when a counter would wrap past
// math.MaxUint32, which the spec treats as allocator exhaustion rather
// than silent wraparound.
type IdAllocationError struct {
	Kind string
}

func (e *IdAllocationError) Error() string {
	return fmt.Sprintf("idalloc: %s counter exhausted", e.Kind)
}

var errCounterExhausted = errors.New("idalloc: counter exhausted")

// Allocator hands out every id kind the kernel needs during one
// transaction's execution. It is not safe for concurrent use; the
// kernel owns exactly one per transaction (spec §5: single-threaded
// execution).
type Allocator struct {
	txHash [32]byte

	bucketCounter   uint32
	proofCounter    uint32
	authZoneCounter uint32
	vaultCounter    uint32
	kvStoreCounter  uint32
	uuidCounter     uint32

	addressCounters map[byte]uint32
}

// New creates an allocator scoped to one transaction hash.
func New(txHash [32]byte) *Allocator {
	return &Allocator{
		txHash:          txHash,
		addressCounters: make(map[byte]uint32),
	}
}

func bump(counter *uint32, kind string) (uint32, error) {
	if *counter == ^uint32(0) {
		return 0, &IdAllocationError{Kind: kind}
	}
	id := *counter
	*counter++
	return id, nil
}

// NewBucketId allocates the next transient bucket id (IdSpace
// Transaction): buckets never outlive the transaction that created
// them, so no hash derivation is needed.
func (a *Allocator) NewBucketId() (uint32, error) {
	return bump(&a.bucketCounter, "bucket")
}

// NewProofId allocates the next transient proof id.
func (a *Allocator) NewProofId() (uint32, error) {
	return bump(&a.proofCounter, "proof")
}

// NewAuthZoneId allocates the next auth-zone-stack id, one per call frame.
func (a *Allocator) NewAuthZoneId() (uint32, error) {
	return bump(&a.authZoneCounter, "auth_zone")
}

func (a *Allocator) deriveHash(tag byte, counter uint32) [32]byte {
	h := sha256.New()
	h.Write(a.txHash[:])
	h.Write([]byte{tag})
	var cb [4]byte
	binary.BigEndian.PutUint32(cb[:], counter)
	h.Write(cb[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// NewVaultId allocates a full-hash vault id (IdSpace Application):
// vaults outlive the transaction once the node they live in is
// globalized, so their id is bound to the transaction hash.
func (a *Allocator) NewVaultId() (addr.VaultId, error) {
	n, err := bump(&a.vaultCounter, "vault")
	if err != nil {
		return addr.VaultId{}, err
	}
	return addr.VaultId(a.deriveHash(tagVault, n)), nil
}

// NewKeyValueStoreId allocates a full-hash key-value-store id, same
// derivation discipline as NewVaultId.
func (a *Allocator) NewKeyValueStoreId() (addr.KeyValueStoreId, error) {
	n, err := bump(&a.kvStoreCounter, "kv_store")
	if err != nil {
		return addr.KeyValueStoreId{}, err
	}
	return addr.KeyValueStoreId(a.deriveHash(tagKeyValueStore, n)), nil
}

func (a *Allocator) newAddress(tag byte, kind addr.AddressKind, name string) (addr.Address, error) {
	counter := a.addressCounters[tag]
	if counter == ^uint32(0) {
		return addr.Address{}, &IdAllocationError{Kind: name}
	}
	a.addressCounters[tag] = counter + 1
	full := a.deriveHash(tag, counter)
	var out addr.Address
	out.Kind = kind
	copy(out.Tail[:], full[len(full)-26:])
	return out, nil
}

// NewPackageAddress allocates a package's global address.
func (a *Allocator) NewPackageAddress() (addr.Address, error) {
	return a.newAddress(tagPackage, addr.AddressKindPackage, "package")
}

// NewResourceAddress allocates a resource manager's global address.
func (a *Allocator) NewResourceAddress() (addr.Address, error) {
	return a.newAddress(tagResource, addr.AddressKindResource, "resource")
}

// NewComponentAddress allocates a component's global address.
func (a *Allocator) NewComponentAddress() (addr.Address, error) {
	return a.newAddress(tagComponent, addr.AddressKindComponent, "component")
}

// NewSystemComponentAddress allocates the singleton system component's
// global address.
func (a *Allocator) NewSystemComponentAddress() (addr.Address, error) {
	return a.newAddress(tagSystemComponent, addr.AddressKindSystemComponent, "system_component")
}

// NewUUID allocates a deterministic, transaction-scoped UUID-shaped
// value for `generate_uuid` syscalls. It is used in every mode; the
// CLI's --non-deterministic flag only adds a github.com/google/uuid run
// tag to the log and does not change this derivation.
func (a *Allocator) NewUUID() ([16]byte, error) {
	n, err := bump(&a.uuidCounter, "uuid")
	if err != nil {
		return [16]byte{}, err
	}
	full := a.deriveHash(tagUUID, n)
	var out [16]byte
	copy(out[:], full[:16])
	return out, nil
}
