// Package resource implements the kernel's resource containers: the
// transient Bucket and persistent Vault that hold fungible amounts or
// non-fungible id sets, the Proof that locks evidence of resources
// held elsewhere, and the root-frame Worktop scratch bag the
// transaction processor drains instructions into (spec §4.3).
package resource

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientBalance is returned when a take would leave a
	// container's balance negative.
	ErrInsufficientBalance = errors.New("resource: insufficient balance")
	// ErrFungibilityMismatch is returned when an amount-based operation
	// is attempted against a non-fungible resource or vice versa.
	ErrFungibilityMismatch = errors.New("resource: fungibility mismatch")
	// ErrProofRestricted is returned when a cross-frame-boundary proof
	// is cloned; a restricted proof may only be used, never copied.
	ErrProofRestricted = errors.New("resource: proof is restricted and cannot be cloned")
	// ErrNoSuchNonFungible is returned when a take-by-id names an id the
	// container does not hold.
	ErrNoSuchNonFungible = errors.New("resource: non-fungible id not present")
)

// LockableResource is the common amount/id-set container shared by
// Bucket, Vault, and the backing store of a Proof. LockedAmount and
// LockedIds track how much of the container is currently pinned by
// outstanding proofs; a locked portion cannot be taken out.
type LockableResource struct {
	Fungible bool

	Amount uint64
	Ids     map[string]bool

	LockedAmount uint64
	LockedIds    map[string]uint32 // id -> outstanding lock count
}

// NewFungible creates an empty fungible container.
func NewFungible() *LockableResource {
	return &LockableResource{Fungible: true, LockedIds: map[string]uint32{}}
}

// NewNonFungible creates an empty non-fungible container.
func NewNonFungible() *LockableResource {
	return &LockableResource{
		Fungible:  false,
		Ids:       map[string]bool{},
		LockedIds: map[string]uint32{},
	}
}

// AvailableAmount returns the unlocked fungible balance.
func (r *LockableResource) AvailableAmount() uint64 {
	return r.Amount - r.LockedAmount
}

// AvailableIds returns the unlocked non-fungible ids.
func (r *LockableResource) AvailableIds() []string {
	out := make([]string, 0, len(r.Ids))
	for id := range r.Ids {
		if r.LockedIds[id] == 0 {
			out = append(out, id)
		}
	}
	return out
}

// PutAmount deposits a fungible amount.
func (r *LockableResource) PutAmount(amount uint64) error {
	if !r.Fungible {
		return ErrFungibilityMismatch
	}
	r.Amount += amount
	return nil
}

// PutIds deposits a set of non-fungible ids.
func (r *LockableResource) PutIds(ids []string) error {
	if r.Fungible {
		return ErrFungibilityMismatch
	}
	for _, id := range ids {
		r.Ids[id] = true
	}
	return nil
}

// TakeAmount withdraws an unlocked fungible amount.
func (r *LockableResource) TakeAmount(amount uint64) error {
	if !r.Fungible {
		return ErrFungibilityMismatch
	}
	if amount > r.AvailableAmount() {
		return ErrInsufficientBalance
	}
	r.Amount -= amount
	return nil
}

// TakeIds withdraws a specific set of unlocked non-fungible ids.
func (r *LockableResource) TakeIds(ids []string) error {
	if r.Fungible {
		return ErrFungibilityMismatch
	}
	for _, id := range ids {
		if !r.Ids[id] || r.LockedIds[id] > 0 {
			return ErrNoSuchNonFungible
		}
	}
	for _, id := range ids {
		delete(r.Ids, id)
	}
	return nil
}

// TakeAll withdraws the entire unlocked balance/id-set, returning what
// was taken.
func (r *LockableResource) TakeAll() (uint64, []string, error) {
	if r.Fungible {
		amount := r.AvailableAmount()
		if err := r.TakeAmount(amount); err != nil {
			return 0, nil, err
		}
		return amount, nil, nil
	}
	ids := r.AvailableIds()
	if err := r.TakeIds(ids); err != nil {
		return 0, nil, err
	}
	return 0, ids, nil
}

// LockAmount pins a fungible amount against outstanding proofs,
// incrementing the locked counter rather than moving anything out.
func (r *LockableResource) LockAmount(amount uint64) error {
	if !r.Fungible {
		return ErrFungibilityMismatch
	}
	if amount > r.AvailableAmount() {
		return ErrInsufficientBalance
	}
	r.LockedAmount += amount
	return nil
}

// UnlockAmount releases a previously locked fungible amount.
func (r *LockableResource) UnlockAmount(amount uint64) {
	if amount > r.LockedAmount {
		amount = r.LockedAmount
	}
	r.LockedAmount -= amount
}

// LockIds pins a specific id set, incrementing each id's lock count so
// nested proofs over overlapping ids compose correctly.
func (r *LockableResource) LockIds(ids []string) error {
	if r.Fungible {
		return ErrFungibilityMismatch
	}
	for _, id := range ids {
		if !r.Ids[id] {
			return ErrNoSuchNonFungible
		}
	}
	for _, id := range ids {
		r.LockedIds[id]++
	}
	return nil
}

// UnlockIds releases one lock count per id.
func (r *LockableResource) UnlockIds(ids []string) {
	for _, id := range ids {
		if r.LockedIds[id] > 0 {
			r.LockedIds[id]--
		}
	}
}

// Bucket is a transient resource container created from a vault or
// another bucket's take operation. It is droppable once empty.
type Bucket struct {
	ResourceAddress string
	Container       *LockableResource
}

// Vault is a persistent resource container; per spec invariant it is
// never droppable, even when empty.
type Vault struct {
	ResourceAddress string
	Container       *LockableResource
}

// LockedAmountOrIds records the portion of one container a proof has
// locked against it. A Proof keys these records, and its Backing
// containers, by a container key string such as "bucket-0".
type LockedAmountOrIds struct {
	Fungible bool
	Amount   uint64
	Ids      []string
}

// Proof is evidence that some amount or id set was locked against one
// or more backing containers at creation time. Restricted is set once
// the proof is moved into a new call frame, whether or not that frame
// is a barrier; a restricted proof can still authorize but can no longer be
// cloned (mirrors the original engine's move-time restriction rule).
type Proof struct {
	ResourceAddress string
	Fungible        bool
	TotalAmount     uint64
	TotalIds        []string
	Backing         map[string]*LockableResource // container key -> backing resource
	Evidence        map[string]LockedAmountOrIds
	Restricted      bool
	lockCount       uint32
}

// ComposeFromBuckets locks the requested amount across one or more
// buckets, in order, and returns the resulting proof. Each bucket's
// container has its lock count incremented; the bucket itself is not
// consumed, matching the original engine's "buckets stay put, proofs
// borrow" model.
func ComposeFromBuckets(resourceAddress string, buckets []*Bucket, amount uint64) (*Proof, error) {
	if len(buckets) == 0 {
		return nil, fmt.Errorf("resource: cannot compose a proof from zero buckets")
	}
	evidence := map[string]LockedAmountOrIds{}
	backing := map[string]*LockableResource{}
	remaining := amount
	for i, b := range buckets {
		if remaining == 0 {
			break
		}
		take := remaining
		if avail := b.Container.AvailableAmount(); take > avail {
			take = avail
		}
		if take == 0 {
			continue
		}
		if err := b.Container.LockAmount(take); err != nil {
			return nil, err
		}
		key := fmt.Sprintf("bucket-%d", i)
		backing[key] = b.Container
		evidence[key] = LockedAmountOrIds{Fungible: true, Amount: take}
		remaining -= take
	}
	if remaining > 0 {
		for key, locked := range evidence {
			backing[key].UnlockAmount(locked.Amount)
		}
		return nil, ErrInsufficientBalance
	}
	return &Proof{
		ResourceAddress: resourceAddress,
		Fungible:        true,
		TotalAmount:     amount,
		Backing:         backing,
		Evidence:        evidence,
		lockCount:       1,
	}, nil
}

// ComposeFromBucketsByIds locks the requested non-fungible ids across
// one or more buckets.
func ComposeFromBucketsByIds(resourceAddress string, buckets []*Bucket, ids []string) (*Proof, error) {
	if len(buckets) == 0 {
		return nil, fmt.Errorf("resource: cannot compose a proof from zero buckets")
	}
	remaining := map[string]bool{}
	for _, id := range ids {
		remaining[id] = true
	}
	evidence := map[string]LockedAmountOrIds{}
	backing := map[string]*LockableResource{}
	for i, b := range buckets {
		if len(remaining) == 0 {
			break
		}
		var take []string
		for _, id := range b.Container.AvailableIds() {
			if remaining[id] {
				take = append(take, id)
			}
		}
		if len(take) == 0 {
			continue
		}
		if err := b.Container.LockIds(take); err != nil {
			return nil, err
		}
		key := fmt.Sprintf("bucket-%d", i)
		backing[key] = b.Container
		evidence[key] = LockedAmountOrIds{Ids: take}
		for _, id := range take {
			delete(remaining, id)
		}
	}
	if len(remaining) > 0 {
		for key, locked := range evidence {
			backing[key].UnlockIds(locked.Ids)
		}
		return nil, ErrNoSuchNonFungible
	}
	return &Proof{
		ResourceAddress: resourceAddress,
		Fungible:        false,
		TotalIds:        ids,
		Backing:         backing,
		Evidence:        evidence,
		lockCount:       1,
	}, nil
}

// Clone increments the proof's lock count and re-locks the same
// evidence against its backing containers, producing an independent
// handle that authorizes the same evidence. Restricted proofs cannot
// be cloned.
func (p *Proof) Clone() (*Proof, error) {
	if p.Restricted {
		return nil, ErrProofRestricted
	}
	clone := &Proof{
		ResourceAddress: p.ResourceAddress,
		Fungible:        p.Fungible,
		TotalAmount:     p.TotalAmount,
		TotalIds:        p.TotalIds,
		Backing:         p.Backing,
		Evidence:        p.Evidence,
		lockCount:       1,
	}
	for key, locked := range p.Evidence {
		backing := p.Backing[key]
		if locked.Fungible {
			if err := backing.LockAmount(locked.Amount); err != nil {
				return nil, err
			}
		} else if err := backing.LockIds(locked.Ids); err != nil {
			return nil, err
		}
	}
	p.lockCount++
	return clone, nil
}

// Drop releases this proof's lock on every backing container. Calling
// Drop more than once is a caller bug; the kernel's frame-cleanliness
// check (spec §4.1 step 9) ensures every created proof is dropped or
// moved exactly once per frame.
func (p *Proof) Drop() {
	for key, locked := range p.Evidence {
		backing := p.Backing[key]
		if locked.Fungible {
			backing.UnlockAmount(locked.Amount)
		} else {
			backing.UnlockIds(locked.Ids)
		}
	}
	if p.lockCount > 0 {
		p.lockCount--
	}
}

// ComposeByAmount builds a new proof locking only amount of this
// proof's evidence against the same backing containers, distributing
// across them in evidence order. Used for
// CREATE_PROOF_FROM_AUTH_ZONE_BY_AMOUNT, where the manifest asks for a
// bounded sub-proof rather than the unconstrained proof Clone produces.
func (p *Proof) ComposeByAmount(amount uint64) (*Proof, error) {
	if p.Restricted {
		return nil, ErrProofRestricted
	}
	if !p.Fungible {
		return nil, ErrFungibilityMismatch
	}
	if amount > p.TotalAmount {
		return nil, ErrInsufficientBalance
	}
	evidence := map[string]LockedAmountOrIds{}
	backing := map[string]*LockableResource{}
	remaining := amount
	for key, locked := range p.Evidence {
		if remaining == 0 {
			break
		}
		take := remaining
		if take > locked.Amount {
			take = locked.Amount
		}
		if take == 0 {
			continue
		}
		bres := p.Backing[key]
		if err := bres.LockAmount(take); err != nil {
			for k2, l2 := range evidence {
				backing[k2].UnlockAmount(l2.Amount)
			}
			return nil, err
		}
		backing[key] = bres
		evidence[key] = LockedAmountOrIds{Fungible: true, Amount: take}
		remaining -= take
	}
	if remaining > 0 {
		for key, locked := range evidence {
			backing[key].UnlockAmount(locked.Amount)
		}
		return nil, ErrInsufficientBalance
	}
	p.lockCount++
	return &Proof{
		ResourceAddress: p.ResourceAddress,
		Fungible:        true,
		TotalAmount:     amount,
		Backing:         backing,
		Evidence:        evidence,
		lockCount:       1,
	}, nil
}

// ComposeByIds builds a new proof locking only the requested ids
// against the same backing containers as this proof, for
// CREATE_PROOF_FROM_AUTH_ZONE_BY_IDS.
func (p *Proof) ComposeByIds(ids []string) (*Proof, error) {
	if p.Restricted {
		return nil, ErrProofRestricted
	}
	if p.Fungible {
		return nil, ErrFungibilityMismatch
	}
	remaining := map[string]bool{}
	for _, id := range ids {
		remaining[id] = true
	}
	evidence := map[string]LockedAmountOrIds{}
	backing := map[string]*LockableResource{}
	for key, locked := range p.Evidence {
		if len(remaining) == 0 {
			break
		}
		var take []string
		for _, id := range locked.Ids {
			if remaining[id] {
				take = append(take, id)
			}
		}
		if len(take) == 0 {
			continue
		}
		bres := p.Backing[key]
		if err := bres.LockIds(take); err != nil {
			for k2, l2 := range evidence {
				backing[k2].UnlockIds(l2.Ids)
			}
			return nil, err
		}
		backing[key] = bres
		evidence[key] = LockedAmountOrIds{Ids: take}
		for _, id := range take {
			delete(remaining, id)
		}
	}
	if len(remaining) > 0 {
		for key, locked := range evidence {
			backing[key].UnlockIds(locked.Ids)
		}
		return nil, ErrNoSuchNonFungible
	}
	p.lockCount++
	return &Proof{
		ResourceAddress: p.ResourceAddress,
		Fungible:        false,
		TotalIds:        ids,
		Backing:         backing,
		Evidence:        evidence,
		lockCount:       1,
	}, nil
}

// Restrict marks the proof as having crossed a call-frame boundary; it
// can still be used to satisfy an auth rule but can no longer be cloned.
func (p *Proof) Restrict() {
	p.Restricted = true
}

// Worktop is the per-transaction scratch bag of buckets living on the
// root call frame; the transaction processor drains instructions
// through it (spec §4.5).
type Worktop struct {
	buckets map[string][]*Bucket // resource address -> buckets held
}

// NewWorktop creates an empty worktop.
func NewWorktop() *Worktop {
	return &Worktop{buckets: map[string][]*Bucket{}}
}

// Put deposits a bucket onto the worktop.
func (w *Worktop) Put(b *Bucket) {
	w.buckets[b.ResourceAddress] = append(w.buckets[b.ResourceAddress], b)
}

// TakeAll removes and returns every bucket held for a resource address,
// merged into a single bucket.
func (w *Worktop) TakeAll(resourceAddress string) (*Bucket, error) {
	bs := w.buckets[resourceAddress]
	delete(w.buckets, resourceAddress)
	if len(bs) == 0 {
		return nil, nil
	}
	merged := bs[0]
	for _, b := range bs[1:] {
		if merged.Container.Fungible {
			amt, _, err := b.Container.TakeAll()
			if err != nil {
				return nil, err
			}
			if err := merged.Container.PutAmount(amt); err != nil {
				return nil, err
			}
		} else {
			_, ids, err := b.Container.TakeAll()
			if err != nil {
				return nil, err
			}
			if err := merged.Container.PutIds(ids); err != nil {
				return nil, err
			}
		}
	}
	return merged, nil
}

// TakeAmount withdraws a specific fungible amount from the worktop's
// buckets for a resource, in deposit order, merging into one bucket.
func (w *Worktop) TakeAmount(resourceAddress string, amount uint64) (*Bucket, error) {
	bs := w.buckets[resourceAddress]
	result := &Bucket{ResourceAddress: resourceAddress, Container: NewFungible()}
	remaining := amount
	keep := bs[:0:0]
	for _, b := range bs {
		if remaining == 0 {
			keep = append(keep, b)
			continue
		}
		take := remaining
		if avail := b.Container.AvailableAmount(); take > avail {
			take = avail
		}
		if take > 0 {
			if err := b.Container.TakeAmount(take); err != nil {
				return nil, err
			}
			if err := result.Container.PutAmount(take); err != nil {
				return nil, err
			}
			remaining -= take
		}
		if b.Container.AvailableAmount() > 0 || b.Container.LockedAmount > 0 {
			keep = append(keep, b)
		}
	}
	if remaining > 0 {
		return nil, ErrInsufficientBalance
	}
	w.buckets[resourceAddress] = keep
	return result, nil
}

// TakeIds withdraws specific non-fungible ids from the worktop's
// buckets for a resource.
func (w *Worktop) TakeIds(resourceAddress string, ids []string) (*Bucket, error) {
	bs := w.buckets[resourceAddress]
	result := &Bucket{ResourceAddress: resourceAddress, Container: NewNonFungible()}
	remaining := map[string]bool{}
	for _, id := range ids {
		remaining[id] = true
	}
	keep := bs[:0:0]
	for _, b := range bs {
		var take []string
		for _, id := range b.Container.AvailableIds() {
			if remaining[id] {
				take = append(take, id)
			}
		}
		if len(take) > 0 {
			if err := b.Container.TakeIds(take); err != nil {
				return nil, err
			}
			if err := result.Container.PutIds(take); err != nil {
				return nil, err
			}
			for _, id := range take {
				delete(remaining, id)
			}
		}
		if len(b.Container.Ids) > 0 {
			keep = append(keep, b)
		}
	}
	if len(remaining) > 0 {
		return nil, ErrNoSuchNonFungible
	}
	w.buckets[resourceAddress] = keep
	return result, nil
}

// Drain removes every bucket held on the worktop across all resource
// addresses, used by CALL_METHOD_WITH_ALL_RESOURCES.
func (w *Worktop) Drain() []*Bucket {
	var out []*Bucket
	for addr, bs := range w.buckets {
		out = append(out, bs...)
		delete(w.buckets, addr)
	}
	return out
}

// AssertContains reports whether the worktop holds a nonzero unlocked
// balance or any ids for a resource address.
func (w *Worktop) AssertContains(resourceAddress string) bool {
	for _, b := range w.buckets[resourceAddress] {
		if b.Container.Fungible && b.Container.AvailableAmount() > 0 {
			return true
		}
		if !b.Container.Fungible && len(b.Container.AvailableIds()) > 0 {
			return true
		}
	}
	return false
}

// AssertContainsAmount reports whether the worktop's unlocked balance
// for a resource address is at least amount, summed across every
// bucket held for it.
func (w *Worktop) AssertContainsAmount(resourceAddress string, amount uint64) bool {
	var total uint64
	for _, b := range w.buckets[resourceAddress] {
		total += b.Container.AvailableAmount()
		if total >= amount {
			return true
		}
	}
	return total >= amount
}

// AssertContainsIds reports whether every id in ids is held, unlocked,
// by some bucket on the worktop for a resource address.
func (w *Worktop) AssertContainsIds(resourceAddress string, ids []string) bool {
	have := map[string]bool{}
	for _, b := range w.buckets[resourceAddress] {
		for _, id := range b.Container.AvailableIds() {
			have[id] = true
		}
	}
	for _, id := range ids {
		if !have[id] {
			return false
		}
	}
	return true
}
