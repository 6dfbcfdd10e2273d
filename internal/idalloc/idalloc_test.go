package idalloc

import "testing"

func txHash(b byte) [32]byte {
	var h [32]byte
	h[0] = b
	return h
}

func TestDeterministicAcrossAllocators(t *testing.T) {
	a1 := New(txHash(7))
	a2 := New(txHash(7))

	v1, err := a1.NewVaultId()
	if err != nil {
		t.Fatalf("NewVaultId: %v", err)
	}
	v2, err := a2.NewVaultId()
	if err != nil {
		t.Fatalf("NewVaultId: %v", err)
	}
	if v1 != v2 {
		t.Fatalf("allocators seeded with the same tx hash must derive identical ids: %x != %x", v1, v2)
	}
}

func TestDifferentTxHashesDiverge(t *testing.T) {
	a1 := New(txHash(1))
	a2 := New(txHash(2))
	v1, _ := a1.NewVaultId()
	v2, _ := a2.NewVaultId()
	if v1 == v2 {
		t.Fatalf("different tx hashes must not derive the same vault id")
	}
}

func TestCountersAreIndependentAndMonotonic(t *testing.T) {
	a := New(txHash(3))
	b1, _ := a.NewBucketId()
	b2, _ := a.NewBucketId()
	if b2 != b1+1 {
		t.Fatalf("bucket ids must be monotonic: %d then %d", b1, b2)
	}
	p1, _ := a.NewProofId()
	if p1 != 0 {
		t.Fatalf("proof counter must be independent of bucket counter, got %d", p1)
	}
}

func TestAddressDerivationsDivergeByTag(t *testing.T) {
	a := New(txHash(9))
	pkg, err := a.NewPackageAddress()
	if err != nil {
		t.Fatalf("NewPackageAddress: %v", err)
	}
	res, _ := a.NewResourceAddress()
	if pkg.Tail == res.Tail {
		t.Fatalf("package and resource derivations must diverge due to distinct tag bytes")
	}
}

func TestCounterExhaustionReturnsError(t *testing.T) {
	a := New(txHash(4))
	a.bucketCounter = ^uint32(0)
	if _, err := a.NewBucketId(); err == nil {
		t.Fatalf("expected IdAllocationError at counter exhaustion")
	}
}
