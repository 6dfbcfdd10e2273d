package authzone

import (
	"testing"

	"github.com/radixdlt/radixkernel/internal/resource"
)

func bucketWith(resourceAddr string, amount uint64) *resource.Bucket {
	b := &resource.Bucket{ResourceAddress: resourceAddr, Container: resource.NewFungible()}
	_ = b.Container.PutAmount(amount)
	return b
}

func TestRequireSatisfiedByVirtualProof(t *testing.T) {
	s := NewStack()
	z := s.PushFrame(false)
	z.VirtualProofs["resource_admin_badge"] = true

	if !s.CheckAuth(Require("resource_admin_badge"), false) {
		t.Fatalf("expected virtual proof to satisfy Require")
	}
	if s.CheckAuth(Require("resource_other"), false) {
		t.Fatalf("unrelated resource must not satisfy Require")
	}
}

func TestAmountOfAcrossProofs(t *testing.T) {
	s := NewStack()
	z := s.PushFrame(false)
	b := bucketWith("resource_xrd", 100)
	proof, err := resource.ComposeFromBuckets("resource_xrd", []*resource.Bucket{b}, 60)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	z.Push(proof)

	if !s.CheckAuth(AmountOf("resource_xrd", 60), false) {
		t.Fatalf("expected amount requirement to be satisfied")
	}
	if s.CheckAuth(AmountOf("resource_xrd", 61), false) {
		t.Fatalf("amount requirement above locked total must fail")
	}
}

func TestBarrierStopsWalkPastBudget(t *testing.T) {
	s := NewStack()
	outer := s.PushFrame(false)
	outer.VirtualProofs["resource_outer"] = true

	s.PushFrame(true) // barrier frame, consumes the one allowed crossing

	s.PushFrame(false) // innermost, non-barrier

	if !s.CheckAuth(Require("resource_outer"), false) {
		t.Fatalf("one barrier crossing should still reach the outer zone")
	}

	// A call whose target is itself a barrier gets zero crossings, so
	// frames beyond the immediate barrier must not be visible.
	s2 := NewStack()
	outer2 := s2.PushFrame(false)
	outer2.VirtualProofs["resource_outer"] = true
	s2.PushFrame(true)

	if s2.CheckAuth(Require("resource_outer"), true) {
		t.Fatalf("zero-budget barrier check must not see past the barrier")
	}
}

func TestCountOfEarlyExit(t *testing.T) {
	s := NewStack()
	z := s.PushFrame(false)
	z.VirtualProofs["a"] = true
	z.VirtualProofs["b"] = true

	rule := CountOf(2, Require("a"), Require("b"), Require("c"))
	if !s.CheckAuth(rule, false) {
		t.Fatalf("expected CountOf(2) to be satisfied by two present resources")
	}

	rule3 := CountOf(3, Require("a"), Require("b"), Require("c"))
	if s.CheckAuth(rule3, false) {
		t.Fatalf("CountOf(3) must fail when only two resources are present")
	}
}

func TestPopAndClear(t *testing.T) {
	s := NewStack()
	z := s.PushFrame(false)
	b := bucketWith("resource_xrd", 10)
	proof, _ := resource.ComposeFromBuckets("resource_xrd", []*resource.Bucket{b}, 5)
	z.Push(proof)

	popped := z.Pop()
	if popped != proof {
		t.Fatalf("Pop should return the proof just pushed")
	}
	if len(z.Proofs) != 0 {
		t.Fatalf("zone should be empty after popping its only proof")
	}

	proof2, _ := resource.ComposeFromBuckets("resource_xrd", []*resource.Bucket{b}, 5)
	z.Push(proof2)
	s.PopFrame()
	if b.Container.LockedAmount != 0 {
		t.Fatalf("popping a frame must drop its proofs and release locks")
	}
}
