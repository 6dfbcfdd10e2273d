package resource

import "testing"

func TestLockableResourceFungibleLockUnlock(t *testing.T) {
	r := NewFungible()
	if err := r.PutAmount(100); err != nil {
		t.Fatalf("PutAmount: %v", err)
	}
	if err := r.LockAmount(40); err != nil {
		t.Fatalf("LockAmount: %v", err)
	}
	if got := r.AvailableAmount(); got != 60 {
		t.Fatalf("available amount = %d, want 60", got)
	}
	if err := r.TakeAmount(61); err == nil {
		t.Fatalf("expected insufficient balance taking into locked amount")
	}
	r.UnlockAmount(40)
	if got := r.AvailableAmount(); got != 100 {
		t.Fatalf("available amount after unlock = %d, want 100", got)
	}
}

func TestLockableResourceNonFungibleIds(t *testing.T) {
	r := NewNonFungible()
	if err := r.PutIds([]string{"#1#", "#2#", "#3#"}); err != nil {
		t.Fatalf("PutIds: %v", err)
	}
	if err := r.LockIds([]string{"#1#"}); err != nil {
		t.Fatalf("LockIds: %v", err)
	}
	if err := r.TakeIds([]string{"#1#"}); err == nil {
		t.Fatalf("expected failure taking a locked id")
	}
	if err := r.TakeIds([]string{"#2#"}); err != nil {
		t.Fatalf("TakeIds unlocked id: %v", err)
	}
	r.UnlockIds([]string{"#1#"})
	if err := r.TakeIds([]string{"#1#"}); err != nil {
		t.Fatalf("TakeIds after unlock: %v", err)
	}
}

func TestComposeProofFromBucketsAndDrop(t *testing.T) {
	bucket := &Bucket{ResourceAddress: "resource_xrd", Container: NewFungible()}
	if err := bucket.Container.PutAmount(50); err != nil {
		t.Fatalf("PutAmount: %v", err)
	}
	proof, err := ComposeFromBuckets("resource_xrd", []*Bucket{bucket}, 30)
	if err != nil {
		t.Fatalf("ComposeFromBuckets: %v", err)
	}
	if got := bucket.Container.AvailableAmount(); got != 20 {
		t.Fatalf("bucket available after proof = %d, want 20", got)
	}
	proof.Drop()
	if got := bucket.Container.AvailableAmount(); got != 50 {
		t.Fatalf("bucket available after drop = %d, want 50", got)
	}
}

func TestProofCloneAndRestrict(t *testing.T) {
	bucket := &Bucket{ResourceAddress: "resource_xrd", Container: NewFungible()}
	_ = bucket.Container.PutAmount(100)
	proof, err := ComposeFromBuckets("resource_xrd", []*Bucket{bucket}, 10)
	if err != nil {
		t.Fatalf("ComposeFromBuckets: %v", err)
	}
	clone, err := proof.Clone()
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if got := bucket.Container.AvailableAmount(); got != 80 {
		t.Fatalf("available after clone = %d, want 80 (10 locked twice)", got)
	}
	proof.Restrict()
	if _, err := proof.Clone(); err != ErrProofRestricted {
		t.Fatalf("expected ErrProofRestricted, got %v", err)
	}
	clone.Drop()
	proof.Drop()
	if got := bucket.Container.AvailableAmount(); got != 100 {
		t.Fatalf("available after both drops = %d, want 100", got)
	}
}

func TestWorktopTakeAmountMergesAcrossBuckets(t *testing.T) {
	w := NewWorktop()
	b1 := &Bucket{ResourceAddress: "r", Container: NewFungible()}
	_ = b1.Container.PutAmount(10)
	b2 := &Bucket{ResourceAddress: "r", Container: NewFungible()}
	_ = b2.Container.PutAmount(20)
	w.Put(b1)
	w.Put(b2)

	out, err := w.TakeAmount("r", 25)
	if err != nil {
		t.Fatalf("TakeAmount: %v", err)
	}
	if out.Container.Amount != 25 {
		t.Fatalf("taken amount = %d, want 25", out.Container.Amount)
	}
	if !w.AssertContains("r") {
		t.Fatalf("expected 5 remaining on worktop")
	}
}

func TestWorktopTakeIds(t *testing.T) {
	w := NewWorktop()
	b := &Bucket{ResourceAddress: "nft", Container: NewNonFungible()}
	_ = b.Container.PutIds([]string{"#1#", "#2#"})
	w.Put(b)

	out, err := w.TakeIds("nft", []string{"#1#"})
	if err != nil {
		t.Fatalf("TakeIds: %v", err)
	}
	if len(out.Container.Ids) != 1 || !out.Container.Ids["#1#"] {
		t.Fatalf("unexpected taken ids: %+v", out.Container.Ids)
	}
}

func TestWorktopDrain(t *testing.T) {
	w := NewWorktop()
	b := &Bucket{ResourceAddress: "r", Container: NewFungible()}
	_ = b.Container.PutAmount(5)
	w.Put(b)
	drained := w.Drain()
	if len(drained) != 1 {
		t.Fatalf("expected 1 drained bucket, got %d", len(drained))
	}
	if w.AssertContains("r") {
		t.Fatalf("worktop should be empty after drain")
	}
}
