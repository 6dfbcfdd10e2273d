package txprocessor

import (
	"testing"

	"github.com/radixdlt/radixkernel/internal/addr"
	"github.com/radixdlt/radixkernel/internal/authzone"
	"github.com/radixdlt/radixkernel/internal/kernel"
	"github.com/radixdlt/radixkernel/internal/nativeblueprints"
	"github.com/radixdlt/radixkernel/internal/node"
	"github.com/radixdlt/radixkernel/internal/resource"
	"github.com/radixdlt/radixkernel/internal/sbor"
	"github.com/radixdlt/radixkernel/internal/store"
	"github.com/radixdlt/radixkernel/internal/track"
	"github.com/radixdlt/radixkernel/internal/wasm"
)

func newTestKernel(t *testing.T) *kernel.Kernel {
	t.Helper()
	tr := track.New(store.NewMemoryStore())
	engine := wasm.NewStubEngine(nil)
	var txHash [32]byte
	txHash[0] = 3
	return kernel.New(txHash, 8, tr, engine, 1_000_000, []string{"resource_signer_badge"})
}

func TestWorktopTakeAssertReturn(t *testing.T) {
	k := newTestKernel(t)
	p := New(k)

	// Seed the worktop directly, as a CALL_FUNCTION return would.
	seed := &resource.Bucket{ResourceAddress: "resource_xrd", Container: resource.NewFungible()}
	_ = seed.Container.PutAmount(100)
	p.Worktop.Put(seed)

	instructions := []Instruction{
		{Kind: InsTakeFromWorktopByAmount, ResourceAddress: "resource_xrd", Amount: 40, NewBucketId: 0},
		{Kind: InsAssertWorktopContains, ResourceAddress: "resource_xrd"},
		{Kind: InsReturnToWorktop, BucketId: 0},
	}
	if _, err := p.Run(instructions); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !p.Worktop.AssertContains("resource_xrd") {
		t.Fatalf("expected worktop to still hold the returned bucket")
	}
}

func TestAuthZoneProofLifecycle(t *testing.T) {
	k := newTestKernel(t)
	p := New(k)

	instructions := []Instruction{
		{Kind: InsCreateProofFromAuthZone, ResourceAddress: "resource_signer_badge", NewProofId: 0},
		{Kind: InsCloneProof, ProofId: 0, NewProofId: 1},
		{Kind: InsDropProof, ProofId: 0},
		{Kind: InsDropProof, ProofId: 1},
	}
	if _, err := p.Run(instructions); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestCallFunctionAutoMoveAndAuth(t *testing.T) {
	k := newTestKernel(t)
	pkg := addr.Address{Kind: addr.AddressKindPackage}
	k.RegisterNativeFunction(kernel.NativeFunctionKey{Package: pkg, Blueprint: "Faucet", Function: "free"}, func(k *kernel.Kernel, args sbor.Value) (sbor.Value, []addr.RENodeId, error) {
		return sbor.Value{Kind: sbor.KindU64, Uint: 1}, nil, nil
	})
	p := New(k)

	instructions := []Instruction{
		{Kind: InsCallFunction, Package: pkg, Blueprint: "Faucet", Function: "free", AuthRule: authzone.Require("resource_signer_badge")},
	}
	results, err := p.Run(instructions)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 || results[0].Uint != 1 {
		t.Fatalf("unexpected results: %+v", results)
	}
}

// TestWithdrawByAmountReachesWorktop exercises CALL_METHOD against a
// bootstrapped vault's global address end to end: the native
// withdraw_by_amount handler takes a real amount out of the vault and
// autoMove deposits the resulting bucket onto the worktop, so a
// subsequent ASSERT_WORKTOP_CONTAINS_BY_AMOUNT sees the withdrawn
// balance rather than a fabricated empty bucket.
func TestWithdrawByAmountReachesWorktop(t *testing.T) {
	k := newTestKernel(t)
	vaultGlobal, err := nativeblueprints.Bootstrap(k, "resource_xrd", 100)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	p := New(k)

	instructions := []Instruction{
		{Kind: InsCallMethod, Receiver: vaultGlobal, Blueprint: "Vault", Method: "withdraw_by_amount", Args: sbor.Value{Kind: sbor.KindU64, Uint: 5}},
		{Kind: InsAssertWorktopContainsByAmount, ResourceAddress: "resource_xrd", Amount: 5},
	}
	if _, err := p.Run(instructions); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if p.Worktop.AssertContainsAmount("resource_xrd", 6) {
		t.Fatalf("worktop should hold exactly the withdrawn amount, not more")
	}
}

// TestWithdrawByIdsWorktopAssertion covers scenario where a worktop
// holds several non-fungible ids, some are taken out, and a later
// by-ids assertion must tell which ids remain rather than collapsing
// into the unconstrained AssertContains.
func TestWithdrawByIdsWorktopAssertion(t *testing.T) {
	k := newTestKernel(t)
	p := New(k)

	seed := &resource.Bucket{ResourceAddress: "resource_nft", Container: resource.NewNonFungible()}
	if err := seed.Container.PutIds([]string{"0x05", "0x07", "0x09"}); err != nil {
		t.Fatalf("PutIds: %v", err)
	}
	p.Worktop.Put(seed)

	instructions := []Instruction{
		{Kind: InsTakeFromWorktopByIds, ResourceAddress: "resource_nft", Ids: []string{"0x05", "0x07"}, NewBucketId: 0},
		{Kind: InsAssertWorktopContainsByIds, ResourceAddress: "resource_nft", Ids: []string{"0x09"}},
	}
	if _, err := p.Run(instructions); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if p.Worktop.AssertContainsIds("resource_nft", []string{"0x05"}) {
		t.Fatalf("0x05 was taken off the worktop and should no longer assert present")
	}
}

// TestCreateProofFromAuthZoneByAmountIsBounded ensures the bounded
// proof-creation instructions actually compose a sub-proof over the
// requested amount instead of falling back to the unconstrained
// CREATE_PROOF_FROM_AUTH_ZONE behavior.
func TestCreateProofFromAuthZoneByAmountIsBounded(t *testing.T) {
	k := newTestKernel(t)
	p := New(k)

	bucket := &resource.Bucket{ResourceAddress: "resource_xrd", Container: resource.NewFungible()}
	if err := bucket.Container.PutAmount(100); err != nil {
		t.Fatalf("PutAmount: %v", err)
	}
	// The zone proof only pins 40 of the bucket, leaving headroom for a
	// bounded 30-unit sub-proof to lock its own share on top.
	proof, err := resource.ComposeFromBuckets("resource_xrd", []*resource.Bucket{bucket}, 40)
	if err != nil {
		t.Fatalf("ComposeFromBuckets: %v", err)
	}
	k.CurrentFrame().AuthZone.Push(proof)

	instructions := []Instruction{
		{Kind: InsCreateProofFromAuthZoneByAmount, ResourceAddress: "resource_xrd", Amount: 30, NewProofId: 0},
		{Kind: InsDropProof, ProofId: 0},
	}
	if _, err := p.Run(instructions); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := bucket.Container.AvailableAmount(); got != 60 {
		t.Fatalf("expected the sub-proof's 30-unit lock to be released by drop, got available %d", got)
	}
	proof.Drop()
	if got := bucket.Container.AvailableAmount(); got != 100 {
		t.Fatalf("expected the zone proof's 40-unit lock to be released, got available %d", got)
	}
}

// TestLockFeeDebitsGlobalizedVault confirms lock_fee, called through
// CALL_METHOD on a globalized vault, actually debits the vault.
func TestLockFeeDebitsGlobalizedVault(t *testing.T) {
	k := newTestKernel(t)
	vaultGlobal, err := nativeblueprints.Bootstrap(k, "resource_xrd", 100)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	p := New(k)

	instructions := []Instruction{
		{Kind: InsCallMethod, Receiver: vaultGlobal, Blueprint: "Vault", Method: "lock_fee", Args: sbor.Value{Kind: sbor.KindU64, Uint: 10}},
	}
	if _, err := p.Run(instructions); err != nil {
		t.Fatalf("Run: %v", err)
	}

	hn, ok := k.Globals[vaultGlobal]
	if !ok {
		t.Fatalf("vault missing from globals")
	}
	vn, ok := hn.Content.(node.VaultNode)
	if !ok {
		t.Fatalf("globalized node is not a vault")
	}
	if got := vn.Vault.Container.AvailableAmount(); got != 90 {
		t.Fatalf("expected 90 remaining after locking a fee of 10, got %d", got)
	}
}

// TestPublishPackageGlobalizes exercises PUBLISH_PACKAGE end to end:
// the native Package.publish function must actually create and
// globalize a package node rather than falling through to WASM
// dispatch and failing.
func TestPublishPackageGlobalizes(t *testing.T) {
	k := newTestKernel(t)
	p := New(k)

	instructions := []Instruction{
		{Kind: InsPublishPackage, Code: []byte("fake-wasm-bytes")},
	}
	results, err := p.Run(instructions)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 || results[0].Kind != sbor.KindString || results[0].Str == "" {
		t.Fatalf("expected a non-empty package address, got %+v", results)
	}
}

func TestTransactionAbortsOnFirstFailure(t *testing.T) {
	k := newTestKernel(t)
	p := New(k)
	instructions := []Instruction{
		{Kind: InsAssertWorktopContains, ResourceAddress: "resource_xrd"},
	}
	_, err := p.Run(instructions)
	if err == nil {
		t.Fatalf("expected assertion failure to abort the transaction")
	}
	if tpErr, ok := err.(*TransactionProcessorError); !ok || tpErr.Index != 0 {
		t.Fatalf("expected TransactionProcessorError at index 0, got %v", err)
	}
}
