// Package nativeblueprints supplies the handful of built-in native
// function/method implementations the transaction processor's
// instruction set assumes exist: Vault's withdraw/lock_fee/
// create-proof operations and Package's publish function. A real
// engine compiles these from the system package's own Scrypto source;
// this kernel has no WASM compiler (spec §1 Non-goals), so they are
// registered directly as Go closures against the kernel's native
// dispatch tables, the same mechanism txprocessor_test.go's fixtures
// use for test-only blueprints.
package nativeblueprints

import (
	"fmt"

	"github.com/radixdlt/radixkernel/internal/addr"
	"github.com/radixdlt/radixkernel/internal/kernel"
	"github.com/radixdlt/radixkernel/internal/node"
	"github.com/radixdlt/radixkernel/internal/resource"
	"github.com/radixdlt/radixkernel/internal/sbor"
)

// nativePackage is the well-known sentinel address the transaction
// processor's PUBLISH_PACKAGE handler invokes Package::publish against
// (there is no real package to own the publish function itself).
var nativePackage = addr.Address{Kind: addr.AddressKindPackage}

// Register installs every native blueprint handler on k. txprocessor.New
// calls this for every processor so CALL_METHOD/CALL_FUNCTION/
// PUBLISH_PACKAGE instructions have real handlers to dispatch to
// without each caller having to wire them up by hand.
func Register(k *kernel.Kernel) {
	k.RegisterNativeFunction(kernel.NativeFunctionKey{Package: nativePackage, Blueprint: "Package", Function: "publish"}, publishPackage)

	k.RegisterNativeMethod(kernel.NativeMethodKey{Blueprint: "Vault", Method: "withdraw_by_amount"}, vaultWithdrawByAmount)
	k.RegisterNativeMethod(kernel.NativeMethodKey{Blueprint: "Vault", Method: "withdraw_by_ids"}, vaultWithdrawByIds)
	k.RegisterNativeMethod(kernel.NativeMethodKey{Blueprint: "Vault", Method: "lock_fee"}, vaultLockFee)
	k.RegisterNativeMethod(kernel.NativeMethodKey{Blueprint: "Vault", Method: "create_proof_of_amount"}, vaultCreateProofOfAmount)
}

// Bootstrap creates and globalizes a vault pre-funded with amount of
// resourceAddress, returning the global address a manifest's
// CALL_METHOD instructions use to reach it. This is the production
// entry point that exercises Kernel.CreateNode/GlobalizeNode outside
// of a WASM component constructor, standing in for the account
// component a real transaction would instantiate and fund during
// genesis or a preceding deposit.
func Bootstrap(k *kernel.Kernel, resourceAddress string, amount uint64) (addr.Address, error) {
	container := resource.NewFungible()
	if err := container.PutAmount(amount); err != nil {
		return addr.Address{}, err
	}
	vault := &resource.Vault{ResourceAddress: resourceAddress, Container: container}
	id, err := k.CreateNode(node.VaultNode{Vault: vault}, nil)
	if err != nil {
		return addr.Address{}, err
	}
	return k.GlobalizeNode(id)
}

func vaultContent(k *kernel.Kernel, receiver addr.RENodeId) (node.VaultNode, error) {
	hn, ok := k.LookupNode(receiver)
	if !ok {
		return node.VaultNode{}, &kernel.NodeNotVisibleError{Node: receiver.String()}
	}
	vn, ok := hn.Content.(node.VaultNode)
	if !ok {
		return node.VaultNode{}, fmt.Errorf("nativeblueprints: %s is not a vault", receiver)
	}
	return vn, nil
}

func vaultWithdrawByAmount(k *kernel.Kernel, receiver addr.RENodeId, args sbor.Value) (sbor.Value, []addr.RENodeId, error) {
	vn, err := vaultContent(k, receiver)
	if err != nil {
		return sbor.Value{}, nil, err
	}
	amount := args.Uint
	if err := vn.Vault.Container.TakeAmount(amount); err != nil {
		return sbor.Value{}, nil, err
	}
	container := resource.NewFungible()
	if err := container.PutAmount(amount); err != nil {
		return sbor.Value{}, nil, err
	}
	bucket := &resource.Bucket{ResourceAddress: vn.Vault.ResourceAddress, Container: container}
	bucketId, err := k.CreateNode(node.BucketNode{Bucket: bucket}, nil)
	if err != nil {
		return sbor.Value{}, nil, err
	}
	return sbor.Value{}, []addr.RENodeId{bucketId}, nil
}

func vaultWithdrawByIds(k *kernel.Kernel, receiver addr.RENodeId, args sbor.Value) (sbor.Value, []addr.RENodeId, error) {
	vn, err := vaultContent(k, receiver)
	if err != nil {
		return sbor.Value{}, nil, err
	}
	ids := make([]string, 0, len(args.Elems))
	for _, el := range args.Elems {
		ids = append(ids, el.Str)
	}
	if err := vn.Vault.Container.TakeIds(ids); err != nil {
		return sbor.Value{}, nil, err
	}
	container := resource.NewNonFungible()
	if err := container.PutIds(ids); err != nil {
		return sbor.Value{}, nil, err
	}
	bucket := &resource.Bucket{ResourceAddress: vn.Vault.ResourceAddress, Container: container}
	bucketId, err := k.CreateNode(node.BucketNode{Bucket: bucket}, nil)
	if err != nil {
		return sbor.Value{}, nil, err
	}
	return sbor.Value{}, []addr.RENodeId{bucketId}, nil
}

// vaultLockFee enforces the heap-vault guard directly: a vault can
// only lock a fee once it is store-resident (globalized), matching
// spec §5's RENodeNotInTrack rule.
func vaultLockFee(k *kernel.Kernel, receiver addr.RENodeId, args sbor.Value) (sbor.Value, []addr.RENodeId, error) {
	global, ok := k.GlobalAddressOf(receiver)
	if !ok {
		return sbor.Value{}, nil, &kernel.RENodeNotInTrackError{Node: receiver.String()}
	}
	if err := k.LockFee(global, receiver, args.Uint); err != nil {
		return sbor.Value{}, nil, err
	}
	return sbor.Value{}, nil, nil
}

// vaultCreateProofOfAmount locks amount directly against the vault's
// own container (rather than a bucket's, which
// resource.ComposeFromBuckets expects) and pushes the resulting proof
// as a heap-resident node via Kernel.PushNativeProof.
func vaultCreateProofOfAmount(k *kernel.Kernel, receiver addr.RENodeId, args sbor.Value) (sbor.Value, []addr.RENodeId, error) {
	vn, err := vaultContent(k, receiver)
	if err != nil {
		return sbor.Value{}, nil, err
	}
	amount := args.Uint
	if err := vn.Vault.Container.LockAmount(amount); err != nil {
		return sbor.Value{}, nil, err
	}
	const backingKey = "vault"
	proof := &resource.Proof{
		ResourceAddress: vn.Vault.ResourceAddress,
		Fungible:        true,
		TotalAmount:     amount,
		Backing:         map[string]*resource.LockableResource{backingKey: vn.Vault.Container},
		Evidence:        map[string]resource.LockedAmountOrIds{backingKey: {Fungible: true, Amount: amount}},
	}
	proofId, err := k.PushNativeProof(proof)
	if err != nil {
		return sbor.Value{}, nil, err
	}
	return sbor.Value{}, []addr.RENodeId{proofId}, nil
}

func publishPackage(k *kernel.Kernel, args sbor.Value) (sbor.Value, []addr.RENodeId, error) {
	pkgId, err := k.CreateNode(node.PackageNode{Code: args.Raw, BlueprintABI: map[string]node.BlueprintABI{}}, nil)
	if err != nil {
		return sbor.Value{}, nil, err
	}
	global, err := k.GlobalizeNode(pkgId)
	if err != nil {
		return sbor.Value{}, nil, err
	}
	k.Packages[global] = &node.PackageNode{Code: args.Raw, BlueprintABI: map[string]node.BlueprintABI{}}
	return sbor.Value{Kind: sbor.KindString, Str: global.String()}, nil, nil
}
