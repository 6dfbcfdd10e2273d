package kernel

import (
	"testing"

	"github.com/radixdlt/radixkernel/internal/addr"
	"github.com/radixdlt/radixkernel/internal/authzone"
	"github.com/radixdlt/radixkernel/internal/node"
	"github.com/radixdlt/radixkernel/internal/resource"
	"github.com/radixdlt/radixkernel/internal/sbor"
	"github.com/radixdlt/radixkernel/internal/store"
	"github.com/radixdlt/radixkernel/internal/track"
	"github.com/radixdlt/radixkernel/internal/wasm"
)

func newTestKernel(t *testing.T, maxDepth int) *Kernel {
	t.Helper()
	tr := track.New(store.NewMemoryStore())
	engine := wasm.NewStubEngine(nil)
	var txHash [32]byte
	txHash[0] = 1
	return New(txHash, maxDepth, tr, engine, 1_000_000, []string{"resource_signer_badge"})
}

func TestInvokeFunctionNativeEchoRoundTrip(t *testing.T) {
	k := newTestKernel(t, 8)
	pkg := addr.Address{Kind: addr.AddressKindPackage}
	k.RegisterNativeFunction(NativeFunctionKey{Package: pkg, Blueprint: "Echo", Function: "identity"}, func(k *Kernel, args sbor.Value) (sbor.Value, []addr.RENodeId, error) {
		return args, nil, nil
	})

	in := sbor.Value{Kind: sbor.KindU64, Uint: 7}
	out, _, err := k.InvokeFunction(pkg, "Echo", "identity", CallArgs{Value: in}, authzone.ProofRule{})
	if err != nil {
		t.Fatalf("InvokeFunction: %v", err)
	}
	if out.Uint != 7 {
		t.Fatalf("expected echoed value 7, got %d", out.Uint)
	}
	if len(k.Frames) != 1 {
		t.Fatalf("frame stack should be back to just the root frame, got %d", len(k.Frames))
	}
}

func TestMaxDepthExceeded(t *testing.T) {
	k := newTestKernel(t, 1)
	pkg := addr.Address{Kind: addr.AddressKindPackage}
	k.RegisterNativeFunction(NativeFunctionKey{Package: pkg, Blueprint: "X", Function: "f"}, func(k *Kernel, args sbor.Value) (sbor.Value, []addr.RENodeId, error) {
		return sbor.Value{}, nil, nil
	})
	_, _, err := k.InvokeFunction(pkg, "X", "f", CallArgs{}, authzone.ProofRule{})
	if _, ok := err.(*MaxCallDepthExceededError); !ok {
		t.Fatalf("expected MaxCallDepthExceededError, got %v", err)
	}
}

func TestDirtyFrameRejected(t *testing.T) {
	k := newTestKernel(t, 8)
	pkg := addr.Address{Kind: addr.AddressKindPackage}
	k.RegisterNativeFunction(NativeFunctionKey{Package: pkg, Blueprint: "Leaky", Function: "leak"}, func(k *Kernel, args sbor.Value) (sbor.Value, []addr.RENodeId, error) {
		bucket := &resource.Bucket{ResourceAddress: "resource_xrd", Container: resource.NewFungible()}
		if err := bucket.Container.PutAmount(10); err != nil {
			return sbor.Value{}, nil, err
		}
		_, err := k.CreateNode(node.BucketNode{Bucket: bucket}, nil)
		if err != nil {
			return sbor.Value{}, nil, err
		}
		return sbor.Value{}, nil, nil
	})
	_, _, err := k.InvokeFunction(pkg, "Leaky", "leak", CallArgs{}, authzone.ProofRule{})
	if _, ok := err.(*DirtyFrameError); !ok {
		t.Fatalf("expected DirtyFrameError, got %v", err)
	}
}

func TestAuthorizationRejectsMissingProof(t *testing.T) {
	k := newTestKernel(t, 8)
	pkg := addr.Address{Kind: addr.AddressKindPackage}
	k.RegisterNativeFunction(NativeFunctionKey{Package: pkg, Blueprint: "Admin", Function: "restricted"}, func(k *Kernel, args sbor.Value) (sbor.Value, []addr.RENodeId, error) {
		return sbor.Value{}, nil, nil
	})
	rule := authzone.Require("resource_admin_badge")
	_, _, err := k.InvokeFunction(pkg, "Admin", "restricted", CallArgs{}, rule)
	if _, ok := err.(*AuthorizationError); !ok {
		t.Fatalf("expected AuthorizationError, got %v", err)
	}
}

func TestAuthorizationAllowsSignerVirtualProof(t *testing.T) {
	k := newTestKernel(t, 8)
	pkg := addr.Address{Kind: addr.AddressKindPackage}
	k.RegisterNativeFunction(NativeFunctionKey{Package: pkg, Blueprint: "Account", Function: "withdraw"}, func(k *Kernel, args sbor.Value) (sbor.Value, []addr.RENodeId, error) {
		return sbor.Value{}, nil, nil
	})
	rule := authzone.Require("resource_signer_badge")
	if _, _, err := k.InvokeFunction(pkg, "Account", "withdraw", CallArgs{}, rule); err != nil {
		t.Fatalf("expected signer virtual proof to authorize, got %v", err)
	}
}

func TestInvalidCallDataRejectsVaultInArgs(t *testing.T) {
	k := newTestKernel(t, 8)
	pkg := addr.Address{Kind: addr.AddressKindPackage}
	vaultId, err := k.IdAllocator.NewVaultId()
	if err != nil {
		t.Fatalf("NewVaultId: %v", err)
	}
	args := CallArgs{MovedNodes: []addr.RENodeId{{Kind: addr.RENodeKindVault, Vault: vaultId}}}
	_, _, err = k.InvokeFunction(pkg, "X", "f", args, authzone.ProofRule{})
	if _, ok := err.(*InvalidCallDataError); !ok {
		t.Fatalf("expected InvalidCallDataError, got %v", err)
	}
}
