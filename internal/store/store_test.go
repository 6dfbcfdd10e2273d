package store

import (
	"testing"

	"github.com/radixdlt/radixkernel/internal/addr"
	"github.com/radixdlt/radixkernel/internal/sbor"
)

func TestMemoryStorePutGet(t *testing.T) {
	s := NewMemoryStore()
	id := addr.SubstateId{
		Node:   addr.RENodeId{Kind: addr.RENodeKindVault, Vault: addr.VaultId{1}},
		Offset: addr.SubstateOffset{Kind: addr.OffsetVault},
	}
	if _, ok, err := s.Get(id); err != nil || ok {
		t.Fatalf("expected missing substate, got ok=%v err=%v", ok, err)
	}
	want := sbor.Value{Kind: sbor.KindU64, Uint: 55}
	if err := s.Put(id, want); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := s.Get(id)
	if err != nil || !ok || got.Uint != 55 {
		t.Fatalf("Get after Put = %+v, ok=%v, err=%v", got, ok, err)
	}
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	s := NewMemoryStore()
	id := addr.SubstateId{Node: addr.RENodeId{Kind: addr.RENodeKindVault, Vault: addr.VaultId{2}}}
	_ = s.Put(id, sbor.Value{Kind: sbor.KindU64, Uint: 1})
	snap := s.Snapshot()
	_ = s.Put(id, sbor.Value{Kind: sbor.KindU64, Uint: 2})
	if snap[id].Uint != 1 {
		t.Fatalf("snapshot should not observe later writes, got %d", snap[id].Uint)
	}
}
