package addr

import "testing"

func TestRENodeIdAsMapKey(t *testing.T) {
	m := map[RENodeId]int{}
	a := RENodeId{Kind: RENodeKindBucket, Bucket: 1}
	b := RENodeId{Kind: RENodeKindBucket, Bucket: 2}
	m[a] = 10
	m[b] = 20
	if m[a] != 10 || m[b] != 20 {
		t.Fatalf("RENodeId did not behave as a distinct map key")
	}
	c := RENodeId{Kind: RENodeKindBucket, Bucket: 1}
	if _, ok := m[c]; !ok {
		t.Fatalf("equal RENodeId values should collide to the same map entry")
	}
}

func TestSubstateIdAsMapKey(t *testing.T) {
	node := RENodeId{Kind: RENodeKindKeyValueStore, KVStore: KeyValueStoreId{1, 2, 3}}
	id1 := SubstateId{Node: node, Offset: KVOffset([]byte("key-one"))}
	id2 := SubstateId{Node: node, Offset: KVOffset([]byte("key-two"))}

	locks := map[SubstateId]bool{}
	locks[id1] = true
	if locks[id2] {
		t.Fatalf("distinct keys must not collide")
	}
	id1dup := SubstateId{Node: node, Offset: KVOffset([]byte("key-one"))}
	if !locks[id1dup] {
		t.Fatalf("identical SubstateId values must collide to the same entry")
	}
}

func TestAddressString(t *testing.T) {
	a := Address{Kind: AddressKindComponent}
	s := a.String()
	if len(s) != 2+52 {
		t.Fatalf("unexpected address string length: %d (%s)", len(s), s)
	}
}
