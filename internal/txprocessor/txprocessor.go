// Package txprocessor implements the transaction processor: the
// native blueprint that interprets a manifest's instruction stream,
// maintaining the manifest-local bucket/proof id mapping, draining
// instructions through the worktop and auth zone, and auto-moving
// buckets/proofs returned by CALL_FUNCTION/CALL_METHOD back onto the
// worktop/auth zone (spec §4.5, grounded on
// transaction_processor.rs's static_main dispatch).
package txprocessor

import (
	"fmt"

	"github.com/radixdlt/radixkernel/internal/addr"
	"github.com/radixdlt/radixkernel/internal/authzone"
	"github.com/radixdlt/radixkernel/internal/kernel"
	"github.com/radixdlt/radixkernel/internal/nativeblueprints"
	"github.com/radixdlt/radixkernel/internal/node"
	"github.com/radixdlt/radixkernel/internal/resource"
	"github.com/radixdlt/radixkernel/internal/sbor"
)

// InstructionKind discriminates Instruction's variants, one per
// ExecutableInstruction case in the original manifest format.
type InstructionKind int

const (
	InsTakeFromWorktop InstructionKind = iota
	InsTakeFromWorktopByAmount
	InsTakeFromWorktopByIds
	InsReturnToWorktop
	InsAssertWorktopContains
	InsAssertWorktopContainsByAmount
	InsAssertWorktopContainsByIds
	InsPopFromAuthZone
	InsPushToAuthZone
	InsClearAuthZone
	InsCreateProofFromAuthZone
	InsCreateProofFromAuthZoneByAmount
	InsCreateProofFromAuthZoneByIds
	InsCreateProofFromBucket
	InsCloneProof
	InsDropProof
	InsDropAllProofs
	InsCallFunction
	InsCallMethod
	InsCallMethodWithAllResources
	InsPublishPackage
)

// Instruction is one manifest instruction. Only the fields relevant to
// Kind are meaningful; manifest-local bucket/proof ids are plain
// counters scoped to the transaction, distinct from kernel RENodeIds.
type Instruction struct {
	Kind InstructionKind

	ResourceAddress string
	Amount          uint64
	Ids             []string

	BucketId    uint32
	NewBucketId uint32
	ProofId     uint32
	NewProofId  uint32

	Package   addr.Address
	Blueprint string
	Function  string
	Method    string
	Receiver  addr.Address
	Args      sbor.Value
	AuthRule  authzone.ProofRule

	Code []byte
}

// TransactionProcessorError wraps any failure encountered while
// interpreting a manifest, naming the offending instruction index.
type TransactionProcessorError struct {
	Index int
	Cause error
}

func (e *TransactionProcessorError) Error() string {
	return fmt.Sprintf("txprocessor: instruction %d: %v", e.Index, e.Cause)
}

func (e *TransactionProcessorError) Unwrap() error { return e.Cause }

// Processor interprets one transaction's manifest against a kernel.
type Processor struct {
	Kernel *kernel.Kernel

	Worktop *resource.Worktop

	bucketIdMapping map[uint32]*resource.Bucket
	proofIdMapping  map[uint32]*resource.Proof
}

// New creates a processor bound to a kernel, with an empty worktop
// ready to receive the transaction's buckets.
func New(k *kernel.Kernel) *Processor {
	nativeblueprints.Register(k)
	return &Processor{
		Kernel:          k,
		Worktop:         resource.NewWorktop(),
		bucketIdMapping: make(map[uint32]*resource.Bucket),
		proofIdMapping:  make(map[uint32]*resource.Proof),
	}
}

// Run interprets every instruction in order, aborting the whole
// transaction on the first error (no partial execution).
func (p *Processor) Run(instructions []Instruction) ([]sbor.Value, error) {
	results := make([]sbor.Value, 0, len(instructions))
	for i, ins := range instructions {
		v, err := p.runOne(ins)
		if err != nil {
			return nil, &TransactionProcessorError{Index: i, Cause: err}
		}
		results = append(results, v)
	}
	return results, nil
}

func (p *Processor) runOne(ins Instruction) (sbor.Value, error) {
	switch ins.Kind {
	case InsTakeFromWorktop:
		b, err := p.Worktop.TakeAll(ins.ResourceAddress)
		if err != nil {
			return sbor.Value{}, err
		}
		p.bucketIdMapping[ins.NewBucketId] = b
		return sbor.Value{}, nil

	case InsTakeFromWorktopByAmount:
		b, err := p.Worktop.TakeAmount(ins.ResourceAddress, ins.Amount)
		if err != nil {
			return sbor.Value{}, err
		}
		p.bucketIdMapping[ins.NewBucketId] = b
		return sbor.Value{}, nil

	case InsTakeFromWorktopByIds:
		b, err := p.Worktop.TakeIds(ins.ResourceAddress, ins.Ids)
		if err != nil {
			return sbor.Value{}, err
		}
		p.bucketIdMapping[ins.NewBucketId] = b
		return sbor.Value{}, nil

	case InsReturnToWorktop:
		b, ok := p.bucketIdMapping[ins.BucketId]
		if !ok {
			return sbor.Value{}, fmt.Errorf("txprocessor: unknown bucket id %d", ins.BucketId)
		}
		delete(p.bucketIdMapping, ins.BucketId)
		p.Worktop.Put(b)
		return sbor.Value{}, nil

	case InsAssertWorktopContains:
		if !p.Worktop.AssertContains(ins.ResourceAddress) {
			return sbor.Value{}, fmt.Errorf("txprocessor: worktop assertion failed for %s", ins.ResourceAddress)
		}
		return sbor.Value{}, nil

	case InsAssertWorktopContainsByAmount:
		if !p.Worktop.AssertContainsAmount(ins.ResourceAddress, ins.Amount) {
			return sbor.Value{}, fmt.Errorf("txprocessor: worktop assertion failed for %d of %s", ins.Amount, ins.ResourceAddress)
		}
		return sbor.Value{}, nil

	case InsAssertWorktopContainsByIds:
		if !p.Worktop.AssertContainsIds(ins.ResourceAddress, ins.Ids) {
			return sbor.Value{}, fmt.Errorf("txprocessor: worktop assertion failed for ids %v of %s", ins.Ids, ins.ResourceAddress)
		}
		return sbor.Value{}, nil

	case InsPopFromAuthZone:
		zone := p.Kernel.CurrentFrame().AuthZone
		proof := zone.Pop()
		if proof == nil {
			return sbor.Value{}, fmt.Errorf("txprocessor: auth zone is empty")
		}
		p.proofIdMapping[ins.NewProofId] = proof
		return sbor.Value{}, nil

	case InsPushToAuthZone:
		proof, ok := p.proofIdMapping[ins.ProofId]
		if !ok {
			return sbor.Value{}, fmt.Errorf("txprocessor: unknown proof id %d", ins.ProofId)
		}
		delete(p.proofIdMapping, ins.ProofId)
		p.Kernel.CurrentFrame().AuthZone.Push(proof)
		return sbor.Value{}, nil

	case InsClearAuthZone:
		p.Kernel.CurrentFrame().AuthZone.Clear()
		return sbor.Value{}, nil

	case InsCreateProofFromAuthZone:
		zone := p.Kernel.CurrentFrame().AuthZone
		proof, err := proofFromZone(zone, ins.ResourceAddress)
		if err != nil {
			return sbor.Value{}, err
		}
		p.proofIdMapping[ins.NewProofId] = proof
		return sbor.Value{}, nil

	case InsCreateProofFromAuthZoneByAmount:
		zone := p.Kernel.CurrentFrame().AuthZone
		proof, err := proofFromZoneByAmount(zone, ins.ResourceAddress, ins.Amount)
		if err != nil {
			return sbor.Value{}, err
		}
		p.proofIdMapping[ins.NewProofId] = proof
		return sbor.Value{}, nil

	case InsCreateProofFromAuthZoneByIds:
		zone := p.Kernel.CurrentFrame().AuthZone
		proof, err := proofFromZoneByIds(zone, ins.ResourceAddress, ins.Ids)
		if err != nil {
			return sbor.Value{}, err
		}
		p.proofIdMapping[ins.NewProofId] = proof
		return sbor.Value{}, nil

	case InsCreateProofFromBucket:
		b, ok := p.bucketIdMapping[ins.BucketId]
		if !ok {
			return sbor.Value{}, fmt.Errorf("txprocessor: unknown bucket id %d", ins.BucketId)
		}
		proof, err := resource.ComposeFromBuckets(ins.ResourceAddress, []*resource.Bucket{b}, b.Container.Amount)
		if err != nil {
			return sbor.Value{}, err
		}
		p.proofIdMapping[ins.NewProofId] = proof
		return sbor.Value{}, nil

	case InsCloneProof:
		proof, ok := p.proofIdMapping[ins.ProofId]
		if !ok {
			return sbor.Value{}, fmt.Errorf("txprocessor: unknown proof id %d", ins.ProofId)
		}
		clone, err := proof.Clone()
		if err != nil {
			return sbor.Value{}, err
		}
		p.proofIdMapping[ins.NewProofId] = clone
		return sbor.Value{}, nil

	case InsDropProof:
		proof, ok := p.proofIdMapping[ins.ProofId]
		if !ok {
			return sbor.Value{}, fmt.Errorf("txprocessor: unknown proof id %d", ins.ProofId)
		}
		proof.Drop()
		delete(p.proofIdMapping, ins.ProofId)
		return sbor.Value{}, nil

	case InsDropAllProofs:
		for id, proof := range p.proofIdMapping {
			proof.Drop()
			delete(p.proofIdMapping, id)
		}
		p.Kernel.CurrentFrame().AuthZone.Clear()
		return sbor.Value{}, nil

	case InsCallFunction:
		result, returned, err := p.Kernel.InvokeFunction(ins.Package, ins.Blueprint, ins.Function, kernel.CallArgs{Value: ins.Args}, ins.AuthRule)
		if err != nil {
			return sbor.Value{}, err
		}
		p.autoMove(returned)
		return result, nil

	case InsCallMethod:
		result, returned, err := p.Kernel.InvokeMethod(ins.Receiver, ins.Blueprint, ins.Method, kernel.CallArgs{Value: ins.Args}, ins.AuthRule)
		if err != nil {
			return sbor.Value{}, err
		}
		p.autoMove(returned)
		return result, nil

	case InsCallMethodWithAllResources:
		var moved []addr.RENodeId
		for _, b := range p.Worktop.Drain() {
			id, err := p.Kernel.CreateNode(node.BucketNode{Bucket: b}, nil)
			if err != nil {
				return sbor.Value{}, err
			}
			moved = append(moved, id)
		}
		result, returned, err := p.Kernel.InvokeMethod(ins.Receiver, ins.Blueprint, ins.Method, kernel.CallArgs{Value: ins.Args, MovedNodes: moved}, ins.AuthRule)
		if err != nil {
			return sbor.Value{}, err
		}
		p.autoMove(returned)
		return result, nil

	case InsPublishPackage:
		result, returned, err := p.Kernel.InvokeFunction(addr.Address{Kind: addr.AddressKindPackage}, "Package", "publish",
			kernel.CallArgs{Value: sbor.Value{Kind: sbor.KindCustom, Raw: ins.Code}}, authzone.ProofRule{})
		if err != nil {
			return sbor.Value{}, err
		}
		p.autoMove(returned)
		return result, nil

	default:
		return sbor.Value{}, fmt.Errorf("txprocessor: unknown instruction kind %d", ins.Kind)
	}
}

// proofFromZone clones the first matching proof for a resource address,
// leaving the original in the zone, or virtualizes one if the zone
// holds a virtual credential for it (spec §4.4
// virtualize_non_fungible_proof), with no backing container or
// evidence since nothing is actually held.
func proofFromZone(zone *authzone.AuthZone, resourceAddress string) (*resource.Proof, error) {
	for _, proof := range zone.Proofs {
		if proof.ResourceAddress == resourceAddress {
			clone, err := proof.Clone()
			if err != nil {
				return nil, err
			}
			return clone, nil
		}
	}
	if zone.VirtualProofs[resourceAddress] {
		return &resource.Proof{
			ResourceAddress: resourceAddress,
			Fungible:        true,
			Backing:         map[string]*resource.LockableResource{},
			Evidence:        map[string]resource.LockedAmountOrIds{},
		}, nil
	}
	return nil, fmt.Errorf("txprocessor: no proof available in auth zone for %s", resourceAddress)
}

// proofFromZoneByAmount finds a fungible proof in the zone covering at
// least amount of resourceAddress and composes a bounded sub-proof
// from it (spec's CREATE_PROOF_FROM_AUTH_ZONE_BY_AMOUNT). Virtual
// signer credentials carry no amount, so they never satisfy this.
func proofFromZoneByAmount(zone *authzone.AuthZone, resourceAddress string, amount uint64) (*resource.Proof, error) {
	for _, proof := range zone.Proofs {
		if proof.ResourceAddress != resourceAddress || !proof.Fungible {
			continue
		}
		if composed, err := proof.ComposeByAmount(amount); err == nil {
			return composed, nil
		}
	}
	return nil, fmt.Errorf("txprocessor: no proof in auth zone covers %d of %s", amount, resourceAddress)
}

// proofFromZoneByIds finds a non-fungible proof in the zone covering
// every requested id and composes a bounded sub-proof from it (spec's
// CREATE_PROOF_FROM_AUTH_ZONE_BY_IDS).
func proofFromZoneByIds(zone *authzone.AuthZone, resourceAddress string, ids []string) (*resource.Proof, error) {
	for _, proof := range zone.Proofs {
		if proof.ResourceAddress != resourceAddress || proof.Fungible {
			continue
		}
		if composed, err := proof.ComposeByIds(ids); err == nil {
			return composed, nil
		}
	}
	return nil, fmt.Errorf("txprocessor: no proof in auth zone covers ids %v of %s", ids, resourceAddress)
}

// autoMove deposits every bucket CALL_FUNCTION/CALL_METHOD returned
// onto the worktop and pushes every returned proof onto the current
// frame's auth zone, matching transaction_processor.rs's
// post-invocation handling of result.bucket_ids / result.proof_ids.
// The invoke protocol's step 11 already installed these ids as owned
// roots of the current frame with their real resource content intact
// (BucketNode/ProofNode wrap the same *resource.Bucket/*resource.Proof
// the callee built), so this only needs to take them back off the
// frame and hand them to the worktop/auth zone.
func (p *Processor) autoMove(returned []addr.RENodeId) {
	frame := p.Kernel.CurrentFrame()
	for _, id := range returned {
		hn, ok := frame.TakeOwnedRoot(id)
		if !ok {
			continue
		}
		switch content := hn.Content.(type) {
		case node.BucketNode:
			p.Worktop.Put(content.Bucket)
		case node.ProofNode:
			frame.AuthZone.Push(content.Proof)
		}
	}
}
