// Package authzone implements the kernel's authorization model: one
// AuthZone per call frame, a barrier-aware walk back up the call-frame
// stack when evaluating a proof rule, and the hard proof-rule language
// (Require/AmountOf/AllOf/AnyOf/CountOf) evaluated against the proofs
// visible at each step (spec §4.4).
package authzone

import "github.com/radixdlt/radixkernel/internal/resource"

// ResourceMatcher describes a resource-level requirement: either a
// specific non-fungible id or a minimum amount. zoneHasAny and
// zoneHasAmount below check it against the proofs in each zone.
type ResourceMatcher struct {
	ResourceAddress string
	NonFungibleId   string // set for an id-based requirement
	MinAmount       uint64 // set for an amount-based requirement
	ById            bool
}

// RuleKind discriminates ProofRule's variants.
type RuleKind byte

const (
	RuleRequire RuleKind = iota
	RuleAmountOf
	RuleAllOf
	RuleAnyOf
	RuleCountOf
)

// ProofRule is the hard-authorization expression tree evaluated
// against an AuthZone stack. Only the field(s) matching Kind are
// meaningful.
type ProofRule struct {
	Kind RuleKind

	Resource ResourceMatcher // Require, AmountOf
	Rules    []ProofRule     // AllOf, AnyOf, CountOf
	Count    int             // CountOf: how many of Rules must hold
}

// Require builds a rule satisfied by presenting any proof of the given
// resource (amount and ids unconstrained).
func Require(resourceAddress string) ProofRule {
	return ProofRule{Kind: RuleRequire, Resource: ResourceMatcher{ResourceAddress: resourceAddress}}
}

// AmountOf builds a rule satisfied by proofs summing to at least amount.
func AmountOf(resourceAddress string, amount uint64) ProofRule {
	return ProofRule{Kind: RuleAmountOf, Resource: ResourceMatcher{ResourceAddress: resourceAddress, MinAmount: amount}}
}

// AllOf builds a rule satisfied only when every sub-rule holds.
func AllOf(rules ...ProofRule) ProofRule {
	return ProofRule{Kind: RuleAllOf, Rules: rules}
}

// AnyOf builds a rule satisfied when at least one sub-rule holds.
func AnyOf(rules ...ProofRule) ProofRule {
	return ProofRule{Kind: RuleAnyOf, Rules: rules}
}

// CountOf builds a rule satisfied when at least count sub-rules hold.
func CountOf(count int, rules ...ProofRule) ProofRule {
	return ProofRule{Kind: RuleCountOf, Count: count, Rules: rules}
}

// AuthZone holds the proofs a call frame has explicitly pushed (from
// CreateProofFromBucket/CreateProofFromAuthZone instructions) plus
// virtual proofs synthesized on demand for signer credentials.
// Barrier marks a frame created by dereferencing a Global(Component)
// receiver, which stops the authorization walk from seeing frames
// further up the stack (spec §4.4).
type AuthZone struct {
	Proofs        []*resource.Proof
	VirtualProofs map[string]bool // resource address -> virtualizable
	Barrier       bool
}

// New creates an empty, non-barrier auth zone.
func New() *AuthZone {
	return &AuthZone{VirtualProofs: map[string]bool{}}
}

// NewWithVirtualProofs creates an auth zone pre-seeded with the
// resource addresses a transaction's signers virtually hold proof of
// (their NonFungibleAddress credentials), without actually locking any
// backing container — spec §4.4: "virtual proofs from signer
// credentials".
func NewWithVirtualProofs(resourceAddresses []string) *AuthZone {
	z := New()
	for _, addr := range resourceAddresses {
		z.VirtualProofs[addr] = true
	}
	return z
}

// Push adds a proof to the zone (PushToAuthZone).
func (z *AuthZone) Push(p *resource.Proof) {
	z.Proofs = append(z.Proofs, p)
}

// Pop removes and returns the most recently pushed proof.
func (z *AuthZone) Pop() *resource.Proof {
	if len(z.Proofs) == 0 {
		return nil
	}
	p := z.Proofs[len(z.Proofs)-1]
	z.Proofs = z.Proofs[:len(z.Proofs)-1]
	return p
}

// Clear drops and removes every proof in the zone.
func (z *AuthZone) Clear() {
	for _, p := range z.Proofs {
		p.Drop()
	}
	z.Proofs = nil
}

// Stack is the call-frame-indexed sequence of auth zones, innermost
// (current) frame last, mirroring AuthZoneSubstate.auth_zones.
type Stack struct {
	zones []*AuthZone
}

// NewStack creates an empty stack.
func NewStack() *Stack { return &Stack{} }

// PushFrame creates a new auth zone for a freshly pushed call frame.
// isBarrier should be true exactly when the frame's receiver was
// dereferenced from a Global(Component) address (spec §4.4).
func (s *Stack) PushFrame(isBarrier bool) *AuthZone {
	z := New()
	z.Barrier = isBarrier
	s.zones = append(s.zones, z)
	return z
}

// PopFrame clears and removes the current (innermost) auth zone.
func (s *Stack) PopFrame() {
	if len(s.zones) == 0 {
		return
	}
	s.zones[len(s.zones)-1].Clear()
	s.zones = s.zones[:len(s.zones)-1]
}

// Current returns the innermost auth zone.
func (s *Stack) Current() *AuthZone {
	if len(s.zones) == 0 {
		return nil
	}
	return s.zones[len(s.zones)-1]
}

// visibleZones returns the auth zones visible to an authorization
// check, walking from the innermost frame outward and stopping after
// the configured barrier budget is exhausted. barriersAllowed is 1 for
// an ordinary call and 0 when the call target is itself a barrier
// frame (spec §4.4 check_auth), matching the original engine's
// check_auth_zones budget rule.
func (s *Stack) visibleZones(barriersAllowed int) []*AuthZone {
	var visible []*AuthZone
	for i := len(s.zones) - 1; i >= 0; i-- {
		z := s.zones[i]
		visible = append(visible, z)
		if z.Barrier {
			if barriersAllowed <= 0 {
				break
			}
			barriersAllowed--
		}
	}
	return visible
}

// CheckAuth evaluates rule against the auth zones visible from the
// current frame. targetIsBarrier controls the barrier budget exactly
// as check_auth does in the original engine: a call into a barrier
// frame itself gets zero extra barrier crossings.
func (s *Stack) CheckAuth(rule ProofRule, targetIsBarrier bool) bool {
	barriersAllowed := 1
	if targetIsBarrier {
		barriersAllowed = 0
	}
	zones := s.visibleZones(barriersAllowed)
	return evalRule(rule, zones)
}

func evalRule(rule ProofRule, zones []*AuthZone) bool {
	switch rule.Kind {
	case RuleRequire:
		return zoneHasAny(zones, rule.Resource)
	case RuleAmountOf:
		return zoneHasAmount(zones, rule.Resource)
	case RuleAllOf:
		for _, sub := range rule.Rules {
			if !evalRule(sub, zones) {
				return false
			}
		}
		return true
	case RuleAnyOf:
		for _, sub := range rule.Rules {
			if evalRule(sub, zones) {
				return true
			}
		}
		return false
	case RuleCountOf:
		left := rule.Count
		for _, sub := range rule.Rules {
			if left <= 0 {
				return true
			}
			if evalRule(sub, zones) {
				left--
			}
		}
		return left <= 0
	default:
		return false
	}
}

func zoneHasAny(zones []*AuthZone, m ResourceMatcher) bool {
	for _, z := range zones {
		if z.VirtualProofs[m.ResourceAddress] {
			return true
		}
		for _, p := range z.Proofs {
			if p.ResourceAddress != m.ResourceAddress {
				continue
			}
			if m.ById {
				for _, id := range p.TotalIds {
					if id == m.NonFungibleId {
						return true
					}
				}
				continue
			}
			return true
		}
	}
	return false
}

func zoneHasAmount(zones []*AuthZone, m ResourceMatcher) bool {
	var total uint64
	for _, z := range zones {
		if z.VirtualProofs[m.ResourceAddress] {
			return true
		}
		for _, p := range z.Proofs {
			if p.ResourceAddress == m.ResourceAddress && p.Fungible {
				total += p.TotalAmount
				if total >= m.MinAmount {
					return true
				}
			}
		}
	}
	return total >= m.MinAmount
}
