package kernel

import (
	"github.com/radixdlt/radixkernel/internal/addr"
	"github.com/radixdlt/radixkernel/internal/authzone"
	"github.com/radixdlt/radixkernel/internal/node"
	"github.com/radixdlt/radixkernel/internal/sbor"
)

// CallArgs is one invocation's argument tuple plus the owned nodes
// (buckets, proofs) being moved into the callee along with it.
type CallArgs struct {
	Value      sbor.Value
	MovedNodes []addr.RENodeId
}

// InvokeFunction runs a package/blueprint function as a new call
// frame, following the full 11-step protocol.
func (k *Kernel) InvokeFunction(pkg addr.Address, blueprint, function string, args CallArgs, authRule authzone.ProofRule) (sbor.Value, []addr.RENodeId, error) {
	actor := Actor{Kind: ActorFunction, Package: pkg, Blueprint: blueprint, Function: function}
	return k.invoke(actor, args, authRule)
}

// InvokeMethod runs a component method as a new call frame, following
// the full 11-step protocol. receiverGlobal is the Global address the
// caller used to reach the receiver; since the receiver is always
// reached through it, the resulting frame is always a barrier (spec §4.4).
func (k *Kernel) InvokeMethod(receiverGlobal addr.Address, blueprint, method string, args CallArgs, authRule authzone.ProofRule) (sbor.Value, []addr.RENodeId, error) {
	concreteId, ok := k.ResolveGlobal(receiverGlobal)
	if !ok {
		return sbor.Value{}, nil, &NodeNotVisibleError{Node: receiverGlobal.String()}
	}
	actor := Actor{
		Kind:                       ActorMethod,
		Blueprint:                  blueprint,
		Method:                     method,
		Receiver:                   node.StorePointer(concreteId),
		DerefedFromGlobalComponent: true,
	}
	return k.invoke(actor, args, authRule)
}

// invoke implements the 11-step call protocol shared by function and
// method actors (spec §4.1).
func (k *Kernel) invoke(actor Actor, args CallArgs, authRule authzone.ProofRule) (sbor.Value, []addr.RENodeId, error) {
	caller := k.CurrentFrame()

	// Step 1: depth check.
	if len(k.Frames) >= k.MaxDepth {
		return sbor.Value{}, nil, &MaxCallDepthExceededError{MaxDepth: k.MaxDepth}
	}

	// Step 2: input sanitization. KeyValueStore and Vault node ids may
	// never appear directly in call data; only Buckets/Proofs may move.
	for _, id := range args.MovedNodes {
		if id.Kind == addr.RENodeKindKeyValueStore || id.Kind == addr.RENodeKindVault {
			return sbor.Value{}, nil, &InvalidCallDataError{Reason: "KeyValueStore/Vault ids cannot cross a call boundary"}
		}
	}

	// Step 3: visibility check. Every moved node must be owned by the
	// caller right now.
	movedHeapNodes := make(map[addr.RENodeId]*node.HeapNode, len(args.MovedNodes))
	for _, id := range args.MovedNodes {
		hn, ok := caller.OwnedRoots[id]
		if !ok {
			return sbor.Value{}, nil, &NodeNotVisibleError{Node: id.String()}
		}
		movedHeapNodes[id] = hn
	}

	// Step 4: receiver resolution/locking is done by InvokeMethod before
	// calling invoke; for a Method actor the receiver's RENodeId is
	// already concrete. No additional substate lock beyond the frame
	// bookkeeping is modeled here since this kernel keeps globalized
	// nodes in an in-memory registry rather than behind track locks
	// (see Kernel.Globals doc comment).

	// Step 5: authorization. A zero-value ProofRule (no resource named,
	// no sub-rules) means the call carries no auth requirement.
	if authRule.Resource.ResourceAddress != "" || len(authRule.Rules) > 0 {
		if !k.AuthZones.CheckAuth(authRule, actor.IsBarrier()) {
			return sbor.Value{}, nil, &AuthorizationError{Rule: actor.Method + actor.Function}
		}
	}

	for _, m := range k.Modules {
		if err := m.PreInvoke(k, actor); err != nil {
			return sbor.Value{}, nil, err
		}
	}

	// Step 6: push frame (and its auth zone).
	depth := len(k.Frames)
	frame := newCallFrame(depth, actor)
	for id, hn := range movedHeapNodes {
		delete(caller.OwnedRoots, id)
		if pn, ok := hn.Content.(node.ProofNode); ok {
			pn.Proof.Restrict()
		}
		frame.OwnedRoots[id] = hn
	}
	frame.AuthZone = k.AuthZones.PushFrame(actor.IsBarrier())
	k.Frames = append(k.Frames, frame)

	costBefore := k.CostUnitsConsumed

	// Step 7: execute (native dispatch or WASM).
	result, returned, err := k.dispatch(actor, args.Value)
	if err != nil {
		k.unwindFailedFrame()
		return sbor.Value{}, nil, err
	}

	// Step 8: output validation. Same call-data rule applies to returns;
	// every returned node the child owns is taken out of its frame here.
	returnedNodes := make(map[addr.RENodeId]*node.HeapNode, len(returned))
	for _, id := range returned {
		if id.Kind == addr.RENodeKindKeyValueStore || id.Kind == addr.RENodeKindVault {
			k.unwindFailedFrame()
			return sbor.Value{}, nil, &OutputValidationError{Reason: "KeyValueStore/Vault ids cannot be returned"}
		}
		if hn, ok := frame.TakeOwnedRoot(id); ok {
			returnedNodes[id] = hn
		}
	}

	// Step 9: clean-child-frame check.
	if dirty, clean := frame.IsClean(); !clean {
		k.unwindFailedFrame()
		return sbor.Value{}, nil, &DirtyFrameError{Node: dirty.String()}
	}

	// Step 10: pop frame, release locks.
	k.AuthZones.PopFrame()
	k.Frames = k.Frames[:len(k.Frames)-1]

	// Step 11: install returned values into the caller's frame.
	for id, hn := range returnedNodes {
		caller.OwnedRoots[id] = hn
	}

	consumed := k.CostUnitsConsumed - costBefore
	for _, m := range k.Modules {
		if err := m.PostInvoke(k, actor, consumed); err != nil {
			return sbor.Value{}, nil, err
		}
	}

	return result, returned, nil
}

// unwindFailedFrame pops a frame that failed mid-invocation, dropping
// its auth zone and discarding any nodes it still owned. A failed
// invocation aborts the whole transaction in this kernel (no partial
// commit), so leaked owned nodes are simply discarded along with the
// frame rather than returned to the caller.
func (k *Kernel) unwindFailedFrame() {
	k.AuthZones.PopFrame()
	k.Frames = k.Frames[:len(k.Frames)-1]
}

// dispatch runs the callee's code: a registered native handler if one
// exists for the actor, otherwise a WASM invocation against the
// actor's package code.
func (k *Kernel) dispatch(actor Actor, args sbor.Value) (sbor.Value, []addr.RENodeId, error) {
	switch actor.Kind {
	case ActorFunction:
		key := NativeFunctionKey{Package: actor.Package, Blueprint: actor.Blueprint, Function: actor.Function}
		if fn, ok := k.NativeFunctions[key]; ok {
			return fn(k, args)
		}
		return k.dispatchWasmFunction(actor, args)
	case ActorMethod:
		key := NativeMethodKey{Blueprint: actor.Blueprint, Method: actor.Method}
		if fn, ok := k.NativeMethods[key]; ok {
			return fn(k, actor.Receiver.Target(), args)
		}
		return k.dispatchWasmMethod(actor, args)
	default:
		return sbor.Value{}, nil, &InvalidCallDataError{Reason: "unknown actor kind"}
	}
}

func (k *Kernel) dispatchWasmFunction(actor Actor, args sbor.Value) (sbor.Value, []addr.RENodeId, error) {
	pkgNode, ok := k.Packages[actor.Package]
	if !ok {
		return sbor.Value{}, nil, &InvalidCallDataError{Reason: "unknown package " + actor.Package.String()}
	}
	return k.runWasm(pkgNode, actor.Function, args)
}

func (k *Kernel) dispatchWasmMethod(actor Actor, args sbor.Value) (sbor.Value, []addr.RENodeId, error) {
	ga, ok := k.GlobalAddressOf(actor.Receiver.Target())
	if !ok {
		return sbor.Value{}, nil, &InvalidCallDataError{Reason: "unknown component receiver"}
	}
	hn, ok := k.Globals[ga]
	if !ok {
		return sbor.Value{}, nil, &InvalidCallDataError{Reason: "unknown component receiver"}
	}
	comp, ok := hn.Content.(node.ComponentNode)
	if !ok {
		return sbor.Value{}, nil, &InvalidCallDataError{Reason: "receiver is not a component"}
	}
	pkgNode, ok := k.Packages[comp.Package]
	if !ok {
		return sbor.Value{}, nil, &InvalidCallDataError{Reason: "unknown package " + comp.Package.String()}
	}
	return k.runWasm(pkgNode, actor.Method, args)
}

func (k *Kernel) runWasm(pkgNode *node.PackageNode, functionName string, args sbor.Value) (sbor.Value, []addr.RENodeId, error) {
	instance, err := k.WasmEngine.Instantiate(pkgNode.Code)
	if err != nil {
		return sbor.Value{}, nil, err
	}
	encodedArgs, err := sbor.Encode(args)
	if err != nil {
		return sbor.Value{}, nil, err
	}
	available := k.CostUnitLimit - k.CostUnitsConsumed
	out, consumed, err := instance.Invoke(functionName, encodedArgs, available)
	if cErr := k.ConsumeCostUnits(consumed); cErr != nil {
		return sbor.Value{}, nil, cErr
	}
	if err != nil {
		return sbor.Value{}, nil, err
	}
	result, err := sbor.Decode(out)
	if err != nil {
		return sbor.Value{}, nil, err
	}
	return result, nil, nil
}
