// Package wasm defines the interfaces the kernel consumes to invoke
// blueprint code. A real WASM engine is out of scope (spec §1
// Non-goals); this package ships those interfaces plus a deterministic
// in-process stub used by tests and by native-only transactions.
package wasm

import "github.com/radixdlt/radixkernel/internal/sbor"

// Engine instantiates a package's published code into a runnable
// Instance. The kernel calls Instantiate once per invocation into a
// Scrypto (non-native) function or method.
type Engine interface {
	Instantiate(code []byte) (Instance, error)
}

// Instance is one instantiated blueprint ready to receive a single
// exported-function call. The kernel supplies the already-SBOR-encoded
// argument tuple and receives back an SBOR-encoded return value.
type Instance interface {
	// Invoke calls an exported function by name. costUnitsAvailable
	// bounds how many cost units the call may consume before the
	// instance must abort (spec §4.7 cost-metering module); the
	// returned consumed count is always <= costUnitsAvailable.
	Invoke(functionName string, args []byte, costUnitsAvailable uint64) (result []byte, consumed uint64, err error)
}

// StubEngine is a deterministic, side-effect-free Engine used by tests
// and by the CLI's run, replay and serve commands. It does not interpret WASM bytecode;
// it dispatches by the conventional function-table encoding described
// in FunctionTable, matching how the original simulator's mock engine
// drives blueprint tests without a real guest runtime.
type StubEngine struct {
	Functions FunctionTable
}

// FunctionTable maps an exported function name to a Go closure
// standing in for its compiled behavior, keyed by package code hash so
// multiple stubbed packages can share one engine.
type FunctionTable map[string]map[string]func(args sbor.Value) (sbor.Value, uint64, error)

// NewStubEngine creates an engine whose behavior is entirely described
// by fns, keyed first by a stand-in "code hash" (the raw code bytes
// passed to Instantiate, stringified) then by function name.
func NewStubEngine(fns FunctionTable) *StubEngine {
	return &StubEngine{Functions: fns}
}

func (e *StubEngine) Instantiate(code []byte) (Instance, error) {
	table, ok := e.Functions[string(code)]
	if !ok {
		table = map[string]func(args sbor.Value) (sbor.Value, uint64, error){}
	}
	return &stubInstance{table: table}, nil
}

type stubInstance struct {
	table map[string]func(args sbor.Value) (sbor.Value, uint64, error)
}

func (i *stubInstance) Invoke(functionName string, args []byte, costUnitsAvailable uint64) ([]byte, uint64, error) {
	fn, ok := i.table[functionName]
	if !ok {
		return nil, 0, &UnknownFunctionError{Function: functionName}
	}
	argVal, err := sbor.Decode(args)
	if err != nil {
		return nil, 0, err
	}
	out, consumed, err := fn(argVal)
	if err != nil {
		if consumed > costUnitsAvailable {
			consumed = costUnitsAvailable
		}
		return nil, consumed, err
	}
	if consumed > costUnitsAvailable {
		return nil, costUnitsAvailable, &OutOfCostUnitsError{Needed: consumed, Available: costUnitsAvailable}
	}
	encoded, err := sbor.Encode(out)
	if err != nil {
		return nil, consumed, err
	}
	return encoded, consumed, nil
}

// UnknownFunctionError is returned when a stub instance is invoked
// with a function name absent from its table.
type UnknownFunctionError struct {
	Function string
}

func (e *UnknownFunctionError) Error() string {
	return "wasm: unknown function " + e.Function
}

// OutOfCostUnitsError is returned when a stubbed invocation would
// exceed the cost units the caller made available.
type OutOfCostUnitsError struct {
	Needed    uint64
	Available uint64
}

func (e *OutOfCostUnitsError) Error() string {
	return "wasm: out of cost units"
}
