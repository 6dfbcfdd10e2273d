package wasm

import (
	"testing"

	"github.com/radixdlt/radixkernel/internal/sbor"
)

func TestStubEngineInvokeRoundTrip(t *testing.T) {
	code := []byte("package-code")
	fns := FunctionTable{
		string(code): {
			"echo": func(args sbor.Value) (sbor.Value, uint64, error) {
				return args, 5, nil
			},
		},
	}
	engine := NewStubEngine(fns)

	instance, err := engine.Instantiate(code)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}

	in := sbor.Value{Kind: sbor.KindString, Str: "hello"}
	encoded, err := sbor.Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	out, consumed, err := instance.Invoke("echo", encoded, 100)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if consumed != 5 {
		t.Fatalf("consumed = %d, want 5", consumed)
	}
	decoded, err := sbor.Decode(out)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Str != "hello" {
		t.Fatalf("decoded.Str = %q, want %q", decoded.Str, "hello")
	}
}

func TestStubEngineUnknownFunction(t *testing.T) {
	engine := NewStubEngine(nil)
	instance, err := engine.Instantiate([]byte("code"))
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}

	_, _, err = instance.Invoke("missing", nil, 100)
	if _, ok := err.(*UnknownFunctionError); !ok {
		t.Fatalf("expected *UnknownFunctionError, got %v (%T)", err, err)
	}
}

func TestStubEngineOutOfCostUnits(t *testing.T) {
	code := []byte("code")
	fns := FunctionTable{
		string(code): {
			"expensive": func(args sbor.Value) (sbor.Value, uint64, error) {
				return sbor.Value{Kind: sbor.KindUnit}, 50, nil
			},
		},
	}
	engine := NewStubEngine(fns)
	instance, err := engine.Instantiate(code)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}

	_, _, err = instance.Invoke("expensive", mustEncodeUnit(t), 10)
	if _, ok := err.(*OutOfCostUnitsError); !ok {
		t.Fatalf("expected *OutOfCostUnitsError, got %v (%T)", err, err)
	}
}

func mustEncodeUnit(t *testing.T) []byte {
	t.Helper()
	encoded, err := sbor.Encode(sbor.Value{Kind: sbor.KindUnit})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return encoded
}
