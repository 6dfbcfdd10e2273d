// Package sbor implements the self-describing binary object
// representation used for every kernel-observable value: call
// arguments and returns, substate contents, and key-value store
// entries.
package sbor

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Kind is the wire tag written ahead of every encoded value, unless
// the encoder is running in no-schema mode.
type Kind byte

const (
	KindUnit Kind = iota
	KindBool
	KindI8
	KindI16
	KindI32
	KindI64
	KindI128
	KindU8
	KindU16
	KindU32
	KindU64
	KindU128
	KindString
	KindOption
	KindArray
	KindVec
	KindTuple
	KindStruct
	KindEnum
	KindCustom
)

// maxCollectionLen bounds String/Array/Vec/Tuple/Struct element counts;
// the wire length prefix is 16 bits so this is also its natural ceiling.
const maxCollectionLen = 1<<16 - 1

// Value is the in-memory tree produced by Decode and consumed by Encode.
// Exactly one of the typed fields is meaningful, selected by Kind.
type Value struct {
	Kind Kind

	Bool bool
	Int  int64  // I8..I64
	Uint uint64 // U8..U64
	Big  []byte // big-endian magnitude for I128/U128, sign in Int128Neg
	Str  string

	// Option: Elems has 0 (None) or 1 (Some) entries.
	// Array/Vec/Tuple: Elems holds the sequence. Array additionally
	// carries the declared ElemKind (all elements share it).
	// Struct: Elems holds field values, FieldNames their names.
	// Enum: Elems holds the variant's fields, Str holds the variant name,
	// Variant holds its discriminant.
	Elems      []Value
	ElemKind   Kind
	FieldNames []string
	Variant    uint8

	// Custom: TypeID names the external type, Raw is its encoding.
	TypeID uint8
	Raw    []byte

	Int128Neg bool
}

// Encoder writes values using the Kind tag table above. When
// NoSchema is set, no Kind byte is written for any value; the caller
// must already know the shape out of band.
type Encoder struct {
	buf      []byte
	NoSchema bool
}

func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, 0, 256)}
}

func (e *Encoder) Bytes() []byte { return e.buf }

func (e *Encoder) writeKind(k Kind) {
	if !e.NoSchema {
		e.buf = append(e.buf, byte(k))
	}
}

func (e *Encoder) writeLen(n int) error {
	if n > maxCollectionLen {
		return fmt.Errorf("sbor: collection length %d exceeds wire maximum", n)
	}
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(n))
	e.buf = append(e.buf, b[:]...)
	return nil
}

// Encode appends v's canonical encoding to the encoder's buffer.
func (e *Encoder) Encode(v Value) error {
	e.writeKind(v.Kind)
	switch v.Kind {
	case KindUnit:
		return nil
	case KindBool:
		if v.Bool {
			e.buf = append(e.buf, 1)
		} else {
			e.buf = append(e.buf, 0)
		}
		return nil
	case KindI8:
		e.buf = append(e.buf, byte(int8(v.Int)))
		return nil
	case KindI16:
		return e.putInt(uint64(int16(v.Int)), 2)
	case KindI32:
		return e.putInt(uint64(int32(v.Int)), 4)
	case KindI64:
		return e.putInt(uint64(v.Int), 8)
	case KindU8:
		e.buf = append(e.buf, byte(v.Uint))
		return nil
	case KindU16:
		return e.putInt(v.Uint, 2)
	case KindU32:
		return e.putInt(v.Uint, 4)
	case KindU64:
		return e.putInt(v.Uint, 8)
	case KindI128, KindU128:
		if len(v.Big) != 16 {
			return fmt.Errorf("sbor: %v value must carry a 16-byte magnitude", v.Kind)
		}
		if v.Kind == KindI128 {
			if v.Int128Neg {
				e.buf = append(e.buf, 1)
			} else {
				e.buf = append(e.buf, 0)
			}
		}
		e.buf = append(e.buf, v.Big...)
		return nil
	case KindString:
		b := []byte(v.Str)
		if err := e.writeLen(len(b)); err != nil {
			return err
		}
		e.buf = append(e.buf, b...)
		return nil
	case KindOption:
		if len(v.Elems) == 0 {
			e.buf = append(e.buf, 0)
			return nil
		}
		e.buf = append(e.buf, 1)
		return e.Encode(v.Elems[0])
	case KindArray:
		e.buf = append(e.buf, byte(v.ElemKind))
		if err := e.writeLen(len(v.Elems)); err != nil {
			return err
		}
		for _, el := range v.Elems {
			savedSchema := e.NoSchema
			e.NoSchema = true // array elements share ElemKind, no per-element tag
			if err := e.Encode(el); err != nil {
				e.NoSchema = savedSchema
				return err
			}
			e.NoSchema = savedSchema
		}
		return nil
	case KindVec, KindTuple:
		if err := e.writeLen(len(v.Elems)); err != nil {
			return err
		}
		for _, el := range v.Elems {
			if err := e.Encode(el); err != nil {
				return err
			}
		}
		return nil
	case KindStruct:
		if err := e.writeLen(len(v.Elems)); err != nil {
			return err
		}
		for i, el := range v.Elems {
			name := ""
			if i < len(v.FieldNames) {
				name = v.FieldNames[i]
			}
			if err := e.writeLen(len(name)); err != nil {
				return err
			}
			e.buf = append(e.buf, name...)
			if err := e.Encode(el); err != nil {
				return err
			}
		}
		return nil
	case KindEnum:
		e.buf = append(e.buf, v.Variant)
		if err := e.writeLen(len(v.Str)); err != nil {
			return err
		}
		e.buf = append(e.buf, v.Str...)
		if err := e.writeLen(len(v.Elems)); err != nil {
			return err
		}
		for _, el := range v.Elems {
			if err := e.Encode(el); err != nil {
				return err
			}
		}
		return nil
	case KindCustom:
		e.buf = append(e.buf, v.TypeID)
		if err := e.writeLen(len(v.Raw)); err != nil {
			return err
		}
		e.buf = append(e.buf, v.Raw...)
		return nil
	default:
		return fmt.Errorf("sbor: unknown kind %d", v.Kind)
	}
}

func (e *Encoder) putInt(u uint64, width int) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], u)
	e.buf = append(e.buf, b[:width]...)
	return nil
}

// ErrTruncated is returned when the buffer ends mid-value.
var ErrTruncated = errors.New("sbor: truncated input")

// ErrUnknownKind is returned for a tag byte outside the Kind table.
var ErrUnknownKind = errors.New("sbor: unknown kind tag")

// Decoder reads values previously produced by Encoder.
type Decoder struct {
	buf      []byte
	pos      int
	NoSchema bool
}

func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

func (d *Decoder) remaining() int { return len(d.buf) - d.pos }

func (d *Decoder) readByte() (byte, error) {
	if d.remaining() < 1 {
		return 0, ErrTruncated
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

func (d *Decoder) readBytes(n int) ([]byte, error) {
	if n < 0 || d.remaining() < n {
		return nil, ErrTruncated
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *Decoder) readLen() (int, error) {
	b, err := d.readBytes(2)
	if err != nil {
		return 0, err
	}
	n := int(binary.LittleEndian.Uint16(b))
	if n > d.remaining() {
		return 0, fmt.Errorf("sbor: declared length %d exceeds remaining input: %w", n, ErrTruncated)
	}
	return n, nil
}

// Decode reads one value. If kind is KindUnit..KindCustom and NoSchema
// is set, the caller-supplied expectedKind is used instead of reading
// a tag byte.
func (d *Decoder) Decode(expectedKind Kind) (Value, error) {
	kind := expectedKind
	if !d.NoSchema {
		b, err := d.readByte()
		if err != nil {
			return Value{}, err
		}
		kind = Kind(b)
		if kind > KindCustom {
			return Value{}, ErrUnknownKind
		}
	}
	switch kind {
	case KindUnit:
		return Value{Kind: KindUnit}, nil
	case KindBool:
		b, err := d.readByte()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindBool, Bool: b != 0}, nil
	case KindI8:
		b, err := d.readByte()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindI8, Int: int64(int8(b))}, nil
	case KindI16:
		u, err := d.getUint(2)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindI16, Int: int64(int16(u))}, nil
	case KindI32:
		u, err := d.getUint(4)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindI32, Int: int64(int32(u))}, nil
	case KindI64:
		u, err := d.getUint(8)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindI64, Int: int64(u)}, nil
	case KindU8:
		b, err := d.readByte()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindU8, Uint: uint64(b)}, nil
	case KindU16:
		u, err := d.getUint(2)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindU16, Uint: u}, nil
	case KindU32:
		u, err := d.getUint(4)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindU32, Uint: u}, nil
	case KindU64:
		u, err := d.getUint(8)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindU64, Uint: u}, nil
	case KindI128, KindU128:
		neg := false
		if kind == KindI128 {
			b, err := d.readByte()
			if err != nil {
				return Value{}, err
			}
			neg = b != 0
		}
		mag, err := d.readBytes(16)
		if err != nil {
			return Value{}, err
		}
		cp := append([]byte(nil), mag...)
		return Value{Kind: kind, Big: cp, Int128Neg: neg}, nil
	case KindString:
		n, err := d.readLen()
		if err != nil {
			return Value{}, err
		}
		b, err := d.readBytes(n)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindString, Str: string(b)}, nil
	case KindOption:
		tag, err := d.readByte()
		if err != nil {
			return Value{}, err
		}
		if tag == 0 {
			return Value{Kind: KindOption}, nil
		}
		inner, err := d.Decode(KindUnit)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindOption, Elems: []Value{inner}}, nil
	case KindArray:
		elemKindByte, err := d.readByte()
		if err != nil {
			return Value{}, err
		}
		elemKind := Kind(elemKindByte)
		n, err := d.readLen()
		if err != nil {
			return Value{}, err
		}
		elems := make([]Value, 0, n)
		savedSchema := d.NoSchema
		d.NoSchema = true
		for i := 0; i < n; i++ {
			el, err := d.Decode(elemKind)
			if err != nil {
				d.NoSchema = savedSchema
				return Value{}, err
			}
			elems = append(elems, el)
		}
		d.NoSchema = savedSchema
		return Value{Kind: KindArray, ElemKind: elemKind, Elems: elems}, nil
	case KindVec, KindTuple:
		n, err := d.readLen()
		if err != nil {
			return Value{}, err
		}
		elems := make([]Value, 0, n)
		for i := 0; i < n; i++ {
			el, err := d.Decode(KindUnit)
			if err != nil {
				return Value{}, err
			}
			elems = append(elems, el)
		}
		return Value{Kind: kind, Elems: elems}, nil
	case KindStruct:
		n, err := d.readLen()
		if err != nil {
			return Value{}, err
		}
		elems := make([]Value, 0, n)
		names := make([]string, 0, n)
		for i := 0; i < n; i++ {
			nameLen, err := d.readLen()
			if err != nil {
				return Value{}, err
			}
			nameBytes, err := d.readBytes(nameLen)
			if err != nil {
				return Value{}, err
			}
			el, err := d.Decode(KindUnit)
			if err != nil {
				return Value{}, err
			}
			names = append(names, string(nameBytes))
			elems = append(elems, el)
		}
		return Value{Kind: KindStruct, Elems: elems, FieldNames: names}, nil
	case KindEnum:
		variant, err := d.readByte()
		if err != nil {
			return Value{}, err
		}
		nameLen, err := d.readLen()
		if err != nil {
			return Value{}, err
		}
		nameBytes, err := d.readBytes(nameLen)
		if err != nil {
			return Value{}, err
		}
		n, err := d.readLen()
		if err != nil {
			return Value{}, err
		}
		elems := make([]Value, 0, n)
		for i := 0; i < n; i++ {
			el, err := d.Decode(KindUnit)
			if err != nil {
				return Value{}, err
			}
			elems = append(elems, el)
		}
		return Value{Kind: KindEnum, Variant: variant, Str: string(nameBytes), Elems: elems}, nil
	case KindCustom:
		typeID, err := d.readByte()
		if err != nil {
			return Value{}, err
		}
		n, err := d.readLen()
		if err != nil {
			return Value{}, err
		}
		raw, err := d.readBytes(n)
		if err != nil {
			return Value{}, err
		}
		cp := append([]byte(nil), raw...)
		return Value{Kind: KindCustom, TypeID: typeID, Raw: cp}, nil
	default:
		return Value{}, ErrUnknownKind
	}
}

func (d *Decoder) getUint(width int) (uint64, error) {
	b, err := d.readBytes(width)
	if err != nil {
		return 0, err
	}
	var full [8]byte
	copy(full[:width], b)
	return binary.LittleEndian.Uint64(full[:]), nil
}

// Encode is a convenience wrapper producing the canonical encoding of v.
func Encode(v Value) ([]byte, error) {
	e := NewEncoder()
	if err := e.Encode(v); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// Decode is a convenience wrapper that decodes exactly one schema-tagged
// value and reports any trailing bytes as an error.
func Decode(buf []byte) (Value, error) {
	d := NewDecoder(buf)
	v, err := d.Decode(KindUnit)
	if err != nil {
		return Value{}, err
	}
	if d.remaining() != 0 {
		return Value{}, fmt.Errorf("sbor: %d trailing bytes after value", d.remaining())
	}
	return v, nil
}
