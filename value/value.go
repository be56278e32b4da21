// Package value defines the runtime value representation shared by the
// code generator and the virtual machine: a single untagged 4-byte union
// that can hold an Int32, a Float32, or a Bool, plus the static type
// lattice the compiler tracks instead of a runtime type tag.
package value

import (
	"fmt"
	"math"
)

// Ty is the compiler's static type. The VM never inspects it — every
// Value is a bare 4 bytes at runtime, and which view an instruction reads
// is baked into the opcode itself (AddInt vs AddFloat, and so on).
type Ty uint8

const (
	Int32 Ty = iota + 1
	Float32
	Bool
)

func (t Ty) String() string {
	switch t {
	case Int32:
		return "int"
	case Float32:
		return "float"
	case Bool:
		return "bool"
	default:
		return fmt.Sprintf("ty(%d)", uint8(t))
	}
}

// Size is always 4: every Value, regardless of Ty, occupies exactly one
// 4-byte slot in a frame and one 4-byte field in an I/O context.
func (t Ty) Size() int { return 4 }

// Value is the untagged runtime union. Equality and hashing always compare
// the raw bit pattern (Repr), never the typed view — this is deliberate:
// it is what lets Eq/Ne work identically across Int32, Float32, and Bool
// without three opcode variants each, and it is why +0.0 and -0.0 hash and
// compare as distinct values (their bit patterns differ).
type Value struct {
	Repr uint32
}

// FromInt32 builds a Value holding an Int32 bit pattern.
func FromInt32(i int32) Value { return Value{Repr: uint32(i)} }

// FromFloat32 builds a Value holding a Float32 bit pattern.
func FromFloat32(f float32) Value { return Value{Repr: math.Float32bits(f)} }

// FromBool builds a Value holding a Bool bit pattern: 1 for true, 0 for
// false. Unlike the Rust original's union (which leaves the unused upper
// bytes of the 4-byte union uninitialized when only the bool field is
// written), the Go representation always zeroes the unused bits so two
// Values built from the same bool compare and hash identically.
func FromBool(b bool) Value {
	if b {
		return Value{Repr: 1}
	}
	return Value{Repr: 0}
}

// Int32 reinterprets the bit pattern as an Int32. Caller must know the
// static type via the surrounding Ty — the VM never checks this.
func (v Value) Int32() int32 { return int32(v.Repr) }

// Float32 reinterprets the bit pattern as a Float32.
func (v Value) Float32() float32 { return math.Float32frombits(v.Repr) }

// Bool reinterprets the bit pattern as a Bool: any nonzero Repr is true.
func (v Value) Bool() bool { return v.Repr != 0 }

func (v Value) String() string { return fmt.Sprintf("%X", v.Repr) }

// Zero is the zero Value for the given type, used to pre-fill newly
// allocated frame slots.
func Zero(t Ty) Value {
	switch t {
	case Float32:
		return FromFloat32(0)
	case Bool:
		return FromBool(false)
	default:
		return FromInt32(0)
	}
}
