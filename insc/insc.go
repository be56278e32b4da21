// Package insc defines the three-address instruction set the code
// generator emits and the VM executes, plus the compiled program
// container (Function metadata + flat instruction stream + FFI table).
package insc

import (
	"fmt"
	"strings"

	"github.com/usein-abilev/embervm/value"
)

// Opcode identifies one of the ~35 three-address operations. Every
// operand is a slot index into the current call frame unless noted
// otherwise.
type Opcode uint8

const (
	Const Opcode = iota + 1
	Dup

	AddInt
	AddFloat
	SubInt
	SubFloat
	MulInt
	MulFloat
	DivInt
	DivFloat
	ModInt

	NegateInt
	NegateFloat

	Eq
	Ne

	LtInt
	LtFloat
	LeInt
	LeFloat

	And
	Or
	Not

	Round
	Floor
	Ceil
	ToFloat

	// Bool2Int and Int2Bool are reserved: the code generator never emits
	// them (see DESIGN.md, Open Question (b)), but the VM executes them
	// correctly so the instruction set stays complete.
	Bool2Int
	Int2Bool

	Jmp
	JmpIf
	Call
	Return

	IOSetValue
	IOGetValue
	CallFFI

	Yield
)

var opcodeNames = map[Opcode]string{
	Const: "const", Dup: "dup",
	AddInt: "add.i", AddFloat: "add.f",
	SubInt: "sub.i", SubFloat: "sub.f",
	MulInt: "mul.i", MulFloat: "mul.f",
	DivInt: "div.i", DivFloat: "div.f",
	ModInt:      "mod.i",
	NegateInt:   "neg.i",
	NegateFloat: "neg.f",
	Eq:          "eq", Ne: "ne",
	LtInt: "lt.i", LtFloat: "lt.f",
	LeInt: "le.i", LeFloat: "le.f",
	And: "and", Or: "or", Not: "not",
	Round: "round", Floor: "floor", Ceil: "ceil", ToFloat: "tofloat",
	Bool2Int: "b2i", Int2Bool: "i2b",
	Jmp: "jmp", JmpIf: "jmpif", Call: "call", Return: "ret",
	IOSetValue: "ioset", IOGetValue: "ioget", CallFFI: "call-ffi",
	Yield: "yield",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("opcode(%d)", uint8(op))
}

// Insc is one three-address instruction. Not every field is meaningful
// for every Op — which fields apply is determined entirely by Op, the
// same way the Rust original's enum variants each carry their own operand
// set.
type Insc struct {
	Op Opcode

	Dst   int // destination slot (Const, Dup, binary/unary ops, IOGetValue)
	Lhs   int // left operand slot (binary ops)
	Rhs   int // right operand slot (binary ops)
	Src   int // source slot (Dup, unary ops, IOSetValue)
	Check int // condition slot (JmpIf)

	Value value.Value // literal payload (Const)

	Target int // jump target instruction index (Jmp, JmpIf)
	Offset int // byte offset into the I/O context (IOGetValue, IOSetValue)

	Func    int   // function table index (Call) or FFI table index (CallFFI)
	Args    []int // argument slots, positional (Call, CallFFI)
	RetLocs []int // caller-side slots the callee's returns land in (Call, CallFFI)
	Rets    []int // slots holding this function's return values (Return)
}

func slotList(slots []int) string {
	parts := make([]string, len(slots))
	for i, s := range slots {
		parts[i] = fmt.Sprintf("%%%d", s)
	}
	return strings.Join(parts, ", ")
}

// String renders an instruction in the same assembly-text shape as the
// original implementation (mov/add/jmpif/call/ret/ioset/ioget/yield).
func (in Insc) String() string {
	switch in.Op {
	case Const:
		return fmt.Sprintf("mov $%s, %%%d", in.Value, in.Dst)
	case Dup:
		return fmt.Sprintf("mov %%%d, %%%d", in.Src, in.Dst)
	case NegateInt, NegateFloat, Not, Round, Floor, Ceil, ToFloat, Bool2Int, Int2Bool:
		return fmt.Sprintf("%s %%%d, %%%d", in.Op, in.Src, in.Dst)
	case Jmp:
		return fmt.Sprintf("jmp %d", in.Target)
	case JmpIf:
		return fmt.Sprintf("jmpif %%%d, %d", in.Check, in.Target)
	case Call, CallFFI:
		return fmt.Sprintf("%s @%d(%s; [%s])", in.Op, in.Func, slotList(in.Args), slotList(in.RetLocs))
	case Return:
		switch len(in.Rets) {
		case 0:
			return "ret"
		case 1:
			return fmt.Sprintf("ret %%%d", in.Rets[0])
		default:
			return fmt.Sprintf("ret [%s]", slotList(in.Rets))
		}
	case IOSetValue:
		return fmt.Sprintf("ioset !%X %%%d", in.Offset, in.Src)
	case IOGetValue:
		return fmt.Sprintf("ioget !%X %%%d", in.Offset, in.Dst)
	case Yield:
		return "yield"
	default:
		return fmt.Sprintf("%s %%%d, %%%d, %%%d", in.Op, in.Lhs, in.Rhs, in.Dst)
	}
}

// Function describes one compiled function's entry point and frame
// requirements within the flat Compiled.Code stream.
type Function struct {
	Name      string
	Addr      int // index of the first instruction in Compiled.Code
	FrameSize int // number of Value slots the call frame needs
	CodeLen   int // number of instructions belonging to this function
	NumArgs   int // number of leading slots bound to positional arguments
}

// RawFunction is the FFI ABI: a host function receives the argument
// values as a slice (its length is the argument count) and a return
// slice sized to the call's return count, which it must fully populate.
type RawFunction func(args []value.Value, rets []value.Value)

// Compiled is the immutable output of code generation: everything the VM
// needs to run, and nothing else. Many Combustors may share one Compiled
// program concurrently; it is never mutated after codegen's Compile
// returns it.
type Compiled struct {
	Code []Insc
	Func []Function
	FFI  []RawFunction
}

// Disassemble renders the whole program as assembly text, one function
// at a time.
func (c *Compiled) Disassemble() string {
	var b strings.Builder
	for _, fn := range c.Func {
		fmt.Fprintf(&b, "func %s (frame_size=%d):\n", fn.Name, fn.FrameSize)
		for i := 0; i < fn.CodeLen; i++ {
			fmt.Fprintf(&b, "\t%d:\t%s\n", fn.Addr+i, c.Code[fn.Addr+i])
		}
	}
	return b.String()
}
