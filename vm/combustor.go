// Package vm implements the Combustor: the register-based dispatch
// loop that executes an insc.Compiled program against a host-owned
// ioctx.Context. It is the sole runtime stratum — it performs no type
// checking of its own, trusting codegen to have already proven the
// program well-typed.
package vm

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/usein-abilev/embervm/insc"
	"github.com/usein-abilev/embervm/ioctx"
	"github.com/usein-abilev/embervm/value"
)

// Combustor owns one call stack and the scratch buffers FFI calls reuse
// across invocations, plus the host I/O context every IOGetValue/
// IOSetValue instruction reads or writes through.
type Combustor struct {
	IOCtx ioctx.Context

	stack  *Stack
	inBuf  []value.Value
	outBuf []value.Value
}

// NewCombustor builds a Combustor bound to a host I/O context. Pass
// ioctx.NewBuffer(layout) (or any other ioctx.Context implementation)
// for ioCtx, or nil if the program never touches I/O fields.
func NewCombustor(ioCtx ioctx.Context) *Combustor {
	return &Combustor{
		IOCtx:  ioCtx,
		stack:  NewStack(),
		inBuf:  make([]value.Value, 0, 8),
		outBuf: make([]value.Value, 0, 8),
	}
}

// Combust runs compiled starting at the function whose index is entry,
// from a clean stack, with args bound to that function's leading
// parameter slots (entry functions that take no parameters, the common
// case of a script driven entirely through the I/O context, simply pass
// none). It returns (resumeAddr, true) if the program suspended on a
// Yield — call CombustResume with resumeAddr to continue it later — or
// (0, false) once the entry function returns.
func (c *Combustor) Combust(compiled *insc.Compiled, entry int, args ...value.Value) (int, bool) {
	entryFn := compiled.Func[entry]
	frame := c.stack.EnterFrame(entryFn.FrameSize)
	for i, a := range args {
		frame.Set(c.stack, i, a)
	}
	return c.CombustResume(compiled, entryFn.Addr)
}

// CombustResume continues executing compiled from inscPtr, on whatever
// stack state a prior Combust/CombustResume call left behind (i.e. one
// that returned yielded=true). It is the only legal way to resume a
// suspended program; calling it on a stack with no active frames is a
// programming error.
func (c *Combustor) CombustResume(compiled *insc.Compiled, inscPtr int) (int, bool) {
	frame := c.stack.LastFrame()

	for {
		in := compiled.Code[inscPtr]

		switch in.Op {
		case insc.Const:
			frame.Set(c.stack, in.Dst, in.Value)
		case insc.Dup:
			frame.Set(c.stack, in.Dst, frame.Get(c.stack, in.Src))

		case insc.AddInt:
			frame.Set(c.stack, in.Dst, value.FromInt32(frame.Get(c.stack, in.Lhs).Int32()+frame.Get(c.stack, in.Rhs).Int32()))
		case insc.AddFloat:
			frame.Set(c.stack, in.Dst, value.FromFloat32(frame.Get(c.stack, in.Lhs).Float32()+frame.Get(c.stack, in.Rhs).Float32()))
		case insc.SubInt:
			frame.Set(c.stack, in.Dst, value.FromInt32(frame.Get(c.stack, in.Lhs).Int32()-frame.Get(c.stack, in.Rhs).Int32()))
		case insc.SubFloat:
			frame.Set(c.stack, in.Dst, value.FromFloat32(frame.Get(c.stack, in.Lhs).Float32()-frame.Get(c.stack, in.Rhs).Float32()))
		case insc.MulInt:
			frame.Set(c.stack, in.Dst, value.FromInt32(frame.Get(c.stack, in.Lhs).Int32()*frame.Get(c.stack, in.Rhs).Int32()))
		case insc.MulFloat:
			frame.Set(c.stack, in.Dst, value.FromFloat32(frame.Get(c.stack, in.Lhs).Float32()*frame.Get(c.stack, in.Rhs).Float32()))
		case insc.DivInt:
			rhs := frame.Get(c.stack, in.Rhs).Int32()
			if rhs == 0 {
				panic("embervm/vm: integer division by zero")
			}
			frame.Set(c.stack, in.Dst, value.FromInt32(frame.Get(c.stack, in.Lhs).Int32()/rhs))
		case insc.DivFloat:
			frame.Set(c.stack, in.Dst, value.FromFloat32(frame.Get(c.stack, in.Lhs).Float32()/frame.Get(c.stack, in.Rhs).Float32()))
		case insc.ModInt:
			rhs := frame.Get(c.stack, in.Rhs).Int32()
			if rhs == 0 {
				panic("embervm/vm: integer division by zero")
			}
			frame.Set(c.stack, in.Dst, value.FromInt32(frame.Get(c.stack, in.Lhs).Int32()%rhs))

		case insc.NegateInt:
			frame.Set(c.stack, in.Dst, value.FromInt32(-frame.Get(c.stack, in.Src).Int32()))
		case insc.NegateFloat:
			frame.Set(c.stack, in.Dst, value.FromFloat32(-frame.Get(c.stack, in.Src).Float32()))

		case insc.Eq:
			frame.Set(c.stack, in.Dst, value.FromBool(frame.Get(c.stack, in.Lhs).Repr == frame.Get(c.stack, in.Rhs).Repr))
		case insc.Ne:
			frame.Set(c.stack, in.Dst, value.FromBool(frame.Get(c.stack, in.Lhs).Repr != frame.Get(c.stack, in.Rhs).Repr))

		case insc.LtInt:
			frame.Set(c.stack, in.Dst, value.FromBool(frame.Get(c.stack, in.Lhs).Int32() < frame.Get(c.stack, in.Rhs).Int32()))
		case insc.LtFloat:
			frame.Set(c.stack, in.Dst, value.FromBool(frame.Get(c.stack, in.Lhs).Float32() < frame.Get(c.stack, in.Rhs).Float32()))
		case insc.LeInt:
			frame.Set(c.stack, in.Dst, value.FromBool(frame.Get(c.stack, in.Lhs).Int32() <= frame.Get(c.stack, in.Rhs).Int32()))
		case insc.LeFloat:
			frame.Set(c.stack, in.Dst, value.FromBool(frame.Get(c.stack, in.Lhs).Float32() <= frame.Get(c.stack, in.Rhs).Float32()))

		case insc.And:
			frame.Set(c.stack, in.Dst, value.FromBool(frame.Get(c.stack, in.Lhs).Bool() && frame.Get(c.stack, in.Rhs).Bool()))
		case insc.Or:
			frame.Set(c.stack, in.Dst, value.FromBool(frame.Get(c.stack, in.Lhs).Bool() || frame.Get(c.stack, in.Rhs).Bool()))
		case insc.Not:
			frame.Set(c.stack, in.Dst, value.FromBool(!frame.Get(c.stack, in.Src).Bool()))

		case insc.Round:
			frame.Set(c.stack, in.Dst, value.FromInt32(roundFloat32(frame.Get(c.stack, in.Src).Float32())))
		case insc.Floor:
			frame.Set(c.stack, in.Dst, value.FromInt32(floorFloat32(frame.Get(c.stack, in.Src).Float32())))
		case insc.Ceil:
			frame.Set(c.stack, in.Dst, value.FromInt32(ceilFloat32(frame.Get(c.stack, in.Src).Float32())))
		case insc.ToFloat:
			frame.Set(c.stack, in.Dst, value.FromFloat32(float32(frame.Get(c.stack, in.Src).Int32())))
		case insc.Bool2Int:
			b := int32(0)
			if frame.Get(c.stack, in.Src).Bool() {
				b = 1
			}
			frame.Set(c.stack, in.Dst, value.FromInt32(b))
		case insc.Int2Bool:
			frame.Set(c.stack, in.Dst, value.FromBool(frame.Get(c.stack, in.Src).Int32() != 0))

		case insc.Jmp:
			inscPtr = in.Target
			continue
		case insc.JmpIf:
			if frame.Get(c.stack, in.Check).Bool() {
				inscPtr = in.Target
				continue
			}

		case insc.Call:
			callee := compiled.Func[in.Func]
			frame = c.stack.CallEnterFrame(inscPtr, callee.FrameSize, in.Args, in.RetLocs)
			inscPtr = callee.Addr
			continue

		case insc.Return:
			caller, retAddr, ok := c.stack.ExitFrame(in.Rets)
			if !ok {
				return 0, false
			}
			frame = caller
			inscPtr = retAddr

		case insc.IOSetValue:
			c.IOCtx.Set(in.Offset, frame.Get(c.stack, in.Src))
		case insc.IOGetValue:
			frame.Set(c.stack, in.Dst, c.IOCtx.Get(in.Offset))

		case insc.CallFFI:
			c.callFFI(compiled, frame, in)

		case insc.Yield:
			return inscPtr + 1, true

		default:
			panic(fmt.Sprintf("embervm/vm: unknown opcode %s", in.Op))
		}

		inscPtr++
	}
}

// callFFI reuses the Combustor's scratch buffers across calls, exactly
// mirroring the original's in_buf/out_buf ZeroVec reuse — FFI calls are
// the hot path a host-supplied function runs on, so this avoids an
// allocation per call.
func (c *Combustor) callFFI(compiled *insc.Compiled, frame StackFrame, in insc.Insc) {
	argCount, retCount := len(in.Args), len(in.RetLocs)

	if cap(c.inBuf) < argCount {
		c.inBuf = make([]value.Value, argCount)
	}
	c.inBuf = c.inBuf[:argCount]
	if cap(c.outBuf) < retCount {
		c.outBuf = make([]value.Value, retCount)
	}
	c.outBuf = c.outBuf[:retCount]

	for i, argSlot := range in.Args {
		c.inBuf[i] = frame.Get(c.stack, argSlot)
	}

	fn := compiled.FFI[in.Func]
	if fn == nil {
		panic(errors.Errorf("embervm/vm: FFI function %d was never registered with a host implementation", in.Func))
	}
	fn(c.inBuf, c.outBuf)

	for i, retSlot := range in.RetLocs {
		frame.Set(c.stack, retSlot, c.outBuf[i])
	}
}
