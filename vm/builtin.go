package vm

import (
	"math"

	"github.com/usein-abilev/embervm/value"
)

// roundFloat32 rounds ties away from zero (2.5 -> 3, -2.5 -> -3), not
// ties-to-even. Deliberate: this is what the Round opcode has always
// computed here, and changing it would silently change every program
// that casts a float to an int on a tie.
func roundFloat32(f float32) int32 { return int32(math.Round(float64(f))) }
func floorFloat32(f float32) int32 { return int32(math.Floor(float64(f))) }
func ceilFloat32(f float32) int32  { return int32(math.Ceil(float64(f))) }

// Min is the host-side implementation of the script-visible min(...)
// built-in: it takes two or more Int32 arguments and writes the smallest
// to rets[0]. Register it with codegen.Context.RegisterFFI("min", ...)
// before compiling a program that calls min.
func Min(args []value.Value, rets []value.Value) {
	if len(args) < 2 {
		panic("embervm/vm: min() requires at least 2 arguments")
	}
	m := args[0].Int32()
	for _, a := range args[1:] {
		if v := a.Int32(); v < m {
			m = v
		}
	}
	rets[0] = value.FromInt32(m)
}

// Max is the host-side implementation of the script-visible max(...)
// built-in, the mirror image of Min.
func Max(args []value.Value, rets []value.Value) {
	if len(args) < 2 {
		panic("embervm/vm: max() requires at least 2 arguments")
	}
	m := args[0].Int32()
	for _, a := range args[1:] {
		if v := a.Int32(); v > m {
			m = v
		}
	}
	rets[0] = value.FromInt32(m)
}
