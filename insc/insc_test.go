package insc

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/usein-abilev/embervm/value"
)

func TestOpcodeString(t *testing.T) {
	require.Equal(t, "add.i", AddInt.String())
	require.Equal(t, "yield", Yield.String())
}

func TestInscStringConst(t *testing.T) {
	in := Insc{Op: Const, Dst: 2, Value: value.FromInt32(5)}
	require.Equal(t, "mov $5, %2", in.String())
}

func TestInscStringCall(t *testing.T) {
	in := Insc{Op: Call, Func: 3, Args: []int{0, 1}, RetLocs: []int{2}}
	require.Equal(t, "call @3(%0, %1; [%2])", in.String())
}

func TestInscStringReturnVariants(t *testing.T) {
	require.Equal(t, "ret", Insc{Op: Return}.String())
	require.Equal(t, "ret %1", Insc{Op: Return, Rets: []int{1}}.String())
	require.Equal(t, "ret [%1, %2]", Insc{Op: Return, Rets: []int{1, 2}}.String())
}

func TestDisassemble(t *testing.T) {
	c := &Compiled{
		Func: []Function{{Name: "main", Addr: 0, FrameSize: 2, CodeLen: 2}},
		Code: []Insc{
			{Op: Const, Dst: 0, Value: value.FromInt32(1)},
			{Op: Return, Rets: []int{0}},
		},
	}
	out := c.Disassemble()
	require.Contains(t, out, "func main (frame_size=2)")
	require.Contains(t, out, "mov $1, %0")
	require.Contains(t, out, "ret %0")
}
