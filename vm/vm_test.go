package vm_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/usein-abilev/embervm/ast"
	"github.com/usein-abilev/embervm/codegen"
	"github.com/usein-abilev/embervm/ioctx"
	"github.com/usein-abilev/embervm/value"
	"github.com/usein-abilev/embervm/vm"
)

func id(name string) ast.Expr { return &ast.Ident{Name: name} }

// func area(r: float) -> float { g_area = PI * r * r; return }, PI a global
// constant. Combust discards the entry frame's return values (matching the
// original), so the result is routed through an I/O field instead.
func TestAreaOfACircle(t *testing.T) {
	layout, err := ioctx.NewLayout(ioctx.Metadata{{ScriptName: "g_area", HostName: "area", Ty: value.Float32}})
	require.NoError(t, err)

	prog := &ast.Program{
		Consts: []*ast.ConstDecl{{Name: "PI", Value: &ast.FloatLit{Value: 3.14}}},
		Funcs: []*ast.FuncDecl{{
			Name:   "area",
			Params: []ast.Param{{Ty: value.Float32, Name: "r"}},
			Body: &ast.BlockStmt{Stmts: []ast.Stmt{
				&ast.ExprStmt{X: &ast.AssignExpr{
					Name: "g_area",
					Value: &ast.BinaryExpr{Op: ast.Mul,
						Lhs: &ast.BinaryExpr{Op: ast.Mul, Lhs: id("PI"), Rhs: id("r")},
						Rhs: id("r"),
					},
				}},
				&ast.ReturnStmt{},
			}},
		}},
	}

	c := codegen.New(layout)
	compiled, err := c.Compile(prog)
	require.NoError(t, err)

	host := ioctx.NewBuffer(layout)
	combustor := vm.NewCombustor(host)
	_, yielded := combustor.Combust(compiled, 0, value.FromFloat32(2.0))
	require.False(t, yielded)

	offset, _, _ := layout.Resolve("g_area")
	require.InDelta(t, 12.56, float64(host.Get(offset).Float32()), 1e-4)
}

// func swap(a: int, b: int) { g_x = b; g_y = a; return }
func TestSwapReturnsArgumentsReversed(t *testing.T) {
	layout, err := ioctx.NewLayout(ioctx.Metadata{
		{ScriptName: "g_x", HostName: "x", Ty: value.Int32},
		{ScriptName: "g_y", HostName: "y", Ty: value.Int32},
	})
	require.NoError(t, err)

	prog := &ast.Program{
		Funcs: []*ast.FuncDecl{{
			Name:   "swap",
			Params: []ast.Param{{Ty: value.Int32, Name: "a"}, {Ty: value.Int32, Name: "b"}},
			Body: &ast.BlockStmt{Stmts: []ast.Stmt{
				&ast.ExprStmt{X: &ast.AssignExpr{Name: "g_x", Value: id("b")}},
				&ast.ExprStmt{X: &ast.AssignExpr{Name: "g_y", Value: id("a")}},
				&ast.ReturnStmt{},
			}},
		}},
	}

	c := codegen.New(layout)
	compiled, err := c.Compile(prog)
	require.NoError(t, err)

	host := ioctx.NewBuffer(layout)
	combustor := vm.NewCombustor(host)
	_, yielded := combustor.Combust(compiled, 0, value.FromInt32(10), value.FromInt32(20))
	require.False(t, yielded)

	xOffset, _, _ := layout.Resolve("g_x")
	yOffset, _, _ := layout.Resolve("g_y")
	require.Equal(t, int32(20), host.Get(xOffset).Int32())
	require.Equal(t, int32(10), host.Get(yOffset).Int32())
}

// func gcd(a: int, b: int) {
//   while b != 0 {
//     var t: int = a % b
//     a = b
//     b = t
//   }
//   g_result = a
//   return
// }
func TestGCDEventuallyTerminates(t *testing.T) {
	layout, err := ioctx.NewLayout(ioctx.Metadata{{ScriptName: "g_result", HostName: "result", Ty: value.Int32}})
	require.NoError(t, err)

	prog := &ast.Program{
		Funcs: []*ast.FuncDecl{{
			Name:   "gcd",
			Params: []ast.Param{{Ty: value.Int32, Name: "a"}, {Ty: value.Int32, Name: "b"}},
			Body: &ast.BlockStmt{Stmts: []ast.Stmt{
				&ast.WhileStmt{
					Cond: &ast.BinaryExpr{Op: ast.Ne, Lhs: id("b"), Rhs: &ast.IntLit{Value: 0}},
					Body: &ast.BlockStmt{Stmts: []ast.Stmt{
						&ast.VarDeclStmt{Name: "t", Init: &ast.BinaryExpr{Op: ast.Mod, Lhs: id("a"), Rhs: id("b")}},
						&ast.ExprStmt{X: &ast.AssignExpr{Name: "a", Value: id("b")}},
						&ast.ExprStmt{X: &ast.AssignExpr{Name: "b", Value: id("t")}},
					}},
				},
				&ast.ExprStmt{X: &ast.AssignExpr{Name: "g_result", Value: id("a")}},
				&ast.ReturnStmt{},
			}},
		}},
	}

	c := codegen.New(layout)
	compiled, err := c.Compile(prog)
	require.NoError(t, err)

	host := ioctx.NewBuffer(layout)
	combustor := vm.NewCombustor(host)
	_, yielded := combustor.Combust(compiled, 0, value.FromInt32(48), value.FromInt32(18))
	require.False(t, yielded)

	offset, _, _ := layout.Resolve("g_result")
	require.Equal(t, int32(6), host.Get(offset).Int32())
}

// func pump() { g_count = g_count + 1; yield; g_count = g_count + 1; yield; return }
// Combust and the first CombustResume each advance g_count by exactly 1
// and suspend at a yield; the second CombustResume runs past the last
// yield to the return, so the program finishes.
func TestYieldAdvancesCounterByOnePerResume(t *testing.T) {
	layout, err := ioctx.NewLayout(ioctx.Metadata{{ScriptName: "g_count", HostName: "count", Ty: value.Int32}})
	require.NoError(t, err)

	prog := &ast.Program{
		Funcs: []*ast.FuncDecl{{
			Name: "pump",
			Body: &ast.BlockStmt{Stmts: []ast.Stmt{
				&ast.ExprStmt{X: &ast.AssignExpr{
					Name:  "g_count",
					Value: &ast.BinaryExpr{Op: ast.Add, Lhs: id("g_count"), Rhs: &ast.IntLit{Value: 1}},
				}},
				&ast.YieldStmt{},
				&ast.ExprStmt{X: &ast.AssignExpr{
					Name:  "g_count",
					Value: &ast.BinaryExpr{Op: ast.Add, Lhs: id("g_count"), Rhs: &ast.IntLit{Value: 1}},
				}},
				&ast.YieldStmt{},
				&ast.ReturnStmt{},
			}},
		}},
	}

	c := codegen.New(layout)
	compiled, err := c.Compile(prog)
	require.NoError(t, err)

	host := ioctx.NewBuffer(layout)
	combustor := vm.NewCombustor(host)

	resumeAt, yielded := combustor.Combust(compiled, 0)
	require.True(t, yielded)
	offset, _, _ := layout.Resolve("g_count")
	require.Equal(t, int32(1), host.Get(offset).Int32())

	resumeAt, yielded = combustor.CombustResume(compiled, resumeAt)
	require.True(t, yielded)
	require.Equal(t, int32(2), host.Get(offset).Int32())

	_, yielded = combustor.CombustResume(compiled, resumeAt)
	require.False(t, yielded)
}

// func clip(x: int) { g_clipped = max(0, min(100, x)); return }, min/max
// are host FFI functions.
func TestClipClampsViaFFIMinMax(t *testing.T) {
	layout, err := ioctx.NewLayout(ioctx.Metadata{{ScriptName: "g_clipped", HostName: "clipped", Ty: value.Int32}})
	require.NoError(t, err)

	c := codegen.New(layout)
	require.NoError(t, c.RegisterFFI("min", []value.Ty{value.Int32, value.Int32}, []value.Ty{value.Int32}, vm.Min))
	require.NoError(t, c.RegisterFFI("max", []value.Ty{value.Int32, value.Int32}, []value.Ty{value.Int32}, vm.Max))

	prog := &ast.Program{
		Funcs: []*ast.FuncDecl{{
			Name:   "clip",
			Params: []ast.Param{{Ty: value.Int32, Name: "x"}},
			Body: &ast.BlockStmt{Stmts: []ast.Stmt{
				&ast.ExprStmt{X: &ast.AssignExpr{
					Name: "g_clipped",
					Value: &ast.CallExpr{Name: "max", Args: []ast.Expr{
						&ast.IntLit{Value: 0},
						&ast.CallExpr{Name: "min", Args: []ast.Expr{&ast.IntLit{Value: 100}, id("x")}},
					}},
				}},
				&ast.ReturnStmt{},
			}},
		}},
	}

	compiled, err := c.Compile(prog)
	require.NoError(t, err)

	host := ioctx.NewBuffer(layout)
	combustor := vm.NewCombustor(host)
	_, yielded := combustor.Combust(compiled, 0, value.FromInt32(250))
	require.False(t, yielded)

	offset, _, _ := layout.Resolve("g_clipped")
	require.Equal(t, int32(100), host.Get(offset).Int32())
}

func TestMinMaxPanicBelowTwoArguments(t *testing.T) {
	require.Panics(t, func() {
		vm.Min([]value.Value{value.FromInt32(1)}, make([]value.Value, 1))
	})
	require.Panics(t, func() {
		vm.Max(nil, make([]value.Value, 1))
	})
}

func TestMinMaxPickExtremes(t *testing.T) {
	rets := make([]value.Value, 1)
	vm.Min([]value.Value{value.FromInt32(5), value.FromInt32(-3), value.FromInt32(9)}, rets)
	require.Equal(t, int32(-3), rets[0].Int32())

	vm.Max([]value.Value{value.FromInt32(5), value.FromInt32(-3), value.FromInt32(9)}, rets)
	require.Equal(t, int32(9), rets[0].Int32())
}

// int(2.7) folds to 2 at compile time (truncation toward zero) but
// computes 3 at runtime when 2.7 reaches the cast as a non-constant
// value (rounding, via the Round opcode). Both functions below cast the
// exact same literal value; the only difference is whether the compiler
// can see it is constant.
func TestConstFoldedCastDisagreesWithLiveCast(t *testing.T) {
	layout, err := ioctx.NewLayout(ioctx.Metadata{
		{ScriptName: "g_folded", HostName: "folded", Ty: value.Int32},
		{ScriptName: "g_live", HostName: "live", Ty: value.Int32},
	})
	require.NoError(t, err)

	prog := &ast.Program{
		Consts: []*ast.ConstDecl{{Name: "X", Value: &ast.FloatLit{Value: 2.7}}},
		Funcs: []*ast.FuncDecl{
			{
				Name: "folded",
				Body: &ast.BlockStmt{Stmts: []ast.Stmt{
					&ast.ExprStmt{X: &ast.AssignExpr{Name: "g_folded", Value: &ast.CastExpr{Dest: value.Int32, X: id("X")}}},
					&ast.ReturnStmt{},
				}},
			},
			{
				Name:   "live",
				Params: []ast.Param{{Ty: value.Float32, Name: "f"}},
				Body: &ast.BlockStmt{Stmts: []ast.Stmt{
					&ast.ExprStmt{X: &ast.AssignExpr{Name: "g_live", Value: &ast.CastExpr{Dest: value.Int32, X: id("f")}}},
					&ast.ReturnStmt{},
				}},
			},
		},
	}

	c := codegen.New(layout)
	compiled, err := c.Compile(prog)
	require.NoError(t, err)

	host := ioctx.NewBuffer(layout)

	foldedCombustor := vm.NewCombustor(host)
	_, yielded := foldedCombustor.Combust(compiled, 0)
	require.False(t, yielded)

	liveCombustor := vm.NewCombustor(host)
	_, yielded = liveCombustor.Combust(compiled, 1, value.FromFloat32(2.7))
	require.False(t, yielded)

	foldedOffset, _, _ := layout.Resolve("g_folded")
	liveOffset, _, _ := layout.Resolve("g_live")
	require.Equal(t, int32(2), host.Get(foldedOffset).Int32(), "constant-folded int(2.7) truncates toward zero")
	require.Equal(t, int32(3), host.Get(liveOffset).Int32(), "live int(2.7) rounds via the Round opcode")
}

func TestIntegerDivisionByZeroPanics(t *testing.T) {
	prog := &ast.Program{
		Funcs: []*ast.FuncDecl{{
			Name:    "divzero",
			Params:  []ast.Param{{Ty: value.Int32, Name: "a"}, {Ty: value.Int32, Name: "b"}},
			Returns: []value.Ty{value.Int32},
			Body: &ast.BlockStmt{Stmts: []ast.Stmt{
				&ast.ReturnStmt{Values: []ast.Expr{&ast.BinaryExpr{Op: ast.Div, Lhs: id("a"), Rhs: id("b")}}},
			}},
		}},
	}
	c := codegen.New(nil)
	compiled, err := c.Compile(prog)
	require.NoError(t, err)

	combustor := vm.NewCombustor(nil)
	require.Panics(t, func() {
		combustor.Combust(compiled, 0, value.FromInt32(1), value.FromInt32(0))
	})
}
