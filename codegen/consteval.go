package codegen

import (
	"github.com/usein-abilev/embervm/ast"
	"github.com/usein-abilev/embervm/cerrors"
	"github.com/usein-abilev/embervm/value"
)

// constEval evaluates e with no frame access at all: only literals,
// previously declared constants, unary/binary operators over them, and
// casts between them are legal. Anything else (a local variable, an
// I/O-context field, a function call) makes the expression not a
// constant. This is the restricted evaluator ast.ConstDecl initializers
// must pass.
func (c *Context) constEval(e ast.Expr) (exprVal, error) {
	switch n := e.(type) {
	case *ast.IntLit:
		return constVal(value.Int32, value.FromInt32(n.Value)), nil
	case *ast.FloatLit:
		return constVal(value.Float32, value.FromFloat32(n.Value)), nil
	case *ast.BoolLit:
		return constVal(value.Bool, value.FromBool(n.Value)), nil
	case *ast.ParenExpr:
		return c.constEval(n.X)
	case *ast.Ident:
		entry, ok := c.constPool.Get(n.Name)
		if !ok {
			return exprVal{}, cerrors.New(cerrors.NotAConstant, "undefined constant %q", n.Name)
		}
		return constVal(entry.Ty, entry.Value), nil
	case *ast.UnaryExpr:
		operand, err := c.constEval(n.X)
		if err != nil {
			return exprVal{}, err
		}
		return c.constFoldUnary(n.Op, operand)
	case *ast.BinaryExpr:
		lhs, err := c.constEval(n.Lhs)
		if err != nil {
			return exprVal{}, err
		}
		rhs, err := c.constEval(n.Rhs)
		if err != nil {
			return exprVal{}, err
		}
		if lhs.Ty != rhs.Ty {
			return exprVal{}, cerrors.New(cerrors.TypeMismatch,
				"binary expression operands of different types (%s and %s)", lhs.Ty, rhs.Ty)
		}
		bundle, err := c.constFoldBinary(n.Op, lhs, rhs)
		if err != nil {
			return exprVal{}, err
		}
		return bundle[0], nil
	case *ast.CastExpr:
		operand, err := c.constEval(n.X)
		if err != nil {
			return exprVal{}, err
		}
		if operand.Ty == n.Dest {
			return operand, nil
		}
		folded, ok := constCastFold(operand.Ty, n.Dest, operand.Const)
		if !ok {
			return exprVal{}, cerrors.New(cerrors.TypeMismatch, "cannot cast value of type %s to %s", operand.Ty, n.Dest)
		}
		return constVal(n.Dest, folded), nil
	default:
		return exprVal{}, cerrors.New(cerrors.NotAConstant, "expression is not a compile-time constant")
	}
}

func (c *Context) constFoldUnary(op ast.UnaryOp, v exprVal) (exprVal, error) {
	switch op {
	case ast.Negate:
		switch v.Ty {
		case value.Int32:
			return constVal(v.Ty, value.FromInt32(-v.Const.Int32())), nil
		case value.Float32:
			return constVal(v.Ty, value.FromFloat32(-v.Const.Float32())), nil
		default:
			return exprVal{}, cerrors.New(cerrors.TypeMismatch, "cannot negate a boolean")
		}
	case ast.Not:
		if v.Ty != value.Bool {
			return exprVal{}, cerrors.New(cerrors.TypeMismatch, "cannot apply logical not to a non-boolean")
		}
		return constVal(value.Bool, value.FromBool(!v.Const.Bool())), nil
	default:
		return exprVal{}, cerrors.New(cerrors.InvalidOperator, "unknown unary operator")
	}
}

// constFoldBinary folds a binary operator over two already-constant
// operands of the same type. Ordered comparisons on Bool treat false <
// true, even though no live (non-constant) opcode for that comparison
// exists — only a constant-folded bool ordered-compare can ever reach
// this path.
func (c *Context) constFoldBinary(op ast.BinaryOp, lhs, rhs exprVal) ([]exprVal, error) {
	ty := lhs.Ty
	switch op {
	case ast.Add:
		return arithFold(ty, lhs, rhs, ty, func(a, b int32) int32 { return a + b }, func(a, b float32) float32 { return a + b })
	case ast.Sub:
		return arithFold(ty, lhs, rhs, ty, func(a, b int32) int32 { return a - b }, func(a, b float32) float32 { return a - b })
	case ast.Mul:
		return arithFold(ty, lhs, rhs, ty, func(a, b int32) int32 { return a * b }, func(a, b float32) float32 { return a * b })
	case ast.Div:
		if ty == value.Int32 && rhs.Const.Int32() == 0 {
			return nil, cerrors.New(cerrors.DivisionByZero, "cannot divide by 0")
		}
		if ty == value.Float32 && rhs.Const.Float32() == 0 {
			return nil, cerrors.New(cerrors.DivisionByZero, "cannot divide by 0")
		}
		return arithFold(ty, lhs, rhs, ty, func(a, b int32) int32 { return a / b }, func(a, b float32) float32 { return a / b })
	case ast.Mod:
		if ty != value.Int32 {
			return nil, cerrors.New(cerrors.TypeMismatch, "cannot apply modulo to non-integer types")
		}
		if rhs.Const.Int32() == 0 {
			return nil, cerrors.New(cerrors.DivisionByZero, "cannot divide by 0")
		}
		return []exprVal{constVal(value.Int32, value.FromInt32(lhs.Const.Int32()%rhs.Const.Int32()))}, nil
	case ast.Eq:
		return []exprVal{constVal(value.Bool, value.FromBool(lhs.Const.Repr == rhs.Const.Repr))}, nil
	case ast.Ne:
		return []exprVal{constVal(value.Bool, value.FromBool(lhs.Const.Repr != rhs.Const.Repr))}, nil
	case ast.Lt:
		return cmpFold(ty, lhs, rhs, func(a, b int32) bool { return a < b }, func(a, b float32) bool { return a < b }, func(a, b bool) bool { return !a && b })
	case ast.Le:
		return cmpFold(ty, lhs, rhs, func(a, b int32) bool { return a <= b }, func(a, b float32) bool { return a <= b }, func(a, b bool) bool { return !(a && !b) })
	case ast.Gt:
		return cmpFold(ty, lhs, rhs, func(a, b int32) bool { return a > b }, func(a, b float32) bool { return a > b }, func(a, b bool) bool { return a && !b })
	case ast.Ge:
		return cmpFold(ty, lhs, rhs, func(a, b int32) bool { return a >= b }, func(a, b float32) bool { return a >= b }, func(a, b bool) bool { return !(!a && b) })
	case ast.And:
		if ty != value.Bool {
			return nil, cerrors.New(cerrors.TypeMismatch, "can only apply logical and to boolean type")
		}
		return []exprVal{constVal(value.Bool, value.FromBool(lhs.Const.Bool() && rhs.Const.Bool()))}, nil
	case ast.Or:
		if ty != value.Bool {
			return nil, cerrors.New(cerrors.TypeMismatch, "can only apply logical or to boolean type")
		}
		return []exprVal{constVal(value.Bool, value.FromBool(lhs.Const.Bool() || rhs.Const.Bool()))}, nil
	default:
		return nil, cerrors.New(cerrors.InvalidOperator, "unknown binary operator")
	}
}

func arithFold(ty value.Ty, lhs, rhs exprVal, outTy value.Ty, intOp func(a, b int32) int32, floatOp func(a, b float32) float32) ([]exprVal, error) {
	switch ty {
	case value.Int32:
		return []exprVal{constVal(outTy, value.FromInt32(intOp(lhs.Const.Int32(), rhs.Const.Int32())))}, nil
	case value.Float32:
		return []exprVal{constVal(outTy, value.FromFloat32(floatOp(lhs.Const.Float32(), rhs.Const.Float32())))}, nil
	default:
		return nil, cerrors.New(cerrors.TypeMismatch, "unsupported type for arithmetic operator: %s", ty)
	}
}

func cmpFold(ty value.Ty, lhs, rhs exprVal, intCmp func(a, b int32) bool, floatCmp func(a, b float32) bool, boolCmp func(a, b bool) bool) ([]exprVal, error) {
	var result bool
	switch ty {
	case value.Int32:
		result = intCmp(lhs.Const.Int32(), rhs.Const.Int32())
	case value.Float32:
		result = floatCmp(lhs.Const.Float32(), rhs.Const.Float32())
	case value.Bool:
		result = boolCmp(lhs.Const.Bool(), rhs.Const.Bool())
	default:
		return nil, cerrors.New(cerrors.TypeMismatch, "unsupported type for comparison operator: %s", ty)
	}
	return []exprVal{constVal(value.Bool, value.FromBool(result))}, nil
}

// constCastFold folds a cast between two constant-known types. It covers
// all six non-identity pairs among {Int32, Float32, Bool}, matching the
// original implementation's consteval cast table — even though the live
// (non-constant) cast path only ever reaches the Int32<->Float32 pair.
func constCastFold(from, to value.Ty, v value.Value) (value.Value, bool) {
	switch {
	case from == value.Int32 && to == value.Float32:
		return value.FromFloat32(float32(v.Int32())), true
	case from == value.Int32 && to == value.Bool:
		return value.FromBool(v.Int32() != 0), true
	case from == value.Float32 && to == value.Int32:
		// Truncates toward zero, unlike the live Float32->Int32 cast
		// (lowerCast), which emits Round instead — a constant int(2.7)
		// folds to 2 here but a non-constant int(2.7) computes 3 at
		// runtime. Intentional: mirrors the original's own
		// consteval-vs-codegen split for this pair.
		return value.FromInt32(int32(v.Float32())), true
	case from == value.Float32 && to == value.Bool:
		return value.FromBool(v.Float32() != 0), true
	case from == value.Bool && to == value.Int32:
		b := int32(0)
		if v.Bool() {
			b = 1
		}
		return value.FromInt32(b), true
	case from == value.Bool && to == value.Float32:
		f := float32(0)
		if v.Bool() {
			f = 1
		}
		return value.FromFloat32(f), true
	default:
		return value.Value{}, false
	}
}
