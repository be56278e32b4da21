package codegen

import (
	"github.com/usein-abilev/embervm/ast"
	"github.com/usein-abilev/embervm/cerrors"
	"github.com/usein-abilev/embervm/insc"
	"github.com/usein-abilev/embervm/value"
)

// lowerExpr type-checks, folds, and emits e, returning the bundle of
// values it produces. Every expression produces exactly one value except
// assignments, which produce none, and calls, which produce one per
// declared return (none for a function with no returns).
func (c *Context) lowerExpr(e ast.Expr) ([]exprVal, error) {
	switch n := e.(type) {
	case *ast.IntLit:
		return []exprVal{constVal(value.Int32, value.FromInt32(n.Value))}, nil
	case *ast.FloatLit:
		return []exprVal{constVal(value.Float32, value.FromFloat32(n.Value))}, nil
	case *ast.BoolLit:
		return []exprVal{constVal(value.Bool, value.FromBool(n.Value))}, nil
	case *ast.ParenExpr:
		return c.lowerExpr(n.X)
	case *ast.Ident:
		return c.lowerIdent(n.Name)
	case *ast.UnaryExpr:
		return c.lowerUnary(n)
	case *ast.BinaryExpr:
		return c.lowerBinary(n)
	case *ast.CastExpr:
		return c.lowerCast(n)
	case *ast.AssignExpr:
		return c.lowerAssign(n)
	case *ast.MultiAssignExpr:
		return c.lowerMultiAssign(n)
	case *ast.CallExpr:
		return c.lowerCall(n)
	default:
		return nil, cerrors.New(cerrors.InvalidOperator, "unsupported expression node %T", e)
	}
}

// lowerSingle lowers e and requires it to produce exactly one value —
// the shape every operand of a unary/binary operator, cast, or
// single-assignment must have.
func (c *Context) lowerSingle(e ast.Expr) (exprVal, error) {
	bundle, err := c.lowerExpr(e)
	if err != nil {
		return exprVal{}, err
	}
	if len(bundle) != 1 {
		return exprVal{}, cerrors.New(cerrors.ArityMismatch,
			"expected a single value, got a bundle of %d", len(bundle))
	}
	return bundle[0], nil
}

func (c *Context) lowerIdent(name string) ([]exprVal, error) {
	if addr, ty, ok := c.frame.GetVar(name); ok {
		return []exprVal{addrVal(ty, addr)}, nil
	}
	if entry, ok := c.constPool.Get(name); ok {
		return []exprVal{constVal(entry.Ty, entry.Value)}, nil
	}
	if offset, ty, ok := c.layout.Resolve(name); ok {
		addr := c.frame.Allocate()
		c.emit(insc.Insc{Op: insc.IOGetValue, Offset: offset, Dst: addr})
		return []exprVal{addrVal(ty, addr)}, nil
	}
	return nil, cerrors.New(cerrors.UnknownIdentifier, "unknown identifier %q", name)
}

func (c *Context) lowerUnary(n *ast.UnaryExpr) ([]exprVal, error) {
	operand, err := c.lowerSingle(n.X)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case ast.Negate:
		if operand.Ty == value.Bool {
			return nil, cerrors.New(cerrors.TypeMismatch, "cannot negate a boolean")
		}
		if operand.IsConst {
			if operand.Ty == value.Int32 {
				return []exprVal{constVal(operand.Ty, value.FromInt32(-operand.Const.Int32()))}, nil
			}
			return []exprVal{constVal(operand.Ty, value.FromFloat32(-operand.Const.Float32()))}, nil
		}
		dst := c.frame.Allocate()
		op := insc.NegateInt
		if operand.Ty == value.Float32 {
			op = insc.NegateFloat
		}
		c.emit(insc.Insc{Op: op, Src: operand.Addr, Dst: dst})
		return []exprVal{addrVal(operand.Ty, dst)}, nil
	case ast.Not:
		if operand.Ty != value.Bool {
			return nil, cerrors.New(cerrors.TypeMismatch, "cannot apply logical not to a non-boolean")
		}
		if operand.IsConst {
			return []exprVal{constVal(value.Bool, value.FromBool(!operand.Const.Bool()))}, nil
		}
		dst := c.frame.Allocate()
		c.emit(insc.Insc{Op: insc.Not, Src: operand.Addr, Dst: dst})
		return []exprVal{addrVal(value.Bool, dst)}, nil
	default:
		return nil, cerrors.New(cerrors.InvalidOperator, "unknown unary operator")
	}
}

func (c *Context) lowerBinary(n *ast.BinaryExpr) ([]exprVal, error) {
	lhs, err := c.lowerSingle(n.Lhs)
	if err != nil {
		return nil, err
	}
	rhs, err := c.lowerSingle(n.Rhs)
	if err != nil {
		return nil, err
	}
	if lhs.Ty != rhs.Ty {
		return nil, cerrors.New(cerrors.TypeMismatch,
			"binary operands of different types (%s and %s)", lhs.Ty, rhs.Ty)
	}

	if lhs.IsConst && rhs.IsConst {
		return c.constFoldBinary(n.Op, lhs, rhs)
	}

	ty := lhs.Ty
	lhsAddr := c.ensureAddr(lhs)
	rhsAddr := c.ensureAddr(rhs)
	dst := c.frame.Allocate()

	switch n.Op {
	case ast.Add:
		return c.arithmeticBinop(ty, lhsAddr, rhsAddr, dst, ty, insc.AddInt, insc.AddFloat)
	case ast.Sub:
		return c.arithmeticBinop(ty, lhsAddr, rhsAddr, dst, ty, insc.SubInt, insc.SubFloat)
	case ast.Mul:
		return c.arithmeticBinop(ty, lhsAddr, rhsAddr, dst, ty, insc.MulInt, insc.MulFloat)
	case ast.Div:
		return c.arithmeticBinop(ty, lhsAddr, rhsAddr, dst, ty, insc.DivInt, insc.DivFloat)
	case ast.Mod:
		if ty != value.Int32 {
			return nil, cerrors.New(cerrors.TypeMismatch, "cannot apply modulo to non-integer types")
		}
		c.emit(insc.Insc{Op: insc.ModInt, Lhs: lhsAddr, Rhs: rhsAddr, Dst: dst})
		return []exprVal{addrVal(ty, dst)}, nil
	case ast.Eq:
		c.emit(insc.Insc{Op: insc.Eq, Lhs: lhsAddr, Rhs: rhsAddr, Dst: dst})
		return []exprVal{addrVal(value.Bool, dst)}, nil
	case ast.Ne:
		c.emit(insc.Insc{Op: insc.Ne, Lhs: lhsAddr, Rhs: rhsAddr, Dst: dst})
		return []exprVal{addrVal(value.Bool, dst)}, nil
	case ast.Lt:
		return c.arithmeticBinop(ty, lhsAddr, rhsAddr, dst, value.Bool, insc.LtInt, insc.LtFloat)
	case ast.Le:
		return c.arithmeticBinop(ty, lhsAddr, rhsAddr, dst, value.Bool, insc.LeInt, insc.LeFloat)
	case ast.Gt:
		// Gt/Ge are not opcodes: synthesized from Lt/Le with swapped operands.
		return c.arithmeticBinop(ty, rhsAddr, lhsAddr, dst, value.Bool, insc.LtInt, insc.LtFloat)
	case ast.Ge:
		return c.arithmeticBinop(ty, rhsAddr, lhsAddr, dst, value.Bool, insc.LeInt, insc.LeFloat)
	case ast.And:
		if ty != value.Bool {
			return nil, cerrors.New(cerrors.TypeMismatch, "can only apply logical and to boolean type")
		}
		c.emit(insc.Insc{Op: insc.And, Lhs: lhsAddr, Rhs: rhsAddr, Dst: dst})
		return []exprVal{addrVal(value.Bool, dst)}, nil
	case ast.Or:
		if ty != value.Bool {
			return nil, cerrors.New(cerrors.TypeMismatch, "can only apply logical or to boolean type")
		}
		c.emit(insc.Insc{Op: insc.Or, Lhs: lhsAddr, Rhs: rhsAddr, Dst: dst})
		return []exprVal{addrVal(value.Bool, dst)}, nil
	default:
		return nil, cerrors.New(cerrors.InvalidOperator, "unknown binary operator")
	}
}

func (c *Context) arithmeticBinop(ty value.Ty, lhs, rhs, dst int, outTy value.Ty, intOp, floatOp insc.Opcode) ([]exprVal, error) {
	switch ty {
	case value.Int32:
		c.emit(insc.Insc{Op: intOp, Lhs: lhs, Rhs: rhs, Dst: dst})
	case value.Float32:
		c.emit(insc.Insc{Op: floatOp, Lhs: lhs, Rhs: rhs, Dst: dst})
	default:
		return nil, cerrors.New(cerrors.TypeMismatch, "unsupported type for arithmetic operator: %s", ty)
	}
	return []exprVal{addrVal(outTy, dst)}, nil
}

func (c *Context) lowerCast(n *ast.CastExpr) ([]exprVal, error) {
	operand, err := c.lowerSingle(n.X)
	if err != nil {
		return nil, err
	}
	if operand.Ty == n.Dest {
		return []exprVal{operand}, nil
	}

	if operand.IsConst {
		folded, ok := constCastFold(operand.Ty, n.Dest, operand.Const)
		if !ok {
			return nil, cerrors.New(cerrors.TypeMismatch, "cannot cast value of type %s to %s", operand.Ty, n.Dest)
		}
		return []exprVal{constVal(n.Dest, folded)}, nil
	}

	addr := c.ensureAddr(operand)
	dst := c.frame.Allocate()
	switch {
	case operand.Ty == value.Int32 && n.Dest == value.Float32:
		c.emit(insc.Insc{Op: insc.ToFloat, Src: addr, Dst: dst})
	case operand.Ty == value.Float32 && n.Dest == value.Int32:
		// Rounds (see vm.roundFloat32), unlike constCastFold's truncation
		// toward zero for the same pair — a live int(f) and a folded
		// int(f) can disagree by one. Intentional: matches the original's
		// split between its consteval truncation and its live Round
		// opcode.
		c.emit(insc.Insc{Op: insc.Round, Src: addr, Dst: dst})
	default:
		return nil, cerrors.New(cerrors.TypeMismatch, "cannot cast value of type %s to %s", operand.Ty, n.Dest)
	}
	return []exprVal{addrVal(n.Dest, dst)}, nil
}

func (c *Context) lowerAssign(n *ast.AssignExpr) ([]exprVal, error) {
	v, err := c.lowerSingle(n.Value)
	if err != nil {
		return nil, err
	}
	if err := c.assignOne(n.Name, v); err != nil {
		return nil, err
	}
	return nil, nil
}

func (c *Context) assignOne(name string, v exprVal) error {
	if addr, varTy, ok := c.frame.GetVar(name); ok {
		if varTy != v.Ty {
			return cerrors.New(cerrors.TypeMismatch,
				"cannot assign value of type %s to variable %q of type %s", v.Ty, name, varTy)
		}
		if v.IsConst {
			c.emit(insc.Insc{Op: insc.Const, Dst: addr, Value: v.Const})
		} else {
			c.emit(insc.Insc{Op: insc.Dup, Src: v.Addr, Dst: addr})
		}
		return nil
	}
	if offset, ioTy, ok := c.layout.Resolve(name); ok {
		if ioTy != v.Ty {
			return cerrors.New(cerrors.TypeMismatch,
				"cannot assign value of type %s to I/O field %q of type %s", v.Ty, name, ioTy)
		}
		addr := c.ensureAddr(v)
		c.emit(insc.Insc{Op: insc.IOSetValue, Offset: offset, Src: addr})
		return nil
	}
	return cerrors.New(cerrors.UndeclaredVariable, "variable %q is not declared", name)
}

func (c *Context) lowerMultiAssign(n *ast.MultiAssignExpr) ([]exprVal, error) {
	bundle, err := c.lowerExpr(n.Value)
	if err != nil {
		return nil, err
	}
	if len(n.Names) != len(bundle) {
		return nil, cerrors.New(cerrors.ArityMismatch,
			"cannot assign a value bundle of size %d to %d variables", len(bundle), len(n.Names))
	}
	if len(n.Names) == 0 {
		return nil, cerrors.New(cerrors.ArityMismatch, "cannot assign an empty value bundle")
	}
	for i, name := range n.Names {
		if err := c.assignOne(name, bundle[i]); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func (c *Context) lowerCall(n *ast.CallExpr) ([]exprVal, error) {
	if v, handled, err := c.lowerInlineIntrinsic(n); handled {
		if err != nil {
			return nil, err
		}
		return v, nil
	}

	args := make([]exprVal, len(n.Args))
	for i, a := range n.Args {
		v, err := c.lowerSingle(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	if sig, ok := c.funcByName.Get(n.Name); ok {
		if !sig.Defined {
			return nil, cerrors.New(cerrors.UnknownIdentifier,
				"function %q is forward-declared but never defined", n.Name)
		}
		return c.emitCall(insc.Call, sig, n.Name, args)
	}
	if sig, ok := c.ffiByName.Get(n.Name); ok {
		return c.emitCall(insc.CallFFI, sig, n.Name, args)
	}
	return nil, cerrors.New(cerrors.UnknownIdentifier, "unknown function %q", n.Name)
}

// lowerInlineIntrinsic handles floor/ceil/round: the code generator emits
// the opcode directly rather than a Call, regardless of whether a
// user-defined or FFI function of the same name also exists.
func (c *Context) lowerInlineIntrinsic(n *ast.CallExpr) ([]exprVal, bool, error) {
	var op insc.Opcode
	switch n.Name {
	case "floor":
		op = insc.Floor
	case "ceil":
		op = insc.Ceil
	case "round":
		op = insc.Round
	default:
		return nil, false, nil
	}

	if len(n.Args) != 1 {
		return nil, true, cerrors.New(cerrors.ArityMismatch, "%s() takes exactly one argument", n.Name)
	}
	arg, err := c.lowerSingle(n.Args[0])
	if err != nil {
		return nil, true, err
	}
	if arg.Ty != value.Float32 {
		return nil, true, cerrors.New(cerrors.TypeMismatch, "%s() argument must be of type float, not %s", n.Name, arg.Ty)
	}
	addr := c.ensureAddr(arg)
	dst := c.frame.Allocate()
	c.emit(insc.Insc{Op: op, Src: addr, Dst: dst})
	return []exprVal{addrVal(value.Int32, dst)}, true, nil
}

func (c *Context) emitCall(op insc.Opcode, sig *funcSig, name string, args []exprVal) ([]exprVal, error) {
	if len(args) != len(sig.Args) {
		return nil, cerrors.New(cerrors.ArityMismatch,
			"function %q takes %d arguments, not %d", name, len(sig.Args), len(args))
	}
	for i, a := range args {
		if a.Ty != sig.Args[i] {
			return nil, cerrors.New(cerrors.TypeMismatch,
				"cannot pass value of type %s to function %q argument %d of type %s", a.Ty, name, i, sig.Args[i])
		}
	}

	argAddrs := make([]int, len(args))
	for i, a := range args {
		argAddrs[i] = c.ensureAddr(a)
	}

	if len(sig.Rets) == 0 {
		c.emit(insc.Insc{Op: op, Func: sig.ID, Args: argAddrs, RetLocs: nil})
		return nil, nil
	}

	retAddrs := make([]int, len(sig.Rets))
	rets := make([]exprVal, len(sig.Rets))
	for i, retTy := range sig.Rets {
		addr := c.frame.Allocate()
		retAddrs[i] = addr
		rets[i] = addrVal(retTy, addr)
	}
	c.emit(insc.Insc{Op: op, Func: sig.ID, Args: argAddrs, RetLocs: retAddrs})
	return rets, nil
}
