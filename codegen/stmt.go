package codegen

import (
	"github.com/usein-abilev/embervm/ast"
	"github.com/usein-abilev/embervm/cerrors"
	"github.com/usein-abilev/embervm/insc"
	"github.com/usein-abilev/embervm/value"
)

func (c *Context) lowerBlock(b *ast.BlockStmt) error {
	c.frame.PushPart(0)
	defer c.frame.PopPart()
	for _, s := range b.Stmts {
		if err := c.lowerStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) lowerStmt(s ast.Stmt) error {
	switch n := s.(type) {
	case *ast.BlockStmt:
		return c.lowerBlock(n)
	case *ast.ExprStmt:
		_, err := c.lowerExpr(n.X)
		return err
	case *ast.VarDeclStmt:
		return c.lowerVarDecl(n)
	case *ast.IfStmt:
		return c.lowerIf(n)
	case *ast.WhileStmt:
		return c.lowerWhile(n)
	case *ast.ForStmt:
		return c.lowerFor(n)
	case *ast.BreakStmt:
		return c.lowerBreak()
	case *ast.ContinueStmt:
		return c.lowerContinue()
	case *ast.ReturnStmt:
		return c.lowerReturn(n)
	case *ast.YieldStmt:
		c.emit(insc.Insc{Op: insc.Yield})
		return nil
	default:
		return cerrors.New(cerrors.InvalidOperator, "unsupported statement node %T", s)
	}
}

func (c *Context) lowerVarDecl(n *ast.VarDeclStmt) error {
	var init *exprVal
	if n.Init != nil {
		v, err := c.lowerSingle(n.Init)
		if err != nil {
			return err
		}
		init = &v
	}

	ty := value.Ty(0)
	switch {
	case n.Ty != nil:
		ty = *n.Ty
		if init != nil && init.Ty != ty {
			return cerrors.New(cerrors.TypeMismatch,
				"cannot initialize variable %q of type %s with a value of type %s", n.Name, ty, init.Ty)
		}
	case init != nil:
		ty = init.Ty
	default:
		return cerrors.New(cerrors.TypeMismatch, "variable %q has neither a type annotation nor an initializer", n.Name)
	}

	addr := c.frame.PushVar(n.Name, ty)
	if init != nil {
		if init.IsConst {
			c.emit(insc.Insc{Op: insc.Const, Dst: addr, Value: init.Const})
		} else {
			c.emit(insc.Insc{Op: insc.Dup, Src: init.Addr, Dst: addr})
		}
	} else {
		c.emit(insc.Insc{Op: insc.Const, Dst: addr, Value: value.Zero(ty)})
	}
	return nil
}

func (c *Context) lowerCond(cond ast.Expr) (int, error) {
	v, err := c.lowerSingle(cond)
	if err != nil {
		return 0, err
	}
	if v.Ty != value.Bool {
		return 0, cerrors.New(cerrors.TypeMismatch, "condition must be of type bool, got %s", v.Ty)
	}
	return c.ensureAddr(v), nil
}

// lowerIf emits:
//
//	jmpif cond, THEN
//	<else branch, if any>
//	jmp END
//	THEN: <then branch>
//	END:
func (c *Context) lowerIf(n *ast.IfStmt) error {
	condAddr, err := c.lowerCond(n.Cond)
	if err != nil {
		return err
	}
	jmpIfIdx := c.emit(insc.Insc{Op: insc.JmpIf, Check: condAddr})

	if n.Else != nil {
		if err := c.lowerStmt(n.Else); err != nil {
			return err
		}
	}
	jmpEndIdx := c.emit(insc.Insc{Op: insc.Jmp})

	c.patchTarget(jmpIfIdx, len(c.code))
	if err := c.lowerStmt(n.Then); err != nil {
		return err
	}
	c.patchTarget(jmpEndIdx, len(c.code))
	return nil
}

// lowerWhile emits:
//
//	START: <cond>
//	jmpif cond, BODY
//	jmp END
//	BODY: <body>
//	jmp START
//	END:
func (c *Context) lowerWhile(n *ast.WhileStmt) error {
	start := len(c.code)
	condAddr, err := c.lowerCond(n.Cond)
	if err != nil {
		return err
	}
	jmpIfIdx := c.emit(insc.Insc{Op: insc.JmpIf, Check: condAddr})
	jmpEndIdx := c.emit(insc.Insc{Op: insc.Jmp})
	c.patchTarget(jmpIfIdx, len(c.code))

	c.loops = append(c.loops, loopCtx{})
	if err := c.lowerStmt(n.Body); err != nil {
		return err
	}
	loop := c.loops[len(c.loops)-1]
	c.loops = c.loops[:len(c.loops)-1]

	continueTarget := len(c.code)
	c.emit(insc.Insc{Op: insc.Jmp, Target: start})
	end := len(c.code)
	c.patchTarget(jmpEndIdx, end)
	for _, idx := range loop.breakPatches {
		c.patchTarget(idx, end)
	}
	for _, idx := range loop.continuePatches {
		c.patchTarget(idx, continueTarget)
	}
	return nil
}

// lowerFor lowers a C-style three-clause loop. continue jumps to the
// step clause (run before the condition is re-checked), matching the
// usual for-loop semantics.
func (c *Context) lowerFor(n *ast.ForStmt) error {
	if n.Init != nil {
		if _, err := c.lowerExpr(n.Init); err != nil {
			return err
		}
	}

	start := len(c.code)
	var jmpIfIdx, jmpEndIdx int
	hasCond := n.Cond != nil
	if hasCond {
		condAddr, err := c.lowerCond(n.Cond)
		if err != nil {
			return err
		}
		jmpIfIdx = c.emit(insc.Insc{Op: insc.JmpIf, Check: condAddr})
		jmpEndIdx = c.emit(insc.Insc{Op: insc.Jmp})
		c.patchTarget(jmpIfIdx, len(c.code))
	}

	c.loops = append(c.loops, loopCtx{})
	if err := c.lowerStmt(n.Body); err != nil {
		return err
	}
	loop := c.loops[len(c.loops)-1]
	c.loops = c.loops[:len(c.loops)-1]

	stepAddr := len(c.code)
	if n.Step != nil {
		if _, err := c.lowerExpr(n.Step); err != nil {
			return err
		}
	}
	c.emit(insc.Insc{Op: insc.Jmp, Target: start})
	end := len(c.code)
	if hasCond {
		c.patchTarget(jmpEndIdx, end)
	}
	for _, idx := range loop.breakPatches {
		c.patchTarget(idx, end)
	}
	for _, idx := range loop.continuePatches {
		c.patchTarget(idx, stepAddr)
	}
	return nil
}

func (c *Context) lowerBreak() error {
	if len(c.loops) == 0 {
		return cerrors.New(cerrors.InvalidOperator, "break statement outside of a loop")
	}
	idx := c.emit(insc.Insc{Op: insc.Jmp})
	top := len(c.loops) - 1
	c.loops[top].breakPatches = append(c.loops[top].breakPatches, idx)
	return nil
}

func (c *Context) lowerContinue() error {
	if len(c.loops) == 0 {
		return cerrors.New(cerrors.InvalidOperator, "continue statement outside of a loop")
	}
	idx := c.emit(insc.Insc{Op: insc.Jmp})
	top := len(c.loops) - 1
	c.loops[top].continuePatches = append(c.loops[top].continuePatches, idx)
	return nil
}

func (c *Context) lowerReturn(n *ast.ReturnStmt) error {
	if c.curFunc == nil {
		return cerrors.New(cerrors.InvalidOperator, "return statement outside of a function")
	}
	if len(n.Values) != len(c.curFunc.Rets) {
		return cerrors.New(cerrors.ArityMismatch,
			"function returns %d value(s), not %d", len(c.curFunc.Rets), len(n.Values))
	}

	addrs := make([]int, len(n.Values))
	for i, v := range n.Values {
		ev, err := c.lowerSingle(v)
		if err != nil {
			return err
		}
		if ev.Ty != c.curFunc.Rets[i] {
			return cerrors.New(cerrors.TypeMismatch,
				"return value %d has type %s, expected %s", i, ev.Ty, c.curFunc.Rets[i])
		}
		addrs[i] = c.ensureAddr(ev)
	}
	c.emit(insc.Insc{Op: insc.Return, Rets: addrs})
	return nil
}
