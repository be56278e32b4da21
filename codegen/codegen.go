// Package codegen lowers a hand-built ast.Program into a compiled,
// three-address instruction stream (insc.Compiled). It is a single-pass
// visitor: every expression is type-checked, constant-folded where
// possible, and emitted in the same walk — there is no separate semantic
// checking pass (see DESIGN.md for the rationale).
package codegen

import (
	"fmt"

	"github.com/dolthub/swiss"
	"github.com/pkg/errors"
	"github.com/usein-abilev/embervm/ast"
	"github.com/usein-abilev/embervm/cerrors"
	"github.com/usein-abilev/embervm/frame"
	"github.com/usein-abilev/embervm/insc"
	"github.com/usein-abilev/embervm/ioctx"
	"github.com/usein-abilev/embervm/value"
)

// exprVal is the result of lowering one expression: either a value
// already materialized in a frame slot (Addr), or a folded constant not
// yet written anywhere (Const). ensureAddr turns the latter into the
// former, deduplicating against the frame's per-scope constant cache.
type exprVal struct {
	Ty      value.Ty
	IsConst bool
	Addr    int
	Const   value.Value
}

func constVal(ty value.Ty, v value.Value) exprVal { return exprVal{Ty: ty, IsConst: true, Const: v} }
func addrVal(ty value.Ty, addr int) exprVal        { return exprVal{Ty: ty, Addr: addr} }

type funcSig struct {
	ID      int
	Args    []value.Ty
	Rets    []value.Ty
	Defined bool
}

func sameTypes(a, b []value.Ty) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type constEntry struct {
	Ty    value.Ty
	Value value.Value
}

type loopCtx struct {
	breakPatches    []int
	continuePatches []int
}

// Context is the compiler's single mutable piece of state: the frame
// allocator for whatever function is currently being lowered, the
// in-progress instruction stream, and the symbol tables (constants,
// user functions, FFI functions) shared across every function in the
// program.
type Context struct {
	layout *ioctx.Layout

	constPool  *swiss.Map[string, constEntry]
	funcByName *swiss.Map[string, *funcSig]
	ffiByName  *swiss.Map[string, *funcSig]

	frame *frame.Frame
	code  []insc.Insc
	funcs []insc.Function
	ffi   []insc.RawFunction

	curFunc *funcSig
	loops   []loopCtx
}

// New builds a Context bound to the given I/O-context layout. Pass a nil
// layout (or a Layout over an empty ioctx.Metadata) for a program that
// never touches a host I/O context.
func New(layout *ioctx.Layout) *Context {
	if layout == nil {
		layout, _ = ioctx.NewLayout(nil)
	}
	return &Context{
		layout:     layout,
		constPool:  swiss.NewMap[string, constEntry](8),
		funcByName: swiss.NewMap[string, *funcSig](8),
		ffiByName:  swiss.NewMap[string, *funcSig](8),
		frame:      frame.New(),
	}
}

// RegisterFFI binds a host-implemented function to name, with the given
// argument/return signature, assigning it the next FFI table index. Hosts
// must call this for every FFI function (including min/max) before
// compiling a program that calls it.
func (c *Context) RegisterFFI(name string, args, rets []value.Ty, fn insc.RawFunction) error {
	if _, exists := c.ffiByName.Get(name); exists {
		return cerrors.New(cerrors.DuplicateDefinition, "FFI function %q already registered", name)
	}
	id := len(c.ffi)
	c.ffi = append(c.ffi, fn)
	c.ffiByName.Put(name, &funcSig{ID: id, Args: args, Rets: rets, Defined: true})
	return nil
}

func (c *Context) emit(in insc.Insc) int {
	c.code = append(c.code, in)
	return len(c.code) - 1
}

func (c *Context) patchTarget(idx, target int) {
	c.code[idx].Target = target
}

// ensureAddr materializes v into a frame slot, emitting a Const
// instruction the first time a given constant is seen within the
// innermost scope that can see it, and reusing the cached slot on every
// later occurrence.
func (c *Context) ensureAddr(v exprVal) int {
	if !v.IsConst {
		return v.Addr
	}
	if addr, ok := c.frame.GetConst(v.Const); ok {
		return addr
	}
	addr := c.frame.PushConst(v.Const)
	c.emit(insc.Insc{Op: insc.Const, Dst: addr, Value: v.Const})
	return addr
}

// Compile lowers an entire program: constants first, then every
// function's signature (so forward references and mutual recursion both
// resolve), then every function's body.
func (c *Context) Compile(prog *ast.Program) (*insc.Compiled, error) {
	for _, cd := range prog.Consts {
		if err := c.declareConst(cd); err != nil {
			return nil, err
		}
	}

	for _, fd := range prog.Funcs {
		if err := c.declareFuncSignature(fd); err != nil {
			return nil, err
		}
	}

	for _, fd := range prog.Funcs {
		if fd.Body == nil {
			continue
		}
		if err := c.lowerFuncBody(fd); err != nil {
			return nil, err
		}
	}

	return &insc.Compiled{Code: c.code, Func: c.funcs, FFI: c.ffi}, nil
}

func (c *Context) declareConst(cd *ast.ConstDecl) error {
	if _, exists := c.constPool.Get(cd.Name); exists {
		return cerrors.New(cerrors.DuplicateDefinition, "constant %q already declared", cd.Name)
	}
	v, err := c.constEval(cd.Value)
	if err != nil {
		return cerrors.Wrap(err, cerrors.NotAConstant, "const %q initializer is not a compile-time constant", cd.Name)
	}
	c.constPool.Put(cd.Name, constEntry{Ty: v.Ty, Value: v.Const})
	return nil
}

func paramTypes(params []ast.Param) []value.Ty {
	out := make([]value.Ty, len(params))
	for i, p := range params {
		out[i] = p.Ty
	}
	return out
}

func (c *Context) declareFuncSignature(fd *ast.FuncDecl) error {
	args := paramTypes(fd.Params)
	existing, seen := c.funcByName.Get(fd.Name)
	if !seen {
		sig := &funcSig{ID: len(c.funcs), Args: args, Rets: fd.Returns, Defined: fd.Body != nil}
		c.funcByName.Put(fd.Name, sig)
		c.funcs = append(c.funcs, insc.Function{Name: fd.Name, Addr: -1, NumArgs: len(fd.Params)})
		return nil
	}

	if !sameTypes(existing.Args, args) || !sameTypes(existing.Rets, fd.Returns) {
		return cerrors.New(cerrors.SignatureMismatch,
			"function %q redeclared with a different signature than its forward declaration", fd.Name)
	}
	if fd.Body != nil {
		if existing.Defined {
			return cerrors.New(cerrors.DuplicateDefinition, "function %q already defined", fd.Name)
		}
		existing.Defined = true
	}
	return nil
}

func (c *Context) lowerFuncBody(fd *ast.FuncDecl) error {
	sig, _ := c.funcByName.Get(fd.Name)
	c.curFunc = sig
	c.frame.Clear()
	// No decl-counting pre-pass over the body to size this part up front;
	// PushVar/Allocate grow it incrementally instead. The high-water mark
	// ends up identical either way.
	c.frame.PushPart(0)
	for _, p := range fd.Params {
		c.frame.PushVar(p.Name, p.Ty)
	}

	addr := len(c.code)
	if err := c.lowerBlock(fd.Body); err != nil {
		return errors.Wrapf(err, "in function %q", fd.Name)
	}
	c.frame.PopPart()

	c.funcs[sig.ID] = insc.Function{
		Name:      fd.Name,
		Addr:      addr,
		FrameSize: c.frame.MaxSize(),
		CodeLen:   len(c.code) - addr,
		NumArgs:   len(fd.Params),
	}
	c.curFunc = nil
	return nil
}
