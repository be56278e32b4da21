// Package ast defines the node shapes the code generator walks. It is a
// data contract only — tokenizing source text and building these nodes
// is the job of an external front end outside this module's scope; tests
// in this module build programs by hand.
package ast

import "github.com/usein-abilev/embervm/value"

// BinaryOp enumerates the binary operators a BinaryExpr can carry.
type BinaryOp uint8

const (
	Add BinaryOp = iota
	Sub
	Mul
	Div
	Mod
	Eq
	Ne
	Lt
	Le
	Gt
	Ge
	And
	Or
)

// UnaryOp enumerates the unary operators a UnaryExpr can carry.
type UnaryOp uint8

const (
	Negate UnaryOp = iota
	Not
)

// Program is the root node: an unordered set of constant and function
// declarations.
type Program struct {
	Consts []*ConstDecl
	Funcs  []*FuncDecl
}

// ConstDecl binds name to a compile-time-constant expression; "const"
// declarations only ever hold foldable literals/expressions.
type ConstDecl struct {
	Name  string
	Value Expr
}

// Param is one function parameter: its static type and its name.
type Param struct {
	Ty   value.Ty
	Name string
}

// FuncDecl is a function declaration or definition. Body is nil for a
// forward declaration (a prototype with no implementation yet). A later
// FuncDecl with the same Name must agree with it exactly, or codegen
// reports SignatureMismatch at that declaration; a forward declaration
// that is never defined is an UnknownIdentifier at any call to it.
type FuncDecl struct {
	Name    string
	Params  []Param
	Returns []value.Ty
	Body    *BlockStmt // nil for a forward declaration
}

// Stmt is any statement node.
type Stmt interface{ stmtNode() }

// Expr is any expression node.
type Expr interface{ exprNode() }

// BlockStmt is an ordered sequence of statements forming one lexical
// scope.
type BlockStmt struct {
	Stmts []Stmt
}

func (*BlockStmt) stmtNode() {}

// VarDeclStmt declares a local variable, optionally with a type
// annotation and/or an initializer. At least one of Ty, Init must be
// present so the declared type can be determined.
type VarDeclStmt struct {
	Ty   *value.Ty // nil if inferred from Init
	Name string
	Init Expr // nil if no initializer
}

func (*VarDeclStmt) stmtNode() {}

// ExprStmt evaluates an expression for its side effect and discards any
// result.
type ExprStmt struct {
	X Expr
}

func (*ExprStmt) stmtNode() {}

// IfStmt is a conditional; Else is nil when there is no else-branch.
type IfStmt struct {
	Cond Expr
	Then Stmt
	Else Stmt
}

func (*IfStmt) stmtNode() {}

// WhileStmt is a condition-checked-first loop.
type WhileStmt struct {
	Cond Expr
	Body Stmt
}

func (*WhileStmt) stmtNode() {}

// ForStmt is a C-style three-clause loop; any clause may be nil.
type ForStmt struct {
	Init Expr
	Cond Expr
	Step Expr
	Body Stmt
}

func (*ForStmt) stmtNode() {}

// BreakStmt exits the innermost enclosing loop.
type BreakStmt struct{}

func (*BreakStmt) stmtNode() {}

// ContinueStmt jumps to the next iteration of the innermost enclosing
// loop.
type ContinueStmt struct{}

func (*ContinueStmt) stmtNode() {}

// ReturnStmt returns zero, one, or many values from the current
// function. A multi-value return (as in "return [a, b]") is just a
// Values slice with more than one element — each is typically an Ident
// referring to an already-bound local, but any expression is legal.
type ReturnStmt struct {
	Values []Expr
}

func (*ReturnStmt) stmtNode() {}

// YieldStmt suspends execution at this point, returning control to the
// host until the host resumes the program from here.
type YieldStmt struct{}

func (*YieldStmt) stmtNode() {}

// Ident is a bare identifier: a local variable, a named constant, or an
// I/O-context field, resolved in that order by the code generator.
type Ident struct {
	Name string
}

func (*Ident) exprNode() {}

// IntLit is an Int32 literal.
type IntLit struct {
	Value int32
}

func (*IntLit) exprNode() {}

// FloatLit is a Float32 literal.
type FloatLit struct {
	Value float32
}

func (*FloatLit) exprNode() {}

// BoolLit is a Bool literal.
type BoolLit struct {
	Value bool
}

func (*BoolLit) exprNode() {}

// ParenExpr is a parenthesized sub-expression; it exists only to let a
// hand-built AST mirror source-level grouping, it has no effect on
// lowering beyond forwarding to X.
type ParenExpr struct {
	X Expr
}

func (*ParenExpr) exprNode() {}

// UnaryExpr applies Op to X.
type UnaryExpr struct {
	Op UnaryOp
	X  Expr
}

func (*UnaryExpr) exprNode() {}

// BinaryExpr applies Op to Lhs and Rhs; both operands must agree in
// static type.
type BinaryExpr struct {
	Op       BinaryOp
	Lhs, Rhs Expr
}

func (*BinaryExpr) exprNode() {}

// CastExpr requests a static type conversion of X to Dest.
type CastExpr struct {
	Dest value.Ty
	X    Expr
}

func (*CastExpr) exprNode() {}

// AssignExpr assigns Value to the single already-declared local or
// I/O-context field named Name.
type AssignExpr struct {
	Name  string
	Value Expr
}

func (*AssignExpr) exprNode() {}

// MultiAssignExpr assigns the elements of a multi-valued Value (the
// result of a multi-return call) to Names in order.
type MultiAssignExpr struct {
	Names []string
	Value Expr
}

func (*MultiAssignExpr) exprNode() {}

// CallExpr invokes one of the inline-intrinsic built-ins (floor/ceil/round),
// a user-defined function, or an FFI-registered host function, resolved
// by the code generator in that order.
type CallExpr struct {
	Name string
	Args []Expr
}

func (*CallExpr) exprNode() {}
