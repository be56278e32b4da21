// Package cerrors defines the compiler's error stratum: a fatal,
// no-recovery CompileError for every failure a program can hit before it
// ever reaches the VM. The runtime stratum (VM-level failures) never uses
// this package — the VM does no dynamic type checking and propagates no
// FFI failures of its own.
package cerrors

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// CompileError is anything that can be reported to a user as a fatal
// compile-time failure.
type CompileError interface {
	error
	Write(w io.Writer)
}

// SyntaxError reports a malformed program at a source line. embervm's
// scope begins after tokenizing/parsing, so no code path in this module
// constructs one; it is the error type for a front end to report
// lexical/grammatical failures. Structural problems in a hand-built AST
// (e.g. a MultiAssignExpr with a names/values arity mismatch) are
// reported by codegen as a SemanticError instead.
type SyntaxError struct {
	Line    int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at line %d: %s", e.Line, e.Message)
}

func (e *SyntaxError) Write(w io.Writer) {
	fmt.Fprintf(w, "\033[31merror:\033[0m \033[34m%s\033[0m\n", e.Message)
	fmt.Fprintf(w, "--> line %d\n", e.Line)
}

// Kind identifies one of the named semantic-error categories a compile
// failure can fall into.
type Kind uint8

const (
	UnknownIdentifier Kind = iota + 1
	TypeMismatch
	ArityMismatch
	DuplicateDefinition
	SignatureMismatch
	NotAConstant
	DivisionByZero
	UndeclaredVariable
	InvalidOperator
)

func (k Kind) String() string {
	switch k {
	case UnknownIdentifier:
		return "UnknownIdentifier"
	case TypeMismatch:
		return "TypeMismatch"
	case ArityMismatch:
		return "ArityMismatch"
	case DuplicateDefinition:
		return "DuplicateDefinition"
	case SignatureMismatch:
		return "SignatureMismatch"
	case NotAConstant:
		return "NotAConstant"
	case DivisionByZero:
		return "DivisionByZero"
	case UndeclaredVariable:
		return "UndeclaredVariable"
	case InvalidOperator:
		return "InvalidOperator"
	default:
		return "UnknownKind"
	}
}

// SemanticError reports a well-formed-but-invalid program: a type
// mismatch, an unresolved name, a signature disagreement between a
// forward declaration and its definition, and so on.
type SemanticError struct {
	Kind    Kind
	Message string
	Help    string
	// Cause, when non-nil, is an underlying error this SemanticError
	// wraps — e.g. a frame lookup failure surfaced with call-site
	// context. Wrapped with github.com/pkg/errors so Write prints it
	// together with a stack trace.
	Cause error
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *SemanticError) Write(w io.Writer) {
	fmt.Fprintf(w, "\033[31merror(%s):\033[0m \033[34m%s\033[0m\n", e.Kind, e.Message)
	if e.Help != "" {
		fmt.Fprintf(w, "\033[33mhelp:\033[0m %s\n", e.Help)
	}
	if e.Cause != nil {
		fmt.Fprintf(w, "caused by: %+v\n", e.Cause)
	}
}

// New builds a SemanticError of the given kind.
func New(kind Kind, format string, args ...any) *SemanticError {
	return &SemanticError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a SemanticError of the given kind, attaching cause as a
// stack-traced wrapped error.
func Wrap(cause error, kind Kind, format string, args ...any) *SemanticError {
	return &SemanticError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Cause:   errors.Wrap(cause, kind.String()),
	}
}
