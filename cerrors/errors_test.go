package cerrors

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSemanticErrorMessage(t *testing.T) {
	err := New(TypeMismatch, "expected %s, got %s", "int", "float")
	require.Equal(t, "TypeMismatch: expected int, got float", err.Error())
}

func TestSemanticErrorWrite(t *testing.T) {
	err := New(ArityMismatch, "swap expects 2 arguments, got 1")
	var buf bytes.Buffer
	err.Write(&buf)
	require.Contains(t, buf.String(), "ArityMismatch")
	require.Contains(t, buf.String(), "swap expects 2 arguments")
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("frame slot not found")
	err := Wrap(cause, UndeclaredVariable, "identifier %q is not bound", "x")
	require.Error(t, err)
	require.Contains(t, err.Error(), "UndeclaredVariable")

	var buf bytes.Buffer
	err.Write(&buf)
	require.Contains(t, buf.String(), "frame slot not found")
}

func TestSyntaxErrorMessage(t *testing.T) {
	err := &SyntaxError{Line: 12, Message: "names/values arity mismatch"}
	require.Equal(t, "syntax error at line 12: names/values arity mismatch", err.Error())
}
