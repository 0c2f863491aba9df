// Package errors defines the error kinds that cross the boundary
// between the runtime and its host: results the compiler front-end and
// the embedding API hand back to a caller instead of raising an
// in-language exception. These values are delivered through the host
// error callback and never become a catchable `except` in J* code.
package errors

import "fmt"

// JStarError is the interface implemented by all host-facing errors.
type JStarError interface {
	error
	Pos() Position
	Kind() string // "Syntax", "Compile", "Runtime", "Import"
	Message() string
}

// SyntaxError represents an error during lexing or parsing. The runtime
// core never produces one itself (the front-end is out of scope); a
// front-end can pass its Kind() and Error() strings to the embedding
// API's error callback, the same channel the VM reports through.
type SyntaxError struct {
	Position
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("Syntax Error at %d:%d: %s", e.Line, e.Column, e.Msg)
}
func (e *SyntaxError) Pos() Position   { return e.Position }
func (e *SyntaxError) Kind() string    { return "Syntax" }
func (e *SyntaxError) Message() string { return e.Msg }

// CompileError represents a failure turning a parsed unit into bytecode
// (malformed constant pool, bad jump target, etc).
type CompileError struct {
	Position
	Msg string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("Compile Error at %d:%d: %s", e.Line, e.Column, e.Msg)
}
func (e *CompileError) Pos() Position   { return e.Position }
func (e *CompileError) Kind() string    { return "Compile" }
func (e *CompileError) Message() string { return e.Msg }

// RuntimeError wraps an exception that escaped the outermost frame of
// an Eval call, carrying the class name, message and rendered
// stack-trace lines for the host error callback.
type RuntimeError struct {
	Position
	Class      string
	Msg        string
	StackTrace []string
}

func (e *RuntimeError) Error() string {
	if e.Class != "" {
		return fmt.Sprintf("%s: %s", e.Class, e.Msg)
	}
	return fmt.Sprintf("Runtime Error at %d:%d: %s", e.Line, e.Column, e.Msg)
}
func (e *RuntimeError) Pos() Position   { return e.Position }
func (e *RuntimeError) Kind() string    { return "Runtime" }
func (e *RuntimeError) Message() string { return e.Msg }

// ImportError reports a module that could not be resolved or compiled.
// In-language this surfaces as an ImportException (see pkg/vm); this type
// is for failures the host asks about directly (e.g. AddImportPath
// misuse) rather than ones raised during bytecode execution.
type ImportError struct {
	Position
	Module string
	Msg    string
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("cannot import %q: %s", e.Module, e.Msg)
}
func (e *ImportError) Pos() Position   { return e.Position }
func (e *ImportError) Kind() string    { return "Import" }
func (e *ImportError) Message() string { return e.Msg }
