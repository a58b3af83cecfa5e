// Package diag defines the error kinds reported while scanning and resolving
// Oberon modules.
package diag

import (
	"errors"
	"fmt"
)

var (
	ErrLexical              = errors.New("lexical error")
	ErrSyntax               = errors.New("syntax error")
	ErrDuplicateName        = errors.New("duplicate name")
	ErrUnknownIdentifier    = errors.New("unknown identifier")
	ErrUnsatisfiableImports = errors.New("unsatisfiable imports")
	ErrInvariant            = errors.New("invariant violation")
	ErrNameMismatch         = errors.New("name mismatch")
)

var kinds = []error{
	ErrLexical,
	ErrSyntax,
	ErrDuplicateName,
	ErrUnknownIdentifier,
	ErrUnsatisfiableImports,
	ErrInvariant,
	ErrNameMismatch,
}

// Error is a positioned failure. Pos is the index of the offending token in
// the stream the reporter was working on, or -1 when unknown.
type Error struct {
	Kind error
	Msg  string
	Pos  int
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Msg
}

func (e *Error) Unwrap() error { return e.Kind }

// Errorf builds an *Error of the given kind.
func Errorf(kind error, pos int, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Pos: pos}
}

// At returns err positioned at pos. Errors that already carry a position keep
// it; plain kind errors are wrapped.
func At(err error, pos int) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		if de.Pos < 0 {
			de.Pos = pos
		}
		return err
	}
	kind := KindOf(err)
	if kind == nil {
		kind = ErrSyntax
	}
	return &Error{Kind: kind, Msg: trimKind(err, kind), Pos: pos}
}

// KindOf returns the sentinel kind wrapped by err, or nil.
func KindOf(err error) error {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// Position returns the token position carried by err, or -1.
func Position(err error) int {
	var de *Error
	if errors.As(err, &de) {
		return de.Pos
	}
	return -1
}

func trimKind(err, kind error) string {
	msg := err.Error()
	prefix := kind.Error() + ": "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	if msg == kind.Error() {
		return ""
	}
	return msg
}
