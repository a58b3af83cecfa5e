package diag

import (
	"errors"
	"fmt"
	"testing"
)

func TestAtWrapsKindErrors(t *testing.T) {
	err := At(fmt.Errorf("%w: Foo", ErrUnknownIdentifier), 7)
	var de *Error
	if !errors.As(err, &de) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if de.Pos != 7 || de.Msg != "Foo" || !errors.Is(err, ErrUnknownIdentifier) {
		t.Fatalf("unexpected error: %+v", de)
	}
	if err.Error() != "unknown identifier: Foo" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestAtKeepsExistingPosition(t *testing.T) {
	inner := Errorf(ErrDuplicateName, 3, "x")
	if got := Position(At(fmt.Errorf("decl: %w", inner), 9)); got != 3 {
		t.Fatalf("expected position 3, got %d", got)
	}

	unplaced := Errorf(ErrSyntax, -1, "expected ;")
	if got := Position(At(unplaced, 4)); got != 4 {
		t.Fatalf("expected position 4, got %d", got)
	}
}

func TestAtDefaultsToSyntax(t *testing.T) {
	err := At(errors.New("unexpected token"), 0)
	if KindOf(err) != ErrSyntax {
		t.Fatalf("expected syntax kind, got %v", KindOf(err))
	}
	if At(nil, 1) != nil {
		t.Fatal("expected nil for nil error")
	}
	if Position(errors.New("plain")) != -1 {
		t.Fatal("expected -1 for plain errors")
	}
}

func TestBareKindMessage(t *testing.T) {
	err := At(ErrNameMismatch, 2)
	if err.Error() != "name mismatch" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
