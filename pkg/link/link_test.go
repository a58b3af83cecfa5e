package link

import (
	"errors"
	"testing"

	"oberon-xref/pkg/diag"
)

func TestKind(t *testing.T) {
	cases := []struct {
		link Link
		kind Kind
	}{
		{"", None},
		{"=T.x", Definition},
		{"#T", Local},
		{"M1.html#T", External},
		{"M1-usage.html#T", Export},
		{"Files.html", ModulePage},
	}
	for _, tc := range cases {
		if got := tc.link.Kind(); got != tc.kind {
			t.Fatalf("Kind(%q)=%v want=%v", tc.link, got, tc.kind)
		}
	}
}

func TestModuleAndAnchor(t *testing.T) {
	l := Link("M1-usage.html#T.x")
	if l.Module() != "M1" || l.Anchor() != "T.x" {
		t.Fatalf("unexpected module/anchor %q/%q", l.Module(), l.Anchor())
	}
	if l.Reference() != "M1.html#T.x" {
		t.Fatalf("unexpected reference %q", l.Reference())
	}
	if ExportOf("M1.html#T") != "M1-usage.html#T" {
		t.Fatalf("unexpected export %q", ExportOf("M1.html#T"))
	}
	if Def("#T.x") != "=T.x" {
		t.Fatalf("unexpected definition %q", Def("#T.x"))
	}
}

func TestTable_SetOnce(t *testing.T) {
	table := NewTable(3)
	if err := table.Set(1, "#x"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	err := table.Set(1, "#y")
	if !errors.Is(err, diag.ErrInvariant) {
		t.Fatalf("expected invariant violation on second Set, got %v", err)
	}
	if table.At(1) != "#x" {
		t.Fatalf("first value must survive, got %q", table.At(1))
	}
	if table.At(0) != "" || table.At(7) != "" {
		t.Fatal("unset and out of range slots must be empty")
	}
}

func TestTable_RejectsPlaceholder(t *testing.T) {
	table := NewTable(1)
	if err := table.Set(0, "M.html#@@[]"); !errors.Is(err, diag.ErrInvariant) {
		t.Fatalf("expected invariant violation, got %v", err)
	}
}
