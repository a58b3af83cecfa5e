package model

import (
	"reflect"
	"testing"
)

func sample() *Index {
	return &Index{
		Modules: []Module{
			{
				Name:    "B",
				Imports: []Import{{Module: "A"}, {Alias: "S", Module: "SYSTEM"}},
				Definitions: []Definition{
					{Name: "y", Kind: "variable", Line: 4, Column: 3},
					{Name: "x", Kind: "variable", Line: 3, Column: 7},
				},
			},
			{
				Name:    "A",
				Exports: []Export{{Name: "T.x", Kind: "variable"}, {Name: "T", Kind: "type"}},
				Definitions: []Definition{
					{Name: "T", Kind: "type", Line: 2, Column: 8, Exported: true},
				},
				Usages: []Usage{
					{Export: "T.x", Module: "B", Line: 9, Column: 1},
					{Export: "T", Module: "B", Line: 3, Column: 10},
					{Export: "T", Module: "B", Line: 2, Column: 4},
				},
			},
		},
	}
}

func TestIndexCounts(t *testing.T) {
	idx := sample()
	if got := idx.ModuleCount(); got != 2 {
		t.Errorf("ModuleCount() = %d, want 2", got)
	}
	if got := idx.ExportCount(); got != 2 {
		t.Errorf("ExportCount() = %d, want 2", got)
	}
	if got := idx.DefinitionCount(); got != 3 {
		t.Errorf("DefinitionCount() = %d, want 3", got)
	}
	if got := idx.UsageCount(); got != 3 {
		t.Errorf("UsageCount() = %d, want 3", got)
	}
}

func TestIndexNilSafety(t *testing.T) {
	var idx *Index
	if idx.ModuleCount() != 0 || idx.ExportCount() != 0 || idx.DefinitionCount() != 0 || idx.UsageCount() != 0 {
		t.Fatal("nil index reported non-zero counts")
	}
	if _, ok := idx.Module("A"); ok {
		t.Fatal("nil index found a module")
	}
	idx.Sort()
}

func TestIndexSort(t *testing.T) {
	idx := sample()
	idx.Sort()

	if idx.Modules[0].Name != "A" || idx.Modules[1].Name != "B" {
		t.Fatalf("modules not sorted: %s, %s", idx.Modules[0].Name, idx.Modules[1].Name)
	}
	a := idx.Modules[0]
	if a.Exports[0].Name != "T" {
		t.Errorf("exports not sorted: %+v", a.Exports)
	}
	wantLines := []int{2, 3, 9}
	var lines []int
	for _, u := range a.Usages {
		lines = append(lines, u.Line)
	}
	if !reflect.DeepEqual(lines, wantLines) {
		t.Errorf("usage lines = %v, want %v", lines, wantLines)
	}
	if b := idx.Modules[1]; b.Definitions[0].Name != "x" {
		t.Errorf("definitions not in source order: %+v", b.Definitions)
	}
}

func TestModuleLookup(t *testing.T) {
	idx := sample()
	m, ok := idx.Module("B")
	if !ok {
		t.Fatal("module B not found")
	}
	if got := m.ImportNames(); !reflect.DeepEqual(got, []string{"A", "SYSTEM"}) {
		t.Errorf("ImportNames() = %v", got)
	}
	m.Path = "B.Mod"
	if idx.Modules[0].Path != "B.Mod" {
		t.Error("Module() did not return a pointer into the index")
	}
}
