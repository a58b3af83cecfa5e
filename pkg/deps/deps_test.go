package deps

import (
	"reflect"
	"testing"

	"oberon-xref/pkg/model"
)

func program() *model.Index {
	return &model.Index{
		Root: "/src",
		Modules: []model.Module{
			{Name: "BUILTINS", Builtin: true},
			{Name: "SYSTEM", Builtin: true},
			{Name: "Kernel", Imports: []model.Import{{Alias: "SYSTEM", Module: "SYSTEM"}}},
			{Name: "Files", Imports: []model.Import{{Alias: "Kernel", Module: "Kernel"}, {Alias: "SYSTEM", Module: "SYSTEM"}}},
			{Name: "Modules", Imports: []model.Import{{Alias: "SYSTEM", Module: "SYSTEM"}, {Alias: "Files", Module: "Files"}}},
			{Name: "Texts", Imports: []model.Import{{Alias: "Files", Module: "Files"}, {Alias: "K", Module: "Kernel"}}},
			{Name: "Oberon", Imports: []model.Import{{Alias: "Modules", Module: "Modules"}, {Alias: "Texts", Module: "Texts"}}},
		},
	}
}

func TestBuildMetrics(t *testing.T) {
	report, err := Build(program(), Options{Top: 2, IncludeEdges: true})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if report.NodeCount != 5 {
		t.Fatalf("NodeCount = %d, want 5", report.NodeCount)
	}
	if report.EdgeCount != 6 || report.BuiltinEdges != 0 {
		t.Fatalf("edges = %d (builtin %d), want 6 (0)", report.EdgeCount, report.BuiltinEdges)
	}
	if got := report.TopIncoming[0]; got.Node != "Files" || got.Incoming != 2 {
		t.Fatalf("top incoming = %+v", got)
	}
	if len(report.TopOutgoing) != 2 || report.TopOutgoing[0].Node != "Oberon" {
		t.Fatalf("top outgoing = %+v", report.TopOutgoing)
	}
	if report.Edges[5].Alias != "K" {
		t.Fatalf("edge alias = %+v", report.Edges[5])
	}
}

func TestBuildLayers(t *testing.T) {
	report, err := Build(program(), Options{})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	want := [][]string{{"Kernel"}, {"Files"}, {"Modules", "Texts"}, {"Oberon"}}
	if !reflect.DeepEqual(report.Layers, want) {
		t.Fatalf("layers = %v, want %v", report.Layers, want)
	}
	if report.Cyclic != nil {
		t.Fatalf("cyclic = %v", report.Cyclic)
	}

	withBuiltins, err := Build(program(), Options{IncludeBuiltins: true})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if got := withBuiltins.Layers[0]; !reflect.DeepEqual(got, []string{"BUILTINS", "SYSTEM"}) {
		t.Fatalf("first layer with builtins = %v", got)
	}
	if withBuiltins.BuiltinEdges != 3 {
		t.Fatalf("builtin edges = %d, want 3", withBuiltins.BuiltinEdges)
	}
}

func TestBuildFocus(t *testing.T) {
	report, err := Build(program(), Options{Focus: "Oberon", Depth: 2})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if !reflect.DeepEqual(report.FocusOutgoing, []string{"Modules", "Texts"}) {
		t.Fatalf("focus outgoing = %v", report.FocusOutgoing)
	}
	if !reflect.DeepEqual(report.FocusWalk, []string{"Modules", "Texts", "Files", "Kernel"}) {
		t.Fatalf("focus walk = %v", report.FocusWalk)
	}

	reverse, err := Build(program(), Options{Focus: "Kernel", Depth: 5, Reverse: true})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if reverse.FocusDirection != "reverse" {
		t.Fatalf("direction = %q", reverse.FocusDirection)
	}
	if !reflect.DeepEqual(reverse.FocusWalk, []string{"Files", "Texts", "Modules", "Oberon"}) {
		t.Fatalf("reverse walk = %v", reverse.FocusWalk)
	}

	if _, err := Build(program(), Options{Focus: "Missing"}); err == nil {
		t.Fatal("expected error for unknown focus module")
	}
}

func TestBuildCycle(t *testing.T) {
	idx := &model.Index{Modules: []model.Module{
		{Name: "A", Imports: []model.Import{{Module: "B"}}},
		{Name: "B", Imports: []model.Import{{Module: "A"}}},
		{Name: "C"},
	}}
	report, err := Build(idx, Options{})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if !reflect.DeepEqual(report.Layers, [][]string{{"C"}}) || !reflect.DeepEqual(report.Cyclic, []string{"A", "B"}) {
		t.Fatalf("layers = %v cyclic = %v", report.Layers, report.Cyclic)
	}
}
