package stats

import (
	"testing"

	"oberon-xref/pkg/model"
)

func index() *model.Index {
	return &model.Index{
		Root: "/src",
		Modules: []model.Module{
			{Name: "BUILTINS", Builtin: true, Definitions: []model.Definition{{Name: "INTEGER", Kind: "type"}}},
			{
				Name: "Files", SizeBytes: 300, Listing: true,
				Exports: []model.Export{{Name: "File", Kind: "type"}, {Name: "Old", Kind: "procedure"}},
				Definitions: []model.Definition{
					{Name: "File", Kind: "type"},
					{Name: "Old", Kind: "procedure"},
					{Name: "Old.name", Kind: "variable"},
				},
				Usages: []model.Usage{
					{Export: "File", Module: "Texts"},
					{Export: "Old", Module: "Texts"},
					{Export: "Old", Module: "Oberon"},
				},
			},
			{
				Name: "Texts", SizeBytes: 200,
				Imports:     []model.Import{{Module: "Files"}},
				Definitions: []model.Definition{{Name: "T", Kind: "variable"}},
			},
		},
	}
}

func TestBuildAggregatesCounts(t *testing.T) {
	report, err := Build(index(), Options{TopModules: 1})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if report.ModuleCount != 2 || report.DefinitionCount != 4 || report.ExportCount != 2 || report.UsageCount != 3 {
		t.Fatalf("unexpected totals: %+v", report)
	}
	if report.ListingCount != 1 || report.SizeBytes != 500 {
		t.Fatalf("unexpected listing/size totals: %+v", report)
	}
	if len(report.KindCounts) != 3 || report.KindCounts[0] != (KindCount{Kind: "variable", Count: 2}) {
		t.Fatalf("unexpected kind counts: %+v", report.KindCounts)
	}
	if len(report.TopModules) != 1 {
		t.Fatalf("expected 1 top module, got %d", len(report.TopModules))
	}
	top := report.TopModules[0]
	if top.Module != "Files" || top.UsedBy != 2 || top.Usages != 3 {
		t.Fatalf("unexpected top module: %+v", top)
	}
}

func TestBuildIncludeBuiltins(t *testing.T) {
	report, err := Build(index(), Options{IncludeBuiltins: true})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if report.ModuleCount != 3 || len(report.TopModules) != 3 {
		t.Fatalf("builtins not included: %+v", report)
	}
}

func TestBuildNilIndex(t *testing.T) {
	if _, err := Build(nil, Options{}); err == nil {
		t.Fatal("expected error for nil index")
	}
}
