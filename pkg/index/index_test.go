package index

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"oberon-xref/pkg/model"
)

func sample() *model.Index {
	return &model.Index{
		RunID:       "6f1c1a4e-0000-4000-8000-000000000001",
		Root:        "/src",
		GeneratedAt: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC),
		Order:       []string{"BUILTINS", "SYSTEM", "A", "B"},
		Modules: []model.Module{
			{Name: "A", Path: "A.Mod", SizeBytes: 120,
				Exports:     []model.Export{{Name: "T", Kind: "type"}, {Name: "T.x", Kind: "variable"}},
				Definitions: []model.Definition{{Name: "T", Kind: "type", Line: 2, Column: 8, Exported: true}},
				Usages:      []model.Usage{{Export: "T", Module: "B", Line: 3, Column: 10}, {Export: "T.x", Module: "B", Line: 5, Column: 4}},
			},
			{Name: "B", Path: "B.Mod", Listing: true,
				Imports:     []model.Import{{Module: "A"}, {Alias: "S", Module: "SYSTEM"}},
				Definitions: []model.Definition{{Name: "v", Kind: "variable", Line: 3, Column: 7}},
			},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "index.json")
	idx := sample()
	if err := Save(path, idx); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got.Version != Version {
		t.Fatalf("version = %q, want %q", got.Version, Version)
	}
	if !reflect.DeepEqual(got, idx) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, idx)
	}
}

func TestLoadRejectsForeignVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	if err := os.WriteFile(path, []byte(`{"version":"something-else"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected version error")
	}
}

func TestSaveNilIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	if err := Save(path, nil); err != nil {
		t.Fatalf("Save(nil) returned error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("Save(nil) created a file: %v", err)
	}
}

func TestSaveSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xref.db")
	ctx := context.Background()
	// Writing twice must replace the database rather than fail on the schema.
	for i := 0; i < 2; i++ {
		if err := SaveSQLite(ctx, path, sample()); err != nil {
			t.Fatalf("SaveSQLite returned error: %v", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	counts := map[string]int{"runs": 1, "modules": 2, "imports": 2, "exports": 2, "definitions": 2, "usages": 2}
	for table, want := range counts {
		var got int
		if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&got); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if got != want {
			t.Errorf("%s has %d rows, want %d", table, got, want)
		}
	}

	var runID string
	if err := db.QueryRow("SELECT id FROM runs").Scan(&runID); err != nil {
		t.Fatalf("select run: %v", err)
	}
	if runID != sample().RunID {
		t.Errorf("run id = %q", runID)
	}

	rows, err := db.Query(`SELECT module, export FROM usages WHERE user = ? ORDER BY export`, "B")
	if err != nil {
		t.Fatalf("query usages: %v", err)
	}
	defer rows.Close()
	var got []string
	for rows.Next() {
		var module, export string
		if err := rows.Scan(&module, &export); err != nil {
			t.Fatalf("scan: %v", err)
		}
		got = append(got, module+"."+export)
	}
	if want := []string{"A.T", "A.T.x"}; !reflect.DeepEqual(got, want) {
		t.Errorf("usages of B = %v, want %v", got, want)
	}

	var position int
	if err := db.QueryRow(`SELECT position FROM modules WHERE name = 'B'`).Scan(&position); err != nil {
		t.Fatalf("select position: %v", err)
	}
	if position != 3 {
		t.Errorf("position of B = %d, want 3", position)
	}
}
