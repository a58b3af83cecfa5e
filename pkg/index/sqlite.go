package index

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"oberon-xref/pkg/model"
)

const schema = `
CREATE TABLE runs (
	id           TEXT PRIMARY KEY,
	version      TEXT NOT NULL,
	root         TEXT NOT NULL,
	generated_at TEXT NOT NULL
);
CREATE TABLE modules (
	name       TEXT PRIMARY KEY,
	path       TEXT,
	builtin    INTEGER NOT NULL,
	size_bytes INTEGER NOT NULL,
	listing    INTEGER NOT NULL,
	position   INTEGER NOT NULL
);
CREATE TABLE imports (
	module TEXT NOT NULL REFERENCES modules(name),
	alias  TEXT,
	target TEXT NOT NULL,
	seq    INTEGER NOT NULL
);
CREATE TABLE exports (
	module TEXT NOT NULL REFERENCES modules(name),
	name   TEXT NOT NULL,
	kind   TEXT NOT NULL,
	PRIMARY KEY (module, name)
);
CREATE TABLE definitions (
	module   TEXT NOT NULL REFERENCES modules(name),
	name     TEXT NOT NULL,
	kind     TEXT NOT NULL,
	line     INTEGER NOT NULL,
	col      INTEGER NOT NULL,
	exported INTEGER NOT NULL
);
CREATE TABLE usages (
	module    TEXT NOT NULL REFERENCES modules(name),
	export    TEXT NOT NULL,
	user      TEXT NOT NULL,
	line      INTEGER NOT NULL,
	col       INTEGER NOT NULL
);
CREATE INDEX usages_by_user ON usages(user);
`

// SaveSQLite writes idx into a fresh SQLite database at path, replacing any
// existing file.
func SaveSQLite(ctx context.Context, path string, idx *model.Index) error {
	if idx == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove previous database: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := insertAll(ctx, tx, idx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func insertAll(ctx context.Context, tx *sql.Tx, idx *model.Index) error {
	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	version := idx.Version
	if version == "" {
		version = Version
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO runs VALUES (?, ?, ?, ?)`,
		idx.RunID, version, idx.Root, idx.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z")); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	position := map[string]int{}
	for i, name := range idx.Order {
		position[name] = i
	}
	for _, m := range idx.Modules {
		pos, ok := position[m.Name]
		if !ok {
			pos = -1
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO modules VALUES (?, ?, ?, ?, ?, ?)`,
			m.Name, m.Path, m.Builtin, m.SizeBytes, m.Listing, pos); err != nil {
			return fmt.Errorf("insert module %s: %w", m.Name, err)
		}
		for seq, imp := range m.Imports {
			if _, err := tx.ExecContext(ctx, `INSERT INTO imports VALUES (?, ?, ?, ?)`,
				m.Name, imp.Alias, imp.Module, seq); err != nil {
				return fmt.Errorf("insert import %s.%s: %w", m.Name, imp.Module, err)
			}
		}
		for _, e := range m.Exports {
			if _, err := tx.ExecContext(ctx, `INSERT INTO exports VALUES (?, ?, ?)`,
				m.Name, e.Name, e.Kind); err != nil {
				return fmt.Errorf("insert export %s.%s: %w", m.Name, e.Name, err)
			}
		}
		for _, d := range m.Definitions {
			if _, err := tx.ExecContext(ctx, `INSERT INTO definitions VALUES (?, ?, ?, ?, ?, ?)`,
				m.Name, d.Name, d.Kind, d.Line, d.Column, d.Exported); err != nil {
				return fmt.Errorf("insert definition %s.%s: %w", m.Name, d.Name, err)
			}
		}
		for _, u := range m.Usages {
			if _, err := tx.ExecContext(ctx, `INSERT INTO usages VALUES (?, ?, ?, ?, ?)`,
				m.Name, u.Export, u.Module, u.Line, u.Column); err != nil {
				return fmt.Errorf("insert usage %s.%s: %w", m.Name, u.Export, err)
			}
		}
	}
	return nil
}
