// Package index persists a program index as a JSON cache or a SQLite
// database.
package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"oberon-xref/pkg/model"
)

// Version is the format version stamped into saved indexes.
const Version = "oxref-index/1"

// Save writes idx as indented JSON, creating parent directories.
func Save(path string, idx *model.Index) error {
	if idx == nil {
		return nil
	}
	if idx.Version == "" {
		idx.Version = Version
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(idx); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Load reads an index written by Save.
func Load(path string) (*model.Index, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var idx model.Index
	if err := json.NewDecoder(file).Decode(&idx); err != nil {
		return nil, err
	}
	if idx.Version != Version {
		return nil, fmt.Errorf("%s: unsupported index version %q", path, idx.Version)
	}
	return &idx, nil
}
