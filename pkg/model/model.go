// Package model defines the serialisable cross-reference index of an Oberon
// program: modules, their imports, exports, definitions and external uses.
package model

import (
	"sort"
	"time"
)

// Import is one entry of a module's import list.
type Import struct {
	Alias  string `json:"alias,omitempty"`
	Module string `json:"module"`
}

// Export is a top-level declaration visible to importers.
type Export struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// Definition is a declared name with its source location.
type Definition struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Exported bool   `json:"exported,omitempty"`
}

// Usage is a use of one of a module's exports by another module.
type Usage struct {
	Export string `json:"export"`
	Module string `json:"module"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// Module summarises one resolved module.
type Module struct {
	Name        string       `json:"name"`
	Path        string       `json:"path,omitempty"`
	Builtin     bool         `json:"builtin,omitempty"`
	SizeBytes   int64        `json:"size_bytes,omitempty"`
	Listing     bool         `json:"listing,omitempty"`
	Imports     []Import     `json:"imports,omitempty"`
	Exports     []Export     `json:"exports,omitempty"`
	Definitions []Definition `json:"definitions,omitempty"`
	Usages      []Usage      `json:"usages,omitempty"`
}

// ImportNames returns the imported module names in declaration order.
func (m Module) ImportNames() []string {
	out := make([]string, 0, len(m.Imports))
	for _, imp := range m.Imports {
		out = append(out, imp.Module)
	}
	return out
}

// Index is a snapshot of a resolved program.
type Index struct {
	Version     string    `json:"version"`
	RunID       string    `json:"run_id"`
	Root        string    `json:"root"`
	GeneratedAt time.Time `json:"generated_at"`
	// Order is the sequence in which modules were resolved.
	Order   []string `json:"order"`
	Modules []Module `json:"modules"`
}

// ModuleCount returns the number of modules in the index.
func (idx *Index) ModuleCount() int {
	if idx == nil {
		return 0
	}
	return len(idx.Modules)
}

// ExportCount returns the total number of exports.
func (idx *Index) ExportCount() int {
	if idx == nil {
		return 0
	}
	total := 0
	for _, m := range idx.Modules {
		total += len(m.Exports)
	}
	return total
}

// DefinitionCount returns the total number of definitions.
func (idx *Index) DefinitionCount() int {
	if idx == nil {
		return 0
	}
	total := 0
	for _, m := range idx.Modules {
		total += len(m.Definitions)
	}
	return total
}

// UsageCount returns the total number of cross-module uses.
func (idx *Index) UsageCount() int {
	if idx == nil {
		return 0
	}
	total := 0
	for _, m := range idx.Modules {
		total += len(m.Usages)
	}
	return total
}

// Module looks up a module by name.
func (idx *Index) Module(name string) (*Module, bool) {
	if idx == nil {
		return nil, false
	}
	for i := range idx.Modules {
		if idx.Modules[i].Name == name {
			return &idx.Modules[i], true
		}
	}
	return nil, false
}

// Sort orders modules by name and their contents by name and position.
func (idx *Index) Sort() {
	if idx == nil {
		return
	}
	sort.Slice(idx.Modules, func(i, j int) bool { return idx.Modules[i].Name < idx.Modules[j].Name })
	for i := range idx.Modules {
		m := &idx.Modules[i]
		sort.Slice(m.Exports, func(a, b int) bool { return m.Exports[a].Name < m.Exports[b].Name })
		sort.SliceStable(m.Definitions, func(a, b int) bool {
			da, db := m.Definitions[a], m.Definitions[b]
			if da.Line != db.Line {
				return da.Line < db.Line
			}
			return da.Column < db.Column
		})
		sort.Slice(m.Usages, func(a, b int) bool {
			ua, ub := m.Usages[a], m.Usages[b]
			if ua.Export != ub.Export {
				return ua.Export < ub.Export
			}
			if ua.Module != ub.Module {
				return ua.Module < ub.Module
			}
			if ua.Line != ub.Line {
				return ua.Line < ub.Line
			}
			return ua.Column < ub.Column
		})
	}
}
