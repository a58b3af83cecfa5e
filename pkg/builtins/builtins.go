// Package builtins embeds the sources of the two bootstrap modules: BUILTINS,
// holding the predeclared identifiers, and SYSTEM.
package builtins

import (
	_ "embed"
)

const (
	Builtins = "BUILTINS"
	System   = "SYSTEM"
)

//go:embed BUILTINS.Mod
var builtinsSource string

//go:embed SYSTEM.Mod
var systemSource string

// Source is the text of a bootstrap module.
type Source struct {
	Name string
	Text string
}

// Sources returns the bootstrap modules in resolution order.
func Sources() []Source {
	return []Source{
		{Name: Builtins, Text: builtinsSource},
		{Name: System, Text: systemSource},
	}
}

// IsBuiltin reports whether name is one of the bootstrap modules.
func IsBuiltin(name string) bool {
	return name == Builtins || name == System
}
