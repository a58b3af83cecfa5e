package scope

import (
	"fmt"

	"oberon-xref/pkg/diag"
)

// owner walks up the parent chain from h looking for the scope that binds
// name.
func (a *Arena) owner(h Handle, name string) (Handle, error) {
	for cur := h; cur != None; cur = a.nodes[cur].parent {
		if _, ok := a.get(cur).bindings[name]; ok {
			return cur, nil
		}
	}
	return None, fmt.Errorf("%w: %s", diag.ErrUnknownIdentifier, name)
}

// Lookup resolves name from h, walking parents. Public mirrors are never
// consulted.
func (a *Arena) Lookup(h Handle, name string) (Binding, error) {
	if h == None {
		return Binding{}, fmt.Errorf("%w: %s (no scope to select from)", diag.ErrUnknownIdentifier, name)
	}
	owner, err := a.owner(h, name)
	if err != nil {
		return Binding{}, err
	}
	return a.nodes[owner].bindings[name], nil
}

// KindOf returns the kind name is bound to, as seen from h.
func (a *Arena) KindOf(h Handle, name string) (Kind, error) {
	b, err := a.Lookup(h, name)
	return b.Kind, err
}

// Target returns the scope name is bound to, as seen from h.
func (a *Arena) Target(h Handle, name string) (Handle, error) {
	b, err := a.Lookup(h, name)
	return b.Target, err
}

// Defined reports whether name is visible from h.
func (a *Arena) Defined(h Handle, name string) bool {
	if h == None {
		return false
	}
	_, err := a.owner(h, name)
	return err == nil
}
