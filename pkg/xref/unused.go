package xref

import (
	"sort"
	"strings"

	"oberon-xref/pkg/link"
	"oberon-xref/pkg/token"
)

const (
	ReasonUnreferenced = "unreferenced"
	ReasonUnusedExport = "unused_export"
)

// Finding is a declaration nothing refers to.
type Finding struct {
	Module string `json:"module"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Reason string `json:"reason"`
}

// Unreferenced finds definitions never referenced inside their module and
// exports no other module uses. A closing name after END does not count as
// a reference, an export marker does. Parameters of procedure types and the
// bootstrap modules are never reported.
func Unreferenced(modules []Module, report *Report) []Finding {
	var findings []Finding
	for _, m := range modules {
		if m.Builtin {
			continue
		}
		used := map[string]bool{}
		usage := link.UsagePage(m.Name) + "#"
		for i, l := range m.Links {
			switch l.Kind() {
			case link.Local:
				if i == 0 || m.Tokens[i-1].Kind != token.End {
					used[l.Anchor()] = true
				}
			case link.Export:
				used[strings.TrimPrefix(string(l), usage)] = true
			}
		}
		for _, def := range m.Definitions {
			if def.Signature || used[def.Anchor] {
				continue
			}
			tok := m.Tokens[def.Pos]
			findings = append(findings, Finding{
				Module: m.Name,
				Name:   def.Anchor,
				Kind:   def.Kind.String(),
				Line:   tok.Line,
				Column: tok.Column,
				Reason: ReasonUnreferenced,
			})
		}
		if report == nil {
			continue
		}
		for _, def := range m.Definitions {
			if !def.Exported {
				continue
			}
			ref := link.PublicPrefix(m.Name) + def.Anchor
			if sites, ok := report.Usages[ref]; ok && len(sites) > 0 {
				continue
			}
			tok := m.Tokens[def.Pos]
			findings = append(findings, Finding{
				Module: m.Name,
				Name:   def.Anchor,
				Kind:   def.Kind.String(),
				Line:   tok.Line,
				Column: tok.Column,
				Reason: ReasonUnusedExport,
			})
		}
	}
	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Reason == findings[j].Reason {
			if findings[i].Module == findings[j].Module {
				return findings[i].Name < findings[j].Name
			}
			return findings[i].Module < findings[j].Module
		}
		return findings[i].Reason < findings[j].Reason
	})
	return findings
}
