// Package stats summarises a program index: definition kinds and the
// largest and most used modules.
package stats

import (
	"fmt"
	"sort"

	"oberon-xref/pkg/model"
)

type Options struct {
	TopModules      int
	IncludeBuiltins bool
}

type KindCount struct {
	Kind  string `json:"kind"`
	Count int    `json:"count"`
}

type ModuleMetric struct {
	Module      string `json:"module"`
	Definitions int    `json:"definitions"`
	Exports     int    `json:"exports"`
	Imports     int    `json:"imports"`
	// UsedBy counts the distinct modules using at least one export.
	UsedBy    int   `json:"used_by"`
	Usages    int   `json:"usages"`
	SizeBytes int64 `json:"size_bytes,omitempty"`
}

type Report struct {
	Root            string         `json:"root"`
	ModuleCount     int            `json:"module_count"`
	DefinitionCount int            `json:"definition_count"`
	ExportCount     int            `json:"export_count"`
	UsageCount      int            `json:"usage_count"`
	ListingCount    int            `json:"listing_count"`
	SizeBytes       int64          `json:"size_bytes"`
	KindCounts      []KindCount    `json:"kind_counts,omitempty"`
	TopModules      []ModuleMetric `json:"top_modules,omitempty"`
}

// Build aggregates idx. Modules are ranked by external usages, then by
// definitions.
func Build(idx *model.Index, opts Options) (Report, error) {
	if idx == nil {
		return Report{}, fmt.Errorf("index is nil")
	}
	if opts.TopModules <= 0 {
		opts.TopModules = 10
	}

	report := Report{Root: idx.Root}
	kindCounts := map[string]int{}
	metrics := make([]ModuleMetric, 0, len(idx.Modules))
	for _, m := range idx.Modules {
		if m.Builtin && !opts.IncludeBuiltins {
			continue
		}
		report.ModuleCount++
		report.DefinitionCount += len(m.Definitions)
		report.ExportCount += len(m.Exports)
		report.UsageCount += len(m.Usages)
		report.SizeBytes += m.SizeBytes
		if m.Listing {
			report.ListingCount++
		}
		for _, d := range m.Definitions {
			kindCounts[d.Kind]++
		}
		users := map[string]bool{}
		for _, u := range m.Usages {
			users[u.Module] = true
		}
		metrics = append(metrics, ModuleMetric{
			Module:      m.Name,
			Definitions: len(m.Definitions),
			Exports:     len(m.Exports),
			Imports:     len(m.Imports),
			UsedBy:      len(users),
			Usages:      len(m.Usages),
			SizeBytes:   m.SizeBytes,
		})
	}

	for kind, count := range kindCounts {
		report.KindCounts = append(report.KindCounts, KindCount{Kind: kind, Count: count})
	}
	sort.Slice(report.KindCounts, func(i, j int) bool {
		if report.KindCounts[i].Count == report.KindCounts[j].Count {
			return report.KindCounts[i].Kind < report.KindCounts[j].Kind
		}
		return report.KindCounts[i].Count > report.KindCounts[j].Count
	})

	sort.Slice(metrics, func(i, j int) bool {
		a, b := metrics[i], metrics[j]
		if a.Usages != b.Usages {
			return a.Usages > b.Usages
		}
		if a.Definitions != b.Definitions {
			return a.Definitions > b.Definitions
		}
		return a.Module < b.Module
	})
	if opts.TopModules < len(metrics) {
		metrics = metrics[:opts.TopModules]
	}
	report.TopModules = metrics
	return report, nil
}
