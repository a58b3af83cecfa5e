package main

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"oberon-xref/pkg/model"
)

type referenceMatch struct {
	Export string `json:"export"`
	Kind   string `json:"kind"`
	Module string `json:"module"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

func newRefsCmd() *cobra.Command {
	var flags programFlags
	var cachePath string
	var regexMode bool
	var jsonOutput bool
	var countOnly bool

	cmd := &cobra.Command{
		Use:   "refs <Module.name|regex> [dir]",
		Short: "List the external use sites of exported declarations",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := strings.TrimSpace(args[0])
			if pattern == "" {
				return errors.New("reference matcher cannot be empty")
			}

			matchExport := func(name string) bool { return name == pattern }
			if regexMode {
				compiled, compileErr := regexp.Compile(pattern)
				if compileErr != nil {
					return fmt.Errorf("compile regex: %w", compileErr)
				}
				matchExport = compiled.MatchString
			} else if !strings.Contains(pattern, ".") {
				return fmt.Errorf("reference %q must be qualified as Module.name", pattern)
			}

			ctx, stop := signalContext()
			defer stop()
			idx, err := loadOrBuild(ctx, cachePath, targetArg(args, 1), &flags)
			if err != nil {
				return err
			}

			matches, known := findReferences(idx, matchExport)
			if !regexMode && !known {
				return fmt.Errorf("%s is not an exported declaration", pattern)
			}

			if countOnly {
				if jsonOutput {
					return emitJSON(map[string]int{"count": len(matches)})
				}
				fmt.Println(len(matches))
				return nil
			}
			if jsonOutput {
				return emitJSON(matches)
			}
			if len(matches) == 0 {
				fmt.Printf("%s: not used by other modules\n", pattern)
				return nil
			}
			for _, match := range matches {
				fmt.Printf("%s %s <- %s:%d:%d\n", match.Kind, match.Export, match.Module, match.Line, match.Column)
			}
			return nil
		},
	}

	flags.bind(cmd)
	cmd.Flags().StringVar(&cachePath, "cache", "", "load index from cache instead of resolving")
	cmd.Flags().BoolVar(&regexMode, "regex", false, "treat the matcher as a regular expression over Module.name")
	cmd.Flags().BoolVar(&countOnly, "count", false, "print only the number of use sites")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "emit JSON output")
	return cmd
}

func runRefs(args []string) error {
	return execute(newRefsCmd(), args)
}

// findReferences returns the use sites of every matching export and whether
// any export matched at all. Nested names such as T.x are matched through
// their top-level export's kind.
func findReferences(idx *model.Index, match func(string) bool) ([]referenceMatch, bool) {
	var matches []referenceMatch
	known := false
	for _, m := range idx.Modules {
		kinds := map[string]string{}
		for _, e := range m.Exports {
			kinds[e.Name] = e.Kind
			if match(m.Name + "." + e.Name) {
				known = true
			}
		}
		for _, u := range m.Usages {
			qualified := m.Name + "." + u.Export
			if !match(qualified) {
				continue
			}
			known = true
			top, _, _ := strings.Cut(u.Export, ".")
			matches = append(matches, referenceMatch{
				Export: qualified,
				Kind:   kinds[top],
				Module: u.Module,
				Line:   u.Line,
				Column: u.Column,
			})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Export != b.Export {
			return a.Export < b.Export
		}
		if a.Module != b.Module {
			return a.Module < b.Module
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
	return matches, known
}
