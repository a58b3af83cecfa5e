package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"oberon-xref/pkg/deps"
)

func newDepsCmd() *cobra.Command {
	var flags programFlags
	var cachePath string
	var top int
	var focus string
	var depth int
	var reverse bool
	var includeEdges bool
	var includeBuiltins bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "deps [dir]",
		Short: "Analyze the module import graph",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if top <= 0 {
				return fmt.Errorf("top must be > 0")
			}
			if depth <= 0 {
				return fmt.Errorf("depth must be > 0")
			}

			ctx, stop := signalContext()
			defer stop()
			idx, err := loadOrBuild(ctx, cachePath, targetArg(args, 0), &flags)
			if err != nil {
				return err
			}

			report, err := deps.Build(idx, deps.Options{
				Top:             top,
				Focus:           focus,
				Depth:           depth,
				Reverse:         reverse,
				IncludeEdges:    includeEdges || jsonOutput,
				IncludeBuiltins: includeBuiltins,
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				return emitJSON(report)
			}

			fmt.Printf(
				"deps: nodes=%d edges=%d builtin=%d root=%s\n",
				report.NodeCount,
				report.EdgeCount,
				report.BuiltinEdges,
				report.Root,
			)

			if len(report.TopOutgoing) > 0 {
				fmt.Printf("top importers (limit=%d):\n", top)
				for _, item := range report.TopOutgoing {
					fmt.Printf("  %s out=%d in=%d\n", item.Node, item.Outgoing, item.Incoming)
				}
			}
			if len(report.TopIncoming) > 0 {
				fmt.Printf("top imported (limit=%d):\n", top)
				for _, item := range report.TopIncoming {
					fmt.Printf("  %s in=%d out=%d\n", item.Node, item.Incoming, item.Outgoing)
				}
			}
			if len(report.Layers) > 0 {
				fmt.Println("layers:")
				for i, layer := range report.Layers {
					fmt.Printf("  %d: %s\n", i, strings.Join(layer, " "))
				}
			}
			if len(report.Cyclic) > 0 {
				fmt.Printf("cyclic: %s\n", strings.Join(report.Cyclic, " "))
			}

			if report.Focus != "" {
				fmt.Printf("focus: %s direction=%s depth=%d\n", report.Focus, report.FocusDirection, report.FocusDepth)
				if len(report.FocusOutgoing) > 0 {
					fmt.Printf("  imports: %s\n", strings.Join(report.FocusOutgoing, ", "))
				}
				if len(report.FocusIncoming) > 0 {
					fmt.Printf("  imported by: %s\n", strings.Join(report.FocusIncoming, ", "))
				}
				if len(report.FocusWalk) > 0 {
					fmt.Printf("  walk: %s\n", strings.Join(report.FocusWalk, ", "))
				}
			}

			if includeEdges {
				fmt.Println("edges:")
				for _, edge := range report.Edges {
					alias := ""
					if edge.Alias != "" {
						alias = " as " + edge.Alias
					}
					fmt.Printf("  %s -> %s%s\n", edge.From, edge.To, alias)
				}
			}
			return nil
		},
	}

	flags.bind(cmd)
	cmd.Flags().StringVar(&cachePath, "cache", "", "load index from cache instead of resolving")
	cmd.Flags().IntVar(&top, "top", 10, "number of top modules to show")
	cmd.Flags().StringVar(&focus, "focus", "", "module to inspect imports and importers of")
	cmd.Flags().IntVar(&depth, "depth", 1, "transitive depth for focus traversal")
	cmd.Flags().BoolVar(&reverse, "reverse", false, "walk importers instead of imports from focus")
	cmd.Flags().BoolVar(&includeEdges, "edges", false, "include full edge list in output")
	cmd.Flags().BoolVar(&includeBuiltins, "builtins", false, "include SYSTEM imports in the graph")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "emit JSON output")
	return cmd
}

func runDeps(args []string) error {
	return execute(newDepsCmd(), args)
}
