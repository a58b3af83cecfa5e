package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"oberon-xref/internal/stats"
)

func newStatsCmd() *cobra.Command {
	var flags programFlags
	var cachePath string
	var top int
	var includeBuiltins bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats [dir]",
		Short: "Report definition and usage metrics for a program",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if top <= 0 {
				return fmt.Errorf("top must be > 0")
			}

			ctx, stop := signalContext()
			defer stop()
			idx, err := loadOrBuild(ctx, cachePath, targetArg(args, 0), &flags)
			if err != nil {
				return err
			}

			report, err := stats.Build(idx, stats.Options{
				TopModules:      top,
				IncludeBuiltins: includeBuiltins,
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				return emitJSON(report)
			}

			fmt.Printf(
				"stats: modules=%d definitions=%d exports=%d usages=%d listings=%d size=%s root=%s\n",
				report.ModuleCount,
				report.DefinitionCount,
				report.ExportCount,
				report.UsageCount,
				report.ListingCount,
				humanize.Bytes(uint64(report.SizeBytes)),
				report.Root,
			)
			if len(report.KindCounts) > 0 {
				fmt.Println("kinds:")
				for _, kind := range report.KindCounts {
					fmt.Printf("  %s count=%d\n", kind.Kind, kind.Count)
				}
			}
			if len(report.TopModules) > 0 {
				fmt.Printf("top modules (limit=%d):\n", top)
				for _, m := range report.TopModules {
					fmt.Printf(
						"  %s usages=%d used_by=%d definitions=%d exports=%d imports=%d size=%s\n",
						m.Module,
						m.Usages,
						m.UsedBy,
						m.Definitions,
						m.Exports,
						m.Imports,
						humanize.Bytes(uint64(m.SizeBytes)),
					)
				}
			}
			return nil
		},
	}

	flags.bind(cmd)
	cmd.Flags().StringVar(&cachePath, "cache", "", "load index from cache instead of resolving")
	cmd.Flags().IntVar(&top, "top", 10, "number of top modules by external usages")
	cmd.Flags().BoolVar(&includeBuiltins, "builtins", false, "include BUILTINS and SYSTEM")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "emit JSON output")
	return cmd
}

func runStats(args []string) error {
	return execute(newStatsCmd(), args)
}
