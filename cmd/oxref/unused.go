package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"oberon-xref/pkg/xref"
)

func newUnusedCmd() *cobra.Command {
	var flags programFlags
	var reason string
	var module string
	var countOnly bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "unused [dir]",
		Short: "List declarations and exports nothing refers to",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reason = strings.ToLower(strings.TrimSpace(reason))
			switch reason {
			case "", xref.ReasonUnreferenced, xref.ReasonUnusedExport:
			default:
				return fmt.Errorf("unsupported --reason %q (expected %s or %s)", reason, xref.ReasonUnreferenced, xref.ReasonUnusedExport)
			}

			ctx, stop := signalContext()
			defer stop()
			program, err := loadProgram(ctx, targetArg(args, 0), &flags)
			if err != nil {
				return err
			}
			if module != "" {
				if _, ok := program.Module(module); !ok {
					return fmt.Errorf("unknown module %q", module)
				}
			}

			findings := make([]xref.Finding, 0)
			for _, f := range program.Unreferenced() {
				if reason != "" && f.Reason != reason {
					continue
				}
				if module != "" && f.Module != module {
					continue
				}
				findings = append(findings, f)
			}

			if countOnly {
				if jsonOutput {
					return emitJSON(map[string]int{"count": len(findings)})
				}
				fmt.Println(len(findings))
				return nil
			}
			if jsonOutput {
				return emitJSON(findings)
			}
			for _, f := range findings {
				fmt.Printf("%s:%d:%d %s %s %s\n", f.Module, f.Line, f.Column, f.Kind, f.Name, f.Reason)
			}
			return nil
		},
	}

	flags.bind(cmd)
	cmd.Flags().StringVar(&reason, "reason", "", "only report unreferenced or unused_export findings")
	cmd.Flags().StringVar(&module, "module", "", "only report findings in this module")
	cmd.Flags().BoolVar(&countOnly, "count", false, "print only the number of findings")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "emit JSON output")
	return cmd
}

func runUnused(args []string) error {
	return execute(newUnusedCmd(), args)
}
