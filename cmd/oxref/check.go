package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"oberon-xref/internal/pipeline"
)

type checkSummary struct {
	RunID    string   `json:"run_id"`
	Root     string   `json:"root"`
	Modules  int      `json:"modules"`
	Links    int      `json:"links"`
	Exports  int      `json:"exports"`
	Order    []string `json:"order"`
	Dangling []string `json:"dangling,omitempty"`
}

func newCheckCmd() *cobra.Command {
	var flags programFlags
	var strict bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "check [dir]",
		Short: "Resolve all modules and run the link consistency checks",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := targetArg(args, 0)
			opts, err := flags.options(target)
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			program, err := pipeline.Run(ctx, opts)
			if err != nil {
				return err
			}
			summary := checkSummary{
				RunID:    program.RunID,
				Root:     program.Root,
				Modules:  len(program.Modules),
				Links:    program.Report.Links,
				Exports:  len(program.Report.Usages),
				Order:    program.Order,
				Dangling: program.Report.Dangling,
			}

			if jsonOutput {
				if err := emitJSON(summary); err != nil {
					return err
				}
			} else {
				fmt.Printf("%s modules=%d links=%d exports=%d root=%s\n",
					paint(os.Stdout, colorGreen, "ok:"),
					summary.Modules,
					summary.Links,
					summary.Exports,
					summary.Root,
				)
				fmt.Printf("order: %s\n", strings.Join(summary.Order, " "))
				for _, ref := range summary.Dangling {
					fmt.Fprintf(os.Stderr, "%s export %s has no definition\n", paint(os.Stderr, colorYellow, "warning:"), ref)
				}
			}

			if (strict || opts.Config.Strict) && len(summary.Dangling) > 0 {
				return exitCodeError{code: 2, err: fmt.Errorf("%d exports without definition", len(summary.Dangling))}
			}
			return nil
		},
	}

	flags.bind(cmd)
	cmd.Flags().BoolVar(&strict, "strict", false, "exit with code 2 when exports have no definition")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "emit JSON output")
	return cmd
}

func runCheck(args []string) error {
	return execute(newCheckCmd(), args)
}
