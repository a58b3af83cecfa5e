package main

import (
	"bufio"
	"os"

	"github.com/spf13/cobra"

	"oberon-xref/pkg/rsc"
)

func newDisasmCmd() *cobra.Command {
	var rawStrings bool

	cmd := &cobra.Command{
		Use:   "disasm <file.rsc>",
		Short: "Print the disassembly of a compiled .rsc object file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			listing, err := rsc.ReadFile(args[0], !rawStrings)
			if err != nil {
				return err
			}
			out := bufio.NewWriter(os.Stdout)
			for _, line := range listing.Intro {
				out.WriteString(line + "\n")
			}
			for _, lines := range listing.Lines {
				for _, line := range lines {
					out.WriteString(line + "\n")
				}
			}
			return out.Flush()
		},
	}

	cmd.Flags().BoolVar(&rawStrings, "raw-strings", false, "show the string area as data (source used $ strings)")
	return cmd
}

func runDisasm(args []string) error {
	return execute(newDisasmCmd(), args)
}
