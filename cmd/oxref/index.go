package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"oberon-xref/pkg/index"
)

func newIndexCmd() *cobra.Command {
	var flags programFlags
	var outPath string
	var dbPath string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "index [dir]",
		Short: "Write the program index as JSON and optionally SQLite",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()
			program, err := loadProgram(ctx, targetArg(args, 0), &flags)
			if err != nil {
				return err
			}
			idx := program.Index()

			if strings.TrimSpace(outPath) != "" {
				if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
					return err
				}
				if err := index.Save(outPath, idx); err != nil {
					return err
				}
			}
			if strings.TrimSpace(dbPath) != "" {
				if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
					return err
				}
				if err := index.SaveSQLite(ctx, dbPath, idx); err != nil {
					return err
				}
			}

			if jsonOutput {
				return emitJSON(idx)
			}
			fmt.Printf(
				"indexed: modules=%d exports=%d definitions=%d usages=%d run=%s\n",
				idx.ModuleCount(),
				idx.ExportCount(),
				idx.DefinitionCount(),
				idx.UsageCount(),
				idx.RunID,
			)
			if strings.TrimSpace(outPath) != "" {
				fmt.Printf("cache: %s\n", outPath)
			}
			if strings.TrimSpace(dbPath) != "" {
				fmt.Printf("sqlite: %s\n", dbPath)
			}
			return nil
		},
	}

	flags.bind(cmd)
	cmd.Flags().StringVar(&outPath, "out", ".oxref/index.json", "output path for the JSON index (empty to skip)")
	cmd.Flags().StringVar(&dbPath, "db", "", "also write the index to this SQLite database")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "emit index JSON to stdout")
	return cmd
}

func runIndex(args []string) error {
	return execute(newIndexCmd(), args)
}
