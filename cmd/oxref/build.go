package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"oberon-xref/internal/config"
	"oberon-xref/internal/pipeline"
	"oberon-xref/pkg/ignore"
	"oberon-xref/pkg/index"
	"oberon-xref/pkg/render"
)

type buildSummary struct {
	RunID    string   `json:"run_id"`
	Root     string   `json:"root"`
	Output   string   `json:"output"`
	Modules  int      `json:"modules"`
	Links    int      `json:"links"`
	Listings int      `json:"listings"`
	Files    int      `json:"files"`
	Bytes    int64    `json:"bytes"`
	Index    string   `json:"index,omitempty"`
	Dangling []string `json:"dangling,omitempty"`
}

func newBuildCmd() *cobra.Command {
	var flags programFlags
	var outPath string
	var indexPath string
	var noDisasm bool
	var watch bool
	var poll bool
	var interval time.Duration
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "build [dir]",
		Short: "Generate cross-referenced HTML pages for a module directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch && interval <= 0 {
				return fmt.Errorf("interval must be > 0 in watch mode")
			}
			target := targetArg(args, 0)
			opts, err := flags.options(target)
			if err != nil {
				return err
			}
			cfg := opts.Config
			if strings.TrimSpace(outPath) != "" {
				cfg.Output = outPath
			}
			if strings.TrimSpace(indexPath) != "" {
				cfg.Index = indexPath
			}
			if noDisasm {
				off := false
				cfg.Disassemble = &off
			}

			ctx, stop := signalContext()
			defer stop()

			report := func(summary buildSummary) error {
				if jsonOutput {
					return emitJSON(summary)
				}
				printBuildSummary(summary)
				return nil
			}

			summary, err := buildOnce(ctx, opts)
			if err != nil {
				if !watch {
					return err
				}
				fmt.Fprintf(os.Stderr, "%s %v\n", paint(os.Stderr, colorRed, "build error:"), err)
			} else if err := report(summary); err != nil {
				return err
			}

			if !watch {
				if cfg.Strict && len(summary.Dangling) > 0 {
					return exitCodeError{code: 2, err: fmt.Errorf("%d exports without definition", len(summary.Dangling))}
				}
				return nil
			}

			fmt.Printf("watching: interval=%s target=%s\n", interval, target)
			onChange := func(changed []string) {
				if len(changed) > 0 {
					fmt.Printf("watch: changed %s\n", strings.Join(relativeTo(target, changed), ", "))
				}
				next, err := buildOnce(ctx, opts)
				if err != nil {
					if !errors.Is(err, context.Canceled) {
						fmt.Fprintf(os.Stderr, "%s %v\n", paint(os.Stderr, colorRed, "watch build error:"), err)
					}
					return
				}
				if err := report(next); err != nil {
					fmt.Fprintf(os.Stderr, "watch output error: %v\n", err)
				}
			}

			filter, err := newWatchFilter(target, cfg)
			if err != nil {
				return err
			}
			if !poll {
				if err := watchWithFSNotify(ctx, target, interval/8, filter, onChange); err == nil {
					fmt.Println("watch: stopped")
					return nil
				} else {
					fmt.Fprintf(os.Stderr, "watch backend fallback to polling: %v\n", err)
				}
			}
			err = watchWithPolling(ctx, target, interval, filter, onChange)
			fmt.Println("watch: stopped")
			return err
		},
	}

	flags.bind(cmd)
	cmd.Flags().StringVar(&outPath, "out", "", "output directory (default: configured output or ./html)")
	cmd.Flags().StringVar(&indexPath, "index", "", "also write the program index as JSON to this path")
	cmd.Flags().BoolVar(&noDisasm, "no-disasm", false, "do not interleave disassembled .rsc object files")
	cmd.Flags().BoolVar(&watch, "watch", false, "rebuild whenever a source or object file changes")
	cmd.Flags().BoolVar(&poll, "poll", false, "force polling watch mode instead of fsnotify")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "poll interval for watch mode")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "emit the build summary as JSON")
	return cmd
}

func runBuild(args []string) error {
	return execute(newBuildCmd(), args)
}

// buildOnce resolves the whole program and replaces the output directory.
// The index is written after the pages so a failed render leaves the
// previous index alone.
func buildOnce(ctx context.Context, opts pipeline.Options) (buildSummary, error) {
	program, err := pipeline.Run(ctx, opts)
	if err != nil {
		return buildSummary{}, err
	}
	cfg := opts.Config
	stats, err := render.Write(cfg.Output, program.Pages())
	if err != nil {
		return buildSummary{}, fmt.Errorf("write pages: %w", err)
	}
	summary := buildSummary{
		RunID:    program.RunID,
		Root:     program.Root,
		Output:   cfg.Output,
		Modules:  len(program.Modules),
		Links:    program.Report.Links,
		Files:    stats.Files,
		Bytes:    stats.Bytes,
		Dangling: program.Report.Dangling,
	}
	for _, m := range program.Modules {
		if m.Listing != nil {
			summary.Listings++
		}
	}
	if cfg.Index != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Index), 0o755); err != nil {
			return buildSummary{}, err
		}
		if err := index.Save(cfg.Index, program.Index()); err != nil {
			return buildSummary{}, err
		}
		summary.Index = cfg.Index
	}
	return summary, nil
}

func printBuildSummary(s buildSummary) {
	fmt.Printf(
		"built: modules=%d links=%d listings=%d files=%d size=%s out=%s\n",
		s.Modules,
		s.Links,
		s.Listings,
		s.Files,
		humanize.Bytes(uint64(s.Bytes)),
		s.Output,
	)
	if s.Index != "" {
		fmt.Printf("index: %s\n", s.Index)
	}
	for _, ref := range s.Dangling {
		fmt.Fprintf(os.Stderr, "%s export %s has no definition\n", paint(os.Stderr, colorYellow, "warning:"), ref)
	}
}

// newWatchFilter accepts the files a build reads: module sources, their
// object files, the configuration and the ignore file. Ignored sources and
// the build's own output never trigger a rebuild.
func newWatchFilter(target string, cfg *config.Config) (func(path string) bool, error) {
	matcher, err := ignore.LoadDir(target)
	if err != nil {
		return nil, err
	}
	matcher.Add(cfg.Ignore...)
	skip := map[string]bool{}
	for _, p := range []string{cfg.Output, cfg.Index} {
		if p == "" {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			skip[filepath.Clean(abs)] = true
		}
	}
	return func(path string) bool {
		if abs, err := filepath.Abs(path); err == nil && skip[filepath.Clean(abs)] {
			return false
		}
		base := filepath.Base(path)
		switch {
		case strings.HasPrefix(base, ".") && base != ignore.FileName,
			strings.HasSuffix(base, ".swp"),
			strings.HasSuffix(base, "~"):
			return false
		case base == config.FileName, base == ignore.FileName, strings.HasSuffix(base, ".rsc"):
			return true
		}
		if _, ok := cfg.ModuleName(base); !ok {
			return false
		}
		return !matcher.Match(base, false)
	}, nil
}

func relativeTo(root string, paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if rel, err := filepath.Rel(root, p); err == nil {
			p = rel
		}
		out = append(out, filepath.ToSlash(p))
	}
	return out
}
