package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"oberon-xref/internal/config"
	"oberon-xref/internal/pipeline"
	"oberon-xref/pkg/index"
	"oberon-xref/pkg/model"
)

// programFlags are shared by every command that resolves a directory.
type programFlags struct {
	configPath string
	verbose    bool
}

func (f *programFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configPath, "config", "", "configuration file (default: <dir>/"+config.FileName+")")
	cmd.Flags().BoolVar(&f.verbose, "verbose", false, "log scheduling and resolution details")
}

func (f *programFlags) logger() *slog.Logger {
	level := slog.LevelWarn
	if f.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func (f *programFlags) config(target string) (*config.Config, error) {
	if strings.TrimSpace(f.configPath) != "" {
		return config.Load(f.configPath)
	}
	cfg, _, err := config.Discover(target)
	return cfg, err
}

func (f *programFlags) options(target string) (pipeline.Options, error) {
	cfg, err := f.config(target)
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{Root: target, Config: cfg, Logger: f.logger()}, nil
}

func loadProgram(ctx context.Context, target string, flags *programFlags) (*pipeline.Program, error) {
	opts, err := flags.options(target)
	if err != nil {
		return nil, err
	}
	return pipeline.Run(ctx, opts)
}

// loadOrBuild reads a cached index when cachePath is set and resolves the
// directory otherwise.
func loadOrBuild(ctx context.Context, cachePath, target string, flags *programFlags) (*model.Index, error) {
	if strings.TrimSpace(cachePath) != "" {
		return index.Load(cachePath)
	}
	program, err := loadProgram(ctx, target, flags)
	if err != nil {
		return nil, err
	}
	return program.Index(), nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func targetArg(args []string, i int) string {
	if len(args) > i {
		return args[i]
	}
	return "."
}

func emitJSON(value any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func execute(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetArgs(args)
	return cmd.Execute()
}

const (
	colorRed    = "31"
	colorYellow = "33"
	colorGreen  = "32"
)

// colorEnabled reports whether f is a terminal and NO_COLOR is unset.
func colorEnabled(f *os.File) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func paint(f *os.File, color, text string) string {
	if !colorEnabled(f) {
		return text
	}
	return fmt.Sprintf("\x1b[%sm%s\x1b[0m", color, text)
}
