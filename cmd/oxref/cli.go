package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

const version = "0.3.0"

type commandSpec struct {
	ID      string
	Aliases []string
	Summary string
	Usage   string
	Run     func(args []string) error
}

type cli struct {
	specs     map[string]commandSpec
	aliasToID map[string]string
}

type exitCodeError struct {
	code int
	err  error
}

func (e exitCodeError) Error() string {
	if e.err == nil {
		return "command failed"
	}
	return e.err.Error()
}

func (e exitCodeError) ExitCode() int {
	if e.code <= 0 {
		return 1
	}
	return e.code
}

func (e exitCodeError) Unwrap() error { return e.err }

func newCLI() *cli {
	c := &cli{
		specs:     make(map[string]commandSpec),
		aliasToID: make(map[string]string),
	}

	commands := []commandSpec{
		{
			ID:      "build",
			Aliases: []string{"html"},
			Summary: "Generate cross-referenced HTML pages for a module directory",
			Usage:   "build [dir] [--out html] [--config oxref.yaml] [--no-disasm] [--index file] [--watch] [--poll] [--interval 2s] [--json] [--verbose]",
			Run:     runBuild,
		},
		{
			ID:      "check",
			Aliases: []string{"verify"},
			Summary: "Resolve all modules and run the link consistency checks",
			Usage:   "check [dir] [--config oxref.yaml] [--strict] [--json] [--verbose]",
			Run:     runCheck,
		},
		{
			ID:      "refs",
			Aliases: []string{"usages"},
			Summary: "List the external use sites of exported declarations",
			Usage:   "refs <Module.name|regex> [dir] [--cache file] [--regex] [--count] [--json]",
			Run:     runRefs,
		},
		{
			ID:      "unused",
			Aliases: []string{"dead"},
			Summary: "List declarations and exports nothing refers to",
			Usage:   "unused [dir] [--reason unreferenced|unused_export] [--module M] [--count] [--json]",
			Run:     runUnused,
		},
		{
			ID:      "deps",
			Aliases: []string{"imports"},
			Summary: "Analyze the module import graph",
			Usage:   "deps [dir] [--cache file] [--top 10] [--focus M] [--depth N] [--reverse] [--edges] [--builtins] [--json]",
			Run:     runDeps,
		},
		{
			ID:      "index",
			Aliases: []string{"export"},
			Summary: "Write the program index as JSON and optionally SQLite",
			Usage:   "index [dir] [--out .oxref/index.json] [--db file.sqlite] [--json]",
			Run:     runIndex,
		},
		{
			ID:      "stats",
			Aliases: []string{"summary"},
			Summary: "Report definition and usage metrics for a program",
			Usage:   "stats [dir] [--cache file] [--top 10] [--builtins] [--json]",
			Run:     runStats,
		},
		{
			ID:      "disasm",
			Aliases: []string{"rsc"},
			Summary: "Print the disassembly of a compiled .rsc object file",
			Usage:   "disasm <file.rsc> [--raw-strings]",
			Run:     runDisasm,
		},
	}

	for _, spec := range commands {
		c.specs[spec.ID] = spec
		c.aliasToID[spec.ID] = spec.ID
		for _, alias := range spec.Aliases {
			c.aliasToID[strings.ToLower(alias)] = spec.ID
		}
	}
	return c
}

func (c *cli) Run(args []string) error {
	if len(args) == 0 {
		c.printHelp()
		return nil
	}

	name := strings.ToLower(strings.TrimSpace(args[0]))
	switch name {
	case "-h", "--help":
		c.printHelp()
		return nil
	case "-v", "--version", "version":
		fmt.Printf("oxref v%s\n", version)
		return nil
	case "help":
		if len(args) == 1 {
			c.printHelp()
			return nil
		}
		id, ok := c.aliasToID[strings.ToLower(strings.TrimSpace(args[1]))]
		if !ok {
			return fmt.Errorf("unknown command %q", args[1])
		}
		c.printCommandHelp(id)
		return nil
	}

	commandID, ok := c.aliasToID[name]
	if !ok {
		return fmt.Errorf("unknown command %q", args[0])
	}
	if len(args) > 1 {
		firstArg := strings.TrimSpace(args[1])
		if firstArg == "-h" || firstArg == "--help" {
			c.printCommandHelp(commandID)
			return nil
		}
	}
	return c.specs[commandID].Run(args[1:])
}

func (c *cli) printHelp() {
	ids := make([]string, 0, len(c.specs))
	for id := range c.specs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Fprintf(os.Stderr, "oxref v%s\n\n", version)
	fmt.Println("Oberon cross-reference generator")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  oxref <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	for _, id := range ids {
		spec := c.specs[id]
		fmt.Printf("  %-8s %s\n", spec.ID, spec.Summary)
	}
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  oxref build ./src --out ./html")
	fmt.Println("  oxref build ./src --watch --interval 1s")
	fmt.Println("  oxref check ./src --strict")
	fmt.Println("  oxref refs Files.Old ./src")
	fmt.Println("  oxref refs '^Texts\\.' ./src --regex --count")
	fmt.Println("  oxref unused ./src --reason unused_export")
	fmt.Println("  oxref deps ./src --focus Oberon --depth 2 --reverse")
	fmt.Println("  oxref index ./src --out .oxref/index.json --db .oxref/index.sqlite")
	fmt.Println("  oxref stats ./src --top 5")
	fmt.Println("  oxref disasm ./src/Files.rsc")
	fmt.Println("  oxref help build")
}

func (c *cli) printCommandHelp(id string) {
	spec, ok := c.specs[id]
	if !ok {
		return
	}

	fmt.Printf("%s\n", spec.ID)
	fmt.Println()
	fmt.Printf("Summary: %s\n", spec.Summary)
	fmt.Printf("Usage:   oxref %s\n", spec.Usage)
	if len(spec.Aliases) > 0 {
		fmt.Printf("Aliases: %s\n", strings.Join(spec.Aliases, ", "))
	}
}
