// Command refactor is the CLI entrypoint for the semantic refactoring
// engine: one subcommand per Request Dispatcher operation, plus
// --mcp-server to switch into RPC mode over stdio (spec.md §4.10, §6).
// Grounded on the teacher's cmd/lci/main.go urfave/cli/v2 app structure.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/lci-refactor/internal/config"
	"github.com/standardbeagle/lci-refactor/internal/dispatcher"
	refactorerrors "github.com/standardbeagle/lci-refactor/internal/errors"
	"github.com/standardbeagle/lci-refactor/internal/mcpserver"
	"github.com/standardbeagle/lci-refactor/internal/refactor"
	"github.com/standardbeagle/lci-refactor/internal/types"
)

func compilePattern(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(pattern)
}

func batchReplaceRequest(glob string, pattern *regexp.Regexp, template string) refactor.BatchReplaceRequest {
	return refactor.BatchReplaceRequest{Glob: glob, Pattern: pattern, Template: template}
}

var logger = log.New(os.Stderr, "refactor: ", log.LstdFlags)

func main() {
	app := &cli.App{
		Name:                   "refactor",
		Usage:                  "Semantic rename, inline, and batch-replace refactorings for TypeScript, Python, Rust, and C++",
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root directory",
				Value:   ".",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: json|text|markdown",
				Value:   "json",
			},
			&cli.BoolFlag{
				Name:  "mcp-server",
				Usage: "Serve the operation catalog as an MCP tool server over stdio",
			},
		},
		Action: func(c *cli.Context) error {
			if c.Bool("mcp-server") {
				return runMCPServer(c)
			}
			return cli.ShowAppHelp(c)
		},
		Commands: []*cli.Command{
			indexCommand(),
			watchCommand(),
			statsCommand(),
			definitionCommand(),
			referencesCommand(),
			functionsCommand(),
			classesCommand(),
			searchASTCommand(),
			renameSymbolCommand(),
			inlineVariableCommand(),
			batchReplaceCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps an error to the process exit code from spec.md §6: 0
// is reserved for success, 1 for a refactoring-level failure (nothing
// written), 2 for an internal or I/O error.
func exitCodeFor(err error) int {
	if re, ok := err.(*refactorerrors.RefactorError); ok {
		return re.Kind.ExitCode()
	}
	return 2
}

func newDispatcher(c *cli.Context) (*dispatcher.Dispatcher, error) {
	root := c.String("root")
	cfg, err := config.Load(root)
	if err != nil {
		return nil, refactorerrors.Wrap(refactorerrors.KindIO, "cmd.newDispatcher", err)
	}
	return dispatcher.New(root, cfg, logger), nil
}

func runMCPServer(c *cli.Context) error {
	disp, err := newDispatcher(c)
	if err != nil {
		return err
	}
	srv := mcpserver.New(disp, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return srv.Run(ctx)
}

// printResult renders data per the --format flag. text/markdown both fall
// back to an indented JSON rendering for structured payloads; this CLI's
// primary consumers are scripts and editor integrations, not a human
// terminal, so JSON is the default and the richest format.
func printResult(c *cli.Context, data interface{}) error {
	switch c.String("format") {
	case "text", "markdown":
		raw, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return refactorerrors.Wrap(refactorerrors.KindIO, "cmd.printResult", err)
		}
		fmt.Println(string(raw))
	default:
		raw, err := json.Marshal(data)
		if err != nil {
			return refactorerrors.Wrap(refactorerrors.KindIO, "cmd.printResult", err)
		}
		fmt.Println(string(raw))
	}
	return nil
}

func locationFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "path", Required: true, Usage: "Source file path"},
		&cli.IntFlag{Name: "line", Required: true, Usage: "1-based line number"},
		&cli.IntFlag{Name: "column", Required: true, Usage: "1-based column number"},
	}
}

func locationFromFlags(c *cli.Context) types.Location {
	return types.Location{Path: c.String("path"), Line: c.Int("line"), Column: c.Int("column")}
}

func pageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "limit", Value: dispatcher.DefaultLimit, Usage: "Max results per page"},
		&cli.IntFlag{Name: "offset", Value: dispatcher.DefaultOffset, Usage: "Results to skip"},
	}
}

func indexCommand() *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Run the indexer subprocess and (re)load the project index",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "lang", Usage: "Languages to index (repeatable); omit to auto-detect"},
		},
		Action: func(c *cli.Context) error {
			disp, err := newDispatcher(c)
			if err != nil {
				return err
			}
			var langs []types.Language
			for _, l := range c.StringSlice("lang") {
				langs = append(langs, types.Language(l))
			}
			result, err := disp.IndexProject(context.Background(), langs)
			if err != nil {
				return err
			}
			return printResult(c, result)
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Start the file watcher and keep per-language indexes fresh until interrupted",
		Action: func(c *cli.Context) error {
			disp, err := newDispatcher(c)
			if err != nil {
				return err
			}
			if err := disp.WatcherStart(); err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			<-ctx.Done()
			return disp.WatcherStop()
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Report document, symbol, and occurrence counts for the loaded index",
		Action: func(c *cli.Context) error {
			disp, err := newDispatcher(c)
			if err != nil {
				return err
			}
			stats, err := disp.ProjectStats()
			if err != nil {
				return err
			}
			return printResult(c, stats)
		},
	}
}

func definitionCommand() *cli.Command {
	return &cli.Command{
		Name:  "definition",
		Usage: "Resolve the symbol at a source position and print its definition",
		Flags: locationFlags(),
		Action: func(c *cli.Context) error {
			disp, err := newDispatcher(c)
			if err != nil {
				return err
			}
			occ, err := disp.GotoDefinition(c.Context, locationFromFlags(c))
			if err != nil {
				return err
			}
			return printResult(c, occ)
		},
	}
}

func referencesCommand() *cli.Command {
	flags := append(locationFlags(), pageFlags()...)
	return &cli.Command{
		Name:  "references",
		Usage: "Resolve the symbol at a source position and print every reference to it",
		Flags: flags,
		Action: func(c *cli.Context) error {
			disp, err := newDispatcher(c)
			if err != nil {
				return err
			}
			items, page, err := disp.FindReferences(c.Context, locationFromFlags(c), c.Int("limit"), c.Int("offset"))
			if err != nil {
				return err
			}
			return printResult(c, map[string]interface{}{"references": items, "page": page})
		},
	}
}

func functionsCommand() *cli.Command {
	flags := append([]cli.Flag{&cli.StringFlag{Name: "glob", Value: "**/*", Usage: "doublestar glob, relative to the project root"}}, pageFlags()...)
	return &cli.Command{
		Name:  "functions",
		Usage: "List function-shaped declarations matching a glob",
		Flags: flags,
		Action: func(c *cli.Context) error {
			disp, err := newDispatcher(c)
			if err != nil {
				return err
			}
			items, page, err := disp.ListFunctions(c.Context, c.String("glob"), c.Int("limit"), c.Int("offset"))
			if err != nil {
				return err
			}
			return printResult(c, map[string]interface{}{"functions": items, "page": page})
		},
	}
}

func classesCommand() *cli.Command {
	flags := append([]cli.Flag{&cli.StringFlag{Name: "glob", Value: "**/*", Usage: "doublestar glob, relative to the project root"}}, pageFlags()...)
	return &cli.Command{
		Name:  "classes",
		Usage: "List class-shaped declarations matching a glob",
		Flags: flags,
		Action: func(c *cli.Context) error {
			disp, err := newDispatcher(c)
			if err != nil {
				return err
			}
			items, page, err := disp.ListClasses(c.Context, c.String("glob"), c.Int("limit"), c.Int("offset"))
			if err != nil {
				return err
			}
			return printResult(c, map[string]interface{}{"classes": items, "page": page})
		},
	}
}

func searchASTCommand() *cli.Command {
	flags := append([]cli.Flag{
		&cli.StringFlag{Name: "glob", Value: "**/*", Usage: "doublestar glob, relative to the project root"},
		&cli.StringFlag{Name: "node-kind", Required: true, Usage: "tree-sitter node kind, e.g. call_expression"},
	}, pageFlags()...)
	return &cli.Command{
		Name:  "search-ast",
		Usage: "Search for every tree-sitter node whose kind equals --node-kind",
		Flags: flags,
		Action: func(c *cli.Context) error {
			disp, err := newDispatcher(c)
			if err != nil {
				return err
			}
			items, page, err := disp.SearchAST(c.Context, c.String("glob"), c.String("node-kind"), c.Int("limit"), c.Int("offset"))
			if err != nil {
				return err
			}
			return printResult(c, map[string]interface{}{"matches": items, "page": page})
		},
	}
}

func previewFlag() *cli.BoolFlag {
	return &cli.BoolFlag{Name: "preview", Value: true, Usage: "Render a diff instead of writing; pass --preview=false to commit"}
}

func renameSymbolCommand() *cli.Command {
	flags := append(locationFlags(), previewFlag(), &cli.StringFlag{Name: "new-name", Required: true, Usage: "Replacement identifier"})
	return &cli.Command{
		Name:  "rename-symbol",
		Usage: "Rename the symbol at a source position across every indexed file",
		Flags: flags,
		Action: func(c *cli.Context) error {
			disp, err := newDispatcher(c)
			if err != nil {
				return err
			}
			result, err := disp.RenameSymbol(c.Context, locationFromFlags(c), c.String("new-name"), c.Bool("preview"))
			if err != nil {
				return err
			}
			return printResult(c, result)
		},
	}
}

func inlineVariableCommand() *cli.Command {
	flags := append(locationFlags(), previewFlag())
	return &cli.Command{
		Name:  "inline-variable",
		Usage: "Inline the immutable local variable declared at a source position",
		Flags: flags,
		Action: func(c *cli.Context) error {
			disp, err := newDispatcher(c)
			if err != nil {
				return err
			}
			result, err := disp.InlineVariable(c.Context, locationFromFlags(c), c.Bool("preview"))
			if err != nil {
				return err
			}
			return printResult(c, result)
		},
	}
}

func batchReplaceCommand() *cli.Command {
	return &cli.Command{
		Name:  "batch-replace",
		Usage: "Apply a regex-driven rewrite across every file matching a glob",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "glob", Required: true, Usage: "doublestar glob, relative to the project root"},
			&cli.StringFlag{Name: "pattern", Required: true, Usage: "RE2 regular expression"},
			&cli.StringFlag{Name: "template", Required: true, Usage: "Replacement template, supports $1/${name}"},
			previewFlag(),
		},
		Action: func(c *cli.Context) error {
			disp, err := newDispatcher(c)
			if err != nil {
				return err
			}
			re, err := compilePattern(c.String("pattern"))
			if err != nil {
				return refactorerrors.New(refactorerrors.KindInvalidName, "cmd.batch-replace", "invalid pattern: "+err.Error())
			}
			req := batchReplaceRequest(c.String("glob"), re, c.String("template"))
			result, err := disp.BatchReplace(c.Context, req, c.Bool("preview"))
			if err != nil {
				return err
			}
			return printResult(c, result)
		},
	}
}
