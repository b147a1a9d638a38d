package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/valet-cli/valet/internal/agent"
	"github.com/valet-cli/valet/internal/config"
	"github.com/valet-cli/valet/internal/convert"
	verrors "github.com/valet-cli/valet/internal/errors"
	"github.com/valet-cli/valet/internal/install"
)

// previewFilesPerFolder caps how many filenames an organize preview shows
// under each destination folder.
const previewFilesPerFolder = 5

// newCLIApp creates the CLI application with all commands.
func newCLIApp(cfg config.Config, log *zap.Logger) *cli.App {
	app := &cli.App{
		Name:    "valet",
		Usage:   "File utility agent",
		Version: Version,
		Commands: []*cli.Command{
			convertCmd(cfg, log),
			organizeCmd(cfg, log),
			summarizeCmd(cfg, log),
			renameCmd(cfg, log),
			askCmd(cfg, log),
			installCmd(cfg, log),
			dispatchCmd(cfg, log),
			executeCmd(cfg, log),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// convertCmd creates the convert command.
func convertCmd(cfg config.Config, log *zap.Logger) *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "Convert a file to another format",
		ArgsUsage: "<file> <format>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return outputError(verrors.NewInvalidRequest("usage: valet convert <file> <format>"))
			}

			engine := convert.NewEngine(cfg, log)
			result, err := engine.Convert(c.Context, c.Args().Get(0), c.Args().Get(1))
			if err != nil {
				if vErr, ok := err.(*verrors.ValetError); ok && vErr.Code == verrors.ErrToolUnavailable {
					if tool, _ := vErr.Details["installable"].(string); tool != "" {
						fmt.Fprintf(os.Stderr, "Missing tool: %s. Install it with 'valet install %s'.\n", tool, tool)
					}
				}
				return outputError(err)
			}

			fmt.Printf("Converted: %s -> .%s (using %s)\n",
				filepath.Base(result.SourcePath), result.Target, result.Tool)
			if result.EmptyOutput {
				fmt.Println("Warning: output file is empty.")
			} else {
				fmt.Printf("Output: %s (%s)\n", result.OutputPath, humanSize(result.Size))
			}
			return nil
		},
	}
}

// organizeCmd creates the organize command.
func organizeCmd(cfg config.Config, log *zap.Logger) *cli.Command {
	return &cli.Command{
		Name:      "organize",
		Usage:     "Organize files in a folder into subfolders",
		ArgsUsage: "<dir>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "instructions", Aliases: []string{"i"}, Usage: "Natural-language organize instructions"},
			&cli.BoolFlag{Name: "confirm", Usage: "Apply the plan instead of previewing it"},
		},
		Action: func(c *cli.Context) error {
			dir := c.Args().First()
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				return outputError(verrors.NewInvalidRequest(fmt.Sprintf("directory not found: %s", dir)))
			}

			var plan map[string][]string
			var err error
			if instructions := strings.TrimSpace(c.String("instructions")); instructions != "" {
				runner := agent.NewRunner(cfg, log)
				plan, err = runner.OrganizePlan(c.Context, dir, instructions)
			} else {
				plan, err = agent.HeuristicPlan(dir)
			}
			if err != nil {
				return outputError(err)
			}
			if len(plan) == 0 {
				fmt.Println("No files to move.")
				return nil
			}

			printOrganizePlan(plan)

			if !c.Bool("confirm") {
				fmt.Println("\nThis is a preview. Re-run with --confirm to execute.")
				return nil
			}

			moved, skipped, err := agent.ApplyMoves(dir, plan)
			if err != nil {
				return outputError(err)
			}
			if skipped > 0 {
				fmt.Printf("Done. Moved %d file(s), skipped %d.\n", moved, skipped)
			} else {
				fmt.Printf("Done. Moved %d file(s).\n", moved)
			}
			return nil
		},
	}
}

// summarizeCmd creates the summarize command.
func summarizeCmd(cfg config.Config, log *zap.Logger) *cli.Command {
	return &cli.Command{
		Name:      "summarize",
		Usage:     "Summarize files with the model",
		ArgsUsage: "<paths...>",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(verrors.NewInvalidRequest("usage: valet summarize <paths...>"))
			}

			runner := agent.NewRunner(cfg, log)
			summary, err := runner.SummarizeFiles(c.Context, c.Args().Slice())
			if err != nil {
				return outputError(err)
			}
			fmt.Println(summary)
			return nil
		},
	}
}

// renameCmd creates the rename command.
func renameCmd(cfg config.Config, log *zap.Logger) *cli.Command {
	return &cli.Command{
		Name:      "rename",
		Usage:     "Rename files using model suggestions",
		ArgsUsage: "<paths...>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "confirm", Usage: "Apply the renames instead of previewing them"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(verrors.NewInvalidRequest("usage: valet rename <paths...>"))
			}

			runner := agent.NewRunner(cfg, log)
			renames, err := runner.SuggestRenames(c.Context, c.Args().Slice())
			if err != nil {
				return outputError(err)
			}
			if len(renames) == 0 {
				fmt.Println("No renames needed.")
				return nil
			}

			oldPaths := make([]string, 0, len(renames))
			for oldPath := range renames {
				oldPaths = append(oldPaths, oldPath)
			}
			sort.Strings(oldPaths)

			fmt.Println("Plan:")
			for _, oldPath := range oldPaths {
				fmt.Printf("  %s -> %s\n", filepath.Base(oldPath), renames[oldPath])
			}

			if !c.Bool("confirm") {
				fmt.Println("\nPreview only. Use --confirm to execute.")
				return nil
			}

			count := 0
			for _, oldPath := range oldPaths {
				newPath := filepath.Join(filepath.Dir(oldPath), renames[oldPath])
				if _, err := os.Stat(newPath); err == nil {
					continue // never clobber an existing file
				}
				if err := os.Rename(oldPath, newPath); err != nil {
					log.Warn("rename failed", zap.String("from", oldPath), zap.Error(err))
					continue
				}
				count++
			}
			fmt.Printf("\nRenamed %d file(s).\n", count)
			return nil
		},
	}
}

// askCmd creates the ask command.
func askCmd(cfg config.Config, log *zap.Logger) *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Ask the model to write and run a small script",
		ArgsUsage: "<query> [paths...]",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(verrors.NewInvalidRequest("usage: valet ask <query> [paths...]"))
			}

			runner := agent.NewRunner(cfg, log)
			report, err := runner.Ask(c.Context, c.Args().First(), c.Args().Tail())
			if err != nil {
				return outputError(err)
			}
			fmt.Println(report)
			return nil
		},
	}
}

// installCmd creates the install command.
func installCmd(cfg config.Config, log *zap.Logger) *cli.Command {
	return &cli.Command{
		Name:      "install",
		Usage:     "Download and install a converter tool locally",
		ArgsUsage: "<tool>",
		Action: func(c *cli.Context) error {
			tool := c.Args().First()
			installer := install.NewInstaller(cfg, log, os.Stderr)
			if err := installer.Install(c.Context, tool); err != nil {
				if verrors.Is(err, verrors.ErrInvalidRequest) {
					tools := install.Tools()
					sort.Strings(tools)
					fmt.Fprintf(os.Stderr, "Available: %s\n", strings.Join(tools, ", "))
				}
				return outputError(err)
			}
			fmt.Printf("Installed %s to %s\n", tool, cfg.BinDir())
			return nil
		},
	}
}

// dispatchCmd creates the dispatch command. It prints exactly one compact
// JSON line to stdout; everything else goes to stderr.
func dispatchCmd(cfg config.Config, log *zap.Logger) *cli.Command {
	return &cli.Command{
		Name:      "dispatch",
		Usage:     "Plan an action from a natural-language request",
		ArgsUsage: "<agent> <query> [paths...]",
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return outputError(verrors.NewInvalidRequest("usage: valet dispatch <agent> <query> [paths...]"))
			}

			dispatcher := agent.NewDispatcher(cfg, log)
			result, err := dispatcher.Dispatch(c.Context, c.Args().Get(0), c.Args().Get(1), c.Args().Slice()[2:])
			if err != nil {
				return outputError(err)
			}
			if !result.Ok() {
				fmt.Fprintln(os.Stderr, "Model reply was not valid JSON; emitting a fallback plan.")
			}

			line, err := result.Plan().MarshalLine()
			if err != nil {
				return outputError(verrors.NewInternal(err))
			}
			fmt.Println(line)
			return nil
		},
	}
}

// executeCmd creates the execute command.
func executeCmd(cfg config.Config, log *zap.Logger) *cli.Command {
	return &cli.Command{
		Name:      "execute",
		Usage:     "Execute a JSON plan produced by dispatch",
		ArgsUsage: "<planJson>",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(verrors.NewInvalidRequest("usage: valet execute <planJson>"))
			}

			runner := agent.NewRunner(cfg, log)
			report, err := runner.ExecuteJSON(c.Context, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			fmt.Println(report)
			return nil
		},
	}
}

// Helper functions

// printOrganizePlan writes a capped per-folder preview of an organize plan.
func printOrganizePlan(plan map[string][]string) {
	total := 0
	for _, files := range plan {
		total += len(files)
	}
	fmt.Printf("\nPlan: move %d file(s) into %d folder(s):\n\n", total, len(plan))

	folders := make([]string, 0, len(plan))
	for folder := range plan {
		folders = append(folders, folder)
	}
	sort.Strings(folders)

	for _, folder := range folders {
		files := plan[folder]
		fmt.Printf("  %s/\n", folder)
		for i, f := range files {
			if i == previewFilesPerFolder {
				fmt.Printf("    ... and %d more\n", len(files)-previewFilesPerFolder)
				break
			}
			fmt.Printf("    %s\n", f)
		}
	}
}

// exitCode maps an app.Run error to the process exit status. Handled
// errors carry code 1 via cli.Exit; anything else came from argument
// parsing and exits 2.
func exitCode(err error) int {
	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return 2
}

// outputError formats error for CLI.
func outputError(err error) error {
	if vErr, ok := err.(*verrors.ValetError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", vErr.Code, vErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// humanSize renders a byte count for people.
func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}
