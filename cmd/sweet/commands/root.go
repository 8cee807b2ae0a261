// Package commands implements the CLI commands for the sweet build tool.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/sweet/internal/app"
	"go.trai.ch/sweet/internal/build"
)

// CLI represents the command line interface for sweet.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
}

// Application represents the application logic interface.
type Application interface {
	Build(ctx context.Context, goals []string, opts app.BuildOptions) error
	Clean(ctx context.Context, goals []string, opts app.CleanOptions) error
	Outdated(ctx context.Context, goals []string, opts app.SessionOptions) error
	Show(ctx context.Context, opts app.SessionOptions) error
	Watch(ctx context.Context, goals []string, opts app.BuildOptions) error
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	rootCmd := &cobra.Command{
		Use:           "sweet",
		Short:         "A dependency-graph build tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	flags := rootCmd.PersistentFlags()
	flags.StringP("directory", "C", "", "Search for the buildfile starting in this directory")
	flags.String("graph", "", "Path of the dependency graph file (default .sweet/graph)")
	flags.Bool("json", false, "Log JSON records instead of text")
	flags.StringP("output-mode", "o", app.OutputLinear, "Output mode: linear, quiet, or none")

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.AddCommand(c.newBuildCmd())
	rootCmd.AddCommand(c.newCleanCmd())
	rootCmd.AddCommand(c.newOutdatedCmd())
	rootCmd.AddCommand(c.newShowCmd())
	rootCmd.AddCommand(c.newWatchCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

// sessionOptions reads the persistent flags shared by every command.
func sessionOptions(cmd *cobra.Command) (app.SessionOptions, error) {
	directory, _ := cmd.Flags().GetString("directory")
	graph, _ := cmd.Flags().GetString("graph")
	jsonMode, _ := cmd.Flags().GetBool("json")
	outputMode, _ := cmd.Flags().GetString("output-mode")

	switch outputMode {
	case app.OutputLinear, app.OutputQuiet, app.OutputNone:
	default:
		return app.SessionOptions{}, fmt.Errorf("invalid output mode %q: want linear, quiet, or none", outputMode)
	}

	opts := app.SessionOptions{
		Directory:  directory,
		GraphPath:  graph,
		JSON:       jsonMode,
		OutputMode: outputMode,
	}
	if f := cmd.Flags().Lookup("jobs"); f != nil {
		opts.Jobs, _ = cmd.Flags().GetInt("jobs")
	}
	return opts, nil
}
