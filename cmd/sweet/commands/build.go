package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/sweet/internal/app"
)

func (c *CLI) newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [targets...]",
		Short: "Build targets, or the default goals of the buildfile",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := buildOptions(cmd)
			if err != nil {
				return err
			}
			return c.app.Build(cmd.Context(), args, opts)
		},
	}
	addBuildFlags(cmd)
	return cmd
}

func (c *CLI) newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [targets...]",
		Short: "Build targets and rebuild them when files change",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := buildOptions(cmd)
			if err != nil {
				return err
			}
			return c.app.Watch(cmd.Context(), args, opts)
		},
	}
	addBuildFlags(cmd)
	return cmd
}

func addBuildFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("jobs", "j", 0, "Number of commands to run in parallel (default: number of CPUs)")
	cmd.Flags().BoolP("dry-run", "n", false, "Print the commands that would run without running them")
}

func buildOptions(cmd *cobra.Command) (app.BuildOptions, error) {
	session, err := sessionOptions(cmd)
	if err != nil {
		return app.BuildOptions{}, err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	return app.BuildOptions{SessionOptions: session, DryRun: dryRun}, nil
}
