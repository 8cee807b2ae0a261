package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/sweet/internal/app"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean [targets...]",
		Short: "Remove generated files of targets, or of every target",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := sessionOptions(cmd)
			if err != nil {
				return err
			}
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			return c.app.Clean(cmd.Context(), args, app.CleanOptions{
				SessionOptions: session,
				DryRun:         dryRun,
			})
		},
	}
	cmd.Flags().BoolP("dry-run", "n", false, "Print the files that would be removed")
	return cmd
}
