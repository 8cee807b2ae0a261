package commands

import "github.com/spf13/cobra"

func (c *CLI) newOutdatedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "outdated [targets...]",
		Short: "List the targets a build would run",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := sessionOptions(cmd)
			if err != nil {
				return err
			}
			return c.app.Outdated(cmd.Context(), args, opts)
		},
	}
}
