package commands

import "github.com/spf13/cobra"

func (c *CLI) newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the dependency graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := sessionOptions(cmd)
			if err != nil {
				return err
			}
			return c.app.Show(cmd.Context(), opts)
		},
	}
}
