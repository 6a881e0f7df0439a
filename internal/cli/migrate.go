package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/neurolint/internal/app"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			conn, _, applied, err := app.OpenStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			out := cmd.OutOrStdout()
			if len(applied) == 0 {
				fmt.Fprintf(out, "%s schema is up to date\n", cfg.Database.Driver)
				return nil
			}
			for _, v := range applied {
				fmt.Fprintf(out, "applied migration %d\n", v)
			}
			return nil
		},
	}
}
