package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect neurolint configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Load and validate the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config OK (%s)\n", opts.configPath)
			fmt.Fprintf(out, "  port:       %d\n", cfg.Server.Port)
			fmt.Fprintf(out, "  database:   %s\n", cfg.Database.Driver)
			fmt.Fprintf(out, "  cache:      %s\n", enabled(cfg.Redis.Addr))
			fmt.Fprintf(out, "  reports:    %s\n", enabled(cfg.Minio.Endpoint))
			fmt.Fprintf(out, "  github:     %s\n", enabled(cfg.Auth.GitHub.ClientID))
			fmt.Fprintf(out, "  log level:  %s\n", cfg.Log.Level)
			return nil
		},
	})
	return cmd
}

func enabled(v string) string {
	if v == "" {
		return "disabled"
	}
	return "enabled"
}
