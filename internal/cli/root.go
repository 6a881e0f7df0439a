// Package cli is the operator command line: migrations, local analysis and config checks.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/neurolint/internal/config"
)

const version = "0.1.0"

const (
	ExitSuccess    = 0
	ExitUsageError = 2
)

type rootOptions struct {
	configPath string
}

func (o *rootOptions) load() (*config.Config, error) {
	return config.Load(o.configPath)
}

// NewRootCmd builds the neurolint command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "neurolint",
		Short:         "neurolint operator CLI",
		Long:          "Runs schema migrations, analyses files with a configured LLM provider and validates config.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	defPath := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defPath = v
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defPath, "path to config.yaml")

	root.AddCommand(newMigrateCmd(opts))
	root.AddCommand(newAnalyzeCmd(opts))
	root.AddCommand(newConfigCmd(opts))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print neurolint version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "neurolint version %s\n", version)
		},
	})
	return root
}

// Run executes the root command and returns an exit code.
func Run() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return ExitUsageError
	}
	return ExitSuccess
}
