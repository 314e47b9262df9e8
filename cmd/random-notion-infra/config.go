package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jeffrosenberg/random-notion-infra/internal/function"
)

func newConfigCmd(a *app) *cobra.Command {
	var resolved bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Config prints the configuration after defaults, the config file,
environment variables and flags are applied.

With --resolved it prints the function configuration as deployed instead,
including the computed build flags and source revision.

Examples:
    random-notion-infra config
    random-notion-infra config --resolved`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}

			var data []byte
			if resolved {
				var fn function.Config
				fn, err = function.Build(cfg.FunctionOptions())
				if err != nil {
					return err
				}
				data, err = yaml.Marshal(fn)
			} else {
				data, err = cfg.Marshal()
			}
			if err != nil {
				return err
			}

			if path := cfg.Path(); path != "" && !resolved {
				fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", path)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.Flags().BoolVar(&resolved, "resolved", false, "Print the resolved function configuration")
	return cmd
}
