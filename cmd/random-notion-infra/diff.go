package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeffrosenberg/random-notion-infra/internal/differ"
)

func newDiffCmd(a *app) *cobra.Command {
	var (
		outputFormat string
		ignoreOrder  bool
		exitCode     bool
	)

	cmd := &cobra.Command{
		Use:   "diff <template1> [template2]",
		Short: "Compare templates semantically",
		Long: `Diff compares two CloudFormation templates, JSON or YAML, by content.

With one argument the file is compared against the stack as it would be
synthesized now, which shows what a deploy would change.

Examples:
    random-notion-infra diff deployed.json
    random-notion-infra diff old.yaml new.json --ignore-order
    random-notion-infra diff deployed.json --exit-code`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := differ.Options{IgnoreOrder: ignoreOrder}

			var result *differ.Result
			if len(args) == 2 {
				var err error
				result, err = differ.CompareFiles(args[0], args[1], opts)
				if err != nil {
					return err
				}
			} else {
				before, err := differ.LoadTemplate(args[0])
				if err != nil {
					return fmt.Errorf("failed to load %s: %w", args[0], err)
				}
				s, err := a.synthesize(cmd.Context(), false)
				if err != nil {
					return err
				}
				result, err = differ.Compare(before, s.Template, opts)
				if err != nil {
					return err
				}
			}

			switch outputFormat {
			case "json":
				data, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
			case "text":
				fmt.Fprint(cmd.OutOrStdout(), differ.Format(result))
			default:
				return fmt.Errorf("unknown format: %s", outputFormat)
			}

			if exitCode && !result.Empty() {
				return &exitError{code: 1}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&ignoreOrder, "ignore-order", false, "Ignore list element order")
	cmd.Flags().BoolVar(&exitCode, "exit-code", false, "Exit with status 1 when the templates differ")

	return cmd
}
