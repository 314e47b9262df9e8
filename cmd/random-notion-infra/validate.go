package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	infra "github.com/jeffrosenberg/random-notion-infra"
	"github.com/jeffrosenberg/random-notion-infra/internal/validation"
)

// newValidateCmd creates the "validate" subcommand for checking the template with cfn-lint.
func newValidateCmd(a *app) *cobra.Command {
	var (
		outputFormat string
		ignoreRules  []string
		strict       bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the synthesized template with cfn-lint",
		Long: `Validate synthesizes the stack and checks the template against the
CloudFormation resource specification using cfn-lint.

Checks performed:
  - Reference validity and dependency cycles (during synthesis)
  - Resource property types and allowed values (cfn-lint)

Examples:
    random-notion-infra validate
    random-notion-infra validate --strict --ignore-rule W3005`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result infra.ValidateResult
			s, err := a.synthesize(cmd.Context(), false)
			if err != nil {
				result.Errors = []string{err.Error()}
			} else {
				r, err := validation.Validate(s.Template, validation.Options{
					IgnoreRules:      ignoreRules,
					WarningsAsErrors: strict,
				})
				if err != nil {
					return err
				}
				result = *r
			}
			return outputValidateResult(cmd.OutOrStdout(), result, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().StringSliceVar(&ignoreRules, "ignore-rule", nil, "cfn-lint rule IDs to ignore")
	cmd.Flags().BoolVar(&strict, "strict", false, "Treat warnings as errors")

	return cmd
}

func outputValidateResult(w io.Writer, result infra.ValidateResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if result.Success {
			fmt.Fprintf(w, "Validation passed: %d resources OK\n", result.Resources)
			for _, warnMsg := range result.Warnings {
				fmt.Fprintf(w, "  WARNING: %s\n", warnMsg)
			}
			return nil
		}

		fmt.Fprintln(w, "Validation FAILED:")
		for _, errMsg := range result.Errors {
			fmt.Fprintf(w, "  ERROR: %s\n", errMsg)
		}
		for _, warnMsg := range result.Warnings {
			fmt.Fprintf(w, "  WARNING: %s\n", warnMsg)
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if !result.Success {
		return &exitError{code: 1}
	}

	return nil
}
