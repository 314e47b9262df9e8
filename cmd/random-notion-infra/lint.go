package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	infra "github.com/jeffrosenberg/random-notion-infra"
	"github.com/jeffrosenberg/random-notion-infra/internal/linter"
)

func newLintCmd(a *app) *cobra.Command {
	var (
		outputFormat string
		disabled     []string
		maxTimeout   int
	)

	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Check the synthesized stack for issues",
		Long: `Lint synthesizes the stack and checks it for deployment pitfalls.

Rules:
    RN001: Lambda functions should have active X-Ray tracing
    RN002: Lambda logs should be kept in a log group with a retention period
    RN003: Functions behind the HTTP API must time out within the integration limit
    RN004: IAM statements should not grant access to every resource
    RN005: Tables should enable point-in-time recovery
    RN006: Routes must target an integration
    RN007: Tables should be retained when the stack is deleted

Lint exits with status 2 when it reports an error-level issue.

Examples:
    random-notion-infra lint
    random-notion-infra lint --disable RN005 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.synthesize(cmd.Context(), false)
			if err != nil {
				result := infra.LintResult{Issues: []infra.LintIssue{{
					Severity: string(linter.SeverityError),
					Message:  err.Error(),
					Rule:     "synth",
				}}}
				return outputLintResult(cmd.OutOrStdout(), result, outputFormat)
			}

			result := linter.Lint(s.Template, linter.Options{
				DisabledRules:     disabled,
				MaxTimeoutSeconds: maxTimeout,
			})
			return outputLintResult(cmd.OutOrStdout(), result.ToLintResult(), outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().StringSliceVar(&disabled, "disable", nil, "Rule IDs to skip")
	cmd.Flags().IntVar(&maxTimeout, "max-timeout", linter.DefaultMaxTimeoutSeconds, "Integration timeout limit in seconds for RN003")

	return cmd
}

func outputLintResult(w io.Writer, result infra.LintResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if len(result.Issues) == 0 {
			fmt.Fprintln(w, "No issues found.")
			return nil
		}

		for _, issue := range result.Issues {
			if issue.Resource != "" {
				fmt.Fprintf(w, "%s: %s: %s [%s]\n", issue.Severity, issue.Resource, issue.Message, issue.Rule)
			} else {
				fmt.Fprintf(w, "%s: %s [%s]\n", issue.Severity, issue.Message, issue.Rule)
			}
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if !result.Success {
		return &exitError{code: 2} // Exit code 2 for issues found
	}

	return nil
}
