package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jeffrosenberg/random-notion-infra/internal/config"
	"github.com/jeffrosenberg/random-notion-infra/internal/preflight"
	"github.com/jeffrosenberg/random-notion-infra/internal/stack"
)

// preflightRunner is satisfied by *preflight.Checker.
type preflightRunner interface {
	Run(ctx context.Context, target preflight.Target) preflight.Report
}

func newPreflightCmd(a *app) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "preflight",
		Short: "Check the AWS account before deploying",
		Long: `Preflight uses the default AWS credentials to check that the Notion API
secret exists and that a fixed cache table name is not already taken.
Checks that do not apply to the selected variant are skipped.

Examples:
    random-notion-infra preflight
    AWS_PROFILE=prod random-notion-infra preflight --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			checker, err := preflight.Load(cmd.Context(), cfg.Stack.Region, cfg.Secret.Region)
			if err != nil {
				return err
			}
			return runPreflight(cmd.Context(), cmd.OutOrStdout(), cfg, checker, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

// preflightTarget selects what to check for the configured variant.
func preflightTarget(cfg *config.Config) (preflight.Target, error) {
	variant, err := stack.ParseVariant(cfg.Stack.Variant)
	if err != nil {
		return preflight.Target{}, err
	}

	var target preflight.Target
	if variant.HasSecret() {
		target.SecretID = cfg.Secret.Arn
		if target.SecretID == "" {
			target.SecretID = cfg.Secret.Name
		}
	}
	if variant.HasTable() {
		target.TableName = cfg.Table.Name
	}
	return target, nil
}

func runPreflight(ctx context.Context, w io.Writer, cfg *config.Config, checker preflightRunner, format string) error {
	target, err := preflightTarget(cfg)
	if err != nil {
		return err
	}
	report := checker.Run(ctx, target)

	switch format {
	case "json":
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))
	case "text":
		for _, c := range report.Checks {
			fmt.Fprintf(w, "%-6s %s: %s\n", c.Status, c.Name, c.Detail)
		}
	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if !report.OK() {
		return &exitError{code: 1, msg: fmt.Sprintf("preflight failed: %d check(s)", len(report.Failures()))}
	}
	return nil
}
