package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	infra "github.com/jeffrosenberg/random-notion-infra"
	"github.com/jeffrosenberg/random-notion-infra/internal/template"
)

func newSynthCmd(a *app) *cobra.Command {
	var (
		outputFormat string
		outputFile   string
		noBundle     bool
	)

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Bundle the function and generate the CloudFormation template",
		Long: `Synth resolves the function configuration, builds and zips the function
binary, and writes the stack template.

The "result" format wraps the template in a JSON object with the resource
names and asset key, or the errors when synthesis fails.

Examples:
    random-notion-infra synth
    random-notion-infra synth -o template.json
    random-notion-infra synth --format yaml --no-bundle
    random-notion-infra synth --variant basic`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result := buildResult(a, cmd, !noBundle)
			return outputResult(cmd.OutOrStdout(), result, outputFormat, outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "Output format: json, yaml or result")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().BoolVar(&noBundle, "no-bundle", false, "Skip building the function binary")

	return cmd
}

func buildResult(a *app, cmd *cobra.Command, withBundle bool) infra.BuildResult {
	s, err := a.synthesize(cmd.Context(), withBundle)
	if err != nil {
		return infra.BuildResult{Success: false, Errors: []string{err.Error()}}
	}

	names := make([]string, 0, len(s.Template.Resources))
	for name := range s.Template.Resources {
		names = append(names, name)
	}
	sort.Strings(names)

	result := infra.BuildResult{
		Success:   true,
		Template:  *s.Template,
		Resources: names,
	}
	if s.Asset != nil {
		result.Asset = s.Asset.Key
	}
	return result
}

func outputResult(w io.Writer, result infra.BuildResult, format, outputFile string) error {
	var data []byte
	var err error

	switch format {
	case "result":
		data, err = json.MarshalIndent(result, "", "  ")
	case "json", "yaml":
		if !result.Success {
			for _, e := range result.Errors {
				fmt.Fprintln(os.Stderr, e)
			}
			return fmt.Errorf("synth failed")
		}
		if format == "json" {
			data, err = template.ToJSON(&result.Template)
		} else {
			data, err = template.ToYAML(&result.Template)
		}
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	if err != nil {
		return err
	}

	if outputFile == "" {
		fmt.Fprintln(w, string(data))
	} else if err := os.WriteFile(outputFile, data, 0644); err != nil {
		return err
	}

	if !result.Success {
		return &exitError{code: 1}
	}
	return nil
}
