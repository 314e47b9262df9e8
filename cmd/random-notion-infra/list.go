package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	infra "github.com/jeffrosenberg/random-notion-infra"
	"github.com/jeffrosenberg/random-notion-infra/internal/template"
)

func newListCmd(a *app) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the stack's resources in deployment order",
		Long: `List synthesizes the stack and displays its resources in the order
CloudFormation can create them, with each resource's dependencies.

Examples:
    random-notion-infra list
    random-notion-infra list --variant basic --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.synthesize(cmd.Context(), false)
			if err != nil {
				return err
			}
			result, err := listResult(s.Template)
			if err != nil {
				return err
			}
			return outputListResult(cmd.OutOrStdout(), result, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func listResult(t *infra.Template) (infra.ListResult, error) {
	order, err := template.Order(t)
	if err != nil {
		return infra.ListResult{}, err
	}
	deps := template.Dependencies(t)

	result := infra.ListResult{Resources: make([]infra.ListResource, 0, len(order))}
	for _, name := range order {
		result.Resources = append(result.Resources, infra.ListResource{
			Name:      name,
			Type:      t.Resources[name].Type,
			DependsOn: deps[name],
		})
	}
	return result, nil
}

func outputListResult(w io.Writer, result infra.ListResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if len(result.Resources) == 0 {
			fmt.Fprintln(w, "No resources found.")
			return nil
		}

		fmt.Fprintf(w, "Resources (%d):\n\n", len(result.Resources))
		for _, res := range result.Resources {
			fmt.Fprintf(w, "  %s: %s\n", res.Name, res.Type)
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	return nil
}
