package main

import (
	"github.com/spf13/cobra"

	"github.com/jeffrosenberg/random-notion-infra/internal/graph"
)

func newGraphCmd(a *app) *cobra.Command {
	var (
		outputFormat      string
		includeParameters bool
		clusterByType     bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Generate DOT graph of resource dependencies",
		Long: `Generate a DOT or Mermaid format graph showing the stack's resource dependencies.

The output can be rendered with Graphviz:
    random-notion-infra graph | dot -Tpng -o deps.png

Or used in GitHub markdown (Mermaid format):
    random-notion-infra graph -f mermaid

Examples:
    random-notion-infra graph -p              # include parameters
    random-notion-infra graph -c              # cluster by service`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := graph.ParseFormat(outputFormat)
			if err != nil {
				return err
			}

			s, err := a.synthesize(cmd.Context(), false)
			if err != nil {
				return err
			}

			gen := &graph.Generator{
				Format:            format,
				IncludeParameters: includeParameters,
				ClusterByType:     clusterByType,
			}
			return gen.Generate(s.Template, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "dot", "Output format: dot or mermaid")
	cmd.Flags().BoolVarP(&includeParameters, "include-parameters", "p", false, "Include parameter nodes in the graph")
	cmd.Flags().BoolVarP(&clusterByType, "cluster", "c", false, "Cluster resources by AWS service type")

	return cmd
}
