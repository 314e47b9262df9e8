// Command random-notion-infra synthesizes and checks the RandomNotion stack.
//
// Usage:
//
//	random-notion-infra synth -o template.json   Bundle the function and write the template
//	random-notion-infra lint                     Check the synthesized stack
//	random-notion-infra local                    Serve the HTTP API locally
//	random-notion-infra version                  Show version
package main

import (
	"errors"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			if exit.msg != "" {
				fmt.Fprintln(os.Stderr, exit.msg)
			}
			os.Exit(exit.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// exitError ends the process with a specific status code.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string {
	if e.msg == "" {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.msg
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "random-notion-infra",
		Short: "Synthesize the RandomNotion stack",
		Long: `random-notion-infra builds the RandomNotion Lambda function and synthesizes
the CloudFormation stack that serves it: an HTTP API, an execution role, an
optional DynamoDB cache table and read access to the Notion API secret.

Settings come from randomnotion.yaml, RANDOM_NOTION_* environment variables
and flags, in increasing priority.

    random-notion-infra synth -o template.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(a.logLevel)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Config file (default: ./randomnotion.yaml if present)")
	flags.StringVar(&a.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	flags.StringVar(&a.variant, "variant", "", "Stack variant: basic, cached or full")
	flags.BoolVar(&a.noRevision, "no-revision", false, "Do not stamp the source revision into the function")

	rootCmd.AddCommand(
		newSynthCmd(a),
		newConfigCmd(a),
		newListCmd(a),
		newGraphCmd(a),
		newValidateCmd(a),
		newLintCmd(a),
		newDiffCmd(a),
		newWatchCmd(a),
		newLocalCmd(a),
		newPreflightCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

func setupLogging(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(lvl)
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "random-notion-infra %s\n", getVersion())
		},
	}
}
