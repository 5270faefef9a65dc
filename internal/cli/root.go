package cli

import (
	"io"
	"time"

	"github.com/spf13/cobra"
)

const (
	defaultAPIURL  = "http://localhost:9080"
	defaultTimeout = 10 * time.Second
)

// NewRootCmd assembles the zscore command tree.
func NewRootCmd(version string, stdout, stderr io.Writer) *cobra.Command {
	var apiURL string
	var output string
	var timeout time.Duration

	rootCmd := &cobra.Command{
		Use:           "zscore",
		Short:         "Z-score calculator",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ParseFormat(output)
			return err
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", defaultAPIURL, "API server URL")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", FormatTable, "Output format: table, json or yaml")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", defaultTimeout, "HTTP request timeout")

	clientFn := func() *Client { return NewClient(apiURL, timeout) }
	outputFn := func() *Output { return NewOutput(output, stdout, stderr) }

	rootCmd.AddCommand(
		NewCalcCmd(outputFn),
		NewRemoteCmd(clientFn, outputFn),
		NewProbeCmd(clientFn, outputFn),
	)

	return rootCmd
}
