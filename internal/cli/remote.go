package cli

import (
	"github.com/spf13/cobra"

	"github.com/okian/zscore/internal/domain/zscore"
)

// NewRemoteCmd creates the command group that calls a running server.
func NewRemoteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Use a running z-score server",
	}

	cmd.AddCommand(
		newRemoteCalcCmd(clientFn, outputFn),
		newRemoteValidateCmd(clientFn, outputFn),
	)

	return cmd
}

func newRemoteCalcCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var flags inputFlags
	var query bool

	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Compute a z-score on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()
			in := flags.input()

			calc := client.Calculate
			if query {
				calc = client.Query
			}
			res, err := calc(cmd.Context(), in)
			if err != nil {
				return err
			}
			return printResult(out, newResultView(in, res.Result))
		},
	}
	flags.bind(cmd)
	cmd.Flags().BoolVar(&query, "query", false, "Use the GET endpoint with query parameters")

	return cmd
}

// validationView is the printable outcome of a remote validation.
type validationView struct {
	Valid  bool              `json:"valid" yaml:"valid"`
	Errors map[string]string `json:"errors" yaml:"errors"`
}

func newRemoteValidateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var flags inputFlags

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate inputs on the server without computing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			res, err := client.Validate(cmd.Context(), flags.input())
			if err != nil {
				return err
			}

			v := validationView{Valid: res.Valid, Errors: make(map[string]string, len(res.Errors))}
			rows := make([][]string, 0, len(zscore.Fields()))
			for _, f := range zscore.Fields() {
				status := "ok"
				if kind, bad := res.Errors[f]; bad {
					status = string(kind)
					v.Errors[string(f)] = string(kind)
				}
				rows = append(rows, []string{string(f), status})
			}
			return out.Print([]string{"FIELD", "STATUS"}, rows, v)
		},
	}
	flags.bind(cmd)

	return cmd
}
