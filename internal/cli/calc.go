package cli

import (
	"github.com/spf13/cobra"

	"github.com/okian/zscore/internal/domain/zscore"
)

// inputFlags binds the three calculator inputs to a command.
type inputFlags struct {
	observed string
	mean     string
	sd       string
}

func (f *inputFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.observed, "observed", "", "Observed value (x)")
	cmd.Flags().StringVar(&f.mean, "mean", "", "Mean of the reference distribution")
	cmd.Flags().StringVar(&f.sd, "sd", "", "Standard deviation of the reference distribution (> 0)")
	_ = cmd.MarkFlagRequired("observed")
	_ = cmd.MarkFlagRequired("mean")
	_ = cmd.MarkFlagRequired("sd")
}

func (f *inputFlags) input() zscore.Input {
	return zscore.Input{ObservedValue: f.observed, Mean: f.mean, StandardDeviation: f.sd}
}

// resultView is the printable form of a calculation.
type resultView struct {
	ObservedValue        string  `json:"observedValue" yaml:"observedValue"`
	Mean                 string  `json:"mean" yaml:"mean"`
	StandardDeviation    string  `json:"standardDeviation" yaml:"standardDeviation"`
	ZScore               float64 `json:"zScore" yaml:"zScore"`
	ZScoreText           string  `json:"zScoreText" yaml:"zScoreText"`
	Tier                 string  `json:"interpretationTier" yaml:"interpretationTier"`
	MagnitudeDescription string  `json:"magnitudeDescription" yaml:"magnitudeDescription"`
	Interpretation       string  `json:"interpretation" yaml:"interpretation"`
	Qualifier            string  `json:"qualifier" yaml:"qualifier"`
}

func newResultView(in zscore.Input, r zscore.Result) resultView {
	return resultView{
		ObservedValue:        in.ObservedValue,
		Mean:                 in.Mean,
		StandardDeviation:    in.StandardDeviation,
		ZScore:               r.ZScore,
		ZScoreText:           zscore.FormatScore(r.ZScore),
		Tier:                 r.Tier.String(),
		MagnitudeDescription: r.MagnitudeDescription,
		Interpretation:       r.Interpretation,
		Qualifier:            string(r.Qualifier),
	}
}

func printResult(out *Output, v resultView) error {
	return out.Print(
		[]string{"Z-SCORE", "TIER", "QUALIFIER", "MAGNITUDE"},
		[][]string{{v.ZScoreText, v.Tier, v.Qualifier, v.MagnitudeDescription}},
		v,
	)
}

// NewCalcCmd creates the local calculation command.
func NewCalcCmd(outputFn func() *Output) *cobra.Command {
	var flags inputFlags

	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Compute a z-score locally",
		Example: `  zscore calc --observed 85 --mean 75 --sd 5
  zscore calc --observed 70 --mean 75 --sd 5 --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			in := flags.input()

			r, errs := zscore.Calculate(in)
			if !errs.Valid() {
				return errs.Err()
			}
			v := newResultView(in, *r)
			if err := printResult(out, v); err != nil {
				return err
			}
			if out.format == FormatTable {
				out.Success(v.Interpretation)
			}
			return nil
		},
	}
	flags.bind(cmd)

	return cmd
}
