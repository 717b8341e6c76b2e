package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/turtacn/compound-analysis/internal/domain/efficiency"
	"github.com/turtacn/compound-analysis/pkg/errors"
)

type metricsOptions struct {
	value      float64
	mw         float64
	psa        float64
	heavyAtoms int
	polarAtoms int
}

func newMetricsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Ligand efficiency metrics",
	}
	cmd.AddCommand(newMetricsComputeCmd())
	return cmd
}

func newMetricsComputeCmd() *cobra.Command {
	opts := &metricsOptions{}
	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute pActivity, SEI, BEI, NSEI and nBEI locally",
		Long: "Computes the efficiency indices of one measurement without contacting the\n" +
			"server. Without --polar-atoms the polar atom count is estimated from the PSA.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMetricsCompute(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.Float64Var(&opts.value, "value", 0, "activity value in nM (required)")
	f.Float64Var(&opts.mw, "mw", 0, "molecular weight in Da")
	f.Float64Var(&opts.psa, "psa", 0, "polar surface area in square angstrom")
	f.IntVar(&opts.heavyAtoms, "heavy-atoms", 0, "heavy atom count")
	f.IntVar(&opts.polarAtoms, "polar-atoms", 0, "polar atom count (N+O)")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func runMetricsCompute(cmd *cobra.Command, opts *metricsOptions) error {
	if opts.mw < 0 || opts.psa < 0 || opts.heavyAtoms < 0 || opts.polarAtoms < 0 {
		return errors.InvalidParam("descriptors must not be negative")
	}
	polar := opts.polarAtoms
	if !cmd.Flags().Changed("polar-atoms") {
		polar = efficiency.EstimatePolarAtoms(opts.psa)
	}

	m := efficiency.Compute(opts.value, opts.mw, opts.psa, opts.heavyAtoms, polar)
	if cliCtx, err := GetCLIContext(cmd); err == nil && !m.Computable() {
		cliCtx.Logger.Warn("activity value is not positive; metrics are zero")
	}
	return PrintResult(cmd, m, func(w io.Writer) error {
		return writeTable(w, []string{"PACT", "SEI", "BEI", "NSEI", "NBEI"}, [][]string{{
			formatFloat(m.PActivity),
			formatFloat(m.SEI),
			formatFloat(m.BEI),
			formatFloat(m.NSEI),
			formatFloat(m.NBEI),
		}})
	})
}

//Personal.AI order the ending
