package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/compound-analysis/pkg/client"
	"github.com/turtacn/compound-analysis/pkg/errors"
)

type submitOptions struct {
	smiles    string
	name      string
	owner     string
	threshold float64
	wait      bool
	interval  time.Duration
}

func newSubmitCmd() *cobra.Command {
	opts := &submitOptions{}
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a compound for analysis",
		Long: "Registers the structure and queues a similarity and bioactivity analysis.\n" +
			"An existing job for the same structure is reused.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.smiles, "smiles", "", "compound structure as SMILES (required)")
	f.StringVar(&opts.name, "name", "", "display name")
	f.StringVar(&opts.owner, "owner", "", "owner id")
	f.Float64Var(&opts.threshold, "threshold", 0, "similarity threshold percent (0-100, default: server setting)")
	f.BoolVar(&opts.wait, "wait", false, "poll until the job completes or fails")
	f.DurationVar(&opts.interval, "interval", 2*time.Second, "poll interval with --wait")
	_ = cmd.MarkFlagRequired("smiles")
	return cmd
}

func runSubmit(cmd *cobra.Command, opts *submitOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	if strings.TrimSpace(opts.smiles) == "" {
		return errors.InvalidParam("--smiles must not be empty")
	}

	req := client.SubmitRequest{Structure: opts.smiles, Name: opts.name, OwnerID: opts.owner}
	if cmd.Flags().Changed("threshold") {
		if opts.threshold < 0 || opts.threshold > 100 {
			return errors.New(errors.ErrCodeJobThresholdInvalid,
				fmt.Sprintf("threshold must be between 0 and 100, got %v", opts.threshold))
		}
		th := opts.threshold
		req.Threshold = &th
	}

	ctx, cancel := commandContext(cmd, cliCtx)
	defer cancel()

	res, err := cliCtx.Client.Jobs().Submit(ctx, req)
	if err != nil {
		return err
	}
	cliCtx.Logger.Debug("job submitted")

	if !opts.wait {
		return PrintResult(cmd, res, func(w io.Writer) error {
			verb := "queued"
			if res.Reused {
				verb = "reused"
			}
			fmt.Fprintf(w, "Job %s %s for compound %s\n", res.Job.ID, verb, res.Compound.ID)
			return writeJobs(w, []client.Job{*res.Job})
		})
	}

	// --timeout bounds each request; the wait itself runs until interrupted.
	job, err := cliCtx.Client.Jobs().Wait(cmd.Context(), res.Job.ID, opts.interval, func(j *client.Job) {
		if cliCtx.OutputFormat != "json" {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %3.0f%%\n", j.Status, j.Progress*100)
		}
	})
	if err != nil {
		return err
	}
	if err := PrintResult(cmd, job, func(w io.Writer) error { return writeJobs(w, []client.Job{*job}) }); err != nil {
		return err
	}
	if job.Status == client.JobFailed {
		return fmt.Errorf("job %s failed: %s", job.ID, job.Error)
	}
	return nil
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status JOB_ID",
		Short: "Show the status of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			job, err := cliCtx.Client.Jobs().Get(ctx, args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, job, func(w io.Writer) error { return writeJobs(w, []client.Job{*job}) })
		},
	}
}

func newResultsCmd() *cobra.Command {
	var compoundID string
	cmd := &cobra.Command{
		Use:   "results JOB_ID",
		Short: "Show the aggregated results of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			if compoundID != "" {
				entry, err := cliCtx.Client.Jobs().CompoundResult(ctx, args[0], compoundID)
				if err != nil {
					return err
				}
				return PrintResult(cmd, entry, func(w io.Writer) error { return writeCompoundResult(w, entry) })
			}

			doc, err := cliCtx.Client.Jobs().Results(ctx, args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, doc, func(w io.Writer) error { return writeResultDocument(w, doc) })
		},
	}
	cmd.Flags().StringVar(&compoundID, "compound", "", "show only this compound's entry")
	return cmd
}

func newCliffsCmd() *cobra.Command {
	var (
		threshold       float64
		significantOnly bool
	)
	cmd := &cobra.Command{
		Use:   "cliffs JOB_ID",
		Short: "Run the activity cliff analysis over a job's results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			opts := client.CliffOptions{SignificantOnly: significantOnly}
			if cmd.Flags().Changed("threshold") {
				if threshold <= 0 {
					return errors.InvalidParam(fmt.Sprintf("threshold must be positive, got %v", threshold))
				}
				opts.Threshold = &threshold
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			rep, err := cliCtx.Client.Jobs().Cliffs(ctx, args[0], opts)
			if err != nil {
				return err
			}
			return PrintResult(cmd, rep, func(w io.Writer) error { return writeCliffs(w, rep) })
		},
	}
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "pActivity difference marking a cliff (default: server setting)")
	cmd.Flags().BoolVar(&significantOnly, "significant-only", false, "list only significant pairs")
	return cmd
}

func newSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary JOB_ID",
		Short: "Show the summary statistics of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			s, err := cliCtx.Client.Jobs().Summary(ctx, args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, s, func(w io.Writer) error { return writeSummary(w, s) })
		},
	}
}

func newExportCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export JOB_ID",
		Short: "Print a download link for the archived results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			format = strings.ToLower(format)
			if format != "json" && format != "csv" {
				return errors.InvalidParam(fmt.Sprintf("format must be json or csv, got %q", format))
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			e, err := cliCtx.Client.Jobs().Export(ctx, args[0], format)
			if err != nil {
				return err
			}
			return PrintResult(cmd, e, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, e.URL)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "snapshot format: json|csv")
	return cmd
}

func writeJobs(w io.Writer, jobs []client.Job) error {
	rows := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		rows = append(rows, []string{
			j.ID,
			j.CompoundID,
			colorizeStatus(j.Status),
			fmt.Sprintf("%.0f%%", j.Progress*100),
			formatFloat(j.SimilarityThreshold),
			j.UpdatedAt.Format(time.RFC3339),
			truncate(j.Error, 60),
		})
	}
	return writeTable(w, []string{"JOB", "COMPOUND", "STATUS", "PROGRESS", "THRESHOLD", "UPDATED", "ERROR"}, rows)
}

func measurementRows(compoundID string, r *client.CompoundResult) [][]string {
	rows := make([][]string, 0, len(r.Results))
	for _, m := range r.Results {
		rows = append(rows, []string{
			compoundID,
			m.TargetID,
			m.ActivityType,
			formatFloat(m.ValueNM),
			formatFloat(m.Metrics.PActivity),
			formatFloat(m.Metrics.SEI),
			formatFloat(m.Metrics.BEI),
			formatFloat(m.Metrics.NSEI),
			formatFloat(m.Metrics.NBEI),
		})
	}
	return rows
}

var measurementHeaders = []string{"COMPOUND", "TARGET", "TYPE", "VALUE_NM", "PACT", "SEI", "BEI", "NSEI", "NBEI"}

func writeCompoundResult(w io.Writer, r *client.CompoundResult) error {
	label := r.CompoundID
	if r.ExternalID != "" {
		label += " (" + r.ExternalID + ")"
	}
	fmt.Fprintf(w, "Compound %s\n", label)
	if r.Similarity != nil {
		fmt.Fprintf(w, "Similarity: %s%%\n", formatFloat(*r.Similarity))
	}
	if r.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", r.Error)
	}
	if r.Skipped > 0 {
		fmt.Fprintf(w, "Skipped measurements: %d\n", r.Skipped)
	}
	return writeTable(w, measurementHeaders, measurementRows(r.CompoundID, r))
}

func writeResultDocument(w io.Writer, doc *client.ResultDocument) error {
	var rows [][]string
	entries := 0
	if doc.PrimaryCompound != nil {
		rows = append(rows, measurementRows(doc.PrimaryCompound.CompoundID+"*", doc.PrimaryCompound)...)
		entries++
	}
	for i := range doc.SimilarCompounds {
		c := &doc.SimilarCompounds[i]
		rows = append(rows, measurementRows(c.CompoundID, c)...)
		entries++
	}
	fmt.Fprintf(w, "Job %s: %d compound(s), %d measurement(s); * marks the primary compound\n", doc.JobID, entries, len(rows))
	return writeTable(w, measurementHeaders, rows)
}

func writeCliffs(w io.Writer, rep *client.CliffReport) error {
	fmt.Fprintf(w, "Threshold %s: %d significant of %d pair(s)\n",
		formatFloat(rep.Threshold), rep.SignificantPairs, rep.TotalPairs)
	rows := make([][]string, 0, len(rep.Pairs))
	for _, p := range rep.Pairs {
		sig := ""
		if p.Significant {
			sig = color.RedString("yes")
		}
		rows = append(rows, []string{
			p.A.ID, p.B.ID,
			formatFloat(p.PotencyDifference),
			formatFloat(p.WeightDifference),
			sig,
		})
	}
	return writeTable(w, []string{"COMPOUND_A", "COMPOUND_B", "DELTA_PACT", "DELTA_MW", "CLIFF"}, rows)
}

func writeSummary(w io.Writer, s *client.Summary) error {
	fmt.Fprintf(w, "Job:                     %s\n", s.JobID)
	fmt.Fprintf(w, "Similarity threshold:    %s\n", formatFloat(s.SimilarityThreshold))
	fmt.Fprintf(w, "Compounds processed:     %d\n", s.CompoundsProcessed)
	fmt.Fprintf(w, "Similar compounds found: %d\n", s.SimilarCompoundsFound)
	fmt.Fprintf(w, "Compounds with activity: %d\n", s.CompoundsWithActivity)
	fmt.Fprintf(w, "Total measurements:      %d\n", s.TotalMeasurements)
	if !s.ProcessingDate.IsZero() {
		fmt.Fprintf(w, "Processing date:         %s\n", s.ProcessingDate.Format(time.RFC3339))
	}
	rows := make([][]string, 0, len(s.ByActivityType))
	for _, t := range s.ByActivityType {
		rows = append(rows, []string{
			t.ActivityType,
			fmt.Sprint(t.Measurements),
			formatFloat(t.MeanPActivity),
			formatFloat(t.MeanSEI),
			formatFloat(t.MeanBEI),
		})
	}
	return writeTable(w, []string{"TYPE", "MEASUREMENTS", "MEAN_PACT", "MEAN_SEI", "MEAN_BEI"}, rows)
}

//Personal.AI order the ending
