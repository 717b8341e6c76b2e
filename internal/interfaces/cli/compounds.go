package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/compound-analysis/pkg/client"
)

func newCompoundCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compound",
		Short: "Inspect registered compounds",
	}
	cmd.AddCommand(newCompoundListCmd(), newCompoundGetCmd(), newCompoundResultsCmd(), newCompoundJobsCmd())
	return cmd
}

func newCompoundListCmd() *cobra.Command {
	var (
		owner string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the compounds registered by an owner, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			compounds, err := cliCtx.Client.Compounds().List(ctx, owner, limit)
			if err != nil {
				return err
			}
			return PrintResult(cmd, compounds, func(w io.Writer) error { return writeCompounds(w, compounds) })
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner id the compounds were submitted under")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of compounds")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newCompoundGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get COMPOUND_ID",
		Short: "Show a compound and its properties",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			c, err := cliCtx.Client.Compounds().Get(ctx, args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, c, func(w io.Writer) error { return writeCompound(w, c) })
		},
	}
}

func newCompoundResultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "results COMPOUND_ID",
		Short: "Show the latest job a compound took part in and its results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			res, err := cliCtx.Client.Compounds().Results(ctx, args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, res, func(w io.Writer) error {
				if res.Job != nil {
					if err := writeJobs(w, []client.Job{*res.Job}); err != nil {
						return err
					}
				}
				switch {
				case res.Results != nil:
					return writeResultDocument(w, res.Results)
				case res.Result != nil:
					return writeCompoundResult(w, res.Result)
				}
				_, err := fmt.Fprintln(w, "No results yet.")
				return err
			})
		},
	}
}

func newCompoundJobsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "jobs COMPOUND_ID",
		Short: "List the jobs of a compound, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			jobs, err := cliCtx.Client.Compounds().Jobs(ctx, args[0], limit)
			if err != nil {
				return err
			}
			return PrintResult(cmd, jobs, func(w io.Writer) error { return writeJobs(w, jobs) })
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of jobs")
	return cmd
}

func writeCompounds(w io.Writer, compounds []client.Compound) error {
	rows := make([][]string, 0, len(compounds))
	for _, c := range compounds {
		ext := ""
		if c.ExternalID != nil {
			ext = *c.ExternalID
		}
		rows = append(rows, []string{
			c.ID,
			truncate(c.Name, 30),
			truncate(c.Structure, 40),
			ext,
			c.Status,
			c.CreatedAt.Format(time.RFC3339),
		})
	}
	return writeTable(w, []string{"COMPOUND", "NAME", "STRUCTURE", "EXTERNAL", "STATUS", "CREATED"}, rows)
}

func writeCompound(w io.Writer, c *client.Compound) error {
	fmt.Fprintf(w, "ID:         %s\n", c.ID)
	fmt.Fprintf(w, "Name:       %s\n", c.Name)
	fmt.Fprintf(w, "Structure:  %s\n", c.Structure)
	fmt.Fprintf(w, "Status:     %s\n", c.Status)
	if c.ExternalID != nil {
		fmt.Fprintf(w, "External:   %s\n", *c.ExternalID)
	}
	if p := c.Properties; p != nil {
		fmt.Fprintf(w, "MW:         %s\n", formatFloat(p.MolecularWeight))
		fmt.Fprintf(w, "PSA:        %s\n", formatFloat(p.PolarSurfaceArea))
		fmt.Fprintf(w, "Heavy atoms: %d\n", p.HeavyAtoms)
		if p.DrugLikeness != nil {
			fmt.Fprintf(w, "QED:        %s\n", formatFloat(*p.DrugLikeness))
		}
	}
	return nil
}

//Personal.AI order the ending
