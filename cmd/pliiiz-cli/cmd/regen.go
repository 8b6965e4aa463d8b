package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pliiiz/pliiiz/internal/app"
	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/spf13/cobra"
)

var (
	regenBatchSize int
	jobsStatus     string
	jobsLimit      int
	jobsFormat     string
)

var regenCmd = &cobra.Command{
	Use:   "regen",
	Short: "Process one batch of queued image regeneration jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDependencies(cmd.Context(), func(d *app.Dependencies) error {
			n := regenBatchSize
			if n <= 0 {
				n = d.Config.GetRegenBatchSize()
			}
			sum, err := d.Regenerator.ProcessBatch(cmd.Context(), n)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "claimed %d, done %d, requeued %d, failed %d, skipped %d\n",
				sum.Claimed, sum.Done, sum.Requeued, sum.Failed, sum.Skipped)
			return nil
		})
	},
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List image regeneration jobs",
	Long: `Lists regeneration jobs with the given status.

Examples:
  pliiiz-cli jobs
  pliiiz-cli jobs --status failed --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDependencies(cmd.Context(), func(d *app.Dependencies) error {
			jobs, err := d.Regenerator.Jobs(cmd.Context(), domain.JobStatus(jobsStatus), jobsLimit)
			if err != nil {
				return err
			}
			if jobsFormat == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(jobs)
			}
			printJobs(jobs)
			return nil
		})
	},
}

func printJobs(jobs []*domain.RegenJob) {
	if len(jobs) == 0 {
		fmt.Println("No jobs found.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tATTEMPTS\tLABEL\tERROR")
	fmt.Fprintln(w, "--\t------\t--------\t-----\t-----")
	for _, j := range jobs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", domain.IDString(j.ID), j.Status, j.Attempts, j.Label, j.LastError)
	}
	w.Flush()
}

func init() {
	regenCmd.Flags().IntVar(&regenBatchSize, "batch-size", 0, "Jobs to claim (defaults to REGEN_BATCH_SIZE)")
	jobsCmd.Flags().StringVar(&jobsStatus, "status", string(domain.JobQueued), "Job status: queued, running, done or failed")
	jobsCmd.Flags().IntVar(&jobsLimit, "limit", 50, "Maximum number of jobs")
	jobsCmd.Flags().StringVarP(&jobsFormat, "format", "f", "table", "Output format: table or json")
	rootCmd.AddCommand(regenCmd, jobsCmd)
}
