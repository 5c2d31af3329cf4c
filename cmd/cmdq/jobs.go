package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xraph/cmdq/clock"
	"github.com/xraph/cmdq/job"
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <json>",
	Short: "Enqueue a job from a JSON spec",
	Long: `Enqueue a job. The spec is a JSON object:

  {"command":"echo hi","id":"optional","max_retries":3,"priority":100,
   "run_at":"2025-06-01T10:00:00"}

Only command is required. A run_at without a timezone designator is
interpreted as +05:30 local time. A future run_at schedules the job.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := job.ParseSpec([]byte(args[0]))
		if err != nil {
			return err
		}
		id, err := engine.Enqueue(cmd.Context(), spec)
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	},
}

var listState string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs, optionally filtered by state",
	RunE: func(cmd *cobra.Command, _ []string) error {
		state := job.State(listState)
		if state != "" && !state.Valid() {
			return fmt.Errorf("unknown state %q", listState)
		}
		jobs, err := engine.ListJobs(cmd.Context(), state)
		if err != nil {
			return err
		}
		printJobs(jobs)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the queue state histogram",
	RunE: func(cmd *cobra.Command, _ []string) error {
		status, err := engine.StatusSummary(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, st := range job.States {
			fmt.Fprintf(w, "%s\t%d\n", st, status.States[st])
		}
		fmt.Fprintf(w, "ready_pending\t%d\n", status.ReadyPending)
		fmt.Fprintf(w, "workers\t%d\n", status.Workers)
		return w.Flush()
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs <jobId>",
	Short: "Show a job's metadata and log lines",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		j, lines, err := engine.JobLogs(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("id:          %s\n", j.ID)
		fmt.Printf("command:     %s\n", j.Command)
		fmt.Printf("state:       %s\n", j.State)
		fmt.Printf("attempts:    %d/%d\n", j.Attempts, j.MaxRetries+1)
		fmt.Printf("priority:    %d\n", j.Priority)
		if j.LastError != "" {
			fmt.Printf("last_error:  %s\n", j.LastError)
		}
		if j.NextRunAt != nil {
			fmt.Printf("next_run_at: %s\n", clock.Format(*j.NextRunAt))
		}
		fmt.Println()
		for _, l := range lines {
			fmt.Printf("%s  %s\n", clock.Format(l.CreatedAt), l.Message)
		}
		return nil
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show execution metrics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		summary, err := engine.MetricSummary(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("total: %d  completed: %d  failed: %d  timed_out: %d\n",
			summary.Total, summary.Completed, summary.Failed, summary.TimedOut)
		fmt.Printf("avg duration: %.2fs  max duration: %.2fs\n",
			summary.AvgDuration, summary.MaxDuration)

		rows, err := engine.Metrics(cmd.Context())
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "JOB\tSTATE\tDURATION\tWORKER\tCOMPLETED AT")
		for _, m := range rows {
			fmt.Fprintf(w, "%s\t%s\t%.2fs\t%s\t%s\n",
				m.JobID, m.Outcome, m.Duration, m.WorkerID, clock.Format(m.CompletedAt))
		}
		return w.Flush()
	},
}

func printJobs(jobs []*job.Job) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATE\tPRIO\tATTEMPTS\tCOMMAND\tLAST ERROR")
	for _, j := range jobs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d/%d\t%s\t%s\n",
			j.ID, j.State, j.Priority, j.Attempts, j.MaxRetries+1, j.Command, j.LastError)
	}
	_ = w.Flush()
}

func init() {
	listCmd.Flags().StringVar(&listState, "state", "", "filter by state (scheduled|pending|processing|waiting|completed|dead)")
	rootCmd.AddCommand(enqueueCmd, listCmd, statusCmd, logsCmd, metricsCmd)
}
