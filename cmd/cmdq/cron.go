package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xraph/cmdq/clock"
)

var (
	cronRetries  int
	cronPriority int
)

var cronCmd = &cobra.Command{
	Use:   "cron",
	Short: "Recurring job entries",
}

var cronAddCmd = &cobra.Command{
	Use:   "add <name> <schedule> <command>",
	Short: "Register a recurring entry",
	Long: `Register a recurring entry. The schedule is a standard 5-field cron
expression or a descriptor like "@every 30s":

  cmdq cron add nightly-backup "0 2 * * *" "backup.sh /var/data"`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		entry, err := engine.AddCron(cmd.Context(), args[0], args[1], args[2], cronRetries, cronPriority)
		if err != nil {
			return err
		}
		fmt.Printf("added %s, next run %s\n", entry.Name, clock.Format(*entry.NextRunAt))
		return nil
	},
}

var cronListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recurring entries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		entries, err := engine.ListCron(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSCHEDULE\tCOMMAND\tENABLED\tNEXT RUN")
		for _, e := range entries {
			next := "-"
			if e.NextRunAt != nil {
				next = clock.Format(*e.NextRunAt)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", e.Name, e.Schedule, e.Command, e.Enabled, next)
		}
		return w.Flush()
	},
}

var cronRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Delete a recurring entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := engine.RemoveCron(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("removed", args[0])
		return nil
	},
}

func init() {
	cronAddCmd.Flags().IntVar(&cronRetries, "max-retries", 3, "retry budget for fired jobs")
	cronAddCmd.Flags().IntVar(&cronPriority, "priority", 100, "priority for fired jobs (smaller = more urgent)")
	cronCmd.AddCommand(cronAddCmd, cronListCmd, cronRemoveCmd)
	rootCmd.AddCommand(cronCmd)
}
