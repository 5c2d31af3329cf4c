package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var dlqCmd = &cobra.Command{
	Use:   "dlq",
	Short: "Dead letter queue operations",
}

var dlqListCmd = &cobra.Command{
	Use:   "list",
	Short: "List dead jobs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		jobs, err := engine.DLQ().List(cmd.Context())
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			fmt.Println("dead letter queue is empty")
			return nil
		}
		printJobs(jobs)
		return nil
	},
}

var dlqRetryCmd = &cobra.Command{
	Use:   "retry [jobId]",
	Short: "Move dead jobs back to pending with attempts reset",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			if err := engine.DLQ().Retry(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("retried", args[0])
			return nil
		}
		n, err := engine.DLQ().RetryAll(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("retried %d job(s)\n", n)
		return nil
	},
}

var dlqClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Permanently delete all dead jobs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		n, err := engine.DLQ().Clear(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("cleared %d job(s)\n", n)
		return nil
	},
}

func init() {
	dlqCmd.AddCommand(dlqListCmd, dlqRetryCmd, dlqClearCmd)
	rootCmd.AddCommand(dlqCmd)
}
