package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var workerCount int

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Worker pool management",
}

var workerStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start workers and process jobs until interrupted",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := engine.Start(ctx); err != nil {
			return err
		}
		fmt.Printf("started %d worker(s), Ctrl+C to stop\n", workerCount)

		<-ctx.Done()
		fmt.Println("\nshutting down, waiting for in-flight jobs...")
		return engine.Stop(cmd.Context())
	},
}

func init() {
	workerStartCmd.Flags().IntVarP(&workerCount, "count", "c", 1, "number of workers")
	workerCmd.AddCommand(workerStartCmd)
	rootCmd.AddCommand(workerCmd)
}
